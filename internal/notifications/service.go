package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cosigner/internal/config"
)

const userAgent = "cosigner/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventRunStarted   Event = "run_started"
	EventRunCompleted Event = "run_completed"
	EventDeployFailed Event = "deploy_failed"
	EventRevertFailed Event = "revert_failed"
	EventTest         Event = "test"
)

// Payload carries event fields. Known keys per event:
//   - run_started: pending (int)
//   - run_completed: confirmed, failed (int), duration (time.Duration)
//   - deploy_failed, revert_failed: variant (string), error (string)
type Payload map[string]any

// Service defines the notification surface exposed to relay components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventRunStarted:   cfg.Notifications.RunStarted,
			EventRunCompleted: cfg.Notifications.RunCompleted,
			EventDeployFailed: cfg.Notifications.Errors,
			EventRevertFailed: cfg.Notifications.Errors,
			EventTest:         true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return fmt.Errorf("unknown notification event %q", event)
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventRunStarted:
		return message{
			title: "Cosigner - Run Started",
			body:  fmt.Sprintf("Processing %d queued transactions", intValue(payload["pending"])),
			tags:  []string{"cosigner", "run", "started"},
		}, true
	case EventRunCompleted:
		confirmed := intValue(payload["confirmed"])
		failed := intValue(payload["failed"])
		duration, _ := payload["duration"].(time.Duration)
		durationText := duration.Round(time.Second).String()
		if failed == 0 {
			return message{
				title: "Cosigner - Run Complete",
				body:  fmt.Sprintf("%d transactions confirmed in %s", confirmed, durationText),
				tags:  []string{"cosigner", "run", "completed"},
			}, true
		}
		return message{
			title: "Cosigner - Run Complete (with failures)",
			body:  fmt.Sprintf("%d confirmed, %d failed in %s", confirmed, failed, durationText),
			tags:  []string{"cosigner", "run", "warning"},
		}, true
	case EventDeployFailed:
		return message{
			title:    "Cosigner - Deployment Failed",
			body:     fmt.Sprintf("Could not deploy %s program: %s", stringValue(payload["variant"]), stringValue(payload["error"])),
			tags:     []string{"cosigner", "deploy", "error"},
			priority: "high",
		}, true
	case EventRevertFailed:
		return message{
			title:    "Cosigner - Revert Failed",
			body:     fmt.Sprintf("Program left active after run: %s", stringValue(payload["error"])),
			tags:     []string{"cosigner", "deploy", "warning"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Cosigner - Test",
			body:     "Notification system test",
			tags:     []string{"cosigner", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		if strings.TrimSpace(s) == "" {
			return "unknown"
		}
		return strings.TrimSpace(s)
	case error:
		return s.Error()
	}
	return "unknown"
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
