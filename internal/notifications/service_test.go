package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"cosigner/internal/config"
	"cosigner/internal/notifications"
)

type captured struct {
	title    string
	body     string
	tags     string
	priority string
}

func newServer(t *testing.T, status int) (*httptest.Server, func() []captured) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []captured
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, captured{
			title:    r.Header.Get("Title"),
			body:     string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), requests...)
	}
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventRunCompleted, notifications.Payload{"confirmed": 1}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectBody     string
		expectTags     string
		expectPriority string
	}{
		{
			name:        "run completed",
			event:       notifications.EventRunCompleted,
			payload:     notifications.Payload{"confirmed": 3, "failed": 0, "duration": 2 * time.Second},
			expectTitle: "Cosigner - Run Complete",
			expectBody:  "3 transactions confirmed in 2s",
			expectTags:  "cosigner,run,completed",
		},
		{
			name:        "run completed with failures",
			event:       notifications.EventRunCompleted,
			payload:     notifications.Payload{"confirmed": 2, "failed": 1, "duration": 1500 * time.Millisecond},
			expectTitle: "Cosigner - Run Complete (with failures)",
			expectBody:  "2 confirmed, 1 failed in 2s",
			expectTags:  "cosigner,run,warning",
		},
		{
			name:           "deploy failed",
			event:          notifications.EventDeployFailed,
			payload:        notifications.Payload{"variant": "active", "error": "insufficient funds"},
			expectTitle:    "Cosigner - Deployment Failed",
			expectBody:     "Could not deploy active program: insufficient funds",
			expectTags:     "cosigner,deploy,error",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "Cosigner - Test",
			expectBody:     "Notification system test",
			expectTags:     "cosigner,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, requests := newServer(t, http.StatusOK)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = srv.URL
			svc := notifications.NewService(&cfg)

			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("Publish returned error: %v", err)
			}
			got := requests()
			if len(got) != 1 {
				t.Fatalf("expected 1 request, got %d", len(got))
			}
			if got[0].title != tc.expectTitle || got[0].body != tc.expectBody || got[0].tags != tc.expectTags || got[0].priority != tc.expectPriority {
				t.Fatalf("unexpected request: %#v", got[0])
			}
		})
	}
}

func TestNtfyServiceRespectsToggles(t *testing.T) {
	srv, requests := newServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.RunStarted = false
	svc := notifications.NewService(&cfg)

	if err := svc.Publish(context.Background(), notifications.EventRunStarted, notifications.Payload{"pending": 2}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if len(requests()) != 0 {
		t.Fatal("expected disabled event to be skipped")
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv, _ := newServer(t, http.StatusTooManyRequests)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	svc := notifications.NewService(&cfg)

	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
