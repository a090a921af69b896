package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cosigner/internal/api"
)

// ErrUnavailable reports that no daemon is listening.
var ErrUnavailable = errors.New("daemon API unavailable")

// Error is a non-2xx reply from the daemon.
type Error struct {
	Status  int
	Message string
	Kind    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned status %d", e.Status)
	}
	return fmt.Sprintf("daemon returned status %d: %s", e.Status, e.Message)
}

// Client talks to the daemon HTTP API.
type Client struct {
	base *url.URL
	http *http.Client
}

// NoTimeout disables the client timeout; the request context bounds the call.
const NoTimeout time.Duration = -1

// New builds a client for the bind address (host:port or a full URL).
func New(bind string, timeout time.Duration) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, errors.New("api bind address required")
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""
	switch {
	case timeout == NoTimeout:
		timeout = 0
	case timeout <= 0:
		timeout = 30 * time.Second
	}
	return &Client{base: base, http: &http.Client{Timeout: timeout}}, nil
}

// Health fetches GET /health.
func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	var out api.HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

// State fetches GET /state.
func (c *Client) State(ctx context.Context) (api.StateResponse, error) {
	var out api.StateResponse
	err := c.do(ctx, http.MethodGet, "/state", nil, &out)
	return out, err
}

// Queue fetches GET /queue.
func (c *Client) Queue(ctx context.Context) (api.QueueResponse, error) {
	var out api.QueueResponse
	err := c.do(ctx, http.MethodGet, "/queue", nil, &out)
	return out, err
}

// History fetches GET /history.
func (c *Client) History(ctx context.Context) (api.HistoryResponse, error) {
	var out api.HistoryResponse
	err := c.do(ctx, http.MethodGet, "/history", nil, &out)
	return out, err
}

// Transaction fetches GET /transaction/{id}.
func (c *Client) Transaction(ctx context.Context, id string) (api.TransactionView, error) {
	var out api.TransactionView
	err := c.do(ctx, http.MethodGet, "/transaction/"+url.PathEscape(strings.TrimSpace(id)), nil, &out)
	return out, err
}

// Submit posts a base64 encoded transaction.
func (c *Client) Submit(ctx context.Context, payload, requester string) (api.SubmitResponse, error) {
	var out api.SubmitResponse
	err := c.do(ctx, http.MethodPost, "/submit-transaction", api.SubmitRequest{Payload: payload, Requester: requester}, &out)
	return out, err
}

// ProcessQueue posts /process-queue.
func (c *Client) ProcessQueue(ctx context.Context) (api.ProcessResponse, error) {
	var out api.ProcessResponse
	err := c.do(ctx, http.MethodPost, "/process-queue", struct{}{}, &out)
	return out, err
}

// RunQueue posts /process-queue?wait=true and returns once the run ends.
func (c *Client) RunQueue(ctx context.Context) (api.ProcessResponse, error) {
	var out api.ProcessResponse
	err := c.do(ctx, http.MethodPost, "/process-queue?wait=true", struct{}{}, &out)
	return out, err
}

// ChangeState posts /change-state.
func (c *Client) ChangeState(ctx context.Context, target string) (api.ChangeStateResponse, error) {
	var out api.ChangeStateResponse
	err := c.do(ctx, http.MethodPost, "/change-state", api.ChangeStateRequest{Target: target}, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c == nil {
		return ErrUnavailable
	}
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("build request path: %w", err)
	}
	endpoint := c.base.ResolveReference(ref)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if IsUnavailable(err) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &Error{Status: resp.StatusCode}
		var payload api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.Error
			apiErr.Kind = payload.Kind
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// IsUnavailable reports whether err means the daemon could not be reached.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// StatusCode returns the HTTP status of an *Error, or zero.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
