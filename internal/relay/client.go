// Package relay is the HTTP client for the relay control service.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrMalformedBody is returned when a successful response is valid JSON
	// but not an object.
	ErrMalformedBody = errors.New("malformed response body")
	// ErrInvalidJSON is returned when a successful response does not parse
	// as JSON at all, usually because something other than the relay
	// answered. It counts as a poll failure, not a resource failure.
	ErrInvalidJSON = errors.New("response is not JSON")
)

// StatusError is a non-2xx answer from the relay.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("api %s %s failed with status %d: %s", e.Method, e.Path, e.Code, e.Body)
	}
	return fmt.Sprintf("api %s %s failed with status %d", e.Method, e.Path, e.Code)
}

// IsResourceFailure reports whether err came back from the relay itself
// (a non-2xx status or a well-formed non-object body) rather than from the
// network or from something that is not the relay.
func IsResourceFailure(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	return errors.As(err, &statusErr) || errors.Is(err, ErrMalformedBody)
}

const (
	requestIDHeader = "X-Request-ID"
	maxLogLines     = 200
	maxErrorBody    = 512
)

type Client struct {
	baseURL    string
	httpClient *http.Client

	logsMu sync.Mutex
	logs   []string
}

// NewClient builds a client rooted at baseURL. A nil httpClient gets one
// without a global timeout; callers bound requests through the context.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) appendLog(line string) {
	c.logsMu.Lock()
	defer c.logsMu.Unlock()
	c.logs = append(c.logs, line)
	if len(c.logs) > maxLogLines {
		c.logs = c.logs[len(c.logs)-maxLogLines:]
	}
}

// Logs returns the most recent request outcomes, oldest first.
func (c *Client) Logs() string {
	c.logsMu.Lock()
	defer c.logsMu.Unlock()
	return strings.Join(c.logs, "\n")
}

func (c *Client) do(ctx context.Context, method, path string) (*http.Response, string, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	requestID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, requestID, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.appendLog(fmt.Sprintf("%s %s %s -> error: %v", requestID, method, path, err))
		return nil, requestID, fmt.Errorf("perform request %s %s: %w", method, path, err)
	}
	c.appendLog(fmt.Sprintf("%s %s %s -> %d in %s", requestID, method, path, resp.StatusCode, time.Since(started).Round(time.Millisecond)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		blob, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, requestID, &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(blob)),
		}
	}
	return resp, requestID, nil
}

// getObject fetches path and decodes a top-level JSON object.
func (c *Client) getObject(ctx context.Context, path string) (map[string]any, error) {
	resp, _, err := c.do(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed any
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("read %s: %w", path, ctx.Err())
		}
		return nil, fmt.Errorf("decode %s: %w: %v", path, ErrInvalidJSON, err)
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode %s: %w: top-level value is %T", path, ErrMalformedBody, parsed)
	}
	return obj, nil
}

// Status reads GET /status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	obj, err := c.getObject(ctx, "/status")
	if err != nil {
		return Status{}, err
	}
	return DecodeStatus(obj), nil
}

// History reads GET /history and returns its series.
func (c *Client) History(ctx context.Context) ([]map[string]any, error) {
	obj, err := c.getObject(ctx, "/history")
	if err != nil {
		return nil, err
	}
	return DecodeSeries(obj), nil
}

// Mode reads GET /mode.
func (c *Client) Mode(ctx context.Context) (string, error) {
	obj, err := c.getObject(ctx, "/mode")
	if err != nil {
		return "", err
	}
	return DecodeMode(obj), nil
}

// Command POSTs a control command. The path is passed through untouched;
// the relay decides whether it is valid.
func (c *Client) Command(ctx context.Context, path string) error {
	resp, requestID, err := c.do(ctx, http.MethodPost, path)
	if err != nil {
		log.Printf("command %s (request %s) failed: %v", path, requestID, err)
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	log.Printf("command %s (request %s) accepted", path, requestID)
	return nil
}

// Health probes GET /health.
func (c *Client) Health(ctx context.Context) error {
	resp, _, err := c.do(ctx, http.MethodGet, "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
