package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mgapi/internal/model"
)

// HTTPClient is the Dispatcher over the server's HTTP API.
type HTTPClient struct {
	BaseURL string
	Timeout time.Duration

	hc *http.Client
}

// NewHTTPClient builds a client for the given base URL, e.g.
// "http://localhost:8000".
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		BaseURL: baseURL,
		Timeout: timeout,
		hc:      &http.Client{Timeout: timeout},
	}
}

// Send posts the encoded command to /execute and decodes the server's
// answer. Connect failures, timeouts, and non-2xx statuses come back as
// *TransportError.
func (c *HTTPClient) Send(ctx context.Context, query model.RemoteQuery) (model.RemoteResult, error) {
	encoded, err := query.Encode()
	if err != nil {
		return model.RemoteResult{}, fmt.Errorf("failed to encode query: %w", err)
	}

	return c.ExecuteRaw(ctx, encoded)
}

// ExecuteRaw posts an already-encoded query string to /execute. Used by
// the send command where the user supplies the query verbatim.
func (c *HTTPClient) ExecuteRaw(ctx context.Context, query string) (model.RemoteResult, error) {
	body, err := c.post(ctx, "/execute", map[string]interface{}{"query": query})
	if err != nil {
		return model.RemoteResult{}, err
	}
	return decodeResult(body)
}

// Health reports whether the server answers on /health.
func (c *HTTPClient) Health(ctx context.Context) bool {
	_, err := c.get(ctx, "/health")
	return err == nil
}

// JobInfo fetches the scheduler job info published by the server.
func (c *HTTPClient) JobInfo(ctx context.Context) (map[string]interface{}, error) {
	body, err := c.get(ctx, "/job_info")
	if err != nil {
		return nil, err
	}
	return decodeMap(body)
}

// APIInfo fetches the server's root document listing its endpoints.
func (c *HTTPClient) APIInfo(ctx context.Context) (map[string]interface{}, error) {
	body, err := c.get(ctx, "/")
	if err != nil {
		return nil, err
	}
	return decodeMap(body)
}

// Shutdown asks the server to terminate itself.
func (c *HTTPClient) Shutdown(ctx context.Context) (map[string]interface{}, error) {
	body, err := c.post(ctx, "/shutdown", nil)
	if err != nil {
		return nil, err
	}
	return decodeMap(body)
}

func (c *HTTPClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, endpoint, nil)
}

func (c *HTTPClient) post(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	return c.do(ctx, http.MethodPost, endpoint, payload)
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+endpoint, body)
	if err != nil {
		return nil, &TransportError{Op: method + " " + endpoint, Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &TransportError{Op: method + " " + endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: method + " " + endpoint, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{
			Op:  method + " " + endpoint,
			Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(data), 200)),
		}
	}
	return data, nil
}

// decodeResult extracts exit code and message from a server response.
// The message falls back through message, result, error, matching the
// server's varying response shapes. An undecodable body means the server
// never produced a usable answer, so it counts as a transport failure.
func decodeResult(body []byte) (model.RemoteResult, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return model.RemoteResult{}, &TransportError{
			Op:  "decode response",
			Err: fmt.Errorf("invalid response body: %s", truncate(string(body), 100)),
		}
	}

	result := model.RemoteResult{}
	if code, ok := raw["exit_code"].(float64); ok {
		result.ExitCode = int(code)
	}
	for _, key := range []string{"message", "result", "error"} {
		if v, ok := raw[key]; ok && v != nil {
			if s := fmt.Sprintf("%v", v); s != "" {
				result.Message = s
				break
			}
		}
	}
	return result, nil
}

func decodeMap(body []byte) (map[string]interface{}, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("failed to decode server response: %w", err)
	}
	return m, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
