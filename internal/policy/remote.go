package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Remote asks the security-policy service for the session timeout:
//
//	GET {url}?role=<role>  ->  {"session_timeout_ms": 900000}
type Remote struct {
	url    string
	client *http.Client
}

type remoteResponse struct {
	SessionTimeoutMs int64 `json:"session_timeout_ms"`
}

func NewRemote(rawURL string, timeout time.Duration) *Remote {
	return &Remote{
		url:    rawURL,
		client: &http.Client{Timeout: timeout},
	}
}

func (r *Remote) Timeout(ctx context.Context, role string) (time.Duration, error) {
	u, err := url.Parse(r.url)
	if err != nil {
		return 0, fmt.Errorf("parse policy url: %w", err)
	}
	q := u.Query()
	q.Set("role", role)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("create policy request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch session policy: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("session policy returned status %d", resp.StatusCode)
	}

	var body remoteResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode session policy: %w", err)
	}
	return time.Duration(body.SessionTimeoutMs) * time.Millisecond, nil
}
