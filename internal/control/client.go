package control

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/resolvd/resolvd/internal/store"
)

// Client talks to a running daemon's control API.
type Client struct {
	baseURL   string
	authToken string
	httpc     *http.Client
}

// NewClient creates a control client for the given address.
func NewClient(addr, authToken string) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL:   base,
		authToken: strings.TrimSpace(authToken),
		httpc:     &http.Client{Timeout: 5 * time.Second},
	}
}

// Stats fetches the daemon counters.
func (c *Client) Stats(ctx context.Context) (*StatsResponse, error) {
	var out StatsResponse
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PendingRatifications lists unresolved ratification requests.
func (c *Client) PendingRatifications(ctx context.Context) ([]store.RatificationRecord, error) {
	var out []store.RatificationRecord
	if err := c.do(ctx, http.MethodGet, "/ratifications", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ratify approves or denies one pending ratification.
func (c *Client) Ratify(ctx context.Context, ratificationID string, approve bool) error {
	req := RatifyRequest{RatificationID: ratificationID, Approve: approve}
	return c.do(ctx, http.MethodPost, "/ratify", req, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("control request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("control %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
