// Package sink submits resolved responses to the external answer endpoint.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client posts responses to the answer sink. One attempt per call, fixed
// timeout, no retry: a duplicate submission risks a duplicate side effect
// downstream, so a failed attempt is surfaced and counted instead.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// Result is the sink's acknowledgement of a submission.
type Result struct {
	Status string `json:"status,omitempty"`
}

// NewClient creates a sink client. Timeout defaults to 10s.
func NewClient(baseURL, authToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		authToken:  authToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SubmitResponse commits one response for a notification.
func (c *Client) SubmitResponse(ctx context.Context, notificationID, value string) (*Result, error) {
	body, _ := json.Marshal(map[string]any{
		"notification_id": notificationID,
		"response_value":  value,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/response", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := strings.TrimSpace(c.authToken); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit response: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("answer sink status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// A bare 2xx with no body is still a success.
		return &Result{}, nil
	}
	return &result, nil
}
