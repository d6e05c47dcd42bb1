// Package moderation asks a remote censorship service whether a comment may be published.
package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultTimeout = 5 * time.Second

type Client struct {
	// RequestID extracts the ID forwarded to the censorship service as X-Request-Id.
	RequestID func(ctx context.Context) string

	url    string
	client *http.Client
}

type checkRequest struct {
	Text string `json:"text"`
}

func New(serviceURL string) (*Client, error) {
	u, err := url.Parse(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("invalid censorship service URL %q: %w", serviceURL, err)
	}

	return &Client{
		url:    u.JoinPath("check").String(),
		client: &http.Client{Timeout: defaultTimeout},
	}, nil
}

// Allowed posts the text to the /check endpoint. The service answers 200 for acceptable
// texts and 422 for banned ones, any other status is an error.
func (c *Client) Allowed(ctx context.Context, text string) (bool, error) {
	b, err := json.Marshal(checkRequest{Text: text})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return false, fmt.Errorf("error creating request to censorship service: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.RequestID != nil {
		if reqID := c.RequestID(ctx); reqID != "" {
			req.Header.Set("X-Request-Id", reqID)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("error calling censorship service: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusUnprocessableEntity:
		return false, nil
	default:
		return false, fmt.Errorf("censorship service returned status %d", resp.StatusCode)
	}
}
