// Package videoapi is the HTTP client of the remote video store.
package videoapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const videosPath = "/videos"

// Client talks to the store's /videos endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for a base URL such as http://localhost:3000/api.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server responded %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("server responded %d", e.Code)
}

type messageBody struct {
	Message string `json:"message"`
}

// FetchVideos returns the raw JSON video list.
func (c *Client) FetchVideos(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+videosPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch videos: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, body)
	}
	return body, nil
}

// ReplaceVideos overwrites the remote list with body, a JSON array.
func (c *Client) ReplaceVideos(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+videosPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("save videos: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return statusError(resp.StatusCode, data)
	}
	return nil
}

func statusError(code int, body []byte) error {
	var msg messageBody
	_ = json.Unmarshal(body, &msg)
	return &StatusError{Code: code, Message: msg.Message}
}
