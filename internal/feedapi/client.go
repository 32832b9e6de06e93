// Package feedapi provides a client for the shorts feed backend.
package feedapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gauthierbraillon/shortsfeed/internal/feed"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	defaultTimeout = 15 * time.Second
)

// HTTPClient interface for making HTTP requests (allows injection for testing).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// Client talks to the feed listing and view report endpoints.
type Client struct {
	baseURL    string
	httpClient HTTPClient
}

var _ feed.Source = (*Client)(nil)

// NewClient creates a new feed API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the backend the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchPage retrieves the next page of the feed for a session. An empty,
// non-nil slice means the session has nothing more to serve.
func (c *Client) FetchPage(ctx context.Context, req feed.PageRequest) ([]feed.VideoItem, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(req.Limit))
	q.Set("session", string(req.Session))
	if req.ViewerID != "" {
		q.Set("user", req.ViewerID)
	}
	endpoint := fmt.Sprintf("%s/api/feed?%s", c.baseURL, q.Encode())

	body, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var response []videoResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse feed response: %w", err)
	}

	items := make([]feed.VideoItem, 0, len(response))
	for _, v := range response {
		if v.ID == "" {
			continue
		}
		items = append(items, feed.VideoItem{
			ID:               v.ID,
			Title:            v.Title,
			ChannelID:        v.ChannelID,
			ChannelName:      v.ChannelName,
			ChannelAvatarURL: v.ChannelAvatar,
			ThumbnailURL:     v.Thumbnail,
			PublishedAt:      v.PublishedAt.Time,
		})
	}

	return items, nil
}

// ReportView records a counted view. Any 2xx response is success and the
// body is ignored.
func (c *Client) ReportView(ctx context.Context, videoID string) error {
	endpoint := fmt.Sprintf("%s/api/view/%s", c.baseURL, url.PathEscape(videoID))
	_, err := c.doRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(nil))
	return err
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed API request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, handleAPIError(resp.StatusCode)
	}

	return data, nil
}

// API response types (private - implementation detail)

type videoResponse struct {
	ID            string    `json:"id"`
	ChannelID     string    `json:"channel_id"`
	ChannelName   string    `json:"channel_name"`
	ChannelAvatar string    `json:"channel_avatar"`
	Title         string    `json:"title"`
	Thumbnail     string    `json:"thumbnail"`
	PublishedAt   timestamp `json:"published_at"`
	EmbedURL      string    `json:"embed_url"`
}

// timestamp accepts unix seconds or an RFC 3339 string. Values that are
// neither leave the time zero so one bad row never fails a page.
type timestamp struct {
	time.Time
}

func (t *timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil
		}
		t.Time = parsed
		return nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	t.Time = time.Unix(int64(secs), 0).UTC()
	return nil
}
