package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/oauth2"
)

const BaseURL = "https://www.strava.com/api/v3"

// MaxPerPage is the largest page Strava serves
const MaxPerPage = 100

// StreamKeys are the streams fetched for every activity
const StreamKeys = "time,distance,latlng,velocity_smooth"

// APIError is returned for any non-2xx response
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d on %s: Response: %s", e.StatusCode, e.URL, e.Body)
}

// Client is a Strava API client
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *RateLimiter
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another API root
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithRateLimiter replaces the default rate limiter
func WithRateLimiter(r *RateLimiter) Option {
	return func(c *Client) { c.rateLimiter = r }
}

// NewClient creates a new Strava API client. ctx is used for token refreshes.
func NewClient(ctx context.Context, tokenSource oauth2.TokenSource, opts ...Option) *Client {
	c := &Client{
		httpClient:  oauth2.NewClient(ctx, tokenSource),
		baseURL:     BaseURL,
		rateLimiter: NewRateLimiter(DefaultMinInterval),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListActivitiesRaw fetches one page of the athlete's activities that
// started after the given unix time. Each element is the unmodified JSON
// object returned by Strava.
func (c *Client) ListActivitiesRaw(ctx context.Context, after int64, page, perPage int) ([]json.RawMessage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("after", strconv.FormatInt(after, 10))

	body, err := c.get(ctx, "/athlete/activities", params)
	if err != nil {
		return nil, err
	}

	var activities []json.RawMessage
	if err := json.Unmarshal(body, &activities); err != nil {
		return nil, fmt.Errorf("decoding activities: %w", err)
	}
	return activities, nil
}

// GetStreamsRaw fetches the streams of an activity keyed by type
func (c *Client) GetStreamsRaw(ctx context.Context, activityID int64) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("keys", StreamKeys)
	params.Set("key_by_type", "true")

	body, err := c.get(ctx, fmt.Sprintf("/activities/%d/streams", activityID), params)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("decoding streams for %d: invalid json", activityID)
	}
	return json.RawMessage(body), nil
}

// RateLimitStatus returns the current rate limit status
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Update rate limiter from response headers
	c.rateLimiter.UpdateFromHeaders(resp.Header)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", reqURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, URL: reqURL, Body: string(body)}
	}
	return body, nil
}
