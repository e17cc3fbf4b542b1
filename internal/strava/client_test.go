package strava

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok"})
	return NewClient(context.Background(), ts, WithBaseURL(srv.URL), WithRateLimiter(NewRateLimiter(0)))
}

func TestListActivitiesRawSendsPaging(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/athlete/activities", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		q := r.URL.Query()
		require.Equal(t, "3", q.Get("page"))
		require.Equal(t, "100", q.Get("per_page"))
		require.Equal(t, "1717228800", q.Get("after"))
		w.Write([]byte(`[{"id": 1, "name": "a"}, {"id": 2, "extra": {"kept": true}}]`))
	})

	raw, err := c.ListActivitiesRaw(context.Background(), 1717228800, 3, MaxPerPage)
	require.NoError(t, err)
	require.Len(t, raw, 2)
	require.JSONEq(t, `{"id": 2, "extra": {"kept": true}}`, string(raw[1]))
}

func TestGetStreamsRawRequestsKeys(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/activities/42/streams", r.URL.Path)
		require.Equal(t, StreamKeys, r.URL.Query().Get("keys"))
		require.Equal(t, "true", r.URL.Query().Get("key_by_type"))
		w.Write([]byte(`{"time": {"data": [0, 1]}}`))
	})

	raw, err := c.GetStreamsRaw(context.Background(), 42)
	require.NoError(t, err)

	var s Streams
	require.NoError(t, json.Unmarshal(raw, &s))
	require.Equal(t, 2, s.Len())
}

func TestNon2xxReturnsAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Authorization Error"}`))
	})

	_, err := c.ListActivitiesRaw(context.Background(), 0, 1, MaxPerPage)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Contains(t, apiErr.URL, "/athlete/activities?")
	require.Equal(t, `{"message":"Authorization Error"}`, apiErr.Body)
	require.Contains(t, err.Error(), "Authorization Error")
	require.Contains(t, err.Error(), "401")
}

func TestActivityKindPrefersSportType(t *testing.T) {
	a := Activity{Type: "Run", SportType: "TrailRun"}
	require.Equal(t, "TrailRun", a.Kind())
	a.SportType = ""
	require.Equal(t, "Run", a.Kind())
}

func TestRateLimiterUpdatesFromHeaders(t *testing.T) {
	r := NewRateLimiter(0)
	h := http.Header{}
	h.Set("X-RateLimit-Limit", "200,2000")
	h.Set("X-RateLimit-Usage", "34,512")
	r.UpdateFromHeaders(h)

	short, daily := r.Status()
	require.Equal(t, 166, short)
	require.Equal(t, 1488, daily)
}

func TestRateLimiterWaitHonorsContext(t *testing.T) {
	r := NewRateLimiter(time.Hour)
	require.NoError(t, r.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)

	// the limiter stays usable after a cancelled wait
	shortUsage, _ := r.Usage()
	require.Equal(t, 1, shortUsage)
}

func TestRateLimiterWaitsForExhaustedWindow(t *testing.T) {
	r := NewRateLimiter(0)
	h := http.Header{}
	h.Set("X-RateLimit-Limit", "5,1000")
	h.Set("X-RateLimit-Usage", "5,40")
	r.UpdateFromHeaders(h)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)

	// an ended window starts over
	r.short.resetAt = time.Now().Add(-time.Second)
	require.NoError(t, r.Wait(context.Background()))
	short, daily := r.Usage()
	require.Equal(t, 1, short)
	require.Equal(t, 41, daily)
}

func TestRateLimiterIgnoresMalformedHeaders(t *testing.T) {
	r := NewRateLimiter(0)
	h := http.Header{}
	h.Set("X-RateLimit-Limit", "lots")
	h.Set("X-RateLimit-Usage", "3,x")
	r.UpdateFromHeaders(h)

	short, daily := r.Status()
	require.Equal(t, 100, short)
	require.Equal(t, 1000, daily)
}
