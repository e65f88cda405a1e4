// Package metrics reads public follower metrics from the X API v2.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	Followers = "followers"
	Following = "following"

	DefaultBaseURL = "https://api.twitter.com"
)

var ErrAPI = errors.New("metrics api error")

type Client struct {
	baseURL  string
	http     *http.Client
	testMode bool

	mu  sync.Mutex
	rnd *rand.Rand
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTestMode makes Fetch return random counts without calling the API.
func WithTestMode(on bool) Option {
	return func(c *Client) { c.testMode = on }
}

func WithRand(r *rand.Rand) Option {
	return func(c *Client) { c.rnd = r }
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		rnd: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TestMode reports whether the client fabricates counts.
func (c *Client) TestMode() bool { return c.testMode }

type userResponse struct {
	Data *struct {
		Username      string `json:"username"`
		PublicMetrics struct {
			FollowersCount int64 `json:"followers_count"`
			FollowingCount int64 `json:"following_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Errors []apiError `json:"errors"`
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Fetch returns the followers and following counts of handle, keyed by
// metric name.
func (c *Client) Fetch(ctx context.Context, handle, key string) (map[string]int64, error) {
	if c.testMode {
		c.mu.Lock()
		defer c.mu.Unlock()
		return map[string]int64{
			Followers: c.rnd.Int64N(10000),
			Following: c.rnd.Int64N(1000),
		}, nil
	}

	u := c.baseURL + "/2/users/by/username/" + url.PathEscape(handle) + "?user.fields=public_metrics"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", handle, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response for %s: %w", handle, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: status %d: %s", ErrAPI, handle, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var ur userResponse
	if err := json.Unmarshal(body, &ur); err != nil {
		return nil, fmt.Errorf("decode response for %s: %w", handle, err)
	}
	if len(ur.Errors) > 0 {
		msgs := make([]string, len(ur.Errors))
		for i, e := range ur.Errors {
			msgs[i] = strings.TrimSpace(e.Title + ": " + e.Detail)
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrAPI, handle, strings.Join(msgs, "; "))
	}
	if ur.Data == nil {
		return nil, fmt.Errorf("%w: %s: response without data", ErrAPI, handle)
	}

	return map[string]int64{
		Followers: ur.Data.PublicMetrics.FollowersCount,
		Following: ur.Data.PublicMetrics.FollowingCount,
	}, nil
}

// KeyFor picks the API key for the i-th account of a manager.
func KeyFor(keys []string, i int) string {
	if len(keys) == 0 {
		return ""
	}
	return keys[i%len(keys)]
}
