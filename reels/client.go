// Package reels fetches the short-video media list from its static remote
// JSON resource. This is the only remote call the application makes; feed
// data itself never leaves the local store.
package reels

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bluele/gcache"
	"verdant.io/feed/common/logging"
	fe "verdant.io/feed/errors"
	md "verdant.io/feed/models"
)

type Config struct {
	URL string
	RT  http.RoundTripper
	// fields below are optional
	RequestTimeout time.Duration
	// CacheTTL > 0 keeps the fetched list warm so repeated view mounts within
	// the TTL do not refetch
	CacheTTL  time.Duration
	CacheSize int
}

// Client fetches the reel media list. There is no automatic retry: a failed
// fetch is surfaced to the caller, which renders a retry-prompting error view.
type Client struct {
	c     *http.Client
	url   string
	cache gcache.Cache
	ttl   time.Duration
}

const cacheKeyReels = "reels"

func NewClient(cfg *Config) *Client {
	size := cfg.CacheSize
	if size <= 0 {
		size = 1
	}
	return &Client{
		c: &http.Client{
			Transport: cfg.RT,
			Timeout:   cfg.RequestTimeout,
		},
		url:   cfg.URL,
		cache: gcache.New(size).LRU().Build(),
		ttl:   cfg.CacheTTL,
	}
}

// Fetch returns the reel list, consulting the TTL cache first. Cancelling ctx
// abandons the request; the caller sees a DependencyFailure and nothing else
// happens.
func (c *Client) Fetch(ctx context.Context) ([]md.Reel, *fe.FeedErr) {
	clog := logging.WithFuncName()
	if c.ttl > 0 {
		if v, err := c.cache.Get(cacheKeyReels); err == nil {
			if reels, ok := v.([]md.Reel); ok {
				return reels, nil
			}
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fe.ErrServiceFailure("error creating request to reel media service").WithCause(err)
	}
	resp, err := c.c.Do(req)
	if err != nil {
		clog.WithError(err).Error("error getting response from reel media service")
		return nil, fe.ErrDependencyFailure("error getting response from reel media service").WithCause(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		clog.WithField("statusCode", resp.StatusCode).Error("reel media service returned error status")
		return nil, fe.ErrDependencyFailure(fmt.Sprintf("reel media service returned status %d", resp.StatusCode))
	}
	reels := []md.Reel{}
	if err := json.NewDecoder(resp.Body).Decode(&reels); err != nil {
		clog.WithError(err).Error("error unmarshalling reel media list")
		return nil, fe.ErrDependencyFailure("error unmarshalling reel media list").WithCause(err)
	}
	if c.ttl > 0 {
		if err := c.cache.SetWithExpire(cacheKeyReels, reels, c.ttl); err != nil {
			clog.WithError(err).Warn("error caching reel media list")
		}
	}
	return reels, nil
}
