// Package backend is the client of the RDR REST backend.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"rdr-dashboard/config"
	"rdr-dashboard/model"
)

const maxBodyBytes = 32 << 20

// ListKinds are the path prefixes that list RDRs for one identifier
var ListKinds = []string{"rdrsets", "machines", "rcms"}

// ResponseCache stores successful response bodies keyed by request URL
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, body []byte)
}

// Client fetches and decodes backend responses
type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
	cache   ResponseCache
	flights singleflight.Group // concurrent requests for one URL share a round trip
}

// NewClient creates a client for cfg.URL. cache may be nil.
func NewClient(cfg config.BackendConfig, cache ResponseCache) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", cfg.URL)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	log.Info().
		Str("url", base.String()).
		Dur("timeout", timeout).
		Float64("requests_per_second", cfg.RequestsPerSecond).
		Bool("cached", cache != nil).
		Msg("Backend client initialized")

	return &Client{
		base:    base,
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
		cache:   cache,
	}, nil
}

// URL returns the request URL of path (already escaped) and params
func (c *Client) URL(path string, params url.Values) string {
	u := c.base.JoinPath(path)
	u.RawQuery = params.Encode()
	return u.String()
}

// response is a successful backend answer before decoding
type response struct {
	status int
	body   []byte
}

// get fetches endpoint and decodes its JSON body into out. Successful
// bodies go through the response cache. Concurrent calls for the same
// endpoint share one request; each caller still honors its own ctx.
func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	if c.cache != nil {
		if body, ok := c.cache.Get(ctx, endpoint); ok {
			if err := json.Unmarshal(body, out); err == nil {
				log.Debug().Str("url", endpoint).Msg("Backend cache hit")
				return nil
			}
		}
	}

	ch := c.flights.DoChan(endpoint, func() (interface{}, error) {
		resp, err := c.request(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		if c.cache != nil && json.Valid(resp.body) {
			c.cache.Set(ctx, endpoint, resp.body)
		}
		return resp, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		if res.Shared {
			log.Debug().Str("url", endpoint).Msg("Shared in-flight backend request")
		}
		return decode(endpoint, res.Val.(response), out)
	case <-ctx.Done():
		return &TransportError{Err: ctx.Err()}
	}
}

// request performs the GET and returns the body of a 2xx answer.
func (c *Client) request(ctx context.Context, endpoint string) (response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return response{}, &TransportError{Err: fmt.Errorf("rate limit: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return response{}, &TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("url", endpoint).Msg("Backend request failed")
		return response{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return response{}, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	log.Debug().
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return response{}, newStatusError(resp.StatusCode, body)
	}
	return response{status: resp.StatusCode, body: body}, nil
}

func decode(endpoint string, resp response, out interface{}) error {
	if err := json.Unmarshal(resp.body, out); err != nil {
		log.Warn().Err(err).Str("url", endpoint).Msg("Malformed backend response")
		return &TransportError{
			StatusCode: resp.status,
			Body:       string(resp.body),
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}

// Ping requests the endpoint index, bypassing the response cache
func (c *Client) Ping(ctx context.Context) error {
	endpoint := c.URL("/", nil)
	resp, err := c.request(ctx, endpoint)
	if err != nil {
		return err
	}
	var root model.Root
	return decode(endpoint, resp, &root)
}

// Root fetches the endpoint index
func (c *Client) Root(ctx context.Context) (model.Root, error) {
	var root model.Root
	err := c.get(ctx, c.URL("/", nil), &root)
	return root, err
}

// Sets lists RDR sets
func (c *Client) Sets(ctx context.Context, params url.Values) (model.SetList, error) {
	var sets model.SetList
	err := c.get(ctx, c.URL("sets", params), &sets)
	return sets, err
}

// Aliases lists machine aliases
func (c *Client) Aliases(ctx context.Context, params url.Values) (model.AliasList, error) {
	var aliases model.AliasList
	err := c.get(ctx, c.URL("aliases", params), &aliases)
	return aliases, err
}

// IsListKind reports whether kind is one of ListKinds
func IsListKind(kind string) bool {
	for _, k := range ListKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// RDRs lists the RDRs of one set, machine or RCM together with their
// aggregates.
func (c *Client) RDRs(ctx context.Context, kind, param string, params url.Values) (model.RDRList, error) {
	var list model.RDRList
	if !IsListKind(kind) {
		return list, fmt.Errorf("unknown list kind %q", kind)
	}
	err := c.get(ctx, c.URL(kind+"/"+url.PathEscape(param), params), &list)
	return list, err
}

// RDR fetches the details of one RDR
func (c *Client) RDR(ctx context.Context, param string) (model.RDRDetails, error) {
	var details model.RDRDetails
	err := c.get(ctx, c.URL("rdrs/"+url.PathEscape(param), nil), &details)
	return details, err
}
