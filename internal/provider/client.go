package provider

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yourorg/f1etl/pkg/types"
)

// ResponseCache keeps raw response bodies keyed by request URL.
type ResponseCache interface {
	GetResponse(key string) (*types.CachedResponse, error)
	SaveResponse(key string, body []byte) error
}

// Client is a JSON client for the OpenF1 REST API.
type Client struct {
	BaseURL    string
	MaxRetries int
	HTTPClient *http.Client
	Cache      ResponseCache
	Logger     *slog.Logger
}

// maxRetryAfter caps the wait a 429 response can ask for.
const maxRetryAfter = time.Minute

var sleepFn = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}

// Get fetches endpoint with query and decodes the JSON body into out.
// Cached bodies are served without a request.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	u := strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	if c.Cache != nil {
		cached, err := c.Cache.GetResponse(u)
		switch {
		case err == nil:
			c.logger().Debug("cache hit", "url", u)
			if err := json.Unmarshal(cached.Body, out); err != nil {
				return fmt.Errorf("decode %s (cached): %w", endpoint, err)
			}
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			c.logger().Debug("cache read failed", "url", u, "err", err)
		}
	}

	data, err := c.fetch(ctx, u)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	// empty results are not cached so data published later is picked up
	if c.Cache != nil && strings.TrimSpace(string(data)) != "[]" {
		if err := c.Cache.SaveResponse(u, data); err != nil {
			c.logger().Warn("cache write failed", "url", u, "err", err)
		}
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	c.logger().Debug("provider request", "url", u)

	var lastErr error
	maxRetries := c.MaxRetries
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxRetries && ctx.Err() == nil {
				if err := sleepFn(ctx, backoff(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, err
		}
		data, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			if attempt < maxRetries {
				if err := sleepFn(ctx, backoff(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, err
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("provider error status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
			if attempt < maxRetries {
				wait := backoff(attempt)
				if resp.StatusCode == http.StatusTooManyRequests {
					if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
						if secs, err := strconv.Atoi(ra); err == nil {
							wait = min(time.Duration(secs)*time.Second, maxRetryAfter)
						}
					}
				}
				if err := sleepFn(ctx, wait); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("provider error status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return data, nil
	}
	if lastErr == nil {
		lastErr = errors.New("provider request failed")
	}
	return nil, lastErr
}

func backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return time.Second << attempt
}
