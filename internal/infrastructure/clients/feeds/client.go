package feeds

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/zatekoja/facilitycollector/pkg/retry"
)

// StatusError is returned for non-2xx responses
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("feed %s returned status %d", e.URL, e.Code)
}

// Client fetches the upstream JSON and XML feeds
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      retry.Config
	logger     zerolog.Logger
}

// NewClient creates a feed client. Relative paths are resolved against baseURL.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retry:  retry.FeedConfig(),
		logger: logger,
	}
}

// WithRetry replaces the retry policy
func (c *Client) WithRetry(cfg retry.Config) *Client {
	c.retry = cfg
	return c
}

// GetJSON decodes the JSON document at path into out
func (c *Client) GetJSON(ctx context.Context, path string, out interface{}) error {
	return c.get(ctx, c.resolve(path), "application/json", func(r io.Reader) error {
		return json.NewDecoder(r).Decode(out)
	})
}

// GetXML decodes the XML document at path into out
func (c *Client) GetXML(ctx context.Context, path string, out interface{}) error {
	return c.get(ctx, c.resolve(path), "application/xml", func(r io.Reader) error {
		return xml.NewDecoder(r).Decode(out)
	})
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) get(ctx context.Context, endpoint, accept string, decode func(io.Reader) error) error {
	return retry.Do(ctx, c.retry, endpoint, func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return retry.Stop(err)
		}
		httpReq.Header.Set("Accept", accept)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, resp.Body)
			statusErr := &StatusError{URL: endpoint, Code: resp.StatusCode}
			// Client errors other than throttling will not heal on retry.
			if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return retry.Stop(statusErr)
			}
			return statusErr
		}

		if err := decode(resp.Body); err != nil {
			return retry.Stop(fmt.Errorf("decode %s: %w", endpoint, err))
		}
		return nil
	}, func(attempt int, err error, nextDelay time.Duration) {
		c.logger.Warn().Err(err).Str("url", endpoint).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("feed request failed")
	})
}
