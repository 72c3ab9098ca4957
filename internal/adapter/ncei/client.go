// Package ncei retrieves monthly ASOS one-minute files from the NCEI archive.
package ncei

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/asos-pressure-etl/internal/domain"
)

// DefaultBaseURL serves the page-2 one-minute product over HTTPS.
const DefaultBaseURL = "https://www.ncei.noaa.gov/pub/data/asos-onemin"

// maxFileSize bounds a monthly file; real ones are a few megabytes.
const maxFileSize = 64 << 20

// Client implements pipeline.Fetcher against the NCEI file tree.
type Client struct {
	baseURL    string
	prefix     string
	station    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for one station. prefix is the dataset number,
// "6406" for page-2 data.
func NewClient(baseURL, prefix, station string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		prefix:  prefix,
		station: station,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// URL returns the location of a month's file, e.g.
// .../6406-2017/64060KMLB201701.dat.
func (c *Client) URL(ym domain.YearMonth) string {
	return fmt.Sprintf("%s/%s-%04d/%s0%s%s.dat", c.baseURL, c.prefix, ym.Year, c.prefix, c.station, ym.Key())
}

// Fetch downloads a month's raw file. Transport and HTTP failures wrap
// domain.ErrDataUnavailable: the month may not be published yet. A canceled
// ctx is returned as is.
func (c *Client) Fetch(ctx context.Context, ym domain.YearMonth) ([]byte, error) {
	u := c.URL(ym)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("fetch %s: %w", ym, ctxErr)
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrDataUnavailable, ym, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s: status %d", domain.ErrDataUnavailable, ym, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFileSize+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("fetch %s: %w", ym, ctxErr)
		}
		return nil, fmt.Errorf("%w: %s: read body: %w", domain.ErrDataUnavailable, ym, err)
	}
	if len(body) > maxFileSize {
		return nil, fmt.Errorf("%s: file exceeds %d bytes", ym, maxFileSize)
	}

	c.logger.Debug("source file fetched",
		"url", u,
		"bytes", len(body),
		"duration", time.Since(start),
	)
	return body, nil
}
