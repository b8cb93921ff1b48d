// Package httpfetch is a plain HTTP implementation of the core Fetcher port.
// Production deployments that need browser automation or request signing swap
// in their own Fetcher; this one covers JSON endpoints reachable with a GET.
package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crawlspace/harvester/internal/core"
	"github.com/crawlspace/harvester/internal/domain/model"
)

const (
	defaultTimeout = 30 * time.Second
	// bodyExcerptLimit bounds how much of an error body the classifier sees.
	bodyExcerptLimit = 2048
	// bodyLimit bounds how much of a success payload is retained.
	bodyLimit = 4 << 20
)

// Options configures a Fetcher.
type Options struct {
	Client    *http.Client // Optional: defaults to a 30s-timeout client
	UserAgent string       // Optional
}

// Fetcher fetches targets over HTTP.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// New constructs a Fetcher.
func New(opts Options) *Fetcher {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Fetcher{client: client, userAgent: opts.UserAgent}
}

// Fetch performs a GET against the target address. Transport failures return
// an error; any HTTP response, success or not, comes back as a FetchResult.
func (f *Fetcher) Fetch(ctx context.Context, target model.Target) (*core.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.Address, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target.Address, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	result := &core.FetchResult{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
	}

	if result.OK() {
		data, readErr := io.ReadAll(io.LimitReader(resp.Body, bodyLimit))
		if readErr != nil {
			return nil, fmt.Errorf("read body: %w", readErr)
		}
		result.Data = data
		return result, nil
	}

	excerpt, readErr := io.ReadAll(io.LimitReader(resp.Body, bodyExcerptLimit))
	if readErr == nil {
		result.BodyExcerpt = string(excerpt)
	}
	return result, nil
}

func flattenHeaders(h http.Header) map[string]string {
	flat := make(map[string]string, len(h))
	for name := range h {
		flat[name] = h.Get(name)
	}
	return flat
}
