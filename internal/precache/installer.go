// Implements the install step: bulk-fetch a fixed asset list from the
// origin and populate the cache store, all or nothing.
package precache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/immowatch/offcache/internal/cache"
	"github.com/immowatch/offcache/internal/cache/httpcache"
	"github.com/immowatch/offcache/internal/config"
)

// Installer precaches a configured asset list into a store
type Installer struct {
	origin  *url.URL
	assets  []string
	store   cache.Store
	client  *http.Client
	retries int
}

// fetched holds one asset's response until the whole batch commits
type fetched struct {
	req  *http.Request
	resp *http.Response
}

// New creates an installer from config. The config must pass ValidateForInstall.
func New(cfg *config.Config, store cache.Store) (*Installer, error) {
	origin, err := url.Parse(cfg.Origin.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid origin base URL: %w", err)
	}

	timeout, err := cfg.GetOriginTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid origin timeout: %w", err)
	}

	return &Installer{
		origin:  origin,
		assets:  cfg.Precache.Assets,
		store:   store,
		client:  &http.Client{Timeout: timeout},
		retries: cfg.Origin.Retries,
	}, nil
}

// Run fetches every asset and, only if all of them resolved with a 2xx
// status, writes them into the store. On any failure the store is left
// untouched so a retried install starts from the previous state.
func (i *Installer) Run(ctx context.Context) error {
	// Opening the store is idempotent and happens even if population fails
	if err := i.store.Init(); err != nil {
		return fmt.Errorf("failed to open cache store: %w", err)
	}

	results := make([]fetched, len(i.assets))

	g, gctx := errgroup.WithContext(ctx)
	for idx, asset := range i.assets {
		idx, asset := idx, asset
		g.Go(func() error {
			result, err := i.fetchAsset(gctx, asset)
			if err != nil {
				return fmt.Errorf("precache %s: %w", asset, err)
			}
			results[idx] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	// Commit: every asset resolved, write them all
	httpCache := httpcache.New(i.store)
	for _, result := range results {
		if err := httpCache.SetReq(result.req, result.resp); err != nil {
			return fmt.Errorf("failed to store %s: %w", result.req.URL, err)
		}
	}

	logrus.Infof("Precached %d assets from %s", len(results), i.origin)
	return nil
}

// fetchAsset resolves an asset path against the origin and fetches it,
// retrying transport errors with exponential backoff.
func (i *Installer) fetchAsset(ctx context.Context, asset string) (fetched, error) {
	ref, err := url.Parse(asset)
	if err != nil {
		return fetched{}, fmt.Errorf("invalid asset path: %w", err)
	}
	target := i.origin.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fetched{}, fmt.Errorf("failed to create request: %w", err)
	}

	var resp *http.Response
	operation := func() error {
		r, err := i.client.Do(req)
		if err != nil {
			logrus.Debugf("Fetch of %s failed, may retry: %v", target, err)
			return err
		}

		// An error status is a hard install failure, not worth retrying
		if r.StatusCode < 200 || r.StatusCode > 299 {
			_ = r.Body.Close()
			return backoff.Permanent(fmt.Errorf("unexpected status %s", r.Status))
		}

		resp = r
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), uint64(i.retries-1)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return fetched{}, err
	}

	// Buffer the body so the response can be serialized at commit time
	body, err := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if err != nil {
		return fetched{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if closeErr != nil {
		return fetched{}, fmt.Errorf("failed to close response body: %w", closeErr)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))

	logrus.Debugf("Fetched %s (%d bytes)", target, len(body))
	return fetched{req: req, resp: resp}, nil
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 0 // attempt count is the only limit
	return b
}
