package main

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/denosys/InferenceMAX/internal/canon"
	"github.com/denosys/InferenceMAX/internal/config"
	"github.com/denosys/InferenceMAX/internal/fetcher"
	"github.com/denosys/InferenceMAX/internal/normalize"
	"github.com/denosys/InferenceMAX/internal/payload"
	"github.com/denosys/InferenceMAX/internal/pipeline"
	"github.com/denosys/InferenceMAX/internal/store"
)

// initNormalizer builds the normalizer and metadata table from the
// configured metadata file, or the built-in tables when none is set.
func initNormalizer(c *config.Config) (*normalize.Normalizer, *canon.Table, error) {
	cz, table, err := canon.Load(c.Metadata.Path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "load metadata")
	}
	n := normalize.New(normalize.Options{
		DefaultPrecision: c.Build.DefaultPrecision,
		Canonicalizer:    cz,
	})
	return n, table, nil
}

// initStore opens the run ledger. It returns nil when no driver is set.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	st, err := store.Open(ctx, c.Store.Driver, c.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if st == nil {
		return nil, nil
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initFetcher picks the deferred dataset source: HTTP when a base URL is
// configured, otherwise the data directory of the build output.
func initFetcher(c *config.Config) (payload.Fetcher, error) {
	if c.Resolve.BaseURL == "" {
		return fetcher.NewDirFetcher(filepath.Join(c.Build.OutDir, pipeline.DataDir)), nil
	}
	f, err := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		BaseURL:    c.Resolve.BaseURL,
		Timeout:    c.Resolve.Timeout(),
		MaxRetries: c.Resolve.MaxRetries,
		RatePerSec: c.Resolve.RatePerSec,
	})
	if err != nil {
		return nil, eris.Wrap(err, "init http fetcher")
	}
	return f, nil
}

// initResolver loads the payload written by the last build and a resolver
// for its deferred entries.
func initResolver(c *config.Config, payloadPath string) (*payload.Payload, *payload.Resolver, error) {
	if payloadPath == "" {
		payloadPath = filepath.Join(c.Build.OutDir, pipeline.PayloadFile)
	}
	p, err := payload.ReadFile(payloadPath)
	if err != nil {
		return nil, nil, err
	}
	n, _, err := initNormalizer(c)
	if err != nil {
		return nil, nil, err
	}
	f, err := initFetcher(c)
	if err != nil {
		return nil, nil, err
	}
	r := payload.NewResolver(f, n, payload.ResolverOptions{Timeout: c.Resolve.Timeout()})
	return p, r, nil
}
