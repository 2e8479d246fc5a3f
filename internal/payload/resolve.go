package payload

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/denosys/InferenceMAX/internal/model"
	"github.com/denosys/InferenceMAX/internal/normalize"
)

// ErrFetch marks a deferred dataset that could not be fetched.
var ErrFetch = eris.New("payload: fetch failure")

// DefaultResolveTimeout bounds one resolution.
const DefaultResolveTimeout = 30 * time.Second

// Fetcher returns the raw bytes of a dataset file.
type Fetcher interface {
	Fetch(ctx context.Context, filename string) ([]byte, error)
}

// State is the resolution state of a deferred entry.
type State int

const (
	StateDeferred State = iota
	StateResolving
	StateMaterialized
)

func (s State) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateMaterialized:
		return "materialized"
	default:
		return "deferred"
	}
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	Timeout time.Duration
}

type slot struct {
	state   State
	records []model.Record
}

// Resolver materializes deferred entries. Each dataset is fetched at most
// once at a time; concurrent callers share the in-flight fetch, and a
// successful result is memoized.
type Resolver struct {
	fetcher Fetcher
	norm    *normalize.Normalizer
	timeout time.Duration

	group singleflight.Group

	mu    sync.Mutex
	slots map[string]*slot
}

// NewResolver returns a Resolver. A zero timeout uses DefaultResolveTimeout.
func NewResolver(f Fetcher, n *normalize.Normalizer, opts ResolverOptions) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultResolveTimeout
	}
	return &Resolver{
		fetcher: f,
		norm:    n,
		timeout: opts.Timeout,
		slots:   make(map[string]*slot),
	}
}

// State returns the resolution state of filename.
func (r *Resolver) State(filename string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.slots[filename]; ok {
		return s.state
	}
	return StateDeferred
}

// Resolve returns the records of e. Eager entries return their embedded
// records. Deferred entries are fetched and normalized once; on failure the
// entry stays deferred and an empty slice is returned. The fetch runs to
// completion under its own timeout even if ctx is canceled first.
func (r *Resolver) Resolve(ctx context.Context, e *Entry) []model.Record {
	if e.Tier == model.TierEager {
		return e.Records
	}
	if recs, ok := r.materialized(e.Filename); ok {
		return recs
	}

	ch := r.group.DoChan(e.Filename, func() (any, error) {
		return r.load(e.Filename)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return []model.Record{}
		}
		return res.Val.([]model.Record)
	case <-ctx.Done():
		return []model.Record{}
	}
}

func (r *Resolver) materialized(filename string) ([]model.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[filename]
	if !ok || s.state != StateMaterialized {
		return nil, false
	}
	return s.records, true
}

func (r *Resolver) setState(filename string, st State, recs []model.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[filename]
	if !ok {
		s = &slot{}
		r.slots[filename] = s
	}
	s.state = st
	s.records = recs
}

func (r *Resolver) load(filename string) ([]model.Record, error) {
	// A caller may arrive just after a previous flight finished.
	if recs, ok := r.materialized(filename); ok {
		return recs, nil
	}
	r.setState(filename, StateResolving, nil)

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	recs, err := r.fetch(ctx, filename)
	if err != nil {
		r.setState(filename, StateDeferred, nil)
		zap.L().Warn("payload: resolve failed, entry stays deferred",
			zap.String("file", filename),
			zap.Error(err),
		)
		return nil, err
	}
	r.setState(filename, StateMaterialized, recs)
	zap.L().Debug("payload: resolved",
		zap.String("file", filename),
		zap.Int("records", len(recs)),
	)
	return recs, nil
}

func (r *Resolver) fetch(ctx context.Context, filename string) ([]model.Record, error) {
	b, err := r.fetcher.Fetch(ctx, filename)
	if err != nil {
		return nil, eris.Wrapf(ErrFetch, "%s: %v", filename, err)
	}
	if ctx.Err() != nil {
		return nil, eris.Wrapf(ErrFetch, "%s: %v", filename, ctx.Err())
	}
	raw, err := normalize.Decode(b)
	if err != nil {
		return nil, eris.Wrapf(err, "payload: %s", filename)
	}
	recs := r.norm.Normalize(raw)
	if recs == nil {
		recs = []model.Record{}
	}
	return recs, nil
}
