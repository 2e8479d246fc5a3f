// Package pipeline runs the batch build: collect inputs, normalize, infer
// and pool schemas, tier the payload, and write the output artifacts.
package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/denosys/InferenceMAX/internal/canon"
	"github.com/denosys/InferenceMAX/internal/model"
	"github.com/denosys/InferenceMAX/internal/normalize"
	"github.com/denosys/InferenceMAX/internal/payload"
	"github.com/denosys/InferenceMAX/internal/report"
	"github.com/denosys/InferenceMAX/internal/schema"
	"github.com/denosys/InferenceMAX/internal/source"
	"github.com/denosys/InferenceMAX/internal/store"
)

// Options configures a Builder.
type Options struct {
	InputDir   string
	OutDir     string
	Threshold  int
	ExampleCap int
	Workers    int

	Normalizer *normalize.Normalizer
	Table      *canon.Table
	// Store is optional; a nil Store records nothing.
	Store store.Store

	Now func() time.Time
}

// Builder runs builds. Each Build call starts from a fresh schema pool.
type Builder struct {
	opts Options
}

// Result is everything one build produced.
type Result struct {
	Run         *model.Run
	Datasets    []*model.Dataset
	Pool        schema.PoolFile
	Payload     *payload.Payload
	Diagnostics *report.Diagnostics
	// Written lists the artifacts saved, relative to OutDir.
	Written []string
	// WriteErrors counts artifacts that could not be saved.
	WriteErrors int
}

// New returns a Builder, filling unset options with defaults.
func New(opts Options) *Builder {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.ExampleCap <= 0 {
		opts.ExampleCap = schema.DefaultExampleCap
	}
	if opts.Normalizer == nil {
		opts.Normalizer = normalize.New(normalize.Options{})
	}
	if opts.Table == nil {
		opts.Table = canon.NewTable(canon.DefaultMetadata())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Builder{opts: opts}
}

type decoded struct {
	raw any
	err error
}

// Build runs one batch build. It fails only when the input directory is
// unreadable or no artifact could be written; per-file problems are
// logged and reported in the diagnostics.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	started := b.opts.Now().UTC()
	log := zap.L().With(zap.String("input_dir", b.opts.InputDir), zap.String("out_dir", b.opts.OutDir))
	log.Info("pipeline: starting build")

	var inputs []source.Input
	inv := &source.Inventory{}
	if _, err := os.Stat(b.opts.InputDir); errors.Is(err, fs.ErrNotExist) {
		log.Warn("pipeline: input directory missing, building empty output")
	} else {
		var err error
		inputs, inv, err = source.Collect(b.opts.InputDir)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: collect inputs")
		}
	}

	results, err := b.decodeAll(ctx, inputs)
	if err != nil {
		return nil, err
	}

	diag := &report.Diagnostics{
		GeneratedAt: started,
		InputDir:    b.opts.InputDir,
		Archives:    inv.Archives,
		BadArchives: inv.BadArchives,
		LooseFiles:  inv.LooseFiles,
	}

	// Pool ids are minted in sorted file order, so this loop stays sequential.
	pool := schema.NewPool()
	var datasets []*model.Dataset
	var kept []source.Input
	for i, in := range inputs {
		if results[i].err != nil {
			log.Warn("pipeline: skipping unparseable file", zap.String("file", in.Name), zap.Error(results[i].err))
			diag.Failures = append(diag.Failures, report.Failure{
				Filename: in.Name,
				Origin:   in.Origin,
				Err:      results[i].err.Error(),
			})
			continue
		}
		ds := b.dataset(in.Name, results[i].raw, pool)
		datasets = append(datasets, ds)
		kept = append(kept, in)

		if diag.Sample == nil && len(ds.Records) > 0 {
			diag.Sample = ds.Records[0]
		}
	}

	pl := payload.Build(datasets, b.opts.Threshold, b.opts.Normalizer.Canonicalizer(), started)
	run := &model.Run{
		StartedAt: started,
		Inputs:    len(inputs),
		Skipped:   len(diag.Failures),
	}
	for i, ds := range datasets {
		tier := pl.Entries[i].Tier
		diag.Datasets = append(diag.Datasets, report.DatasetDiag{
			Filename: ds.Filename,
			Origin:   kept[i].Origin,
			Records:  ds.RecordCount(),
			SchemaID: ds.SchemaID,
			Tier:     tier,
			Missing:  report.MissingFields(ds.Records, model.ExpectedFields),
		})
		run.Datasets = append(run.Datasets, model.DatasetSummary{
			Filename:    ds.Filename,
			SchemaID:    ds.SchemaID,
			RecordCount: ds.RecordCount(),
			Tier:        tier,
		})
	}

	res := &Result{
		Run:         run,
		Datasets:    datasets,
		Pool:        pool.Snapshot(),
		Payload:     pl,
		Diagnostics: diag,
	}

	w := &writer{outDir: b.opts.OutDir}
	w.writeAll(res, kept)
	res.Written, res.WriteErrors = w.written, w.failed

	run.FinishedAt = b.opts.Now().UTC()
	b.recordRun(ctx, run)

	log.Info("pipeline: build finished",
		zap.Int("inputs", len(inputs)),
		zap.Int("datasets", len(datasets)),
		zap.Int("schemas", len(res.Pool.Pool)),
		zap.Int("records", run.Records()),
		zap.Int("artifacts", len(res.Written)),
		zap.Int("write_errors", res.WriteErrors),
	)
	if len(res.Written) == 0 {
		return res, eris.Errorf("pipeline: no artifact could be written to %s", b.opts.OutDir)
	}
	return res, nil
}

// decodeAll parses inputs in parallel. Results are index-aligned with
// inputs; a parse failure is kept per input and never cancels the others.
func (b *Builder) decodeAll(ctx context.Context, inputs []source.Input) ([]decoded, error) {
	results := make([]decoded, len(inputs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for i, in := range inputs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			raw, err := normalize.Decode(in.Data)
			results[i] = decoded{raw: raw, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: decode inputs")
	}
	return results, nil
}

func (b *Builder) dataset(name string, raw any, pool *schema.Pool) *model.Dataset {
	records := b.opts.Normalizer.Normalize(raw)
	sch := schema.Infer(records, schema.InferOptions{ExampleCap: b.opts.ExampleCap})
	ds := &model.Dataset{
		Filename: name,
		Records:  records,
		Schema:   sch,
		SchemaID: pool.Register(name, sch),
	}
	if meta, ok := b.opts.Table.Match(name); ok {
		ds.Meta = &meta
	}
	return ds
}

func (b *Builder) recordRun(ctx context.Context, run *model.Run) {
	if b.opts.Store == nil {
		return
	}
	if err := b.opts.Store.RecordRun(ctx, run); err != nil {
		zap.L().Warn("pipeline: could not record run", zap.Error(err))
		return
	}
	zap.L().Info("pipeline: run recorded", zap.String("run_id", run.ID))
}
