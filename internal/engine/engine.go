// Package engine consolidates raw batch records into the entity graph.
// A run is five strictly ordered phases: collect, resolve shared
// entities, resolve people, insert and enrich, relationships. The engine
// is the only writer while a batch runs; every write is an idempotent
// natural-key upsert, so a cancelled batch is rerun from the top.
package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contacts-cli/internal/model"
	"github.com/sells-group/contacts-cli/internal/source"
	"github.com/sells-group/contacts-cli/internal/store"
)

// Engine runs ingestion batches against a store.
type Engine struct {
	st     store.Store
	dryRun bool
}

// Options configures an Engine.
type Options struct {
	// DryRun computes the full consolidation without any store mutation.
	DryRun bool
}

// New creates an Engine. With DryRun set, writes are swallowed by a
// read-only store decorator and IDs are synthesized.
func New(st store.Store, opts Options) *Engine {
	return &Engine{st: st, dryRun: opts.DryRun}
}

// run carries the per-batch state through the phases.
type run struct {
	st     store.Store
	spec   *source.BatchSpec
	stats  *model.ImportStats
	log    *zap.Logger
	dryRun bool
	fakeID int64
}

// Run ingests one batch: it drains the record stream, then executes the
// five phases in order. The returned stats are complete even for dry
// runs.
func (e *Engine) Run(ctx context.Context, spec *source.BatchSpec, recs <-chan source.RawRecord, errCh <-chan error) (*model.ImportStats, error) {
	if err := spec.Validate(); err != nil {
		// Drain the stream so the reader goroutine is not left blocked
		// on a full channel.
		for range recs {
		}
		<-errCh
		return nil, err
	}

	st := e.st
	if e.dryRun {
		st = &dryStore{inner: e.st}
	}
	r := &run{
		st:     st,
		spec:   spec,
		stats:  model.NewImportStats(spec.Name, e.dryRun),
		log:    zap.L().With(zap.String("batch", spec.Name), zap.String("run_id", uuid.NewString())),
		dryRun: e.dryRun,
	}

	// Phase 1: collect.
	col := newCollector(spec)
	for rec := range recs {
		col.add(rec)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "engine: read batch")
	}
	collected := col.result()
	r.stats.RecordsScanned = collected.Records
	r.log.Info("collected batch",
		zap.Int("records", collected.Records),
		zap.Int("slots", len(collected.Slots)),
	)

	// Phase 2: shared entities.
	c, err := r.resolveEntities(ctx, collected)
	if err != nil {
		return nil, err
	}

	// Phase 3: people.
	res, err := r.resolvePeople(ctx, collected, c)
	if err != nil {
		return nil, err
	}

	// Phase 4: insert and enrich.
	if err := r.insertPeople(ctx, res); err != nil {
		return nil, err
	}
	if err := r.enrichPeople(ctx, collected, res); err != nil {
		return nil, err
	}

	// Phase 5: relationships.
	if err := r.writeRelationships(ctx, collected, c, res); err != nil {
		return nil, err
	}

	r.log.Info("batch complete",
		zap.Bool("dry_run", e.dryRun),
		zap.Int("new_people", r.stats.NewPeople),
		zap.Int("enriched_people", r.stats.EnrichedPeople),
	)
	return r.stats, nil
}

// dryStore answers reads from the real store and swallows writes,
// handing out synthetic negative IDs so later phases still line up.
type dryStore struct {
	inner  store.Store
	fakeID int64
}

func (d *dryStore) UpsertBatch(ctx context.Context, table string, records []store.Record, keyCols []string) (map[string]int64, error) {
	ids := make(map[string]int64, len(records))
	for _, rec := range records {
		d.fakeID--
		ids[store.RecordKey(rec, keyCols)] = d.fakeID
	}
	return ids, nil
}

func (d *dryStore) UpsertIgnore(ctx context.Context, table string, records []store.Record, keyCols []string) (int64, error) {
	return int64(len(records)), nil
}

func (d *dryStore) FetchAll(ctx context.Context, table string, cols []string) ([]store.Record, error) {
	return d.inner.FetchAll(ctx, table, cols)
}

func (d *dryStore) Insert(ctx context.Context, table string, records []store.Record) ([]int64, error) {
	ids := make([]int64, len(records))
	for i := range records {
		d.fakeID--
		ids[i] = d.fakeID
	}
	return ids, nil
}

func (d *dryStore) Update(ctx context.Context, table string, id int64, patch store.Record) error {
	return nil
}

func (d *dryStore) Migrate(ctx context.Context) error { return nil }
func (d *dryStore) Close() error                      { return nil }
