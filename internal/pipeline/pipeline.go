// Package pipeline orchestrates one aggregation run: fetch all sources,
// resolve missing coordinates, deduplicate against known points, enrich,
// and persist in bounded chunks.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lavorimap/roadworks-etl/internal/domain"
	"github.com/lavorimap/roadworks-etl/internal/observability"
)

// Source is a fetchable event source. A non-nil error is always a
// *domain.FetchError and means the source contributed nothing this run.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.RawEvent, error)
}

// Store is the persistence backend: a coordinate snapshot for seeding
// deduplication and chunked bulk inserts.
type Store interface {
	Snapshot(ctx context.Context) ([]domain.Geo, error)
	InsertChunk(ctx context.Context, records []domain.CanonicalRecord) error
}

// Publisher announces persisted records to downstream consumers.
// Publishing is best-effort; failures never affect the run outcome.
type Publisher interface {
	Publish(ctx context.Context, records []domain.CanonicalRecord) error
}

// Pipeline sequences the aggregation stages. Stages run strictly forward:
// FetchingSources → Resolving → Deduplicating&Enriching → Persisting.
// Each stage tolerates partial failure internally; there is no retry loop
// within a run.
type Pipeline struct {
	sources   []Source
	geocoder  domain.Geocoder
	store     Store
	publisher Publisher // may be nil
	logger    *slog.Logger
	metrics   *observability.Metrics

	dedupRadiusMeters  float64
	chunkSize          int
	maxParallelFetches int

	ready atomic.Bool

	mu          sync.Mutex
	lastSummary *domain.RunSummary
}

// Options bundle the tuning knobs so New stays readable.
type Options struct {
	DedupRadiusMeters  float64
	ChunkSize          int
	MaxParallelFetches int
}

// New creates a Pipeline. publisher may be nil to disable downstream
// publication.
func New(sources []Source, geocoder domain.Geocoder, store Store, publisher Publisher,
	logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.DedupRadiusMeters <= 0 {
		opts.DedupRadiusMeters = domain.DefaultDedupRadiusMeters
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 200
	}
	if opts.MaxParallelFetches <= 0 {
		opts.MaxParallelFetches = 3
	}
	return &Pipeline{
		sources:            sources,
		geocoder:           geocoder,
		store:              store,
		publisher:          publisher,
		logger:             logger,
		metrics:            metrics,
		dedupRadiusMeters:  opts.DedupRadiusMeters,
		chunkSize:          opts.ChunkSize,
		maxParallelFetches: opts.MaxParallelFetches,
	}
}

// CheckReadiness returns nil once at least one run has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no pipeline run has completed yet")
	}
	return nil
}

// LastSummary returns the outcome of the most recent completed run.
// ok is false before the first run finishes.
func (p *Pipeline) LastSummary() (domain.RunSummary, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastSummary == nil {
		return domain.RunSummary{}, false
	}
	return *p.lastSummary, true
}

// Run executes one aggregation run and reports what happened. The returned
// error is non-nil only for a cancelled context: source failures, geocoding
// misses, and chunk errors are all partial failures captured in the summary.
func (p *Pipeline) Run(ctx context.Context) (domain.RunSummary, error) {
	start := time.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	var summary domain.RunSummary

	// Stage 1: fetch every source, bounded parallelism, order preserved.
	batches, failures := p.fetchAll(ctx)
	summary.SourceFailures = failures
	for _, batch := range batches {
		summary.Fetched += len(batch)
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	// Known-points snapshot. A snapshot failure degrades to an empty
	// known-set: the run proceeds and accepts the added duplicate risk
	// rather than refusing to run.
	known, err := p.store.Snapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		p.logger.Error("known-points snapshot failed, proceeding with empty known-set", "error", err)
		summary.SnapshotDegraded = true
		known = nil
	}
	p.logger.Info("run started",
		"sources", len(p.sources),
		"fetched", summary.Fetched,
		"known_points", len(known),
	)

	// Stages 2+3: resolve, deduplicate, enrich. Candidates are processed
	// in a fixed sequence (configured source order, per-source item order)
	// and each accepted point is appended to the known-set immediately,
	// so later candidates in the same run see it.
	var accepted []domain.CanonicalRecord
	for _, batch := range batches {
		for _, raw := range batch {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}

			geo, ok := p.resolve(ctx, raw)
			if !ok {
				summary.DroppedUnresolved++
				p.metrics.EventsDropped.Inc()
				continue
			}
			summary.Resolved++

			if domain.IsDuplicate(geo, known, p.dedupRadiusMeters) {
				summary.DeduplicatedOut++
				p.metrics.EventsDuplicated.Inc()
				continue
			}

			rec := domain.BuildRecord(ctx, domain.ResolvedEvent{RawEvent: raw, Geo: geo}, p.geocoder, p.logger)
			known = append(known, geo)
			accepted = append(accepted, rec)
		}
	}

	// Stage 4: persist in bounded chunks, each commit isolated.
	persisted := p.persist(ctx, accepted, &summary)
	summary.Persisted = persisted

	p.ready.Store(true)
	p.mu.Lock()
	p.lastSummary = &summary
	p.mu.Unlock()
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.metrics.LastRunTimestamp.SetToCurrentTime()

	p.logger.Info("run complete",
		"fetched", summary.Fetched,
		"resolved", summary.Resolved,
		"dropped_unresolved", summary.DroppedUnresolved,
		"deduplicated_out", summary.DeduplicatedOut,
		"persisted", summary.Persisted,
		"source_failures", len(summary.SourceFailures),
		"chunk_errors", len(summary.ChunkErrors),
		"duration", time.Since(start),
	)
	return summary, ctx.Err()
}

// fetchAll fetches every source with bounded parallelism. Results keep the
// configured source order regardless of completion order, so the dedup
// sequence stays deterministic.
func (p *Pipeline) fetchAll(ctx context.Context) ([][]domain.RawEvent, []*domain.FetchError) {
	results := make([][]domain.RawEvent, len(p.sources))
	errs := make([]*domain.FetchError, len(p.sources))

	var g errgroup.Group
	g.SetLimit(p.maxParallelFetches)
	for i, src := range p.sources {
		i, src := i, src
		g.Go(func() error {
			events, err := src.Fetch(ctx)
			if err != nil {
				var fe *domain.FetchError
				if !errors.As(err, &fe) {
					fe = domain.NewFetchError(src.Name(), domain.FetchUnreachable, err)
				}
				p.logger.Warn("source fetch failed", "source", src.Name(), "kind", fe.Kind, "error", fe.Err)
				p.metrics.SourceFailures.WithLabelValues(fe.Source, string(fe.Kind)).Inc()
				errs[i] = fe
				return nil
			}
			p.metrics.EventsFetched.WithLabelValues(src.Name()).Add(float64(len(events)))
			results[i] = events
			return nil
		})
	}
	_ = g.Wait() // closures never return an error; failures land in errs

	failures := make([]*domain.FetchError, 0, len(errs))
	for _, fe := range errs {
		if fe != nil {
			failures = append(failures, fe)
		}
	}
	return results, failures
}

// resolve returns the event's coordinates, forward-geocoding the position
// hint when the source carried no geometry. ok is false when the event
// must be dropped from this run; dropped events are not retried.
func (p *Pipeline) resolve(ctx context.Context, raw domain.RawEvent) (domain.Geo, bool) {
	if raw.Geo != nil {
		return *raw.Geo, raw.Geo.Valid()
	}
	if raw.PositionHint == "" {
		return domain.Geo{}, false
	}

	geo, err := p.geocoder.Forward(ctx, raw.PositionHint)
	if err != nil {
		p.logger.Warn("geocoding failed, dropping event",
			"source", raw.SourceName, "hint", raw.PositionHint, "error", err)
		return domain.Geo{}, false
	}
	if geo == nil || !geo.Valid() {
		p.logger.Debug("position hint unresolved, dropping event",
			"source", raw.SourceName, "hint", raw.PositionHint)
		return domain.Geo{}, false
	}
	return *geo, true
}

// persist commits accepted records in chunks. A failed chunk is recorded
// with its contents for manual replay and does not stop later chunks.
func (p *Pipeline) persist(ctx context.Context, records []domain.CanonicalRecord, summary *domain.RunSummary) int {
	persisted := 0
	for i := 0; i < len(records); i += p.chunkSize {
		end := min(i+p.chunkSize, len(records))
		chunk := records[i:end]
		index := i / p.chunkSize

		if err := p.store.InsertChunk(ctx, chunk); err != nil {
			p.logger.Error("chunk persistence failed", "chunk", index, "records", len(chunk), "error", err)
			p.metrics.ChunkErrors.Inc()
			summary.ChunkErrors = append(summary.ChunkErrors, domain.ChunkError{
				Index:   index,
				Records: chunk,
				Err:     err,
			})
			continue
		}

		persisted += len(chunk)
		p.metrics.RecordsPersisted.Add(float64(len(chunk)))

		if p.publisher != nil {
			if err := p.publisher.Publish(ctx, chunk); err != nil {
				p.logger.Warn("downstream publish failed", "chunk", index, "error", err)
			}
		}
	}
	return persisted
}
