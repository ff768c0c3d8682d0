// Package pipeline runs document ingestion end to end: read, segment,
// embed and provision concurrently, then build points and write them.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ragingest/internal/domain"
	"ragingest/internal/embedding"
	"ragingest/internal/logging"
	"ragingest/internal/metrics"
	"ragingest/internal/points"
	"ragingest/internal/provision"
	"ragingest/internal/report"
	"ragingest/internal/segmenter"
	"ragingest/internal/writer"
)

// Config is what a run needs besides its collaborators.
type Config struct {
	Collection domain.CollectionDescriptor
	ModelID    string
	Writer     writer.Options
}

// Result summarizes a completed run.
type Result struct {
	RunID     string
	Source    string
	Segments  int
	Provision domain.ProvisionResult
	Write     domain.WriteResult
}

// Pipeline wires the ingestion stages around one store handle.
type Pipeline struct {
	store     domain.VectorStore
	segmenter domain.Segmenter
	provider  domain.EmbeddingProvider
	offloader *embedding.Offloader
	cfg       Config

	logger   *slog.Logger
	reporter report.Reporter
	metrics  *metrics.Recorder
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logging.OrNoop(l) }
}

// WithReporter sets the progress reporter.
func WithReporter(r report.Reporter) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.reporter = r
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New creates a pipeline. A nil offloader gets a single worker.
func New(
	store domain.VectorStore,
	seg domain.Segmenter,
	provider domain.EmbeddingProvider,
	off *embedding.Offloader,
	cfg Config,
	opts ...Option,
) *Pipeline {
	if off == nil {
		off = embedding.NewOffloader(1)
	}
	p := &Pipeline{
		store:     store,
		segmenter: seg,
		provider:  provider,
		offloader: off,
		cfg:       cfg,
		logger:    logging.Noop(),
		reporter:  report.Nop{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run ingests the document at path. Any failure aborts the run and is
// returned as a *domain.StageError naming the failed step.
func (p *Pipeline) Run(ctx context.Context, path string) (Result, error) {
	res := Result{RunID: uuid.NewString(), Source: path}
	log := p.logger.With("run_id", res.RunID, "collection", p.cfg.Collection.Name)
	log.Info("ingest started", "source", path)

	dp, prov, err := p.setup(ctx, log, path)
	if err != nil {
		return res, p.fail(log, err)
	}
	res.Segments = len(dp.Segments)
	res.Provision = prov

	wr, err := p.ingest(ctx, log, dp)
	if err != nil {
		return res, p.fail(log, err)
	}
	res.Write = wr

	log.Info("ingest finished", "segments", res.Segments, "created", prov.Created, "outcome", wr.Outcome, "status", wr.Status)
	p.reporter.Done()
	return res, nil
}

// setup reads and segments the document, then embeds the segments while
// the collection is provisioned.
func (p *Pipeline) setup(ctx context.Context, log *slog.Logger, path string) (domain.DataPoint, domain.ProvisionResult, error) {
	var prov domain.ProvisionResult

	doc, err := observe(p, domain.StageRead, func() (domain.Document, error) {
		return segmenter.ReadDocument(ctx, path)
	})
	if err != nil {
		return domain.DataPoint{}, prov, domain.AtStage(domain.StageRead, err)
	}

	segments, err := observe(p, domain.StageSegment, func() ([]domain.Segment, error) {
		return p.segmenter.Segment(doc)
	})
	if err != nil {
		return domain.DataPoint{}, prov, domain.AtStage(domain.StageSegment, err)
	}
	log.Debug("document segmented", "segments", len(segments))
	p.reporter.Segmented(doc.Source, len(segments))

	var embeddings []domain.Embedding
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if len(segments) == 0 {
			return nil
		}
		p.reporter.StageStarted(domain.StageEmbed)
		out, err := observe(p, domain.StageEmbed, func() ([]domain.Embedding, error) {
			return embedding.Embed(gctx, p.offloader, p.provider, p.cfg.ModelID, segmenter.Texts(segments))
		})
		if err != nil {
			return domain.AtStage(domain.StageEmbed, err)
		}
		embeddings = out
		log.Info("embeddings generated", "count", len(out), "model", p.cfg.ModelID)
		p.reporter.Embedded(p.cfg.ModelID, len(out))
		return nil
	})
	g.Go(func() error {
		r, err := p.ensure(gctx, log)
		if err != nil {
			return err
		}
		prov = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.DataPoint{}, prov, err
	}

	return domain.DataPoint{
		CollectionName: p.cfg.Collection.Name,
		Store:          p.store,
		Segments:       segments,
		Embeddings:     embeddings,
	}, prov, nil
}

// Ensure provisions the configured collection.
func (p *Pipeline) Ensure(ctx context.Context) (domain.ProvisionResult, error) {
	return p.ensure(ctx, p.logger.With("collection", p.cfg.Collection.Name))
}

func (p *Pipeline) ensure(ctx context.Context, log *slog.Logger) (domain.ProvisionResult, error) {
	p.reporter.StageStarted(domain.StageProvision)
	r, err := observe(p, domain.StageProvision, func() (domain.ProvisionResult, error) {
		return provision.EnsureCollection(ctx, p.store, p.cfg.Collection)
	})
	if err != nil {
		return r, domain.AtStage(domain.StageProvision, err)
	}
	if r.Created {
		p.metrics.CollectionCreated()
	}
	log.Debug("collection provisioned", "created", r.Created, "duration", r.Duration)
	p.reporter.Provisioned(p.cfg.Collection.Name, r)
	return r, nil
}

// Ingest builds points from dp and writes them. A document without
// segments writes nothing.
func (p *Pipeline) Ingest(ctx context.Context, dp domain.DataPoint) (domain.WriteResult, error) {
	return p.ingest(ctx, p.logger.With("collection", dp.CollectionName), dp)
}

func (p *Pipeline) ingest(ctx context.Context, log *slog.Logger, dp domain.DataPoint) (domain.WriteResult, error) {
	if len(dp.Segments) == 0 {
		log.Warn("document has no segments, nothing to write")
		return domain.WriteResult{}, nil
	}
	pts := points.Build(dp.Segments, dp.Embeddings)

	p.reporter.StageStarted(domain.StageWrite)
	w := writer.New(dp.Store, p.cfg.Writer, log)
	wr, err := observe(p, domain.StageWrite, func() (domain.WriteResult, error) {
		return w.Write(ctx, dp.CollectionName, pts)
	})
	if err != nil {
		return wr, domain.AtStage(domain.StageWrite, err)
	}
	if wr.Outcome == domain.OutcomeWritten {
		p.metrics.PointsWritten(dp.CollectionName, wr.Points)
	}
	p.reporter.Written(dp.CollectionName, wr)
	return wr, nil
}

// Collections lists the store's collections and, when counts is set, the
// number of points in each.
func (p *Pipeline) Collections(ctx context.Context, counts bool) (domain.ListResult, map[string]uint64, error) {
	list, err := p.store.ListCollections(ctx)
	if err != nil {
		return list, nil, domain.AtStage(domain.StageConnect, err)
	}
	var n map[string]uint64
	if counts {
		n = make(map[string]uint64, len(list.Collections))
		for _, c := range list.Collections {
			cnt, err := p.store.Count(ctx, c.Name)
			if err != nil {
				return list, nil, domain.AtStage(domain.StageConnect, err)
			}
			n[c.Name] = cnt
		}
	}
	p.reporter.Collections(list, n)
	return list, n, nil
}

func (p *Pipeline) fail(log *slog.Logger, err error) error {
	log.Error("ingest aborted", "error", err)
	p.reporter.Failed(err)
	return err
}

// observe times fn and records the outcome under stage.
func observe[T any](p *Pipeline, stage string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	p.metrics.ObserveStage(stage, time.Since(start), err)
	return v, err
}
