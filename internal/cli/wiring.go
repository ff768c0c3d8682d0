package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"ragingest/internal/config"
	"ragingest/internal/domain"
	"ragingest/internal/embedding"
	"ragingest/internal/embedding/hashing"
	"ragingest/internal/embedding/ollama"
	"ragingest/internal/embedding/openai"
	"ragingest/internal/logging"
	"ragingest/internal/metrics"
	"ragingest/internal/pipeline"
	"ragingest/internal/report"
	"ragingest/internal/segmenter"
	"ragingest/internal/vectorstore"
	"ragingest/internal/writer"
)

// loadConfig reads the configuration named by --config or the default
// locations, then validates it.
func loadConfig() (*config.AppConfig, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.AppConfig, w io.Writer) (*slog.Logger, error) {
	return logging.New(w, cfg.Log.Level, cfg.Log.Format)
}

// newProvider returns the configured embedding provider and the model to load.
func newProvider(cfg *config.AppConfig) (domain.EmbeddingProvider, string, error) {
	e := cfg.Embedder
	switch e.Provider {
	case "hashing", "":
		dim := e.Dimension
		if dim == 0 {
			dim = int(cfg.Collection.Dimension)
		}
		model := e.Model
		if model == "" {
			model = "hashing"
		}
		return hashing.NewProvider(dim), model, nil
	case "openai":
		return openai.NewProvider(openai.Config{
			BaseURL:           e.OpenAI.BaseURL,
			APIKeyEnv:         e.OpenAI.APIKeyEnv,
			Dimension:         e.Dimension,
			BatchSize:         e.BatchSize,
			Timeout:           cfg.EmbedderTimeout(),
			RequestsPerSecond: e.RequestsPerSecond,
		}), e.Model, nil
	case "ollama":
		model := e.Model
		if model == "" {
			model = ollama.DefaultModel
		}
		return ollama.NewProvider(ollama.Config{
			BaseURL:           e.Ollama.BaseURL,
			Dimension:         e.Dimension,
			Timeout:           cfg.EmbedderTimeout(),
			RequestsPerSecond: e.RequestsPerSecond,
		}), model, nil
	default:
		return nil, "", fmt.Errorf("%w: unknown embedder provider %q", domain.ErrInvalidInput, e.Provider)
	}
}

func connect(cfg *config.AppConfig) (domain.VectorStore, string, error) {
	store, err := vectorstore.Connect(vectorstore.Config{
		Type:       cfg.Store.Type,
		Endpoint:   cfg.Store.Qdrant.Endpoint,
		Credential: cfg.Store.Qdrant.Credential,
		Timeout:    cfg.StoreTimeout(),
		SQLitePath: cfg.Store.SQLite.Path,
	})
	if err != nil {
		return nil, "", domain.AtStage(domain.StageConnect, err)
	}
	target := cfg.Store.Type
	switch cfg.Store.Type {
	case vectorstore.TypeQdrant:
		target = cfg.Store.Qdrant.Endpoint
	case vectorstore.TypeSQLite:
		target = cfg.Store.SQLite.Path
	}
	return store, target, nil
}

// session holds everything a command needs to drive the pipeline.
type session struct {
	cfg      *config.AppConfig
	store    domain.VectorStore
	pipeline *pipeline.Pipeline
	metrics  *metrics.Recorder
}

// openSession loads config, connects to the store and assembles a pipeline
// reporting to rep. Failures are reported to rep. The caller must call close.
func openSession(cmd *cobra.Command, rep report.Reporter, collection string) (*session, error) {
	s, err := newSession(cmd, rep, collection)
	if err != nil {
		rep.Failed(err)
		return nil, reported{err}
	}
	return s, nil
}

func newSession(cmd *cobra.Command, rep report.Reporter, collection string) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if collection != "" {
		cfg.Collection.Name = collection
	}
	desc, err := cfg.Descriptor()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	seg, err := segmenter.New(cfg.Segmenter.Type, cfg.Segmenter.SentencesPerChunk, cfg.Segmenter.OverlapSentences)
	if err != nil {
		return nil, err
	}
	provider, modelID, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	store, target, err := connect(cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("store connected", "type", cfg.Store.Type, "target", target)
	rep.Connected(target)

	rec := metrics.New()
	p := pipeline.New(store, seg, provider, embedding.NewOffloader(int64(cfg.Embedder.Workers)), pipeline.Config{
		Collection: desc,
		ModelID:    modelID,
		Writer: writer.Options{
			WaitForCompletion:       cfg.Writer.WaitForCompletion(),
			FailOnMissingCollection: cfg.Writer.FailOnMissingCollection,
		},
	}, pipeline.WithLogger(logger), pipeline.WithReporter(rep), pipeline.WithMetrics(rec))

	return &session{cfg: cfg, store: store, pipeline: p, metrics: rec}, nil
}

// close writes the metrics file when requested and releases the store.
func (s *session) close() error {
	var merr error
	if metricsFile != "" {
		merr = s.metrics.WriteTextfile(metricsFile)
	}
	if err := s.store.Close(); err != nil {
		return err
	}
	return merr
}

// reported marks an error the reporter has already shown to the operator.
type reported struct{ error }

func (r reported) Unwrap() error { return r.error }

// Reported reports whether err was already shown by a progress reporter.
func Reported(err error) bool {
	var r reported
	return errors.As(err, &r)
}

// runReported wraps a pipeline error, which the pipeline reports itself.
func runReported(err error) error {
	if err == nil {
		return nil
	}
	return reported{err}
}
