// Package embedding turns segment batches into fixed-length vectors.
//
// Model loading and encoding run as a single task on an Offloader worker;
// callers see either the complete, validated batch or an error.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"ragingest/internal/domain"
)

// Embed loads modelID from provider and encodes texts on a background worker.
// The result is index-aligned with texts and every vector has the model's
// declared dimension.
func Embed(
	ctx context.Context,
	off *Offloader,
	provider domain.EmbeddingProvider,
	modelID string,
	texts []string,
) ([]domain.Embedding, error) {
	task := Dispatch(ctx, off, func(ctx context.Context) ([]domain.Embedding, error) {
		model, err := provider.Load(ctx, modelID)
		if err != nil {
			return nil, wrap(domain.ErrModelLoad, err)
		}
		out, err := model.Encode(ctx, texts)
		if err != nil {
			return nil, wrap(domain.ErrEncode, err)
		}
		if err := Validate(out, len(texts), model.Dimension()); err != nil {
			return nil, err
		}
		return out, nil
	})
	return task.Wait(ctx)
}

// Validate checks that embeddings hold exactly n vectors of length dim.
func Validate(embeddings []domain.Embedding, n, dim int) error {
	if len(embeddings) != n {
		return fmt.Errorf("%w: got %d embeddings for %d segments", domain.ErrEncode, len(embeddings), n)
	}
	for i, e := range embeddings {
		if len(e) != dim {
			return fmt.Errorf("%w: embedding %d has dimension %d, want %d", domain.ErrEncode, i, len(e), dim)
		}
	}
	return nil
}

func wrap(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
