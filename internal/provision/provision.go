// Package provision makes sure a destination collection exists before writes.
package provision

import (
	"context"
	"fmt"

	"ragingest/internal/domain"
)

// EnsureCollection creates the collection described by desc unless it exists.
//
// An existing collection is accepted as is: its geometry is not compared
// with desc. Only dimension and distance are sent on create; everything else
// is left to the store defaults. Store failures, including a create the
// store acknowledges without applying, wrap domain.ErrProvision.
func EnsureCollection(ctx context.Context, store domain.VectorStore, desc domain.CollectionDescriptor) (domain.ProvisionResult, error) {
	if desc.Name == "" {
		return domain.ProvisionResult{}, fmt.Errorf("%w: %w: empty collection name", domain.ErrProvision, domain.ErrInvalidInput)
	}
	if desc.Dimension == 0 || !desc.Distance.Valid() {
		return domain.ProvisionResult{}, fmt.Errorf("%w: %w: collection %q has dimension %d and distance %s",
			domain.ErrProvision, domain.ErrInvalidInput, desc.Name, desc.Dimension, desc.Distance)
	}

	exists, err := store.CollectionExists(ctx, desc.Name)
	if err != nil {
		return domain.ProvisionResult{}, fmt.Errorf("%w: checking %q: %w", domain.ErrProvision, desc.Name, err)
	}
	if exists {
		return domain.ProvisionResult{Created: false}, nil
	}

	res, err := store.CreateCollection(ctx, desc)
	if err != nil {
		return domain.ProvisionResult{}, fmt.Errorf("%w: creating %q: %w", domain.ErrProvision, desc.Name, err)
	}
	if !res.Created {
		return domain.ProvisionResult{}, fmt.Errorf("%w: store refused to create %q", domain.ErrProvision, desc.Name)
	}
	return domain.ProvisionResult{Created: true, Duration: res.Duration}, nil
}
