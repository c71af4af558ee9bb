// Package tags maps free-form candidate tag names onto canonical tag rows
// and resource↔tag junctions.
//
// Both the batch worker (AI-derived tags) and the moderator bulk tag action
// go through Reconcile, and both must be idempotent: re-running with the
// same inputs produces the same tag and junction rows, no duplicates.
package tags

import (
	"context"
	"fmt"

	"curatehub.io/curatehub/internal/domain"
	"curatehub.io/curatehub/internal/repository"
)

// Reconciler resolves candidate names to canonical tags.
type Reconciler struct {
	store repository.TagStore
}

// NewReconciler creates a Reconciler.
func NewReconciler(store repository.TagStore) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile normalizes each candidate name, get-or-creates the canonical tag
// row and upserts the junction. Empty names (after normalization) and
// duplicate candidates are dropped. Returns the canonical tags attached.
func (r *Reconciler) Reconcile(ctx context.Context, resourceID string, candidates []string) ([]domain.Tag, error) {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]domain.Tag, 0, len(candidates))

	for _, raw := range candidates {
		name := domain.NormalizeTagName(raw)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		tag, err := r.store.GetOrCreate(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("reconcile tag %q: %w", name, err)
		}
		if err := r.store.UpsertJunction(ctx, resourceID, tag.ID); err != nil {
			return nil, fmt.Errorf("attach tag %q to %s: %w", name, resourceID, err)
		}
		out = append(out, *tag)
	}
	return out, nil
}
