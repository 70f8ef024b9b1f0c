package resolver

import (
	"context"

	"github.com/Ramsey-B/laurel/internal/tracing"
	"github.com/Ramsey-B/laurel/pkg/models"
)

// LineageSnapshot explains how an entity id reached its canonical identity:
// the redirect chain walked and every merge record touching it.
type LineageSnapshot struct {
	RequestedEntityID string               `json:"requested_entity_id"`
	CanonicalEntityID string               `json:"canonical_entity_id"`
	RedirectChain     []string             `json:"redirect_chain"`
	MergeCount        int                  `json:"merge_count"`
	Merges            []models.MergeRecord `json:"merges"`
}

// Lineage walks the redirect chain from entityID and collects the merge
// records involving any node on it.
func (r *Resolver) Lineage(ctx context.Context, entityID string) (*LineageSnapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.Lineage")
	defer span.End()

	chain := []string{entityID}
	chainSet := map[string]bool{entityID: true}
	current := entityID
	for {
		target, err := r.store.GetRedirectTarget(ctx, current)
		if err != nil {
			return nil, err
		}
		if target == "" {
			break
		}
		chain = append(chain, target)
		chainSet[target] = true
		current = target
	}

	canonicalID, err := r.store.Canonicalize(ctx, entityID)
	if err != nil {
		return nil, err
	}

	history, err := r.store.ListMergeHistory(ctx)
	if err != nil {
		return nil, err
	}

	merges := []models.MergeRecord{}
	for _, record := range history {
		if chainSet[record.FromEntityID] || chainSet[record.ToEntityID] || record.ToEntityID == canonicalID {
			merges = append(merges, record)
		}
	}

	return &LineageSnapshot{
		RequestedEntityID: entityID,
		CanonicalEntityID: canonicalID,
		RedirectChain:     chain,
		MergeCount:        len(merges),
		Merges:            merges,
	}, nil
}
