// Package resolver orchestrates identity resolution: it normalizes
// identifiers, binds them to entities, auto-merges on strong collisions and
// buffers the events each mutation emits.
package resolver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/laurel/internal/tracing"
	"github.com/Ramsey-B/laurel/pkg/attribution"
	"github.com/Ramsey-B/laurel/pkg/events"
	"github.com/Ramsey-B/laurel/pkg/insights"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/normalize"
	"github.com/Ramsey-B/laurel/pkg/store"
)

// DefaultRecentLimit caps recent evidence in an entity context.
const DefaultRecentLimit = 10

// Resolver owns the resolution flow. A single mutex orders every mutating
// call and the event drain, so a drained batch always reflects a consistent
// prefix of operations.
type Resolver struct {
	mu     sync.Mutex
	store  *store.Store
	buffer *events.Buffer
	logger ectologger.Logger
}

func New(s *store.Store, logger ectologger.Logger) *Resolver {
	return &Resolver{
		store:  s,
		buffer: events.NewBuffer(),
		logger: logger,
	}
}

// Store exposes the underlying store for read-only callers.
func (r *Resolver) Store() *store.Store {
	return r.store
}

// Resolve maps one observed identifier to a canonical entity, creating a new
// entity when the identifier is unknown. Strong identifier collisions
// (email, urls) auto-merge the fresh entity into the existing one.
func (r *Resolver) Resolve(ctx context.Context, identifierType, value string, opts models.ResolveOptions) (*models.EntityResolution, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.Resolve")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(identifierType) == "" || strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("%w: identifier type and value are required", models.ErrInvalidInput)
	}

	confidence := opts.Confidence
	if confidence == 0 {
		confidence = models.DefaultMatchConfidence
	}
	entityType := opts.EntityType
	if entityType == "" {
		entityType = models.EntityTypePerson
	}
	causedBy := opts.CausedBy
	if causedBy == "" {
		causedBy = "resolver"
	}

	normalized := normalize.Identifier(identifierType, value)
	if err := r.store.UpsertIdentifier(ctx, identifierType, value, normalized, confidence, opts.Provenance); err != nil {
		return nil, err
	}

	existing, err := r.store.FindAlias(ctx, identifierType, normalized)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		entityID, err := r.store.Canonicalize(ctx, existing.EntityID)
		if err != nil {
			return nil, err
		}
		matched, err := r.store.MatchedIdentifiersForEntity(ctx, entityID)
		if err != nil {
			return nil, err
		}
		resolved := existing.Confidence
		if confidence > resolved {
			resolved = confidence
		}
		r.buffer.Append(events.EntityResolved(entityID, causedBy, resolved))
		return &models.EntityResolution{
			EntityID:           entityID,
			Confidence:         resolved,
			CreatedNewEntity:   false,
			MatchedIdentifiers: matched,
		}, nil
	}

	entityID, err := r.store.CreateEntity(ctx, entityType)
	if err != nil {
		return nil, err
	}
	createdEntityID := entityID

	added, conflicting, err := r.store.AddAlias(ctx, identifierType, normalized, entityID, confidence, causedBy, opts.Provenance)
	if err != nil {
		return nil, err
	}

	if conflicting != "" && normalize.IsAutoMergeType(identifierType) {
		mergeReason := fmt.Sprintf("auto-merge on %s:%s", identifierType, normalized)
		if _, err := r.store.MergeEntities(ctx, entityID, conflicting, mergeReason, "auto-merge"); err != nil {
			return nil, err
		}
		entityID, err = r.store.Canonicalize(ctx, conflicting)
		if err != nil {
			return nil, err
		}
		r.buffer.Append(events.EntityMerged(entityID, []string{createdEntityID}, mergeReason))
	}

	matched, err := r.store.MatchedIdentifiersForEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}

	resolved := models.DefaultNewEntityConfidence
	if added {
		resolved = confidence
		r.buffer.Append(events.EntityAliasAdded(entityID, identifierType, normalized))
	}
	r.buffer.Append(events.EntityResolved(entityID, causedBy, resolved))

	return &models.EntityResolution{
		EntityID:           entityID,
		Confidence:         resolved,
		CreatedNewEntity:   true,
		MatchedIdentifiers: matched,
	}, nil
}

// AddAlias binds an identifier to an existing entity. A collision on a
// strong identifier auto-merges the two entities; any other collision is an
// error. Returns the events this call emitted.
func (r *Resolver) AddAlias(ctx context.Context, entityID, identifierType, value string, opts models.ResolveOptions) ([]events.EmittedEvent, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.AddAlias")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(identifierType) == "" || strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("%w: identifier type and value are required", models.ErrInvalidInput)
	}

	confidence := opts.Confidence
	if confidence == 0 {
		confidence = models.DefaultMatchConfidence
	}
	causedBy := opts.CausedBy
	if causedBy == "" {
		causedBy = "manual"
	}

	if err := r.store.EnsureEntity(ctx, entityID); err != nil {
		return nil, err
	}
	canonicalEntityID, err := r.store.Canonicalize(ctx, entityID)
	if err != nil {
		return nil, err
	}

	normalized := normalize.Identifier(identifierType, value)
	if err := r.store.UpsertIdentifier(ctx, identifierType, value, normalized, confidence, opts.Provenance); err != nil {
		return nil, err
	}

	added, conflicting, err := r.store.AddAlias(ctx, identifierType, normalized, canonicalEntityID, confidence, causedBy, opts.Provenance)
	if err != nil {
		return nil, err
	}

	if conflicting != "" && conflicting != canonicalEntityID {
		if normalize.IsAutoMergeType(identifierType) {
			reason := fmt.Sprintf("auto-merge on %s:%s", identifierType, normalized)
			if _, err := r.store.MergeEntities(ctx, canonicalEntityID, conflicting, reason, "auto-merge"); err != nil {
				return nil, err
			}
			event := events.EntityMerged(conflicting, []string{canonicalEntityID}, reason)
			r.buffer.Append(event)
			return []events.EmittedEvent{event}, nil
		}
		return nil, fmt.Errorf("%w: %s:%s -> %s", models.ErrAliasBoundElsewhere, identifierType, normalized, conflicting)
	}

	if !added {
		return []events.EmittedEvent{}, nil
	}

	event := events.EntityAliasAdded(canonicalEntityID, identifierType, normalized)
	r.buffer.Append(event)
	return []events.EmittedEvent{event}, nil
}

// MergeEntities manually folds from into to.
func (r *Resolver) MergeEntities(ctx context.Context, fromEntityID, toEntityID, reason, causedBy string) (events.EmittedEvent, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.MergeEntities")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if causedBy == "" {
		causedBy = "manual"
	}

	if err := r.store.EnsureEntity(ctx, fromEntityID); err != nil {
		return events.EmittedEvent{}, err
	}
	if err := r.store.EnsureEntity(ctx, toEntityID); err != nil {
		return events.EmittedEvent{}, err
	}
	if _, err := r.store.MergeEntities(ctx, fromEntityID, toEntityID, reason, causedBy); err != nil {
		return events.EmittedEvent{}, err
	}

	canonical, err := r.store.Canonicalize(ctx, toEntityID)
	if err != nil {
		return events.EmittedEvent{}, err
	}
	event := events.EntityMerged(canonical, []string{fromEntityID}, reason)
	r.buffer.Append(event)
	return event, nil
}

// UndoMerge reverses a prior merge by installing the opposite redirect. The
// original merge stays in the ledger; the undo is itself a merge record.
func (r *Resolver) UndoMerge(ctx context.Context, fromEntityID, toEntityID, causedBy string) (events.EmittedEvent, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.UndoMerge")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if causedBy == "" {
		causedBy = "manual"
	}
	reason := fmt.Sprintf("undo merge %s->%s", fromEntityID, toEntityID)

	target, err := r.store.GetRedirectTarget(ctx, fromEntityID)
	if err != nil {
		return events.EmittedEvent{}, err
	}
	if target == toEntityID {
		if err := r.store.RemoveRedirect(ctx, fromEntityID); err != nil {
			return events.EmittedEvent{}, err
		}
		if err := r.store.SetEntityStatus(ctx, fromEntityID, models.EntityStatusActive); err != nil {
			return events.EmittedEvent{}, err
		}
	}

	if _, err := r.store.MergeEntities(ctx, toEntityID, fromEntityID, reason, causedBy); err != nil {
		return events.EmittedEvent{}, err
	}

	canonical, err := r.store.Canonicalize(ctx, fromEntityID)
	if err != nil {
		return events.EmittedEvent{}, err
	}
	event := events.EntityMerged(canonical, []string{toEntityID}, reason)
	r.buffer.Append(event)
	return event, nil
}

// MergeHistory returns the append-only merge ledger.
func (r *Resolver) MergeHistory(ctx context.Context) ([]models.MergeRecord, error) {
	return r.store.ListMergeHistory(ctx)
}

// AliasesForEntity lists every alias of the entity's canonical identity.
func (r *Resolver) AliasesForEntity(ctx context.Context, entityID string) ([]models.Alias, error) {
	return r.store.ListAliasesForEntity(ctx, entityID)
}

// ConfidenceSummary computes the weighted confidence view of an entity.
func (r *Resolver) ConfidenceSummary(ctx context.Context, entityID string) (insights.ConfidenceSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.ConfidenceSummary")
	defer span.End()

	canonicalID, err := r.store.Canonicalize(ctx, entityID)
	if err != nil {
		return insights.ConfidenceSummary{}, err
	}
	aliases, err := r.store.ListAliasesForEntity(ctx, canonicalID)
	if err != nil {
		return insights.ConfidenceSummary{}, err
	}
	identifiers, err := r.store.ListIdentifierRecordsForEntity(ctx, canonicalID)
	if err != nil {
		return insights.ConfidenceSummary{}, err
	}
	return insights.BuildConfidenceSummary(aliases, identifiers, identifiers), nil
}

// EntityContext assembles the evidence dossier for an entity. recentLimit at
// or below zero falls back to DefaultRecentLimit.
func (r *Resolver) EntityContext(ctx context.Context, entityID string, recentLimit int) (insights.EntityContext, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.EntityContext")
	defer span.End()

	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}

	canonicalID, err := r.store.Canonicalize(ctx, entityID)
	if err != nil {
		return insights.EntityContext{}, err
	}
	aliases, err := r.store.ListAliasesForEntity(ctx, canonicalID)
	if err != nil {
		return insights.EntityContext{}, err
	}
	identifiers, err := r.store.ListIdentifierRecordsForEntity(ctx, canonicalID)
	if err != nil {
		return insights.EntityContext{}, err
	}
	return insights.BuildEntityContext(canonicalID, aliases, identifiers, recentLimit), nil
}

// RecommendationContext derives the outreach-planning view of an entity.
func (r *Resolver) RecommendationContext(ctx context.Context, entityID string) (insights.RecommendationContext, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.RecommendationContext")
	defer span.End()

	canonicalID, err := r.store.Canonicalize(ctx, entityID)
	if err != nil {
		return insights.RecommendationContext{}, err
	}
	aliases, err := r.store.ListAliasesForEntity(ctx, canonicalID)
	if err != nil {
		return insights.RecommendationContext{}, err
	}
	identifiers, err := r.store.ListIdentifierRecordsForEntity(ctx, canonicalID)
	if err != nil {
		return insights.RecommendationContext{}, err
	}
	return insights.BuildRecommendationContext(canonicalID, aliases, identifiers, time.Now().UTC()), nil
}

// DrainEvents returns all buffered events in emission order and clears the
// buffer.
func (r *Resolver) DrainEvents() []events.EmittedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buffer.Drain()
}

// ExportSnapshot dumps the full resolution state.
func (r *Resolver) ExportSnapshot(ctx context.Context) (*store.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.ExportSnapshot(ctx)
}

// RestoreSnapshot replaces the resolution state wholesale.
func (r *Resolver) RestoreSnapshot(ctx context.Context, snapshot *store.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.RestoreSnapshot(ctx, snapshot)
}

// AttributeOutcome ranks a reference map against the store and returns the
// best-supported entity. The store is never mutated.
func (r *Resolver) AttributeOutcome(ctx context.Context, references map[string]string) (attribution.OutcomeAttribution, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.AttributeOutcome")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()
	return attribution.RankEntityCandidates(attribution.NormalizeReferenceMap(references), r.resolveReference(ctx)), nil
}

// AttributeOutcomeRefs is AttributeOutcome for callers holding an ordered
// reference list.
func (r *Resolver) AttributeOutcomeRefs(ctx context.Context, references []attribution.Reference) (attribution.OutcomeAttribution, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.AttributeOutcomeRefs")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()
	return attribution.RankEntityCandidates(attribution.NormalizeReferenceList(references), r.resolveReference(ctx)), nil
}

func (r *Resolver) resolveReference(ctx context.Context) attribution.ResolveReferenceFunc {
	return func(identifierType, value string) attribution.ReferenceMatch {
		if identifierType == "entity_id" {
			entity, err := r.store.GetEntity(ctx, value)
			if err != nil || entity == nil {
				return attribution.ReferenceMatch{NormalizedValue: value}
			}
			canonical, err := r.store.Canonicalize(ctx, value)
			if err != nil {
				return attribution.ReferenceMatch{NormalizedValue: value}
			}
			return attribution.ReferenceMatch{
				NormalizedValue: value,
				EntityID:        canonical,
				Confidence:      0.99,
			}
		}

		normalized := normalize.Identifier(identifierType, value)
		alias, err := r.store.FindAlias(ctx, identifierType, normalized)
		if err != nil || alias == nil {
			return attribution.ReferenceMatch{NormalizedValue: normalized}
		}
		canonical, err := r.store.Canonicalize(ctx, alias.EntityID)
		if err != nil {
			return attribution.ReferenceMatch{NormalizedValue: normalized}
		}
		return attribution.ReferenceMatch{
			NormalizedValue: normalized,
			EntityID:        canonical,
			Confidence:      alias.Confidence,
		}
	}
}
