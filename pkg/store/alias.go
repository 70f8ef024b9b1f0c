package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/Ramsey-B/laurel/internal/tracing"
	"github.com/Ramsey-B/laurel/pkg/models"
)

// FindAlias returns the alias bound to (identifierType, normalizedValue), or
// nil when the pair is unmapped.
func (s *Store) FindAlias(ctx context.Context, identifierType, normalizedValue string) (*models.Alias, error) {
	ctx, span := tracing.StartSpan(ctx, "store.Store.FindAlias")
	defer span.End()

	return s.findAlias(ctx, s.db, identifierType, normalizedValue)
}

func (s *Store) findAlias(ctx context.Context, q queryer, identifierType, normalizedValue string) (*models.Alias, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select("identifier_type", "normalized_value", "entity_id", "confidence", "created_at", "caused_by", "provenance")
	sb.From("aliases")
	sb.Where(sb.Equal("identifier_type", identifierType), sb.Equal("normalized_value", normalizedValue))

	query, args := sb.Build()
	var alias models.Alias
	if err := q.GetContext(ctx, &alias, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: find alias: %v", models.ErrStoreFailure, err)
	}
	return &alias, nil
}

// UpsertIdentifier records an observation of an identifier. Re-observation
// overwrites the raw value, keeps the max confidence seen, refreshes
// last_seen_at and fills provenance only if it was empty.
func (s *Store) UpsertIdentifier(ctx context.Context, identifierType, value, normalizedValue string, confidence float64, provenance string) error {
	ctx, span := tracing.StartSpan(ctx, "store.Store.UpsertIdentifier")
	defer span.End()

	ctxTx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin identifier upsert: %v", models.ErrStoreFailure, err)
	}
	defer tx.Rollback(ctx)

	now := models.UTCNow()

	sb := s.flavor.NewSelectBuilder()
	sb.Select("identifier_type", "normalized_value", "confidence", "provenance")
	sb.From("identifiers")
	sb.Where(sb.Equal("identifier_type", identifierType), sb.Equal("normalized_value", normalizedValue))
	query, args := sb.Build()

	var existing models.Identifier
	err = tx.GetContext(ctxTx, &existing, query, args...)
	switch {
	case err == sql.ErrNoRows:
		ib := s.flavor.NewInsertBuilder()
		ib.InsertInto("identifiers")
		ib.Cols("identifier_type", "value", "normalized_value", "confidence", "first_seen_at", "last_seen_at", "provenance")
		ib.Values(identifierType, value, normalizedValue, confidence, now, now, nullable(provenance))
		query, args = ib.Build()
		if _, err := tx.ExecContext(ctxTx, query, args...); err != nil {
			return fmt.Errorf("%w: insert identifier: %v", models.ErrStoreFailure, err)
		}
	case err != nil:
		return fmt.Errorf("%w: lookup identifier: %v", models.ErrStoreFailure, err)
	default:
		if existing.Confidence > confidence {
			confidence = existing.Confidence
		}
		// Fresh provenance wins; fall back to what was already recorded.
		prov := nullable(provenance)
		if prov == nil {
			prov = existing.Provenance
		}
		ub := s.flavor.NewUpdateBuilder()
		ub.Update("identifiers")
		ub.Set(
			ub.Assign("value", value),
			ub.Assign("confidence", confidence),
			ub.Assign("last_seen_at", now),
			ub.Assign("provenance", prov),
		)
		ub.Where(ub.Equal("identifier_type", identifierType), ub.Equal("normalized_value", normalizedValue))
		query, args = ub.Build()
		if _, err := tx.ExecContext(ctxTx, query, args...); err != nil {
			return fmt.Errorf("%w: update identifier: %v", models.ErrStoreFailure, err)
		}
	}

	if err := tx.Commit(ctxTx); err != nil {
		return fmt.Errorf("%w: commit identifier upsert: %v", models.ErrStoreFailure, err)
	}
	return nil
}

// AddAlias binds (identifierType, normalizedValue) to an entity. When the
// pair is already bound to the same canonical entity the confidence is bumped
// to the max seen and inserted is false. When it is bound to a different
// canonical entity nothing changes and that canonical id is returned so the
// caller can decide whether to merge.
func (s *Store) AddAlias(ctx context.Context, identifierType, normalizedValue, entityID string, confidence float64, causedBy, provenance string) (bool, string, error) {
	ctx, span := tracing.StartSpan(ctx, "store.Store.AddAlias")
	defer span.End()

	ctxTx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return false, "", fmt.Errorf("%w: begin alias add: %v", models.ErrStoreFailure, err)
	}
	defer tx.Rollback(ctx)

	existing, err := s.findAlias(ctxTx, tx, identifierType, normalizedValue)
	if err != nil {
		return false, "", err
	}
	targetCanonical, err := s.canonicalize(ctxTx, tx, entityID)
	if err != nil {
		return false, "", err
	}

	if existing != nil {
		existingCanonical, err := s.canonicalize(ctxTx, tx, existing.EntityID)
		if err != nil {
			return false, "", err
		}
		if existingCanonical != targetCanonical {
			return false, existingCanonical, nil
		}
		if existing.Confidence > confidence {
			confidence = existing.Confidence
		}
		prov := nullable(provenance)
		if prov == nil {
			prov = existing.Provenance
		}
		ub := s.flavor.NewUpdateBuilder()
		ub.Update("aliases")
		ub.Set(ub.Assign("confidence", confidence), ub.Assign("provenance", prov))
		ub.Where(ub.Equal("identifier_type", identifierType), ub.Equal("normalized_value", normalizedValue))
		query, args := ub.Build()
		if _, err := tx.ExecContext(ctxTx, query, args...); err != nil {
			return false, "", fmt.Errorf("%w: bump alias confidence: %v", models.ErrStoreFailure, err)
		}
		if err := tx.Commit(ctxTx); err != nil {
			return false, "", fmt.Errorf("%w: commit alias add: %v", models.ErrStoreFailure, err)
		}
		return false, "", nil
	}

	// The binding always lands on the canonical entity at write time.
	ib := s.flavor.NewInsertBuilder()
	ib.InsertInto("aliases")
	ib.Cols("identifier_type", "normalized_value", "entity_id", "confidence", "created_at", "caused_by", "provenance")
	ib.Values(identifierType, normalizedValue, targetCanonical, confidence, models.UTCNow(), causedBy, nullable(provenance))
	query, args := ib.Build()
	if _, err := tx.ExecContext(ctxTx, query, args...); err != nil {
		return false, "", fmt.Errorf("%w: insert alias: %v", models.ErrStoreFailure, err)
	}

	if err := tx.Commit(ctxTx); err != nil {
		return false, "", fmt.Errorf("%w: commit alias add: %v", models.ErrStoreFailure, err)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"identifier_type":  identifierType,
		"normalized_value": normalizedValue,
		"entity_id":        entityID,
	}).Debug("Added alias")
	return true, "", nil
}

// ListAliasesForEntity returns every alias whose binding canonicalizes to the
// same entity as entityID, ordered by (identifier_type, normalized_value).
func (s *Store) ListAliasesForEntity(ctx context.Context, entityID string) ([]models.Alias, error) {
	ctx, span := tracing.StartSpan(ctx, "store.Store.ListAliasesForEntity")
	defer span.End()

	canonical, err := s.canonicalize(ctx, s.db, entityID)
	if err != nil {
		return nil, err
	}

	sb := s.flavor.NewSelectBuilder()
	sb.Select("identifier_type", "normalized_value", "entity_id", "confidence", "created_at", "caused_by", "provenance")
	sb.From("aliases")

	query, args := sb.Build()
	all := []models.Alias{}
	if err := s.db.SelectContext(ctx, &all, query, args...); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to list aliases")
		return nil, fmt.Errorf("%w: list aliases: %v", models.ErrStoreFailure, err)
	}

	// Alias rows keep the entity id from write time; merges are resolved here
	// instead of rewriting rows. The cache keeps the walk linear.
	canonicalCache := map[string]string{}
	matched := []models.Alias{}
	for _, alias := range all {
		aliasCanonical, ok := canonicalCache[alias.EntityID]
		if !ok {
			aliasCanonical, err = s.canonicalize(ctx, s.db, alias.EntityID)
			if err != nil {
				return nil, err
			}
			canonicalCache[alias.EntityID] = aliasCanonical
		}
		if aliasCanonical == canonical {
			matched = append(matched, alias)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].IdentifierType != matched[j].IdentifierType {
			return matched[i].IdentifierType < matched[j].IdentifierType
		}
		return matched[i].NormalizedValue < matched[j].NormalizedValue
	})
	return matched, nil
}

// ListIdentifierRecordsForEntity returns the identifier observations behind
// every alias of the entity, in the same (identifier_type, normalized_value)
// order as ListAliasesForEntity.
func (s *Store) ListIdentifierRecordsForEntity(ctx context.Context, entityID string) ([]models.Identifier, error) {
	ctx, span := tracing.StartSpan(ctx, "store.Store.ListIdentifierRecordsForEntity")
	defer span.End()

	aliases, err := s.ListAliasesForEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}

	records := []models.Identifier{}
	for _, alias := range aliases {
		sb := s.flavor.NewSelectBuilder()
		sb.Select("identifier_type", "value", "normalized_value", "confidence", "first_seen_at", "last_seen_at", "provenance")
		sb.From("identifiers")
		sb.Where(sb.Equal("identifier_type", alias.IdentifierType), sb.Equal("normalized_value", alias.NormalizedValue))

		query, args := sb.Build()
		var record models.Identifier
		if err := s.db.GetContext(ctx, &record, query, args...); err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return nil, fmt.Errorf("%w: identifier record: %v", models.ErrStoreFailure, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// MatchedIdentifiersForEntity projects the identifier observations of an
// entity down to the fields returned with a resolution.
func (s *Store) MatchedIdentifiersForEntity(ctx context.Context, entityID string) ([]models.MatchedIdentifier, error) {
	records, err := s.ListIdentifierRecordsForEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	matched := make([]models.MatchedIdentifier, 0, len(records))
	for _, record := range records {
		matched = append(matched, models.MatchedIdentifier{
			IdentifierType:  record.IdentifierType,
			Value:           record.Value,
			NormalizedValue: record.NormalizedValue,
			Confidence:      record.Confidence,
		})
	}
	return matched, nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
