package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/Ramsey-B/laurel/internal/tracing"
	"github.com/Ramsey-B/laurel/pkg/models"
)

// Snapshot is a full, deterministic dump of the resolution state. Two stores
// holding the same state export byte-identical snapshots once marshalled.
type Snapshot struct {
	Entities        []models.Entity         `json:"entities"`
	Identifiers     []models.Identifier     `json:"identifiers"`
	Aliases         []models.Alias          `json:"aliases"`
	MergeRecords    []models.MergeRecord    `json:"merge_records"`
	EntityRedirects []models.EntityRedirect `json:"entity_redirects"`
}

// ExportSnapshot reads every table and returns the rows in canonical order.
func (s *Store) ExportSnapshot(ctx context.Context) (*Snapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "store.Store.ExportSnapshot")
	defer span.End()

	snapshot := &Snapshot{
		Entities:        []models.Entity{},
		Identifiers:     []models.Identifier{},
		Aliases:         []models.Alias{},
		MergeRecords:    []models.MergeRecord{},
		EntityRedirects: []models.EntityRedirect{},
	}

	sb := s.flavor.NewSelectBuilder()
	sb.Select("entity_id", "entity_type", "created_at", "status")
	sb.From("entities")
	query, args := sb.Build()
	if err := s.db.SelectContext(ctx, &snapshot.Entities, query, args...); err != nil {
		return nil, fmt.Errorf("%w: export entities: %v", models.ErrStoreFailure, err)
	}

	sb = s.flavor.NewSelectBuilder()
	sb.Select("identifier_type", "value", "normalized_value", "confidence", "first_seen_at", "last_seen_at", "provenance")
	sb.From("identifiers")
	query, args = sb.Build()
	if err := s.db.SelectContext(ctx, &snapshot.Identifiers, query, args...); err != nil {
		return nil, fmt.Errorf("%w: export identifiers: %v", models.ErrStoreFailure, err)
	}

	sb = s.flavor.NewSelectBuilder()
	sb.Select("identifier_type", "normalized_value", "entity_id", "confidence", "created_at", "caused_by", "provenance")
	sb.From("aliases")
	query, args = sb.Build()
	if err := s.db.SelectContext(ctx, &snapshot.Aliases, query, args...); err != nil {
		return nil, fmt.Errorf("%w: export aliases: %v", models.ErrStoreFailure, err)
	}

	sb = s.flavor.NewSelectBuilder()
	sb.Select("merge_id", "from_entity_id", "to_entity_id", "reason", "timestamp", "caused_by")
	sb.From("merge_records")
	query, args = sb.Build()
	if err := s.db.SelectContext(ctx, &snapshot.MergeRecords, query, args...); err != nil {
		return nil, fmt.Errorf("%w: export merge records: %v", models.ErrStoreFailure, err)
	}

	sb = s.flavor.NewSelectBuilder()
	sb.Select("from_entity_id", "to_entity_id", "timestamp", "reason", "caused_by")
	sb.From("entity_redirects")
	query, args = sb.Build()
	if err := s.db.SelectContext(ctx, &snapshot.EntityRedirects, query, args...); err != nil {
		return nil, fmt.Errorf("%w: export redirects: %v", models.ErrStoreFailure, err)
	}

	sort.Slice(snapshot.Entities, func(i, j int) bool {
		return snapshot.Entities[i].EntityID < snapshot.Entities[j].EntityID
	})
	sort.Slice(snapshot.Identifiers, func(i, j int) bool {
		a, b := snapshot.Identifiers[i], snapshot.Identifiers[j]
		if a.IdentifierType != b.IdentifierType {
			return a.IdentifierType < b.IdentifierType
		}
		return a.NormalizedValue < b.NormalizedValue
	})
	sort.Slice(snapshot.Aliases, func(i, j int) bool {
		a, b := snapshot.Aliases[i], snapshot.Aliases[j]
		if a.IdentifierType != b.IdentifierType {
			return a.IdentifierType < b.IdentifierType
		}
		return a.NormalizedValue < b.NormalizedValue
	})
	sort.Slice(snapshot.MergeRecords, func(i, j int) bool {
		return snapshot.MergeRecords[i].MergeID < snapshot.MergeRecords[j].MergeID
	})
	sort.Slice(snapshot.EntityRedirects, func(i, j int) bool {
		return snapshot.EntityRedirects[i].FromEntityID < snapshot.EntityRedirects[j].FromEntityID
	})

	return snapshot, nil
}

// RestoreSnapshot replaces the entire store contents with the snapshot in a
// single transaction.
func (s *Store) RestoreSnapshot(ctx context.Context, snapshot *Snapshot) error {
	ctx, span := tracing.StartSpan(ctx, "store.Store.RestoreSnapshot")
	defer span.End()

	if snapshot == nil {
		return fmt.Errorf("%w: nil snapshot", models.ErrInvalidInput)
	}

	ctxTx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin restore: %v", models.ErrStoreFailure, err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"entities", "identifiers", "aliases", "merge_records", "entity_redirects"} {
		db := s.flavor.NewDeleteBuilder()
		db.DeleteFrom(table)
		query, args := db.Build()
		if _, err := tx.ExecContext(ctxTx, query, args...); err != nil {
			return fmt.Errorf("%w: clear %s: %v", models.ErrStoreFailure, table, err)
		}
	}

	for _, entity := range snapshot.Entities {
		ib := s.flavor.NewInsertBuilder()
		ib.InsertInto("entities")
		ib.Cols("entity_id", "entity_type", "created_at", "status")
		ib.Values(entity.EntityID, entity.EntityType, entity.CreatedAt, entity.Status)
		query, args := ib.Build()
		if _, err := tx.ExecContext(ctxTx, query, args...); err != nil {
			return fmt.Errorf("%w: restore entity: %v", models.ErrStoreFailure, err)
		}
	}

	for _, identifier := range snapshot.Identifiers {
		ib := s.flavor.NewInsertBuilder()
		ib.InsertInto("identifiers")
		ib.Cols("identifier_type", "value", "normalized_value", "confidence", "first_seen_at", "last_seen_at", "provenance")
		ib.Values(identifier.IdentifierType, identifier.Value, identifier.NormalizedValue, identifier.Confidence, identifier.FirstSeenAt, identifier.LastSeenAt, identifier.Provenance)
		query, args := ib.Build()
		if _, err := tx.ExecContext(ctxTx, query, args...); err != nil {
			return fmt.Errorf("%w: restore identifier: %v", models.ErrStoreFailure, err)
		}
	}

	for _, alias := range snapshot.Aliases {
		ib := s.flavor.NewInsertBuilder()
		ib.InsertInto("aliases")
		ib.Cols("identifier_type", "normalized_value", "entity_id", "confidence", "created_at", "caused_by", "provenance")
		ib.Values(alias.IdentifierType, alias.NormalizedValue, alias.EntityID, alias.Confidence, alias.CreatedAt, alias.CausedBy, alias.Provenance)
		query, args := ib.Build()
		if _, err := tx.ExecContext(ctxTx, query, args...); err != nil {
			return fmt.Errorf("%w: restore alias: %v", models.ErrStoreFailure, err)
		}
	}

	for _, record := range snapshot.MergeRecords {
		ib := s.flavor.NewInsertBuilder()
		ib.InsertInto("merge_records")
		ib.Cols("merge_id", "from_entity_id", "to_entity_id", "reason", "timestamp", "caused_by")
		ib.Values(record.MergeID, record.FromEntityID, record.ToEntityID, record.Reason, record.Timestamp, record.CausedBy)
		query, args := ib.Build()
		if _, err := tx.ExecContext(ctxTx, query, args...); err != nil {
			return fmt.Errorf("%w: restore merge record: %v", models.ErrStoreFailure, err)
		}
	}

	for _, redirect := range snapshot.EntityRedirects {
		ib := s.flavor.NewInsertBuilder()
		ib.InsertInto("entity_redirects")
		ib.Cols("from_entity_id", "to_entity_id", "timestamp", "reason", "caused_by")
		ib.Values(redirect.FromEntityID, redirect.ToEntityID, redirect.Timestamp, redirect.Reason, redirect.CausedBy)
		query, args := ib.Build()
		if _, err := tx.ExecContext(ctxTx, query, args...); err != nil {
			return fmt.Errorf("%w: restore redirect: %v", models.ErrStoreFailure, err)
		}
	}

	if err := tx.Commit(ctxTx); err != nil {
		return fmt.Errorf("%w: commit restore: %v", models.ErrStoreFailure, err)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"entities": len(snapshot.Entities),
		"aliases":  len(snapshot.Aliases),
	}).Info("Restored snapshot")
	return nil
}
