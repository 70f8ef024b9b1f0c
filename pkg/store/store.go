// Package store persists the resolution tables: entities, identifiers,
// aliases, merge_records and entity_redirects. Every mutating method is its
// own transaction; partial failure rolls back the whole call.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/laurel/internal/database"
	"github.com/Ramsey-B/laurel/internal/tracing"
	"github.com/Ramsey-B/laurel/pkg/models"
)

// Store is the persistence layer for the resolver. It speaks either Postgres
// or the embedded SQLite database through the same builders.
type Store struct {
	db     database.DB
	flavor sqlbuilder.Flavor
	logger ectologger.Logger
}

// New creates a store over the given database handle.
func New(db database.DB, flavor sqlbuilder.Flavor, logger ectologger.Logger) *Store {
	return &Store{
		db:     db,
		flavor: flavor,
		logger: logger,
	}
}

// DB exposes the underlying database handle for transactional operations.
func (s *Store) DB() database.DB {
	return s.db
}

// queryer is the read surface shared by database.DB and database.Tx so the
// redirect walk can run inside or outside a transaction.
type queryer interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func newEntityID() string {
	return "ent_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// CreateEntity allocates a new active entity and returns its id.
func (s *Store) CreateEntity(ctx context.Context, entityType string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "store.Store.CreateEntity")
	defer span.End()

	entityID := newEntityID()
	now := models.UTCNow()

	ib := s.flavor.NewInsertBuilder()
	ib.InsertInto("entities")
	ib.Cols("entity_id", "entity_type", "created_at", "status")
	ib.Values(entityID, entityType, now, models.EntityStatusActive)

	query, args := ib.Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to create entity")
		return "", fmt.Errorf("%w: create entity: %v", models.ErrStoreFailure, err)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{"entity_id": entityID, "entity_type": entityType}).Debug("Created entity")
	return entityID, nil
}

// GetEntity returns the entity row, or nil when the id is unknown.
func (s *Store) GetEntity(ctx context.Context, entityID string) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "store.Store.GetEntity")
	defer span.End()

	sb := s.flavor.NewSelectBuilder()
	sb.Select("entity_id", "entity_type", "created_at", "status")
	sb.From("entities")
	sb.Where(sb.Equal("entity_id", entityID))

	query, args := sb.Build()
	var entity models.Entity
	if err := s.db.GetContext(ctx, &entity, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		s.logger.WithContext(ctx).WithError(err).Error("Failed to get entity")
		return nil, fmt.Errorf("%w: get entity: %v", models.ErrStoreFailure, err)
	}
	return &entity, nil
}

// EnsureEntity fails with ErrUnknownEntity when the id is not in the store.
func (s *Store) EnsureEntity(ctx context.Context, entityID string) error {
	entity, err := s.GetEntity(ctx, entityID)
	if err != nil {
		return err
	}
	if entity == nil {
		return fmt.Errorf("%w: %s", models.ErrUnknownEntity, entityID)
	}
	return nil
}

// Canonicalize follows the redirect chain from entityID to its terminal node.
// Revisiting a node means the redirect graph is corrupt and fails hard.
func (s *Store) Canonicalize(ctx context.Context, entityID string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "store.Store.Canonicalize")
	defer span.End()

	return s.canonicalize(ctx, s.db, entityID)
}

func (s *Store) canonicalize(ctx context.Context, q queryer, entityID string) (string, error) {
	current := entityID
	visited := map[string]bool{}
	for {
		if visited[current] {
			return "", fmt.Errorf("%w: for %s", models.ErrCycleInRedirects, entityID)
		}
		visited[current] = true

		target, err := s.redirectTarget(ctx, q, current)
		if err != nil {
			return "", err
		}
		if target == "" {
			return current, nil
		}
		current = target
	}
}

func (s *Store) redirectTarget(ctx context.Context, q queryer, fromEntityID string) (string, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select("to_entity_id")
	sb.From("entity_redirects")
	sb.Where(sb.Equal("from_entity_id", fromEntityID))

	query, args := sb.Build()
	var target string
	if err := q.GetContext(ctx, &target, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("%w: redirect lookup: %v", models.ErrStoreFailure, err)
	}
	return target, nil
}

// GetRedirectTarget returns the direct redirect target of an entity, or ""
// when the entity has no outbound redirect.
func (s *Store) GetRedirectTarget(ctx context.Context, fromEntityID string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "store.Store.GetRedirectTarget")
	defer span.End()

	return s.redirectTarget(ctx, s.db, fromEntityID)
}

// RemoveRedirect deletes the outbound redirect of an entity.
func (s *Store) RemoveRedirect(ctx context.Context, fromEntityID string) error {
	ctx, span := tracing.StartSpan(ctx, "store.Store.RemoveRedirect")
	defer span.End()

	db := s.flavor.NewDeleteBuilder()
	db.DeleteFrom("entity_redirects")
	db.Where(db.Equal("from_entity_id", fromEntityID))

	query, args := db.Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to remove redirect")
		return fmt.Errorf("%w: remove redirect: %v", models.ErrStoreFailure, err)
	}
	return nil
}

// SetEntityStatus flips an entity between active and merged.
func (s *Store) SetEntityStatus(ctx context.Context, entityID, status string) error {
	ctx, span := tracing.StartSpan(ctx, "store.Store.SetEntityStatus")
	defer span.End()

	return s.setEntityStatus(ctx, s.db, entityID, status)
}

func (s *Store) setEntityStatus(ctx context.Context, q queryer, entityID, status string) error {
	ub := s.flavor.NewUpdateBuilder()
	ub.Update("entities")
	ub.Set(ub.Assign("status", status))
	ub.Where(ub.Equal("entity_id", entityID))

	query, args := ub.Build()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to set entity status")
		return fmt.Errorf("%w: set entity status: %v", models.ErrStoreFailure, err)
	}
	return nil
}

// MergeEntities points the canonical of from at the canonical of to, flips
// statuses and appends a merge record. Returns the new merge id. The alias
// rows are untouched; canonicalization happens at read time.
func (s *Store) MergeEntities(ctx context.Context, fromEntityID, toEntityID, reason, causedBy string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "store.Store.MergeEntities")
	defer span.End()

	ctxTx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin merge: %v", models.ErrStoreFailure, err)
	}
	defer tx.Rollback(ctx)

	fromCanonical, err := s.canonicalize(ctxTx, tx, fromEntityID)
	if err != nil {
		return 0, err
	}
	toCanonical, err := s.canonicalize(ctxTx, tx, toEntityID)
	if err != nil {
		return 0, err
	}

	if fromCanonical == toCanonical {
		return 0, fmt.Errorf("%w: %s and %s", models.ErrAlreadyMerged, fromEntityID, toEntityID)
	}

	timestamp := models.UTCNow()

	// Replace any existing redirect row for fromCanonical.
	del := s.flavor.NewDeleteBuilder()
	del.DeleteFrom("entity_redirects")
	del.Where(del.Equal("from_entity_id", fromCanonical))
	query, args := del.Build()
	if _, err := tx.ExecContext(ctxTx, query, args...); err != nil {
		return 0, fmt.Errorf("%w: replace redirect: %v", models.ErrStoreFailure, err)
	}

	ib := s.flavor.NewInsertBuilder()
	ib.InsertInto("entity_redirects")
	ib.Cols("from_entity_id", "to_entity_id", "timestamp", "reason", "caused_by")
	ib.Values(fromCanonical, toCanonical, timestamp, reason, causedBy)
	query, args = ib.Build()
	if _, err := tx.ExecContext(ctxTx, query, args...); err != nil {
		return 0, fmt.Errorf("%w: insert redirect: %v", models.ErrStoreFailure, err)
	}

	if err := s.setEntityStatus(ctxTx, tx, fromCanonical, models.EntityStatusMerged); err != nil {
		return 0, err
	}
	if err := s.setEntityStatus(ctxTx, tx, toCanonical, models.EntityStatusActive); err != nil {
		return 0, err
	}

	// Next id computed in-transaction keeps merge ids strictly increasing
	// without relying on dialect-specific sequences.
	var mergeID int64
	if err := tx.GetContext(ctxTx, &mergeID, "SELECT COALESCE(MAX(merge_id), 0) + 1 FROM merge_records"); err != nil {
		return 0, fmt.Errorf("%w: next merge id: %v", models.ErrStoreFailure, err)
	}

	ib = s.flavor.NewInsertBuilder()
	ib.InsertInto("merge_records")
	ib.Cols("merge_id", "from_entity_id", "to_entity_id", "reason", "timestamp", "caused_by")
	ib.Values(mergeID, fromCanonical, toCanonical, reason, timestamp, causedBy)
	query, args = ib.Build()
	if _, err := tx.ExecContext(ctxTx, query, args...); err != nil {
		return 0, fmt.Errorf("%w: append merge record: %v", models.ErrStoreFailure, err)
	}

	if err := tx.Commit(ctxTx); err != nil {
		return 0, fmt.Errorf("%w: commit merge: %v", models.ErrStoreFailure, err)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"merge_id": mergeID,
		"from":     fromCanonical,
		"to":       toCanonical,
		"reason":   reason,
	}).Info("Merged entities")
	return mergeID, nil
}

// ListMergeHistory returns the full merge ledger in ascending merge id order.
func (s *Store) ListMergeHistory(ctx context.Context) ([]models.MergeRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "store.Store.ListMergeHistory")
	defer span.End()

	sb := s.flavor.NewSelectBuilder()
	sb.Select("merge_id", "from_entity_id", "to_entity_id", "reason", "timestamp", "caused_by")
	sb.From("merge_records")
	sb.OrderBy("merge_id")

	query, args := sb.Build()
	records := []models.MergeRecord{}
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to list merge history")
		return nil, fmt.Errorf("%w: list merge history: %v", models.ErrStoreFailure, err)
	}
	return records, nil
}
