package store

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/laurel/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	db, err := OpenSQLite(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, sqlbuilder.SQLite, logger)
}

func TestCreateAndGetEntity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entityID, err := s.CreateEntity(ctx, models.EntityTypePerson)
	require.NoError(t, err)
	assert.Contains(t, entityID, "ent_")

	entity, err := s.GetEntity(ctx, entityID)
	require.NoError(t, err)
	require.NotNil(t, entity)
	assert.Equal(t, models.EntityTypePerson, entity.EntityType)
	assert.Equal(t, models.EntityStatusActive, entity.Status)
	assert.NotEmpty(t, entity.CreatedAt)
}

func TestGetEntityUnknownReturnsNil(t *testing.T) {
	s := newTestStore(t)

	entity, err := s.GetEntity(context.Background(), "ent_missing")
	require.NoError(t, err)
	assert.Nil(t, entity)
}

func TestEnsureEntity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entityID, err := s.CreateEntity(ctx, models.EntityTypePerson)
	require.NoError(t, err)

	assert.NoError(t, s.EnsureEntity(ctx, entityID))
	assert.ErrorIs(t, s.EnsureEntity(ctx, "ent_missing"), models.ErrUnknownEntity)
}

func TestCanonicalizeWithoutRedirect(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entityID, err := s.CreateEntity(ctx, models.EntityTypePerson)
	require.NoError(t, err)

	canonical, err := s.Canonicalize(ctx, entityID)
	require.NoError(t, err)
	assert.Equal(t, entityID, canonical)
}

func TestMergeEntities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	from, err := s.CreateEntity(ctx, models.EntityTypePerson)
	require.NoError(t, err)
	to, err := s.CreateEntity(ctx, models.EntityTypePerson)
	require.NoError(t, err)

	mergeID, err := s.MergeEntities(ctx, from, to, "duplicate profile", "tester")
	require.NoError(t, err)
	assert.Equal(t, int64(1), mergeID)

	canonical, err := s.Canonicalize(ctx, from)
	require.NoError(t, err)
	assert.Equal(t, to, canonical)

	fromEntity, err := s.GetEntity(ctx, from)
	require.NoError(t, err)
	assert.Equal(t, models.EntityStatusMerged, fromEntity.Status)

	toEntity, err := s.GetEntity(ctx, to)
	require.NoError(t, err)
	assert.Equal(t, models.EntityStatusActive, toEntity.Status)
}

func TestMergeEntitiesAlreadyMerged(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	from, err := s.CreateEntity(ctx, models.EntityTypePerson)
	require.NoError(t, err)
	to, err := s.CreateEntity(ctx, models.EntityTypePerson)
	require.NoError(t, err)

	_, err = s.MergeEntities(ctx, from, to, "first", "tester")
	require.NoError(t, err)

	// Both now canonicalize to the same entity.
	_, err = s.MergeEntities(ctx, from, to, "second", "tester")
	assert.ErrorIs(t, err, models.ErrAlreadyMerged)

	_, err = s.MergeEntities(ctx, from, from, "self", "tester")
	assert.ErrorIs(t, err, models.ErrAlreadyMerged)
}

func TestMergeIDsAreMonotonic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.CreateEntity(ctx, models.EntityTypePerson)
	b, _ := s.CreateEntity(ctx, models.EntityTypePerson)
	c, _ := s.CreateEntity(ctx, models.EntityTypePerson)

	first, err := s.MergeEntities(ctx, a, b, "r1", "tester")
	require.NoError(t, err)
	second, err := s.MergeEntities(ctx, b, c, "r2", "tester")
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)

	history, err := s.ListMergeHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "r1", history[0].Reason)
	assert.Equal(t, "r2", history[1].Reason)
}

func TestMergeChainCanonicalizesTransitively(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.CreateEntity(ctx, models.EntityTypePerson)
	b, _ := s.CreateEntity(ctx, models.EntityTypePerson)
	c, _ := s.CreateEntity(ctx, models.EntityTypePerson)

	_, err := s.MergeEntities(ctx, a, b, "r1", "tester")
	require.NoError(t, err)
	_, err = s.MergeEntities(ctx, b, c, "r2", "tester")
	require.NoError(t, err)

	canonical, err := s.Canonicalize(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, c, canonical)
}

func TestCanonicalizeDetectsCycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Force a corrupt redirect pair directly; the API never produces one.
	now := models.UTCNow()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO entity_redirects (from_entity_id, to_entity_id, timestamp, reason, caused_by) VALUES (?, ?, ?, ?, ?)",
		"ent_x", "ent_y", now, "corrupt", "test")
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO entity_redirects (from_entity_id, to_entity_id, timestamp, reason, caused_by) VALUES (?, ?, ?, ?, ?)",
		"ent_y", "ent_x", now, "corrupt", "test")
	require.NoError(t, err)

	_, err = s.Canonicalize(ctx, "ent_x")
	assert.ErrorIs(t, err, models.ErrCycleInRedirects)
}

func TestGetRedirectTarget(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.CreateEntity(ctx, models.EntityTypePerson)
	b, _ := s.CreateEntity(ctx, models.EntityTypePerson)

	target, err := s.GetRedirectTarget(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "", target)

	_, err = s.MergeEntities(ctx, a, b, "r", "tester")
	require.NoError(t, err)

	target, err = s.GetRedirectTarget(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, b, target)

	require.NoError(t, s.RemoveRedirect(ctx, a))
	target, err = s.GetRedirectTarget(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "", target)
}
