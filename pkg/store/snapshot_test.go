package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/laurel/pkg/models"
)

func TestSnapshotRoundTrip(t *testing.T) {
	source := newTestStore(t)
	ctx := context.Background()

	a, err := source.CreateEntity(ctx, models.EntityTypePerson)
	require.NoError(t, err)
	b, err := source.CreateEntity(ctx, models.EntityTypeProject)
	require.NoError(t, err)

	require.NoError(t, source.UpsertIdentifier(ctx, "email", "Jane@Example.com", "jane@example.com", 0.9, "crm"))
	_, _, err = source.AddAlias(ctx, "email", "jane@example.com", a, 0.9, "tester", "crm")
	require.NoError(t, err)

	_, err = source.MergeEntities(ctx, a, b, "duplicate", "tester")
	require.NoError(t, err)

	exported, err := source.ExportSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, exported.Entities, 2)
	require.Len(t, exported.Identifiers, 1)
	require.Len(t, exported.Aliases, 1)
	require.Len(t, exported.MergeRecords, 1)
	require.Len(t, exported.EntityRedirects, 1)

	target := newTestStore(t)
	require.NoError(t, target.RestoreSnapshot(ctx, exported))

	restored, err := target.ExportSnapshot(ctx)
	require.NoError(t, err)

	exportedJSON, err := json.Marshal(exported)
	require.NoError(t, err)
	restoredJSON, err := json.Marshal(restored)
	require.NoError(t, err)
	assert.JSONEq(t, string(exportedJSON), string(restoredJSON))

	// Behavior carries over, not just rows.
	canonical, err := target.Canonicalize(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, b, canonical)

	alias, err := target.FindAlias(ctx, "email", "jane@example.com")
	require.NoError(t, err)
	require.NotNil(t, alias)
	assert.Equal(t, a, alias.EntityID)
}

func TestRestoreSnapshotReplacesState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateEntity(ctx, models.EntityTypePerson)
	require.NoError(t, err)

	empty := &Snapshot{
		Entities:        []models.Entity{},
		Identifiers:     []models.Identifier{},
		Aliases:         []models.Alias{},
		MergeRecords:    []models.MergeRecord{},
		EntityRedirects: []models.EntityRedirect{},
	}
	require.NoError(t, s.RestoreSnapshot(ctx, empty))

	exported, err := s.ExportSnapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, exported.Entities)
}

func TestRestoreNilSnapshotFails(t *testing.T) {
	s := newTestStore(t)
	assert.ErrorIs(t, s.RestoreSnapshot(context.Background(), nil), models.ErrInvalidInput)
}
