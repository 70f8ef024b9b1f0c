package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/laurel/pkg/models"
)

func TestAddAliasAndFindAlias(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entityID, err := s.CreateEntity(ctx, models.EntityTypePerson)
	require.NoError(t, err)

	inserted, conflicting, err := s.AddAlias(ctx, "email", "jane@example.com", entityID, 0.95, "tester", "crm")
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "", conflicting)

	alias, err := s.FindAlias(ctx, "email", "jane@example.com")
	require.NoError(t, err)
	require.NotNil(t, alias)
	assert.Equal(t, entityID, alias.EntityID)
	assert.Equal(t, 0.95, alias.Confidence)
	require.NotNil(t, alias.Provenance)
	assert.Equal(t, "crm", *alias.Provenance)
}

func TestFindAliasUnknownReturnsNil(t *testing.T) {
	s := newTestStore(t)

	alias, err := s.FindAlias(context.Background(), "email", "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, alias)
}

func TestAddAliasSameEntityBumpsConfidence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entityID, err := s.CreateEntity(ctx, models.EntityTypePerson)
	require.NoError(t, err)

	_, _, err = s.AddAlias(ctx, "email", "jane@example.com", entityID, 0.7, "tester", "")
	require.NoError(t, err)

	inserted, conflicting, err := s.AddAlias(ctx, "email", "jane@example.com", entityID, 0.9, "tester", "crm")
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, "", conflicting)

	alias, err := s.FindAlias(ctx, "email", "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0.9, alias.Confidence)
	require.NotNil(t, alias.Provenance)
	assert.Equal(t, "crm", *alias.Provenance)

	// A weaker re-add keeps the max.
	_, _, err = s.AddAlias(ctx, "email", "jane@example.com", entityID, 0.5, "tester", "")
	require.NoError(t, err)
	alias, err = s.FindAlias(ctx, "email", "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0.9, alias.Confidence)
}

func TestAddAliasConflictReportsCanonical(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner, err := s.CreateEntity(ctx, models.EntityTypePerson)
	require.NoError(t, err)
	other, err := s.CreateEntity(ctx, models.EntityTypePerson)
	require.NoError(t, err)

	_, _, err = s.AddAlias(ctx, "email", "jane@example.com", owner, 0.95, "tester", "")
	require.NoError(t, err)

	inserted, conflicting, err := s.AddAlias(ctx, "email", "jane@example.com", other, 0.9, "tester", "")
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, owner, conflicting)

	// The binding did not move.
	alias, err := s.FindAlias(ctx, "email", "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, owner, alias.EntityID)
}

func TestAddAliasLandsOnCanonicalEntity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	from, err := s.CreateEntity(ctx, models.EntityTypePerson)
	require.NoError(t, err)
	to, err := s.CreateEntity(ctx, models.EntityTypePerson)
	require.NoError(t, err)
	_, err = s.MergeEntities(ctx, from, to, "r", "tester")
	require.NoError(t, err)

	// Adding against the merged id stores the canonical id.
	inserted, _, err := s.AddAlias(ctx, "email", "jane@example.com", from, 0.9, "tester", "")
	require.NoError(t, err)
	assert.True(t, inserted)

	alias, err := s.FindAlias(ctx, "email", "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, to, alias.EntityID)
}

func TestUpsertIdentifier(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.UpsertIdentifier(ctx, "email", "Jane@Example.com", "jane@example.com", 0.8, "crm")
	require.NoError(t, err)

	var record models.Identifier
	getIdentifier := func() models.Identifier {
		err := s.db.GetContext(ctx, &record,
			"SELECT identifier_type, value, normalized_value, confidence, first_seen_at, last_seen_at, provenance FROM identifiers WHERE identifier_type = ? AND normalized_value = ?",
			"email", "jane@example.com")
		require.NoError(t, err)
		return record
	}

	first := getIdentifier()
	assert.Equal(t, "Jane@Example.com", first.Value)
	assert.Equal(t, 0.8, first.Confidence)
	require.NotNil(t, first.Provenance)
	assert.Equal(t, "crm", *first.Provenance)

	// Re-observation: raw value overwritten, max confidence kept, fresh
	// provenance wins.
	err = s.UpsertIdentifier(ctx, "email", "JANE@EXAMPLE.COM", "jane@example.com", 0.6, "signal")
	require.NoError(t, err)

	second := getIdentifier()
	assert.Equal(t, "JANE@EXAMPLE.COM", second.Value)
	assert.Equal(t, 0.8, second.Confidence)
	require.NotNil(t, second.Provenance)
	assert.Equal(t, "signal", *second.Provenance)
	assert.Equal(t, first.FirstSeenAt, second.FirstSeenAt)

	// Empty provenance falls back to the recorded one.
	err = s.UpsertIdentifier(ctx, "email", "jane@example.com", "jane@example.com", 0.9, "")
	require.NoError(t, err)
	third := getIdentifier()
	assert.Equal(t, 0.9, third.Confidence)
	require.NotNil(t, third.Provenance)
	assert.Equal(t, "signal", *third.Provenance)
}

func TestListAliasesForEntityFollowsMerges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.CreateEntity(ctx, models.EntityTypePerson)
	require.NoError(t, err)
	b, err := s.CreateEntity(ctx, models.EntityTypePerson)
	require.NoError(t, err)

	_, _, err = s.AddAlias(ctx, "email", "jane@example.com", a, 0.9, "tester", "")
	require.NoError(t, err)
	_, _, err = s.AddAlias(ctx, "twitter_handle", "jane", b, 0.8, "tester", "")
	require.NoError(t, err)

	_, err = s.MergeEntities(ctx, a, b, "r", "tester")
	require.NoError(t, err)

	// Both aliases now belong to the surviving entity, in (type, value) order.
	aliases, err := s.ListAliasesForEntity(ctx, b)
	require.NoError(t, err)
	require.Len(t, aliases, 2)
	assert.Equal(t, "email", aliases[0].IdentifierType)
	assert.Equal(t, "twitter_handle", aliases[1].IdentifierType)

	// Querying through the merged id yields the same view.
	viaMerged, err := s.ListAliasesForEntity(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, aliases, viaMerged)
}

func TestListIdentifierRecordsForEntity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entityID, err := s.CreateEntity(ctx, models.EntityTypePerson)
	require.NoError(t, err)

	require.NoError(t, s.UpsertIdentifier(ctx, "email", "Jane@Example.com", "jane@example.com", 0.9, "crm"))
	_, _, err = s.AddAlias(ctx, "email", "jane@example.com", entityID, 0.9, "tester", "crm")
	require.NoError(t, err)

	// Alias without a backing identifier row is skipped.
	_, _, err = s.AddAlias(ctx, "name", "jane doe", entityID, 0.7, "tester", "")
	require.NoError(t, err)

	records, err := s.ListIdentifierRecordsForEntity(ctx, entityID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "email", records[0].IdentifierType)
	assert.Equal(t, "Jane@Example.com", records[0].Value)

	matched, err := s.MatchedIdentifiersForEntity(ctx, entityID)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "jane@example.com", matched[0].NormalizedValue)
	assert.Equal(t, 0.9, matched[0].Confidence)
}
