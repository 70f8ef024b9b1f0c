package rewards

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/resolver"
	"github.com/Ramsey-B/laurel/pkg/store"
)

func newTestResolver(t *testing.T) *resolver.Resolver {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	db, err := store.OpenSQLite(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return resolver.New(store.New(db, sqlbuilder.SQLite, logger), logger)
}

func TestResolvePlayerWallet(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	resolution, err := ResolvePlayerWallet(ctx, r, "0xPLAYER", "", "")
	require.NoError(t, err)
	assert.True(t, resolution.CreatedNewEntity)
	assert.Equal(t, 0.97, resolution.Confidence)

	entity, err := r.Store().GetEntity(ctx, resolution.EntityID)
	require.NoError(t, err)
	assert.Equal(t, models.EntityTypePerson, entity.EntityType)

	// The default chain namespaces the wallet as eth.
	alias, err := r.Store().FindAlias(ctx, "player_wallet", "eth:0xplayer")
	require.NoError(t, err)
	require.NotNil(t, alias)
	assert.Equal(t, resolution.EntityID, alias.EntityID)

	again, err := ResolvePlayerWallet(ctx, r, "0xplayer", "eth", "")
	require.NoError(t, err)
	assert.Equal(t, resolution.EntityID, again.EntityID)
}

func TestResolveFounderWallet(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	resolution, err := ResolveFounderWallet(ctx, r, "0xFOUNDER", "sol", "")
	require.NoError(t, err)
	assert.Equal(t, 0.98, resolution.Confidence)

	alias, err := r.Store().FindAlias(ctx, "founder_wallet", "sol:0xfounder")
	require.NoError(t, err)
	require.NotNil(t, alias)
}

func TestAttributeSeasonRewardByWallet(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	player, err := ResolvePlayerWallet(ctx, r, "0xPLAYER", "eth", "")
	require.NoError(t, err)

	// Bare wallet inherits the claim chain.
	result, err := AttributeSeasonReward(ctx, r, map[string]string{
		"chain":         "ETH",
		"player_wallet": "0xPLAYER",
	})
	require.NoError(t, err)
	assert.Equal(t, player.EntityID, result.EntityID)

	// Pre-namespaced wallet passes through unchanged.
	result, err = AttributeSeasonReward(ctx, r, map[string]string{
		"player_wallet": "eth:0xPLAYER",
	})
	require.NoError(t, err)
	assert.Equal(t, player.EntityID, result.EntityID)
}

func TestAttributeSeasonRewardByEntityID(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	player, err := ResolvePlayerWallet(ctx, r, "0xPLAYER", "eth", "")
	require.NoError(t, err)

	result, err := AttributeSeasonReward(ctx, r, map[string]string{
		"player_entity_id": player.EntityID,
	})
	require.NoError(t, err)
	assert.Equal(t, player.EntityID, result.EntityID)
}

func TestAttributeSeasonRewardNoMatch(t *testing.T) {
	r := newTestResolver(t)

	result, err := AttributeSeasonReward(context.Background(), r, map[string]string{
		"player_wallet": "eth:0xUNKNOWN",
	})
	require.NoError(t, err)
	assert.Equal(t, "", result.EntityID)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestPlayerConfidenceSummary(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	player, err := ResolvePlayerWallet(ctx, r, "0xPLAYER", "eth", "")
	require.NoError(t, err)
	_, err = r.AddAlias(ctx, player.EntityID, "email", "player@example.com", models.ResolveOptions{Provenance: "season-signup"})
	require.NoError(t, err)

	summary, err := PlayerConfidenceSummary(ctx, r, player.EntityID)
	require.NoError(t, err)
	assert.Equal(t, player.EntityID, summary.EntityID)
	assert.Greater(t, summary.Summary.OverallConfidence, 0.0)
	assert.Equal(t, 2, summary.Summary.EvidenceCount)
}
