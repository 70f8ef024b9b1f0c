package tokens

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

func TestResolveTokenEntity(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	resolution, err := ResolveTokenEntity(ctx, r, "eth", "0xABC123", "")
	require.NoError(t, err)
	assert.True(t, resolution.CreatedNewEntity)
	assert.Equal(t, 0.99, resolution.Confidence)

	entity, err := r.Store().GetEntity(ctx, resolution.EntityID)
	require.NoError(t, err)
	assert.Equal(t, models.EntityTypeProject, entity.EntityType)

	// Same contract resolves to the same entity, case-insensitively.
	again, err := ResolveTokenEntity(ctx, r, "eth", "0xabc123", "")
	require.NoError(t, err)
	assert.Equal(t, resolution.EntityID, again.EntityID)
	assert.False(t, again.CreatedNewEntity)
}

func TestLinkTokenProjectCreator(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	links, err := LinkTokenProjectCreator(ctx, r, "eth", "0xABC123", "domain", "meta-game.example.com", "0xCREATOR", "")
	require.NoError(t, err)

	assert.NotEmpty(t, links.TokenEntityID)
	assert.NotEmpty(t, links.ProjectEntityID)
	assert.NotEmpty(t, links.CreatorEntityID)
	assert.NotEqual(t, links.ProjectEntityID, links.CreatorEntityID)

	// The creator is a person, the project a project.
	creator, err := r.Store().GetEntity(ctx, links.CreatorEntityID)
	require.NoError(t, err)
	assert.Equal(t, models.EntityTypePerson, creator.EntityType)

	project, err := r.Store().GetEntity(ctx, links.ProjectEntityID)
	require.NoError(t, err)
	assert.Equal(t, models.EntityTypeProject, project.EntityType)

	// The token entity is referenced from the project via token_entity_ref.
	alias, err := r.Store().FindAlias(ctx, "token_entity_ref", links.TokenEntityID)
	require.NoError(t, err)
	require.NotNil(t, alias)
	canonical, err := r.Store().Canonicalize(ctx, alias.EntityID)
	require.NoError(t, err)
	assert.Equal(t, links.ProjectEntityID, canonical)
}

func TestLinkTokenProjectCreatorWithoutWallet(t *testing.T) {
	r := newTestResolver(t)

	links, err := LinkTokenProjectCreator(context.Background(), r, "eth", "0xABC123", "domain", "example.com", "", "")
	require.NoError(t, err)
	assert.Empty(t, links.CreatorEntityID)
}

func TestAttributeTokenOutcome(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	links, err := LinkTokenProjectCreator(ctx, r, "eth", "0xABC123", "domain", "example.com", "0xCREATOR", "")
	require.NoError(t, err)

	result, err := AttributeTokenOutcome(ctx, r, map[string]string{
		"chain":            "eth",
		"contract_address": "0xABC123",
	})
	require.NoError(t, err)
	assert.Equal(t, links.TokenEntityID, result.EntityID)
	assert.Greater(t, result.Confidence, 0.0)

	// Creator wallet without chain prefix inherits the claim chain.
	result, err = AttributeTokenOutcome(ctx, r, map[string]string{
		"chain":          "eth",
		"creator_wallet": "0xCREATOR",
	})
	require.NoError(t, err)
	assert.Equal(t, links.CreatorEntityID, result.EntityID)
}

func TestAttributeTokenOutcomeEntityIDKeys(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	links, err := LinkTokenProjectCreator(ctx, r, "eth", "0xABC123", "domain", "example.com", "", "")
	require.NoError(t, err)

	result, err := AttributeTokenOutcome(ctx, r, map[string]string{
		"project_entity_id": links.ProjectEntityID,
	})
	require.NoError(t, err)
	assert.Equal(t, links.ProjectEntityID, result.EntityID)
}
