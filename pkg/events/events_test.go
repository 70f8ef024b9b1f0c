package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityResolvedPayload(t *testing.T) {
	event := EntityResolved("ent_1", "resolver", 0.9512345678)

	assert.Equal(t, TypeEntityResolved, event.EventType)
	assert.Equal(t, "ent_1", event.Payload["entity_id"])
	assert.Equal(t, "resolver", event.Payload["resolver"])
	// confidence is carried through untouched
	assert.Equal(t, 0.9512345678, event.Payload["confidence"])
	assert.Equal(t, SchemaVersion, event.Payload["schema_version"])
	assert.NotEmpty(t, event.Payload["resolved_at"])
}

func TestEntityMergedPayload(t *testing.T) {
	event := EntityMerged("ent_to", []string{"ent_from"}, "manual cleanup")

	assert.Equal(t, TypeEntityMerged, event.EventType)
	assert.Equal(t, "ent_to", event.Payload["entity_id"])
	assert.Equal(t, []string{"ent_from"}, event.Payload["merged_from"])
	assert.Equal(t, "manual cleanup", event.Payload["reason"])
	assert.Equal(t, SchemaVersion, event.Payload["schema_version"])
	assert.NotEmpty(t, event.Payload["merged_at"])
}

func TestEntityAliasAddedPayload(t *testing.T) {
	event := EntityAliasAdded("ent_1", "email", "jane@example.com")

	assert.Equal(t, TypeEntityAliasAdded, event.EventType)
	assert.Equal(t, "ent_1", event.Payload["entity_id"])
	assert.Equal(t, "jane@example.com", event.Payload["alias"])
	assert.Equal(t, "email", event.Payload["alias_type"])
	assert.Equal(t, SchemaVersion, event.Payload["schema_version"])
	assert.NotEmpty(t, event.Payload["added_at"])
}

func TestBufferDrainPreservesOrderAndResets(t *testing.T) {
	buffer := NewBuffer()
	buffer.Append(EntityResolved("ent_1", "a", 0.9))
	buffer.Append(EntityResolved("ent_2", "b", 0.8))
	require.Equal(t, 2, buffer.Len())

	drained := buffer.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, "ent_1", drained[0].Payload["entity_id"])
	assert.Equal(t, "ent_2", drained[1].Payload["entity_id"])

	assert.Equal(t, 0, buffer.Len())
	assert.Empty(t, buffer.Drain())
}
