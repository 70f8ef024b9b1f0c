// Package events defines the emitted event contract and the in-memory buffer
// the resolver accumulates events into between drains.
package events

import (
	"sync"

	"github.com/Ramsey-B/laurel/pkg/models"
)

// SchemaVersion is stamped into every payload so downstream consumers can
// detect contract changes.
const SchemaVersion = "0.1"

// Event type names.
const (
	TypeEntityResolved   = "EntityResolved"
	TypeEntityMerged     = "EntityMerged"
	TypeEntityAliasAdded = "EntityAliasAdded"
)

// EmittedEvent is one buffered event. Payload keys are part of the public
// contract; do not rename them.
type EmittedEvent struct {
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload"`
}

// EntityResolved records that a resolve call landed on an entity. The
// resolver field names the actor that triggered the resolution.
func EntityResolved(entityID, resolver string, confidence float64) EmittedEvent {
	return EmittedEvent{
		EventType: TypeEntityResolved,
		Payload: map[string]any{
			"confidence":     confidence,
			"entity_id":      entityID,
			"resolved_at":    models.UTCNow(),
			"resolver":       resolver,
			"schema_version": SchemaVersion,
		},
	}
}

// EntityMerged records that the mergedFrom entities were folded into entityID.
func EntityMerged(entityID string, mergedFrom []string, reason string) EmittedEvent {
	return EmittedEvent{
		EventType: TypeEntityMerged,
		Payload: map[string]any{
			"entity_id":      entityID,
			"merged_at":      models.UTCNow(),
			"merged_from":    mergedFrom,
			"reason":         reason,
			"schema_version": SchemaVersion,
		},
	}
}

// EntityAliasAdded records a new alias binding on an entity.
func EntityAliasAdded(entityID, aliasType, alias string) EmittedEvent {
	return EmittedEvent{
		EventType: TypeEntityAliasAdded,
		Payload: map[string]any{
			"added_at":       models.UTCNow(),
			"alias":          alias,
			"alias_type":     aliasType,
			"entity_id":      entityID,
			"schema_version": SchemaVersion,
		},
	}
}

// Buffer accumulates events until a consumer drains them. Draining returns
// the events in emission order and empties the buffer.
type Buffer struct {
	mu     sync.Mutex
	events []EmittedEvent
}

func NewBuffer() *Buffer {
	return &Buffer{events: []EmittedEvent{}}
}

func (b *Buffer) Append(event EmittedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Drain returns all buffered events and resets the buffer.
func (b *Buffer) Drain() []EmittedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	drained := b.events
	b.events = []EmittedEvent{}
	return drained
}
