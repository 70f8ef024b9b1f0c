// Package models defines the core entity resolution records
package models

import (
	"math"
	"time"
)

// Default confidences applied when the caller does not supply one
const (
	DefaultMatchConfidence     = 0.95
	DefaultNewEntityConfidence = 0.6
)

// EntityStatus values
const (
	EntityStatusActive = "active"
	EntityStatusMerged = "merged"
)

// EntityType values. The set is advisory; callers may pass other strings.
const (
	EntityTypePerson  = "person"
	EntityTypeOrg     = "org"
	EntityTypeProject = "project"
)

// Entity is an opaque identity collecting identifiers believed to refer to
// the same real-world actor. Entities are never deleted; a merged entity
// persists as a redirect source.
type Entity struct {
	EntityID   string `json:"entity_id" db:"entity_id"`
	EntityType string `json:"entity_type" db:"entity_type"`
	CreatedAt  string `json:"created_at" db:"created_at"`
	Status     string `json:"status" db:"status"`
}

// Identifier is a typed observation. Unique on (identifier_type, normalized_value).
// Re-observation overwrites value, keeps max confidence, refreshes last_seen_at
// and fills provenance if previously empty.
type Identifier struct {
	IdentifierType  string  `json:"identifier_type" db:"identifier_type"`
	Value           string  `json:"value" db:"value"`
	NormalizedValue string  `json:"normalized_value" db:"normalized_value"`
	Confidence      float64 `json:"confidence" db:"confidence"`
	FirstSeenAt     string  `json:"first_seen_at" db:"first_seen_at"`
	LastSeenAt      string  `json:"last_seen_at" db:"last_seen_at"`
	Provenance      *string `json:"provenance,omitempty" db:"provenance"`
}

// Alias binds an identifier to an entity. Unique on (identifier_type,
// normalized_value); this is the resolution index. The stored entity_id is the
// canonical id at write time; readers must re-canonicalize after merges.
type Alias struct {
	IdentifierType  string  `json:"identifier_type" db:"identifier_type"`
	NormalizedValue string  `json:"normalized_value" db:"normalized_value"`
	EntityID        string  `json:"entity_id" db:"entity_id"`
	Confidence      float64 `json:"confidence" db:"confidence"`
	CreatedAt       string  `json:"created_at" db:"created_at"`
	CausedBy        string  `json:"caused_by" db:"caused_by"`
	Provenance      *string `json:"provenance,omitempty" db:"provenance"`
}

// MergeRecord is one row of the append-only merge ledger.
type MergeRecord struct {
	MergeID      int64  `json:"merge_id" db:"merge_id"`
	FromEntityID string `json:"from_entity_id" db:"from_entity_id"`
	ToEntityID   string `json:"to_entity_id" db:"to_entity_id"`
	Reason       string `json:"reason" db:"reason"`
	Timestamp    string `json:"timestamp" db:"timestamp"`
	CausedBy     string `json:"caused_by" db:"caused_by"`
}

// EntityRedirect points a merged entity at its survivor. Keyed by
// from_entity_id; the redirects collectively form a forest.
type EntityRedirect struct {
	FromEntityID string `json:"from_entity_id" db:"from_entity_id"`
	ToEntityID   string `json:"to_entity_id" db:"to_entity_id"`
	Timestamp    string `json:"timestamp" db:"timestamp"`
	Reason       string `json:"reason" db:"reason"`
	CausedBy     string `json:"caused_by" db:"caused_by"`
}

// MatchedIdentifier is the identifier projection returned with a resolution.
type MatchedIdentifier struct {
	IdentifierType  string  `json:"identifier_type"`
	Value           string  `json:"value"`
	NormalizedValue string  `json:"normalized_value"`
	Confidence      float64 `json:"confidence"`
}

// EntityResolution is the outcome of a resolve call.
type EntityResolution struct {
	EntityID           string              `json:"entity_id"`
	Confidence         float64             `json:"confidence"`
	CreatedNewEntity   bool                `json:"created_new_entity"`
	MatchedIdentifiers []MatchedIdentifier `json:"matched_identifiers"`
}

// ResolveOptions carries the optional knobs on a resolve call. Zero values
// fall back to the documented defaults.
type ResolveOptions struct {
	Confidence float64
	EntityType string
	CausedBy   string
	Provenance string
}

// UTCNow returns the current time formatted the way every timestamp in the
// store is kept: RFC3339, UTC, second precision.
func UTCNow() string {
	return time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
}

// Round6 rounds to six decimal places. All confidences and scores surfaced
// outside the store go through this so payloads compare stably.
func Round6(x float64) float64 {
	return math.Round(x*1e6) / 1e6
}
