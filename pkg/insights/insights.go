// Package insights derives read-model views over an entity's evidence:
// confidence summaries, entity context and recommendation context.
package insights

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/Ramsey-B/laurel/pkg/models"
)

// TypeRollup summarizes the identifier observations of one identifier type.
type TypeRollup struct {
	Count         float64 `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
	MaxConfidence float64 `json:"max_confidence"`
}

// ConfidenceSummary is the weighted identity-confidence view of an entity.
type ConfidenceSummary struct {
	OverallConfidence       float64               `json:"overall_confidence"`
	IdentifierConfidenceAvg float64               `json:"identifier_confidence_avg"`
	AliasConfidenceAvg      float64               `json:"alias_confidence_avg"`
	UniqueSourceCount       int                   `json:"unique_source_count"`
	EvidenceCount           int                   `json:"evidence_count"`
	ByIdentifierType        map[string]TypeRollup `json:"by_identifier_type"`
}

// EntityContext is the full evidence dossier for an entity.
type EntityContext struct {
	EntityID          string              `json:"entity_id"`
	Aliases           []models.Alias      `json:"aliases"`
	Identifiers       []models.Identifier `json:"identifiers"`
	RecentEvidence    []models.Identifier `json:"recent_evidence"`
	ConfidenceSummary ConfidenceSummary   `json:"confidence_summary"`
}

// InteractionHistorySummary counts evidence per provenance source.
type InteractionHistorySummary struct {
	EvidenceCount   int            `json:"evidence_count"`
	DistinctSources int            `json:"distinct_sources"`
	Sources         map[string]int `json:"sources"`
}

// Continuity ties a recommendation context back to the canonical entity.
type Continuity struct {
	CanonicalEntityID string `json:"canonical_entity_id"`
	AliasCount        int    `json:"alias_count"`
	IdentifierCount   int    `json:"identifier_count"`
}

// RecencyDays is a day count that renders as JSON null when the entity has
// never been seen (the value is +Inf).
type RecencyDays float64

func (r RecencyDays) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(r), 1) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(r), 'g', -1, 64)), nil
}

// RecommendationContext is the outreach-planning view of an entity.
type RecommendationContext struct {
	EntityID                  string                    `json:"entity_id"`
	IdentityConfidence        float64                   `json:"identity_confidence"`
	ActivityRecencyDays       RecencyDays               `json:"activity_recency_days"`
	InteractionHistorySummary InteractionHistorySummary `json:"interaction_history_summary"`
	PreferredChannelHint      string                    `json:"preferred_channel_hint"`
	RelationshipStageHint     string                    `json:"relationship_stage_hint"`
	Continuity                Continuity                `json:"continuity"`
}

// Relationship stage hints, strongest first.
const (
	StageEngaged = "engaged"
	StageWarm    = "warm"
	StageCold    = "cold"
)

// BuildConfidenceSummary computes the weighted confidence view. Identifier
// confidence carries most of the weight, alias confidence some, and source
// diversity (capped at three distinct sources) the remainder.
func BuildConfidenceSummary(aliases []models.Alias, identifiers, evidence []models.Identifier) ConfidenceSummary {
	identifierAvg := avgIdentifierConfidence(identifiers)
	aliasAvg := avgAliasConfidence(aliases)

	sources := map[string]bool{}
	for _, item := range evidence {
		if item.Provenance != nil && *item.Provenance != "" {
			sources[*item.Provenance] = true
		}
	}
	sourceDiversity := math.Min(1.0, float64(len(sources))/3.0)

	overall := math.Min(1.0, 0.65*identifierAvg+0.25*aliasAvg+0.10*sourceDiversity)

	return ConfidenceSummary{
		OverallConfidence:       models.Round6(overall),
		IdentifierConfidenceAvg: models.Round6(identifierAvg),
		AliasConfidenceAvg:      models.Round6(aliasAvg),
		UniqueSourceCount:       len(sources),
		EvidenceCount:           len(evidence),
		ByIdentifierType:        rollupByIdentifierType(identifiers),
	}
}

func avgIdentifierConfidence(identifiers []models.Identifier) float64 {
	if len(identifiers) == 0 {
		return 0.0
	}
	var sum float64
	for _, item := range identifiers {
		sum += item.Confidence
	}
	return sum / float64(len(identifiers))
}

func avgAliasConfidence(aliases []models.Alias) float64 {
	if len(aliases) == 0 {
		return 0.0
	}
	var sum float64
	for _, item := range aliases {
		sum += item.Confidence
	}
	return sum / float64(len(aliases))
}

func rollupByIdentifierType(identifiers []models.Identifier) map[string]TypeRollup {
	grouped := map[string][]float64{}
	for _, item := range identifiers {
		grouped[item.IdentifierType] = append(grouped[item.IdentifierType], item.Confidence)
	}

	rollup := map[string]TypeRollup{}
	for key, values := range grouped {
		var sum, max float64
		for _, v := range values {
			sum += v
			if v > max {
				max = v
			}
		}
		rollup[key] = TypeRollup{
			Count:         float64(len(values)),
			AvgConfidence: models.Round6(sum / float64(len(values))),
			MaxConfidence: models.Round6(max),
		}
	}
	return rollup
}

// SortRecentEvidence orders identifier records newest first. The whole tuple
// (last_seen_at, identifier_type, normalized_value) is compared descending so
// the order is total and stable across runs.
func SortRecentEvidence(identifiers []models.Identifier) []models.Identifier {
	recent := make([]models.Identifier, len(identifiers))
	copy(recent, identifiers)
	sort.SliceStable(recent, func(i, j int) bool {
		a, b := recent[i], recent[j]
		if a.LastSeenAt != b.LastSeenAt {
			return a.LastSeenAt > b.LastSeenAt
		}
		if a.IdentifierType != b.IdentifierType {
			return a.IdentifierType > b.IdentifierType
		}
		return a.NormalizedValue > b.NormalizedValue
	})
	return recent
}

// BuildEntityContext assembles the dossier. recentLimit below zero is treated
// as zero.
func BuildEntityContext(entityID string, aliases []models.Alias, identifiers []models.Identifier, recentLimit int) EntityContext {
	recent := SortRecentEvidence(identifiers)
	if recentLimit < 0 {
		recentLimit = 0
	}
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}
	return EntityContext{
		EntityID:          entityID,
		Aliases:           aliases,
		Identifiers:       identifiers,
		RecentEvidence:    recent,
		ConfidenceSummary: BuildConfidenceSummary(aliases, identifiers, recent),
	}
}

// BuildRecommendationContext derives the outreach view as of now.
func BuildRecommendationContext(entityID string, aliases []models.Alias, identifiers []models.Identifier, now time.Time) RecommendationContext {
	lastSeen, seen := latestSeen(identifiers)
	recencyDays := math.Inf(1)
	if seen {
		seconds := math.Max(0.0, now.Sub(lastSeen).Seconds())
		recencyDays = models.Round6(seconds / 86400.0)
	}

	summary := BuildConfidenceSummary(aliases, identifiers, identifiers)

	provenanceCounts := map[string]int{}
	for _, item := range identifiers {
		provenance := "unknown"
		if item.Provenance != nil && *item.Provenance != "" {
			provenance = *item.Provenance
		}
		provenanceCounts[provenance]++
	}

	return RecommendationContext{
		EntityID:            entityID,
		IdentityConfidence:  summary.OverallConfidence,
		ActivityRecencyDays: RecencyDays(recencyDays),
		InteractionHistorySummary: InteractionHistorySummary{
			EvidenceCount:   len(identifiers),
			DistinctSources: len(provenanceCounts),
			Sources:         provenanceCounts,
		},
		PreferredChannelHint:  preferredChannelHint(identifiers),
		RelationshipStageHint: relationshipStageHint(len(identifiers), recencyDays, summary.OverallConfidence),
		Continuity: Continuity{
			CanonicalEntityID: entityID,
			AliasCount:        len(aliases),
			IdentifierCount:   len(identifiers),
		},
	}
}

func latestSeen(identifiers []models.Identifier) (time.Time, bool) {
	var latest time.Time
	var found bool
	for _, item := range identifiers {
		ts, ok := ParseTimestamp(item.LastSeenAt)
		if !ok {
			continue
		}
		if !found || ts.After(latest) {
			latest = ts
			found = true
		}
	}
	return latest, found
}

// ParseTimestamp accepts RFC3339 timestamps with or without an explicit zone;
// naive timestamps are read as UTC.
func ParseTimestamp(raw string) (time.Time, bool) {
	text := raw
	if text == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339, text); err == nil {
		return ts.UTC(), true
	}
	if ts, err := time.Parse("2006-01-02T15:04:05", text); err == nil {
		return ts.UTC(), true
	}
	return time.Time{}, false
}

var channelWeights = map[string]int{
	"email":           5,
	"linkedin_handle": 4,
	"twitter_handle":  3,
	"github_handle":   3,
	"canonical_url":   2,
	"domain":          1,
	"name":            0,
}

func preferredChannelHint(identifiers []models.Identifier) string {
	scores := map[string]int{}
	for _, item := range identifiers {
		weight, ok := channelWeights[item.IdentifierType]
		if !ok {
			weight = 1
		}
		scores[item.IdentifierType] += weight
	}
	if len(scores) == 0 {
		return "unknown"
	}

	types := make([]string, 0, len(scores))
	for idType := range scores {
		types = append(types, idType)
	}
	sort.Slice(types, func(i, j int) bool {
		if scores[types[i]] != scores[types[j]] {
			return scores[types[i]] > scores[types[j]]
		}
		return types[i] < types[j]
	})
	return types[0]
}

func relationshipStageHint(evidenceCount int, recencyDays, confidence float64) string {
	if evidenceCount >= 6 && recencyDays <= 30 && confidence >= 0.8 {
		return StageEngaged
	}
	if evidenceCount >= 3 && recencyDays <= 90 && confidence >= 0.65 {
		return StageWarm
	}
	return StageCold
}
