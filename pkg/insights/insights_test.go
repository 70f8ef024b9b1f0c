package insights

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/laurel/pkg/models"
)

func strptr(s string) *string { return &s }

func TestBuildConfidenceSummaryEmpty(t *testing.T) {
	summary := BuildConfidenceSummary(nil, nil, nil)

	assert.Equal(t, 0.0, summary.OverallConfidence)
	assert.Equal(t, 0.0, summary.IdentifierConfidenceAvg)
	assert.Equal(t, 0.0, summary.AliasConfidenceAvg)
	assert.Equal(t, 0, summary.UniqueSourceCount)
	assert.Equal(t, 0, summary.EvidenceCount)
	assert.Empty(t, summary.ByIdentifierType)
}

func TestBuildConfidenceSummaryWeights(t *testing.T) {
	aliases := []models.Alias{
		{IdentifierType: "email", NormalizedValue: "a@b.com", Confidence: 0.9},
		{IdentifierType: "name", NormalizedValue: "alice", Confidence: 0.7},
	}
	identifiers := []models.Identifier{
		{IdentifierType: "email", NormalizedValue: "a@b.com", Confidence: 0.95, Provenance: strptr("crm")},
		{IdentifierType: "name", NormalizedValue: "alice", Confidence: 0.7, Provenance: strptr("web")},
	}

	summary := BuildConfidenceSummary(aliases, identifiers, identifiers)

	identifierAvg := (0.95 + 0.7) / 2
	aliasAvg := (0.9 + 0.7) / 2
	diversity := math.Min(1.0, 2.0/3.0)
	expected := models.Round6(0.65*identifierAvg + 0.25*aliasAvg + 0.10*diversity)

	assert.Equal(t, expected, summary.OverallConfidence)
	assert.Equal(t, models.Round6(identifierAvg), summary.IdentifierConfidenceAvg)
	assert.Equal(t, models.Round6(aliasAvg), summary.AliasConfidenceAvg)
	assert.Equal(t, 2, summary.UniqueSourceCount)
	assert.Equal(t, 2, summary.EvidenceCount)
}

func TestBuildConfidenceSummaryRollup(t *testing.T) {
	identifiers := []models.Identifier{
		{IdentifierType: "email", Confidence: 0.9},
		{IdentifierType: "email", Confidence: 0.6},
		{IdentifierType: "name", Confidence: 0.7},
	}

	summary := BuildConfidenceSummary(nil, identifiers, nil)

	require.Contains(t, summary.ByIdentifierType, "email")
	require.Contains(t, summary.ByIdentifierType, "name")

	email := summary.ByIdentifierType["email"]
	assert.Equal(t, 2.0, email.Count)
	assert.Equal(t, models.Round6(0.75), email.AvgConfidence)
	assert.Equal(t, 0.9, email.MaxConfidence)
}

func TestSourceDiversityCapsAtThree(t *testing.T) {
	evidence := []models.Identifier{
		{IdentifierType: "a", Confidence: 1, Provenance: strptr("s1")},
		{IdentifierType: "b", Confidence: 1, Provenance: strptr("s2")},
		{IdentifierType: "c", Confidence: 1, Provenance: strptr("s3")},
		{IdentifierType: "d", Confidence: 1, Provenance: strptr("s4")},
	}
	summary := BuildConfidenceSummary(nil, evidence, evidence)
	assert.Equal(t, 4, summary.UniqueSourceCount)
	// identifier avg 1.0 -> 0.65, no aliases -> 0, diversity capped -> 0.10
	assert.Equal(t, models.Round6(0.75), summary.OverallConfidence)
}

func TestSortRecentEvidence(t *testing.T) {
	identifiers := []models.Identifier{
		{IdentifierType: "name", NormalizedValue: "alice", LastSeenAt: "2026-01-01T00:00:00Z"},
		{IdentifierType: "email", NormalizedValue: "a@b.com", LastSeenAt: "2026-03-01T00:00:00Z"},
		{IdentifierType: "email", NormalizedValue: "z@b.com", LastSeenAt: "2026-03-01T00:00:00Z"},
		{IdentifierType: "domain", NormalizedValue: "b.com", LastSeenAt: "2026-02-01T00:00:00Z"},
	}

	recent := SortRecentEvidence(identifiers)

	assert.Equal(t, "z@b.com", recent[0].NormalizedValue)
	assert.Equal(t, "a@b.com", recent[1].NormalizedValue)
	assert.Equal(t, "b.com", recent[2].NormalizedValue)
	assert.Equal(t, "alice", recent[3].NormalizedValue)
	// input untouched
	assert.Equal(t, "alice", identifiers[0].NormalizedValue)
}

func TestBuildEntityContextLimitsRecent(t *testing.T) {
	identifiers := []models.Identifier{
		{IdentifierType: "a", NormalizedValue: "1", LastSeenAt: "2026-01-01T00:00:00Z"},
		{IdentifierType: "b", NormalizedValue: "2", LastSeenAt: "2026-01-02T00:00:00Z"},
		{IdentifierType: "c", NormalizedValue: "3", LastSeenAt: "2026-01-03T00:00:00Z"},
	}

	ec := BuildEntityContext("ent_1", nil, identifiers, 2)
	assert.Equal(t, "ent_1", ec.EntityID)
	assert.Len(t, ec.RecentEvidence, 2)
	assert.Equal(t, "3", ec.RecentEvidence[0].NormalizedValue)

	ec = BuildEntityContext("ent_1", nil, identifiers, -5)
	assert.Len(t, ec.RecentEvidence, 0)
}

func TestRecencyDaysMarshalsInfinityAsNull(t *testing.T) {
	data, err := json.Marshal(RecencyDays(math.Inf(1)))
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	data, err = json.Marshal(RecencyDays(2.5))
	require.NoError(t, err)
	assert.Equal(t, "2.5", string(data))
}

func TestBuildRecommendationContextNeverSeen(t *testing.T) {
	rc := BuildRecommendationContext("ent_1", nil, nil, time.Now().UTC())

	assert.Equal(t, "ent_1", rc.EntityID)
	assert.True(t, math.IsInf(float64(rc.ActivityRecencyDays), 1))
	assert.Equal(t, StageCold, rc.RelationshipStageHint)
	assert.Equal(t, "unknown", rc.PreferredChannelHint)
	assert.Equal(t, 0, rc.InteractionHistorySummary.EvidenceCount)
}

func TestBuildRecommendationContextStages(t *testing.T) {
	now := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	recent := now.Add(-24 * time.Hour).Format(time.RFC3339)

	identifiers := make([]models.Identifier, 0, 6)
	for _, value := range []string{"a@b.com", "c@b.com", "d@b.com", "e@b.com", "f@b.com", "g@b.com"} {
		identifiers = append(identifiers, models.Identifier{
			IdentifierType:  "email",
			NormalizedValue: value,
			Confidence:      0.95,
			LastSeenAt:      recent,
			Provenance:      strptr("crm"),
		})
	}
	aliases := []models.Alias{{IdentifierType: "email", NormalizedValue: "a@b.com", Confidence: 0.95}}

	rc := BuildRecommendationContext("ent_1", aliases, identifiers, now)
	assert.Equal(t, StageEngaged, rc.RelationshipStageHint)
	assert.Equal(t, "email", rc.PreferredChannelHint)
	assert.InDelta(t, 1.0, float64(rc.ActivityRecencyDays), 1e-6)

	// Three pieces of evidence two months old lands on warm.
	older := now.Add(-60 * 24 * time.Hour).Format(time.RFC3339)
	warm := []models.Identifier{
		{IdentifierType: "email", NormalizedValue: "a@b.com", Confidence: 0.9, LastSeenAt: older, Provenance: strptr("crm")},
		{IdentifierType: "email", NormalizedValue: "c@b.com", Confidence: 0.9, LastSeenAt: older, Provenance: strptr("web")},
		{IdentifierType: "name", NormalizedValue: "alice", Confidence: 0.7, LastSeenAt: older, Provenance: strptr("web")},
	}
	rc = BuildRecommendationContext("ent_1", aliases, warm, now)
	assert.Equal(t, StageWarm, rc.RelationshipStageHint)
}

func TestPreferredChannelHintWeights(t *testing.T) {
	identifiers := []models.Identifier{
		{IdentifierType: "twitter_handle"},
		{IdentifierType: "twitter_handle"},
		{IdentifierType: "email"},
	}
	// twitter: 2*3=6 beats email: 5
	assert.Equal(t, "twitter_handle", preferredChannelHint(identifiers))

	identifiers = []models.Identifier{
		{IdentifierType: "domain"},
		{IdentifierType: "custom_type"},
	}
	// equal scores of 1: lexicographic tie-break
	assert.Equal(t, "custom_type", preferredChannelHint(identifiers))
}

func TestParseTimestamp(t *testing.T) {
	ts, ok := ParseTimestamp("2026-08-24T10:00:00Z")
	assert.True(t, ok)
	assert.Equal(t, 10, ts.Hour())

	ts, ok = ParseTimestamp("2026-08-24T10:00:00")
	assert.True(t, ok)
	assert.Equal(t, time.UTC, ts.Location())

	_, ok = ParseTimestamp("")
	assert.False(t, ok)
	_, ok = ParseTimestamp("not-a-time")
	assert.False(t, ok)
}
