package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func stubResolver(matches map[string]ReferenceMatch) ResolveReferenceFunc {
	return func(identifierType, value string) ReferenceMatch {
		if match, ok := matches[identifierType+":"+value]; ok {
			return match
		}
		return ReferenceMatch{NormalizedValue: value}
	}
}

func TestNormalizeReferenceMap(t *testing.T) {
	refs := NormalizeReferenceMap(map[string]string{
		"email":     " jane@example.com ",
		"blank":     "   ",
		"entity_id": "ent_1",
	})

	assert.Equal(t, []Reference{
		{IdentifierType: "email", Value: "jane@example.com"},
		{IdentifierType: "entity_id", Value: "ent_1"},
	}, refs)
}

func TestNormalizeReferenceList(t *testing.T) {
	refs := NormalizeReferenceList([]Reference{
		{IdentifierType: "email", Value: " a@b.com "},
		{IdentifierType: "", Value: "x"},
		{IdentifierType: "name", Value: " "},
		{IdentifierType: "domain", Value: "b.com"},
	})

	assert.Equal(t, []Reference{
		{IdentifierType: "email", Value: "a@b.com"},
		{IdentifierType: "domain", Value: "b.com"},
	}, refs)
}

func TestRankEntityCandidatesNoMatches(t *testing.T) {
	result := RankEntityCandidates([]Reference{
		{IdentifierType: "email", Value: "nobody@example.com"},
	}, stubResolver(nil))

	assert.Equal(t, "", result.EntityID)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Equal(t, Strategy, result.Strategy)
	assert.Len(t, result.MatchedReferences, 1)
	assert.Equal(t, "", result.MatchedReferences[0].MatchedEntityID)
}

func TestRankEntityCandidatesPicksHighestScore(t *testing.T) {
	resolve := stubResolver(map[string]ReferenceMatch{
		"email:a@b.com": {NormalizedValue: "a@b.com", EntityID: "ent_a", Confidence: 0.9},
		"name:alice":    {NormalizedValue: "alice", EntityID: "ent_a", Confidence: 0.7},
		"email:c@d.com": {NormalizedValue: "c@d.com", EntityID: "ent_b", Confidence: 0.8},
	})

	result := RankEntityCandidates([]Reference{
		{IdentifierType: "email", Value: "a@b.com"},
		{IdentifierType: "name", Value: "alice"},
		{IdentifierType: "email", Value: "c@d.com"},
	}, resolve)

	assert.Equal(t, "ent_a", result.EntityID)
	// 1.6 / 3 refs
	assert.InDelta(t, 0.533333, result.Confidence, 1e-6)
	assert.Len(t, result.MatchedReferences, 3)
}

func TestRankEntityCandidatesTieBreaksOnHitsThenID(t *testing.T) {
	// Same total score; ent_a has two hits, ent_b one.
	resolve := stubResolver(map[string]ReferenceMatch{
		"email:a1": {NormalizedValue: "a1", EntityID: "ent_a", Confidence: 0.4},
		"email:a2": {NormalizedValue: "a2", EntityID: "ent_a", Confidence: 0.4},
		"email:b1": {NormalizedValue: "b1", EntityID: "ent_b", Confidence: 0.8},
	})
	result := RankEntityCandidates([]Reference{
		{IdentifierType: "email", Value: "a1"},
		{IdentifierType: "email", Value: "a2"},
		{IdentifierType: "email", Value: "b1"},
	}, resolve)
	assert.Equal(t, "ent_a", result.EntityID)

	// Same score, same hits: lexicographically smaller id wins.
	resolve = stubResolver(map[string]ReferenceMatch{
		"email:x": {NormalizedValue: "x", EntityID: "ent_z", Confidence: 0.5},
		"email:y": {NormalizedValue: "y", EntityID: "ent_a", Confidence: 0.5},
	})
	result = RankEntityCandidates([]Reference{
		{IdentifierType: "email", Value: "x"},
		{IdentifierType: "email", Value: "y"},
	}, resolve)
	assert.Equal(t, "ent_a", result.EntityID)
}

func TestRankEntityCandidatesConfidenceCappedAtOne(t *testing.T) {
	resolve := stubResolver(map[string]ReferenceMatch{
		"entity_id:ent_a": {NormalizedValue: "ent_a", EntityID: "ent_a", Confidence: 0.99},
	})
	result := RankEntityCandidates([]Reference{
		{IdentifierType: "entity_id", Value: "ent_a"},
	}, resolve)

	assert.Equal(t, "ent_a", result.EntityID)
	assert.LessOrEqual(t, result.Confidence, 1.0)
	assert.InDelta(t, 0.99, result.Confidence, 1e-6)
}
