// Package attribution scores outcome references against resolved entities
// and picks the entity the outcome most plausibly belongs to.
package attribution

import (
	"sort"
	"strings"

	"github.com/Ramsey-B/laurel/pkg/models"
)

// Strategy names the ranking algorithm stamped into every attribution.
const Strategy = "confidence-weighted-reference-v1"

// Reference is one typed pointer carried by an outcome payload.
type Reference struct {
	IdentifierType string `json:"identifier_type"`
	Value          string `json:"value"`
}

// ReferenceMatch is what resolving one reference against the store yields.
// EntityID is empty when the reference matched nothing.
type ReferenceMatch struct {
	NormalizedValue string
	EntityID        string
	Confidence      float64
}

// ResolveReferenceFunc looks a reference up without mutating the store.
type ResolveReferenceFunc func(identifierType, value string) ReferenceMatch

// MatchedReference records how one reference fared during ranking.
type MatchedReference struct {
	IdentifierType      string  `json:"identifier_type"`
	Value               string  `json:"value"`
	NormalizedValue     string  `json:"normalized_value"`
	MatchedEntityID     string  `json:"matched_entity_id"`
	ReferenceConfidence float64 `json:"reference_confidence"`
}

// OutcomeAttribution is the ranking result. EntityID is empty when no
// reference matched any entity.
type OutcomeAttribution struct {
	EntityID          string             `json:"entity_id"`
	Confidence        float64            `json:"confidence"`
	MatchedReferences []MatchedReference `json:"matched_references"`
	Strategy          string             `json:"strategy"`
}

// NormalizeReferenceMap flattens a payload reference map into the ordered
// reference list the ranker consumes. Keys are visited in sorted order so the
// output is deterministic; blank values are dropped.
func NormalizeReferenceMap(references map[string]string) []Reference {
	keys := make([]string, 0, len(references))
	for key := range references {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	refs := []Reference{}
	for _, key := range keys {
		value := strings.TrimSpace(references[key])
		if value == "" {
			continue
		}
		refs = append(refs, Reference{IdentifierType: key, Value: value})
	}
	return refs
}

// NormalizeReferenceList trims a caller-supplied reference list, dropping
// entries missing a type or value. Order is preserved.
func NormalizeReferenceList(references []Reference) []Reference {
	refs := []Reference{}
	for _, item := range references {
		idType := strings.TrimSpace(item.IdentifierType)
		value := strings.TrimSpace(item.Value)
		if idType == "" || value == "" {
			continue
		}
		refs = append(refs, Reference{IdentifierType: idType, Value: value})
	}
	return refs
}

// RankEntityCandidates resolves each reference and sums confidence per
// candidate entity. The winner is the highest total; ties break on hit count
// then on entity id, so the result never depends on map iteration order. The
// reported confidence is the winner's total over the reference count, capped
// at 1.
func RankEntityCandidates(references []Reference, resolve ResolveReferenceFunc) OutcomeAttribution {
	scores := map[string]float64{}
	hits := map[string]int{}
	matched := []MatchedReference{}
	totalRefs := 0

	for _, ref := range references {
		totalRefs++
		match := resolve(ref.IdentifierType, ref.Value)
		matched = append(matched, MatchedReference{
			IdentifierType:      ref.IdentifierType,
			Value:               ref.Value,
			NormalizedValue:     match.NormalizedValue,
			MatchedEntityID:     match.EntityID,
			ReferenceConfidence: match.Confidence,
		})
		if match.EntityID != "" {
			scores[match.EntityID] += match.Confidence
			hits[match.EntityID]++
		}
	}

	if len(scores) == 0 {
		return OutcomeAttribution{
			EntityID:          "",
			Confidence:        0.0,
			MatchedReferences: matched,
			Strategy:          Strategy,
		}
	}

	candidates := make([]string, 0, len(scores))
	for entityID := range scores {
		candidates = append(candidates, entityID)
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if scores[a] != scores[b] {
			return scores[a] > scores[b]
		}
		if hits[a] != hits[b] {
			return hits[a] > hits[b]
		}
		return a < b
	})

	best := candidates[0]
	denom := totalRefs
	if denom < 1 {
		denom = 1
	}
	confidence := models.Round6(scores[best] / float64(denom))
	if confidence > 1.0 {
		confidence = 1.0
	}

	return OutcomeAttribution{
		EntityID:          best,
		Confidence:        confidence,
		MatchedReferences: matched,
		Strategy:          Strategy,
	}
}
