package signals

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ramsey-B/laurel/internal/tracing"
	"github.com/Ramsey-B/laurel/pkg/insights"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/resolver"
)

// DigestIdentifier is one matched identifier in a social digest.
type DigestIdentifier struct {
	IdentifierType string  `json:"identifier_type"`
	Value          string  `json:"value"`
	Confidence     float64 `json:"confidence"`
	LastSeenAt     string  `json:"last_seen_at"`
}

// DigestWhy explains the confidence behind a digest.
type DigestWhy struct {
	MatchedIdentifierCount int                        `json:"matched_identifier_count"`
	AliasCount             int                        `json:"alias_count"`
	ConfidenceSummary      insights.ConfidenceSummary `json:"confidence_summary"`
	RelationshipStageHint  string                     `json:"relationship_stage_hint"`
}

// Digest is the explainable resolution summary for one social identity.
type Digest struct {
	EntityID           string             `json:"entity_id"`
	Confidence         float64            `json:"confidence"`
	MatchedIdentifiers []DigestIdentifier `json:"matched_identifiers"`
	Why                DigestWhy          `json:"why"`
	Events             []map[string]any   `json:"events"`
}

// BuildSocialDigest resolves a social payload by its handle, attaches any
// profile url and email as aliases, and returns a digest of the resulting
// identity with the events this call produced.
func BuildSocialDigest(ctx context.Context, r *resolver.Resolver, payload map[string]any, causedBy string) (*Digest, error) {
	ctx, span := tracing.StartSpan(ctx, "signals.BuildSocialDigest")
	defer span.End()

	if causedBy == "" {
		causedBy = "digest-pipeline"
	}
	platform := strings.ToLower(strings.TrimSpace(stringField(payload, "platform")))
	source := strings.TrimSpace(stringField(payload, "source"))
	if source == "" {
		source = strings.TrimSpace(stringField(payload, "provenance"))
	}
	if source == "" {
		source = "digest"
	}

	handle := strings.TrimSpace(stringField(payload, "author_handle"))
	if handle == "" {
		handle = strings.TrimSpace(stringField(payload, "handle"))
	}
	if handle == "" {
		return nil, fmt.Errorf("%w: digest payload requires author_handle or handle", models.ErrInvalidInput)
	}

	handleType := "handle"
	if platform != "" {
		handleType = platform + "_handle"
	}

	resolution, err := r.Resolve(ctx, handleType, handle, models.ResolveOptions{
		Confidence: handleConfidence,
		EntityType: models.EntityTypePerson,
		CausedBy:   causedBy,
		Provenance: source,
	})
	if err != nil {
		return nil, err
	}

	for _, key := range []string{"profile_url", "author_url", "canonical_url"} {
		if url := strings.TrimSpace(stringField(payload, key)); url != "" {
			if _, err := r.AddAlias(ctx, resolution.EntityID, "canonical_url", url, models.ResolveOptions{
				Confidence: urlConfidence,
				CausedBy:   causedBy,
				Provenance: source,
			}); err != nil {
				return nil, err
			}
			break
		}
	}

	if email := strings.TrimSpace(stringField(payload, "email")); email != "" {
		if _, err := r.AddAlias(ctx, resolution.EntityID, "email", email, models.ResolveOptions{
			Confidence: emailConfidence,
			CausedBy:   causedBy,
			Provenance: source,
		}); err != nil {
			return nil, err
		}
	}

	canonicalID, err := r.Store().Canonicalize(ctx, resolution.EntityID)
	if err != nil {
		return nil, err
	}
	entityContext, err := r.EntityContext(ctx, canonicalID, resolver.DefaultRecentLimit)
	if err != nil {
		return nil, err
	}
	recommendation, err := r.RecommendationContext(ctx, canonicalID)
	if err != nil {
		return nil, err
	}

	matched := make([]DigestIdentifier, 0, len(entityContext.Identifiers))
	for _, item := range entityContext.Identifiers {
		matched = append(matched, DigestIdentifier{
			IdentifierType: item.IdentifierType,
			Value:          item.Value,
			Confidence:     item.Confidence,
			LastSeenAt:     item.LastSeenAt,
		})
	}

	drained := r.DrainEvents()
	eventPayloads := make([]map[string]any, 0, len(drained))
	for _, event := range drained {
		eventPayloads = append(eventPayloads, event.Payload)
	}

	return &Digest{
		EntityID:           canonicalID,
		Confidence:         entityContext.ConfidenceSummary.OverallConfidence,
		MatchedIdentifiers: matched,
		Why: DigestWhy{
			MatchedIdentifierCount: len(entityContext.Identifiers),
			AliasCount:             len(entityContext.Aliases),
			ConfidenceSummary:      entityContext.ConfidenceSummary,
			RelationshipStageHint:  recommendation.RelationshipStageHint,
		},
		Events: eventPayloads,
	}, nil
}
