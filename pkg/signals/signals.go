// Package signals adapts normalized social-signal envelopes onto the
// resolver. Extraction order is fixed so the same envelope always resolves
// the same way: the strongest available identifier resolves first and the
// rest attach as aliases.
package signals

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Ramsey-B/laurel/internal/tracing"
	"github.com/Ramsey-B/laurel/pkg/events"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/resolver"
)

// Identifier extraction confidences, strongest first.
const (
	emailConfidence  = 0.98
	urlConfidence    = 0.96
	handleConfidence = 0.93
	domainConfidence = 0.9
	nameConfidence   = 0.7
)

// Envelope is one normalized social signal.
type Envelope struct {
	Source  string         `json:"source"`
	Payload map[string]any `json:"payload"`
}

// ResolutionResult reports where the signal landed and the events that this
// invocation alone produced.
type ResolutionResult struct {
	EntityID      string                `json:"entity_id"`
	Confidence    float64               `json:"confidence"`
	EmittedEvents []events.EmittedEvent `json:"emitted_events"`
}

// ExtractedIdentifier is one identifier pulled from a signal payload.
type ExtractedIdentifier struct {
	IdentifierType string
	Value          string
	Confidence     float64
}

// Resolve resolves a signal envelope into a canonical entity. The strongest
// extracted identifier drives the primary resolution; the remaining ones are
// added as aliases in extraction order. The returned events cover only this
// call: the resolver buffer is drained before and after.
func Resolve(ctx context.Context, r *resolver.Resolver, envelope Envelope, defaultEntityType, causedBy string) (*ResolutionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "signals.Resolve")
	defer span.End()

	if defaultEntityType == "" {
		defaultEntityType = models.EntityTypePerson
	}
	if causedBy == "" {
		causedBy = "signal-ingestion"
	}
	source := strings.TrimSpace(envelope.Source)
	if source == "" {
		source = "unknown-source"
	}

	// Scope the emitted batch to this invocation.
	r.DrainEvents()

	identifiers := ExtractIdentifiers(envelope.Payload)
	if len(identifiers) == 0 {
		return nil, fmt.Errorf("%w: no resolvable identifiers in signal payload", models.ErrInvalidInput)
	}

	primary := identifiers[0]
	resolution, err := r.Resolve(ctx, primary.IdentifierType, primary.Value, models.ResolveOptions{
		Confidence: primary.Confidence,
		EntityType: defaultEntityType,
		CausedBy:   causedBy,
		Provenance: source,
	})
	if err != nil {
		return nil, err
	}

	for _, identifier := range identifiers[1:] {
		if _, err := r.AddAlias(ctx, resolution.EntityID, identifier.IdentifierType, identifier.Value, models.ResolveOptions{
			Confidence: identifier.Confidence,
			CausedBy:   causedBy,
			Provenance: source,
		}); err != nil {
			return nil, err
		}
	}

	return &ResolutionResult{
		EntityID:      resolution.EntityID,
		Confidence:    resolution.Confidence,
		EmittedEvents: r.DrainEvents(),
	}, nil
}

// ExtractIdentifiers pulls typed identifiers out of a signal payload in
// fixed priority order: email, profile url, platform handle, domain, name.
// Duplicate (type, value) pairs keep only their first occurrence.
func ExtractIdentifiers(payload map[string]any) []ExtractedIdentifier {
	platform := strings.ToLower(strings.TrimSpace(stringField(payload, "platform")))

	type candidate struct {
		priority       int
		identifierType string
		value          string
		confidence     float64
	}
	candidates := []candidate{}

	if email := strings.TrimSpace(stringField(payload, "email")); email != "" {
		candidates = append(candidates, candidate{0, "email", email, emailConfidence})
	}

	for _, key := range []string{"profile_url", "author_url", "canonical_url"} {
		if url := strings.TrimSpace(stringField(payload, key)); url != "" {
			candidates = append(candidates, candidate{1, "canonical_url", url, urlConfidence})
			break
		}
	}

	handle := strings.TrimSpace(stringField(payload, "author_handle"))
	if handle == "" {
		handle = strings.TrimSpace(stringField(payload, "handle"))
	}
	if handle != "" {
		handleType := "handle"
		if platform != "" {
			handleType = platform + "_handle"
		}
		candidates = append(candidates, candidate{2, handleType, handle, handleConfidence})
	}

	if domain := strings.TrimSpace(stringField(payload, "domain")); domain != "" {
		candidates = append(candidates, candidate{3, "domain", domain, domainConfidence})
	}

	for _, key := range []string{"display_name", "name"} {
		if name := strings.TrimSpace(stringField(payload, key)); name != "" {
			candidates = append(candidates, candidate{4, "name", name, nameConfidence})
			break
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		if a.identifierType != b.identifierType {
			return a.identifierType < b.identifierType
		}
		return a.value < b.value
	})

	seen := map[[2]string]bool{}
	ordered := []ExtractedIdentifier{}
	for _, c := range candidates {
		key := [2]string{c.identifierType, c.value}
		if seen[key] {
			continue
		}
		seen[key] = true
		ordered = append(ordered, ExtractedIdentifier{
			IdentifierType: c.identifierType,
			Value:          c.value,
			Confidence:     c.confidence,
		})
	}
	return ordered
}

func stringField(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	value, ok := payload[key].(string)
	if !ok {
		return ""
	}
	return value
}
