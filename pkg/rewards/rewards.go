// Package rewards resolves season reward wallets and attributes reward
// claims back to player and founder entities.
package rewards

import (
	"context"
	"strings"

	"github.com/Ramsey-B/laurel/internal/tracing"
	"github.com/Ramsey-B/laurel/pkg/attribution"
	"github.com/Ramsey-B/laurel/pkg/insights"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/normalize"
	"github.com/Ramsey-B/laurel/pkg/resolver"
)

const (
	playerWalletConfidence  = 0.97
	founderWalletConfidence = 0.98
)

// ResolvePlayerWallet resolves a player wallet into a person entity. The
// wallet is namespaced by chain ("eth" when unset).
func ResolvePlayerWallet(ctx context.Context, r *resolver.Resolver, wallet, chain, causedBy string) (*models.EntityResolution, error) {
	ctx, span := tracing.StartSpan(ctx, "rewards.ResolvePlayerWallet")
	defer span.End()

	if causedBy == "" {
		causedBy = "season-rewards"
	}
	return r.Resolve(ctx, "player_wallet", normalize.WalletReference(chain, wallet), models.ResolveOptions{
		Confidence: playerWalletConfidence,
		EntityType: models.EntityTypePerson,
		CausedBy:   causedBy,
		Provenance: "season-player-wallet",
	})
}

// ResolveFounderWallet resolves a founder wallet into a person entity.
func ResolveFounderWallet(ctx context.Context, r *resolver.Resolver, wallet, chain, causedBy string) (*models.EntityResolution, error) {
	ctx, span := tracing.StartSpan(ctx, "rewards.ResolveFounderWallet")
	defer span.End()

	if causedBy == "" {
		causedBy = "season-rewards"
	}
	return r.Resolve(ctx, "founder_wallet", normalize.WalletReference(chain, wallet), models.ResolveOptions{
		Confidence: founderWalletConfidence,
		EntityType: models.EntityTypePerson,
		CausedBy:   causedBy,
		Provenance: "season-founder-wallet",
	})
}

// AttributeSeasonReward remaps a reward claim into resolver references and
// ranks them. Wallets without an explicit chain prefix inherit the claim's
// chain when present.
func AttributeSeasonReward(ctx context.Context, r *resolver.Resolver, claim map[string]string) (attribution.OutcomeAttribution, error) {
	ctx, span := tracing.StartSpan(ctx, "rewards.AttributeSeasonReward")
	defer span.End()

	remapped := map[string]string{}

	chain := strings.ToLower(strings.TrimSpace(claim["chain"]))

	for _, key := range []string{"entity_id", "player_entity_id", "founder_entity_id"} {
		if value := strings.TrimSpace(claim[key]); value != "" {
			remapped["entity_id"] = value
		}
	}

	mapWallet := func(refKey, outKey string) {
		wallet := strings.TrimSpace(claim[refKey])
		if wallet == "" {
			return
		}
		switch {
		case strings.Contains(wallet, ":"):
			remapped[outKey] = wallet
		case chain != "":
			remapped[outKey] = chain + ":" + wallet
		default:
			remapped[outKey] = wallet
		}
	}
	mapWallet("player_wallet", "player_wallet")
	mapWallet("founder_wallet", "founder_wallet")
	mapWallet("wallet_address", "wallet_address")
	mapWallet("claimer_wallet", "wallet_address")

	for _, key := range []string{"email", "canonical_url", "name", "twitter_handle"} {
		if value := strings.TrimSpace(claim[key]); value != "" {
			remapped[key] = value
		}
	}

	return r.AttributeOutcome(ctx, remapped)
}

// PlayerSummary is the confidence view of a player entity, keyed to its
// canonical id.
type PlayerSummary struct {
	EntityID string                     `json:"entity_id"`
	Summary  insights.ConfidenceSummary `json:"summary"`
}

// PlayerConfidenceSummary canonicalizes the entity and returns its
// confidence summary alongside the canonical id.
func PlayerConfidenceSummary(ctx context.Context, r *resolver.Resolver, entityID string) (*PlayerSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "rewards.PlayerConfidenceSummary")
	defer span.End()

	canonicalID, err := r.Store().Canonicalize(ctx, entityID)
	if err != nil {
		return nil, err
	}
	summary, err := r.ConfidenceSummary(ctx, canonicalID)
	if err != nil {
		return nil, err
	}
	return &PlayerSummary{EntityID: canonicalID, Summary: summary}, nil
}
