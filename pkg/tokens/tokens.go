// Package tokens links on-chain token contracts to the projects and creators
// behind them, and attributes token outcomes back to entities.
package tokens

import (
	"context"
	"strings"

	"github.com/Ramsey-B/laurel/internal/tracing"
	"github.com/Ramsey-B/laurel/pkg/attribution"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/normalize"
	"github.com/Ramsey-B/laurel/pkg/resolver"
)

// Link confidences. Contract addresses are near-certain identity; wallet
// observation slightly less so.
const (
	tokenContractConfidence = 0.99
	projectLinkConfidence   = 0.92
	tokenRefConfidence      = 0.99
	creatorWalletConfidence = 0.95
)

// ProjectCreatorLinks reports the entities tied together by one token.
type ProjectCreatorLinks struct {
	TokenEntityID   string `json:"token_entity_id"`
	ProjectEntityID string `json:"project_entity_id"`
	CreatorEntityID string `json:"creator_entity_id,omitempty"`
}

// ResolveTokenEntity resolves "<chain>:<contract>" to a project entity.
func ResolveTokenEntity(ctx context.Context, r *resolver.Resolver, chain, contractAddress, causedBy string) (*models.EntityResolution, error) {
	ctx, span := tracing.StartSpan(ctx, "tokens.ResolveTokenEntity")
	defer span.End()

	if causedBy == "" {
		causedBy = "token-links"
	}
	tokenRef := chain + ":" + contractAddress
	return r.Resolve(ctx, "token_contract", tokenRef, models.ResolveOptions{
		Confidence: tokenContractConfidence,
		EntityType: models.EntityTypeProject,
		CausedBy:   causedBy,
		Provenance: "token-resolver",
	})
}

// LinkTokenToProject resolves the project identifier and aliases the token
// entity onto it. Returns the project's canonical entity id.
func LinkTokenToProject(ctx context.Context, r *resolver.Resolver, tokenEntityID, projectIdentifierType, projectIdentifierValue, causedBy string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "tokens.LinkTokenToProject")
	defer span.End()

	if causedBy == "" {
		causedBy = "token-links"
	}
	project, err := r.Resolve(ctx, projectIdentifierType, projectIdentifierValue, models.ResolveOptions{
		Confidence: projectLinkConfidence,
		EntityType: models.EntityTypeProject,
		CausedBy:   causedBy,
		Provenance: "token-project-link",
	})
	if err != nil {
		return "", err
	}
	if _, err := r.AddAlias(ctx, project.EntityID, "token_entity_ref", tokenEntityID, models.ResolveOptions{
		Confidence: tokenRefConfidence,
		CausedBy:   causedBy,
		Provenance: "token-project-link",
	}); err != nil {
		return "", err
	}
	return r.Store().Canonicalize(ctx, project.EntityID)
}

// LinkCreatorWallet resolves "<chain>:<wallet>" to a person entity.
func LinkCreatorWallet(ctx context.Context, r *resolver.Resolver, creatorWallet, chain, causedBy string) (*models.EntityResolution, error) {
	ctx, span := tracing.StartSpan(ctx, "tokens.LinkCreatorWallet")
	defer span.End()

	if chain == "" {
		chain = "eth"
	}
	if causedBy == "" {
		causedBy = "token-links"
	}
	walletRef := chain + ":" + creatorWallet
	return r.Resolve(ctx, "creator_wallet", walletRef, models.ResolveOptions{
		Confidence: creatorWalletConfidence,
		EntityType: models.EntityTypePerson,
		CausedBy:   causedBy,
		Provenance: "token-creator-link",
	})
}

// LinkTokenProjectCreator wires a token contract, its project and optionally
// its creator wallet in one pass.
func LinkTokenProjectCreator(ctx context.Context, r *resolver.Resolver, chain, contractAddress, projectIdentifierType, projectIdentifierValue, creatorWallet, causedBy string) (*ProjectCreatorLinks, error) {
	ctx, span := tracing.StartSpan(ctx, "tokens.LinkTokenProjectCreator")
	defer span.End()

	token, err := ResolveTokenEntity(ctx, r, chain, contractAddress, causedBy)
	if err != nil {
		return nil, err
	}
	projectID, err := LinkTokenToProject(ctx, r, token.EntityID, projectIdentifierType, projectIdentifierValue, causedBy)
	if err != nil {
		return nil, err
	}

	creatorEntityID := ""
	if creatorWallet != "" {
		creator, err := LinkCreatorWallet(ctx, r, creatorWallet, chain, causedBy)
		if err != nil {
			return nil, err
		}
		creatorEntityID, err = r.Store().Canonicalize(ctx, creator.EntityID)
		if err != nil {
			return nil, err
		}
	}

	tokenEntityID, err := r.Store().Canonicalize(ctx, token.EntityID)
	if err != nil {
		return nil, err
	}

	return &ProjectCreatorLinks{
		TokenEntityID:   tokenEntityID,
		ProjectEntityID: projectID,
		CreatorEntityID: creatorEntityID,
	}, nil
}

// AttributeTokenOutcome remaps token outcome references into resolver
// reference types and ranks them. Chain-qualified forms are rebuilt so the
// references line up with how the links were recorded.
func AttributeTokenOutcome(ctx context.Context, r *resolver.Resolver, references map[string]string) (attribution.OutcomeAttribution, error) {
	ctx, span := tracing.StartSpan(ctx, "tokens.AttributeTokenOutcome")
	defer span.End()

	remapped := map[string]string{}

	chain := strings.TrimSpace(references["chain"])
	contract := strings.TrimSpace(references["contract_address"])
	if chain != "" && contract != "" {
		remapped["token_contract"] = normalize.Identifier("token_contract", chain+":"+contract)
	}

	if creatorWallet := strings.TrimSpace(references["creator_wallet"]); creatorWallet != "" {
		if chain != "" {
			remapped["creator_wallet"] = normalize.Identifier("creator_wallet", chain+":"+creatorWallet)
		} else {
			remapped["creator_wallet"] = normalize.Identifier("creator_wallet", creatorWallet)
		}
	}

	for _, key := range []string{"entity_id", "token_entity_id", "project_entity_id", "email", "canonical_url", "name"} {
		value := strings.TrimSpace(references[key])
		if value == "" {
			continue
		}
		mappedKey := key
		if key == "token_entity_id" || key == "project_entity_id" {
			mappedKey = "entity_id"
		}
		remapped[mappedKey] = value
	}

	return r.AttributeOutcome(ctx, remapped)
}
