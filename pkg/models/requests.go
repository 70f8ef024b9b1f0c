package models

// ResolveRequest asks for one identifier observation to be resolved.
type ResolveRequest struct {
	IdentifierType string  `json:"identifier_type" validate:"required"`
	Value          string  `json:"value" validate:"required"`
	Confidence     float64 `json:"confidence" validate:"gte=0,lte=1"`
	EntityType     string  `json:"entity_type"`
	Provenance     string  `json:"provenance"`
}

// AddAliasRequest binds an identifier to an existing entity.
type AddAliasRequest struct {
	IdentifierType string  `json:"identifier_type" validate:"required"`
	Value          string  `json:"value" validate:"required"`
	Confidence     float64 `json:"confidence" validate:"gte=0,lte=1"`
	Provenance     string  `json:"provenance"`
}

// MergeRequest manually folds one entity into another.
type MergeRequest struct {
	FromEntityID string `json:"from_entity_id" validate:"required"`
	ToEntityID   string `json:"to_entity_id" validate:"required"`
	Reason       string `json:"reason" validate:"required"`
}

// UndoMergeRequest reverses a prior merge.
type UndoMergeRequest struct {
	FromEntityID string `json:"from_entity_id" validate:"required"`
	ToEntityID   string `json:"to_entity_id" validate:"required"`
}

// AttributionRequest carries outcome references to rank.
type AttributionRequest struct {
	References map[string]string `json:"references" validate:"required"`
}

// TokenLinkRequest wires a token contract to its project and creator.
type TokenLinkRequest struct {
	Chain                  string `json:"chain" validate:"required"`
	ContractAddress        string `json:"contract_address" validate:"required"`
	ProjectIdentifierType  string `json:"project_identifier_type" validate:"required"`
	ProjectIdentifierValue string `json:"project_identifier_value" validate:"required"`
	CreatorWallet          string `json:"creator_wallet"`
}

// WalletResolveRequest resolves a season wallet. Role selects the wallet
// identifier type: "player" or "founder".
type WalletResolveRequest struct {
	Wallet string `json:"wallet" validate:"required"`
	Chain  string `json:"chain"`
	Role   string `json:"role" validate:"required,oneof=player founder"`
}
