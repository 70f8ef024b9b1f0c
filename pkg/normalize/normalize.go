// Package normalize provides identifier normalization for the resolution index
package normalize

import (
	"net/url"
	"strings"
)

// AutoMergeIdentifierTypes are the strong identifier types. Observing one of
// these already bound to a different canonical entity forces a merge.
var AutoMergeIdentifierTypes = map[string]bool{
	"email":         true,
	"canonical_url": true,
	"url":           true,
}

// IsAutoMergeType reports whether the identifier type forces merges.
func IsAutoMergeType(identifierType string) bool {
	return AutoMergeIdentifierTypes[strings.ToLower(strings.TrimSpace(identifierType))]
}

// Identifier normalizes a raw identifier value for its type. It is pure and
// idempotent: Identifier(t, Identifier(t, v)) == Identifier(t, v).
func Identifier(identifierType, value string) string {
	identifierType = strings.ToLower(strings.TrimSpace(identifierType))
	value = strings.TrimSpace(value)

	switch identifierType {
	case "twitter_handle", "github_handle", "handle":
		return strings.ToLower(strings.TrimLeft(value, "@"))
	case "email":
		return strings.ToLower(value)
	case "domain":
		return normalizeDomain(value)
	case "linkedin_url", "url", "canonical_url":
		return normalizeURL(value)
	case "name":
		return strings.Join(strings.Fields(strings.ToLower(value)), " ")
	default:
		return strings.ToLower(value)
	}
}

// normalizeDomain lowercases, takes the host when a scheme is present and
// strips a single leading "www." prefix. The prefix strip is deliberately a
// literal one-shot strip, not a character-set strip.
func normalizeDomain(value string) string {
	cleaned := strings.ToLower(value)
	if strings.HasPrefix(cleaned, "http://") || strings.HasPrefix(cleaned, "https://") {
		if parsed, err := url.Parse(cleaned); err == nil && parsed.Host != "" {
			cleaned = parsed.Host
		}
	}
	return strings.TrimPrefix(cleaned, "www.")
}

// normalizeURL collapses a URL to host+path with the scheme, "www." prefix
// and trailing slashes removed. Values without a scheme are lowercased with
// trailing slashes trimmed.
func normalizeURL(value string) string {
	parsed, err := url.Parse(value)
	if err == nil && parsed.Scheme != "" {
		host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
		path := strings.TrimRight(parsed.Path, "/")
		return strings.ToLower(host + path)
	}
	return strings.TrimRight(strings.ToLower(value), "/")
}

// WalletReference builds the namespaced wallet form "<chain>:<wallet>". The
// chain is lowercased; the wallet goes through the generic normalizer.
func WalletReference(chain, wallet string) string {
	chainNorm := strings.ToLower(strings.TrimSpace(chain))
	if chainNorm == "" {
		chainNorm = "eth"
	}
	return chainNorm + ":" + Identifier("wallet_address", wallet)
}

// Reference normalizes an attribution reference. Entity id references pass
// through untouched; everything else goes through the identifier rules.
func Reference(identifierType, value string) (string, string) {
	if identifierType == "entity_id" {
		return identifierType, value
	}
	return identifierType, Identifier(identifierType, value)
}
