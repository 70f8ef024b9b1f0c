package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentifier(t *testing.T) {
	tests := []struct {
		name           string
		identifierType string
		value          string
		expected       string
	}{
		{
			name:           "twitter handle strips at and lowercases",
			identifierType: "twitter_handle",
			value:          "@MetaBuilder",
			expected:       "metabuilder",
		},
		{
			name:           "github handle strips at",
			identifierType: "github_handle",
			value:          "@OctoCat",
			expected:       "octocat",
		},
		{
			name:           "email lowercases",
			identifierType: "email",
			value:          "  Jane.Doe@Example.COM ",
			expected:       "jane.doe@example.com",
		},
		{
			name:           "domain strips scheme and www",
			identifierType: "domain",
			value:          "https://www.Example.com",
			expected:       "example.com",
		},
		{
			name:           "domain strips single www prefix only",
			identifierType: "domain",
			value:          "www.www.example.com",
			expected:       "www.example.com",
		},
		{
			name:           "url collapses to host and path",
			identifierType: "canonical_url",
			value:          "https://www.Example.com/Blog/Post/",
			expected:       "example.com/blog/post",
		},
		{
			name:           "url without scheme trims trailing slash",
			identifierType: "url",
			value:          "Example.com/page/",
			expected:       "example.com/page",
		},
		{
			name:           "linkedin url",
			identifierType: "linkedin_url",
			value:          "https://www.linkedin.com/in/jane-doe/",
			expected:       "linkedin.com/in/jane-doe",
		},
		{
			name:           "name collapses whitespace",
			identifierType: "name",
			value:          "  Jane   Q.  Doe ",
			expected:       "jane q. doe",
		},
		{
			name:           "unknown type lowercases and trims",
			identifierType: "wallet_address",
			value:          " 0xABCDEF ",
			expected:       "0xabcdef",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Identifier(tt.identifierType, tt.value))
		})
	}
}

func TestIdentifierIsIdempotent(t *testing.T) {
	cases := map[string]string{
		"twitter_handle": "@MetaBuilder",
		"email":          "Jane.Doe@Example.COM",
		"domain":         "https://www.Example.com",
		"canonical_url":  "https://www.Example.com/Blog/",
		"name":           "  Jane   Doe ",
	}
	for identifierType, value := range cases {
		once := Identifier(identifierType, value)
		assert.Equal(t, once, Identifier(identifierType, once), "type %s", identifierType)
	}
}

func TestIsAutoMergeType(t *testing.T) {
	assert.True(t, IsAutoMergeType("email"))
	assert.True(t, IsAutoMergeType("canonical_url"))
	assert.True(t, IsAutoMergeType("url"))
	assert.True(t, IsAutoMergeType(" Email "))
	assert.False(t, IsAutoMergeType("twitter_handle"))
	assert.False(t, IsAutoMergeType("name"))
}

func TestWalletReference(t *testing.T) {
	assert.Equal(t, "eth:0xabc", WalletReference("", "0xABC"))
	assert.Equal(t, "sol:walletkey", WalletReference("SOL", " WalletKey "))
}

func TestReference(t *testing.T) {
	idType, value := Reference("entity_id", "ent_ABC")
	assert.Equal(t, "entity_id", idType)
	assert.Equal(t, "ent_ABC", value)

	idType, value = Reference("email", "Jane@Example.com")
	assert.Equal(t, "email", idType)
	assert.Equal(t, "jane@example.com", value)
}
