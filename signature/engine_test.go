package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byteness/vigil/protocol"
)

func TestMatch_SubstringHitOnURI(t *testing.T) {
	store, err := LoadDefault()
	require.NoError(t, err)

	req := &protocol.Request{RawTarget: "/../../etc/passwd"}
	hit := store.Match(req)
	require.NotNil(t, hit)
	assert.Equal(t, CategoryPathTraversal, hit.Category)
	assert.Equal(t, "uri", hit.Field)
}

func TestMatch_HeaderValueScanned(t *testing.T) {
	store, err := LoadDefault()
	require.NoError(t, err)

	req := &protocol.Request{
		RawTarget: "/index.html",
		Headers:   []protocol.Header{{Name: "User-Agent", Value: "sqlmap/1.6"}},
	}
	hit := store.Match(req)
	require.NotNil(t, hit)
	assert.Equal(t, CategoryRecon, hit.Category)
	assert.Equal(t, "User-Agent", hit.Field)
}

func TestMatch_BodyScanned(t *testing.T) {
	store, err := LoadDefault()
	require.NoError(t, err)

	req := &protocol.Request{
		RawTarget: "/submit",
		Body:      []byte("username=admin' or '1'='1"),
	}
	hit := store.Match(req)
	require.NotNil(t, hit)
	assert.Equal(t, CategorySQLInjection, hit.Category)
	assert.Equal(t, "body", hit.Field)
}

func TestMatch_NoHitOnBenignRequest(t *testing.T) {
	store, err := LoadDefault()
	require.NoError(t, err)

	req := &protocol.Request{RawTarget: "/blog/post.html", Headers: []protocol.Header{{Name: "Host", Value: "example.com"}}}
	assert.Nil(t, store.Match(req))
}

func TestMatch_URICheckedBeforeHeaders(t *testing.T) {
	store, err := LoadDefault()
	require.NoError(t, err)

	req := &protocol.Request{
		RawTarget: "/../etc/passwd",
		Headers:   []protocol.Header{{Name: "User-Agent", Value: "sqlmap"}},
	}
	hit := store.Match(req)
	require.NotNil(t, hit)
	assert.Equal(t, "uri", hit.Field)
}

func TestMatchText_TieBreak_HigherConfidenceWins(t *testing.T) {
	store, err := Load([]Spec{
		{ID: 2, Category: "a", Type: RuleTypeSubstring, Pattern: "evil", BaseConfidence: 0.5},
		{ID: 1, Category: "b", Type: RuleTypeSubstring, Pattern: "evil", BaseConfidence: 0.9},
	})
	require.NoError(t, err)
	hit := store.matchText("uri", "this is evil")
	require.NotNil(t, hit)
	assert.Equal(t, "b", hit.Category)
	assert.Equal(t, 1, hit.RuleID)
}

func TestMatchText_TieBreak_LowerRuleIDWinsOnEqualConfidence(t *testing.T) {
	store, err := Load([]Spec{
		{ID: 5, Category: "a", Type: RuleTypeSubstring, Pattern: "evil", BaseConfidence: 0.9},
		{ID: 3, Category: "b", Type: RuleTypeSubstring, Pattern: "evil", BaseConfidence: 0.9},
	})
	require.NoError(t, err)
	hit := store.matchText("uri", "this is evil")
	require.NotNil(t, hit)
	assert.Equal(t, 3, hit.RuleID)
}

func TestMatch_SubstringCheckedBeforeRegex(t *testing.T) {
	store, err := Load([]Spec{
		{ID: 1, Category: "substr", Type: RuleTypeSubstring, Pattern: "bad", BaseConfidence: 0.5},
		{ID: 2, Category: "regex", Type: RuleTypeRegex, Pattern: `(?i)bad`, BaseConfidence: 0.99},
	})
	require.NoError(t, err)
	req := &protocol.Request{RawTarget: "/this-is-bad"}
	hit := store.Match(req)
	require.NotNil(t, hit)
	assert.Equal(t, "substr", hit.Category, "substring rule wins even with lower confidence since it's the only candidate found in this pass")
}
