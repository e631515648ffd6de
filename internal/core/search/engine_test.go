package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseScoresWeightsAndOrder(t *testing.T) {
	fullText := map[string]float64{"a": 1.0, "b": 0.6}
	semantic := map[string]float64{"b": 0.5, "c": 0.9}

	fused := FuseScores(fullText, semantic)
	require.Len(t, fused, 3)

	// c: 0.9*0.6=0.54, b: 0.6*0.4+0.5*0.6=0.54, a: 1.0*0.4=0.40.
	// Equal scores break ties on id, so b sorts before c.
	assert.Equal(t, "b", fused[0].ID)
	assert.InDelta(t, 0.54, fused[0].Score, 1e-9)
	assert.Equal(t, "c", fused[1].ID)
	assert.InDelta(t, 0.54, fused[1].Score, 1e-9)
	assert.Equal(t, "a", fused[2].ID)
	assert.InDelta(t, 0.40, fused[2].Score, 1e-9)
}

func TestFuseScoresUnionOfKeys(t *testing.T) {
	fused := FuseScores(map[string]float64{"only-ft": 0.5}, map[string]float64{"only-sem": 0.5})
	require.Len(t, fused, 2)
	assert.Equal(t, "only-sem", fused[0].ID) // 0.30 > 0.20
	assert.Equal(t, "only-ft", fused[1].ID)
}

func TestFuseScoresEmpty(t *testing.T) {
	assert.Empty(t, FuseScores(nil, nil))
}

func TestSnippetCollapsesWhitespaceAndTruncates(t *testing.T) {
	text := "line one\n\n  line   two\tline three"
	assert.Equal(t, "line one line two line three", Snippet(text, 200))

	long := strings.Repeat("word ", 100)
	got := Snippet(long, 20)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Len(t, []rune(got), 23)
}

func TestSnippetShortTextUnchanged(t *testing.T) {
	assert.Equal(t, "hello", Snippet("hello", 10))
	assert.Equal(t, "", Snippet("", 10))
}
