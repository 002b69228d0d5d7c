package llmjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValidJSONUnchanged(t *testing.T) {
	raw := `{"llm_similarity_score": 88, "llm_similarity_justification": "same event"}`

	got, err := Parse(raw, "llm_similarity_score", "llm_similarity_justification")
	require.NoError(t, err)
	assert.Equal(t, float64(88), got["llm_similarity_score"])
	assert.Equal(t, "same event", got["llm_similarity_justification"])
}

func TestParseFencedEqualsUnwrapped(t *testing.T) {
	inner := `{"llm_title": "Floods recede", "status": "evolving"}`

	plain, err := Parse(inner)
	require.NoError(t, err)

	for _, raw := range []string{
		"```json\n" + inner + "\n```",
		"```\n" + inner + "\n```",
	} {
		fenced, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, plain, fenced)
	}
}

func TestParseRepairsLiteralNewlineInString(t *testing.T) {
	raw := "{\"llm_summary\": \"first development.\nsecond development.\"}"

	got, err := Parse(raw, "llm_summary")
	require.NoError(t, err)

	// The break must survive as content, not be dropped.
	assert.Equal(t, "first development.\nsecond development.", got["llm_summary"])
}

func TestParseStripsTrailingComma(t *testing.T) {
	got, err := Parse(`{"llm_similarity_score": 40,}`, "llm_similarity_score")
	require.NoError(t, err)
	assert.Equal(t, float64(40), got["llm_similarity_score"])
}

func TestParseEscapesInteriorQuotes(t *testing.T) {
	raw := `{"llm_similarity_justification": "the court said "guilty" today", "llm_similarity_score": 90}`

	got, err := Parse(raw, "llm_similarity_score", "llm_similarity_justification")
	require.NoError(t, err)
	assert.Equal(t, `the court said "guilty" today`, got["llm_similarity_justification"])
	assert.Equal(t, float64(90), got["llm_similarity_score"])
}

func TestParseMissingRequiredField(t *testing.T) {
	_, err := Parse(`{"llm_similarity_score": 75}`, "llm_similarity_score", "llm_similarity_justification")
	require.ErrorIs(t, err, ErrInvalidResponse)
	assert.Contains(t, err.Error(), "llm_similarity_justification")
}

func TestParseGarbageIsInvalid(t *testing.T) {
	_, err := Parse("the model refused to answer in JSON")
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestCleanLeavesValidJSONAlone(t *testing.T) {
	raw := `{"a": [1, 2, 3], "b": {"c": "d,e}f"}}`
	assert.Equal(t, raw, Clean(raw))
}

func TestCleanMultilineAcrossSeveralLines(t *testing.T) {
	raw := "{\"llm_summary\": \"one\ntwo\nthree\",\n\"status\": \"evolving\"}"

	got, err := Parse(raw, "llm_summary", "status")
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree", got["llm_summary"])
	assert.Equal(t, "evolving", got["status"])
}
