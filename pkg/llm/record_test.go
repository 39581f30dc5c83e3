package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRecords(t *testing.T) {
	t.Run("array embedded in prose", func(t *testing.T) {
		raw := "Voici les clauses :\n[{\"title\": \"Durée\"}, {\"title\": \"Paiement\"}]\nFin."
		records := ExtractRecords(raw)
		require.Len(t, records, 2)
		title, ok := records[0].String("title")
		require.True(t, ok)
		assert.Equal(t, "Durée", title)
	})

	t.Run("bare array", func(t *testing.T) {
		records := ExtractRecords(`[{"title": "A"}]`)
		require.Len(t, records, 1)
	})

	t.Run("outermost brackets win", func(t *testing.T) {
		raw := `[{"title": "A", "related": ["x", "y"]}, {"title": "B"}]`
		records := ExtractRecords(raw)
		require.Len(t, records, 2)
		assert.Equal(t, []string{"x", "y"}, records[0].StringSlice("related"))
	})

	t.Run("malformed slice yields empty", func(t *testing.T) {
		records := ExtractRecords("before [not json] after")
		assert.Empty(t, records)
	})

	t.Run("no brackets and not json yields empty", func(t *testing.T) {
		assert.Empty(t, ExtractRecords("Je ne peux pas répondre."))
	})

	t.Run("empty array", func(t *testing.T) {
		assert.Empty(t, ExtractRecords("[]"))
	})
}

func TestRecordAccessors(t *testing.T) {
	r := Record{
		"title":    "Clause de confidentialité",
		"priority": float64(2),
		"related":  []any{"a", 7, "b"},
	}

	title, ok := r.String("title")
	assert.True(t, ok)
	assert.Equal(t, "Clause de confidentialité", title)

	_, ok = r.String("priority")
	assert.False(t, ok)
	_, ok = r.String("missing")
	assert.False(t, ok)

	assert.Equal(t, "fallback", r.StringOr("missing", "fallback"))
	assert.Equal(t, []string{"a", "b"}, r.StringSlice("related"))
	assert.Empty(t, r.StringSlice("title"))
}
