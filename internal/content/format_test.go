package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestFormatWeight(t *testing.T) {
	tests := map[float64]string{
		1:    "1.0",
		3:    "3.0",
		2.5:  "2.5",
		0.25: "0.25",
		0:    "0.0",
	}
	for w, want := range tests {
		if got := FormatWeight(w); got != want {
			t.Errorf("FormatWeight(%v) = %q, want %q", w, got, want)
		}
	}
}

func TestFormatForIntegration(t *testing.T) {
	sources := []*ContentSource{
		{SourceType: SourceText, Title: ptr("Notes"), Content: "I like hiking.", Weight: 1},
		{SourceType: SourceReflection, Content: "Q: Why?\nA: Because.", Weight: 3.5},
	}

	got := FormatForIntegration(sources)
	want := "TEXT (Weight: 1.0)\nNotes\nI like hiking.\n---\nREFLECTION (Weight: 3.5)\nUntitled\nQ: Why?\nA: Because."
	require.Equal(t, want, got)
}

func TestFormatForAnalysis_IncludesMetadata(t *testing.T) {
	sources := []*ContentSource{
		{SourceType: SourceDocument, Content: "body", Weight: 2, Metadata: map[string]any{"k": "v"}},
		{SourceType: SourceStructured, Content: "data", Weight: 1},
	}

	got := FormatForAnalysis(sources)
	require.Contains(t, got, "SOURCE: DOCUMENT (Weight: 2.0)")
	require.Contains(t, got, `"k": "v"`)
	require.Contains(t, got, "SOURCE: STRUCTURED (Weight: 1.0)")
	require.Contains(t, got, "Metadata: None")
}

func TestImportanceMarker(t *testing.T) {
	require.Equal(t, "🔥", ImportanceMarker(3.0))
	require.Equal(t, "🔥", ImportanceMarker(5.0))
	require.Equal(t, "⭐", ImportanceMarker(2.0))
	require.Equal(t, "⭐", ImportanceMarker(2.9))
	require.Equal(t, "📝", ImportanceMarker(1.99))
}

func TestSortByWeight_Stable(t *testing.T) {
	sources := []*ContentSource{
		{ID: "a", Weight: 1},
		{ID: "b", Weight: 3},
		{ID: "c", Weight: 1},
		{ID: "d", Weight: 3},
	}

	sorted := SortByWeight(sources)
	require.Equal(t, []string{"b", "d", "a", "c"}, IDs(sorted))
	// input untouched
	require.Equal(t, []string{"a", "b", "c", "d"}, IDs(sources))
}

func TestFormatWeighted(t *testing.T) {
	sources := []*ContentSource{
		{SourceType: SourceText, Content: "low", Weight: 1},
		{SourceType: SourceConversation, Title: ptr("Chat"), Content: "high", Weight: 4},
	}

	got := FormatWeighted(sources)
	parts := strings.Split(got, "\n---\n")
	require.Len(t, parts, 2)
	require.Equal(t, "🔥 CONVERSATION (Weight: 4.0)\nChat\nhigh", parts[0])
	require.Equal(t, "📝 TEXT (Weight: 1.0)\nUntitled\nlow", parts[1])
}

func TestSourceTypeLabel_CoversAllTypes(t *testing.T) {
	for _, st := range AllSourceTypes {
		require.True(t, st.Valid())
		require.Equal(t, strings.ToUpper(string(st)), st.Label())
	}
}

func TestParseSourceType(t *testing.T) {
	st, err := ParseSourceType(" Document ")
	require.NoError(t, err)
	require.Equal(t, SourceDocument, st)

	_, err = ParseSourceType("video")
	require.Error(t, err)
}

func TestClampWeight(t *testing.T) {
	require.Equal(t, 0.0, ClampWeight(-1))
	require.Equal(t, 5.0, ClampWeight(7.5))
	require.Equal(t, 2.5, ClampWeight(2.5))
}

func TestTotalChars(t *testing.T) {
	sources := []*ContentSource{{Content: "abc"}, {Content: "dé"}}
	require.Equal(t, 5, TotalChars(sources))
}
