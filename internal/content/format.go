package content

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// sourceSeparator joins formatted sources in model prompts.
const sourceSeparator = "\n---\n"

// FormatWeight renders a weight the way it appears in prompts ("3.0", "2.5").
func FormatWeight(w float64) string {
	if w == float64(int64(w)) {
		return strconv.FormatFloat(w, 'f', 1, 64)
	}
	return strconv.FormatFloat(w, 'f', -1, 64)
}

// FormatForIntegration renders sources for an incremental merge: label, weight,
// title and body per source.
func FormatForIntegration(sources []*ContentSource) string {
	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		parts = append(parts, fmt.Sprintf("%s (Weight: %s)\n%s\n%s",
			s.SourceType.Label(), FormatWeight(s.Weight), s.TitleOrUntitled(), s.Content))
	}
	return strings.Join(parts, sourceSeparator)
}

// FormatForAnalysis renders sources with their metadata for the content analysis stage.
func FormatForAnalysis(sources []*ContentSource) string {
	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		md := "None"
		if len(s.Metadata) > 0 {
			if data, err := json.MarshalIndent(s.Metadata, "", "  "); err == nil {
				md = string(data)
			}
		}
		parts = append(parts, fmt.Sprintf("SOURCE: %s (Weight: %s)\nTitle: %s\nContent: %s\nMetadata: %s",
			s.SourceType.Label(), FormatWeight(s.Weight), s.TitleOrUntitled(), s.Content, md))
	}
	return strings.Join(parts, sourceSeparator)
}

// ImportanceMarker returns the marker shown next to a source of weight w.
func ImportanceMarker(w float64) string {
	switch {
	case w >= 3.0:
		return "🔥"
	case w >= 2.0:
		return "⭐"
	default:
		return "📝"
	}
}

// SortByWeight returns a copy of sources ordered by weight, highest first.
// Sources with equal weight keep their relative order.
func SortByWeight(sources []*ContentSource) []*ContentSource {
	sorted := make([]*ContentSource, len(sources))
	copy(sorted, sources)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Weight > sorted[j].Weight
	})
	return sorted
}

// FormatWeighted renders sources ordered by weight with importance markers.
func FormatWeighted(sources []*ContentSource) string {
	sorted := SortByWeight(sources)
	parts := make([]string, 0, len(sorted))
	for _, s := range sorted {
		parts = append(parts, fmt.Sprintf("%s %s (Weight: %s)\n%s\n%s",
			ImportanceMarker(s.Weight), s.SourceType.Label(), FormatWeight(s.Weight),
			s.TitleOrUntitled(), s.Content))
	}
	return strings.Join(parts, sourceSeparator)
}

// TotalChars sums the rune length of every source's content.
func TotalChars(sources []*ContentSource) int {
	total := 0
	for _, s := range sources {
		total += CountChars(s.Content)
	}
	return total
}
