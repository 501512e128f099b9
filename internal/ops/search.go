package ops

import (
	"context"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/db"
	"github.com/hpungsan/pathfinder/internal/errors"
)

// Search limits
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
	MaxQueryLength     = 200
	SnippetContext     = 60
)

// SearchInput contains parameters for the SearchSources operation.
type SearchInput struct {
	Query   string  // required
	RealmID *string // optional filter
	Limit   int     // default: 20, max: 100
}

// SearchResultItem wraps a source summary with a match snippet.
type SearchResultItem struct {
	content.SourceSummary
	// Snippet is HTML-safe: source text is escaped; only <b>...</b>
	// highlight tags are present.
	Snippet string `json:"snippet"`
}

// SearchOutput contains the result of the SearchSources operation.
type SearchOutput struct {
	Items []SearchResultItem `json:"items"`
	Query string             `json:"query"`
	Sort  string             `json:"sort"`
}

// SearchSources finds content sources whose title or text contains query.
func SearchSources(ctx context.Context, env *Env, input SearchInput) (*SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("query exceeds maximum length of %d characters", MaxQueryLength))
	}

	limit := clampLimit(input.Limit, DefaultSearchLimit, MaxSearchLimit)
	sources, err := db.SearchSources(ctx, env.DB, query, cleanOptionalString(input.RealmID), limit)
	if err != nil {
		return nil, err
	}

	items := make([]SearchResultItem, 0, len(sources))
	for _, s := range sources {
		items = append(items, SearchResultItem{
			SourceSummary: s.ToSummary(),
			Snippet:       buildSnippet(s.Content, query, SnippetContext),
		})
	}
	return &SearchOutput{Items: items, Query: query, Sort: "created_at_desc"}, nil
}

// buildSnippet returns the text around the first case-insensitive match of
// query with the match wrapped in <b> tags. Text is HTML-escaped; the window
// is measured in runes so multi-byte characters are never split.
func buildSnippet(text, query string, window int) string {
	runes := []rune(text)
	lowerRunes := []rune(strings.ToLower(text))
	needle := []rune(strings.ToLower(query))

	// ToLower can change rune counts for a few scripts; fall back to a plain preview.
	if len(lowerRunes) != len(runes) {
		return html.EscapeString(content.Preview(text, window*2))
	}

	at := indexRunes(lowerRunes, needle)
	if at < 0 {
		return html.EscapeString(content.Preview(text, window*2))
	}
	end := at + len(needle)

	start := max(at-window, 0)
	stop := min(end+window, len(runes))

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(html.EscapeString(string(runes[start:at])))
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(string(runes[at:end])))
	b.WriteString("</b>")
	b.WriteString(html.EscapeString(string(runes[end:stop])))
	if stop < len(runes) {
		b.WriteString("...")
	}
	return b.String()
}

func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j := range needle {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}
