package content

// PreviewChars is the excerpt length used in summaries and content maps.
const PreviewChars = 200

// SourceSummary represents a content source without its full text.
// Used for browse operations (list, content map) to reduce data transfer.
type SourceSummary struct {
	ID         string     `json:"id"`
	RealmID    *string    `json:"realm_id,omitempty"`
	SourceType SourceType `json:"source_type"`
	Title      string     `json:"title"`
	Weight     float64    `json:"weight"`

	// Preview is the first PreviewChars characters of the content
	Preview string `json:"preview"`

	// ContentChars is the character count (runes, not bytes)
	ContentChars int `json:"content_chars"`

	// Themes and Traits come from the cached lightweight analysis
	Themes []string `json:"themes"`
	Traits []string `json:"traits"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// ToSummary converts a ContentSource to a SourceSummary. Tags are taken from
// cached metadata when present and recomputed otherwise.
func (s *ContentSource) ToSummary() SourceSummary {
	a, ok := AnalysisFromMetadata(s.Metadata)
	if !ok {
		a = Analyze(s.Content)
	}
	return SourceSummary{
		ID:           s.ID,
		RealmID:      s.RealmID,
		SourceType:   s.SourceType,
		Title:        s.TitleOrUntitled(),
		Weight:       s.Weight,
		Preview:      Preview(s.Content, PreviewChars),
		ContentChars: CountChars(s.Content),
		Themes:       a.Themes,
		Traits:       a.Traits,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}
