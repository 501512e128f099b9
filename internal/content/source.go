package content

import (
	"fmt"
	"strings"
)

// Weight bounds for content sources.
const (
	MinWeight     = 0.0
	MaxWeight     = 5.0
	DefaultWeight = 1.0
)

// SourceType is the closed set of content source kinds.
type SourceType string

const (
	SourceReflection   SourceType = "reflection"
	SourceText         SourceType = "text"
	SourceConversation SourceType = "conversation"
	SourceDocument     SourceType = "document"
	SourceStructured   SourceType = "structured"
)

// AllSourceTypes lists every SourceType in display order.
var AllSourceTypes = []SourceType{
	SourceReflection,
	SourceText,
	SourceConversation,
	SourceDocument,
	SourceStructured,
}

// ParseSourceType converts a raw string into a SourceType.
func ParseSourceType(s string) (SourceType, error) {
	t := SourceType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown source type %q", s)
	}
	return t, nil
}

// Valid reports whether t is one of the known source types.
func (t SourceType) Valid() bool {
	switch t {
	case SourceReflection, SourceText, SourceConversation, SourceDocument, SourceStructured:
		return true
	}
	return false
}

// Label returns the upper-case label used when presenting sources to the model.
func (t SourceType) Label() string {
	switch t {
	case SourceReflection:
		return "REFLECTION"
	case SourceText:
		return "TEXT"
	case SourceConversation:
		return "CONVERSATION"
	case SourceDocument:
		return "DOCUMENT"
	case SourceStructured:
		return "STRUCTURED"
	}
	return strings.ToUpper(string(t))
}

// ContentSource is a weighted unit of user knowledge fed into synthesis.
type ContentSource struct {
	// ID is a ULID that uniquely identifies this source
	ID string `json:"id"`

	// RealmID is the owning realm; nil means unassigned
	RealmID *string `json:"realm_id,omitempty"`

	SourceType SourceType `json:"source_type"`
	Title      *string    `json:"title,omitempty"`
	Content    string     `json:"content"`

	// Weight is the importance of this source, clamped to [0,5]
	Weight float64 `json:"weight"`

	// Metadata holds provenance and cached analysis (stored as JSON)
	Metadata map[string]any `json:"metadata"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// TitleOrUntitled returns the title, or "Untitled" when it is missing or blank.
func (s *ContentSource) TitleOrUntitled() string {
	if s.Title == nil || strings.TrimSpace(*s.Title) == "" {
		return "Untitled"
	}
	return *s.Title
}

// ClampWeight pins w to [MinWeight, MaxWeight].
func ClampWeight(w float64) float64 {
	if w < MinWeight {
		return MinWeight
	}
	if w > MaxWeight {
		return MaxWeight
	}
	return w
}

// ValidWeight reports whether w is inside [MinWeight, MaxWeight].
func ValidWeight(w float64) bool {
	return w >= MinWeight && w <= MaxWeight
}

// IDs returns the ids of the given sources in order.
func IDs(sources []*ContentSource) []string {
	ids := make([]string, 0, len(sources))
	for _, s := range sources {
		ids = append(ids, s.ID)
	}
	return ids
}
