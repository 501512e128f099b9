package content

// DefaultRealmName is the name of the protected realm created on first listing.
const DefaultRealmName = "Pathfinder"

// InitialVersion is the current_version of a realm that has never been
// synthesized. The first applied synthesis moves it to 2.
const InitialVersion = 1

// Realm is a topic-scoped container that owns one synthesized system prompt.
type Realm struct {
	// ID is a ULID that uniquely identifies this realm
	ID string `json:"id"`

	// Name is the human-readable realm name
	Name string `json:"name"`

	// Description is an optional free-form description
	Description *string `json:"description,omitempty"`

	// SystemPrompt is the current synthesized prompt (nil until first synthesis)
	SystemPrompt *string `json:"system_prompt,omitempty"`

	// IsDefault marks the protected default realm, which cannot be deleted
	IsDefault bool `json:"is_default"`

	// SynthesisDisabled suppresses all automatic synthesis for this realm
	SynthesisDisabled bool `json:"synthesis_disabled"`

	// QualityScore is the overall quality of the last full synthesis, in [0,1]
	QualityScore *float64 `json:"quality_score,omitempty"`

	// LastSynthesisAt is the Unix timestamp of the last applied synthesis
	LastSynthesisAt *int64 `json:"last_synthesis_at,omitempty"`

	// CurrentVersion starts at InitialVersion and increases by one on every
	// applied synthesis
	CurrentVersion int `json:"current_version"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// Prompt returns the current system prompt, or "" when none exists.
func (r *Realm) Prompt() string {
	if r.SystemPrompt == nil {
		return ""
	}
	return *r.SystemPrompt
}
