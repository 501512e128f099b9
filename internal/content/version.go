package content

// SynthesisMethod records how a prompt version was produced.
type SynthesisMethod string

const (
	MethodQASynthesis     SynthesisMethod = "qa_synthesis"
	MethodTextIntegration SynthesisMethod = "text_integration"
	MethodHybrid          SynthesisMethod = "hybrid"
	MethodAdvanced        SynthesisMethod = "advanced"
	MethodLegacy          SynthesisMethod = "legacy"
)

// PromptVersion is one entry in a realm's append-only prompt history.
type PromptVersion struct {
	ID                     string          `json:"id"`
	RealmID                string          `json:"realm_id"`
	VersionNumber          int             `json:"version_number"`
	SystemPrompt           string          `json:"system_prompt"`
	SynthesisMethod        SynthesisMethod `json:"synthesis_method"`
	QualityScore           *float64        `json:"quality_score,omitempty"`
	EffectivenessMetrics   map[string]any  `json:"effectiveness_metrics,omitempty"`
	ImprovementSuggestions []string        `json:"improvement_suggestions,omitempty"`
	ContentSourceIDs       []string        `json:"content_source_ids,omitempty"`
	CreatedAt              int64           `json:"created_at"`
}
