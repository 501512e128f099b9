package synthesis

import (
	"encoding/json"
	"time"

	"github.com/hpungsan/pathfinder/internal/content"
)

// ContentAnalysis is the output of the content analysis stage.
type ContentAnalysis struct {
	Themes        []string `json:"themes"`
	PersonaTraits []string `json:"persona_traits"`
	ContentGaps   []string `json:"content_gaps"`
	QualityScore  float64  `json:"quality_score"`
	Suggestions   []string `json:"suggestions"`
}

// PersonaProfile is the output of the persona extraction stage.
type PersonaProfile struct {
	CoreIdentity        string     `json:"core_identity"`
	ValuesBeliefs       stringList `json:"values_beliefs"`
	CommunicationStyle  string     `json:"communication_style"`
	GoalsAspirations    stringList `json:"goals_aspirations"`
	ContextBackground   string     `json:"context_background"`
	PreferencesPatterns stringList `json:"preferences_patterns"`
}

// QualityAssessment is the output of the quality assessment stage.
type QualityAssessment struct {
	CoherenceScore         float64  `json:"coherence_score"`
	CompletenessScore      float64  `json:"completeness_score"`
	EffectivenessScore     float64  `json:"effectiveness_score"`
	OverallQuality         float64  `json:"overall_quality"`
	ImprovementSuggestions []string `json:"improvement_suggestions"`
	Strengths              []string `json:"strengths"`
	Weaknesses             []string `json:"weaknesses"`
}

// Metadata describes one pipeline run.
type Metadata struct {
	Method              content.SynthesisMethod `json:"method"`
	ContentSourcesCount int                     `json:"content_sources_count"`
	ContentSourceIDs    []string                `json:"content_source_ids"`
	ProcessingTimeMs    int64                   `json:"processing_time_ms"`
	SynthesisType       content.SynthesisType   `json:"synthesis_type"`
	Timestamp           string                  `json:"timestamp"`
}

// Bundle collects every stage output of a full synthesis run.
type Bundle struct {
	ContentAnalysis   ContentAnalysis   `json:"content_analysis"`
	PersonaProfile    PersonaProfile    `json:"persona_profile"`
	QualityAssessment QualityAssessment `json:"quality_assessment"`
	SynthesisMetadata Metadata          `json:"synthesis_metadata"`
}

// ToMap converts the bundle into the generic map stored on jobs.
func (b *Bundle) ToMap() map[string]any {
	return toMap(b)
}

// ToMap converts the assessment into the generic map stored as effectiveness metrics.
func (q QualityAssessment) ToMap() map[string]any {
	return toMap(q)
}

func toMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// stringList accepts either a JSON array of strings or a single string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*l = []string{}
		} else {
			*l = []string{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func clampScore(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

func fallbackAnalysis() ContentAnalysis {
	return ContentAnalysis{
		Themes:        []string{"General information"},
		PersonaTraits: []string{"User information available"},
		ContentGaps:   []string{"Analysis failed - manual review needed"},
		QualityScore:  0.5,
		Suggestions:   []string{"Re-run analysis with valid content"},
	}
}

func fallbackPersona() PersonaProfile {
	return PersonaProfile{
		CoreIdentity:        "User profile extraction failed",
		ValuesBeliefs:       stringList{"Manual review needed"},
		CommunicationStyle:  "Standard interaction style",
		GoalsAspirations:    stringList{"Profile completion needed"},
		ContextBackground:   "Limited information available",
		PreferencesPatterns: stringList{"Analysis incomplete"},
	}
}

// GenericPersona is the stand-in profile used when assessing a stored prompt
// version whose persona was never kept.
func GenericPersona() PersonaProfile {
	return PersonaProfile{
		CoreIdentity:        "Profile from content analysis",
		ValuesBeliefs:       stringList{"Extracted from content"},
		CommunicationStyle:  "Analyzed from interactions",
		GoalsAspirations:    stringList{"Identified from content"},
		ContextBackground:   "Built from content sources",
		PreferencesPatterns: stringList{"Extracted patterns"},
	}
}

func fallbackPrompt(realmName string) string {
	return "This realm contains information about " + realmName +
		". The user's profile and preferences are being developed through ongoing interactions and content analysis."
}

func fallbackQuality() QualityAssessment {
	return QualityAssessment{
		CoherenceScore:         0.5,
		CompletenessScore:      0.5,
		EffectivenessScore:     0.5,
		OverallQuality:         0.5,
		ImprovementSuggestions: []string{"Quality assessment failed - manual review needed"},
		Strengths:              []string{"Basic prompt structure"},
		Weaknesses:             []string{"Assessment incomplete"},
	}
}
