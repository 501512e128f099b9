package synthesis

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/pathfinder/internal/content"
	pferrors "github.com/hpungsan/pathfinder/internal/errors"
	"github.com/hpungsan/pathfinder/internal/llm"
)

// Engine runs the four-stage full synthesis pipeline. It never touches the
// database: callers load the realm and sources and commit the result.
type Engine struct {
	gen llm.Generator
	log *zap.Logger
	now func() time.Time
}

// NewEngine creates an Engine. A nil logger disables logging.
func NewEngine(gen llm.Generator, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{gen: gen, log: log, now: time.Now}
}

// ForRealm returns an Engine whose log lines carry realm_id.
func (e *Engine) ForRealm(realmID string) *Engine {
	return &Engine{gen: e.gen, log: e.log.With(zap.String("realm_id", realmID)), now: e.now}
}

// RunInput is the input for a full pipeline run.
type RunInput struct {
	Realm   *content.Realm
	Sources []*content.ContentSource
	Type    content.SynthesisType
}

// Run executes content analysis, persona extraction, prompt engineering and
// quality assessment in order. Stage failures fall back and never abort the run.
func (e *Engine) Run(ctx context.Context, in RunInput) (string, *Bundle, error) {
	if in.Realm == nil {
		return "", nil, pferrors.NewInvalidRequest("realm is required")
	}
	if len(in.Sources) == 0 {
		return "", nil, pferrors.NewNoContent(in.Realm.ID)
	}
	synthType := in.Type
	if synthType == "" {
		synthType = content.SynthesisFull
	}

	re := e.ForRealm(in.Realm.ID)
	start := re.now()
	name := in.Realm.Name
	existing := in.Realm.Prompt()

	re.log.Info("full synthesis started", zap.Int("sources", len(in.Sources)))

	analysis := re.AnalyzeContent(ctx, name, existing, in.Sources)
	persona := re.ExtractPersona(ctx, name, in.Sources, analysis)
	prompt := re.EngineerPrompt(ctx, name, persona, analysis, existing)
	quality := re.AssessQuality(ctx, name, prompt, persona, len(in.Sources))

	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	end := re.now()
	elapsed := end.Sub(start).Milliseconds()
	bundle := &Bundle{
		ContentAnalysis:   analysis,
		PersonaProfile:    persona,
		QualityAssessment: quality,
		SynthesisMetadata: Metadata{
			Method:              content.MethodAdvanced,
			ContentSourcesCount: len(in.Sources),
			ContentSourceIDs:    content.IDs(in.Sources),
			ProcessingTimeMs:    elapsed,
			SynthesisType:       synthType,
			Timestamp:           timestamp(end),
		},
	}

	re.log.Info("full synthesis finished",
		zap.Int64("processing_time_ms", elapsed),
		zap.Float64("overall_quality", quality.OverallQuality))

	return prompt, bundle, nil
}

// AnalyzeContent runs the content analysis stage.
func (e *Engine) AnalyzeContent(ctx context.Context, realmName, existing string, sources []*content.ContentSource) ContentAnalysis {
	text, err := e.generate(ctx, "analysis", analysisPrompt(realmName, existing, content.FormatForAnalysis(sources)))
	if err != nil {
		return fallbackAnalysis()
	}
	var out ContentAnalysis
	if err := llm.DecodeJSON(text, &out); err != nil {
		e.stageFailed("analysis", err)
		return fallbackAnalysis()
	}
	out.Themes = nonNil(out.Themes)
	out.PersonaTraits = nonNil(out.PersonaTraits)
	out.ContentGaps = nonNil(out.ContentGaps)
	out.Suggestions = nonNil(out.Suggestions)
	out.QualityScore = clampScore(out.QualityScore)
	return out
}

// ExtractPersona runs the persona extraction stage over sources ordered by weight.
func (e *Engine) ExtractPersona(ctx context.Context, realmName string, sources []*content.ContentSource, analysis ContentAnalysis) PersonaProfile {
	text, err := e.generate(ctx, "persona", personaPrompt(realmName, analysis, content.FormatWeighted(sources)))
	if err != nil {
		return fallbackPersona()
	}
	var out PersonaProfile
	if err := llm.DecodeJSON(text, &out); err != nil {
		e.stageFailed("persona", err)
		return fallbackPersona()
	}
	out.ValuesBeliefs = nonNil(out.ValuesBeliefs)
	out.GoalsAspirations = nonNil(out.GoalsAspirations)
	out.PreferencesPatterns = nonNil(out.PreferencesPatterns)
	return out
}

// EngineerPrompt runs the prompt engineering stage and returns plain prompt text.
func (e *Engine) EngineerPrompt(ctx context.Context, realmName string, persona PersonaProfile, analysis ContentAnalysis, existing string) string {
	text, err := e.generate(ctx, "engineering", engineeringPrompt(realmName, persona, analysis, existing))
	if err != nil {
		return fallbackPrompt(realmName)
	}
	prompt := strings.TrimSpace(strings.ReplaceAll(llm.StripFences(text), "```", ""))
	if prompt == "" {
		e.stageFailed("engineering", errors.New("empty prompt"))
		return fallbackPrompt(realmName)
	}
	return prompt
}

// AssessQuality runs the quality assessment stage.
func (e *Engine) AssessQuality(ctx context.Context, realmName, prompt string, persona PersonaProfile, sourceCount int) QualityAssessment {
	text, err := e.generate(ctx, "quality", qualityPrompt(realmName, prompt, persona, sourceCount))
	if err != nil {
		return fallbackQuality()
	}
	var raw struct {
		QualityAssessment
		Overall *float64 `json:"overall_quality"`
	}
	if err := llm.DecodeJSON(text, &raw); err != nil {
		e.stageFailed("quality", err)
		return fallbackQuality()
	}
	out := raw.QualityAssessment
	out.CoherenceScore = clampScore(out.CoherenceScore)
	out.CompletenessScore = clampScore(out.CompletenessScore)
	out.EffectivenessScore = clampScore(out.EffectivenessScore)
	if raw.Overall != nil {
		out.OverallQuality = clampScore(*raw.Overall)
	} else {
		out.OverallQuality = (out.CoherenceScore + out.CompletenessScore + out.EffectivenessScore) / 3
	}
	out.ImprovementSuggestions = nonNil(out.ImprovementSuggestions)
	out.Strengths = nonNil(out.Strengths)
	out.Weaknesses = nonNil(out.Weaknesses)
	return out
}

func (e *Engine) generate(ctx context.Context, stage, prompt string) (string, error) {
	text, err := e.gen.Generate(ctx, llm.Request{Prompt: prompt})
	if err != nil {
		e.stageFailed(stage, err)
		return "", err
	}
	return text, nil
}

func (e *Engine) stageFailed(stage string, err error) {
	e.log.Warn("synthesis stage fell back", zap.String("stage", stage), zap.Error(err))
}
