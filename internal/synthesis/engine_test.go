package synthesis

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/errors"
	"github.com/hpungsan/pathfinder/internal/llm"
	"github.com/hpungsan/pathfinder/internal/llm/llmtest"
)

const (
	analysisReply = "```json\n" + `{
  "themes": ["career growth"],
  "persona_traits": ["curious"],
  "content_gaps": ["hobbies"],
  "quality_score": 0.8,
  "suggestions": ["add hobbies"]
}` + "\n```"

	personaReply = `{
  "core_identity": "A software engineer",
  "values_beliefs": ["craft"],
  "communication_style": "direct",
  "goals_aspirations": "lead a team",
  "context_background": "ten years in backend work",
  "preferences_patterns": ["short answers"]
}`

	engineeredReply = "```\nYou are assisting a direct, curious software engineer.\n```"

	qualityReply = `{
  "coherence_score": 0.9,
  "completeness_score": 0.6,
  "effectiveness_score": 0.9,
  "improvement_suggestions": ["mention hobbies"],
  "strengths": ["specific"],
  "weaknesses": ["narrow"]
}`
)

func stageReplies() map[string]string {
	return map[string]string{
		MarkerAnalysis:    analysisReply,
		MarkerPersona:     personaReply,
		MarkerEngineering: engineeredReply,
		MarkerQuality:     qualityReply,
	}
}

func testSources() []*content.ContentSource {
	low := "Notes"
	return []*content.ContentSource{
		{ID: "s1", SourceType: content.SourceText, Title: &low, Content: "I like short answers.", Weight: 1},
		{ID: "s2", SourceType: content.SourceReflection, Content: "I want to lead a team.", Weight: 4},
	}
}

func TestEngineRun(t *testing.T) {
	fake := &llmtest.Fake{Respond: llmtest.ByMarker(stageReplies())}
	e := NewEngine(fake, zaptest.NewLogger(t))

	realm := &content.Realm{ID: "r1", Name: "Work"}
	prompt, bundle, err := e.Run(context.Background(), RunInput{Realm: realm, Sources: testSources()})
	require.NoError(t, err)

	require.Equal(t, "You are assisting a direct, curious software engineer.", prompt)
	require.Equal(t, 4, fake.CallCount())

	wantAnalysis := ContentAnalysis{
		Themes:        []string{"career growth"},
		PersonaTraits: []string{"curious"},
		ContentGaps:   []string{"hobbies"},
		QualityScore:  0.8,
		Suggestions:   []string{"add hobbies"},
	}
	if diff := cmp.Diff(wantAnalysis, bundle.ContentAnalysis); diff != "" {
		t.Errorf("analysis mismatch (-want +got):\n%s", diff)
	}

	// a bare string is accepted where a list is expected
	require.Equal(t, stringList{"lead a team"}, bundle.PersonaProfile.GoalsAspirations)

	// overall quality defaults to the mean of the three scores
	require.InDelta(t, 0.8, bundle.QualityAssessment.OverallQuality, 1e-9)

	meta := bundle.SynthesisMetadata
	require.Equal(t, content.MethodAdvanced, meta.Method)
	require.Equal(t, content.SynthesisFull, meta.SynthesisType)
	require.Equal(t, 2, meta.ContentSourcesCount)
	require.Equal(t, []string{"s1", "s2"}, meta.ContentSourceIDs)
	require.NotEmpty(t, meta.Timestamp)

	// persona stage sees the heaviest source first
	calls := fake.Calls()
	persona := calls[1].Prompt
	require.Contains(t, persona, MarkerPersona)
	require.Less(t, strings.Index(persona, "🔥 REFLECTION (Weight: 4.0)"), strings.Index(persona, "📝 TEXT (Weight: 1.0)"))
	require.Contains(t, calls[0].Prompt, "No existing prompt")
}

func TestEngineRun_FallsBackWhenUnavailable(t *testing.T) {
	e := NewEngine(llm.Unavailable{}, zaptest.NewLogger(t))
	realm := &content.Realm{ID: "r1", Name: "Work"}

	prompt, bundle, err := e.Run(context.Background(), RunInput{Realm: realm, Sources: testSources()})
	require.NoError(t, err)

	require.Equal(t, fallbackPrompt("Work"), prompt)
	require.Contains(t, prompt, "information about Work")
	if diff := cmp.Diff(fallbackAnalysis(), bundle.ContentAnalysis); diff != "" {
		t.Errorf("analysis mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(fallbackPersona(), bundle.PersonaProfile); diff != "" {
		t.Errorf("persona mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(fallbackQuality(), bundle.QualityAssessment); diff != "" {
		t.Errorf("quality mismatch (-want +got):\n%s", diff)
	}
}

func TestEngineRun_MalformedJSONFallsBackPerStage(t *testing.T) {
	replies := stageReplies()
	replies[MarkerAnalysis] = "I could not produce JSON, sorry."
	fake := &llmtest.Fake{Respond: llmtest.ByMarker(replies)}
	e := NewEngine(fake, zaptest.NewLogger(t))

	_, bundle, err := e.Run(context.Background(), RunInput{Realm: &content.Realm{ID: "r1", Name: "Work"}, Sources: testSources()})
	require.NoError(t, err)

	require.Equal(t, []string{"Analysis failed - manual review needed"}, bundle.ContentAnalysis.ContentGaps)
	// later stages still ran against the fallback analysis
	require.Equal(t, "A software engineer", bundle.PersonaProfile.CoreIdentity)
	require.Equal(t, 4, fake.CallCount())
}

func TestEngineRun_StageFallbackLogsRealm(t *testing.T) {
	replies := stageReplies()
	delete(replies, MarkerPersona)
	core, logs := observer.New(zapcore.WarnLevel)
	e := NewEngine(&llmtest.Fake{Respond: llmtest.ByMarker(replies)}, zap.New(core))

	_, bundle, err := e.Run(context.Background(), RunInput{Realm: &content.Realm{ID: "r1", Name: "Work"}, Sources: testSources()})
	require.NoError(t, err)
	require.Equal(t, fallbackPersona(), bundle.PersonaProfile)

	entries := logs.FilterMessage("synthesis stage fell back").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "persona", fields["stage"])
	require.Equal(t, "r1", fields["realm_id"])
}

func TestEngineRun_NoSources(t *testing.T) {
	fake := &llmtest.Fake{Reply: "unused"}
	e := NewEngine(fake, nil)

	_, _, err := e.Run(context.Background(), RunInput{Realm: &content.Realm{ID: "r1", Name: "Work"}})
	require.True(t, errors.Is(err, errors.ErrNoContent))
	require.Zero(t, fake.CallCount())
}

func TestAssessQuality_ClampsScores(t *testing.T) {
	fake := &llmtest.Fake{Reply: `{"coherence_score": 1.4, "completeness_score": -0.2, "effectiveness_score": 0.5, "overall_quality": 7}`}
	e := NewEngine(fake, nil)

	q := e.AssessQuality(context.Background(), "Work", "prompt", GenericPersona(), 3)
	require.Equal(t, 1.0, q.CoherenceScore)
	require.Equal(t, 0.0, q.CompletenessScore)
	require.Equal(t, 1.0, q.OverallQuality)
	require.NotNil(t, q.Strengths)
	require.Contains(t, fake.Calls()[0].Prompt, "CONTENT SOURCES COUNT: 3")
}

func TestEngineerPrompt_EmptyReplyFallsBack(t *testing.T) {
	e := NewEngine(&llmtest.Fake{Reply: "```\n```"}, nil)
	got := e.EngineerPrompt(context.Background(), "Health", GenericPersona(), fallbackAnalysis(), "")
	require.Equal(t, fallbackPrompt("Health"), got)
}

func TestBundleToMap(t *testing.T) {
	b := &Bundle{QualityAssessment: fallbackQuality()}
	m := b.ToMap()
	qa, ok := m["quality_assessment"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, 0.5, qa["overall_quality"])
	require.Contains(t, m, "synthesis_metadata")
}
