package synthesis

import (
	"encoding/json"
	"fmt"
	"strings"
)

const integrationTemplate = `You are updating an existing AI assistant system prompt by integrating new content.

EXISTING PROMPT:
%s

NEW CONTENT TO INTEGRATE:
%s

Instructions:
1. Identify key information from the new content
2. Seamlessly integrate it into the existing prompt
3. Maintain the original tone and structure
4. Don't repeat existing information
5. Keep the update concise

Return only the updated system prompt.`

const analysisTemplate = `You are an expert content analyst specializing in personal profiling and AI system design.

Analyze the following content sources for the %q realm to extract:
1. Major themes and topics
2. Personal traits, characteristics, and behavioral patterns
3. Values, beliefs, and worldview elements
4. Content gaps and missing information areas
5. Quality assessment of the content collection

Existing context: %s

Content Sources:
%s

Return analysis as JSON with this exact structure:
{
    "themes": ["theme1", "theme2", ...],
    "persona_traits": ["trait1", "trait2", ...],
    "content_gaps": ["gap1", "gap2", ...],
    "quality_score": 0.85,
    "suggestions": ["suggestion1", "suggestion2", ...]
}

Focus on actionable insights that would help an AI assistant provide more personalized responses.`

const personaTemplate = `Based on the content analysis, create a detailed persona profile for the %q realm.

Analysis Results:
- Themes: %s
- Traits: %s
- Quality Score: %s

Weighted Content Sources:
%s

Extract a persona profile with these categories:
1. Core Identity (who they are fundamentally)
2. Values & Beliefs (what drives them)
3. Communication Style (how they prefer to interact)
4. Goals & Aspirations (what they're working toward)
5. Context & Background (relevant life details)
6. Preferences & Patterns (behavioral tendencies)

Return as structured JSON:
{
    "core_identity": "description",
    "values_beliefs": ["value1", "value2"],
    "communication_style": "description",
    "goals_aspirations": ["goal1", "goal2"],
    "context_background": "description",
    "preferences_patterns": ["pattern1", "pattern2"]
}

Be specific and actionable - focus on details that would help an AI provide better responses.`

const engineeringTemplate = `You are an expert prompt engineer specializing in creating personalized AI system prompts.

Create a sophisticated system prompt for the %q realm using this persona profile:

Core Identity: %s
Values & Beliefs: %s
Communication Style: %s
Goals & Aspirations: %s
Context & Background: %s
Preferences & Patterns: %s

Quality Score: %s
Content Gaps: %s

Existing Prompt: %s

Engineering Guidelines:
1. Write in a natural, conversational tone
2. Include specific details that enable personalized responses
3. Focus on actionable context, not generic statements
4. Keep it concise but comprehensive (200-400 words)
5. Avoid overly complimentary language
6. Structure for easy AI comprehension

The prompt should help an AI assistant:
- Understand the user's context and background
- Adapt communication style to user preferences
- Provide relevant and personalized responses
- Recognize important themes and topics for this user

Return ONLY the engineered system prompt text, no JSON or markup.`

const qualityTemplate = `Evaluate the quality of this system prompt for the %q realm:

SYSTEM PROMPT:
---
%s
---

ORIGINAL PERSONA PROFILE:
%s

CONTENT SOURCES COUNT: %d

Assess the prompt on these dimensions (0.0 to 1.0):

1. COHERENCE: Does the prompt flow well and make logical sense?
2. COMPLETENESS: Does it capture the key aspects of the persona?
3. EFFECTIVENESS: Would this help an AI provide better responses?
4. SPECIFICITY: Are there concrete, actionable details?
5. CONCISENESS: Is it well-structured and appropriately sized?

Also identify:
- Key strengths of the prompt
- Areas for improvement
- Specific suggestions for enhancement

Return assessment as JSON:
{
    "coherence_score": 0.85,
    "completeness_score": 0.78,
    "effectiveness_score": 0.82,
    "overall_quality": 0.82,
    "improvement_suggestions": ["suggestion1", "suggestion2"],
    "strengths": ["strength1", "strength2"],
    "weaknesses": ["weakness1", "weakness2"]
}`

// Markers that identify each stage prompt; tests route fake replies on them.
const (
	MarkerIntegration = "NEW CONTENT TO INTEGRATE"
	MarkerAnalysis    = "expert content analyst"
	MarkerPersona     = "create a detailed persona profile"
	MarkerEngineering = "expert prompt engineer"
	MarkerQuality     = "Evaluate the quality of this system prompt"
)

func integrationPrompt(existing, newContent string) string {
	return fmt.Sprintf(integrationTemplate, existing, newContent)
}

func analysisPrompt(realmName, existing, sources string) string {
	if existing == "" {
		existing = "No existing prompt"
	}
	return fmt.Sprintf(analysisTemplate, realmName, existing, sources)
}

func personaPrompt(realmName string, a ContentAnalysis, weighted string) string {
	return fmt.Sprintf(personaTemplate, realmName,
		strings.Join(a.Themes, ", "), strings.Join(a.PersonaTraits, ", "),
		formatScore(a.QualityScore), weighted)
}

func engineeringPrompt(realmName string, p PersonaProfile, a ContentAnalysis, existing string) string {
	if existing == "" {
		existing = "None"
	}
	return fmt.Sprintf(engineeringTemplate, realmName,
		p.CoreIdentity, formatList(p.ValuesBeliefs), p.CommunicationStyle,
		formatList(p.GoalsAspirations), p.ContextBackground, formatList(p.PreferencesPatterns),
		formatScore(a.QualityScore), formatList(a.ContentGaps), existing)
}

func qualityPrompt(realmName, prompt string, p PersonaProfile, sourceCount int) string {
	profile, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		profile = []byte("{}")
	}
	return fmt.Sprintf(qualityTemplate, realmName, prompt, profile, sourceCount)
}

func formatScore(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	return "[" + strings.Join(items, "; ") + "]"
}
