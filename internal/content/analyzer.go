package content

import "strings"

// MetadataAnalysisKey is the metadata key holding the cached lightweight analysis.
const MetadataAnalysisKey = "lightweight_analysis"

// Analysis is the result of the keyword tagger. It is a pure function of the text.
type Analysis struct {
	Themes               []string `json:"themes"`
	Traits               []string `json:"traits"`
	ContentLength        int      `json:"content_length"`
	ImportanceIndicators int      `json:"importance_indicators"`
}

type tagRule struct {
	tag   string
	words []string
}

var themeRules = []tagRule{
	{"professional", []string{"work", "job", "career", "professional"}},
	{"learning", []string{"learn", "study", "education", "knowledge"}},
	{"goals", []string{"goal", "aspiration", "dream", "want to"}},
	{"values", []string{"value", "believe", "principle", "important"}},
}

var traitRules = []tagRule{
	{"detail-oriented", []string{"detail", "precise", "accurate", "careful"}},
	{"creative", []string{"creative", "innovative", "artistic", "design"}},
	{"collaborative", []string{"help", "support", "assist", "collaborate"}},
}

var importanceWords = []string{"important", "key", "essential", "critical"}

// Analyze tags text with themes and traits using case-insensitive substring
// matches. It never fails and makes no external calls.
func Analyze(text string) Analysis {
	lower := strings.ToLower(text)

	count := 0
	for _, w := range importanceWords {
		if strings.Contains(lower, w) {
			count++
		}
	}

	return Analysis{
		Themes:               matchRules(lower, themeRules),
		Traits:               matchRules(lower, traitRules),
		ContentLength:        CountChars(text),
		ImportanceIndicators: count,
	}
}

func matchRules(lower string, rules []tagRule) []string {
	tags := []string{}
	for _, r := range rules {
		for _, w := range r.words {
			if strings.Contains(lower, w) {
				tags = append(tags, r.tag)
				break
			}
		}
	}
	return tags
}

// ToMap converts the analysis into a JSON-friendly map for metadata storage.
func (a Analysis) ToMap(analyzedAt int64) map[string]any {
	return map[string]any{
		"themes":                a.Themes,
		"traits":                a.Traits,
		"content_length":        a.ContentLength,
		"importance_indicators": a.ImportanceIndicators,
		"analyzed_at":           analyzedAt,
	}
}

// AnalysisFromMetadata reads a cached analysis back out of source metadata.
// Values decoded from JSON arrive as []any and float64, so both shapes are accepted.
func AnalysisFromMetadata(md map[string]any) (Analysis, bool) {
	raw, ok := md[MetadataAnalysisKey].(map[string]any)
	if !ok {
		return Analysis{}, false
	}
	return Analysis{
		Themes:               toStrings(raw["themes"]),
		Traits:               toStrings(raw["traits"]),
		ContentLength:        toInt(raw["content_length"]),
		ImportanceIndicators: toInt(raw["importance_indicators"]),
	}, true
}

// WithAnalysis returns a copy of md with the analysis stored under MetadataAnalysisKey.
func WithAnalysis(md map[string]any, a Analysis, analyzedAt int64) map[string]any {
	out := make(map[string]any, len(md)+1)
	for k, v := range md {
		out[k] = v
	}
	out[MetadataAnalysisKey] = a.ToMap(analyzedAt)
	return out
}

func toStrings(v any) []string {
	out := []string{}
	switch vals := v.(type) {
	case []string:
		out = append(out, vals...)
	case []any:
		for _, x := range vals {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
