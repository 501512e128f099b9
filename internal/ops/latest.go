package ops

import (
	"context"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/db"
	"github.com/hpungsan/pathfinder/internal/synthesis"
)

// unknownRealmName labels analysis runs that have no realm context.
const unknownRealmName = "Unknown Realm"

// ListVersionsInput contains parameters for the ListVersions operation.
type ListVersionsInput struct {
	RealmID string // required
	Limit   int    // default: 50, max: 200
}

// ListVersionsOutput contains the result of the ListVersions operation.
type ListVersionsOutput struct {
	RealmID string                   `json:"realm_id"`
	Items   []*content.PromptVersion `json:"items"`
	Sort    string                   `json:"sort"`
}

// ListVersions returns a realm's prompt history, newest first.
func ListVersions(ctx context.Context, env *Env, input ListVersionsInput) (*ListVersionsOutput, error) {
	realmID, err := requireID(input.RealmID, "realm_id")
	if err != nil {
		return nil, err
	}
	if _, err := db.GetRealm(ctx, env.DB, realmID); err != nil {
		return nil, err
	}

	limit := clampLimit(input.Limit, DefaultHistoryLimit, MaxHistoryLimit)
	items, err := db.ListPromptVersions(ctx, env.DB, realmID, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*content.PromptVersion{}
	}
	return &ListVersionsOutput{RealmID: realmID, Items: items, Sort: "version_desc"}, nil
}

// GetVersion retrieves one prompt version.
func GetVersion(ctx context.Context, env *Env, id string) (*content.PromptVersion, error) {
	id, err := requireID(id, "version_id")
	if err != nil {
		return nil, err
	}
	return db.GetPromptVersion(ctx, env.DB, id)
}

// AssessVersion re-runs quality assessment on a stored prompt version against
// the realm's current sources. The persona is a generic profile, so scores
// reflect the prompt text rather than a fresh extraction.
func AssessVersion(ctx context.Context, env *Env, id string) (*synthesis.QualityAssessment, error) {
	v, err := GetVersion(ctx, env, id)
	if err != nil {
		return nil, err
	}
	realm, err := db.GetRealm(ctx, env.DB, v.RealmID)
	if err != nil {
		return nil, err
	}
	count, err := db.CountSources(ctx, env.DB, db.SourceFilter{RealmID: &realm.ID})
	if err != nil {
		return nil, err
	}

	qa := env.Synth.Engine().ForRealm(realm.ID).AssessQuality(ctx, realm.Name, v.SystemPrompt, synthesis.GenericPersona(), count)
	return &qa, nil
}

// AnalyzeSource runs the content analysis stage on one source. When realmID
// is set, the realm's name and prompt give the analysis context.
func AnalyzeSource(ctx context.Context, env *Env, sourceID string, realmID *string) (*synthesis.ContentAnalysis, error) {
	sourceID, err := requireID(sourceID, "source_id")
	if err != nil {
		return nil, err
	}
	src, err := db.GetSource(ctx, env.DB, sourceID)
	if err != nil {
		return nil, err
	}

	name, existing := unknownRealmName, ""
	if realmID = cleanOptionalString(realmID); realmID != nil {
		realm, err := db.GetRealm(ctx, env.DB, *realmID)
		if err != nil {
			return nil, err
		}
		name, existing = realm.Name, realm.Prompt()
	}

	analysis := env.Synth.Engine().AnalyzeContent(ctx, name, existing, []*content.ContentSource{src})
	return &analysis, nil
}

// RealmAnalysisOutput contains the result of the AnalyzeRealm operation.
type RealmAnalysisOutput struct {
	RealmID             string                     `json:"realm_id"`
	RealmName           string                     `json:"realm_name"`
	ContentSourcesCount int                        `json:"content_sources_count"`
	Analysis            *synthesis.ContentAnalysis `json:"analysis,omitempty"`
	AnalyzedAt          int64                      `json:"analyzed_at,omitempty"`
	Message             string                     `json:"message,omitempty"`
}

// AnalyzeRealm runs the content analysis stage over every source in a realm.
// An empty realm yields a message instead of an analysis.
func AnalyzeRealm(ctx context.Context, env *Env, realmID string) (*RealmAnalysisOutput, error) {
	realmID, err := requireID(realmID, "realm_id")
	if err != nil {
		return nil, err
	}
	realm, err := db.GetRealm(ctx, env.DB, realmID)
	if err != nil {
		return nil, err
	}
	sources, err := db.ListSources(ctx, env.DB, db.SourceFilter{RealmID: &realm.ID})
	if err != nil {
		return nil, err
	}

	out := &RealmAnalysisOutput{RealmID: realm.ID, RealmName: realm.Name}
	if len(sources) == 0 {
		out.Message = "No content sources found for analysis"
		return out, nil
	}

	analysis := env.Synth.Engine().ForRealm(realm.ID).AnalyzeContent(ctx, realm.Name, realm.Prompt(), sources)
	out.ContentSourcesCount = len(sources)
	out.Analysis = &analysis
	out.AnalyzedAt = env.unix()
	return out, nil
}
