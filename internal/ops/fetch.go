package ops

import (
	"context"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/db"
)

// GetSource retrieves a single content source with its full text.
func GetSource(ctx context.Context, env *Env, id string) (*content.ContentSource, error) {
	id, err := requireID(id, "source_id")
	if err != nil {
		return nil, err
	}
	return db.GetSource(ctx, env.DB, id)
}

// InsightsOutput contains the result of the ExtractInsights operation.
type InsightsOutput struct {
	SourceID   string           `json:"source_id"`
	Analysis   content.Analysis `json:"analysis"`
	AnalyzedAt int64            `json:"analyzed_at"`
}

// ExtractInsights re-runs the keyword tagger over a source and rewrites the
// cached analysis in its metadata. It never calls the language model.
func ExtractInsights(ctx context.Context, env *Env, id string) (*InsightsOutput, error) {
	src, err := GetSource(ctx, env, id)
	if err != nil {
		return nil, err
	}

	now := env.unix()
	a := content.Analyze(src.Content)
	if err := db.UpdateSourceMetadata(ctx, env.DB, src.ID, content.WithAnalysis(src.Metadata, a, now), now); err != nil {
		return nil, err
	}
	return &InsightsOutput{SourceID: src.ID, Analysis: a, AnalyzedAt: now}, nil
}
