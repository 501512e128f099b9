package ops

import (
	"context"

	"go.uber.org/zap"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/db"
	"github.com/hpungsan/pathfinder/internal/errors"
	"github.com/hpungsan/pathfinder/internal/synthesis"
)

// UpdateSourceInput contains parameters for the UpdateSource operation.
// Nil fields are left unchanged.
type UpdateSourceInput struct {
	ID               string // required
	Title            *string
	Content          *string
	Weight           *float64
	Metadata         map[string]any // merged over existing metadata
	TriggerSynthesis bool           // run an incremental merge after the update
}

// UpdateSourceOutput contains the result of the UpdateSource and UpdateWeight operations.
type UpdateSourceOutput struct {
	Source    *content.ContentSource       `json:"source"`
	Synthesis *synthesis.IncrementalResult `json:"synthesis,omitempty"`
}

// UpdateSource edits a content source. Changing the content refreshes its
// lightweight analysis.
func UpdateSource(ctx context.Context, env *Env, input UpdateSourceInput) (*UpdateSourceOutput, error) {
	id, err := requireID(input.ID, "source_id")
	if err != nil {
		return nil, err
	}
	if input.Title == nil && input.Content == nil && input.Weight == nil && input.Metadata == nil && !input.TriggerSynthesis {
		return nil, errors.NewInvalidRequest("nothing to update")
	}

	src, err := db.GetSource(ctx, env.DB, id)
	if err != nil {
		return nil, err
	}
	now := env.unix()

	if input.Title != nil {
		src.Title = cleanOptionalString(input.Title)
	}
	if input.Weight != nil {
		if !content.ValidWeight(*input.Weight) {
			return nil, errors.NewInvalidRequest("weight must be between 0 and 5")
		}
		src.Weight = *input.Weight
	}
	if len(input.Metadata) > 0 {
		merged := make(map[string]any, len(src.Metadata)+len(input.Metadata))
		for k, v := range src.Metadata {
			merged[k] = v
		}
		for k, v := range input.Metadata {
			if k == content.MetadataAnalysisKey {
				continue
			}
			merged[k] = v
		}
		src.Metadata = merged
	}
	if input.Content != nil {
		if p := content.Check(*input.Content, src.Weight, env.Config.SourceMaxChars); p != "" {
			return nil, errors.NewInvalidRequest(p.Error())
		}
		src.Content = *input.Content
		src.Metadata = content.WithAnalysis(src.Metadata, content.Analyze(src.Content), now)
	}
	src.UpdatedAt = now

	if err := db.UpdateSource(ctx, env.DB, src); err != nil {
		return nil, err
	}

	out := &UpdateSourceOutput{Source: src}
	if input.TriggerSynthesis && src.RealmID != nil {
		res, err := env.Synth.Incremental(ctx, *src.RealmID, []string{src.ID}, nil)
		if err != nil {
			return nil, err
		}
		out.Synthesis = res
	}
	return out, nil
}

// UpdateWeight sets a source's weight. Raising a source into the high-weight
// band triggers an incremental merge unless its realm has synthesis disabled.
func UpdateWeight(ctx context.Context, env *Env, id string, weight float64) (*UpdateSourceOutput, error) {
	id, err := requireID(id, "source_id")
	if err != nil {
		return nil, err
	}
	if !content.ValidWeight(weight) {
		return nil, errors.NewInvalidRequest("weight must be between 0 and 5")
	}

	src, err := db.GetSource(ctx, env.DB, id)
	if err != nil {
		return nil, err
	}
	previous := src.Weight
	now := env.unix()
	if err := db.UpdateSourceWeight(ctx, env.DB, id, weight, now); err != nil {
		return nil, err
	}
	src.Weight = weight
	src.UpdatedAt = now

	out := &UpdateSourceOutput{Source: src}
	threshold := env.Config.Synthesis.HighWeightThreshold
	if src.RealmID == nil || previous >= threshold || weight < threshold {
		return out, nil
	}

	realm, err := db.GetRealm(ctx, env.DB, *src.RealmID)
	if err != nil {
		return nil, err
	}
	if realm.SynthesisDisabled {
		return out, nil
	}

	env.Log.Info("weight crossed high threshold; synthesizing",
		zap.String("source_id", id),
		zap.Float64("from", previous),
		zap.Float64("to", weight))
	res, err := env.Synth.Incremental(ctx, realm.ID, []string{id}, nil)
	if err != nil {
		return nil, err
	}
	out.Synthesis = res
	return out, nil
}
