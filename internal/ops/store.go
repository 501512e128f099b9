package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/errors"
	"github.com/hpungsan/pathfinder/internal/synthesis"
)

// AddSourceInput contains parameters for the AddSource operation.
type AddSourceInput struct {
	RealmID        *string  // optional; nil stores an unassigned source
	SourceType     string   // default: "text"
	Title          *string  // optional
	Content        string   // required
	Weight         *float64 // default: 1.0, must be within [0, 5]
	Metadata       map[string]any
	AutoSynthesize *bool // default: true
}

// AddSource stores a content source and lets the trigger policy decide whether
// the realm prompt should be updated now, queued, or left alone.
func AddSource(ctx context.Context, env *Env, input AddSourceInput) (*synthesis.AddOutput, error) {
	sourceType := content.SourceText
	if strings.TrimSpace(input.SourceType) != "" {
		t, err := content.ParseSourceType(input.SourceType)
		if err != nil {
			return nil, errors.NewInvalidRequest(err.Error())
		}
		sourceType = t
	}

	auto := true
	if input.AutoSynthesize != nil {
		auto = *input.AutoSynthesize
	}

	return env.Synth.AddContentSource(ctx, synthesis.AddInput{
		RealmID:        cleanOptionalString(input.RealmID),
		SourceType:     sourceType,
		Title:          cleanOptionalString(input.Title),
		Content:        input.Content,
		Weight:         input.Weight,
		Metadata:       input.Metadata,
		AutoSynthesize: auto,
	})
}
