package ops

import (
	"context"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/db"
	"github.com/hpungsan/pathfinder/internal/errors"
)

// ListSourcesInput contains parameters for the ListSources operation.
type ListSourcesInput struct {
	RealmID    *string // optional filter
	Unassigned bool    // only sources without a realm (ignored with RealmID)
	SourceType *string // optional filter
	Limit      int     // default: 20, max: 100
	Offset     int     // default: 0
}

// ListSourcesOutput contains the result of the ListSources operation.
type ListSourcesOutput struct {
	Items      []content.SourceSummary `json:"items"`
	Pagination Pagination              `json:"pagination"`
	Sort       string                  `json:"sort"`
}

// ListSources retrieves content source summaries with pagination.
func ListSources(ctx context.Context, env *Env, input ListSourcesInput) (*ListSourcesOutput, error) {
	filter := db.SourceFilter{
		RealmID:    cleanOptionalString(input.RealmID),
		Unassigned: input.Unassigned,
	}
	if t := cleanOptionalString(input.SourceType); t != nil {
		st, err := content.ParseSourceType(*t)
		if err != nil {
			return nil, errors.NewInvalidRequest(err.Error())
		}
		filter.SourceType = &st
	}

	total, err := db.CountSources(ctx, env.DB, filter)
	if err != nil {
		return nil, err
	}

	limit := clampLimit(input.Limit, DefaultListLimit, MaxListLimit)
	offset := max(input.Offset, 0)
	filter.Limit = limit
	filter.Offset = offset

	sources, err := db.ListSources(ctx, env.DB, filter)
	if err != nil {
		return nil, err
	}

	items := make([]content.SourceSummary, 0, len(sources))
	for _, s := range sources {
		items = append(items, s.ToSummary())
	}

	return &ListSourcesOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "created_at_asc",
	}, nil
}
