package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/db"
	"github.com/hpungsan/pathfinder/internal/errors"
)

// MaxFetchMany bounds the number of ids accepted by FetchMany.
const MaxFetchMany = 100

// FetchManyInput contains parameters for the FetchMany operation.
type FetchManyInput struct {
	IDs         []string
	IncludeText *bool // default: true
}

// FetchManyOutput contains the result of the FetchMany operation.
type FetchManyOutput struct {
	Items  []FetchManyItem  `json:"items"`
	Errors []FetchManyError `json:"errors"`
}

// FetchManyItem is a fetched source. Content is omitted when include_text is false.
type FetchManyItem struct {
	content.SourceSummary
	Content string `json:"content,omitempty"`
}

// FetchManyError represents an error for a specific id.
type FetchManyError struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FetchMany retrieves several content sources in one query.
// Returns partial success with items and errors arrays, in request order.
func FetchMany(ctx context.Context, env *Env, input FetchManyInput) (*FetchManyOutput, error) {
	if len(input.IDs) == 0 {
		return nil, errors.NewInvalidRequest("ids is required")
	}
	if len(input.IDs) > MaxFetchMany {
		return nil, errors.NewInvalidRequest("too many ids; at most 100 per request")
	}

	includeText := true
	if input.IncludeText != nil {
		includeText = *input.IncludeText
	}

	ids := make([]string, 0, len(input.IDs))
	for _, id := range input.IDs {
		ids = append(ids, strings.TrimSpace(id))
	}

	sources, err := db.GetSources(ctx, env.DB, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*content.ContentSource, len(sources))
	for _, s := range sources {
		byID[s.ID] = s
	}

	out := &FetchManyOutput{Items: []FetchManyItem{}, Errors: []FetchManyError{}}
	for _, id := range ids {
		if id == "" {
			out.Errors = append(out.Errors, FetchManyError{ID: id, Code: string(errors.ErrInvalidRequest), Message: "id must not be blank"})
			continue
		}
		s, ok := byID[id]
		if !ok {
			nf := errors.NewNotFound("content source", id)
			out.Errors = append(out.Errors, FetchManyError{ID: id, Code: string(nf.Code), Message: nf.Message})
			continue
		}
		item := FetchManyItem{SourceSummary: s.ToSummary()}
		if includeText {
			item.Content = s.Content
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}
