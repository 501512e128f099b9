package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/db"
	"github.com/hpungsan/pathfinder/internal/errors"
)

// SourceSelector picks the content sources a bulk operation applies to.
// Set fields are combined with AND.
type SourceSelector struct {
	IDs        []string
	RealmID    *string
	Unassigned bool // only sources without a realm (ignored with RealmID)
	SourceType *string
}

// BulkDeleteOutput contains the result of the BulkDelete operation.
type BulkDeleteOutput struct {
	Deleted int    `json:"deleted"`
	Message string `json:"message"`
}

// BulkDelete permanently removes every content source matching sel.
// At least one filter must be provided (safety guard).
func BulkDelete(ctx context.Context, env *Env, sel SourceSelector) (*BulkDeleteOutput, error) {
	filter, err := sel.filter()
	if err != nil {
		return nil, err
	}

	count, err := db.BulkDeleteSources(ctx, env.DB, filter)
	if err != nil {
		return nil, err
	}

	return &BulkDeleteOutput{
		Deleted: count,
		Message: fmt.Sprintf("Deleted %d %s", count, pluralSources(count)) + describeFilter(filter),
	}, nil
}

// filter normalizes the selector and rejects an empty one.
func (s SourceSelector) filter() (db.SourceFilter, error) {
	var f db.SourceFilter
	for _, id := range s.IDs {
		if id = strings.TrimSpace(id); id != "" {
			f.IDs = append(f.IDs, id)
		}
	}
	f.RealmID = cleanOptionalString(s.RealmID)
	f.Unassigned = s.Unassigned && f.RealmID == nil
	if t := cleanOptionalString(s.SourceType); t != nil {
		st, err := content.ParseSourceType(*t)
		if err != nil {
			return f, errors.NewInvalidRequest(err.Error())
		}
		f.SourceType = &st
	}

	if len(f.IDs) == 0 && f.RealmID == nil && !f.Unassigned && f.SourceType == nil {
		return f, errors.NewInvalidRequest("at least one filter is required")
	}
	return f, nil
}

func pluralSources(n int) string {
	if n == 1 {
		return "content source"
	}
	return "content sources"
}

// describeFilter renders the filter for result messages.
func describeFilter(f db.SourceFilter) string {
	var parts []string
	if len(f.IDs) > 0 {
		parts = append(parts, fmt.Sprintf("ids=%d", len(f.IDs)))
	}
	if f.RealmID != nil {
		parts = append(parts, fmt.Sprintf("realm_id=%q", *f.RealmID))
	}
	if f.Unassigned {
		parts = append(parts, "unassigned")
	}
	if f.SourceType != nil {
		parts = append(parts, fmt.Sprintf("source_type=%q", *f.SourceType))
	}
	if len(parts) == 0 {
		return ""
	}
	return " matching " + strings.Join(parts, ", ")
}
