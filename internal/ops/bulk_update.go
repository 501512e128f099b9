package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/db"
	"github.com/hpungsan/pathfinder/internal/errors"
)

// BulkUpdateInput contains parameters for the BulkUpdate operation.
type BulkUpdateInput struct {
	Select SourceSelector

	// Updates (set_ prefix to distinguish from filters)
	SetRealmID *string // "" unassigns
	SetWeight  *float64
}

// BulkUpdateOutput contains the result of the BulkUpdate operation.
type BulkUpdateOutput struct {
	Updated int    `json:"updated"`
	Message string `json:"message"`
}

// BulkUpdate assigns matching sources to a realm and/or sets their weight.
// Nothing is synthesized; moved sources leave the old realm's queue.
// At least one filter and one update field are required.
func BulkUpdate(ctx context.Context, env *Env, input BulkUpdateInput) (*BulkUpdateOutput, error) {
	filter, err := input.Select.filter()
	if err != nil {
		return nil, err
	}
	if input.SetRealmID == nil && input.SetWeight == nil {
		return nil, errors.NewInvalidRequest("at least one update field is required")
	}

	var fields db.BulkSourceFields
	if input.SetRealmID != nil {
		realmID := strings.TrimSpace(*input.SetRealmID)
		if realmID != "" {
			if _, err := db.GetRealm(ctx, env.DB, realmID); err != nil {
				return nil, err
			}
		}
		fields.RealmID = &realmID
	}
	if input.SetWeight != nil {
		if !content.ValidWeight(*input.SetWeight) {
			return nil, errors.NewInvalidRequest("weight must be between 0 and 5")
		}
		fields.Weight = input.SetWeight
	}

	count, err := db.BulkUpdateSources(ctx, env.DB, filter, fields, env.unix())
	if err != nil {
		return nil, err
	}

	return &BulkUpdateOutput{
		Updated: count,
		Message: formatBulkUpdateMessage(count, filter, fields),
	}, nil
}

// formatBulkUpdateMessage creates a human-readable message for the bulk update result.
func formatBulkUpdateMessage(count int, filter db.SourceFilter, fields db.BulkSourceFields) string {
	if count == 0 {
		return "No content sources matched the filters"
	}

	msg := fmt.Sprintf("Updated %d %s", count, pluralSources(count)) + describeFilter(filter)

	var updateParts []string
	if fields.RealmID != nil {
		if *fields.RealmID == "" {
			updateParts = append(updateParts, "realm_id=null")
		} else {
			updateParts = append(updateParts, fmt.Sprintf("realm_id=%q", *fields.RealmID))
		}
	}
	if fields.Weight != nil {
		updateParts = append(updateParts, "weight="+content.FormatWeight(*fields.Weight))
	}

	if len(updateParts) > 0 {
		msg += "; set " + strings.Join(updateParts, ", ")
	}

	return msg
}
