package ops

import (
	"context"
	"fmt"

	"github.com/hpungsan/pathfinder/internal/db"
	"github.com/hpungsan/pathfinder/internal/errors"
)

const secondsPerDay = 24 * 60 * 60

// PurgeInput contains parameters for the PurgeQueue operation.
type PurgeInput struct {
	OlderThanDays *int // optional, only purge entries processed more than N days ago
}

// PurgeOutput contains the result of the PurgeQueue operation.
type PurgeOutput struct {
	Purged  int64  `json:"purged"`
	Message string `json:"message"`
}

// PurgeQueue permanently deletes processed batch queue entries. Pending
// entries are never touched.
func PurgeQueue(ctx context.Context, env *Env, input PurgeInput) (*PurgeOutput, error) {
	before := env.unix() + 1
	if input.OlderThanDays != nil {
		if *input.OlderThanDays < 0 {
			return nil, errors.NewInvalidRequest("older_than_days must not be negative")
		}
		before = env.unix() - int64(*input.OlderThanDays)*secondsPerDay
	}

	count, err := db.PurgeProcessedQueue(ctx, env.DB, before)
	if err != nil {
		return nil, err
	}

	return &PurgeOutput{
		Purged:  count,
		Message: formatPurgeMessage(count, input.OlderThanDays),
	}, nil
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(count int64, olderThanDays *int) string {
	if count == 0 {
		return "No processed queue entries to purge"
	}

	entryWord := "entry"
	if count > 1 {
		entryWord = "entries"
	}

	msg := fmt.Sprintf("Permanently deleted %d processed queue %s", count, entryWord)

	if olderThanDays != nil {
		msg += fmt.Sprintf(" (processed more than %d days ago)", *olderThanDays)
	}

	return msg
}
