package ops

import (
	"context"

	"github.com/hpungsan/pathfinder/internal/db"
)

// DeleteSource permanently removes a content source and its queue entries.
// Prompt versions that cite it keep the id.
func DeleteSource(ctx context.Context, env *Env, id string) (*DeleteOutput, error) {
	id, err := requireID(id, "source_id")
	if err != nil {
		return nil, err
	}
	if err := db.DeleteSource(ctx, env.DB, id); err != nil {
		return nil, err
	}
	return &DeleteOutput{Deleted: true, ID: id}, nil
}
