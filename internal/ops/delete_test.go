package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pathfinder/internal/db"
	"github.com/hpungsan/pathfinder/internal/errors"
)

func TestDeleteSource_RemovesQueueEntries(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()
	r := mustRealm(t, env, "Work")
	baseline(t, env, r.ID)

	added, err := AddSource(ctx, env, AddSourceInput{RealmID: &r.ID, Content: "queued note"})
	require.NoError(t, err)
	require.NotEmpty(t, added.QueueEntryID)

	out, err := DeleteSource(ctx, env, added.Source.ID)
	require.NoError(t, err)
	require.Equal(t, DeleteOutput{Deleted: true, ID: added.Source.ID}, *out)

	pending, err := db.CountPendingQueue(ctx, env.DB, r.ID)
	require.NoError(t, err)
	require.Zero(t, pending)

	_, err = DeleteSource(ctx, env, added.Source.ID)
	requireCode(t, err, errors.ErrNotFound)
}
