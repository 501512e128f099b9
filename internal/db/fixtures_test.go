package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pathfinder/internal/content"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func newID(t *testing.T) string {
	t.Helper()
	id, err := content.NewID()
	require.NoError(t, err)
	return id
}

func mustRealm(t *testing.T, database *sql.DB, name string) *content.Realm {
	t.Helper()
	now := time.Now().Unix()
	r := &content.Realm{ID: newID(t), Name: name, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, InsertRealm(context.Background(), database, r))
	return r
}

func mustSource(t *testing.T, database *sql.DB, realmID *string, body string, weight float64) *content.ContentSource {
	t.Helper()
	now := time.Now().Unix()
	s := &content.ContentSource{
		ID:         newID(t),
		RealmID:    realmID,
		SourceType: content.SourceText,
		Content:    body,
		Weight:     weight,
		Metadata:   map[string]any{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, InsertSource(context.Background(), database, s))
	return s
}

func mustQueue(t *testing.T, database *sql.DB, realmID, sourceID string) *content.QueueEntry {
	t.Helper()
	e := &content.QueueEntry{
		ID:              newID(t),
		RealmID:         realmID,
		ContentSourceID: sourceID,
		Priority:        1,
		CreatedAt:       time.Now().Unix(),
	}
	require.NoError(t, InsertQueueEntry(context.Background(), database, e))
	return e
}

func strPtr(s string) *string { return &s }
