package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/errors"
)

// InsertChat stores a new chat.
func InsertChat(ctx context.Context, q Querier, c *content.Chat) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO chats (id, realm_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, toNullString(c.RealmID), toNullString(c.Title), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetChat retrieves a chat by id.
func GetChat(ctx context.Context, q Querier, id string) (*content.Chat, error) {
	var (
		c       content.Chat
		realmID sql.NullString
		title   sql.NullString
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, realm_id, title, created_at, updated_at FROM chats WHERE id = ?`, id,
	).Scan(&c.ID, &realmID, &title, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("chat", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	c.RealmID = fromNullString(realmID)
	c.Title = fromNullString(title)
	return &c, nil
}

// TouchChat bumps a chat's updated_at.
func TouchChat(ctx context.Context, q Querier, id string, at int64) error {
	result, err := q.ExecContext(ctx, `UPDATE chats SET updated_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return expectAffected(result, "chat", id)
}

// InsertMessage appends a message to a chat.
func InsertMessage(ctx context.Context, q Querier, m *content.Message) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO messages (id, chat_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.ChatID, string(m.Role), m.Content, m.CreatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListMessages returns the most recent messages of a chat in chronological order.
// limit <= 0 returns the whole history.
func ListMessages(ctx context.Context, q Querier, chatID string, limit int) ([]*content.Message, error) {
	query := `SELECT id, chat_id, role, content, created_at FROM messages WHERE chat_id = ? ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := q.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []*content.Message
	for rows.Next() {
		var (
			m    content.Message
			role string
		)
		if err := rows.Scan(&m.ID, &m.ChatID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		m.Role = content.Role(role)
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	// reverse into chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ListChats returns chats, most recently updated first, optionally for one realm.
func ListChats(ctx context.Context, q Querier, realmID *string) ([]*content.Chat, error) {
	query := `SELECT id, realm_id, title, created_at, updated_at FROM chats`
	var args []any
	if realmID != nil {
		query += ` WHERE realm_id = ?`
		args = append(args, *realmID)
	}
	query += ` ORDER BY updated_at DESC, id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []*content.Chat
	for rows.Next() {
		var (
			c     content.Chat
			realm sql.NullString
			title sql.NullString
		)
		if err := rows.Scan(&c.ID, &realm, &title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		c.RealmID = fromNullString(realm)
		c.Title = fromNullString(title)
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}
