package content

import (
	"fmt"
	"strings"
)

// Role identifies who authored a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole converts a raw string into a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleAssistant:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Chat is a conversation optionally bound to a realm.
type Chat struct {
	ID        string  `json:"id"`
	RealmID   *string `json:"realm_id,omitempty"`
	Title     *string `json:"title,omitempty"`
	CreatedAt int64   `json:"created_at"`
	UpdatedAt int64   `json:"updated_at"`
}

// Message is a single turn within a chat.
type Message struct {
	ID        string `json:"id"`
	ChatID    string `json:"chat_id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}
