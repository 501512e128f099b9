package ops

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/db"
	"github.com/hpungsan/pathfinder/internal/errors"
	"github.com/hpungsan/pathfinder/internal/llm"
)

// CreateChatInput contains parameters for the CreateChat operation.
type CreateChatInput struct {
	RealmID *string // optional; the realm's prompt becomes the system instruction
	Title   *string // optional
}

// CreateChat starts a new conversation.
func CreateChat(ctx context.Context, env *Env, input CreateChatInput) (*content.Chat, error) {
	realmID := cleanOptionalString(input.RealmID)
	if realmID != nil {
		if _, err := db.GetRealm(ctx, env.DB, *realmID); err != nil {
			return nil, err
		}
	}

	id, err := content.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := env.unix()
	c := &content.Chat{
		ID:        id,
		RealmID:   realmID,
		Title:     cleanOptionalString(input.Title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.InsertChat(ctx, env.DB, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListChats returns chats, most recently active first.
func ListChats(ctx context.Context, env *Env, realmID *string) ([]*content.Chat, error) {
	items, err := db.ListChats(ctx, env.DB, cleanOptionalString(realmID))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*content.Chat{}
	}
	return items, nil
}

// ListMessages returns a chat's history in chronological order.
func ListMessages(ctx context.Context, env *Env, chatID string) ([]*content.Message, error) {
	chatID, err := requireID(chatID, "chat_id")
	if err != nil {
		return nil, err
	}
	if _, err := db.GetChat(ctx, env.DB, chatID); err != nil {
		return nil, err
	}
	items, err := db.ListMessages(ctx, env.DB, chatID, 0)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*content.Message{}
	}
	return items, nil
}

// SendMessageInput contains parameters for the SendMessage operation.
type SendMessageInput struct {
	ChatID       string // required
	Content      string // required
	HistoryLimit int    // default: 50, max: 200
}

// SendMessageOutput contains the result of the SendMessage operation.
type SendMessageOutput struct {
	Message *content.Message `json:"message"`
	Reply   *content.Message `json:"reply"`
}

// SendMessage records a user message and generates the assistant reply.
// When onChunk is set the reply is streamed through it as it arrives.
// The user message is kept even when generation fails.
func SendMessage(ctx context.Context, env *Env, input SendMessageInput, onChunk func(string) error) (*SendMessageOutput, error) {
	chatID, err := requireID(input.ChatID, "chat_id")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, errors.NewInvalidRequest("content is required")
	}

	chat, err := db.GetChat(ctx, env.DB, chatID)
	if err != nil {
		return nil, err
	}
	req := llm.Request{Prompt: input.Content}
	if chat.RealmID != nil {
		realm, err := db.GetRealm(ctx, env.DB, *chat.RealmID)
		if err != nil {
			return nil, err
		}
		req.System = realm.Prompt()
	}

	history, err := db.ListMessages(ctx, env.DB, chatID, clampLimit(input.HistoryLimit, DefaultHistoryLimit, MaxHistoryLimit))
	if err != nil {
		return nil, err
	}
	for _, m := range history {
		req.History = append(req.History, llm.Message{Role: m.Role, Content: m.Content})
	}

	userMsg, err := env.appendMessage(ctx, chatID, content.RoleUser, input.Content)
	if err != nil {
		return nil, err
	}

	var reply string
	if onChunk != nil {
		reply, err = env.LLM.Stream(ctx, req, onChunk)
	} else {
		reply, err = env.LLM.Generate(ctx, req)
	}
	if err != nil {
		env.Log.Warn("chat generation failed", zap.String("chat_id", chatID), zap.Error(err))
		return nil, errors.NewGenerationFailed(err)
	}

	replyMsg, err := env.appendMessage(ctx, chatID, content.RoleAssistant, reply)
	if err != nil {
		return nil, err
	}
	return &SendMessageOutput{Message: userMsg, Reply: replyMsg}, nil
}

func (e *Env) appendMessage(ctx context.Context, chatID string, role content.Role, body string) (*content.Message, error) {
	id, err := content.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	m := &content.Message{
		ID:        id,
		ChatID:    chatID,
		Role:      role,
		Content:   body,
		CreatedAt: e.unix(),
	}
	if err := db.InsertMessage(ctx, e.DB, m); err != nil {
		return nil, err
	}
	if err := db.TouchChat(ctx, e.DB, chatID, m.CreatedAt); err != nil {
		return nil, err
	}
	return m, nil
}
