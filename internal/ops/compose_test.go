package ops

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/errors"
	"github.com/hpungsan/pathfinder/internal/llm"
)

func TestCreateChat(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()
	r := mustRealm(t, env, "Work")

	c, err := CreateChat(ctx, env, CreateChatInput{RealmID: &r.ID, Title: strPtr("Standup")})
	require.NoError(t, err)
	require.Equal(t, r.ID, *c.RealmID)

	_, err = CreateChat(ctx, env, CreateChatInput{})
	require.NoError(t, err)

	_, err = CreateChat(ctx, env, CreateChatInput{RealmID: strPtr("missing")})
	requireCode(t, err, errors.ErrNotFound)

	all, err := ListChats(ctx, env, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	scoped, err := ListChats(ctx, env, &r.ID)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
}

func TestSendMessage_UsesRealmPromptAndHistory(t *testing.T) {
	env, fake := newTestEnv(t)
	ctx := context.Background()
	r := mustRealm(t, env, "Work")
	mustSource(t, env, &r.ID, "note", 1)
	_, err := ForceFullSynthesis(ctx, env, ForceFullSynthesisInput{RealmID: r.ID})
	require.NoError(t, err)

	c, err := CreateChat(ctx, env, CreateChatInput{RealmID: &r.ID})
	require.NoError(t, err)

	fake.Respond = func(req llm.Request) (string, error) { return "reply to " + req.Prompt, nil }

	first, err := SendMessage(ctx, env, SendMessageInput{ChatID: c.ID, Content: "hello"}, nil)
	require.NoError(t, err)
	require.Equal(t, content.RoleUser, first.Message.Role)
	require.Equal(t, content.RoleAssistant, first.Reply.Role)
	require.Equal(t, "reply to hello", first.Reply.Content)

	_, err = SendMessage(ctx, env, SendMessageInput{ChatID: c.ID, Content: "again"}, nil)
	require.NoError(t, err)

	calls := fake.Calls()
	last := calls[len(calls)-1]
	require.Equal(t, "You are helping a curious engineer.", last.System)
	require.Len(t, last.History, 2)
	require.Equal(t, llm.Message{Role: content.RoleUser, Content: "hello"}, last.History[0])
	require.Equal(t, content.RoleAssistant, last.History[1].Role)

	msgs, err := ListMessages(ctx, env, c.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
}

func TestSendMessage_Streams(t *testing.T) {
	env, fake := newTestEnv(t)
	ctx := context.Background()
	c, err := CreateChat(ctx, env, CreateChatInput{})
	require.NoError(t, err)
	fake.Respond = nil
	fake.Reply = "one two three"

	var chunks []string
	out, err := SendMessage(ctx, env, SendMessageInput{ChatID: c.ID, Content: "count"}, func(s string) error {
		chunks = append(chunks, s)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "one two three", out.Reply.Content)
	require.Equal(t, "one two three", strings.Join(chunks, ""))
	require.Len(t, chunks, 3)
	require.Empty(t, fake.Calls()[0].System)
}

func TestSendMessage_FailureKeepsUserMessage(t *testing.T) {
	env, fake := newTestEnv(t)
	ctx := context.Background()
	c, err := CreateChat(ctx, env, CreateChatInput{})
	require.NoError(t, err)
	fake.Respond = nil
	fake.Err = llm.ErrUnavailable

	_, err = SendMessage(ctx, env, SendMessageInput{ChatID: c.ID, Content: "hi"}, nil)
	requireCode(t, err, errors.ErrGenerationFailed)

	msgs, err := ListMessages(ctx, env, c.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, content.RoleUser, msgs[0].Role)

	_, err = SendMessage(ctx, env, SendMessageInput{ChatID: c.ID, Content: " "}, nil)
	requireCode(t, err, errors.ErrInvalidRequest)
	_, err = SendMessage(ctx, env, SendMessageInput{ChatID: "missing", Content: "x"}, nil)
	requireCode(t, err, errors.ErrNotFound)
}
