package ops

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/db"
	"github.com/hpungsan/pathfinder/internal/errors"
)

// CreateTextInput contains parameters for the CreateText operation.
type CreateTextInput struct {
	Title          string  // required
	Content        string  // required
	SourceFileName *string // optional
}

// CreateText stores a free-form document.
func CreateText(ctx context.Context, env *Env, input CreateTextInput) (*content.Text, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errors.NewInvalidRequest("title is required")
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, errors.NewInvalidRequest("content is required")
	}

	id, err := content.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	t := &content.Text{
		ID:             id,
		Title:          title,
		Content:        input.Content,
		SourceFileName: cleanOptionalString(input.SourceFileName),
		CreatedAt:      env.unix(),
	}
	if err := db.InsertText(ctx, env.DB, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetText retrieves a text by id.
func GetText(ctx context.Context, env *Env, id string) (*content.Text, error) {
	id, err := requireID(id, "text_id")
	if err != nil {
		return nil, err
	}
	return db.GetText(ctx, env.DB, id)
}

// ListTexts returns every text, newest first.
func ListTexts(ctx context.Context, env *Env) ([]*content.Text, error) {
	items, err := db.ListTexts(ctx, env.DB)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*content.Text{}
	}
	return items, nil
}

// DeleteText removes a text. Content sources ingested from it are kept.
func DeleteText(ctx context.Context, env *Env, id string) (*DeleteOutput, error) {
	id, err := requireID(id, "text_id")
	if err != nil {
		return nil, err
	}
	if err := db.DeleteText(ctx, env.DB, id); err != nil {
		return nil, err
	}
	return &DeleteOutput{Deleted: true, ID: id}, nil
}

// IngestTextOutput contains the result of the IngestText operation.
type IngestTextOutput struct {
	Source  *content.ContentSource `json:"source"`
	Created bool                   `json:"created"`
}

// IngestText makes a text available to synthesis in realmID. The content
// source linked to the text is reused when it exists and attached to the
// realm if it was unassigned. Nothing is synthesized.
func IngestText(ctx context.Context, env *Env, textID, realmID string) (*IngestTextOutput, error) {
	textID, err := requireID(textID, "text_id")
	if err != nil {
		return nil, err
	}
	realmID, err = requireID(realmID, "realm_id")
	if err != nil {
		return nil, err
	}

	t, err := db.GetText(ctx, env.DB, textID)
	if err != nil {
		return nil, err
	}
	if _, err := db.GetRealm(ctx, env.DB, realmID); err != nil {
		return nil, err
	}

	existing, err := db.FindSourceByMetadata(ctx, env.DB, MetaTextID, t.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.RealmID == nil {
			existing.RealmID = &realmID
			existing.UpdatedAt = env.unix()
			if err := db.UpdateSource(ctx, env.DB, existing); err != nil {
				return nil, err
			}
			env.Log.Info("linked text source to realm",
				zap.String("source_id", existing.ID),
				zap.String("realm_id", realmID))
		}
		return &IngestTextOutput{Source: existing}, nil
	}

	now := env.unix()
	md := map[string]any{
		MetaTextID:     t.ID,
		MetaMigratedAt: isoTime(now),
	}
	src, err := newMigratedSource(content.SourceText, &realmID, t.Title, t.Content, content.DefaultWeight, md, t.CreatedAt, now)
	if err != nil {
		return nil, err
	}
	if err := db.InsertSource(ctx, env.DB, src); err != nil {
		return nil, err
	}
	env.Log.Info("created text source",
		zap.String("source_id", src.ID),
		zap.String("text_id", t.ID),
		zap.String("realm_id", realmID))
	return &IngestTextOutput{Source: src, Created: true}, nil
}

// MigrateTexts copies every text into an unassigned text content source.
// Texts migrated earlier are skipped and nothing is synthesized.
func MigrateTexts(ctx context.Context, env *Env) (*MigrateOutput, error) {
	texts, err := db.ListTexts(ctx, env.DB)
	if err != nil {
		return nil, err
	}

	now := env.unix()
	out := &MigrateOutput{
		Note: "Migration completed without auto-synthesis. Assign to realms and use synthesis operations to update prompts.",
	}
	for _, t := range texts {
		existing, err := db.FindSourceByMetadata(ctx, env.DB, MetaTextID, t.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			out.Skipped++
			continue
		}

		md := map[string]any{
			MetaTextID:     t.ID,
			MetaMigratedAt: isoTime(now),
		}
		if t.SourceFileName != nil {
			md["source_file_name"] = *t.SourceFileName
		}
		src, err := newMigratedSource(content.SourceText, nil, t.Title, t.Content, content.DefaultWeight, md, t.CreatedAt, now)
		if err != nil {
			return nil, err
		}
		if err := db.InsertSource(ctx, env.DB, src); err != nil {
			return nil, err
		}
		out.MigratedCount++
	}
	out.Message = fmt.Sprintf("Migrated %d texts to content sources", out.MigratedCount)
	return out, nil
}
