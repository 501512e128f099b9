package ops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/db"
	"github.com/hpungsan/pathfinder/internal/errors"
	"github.com/hpungsan/pathfinder/internal/synthesis"
)

// Metadata keys linking content sources back to the records they came from.
const (
	MetaReflectionID = "original_reflection_id"
	MetaTextID       = "original_text_id"
	MetaMigratedAt   = "migrated_at"
)

// reflectionTitleChars bounds the title derived from a reflection question.
const reflectionTitleChars = 100

// CreateReflectionInput contains parameters for the CreateReflection operation.
type CreateReflectionInput struct {
	RealmID         *string
	Question        string   // required
	Category        *string  // optional
	ImportanceScore *float64 // default: 1.0, must be within [0, 5]
}

// CreateReflection stores a new reflection question.
func CreateReflection(ctx context.Context, env *Env, input CreateReflectionInput) (*content.Reflection, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, errors.NewInvalidRequest("question is required")
	}
	importance := content.DefaultWeight
	if input.ImportanceScore != nil {
		if !content.ValidWeight(*input.ImportanceScore) {
			return nil, errors.NewInvalidRequest("importance_score must be between 0 and 5")
		}
		importance = *input.ImportanceScore
	}

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
	r := &content.Reflection{
		ID:              id,
		RealmID:         realmID,
		Question:        question,
		Category:        cleanOptionalString(input.Category),
		ImportanceScore: importance,
		CreatedAt:       env.unix(),
	}
	if err := db.InsertReflection(ctx, env.DB, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ListReflectionsInput contains parameters for the ListReflections operation.
type ListReflectionsInput struct {
	RealmID  *string
	Answered *bool // nil lists both
}

// ListReflections returns reflections, oldest first.
func ListReflections(ctx context.Context, env *Env, input ListReflectionsInput) ([]*content.Reflection, error) {
	items, err := db.ListReflections(ctx, env.DB, db.ReflectionFilter{
		RealmID:  cleanOptionalString(input.RealmID),
		Answered: input.Answered,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*content.Reflection{}
	}
	return items, nil
}

// AnswerReflectionInput contains parameters for the AnswerReflection operation.
type AnswerReflectionInput struct {
	ID     string // required
	Answer string // required

	// Ingest stores the question and answer as a reflection content source in
	// the reflection's realm. A source already linked to the reflection is
	// rewritten instead.
	Ingest bool

	// AutoSynthesize applies to newly ingested sources. Default: true.
	AutoSynthesize *bool
}

// AnswerReflectionOutput contains the result of the AnswerReflection operation.
type AnswerReflectionOutput struct {
	Reflection *content.Reflection    `json:"reflection"`
	Ingested   *synthesis.AddOutput   `json:"ingested,omitempty"`
	Updated    *content.ContentSource `json:"updated_source,omitempty"`
}

// AnswerReflection records an answer and optionally ingests it.
func AnswerReflection(ctx context.Context, env *Env, input AnswerReflectionInput) (*AnswerReflectionOutput, error) {
	id, err := requireID(input.ID, "reflection_id")
	if err != nil {
		return nil, err
	}
	answer := strings.TrimSpace(input.Answer)
	if answer == "" {
		return nil, errors.NewInvalidRequest("answer is required")
	}

	now := env.unix()
	if err := db.AnswerReflection(ctx, env.DB, id, answer, now); err != nil {
		return nil, err
	}
	r, err := db.GetReflection(ctx, env.DB, id)
	if err != nil {
		return nil, err
	}

	out := &AnswerReflectionOutput{Reflection: r}
	if !input.Ingest {
		return out, nil
	}

	existing, err := db.FindSourceByMetadata(ctx, env.DB, MetaReflectionID, r.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.Content = reflectionContent(r)
		existing.Metadata = content.WithAnalysis(existing.Metadata, content.Analyze(existing.Content), now)
		existing.Metadata["answer"] = answer
		existing.UpdatedAt = now
		if err := db.UpdateSource(ctx, env.DB, existing); err != nil {
			return nil, err
		}
		out.Updated = existing
		return out, nil
	}

	auto := true
	if input.AutoSynthesize != nil {
		auto = *input.AutoSynthesize
	}
	weight := r.ImportanceScore
	title := content.Truncate(r.Question, reflectionTitleChars)
	added, err := env.Synth.AddContentSource(ctx, synthesis.AddInput{
		RealmID:        r.RealmID,
		SourceType:     content.SourceReflection,
		Title:          &title,
		Content:        reflectionContent(r),
		Weight:         &weight,
		Metadata:       reflectionMetadata(r, now),
		AutoSynthesize: auto,
	})
	if err != nil {
		return nil, err
	}
	out.Ingested = added
	return out, nil
}

// MigrateOutput contains the result of the migration operations.
type MigrateOutput struct {
	Message       string  `json:"message"`
	MigratedCount int     `json:"migrated_count"`
	Skipped       int     `json:"skipped"`
	RealmID       *string `json:"realm_id,omitempty"`
	Note          string  `json:"note"`
}

// MigrateReflections copies answered reflections into reflection content
// sources. Reflections migrated earlier are skipped and nothing is synthesized.
func MigrateReflections(ctx context.Context, env *Env, realmID *string) (*MigrateOutput, error) {
	realmID = cleanOptionalString(realmID)
	if realmID != nil {
		if _, err := db.GetRealm(ctx, env.DB, *realmID); err != nil {
			return nil, err
		}
	}

	answered := true
	items, err := db.ListReflections(ctx, env.DB, db.ReflectionFilter{RealmID: realmID, Answered: &answered})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.NewInvalidRequest("no answered reflections to migrate")
	}

	now := env.unix()
	out := &MigrateOutput{
		RealmID: realmID,
		Note:    "Migration completed without auto-synthesis. Use process_batch_queue or force_full_synthesis to update prompts.",
	}
	for _, r := range items {
		existing, err := db.FindSourceByMetadata(ctx, env.DB, MetaReflectionID, r.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			out.Skipped++
			continue
		}

		src, err := newMigratedSource(content.SourceReflection, r.RealmID, content.Truncate(r.Question, reflectionTitleChars),
			reflectionContent(r), r.ImportanceScore, reflectionMetadata(r, now), r.CreatedAt, now)
		if err != nil {
			return nil, err
		}
		if err := db.InsertSource(ctx, env.DB, src); err != nil {
			return nil, err
		}
		out.MigratedCount++
	}
	out.Message = fmt.Sprintf("Migrated %d reflections to content sources", out.MigratedCount)
	return out, nil
}

func reflectionContent(r *content.Reflection) string {
	answer := "[Unanswered]"
	if r.IsAnswered() {
		answer = *r.Answer
	}
	return fmt.Sprintf("Q: %s\nA: %s", r.Question, answer)
}

func reflectionMetadata(r *content.Reflection, now int64) map[string]any {
	md := map[string]any{
		MetaReflectionID: r.ID,
		"question":       r.Question,
		MetaMigratedAt:   isoTime(now),
	}
	if r.Answer != nil {
		md["answer"] = *r.Answer
	}
	return md
}

// newMigratedSource builds a source that keeps the creation time of the
// record it was copied from.
func newMigratedSource(t content.SourceType, realmID *string, title, body string, weight float64, md map[string]any, createdAt, now int64) (*content.ContentSource, error) {
	id, err := content.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &content.ContentSource{
		ID:         id,
		RealmID:    realmID,
		SourceType: t,
		Title:      &title,
		Content:    body,
		Weight:     content.ClampWeight(weight),
		Metadata:   content.WithAnalysis(md, content.Analyze(body), now),
		CreatedAt:  createdAt,
		UpdatedAt:  now,
	}, nil
}

func isoTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}
