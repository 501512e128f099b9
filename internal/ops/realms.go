package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/db"
	"github.com/hpungsan/pathfinder/internal/errors"
)

// MaxRealmNameChars bounds realm names.
const MaxRealmNameChars = 100

// CreateRealmInput contains parameters for the CreateRealm operation.
type CreateRealmInput struct {
	Name              string  // required
	Description       *string // optional
	SynthesisDisabled bool
}

// CreateRealm stores a new, empty realm.
func CreateRealm(ctx context.Context, env *Env, input CreateRealmInput) (*content.Realm, error) {
	name, err := validRealmName(input.Name)
	if err != nil {
		return nil, err
	}

	id, err := content.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := env.unix()
	r := &content.Realm{
		ID:                id,
		Name:              name,
		Description:       cleanOptionalString(input.Description),
		SynthesisDisabled: input.SynthesisDisabled,
		CurrentVersion:    content.InitialVersion,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := db.InsertRealm(ctx, env.DB, r); err != nil {
		return nil, err
	}
	return r, nil
}

func validRealmName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.NewInvalidRequest("name is required")
	}
	if content.CountChars(name) > MaxRealmNameChars {
		return "", errors.NewInvalidRequest("name exceeds 100 characters")
	}
	return name, nil
}

// EnsureDefaultRealm returns the default realm, creating it on first use.
// The default realm never synthesizes automatically.
func EnsureDefaultRealm(ctx context.Context, env *Env) (*content.Realm, error) {
	r, err := db.GetDefaultRealm(ctx, env.DB)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	id, err := content.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := env.unix()
	r = &content.Realm{
		ID:                id,
		Name:              content.DefaultRealmName,
		IsDefault:         true,
		SynthesisDisabled: true,
		CurrentVersion:    content.InitialVersion,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := db.InsertRealm(ctx, env.DB, r); err != nil {
		// another caller may have won the race on the unique default index
		if existing, getErr := db.GetDefaultRealm(ctx, env.DB); getErr == nil {
			return existing, nil
		}
		return nil, err
	}
	env.Log.Info("created default realm")
	return r, nil
}

// ListRealms returns every realm, the default realm first.
func ListRealms(ctx context.Context, env *Env) ([]*content.Realm, error) {
	if _, err := EnsureDefaultRealm(ctx, env); err != nil {
		return nil, err
	}
	realms, err := db.ListRealms(ctx, env.DB)
	if err != nil {
		return nil, err
	}
	if realms == nil {
		realms = []*content.Realm{}
	}
	return realms, nil
}

// RealmOutput is a realm with counts of what it holds.
type RealmOutput struct {
	*content.Realm
	SourceCount     int `json:"source_count"`
	PendingBatch    int `json:"pending_batch"`
	PromptCharCount int `json:"prompt_chars"`
}

// GetRealm retrieves a realm with its source and queue counts.
func GetRealm(ctx context.Context, env *Env, id string) (*RealmOutput, error) {
	id, err := requireID(id, "realm_id")
	if err != nil {
		return nil, err
	}
	r, err := db.GetRealm(ctx, env.DB, id)
	if err != nil {
		return nil, err
	}
	sources, err := db.CountSources(ctx, env.DB, db.SourceFilter{RealmID: &id})
	if err != nil {
		return nil, err
	}
	pending, err := db.CountPendingQueue(ctx, env.DB, id)
	if err != nil {
		return nil, err
	}
	return &RealmOutput{
		Realm:           r,
		SourceCount:     sources,
		PendingBatch:    pending,
		PromptCharCount: content.CountChars(r.Prompt()),
	}, nil
}

// UpdateRealmInput contains parameters for the UpdateRealm operation.
// Nil fields are left unchanged.
type UpdateRealmInput struct {
	ID                string // required
	Name              *string
	Description       *string // empty string clears the description
	SynthesisDisabled *bool
}

// UpdateRealm edits a realm's name, description or synthesis switch.
func UpdateRealm(ctx context.Context, env *Env, input UpdateRealmInput) (*content.Realm, error) {
	if strings.TrimSpace(input.ID) == "" {
		return nil, errors.NewInvalidRequest("realm_id is required")
	}
	if input.Name == nil && input.Description == nil && input.SynthesisDisabled == nil {
		return nil, errors.NewInvalidRequest("at least one of name, description, synthesis_disabled is required")
	}

	r, err := db.GetRealm(ctx, env.DB, input.ID)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name, err := validRealmName(*input.Name)
		if err != nil {
			return nil, err
		}
		r.Name = name
	}
	if input.Description != nil {
		r.Description = cleanOptionalString(input.Description)
	}
	if input.SynthesisDisabled != nil {
		r.SynthesisDisabled = *input.SynthesisDisabled
	}
	r.UpdatedAt = env.unix()

	if err := db.UpdateRealmDetails(ctx, env.DB, r); err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteOutput contains the result of a delete operation.
type DeleteOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// DeleteRealm removes a realm. Its sources, reflections and chats are kept
// unassigned; the default realm cannot be deleted.
func DeleteRealm(ctx context.Context, env *Env, id string) (*DeleteOutput, error) {
	id, err := requireID(id, "realm_id")
	if err != nil {
		return nil, err
	}
	if err := db.DeleteRealm(ctx, env.DB, id); err != nil {
		return nil, err
	}
	return &DeleteOutput{Deleted: true, ID: id}, nil
}
