package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/hpungsan/pathfinder/internal/errors"
	"github.com/hpungsan/pathfinder/internal/jobs"
	"github.com/hpungsan/pathfinder/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	env *ops.Env
	log *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(env *ops.Env) *Handlers {
	return &Handlers{env: env, log: env.Log.Named("mcp")}
}

// Request types for each tool

// IDRequest is the argument of every tool addressing one entity.
type IDRequest struct {
	ID string `json:"id"`
}

// RealmIDRequest carries a realm filter or target.
type RealmIDRequest struct {
	RealmID *string `json:"realm_id,omitempty"`
}

// RealmCreateRequest represents the arguments for realm_create.
type RealmCreateRequest struct {
	Name              string  `json:"name"`
	Description       *string `json:"description,omitempty"`
	SynthesisDisabled bool    `json:"synthesis_disabled,omitempty"`
}

// RealmUpdateRequest represents the arguments for realm_update.
type RealmUpdateRequest struct {
	ID                string  `json:"id"`
	Name              *string `json:"name,omitempty"`
	Description       *string `json:"description,omitempty"`
	SynthesisDisabled *bool   `json:"synthesis_disabled,omitempty"`
}

// SourceAddRequest represents the arguments for source_add.
type SourceAddRequest struct {
	RealmID        *string        `json:"realm_id,omitempty"`
	SourceType     string         `json:"source_type,omitempty"`
	Title          *string        `json:"title,omitempty"`
	Content        string         `json:"content"`
	Weight         *float64       `json:"weight,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	AutoSynthesize *bool          `json:"auto_synthesize,omitempty"`
}

// SourceFetchManyRequest represents the arguments for source_fetch_many.
type SourceFetchManyRequest struct {
	IDs         []string `json:"ids"`
	IncludeText *bool    `json:"include_text,omitempty"`
}

// SourceListRequest represents the arguments for source_list.
type SourceListRequest struct {
	RealmID    *string `json:"realm_id,omitempty"`
	Unassigned bool    `json:"unassigned,omitempty"`
	SourceType *string `json:"source_type,omitempty"`
	Limit      int     `json:"limit,omitempty"`
	Offset     int     `json:"offset,omitempty"`
}

// SourceSearchRequest represents the arguments for source_search.
type SourceSearchRequest struct {
	Query   string  `json:"query"`
	RealmID *string `json:"realm_id,omitempty"`
	Limit   int     `json:"limit,omitempty"`
}

// SourceUpdateRequest represents the arguments for source_update.
type SourceUpdateRequest struct {
	ID               string         `json:"id"`
	Title            *string        `json:"title,omitempty"`
	Content          *string        `json:"content,omitempty"`
	Weight           *float64       `json:"weight,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	TriggerSynthesis bool           `json:"trigger_synthesis,omitempty"`
}

// SourceWeightRequest represents the arguments for source_update_weight.
type SourceWeightRequest struct {
	ID     string   `json:"id"`
	Weight *float64 `json:"weight"`
}

// SourceFilterRequest holds the filters shared by the bulk tools.
type SourceFilterRequest struct {
	IDs        []string `json:"ids,omitempty"`
	RealmID    *string  `json:"realm_id,omitempty"`
	Unassigned bool     `json:"unassigned,omitempty"`
	SourceType *string  `json:"source_type,omitempty"`
}

func (r SourceFilterRequest) selector() ops.SourceSelector {
	return ops.SourceSelector{
		IDs:        r.IDs,
		RealmID:    r.RealmID,
		Unassigned: r.Unassigned,
		SourceType: r.SourceType,
	}
}

// SourceBulkUpdateRequest represents the arguments for source_bulk_update.
type SourceBulkUpdateRequest struct {
	SourceFilterRequest
	SetRealmID *string  `json:"set_realm_id,omitempty"`
	SetWeight  *float64 `json:"set_weight,omitempty"`
}

// SourceAnalyzeRequest represents the arguments for source_analyze.
type SourceAnalyzeRequest struct {
	ID      string  `json:"id"`
	RealmID *string `json:"realm_id,omitempty"`
}

// QueueRequest represents the arguments for queue_process.
type QueueRequest struct {
	RealmID string `json:"realm_id"`
}

// PurgeRequest represents the arguments for queue_purge.
type PurgeRequest struct {
	OlderThanDays *int `json:"older_than_days,omitempty"`
}

// SynthesisRequest represents the arguments for synthesis_full.
type SynthesisRequest struct {
	RealmID          string   `json:"realm_id"`
	ContentSourceIDs []string `json:"content_source_ids,omitempty"`
}

// VersionListRequest represents the arguments for version_list.
type VersionListRequest struct {
	RealmID string `json:"realm_id"`
	Limit   int    `json:"limit,omitempty"`
}

// JobStartRequest represents the arguments for job_start.
type JobStartRequest struct {
	RealmID          string         `json:"realm_id"`
	SynthesisType    string         `json:"synthesis_type,omitempty"`
	ContentSourceIDs []string       `json:"content_source_ids,omitempty"`
	Configuration    map[string]any `json:"configuration,omitempty"`
}

// JobListRequest represents the arguments for job_list.
type JobListRequest struct {
	RealmID *string `json:"realm_id,omitempty"`
	Limit   int     `json:"limit,omitempty"`
}

// ReflectionCreateRequest represents the arguments for reflection_create.
type ReflectionCreateRequest struct {
	RealmID         *string  `json:"realm_id,omitempty"`
	Question        string   `json:"question"`
	Category        *string  `json:"category,omitempty"`
	ImportanceScore *float64 `json:"importance_score,omitempty"`
}

// ReflectionListRequest represents the arguments for reflection_list.
type ReflectionListRequest struct {
	RealmID  *string `json:"realm_id,omitempty"`
	Answered *bool   `json:"answered,omitempty"`
}

// ReflectionAnswerRequest represents the arguments for reflection_answer.
type ReflectionAnswerRequest struct {
	ID             string `json:"id"`
	Answer         string `json:"answer"`
	Ingest         bool   `json:"ingest,omitempty"`
	AutoSynthesize *bool  `json:"auto_synthesize,omitempty"`
}

// TextCreateRequest represents the arguments for text_create.
type TextCreateRequest struct {
	Title          string  `json:"title"`
	Content        string  `json:"content"`
	SourceFileName *string `json:"source_file_name,omitempty"`
}

// TextIngestRequest represents the arguments for text_ingest.
type TextIngestRequest struct {
	ID      string `json:"id"`
	RealmID string `json:"realm_id"`
}

// ChatCreateRequest represents the arguments for chat_create.
type ChatCreateRequest struct {
	RealmID *string `json:"realm_id,omitempty"`
	Title   *string `json:"title,omitempty"`
}

// ChatIDRequest represents the arguments for chat_messages.
type ChatIDRequest struct {
	ChatID string `json:"chat_id"`
}

// ChatSendRequest represents the arguments for chat_send.
type ChatSendRequest struct {
	ChatID       string `json:"chat_id"`
	Content      string `json:"content"`
	HistoryLimit int    `json:"history_limit,omitempty"`
}

// ExportRequest represents the arguments for backup_export.
type ExportRequest struct {
	Path    string  `json:"path,omitempty"`
	RealmID *string `json:"realm_id,omitempty"`
}

// ImportRequest represents the arguments for backup_import.
type ImportRequest struct {
	Path    string  `json:"path"`
	Mode    string  `json:"mode,omitempty"`
	RealmID *string `json:"realm_id,omitempty"`
}

// itemsResult wraps list results so every tool returns a JSON object.
type itemsResult[T any] struct {
	Items []T `json:"items"`
}

func items[T any](list []T) itemsResult[T] {
	if list == nil {
		list = []T{}
	}
	return itemsResult[T]{Items: list}
}

// call decodes the request into Req and runs fn, converting every failure
// into a tool error result.
func call[Req any](h *Handlers, req mcp.CallToolRequest, fn func(Req) (any, error)) (*mcp.CallToolResult, error) {
	input, err := decode[Req](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest("invalid arguments: " + err.Error())), nil
	}
	out, err := fn(input)
	if err != nil {
		if errors.As(err).Code == errors.ErrInternal {
			h.log.Error("tool failed", zap.String("tool", req.Params.Name), zap.Error(err))
		}
		return errorResult(err), nil
	}
	return successResult(out)
}

// Handler implementations: realms

// HandleRealmCreate handles the realm_create tool call.
func (h *Handlers) HandleRealmCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in RealmCreateRequest) (any, error) {
		return ops.CreateRealm(ctx, h.env, ops.CreateRealmInput{
			Name:              in.Name,
			Description:       in.Description,
			SynthesisDisabled: in.SynthesisDisabled,
		})
	})
}

// HandleRealmGet handles the realm_get tool call.
func (h *Handlers) HandleRealmGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in IDRequest) (any, error) {
		return ops.GetRealm(ctx, h.env, in.ID)
	})
}

// HandleRealmList handles the realm_list tool call.
func (h *Handlers) HandleRealmList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(struct{}) (any, error) {
		realms, err := ops.ListRealms(ctx, h.env)
		if err != nil {
			return nil, err
		}
		return items(realms), nil
	})
}

// HandleRealmUpdate handles the realm_update tool call.
func (h *Handlers) HandleRealmUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in RealmUpdateRequest) (any, error) {
		return ops.UpdateRealm(ctx, h.env, ops.UpdateRealmInput{
			ID:                in.ID,
			Name:              in.Name,
			Description:       in.Description,
			SynthesisDisabled: in.SynthesisDisabled,
		})
	})
}

// HandleRealmDelete handles the realm_delete tool call.
func (h *Handlers) HandleRealmDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in IDRequest) (any, error) {
		return ops.DeleteRealm(ctx, h.env, in.ID)
	})
}

// HandleRealmContentMap handles the realm_content_map tool call.
func (h *Handlers) HandleRealmContentMap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in IDRequest) (any, error) {
		return ops.ContentMap(ctx, h.env, in.ID)
	})
}

// HandleRealmAnalyze handles the realm_analyze tool call.
func (h *Handlers) HandleRealmAnalyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in IDRequest) (any, error) {
		return ops.AnalyzeRealm(ctx, h.env, in.ID)
	})
}

// Handler implementations: content sources

// HandleSourceAdd handles the source_add tool call.
func (h *Handlers) HandleSourceAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in SourceAddRequest) (any, error) {
		return ops.AddSource(ctx, h.env, ops.AddSourceInput{
			RealmID:        in.RealmID,
			SourceType:     in.SourceType,
			Title:          in.Title,
			Content:        in.Content,
			Weight:         in.Weight,
			Metadata:       in.Metadata,
			AutoSynthesize: in.AutoSynthesize,
		})
	})
}

// HandleSourceGet handles the source_get tool call.
func (h *Handlers) HandleSourceGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in IDRequest) (any, error) {
		return ops.GetSource(ctx, h.env, in.ID)
	})
}

// HandleSourceFetchMany handles the source_fetch_many tool call.
func (h *Handlers) HandleSourceFetchMany(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in SourceFetchManyRequest) (any, error) {
		return ops.FetchMany(ctx, h.env, ops.FetchManyInput{IDs: in.IDs, IncludeText: in.IncludeText})
	})
}

// HandleSourceList handles the source_list tool call.
func (h *Handlers) HandleSourceList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in SourceListRequest) (any, error) {
		return ops.ListSources(ctx, h.env, ops.ListSourcesInput{
			RealmID:    in.RealmID,
			Unassigned: in.Unassigned,
			SourceType: in.SourceType,
			Limit:      in.Limit,
			Offset:     in.Offset,
		})
	})
}

// HandleSourceSearch handles the source_search tool call.
func (h *Handlers) HandleSourceSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in SourceSearchRequest) (any, error) {
		return ops.SearchSources(ctx, h.env, ops.SearchInput{Query: in.Query, RealmID: in.RealmID, Limit: in.Limit})
	})
}

// HandleSourceUpdate handles the source_update tool call.
func (h *Handlers) HandleSourceUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in SourceUpdateRequest) (any, error) {
		return ops.UpdateSource(ctx, h.env, ops.UpdateSourceInput{
			ID:               in.ID,
			Title:            in.Title,
			Content:          in.Content,
			Weight:           in.Weight,
			Metadata:         in.Metadata,
			TriggerSynthesis: in.TriggerSynthesis,
		})
	})
}

// HandleSourceUpdateWeight handles the source_update_weight tool call.
func (h *Handlers) HandleSourceUpdateWeight(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in SourceWeightRequest) (any, error) {
		if in.Weight == nil {
			return nil, errors.NewInvalidRequest("weight is required")
		}
		return ops.UpdateWeight(ctx, h.env, in.ID, *in.Weight)
	})
}

// HandleSourceDelete handles the source_delete tool call.
func (h *Handlers) HandleSourceDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in IDRequest) (any, error) {
		return ops.DeleteSource(ctx, h.env, in.ID)
	})
}

// HandleSourceBulkUpdate handles the source_bulk_update tool call.
func (h *Handlers) HandleSourceBulkUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in SourceBulkUpdateRequest) (any, error) {
		return ops.BulkUpdate(ctx, h.env, ops.BulkUpdateInput{
			Select:     in.selector(),
			SetRealmID: in.SetRealmID,
			SetWeight:  in.SetWeight,
		})
	})
}

// HandleSourceBulkDelete handles the source_bulk_delete tool call.
func (h *Handlers) HandleSourceBulkDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in SourceFilterRequest) (any, error) {
		return ops.BulkDelete(ctx, h.env, in.selector())
	})
}

// HandleSourceInsights handles the source_insights tool call.
func (h *Handlers) HandleSourceInsights(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in IDRequest) (any, error) {
		return ops.ExtractInsights(ctx, h.env, in.ID)
	})
}

// HandleSourceAnalyze handles the source_analyze tool call.
func (h *Handlers) HandleSourceAnalyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in SourceAnalyzeRequest) (any, error) {
		return ops.AnalyzeSource(ctx, h.env, in.ID, in.RealmID)
	})
}

// Handler implementations: queue, synthesis, versions, jobs

// HandleQueueProcess handles the queue_process tool call.
func (h *Handlers) HandleQueueProcess(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in QueueRequest) (any, error) {
		return ops.ProcessBatchQueue(ctx, h.env, in.RealmID)
	})
}

// HandleQueueProcessAll handles the queue_process_all tool call.
func (h *Handlers) HandleQueueProcessAll(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(struct{}) (any, error) {
		return ops.ProcessAllQueues(ctx, h.env)
	})
}

// HandleQueuePurge handles the queue_purge tool call.
func (h *Handlers) HandleQueuePurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in PurgeRequest) (any, error) {
		return ops.PurgeQueue(ctx, h.env, ops.PurgeInput{OlderThanDays: in.OlderThanDays})
	})
}

// HandleSynthesisFull handles the synthesis_full tool call.
func (h *Handlers) HandleSynthesisFull(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in SynthesisRequest) (any, error) {
		return ops.ForceFullSynthesis(ctx, h.env, ops.ForceFullSynthesisInput{
			RealmID:          in.RealmID,
			ContentSourceIDs: in.ContentSourceIDs,
		})
	})
}

// HandleVersionList handles the version_list tool call.
func (h *Handlers) HandleVersionList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in VersionListRequest) (any, error) {
		return ops.ListVersions(ctx, h.env, ops.ListVersionsInput{RealmID: in.RealmID, Limit: in.Limit})
	})
}

// HandleVersionGet handles the version_get tool call.
func (h *Handlers) HandleVersionGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in IDRequest) (any, error) {
		return ops.GetVersion(ctx, h.env, in.ID)
	})
}

// HandleVersionAssess handles the version_assess tool call.
func (h *Handlers) HandleVersionAssess(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in IDRequest) (any, error) {
		return ops.AssessVersion(ctx, h.env, in.ID)
	})
}

// HandleJobStart handles the job_start tool call.
func (h *Handlers) HandleJobStart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in JobStartRequest) (any, error) {
		return ops.StartJob(ctx, h.env, jobs.StartInput{
			RealmID:          in.RealmID,
			SynthesisType:    in.SynthesisType,
			ContentSourceIDs: in.ContentSourceIDs,
			Configuration:    in.Configuration,
		})
	})
}

// HandleJobGet handles the job_get tool call.
func (h *Handlers) HandleJobGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in IDRequest) (any, error) {
		return ops.GetJob(ctx, h.env, in.ID)
	})
}

// HandleJobList handles the job_list tool call.
func (h *Handlers) HandleJobList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in JobListRequest) (any, error) {
		return ops.ListJobs(ctx, h.env, ops.ListJobsInput{RealmID: in.RealmID, Limit: in.Limit})
	})
}

// HandleJobCancel handles the job_cancel tool call.
func (h *Handlers) HandleJobCancel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in IDRequest) (any, error) {
		return ops.CancelJob(ctx, h.env, in.ID)
	})
}

// Handler implementations: reflections and texts

// HandleReflectionCreate handles the reflection_create tool call.
func (h *Handlers) HandleReflectionCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in ReflectionCreateRequest) (any, error) {
		return ops.CreateReflection(ctx, h.env, ops.CreateReflectionInput{
			RealmID:         in.RealmID,
			Question:        in.Question,
			Category:        in.Category,
			ImportanceScore: in.ImportanceScore,
		})
	})
}

// HandleReflectionList handles the reflection_list tool call.
func (h *Handlers) HandleReflectionList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in ReflectionListRequest) (any, error) {
		list, err := ops.ListReflections(ctx, h.env, ops.ListReflectionsInput{RealmID: in.RealmID, Answered: in.Answered})
		if err != nil {
			return nil, err
		}
		return items(list), nil
	})
}

// HandleReflectionAnswer handles the reflection_answer tool call.
func (h *Handlers) HandleReflectionAnswer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in ReflectionAnswerRequest) (any, error) {
		return ops.AnswerReflection(ctx, h.env, ops.AnswerReflectionInput{
			ID:             in.ID,
			Answer:         in.Answer,
			Ingest:         in.Ingest,
			AutoSynthesize: in.AutoSynthesize,
		})
	})
}

// HandleReflectionMigrate handles the reflection_migrate tool call.
func (h *Handlers) HandleReflectionMigrate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in RealmIDRequest) (any, error) {
		return ops.MigrateReflections(ctx, h.env, in.RealmID)
	})
}

// HandleTextCreate handles the text_create tool call.
func (h *Handlers) HandleTextCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in TextCreateRequest) (any, error) {
		return ops.CreateText(ctx, h.env, ops.CreateTextInput{
			Title:          in.Title,
			Content:        in.Content,
			SourceFileName: in.SourceFileName,
		})
	})
}

// HandleTextGet handles the text_get tool call.
func (h *Handlers) HandleTextGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in IDRequest) (any, error) {
		return ops.GetText(ctx, h.env, in.ID)
	})
}

// HandleTextList handles the text_list tool call.
func (h *Handlers) HandleTextList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(struct{}) (any, error) {
		list, err := ops.ListTexts(ctx, h.env)
		if err != nil {
			return nil, err
		}
		return items(list), nil
	})
}

// HandleTextDelete handles the text_delete tool call.
func (h *Handlers) HandleTextDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in IDRequest) (any, error) {
		return ops.DeleteText(ctx, h.env, in.ID)
	})
}

// HandleTextIngest handles the text_ingest tool call.
func (h *Handlers) HandleTextIngest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in TextIngestRequest) (any, error) {
		return ops.IngestText(ctx, h.env, in.ID, in.RealmID)
	})
}

// HandleTextMigrate handles the text_migrate tool call.
func (h *Handlers) HandleTextMigrate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(struct{}) (any, error) {
		return ops.MigrateTexts(ctx, h.env)
	})
}

// Handler implementations: chat

// HandleChatCreate handles the chat_create tool call.
func (h *Handlers) HandleChatCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in ChatCreateRequest) (any, error) {
		return ops.CreateChat(ctx, h.env, ops.CreateChatInput{RealmID: in.RealmID, Title: in.Title})
	})
}

// HandleChatList handles the chat_list tool call.
func (h *Handlers) HandleChatList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in RealmIDRequest) (any, error) {
		list, err := ops.ListChats(ctx, h.env, in.RealmID)
		if err != nil {
			return nil, err
		}
		return items(list), nil
	})
}

// HandleChatMessages handles the chat_messages tool call.
func (h *Handlers) HandleChatMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in ChatIDRequest) (any, error) {
		list, err := ops.ListMessages(ctx, h.env, in.ChatID)
		if err != nil {
			return nil, err
		}
		return items(list), nil
	})
}

// HandleChatSend handles the chat_send tool call. MCP results are not
// streamed, so the reply is returned whole.
func (h *Handlers) HandleChatSend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in ChatSendRequest) (any, error) {
		return ops.SendMessage(ctx, h.env, ops.SendMessageInput{
			ChatID:       in.ChatID,
			Content:      in.Content,
			HistoryLimit: in.HistoryLimit,
		}, nil)
	})
}

// Handler implementations: backup

// HandleBackupExport handles the backup_export tool call.
func (h *Handlers) HandleBackupExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in ExportRequest) (any, error) {
		return ops.Export(ctx, h.env, ops.ExportInput{Path: in.Path, RealmID: in.RealmID})
	})
}

// HandleBackupImport handles the backup_import tool call.
func (h *Handlers) HandleBackupImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(h, req, func(in ImportRequest) (any, error) {
		return ops.Import(ctx, h.env, ops.ImportInput{
			Path:    in.Path,
			Mode:    ops.ImportMode(in.Mode),
			RealmID: in.RealmID,
		})
	})
}

// Result helpers

// errorResult creates an MCP error result with IsError set so clients
// recognize the failure.
func errorResult(err error) *mcp.CallToolResult {
	body, _ := json.Marshal(errors.Payload(err))
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(body)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
