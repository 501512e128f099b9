package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hpungsan/pathfinder/internal/errors"
	"github.com/hpungsan/pathfinder/internal/jobs"
	"github.com/hpungsan/pathfinder/internal/ops"
)

// Handlers contains HTTP route handlers for the API and the HTML pages.
type Handlers struct {
	env      *ops.Env
	renderer *Renderer
	version  string
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.env.DB.PingContext(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "version": h.version})
}

// Pages

// PageRealms handles GET /realms.
func (h *Handlers) PageRealms(w http.ResponseWriter, r *http.Request) {
	realms, err := ops.ListRealms(r.Context(), h.env)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPage(w, "realms", RealmsPageData{
		PageData: PageData{Title: "Realms", Version: h.version},
		Realms:   realms,
	})
}

// PageRealm handles GET /realms/{id}: the realm's prompt rendered as HTML
// plus its version history.
func (h *Handlers) PageRealm(w http.ResponseWriter, r *http.Request) {
	realm, err := ops.GetRealm(r.Context(), h.env, chi.URLParam(r, "id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	versions, err := ops.ListVersions(r.Context(), h.env, ops.ListVersionsInput{RealmID: realm.ID})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	data := RealmPageData{
		PageData: PageData{Title: realm.Name, Version: h.version},
		Realm:    realm,
		Versions: versions.Items,
	}
	if prompt := realm.Prompt(); prompt != "" {
		data.PromptHTML = renderMarkdown(prompt)
	}
	h.renderer.renderPage(w, "realm", data)
}

// Realms

type createRealmRequest struct {
	Name              string  `json:"name"`
	Description       *string `json:"description,omitempty"`
	SynthesisDisabled bool    `json:"synthesis_disabled,omitempty"`
}

type updateRealmRequest struct {
	Name              *string `json:"name,omitempty"`
	Description       *string `json:"description,omitempty"`
	SynthesisDisabled *bool   `json:"synthesis_disabled,omitempty"`
}

// ListRealms handles GET /api/realms.
func (h *Handlers) ListRealms(w http.ResponseWriter, r *http.Request) {
	realms, err := ops.ListRealms(r.Context(), h.env)
	respond(w, http.StatusOK, itemsOf(realms), err)
}

// CreateRealm handles POST /api/realms.
func (h *Handlers) CreateRealm(w http.ResponseWriter, r *http.Request) {
	var req createRealmRequest
	if !decodeBody(w, r, &req) {
		return
	}
	realm, err := ops.CreateRealm(r.Context(), h.env, ops.CreateRealmInput{
		Name:              req.Name,
		Description:       req.Description,
		SynthesisDisabled: req.SynthesisDisabled,
	})
	respond(w, http.StatusCreated, realm, err)
}

// GetRealm handles GET /api/realms/{id}.
func (h *Handlers) GetRealm(w http.ResponseWriter, r *http.Request) {
	realm, err := ops.GetRealm(r.Context(), h.env, chi.URLParam(r, "id"))
	respond(w, http.StatusOK, realm, err)
}

// UpdateRealm handles PATCH /api/realms/{id}.
func (h *Handlers) UpdateRealm(w http.ResponseWriter, r *http.Request) {
	var req updateRealmRequest
	if !decodeBody(w, r, &req) {
		return
	}
	realm, err := ops.UpdateRealm(r.Context(), h.env, ops.UpdateRealmInput{
		ID:                chi.URLParam(r, "id"),
		Name:              req.Name,
		Description:       req.Description,
		SynthesisDisabled: req.SynthesisDisabled,
	})
	respond(w, http.StatusOK, realm, err)
}

// DeleteRealm handles DELETE /api/realms/{id}.
func (h *Handlers) DeleteRealm(w http.ResponseWriter, r *http.Request) {
	out, err := ops.DeleteRealm(r.Context(), h.env, chi.URLParam(r, "id"))
	respond(w, http.StatusOK, out, err)
}

// ContentMap handles GET /api/realms/{id}/content-map.
func (h *Handlers) ContentMap(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ContentMap(r.Context(), h.env, chi.URLParam(r, "id"))
	respond(w, http.StatusOK, out, err)
}

// AnalyzeRealm handles POST /api/realms/{id}/analysis.
func (h *Handlers) AnalyzeRealm(w http.ResponseWriter, r *http.Request) {
	out, err := ops.AnalyzeRealm(r.Context(), h.env, chi.URLParam(r, "id"))
	respond(w, http.StatusOK, out, err)
}

// ListVersions handles GET /api/realms/{id}/versions.
func (h *Handlers) ListVersions(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ListVersions(r.Context(), h.env, ops.ListVersionsInput{
		RealmID: chi.URLParam(r, "id"),
		Limit:   parseIntParam(r, "limit", 0),
	})
	respond(w, http.StatusOK, out, err)
}

// ProcessQueue handles POST /api/realms/{id}/queue/process.
func (h *Handlers) ProcessQueue(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ProcessBatchQueue(r.Context(), h.env, chi.URLParam(r, "id"))
	respond(w, http.StatusOK, out, err)
}

type synthesisRequest struct {
	ContentSourceIDs []string `json:"content_source_ids,omitempty"`
}

// ForceFullSynthesis handles POST /api/realms/{id}/synthesis, running the
// full pipeline inside the request.
func (h *Handlers) ForceFullSynthesis(w http.ResponseWriter, r *http.Request) {
	var req synthesisRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	out, err := ops.ForceFullSynthesis(r.Context(), h.env, ops.ForceFullSynthesisInput{
		RealmID:          chi.URLParam(r, "id"),
		ContentSourceIDs: req.ContentSourceIDs,
	})
	respond(w, http.StatusOK, out, err)
}

// Sources

type addSourceRequest struct {
	RealmID        *string        `json:"realm_id,omitempty"`
	SourceType     string         `json:"source_type,omitempty"`
	Title          *string        `json:"title,omitempty"`
	Content        string         `json:"content"`
	Weight         *float64       `json:"weight,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	AutoSynthesize *bool          `json:"auto_synthesize,omitempty"`
}

type updateSourceRequest struct {
	Title            *string        `json:"title,omitempty"`
	Content          *string        `json:"content,omitempty"`
	Weight           *float64       `json:"weight,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	TriggerSynthesis bool           `json:"trigger_synthesis,omitempty"`
}

type weightRequest struct {
	Weight *float64 `json:"weight"`
}

type fetchManyRequest struct {
	IDs         []string `json:"ids"`
	IncludeText *bool    `json:"include_text,omitempty"`
}

type sourceFilter struct {
	IDs        []string `json:"ids,omitempty"`
	RealmID    *string  `json:"realm_id,omitempty"`
	Unassigned bool     `json:"unassigned,omitempty"`
	SourceType *string  `json:"source_type,omitempty"`
}

func (f sourceFilter) selector() ops.SourceSelector {
	return ops.SourceSelector{IDs: f.IDs, RealmID: f.RealmID, Unassigned: f.Unassigned, SourceType: f.SourceType}
}

type bulkUpdateRequest struct {
	sourceFilter
	SetRealmID *string  `json:"set_realm_id,omitempty"`
	SetWeight  *float64 `json:"set_weight,omitempty"`
}

// ListSources handles GET /api/sources.
func (h *Handlers) ListSources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := ops.ListSources(r.Context(), h.env, ops.ListSourcesInput{
		RealmID:    ptrString(q.Get("realm_id")),
		Unassigned: parseBoolParam(r, "unassigned"),
		SourceType: ptrString(q.Get("source_type")),
		Limit:      parseIntParam(r, "limit", 0),
		Offset:     parseIntParam(r, "offset", 0),
	})
	respond(w, http.StatusOK, out, err)
}

// AddSource handles POST /api/sources.
func (h *Handlers) AddSource(w http.ResponseWriter, r *http.Request) {
	var req addSourceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := ops.AddSource(r.Context(), h.env, ops.AddSourceInput{
		RealmID:        req.RealmID,
		SourceType:     req.SourceType,
		Title:          req.Title,
		Content:        req.Content,
		Weight:         req.Weight,
		Metadata:       req.Metadata,
		AutoSynthesize: req.AutoSynthesize,
	})
	respond(w, http.StatusCreated, out, err)
}

// SearchSources handles GET /api/sources/search?q=.
func (h *Handlers) SearchSources(w http.ResponseWriter, r *http.Request) {
	out, err := ops.SearchSources(r.Context(), h.env, ops.SearchInput{
		Query:   r.URL.Query().Get("q"),
		RealmID: ptrString(r.URL.Query().Get("realm_id")),
		Limit:   parseIntParam(r, "limit", 0),
	})
	respond(w, http.StatusOK, out, err)
}

// FetchMany handles POST /api/sources/batch.
func (h *Handlers) FetchMany(w http.ResponseWriter, r *http.Request) {
	var req fetchManyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := ops.FetchMany(r.Context(), h.env, ops.FetchManyInput{IDs: req.IDs, IncludeText: req.IncludeText})
	respond(w, http.StatusOK, out, err)
}

// BulkUpdate handles POST /api/sources/bulk/update.
func (h *Handlers) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := ops.BulkUpdate(r.Context(), h.env, ops.BulkUpdateInput{
		Select:     req.selector(),
		SetRealmID: req.SetRealmID,
		SetWeight:  req.SetWeight,
	})
	respond(w, http.StatusOK, out, err)
}

// BulkDelete handles POST /api/sources/bulk/delete.
func (h *Handlers) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req sourceFilter
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := ops.BulkDelete(r.Context(), h.env, req.selector())
	respond(w, http.StatusOK, out, err)
}

// GetSource handles GET /api/sources/{id}.
func (h *Handlers) GetSource(w http.ResponseWriter, r *http.Request) {
	out, err := ops.GetSource(r.Context(), h.env, chi.URLParam(r, "id"))
	respond(w, http.StatusOK, out, err)
}

// UpdateSource handles PATCH /api/sources/{id}.
func (h *Handlers) UpdateSource(w http.ResponseWriter, r *http.Request) {
	var req updateSourceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := ops.UpdateSource(r.Context(), h.env, ops.UpdateSourceInput{
		ID:               chi.URLParam(r, "id"),
		Title:            req.Title,
		Content:          req.Content,
		Weight:           req.Weight,
		Metadata:         req.Metadata,
		TriggerSynthesis: req.TriggerSynthesis,
	})
	respond(w, http.StatusOK, out, err)
}

// UpdateWeight handles PUT /api/sources/{id}/weight.
func (h *Handlers) UpdateWeight(w http.ResponseWriter, r *http.Request) {
	var req weightRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Weight == nil {
		writeError(w, errors.NewInvalidRequest("weight is required"))
		return
	}
	out, err := ops.UpdateWeight(r.Context(), h.env, chi.URLParam(r, "id"), *req.Weight)
	respond(w, http.StatusOK, out, err)
}

// DeleteSource handles DELETE /api/sources/{id}.
func (h *Handlers) DeleteSource(w http.ResponseWriter, r *http.Request) {
	out, err := ops.DeleteSource(r.Context(), h.env, chi.URLParam(r, "id"))
	respond(w, http.StatusOK, out, err)
}

// ExtractInsights handles POST /api/sources/{id}/insights.
func (h *Handlers) ExtractInsights(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ExtractInsights(r.Context(), h.env, chi.URLParam(r, "id"))
	respond(w, http.StatusOK, out, err)
}

// AnalyzeSource handles POST /api/sources/{id}/analysis?realm_id=.
func (h *Handlers) AnalyzeSource(w http.ResponseWriter, r *http.Request) {
	out, err := ops.AnalyzeSource(r.Context(), h.env, chi.URLParam(r, "id"), ptrString(r.URL.Query().Get("realm_id")))
	respond(w, http.StatusOK, out, err)
}

// Queue

// ProcessAllQueues handles POST /api/queue/process.
func (h *Handlers) ProcessAllQueues(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ProcessAllQueues(r.Context(), h.env)
	respond(w, http.StatusOK, out, err)
}

type purgeRequest struct {
	OlderThanDays *int `json:"older_than_days,omitempty"`
}

// PurgeQueue handles POST /api/queue/purge.
func (h *Handlers) PurgeQueue(w http.ResponseWriter, r *http.Request) {
	var req purgeRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	out, err := ops.PurgeQueue(r.Context(), h.env, ops.PurgeInput{OlderThanDays: req.OlderThanDays})
	respond(w, http.StatusOK, out, err)
}

// Versions

// GetVersion handles GET /api/versions/{id}.
func (h *Handlers) GetVersion(w http.ResponseWriter, r *http.Request) {
	out, err := ops.GetVersion(r.Context(), h.env, chi.URLParam(r, "id"))
	respond(w, http.StatusOK, out, err)
}

// AssessVersion handles POST /api/versions/{id}/assessment.
func (h *Handlers) AssessVersion(w http.ResponseWriter, r *http.Request) {
	out, err := ops.AssessVersion(r.Context(), h.env, chi.URLParam(r, "id"))
	respond(w, http.StatusOK, out, err)
}

// Jobs

type startJobRequest struct {
	RealmID          string         `json:"realm_id"`
	SynthesisType    string         `json:"synthesis_type,omitempty"`
	ContentSourceIDs []string       `json:"content_source_ids,omitempty"`
	Configuration    map[string]any `json:"configuration,omitempty"`
}

// ListJobs handles GET /api/jobs.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ListJobs(r.Context(), h.env, ops.ListJobsInput{
		RealmID: ptrString(r.URL.Query().Get("realm_id")),
		Limit:   parseIntParam(r, "limit", 0),
	})
	respond(w, http.StatusOK, out, err)
}

// StartJob handles POST /api/jobs. The job runs in the background; the
// response is 202 with the pending job.
func (h *Handlers) StartJob(w http.ResponseWriter, r *http.Request) {
	var req startJobRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := ops.StartJob(r.Context(), h.env, jobs.StartInput{
		RealmID:          req.RealmID,
		SynthesisType:    req.SynthesisType,
		ContentSourceIDs: req.ContentSourceIDs,
		Configuration:    req.Configuration,
	})
	if err == nil {
		w.Header().Set("Location", "/api/jobs/"+out.ID)
	}
	respond(w, http.StatusAccepted, out, err)
}

// GetJob handles GET /api/jobs/{id}.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	out, err := ops.GetJob(r.Context(), h.env, chi.URLParam(r, "id"))
	respond(w, http.StatusOK, out, err)
}

// CancelJob handles POST /api/jobs/{id}/cancel.
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	out, err := ops.CancelJob(r.Context(), h.env, chi.URLParam(r, "id"))
	respond(w, http.StatusOK, out, err)
}

// Reflections

type createReflectionRequest struct {
	RealmID         *string  `json:"realm_id,omitempty"`
	Question        string   `json:"question"`
	Category        *string  `json:"category,omitempty"`
	ImportanceScore *float64 `json:"importance_score,omitempty"`
}

type answerReflectionRequest struct {
	Answer         string `json:"answer"`
	Ingest         bool   `json:"ingest,omitempty"`
	AutoSynthesize *bool  `json:"auto_synthesize,omitempty"`
}

type migrateRequest struct {
	RealmID *string `json:"realm_id,omitempty"`
}

// ListReflections handles GET /api/reflections?realm_id=&answered=.
func (h *Handlers) ListReflections(w http.ResponseWriter, r *http.Request) {
	input := ops.ListReflectionsInput{RealmID: ptrString(r.URL.Query().Get("realm_id"))}
	if s := r.URL.Query().Get("answered"); s != "" {
		answered, err := strconv.ParseBool(s)
		if err != nil {
			writeError(w, errors.NewInvalidRequest("answered must be true or false"))
			return
		}
		input.Answered = &answered
	}
	list, err := ops.ListReflections(r.Context(), h.env, input)
	respond(w, http.StatusOK, itemsOf(list), err)
}

// CreateReflection handles POST /api/reflections.
func (h *Handlers) CreateReflection(w http.ResponseWriter, r *http.Request) {
	var req createReflectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := ops.CreateReflection(r.Context(), h.env, ops.CreateReflectionInput{
		RealmID:         req.RealmID,
		Question:        req.Question,
		Category:        req.Category,
		ImportanceScore: req.ImportanceScore,
	})
	respond(w, http.StatusCreated, out, err)
}

// AnswerReflection handles POST /api/reflections/{id}/answer.
func (h *Handlers) AnswerReflection(w http.ResponseWriter, r *http.Request) {
	var req answerReflectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := ops.AnswerReflection(r.Context(), h.env, ops.AnswerReflectionInput{
		ID:             chi.URLParam(r, "id"),
		Answer:         req.Answer,
		Ingest:         req.Ingest,
		AutoSynthesize: req.AutoSynthesize,
	})
	respond(w, http.StatusOK, out, err)
}

// MigrateReflections handles POST /api/reflections/migrate.
func (h *Handlers) MigrateReflections(w http.ResponseWriter, r *http.Request) {
	var req migrateRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	out, err := ops.MigrateReflections(r.Context(), h.env, req.RealmID)
	respond(w, http.StatusOK, out, err)
}

// Texts

type createTextRequest struct {
	Title          string  `json:"title"`
	Content        string  `json:"content"`
	SourceFileName *string `json:"source_file_name,omitempty"`
}

type ingestTextRequest struct {
	RealmID string `json:"realm_id"`
}

// ListTexts handles GET /api/texts.
func (h *Handlers) ListTexts(w http.ResponseWriter, r *http.Request) {
	list, err := ops.ListTexts(r.Context(), h.env)
	respond(w, http.StatusOK, itemsOf(list), err)
}

// CreateText handles POST /api/texts.
func (h *Handlers) CreateText(w http.ResponseWriter, r *http.Request) {
	var req createTextRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := ops.CreateText(r.Context(), h.env, ops.CreateTextInput{
		Title:          req.Title,
		Content:        req.Content,
		SourceFileName: req.SourceFileName,
	})
	respond(w, http.StatusCreated, out, err)
}

// GetText handles GET /api/texts/{id}.
func (h *Handlers) GetText(w http.ResponseWriter, r *http.Request) {
	out, err := ops.GetText(r.Context(), h.env, chi.URLParam(r, "id"))
	respond(w, http.StatusOK, out, err)
}

// DeleteText handles DELETE /api/texts/{id}.
func (h *Handlers) DeleteText(w http.ResponseWriter, r *http.Request) {
	out, err := ops.DeleteText(r.Context(), h.env, chi.URLParam(r, "id"))
	respond(w, http.StatusOK, out, err)
}

// IngestText handles POST /api/texts/{id}/ingest.
func (h *Handlers) IngestText(w http.ResponseWriter, r *http.Request) {
	var req ingestTextRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := ops.IngestText(r.Context(), h.env, chi.URLParam(r, "id"), req.RealmID)
	respond(w, http.StatusOK, out, err)
}

// MigrateTexts handles POST /api/texts/migrate.
func (h *Handlers) MigrateTexts(w http.ResponseWriter, r *http.Request) {
	out, err := ops.MigrateTexts(r.Context(), h.env)
	respond(w, http.StatusOK, out, err)
}

// Chat

type createChatRequest struct {
	RealmID *string `json:"realm_id,omitempty"`
	Title   *string `json:"title,omitempty"`
}

type sendMessageRequest struct {
	Content      string `json:"content"`
	HistoryLimit int    `json:"history_limit,omitempty"`
}

// ListChats handles GET /api/chats?realm_id=.
func (h *Handlers) ListChats(w http.ResponseWriter, r *http.Request) {
	list, err := ops.ListChats(r.Context(), h.env, ptrString(r.URL.Query().Get("realm_id")))
	respond(w, http.StatusOK, itemsOf(list), err)
}

// CreateChat handles POST /api/chats.
func (h *Handlers) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	out, err := ops.CreateChat(r.Context(), h.env, ops.CreateChatInput{RealmID: req.RealmID, Title: req.Title})
	respond(w, http.StatusCreated, out, err)
}

// ListMessages handles GET /api/chats/{id}/messages.
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	list, err := ops.ListMessages(r.Context(), h.env, chi.URLParam(r, "id"))
	respond(w, http.StatusOK, itemsOf(list), err)
}

// SendMessage handles POST /api/chats/{id}/messages. Clients accepting
// text/event-stream receive the reply as "chunk" events followed by one
// "done" event carrying the stored messages; others get a single JSON body.
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	input := ops.SendMessageInput{
		ChatID:       chi.URLParam(r, "id"),
		Content:      req.Content,
		HistoryLimit: req.HistoryLimit,
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush || !strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		out, err := ops.SendMessage(r.Context(), h.env, input, nil)
		respond(w, http.StatusCreated, out, err)
		return
	}

	started := false
	start := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
	}
	onChunk := func(chunk string) error {
		start()
		if err := writeEvent(w, "chunk", map[string]string{"text": chunk}); err != nil {
			return err
		}
		flusher.Flush()
		return r.Context().Err()
	}

	out, err := ops.SendMessage(r.Context(), h.env, input, onChunk)
	if err != nil {
		if !started {
			writeError(w, err)
			return
		}
		_ = writeEvent(w, "error", errors.Payload(err)["error"])
		flusher.Flush()
		return
	}
	start()
	_ = writeEvent(w, "done", out)
	flusher.Flush()
}

// writeEvent writes one server-sent event with a JSON payload.
func writeEvent(w io.Writer, event string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
	return err
}

// Backup

type exportRequest struct {
	Path    string  `json:"path,omitempty"`
	RealmID *string `json:"realm_id,omitempty"`
}

type importRequest struct {
	Path    string  `json:"path"`
	Mode    string  `json:"mode,omitempty"`
	RealmID *string `json:"realm_id,omitempty"`
}

// Export handles POST /api/export.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	out, err := ops.Export(r.Context(), h.env, ops.ExportInput{Path: req.Path, RealmID: req.RealmID})
	respond(w, http.StatusOK, out, err)
}

// Import handles POST /api/import.
func (h *Handlers) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := ops.Import(r.Context(), h.env, ops.ImportInput{
		Path:    req.Path,
		Mode:    ops.ImportMode(req.Mode),
		RealmID: req.RealmID,
	})
	respond(w, http.StatusOK, out, err)
}

// Helpers

// items wraps list results so every endpoint returns a JSON object.
type items[T any] struct {
	Items []T `json:"items"`
}

func itemsOf[T any](list []T) items[T] {
	if list == nil {
		list = []T{}
	}
	return items[T]{Items: list}
}

// respond writes data with status, or the structured error when err is set.
func respond(w http.ResponseWriter, status int, data any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status, data)
}

// decodeBody parses a required JSON request body, writing a 400 and
// returning false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, errors.NewInvalidRequest("request body too large"))
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, errors.NewInvalidRequest("request body is required"))
		return false
	}
	return unmarshalBody(w, body, v)
}

// decodeOptionalBody is decodeBody for endpoints whose fields are all optional.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, errors.NewInvalidRequest("request body too large"))
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	return unmarshalBody(w, body, v)
}

func unmarshalBody(w http.ResponseWriter, body []byte, v any) bool {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, errors.NewInvalidRequest("invalid request body: "+err.Error()))
		return false
	}
	return true
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

// ptrString returns a pointer to s if non-empty, nil otherwise.
func ptrString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
