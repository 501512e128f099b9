package mcp

import (
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/pathfinder/internal/ops"
)

// KnownTypes lists the tool groups that can be disabled as a whole.
var KnownTypes = []string{
	"realm", "source", "queue", "synthesis", "version", "job",
	"reflection", "text", "chat", "backup",
}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
// Names follow "type_action"; the type is what DisabledTypes matches.
var toolRegistry = map[string]toolEntry{
	// realms
	"realm_create":      {realmCreateDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRealmCreate }},
	"realm_get":         {realmGetDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRealmGet }},
	"realm_list":        {realmListDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRealmList }},
	"realm_update":      {realmUpdateDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRealmUpdate }},
	"realm_delete":      {realmDeleteDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRealmDelete }},
	"realm_content_map": {realmContentMapDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRealmContentMap }},
	"realm_analyze":     {realmAnalyzeDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRealmAnalyze }},

	// content sources
	"source_add":           {sourceAddDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSourceAdd }},
	"source_get":           {sourceGetDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSourceGet }},
	"source_fetch_many":    {sourceFetchManyDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSourceFetchMany }},
	"source_list":          {sourceListDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSourceList }},
	"source_search":        {sourceSearchDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSourceSearch }},
	"source_update":        {sourceUpdateDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSourceUpdate }},
	"source_update_weight": {sourceUpdateWeightDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSourceUpdateWeight }},
	"source_delete":        {sourceDeleteDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSourceDelete }},
	"source_bulk_update":   {sourceBulkUpdateDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSourceBulkUpdate }},
	"source_bulk_delete":   {sourceBulkDeleteDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSourceBulkDelete }},
	"source_insights":      {sourceInsightsDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSourceInsights }},
	"source_analyze":       {sourceAnalyzeDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSourceAnalyze }},

	// batch queue
	"queue_process":     {queueProcessDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleQueueProcess }},
	"queue_process_all": {queueProcessAllDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleQueueProcessAll }},
	"queue_purge":       {queuePurgeDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleQueuePurge }},

	// synthesis, versions, jobs
	"synthesis_full": {synthesisFullDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSynthesisFull }},
	"version_list":   {versionListDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleVersionList }},
	"version_get":    {versionGetDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleVersionGet }},
	"version_assess": {versionAssessDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleVersionAssess }},
	"job_start":      {jobStartDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleJobStart }},
	"job_get":        {jobGetDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleJobGet }},
	"job_list":       {jobListDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleJobList }},
	"job_cancel":     {jobCancelDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleJobCancel }},

	// reflections and texts
	"reflection_create":  {reflectionCreateDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleReflectionCreate }},
	"reflection_list":    {reflectionListDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleReflectionList }},
	"reflection_answer":  {reflectionAnswerDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleReflectionAnswer }},
	"reflection_migrate": {reflectionMigrateDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleReflectionMigrate }},
	"text_create":        {textCreateDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleTextCreate }},
	"text_get":           {textGetDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleTextGet }},
	"text_list":          {textListDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleTextList }},
	"text_delete":        {textDeleteDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleTextDelete }},
	"text_ingest":        {textIngestDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleTextIngest }},
	"text_migrate":       {textMigrateDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleTextMigrate }},

	// chat
	"chat_create":   {chatCreateDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleChatCreate }},
	"chat_list":     {chatListDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleChatList }},
	"chat_messages": {chatMessagesDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleChatMessages }},
	"chat_send":     {chatSendDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleChatSend }},

	// backup
	"backup_export": {backupExportDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleBackupExport }},
	"backup_import": {backupImportDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleBackupImport }},
}

// AllToolNames returns every registered tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name
// ("source_bulk_update" → "source").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	sort.Strings(tools)
	return tools
}

// EnabledTools returns the sorted names of the tools NewServer registers
// for env's configuration.
func EnabledTools(env *ops.Env) []string {
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(env.Config.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range env.Config.DisabledTools {
		disabled[name] = true
	}

	enabled := make([]string, 0, len(toolRegistry))
	for _, name := range AllToolNames() {
		if !disabled[name] {
			enabled = append(enabled, name)
		}
	}
	return enabled
}

// NewServer creates an MCP server exposing the Pathfinder tools. Tools listed
// in DisabledTools or belonging to DisabledTypes are not registered.
func NewServer(env *ops.Env, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"pathfinder",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	h := NewHandlers(env)
	for _, name := range EnabledTools(env) {
		entry := toolRegistry[name]
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves the MCP tools over stdio until stdin closes.
func Run(env *ops.Env, version string) error {
	return server.ServeStdio(NewServer(env, version))
}
