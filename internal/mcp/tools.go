package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Shared argument descriptions.
const (
	descRealmID     = "Realm ID"
	descSourceID    = "Content source ID"
	descSourceTypes = "One of: reflection, text, conversation, document, structured"
	descWeight      = "Importance weight within [0, 5] (default: 1.0). Sources weighted 3.0 or more trigger synthesis immediately."
	descLimit       = "Max results (default: 20, max: 100)"
)

// realms

var realmCreateDef = mcp.NewTool("realm_create",
	mcp.WithDescription("Create a realm: a named knowledge domain with its own synthesized system prompt."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Realm name")),
	mcp.WithString("description", mcp.Description("Optional description")),
	mcp.WithBoolean("synthesis_disabled", mcp.Description("Store content without ever synthesizing (default: false)")),
)

var realmGetDef = mcp.NewTool("realm_get",
	mcp.WithDescription("Get a realm with its current prompt, source count and pending batch size."),
	mcp.WithString("id", mcp.Required(), mcp.Description(descRealmID)),
)

var realmListDef = mcp.NewTool("realm_list",
	mcp.WithDescription("List all realms, default realm first."),
)

var realmUpdateDef = mcp.NewTool("realm_update",
	mcp.WithDescription("Rename a realm, change its description or toggle synthesis."),
	mcp.WithString("id", mcp.Required(), mcp.Description(descRealmID)),
	mcp.WithString("name", mcp.Description("New name")),
	mcp.WithString("description", mcp.Description("New description; empty string clears it")),
	mcp.WithBoolean("synthesis_disabled", mcp.Description("Disable or re-enable synthesis")),
)

var realmDeleteDef = mcp.NewTool("realm_delete",
	mcp.WithDescription("Delete a realm. Its content sources, reflections and chats are kept unassigned. The default realm cannot be deleted."),
	mcp.WithString("id", mcp.Required(), mcp.Description(descRealmID)),
)

var realmContentMapDef = mcp.NewTool("realm_content_map",
	mcp.WithDescription("Summarize a realm's content grouped by source type, with themes and statistics."),
	mcp.WithString("id", mcp.Required(), mcp.Description(descRealmID)),
)

var realmAnalyzeDef = mcp.NewTool("realm_analyze",
	mcp.WithDescription("Run the language model's content analysis over every source in a realm."),
	mcp.WithString("id", mcp.Required(), mcp.Description(descRealmID)),
)

// content sources

var sourceAddDef = mcp.NewTool("source_add",
	mcp.WithDescription("Add a content source. Unless auto_synthesize is false, the trigger policy decides whether to merge it into the realm prompt now, queue it for a batch, or skip."),
	mcp.WithString("content", mcp.Required(), mcp.Description("Source text")),
	mcp.WithString("realm_id", mcp.Description("Target realm; omit to store unassigned")),
	mcp.WithString("source_type", mcp.Description(descSourceTypes+" (default: text)")),
	mcp.WithString("title", mcp.Description("Optional title")),
	mcp.WithNumber("weight", mcp.Description(descWeight)),
	mcp.WithObject("metadata", mcp.Description("Arbitrary JSON metadata")),
	mcp.WithBoolean("auto_synthesize", mcp.Description("Run the trigger policy (default: true)")),
)

var sourceGetDef = mcp.NewTool("source_get",
	mcp.WithDescription("Get a content source by ID, including its full text."),
	mcp.WithString("id", mcp.Required(), mcp.Description(descSourceID)),
)

var sourceFetchManyDef = mcp.NewTool("source_fetch_many",
	mcp.WithDescription("Fetch up to 100 content sources by ID. Missing IDs are reported per item, not as a failure."),
	mcp.WithArray("ids", mcp.Required(), mcp.Description("Content source IDs"), mcp.WithStringItems()),
	mcp.WithBoolean("include_text", mcp.Description("Include full content (default: true)")),
)

var sourceListDef = mcp.NewTool("source_list",
	mcp.WithDescription("List content source summaries, newest first."),
	mcp.WithString("realm_id", mcp.Description("Filter by realm")),
	mcp.WithBoolean("unassigned", mcp.Description("Only sources without a realm (ignored with realm_id)")),
	mcp.WithString("source_type", mcp.Description(descSourceTypes)),
	mcp.WithNumber("limit", mcp.Description(descLimit)),
	mcp.WithNumber("offset", mcp.Description("Pagination offset (default: 0)")),
)

var sourceSearchDef = mcp.NewTool("source_search",
	mcp.WithDescription("Search content sources by title and text."),
	mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
	mcp.WithString("realm_id", mcp.Description("Filter by realm")),
	mcp.WithNumber("limit", mcp.Description(descLimit)),
)

var sourceUpdateDef = mcp.NewTool("source_update",
	mcp.WithDescription("Update a content source's title, content, weight or metadata."),
	mcp.WithString("id", mcp.Required(), mcp.Description(descSourceID)),
	mcp.WithString("title", mcp.Description("New title")),
	mcp.WithString("content", mcp.Description("New content")),
	mcp.WithNumber("weight", mcp.Description(descWeight)),
	mcp.WithObject("metadata", mcp.Description("Merged over the existing metadata")),
	mcp.WithBoolean("trigger_synthesis", mcp.Description("Merge the updated source into its realm prompt")),
)

var sourceUpdateWeightDef = mcp.NewTool("source_update_weight",
	mcp.WithDescription("Change a source's weight. Raising it past the high-weight threshold triggers synthesis."),
	mcp.WithString("id", mcp.Required(), mcp.Description(descSourceID)),
	mcp.WithNumber("weight", mcp.Required(), mcp.Description(descWeight)),
)

var sourceDeleteDef = mcp.NewTool("source_delete",
	mcp.WithDescription("Delete a content source and its queue entries."),
	mcp.WithString("id", mcp.Required(), mcp.Description(descSourceID)),
)

var sourceBulkUpdateDef = mcp.NewTool("source_bulk_update",
	mcp.WithDescription("Move or reweight every content source matching the filters. At least one filter and one set_ field are required."),
	mcp.WithArray("ids", mcp.Description("Filter by IDs"), mcp.WithStringItems()),
	mcp.WithString("realm_id", mcp.Description("Filter by realm")),
	mcp.WithBoolean("unassigned", mcp.Description("Filter to sources without a realm")),
	mcp.WithString("source_type", mcp.Description(descSourceTypes)),
	mcp.WithString("set_realm_id", mcp.Description("Move matches to this realm; empty string unassigns")),
	mcp.WithNumber("set_weight", mcp.Description(descWeight)),
)

var sourceBulkDeleteDef = mcp.NewTool("source_bulk_delete",
	mcp.WithDescription("Delete every content source matching the filters. At least one filter is required."),
	mcp.WithArray("ids", mcp.Description("Filter by IDs"), mcp.WithStringItems()),
	mcp.WithString("realm_id", mcp.Description("Filter by realm")),
	mcp.WithBoolean("unassigned", mcp.Description("Filter to sources without a realm")),
	mcp.WithString("source_type", mcp.Description(descSourceTypes)),
)

var sourceInsightsDef = mcp.NewTool("source_insights",
	mcp.WithDescription("Re-run keyword analysis on a source and cache the themes and traits in its metadata."),
	mcp.WithString("id", mcp.Required(), mcp.Description(descSourceID)),
)

var sourceAnalyzeDef = mcp.NewTool("source_analyze",
	mcp.WithDescription("Run the language model's content analysis on a single source."),
	mcp.WithString("id", mcp.Required(), mcp.Description(descSourceID)),
	mcp.WithString("realm_id", mcp.Description("Realm whose prompt gives context (default: the source's realm)")),
)

// batch queue

var queueProcessDef = mcp.NewTool("queue_process",
	mcp.WithDescription("Merge a realm's pending batch queue into its prompt when enough entries have accumulated."),
	mcp.WithString("realm_id", mcp.Required(), mcp.Description(descRealmID)),
)

var queueProcessAllDef = mcp.NewTool("queue_process_all",
	mcp.WithDescription("Process the pending batch queue of every realm."),
)

var queuePurgeDef = mcp.NewTool("queue_purge",
	mcp.WithDescription("Delete processed queue entries."),
	mcp.WithNumber("older_than_days", mcp.Description("Only entries processed more than N days ago (default: all)")),
)

// synthesis, versions, jobs

var synthesisFullDef = mcp.NewTool("synthesis_full",
	mcp.WithDescription("Run the four-stage synthesis pipeline now and wait for the result."),
	mcp.WithString("realm_id", mcp.Required(), mcp.Description(descRealmID)),
	mcp.WithArray("content_source_ids", mcp.Description("Restrict to these sources (default: the whole realm)"), mcp.WithStringItems()),
)

var versionListDef = mcp.NewTool("version_list",
	mcp.WithDescription("List a realm's prompt versions, newest first."),
	mcp.WithString("realm_id", mcp.Required(), mcp.Description(descRealmID)),
	mcp.WithNumber("limit", mcp.Description("Max results (default: 50, max: 200)")),
)

var versionGetDef = mcp.NewTool("version_get",
	mcp.WithDescription("Get one prompt version."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Prompt version ID")),
)

var versionAssessDef = mcp.NewTool("version_assess",
	mcp.WithDescription("Score a prompt version for coherence, completeness and effectiveness."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Prompt version ID")),
)

var jobStartDef = mcp.NewTool("job_start",
	mcp.WithDescription("Start a background synthesis job and return immediately. Poll job_get for the result."),
	mcp.WithString("realm_id", mcp.Required(), mcp.Description(descRealmID)),
	mcp.WithString("synthesis_type", mcp.Description("full (default), incremental or quality_improvement"),
		mcp.Enum("full", "incremental", "quality_improvement")),
	mcp.WithArray("content_source_ids", mcp.Description("Restrict to these sources"), mcp.WithStringItems()),
	mcp.WithObject("configuration", mcp.Description("Opaque settings stored with the job")),
)

var jobGetDef = mcp.NewTool("job_get",
	mcp.WithDescription("Get a synthesis job's status and result."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Job ID")),
)

var jobListDef = mcp.NewTool("job_list",
	mcp.WithDescription("List synthesis jobs, newest first."),
	mcp.WithString("realm_id", mcp.Description("Filter by realm")),
	mcp.WithNumber("limit", mcp.Description(descLimit)),
)

var jobCancelDef = mcp.NewTool("job_cancel",
	mcp.WithDescription("Cancel a pending or processing job."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Job ID")),
)

// reflections

var reflectionCreateDef = mcp.NewTool("reflection_create",
	mcp.WithDescription("Record a reflection question to answer later."),
	mcp.WithString("question", mcp.Required(), mcp.Description("The question")),
	mcp.WithString("realm_id", mcp.Description("Realm the answer belongs to")),
	mcp.WithString("category", mcp.Description("Optional category")),
	mcp.WithNumber("importance_score", mcp.Description("Within [0, 5] (default: 1.0); becomes the weight of the ingested answer")),
)

var reflectionListDef = mcp.NewTool("reflection_list",
	mcp.WithDescription("List reflections, newest first."),
	mcp.WithString("realm_id", mcp.Description("Filter by realm")),
	mcp.WithBoolean("answered", mcp.Description("true for answered only, false for open only; omit for both")),
)

var reflectionAnswerDef = mcp.NewTool("reflection_answer",
	mcp.WithDescription("Answer a reflection and optionally ingest the question and answer as a content source."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Reflection ID")),
	mcp.WithString("answer", mcp.Required(), mcp.Description("The answer")),
	mcp.WithBoolean("ingest", mcp.Description("Store as a reflection content source")),
	mcp.WithBoolean("auto_synthesize", mcp.Description("Run the trigger policy on the ingested source (default: true)")),
)

var reflectionMigrateDef = mcp.NewTool("reflection_migrate",
	mcp.WithDescription("Turn answered reflections without a linked source into content sources."),
	mcp.WithString("realm_id", mcp.Description("Only this realm's reflections")),
)

// texts

var textCreateDef = mcp.NewTool("text_create",
	mcp.WithDescription("Store a standalone text outside any realm."),
	mcp.WithString("title", mcp.Required(), mcp.Description("Title")),
	mcp.WithString("content", mcp.Required(), mcp.Description("Text body")),
	mcp.WithString("source_file_name", mcp.Description("Original file name")),
)

var textGetDef = mcp.NewTool("text_get",
	mcp.WithDescription("Get a text by ID."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Text ID")),
)

var textListDef = mcp.NewTool("text_list",
	mcp.WithDescription("List texts, newest first."),
)

var textDeleteDef = mcp.NewTool("text_delete",
	mcp.WithDescription("Delete a text. Content sources made from it are kept."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Text ID")),
)

var textIngestDef = mcp.NewTool("text_ingest",
	mcp.WithDescription("Make a text into a document content source in a realm, reusing the source if one exists."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Text ID")),
	mcp.WithString("realm_id", mcp.Required(), mcp.Description(descRealmID)),
)

var textMigrateDef = mcp.NewTool("text_migrate",
	mcp.WithDescription("Turn every text without a linked source into an unassigned document content source."),
)

// chat

var chatCreateDef = mcp.NewTool("chat_create",
	mcp.WithDescription("Start a chat. With a realm, the realm's prompt becomes the system instruction."),
	mcp.WithString("realm_id", mcp.Description(descRealmID)),
	mcp.WithString("title", mcp.Description("Optional title")),
)

var chatListDef = mcp.NewTool("chat_list",
	mcp.WithDescription("List chats, most recently active first."),
	mcp.WithString("realm_id", mcp.Description("Filter by realm")),
)

var chatMessagesDef = mcp.NewTool("chat_messages",
	mcp.WithDescription("List a chat's messages, oldest first."),
	mcp.WithString("chat_id", mcp.Required(), mcp.Description("Chat ID")),
)

var chatSendDef = mcp.NewTool("chat_send",
	mcp.WithDescription("Send a message and get the assistant's reply."),
	mcp.WithString("chat_id", mcp.Required(), mcp.Description("Chat ID")),
	mcp.WithString("content", mcp.Required(), mcp.Description("Message text")),
	mcp.WithNumber("history_limit", mcp.Description("Prior messages sent as context (default: 50, max: 200)")),
)

// backup

var backupExportDef = mcp.NewTool("backup_export",
	mcp.WithDescription("Export content sources to a JSONL file."),
	mcp.WithString("path", mcp.Description("Output .jsonl path (default: a timestamped file in the exports directory)")),
	mcp.WithString("realm_id", mcp.Description("Only this realm's sources (default: all)")),
)

var backupImportDef = mcp.NewTool("backup_import",
	mcp.WithDescription("Import content sources from a JSONL export. Imported sources are never queued for synthesis."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Input .jsonl path")),
	mcp.WithString("mode", mcp.Description("On ID collision: error (default, atomic), replace or rename"),
		mcp.Enum("error", "replace", "rename")),
	mcp.WithString("realm_id", mcp.Description("Assign every imported source to this realm")),
)
