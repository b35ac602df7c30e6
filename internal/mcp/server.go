// Package mcp provides a Model Context Protocol server for Chronicle.
//
// It exposes the archive (search, event access, diagnostic journey,
// curation, ingestion, stats) as MCP tools, plus archive statistics
// and the journey as MCP resources, over stdio transport.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hurttlocker/chronicle/internal/ingest"
	"github.com/hurttlocker/chronicle/internal/journey"
	"github.com/hurttlocker/chronicle/internal/notes"
	"github.com/hurttlocker/chronicle/internal/patient"
	"github.com/hurttlocker/chronicle/internal/search"
	"github.com/hurttlocker/chronicle/internal/store"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Store    store.Store
	Searcher *search.Searcher // optional, defaults to keyword-only
	Runner   *ingest.Runner   // optional, enables the ingest tool
	Patient  *patient.Profile // optional, adds ages to the journey
	Version  string
}

// dbMu serializes all MCP tool calls that touch the database.
// The mcp-go library dispatches handlers concurrently via goroutines.
// SQLite (even with WAL) supports only one writer at a time, and
// concurrent reads during writes can return stale results. A global
// mutex ensures correct ordering: an ingest completes before searches
// see its events.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all Chronicle tools
// and resources.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"Chronicle",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	searcher := cfg.Searcher
	if searcher == nil {
		searcher = search.NewSearcher(cfg.Store, nil)
	}

	registerSearchTool(s, searcher)
	registerListEventsTool(s, cfg.Store)
	registerGetEventTool(s, cfg.Store)
	registerJourneyTool(s, cfg.Store, cfg.Patient)
	registerMergeEventsTool(s, cfg.Store)
	registerRenameEntityTool(s, cfg.Store)
	registerEditEventTool(s, cfg.Store)
	registerStatsTool(s, cfg.Store)
	registerIngestTool(s, cfg.Runner)

	registerStatsResource(s, cfg.Store)
	registerJourneyResource(s, cfg.Store, cfg.Patient)

	return s
}

// --- Tools ---

func registerSearchTool(s *server.MCPServer, searcher *search.Searcher) {
	tool := mcp.NewTool("search_archive",
		mcp.WithDescription("Search the medical archive. Combines keyword (FTS5/BM25) and semantic lanes when an embedding index is configured; falls back to keyword-only otherwise. Returns scored events with snippets."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query string"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 10, max: 50)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		limit := 10
		if limitVal, err := req.RequireFloat("limit"); err == nil {
			l := int(limitVal)
			if l > 50 {
				l = 50
			}
			if l > 0 {
				limit = l
			}
		}

		results, err := searcher.Search(ctx, query, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(results, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

// eventSummary is the compact event listing returned by list_events.
type eventSummary struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Title       string `json:"title"`
	Specialty   string `json:"specialty"`
	Attachments int    `json:"attachments"`
}

func registerListEventsTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("list_events",
		mcp.WithDescription("List archive events in chronological order. Optionally filter by specialty or date range (YYYY-MM-DD)."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("specialty",
			mcp.Description("Only events for this specialty (exact, case-insensitive)"),
		),
		mcp.WithString("since",
			mcp.Description("Only events on or after this date (YYYY-MM-DD)"),
		),
		mcp.WithString("until",
			mcp.Description("Only events on or before this date (YYYY-MM-DD)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of events to return (default: 50, max: 500)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		events, err := st.ListEvents(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list error: %v", err)), nil
		}

		specialty := ""
		if v, err := req.RequireString("specialty"); err == nil {
			specialty = strings.ToLower(strings.TrimSpace(v))
		}
		since := ""
		if v, err := req.RequireString("since"); err == nil {
			since = strings.TrimSpace(v)
		}
		until := ""
		if v, err := req.RequireString("until"); err == nil {
			until = strings.TrimSpace(v)
		}
		limit := 50
		if v, err := req.RequireFloat("limit"); err == nil {
			l := int(v)
			if l > 500 {
				l = 500
			}
			if l > 0 {
				limit = l
			}
		}

		summaries := make([]eventSummary, 0, len(events))
		for _, ev := range events {
			if specialty != "" && strings.ToLower(ev.Specialty) != specialty {
				continue
			}
			if since != "" && ev.Date < since {
				continue
			}
			if until != "" && ev.Date > until {
				continue
			}
			summaries = append(summaries, eventSummary{
				ID:          ev.ID,
				Date:        ev.Date,
				Title:       ev.Title,
				Specialty:   ev.Specialty,
				Attachments: len(ev.Attachments),
			})
			if len(summaries) >= limit {
				break
			}
		}

		data, _ := json.MarshalIndent(summaries, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerGetEventTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("get_event",
		mcp.WithDescription("Fetch one archive event in full: content, extracted personnel, facilities, clinical events, category links, and attachment analyses."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Event id"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}

		ev, err := st.GetEvent(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("get error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(ev, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerJourneyTool(s *server.MCPServer, st store.Store, profile *patient.Profile) {
	tool := mcp.NewTool("diagnostic_journey",
		mcp.WithDescription("Derive the diagnostic journey: the chronological sequence of first specialty encounters and new diagnoses, with patient age at each step."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		events, err := st.ListEvents(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("journey error: %v", err)), nil
		}

		entries := journey.Derive(events, profile)
		data, _ := json.MarshalIndent(entries, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerMergeEventsTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("merge_events",
		mcp.WithDescription("Merge two duplicate events. The first event survives and absorbs the second's content, extracted facts, and attachments; the second is deleted. The store is backed up before the merge and restored if it fails."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("keep_id",
			mcp.Required(),
			mcp.Description("Id of the event to keep"),
		),
		mcp.WithString("merge_id",
			mcp.Required(),
			mcp.Description("Id of the event to merge in and delete"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		keepID, err := req.RequireString("keep_id")
		if err != nil {
			return mcp.NewToolResultError("keep_id is required"), nil
		}
		mergeID, err := req.RequireString("merge_id")
		if err != nil {
			return mcp.NewToolResultError("merge_id is required"), nil
		}

		survivor, err := st.MergeEvents(ctx, keepID, mergeID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("merge error: %v", err)), nil
		}

		result := map[string]interface{}{
			"survivor": survivor,
			"message":  fmt.Sprintf("Merged %s into %s", mergeID, survivor),
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerRenameEntityTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("rename_entity",
		mcp.WithDescription("Rename a person or facility everywhere it appears: in every event's extracted lists and in the canonical entity registry. Use to unify spelling variants of the same clinician."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Entity kind: personnel or facility"),
			mcp.Enum("personnel", "facility"),
		),
		mcp.WithString("old_name",
			mcp.Required(),
			mcp.Description("Current name"),
		),
		mcp.WithString("new_name",
			mcp.Required(),
			mcp.Description("Replacement name"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		kind, err := req.RequireString("kind")
		if err != nil {
			return mcp.NewToolResultError("kind is required"), nil
		}
		oldName, err := req.RequireString("old_name")
		if err != nil {
			return mcp.NewToolResultError("old_name is required"), nil
		}
		newName, err := req.RequireString("new_name")
		if err != nil {
			return mcp.NewToolResultError("new_name is required"), nil
		}

		changed, err := st.RenameEntity(ctx, kind, oldName, newName)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("rename error: %v", err)), nil
		}

		result := map[string]interface{}{
			"changed": changed,
			"message": fmt.Sprintf("Renamed %s %q to %q", kind, oldName, newName),
		}
		if !changed {
			result["message"] = fmt.Sprintf("No %s named %q found", kind, oldName)
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerEditEventTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("edit_event",
		mcp.WithDescription("Edit an event's title, date, content, or specialty. Only the provided fields change. The store is backed up before the edit."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Event id"),
		),
		mcp.WithString("title",
			mcp.Description("New title"),
		),
		mcp.WithString("date",
			mcp.Description("New date (YYYY-MM-DD)"),
		),
		mcp.WithString("content",
			mcp.Description("New body text"),
		),
		mcp.WithString("specialty",
			mcp.Description("New specialty"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}

		var edit store.EventEdit
		fields := 0
		if v, err := req.RequireString("title"); err == nil && v != "" {
			edit.Title = &v
			fields++
		}
		if v, err := req.RequireString("date"); err == nil && v != "" {
			edit.Date = &v
			fields++
		}
		if v, err := req.RequireString("content"); err == nil && v != "" {
			edit.Content = &v
			fields++
		}
		if v, err := req.RequireString("specialty"); err == nil && v != "" {
			edit.Specialty = &v
			fields++
		}
		if fields == 0 {
			return mcp.NewToolResultError("provide at least one of title, date, content, specialty"), nil
		}

		if err := st.EditEvent(ctx, id, edit); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("edit error: %v", err)), nil
		}

		result := map[string]interface{}{
			"id":      id,
			"fields":  fields,
			"message": fmt.Sprintf("Updated %d field(s) on %s", fields, id),
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerStatsTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("archive_stats",
		mcp.WithDescription("Get archive statistics: event, attachment, personnel, and facility counts, date range covered, and database size."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		stats, err := st.Stats(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stats error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(stats, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerIngestTool(s *server.MCPServer, runner *ingest.Runner) {
	tool := mcp.NewTool("ingest_archive",
		mcp.WithDescription("Ingest a note archive export (.enex) into the store: normalize notes, extract medical facts, analyze attachments, and merge into existing events by stable id."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the .enex export file"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		if runner == nil {
			return mcp.NewToolResultError("ingestion is not configured on this server"), nil
		}

		path, err := req.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError("path is required"), nil
		}
		if _, err := os.Stat(path); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("archive not readable: %v", err)), nil
		}

		report, err := runner.Run(ctx, notes.NewENEXSource(path))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("ingest error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(report, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}
