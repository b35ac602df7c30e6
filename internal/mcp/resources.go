package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hurttlocker/chronicle/internal/journey"
	"github.com/hurttlocker/chronicle/internal/patient"
	"github.com/hurttlocker/chronicle/internal/store"
)

func registerStatsResource(s *server.MCPServer, st store.Store) {
	resource := mcp.NewResource(
		"chronicle://stats",
		"Archive Statistics",
		mcp.WithResourceDescription("Event, attachment, and entity counts, date coverage, and database size."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		stats, err := st.Stats(ctx)
		if err != nil {
			return nil, fmt.Errorf("querying stats resource: %w", err)
		}

		data, _ := json.MarshalIndent(stats, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}

func registerJourneyResource(s *server.MCPServer, st store.Store, profile *patient.Profile) {
	resource := mcp.NewResource(
		"chronicle://journey",
		"Diagnostic Journey",
		mcp.WithResourceDescription("Chronological first specialty encounters and new diagnoses with patient ages."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		events, err := st.ListEvents(ctx)
		if err != nil {
			return nil, fmt.Errorf("querying journey resource: %w", err)
		}

		entries := journey.Derive(events, profile)
		payload := map[string]interface{}{
			"entries": entries,
			"count":   len(entries),
		}
		data, _ := json.MarshalIndent(payload, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}
