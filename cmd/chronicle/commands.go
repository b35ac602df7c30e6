package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/server"

	"github.com/hurttlocker/chronicle/internal/journey"
	"github.com/hurttlocker/chronicle/internal/mcp"
	"github.com/hurttlocker/chronicle/internal/notes"
	"github.com/hurttlocker/chronicle/internal/store"
)

func runIngest(args []string) error {
	rest, opts, err := parseCommon(args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return fmt.Errorf("usage: chronicle ingest <path>... [--db <path>] [--embed <spec>]")
	}
	for _, arg := range rest {
		if strings.HasPrefix(arg, "-") {
			return fmt.Errorf("unknown flag: %s", arg)
		}
	}

	env, err := newAppEnv(opts)
	if err != nil {
		return err
	}
	defer env.Close()
	ctx := context.Background()

	runner, idx, err := env.runner(ctx)
	if err != nil {
		return err
	}

	for _, path := range rest {
		fmt.Printf("Ingesting %s...\n", path)
		report, err := runner.Run(ctx, notes.NewENEXSource(path))
		if err != nil {
			fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
			continue
		}
		fmt.Printf("  %d new, %d merged, %d dropped, %d attachments (%d cached)\n",
			report.Ingested, report.Merged, report.Dropped,
			report.AttachmentsProcessed, report.AttachmentsFromCache)
		if report.SemanticRebuilt && idx != nil {
			if err := idx.Save(env.cfg.IndexPath.Value); err != nil {
				fmt.Fprintf(os.Stderr, "  Warning: saving semantic index: %v\n", err)
			}
		}
	}
	return nil
}

func runList(args []string) error {
	rest, opts, err := parseCommon(args)
	if err != nil {
		return err
	}

	specialty, since, until := "", "", ""
	for i := 0; i < len(rest); i++ {
		switch {
		case rest[i] == "--specialty" && i+1 < len(rest):
			i++
			specialty = strings.ToLower(rest[i])
		case strings.HasPrefix(rest[i], "--specialty="):
			specialty = strings.ToLower(strings.TrimPrefix(rest[i], "--specialty="))
		case rest[i] == "--since" && i+1 < len(rest):
			i++
			since = rest[i]
		case strings.HasPrefix(rest[i], "--since="):
			since = strings.TrimPrefix(rest[i], "--since=")
		case rest[i] == "--until" && i+1 < len(rest):
			i++
			until = rest[i]
		case strings.HasPrefix(rest[i], "--until="):
			until = strings.TrimPrefix(rest[i], "--until=")
		default:
			return fmt.Errorf("unexpected argument: %s", rest[i])
		}
	}

	env, err := newAppEnv(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	events, err := env.store.ListEvents(context.Background())
	if err != nil {
		return fmt.Errorf("listing events: %w", err)
	}

	fmt.Printf("%-32s %-12s %-18s %-5s %s\n", "ID", "DATE", "SPECIALTY", "ATT", "TITLE")
	shown := 0
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
		title := ev.Title
		if len(title) > 44 {
			title = title[:43] + "…"
		}
		fmt.Printf("%-32s %-12s %-18s %-5d %s\n", ev.ID, ev.Date, ev.Specialty, len(ev.Attachments), title)
		shown++
	}
	fmt.Printf("\n%d events\n", shown)
	return nil
}

func runShow(args []string) error {
	rest, opts, err := parseCommon(args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("usage: chronicle show <id>")
	}

	env, err := newAppEnv(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	ev, err := env.store.GetEvent(context.Background(), rest[0])
	if err != nil {
		return err
	}
	out := struct {
		*store.Event
		PatientAge string `json:"patient_age,omitempty"`
	}{ev, env.profile.AgeAt(ev.Date)}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func runJourney(args []string) error {
	rest, opts, err := parseCommon(args)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	env, err := newAppEnv(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	events, err := env.store.ListEvents(context.Background())
	if err != nil {
		return fmt.Errorf("listing events: %w", err)
	}

	entries := journey.Derive(events, env.profile)
	for _, e := range entries {
		marker := " "
		if e.IsNewSpecialty {
			marker = "*"
		}
		line := fmt.Sprintf("%s %s  %-18s %s", marker, e.Date, e.Specialty, e.Title)
		if e.Age != "" {
			line += fmt.Sprintf("  (%s)", e.Age)
		}
		fmt.Println(line)
		for _, d := range e.Diagnoses {
			fmt.Printf("    + %s\n", d)
		}
	}
	fmt.Printf("\n%d journey entries across %d events\n", len(entries), len(events))
	return nil
}

func runSearch(args []string) error {
	rest, opts, err := parseCommon(args)
	if err != nil {
		return err
	}

	limit := 10
	var terms []string
	for i := 0; i < len(rest); i++ {
		switch {
		case rest[i] == "--limit" && i+1 < len(rest):
			i++
			fmt.Sscanf(rest[i], "%d", &limit)
		case strings.HasPrefix(rest[i], "--limit="):
			fmt.Sscanf(strings.TrimPrefix(rest[i], "--limit="), "%d", &limit)
		case strings.HasPrefix(rest[i], "-"):
			return fmt.Errorf("unknown flag: %s", rest[i])
		default:
			terms = append(terms, rest[i])
		}
	}
	query := strings.TrimSpace(strings.Join(terms, " "))
	if query == "" {
		return fmt.Errorf("usage: chronicle search <query> [--limit N] [--embed <spec>]")
	}

	env, err := newAppEnv(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	searcher, err := env.searcher()
	if err != nil {
		return err
	}
	results, err := searcher.Search(context.Background(), query, limit)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	for i, r := range results {
		fmt.Printf("%2d. [%.3f %s] %s  %s — %s\n", i+1, r.Score, r.MatchType, r.Date, r.Specialty, r.Title)
		if r.Snippet != "" {
			fmt.Printf("    %s\n", r.Snippet)
		}
		fmt.Printf("    id: %s\n", r.EventID)
	}
	fmt.Printf("\n%d results\n", len(results))
	return nil
}

func runMerge(args []string) error {
	rest, opts, err := parseCommon(args)
	if err != nil {
		return err
	}
	if len(rest) != 2 {
		return fmt.Errorf("usage: chronicle merge <keep-id> <duplicate-id>")
	}

	env, err := newAppEnv(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	survivor, err := env.store.MergeEvents(context.Background(), rest[0], rest[1])
	if err != nil {
		return fmt.Errorf("merging events: %w", err)
	}
	fmt.Printf("Merged %s into %s\n", rest[1], survivor)
	return nil
}

func runRename(args []string) error {
	rest, opts, err := parseCommon(args)
	if err != nil {
		return err
	}
	if len(rest) != 3 {
		return fmt.Errorf("usage: chronicle rename <personnel|facility> <old-name> <new-name>")
	}

	env, err := newAppEnv(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	changed, err := env.store.RenameEntity(context.Background(), rest[0], rest[1], rest[2])
	if err != nil {
		return fmt.Errorf("renaming: %w", err)
	}
	if !changed {
		fmt.Printf("No %s named %q found\n", rest[0], rest[1])
		return nil
	}
	fmt.Printf("Renamed %s %q to %q\n", rest[0], rest[1], rest[2])
	return nil
}

func runEdit(args []string) error {
	rest, opts, err := parseCommon(args)
	if err != nil {
		return err
	}

	var id string
	var edit store.EventEdit
	set := func(dst **string, v string) { *dst = &v }
	for i := 0; i < len(rest); i++ {
		switch {
		case rest[i] == "--title" && i+1 < len(rest):
			i++
			set(&edit.Title, rest[i])
		case strings.HasPrefix(rest[i], "--title="):
			set(&edit.Title, strings.TrimPrefix(rest[i], "--title="))
		case rest[i] == "--date" && i+1 < len(rest):
			i++
			set(&edit.Date, rest[i])
		case strings.HasPrefix(rest[i], "--date="):
			set(&edit.Date, strings.TrimPrefix(rest[i], "--date="))
		case rest[i] == "--content" && i+1 < len(rest):
			i++
			set(&edit.Content, rest[i])
		case strings.HasPrefix(rest[i], "--content="):
			set(&edit.Content, strings.TrimPrefix(rest[i], "--content="))
		case rest[i] == "--specialty" && i+1 < len(rest):
			i++
			set(&edit.Specialty, rest[i])
		case strings.HasPrefix(rest[i], "--specialty="):
			set(&edit.Specialty, strings.TrimPrefix(rest[i], "--specialty="))
		case strings.HasPrefix(rest[i], "-"):
			return fmt.Errorf("unknown flag: %s", rest[i])
		case id == "":
			id = rest[i]
		default:
			return fmt.Errorf("unexpected argument: %s", rest[i])
		}
	}
	if id == "" {
		return fmt.Errorf("usage: chronicle edit <id> [--title T] [--date D] [--content C] [--specialty S]")
	}
	if edit.Title == nil && edit.Date == nil && edit.Content == nil && edit.Specialty == nil {
		return fmt.Errorf("provide at least one of --title, --date, --content, --specialty")
	}

	env, err := newAppEnv(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.store.EditEvent(context.Background(), id, edit); err != nil {
		return fmt.Errorf("editing event: %w", err)
	}
	fmt.Printf("Updated %s\n", id)
	return nil
}

func runStats(args []string) error {
	rest, opts, err := parseCommon(args)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	env, err := newAppEnv(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	stats, err := env.store.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}

	fmt.Printf("Events:             %d\n", stats.EventCount)
	fmt.Printf("Attachments:        %d\n", stats.AttachmentCount)
	fmt.Printf("Personnel:          %d\n", stats.PersonnelCount)
	fmt.Printf("Facilities:         %d\n", stats.FacilityCount)
	fmt.Printf("Identifiers:        %d\n", stats.IdentifierCount)
	fmt.Printf("Category overrides: %d\n", stats.CategoryOverrides)
	if stats.EarliestDate != "" {
		fmt.Printf("Date range:         %s to %s\n", stats.EarliestDate, stats.LatestDate)
	}
	fmt.Printf("Database size:      %.1f MB\n", float64(stats.DBSizeBytes)/(1024*1024))
	return nil
}

func runServe(args []string) error {
	rest, opts, err := parseCommon(args)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	env, err := newAppEnv(opts)
	if err != nil {
		return err
	}
	defer env.Close()
	ctx := context.Background()

	searcher, err := env.searcher()
	if err != nil {
		return err
	}
	runner, _, err := env.runner(ctx)
	if err != nil {
		return err
	}

	srv := mcp.NewServer(mcp.ServerConfig{
		Store:    env.store,
		Searcher: searcher,
		Runner:   runner,
		Patient:  env.profile,
		Version:  version,
	})
	return server.ServeStdio(srv)
}
