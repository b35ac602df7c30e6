package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hurttlocker/chronicle/internal/config"
	"github.com/hurttlocker/chronicle/internal/store"
	"github.com/hurttlocker/chronicle/internal/taxonomy"
)

func runAdd(args []string) error {
	rest, opts, err := parseCommon(args)
	if err != nil {
		return err
	}

	title, date, content, specialty := "", "", "", ""
	for i := 0; i < len(rest); i++ {
		switch {
		case rest[i] == "--title" && i+1 < len(rest):
			i++
			title = rest[i]
		case strings.HasPrefix(rest[i], "--title="):
			title = strings.TrimPrefix(rest[i], "--title=")
		case rest[i] == "--date" && i+1 < len(rest):
			i++
			date = rest[i]
		case strings.HasPrefix(rest[i], "--date="):
			date = strings.TrimPrefix(rest[i], "--date=")
		case rest[i] == "--content" && i+1 < len(rest):
			i++
			content = rest[i]
		case strings.HasPrefix(rest[i], "--content="):
			content = strings.TrimPrefix(rest[i], "--content=")
		case rest[i] == "--specialty" && i+1 < len(rest):
			i++
			specialty = rest[i]
		case strings.HasPrefix(rest[i], "--specialty="):
			specialty = strings.TrimPrefix(rest[i], "--specialty=")
		default:
			return fmt.Errorf("unexpected argument: %s", rest[i])
		}
	}
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("usage: chronicle add --title T [--date YYYY-MM-DD] [--content C] [--specialty S]")
	}
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}

	env, err := newAppEnv(opts)
	if err != nil {
		return err
	}
	defer env.Close()
	ctx := context.Background()

	ex, err := env.extractor(ctx)
	if err != nil {
		return err
	}
	facts := ex.Extract(title, content)
	if specialty == "" {
		specialty = facts.Specialty.Name
	}

	id := uuid.New().String()
	ev := &store.Event{
		ID:             id,
		SourceRef:      "manual:" + id,
		Date:           date,
		Title:          strings.TrimSpace(title),
		Content:        content,
		Specialty:      specialty,
		SpecialtyConf:  facts.Specialty.Confidence,
		Personnel:      facts.Personnel,
		Facilities:     facts.Facilities,
		ClinicalEvents: facts.ClinicalEvents,
		CategoryLinks:  facts.CategoryLinks,
		SupportLinks:   facts.SupportLinks,
		Identifiers:    facts.Identifiers,
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := env.store.UpsertEvents(ctx, []*store.Event{ev}); err != nil {
		return fmt.Errorf("storing event: %w", err)
	}
	fmt.Printf("Added %s (%s, %s)\n", id, date, specialty)
	return nil
}

func runCategory(args []string) error {
	rest, opts, err := parseCommon(args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return fmt.Errorf("usage: chronicle category <list|set|unset|import> ...")
	}

	env, err := newAppEnv(opts)
	if err != nil {
		return err
	}
	defer env.Close()
	ctx := context.Background()

	switch rest[0] {
	case "list":
		return categoryList(ctx, env)
	case "set":
		return categorySet(ctx, env, rest[1:])
	case "unset":
		if len(rest) != 2 {
			return fmt.Errorf("usage: chronicle category unset <name>")
		}
		removed, err := env.store.DeleteCategoryOverride(ctx, rest[1])
		if err != nil {
			return fmt.Errorf("removing override: %w", err)
		}
		if !removed {
			fmt.Printf("No override for %q\n", rest[1])
			return nil
		}
		fmt.Printf("Removed override for %q\n", rest[1])
		return nil
	case "import":
		if len(rest) != 2 {
			return fmt.Errorf("usage: chronicle category import <overrides.yaml>")
		}
		return categoryImport(ctx, env, rest[1])
	default:
		return fmt.Errorf("unknown category subcommand: %s", rest[0])
	}
}

func categoryList(ctx context.Context, env *appEnv) error {
	overrides, err := env.store.CategoryOverrides(ctx)
	if err != nil {
		return fmt.Errorf("loading overrides: %w", err)
	}
	overridden := map[string]bool{}
	for _, ov := range overrides {
		overridden[ov.Name] = true
	}
	tax := taxonomy.Default().WithCategoryOverrides(overrides)

	fmt.Printf("%-28s %-10s %-9s %s\n", "NAME", "SEVERITY", "KEYWORDS", "SOURCE")
	for _, c := range tax.Categories {
		src := "built-in"
		if overridden[c.Name] {
			src = "override"
		}
		fmt.Printf("%-28s %-10s %-9d %s\n", c.Name, c.Severity, len(c.Keywords), src)
	}
	return nil
}

func categorySet(ctx context.Context, env *appEnv, args []string) error {
	var c taxonomy.Category
	var keywords string
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--name" && i+1 < len(args):
			i++
			c.Name = args[i]
		case strings.HasPrefix(args[i], "--name="):
			c.Name = strings.TrimPrefix(args[i], "--name=")
		case args[i] == "--severity" && i+1 < len(args):
			i++
			c.Severity = strings.ToUpper(args[i])
		case strings.HasPrefix(args[i], "--severity="):
			c.Severity = strings.ToUpper(strings.TrimPrefix(args[i], "--severity="))
		case args[i] == "--keywords" && i+1 < len(args):
			i++
			keywords = args[i]
		case strings.HasPrefix(args[i], "--keywords="):
			keywords = strings.TrimPrefix(args[i], "--keywords=")
		case args[i] == "--description" && i+1 < len(args):
			i++
			c.Description = args[i]
		case strings.HasPrefix(args[i], "--description="):
			c.Description = strings.TrimPrefix(args[i], "--description=")
		default:
			return fmt.Errorf("unexpected argument: %s", args[i])
		}
	}
	if c.Name == "" {
		return fmt.Errorf("usage: chronicle category set --name N --severity S --keywords a,b,c [--description D]")
	}
	for _, kw := range strings.Split(keywords, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			c.Keywords = append(c.Keywords, kw)
		}
	}

	if err := env.store.SaveCategoryOverride(ctx, c); err != nil {
		return fmt.Errorf("saving override: %w", err)
	}
	fmt.Printf("Saved override for %q (%s, %d keywords)\n", c.Name, c.Severity, len(c.Keywords))
	return nil
}

func categoryImport(ctx context.Context, env *appEnv, path string) error {
	overrides, err := taxonomy.LoadCategoryOverrides(path)
	if err != nil {
		return err
	}
	if len(overrides) == 0 {
		fmt.Println("No overrides found in file")
		return nil
	}
	for _, ov := range overrides {
		if err := env.store.SaveCategoryOverride(ctx, ov); err != nil {
			return fmt.Errorf("saving override %q: %w", ov.Name, err)
		}
	}
	fmt.Printf("Imported %d override(s)\n", len(overrides))
	return nil
}

func runConfig(args []string) error {
	rest, opts, err := parseCommon(args)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	resolved, err := config.ResolveConfig(opts)
	if err != nil {
		return err
	}
	if resolved.EmbedAPIKey.Value != "" {
		resolved.EmbedAPIKey.Value = "(set)"
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resolved)
}
