package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hurttlocker/chronicle/internal/attach"
	"github.com/hurttlocker/chronicle/internal/config"
	"github.com/hurttlocker/chronicle/internal/embed"
	"github.com/hurttlocker/chronicle/internal/extract"
	"github.com/hurttlocker/chronicle/internal/ingest"
	"github.com/hurttlocker/chronicle/internal/patient"
	"github.com/hurttlocker/chronicle/internal/search"
	"github.com/hurttlocker/chronicle/internal/semantic"
	"github.com/hurttlocker/chronicle/internal/store"
	"github.com/hurttlocker/chronicle/internal/taxonomy"
)

// parseCommon extracts the shared config flags from args and returns
// the remaining arguments. Both "--flag value" and "--flag=value"
// forms are accepted.
func parseCommon(args []string) ([]string, config.ResolveOptions, error) {
	var opts config.ResolveOptions
	var rest []string

	targets := map[string]*string{
		"--config":      &opts.ConfigPath,
		"--db":          &opts.CLIDBPath,
		"--embed":       &opts.CLIEmbed,
		"--patient":     &opts.CLIPatient,
		"--index":       &opts.CLIIndex,
		"--attachments": &opts.CLIAttach,
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		matched := false
		for flag, dst := range targets {
			switch {
			case arg == flag:
				if i+1 >= len(args) {
					return nil, opts, fmt.Errorf("%s requires a value", flag)
				}
				i++
				*dst = args[i]
				matched = true
			case strings.HasPrefix(arg, flag+"="):
				*dst = strings.TrimPrefix(arg, flag+"=")
				matched = true
			}
			if matched {
				break
			}
		}
		if !matched {
			rest = append(rest, arg)
		}
	}
	return rest, opts, nil
}

// appEnv bundles the resolved configuration and the open store for one
// command invocation.
type appEnv struct {
	cfg     config.ResolvedConfig
	store   store.Store
	profile *patient.Profile
	logger  *zap.SugaredLogger
}

func newAppEnv(opts config.ResolveOptions) (*appEnv, error) {
	// A .env next to the working directory may carry API keys.
	_ = godotenv.Load()

	resolved, err := config.ResolveConfig(opts)
	if err != nil {
		return nil, err
	}

	profile := patient.Default()
	if path := resolved.PatientFile.Value; path != "" {
		profile, err = patient.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading patient profile: %w", err)
		}
	}

	st, err := store.NewStore(store.StoreConfig{DBPath: resolved.DBPath.Value})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	logger, _ := zap.NewProduction()
	return &appEnv{cfg: resolved, store: st, profile: profile, logger: logger.Sugar()}, nil
}

func (e *appEnv) Close() {
	e.store.Close()
	_ = e.logger.Sync()
}

// extractor builds the fact extractor over the default taxonomy plus
// any category overrides saved in the store.
func (e *appEnv) extractor(ctx context.Context) (*extract.Extractor, error) {
	tax := taxonomy.Default()
	overrides, err := e.store.CategoryOverrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading category overrides: %w", err)
	}
	if len(overrides) > 0 {
		tax = tax.WithCategoryOverrides(overrides)
	}
	return extract.NewExtractor(tax, e.profile), nil
}

// embedder builds the embedding client when a spec is configured.
// Returns nil when embeddings are off.
func (e *appEnv) embedder() (embed.Embedder, error) {
	cfg, err := embed.ResolveSpec(e.cfg.EmbedProvider.Value)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, nil
	}
	if v := e.cfg.EmbedEndpoint.Value; v != "" {
		cfg.Endpoint = v
	}
	if v := e.cfg.EmbedAPIKey.Value; v != "" {
		cfg.APIKey = v
	}
	client, err := embed.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("configuring embeddings: %w", err)
	}
	return client, nil
}

// semanticIndex loads the persisted semantic index when it exists, or
// starts an empty one. Returns nil when embeddings are off.
func (e *appEnv) semanticIndex() (*semantic.Index, error) {
	embedder, err := e.embedder()
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, nil
	}
	path := e.cfg.IndexPath.Value
	if _, err := os.Stat(path); err == nil {
		idx, err := semantic.Load(path, embedder)
		if err != nil {
			return nil, fmt.Errorf("loading semantic index: %w", err)
		}
		return idx, nil
	}
	return semantic.NewIndex(embedder), nil
}

// searcher wires the store and the semantic index together.
func (e *appEnv) searcher() (*search.Searcher, error) {
	idx, err := e.semanticIndex()
	if err != nil {
		return nil, err
	}
	return search.NewSearcher(e.store, idx), nil
}

// runner assembles the full ingestion pipeline.
func (e *appEnv) runner(ctx context.Context) (*ingest.Runner, *semantic.Index, error) {
	ex, err := e.extractor(ctx)
	if err != nil {
		return nil, nil, err
	}

	cache, err := attach.NewCache(e.cfg.CacheDir.Value)
	if err != nil {
		return nil, nil, fmt.Errorf("opening analysis cache: %w", err)
	}
	// No OCR or PDF backends are bundled; attachment analysis records
	// the absence and emits labeled placeholder text instead.
	analyzer := attach.NewAnalyzer(attach.Capabilities{}, ex, cache)

	idx, err := e.semanticIndex()
	if err != nil {
		return nil, nil, err
	}

	r := ingest.NewRunner(e.store, ex, analyzer, idx, e.logger, ingest.Options{
		AttachmentDir: e.cfg.AttachmentDir.Value,
	})
	return r, idx, nil
}
