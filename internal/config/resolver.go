// Package config resolves runtime settings from a YAML file, the
// environment, and CLI flags, tracking where each value came from so
// diagnostics can say why a setting has the value it does.
//
// Precedence, lowest to highest: built-in default, config file,
// CHRONICLE_* environment variable, CLI flag.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

// ResolvedValue is one setting plus its provenance.
type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries the CLI-level overrides into resolution.
type ResolveOptions struct {
	ConfigPath string
	CLIDBPath  string
	CLIEmbed   string
	CLIPatient string
	CLIIndex   string
	CLIAttach  string
}

// ResolvedConfig is the full resolved settings set.
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath        ResolvedValue `json:"db_path"`
	AttachmentDir ResolvedValue `json:"attachment_dir"`
	CacheDir      ResolvedValue `json:"cache_dir"`
	IndexPath     ResolvedValue `json:"index_path"`
	PatientFile   ResolvedValue `json:"patient_file"`

	EmbedProvider ResolvedValue `json:"embed_provider"`
	EmbedAPIKey   ResolvedValue `json:"embed_api_key"`
	EmbedEndpoint ResolvedValue `json:"embed_endpoint"`
}

type fileConfig struct {
	DBPath        string `yaml:"db_path"`
	AttachmentDir string `yaml:"attachment_dir"`
	CacheDir      string `yaml:"cache_dir"`
	IndexPath     string `yaml:"index_path"`
	PatientFile   string `yaml:"patient_file"`
	Embed         struct {
		Provider string `yaml:"provider"`
		APIKey   string `yaml:"api_key"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"embed"`
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".chronicle", "config.yaml")
}

// ResolveConfig resolves every setting. A missing config file is not
// an error; a malformed one is.
func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{ConfigPath: path}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}

	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.AttachmentDir, cfg.AttachmentDir, SourceConfig, path)
		apply(&out.CacheDir, cfg.CacheDir, SourceConfig, path)
		apply(&out.IndexPath, cfg.IndexPath, SourceConfig, path)
		apply(&out.PatientFile, cfg.PatientFile, SourceConfig, path)
		apply(&out.EmbedProvider, cfg.Embed.Provider, SourceConfig, path)
		apply(&out.EmbedEndpoint, cfg.Embed.Endpoint, SourceConfig, path)
		apply(&out.EmbedAPIKey, cfg.Embed.APIKey, SourceConfig, path)
	}

	applyEnv(&out.DBPath, "CHRONICLE_DB")
	applyEnv(&out.DBPath, "CHRONICLE_DB_PATH")
	applyEnv(&out.AttachmentDir, "CHRONICLE_ATTACHMENT_DIR")
	applyEnv(&out.CacheDir, "CHRONICLE_CACHE_DIR")
	applyEnv(&out.IndexPath, "CHRONICLE_INDEX")
	applyEnv(&out.PatientFile, "CHRONICLE_PATIENT")
	applyEnv(&out.EmbedProvider, "CHRONICLE_EMBED")
	applyEnv(&out.EmbedEndpoint, "CHRONICLE_EMBED_ENDPOINT")
	applyEnv(&out.EmbedAPIKey, "CHRONICLE_EMBED_API_KEY")

	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")
	apply(&out.EmbedProvider, opts.CLIEmbed, SourceCLI, "--embed")
	apply(&out.PatientFile, opts.CLIPatient, SourceCLI, "--patient")
	apply(&out.IndexPath, opts.CLIIndex, SourceCLI, "--index")
	apply(&out.AttachmentDir, opts.CLIAttach, SourceCLI, "--attachments")

	applyDefault(&out.DBPath, "~/.chronicle/chronicle.db")
	applyDefault(&out.AttachmentDir, "~/.chronicle/attachments")
	applyDefault(&out.CacheDir, "~/.chronicle/cache")
	applyDefault(&out.IndexPath, "~/.chronicle/index.hnsw")
	// PatientFile and EmbedProvider have no defaults: without them the
	// built-in patient profile and keyword-only search apply.

	for _, v := range []*ResolvedValue{
		&out.DBPath, &out.AttachmentDir, &out.CacheDir, &out.IndexPath, &out.PatientFile,
	} {
		if v.Value != "" {
			v.Value = expandUserPath(v.Value)
		}
	}

	return out, nil
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func applyDefault(dst *ResolvedValue, value string) {
	if strings.TrimSpace(dst.Value) == "" {
		*dst = ResolvedValue{Value: value, Source: SourceDefault, From: "built-in default"}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
