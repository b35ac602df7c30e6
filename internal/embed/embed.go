// Package embed turns text into vectors via OpenAI-compatible
// /v1/embeddings endpoints. Providers: ollama (local, no key), openai,
// deepseek, openrouter, and custom (endpoint from environment). The
// semantic index is optional, so callers treat a nil Embedder as
// "capability absent" rather than an error.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Embedder generates embedding vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Config holds embedding provider configuration.
type Config struct {
	Provider    string // "ollama", "openai", "deepseek", "openrouter", "custom"
	Model       string
	Endpoint    string
	APIKey      string
	MaxRetries  int // default 3
	TimeoutSecs int // per-request, default 60

	dimensions int // learned from the first response
}

// HTTPError is a non-200 embedding response.
type HTTPError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// ParseSpec parses a "provider/model" spec. Model names may themselves
// contain slashes ("openrouter/sentence-transformers/all-MiniLM-L6-v2"),
// so only the first slash splits.
func ParseSpec(spec string) (*Config, error) {
	if spec == "" {
		return nil, fmt.Errorf("empty embedding spec")
	}
	idx := strings.Index(spec, "/")
	if idx == -1 {
		return nil, fmt.Errorf("invalid embedding spec: expected 'provider/model', got %q", spec)
	}
	provider, model := spec[:idx], spec[idx+1:]
	if provider == "" || model == "" {
		return nil, fmt.Errorf("invalid embedding spec %q: provider and model are both required", spec)
	}

	cfg := &Config{
		Provider:    provider,
		Model:       model,
		MaxRetries:  3,
		TimeoutSecs: 60,
	}
	switch provider {
	case "ollama":
		cfg.Endpoint = "http://localhost:11434/v1/embeddings"
	case "openai":
		cfg.Endpoint = "https://api.openai.com/v1/embeddings"
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	case "deepseek":
		cfg.Endpoint = "https://api.deepseek.com/v1/embeddings"
		cfg.APIKey = os.Getenv("DEEPSEEK_API_KEY")
	case "openrouter":
		cfg.Endpoint = "https://openrouter.ai/api/v1/embeddings"
		cfg.APIKey = os.Getenv("OPENROUTER_API_KEY")
	case "custom":
		cfg.Endpoint = os.Getenv("CHRONICLE_EMBED_ENDPOINT")
		cfg.APIKey = os.Getenv("CHRONICLE_EMBED_API_KEY")
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: ollama, openai, deepseek, openrouter, custom)", provider)
	}

	// Environment overrides apply to every provider.
	if endpoint := os.Getenv("CHRONICLE_EMBED_ENDPOINT"); endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if key := os.Getenv("CHRONICLE_EMBED_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	return cfg, nil
}

// ResolveSpec resolves the embedding spec from flag then environment.
// A (nil, nil) return means embeddings are not configured; semantic
// search stays off.
func ResolveSpec(flagValue string) (*Config, error) {
	if flagValue != "" {
		return ParseSpec(flagValue)
	}
	if env := os.Getenv("CHRONICLE_EMBED"); env != "" {
		cfg, err := ParseSpec(env)
		if err != nil {
			return nil, fmt.Errorf("parsing CHRONICLE_EMBED: %w", err)
		}
		return cfg, nil
	}
	return nil, nil
}

// Validate checks the configuration is complete.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if c.Provider != "ollama" && c.Provider != "test" && c.APIKey == "" {
		return fmt.Errorf("API key is required for provider %q", c.Provider)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.TimeoutSecs <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// Client implements Embedder over HTTP.
type Client struct {
	config Config
	http   *http.Client
}

// NewClient creates an embedding client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Client{
		config: *cfg,
		http:   &http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second},
	}, nil
}

// Dimensions returns the vector width, 0 before the first call.
func (c *Client) Dimensions() int {
	return c.config.dimensions
}

// Embed generates one embedding vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text")
	}
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one API call, retrying with exponential
// backoff (Retry-After honored on 429). Blank inputs come back as nil
// vectors without hitting the API.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	nonEmpty := make([]string, 0, len(texts))
	indexMap := make([]int, 0, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) != "" {
			nonEmpty = append(nonEmpty, t)
			indexMap = append(indexMap, i)
		}
	}
	if len(nonEmpty) == 0 {
		return make([][]float32, len(texts)), nil
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		vecs, err := c.requestEmbeddings(ctx, nonEmpty)
		if err == nil {
			result := make([][]float32, len(texts))
			for i, v := range vecs {
				result[indexMap[i]] = v
				if c.config.dimensions == 0 && len(v) > 0 {
					c.config.dimensions = len(v)
				}
			}
			return result, nil
		}
		lastErr = err
		if attempt == c.config.MaxRetries {
			break
		}

		backoff := time.Duration(1<<attempt) * time.Second
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == 429 && httpErr.RetryAfter > 0 {
			backoff = httpErr.RetryAfter
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("embedding failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (c *Client) requestEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(embedRequest{Model: c.config.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	if c.config.Provider == "openrouter" {
		req.Header.Set("HTTP-Referer", "https://github.com/hurttlocker/chronicle")
		req.Header.Set("X-Title", "Chronicle")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var retryAfter time.Duration
		if header := resp.Header.Get("Retry-After"); header != "" {
			if seconds, err := strconv.Atoi(header); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: string(body), RetryAfter: retryAfter}
	}

	var parsed embedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing response JSON: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(parsed.Data))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("invalid embedding index: %d", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}
