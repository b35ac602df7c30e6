package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestParseSpec(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    *Config
		wantErr bool
	}{
		{
			name: "ollama simple",
			spec: "ollama/all-minilm",
			want: &Config{
				Provider:    "ollama",
				Model:       "all-minilm",
				Endpoint:    "http://localhost:11434/v1/embeddings",
				MaxRetries:  3,
				TimeoutSecs: 60,
			},
		},
		{
			name: "openai simple",
			spec: "openai/text-embedding-3-small",
			want: &Config{
				Provider:    "openai",
				Model:       "text-embedding-3-small",
				Endpoint:    "https://api.openai.com/v1/embeddings",
				MaxRetries:  3,
				TimeoutSecs: 60,
			},
		},
		{
			name: "openrouter model with slashes",
			spec: "openrouter/sentence-transformers/all-MiniLM-L6-v2",
			want: &Config{
				Provider:    "openrouter",
				Model:       "sentence-transformers/all-MiniLM-L6-v2",
				Endpoint:    "https://openrouter.ai/api/v1/embeddings",
				MaxRetries:  3,
				TimeoutSecs: 60,
			},
		},
		{name: "empty spec", spec: "", wantErr: true},
		{name: "no slash", spec: "ollama", wantErr: true},
		{name: "empty provider", spec: "/model", wantErr: true},
		{name: "empty model", spec: "provider/", wantErr: true},
		{name: "unknown provider", spec: "unknown/model", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSpec(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSpec() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Provider != tt.want.Provider || got.Model != tt.want.Model ||
				got.Endpoint != tt.want.Endpoint ||
				got.MaxRetries != tt.want.MaxRetries || got.TimeoutSecs != tt.want.TimeoutSecs {
				t.Errorf("ParseSpec() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := Config{
		Provider:    "ollama",
		Model:       "all-minilm",
		Endpoint:    "http://localhost:11434/v1/embeddings",
		MaxRetries:  3,
		TimeoutSecs: 60,
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"valid ollama", func(c *Config) {}, true},
		{"missing provider", func(c *Config) { c.Provider = "" }, false},
		{"missing model", func(c *Config) { c.Model = "" }, false},
		{"missing endpoint", func(c *Config) { c.Endpoint = "" }, false},
		{"openai without key", func(c *Config) { c.Provider = "openai" }, false},
		{"openai with key", func(c *Config) { c.Provider = "openai"; c.APIKey = "sk-test" }, true},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, false},
		{"zero timeout", func(c *Config) { c.TimeoutSecs = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err == nil) != tt.valid {
				t.Errorf("Validate() = %v, want valid=%v", err, tt.valid)
			}
		})
	}
}

// fakeEmbeddingServer returns length-derived 384-wide vectors for any
// request, in the OpenAI response shape.
func fakeEmbeddingServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}

		resp := embedResponse{}
		resp.Data = make([]struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}, len(req.Input))
		for i, text := range req.Input {
			vec := make([]float32, 384)
			for j := range vec {
				vec[j] = float32(len(text)+j) * 0.001
			}
			resp.Data[i].Embedding = vec
			resp.Data[i].Index = i
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func testConfig(endpoint string) *Config {
	return &Config{
		Provider:    "test",
		Model:       "test-model",
		Endpoint:    endpoint,
		MaxRetries:  1,
		TimeoutSecs: 5,
	}
}

func TestEmbedSingleText(t *testing.T) {
	server := fakeEmbeddingServer(t)
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	vec, err := client.Embed(context.Background(), "test text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 384 {
		t.Errorf("embedding length = %d, want 384", len(vec))
	}
	if client.Dimensions() != 384 {
		t.Errorf("Dimensions() = %d, want 384", client.Dimensions())
	}
}

func TestEmbedBatchSkipsBlankTexts(t *testing.T) {
	server := fakeEmbeddingServer(t)
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	ctx := context.Background()
	if _, err := client.Embed(ctx, ""); err == nil {
		t.Error("expected error for empty text")
	}

	vecs, err := client.EmbedBatch(ctx, nil)
	if err != nil {
		t.Fatalf("EmbedBatch(nil): %v", err)
	}
	if vecs != nil {
		t.Error("expected nil result for empty batch")
	}

	texts := []string{"", "  ", "valid text", ""}
	vecs, err = client.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vecs), len(texts))
	}
	for i, vec := range vecs {
		if texts[i] == "valid text" && len(vec) == 0 {
			t.Errorf("index %d: expected a vector for non-blank text", i)
		}
		if texts[i] != "valid text" && len(vec) != 0 {
			t.Errorf("index %d: expected nil vector for blank text", i)
		}
	}
}

func TestEmbedRetriesOnServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			w.WriteHeader(500)
			w.Write([]byte("internal server error"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3],"index":0}]}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 3
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	vec, err := client.Embed(context.Background(), "test")
	if err != nil {
		t.Fatalf("Embed after retries: %v", err)
	}
	if !reflect.DeepEqual(vec, []float32{0.1, 0.2, 0.3}) {
		t.Errorf("embedding = %v", vec)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestEmbedHonorsRetryAfter(t *testing.T) {
	attempts := 0
	start := time.Now()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(429)
			w.Write([]byte("rate limited"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3],"index":0}]}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 3
	cfg.TimeoutSecs = 10
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.Embed(context.Background(), "test"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 2*time.Second {
		t.Errorf("elapsed = %v, want at least the Retry-After delay", elapsed)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestEmbedRejectsMismatchedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"unexpected": "shape"}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.Embed(context.Background(), "test")
	if err == nil {
		t.Fatal("expected error for mismatched response")
	}
	if !strings.Contains(err.Error(), "expected 1 embeddings") {
		t.Errorf("error = %v", err)
	}
}

func TestEmbedSendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); !strings.HasPrefix(auth, "Bearer ") {
			t.Errorf("Authorization = %q, want Bearer token", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"embedding":[0.1],"index":0}]}`))
	}))
	defer server.Close()

	cfg, err := ParseSpec("openai/text-embedding-3-small")
	if err != nil {
		t.Fatalf("ParseSpec: %v", err)
	}
	cfg.Endpoint = server.URL
	cfg.APIKey = "test-key"

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Embed(context.Background(), "test text"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
}
