// Package semantic maintains the optional vector index over event
// content and attachment extracted text. The index is a capability,
// not a requirement: without an embedder every query returns an empty
// result set and ingestion skips the rebuild.
package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/hurttlocker/chronicle/internal/ann"
	"github.com/hurttlocker/chronicle/internal/embed"
	"github.com/hurttlocker/chronicle/internal/store"
)

// Chunk is one indexed slice of text with its provenance tag.
type Chunk struct {
	Text            string `json:"text"`
	EventID         string `json:"event_id"`
	Kind            string `json:"kind"` // "event" or "attachment"
	AttachmentIndex int    `json:"attachment_index,omitempty"`
}

// Hit is one query result.
type Hit struct {
	Chunk Chunk
	Score float32 // cosine similarity, higher = closer
}

// Index pairs an HNSW vector index with chunk metadata.
type Index struct {
	mu       sync.RWMutex
	embedder embed.Embedder
	hnsw     *ann.Index
	chunks   []Chunk // node ID is the position here
}

// NewIndex creates an index. A nil embedder is allowed and makes the
// index permanently empty.
func NewIndex(embedder embed.Embedder) *Index {
	return &Index{embedder: embedder}
}

// Available reports whether the embedding capability is present.
func (ix *Index) Available() bool {
	return ix != nil && ix.embedder != nil
}

// ChunkEvents produces the corpus for a rebuild: event content plus
// each attachment's extracted text, tagged with provenance.
func ChunkEvents(events []*store.Event) []Chunk {
	var corpus []Chunk
	for _, ev := range events {
		for _, text := range ChunkText(ev.Content) {
			corpus = append(corpus, Chunk{Text: text, EventID: ev.ID, Kind: "event"})
		}
		for i, att := range ev.Attachments {
			for _, text := range ChunkText(att.ExtractedText) {
				corpus = append(corpus, Chunk{
					Text:            text,
					EventID:         ev.ID,
					Kind:            "attachment",
					AttachmentIndex: i,
				})
			}
		}
	}
	return corpus
}

// Rebuild re-embeds the whole corpus and replaces the index contents.
func (ix *Index) Rebuild(ctx context.Context, corpus []Chunk) error {
	if !ix.Available() {
		return fmt.Errorf("no embedder configured")
	}
	texts := make([]string, len(corpus))
	for i, c := range corpus {
		texts[i] = c.Text
	}

	vecs, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding corpus: %w", err)
	}

	dims := ix.embedder.Dimensions()
	for _, v := range vecs {
		if len(v) > 0 {
			dims = len(v)
			break
		}
	}
	hnsw := ann.New(dims)
	kept := make([]Chunk, 0, len(corpus))
	for i, v := range vecs {
		if len(v) == 0 {
			continue
		}
		hnsw.Insert(int64(len(kept)), v)
		kept = append(kept, corpus[i])
	}

	ix.mu.Lock()
	ix.hnsw = hnsw
	ix.chunks = kept
	ix.mu.Unlock()
	return nil
}

// Query returns the k most similar chunks, best first. Absent
// capability or an empty index yield an empty set, never an error
// from absence alone.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]Hit, error) {
	if !ix.Available() {
		return nil, nil
	}
	ix.mu.RLock()
	hnsw := ix.hnsw
	ix.mu.RUnlock()
	if hnsw == nil || hnsw.Len() == 0 {
		return nil, nil
	}

	vec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results := hnsw.Search(vec, k)
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		if r.ID < 0 || int(r.ID) >= len(ix.chunks) {
			continue
		}
		hits = append(hits, Hit{Chunk: ix.chunks[r.ID], Score: 1 - r.Distance})
	}
	return hits, nil
}

// Save writes the vector index and its chunk metadata. The metadata
// rides in a JSON sidecar next to the binary index.
func (ix *Index) Save(path string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.hnsw == nil {
		return fmt.Errorf("nothing to save")
	}
	if err := ix.hnsw.Save(path); err != nil {
		return err
	}
	meta, err := json.Marshal(ix.chunks)
	if err != nil {
		return fmt.Errorf("marshaling chunk metadata: %w", err)
	}
	if err := os.WriteFile(path+".meta.json", meta, 0644); err != nil {
		return fmt.Errorf("writing chunk metadata: %w", err)
	}
	return nil
}

// Load restores a saved index. The embedder must produce vectors of
// the same dimensionality as the one used at save time.
func Load(path string, embedder embed.Embedder) (*Index, error) {
	hnsw, err := ann.Load(path)
	if err != nil {
		return nil, err
	}
	meta, err := os.ReadFile(path + ".meta.json")
	if err != nil {
		return nil, fmt.Errorf("reading chunk metadata: %w", err)
	}
	var chunks []Chunk
	if err := json.Unmarshal(meta, &chunks); err != nil {
		return nil, fmt.Errorf("parsing chunk metadata: %w", err)
	}
	if hnsw.Len() != len(chunks) {
		return nil, fmt.Errorf("index holds %d vectors but metadata has %d chunks", hnsw.Len(), len(chunks))
	}
	return &Index{embedder: embedder, hnsw: hnsw, chunks: chunks}, nil
}
