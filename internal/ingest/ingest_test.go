package ingest

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hurttlocker/chronicle/internal/attach"
	"github.com/hurttlocker/chronicle/internal/extract"
	"github.com/hurttlocker/chronicle/internal/notes"
	"github.com/hurttlocker/chronicle/internal/semantic"
	"github.com/hurttlocker/chronicle/internal/store"
	"github.com/hurttlocker/chronicle/internal/taxonomy"
)

// stubSource yields a fixed slice of raw notes.
type stubSource struct {
	raw []notes.RawNote
	err error
}

func (s stubSource) Notes(_ context.Context) ([]notes.RawNote, error) {
	return s.raw, s.err
}

func rawNote(title, body string, created time.Time) notes.RawNote {
	return notes.RawNote{Title: title, Body: body, CreatedAt: created}
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewStore(store.StoreConfig{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestExtractor() *extract.Extractor {
	return extract.NewExtractor(taxonomy.Default(), nil)
}

func TestRunIngestsAndDropsNotes(t *testing.T) {
	st := newTestStore(t)
	created := time.Date(2021, 3, 9, 10, 0, 0, 0, time.UTC)
	src := stubSource{raw: []notes.RawNote{
		rawNote("Cardiology Follow-up", "<en-note>Visit with Dr. Chen regarding heart murmur.</en-note>", created),
		rawNote("Lab Results", "<en-note>CBC within normal limits.</en-note>", created.Add(24*time.Hour)),
		rawNote("Undated Scrap", "<en-note>no timestamp</en-note>", time.Time{}),
	}}

	r := NewRunner(st, newTestExtractor(), nil, nil, nil, Options{})
	report, err := r.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Ingested != 2 {
		t.Errorf("Ingested = %d, want 2", report.Ingested)
	}
	if report.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", report.Dropped)
	}

	events, err := st.ListEvents(context.Background())
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("stored %d events, want 2", len(events))
	}
	first := events[0]
	if first.Date != "2021-03-09" {
		t.Errorf("first event date = %q, want 2021-03-09", first.Date)
	}
	if first.Specialty != "Cardiology" {
		t.Errorf("first event specialty = %q, want Cardiology", first.Specialty)
	}
	if len(first.Personnel) == 0 || first.Personnel[0].Name != "Chen" {
		t.Errorf("personnel = %+v, want Chen", first.Personnel)
	}
}

func TestRunSecondPassMerges(t *testing.T) {
	st := newTestStore(t)
	created := time.Date(2021, 3, 9, 10, 0, 0, 0, time.UTC)
	src := stubSource{raw: []notes.RawNote{
		rawNote("Cardiology Follow-up", "<en-note>Visit with Dr. Chen.</en-note>", created),
	}}
	r := NewRunner(st, newTestExtractor(), nil, nil, nil, Options{})

	if _, err := r.Run(context.Background(), src); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	report, err := r.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if report.Ingested != 0 || report.Merged != 1 {
		t.Errorf("second pass Ingested = %d, Merged = %d, want 0 and 1", report.Ingested, report.Merged)
	}
}

func TestRunSourceErrorFailsRun(t *testing.T) {
	st := newTestStore(t)
	r := NewRunner(st, newTestExtractor(), nil, nil, nil, Options{})
	_, err := r.Run(context.Background(), stubSource{err: errors.New("archive unreadable")})
	if err == nil {
		t.Fatal("expected error from failing source")
	}
}

func TestRunAnalyzesAttachments(t *testing.T) {
	st := newTestStore(t)
	created := time.Date(2021, 3, 9, 10, 0, 0, 0, time.UTC)
	raw := rawNote("Scan Results", "<en-note>see attachment</en-note>", created)
	raw.Resources = []notes.Resource{{
		FileName: "mri-report.txt",
		MimeType: "text/plain",
		Data:     []byte("MRI of the brain shows no abnormality."),
	}}

	dir := t.TempDir()
	analyzer := attach.NewAnalyzer(attach.Capabilities{}, newTestExtractor(), nil)
	r := NewRunner(st, newTestExtractor(), analyzer, nil, nil, Options{AttachmentDir: dir})

	report, err := r.Run(context.Background(), stubSource{raw: []notes.RawNote{raw}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.AttachmentsProcessed != 1 {
		t.Errorf("AttachmentsProcessed = %d, want 1", report.AttachmentsProcessed)
	}

	events, err := st.ListEvents(context.Background())
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 || len(events[0].Attachments) != 1 {
		t.Fatalf("stored events = %+v, want one event with one attachment", events)
	}
	att := events[0].Attachments[0]
	if att.StoragePath == "" {
		t.Error("attachment was not materialized to disk")
	} else if _, err := os.Stat(att.StoragePath); err != nil {
		t.Errorf("materialized file missing: %v", err)
	}
	if !strings.Contains(att.ExtractedText, "No text extraction available") {
		t.Errorf("ExtractedText = %q, want the no-extraction placeholder", att.ExtractedText)
	}
	if att.ProcessedAt == nil {
		t.Error("ProcessedAt not set")
	}
	if att.MedicalInfo == nil {
		t.Error("MedicalInfo not set")
	}
}

func TestRunAttachmentCacheHitOnSecondPass(t *testing.T) {
	st := newTestStore(t)
	created := time.Date(2021, 3, 9, 10, 0, 0, 0, time.UTC)
	raw := rawNote("Scan Results", "<en-note>see attachment</en-note>", created)
	raw.Resources = []notes.Resource{{
		FileName: "mri-report.txt",
		MimeType: "text/plain",
		Data:     []byte("MRI of the brain shows no abnormality."),
	}}
	src := stubSource{raw: []notes.RawNote{raw}}

	cache, err := attach.NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	analyzer := attach.NewAnalyzer(attach.Capabilities{}, newTestExtractor(), cache)
	r := NewRunner(st, newTestExtractor(), analyzer, nil, nil, Options{AttachmentDir: t.TempDir()})

	first, err := r.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.AttachmentsFromCache != 0 {
		t.Errorf("first pass AttachmentsFromCache = %d, want 0", first.AttachmentsFromCache)
	}
	second, err := r.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.AttachmentsFromCache != 1 {
		t.Errorf("second pass AttachmentsFromCache = %d, want 1", second.AttachmentsFromCache)
	}
}

func TestRunNilAnalyzerSkipsAttachments(t *testing.T) {
	st := newTestStore(t)
	created := time.Date(2021, 3, 9, 10, 0, 0, 0, time.UTC)
	raw := rawNote("Scan Results", "<en-note>see attachment</en-note>", created)
	raw.Resources = []notes.Resource{{FileName: "scan.jpg", MimeType: "image/jpeg", Data: []byte{0xff, 0xd8}}}

	r := NewRunner(st, newTestExtractor(), nil, nil, nil, Options{})
	report, err := r.Run(context.Background(), stubSource{raw: []notes.RawNote{raw}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.AttachmentsProcessed != 0 {
		t.Errorf("AttachmentsProcessed = %d, want 0", report.AttachmentsProcessed)
	}

	events, err := st.ListEvents(context.Background())
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 || len(events[0].Attachments) != 1 {
		t.Fatalf("attachment metadata should be stored even without analysis")
	}
	if events[0].Attachments[0].ExtractedText != "" {
		t.Errorf("ExtractedText = %q, want empty without an analyzer", events[0].Attachments[0].ExtractedText)
	}
}

// panicOCR simulates a crashing text-extraction backend.
type panicOCR struct{}

func (panicOCR) ImageText(context.Context, []byte) (string, error) {
	panic("ocr backend crashed")
}

func TestRunAttachmentPanicDegradesThatAttachmentOnly(t *testing.T) {
	st := newTestStore(t)
	created := time.Date(2021, 3, 9, 10, 0, 0, 0, time.UTC)
	raw := rawNote("Scan Results", "<en-note>see attachment</en-note>", created)
	raw.Resources = []notes.Resource{{FileName: "scan.jpg", MimeType: "image/jpeg", Data: []byte{0xff, 0xd8}}}

	analyzer := attach.NewAnalyzer(attach.Capabilities{OCR: panicOCR{}}, newTestExtractor(), nil)
	r := NewRunner(st, newTestExtractor(), analyzer, nil, nil, Options{})

	report, err := r.Run(context.Background(), stubSource{raw: []notes.RawNote{raw}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Ingested != 1 {
		t.Errorf("Ingested = %d, want 1 despite the attachment panic", report.Ingested)
	}
	if report.AttachmentsProcessed != 0 {
		t.Errorf("AttachmentsProcessed = %d, want 0 for the panicked job", report.AttachmentsProcessed)
	}
}

// flatEmbedder returns the same vector for every text, enough to
// drive an index rebuild.
type flatEmbedder struct{}

func (flatEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (e flatEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (flatEmbedder) Dimensions() int { return 3 }

func TestRunRebuildsSemanticIndex(t *testing.T) {
	st := newTestStore(t)
	created := time.Date(2021, 3, 9, 10, 0, 0, 0, time.UTC)
	src := stubSource{raw: []notes.RawNote{
		rawNote("Cardiology Follow-up", "<en-note>Visit with Dr. Chen regarding heart murmur.</en-note>", created),
	}}

	idx := semantic.NewIndex(flatEmbedder{})
	r := NewRunner(st, newTestExtractor(), nil, idx, nil, Options{})

	report, err := r.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.SemanticRebuilt {
		t.Error("SemanticRebuilt = false, want true with an embedder configured")
	}

	hits, err := idx.Query(context.Background(), "heart murmur", 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) == 0 {
		t.Error("semantic index empty after rebuild")
	}
}
