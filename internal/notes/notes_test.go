package notes

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNoteIDIdempotent(t *testing.T) {
	created := time.Date(2020, 1, 15, 10, 0, 0, 0, time.UTC)

	a := NoteID("Cardiology Review", created)
	b := NoteID("Cardiology Review", created)
	if a != b {
		t.Errorf("same title+created produced different ids: %s vs %s", a, b)
	}
	if len(a) != 32 {
		t.Errorf("id length = %d, want 32 hex chars", len(a))
	}

	if NoteID("Cardiology Review", created.Add(time.Second)) == a {
		t.Error("different created timestamp produced the same id")
	}
	if NoteID("Other Title", created) == a {
		t.Error("different title produced the same id")
	}
}

func TestNormalize(t *testing.T) {
	created := time.Date(2020, 1, 15, 10, 0, 0, 0, time.UTC)
	raw := RawNote{
		Title:     "  Cardiology Review ",
		Body:      "<en-note><div>Consultation with Dr. Jane Smith.</div><div>Plan: rest.</div></en-note>",
		CreatedAt: created,
		Tags:      []string{"cardiology"},
	}

	n, ok := Normalize(raw)
	if !ok {
		t.Fatal("expected note to normalize")
	}
	if n.Title != "Cardiology Review" {
		t.Errorf("title = %q", n.Title)
	}
	if n.Date != "2020-01-15" {
		t.Errorf("date = %q", n.Date)
	}
	if n.Content != "Consultation with Dr. Jane Smith.\nPlan: rest." {
		t.Errorf("content = %q", n.Content)
	}
	if n.ID != NoteID(raw.Title, created) {
		t.Error("id does not match NoteID derivation")
	}
}

func TestNormalizeDropsUndatedNotes(t *testing.T) {
	_, ok := Normalize(RawNote{Title: "No date", Body: "text"})
	if ok {
		t.Error("note without created timestamp must be dropped")
	}
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "just text", "just text"},
		{"entities", "Tom &amp; Jerry &lt;3", "Tom & Jerry <3"},
		{"divs to lines", "<div>one</div><div>two</div>", "one\ntwo"},
		{"br", "one<br/>two", "one\ntwo"},
		{"nested markup", "<en-note><b>bold</b> and <i>italic</i></en-note>", "bold and italic"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StripMarkup(tt.in)
			if err != nil {
				t.Fatalf("StripMarkup failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

const testENEX = `<?xml version="1.0" encoding="UTF-8"?>
<en-export export-date="20240101T000000Z" application="Evernote">
  <note>
    <title>Cardiology Review</title>
    <content><![CDATA[<?xml version="1.0"?><en-note><div>Consultation with Dr. Jane Smith at Alder Hey Hospital.</div></en-note>]]></content>
    <created>20200115T100000Z</created>
    <updated>20200116T090000Z</updated>
    <tag>cardiology</tag>
    <tag>hospital</tag>
    <note-attributes>
      <source-url>https://notes.example/abc123</source-url>
    </note-attributes>
    <resource>
      <data encoding="base64">%s</data>
      <mime>application/pdf</mime>
      <resource-attributes>
        <file-name>letter.pdf</file-name>
      </resource-attributes>
    </resource>
  </note>
  <note>
    <title>Undated scribble</title>
    <content><![CDATA[<en-note>no created element</en-note>]]></content>
  </note>
</en-export>`

func TestENEXSource(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 fake"))
	path := filepath.Join(t.TempDir(), "archive.enex")

	content := strings.Replace(testENEX, "%s", payload, 1)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	src := NewENEXSource(path)
	raws, err := src.Notes(context.Background())
	if err != nil {
		t.Fatalf("Notes failed: %v", err)
	}
	if len(raws) != 2 {
		t.Fatalf("expected 2 raw notes, got %d", len(raws))
	}

	n := raws[0]
	if n.Title != "Cardiology Review" {
		t.Errorf("title = %q", n.Title)
	}
	if n.CreatedAt != time.Date(2020, 1, 15, 10, 0, 0, 0, time.UTC) {
		t.Errorf("created = %v", n.CreatedAt)
	}
	if len(n.Tags) != 2 || n.Tags[0] != "cardiology" {
		t.Errorf("tags = %v", n.Tags)
	}
	if n.SourceRef != "https://notes.example/abc123" {
		t.Errorf("source ref = %q", n.SourceRef)
	}
	if len(n.Resources) != 1 || n.Resources[0].FileName != "letter.pdf" ||
		n.Resources[0].MimeType != "application/pdf" {
		t.Fatalf("resources = %+v", n.Resources)
	}
	if string(n.Resources[0].Data) != "%PDF-1.4 fake" {
		t.Errorf("resource payload = %q", n.Resources[0].Data)
	}

	// Second note has no created timestamp; Normalize drops it.
	if _, ok := Normalize(raws[1]); ok {
		t.Error("undated note survived normalization")
	}
}
