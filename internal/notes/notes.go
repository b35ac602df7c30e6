// Package notes reads archived notes and normalizes them into canonical
// records with stable identities.
//
// A Source yields raw notes (marked-up body, timestamps, tags, binary
// attachments). Normalization strips the markup, derives the event date,
// and assigns an id from the title and creation timestamp so the same
// source note always normalizes to the same record.
package notes

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// RawNote is one note as delivered by a Source, before normalization.
type RawNote struct {
	Title     string
	Body      string // marked-up text (ENML, HTML)
	CreatedAt time.Time
	UpdatedAt time.Time
	Tags      []string
	SourceRef string            // opaque pointer back to the originating note
	Links     map[string]string // external navigation links, passed through
	Resources []Resource
}

// Resource is one binary attachment carried by a raw note.
type Resource struct {
	FileName string
	MimeType string
	Data     []byte
}

// Source yields raw notes from an archive file or a remote service.
type Source interface {
	Notes(ctx context.Context) ([]RawNote, error)
}

// Note is a normalized record ready for extraction and storage.
type Note struct {
	ID        string
	Title     string
	Content   string // plain text
	Date      string // YYYY-MM-DD
	CreatedAt time.Time
	UpdatedAt time.Time
	Tags      []string
	SourceRef string
	Links     map[string]string
	Resources []Resource
}

// enexTimestamp is the compact timestamp format used for identity
// derivation, matching archive export timestamps.
const enexTimestamp = "20060102T150405Z"

// NoteID derives the stable identity of a note from its title and
// creation timestamp. Re-deriving the same source note always yields
// the same id.
func NoteID(title string, created time.Time) string {
	sum := md5.Sum([]byte(title + "_" + created.UTC().Format(enexTimestamp)))
	return hex.EncodeToString(sum[:])
}

// Normalize converts a raw note into a canonical Note. It returns false
// when the note lacks a creation timestamp: undatable notes cannot
// appear on a timeline and are dropped, not stored. A body that fails
// markup parsing normalizes to empty content rather than an error.
func Normalize(raw RawNote) (Note, bool) {
	if raw.CreatedAt.IsZero() {
		return Note{}, false
	}

	content, err := StripMarkup(raw.Body)
	if err != nil {
		content = ""
	}

	created := raw.CreatedAt.UTC()
	return Note{
		ID:        NoteID(raw.Title, created),
		Title:     strings.TrimSpace(raw.Title),
		Content:   content,
		Date:      created.Format("2006-01-02"),
		CreatedAt: created,
		UpdatedAt: raw.UpdatedAt,
		Tags:      raw.Tags,
		SourceRef: raw.SourceRef,
		Links:     raw.Links,
		Resources: raw.Resources,
	}, true
}
