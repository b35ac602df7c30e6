package notes

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"html"
	"os"
	"regexp"
	"strings"
	"time"
)

// ENEXSource reads notes from an Evernote export (.enex) file.
type ENEXSource struct {
	Path string
}

// NewENEXSource returns a Source over the given export file.
func NewENEXSource(path string) *ENEXSource {
	return &ENEXSource{Path: path}
}

// enex export schema — only the elements the pipeline consumes.
type enexExport struct {
	XMLName xml.Name   `xml:"en-export"`
	Notes   []enexNote `xml:"note"`
}

type enexNote struct {
	Title      string         `xml:"title"`
	Content    string         `xml:"content"`
	Created    string         `xml:"created"`
	Updated    string         `xml:"updated"`
	Tags       []string       `xml:"tag"`
	Attributes enexAttributes `xml:"note-attributes"`
	Resources  []enexResource `xml:"resource"`
}

type enexAttributes struct {
	SourceURL string `xml:"source-url"`
}

type enexResource struct {
	Data       enexData      `xml:"data"`
	Mime       string        `xml:"mime"`
	Attributes enexResAttrib `xml:"resource-attributes"`
}

type enexData struct {
	Encoding string `xml:"encoding,attr"`
	Value    string `xml:",chardata"`
}

type enexResAttrib struct {
	FileName string `xml:"file-name"`
}

// Notes parses the export file. Notes with unparseable timestamps come
// back with a zero CreatedAt and are dropped later by Normalize; a
// resource whose payload fails to decode is skipped, not fatal.
func (s *ENEXSource) Notes(ctx context.Context) ([]RawNote, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading archive %s: %w", s.Path, err)
	}

	var export enexExport
	if err := xml.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("parsing archive %s: %w", s.Path, err)
	}

	raw := make([]RawNote, 0, len(export.Notes))
	for _, n := range export.Notes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		note := RawNote{
			Title:     n.Title,
			Body:      n.Content,
			CreatedAt: parseENEXTime(n.Created),
			UpdatedAt: parseENEXTime(n.Updated),
			Tags:      n.Tags,
			SourceRef: n.Attributes.SourceURL,
		}
		if n.Attributes.SourceURL != "" {
			note.Links = map[string]string{"source": n.Attributes.SourceURL}
		}

		for _, r := range n.Resources {
			payload, err := base64.StdEncoding.DecodeString(compactBase64(r.Data.Value))
			if err != nil {
				continue
			}
			note.Resources = append(note.Resources, Resource{
				FileName: r.Attributes.FileName,
				MimeType: r.Mime,
				Data:     payload,
			})
		}

		raw = append(raw, note)
	}
	return raw, nil
}

// parseENEXTime parses the export timestamp format, returning the zero
// time when the value is missing or malformed.
func parseENEXTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(enexTimestamp, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// compactBase64 strips the whitespace that export files wrap payloads with.
func compactBase64(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
}

var (
	blockBreak = regexp.MustCompile(`(?i)<\s*(?:/div|/p|br\s*/?|/li|/tr)\s*>`)
	anyTag     = regexp.MustCompile(`<[^>]*>`)
	blankRuns  = regexp.MustCompile(`\n{3,}`)
	spaceRuns  = regexp.MustCompile(`[ \t]+`)
)

// StripMarkup converts an ENML/HTML note body to plain text: block-level
// closers become newlines, all other tags are dropped, and entities are
// decoded. Input that is not markup at all passes through trimmed.
func StripMarkup(body string) (string, error) {
	if strings.TrimSpace(body) == "" {
		return "", nil
	}

	text := blockBreak.ReplaceAllString(body, "\n")
	text = anyTag.ReplaceAllString(text, "")
	text = html.UnescapeString(text)

	// Tidy whitespace per line, then collapse blank-line runs.
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRuns.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text), nil
}
