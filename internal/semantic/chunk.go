package semantic

import "strings"

const (
	chunkSize    = 1000
	chunkOverlap = 200
)

// ChunkText splits text into ~chunkSize-character pieces with
// chunkOverlap characters of context carried between neighbors.
// Splits prefer a paragraph boundary in the back half of the window,
// so a chunk rarely cuts a sentence mid-thought. Blank text produces
// no chunks.
func ChunkText(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + chunkSize
		if end >= len(text) {
			chunk := strings.TrimSpace(text[start:])
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		// Prefer a paragraph break, then a newline, inside the back
		// half of the window.
		cut := end
		if idx := strings.LastIndex(text[start:end], "\n\n"); idx > chunkSize/2 {
			cut = start + idx
		} else if idx := strings.LastIndex(text[start:end], "\n"); idx > chunkSize/2 {
			cut = start + idx
		}

		chunk := strings.TrimSpace(text[start:cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - chunkOverlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}
