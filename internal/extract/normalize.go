package extract

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// honorifics stripped from the front of captured names before storage.
var honorifics = []string{
	"dr", "dr.", "doctor", "prof", "prof.", "professor",
	"mr", "mr.", "mrs", "mrs.", "ms", "ms.", "miss",
}

// NormalizeName canonicalizes a captured personnel name: lowercase,
// strip a leading honorific, collapse whitespace, then title-case. The
// same person captured as "Dr. Jane  Smith" and "JANE SMITH" normalizes
// to "Jane Smith".
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}

	for _, title := range honorifics {
		if strings.HasPrefix(name, title+" ") {
			name = name[len(title)+1:]
			break
		}
	}

	name = whitespaceRun.ReplaceAllString(strings.TrimSpace(name), " ")

	words := strings.Split(name, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
