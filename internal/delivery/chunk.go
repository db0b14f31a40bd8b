// Package delivery prepares replies for transports with message size limits.
package delivery

import (
	"strings"
	"unicode/utf8"
)

// DefaultLimit fits the smallest message limit of the supported transports.
const DefaultLimit = 2000

// Split breaks text into chunks of at most limit runes, preferring line boundaries.
// A single line longer than limit is cut by runes. Empty input yields no chunks.
func Split(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		chunks []string
		cur    strings.Builder
		n      int
	)
	flush := func() {
		if s := strings.TrimRight(cur.String(), "\n"); strings.TrimSpace(s) != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
		n = 0
	}

	for _, line := range strings.Split(text, "\n") {
		size := utf8.RuneCountInString(line)
		if size > limit {
			flush()
			chunks = append(chunks, splitRunes(line, limit)...)
			continue
		}
		sep := 0
		if n > 0 {
			sep = 1
		}
		if n+sep+size > limit {
			flush()
			sep = 0
		}
		if sep == 1 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
		n += sep + size
	}
	flush()
	return chunks
}

func splitRunes(s string, limit int) []string {
	runes := []rune(s)
	out := make([]string, 0, len(runes)/limit+1)
	for len(runes) > limit {
		out = append(out, string(runes[:limit]))
		runes = runes[limit:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}
