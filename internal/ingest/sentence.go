package ingest

import (
	"regexp"
	"strings"
)

var sentenceBoundary = regexp.MustCompile(`([.!?])\s+`)

// SplitSentences splits text on sentence-final punctuation followed by
// whitespace. Good enough for prose sections; abbreviations over-split
// occasionally, which downstream extraction tolerates.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(strings.Join(strings.Fields(text), " "))
	if text == "" {
		return nil
	}
	marked := sentenceBoundary.ReplaceAllString(text, "$1\x00")
	var out []string
	for _, part := range strings.Split(marked, "\x00") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
