// Package ingest parses Markdown and HTML sources into document records.
// Document ids are a content hash, so re-ingesting the same bytes yields
// the same id and, downstream, the same graph.
package ingest

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/agenthands/cobalt/internal/core/model"
)

// DocID derives the content-hash id for a source document.
func DocID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:12]
}

// ParseMarkdown builds a document record from Markdown. The first H1
// becomes the title (falling back to name), H2 headings open sections,
// and everything else accumulates as section prose.
func ParseMarkdown(name string, data []byte, orderingKey int64) (model.DocumentRecord, error) {
	doc := model.DocumentRecord{
		DocID:       DocID(data),
		Title:       name,
		OrderingKey: orderingKey,
	}

	currentSection := "body"
	var currentText strings.Builder
	flush := func() {
		text := strings.TrimSpace(currentText.String())
		if text != "" {
			doc.Sections = append(doc.Sections, model.SectionRecord{
				Section:   currentSection,
				RawText:   text,
				Sentences: SplitSentences(text),
			})
		}
		currentText.Reset()
	}

	sawTitle := false
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "# ") && !sawTitle:
			doc.Title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			sawTitle = true
		case strings.HasPrefix(line, "## "):
			flush()
			currentSection = strings.TrimSpace(strings.TrimPrefix(line, "## "))
		case strings.HasPrefix(line, "#"):
			// Deeper headings stay inline as prose boundaries.
			currentText.WriteString("\n")
		default:
			currentText.WriteString(line)
			currentText.WriteString("\n")
		}
	}
	if err := scanner.Err(); err != nil {
		return model.DocumentRecord{}, err
	}
	flush()
	return doc, nil
}
