package ingest

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"

	"github.com/agenthands/cobalt/internal/core/model"
)

// ParseHTML builds a document record from an HTML page. The <title> (or
// first <h1>) becomes the title and <h2> headings open sections.
func ParseHTML(name string, data []byte, orderingKey int64) (model.DocumentRecord, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return model.DocumentRecord{}, err
	}

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
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "nav", "footer":
				return
			case "title":
				if t := nodeText(n); t != "" {
					doc.Title = t
					sawTitle = true
				}
				return
			case "h1":
				if !sawTitle {
					if t := nodeText(n); t != "" {
						doc.Title = t
						sawTitle = true
					}
				}
				return
			case "h2":
				flush()
				if t := nodeText(n); t != "" {
					currentSection = t
				}
				return
			}
		}
		if n.Type == html.TextNode {
			currentText.WriteString(n.Data)
			currentText.WriteString(" ")
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	flush()
	return doc, nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(strings.Join(strings.Fields(b.String()), " "))
}
