package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var contentSelectors = []string{
	"main",
	"article",
	".content",
	"#content",
	".documentation",
	"#documentation",
}

// extractHTML returns the text of the main content area, or of the body
// when no content area is marked up.
func extractHTML(data []byte) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(decodeText(data)))
	if err != nil {
		return "", "", fmt.Errorf("%w: html: %w", ErrExtraction, err)
	}
	doc.Find("script, style, noscript").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())

	var content string
	for _, selector := range contentSelectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}
	if strings.TrimSpace(content) == "" {
		content = doc.Find("body").Text()
	}
	return cleanLines(content), title, nil
}

// cleanLines trims every line and drops blank ones.
func cleanLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
