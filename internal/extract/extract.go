// Package extract turns uploaded file bytes into plain text.
package extract

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrExtraction marks a file whose declared format could not be parsed.
var ErrExtraction = errors.New("text extraction failed")

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeHTML = "text/html"
)

// plainExtensions are decoded as text whatever their detected type.
var plainExtensions = []string{".txt", ".md", ".py"}

// Document is the result of an extraction.
type Document struct {
	Text     string
	MimeType string
	// Title is the first heading for Markdown or the <title> for HTML.
	Title string
	// Headings lists Markdown section paths such as "Intro > Setup".
	Headings []string
}

// ExtractText returns the trimmed text of data and its detected mime type.
func ExtractText(data []byte, filename string) (string, string, error) {
	doc, err := Extract(data, filename)
	if err != nil {
		return "", doc.MimeType, err
	}
	return doc.Text, doc.MimeType, nil
}

// Extract detects the format of data and extracts its text. Formats without
// a dedicated parser are decoded permissively as text.
func Extract(data []byte, filename string) (Document, error) {
	mime := DetectMime(data)
	ext := strings.ToLower(filepath.Ext(filename))
	doc := Document{MimeType: mime}

	var (
		text string
		err  error
	)
	switch {
	case mime == mimePDF || ext == ".pdf":
		text, err = extractPDF(data)
	case mime == mimeDOCX || ext == ".docx":
		text, err = extractDOCX(data)
	case mime == mimeHTML || ext == ".html" || ext == ".htm":
		text, doc.Title, err = extractHTML(data)
	case ext == ".md" || ext == ".markdown" || mime == "text/markdown":
		text, doc.Title, doc.Headings, err = extractMarkdown(data)
	case strings.HasPrefix(mime, "text/") || hasExtension(ext, plainExtensions):
		text = decodeText(data)
	default:
		text = decodeText(data)
	}
	if err != nil {
		return doc, err
	}

	doc.Text = strings.TrimSpace(text)
	return doc, nil
}

// DetectMime sniffs data and returns its mime type without parameters.
func DetectMime(data []byte) string {
	mime, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return strings.TrimSpace(mime)
}

func hasExtension(ext string, list []string) bool {
	for _, e := range list {
		if ext == e {
			return true
		}
	}
	return false
}
