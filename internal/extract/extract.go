// Package extract turns uploaded files into plain text for chunking.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupported is returned for file types that cannot be extracted.
var ErrUnsupported = errors.New("unsupported file type")

// Content types accepted for upload.
const (
	TypePlain    = "text/plain"
	TypeMarkdown = "text/markdown"
	TypeXMD      = "text/x-markdown"
	TypePDF      = "application/pdf"
)

var extTypes = map[string]string{
	".txt":      TypePlain,
	".text":     TypePlain,
	".md":       TypeMarkdown,
	".markdown": TypeMarkdown,
	".pdf":      TypePDF,
}

// TypeFor maps a filename extension to its content type, or "".
func TypeFor(filename string) string {
	return extTypes[strings.ToLower(filepath.Ext(filename))]
}

// Allowed reports whether contentType can be extracted.
func Allowed(contentType string) bool {
	switch contentType {
	case TypePlain, TypeMarkdown, TypeXMD, TypePDF:
		return true
	}
	return false
}

// Text extracts the text of content. contentType wins over the filename
// extension when set. Invalid UTF-8 in text files is replaced with U+FFFD.
func Text(filename, contentType string, content []byte) (string, error) {
	if contentType == "" {
		contentType = TypeFor(filename)
	}
	switch contentType {
	case TypePDF:
		text, err := PDF(content)
		if err != nil {
			return "", fmt.Errorf("extract pdf %s: %w", filename, err)
		}
		return text, nil
	case TypePlain, TypeMarkdown, TypeXMD:
		if utf8.Valid(content) {
			return string(content), nil
		}
		return strings.ToValidUTF8(string(content), string(utf8.RuneError)), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, filename)
	}
}

// PDF returns the plain text of every readable page, one page per line
// block. Pages that fail to extract are skipped.
func PDF(content []byte) (string, error) {
	reader := bytes.NewReader(content)
	pdfReader, err := pdf.NewReader(reader, int64(len(content)))
	if err != nil {
		return "", err
	}

	var textBuilder strings.Builder
	numPages := pdfReader.NumPage()

	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	return textBuilder.String(), nil
}
