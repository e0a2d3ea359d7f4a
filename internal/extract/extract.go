// Package extract turns uploaded documents into plain text.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/ledongthuc/pdf"
)

// Kind is a supported document format.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindText Kind = "text"
)

var textExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".text":     true,
}

// Detect picks the document format from the filename extension, falling
// back to the content type. It returns "" for unsupported documents.
func Detect(filename, contentType string) Kind {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case ext == ".pdf":
		return KindPDF
	case textExtensions[ext]:
		return KindText
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch {
	case mediaType == "application/pdf":
		return KindPDF
	case strings.HasPrefix(mediaType, "text/"):
		return KindText
	}
	return ""
}

// Extractor reads PDF and UTF-8 text documents.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the document text. Failures carry the EXTRACTION_ERROR code.
func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch Detect(doc.Filename, doc.ContentType) {
	case KindPDF:
		return PDFText(doc.Data)
	case KindText:
		return PlainText(doc.Data)
	default:
		return "", domain.ErrUnsupportedDocument
	}
}

// PlainText validates data as UTF-8, dropping a leading byte order mark.
func PlainText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", domain.NewExtractionError("document is not valid UTF-8 text", nil)
	}
	return strings.TrimSpace(string(data)), nil
}

// PDFText concatenates the plain text of every page, one page per line block.
func PDFText(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = domain.NewExtractionError("failed to read pdf", fmt.Errorf("%v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", domain.NewExtractionError("failed to open pdf", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", domain.NewExtractionError(fmt.Sprintf("failed to read text of page %d", i), err)
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}

// ReadFile loads a local file as a Document. The content type is guessed
// from the extension.
func ReadFile(path string) (*domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return domain.NewDocument(filepath.Base(path), mime.TypeByExtension(filepath.Ext(path)), data), nil
}
