package rag

import (
	"fmt"
	"strings"

	"gopherai-docqa/internal/pkg/pdfextract"
)

// Document is one uploaded blob.
type Document struct {
	Name string
	Data []byte
}

// Extractor turns an upload batch into one text string.
type Extractor interface {
	Extract(docs []Document) (string, error)
}

// TextFunc extracts the text of a single blob.
type TextFunc func(data []byte) (string, error)

// PDFExtractor concatenates the page text of every document in upload order.
// One unreadable document fails the whole batch.
type PDFExtractor struct {
	extract TextFunc
}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{extract: pdfextract.ExtractBytes}
}

// NewExtractor builds an extractor around an arbitrary per-document function.
func NewExtractor(fn TextFunc) *PDFExtractor {
	return &PDFExtractor{extract: fn}
}

func (e *PDFExtractor) Extract(docs []Document) (string, error) {
	if len(docs) == 0 {
		return "", NewError(KindInvalidInput, "no documents uploaded", nil)
	}

	var out strings.Builder
	for i, doc := range docs {
		text, err := e.extract(doc.Data)
		if err != nil {
			name := doc.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i+1)
			}
			return "", NewError(KindExtraction, fmt.Sprintf("cannot read document %s", name), err)
		}
		out.WriteString(text)
	}

	if strings.TrimSpace(out.String()) == "" {
		return "", ErrEmptyContent
	}
	return out.String(), nil
}
