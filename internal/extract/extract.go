package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/docchat/backend/internal/rag"
)

// Registry dispatches raw upload bytes to a text extractor by mime type.
// Anything textual is read verbatim; HTML is stripped to visible text; PDF
// goes through the external extractor boundary. Unknown types surface
// rag.ErrUnsupportedContent so only that document's ingestion aborts.
type Registry struct {
	pdf *PDFExtractor
}

func NewRegistry(pdf *PDFExtractor) *Registry {
	return &Registry{pdf: pdf}
}

func (r *Registry) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	base := mimeType
	if i := strings.Index(base, ";"); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}

	switch {
	case base == "text/html":
		return fromHTML(data)
	case strings.HasPrefix(base, "text/"), base == "application/json":
		return string(data), nil
	case base == "application/pdf":
		if r.pdf == nil {
			return "", fmt.Errorf("%w: no PDF extractor configured", rag.ErrUnsupportedContent)
		}
		return r.pdf.Extract(ctx, data)
	default:
		return "", fmt.Errorf("%w: %s", rag.ErrUnsupportedContent, mimeType)
	}
}

func fromHTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find("script, style, nav, footer, header, aside").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	body := doc.Find("body")
	if body.Length() == 0 {
		return strings.TrimSpace(doc.Text()), nil
	}

	var builder strings.Builder
	body.Find("p, h1, h2, h3, h4, h5, h6, li, td, pre").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			builder.WriteString(text)
			builder.WriteString("\n")
		}
	})

	if builder.Len() == 0 {
		return strings.TrimSpace(body.Text()), nil
	}

	return strings.TrimSpace(builder.String()), nil
}
