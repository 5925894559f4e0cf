package contracts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

// Page locates one source page inside Document.Text.
type Page struct {
	Number int `json:"number"`
	Start  int `json:"start"`
	End    int `json:"end"`
}

// Document is the text of a contract plus the page layout and tables
// detected while reading it.
type Document struct {
	Text   string
	Pages  []Page
	Tables []RawTable
}

// NewDocument wraps plain text with no page information.
func NewDocument(text string) *Document {
	return &Document{Text: text}
}

// DocumentFromPages joins page texts as "Page N:" blocks separated by a
// blank line and records where each page lands. Blank pages keep their
// number but add no text.
func DocumentFromPages(pages []string) *Document {
	doc := &Document{}
	var sb strings.Builder
	for i, text := range pages {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		start := sb.Len()
		fmt.Fprintf(&sb, "Page %d:\n", i+1)
		sb.WriteString(text)
		doc.Pages = append(doc.Pages, Page{Number: i + 1, Start: start, End: sb.Len()})
		doc.Tables = append(doc.Tables, DetectTextTables(text, i+1)...)
	}
	doc.Text = sb.String()
	return doc
}

// PageAt returns the page number holding offset, or 0 when unknown.
func (d *Document) PageAt(offset int) int {
	i := sort.Search(len(d.Pages), func(i int) bool { return d.Pages[i].End > offset })
	if i < len(d.Pages) && d.Pages[i].Start <= offset {
		return d.Pages[i].Number
	}
	return 0
}

// PageCount is the number of the last page seen.
func (d *Document) PageCount() int {
	if len(d.Pages) == 0 {
		return 0
	}
	return d.Pages[len(d.Pages)-1].Number
}

// TextExtractor turns an uploaded file into a Document.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (*Document, error)
}

// PDFTextExtractor reads the text layer of a PDF page by page.
type PDFTextExtractor struct {
	log *slog.Logger
}

func NewPDFTextExtractor(log *slog.Logger) *PDFTextExtractor {
	if log == nil {
		log = slog.Default()
	}
	return &PDFTextExtractor{log: log}
}

// Extract returns ErrUnreadablePDF when the file cannot be parsed or has no
// text layer.
func (e *PDFTextExtractor) Extract(ctx context.Context, data []byte) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("%w: %v", ErrUnreadablePDF, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadablePDF, err)
	}

	n := r.NumPage()
	pages := make([]string, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			e.log.Debug("Page text extraction failed", "page", i, "error", err)
			continue
		}
		pages[i-1] = text
	}

	doc = DocumentFromPages(pages)
	e.log.Debug("PDF text extracted", "pages", n, "chars", len(doc.Text), "tables", len(doc.Tables))
	if strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("%w: no text layer", ErrUnreadablePDF)
	}
	return doc, nil
}

// PlainTextExtractor accepts UTF-8 text files.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(_ context.Context, data []byte) (*Document, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not UTF-8 text", ErrUnsupportedMedia, DetectKind(data))
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, ErrEmptyDocument
	}
	doc := NewDocument(text)
	doc.Tables = DetectTextTables(text, 0)
	return doc, nil
}

// DetectKind sniffs the media type of an upload.
func DetectKind(data []byte) string {
	return mimetype.Detect(data).String()
}

// AutoExtractor dispatches on the sniffed media type.
type AutoExtractor struct {
	PDF  TextExtractor
	Text TextExtractor
}

func NewAutoExtractor(log *slog.Logger) *AutoExtractor {
	return &AutoExtractor{PDF: NewPDFTextExtractor(log), Text: PlainTextExtractor{}}
}

func (a *AutoExtractor) Extract(ctx context.Context, data []byte) (*Document, error) {
	kind := DetectKind(data)
	switch {
	case kind == "application/pdf":
		return a.PDF.Extract(ctx, data)
	case strings.HasPrefix(kind, "text/"):
		return a.Text.Extract(ctx, data)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, kind)
}
