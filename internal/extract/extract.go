package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// DocumentParser turns a binary document into plain text.
type DocumentParser interface {
	Parse(data []byte) (string, error)
}

// ParserFunc adapts a function to DocumentParser.
type ParserFunc func(data []byte) (string, error)

// Parse calls f(data).
func (f ParserFunc) Parse(data []byte) (string, error) {
	return f(data)
}

// Extractor dispatches uploads to a format-specific routine by file extension.
type Extractor struct {
	parsers map[string]DocumentParser
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithParser registers p for the given extension (with or without the dot).
// It replaces the default parser for pdf, doc or docx, or adds a new format.
func WithParser(ext string, p DocumentParser) Option {
	return func(e *Extractor) {
		if p == nil {
			return
		}
		e.parsers[normalizeExt(ext)] = p
	}
}

// New builds an Extractor with the default parsers.
// Libraries used: github.com/ledongthuc/pdf (PDF) and github.com/nguyenthenguyen/docx (DOC/DOCX).
func New(opts ...Option) *Extractor {
	e := &Extractor{
		parsers: map[string]DocumentParser{
			"pdf":  ParserFunc(extractPDF),
			"docx": ParserFunc(extractDOCX),
			"doc":  ParserFunc(extractDOC),
			"txt":  ParserFunc(extractTXT),
			"text": ParserFunc(extractTXT),
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultExtractor = New()

// Extract reads r and extracts text using the default parsers.
func Extract(ctx context.Context, fileName string, r io.Reader) (string, error) {
	return defaultExtractor.Extract(ctx, fileName, r)
}

// Supported reports whether fileName has an extension the extractor handles.
func (e *Extractor) Supported(fileName string) bool {
	_, ok := e.parsers[normalizeExt(filepath.Ext(fileName))]
	return ok
}

// Extensions lists the handled extensions in sorted order.
func (e *Extractor) Extensions() []string {
	out := make([]string, 0, len(e.parsers))
	for ext := range e.parsers {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Extract reads the whole upload from r and converts it to plain text.
func (e *Extractor) Extract(ctx context.Context, fileName string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	parser, ext, err := e.parserFor(fileName)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w: %v", fileName, ErrRead, err)
	}
	return e.run(ctx, parser, ext, fileName, data)
}

// ExtractBytes converts an in-memory upload to plain text.
func (e *Extractor) ExtractBytes(ctx context.Context, fileName string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	parser, ext, err := e.parserFor(fileName)
	if err != nil {
		return "", err
	}
	return e.run(ctx, parser, ext, fileName, data)
}

func (e *Extractor) run(ctx context.Context, parser DocumentParser, ext, fileName string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := parser.Parse(data)
	if err != nil {
		if !errors.Is(err, ErrCorruptDocument) && !errors.Is(err, ErrRead) {
			err = fmt.Errorf("%w: %v", ErrCorruptDocument, err)
		}
		return "", fmt.Errorf("extract %s (%s): %w", fileName, ext, err)
	}
	return text, nil
}

func (e *Extractor) parserFor(fileName string) (DocumentParser, string, error) {
	ext := normalizeExt(filepath.Ext(fileName))
	if ext == "" {
		return nil, "", fmt.Errorf("%w: %q has no extension", ErrUnsupportedFormat, fileName)
	}
	parser, ok := e.parsers[ext]
	if !ok {
		return nil, ext, fmt.Errorf("%w: %s (upload a PDF, DOCX or TXT file)", ErrUnsupportedFormat, ext)
	}
	return parser, ext, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func extractTXT(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return strings.ToValidUTF8(string(data), "�"), nil
	}
	return string(data), nil
}

func extractPDF(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty pdf data", ErrCorruptDocument)
	}
	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("%w: pdf: %v", ErrCorruptDocument, rec)
		}
	}()

	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: pdf: %v", ErrCorruptDocument, err)
	}
	return joinPages(pdfReader.NumPage(), func(num int) (string, bool, error) {
		p := pdfReader.Page(num)
		if p.V.IsNull() {
			return "", false, nil
		}
		pageText, err := p.GetPlainText(nil)
		return pageText, true, err
	})
}

// joinPages visits pages 1..n in order and joins their text with newlines.
// page reports ok=false for pages that carry no content stream.
func joinPages(n int, page func(num int) (string, bool, error)) (string, error) {
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		pageText, ok, err := page(i)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", ErrCorruptDocument, i, err)
		}
		if !ok {
			continue
		}
		parts = append(parts, pageText)
	}
	return strings.Join(parts, "\n"), nil
}
