package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pkvault/pkvault/pkg/types"
)

// PDFParser extracts text per page and rejoins word-wrapped lines into
// paragraphs. PDF extraction hands back hard-wrapped lines; joining the
// soft wraps while keeping structural lines (timestamps, speaker
// labels, headings, bullets) standalone yields chunkable paragraphs.
type PDFParser struct{}

var (
	timestampLineRe = regexp.MustCompile(`^\s*(\[?\d{1,2}:\d{2}(:\d{2})?\]?|\d{4}-\d{2}-\d{2})`)
	speakerLineRe   = regexp.MustCompile(`^[A-Z][a-z]+ [A-Z][a-z]+:`)
	headingLineRe   = regexp.MustCompile(`^#{1,6}\s`)
	bulletLineRe    = regexp.MustCompile(`^\s*([-*•]|\d+[.)])\s`)
)

// Parse extracts text from every page. Title preference is the embedded
// PDF metadata title unless it looks like serialized JSON, exceeds 200
// characters, or contains a newline (artifacts of export tools, not
// titles), in which case the filename stem is used.
func (p *PDFParser) Parse(path string) (*Result, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdf: open %s: %w", path, err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	var pages []string

	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue // a single unreadable page should not sink the file
		}
		var lines []string
		for _, row := range rows {
			var sb strings.Builder
			for _, text := range row.Content {
				sb.WriteString(text.S)
			}
			lines = append(lines, sb.String())
		}
		if text := rejoinWrappedLines(lines); text != "" {
			pages = append(pages, text)
		}
	}

	title := stem(path)
	if metaTitle := metadataTitle(reader); usableTitle(metaTitle) {
		title = metaTitle
	}

	return &Result{
		Content:    strings.Join(pages, "\n\n"),
		Title:      title,
		Metadata:   map[string]any{"page_count": totalPages},
		SourceType: types.SourcePDF,
	}, nil
}

// metadataTitle pulls the Title entry from the PDF Info dictionary.
func metadataTitle(reader *pdf.Reader) string {
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return ""
	}
	titleVal := info.Key("Title")
	if titleVal.IsNull() {
		return ""
	}
	return strings.TrimSpace(titleVal.Text())
}

// usableTitle rejects metadata titles that are clearly not titles.
func usableTitle(title string) bool {
	if title == "" || len(title) > 200 || strings.Contains(title, "\n") {
		return false
	}
	if strings.HasPrefix(title, "{") || strings.HasPrefix(title, "[") {
		return false
	}
	return true
}

// structuralLine reports whether a line must be kept standalone rather
// than joined into the surrounding paragraph.
func structuralLine(line string) bool {
	return timestampLineRe.MatchString(line) ||
		speakerLineRe.MatchString(line) ||
		headingLineRe.MatchString(line) ||
		bulletLineRe.MatchString(line)
}

// rejoinWrappedLines merges consecutive non-empty lines into paragraphs
// separated by blank lines. Structural lines become one-line
// paragraphs; a blank line always forces a paragraph break.
func rejoinWrappedLines(lines []string) string {
	var paragraphs []string
	var buf []string

	flush := func() {
		if len(buf) > 0 {
			paragraphs = append(paragraphs, strings.Join(buf, " "))
			buf = nil
		}
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			flush()
			continue
		}
		if structuralLine(line) {
			flush()
			paragraphs = append(paragraphs, line)
			continue
		}
		buf = append(buf, line)
	}
	flush()

	return strings.Join(paragraphs, "\n\n")
}
