package parser

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/pkvault/pkvault/pkg/types"
)

// DOCXParser reads .docx files directly: a .docx is a zip archive whose
// word/document.xml holds the paragraph runs and whose
// docProps/core.xml holds the document properties.
type DOCXParser struct{}

// Parse concatenates the non-empty paragraph texts with blank lines.
// Title comes from the core-properties title, else the filename stem.
func (p *DOCXParser) Parse(path string) (*Result, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("docx: open %s: %w", path, err)
	}
	defer archive.Close()

	var paragraphs []string
	title := ""

	for _, file := range archive.File {
		switch file.Name {
		case "word/document.xml":
			paragraphs, err = extractParagraphs(file)
			if err != nil {
				return nil, fmt.Errorf("docx: %s: %w", path, err)
			}
		case "docProps/core.xml":
			title = extractCoreTitle(file)
		}
	}

	if title == "" {
		title = stem(path)
	}

	return &Result{
		Content:    strings.Join(paragraphs, "\n\n"),
		Title:      title,
		Metadata:   map[string]any{},
		SourceType: types.SourceDOCX,
	}, nil
}

// extractParagraphs streams word/document.xml, collecting the text runs
// (w:t elements) of each paragraph (w:p element).
func extractParagraphs(file *zip.File) ([]string, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var paragraphs []string
	var current strings.Builder
	inParagraph := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				if inParagraph {
					var text string
					if err := decoder.DecodeElement(&text, &t); err == nil {
						current.WriteString(text)
					}
				}
			case "tab":
				if inParagraph {
					current.WriteString("\t")
				}
			case "br":
				if inParagraph {
					current.WriteString("\n")
				}
			}
		case xml.EndElement:
			if t.Name.Local == "p" && inParagraph {
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				inParagraph = false
			}
		}
	}

	return paragraphs, nil
}

// extractCoreTitle pulls the dc:title element from docProps/core.xml.
func extractCoreTitle(file *zip.File) string {
	rc, err := file.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	for {
		tok, err := decoder.Token()
		if err != nil {
			return ""
		}
		if start, ok := tok.(xml.StartElement); ok && start.Name.Local == "title" {
			var title string
			if err := decoder.DecodeElement(&title, &start); err == nil {
				return strings.TrimSpace(title)
			}
			return ""
		}
	}
}
