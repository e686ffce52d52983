package parser

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/net/html"

	"github.com/pkvault/pkvault/pkg/types"
)

// HTMLParser extracts the visible text of an HTML document in document
// order, dropping script, style, nav, footer and header subtrees.
type HTMLParser struct{}

var skippedElements = map[string]bool{
	"script": true,
	"style":  true,
	"nav":    true,
	"footer": true,
	"header": true,
}

// Parse reads and walks the HTML tree. Title comes from the <title>
// element when present, otherwise the filename stem.
func (p *HTMLParser) Parse(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("html: read %s: %w", path, err)
	}

	root, err := html.Parse(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("html: parse %s: %w", path, err)
	}

	var lines []string
	title := ""

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skippedElements[n.Data] {
				return
			}
			if n.Data == "title" && title == "" {
				if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				lines = append(lines, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if title == "" {
		title = stem(path)
	}

	return &Result{
		Content:    strings.Join(lines, "\n"),
		Title:      title,
		Metadata:   map[string]any{},
		SourceType: types.SourceHTML,
	}, nil
}
