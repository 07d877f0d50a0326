package parser

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// HTMLParser handles HTML files
type HTMLParser struct{}

// NewHTMLParser creates a new HTML parser
func NewHTMLParser() *HTMLParser {
	return &HTMLParser{}
}

// Parse reads and parses HTML from the reader
func (p *HTMLParser) Parse(ctx context.Context, r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read HTML: %w", err)
	}

	return p.parse(string(data), ""), nil
}

// ParseFile reads and parses an HTML file
func (p *HTMLParser) ParseFile(ctx context.Context, filePath string) (*Document, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return p.parse(string(data), filePath), nil
}

// FileType returns the file type this parser handles
func (p *HTMLParser) FileType() FileType {
	return FileTypeHTML
}

func (p *HTMLParser) parse(content, filePath string) *Document {
	title := htmlTitle(content, filePath)

	text := removeScripts(content)
	text = removeComments(text)
	text = htmlToText(text)
	text = collapseBlankLines(text)

	return &Document{
		Pages: []string{text},
		Title: title,
		Metadata: map[string]interface{}{
			"file_size": len(content),
		},
	}
}

// htmlTitle extracts a title from the <title> tag, falling back to <h1>
// and then the file name.
func htmlTitle(content, filePath string) string {
	re := regexp.MustCompile(`<title[^>]*>(.*?)</title>`)
	if m := re.FindStringSubmatch(content); len(m) > 1 {
		if t := strings.TrimSpace(m[1]); t != "" {
			return t
		}
	}

	re = regexp.MustCompile(`<h1[^>]*>(.*?)</h1>`)
	if m := re.FindStringSubmatch(content); len(m) > 1 {
		t := regexp.MustCompile(`<[^>]+>`).ReplaceAllString(m[1], "")
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	}

	if filePath != "" {
		return filepath.Base(filePath)
	}
	return "Untitled"
}

// removeScripts removes script and style elements
func removeScripts(content string) string {
	re := regexp.MustCompile(`<script[^>]*>[\s\S]*?</script>`)
	content = re.ReplaceAllString(content, "")

	re = regexp.MustCompile(`<style[^>]*>[\s\S]*?</style>`)
	return re.ReplaceAllString(content, "")
}

// removeComments removes HTML comments
func removeComments(content string) string {
	re := regexp.MustCompile(`<!--[\s\S]*?-->`)
	return re.ReplaceAllString(content, "")
}

// htmlToText converts markup into plain text, keeping block boundaries as
// newlines so downstream line-based cleanup still works.
func htmlToText(content string) string {
	blockTags := []string{
		"div", "p", "h1", "h2", "h3", "h4", "h5", "h6",
		"br", "hr", "li", "tr", "th", "td",
		"header", "footer", "main", "section", "article",
		"ul", "ol", "table", "blockquote", "pre", "code",
	}
	for _, tag := range blockTags {
		re := regexp.MustCompile(fmt.Sprintf(`</?%s[^>]*>`, tag))
		content = re.ReplaceAllString(content, "\n")
	}

	re := regexp.MustCompile(`<[^>]+>`)
	content = re.ReplaceAllString(content, " ")

	entities := map[string]string{
		"&nbsp;": " ",
		"&lt;":   "<",
		"&gt;":   ">",
		"&amp;":  "&",
		"&quot;": "\"",
		"&apos;": "'",
	}
	for entity, replacement := range entities {
		content = strings.ReplaceAll(content, entity, replacement)
	}

	return content
}

// collapseBlankLines trims every line and drops empty runs
func collapseBlankLines(content string) string {
	lines := strings.Split(content, "\n")
	var clean []string
	for _, line := range lines {
		line = strings.TrimSpace(regexp.MustCompile(`[ \t]+`).ReplaceAllString(line, " "))
		if line != "" {
			clean = append(clean, line)
		}
	}
	return strings.Join(clean, "\n")
}
