package parser

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// MarkdownParser handles markdown files
type MarkdownParser struct {
	// stripCodeBlocks whether to remove code blocks from content
	stripCodeBlocks bool
}

// NewMarkdownParser creates a new markdown parser
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{
		stripCodeBlocks: false,
	}
}

// Parse reads and parses markdown from the reader
func (p *MarkdownParser) Parse(ctx context.Context, r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read markdown: %w", err)
	}

	return p.parse(string(data), ""), nil
}

// ParseFile reads and parses a markdown file
func (p *MarkdownParser) ParseFile(ctx context.Context, filePath string) (*Document, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return p.parse(string(data), filePath), nil
}

// FileType returns the file type this parser handles
func (p *MarkdownParser) FileType() FileType {
	return FileTypeMD
}

func (p *MarkdownParser) parse(content, filePath string) *Document {
	processed := removeFrontmatter(content)
	if p.stripCodeBlocks {
		processed = removeCodeBlocks(processed)
	}
	processed = cleanMarkdown(processed)

	return &Document{
		Pages: []string{processed},
		Title: ExtractTitle(processed, filePath),
		Metadata: map[string]interface{}{
			"file_size": len(content),
		},
	}
}

// removeFrontmatter removes a leading YAML frontmatter block
func removeFrontmatter(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[0]) != "---" {
		return content
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[i+1:], "\n")
		}
	}
	return content
}

// removeCodeBlocks removes fenced and inline code
func removeCodeBlocks(content string) string {
	re := regexp.MustCompile("```[\\s\\S]*?```")
	content = re.ReplaceAllString(content, "")

	re = regexp.MustCompile("`[^`]+`")
	return re.ReplaceAllString(content, "")
}

// cleanMarkdown strips formatting markers while keeping the text, so that
// embedding input is plain prose.
func cleanMarkdown(content string) string {
	re := regexp.MustCompile(`(?m)^#+\s+(.*)$`)
	content = re.ReplaceAllString(content, "$1")

	for _, marker := range []string{"**", "__", "*", "_"} {
		content = strings.ReplaceAll(content, marker, "")
	}

	// Images first so that links don't swallow the leading "!"
	re = regexp.MustCompile(`!\[([^\]]*)\]\([^\)]+\)`)
	content = re.ReplaceAllString(content, "$1")
	re = regexp.MustCompile(`\[([^\]]+)\]\([^\)]+\)`)
	content = re.ReplaceAllString(content, "$1")

	lines := strings.Split(content, "\n")
	var clean []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "<") {
			clean = append(clean, line)
		}
	}
	return strings.Join(clean, "\n")
}
