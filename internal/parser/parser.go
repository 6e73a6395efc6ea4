// Package parser splits vault documents into typed front matter and body.
package parser

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

const delim = "---"

// Result holds the output of parsing a Markdown file.
type Result struct {
	// Frontmatter is nil when the document has no (valid) front matter block.
	Frontmatter *Frontmatter
	Body        string
	Title       string
	// FenceEnd is the byte offset of the closing --- line, or -1.
	FenceEnd int
}

// Parse extracts typed front matter, body and title from raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	raw, body, fenceEnd := splitFrontmatter(data)

	var fm *Frontmatter
	if raw != nil {
		fm = newFrontmatter(raw)
	}

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(body),
		FenceEnd:    fenceEnd,
	}, nil
}

// splitFrontmatter separates YAML front matter (between leading --- delimiters)
// from the Markdown body. If no front matter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string, int) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	lead := len(data) - len(trimmed)

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), -1
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), -1
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	fm := map[string]any{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data), -1
	}
	if fm == nil {
		fm = map[string]any{}
	}

	return fm, body, lead + len(delim) + idx + 1
}

// deriveTitle returns the first H1 heading of the body, or empty string.
func deriveTitle(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
