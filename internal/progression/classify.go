package progression

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/rpgify/internal/apperr"
	"github.com/starford/rpgify/internal/parser"
)

var (
	openTaskRe     = regexp.MustCompile(`(?m)^\s*[-*]\s\[ \]\s.*$`)
	completeLineRe = regexp.MustCompile(`(?m)^complete\s*:.*`)
)

// Document is a vault file as seen by one classification.
type Document struct {
	Path     string
	Content  string
	Parsed   *parser.Result
	Complete bool
	// Problem is a non-fatal issue found while writing back the complete field.
	Problem error
}

// Frontmatter returns the parsed front matter, which may be nil.
func (d Document) Frontmatter() *parser.Frontmatter {
	if d.Parsed == nil {
		return nil
	}
	return d.Parsed.Frontmatter
}

// IsComplete reports whether content has no open task line.
// Content without any checkbox counts as complete.
func IsComplete(content string) bool {
	return !openTaskRe.MatchString(content)
}

// SetCompleteField rewrites the first "complete:" line to the given state.
// When no such line exists it is appended to the front matter block. Content
// without front matter, or whose complete key is not on a plain line, is
// returned unchanged together with apperr.ErrFieldNotFound.
func SetCompleteField(content string, done bool) (string, error) {
	line := "complete: " + strconv.FormatBool(done)

	if loc := completeLineRe.FindStringIndex(content); loc != nil {
		old := content[loc[0]:loc[1]]
		if strings.HasSuffix(old, "\r") {
			line += "\r"
		}
		return content[:loc[0]] + line + content[loc[1]:], nil
	}

	res, err := parser.Parse([]byte(content))
	if err != nil {
		return content, err
	}
	if res.FenceEnd < 0 {
		return content, fmt.Errorf("%w: no front matter to hold %q", apperr.ErrFieldNotFound, parser.KeyComplete)
	}
	// A key written in another form (quoted, flow style) is left alone; a
	// second one would make the block invalid YAML.
	if res.Frontmatter.HasKey(parser.KeyComplete) {
		return content, fmt.Errorf("%w: %q is not on a plain line", apperr.ErrFieldNotFound, parser.KeyComplete)
	}
	return content[:res.FenceEnd] + line + "\n" + content[res.FenceEnd:], nil
}

// Classifier partitions vault files into completed and uncompleted sets and
// persists the result into each file's complete field.
type Classifier struct {
	store  Store
	logger *slog.Logger
}

// NewClassifier creates a classifier over store.
func NewClassifier(store Store, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{store: store, logger: logger}
}

// Classify classifies every path exactly once, in order. Read and write
// failures abort the pass; files already written stay written.
func (c *Classifier) Classify(ctx context.Context, paths []string) (completed, uncompleted []Document, err error) {
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		doc, err := c.ClassifyFile(p)
		if err != nil {
			return nil, nil, err
		}
		if doc.Complete {
			completed = append(completed, doc)
		} else {
			uncompleted = append(uncompleted, doc)
		}
	}
	return completed, uncompleted, nil
}

// ClassifyFile reads one file, decides its completion and writes back the
// complete field when the text changed.
func (c *Classifier) ClassifyFile(path string) (Document, error) {
	data, err := c.store.Read(path)
	if err != nil {
		return Document{}, fmt.Errorf("progression: classify %s: %w", path, err)
	}
	content := string(data)
	doc := Document{Path: path, Complete: IsComplete(content)}

	updated, ferr := SetCompleteField(content, doc.Complete)
	if ferr != nil {
		doc.Problem = ferr
		c.logger.Warn("classify: complete field not written",
			slog.String("path", path), slog.String("error", ferr.Error()))
	}
	if updated != content {
		if err := c.store.Write(path, []byte(updated)); err != nil {
			return Document{}, fmt.Errorf("progression: write back %s: %w", path, err)
		}
		c.logger.Debug("classify: complete field written",
			slog.String("path", path), slog.Bool("complete", doc.Complete))
	}

	doc.Content = updated
	doc.Parsed, err = parser.Parse([]byte(updated))
	if err != nil {
		return Document{}, fmt.Errorf("progression: parse %s: %w", path, err)
	}
	return doc, nil
}
