package questservice

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/rpgify/internal/parser"
	"github.com/starford/rpgify/internal/progression"
)

const (
	defaultExp  = 10
	defaultTask = "Sample Task"
)

var (
	unsafeNameRe = regexp.MustCompile(`[\\/:*?"<>|#^\[\]]+`)
	plainValueRe = regexp.MustCompile(`^[^:\n\r#]+$`)
	singleLineRe = regexp.MustCompile(`^[^\n\r]*$`)
)

// CreateQuestInput describes a new quest or achievement note.
type CreateQuestInput struct {
	Path       string   `json:"path,omitempty"`
	Title      string   `json:"title,omitempty"`
	Type       string   `json:"type"`
	Class      string   `json:"class,omitempty"`
	Exp        *float64 `json:"exp,omitempty"`
	CompleteBy string   `json:"complete_by,omitempty"`
	Tasks      []string `json:"tasks,omitempty"`
}

// validate checks the input against the current settings snapshot.
func (in CreateQuestInput) validate(s progression.Settings) error {
	classRules := []validation.Rule{validation.Match(plainValueRe)}
	if len(s.Classes) > 0 {
		classRules = append(classRules, validation.In(toAny(s.Classes)...))
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.Path, validation.Length(0, 512), validation.By(markdownPath)),
		validation.Field(&in.Title, validation.Length(0, 200), validation.Match(singleLineRe)),
		validation.Field(&in.Type, validation.Required, validation.In(toAny(s.Types)...)),
		validation.Field(&in.Class, classRules...),
		validation.Field(&in.Exp, validation.Min(0.0)),
		validation.Field(&in.CompleteBy, validation.Date(parser.DateLayout)),
		validation.Field(&in.Tasks, validation.Each(validation.Required, validation.Length(1, 200))),
	)
}

func markdownPath(v any) error {
	p, _ := v.(string)
	if p == "" {
		return nil
	}
	if !strings.HasSuffix(p, ".md") {
		return fmt.Errorf("must end with .md")
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// resolvePath returns the vault path for a new note: the explicit path,
// "<Type>s/<title>.md", or "New <Type> <unix-ms>.md" when there is no title.
func (in CreateQuestInput) resolvePath(now time.Time) string {
	if in.Path != "" {
		return in.Path
	}
	name := strings.TrimSpace(unsafeNameRe.ReplaceAllString(in.Title, " "))
	if name == "" {
		return fmt.Sprintf("New %s %d.md", in.Type, now.UnixMilli())
	}
	return path.Join(in.Type+"s", name+".md")
}

// renderTemplate builds the note body: front matter, optional H1, task list.
func (in CreateQuestInput) renderTemplate(s progression.Settings) string {
	exp := float64(defaultExp)
	if in.Exp != nil {
		exp = *in.Exp
	}
	class := in.Class
	if class == "" && len(s.Classes) > 0 {
		class = s.Classes[0]
	}
	tasks := in.Tasks
	if len(tasks) == 0 {
		tasks = []string{defaultTask}
	}

	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "%s: %s\n", parser.KeyType, in.Type)
	fmt.Fprintf(&b, "%s: %s\n", parser.KeyExp, strconv.FormatFloat(exp, 'f', -1, 64))
	fmt.Fprintf(&b, "%s: %s\n", parser.KeyCompleteBy, in.CompleteBy)
	if class != "" {
		fmt.Fprintf(&b, "%s: %s\n", parser.KeyClass, class)
	}
	fmt.Fprintf(&b, "%s: false\n", parser.KeyComplete)
	b.WriteString("---\n\n")
	if title := strings.TrimSpace(in.Title); title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	for _, t := range tasks {
		fmt.Fprintf(&b, "- [ ] %s\n", strings.TrimSpace(t))
	}
	return b.String()
}
