package progression

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/rpgify/internal/apperr"
)

var (
	taskLineRe   = regexp.MustCompile(`^\s*[-*]\s\[([ xX])\]\s.*$`)
	taskPrefixRe = regexp.MustCompile(`^\s*[-*]\s\[[ xX]\]\s*`)
	checkboxRe   = regexp.MustCompile(`\[[ xX]\]`)
)

// TaskItem is a checkbox list item bound to its source line.
type TaskItem struct {
	// Line is the 0-based line index in the whole document.
	Line    int    `json:"line"`
	Checked bool   `json:"checked"`
	Text    string `json:"text"`
}

// ExtractTasks returns every task line of content in document order.
func ExtractTasks(content string) []TaskItem {
	var out []TaskItem
	for i, line := range strings.Split(content, "\n") {
		if t, ok := parseTaskLine(i, line); ok {
			out = append(out, t)
		}
	}
	return out
}

func parseTaskLine(index int, line string) (TaskItem, bool) {
	m := taskLineRe.FindStringSubmatch(line)
	if m == nil {
		return TaskItem{}, false
	}
	text := strings.TrimRight(taskPrefixRe.ReplaceAllString(line, ""), "\r")
	return TaskItem{
		Line:    index,
		Checked: m[1] != " ",
		Text:    text,
	}, true
}

// SetTask rewrites the checkbox of the task on line to the requested state
// and returns the new content. Only the bracket changes; the call is idempotent.
// A line that is out of range or no longer a task line yields apperr.ErrStaleEdit.
func SetTask(content string, line int, checked bool) (string, TaskItem, error) {
	lines := strings.Split(content, "\n")
	if line < 0 || line >= len(lines) {
		return "", TaskItem{}, fmt.Errorf("%w: line %d out of range (%d lines)", apperr.ErrStaleEdit, line, len(lines))
	}
	current, ok := parseTaskLine(line, lines[line])
	if !ok {
		return "", TaskItem{}, fmt.Errorf("%w: line %d is not a task line", apperr.ErrStaleEdit, line)
	}
	// "[X]" stays as written when already checked.
	if current.Checked == checked {
		return content, current, nil
	}

	box := "[ ]"
	if checked {
		box = "[x]"
	}
	loc := checkboxRe.FindStringIndex(lines[line])
	lines[line] = lines[line][:loc[0]] + box + lines[line][loc[1]:]

	item, _ := parseTaskLine(line, lines[line])
	return strings.Join(lines, "\n"), item, nil
}
