// Package progression turns a vault of quest notes into a dashboard:
// completion buckets per type, experience and levels per class, and the
// toggleable tasks of open quests.
package progression

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/starford/rpgify/internal/apperr"
	"github.com/starford/rpgify/internal/checksum"
	"github.com/starford/rpgify/internal/models"
	"github.com/starford/rpgify/internal/parser"
)

const renderKey = "render"

// Store is the slice of the vault the engine reads and rewrites.
type Store interface {
	List(dir string) ([]models.NoteMetadata, error)
	Read(path string) ([]byte, error)
	Write(path string, content []byte) error
}

// Dashboard is the result of one render pass.
type Dashboard struct {
	RenderID   string          `json:"render_id"`
	RenderedAt time.Time       `json:"rendered_at"`
	Name       string          `json:"name"`
	DOB        string          `json:"dob,omitempty"`
	Age        *int            `json:"age,omitempty"`
	Types      []TypeSection   `json:"types"`
	Classes    []ClassProgress `json:"classes"`
	Problems   []Problem       `json:"problems,omitempty"`
}

// TypeSection lists the notes of one Type value.
type TypeSection struct {
	Type        string  `json:"type"`
	Uncompleted []Entry `json:"uncompleted"`
	Completed   []Entry `json:"completed"`
}

// Entry is one note shown in a section.
type Entry struct {
	Path       string     `json:"path"`
	Title      string     `json:"title"`
	Class      string     `json:"class,omitempty"`
	Exp        *float64   `json:"exp,omitempty"`
	CompleteBy string     `json:"complete_by,omitempty"`
	Tasks      []TaskItem `json:"tasks,omitempty"`
}

// ClassProgress is the experience and level of one class.
type ClassProgress struct {
	Class    string  `json:"class"`
	TotalExp float64 `json:"total_exp"`
	LevelState
}

// Problem is a per-file issue that did not abort the pass.
type Problem struct {
	Path  string `json:"path"`
	Error string `json:"error"`
	err   error
}

// Err returns the underlying error for errors.Is checks.
func (p Problem) Err() error { return p.err }

func newProblem(path string, err error) Problem {
	return Problem{Path: path, Error: err.Error(), err: err}
}

// ToggleResult describes a task after ToggleTask.
type ToggleResult struct {
	Path     string   `json:"path"`
	Task     TaskItem `json:"task"`
	Checksum string   `json:"checksum"`
	Changed  bool     `json:"changed"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine runs render passes and task toggles against a Store.
//
// At most one render pass runs at a time: concurrent Render callers share the
// in-flight pass. Renders and toggles are serialized so complete-field
// rewrites never interleave with a checkbox write. Edits made outside the
// process between a read and a write are not detected by renders (last
// write wins); toggles can guard against them with a checksum.
type Engine struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	group singleflight.Group
	mu    sync.Mutex
}

// NewEngine creates an engine over store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{store: store, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render runs one render pass with the given settings snapshot.
func (e *Engine) Render(ctx context.Context, s Settings) (*Dashboard, error) {
	ch := e.group.DoChan(renderKey, func() (any, error) {
		return e.render(context.WithoutCancel(ctx), s)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Dashboard), nil
	}
}

func (e *Engine) render(ctx context.Context, s Settings) (*Dashboard, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.now()
	reg := NewRegistry(s)
	d := &Dashboard{
		RenderID:   uuid.NewString(),
		RenderedAt: start,
		Name:       s.Name,
		DOB:        s.DOB,
		Types:      []TypeSection{},
		Classes:    []ClassProgress{},
	}
	if age, ok := s.Age(start); ok {
		d.Age = &age
	}
	logger := e.logger.With(slog.String("render_id", d.RenderID))

	paths, err := e.findFiles(reg.Axes())
	if err != nil {
		return nil, err
	}

	classifier := NewClassifier(e.store, logger)
	completed, uncompleted, err := classifier.Classify(ctx, paths)
	if err != nil {
		return nil, err
	}
	for _, doc := range append(append([]Document{}, completed...), uncompleted...) {
		if doc.Problem != nil {
			d.Problems = append(d.Problems, newProblem(doc.Path, doc.Problem))
		}
	}

	today := startOfDay(start)
	for _, typ := range reg.Values(AttrType) {
		sec := TypeSection{Type: typ, Uncompleted: []Entry{}, Completed: []Entry{}}
		for _, doc := range uncompleted {
			fm := doc.Frontmatter()
			if !fm.AttributeEquals(AttrType, typ) {
				continue
			}
			due, ok, derr := fm.DueDate(start.Location())
			if derr != nil {
				d.Problems = append(d.Problems, newProblem(doc.Path, derr))
				continue
			}
			if !ok || due.Before(today) {
				continue
			}
			entry := newEntry(doc)
			entry.Tasks = ExtractTasks(doc.Content)
			sec.Uncompleted = append(sec.Uncompleted, entry)
		}
		for _, doc := range completed {
			if doc.Frontmatter().AttributeEquals(AttrType, typ) {
				sec.Completed = append(sec.Completed, newEntry(doc))
			}
		}
		d.Types = append(d.Types, sec)
	}

	for _, class := range reg.Values(AttrClass) {
		var total float64
		for _, doc := range completed {
			fm := doc.Frontmatter()
			if !fm.AttributeEquals(AttrClass, class) {
				continue
			}
			exp, xerr := fm.ExpValue()
			if xerr != nil {
				d.Problems = append(d.Problems, newProblem(doc.Path, xerr))
				continue
			}
			total += exp
		}
		state, lerr := LevelFor(total)
		if lerr != nil {
			// Only reachable when valid values overflow the sum.
			d.Problems = append(d.Problems, newProblem("", fmt.Errorf("%w: class %s: %w", apperr.ErrData, class, lerr)))
			d.Classes = append(d.Classes, ClassProgress{Class: class})
			continue
		}
		d.Classes = append(d.Classes, ClassProgress{Class: class, TotalExp: total, LevelState: state})
	}

	logger.Info("render: done",
		slog.Int("files", len(paths)),
		slog.Int("completed", len(completed)),
		slog.Int("uncompleted", len(uncompleted)),
		slog.Int("problems", len(d.Problems)),
		slog.Duration("took", e.now().Sub(start)))
	return d, nil
}

// findFiles returns, sorted, the paths whose front matter carries any of attrs.
func (e *Engine) findFiles(attrs []string) ([]string, error) {
	metas, err := e.store.List("")
	if err != nil {
		return nil, fmt.Errorf("progression: list: %w", err)
	}
	var out []string
	for _, m := range metas {
		data, err := e.store.Read(m.Path)
		if err != nil {
			return nil, fmt.Errorf("progression: read %s: %w", m.Path, err)
		}
		res, err := parser.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("progression: parse %s: %w", m.Path, err)
		}
		for _, a := range attrs {
			if res.Frontmatter.HasAttribute(a) {
				out = append(out, m.Path)
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// ToggleTask sets the checkbox on line of the file at p. A non-empty ifMatch
// must equal the current document checksum, otherwise apperr.ErrConflict.
func (e *Engine) ToggleTask(_ context.Context, p string, line int, checked bool, ifMatch string) (*ToggleResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := e.store.Read(p)
	if err != nil {
		return nil, fmt.Errorf("progression: toggle %s: %w", p, err)
	}
	if !checksum.Matches(data, ifMatch) {
		return nil, fmt.Errorf("progression: toggle %s: %w", p, apperr.ErrConflict)
	}

	updated, item, err := SetTask(string(data), line, checked)
	if err != nil {
		return nil, fmt.Errorf("progression: toggle %s: %w", p, err)
	}
	changed := updated != string(data)
	if changed {
		if err := e.store.Write(p, []byte(updated)); err != nil {
			return nil, fmt.Errorf("progression: toggle %s: %w", p, err)
		}
	}
	e.logger.Debug("toggle: task set",
		slog.String("path", p), slog.Int("line", line),
		slog.Bool("checked", checked), slog.Bool("changed", changed))

	return &ToggleResult{
		Path:     p,
		Task:     item,
		Checksum: checksum.Sum([]byte(updated)),
		Changed:  changed,
	}, nil
}

// Title returns the first H1 of a parsed note, falling back to its file name.
func Title(p string, res *parser.Result) string {
	if res != nil && res.Title != "" {
		return res.Title
	}
	return strings.TrimSuffix(path.Base(p), ".md")
}

func newEntry(doc Document) Entry {
	fm := doc.Frontmatter()
	e := Entry{Path: doc.Path, Title: Title(doc.Path, doc.Parsed)}
	if fm != nil {
		e.Class = fm.Class
		e.Exp = fm.Exp
		e.CompleteBy = fm.CompleteBy
	}
	return e
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
