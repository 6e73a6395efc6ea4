// Package questservice coordinates the vault, the quest index and the
// progression engine for the HTTP, MCP and CLI surfaces.
package questservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/starford/rpgify/internal/apperr"
	"github.com/starford/rpgify/internal/index"
	"github.com/starford/rpgify/internal/models"
	"github.com/starford/rpgify/internal/parser"
	"github.com/starford/rpgify/internal/progression"
	"github.com/starford/rpgify/internal/storage"
)

// QuestDetail is the full representation of one quest note.
type QuestDetail struct {
	models.Quest
	Tasks        []progression.TaskItem `json:"tasks"`
	Content      string                 `json:"content"`
	Unrecognized map[string]any         `json:"unrecognized,omitempty"`
	Invalid      map[string]string      `json:"invalid,omitempty"`
}

// SettingsPatch changes parts of the settings. Nil fields are left alone.
type SettingsPatch struct {
	Name    *string `json:"name,omitempty"`
	DOB     *string `json:"dob,omitempty"`
	Classes *string `json:"classes,omitempty"`
}

// Service coordinates storage, index and engine operations.
type Service struct {
	store    storage.Provider
	db       index.QuestIndex
	engine   *progression.Engine
	logger   *slog.Logger
	now      func() time.Time
	onChange index.EventCallback

	settings atomic.Pointer[progression.Settings]
	last     atomic.Pointer[progression.Dashboard]
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock replaces time.Now for generated file names.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithOnChange registers a callback for vault changes made through the
// service. The watcher skips files the service already re-indexed, so this is
// how those edits reach subscribers.
func WithOnChange(fn index.EventCallback) Option {
	return func(s *Service) {
		if fn != nil {
			s.onChange = fn
		}
	}
}

// NewService creates a service. Settings previously saved in the index win
// over the given defaults.
func NewService(store storage.Provider, db index.QuestIndex, engine *progression.Engine, defaults progression.Settings, opts ...Option) (*Service, error) {
	s := &Service{store: store, db: db, engine: engine, logger: slog.Default(), now: time.Now,
		onChange: func(string, string) {}}
	for _, opt := range opts {
		opt(s)
	}

	current := defaults
	saved, ok, err := db.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("questservice: %w", err)
	}
	if ok {
		current = saved
		if len(current.Types) == 0 {
			current.Types = defaults.Types
		}
	}
	s.settings.Store(&current)
	return s, nil
}

// Settings returns the current settings snapshot.
func (s *Service) Settings() progression.Settings {
	return *s.settings.Load()
}

// UpdateSettings applies patch, validates and persists the new snapshot.
// Running renders keep the snapshot they started with.
func (s *Service) UpdateSettings(_ context.Context, patch SettingsPatch) (progression.Settings, error) {
	next := s.Settings()
	if patch.Name != nil {
		next = next.WithName(strings.TrimSpace(*patch.Name))
	}
	if patch.DOB != nil {
		next = next.WithDOB(strings.TrimSpace(*patch.DOB))
	}
	if patch.Classes != nil {
		next = next.WithClasses(*patch.Classes)
	}
	if err := next.Validate(); err != nil {
		return progression.Settings{}, fmt.Errorf("%w: %s", apperr.ErrInvalidInput, err)
	}
	if err := s.db.SaveSettings(next); err != nil {
		return progression.Settings{}, err
	}
	s.settings.Store(&next)
	s.logger.Info("settings: updated", slog.String("name", next.Name), slog.String("classes", next.ClassesCSV()))
	return next, nil
}

// Render runs a render pass with the current settings and remembers the result.
func (s *Service) Render(ctx context.Context) (*progression.Dashboard, error) {
	d, err := s.engine.Render(ctx, s.Settings())
	if err != nil {
		return nil, err
	}
	s.last.Store(d)
	return d, nil
}

// Dashboard returns the last rendered dashboard, rendering once if there is none.
func (s *Service) Dashboard(ctx context.Context) (*progression.Dashboard, error) {
	if d := s.last.Load(); d != nil {
		return d, nil
	}
	return s.Render(ctx)
}

// ToggleTask sets one task checkbox and re-indexes the file.
func (s *Service) ToggleTask(ctx context.Context, path string, line int, checked bool, ifMatch string) (*progression.ToggleResult, error) {
	res, err := s.engine.ToggleTask(ctx, path, line, checked, ifMatch)
	if err != nil {
		return nil, notFound(err)
	}
	if res.Changed {
		if data, rerr := s.store.Read(path); rerr == nil {
			if ierr := s.IndexFile(path, data); ierr != nil {
				s.logger.Warn("toggle: reindex failed", slog.String("path", path), slog.String("error", ierr.Error()))
			}
		}
		s.onChange(index.KindUpdated, path)
	}
	return res, nil
}

// GetQuest reads a quest note from storage.
func (s *Service) GetQuest(_ context.Context, path string) (*QuestDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		return nil, notFound(err)
	}
	return buildDetail(path, data)
}

// ListQuests returns indexed quests matching f.
func (s *Service) ListQuests(_ context.Context, f index.QuestFilter) ([]models.Quest, int, error) {
	return s.db.ListQuests(f)
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// CreateQuest writes a new quest note from the template and indexes it.
func (s *Service) CreateQuest(_ context.Context, in CreateQuestInput) (*QuestDetail, error) {
	settings := s.Settings()
	if err := in.validate(settings); err != nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrInvalidInput, err)
	}
	path := in.resolvePath(s.now())
	content := []byte(in.renderTemplate(settings))

	if err := s.store.Create(path, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, content); err != nil {
		return nil, err
	}
	s.logger.Info("quest: created", slog.String("path", path), slog.String("type", in.Type))
	s.onChange(index.KindCreated, path)
	return buildDetail(path, content)
}

// DeleteQuest removes a quest note from storage and index.
func (s *Service) DeleteQuest(_ context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		return notFound(err)
	}
	if err := s.db.DeleteQuest(path); err != nil {
		return err
	}
	s.onChange(index.KindDeleted, path)
	return nil
}

// IndexFile parses data and upserts it into the index.
func (s *Service) IndexFile(path string, data []byte) error {
	return index.IndexFile(s.db, path, data)
}

func buildDetail(path string, data []byte) (*QuestDetail, error) {
	q, _, err := index.QuestFromFile(path, data)
	if err != nil {
		return nil, err
	}
	d := &QuestDetail{
		Quest:   q,
		Tasks:   progression.ExtractTasks(string(data)),
		Content: string(data),
	}
	if d.Tasks == nil {
		d.Tasks = []progression.TaskItem{}
	}
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	if fm := res.Frontmatter; fm != nil {
		if len(fm.Unrecognized) > 0 {
			d.Unrecognized = fm.Unrecognized
		}
		if len(fm.Invalid) > 0 {
			d.Invalid = make(map[string]string, len(fm.Invalid))
			for k, v := range fm.Invalid {
				d.Invalid[k] = v.Error()
			}
		}
	}
	return d, nil
}

func notFound(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", apperr.ErrNotFound, err)
	}
	return err
}

// MoveQuest renames a quest note and moves its index entry.
func (s *Service) MoveQuest(_ context.Context, from, to string) (*QuestDetail, error) {
	if !strings.HasSuffix(to, ".md") {
		return nil, fmt.Errorf("%w: destination must end with .md", apperr.ErrInvalidInput)
	}
	if _, err := s.store.Read(to); err == nil {
		return nil, fmt.Errorf("questservice: move to %s: %w", to, apperr.ErrAlreadyExists)
	}
	if err := s.store.Move(from, to); err != nil {
		return nil, notFound(err)
	}
	if err := s.db.DeleteQuest(from); err != nil {
		return nil, err
	}
	data, err := s.store.Read(to)
	if err != nil {
		return nil, err
	}
	if err := s.IndexFile(to, data); err != nil {
		return nil, err
	}
	s.onChange(index.KindDeleted, from)
	s.onChange(index.KindCreated, to)
	return buildDetail(to, data)
}
