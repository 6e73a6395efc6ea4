package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/rpgify/internal/apperr"
	"github.com/starford/rpgify/internal/models"
	"github.com/starford/rpgify/internal/progression"
)

// QuestFilter narrows ListQuests. Zero values mean "any".
type QuestFilter struct {
	Type     string
	Class    string
	Complete *bool
	Limit    int
	Offset   int
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

const questColumns = `path, title, type, class, exp, complete_by, complete, open_tasks, done_tasks, checksum, updated_at`

// UpsertQuest inserts or replaces a vault file and its FTS entry within a
// transaction. Files that are neither Tracked nor carry a Type or Class are
// kept for checksum diffing but never listed as quests.
func (db *DB) UpsertQuest(q models.Quest, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if q.UpdatedAt.IsZero() {
		q.UpdatedAt = time.Now()
	}
	isQuest := q.Tracked || q.Type != "" || q.Class != ""

	_, err = tx.Exec(`
		INSERT INTO quests (path, title, quest, type, class, exp, complete_by, complete,
		                    open_tasks, done_tasks, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title       = excluded.title,
			quest       = excluded.quest,
			type        = excluded.type,
			class       = excluded.class,
			exp         = excluded.exp,
			complete_by = excluded.complete_by,
			complete    = excluded.complete,
			open_tasks  = excluded.open_tasks,
			done_tasks  = excluded.done_tasks,
			checksum    = excluded.checksum,
			body        = excluded.body,
			updated_at  = excluded.updated_at
	`, q.Path, q.Title, isQuest, q.Type, q.Class, nullFloat(q.Exp), q.CompleteBy, q.Complete,
		q.OpenTasks, q.DoneTasks, q.Checksum, body, q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert quest: %w", err)
	}

	// No-op unless built with sqlite_fts5.
	if isQuest {
		err = ftsUpsert(tx, q.Path, q.Title, body)
	} else {
		ftsDelete(tx, q.Path)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteQuest removes a file and its FTS entry.
func (db *DB) DeleteQuest(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM quests WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete quest: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a file, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM quests WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path -> checksum for every indexed file.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM quests`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// GetQuest returns one quest or apperr.ErrNotFound.
func (db *DB) GetQuest(path string) (*models.Quest, error) {
	row := db.conn.QueryRow(`SELECT `+questColumns+` FROM quests WHERE path = ? AND quest = 1`, path)
	q, err := scanQuest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: quest %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get quest: %w", err)
	}
	return q, nil
}

// ListQuests returns a page of quests ordered by path, plus the total match count.
func (db *DB) ListQuests(f QuestFilter) ([]models.Quest, int, error) {
	where := []string{"quest = 1"}
	var args []any
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if f.Class != "" {
		where = append(where, "class = ?")
		args = append(args, f.Class)
	}
	if f.Complete != nil {
		where = append(where, "complete = ?")
		args = append(args, *f.Complete)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM quests WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count quests: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	rows, err := db.conn.Query(`SELECT `+questColumns+` FROM quests WHERE `+cond+` ORDER BY path LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list quests: %w", err)
	}
	defer rows.Close()

	out := []models.Quest{}
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("index: scan quest: %w", err)
		}
		out = append(out, *q)
	}
	return out, total, rows.Err()
}

// SaveSettings stores the settings snapshot, replacing the previous one.
func (db *DB) SaveSettings(s progression.Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("index: encode settings: %w", err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO settings (id, data, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, string(data), time.Now())
	if err != nil {
		return fmt.Errorf("index: save settings: %w", err)
	}
	return nil
}

// LoadSettings returns the stored snapshot. ok is false when none was saved yet.
func (db *DB) LoadSettings() (s progression.Settings, ok bool, err error) {
	var data string
	err = db.conn.QueryRow(`SELECT data FROM settings WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return progression.Settings{}, false, nil
	}
	if err != nil {
		return progression.Settings{}, false, fmt.Errorf("index: load settings: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return progression.Settings{}, false, fmt.Errorf("index: decode settings: %w", err)
	}
	return s, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuest(r scanner) (*models.Quest, error) {
	var (
		q   models.Quest
		exp sql.NullFloat64
	)
	err := r.Scan(&q.Path, &q.Title, &q.Type, &q.Class, &exp, &q.CompleteBy, &q.Complete,
		&q.OpenTasks, &q.DoneTasks, &q.Checksum, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if exp.Valid {
		v := exp.Float64
		q.Exp = &v
	}
	return &q, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
