package index

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/rpgify/internal/checksum"
	"github.com/starford/rpgify/internal/models"
	"github.com/starford/rpgify/internal/parser"
	"github.com/starford/rpgify/internal/progression"
	"github.com/starford/rpgify/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db QuestIndex, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return fmt.Errorf("index: sync: %w", err)
	}
	checksums, err := db.AllChecksums()
	if err != nil {
		return fmt.Errorf("index: sync: %w", err)
	}

	disk := make(map[string]struct{}, len(metas))
	var indexed, removed int
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if checksums[m.Path] == m.Checksum {
			continue
		}
		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		indexed++
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteQuest(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		removed++
	}

	logger.Info("sync: done",
		slog.Int("files", len(metas)), slog.Int("indexed", indexed), slog.Int("removed", removed))
	return nil
}

// IndexFile parses data and upserts the resulting quest row.
func IndexFile(db QuestIndex, path string, data []byte) error {
	q, body, err := QuestFromFile(path, data)
	if err != nil {
		return err
	}
	return db.UpsertQuest(q, body)
}

// QuestFromFile derives the index row and searchable body of one vault file.
// Completion follows the task lines, not the stored complete field.
func QuestFromFile(path string, data []byte) (models.Quest, string, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return models.Quest{}, "", fmt.Errorf("index: parse %s: %w", path, err)
	}
	content := string(data)
	q := models.Quest{
		Path:      path,
		Title:     progression.Title(path, res),
		Complete:  progression.IsComplete(content),
		Checksum:  checksum.Sum(data),
		UpdatedAt: time.Now(),
	}
	if fm := res.Frontmatter; fm != nil {
		q.Tracked = fm.HasAttribute(parser.KeyType) || fm.HasAttribute(parser.KeyClass)
		q.Type = fm.Type
		q.Class = fm.Class
		q.Exp = fm.Exp
		q.CompleteBy = fm.CompleteBy
	}
	for _, t := range progression.ExtractTasks(content) {
		if t.Checked {
			q.DoneTasks++
		} else {
			q.OpenTasks++
		}
	}
	return q, res.Body, nil
}
