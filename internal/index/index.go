package index

import (
	"github.com/starford/rpgify/internal/models"
	"github.com/starford/rpgify/internal/progression"
)

// QuestIndex defines the quest index operations used by services.
// Consumers depend on this interface rather than the concrete *DB type.
type QuestIndex interface {
	UpsertQuest(q models.Quest, body string) error
	DeleteQuest(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	GetQuest(path string) (*models.Quest, error)
	ListQuests(f QuestFilter) ([]models.Quest, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	SaveSettings(s progression.Settings) error
	LoadSettings() (progression.Settings, bool, error)
	Close() error
}

// Verify *DB satisfies QuestIndex at compile time.
var _ QuestIndex = (*DB)(nil)
