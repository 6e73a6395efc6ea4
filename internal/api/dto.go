package api

import (
	"github.com/starford/rpgify/internal/models"
	"github.com/starford/rpgify/internal/progression"
	"github.com/starford/rpgify/internal/questservice"
)

// Dashboard is the rendered dashboard (aliased from the domain layer).
type Dashboard = progression.Dashboard

// QuestDetail is the full quest response type (aliased from the domain layer).
type QuestDetail = questservice.QuestDetail

// CreateQuestRequest is the request body for creating a quest.
type CreateQuestRequest = questservice.CreateQuestInput

// SettingsRequest is the request body for PUT /settings.
type SettingsRequest = questservice.SettingsPatch

// Settings is the settings snapshot response.
type Settings = progression.Settings

// QuestListResponse wraps paginated quest listings.
type QuestListResponse struct {
	Quests []models.Quest `json:"quests" validate:"required"`
	Total  int            `json:"total" example:"42" validate:"required"`
}

// ToggleTaskRequest is the request body for POST /tasks/toggle.
type ToggleTaskRequest struct {
	Path    string `json:"path" example:"Quests/Slay the Dragon.md" validate:"required"`
	Line    int    `json:"line" example:"7"`
	Checked bool   `json:"checked" example:"true"`
	IfMatch string `json:"if_match,omitempty" example:"abc123..."`
}

// ToggleTaskResponse is the result of a toggle.
type ToggleTaskResponse = progression.ToggleResult

// MoveQuestRequest is the request body for POST /quests/move.
type MoveQuestRequest struct {
	From string `json:"from" example:"New Quest 1718000000000.md" validate:"required"`
	To   string `json:"to" example:"Quests/Slay the Dragon.md" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"Quests/Slay the Dragon.md" validate:"required"`
	Title   string `json:"title" example:"Slay the Dragon" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}
