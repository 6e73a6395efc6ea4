// Package models defines the domain types shared by storage, index and services.
package models

import "time"

// NoteMetadata is a lightweight representation returned by vault listings.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Quest is the indexed summary of a note that carries progression front matter.
type Quest struct {
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	Type       string    `json:"type,omitempty"`
	Class      string    `json:"class,omitempty"`
	Exp        *float64  `json:"exp,omitempty"`
	CompleteBy string    `json:"complete_by,omitempty"`
	Complete   bool      `json:"complete"`
	OpenTasks  int       `json:"open_tasks"`
	DoneTasks  int       `json:"done_tasks"`
	Checksum   string    `json:"checksum"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Tracked is set when the front matter carries Type or Class with any
	// value, even one of the wrong type. Renders classify such notes too.
	Tracked bool `json:"-"`
}
