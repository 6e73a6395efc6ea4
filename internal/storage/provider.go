// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/rpgify/internal/models"

// Provider is the interface for vault file operations.
// All paths are relative to the vault root.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path. Missing files wrap os.ErrNotExist.
	Read(path string) ([]byte, error)
	// Write atomically replaces the whole content of path.
	Write(path string, content []byte) error
	// Create writes a new file and fails with apperr.ErrAlreadyExists if path is taken.
	Create(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}
