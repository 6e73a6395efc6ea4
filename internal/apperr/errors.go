// Package apperr holds the sentinel errors shared by the vault, engine and
// transport layers. Callers wrap them with fmt.Errorf and match with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// ErrStaleEdit means the addressed line no longer looks like a task line.
	ErrStaleEdit = errors.New("stale edit")
	// ErrFieldNotFound means a document has no front matter to hold the complete field.
	ErrFieldNotFound = errors.New("field not found")
	// ErrData marks malformed front matter values (e.g. a non-numeric Exp).
	ErrData         = errors.New("invalid data")
	ErrInvalidInput = errors.New("invalid input")
)
