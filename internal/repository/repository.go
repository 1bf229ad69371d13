// Package repository declares the storage interfaces the service layer
// programs against. The sqlite subpackage is the only implementation;
// tests substitute in-memory fakes.
package repository

import (
	"context"

	"github.com/nayeem/cloudbook/internal/model"
)

// UserRepository owns persisted user records. Emails are stored lowercase
// and unique.
type UserRepository interface {
	// CreateUser inserts a new user. Returns apperror.ErrConflict when the
	// email is already registered.
	CreateUser(ctx context.Context, user *model.User) error

	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// EnsureByEmail is the idempotent upsert behind external-identity
	// resolution: it creates a user with a placeholder password credential
	// on first sight of the email and returns the existing row unchanged
	// on every later call. At most one row is ever created for a given
	// email, even under concurrent calls.
	EnsureByEmail(ctx context.Context, name, email string) (*model.User, error)
}

// NoteRepository owns persisted notes. Every operation is scoped by the
// owning user id inside the query itself, so a caller can never observe or
// touch another user's note; a miss and a not-owned note are the same
// NotFound.
type NoteRepository interface {
	// ListNotes returns the user's notes ordered pinned-first, then by
	// updated time descending.
	ListNotes(ctx context.Context, userID int64) ([]model.Note, error)

	GetNote(ctx context.Context, userID int64, id string) (*model.Note, error)

	// CreateNote inserts the note, assigning ID, CreatedAt and UpdatedAt.
	CreateNote(ctx context.Context, note *model.Note) error

	// UpdateNote writes the full row for note.ID scoped by note.UserID,
	// refreshing UpdatedAt regardless of whether any field changed.
	UpdateNote(ctx context.Context, note *model.Note) error

	DeleteNote(ctx context.Context, userID int64, id string) error
}
