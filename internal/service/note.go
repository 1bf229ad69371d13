package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nayeem/cloudbook/internal/apperror"
	"github.com/nayeem/cloudbook/internal/model"
	"github.com/nayeem/cloudbook/internal/repository"
)

// Validation limits for note fields.
const (
	MaxTitleLength   = 300
	MaxContentLength = 100000 // ~100KB of text
	MaxTagsPerNote   = 50
)

// NoteService handles business logic for notes. Every operation takes the
// authenticated user id; the repository scopes each query by it, so
// ownership is enforced structurally rather than checked.
type NoteService struct {
	repo   repository.NoteRepository
	logger *slog.Logger
}

func NewNoteService(repo repository.NoteRepository, logger *slog.Logger) *NoteService {
	return &NoteService{
		repo:   repo,
		logger: logger,
	}
}

// CreateNoteInput carries the optional fields of a new note. Zero values
// get the documented defaults: folder "notes", no tags, not pinned.
type CreateNoteInput struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	FolderID string   `json:"folderId"`
	Tags     []string `json:"tags"`
	Pinned   bool     `json:"pinned"`
}

// UpdateNoteInput is a partial update: nil means "leave unchanged". Pinned
// is deliberately tri-state: absent keeps the stored value, an explicit
// boolean overwrites it.
type UpdateNoteInput struct {
	Title    *string  `json:"title"`
	Content  *string  `json:"content"`
	FolderID *string  `json:"folderId"`
	Tags     []string `json:"tags"`
	Pinned   *bool    `json:"pinned"`
}

// List returns the user's notes in store order: pinned first, then by
// updated time descending.
func (s *NoteService) List(ctx context.Context, userID int64) ([]model.Note, error) {
	notes, err := s.repo.ListNotes(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list notes",
			slog.Int64("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	return notes, nil
}

// Get returns a single note owned by userID.
func (s *NoteService) Get(ctx context.Context, userID int64, id string) (*model.Note, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "note id is required")
	}
	return s.repo.GetNote(ctx, userID, id)
}

// Create validates and saves a new note. Created and updated timestamps
// come out equal; the repository assigns the id.
func (s *NoteService) Create(ctx context.Context, userID int64, in CreateNoteInput) (*model.Note, error) {
	folderID := strings.TrimSpace(in.FolderID)
	if folderID == "" {
		folderID = model.DefaultFolder
	}

	note := &model.Note{
		UserID:   userID,
		Title:    strings.TrimSpace(in.Title),
		Content:  in.Content,
		FolderID: folderID,
		Tags:     normalizeTags(in.Tags),
		Pinned:   in.Pinned,
	}
	if err := validateNote(note); err != nil {
		return nil, err
	}

	if err := s.repo.CreateNote(ctx, note); err != nil {
		s.logger.Error("failed to create note",
			slog.Int64("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating note: %w", err)
	}

	s.logger.Info("note created",
		slog.String("id", note.ID),
		slog.Int64("userID", userID),
	)

	return note, nil
}

// Update applies a partial update to an owned note.
//
// Strategy is fetch-then-update: the scoped read both enforces ownership
// (NotFound covers absent and not-owned alike) and gives us the stored
// values for the fields the caller left unspecified. The updated timestamp
// is refreshed even when nothing changed value.
func (s *NoteService) Update(ctx context.Context, userID int64, id string, in UpdateNoteInput) (*model.Note, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "note id is required")
	}

	note, err := s.repo.GetNote(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		note.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		note.Content = *in.Content
	}
	if in.FolderID != nil {
		note.FolderID = strings.TrimSpace(*in.FolderID)
	}
	if in.Tags != nil {
		note.Tags = normalizeTags(in.Tags)
	}
	if in.Pinned != nil {
		note.Pinned = *in.Pinned
	}
	if err := validateNote(note); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateNote(ctx, note); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to update note",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating note: %w", err)
	}

	s.logger.Info("note updated", slog.String("id", note.ID))

	return note, nil
}

// Delete removes an owned note. NotFound for absent or not-owned.
func (s *NoteService) Delete(ctx context.Context, userID int64, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "note id is required")
	}

	if err := s.repo.DeleteNote(ctx, userID, id); err != nil {
		return err
	}

	s.logger.Info("note deleted", slog.String("id", id), slog.Int64("userID", userID))
	return nil
}

func validateNote(note *model.Note) error {
	if len(note.Title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if len(note.Content) > MaxContentLength {
		return apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxContentLength))
	}
	if !model.ValidFolder(note.FolderID) {
		return apperror.ValidationFailed("folderId",
			fmt.Sprintf("unknown folder %q", note.FolderID))
	}
	if len(note.Tags) > MaxTagsPerNote {
		return apperror.ValidationFailed("tags",
			fmt.Sprintf("a note can carry at most %d tags", MaxTagsPerNote))
	}
	return nil
}

// normalizeTags trims, drops empties, and removes duplicates while
// preserving first-seen order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
