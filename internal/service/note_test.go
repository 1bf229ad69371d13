package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nayeem/cloudbook/internal/apperror"
	"github.com/nayeem/cloudbook/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeNoteRepo is an in-memory repository.NoteRepository mirroring the
// real store's ownership scoping: absent and not-owned are both NotFound.
type fakeNoteRepo struct {
	notes map[string]*model.Note

	createErr error
	updateErr error
}

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{notes: make(map[string]*model.Note)}
}

func (f *fakeNoteRepo) ListNotes(ctx context.Context, userID int64) ([]model.Note, error) {
	out := []model.Note{}
	for _, n := range f.notes {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (f *fakeNoteRepo) GetNote(ctx context.Context, userID int64, id string) (*model.Note, error) {
	n, ok := f.notes[id]
	if !ok || n.UserID != userID {
		return nil, apperror.NotFound("note", id)
	}
	copied := *n
	return &copied, nil
}

func (f *fakeNoteRepo) CreateNote(ctx context.Context, note *model.Note) error {
	if f.createErr != nil {
		return f.createErr
	}
	note.ID = uuid.NewString()
	now := time.Now().UTC()
	note.CreatedAt = now
	note.UpdatedAt = now
	copied := *note
	f.notes[note.ID] = &copied
	return nil
}

func (f *fakeNoteRepo) UpdateNote(ctx context.Context, note *model.Note) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	existing, ok := f.notes[note.ID]
	if !ok || existing.UserID != note.UserID {
		return apperror.NotFound("note", note.ID)
	}
	note.UpdatedAt = time.Now().UTC()
	copied := *note
	f.notes[note.ID] = &copied
	return nil
}

func (f *fakeNoteRepo) DeleteNote(ctx context.Context, userID int64, id string) error {
	n, ok := f.notes[id]
	if !ok || n.UserID != userID {
		return apperror.NotFound("note", id)
	}
	delete(f.notes, id)
	return nil
}

func newTestNoteService(repo *fakeNoteRepo) *NoteService {
	return NewNoteService(repo, testLogger())
}

func ptr[T any](v T) *T { return &v }

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreateNote_Defaults(t *testing.T) {
	svc := newTestNoteService(newFakeNoteRepo())

	note, err := svc.Create(context.Background(), 1, CreateNoteInput{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if note.FolderID != model.DefaultFolder {
		t.Errorf("FolderID = %q, want %q", note.FolderID, model.DefaultFolder)
	}
	if note.Pinned {
		t.Error("new note should not be pinned")
	}
	if len(note.Tags) != 0 {
		t.Errorf("Tags = %v, want empty", note.Tags)
	}
	if !note.CreatedAt.Equal(note.UpdatedAt) {
		t.Error("CreatedAt and UpdatedAt should be equal at creation")
	}
}

func TestCreateNote_NormalizesTags(t *testing.T) {
	svc := newTestNoteService(newFakeNoteRepo())

	note, err := svc.Create(context.Background(), 1, CreateNoteInput{
		Tags: []string{" work ", "work", "", "ideas"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if len(note.Tags) != 2 || note.Tags[0] != "work" || note.Tags[1] != "ideas" {
		t.Errorf("Tags = %v, want [work ideas]", note.Tags)
	}
}

func TestCreateNote_RejectsUnknownFolder(t *testing.T) {
	svc := newTestNoteService(newFakeNoteRepo())

	_, err := svc.Create(context.Background(), 1, CreateNoteInput{FolderID: "bogus"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Create() error = %v, want ErrValidation", err)
	}
}

func TestCreateNote_RejectsOverlongFields(t *testing.T) {
	svc := newTestNoteService(newFakeNoteRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, CreateNoteInput{Title: strings.Repeat("x", MaxTitleLength+1)})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("overlong title: error = %v, want ErrValidation", err)
	}

	_, err = svc.Create(ctx, 1, CreateNoteInput{Content: strings.Repeat("x", MaxContentLength+1)})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("overlong content: error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestUpdateNote_PartialUpdateKeepsUnspecifiedFields(t *testing.T) {
	repo := newFakeNoteRepo()
	svc := newTestNoteService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateNoteInput{
		Title:   "original title",
		Content: "original content",
		Tags:    []string{"work"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	updated, err := svc.Update(ctx, 1, created.ID, UpdateNoteInput{
		Title: ptr("new title"),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Title != "new title" {
		t.Errorf("Title = %q, want %q", updated.Title, "new title")
	}
	if updated.Content != "original content" {
		t.Errorf("Content = %q, want unchanged", updated.Content)
	}
	if len(updated.Tags) != 1 || updated.Tags[0] != "work" {
		t.Errorf("Tags = %v, want unchanged [work]", updated.Tags)
	}
}

// Pinned is tri-state: an absent field keeps the stored value, an explicit
// boolean overwrites it.
func TestUpdateNote_PinnedTriState(t *testing.T) {
	svc := newTestNoteService(newFakeNoteRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateNoteInput{Title: "Hi"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Pin explicitly.
	pinned, err := svc.Update(ctx, 1, created.ID, UpdateNoteInput{Pinned: ptr(true)})
	if err != nil {
		t.Fatalf("Update(pin) error = %v", err)
	}
	if !pinned.Pinned {
		t.Fatal("Pinned = false after explicit pin")
	}

	// Update something else without mentioning pinned; it must stick.
	touched, err := svc.Update(ctx, 1, created.ID, UpdateNoteInput{Content: ptr("edited")})
	if err != nil {
		t.Fatalf("Update(content) error = %v", err)
	}
	if !touched.Pinned {
		t.Error("Pinned should be unchanged when the field is unspecified")
	}

	// Unpin explicitly.
	unpinned, err := svc.Update(ctx, 1, created.ID, UpdateNoteInput{Pinned: ptr(false)})
	if err != nil {
		t.Fatalf("Update(unpin) error = %v", err)
	}
	if unpinned.Pinned {
		t.Error("Pinned = true after explicit unpin")
	}
}

func TestUpdateNote_NilTagsKeepsTags_EmptyClearsThem(t *testing.T) {
	svc := newTestNoteService(newFakeNoteRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateNoteInput{Tags: []string{"work"}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	kept, err := svc.Update(ctx, 1, created.ID, UpdateNoteInput{Title: ptr("t")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(kept.Tags) != 1 {
		t.Errorf("Tags = %v, want unchanged [work]", kept.Tags)
	}

	cleared, err := svc.Update(ctx, 1, created.ID, UpdateNoteInput{Tags: []string{}})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(cleared.Tags) != 0 {
		t.Errorf("Tags = %v, want cleared", cleared.Tags)
	}
}

func TestUpdateNote_RefreshesUpdatedAt(t *testing.T) {
	svc := newTestNoteService(newFakeNoteRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateNoteInput{Title: "Hi"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	time.Sleep(2 * time.Millisecond)

	// An update that changes no field value still bumps the timestamp.
	updated, err := svc.Update(ctx, 1, created.ID, UpdateNoteInput{})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want later than %v", updated.UpdatedAt, created.UpdatedAt)
	}
}

func TestUpdateNote_OtherUsersNoteIsNotFound(t *testing.T) {
	svc := newTestNoteService(newFakeNoteRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateNoteInput{Title: "mine"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = svc.Update(ctx, 2, created.ID, UpdateNoteInput{Title: ptr("stolen")})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() as other user: error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestDeleteNote(t *testing.T) {
	svc := newTestNoteService(newFakeNoteRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateNoteInput{Title: "bye"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Delete(ctx, 1, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(ctx, 1, created.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() after delete: error = %v, want ErrNotFound", err)
	}
}

func TestDeleteNote_OtherUsersNoteIsNotFound(t *testing.T) {
	svc := newTestNoteService(newFakeNoteRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateNoteInput{Title: "mine"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Delete(ctx, 2, created.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() as other user: error = %v, want ErrNotFound", err)
	}
	// Still there for the owner.
	if _, err := svc.Get(ctx, 1, created.ID); err != nil {
		t.Errorf("Get() as owner: %v", err)
	}
}

func TestDeleteNote_EmptyID(t *testing.T) {
	svc := newTestNoteService(newFakeNoteRepo())

	err := svc.Delete(context.Background(), 1, "  ")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Delete() error = %v, want ErrValidation", err)
	}
}
