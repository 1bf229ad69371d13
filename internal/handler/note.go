package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nayeem/cloudbook/internal/apperror"
	"github.com/nayeem/cloudbook/internal/auth"
	"github.com/nayeem/cloudbook/internal/service"
)

// NoteHandler exposes note CRUD. Every route sits behind RequireUser, so
// the user id is always present in the request context.
type NoteHandler struct {
	notes  *service.NoteService
	logger *slog.Logger
}

func NewNoteHandler(notes *service.NoteService, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{
		notes:  notes,
		logger: logger,
	}
}

// HandleList returns all of the caller's notes, pinned first, then by
// updated time descending.
//
// HTTP: GET /notes → 200 {"notes": [...]}
func (h *NoteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("authentication required"))
		return
	}

	notes, err := h.notes.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
}

// HandleGet returns one owned note.
//
// HTTP: GET /notes/{id} → 200 {"note": ...} | 404
func (h *NoteHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("authentication required"))
		return
	}

	note, err := h.notes.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"note": note})
}

// HandleCreate creates a note for the caller. Absent fields get defaults:
// empty title and content, folder "notes", no tags, not pinned.
//
// HTTP: POST /notes {title?, content?, folderId?, tags?, pinned?}
// → 201 {"note": ...} | 400
func (h *NoteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("authentication required"))
		return
	}

	var in service.CreateNoteInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	note, err := h.notes.Create(r.Context(), userID, in)
	if err != nil {
		if !errors.Is(err, apperror.ErrValidation) {
			h.logger.Error("create note failed",
				slog.Int64("userID", userID),
				slog.String("error", err.Error()),
			)
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"note": note})
}

// HandleUpdate applies a partial update to an owned note. Fields absent
// from the body keep their stored values.
//
// HTTP: PUT /notes/{id} (PATCH accepted too) → 200 {"note": ...} | 404
func (h *NoteHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("authentication required"))
		return
	}

	var in service.UpdateNoteInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	note, err := h.notes.Update(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		if !errors.Is(err, apperror.ErrValidation) && !errors.Is(err, apperror.ErrNotFound) {
			h.logger.Error("update note failed",
				slog.Int64("userID", userID),
				slog.String("error", err.Error()),
			)
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"note": note})
}

// HandleDelete removes an owned note.
//
// HTTP: DELETE /notes/{id} → 200 {"ok": true} | 404
func (h *NoteHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("authentication required"))
		return
	}

	if err := h.notes.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
