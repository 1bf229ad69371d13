package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nayeem/cloudbook/internal/apperror"
	"github.com/nayeem/cloudbook/internal/model"
	"github.com/nayeem/cloudbook/internal/repository"
)

// compile-time check that *DB implements repository.NoteRepository
var _ repository.NoteRepository = (*DB)(nil)

const noteColumns = `id, user_id, title, content, folder_id, tags, pinned, created_at, updated_at`

// ListNotes returns every note owned by userID, pinned notes first, then
// newest-updated first. The WHERE clause carries the owner, so there is no
// query that could return another user's rows.
func (db *DB) ListNotes(ctx context.Context, userID int64) ([]model.Note, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+noteColumns+`
		 FROM notes
		 WHERE user_id = ?
		 ORDER BY pinned DESC, updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notes for user %d: %w", userID, err)
	}
	defer rows.Close()

	notes := []model.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating notes: %w", err)
	}

	return notes, nil
}

// GetNote retrieves one note scoped by owner. A note that exists but
// belongs to someone else is indistinguishable from one that does not
// exist.
func (db *DB) GetNote(ctx context.Context, userID int64, id string) (*model.Note, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+noteColumns+`
		 FROM notes
		 WHERE id = ? AND user_id = ?`,
		id, userID,
	)

	n, err := scanNote(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("note", id)
		}
		return nil, err
	}

	return n, nil
}

// CreateNote inserts the note with a fresh id and equal created/updated
// timestamps.
func (db *DB) CreateNote(ctx context.Context, note *model.Note) error {
	note.ID = uuid.NewString()
	now := time.Now().UTC()
	note.CreatedAt = now
	note.UpdatedAt = now

	tags, err := marshalTags(note.Tags)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO notes (`+noteColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		note.ID,
		note.UserID,
		note.Title,
		note.Content,
		note.FolderID,
		tags,
		note.Pinned,
		note.CreatedAt,
		note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating note for user %d: %w", note.UserID, err)
	}

	return nil
}

// UpdateNote writes the full row, scoped by owner, and refreshes
// updated_at unconditionally; an update that changes nothing still bumps
// the timestamp.
func (db *DB) UpdateNote(ctx context.Context, note *model.Note) error {
	note.UpdatedAt = time.Now().UTC()

	tags, err := marshalTags(note.Tags)
	if err != nil {
		return err
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE notes
		 SET title = ?, content = ?, folder_id = ?, tags = ?, pinned = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		note.Title,
		note.Content,
		note.FolderID,
		tags,
		note.Pinned,
		note.UpdatedAt,
		note.ID,
		note.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating note %s: %w", note.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("note", note.ID)
	}

	return nil
}

// DeleteNote removes the note, scoped by owner. Absent and not-owned both
// report NotFound.
func (db *DB) DeleteNote(ctx context.Context, userID int64, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM notes WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting note %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("note", id)
	}

	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (*model.Note, error) {
	var (
		n    model.Note
		tags string
	)

	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Title,
		&n.Content,
		&n.FolderID,
		&tags,
		&n.Pinned,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite: scanning note row: %w", err)
	}

	if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
		return nil, fmt.Errorf("sqlite: decoding tags for note %s: %w", n.ID, err)
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}

	return &n, nil
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding tags: %w", err)
	}
	return string(b), nil
}
