package model

import "time"

// Folder identifiers. Folders are a fixed enumerated set, not user-defined;
// they act purely as a grouping key on a note. "Trash" has no server-side
// soft-delete semantics; it is just another folder a note can sit in.
const (
	FolderNotes    = "notes"
	FolderProjects = "projects"
	FolderTrash    = "trash"
)

// DefaultFolder is where new notes land when no folder is supplied.
const DefaultFolder = FolderNotes

// Folders returns the fixed folder set in display order.
func Folders() []string {
	return []string{FolderNotes, FolderProjects, FolderTrash}
}

// ValidFolder reports whether id names a known folder.
func ValidFolder(id string) bool {
	switch id {
	case FolderNotes, FolderProjects, FolderTrash:
		return true
	}
	return false
}

// Note is a short text note owned by exactly one user. The invariant the
// whole store enforces: a note is visible only to its owner.
//
// Tags is an unordered set of free-form tag identifiers with no duplicates.
// UpdatedAt is bumped on every mutating write and never moves backwards;
// at creation it equals CreatedAt.
type Note struct {
	ID        string    `json:"id"        db:"id"`
	UserID    int64     `json:"-"         db:"user_id"`
	Title     string    `json:"title"     db:"title"`
	Content   string    `json:"content"   db:"content"`
	FolderID  string    `json:"folderId"  db:"folder_id"`
	Tags      []string  `json:"tags"      db:"tags"`
	Pinned    bool      `json:"pinned"    db:"pinned"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// HasTag reports whether the note carries the given tag identifier.
func (n *Note) HasTag(tagID string) bool {
	for _, t := range n.Tags {
		if t == tagID {
			return true
		}
	}
	return false
}
