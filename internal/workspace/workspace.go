// Package workspace is the client-side working set for a signed-in user:
// the full note list fetched from the server, a derived tag catalogue, an
// active selection, and three independent filter axes (sidebar scope,
// free-text query, tag filter) composed with AND.
//
// The workspace never talks to the network. Mutations that must be
// persisted (tag deletion fan-out, for example) are returned to the caller
// as edit plans; the caller applies them against the HTTP API and tolerates
// partial failure.
package workspace

import (
	"math/rand"
	"slices"
	"strings"
	"time"

	"github.com/nayeem/cloudbook/internal/apperror"
	"github.com/nayeem/cloudbook/internal/model"
)

// tagColors is the fixed palette new tags draw from. Purely cosmetic;
// collisions between tags are fine.
var tagColors = []string{
	"blue",
	"green",
	"yellow",
	"red",
	"purple",
	"pink",
	"indigo",
	"gray",
}

// Tag is catalogue metadata for one tag identifier. The identifier is what
// notes store; name and color exist only in the workspace session.
type Tag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// ScopeKind selects what the sidebar scope filters on.
type ScopeKind string

const (
	ScopeAll    ScopeKind = "all"
	ScopeFolder ScopeKind = "folder"
	ScopeTag    ScopeKind = "tag"
)

// Scope is the sidebar selection: everything, one folder, or one tag.
type Scope struct {
	Kind ScopeKind
	ID   string
}

// TagEdit is one entry of a bulk-edit plan: the note to update and its new
// tag list. The caller persists each edit independently.
type TagEdit struct {
	NoteID string
	Tags   []string
}

// Workspace holds the session state. It is not safe for concurrent use;
// a session drives it from a single goroutine.
type Workspace struct {
	notes    []model.Note
	tagMeta  map[string]Tag // metadata survives recomputation within the session
	activeID string

	scope     Scope
	query     string
	tagFilter string // "" means no tag filter

	rng *rand.Rand
}

// New creates an empty workspace scoped to the default folder, matching
// what a fresh session shows.
func New() *Workspace {
	return NewWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand creates a workspace with an explicit color source, so tests
// get deterministic tag colors.
func NewWithRand(rng *rand.Rand) *Workspace {
	return &Workspace{
		tagMeta: make(map[string]Tag),
		scope:   Scope{Kind: ScopeFolder, ID: model.DefaultFolder},
		rng:     rng,
	}
}

// Load replaces the full note set with a fresh server fetch. Known tag
// metadata is kept, so names and colors stay stable across reloads within
// the session; selection is re-checked against the new visible list.
func (w *Workspace) Load(notes []model.Note) {
	w.notes = slices.Clone(notes)
	for _, n := range w.notes {
		for _, id := range n.Tags {
			w.ensureTagMeta(id)
		}
	}
	w.ensureSelection()
}

// Notes returns the full working set in server order.
func (w *Workspace) Notes() []model.Note {
	return slices.Clone(w.notes)
}

// Visible computes the filtered, sorted list. It is a pure function of the
// note set and the three filter inputs: scope, query, and tag filter
// compose with AND, and the result is ordered pinned-first then by updated
// time descending regardless of the order mutations happened in.
func (w *Workspace) Visible() []model.Note {
	out := make([]model.Note, 0, len(w.notes))

	query := strings.ToLower(w.query)
	for _, n := range w.notes {
		if !w.inScope(n) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(n.Title), query) &&
			!strings.Contains(strings.ToLower(n.Content), query) {
			continue
		}
		if w.tagFilter != "" && !n.HasTag(w.tagFilter) {
			continue
		}
		out = append(out, n)
	}

	// Stable, so notes with equal pin state and timestamp keep their
	// relative server order.
	slices.SortStableFunc(out, func(a, b model.Note) int {
		if a.Pinned != b.Pinned {
			if a.Pinned {
				return -1
			}
			return 1
		}
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})

	return out
}

func (w *Workspace) inScope(n model.Note) bool {
	switch w.scope.Kind {
	case ScopeFolder:
		return w.scope.ID == "" || n.FolderID == w.scope.ID
	case ScopeTag:
		return n.HasTag(w.scope.ID)
	default:
		return true
	}
}

// SetScope switches the sidebar scope and re-checks the selection.
func (w *Workspace) SetScope(s Scope) {
	w.scope = s
	w.ensureSelection()
}

// SetQuery sets the free-text filter, matched case-insensitively as a
// substring of title or content.
func (w *Workspace) SetQuery(q string) {
	w.query = strings.TrimSpace(q)
	w.ensureSelection()
}

// SetTagFilter sets the secondary tag filter; empty clears it.
func (w *Workspace) SetTagFilter(tagID string) {
	w.tagFilter = tagID
	w.ensureSelection()
}

// Scope returns the current sidebar scope.
func (w *Workspace) Scope() Scope { return w.scope }

// Select makes the given note active. Only a currently visible note can be
// selected; selecting anything else reports false and leaves the current
// selection alone.
func (w *Workspace) Select(id string) bool {
	for _, n := range w.Visible() {
		if n.ID == id {
			w.activeID = id
			return true
		}
	}
	return false
}

// ActiveID returns the id of the active note, or "" when nothing is
// selected.
func (w *Workspace) ActiveID() string {
	return w.activeID
}

// Active returns the active note, or nil.
func (w *Workspace) Active() *model.Note {
	for i := range w.notes {
		if w.notes[i].ID == w.activeID {
			n := w.notes[i]
			return &n
		}
	}
	return nil
}

// Upsert merges a created or server-confirmed note into the working set.
// New notes go to the front (the server would sort them first anyway, being
// the freshest); new tag identifiers join the catalogue.
func (w *Workspace) Upsert(n model.Note) {
	idx := slices.IndexFunc(w.notes, func(m model.Note) bool { return m.ID == n.ID })
	if idx >= 0 {
		w.notes[idx] = n
	} else {
		w.notes = append([]model.Note{n}, w.notes...)
	}
	for _, id := range n.Tags {
		w.ensureTagMeta(id)
	}
	w.ensureSelection()
}

// Remove drops a note from the working set, typically after a confirmed
// delete. When the active note is removed, the next selection is the note
// at the same index in the remaining visible list, or the last one if it
// was at the end, or nothing if the list is now empty.
func (w *Workspace) Remove(id string) {
	wasActive := w.activeID == id
	var index int
	if wasActive {
		index = slices.IndexFunc(w.Visible(), func(n model.Note) bool { return n.ID == id })
	}

	w.notes = slices.DeleteFunc(w.notes, func(n model.Note) bool { return n.ID == id })

	if !wasActive {
		w.ensureSelection()
		return
	}

	w.activeID = ""
	remaining := w.Visible()
	if len(remaining) == 0 {
		return
	}
	if index < 0 || index >= len(remaining) {
		index = len(remaining) - 1
	}
	w.activeID = remaining[index].ID
}

// Tags returns the derived catalogue: every tag identifier referenced by
// the current note set, decorated with session metadata, sorted by name.
// Identifiers no longer referenced by any note drop out here, which is the
// "next recomputation" the delete semantics rely on.
func (w *Workspace) Tags() []Tag {
	seen := make(map[string]struct{})
	out := make([]Tag, 0, len(w.tagMeta))
	for _, n := range w.notes {
		for _, id := range n.Tags {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, w.ensureTagMeta(id))
		}
	}

	slices.SortFunc(out, func(a, b Tag) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out
}

// CreateTag registers tag metadata for a display name, deriving the
// identifier the way the UI always has: lowercase with spaces collapsed to
// hyphens. Creating a name that already exists (case-insensitively)
// returns the existing tag instead of a duplicate. The tag enters the
// visible catalogue once a note references it.
func (w *Workspace) CreateTag(name string) (Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Tag{}, apperror.ValidationFailed("name", "tag name is required")
	}

	if existing, ok := w.findByName(name); ok {
		return existing, nil
	}

	tag := Tag{
		ID:    strings.ReplaceAll(strings.ToLower(name), " ", "-"),
		Name:  name,
		Color: w.pickColor(),
	}
	w.tagMeta[tag.ID] = tag
	return tag, nil
}

// RenameTag changes a tag's display name. The identifier on notes stays
// the same; only catalogue metadata changes. Renaming to a name already
// used by a different tag is rejected.
func (w *Workspace) RenameTag(id, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return apperror.ValidationFailed("name", "tag name is required")
	}

	meta, ok := w.tagMeta[id]
	if !ok {
		return apperror.NotFound("tag", id)
	}
	if existing, found := w.findByName(newName); found && existing.ID != id {
		return apperror.Conflict("tag name already in use")
	}

	meta.Name = newName
	w.tagMeta[id] = meta
	return nil
}

// DeleteTag removes a tag everywhere: catalogue metadata goes away, the
// identifier is stripped from every local note, and the returned plan
// lists one edit per affected note for the caller to persist. Edits are
// independent; a failed persist for one note does not invalidate the rest.
func (w *Workspace) DeleteTag(id string) []TagEdit {
	delete(w.tagMeta, id)

	var edits []TagEdit
	for i := range w.notes {
		if !w.notes[i].HasTag(id) {
			continue
		}
		w.notes[i].Tags = slices.DeleteFunc(slices.Clone(w.notes[i].Tags), func(t string) bool {
			return t == id
		})
		edits = append(edits, TagEdit{NoteID: w.notes[i].ID, Tags: w.notes[i].Tags})
	}

	w.ensureSelection()
	return edits
}

// NewNoteDefaults returns the folder and seed tags a note created from the
// current scope should get: the scoped folder when a folder is selected,
// the scoped tag pre-applied when a tag is selected, plain defaults
// otherwise.
func (w *Workspace) NewNoteDefaults() (folderID string, tags []string) {
	folderID = model.DefaultFolder
	tags = []string{}

	switch w.scope.Kind {
	case ScopeFolder:
		if w.scope.ID != "" && model.ValidFolder(w.scope.ID) {
			folderID = w.scope.ID
		}
	case ScopeTag:
		if w.scope.ID != "" {
			tags = []string{w.scope.ID}
		}
	}
	return folderID, tags
}

// ensureSelection enforces the selection invariant: the active note is
// always in the visible list; when nothing is selected and the list is
// non-empty, the first visible note becomes active.
func (w *Workspace) ensureSelection() {
	visible := w.Visible()

	if w.activeID != "" {
		for _, n := range visible {
			if n.ID == w.activeID {
				return
			}
		}
		w.activeID = ""
	}

	if len(visible) > 0 {
		w.activeID = visible[0].ID
	}
}

// ensureTagMeta returns the metadata for id, creating name-equals-id
// metadata with a random palette color on first sight.
func (w *Workspace) ensureTagMeta(id string) Tag {
	if meta, ok := w.tagMeta[id]; ok {
		return meta
	}
	meta := Tag{ID: id, Name: id, Color: w.pickColor()}
	w.tagMeta[id] = meta
	return meta
}

func (w *Workspace) findByName(name string) (Tag, bool) {
	for _, meta := range w.tagMeta {
		if strings.EqualFold(meta.Name, name) {
			return meta, true
		}
	}
	return Tag{}, false
}

func (w *Workspace) pickColor() string {
	return tagColors[w.rng.Intn(len(tagColors))]
}
