package workspace

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/nayeem/cloudbook/internal/apperror"
	"github.com/nayeem/cloudbook/internal/model"
)

// =========================================================================
// HELPERS
// =========================================================================

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// note builds a test note; age pushes UpdatedAt back so ordering is
// deterministic (age 0 is the freshest).
func note(id, title, content, folder string, pinned bool, age int, tags ...string) model.Note {
	ts := baseTime.Add(-time.Duration(age) * time.Minute)
	if tags == nil {
		tags = []string{}
	}
	return model.Note{
		ID:        id,
		Title:     title,
		Content:   content,
		FolderID:  folder,
		Tags:      tags,
		Pinned:    pinned,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

func newTestWorkspace() *Workspace {
	return NewWithRand(rand.New(rand.NewSource(1)))
}

func visibleIDs(w *Workspace) []string {
	visible := w.Visible()
	ids := make([]string, len(visible))
	for i, n := range visible {
		ids[i] = n.ID
	}
	return ids
}

func tagIDs(w *Workspace) []string {
	catalogue := w.Tags()
	ids := make([]string, len(catalogue))
	for i, tag := range catalogue {
		ids[i] = tag.ID
	}
	return ids
}

// =========================================================================
// FILTERING TESTS
// =========================================================================

func TestVisible_DefaultScopeIsNotesFolder(t *testing.T) {
	w := newTestWorkspace()
	w.Load([]model.Note{
		note("a", "in notes", "", model.FolderNotes, false, 0),
		note("b", "in projects", "", model.FolderProjects, false, 1),
	})

	got := visibleIDs(w)
	if !slices.Equal(got, []string{"a"}) {
		t.Errorf("Visible() = %v, want [a]", got)
	}
}

func TestVisible_FiltersComposeWithAND(t *testing.T) {
	w := newTestWorkspace()
	w.Load([]model.Note{
		note("match", "groceries list", "", model.FolderNotes, false, 0, "errands"),
		note("wrong-folder", "groceries list", "", model.FolderProjects, false, 1, "errands"),
		note("wrong-text", "meeting agenda", "", model.FolderNotes, false, 2, "errands"),
		note("wrong-tag", "groceries list", "", model.FolderNotes, false, 3, "work"),
	})

	w.SetScope(Scope{Kind: ScopeFolder, ID: model.FolderNotes})
	w.SetQuery("groceries")
	w.SetTagFilter("errands")

	got := visibleIDs(w)
	if !slices.Equal(got, []string{"match"}) {
		t.Errorf("Visible() = %v, want [match]", got)
	}
}

// The visible set is a pure function of the note set and the filter
// values; the order filters were set in must not matter.
func TestVisible_FilterOrderIndependence(t *testing.T) {
	notes := []model.Note{
		note("a", "alpha report", "about work", model.FolderNotes, false, 0, "work"),
		note("b", "beta notes", "nothing", model.FolderNotes, false, 1, "work", "ideas"),
		note("c", "alpha draft", "work work", model.FolderProjects, true, 2, "work"),
		note("d", "misc", "alpha", model.FolderNotes, false, 3),
	}

	apply := map[string]func(*Workspace){
		"scope": func(w *Workspace) { w.SetScope(Scope{Kind: ScopeFolder, ID: model.FolderNotes}) },
		"query": func(w *Workspace) { w.SetQuery("alpha") },
		"tag":   func(w *Workspace) { w.SetTagFilter("work") },
	}
	orders := [][]string{
		{"scope", "query", "tag"},
		{"tag", "scope", "query"},
		{"query", "tag", "scope"},
	}

	var want []string
	for i, order := range orders {
		w := newTestWorkspace()
		w.Load(notes)
		for _, step := range order {
			apply[step](w)
		}
		got := visibleIDs(w)
		if i == 0 {
			want = got
			continue
		}
		if !slices.Equal(got, want) {
			t.Errorf("order %v: Visible() = %v, want %v", order, got, want)
		}
	}
}

func TestVisible_QueryIsCaseInsensitiveOverTitleAndContent(t *testing.T) {
	w := newTestWorkspace()
	w.SetScope(Scope{Kind: ScopeAll})
	w.Load([]model.Note{
		note("title-hit", "Quarterly REPORT", "", model.FolderNotes, false, 0),
		note("content-hit", "misc", "the report draft", model.FolderProjects, false, 1),
		note("miss", "shopping", "eggs", model.FolderNotes, false, 2),
	})

	w.SetQuery("report")

	got := visibleIDs(w)
	if !slices.Equal(got, []string{"title-hit", "content-hit"}) {
		t.Errorf("Visible() = %v, want [title-hit content-hit]", got)
	}
}

func TestVisible_SortsPinnedFirstThenUpdatedDesc(t *testing.T) {
	w := newTestWorkspace()
	w.SetScope(Scope{Kind: ScopeAll})
	w.Load([]model.Note{
		note("old-pinned", "p", "", model.FolderNotes, true, 10),
		note("fresh", "f", "", model.FolderNotes, false, 0),
		note("stale", "s", "", model.FolderNotes, false, 5),
	})

	got := visibleIDs(w)
	if !slices.Equal(got, []string{"old-pinned", "fresh", "stale"}) {
		t.Errorf("Visible() = %v, want [old-pinned fresh stale]", got)
	}
}

// A pin toggle re-sorts locally without waiting for a server re-fetch.
func TestVisible_ResortsAfterLocalPinToggle(t *testing.T) {
	w := newTestWorkspace()
	w.SetScope(Scope{Kind: ScopeAll})
	w.Load([]model.Note{
		note("fresh", "f", "", model.FolderNotes, false, 0),
		note("stale", "s", "", model.FolderNotes, false, 5),
	})

	pinned := note("stale", "s", "", model.FolderNotes, true, 5)
	w.Upsert(pinned)

	got := visibleIDs(w)
	if !slices.Equal(got, []string{"stale", "fresh"}) {
		t.Errorf("Visible() after pin = %v, want [stale fresh]", got)
	}
}

// =========================================================================
// SELECTION TESTS
// =========================================================================

func TestSelection_FirstVisibleAutoSelectedOnLoad(t *testing.T) {
	w := newTestWorkspace()
	w.Load([]model.Note{
		note("first", "a", "", model.FolderNotes, false, 0),
		note("second", "b", "", model.FolderNotes, false, 1),
	})

	if w.ActiveID() != "first" {
		t.Errorf("ActiveID() = %q, want %q", w.ActiveID(), "first")
	}
}

func TestSelection_ClearsWhenActiveFallsOutOfFilter(t *testing.T) {
	w := newTestWorkspace()
	w.Load([]model.Note{
		note("a", "alpha", "", model.FolderNotes, false, 0),
		note("b", "beta", "", model.FolderNotes, false, 1),
	})
	if !w.Select("a") {
		t.Fatal("Select(a) failed")
	}

	// "a" does not match; selection moves to the first visible note.
	w.SetQuery("beta")
	if w.ActiveID() != "b" {
		t.Errorf("ActiveID() = %q, want %q", w.ActiveID(), "b")
	}

	// Nothing matches; selection clears entirely.
	w.SetQuery("zzz")
	if w.ActiveID() != "" {
		t.Errorf("ActiveID() = %q, want empty", w.ActiveID())
	}
}

func TestSelect_RejectsInvisibleNote(t *testing.T) {
	w := newTestWorkspace()
	w.Load([]model.Note{
		note("visible", "a", "", model.FolderNotes, false, 0),
		note("hidden", "b", "", model.FolderProjects, false, 1),
	})

	if w.Select("hidden") {
		t.Error("Select() should refuse a note outside the visible list")
	}
	if w.ActiveID() != "visible" {
		t.Errorf("ActiveID() = %q, want untouched %q", w.ActiveID(), "visible")
	}
}

func TestRemove_ActiveNoteAdvancesToSameIndex(t *testing.T) {
	w := newTestWorkspace()
	w.Load([]model.Note{
		note("a", "1", "", model.FolderNotes, false, 0),
		note("b", "2", "", model.FolderNotes, false, 1),
		note("c", "3", "", model.FolderNotes, false, 2),
	})
	if !w.Select("b") {
		t.Fatal("Select(b) failed")
	}

	w.Remove("b")

	// "b" sat at index 1; "c" now occupies it.
	if w.ActiveID() != "c" {
		t.Errorf("ActiveID() = %q, want %q", w.ActiveID(), "c")
	}
}

func TestRemove_ActiveLastNoteFallsBackToNewLast(t *testing.T) {
	w := newTestWorkspace()
	w.Load([]model.Note{
		note("a", "1", "", model.FolderNotes, false, 0),
		note("b", "2", "", model.FolderNotes, false, 1),
	})
	if !w.Select("b") {
		t.Fatal("Select(b) failed")
	}

	w.Remove("b")

	if w.ActiveID() != "a" {
		t.Errorf("ActiveID() = %q, want %q", w.ActiveID(), "a")
	}
}

func TestRemove_LastRemainingNoteClearsSelection(t *testing.T) {
	w := newTestWorkspace()
	w.Load([]model.Note{note("only", "1", "", model.FolderNotes, false, 0)})

	w.Remove("only")

	if w.ActiveID() != "" {
		t.Errorf("ActiveID() = %q, want empty", w.ActiveID())
	}
	if len(w.Visible()) != 0 {
		t.Errorf("Visible() has %d notes, want 0", len(w.Visible()))
	}
}

// =========================================================================
// TAG CATALOGUE TESTS
// =========================================================================

func TestTags_DerivedFromNoteReferences(t *testing.T) {
	w := newTestWorkspace()
	w.Load([]model.Note{
		note("a", "1", "", model.FolderNotes, false, 0, "work", "ideas"),
		note("b", "2", "", model.FolderNotes, false, 1, "work"),
	})

	got := tagIDs(w)
	if !slices.Equal(got, []string{"ideas", "work"}) {
		t.Errorf("Tags() = %v, want [ideas work] (sorted by name)", got)
	}

	for _, tag := range w.Tags() {
		if tag.Name != tag.ID {
			t.Errorf("first-sight tag name = %q, want identifier %q", tag.Name, tag.ID)
		}
		if !slices.Contains(tagColors, tag.Color) {
			t.Errorf("tag color %q is not from the palette", tag.Color)
		}
	}
}

func TestTags_MetadataStableAcrossReload(t *testing.T) {
	w := newTestWorkspace()
	notes := []model.Note{note("a", "1", "", model.FolderNotes, false, 0, "work")}
	w.Load(notes)

	before := w.Tags()[0]
	if err := w.RenameTag("work", "Work Stuff"); err != nil {
		t.Fatalf("RenameTag() error = %v", err)
	}

	w.Load(notes)

	after := w.Tags()[0]
	if after.Name != "Work Stuff" {
		t.Errorf("Name after reload = %q, want renamed %q", after.Name, "Work Stuff")
	}
	if after.Color != before.Color {
		t.Errorf("Color after reload = %q, want stable %q", after.Color, before.Color)
	}
}

func TestCreateTag(t *testing.T) {
	w := newTestWorkspace()

	tag, err := w.CreateTag("Side Projects")
	if err != nil {
		t.Fatalf("CreateTag() error = %v", err)
	}
	if tag.ID != "side-projects" {
		t.Errorf("ID = %q, want %q", tag.ID, "side-projects")
	}
	if tag.Name != "Side Projects" {
		t.Errorf("Name = %q, want %q", tag.Name, "Side Projects")
	}

	// Creating the same name again (any casing) returns the existing tag.
	again, err := w.CreateTag("side projects")
	if err != nil {
		t.Fatalf("CreateTag() repeat error = %v", err)
	}
	if again.ID != tag.ID {
		t.Errorf("repeat CreateTag() ID = %q, want %q", again.ID, tag.ID)
	}
}

func TestCreateTag_EmptyName(t *testing.T) {
	w := newTestWorkspace()

	if _, err := w.CreateTag("  "); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("CreateTag() error = %v, want ErrValidation", err)
	}
}

func TestRenameTag_RejectsNameCollision(t *testing.T) {
	w := newTestWorkspace()
	w.Load([]model.Note{
		note("a", "1", "", model.FolderNotes, false, 0, "work", "ideas"),
	})

	err := w.RenameTag("ideas", "WORK")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("RenameTag() error = %v, want ErrConflict", err)
	}
}

func TestRenameTag_UnknownTag(t *testing.T) {
	w := newTestWorkspace()

	if err := w.RenameTag("ghost", "anything"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("RenameTag() error = %v, want ErrNotFound", err)
	}
}

// Two notes tagged "work"; deleting the tag strips it from both notes,
// drops it from the catalogue, and plans one persist per affected note.
func TestDeleteTag_FansOutAcrossNotes(t *testing.T) {
	w := newTestWorkspace()
	w.Load([]model.Note{
		note("a", "1", "", model.FolderNotes, false, 0, "work", "ideas"),
		note("b", "2", "", model.FolderNotes, false, 1, "work"),
		note("c", "3", "", model.FolderNotes, false, 2, "ideas"),
	})

	edits := w.DeleteTag("work")

	if len(edits) != 2 {
		t.Fatalf("DeleteTag() planned %d edits, want 2", len(edits))
	}
	for _, edit := range edits {
		if slices.Contains(edit.Tags, "work") {
			t.Errorf("edit for %s still carries the deleted tag: %v", edit.NoteID, edit.Tags)
		}
	}

	if slices.Contains(tagIDs(w), "work") {
		t.Errorf("catalogue still contains deleted tag: %v", tagIDs(w))
	}
	for _, n := range w.Notes() {
		if n.HasTag("work") {
			t.Errorf("note %s still carries the deleted tag", n.ID)
		}
	}
}

// Once the last note referencing a tag stops referencing it, the tag drops
// out of the derived catalogue on the next recomputation.
func TestTags_UnreferencedTagDropsOut(t *testing.T) {
	w := newTestWorkspace()
	w.Load([]model.Note{note("a", "1", "", model.FolderNotes, false, 0, "fleeting")})

	updated := note("a", "1", "", model.FolderNotes, false, 0)
	w.Upsert(updated)

	if slices.Contains(tagIDs(w), "fleeting") {
		t.Errorf("Tags() = %v, should no longer contain %q", tagIDs(w), "fleeting")
	}
}

// =========================================================================
// NEW-NOTE DEFAULTS TESTS
// =========================================================================

func TestNewNoteDefaults(t *testing.T) {
	cases := []struct {
		scope      Scope
		wantFolder string
		wantTags   []string
	}{
		{Scope{Kind: ScopeAll}, model.DefaultFolder, []string{}},
		{Scope{Kind: ScopeFolder, ID: model.FolderProjects}, model.FolderProjects, []string{}},
		{Scope{Kind: ScopeTag, ID: "work"}, model.DefaultFolder, []string{"work"}},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s/%s", tc.scope.Kind, tc.scope.ID), func(t *testing.T) {
			w := newTestWorkspace()
			w.SetScope(tc.scope)

			folder, tags := w.NewNoteDefaults()
			if folder != tc.wantFolder {
				t.Errorf("folder = %q, want %q", folder, tc.wantFolder)
			}
			if !slices.Equal(tags, tc.wantTags) {
				t.Errorf("tags = %v, want %v", tags, tc.wantTags)
			}
		})
	}
}
