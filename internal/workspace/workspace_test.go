package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/checksum"
	"github.com/starford/scribe/internal/dialog"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/storage"
	"github.com/starford/scribe/internal/testutil"
)

type testEnv struct {
	ws  *Workspace
	fs  *testutil.FaultyFS
	gw  *testutil.FaultyGateway
	dir string

	mu      sync.Mutex
	notices []string
	events  []string
}

func newEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	env := &testEnv{
		dir: t.TempDir(),
		fs:  testutil.NewFaultyFS(),
		gw:  &testutil.FaultyGateway{Gateway: testutil.TestGateway(t)},
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	base := []Option{
		WithDefaultDir(env.dir),
		WithLogger(logger),
		WithNotifier(func(m string) {
			env.mu.Lock()
			env.notices = append(env.notices, m)
			env.mu.Unlock()
		}),
		WithEventCallback(func(kind string, id models.DocumentID) {
			env.mu.Lock()
			env.events = append(env.events, kind+":"+id.String())
			env.mu.Unlock()
		}),
	}
	env.ws = New(env.fs, env.gw, append(base, opts...)...)
	return env
}

// index returns the records currently stored in the gateway.
func (e *testEnv) index(t *testing.T) map[models.DocumentID]models.IndexRecord {
	t.Helper()
	out := map[models.DocumentID]models.IndexRecord{}
	data, ok, err := e.gw.Get(context.Background(), IndexKey)
	if err != nil {
		t.Fatalf("gateway Get: %v", err)
	}
	if !ok {
		return out
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode index: %v", err)
	}
	return out
}

// importFile writes name under the env dir and imports it.
func (e *testEnv) importFile(t *testing.T, name, content string) (models.DocumentID, string) {
	t.Helper()
	p := testutil.WriteFile(t, e.dir, name, content)
	n, err := e.ws.Import(context.Background(), []string{p})
	if err != nil || n != 1 {
		t.Fatalf("Import(%s) = %d, %v", p, n, err)
	}
	for _, d := range e.ws.Documents() {
		if d.Path == p {
			return d.ID, p
		}
	}
	t.Fatalf("imported document for %s not found", p)
	return "", ""
}

func TestCreateDraftUniqueIDs(t *testing.T) {
	env := newEnv(t)
	seen := map[models.DocumentID]bool{}
	for i := 0; i < 50; i++ {
		id := env.ws.CreateDraft()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true

		doc, err := env.ws.Get(id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !doc.IsNew || doc.Path != "" || doc.Body == "" || doc.Title != "" {
			t.Errorf("draft = %+v", doc)
		}
	}
	if len(env.fs.Calls) != 0 {
		t.Errorf("drafts touched the file system: %v", env.fs.Calls)
	}
	if len(env.index(t)) != 0 {
		t.Error("drafts should not be persisted")
	}
}

func TestCreateDraftRetriesCollidingIDs(t *testing.T) {
	ids := []models.DocumentID{"x", "x", "y"}
	env := newEnv(t, WithIDGenerator(func() models.DocumentID {
		id := ids[0]
		ids = ids[1:]
		return id
	}))
	a := env.ws.CreateDraft()
	b := env.ws.CreateDraft()
	if a != "x" || b != "y" {
		t.Errorf("ids = %s, %s; want x, y", a, b)
	}
}

func TestCreateDraftPlaceholder(t *testing.T) {
	env := newEnv(t, WithPlaceholder("# hi"))
	doc, _ := env.ws.Get(env.ws.CreateDraft())
	if doc.Body != "# hi" {
		t.Errorf("body = %q", doc.Body)
	}
}

func TestRenameDraftWritesToDefaultDir(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	id := env.ws.CreateDraft()

	if err := env.ws.Rename(ctx, id, "todo", true); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	doc, _ := env.ws.Get(id)
	want := filepath.Join(env.dir, "todo.md")
	if doc.Path != want || !strings.HasSuffix(doc.Path, "todo.md") {
		t.Errorf("path = %q, want %q", doc.Path, want)
	}
	if doc.IsNew || !doc.IsLoaded || doc.Title != "todo" {
		t.Errorf("doc = %+v", doc)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("file not written: %v", err)
	}
	if string(data) != DefaultPlaceholder {
		t.Errorf("file content = %q", data)
	}

	rec, ok := env.index(t)[id]
	if !ok {
		t.Fatal("renamed draft missing from index")
	}
	if rec.Path != want || rec.Title != "todo" {
		t.Errorf("index record = %+v", rec)
	}
}

func TestRenameDraftWriteFailureLeavesState(t *testing.T) {
	env := newEnv(t)
	id := env.ws.CreateDraft()
	env.fs.WriteErr = errors.New("disk full")

	err := env.ws.Rename(context.Background(), id, "notes", true)
	if !errors.Is(err, apperr.ErrIO) {
		t.Fatalf("err = %v, want ErrIO", err)
	}
	doc, _ := env.ws.Get(id)
	if !doc.IsNew || doc.Path != "" || doc.Title != "" {
		t.Errorf("state changed after failed write: %+v", doc)
	}
	if len(env.index(t)) != 0 {
		t.Error("index written after failed write")
	}

	env.fs.WriteErr = nil
	if err := env.ws.Rename(context.Background(), id, "notes", true); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestRenamePersistedMovesFile(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	sub := filepath.Join(env.dir, "sub")
	_ = os.MkdirAll(sub, 0o755)
	p := testutil.WriteFile(t, sub, "old.md", "content")
	if _, err := env.ws.Import(ctx, []string{p}); err != nil {
		t.Fatal(err)
	}
	id := env.ws.Documents()[0].ID

	if err := env.ws.Rename(ctx, id, "fresh", false); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	want := filepath.Join(sub, "fresh.md")
	doc, _ := env.ws.Get(id)
	if doc.Path != want || doc.Title != "fresh" {
		t.Errorf("doc = %+v", doc)
	}
	if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
		t.Error("old file still exists")
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("new file missing: %v", err)
	}
	if env.index(t)[id].Path != want {
		t.Errorf("index path = %q", env.index(t)[id].Path)
	}
}

func TestRenamePersistedFailureLeavesState(t *testing.T) {
	env := newEnv(t)
	id, p := env.importFile(t, "keep.md", "x")
	env.fs.RenameErr = errors.New("permission denied")

	err := env.ws.Rename(context.Background(), id, "other", false)
	if !errors.Is(err, apperr.ErrIO) {
		t.Fatalf("err = %v, want ErrIO", err)
	}
	doc, _ := env.ws.Get(id)
	if doc.Path != p || doc.Title != "keep" {
		t.Errorf("doc changed: %+v", doc)
	}
	if env.index(t)[id].Path != p {
		t.Error("index changed after failed rename")
	}
}

func TestRenameValidation(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	id := env.ws.CreateDraft()

	for _, title := range []string{"", "   ", "a/b", `a\b`} {
		if err := env.ws.Rename(ctx, id, title, true); !errors.Is(err, apperr.ErrInvalidState) {
			t.Errorf("Rename(%q) = %v, want ErrInvalidState", title, err)
		}
	}
	if err := env.ws.Rename(ctx, id, "x", false); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("rename draft without hint = %v, want ErrInvalidState", err)
	}
	if err := env.ws.Rename(ctx, "missing", "x", true); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("rename unknown = %v, want ErrNotFound", err)
	}
	if len(env.fs.Calls) != 0 {
		t.Errorf("invalid renames touched the file system: %v", env.fs.Calls)
	}
}

func TestRenameToTrackedPathConflicts(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	a := env.ws.CreateDraft()
	b := env.ws.CreateDraft()
	if err := env.ws.Rename(ctx, a, "same", true); err != nil {
		t.Fatal(err)
	}
	err := env.ws.Rename(ctx, b, "same", true)
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	doc, _ := env.ws.Get(b)
	if !doc.IsNew {
		t.Error("conflicting draft should stay a draft")
	}
}

func TestRenamePersistenceFailureKeepsChange(t *testing.T) {
	env := newEnv(t)
	id := env.ws.CreateDraft()
	env.gw.SetErr = errors.New("database is locked")

	err := env.ws.Rename(context.Background(), id, "kept", true)
	if !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
	doc, _ := env.ws.Get(id)
	if doc.IsNew || doc.Title != "kept" {
		t.Errorf("document change should stand: %+v", doc)
	}
	if len(env.notices) != 1 || !strings.Contains(env.notices[0], "database is locked") {
		t.Errorf("notices = %v", env.notices)
	}
}

func TestRenameDraftEditedDuringWriteStaysDirty(t *testing.T) {
	env := newEnv(t)
	id := env.ws.CreateDraft()
	env.fs.BeforeIO = func(op, _ string) {
		if op == "write" {
			_ = env.ws.UpdateBody(id, "typed while saving")
		}
	}
	if err := env.ws.Rename(context.Background(), id, "race", true); err != nil {
		t.Fatal(err)
	}
	doc, _ := env.ws.Get(id)
	if doc.Body != "typed while saving" {
		t.Errorf("body = %q", doc.Body)
	}
	if !slices.Contains(env.ws.Snapshot().Unsaved, id) {
		t.Error("edit made during the write should stay unsaved")
	}
}

func TestRenameEditedDraftClearsUnsaved(t *testing.T) {
	env := newEnv(t)
	id := env.ws.CreateDraft()
	if err := env.ws.UpdateBody(id, "edited draft"); err != nil {
		t.Fatal(err)
	}
	if err := env.ws.Rename(context.Background(), id, "notes", true); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(env.dir, "notes.md"))
	if err != nil || string(data) != "edited draft" {
		t.Fatalf("file = %q, %v", data, err)
	}
	if slices.Contains(env.ws.Snapshot().Unsaved, id) {
		t.Error("named draft matches its file but is still unsaved")
	}
}

func TestRenameDraftKeepsUntrackedFile(t *testing.T) {
	env := newEnv(t)
	p := testutil.WriteFile(t, env.dir, "todo.md", "user's existing notes")
	id := env.ws.CreateDraft()

	err := env.ws.Rename(context.Background(), id, "todo", true)
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	if errors.Is(err, apperr.ErrIO) {
		t.Errorf("existing file reported as I/O failure: %v", err)
	}
	data, _ := os.ReadFile(p)
	if string(data) != "user's existing notes" {
		t.Errorf("existing file overwritten: %q", data)
	}
	doc, _ := env.ws.Get(id)
	if !doc.IsNew || doc.Path != "" {
		t.Errorf("draft changed: %+v", doc)
	}
	if len(env.index(t)) != 0 {
		t.Error("index written after refused rename")
	}
}

func TestDeletePersistedRemovesEverywhere(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	id, p := env.importFile(t, "bye.md", "gone")
	if _, err := env.ws.OpenDocument(ctx, id); err != nil {
		t.Fatal(err)
	}
	_ = env.ws.UpdateBody(id, "edited")

	if err := env.ws.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	st := env.ws.Snapshot()
	if len(st.Documents) != 0 || len(st.OpenTabs) != 0 || len(st.Unsaved) != 0 || st.ActiveID != "" {
		t.Errorf("state after delete = %+v", st)
	}
	if _, ok := env.index(t)[id]; ok {
		t.Error("deleted document still in index")
	}
	if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
		t.Error("file still on disk")
	}
}

func TestDeleteFailureLeavesEverything(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	id, _ := env.importFile(t, "stay.md", "here")
	_, _ = env.ws.OpenDocument(ctx, id)
	_ = env.ws.UpdateBody(id, "edited")
	before := env.ws.Snapshot()
	env.fs.DeleteErr = errors.New("permission denied")

	err := env.ws.Delete(ctx, id)
	if !errors.Is(err, apperr.ErrIO) {
		t.Fatalf("err = %v, want ErrIO", err)
	}
	after := env.ws.Snapshot()
	if len(after.Documents) != 1 || !slices.Equal(after.OpenTabs, before.OpenTabs) ||
		!slices.Equal(after.Unsaved, before.Unsaved) || after.ActiveID != before.ActiveID {
		t.Errorf("state changed: before %+v after %+v", before, after)
	}
	if _, ok := env.index(t)[id]; !ok {
		t.Error("index lost the document after failed delete")
	}
}

func TestDeleteFileAlreadyGone(t *testing.T) {
	env := newEnv(t)
	id, p := env.importFile(t, "vanished.md", "x")
	_ = os.Remove(p)

	if err := env.ws.Delete(context.Background(), id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := env.ws.Get(id); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if _, ok := env.index(t)[id]; ok {
		t.Error("document still in index")
	}
}

func TestDeleteDraftKeepsOtherDocuments(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	keep := env.ws.CreateDraft()
	imported, _ := env.importFile(t, "other.md", "x")
	drop := env.ws.CreateDraft()

	if err := env.ws.Delete(ctx, drop); err != nil {
		t.Fatalf("Delete draft: %v", err)
	}
	docs := env.ws.Documents()
	if len(docs) != 2 || docs[0].ID != keep || docs[1].ID != imported {
		t.Errorf("documents = %+v", docs)
	}
	for _, c := range env.fs.Calls {
		if strings.HasPrefix(c, "delete:") {
			t.Errorf("draft delete touched the file system: %v", env.fs.Calls)
		}
	}
}

func TestDeleteUnknown(t *testing.T) {
	env := newEnv(t)
	if err := env.ws.Delete(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestImportDeduplicates(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	p1 := filepath.Join(env.dir, "one.md")
	p2 := filepath.Join(env.dir, "two.md")

	n, err := env.ws.Import(ctx, []string{p1, p2, p1})
	if err != nil || n != 2 {
		t.Fatalf("Import = %d, %v; want 2", n, err)
	}
	n, err = env.ws.Import(ctx, []string{p1, p2, p1})
	if err != nil || n != 0 {
		t.Fatalf("re-import = %d, %v; want 0", n, err)
	}

	docs := env.ws.Documents()
	if len(docs) != 2 || docs[0].Title != "one" || docs[1].Title != "two" {
		t.Errorf("documents = %+v", docs)
	}
	for _, d := range docs {
		if d.IsLoaded || d.IsNew || d.Body != "" {
			t.Errorf("imported document should be an unloaded reference: %+v", d)
		}
	}
	if len(env.index(t)) != 2 {
		t.Errorf("index = %v", env.index(t))
	}
	if len(env.fs.Calls) != 0 {
		t.Errorf("import read files: %v", env.fs.Calls)
	}
}

func TestImportInvalidPathsDoNotAbort(t *testing.T) {
	env := newEnv(t)
	good := filepath.Join(env.dir, "good.md")
	n, err := env.ws.Import(context.Background(), []string{"", "relative.md", good})
	if n != 1 {
		t.Errorf("added = %d, want 1", n)
	}
	if !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
}

func TestImportWithDialogNotifiesCount(t *testing.T) {
	env := newEnv(t)
	p1 := filepath.Join(env.dir, "p1.md")
	p2 := filepath.Join(env.dir, "p2.md")
	var msgs []string
	d := &dialog.Static{
		Paths:    []string{p1, p2, p1, filepath.Join(env.dir, "image.png")},
		OnNotify: func(m string) { msgs = append(msgs, m) },
	}

	n, err := env.ws.ImportWithDialog(context.Background(), d)
	if err != nil || n != 2 {
		t.Fatalf("ImportWithDialog = %d, %v", n, err)
	}
	if len(msgs) != 1 || msgs[0] != "Imported 2 Markdown documents" {
		t.Errorf("notifications = %v", msgs)
	}

	msgs = nil
	n, _ = env.ws.ImportWithDialog(context.Background(), d)
	if n != 0 || len(msgs) != 0 {
		t.Errorf("second import = %d, notifications %v", n, msgs)
	}
}

func TestImportWithDialogCancelled(t *testing.T) {
	env := newEnv(t)
	var msgs []string
	d := &dialog.Static{OnNotify: func(m string) { msgs = append(msgs, m) }}
	n, err := env.ws.ImportWithDialog(context.Background(), d)
	if n != 0 || err != nil || len(msgs) != 0 {
		t.Errorf("cancelled import = %d, %v, %v", n, err, msgs)
	}
}

func TestSearchThroughWorkspace(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	_, _ = env.ws.Import(ctx, []string{
		filepath.Join(env.dir, "meeting notes.md"),
		filepath.Join(env.dir, "todo.md"),
		filepath.Join(env.dir, "Notes archive.md"),
	})
	env.ws.CreateDraft()

	if got := env.ws.Search(""); len(got) != 4 {
		t.Errorf("Search(\"\") = %d docs, want 4", len(got))
	}
	got := titles(env.ws.Search("notes"))
	if len(got) != 1 || got[0] != "meeting notes" {
		t.Errorf("Search(notes) = %v", got)
	}
}

func TestOpenDocumentLoadsBody(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	id, _ := env.importFile(t, "read.md", "# Read me")

	doc, err := env.ws.OpenDocument(ctx, id)
	if err != nil {
		t.Fatalf("OpenDocument: %v", err)
	}
	if !doc.IsLoaded || doc.Body != "# Read me" {
		t.Errorf("doc = %+v", doc)
	}
	st := env.ws.Snapshot()
	if st.ActiveID != id || !slices.Equal(st.OpenTabs, []models.DocumentID{id}) {
		t.Errorf("state = %+v", st)
	}

	// A second open does not read again.
	calls := len(env.fs.Calls)
	_, _ = env.ws.OpenDocument(ctx, id)
	if len(env.fs.Calls) != calls {
		t.Errorf("loaded document read twice: %v", env.fs.Calls)
	}
}

func TestOpenDocumentLoadFailure(t *testing.T) {
	env := newEnv(t)
	id, _ := env.importFile(t, "broken.md", "x")
	env.fs.ReadErr = errors.New("no such file")

	_, err := env.ws.OpenDocument(context.Background(), id)
	if !errors.Is(err, apperr.ErrIO) {
		t.Fatalf("err = %v, want ErrIO", err)
	}
	doc, _ := env.ws.Get(id)
	if doc.IsLoaded {
		t.Error("failed load marked document loaded")
	}
	if len(env.ws.Snapshot().OpenTabs) != 0 {
		t.Error("failed load opened a tab")
	}
}

func TestDeleteDuringLoadDoesNotResurrect(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	id, p := env.importFile(t, "race.md", "body")
	env.fs.BeforeIO = func(op, _ string) {
		if op == "read" {
			env.fs.BeforeIO = nil
			if err := env.ws.Delete(ctx, id); err != nil {
				t.Errorf("Delete during load: %v", err)
			}
			// Let the outstanding read still succeed.
			_ = os.WriteFile(p, []byte("body"), 0o644)
		}
	}

	_, err := env.ws.EnsureLoaded(ctx, id)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if len(env.ws.Documents()) != 0 {
		t.Error("deleted document came back after load completed")
	}
}

func TestEditAndSave(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	id, p := env.importFile(t, "edit.md", "v1")
	_, _ = env.ws.OpenDocument(ctx, id)

	if err := env.ws.UpdateBody(id, "v2"); err != nil {
		t.Fatal(err)
	}
	if st := env.ws.Snapshot(); !slices.Equal(st.Unsaved, []models.DocumentID{id}) {
		t.Fatalf("unsaved = %v", st.Unsaved)
	}
	tabs := env.ws.Tabs()
	if len(tabs) != 1 || !tabs[0].Unsaved || !tabs[0].Active {
		t.Errorf("tabs = %+v", tabs)
	}

	if err := env.ws.SaveActive(ctx); err != nil {
		t.Fatalf("SaveActive: %v", err)
	}
	if st := env.ws.Snapshot(); len(st.Unsaved) != 0 {
		t.Errorf("unsaved after save = %v", st.Unsaved)
	}
	data, _ := os.ReadFile(p)
	if string(data) != "v2" {
		t.Errorf("file = %q", data)
	}
}

func TestBodyEditsDoNotFlushIndex(t *testing.T) {
	env := newEnv(t)
	id, _ := env.importFile(t, "quiet.md", "v1")
	env.gw.SetErr = errors.New("should not be called")
	if err := env.ws.UpdateBody(id, "v2"); err != nil {
		t.Fatal(err)
	}
	if err := env.ws.Save(context.Background(), id); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(env.notices) != 0 {
		t.Errorf("body edit flushed the index: %v", env.notices)
	}
}

func TestSaveFailureKeepsDirty(t *testing.T) {
	env := newEnv(t)
	id, _ := env.importFile(t, "fail.md", "v1")
	_ = env.ws.UpdateBody(id, "v2")
	env.fs.WriteErr = errors.New("disk full")

	if err := env.ws.Save(context.Background(), id); !errors.Is(err, apperr.ErrIO) {
		t.Fatalf("err = %v, want ErrIO", err)
	}
	if !slices.Contains(env.ws.Snapshot().Unsaved, id) {
		t.Error("failed save cleared unsaved marker")
	}
}

func TestSaveKeepsDirtyWhenEditedDuringWrite(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	id, p := env.importFile(t, "busy.md", "v1")
	_ = env.ws.UpdateBody(id, "v2")
	env.fs.BeforeIO = func(op, _ string) {
		if op == "write" {
			_ = env.ws.UpdateBody(id, "v3")
		}
	}

	if err := env.ws.Save(ctx, id); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !slices.Contains(env.ws.Snapshot().Unsaved, id) {
		t.Error("v3 is not on disk but the document was marked saved")
	}
	data, _ := os.ReadFile(p)
	if string(data) != "v2" {
		t.Errorf("file = %q, want v2", data)
	}
}

func TestSaveRenamedDuringWriteLeavesNoStrayFile(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	id, oldPath := env.importFile(t, "before.md", "v1")
	if _, err := env.ws.EnsureLoaded(ctx, id); err != nil {
		t.Fatal(err)
	}
	_ = env.ws.UpdateBody(id, "v2")
	env.fs.BeforeIO = func(op, _ string) {
		if op == "write" {
			if err := env.ws.Rename(ctx, id, "after", false); err != nil {
				t.Errorf("Rename: %v", err)
			}
		}
	}

	err := env.ws.Save(ctx, id)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if _, err := os.Stat(oldPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("stray file at old path: %v", err)
	}
	newPath := filepath.Join(env.dir, "after.md")
	data, _ := os.ReadFile(newPath)
	if string(data) != "v1" {
		t.Errorf("renamed file = %q, want v1", data)
	}
	if !slices.Contains(env.ws.Snapshot().Unsaved, id) {
		t.Error("v2 never reached the renamed file but the document was marked saved")
	}

	env.fs.BeforeIO = nil
	if err := env.ws.Save(ctx, id); err != nil {
		t.Fatalf("retry Save: %v", err)
	}
	data, _ = os.ReadFile(newPath)
	if string(data) != "v2" {
		t.Errorf("file after retry = %q, want v2", data)
	}
}

func TestSaveInvalidStates(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	draft := env.ws.CreateDraft()
	if err := env.ws.Save(ctx, draft); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("save draft = %v, want ErrInvalidState", err)
	}
	unloaded, _ := env.importFile(t, "unloaded.md", "x")
	if err := env.ws.Save(ctx, unloaded); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("save unloaded = %v, want ErrInvalidState", err)
	}
	if err := env.ws.SaveActive(ctx); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("save with no active tab = %v, want ErrInvalidState", err)
	}
	if err := env.ws.Save(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("save unknown = %v, want ErrNotFound", err)
	}
}

func TestUpdateBody(t *testing.T) {
	env := newEnv(t)
	if err := env.ws.UpdateBody("missing", "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	id := env.ws.CreateDraft()
	sum := checksum.Of(DefaultPlaceholder)
	if err := env.ws.UpdateBodyIfMatch(id, "one", sum); err != nil {
		t.Fatalf("matching checksum: %v", err)
	}
	if err := env.ws.UpdateBodyIfMatch(id, "two", sum); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale checksum = %v, want ErrConflict", err)
	}
	doc, _ := env.ws.Get(id)
	if doc.Body != "one" {
		t.Errorf("body = %q", doc.Body)
	}
}

func TestTabsThroughWorkspace(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	a, b, c := env.ws.CreateDraft(), env.ws.CreateDraft(), env.ws.CreateDraft()
	for _, id := range []models.DocumentID{a, b, c} {
		if _, err := env.ws.OpenDocument(ctx, id); err != nil {
			t.Fatal(err)
		}
	}
	if err := env.ws.SelectTab(b); err != nil {
		t.Fatal(err)
	}

	env.ws.CloseTab(b)
	if active, _ := env.ws.Active(); active.ID != a {
		t.Errorf("active = %s, want %s", active.ID, a)
	}
	env.ws.CloseTab(a)
	env.ws.CloseTab(c)
	if _, ok := env.ws.Active(); ok {
		t.Error("expected no active document")
	}
	if len(env.ws.Documents()) != 3 {
		t.Error("closing tabs deleted documents")
	}
	if err := env.ws.SelectTab(a); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("select closed tab = %v, want ErrNotFound", err)
	}
}

func TestRestoreFromIndex(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	env := newEnv(t, WithClock(clock))
	ctx := context.Background()

	first := env.ws.CreateDraft()
	_ = env.ws.Rename(ctx, first, "first", true)
	second, _ := env.importFile(t, "second.md", "2")
	env.ws.CreateDraft()

	ws, err := Open(ctx, env.fs, env.gw, WithDefaultDir(env.dir))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	docs := ws.Documents()
	if len(docs) != 2 {
		t.Fatalf("restored %d documents, want 2 (drafts are not persisted)", len(docs))
	}
	if docs[0].ID != first || docs[1].ID != second {
		t.Errorf("restore order = %s, %s", docs[0].ID, docs[1].ID)
	}
	for _, d := range docs {
		if d.IsLoaded || d.IsNew || d.Body != "" {
			t.Errorf("restored document should be unloaded: %+v", d)
		}
	}
	if docs[0].Title != "first" || !docs[0].CreatedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("restored = %+v", docs[0])
	}
}

func TestRestoreSkipsBadRecords(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	raw := `{
		"a": {"id": "a", "path": "/n/x.md", "title": "x", "createdAt": "2026-01-01T00:00:00Z"},
		"b": {"id": "b", "path": "/n/x.md", "title": "dup", "createdAt": "2026-01-02T00:00:00Z"},
		"c": {"id": "c", "path": "", "title": "nopath", "createdAt": "2026-01-03T00:00:00Z"}
	}`
	if err := env.gw.Set(ctx, IndexKey, []byte(raw)); err != nil {
		t.Fatal(err)
	}
	ws, err := Open(ctx, env.fs, env.gw)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	docs := ws.Documents()
	if len(docs) != 1 || docs[0].ID != "a" {
		t.Errorf("documents = %+v", docs)
	}
}

func TestRestoreCorruptIndexFails(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	_ = env.gw.Set(ctx, IndexKey, []byte("not json"))
	if _, err := Open(ctx, env.fs, env.gw); !errors.Is(err, apperr.ErrPersistence) {
		t.Errorf("err = %v, want ErrPersistence", err)
	}
}

func TestOutline(t *testing.T) {
	env := newEnv(t)
	id, _ := env.importFile(t, "outline.md", "---\ntags: [work]\n---\n# Plan\n\nSee [[todo]].\n\n## Steps\n")
	res, err := env.ws.Outline(context.Background(), id)
	if err != nil {
		t.Fatalf("Outline: %v", err)
	}
	if res.Title != "Plan" || len(res.Headings) != 2 || len(res.Links) != 1 || len(res.Tags) != 1 {
		t.Errorf("outline = %+v", res)
	}
}

func TestEventsEmitted(t *testing.T) {
	env := newEnv(t, WithIDGenerator(func() models.DocumentID { return "d1" }))
	ctx := context.Background()
	id := env.ws.CreateDraft()
	_ = env.ws.UpdateBody(id, "x")
	_ = env.ws.Rename(ctx, id, "ev", true)
	_ = env.ws.Delete(ctx, id)

	want := []string{
		EventCreated + ":d1",
		EventUpdated + ":d1",
		EventRenamed + ":d1",
		EventDeleted + ":d1",
	}
	if !slices.Equal(env.events, want) {
		t.Errorf("events = %v, want %v", env.events, want)
	}
}

func TestConcurrentEditsAndDrafts(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	id, _ := env.importFile(t, "shared.md", "start")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = env.ws.UpdateBody(id, fmt.Sprintf("%d-%d", i, j))
				draft := env.ws.CreateDraft()
				_ = env.ws.Delete(ctx, draft)
				_ = env.ws.Search("sha")
			}
		}(i)
	}
	wg.Wait()

	st := env.ws.Snapshot()
	if len(st.Documents) != 1 || !slices.Equal(st.Unsaved, []models.DocumentID{id}) {
		t.Errorf("state = %+v", st)
	}
}

func TestImportWithDialogListFailureIsIO(t *testing.T) {
	env := newEnv(t)
	d := &dialog.Directory{Dir: filepath.Join(env.dir, "missing"), Files: storage.NewFS()}
	n, err := env.ws.ImportWithDialog(context.Background(), d)
	if n != 0 || !errors.Is(err, apperr.ErrIO) {
		t.Errorf("import from missing dir = %d, %v; want ErrIO", n, err)
	}
}
