package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/checksum"
	"github.com/starford/scribe/internal/dialog"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/parser"
)

// CreateDraft adds an in-memory document with an empty title and the
// placeholder body. Nothing is written until the draft is renamed.
func (w *Workspace) CreateDraft() models.DocumentID {
	w.mu.Lock()
	id := w.generateIDLocked()
	w.docs.insert(&models.Document{
		ID:        id,
		Body:      w.placeholder,
		CreatedAt: w.now(),
		IsNew:     true,
	})
	w.mu.Unlock()

	w.logger.Debug("draft created", slog.String("id", id.String()))
	w.emit(EventCreated, id)
	return id
}

// EnsureLoaded reads the body of a document that has not been loaded yet.
// Drafts and loaded documents are returned as they are.
func (w *Workspace) EnsureLoaded(ctx context.Context, id models.DocumentID) (models.Document, error) {
	w.mu.Lock()
	doc, ok := w.docs.get(id)
	if !ok {
		w.mu.Unlock()
		return models.Document{}, notFound(id)
	}
	if doc.HasBody() {
		d := *doc
		w.mu.Unlock()
		return d, nil
	}
	path := doc.Path
	w.mu.Unlock()

	data, err := w.files.Read(ctx, path)
	if err != nil {
		w.logger.Warn("load failed", slog.String("id", id.String()), slog.String("path", path), slog.String("error", err.Error()))
		return models.Document{}, ioFailure("read", path, err)
	}

	w.mu.Lock()
	doc, ok = w.docs.get(id)
	if !ok {
		w.mu.Unlock()
		return models.Document{}, notFound(id)
	}
	loaded := false
	if !doc.HasBody() {
		doc.Body = string(data)
		doc.IsLoaded = true
		loaded = true
	}
	d := *doc
	w.mu.Unlock()

	if loaded {
		w.emit(EventLoaded, id)
	}
	return d, nil
}

// UpdateBody replaces the body and marks the document unsaved.
func (w *Workspace) UpdateBody(id models.DocumentID, body string) error {
	return w.UpdateBodyIfMatch(id, body, "")
}

// UpdateBodyIfMatch is UpdateBody guarded by the checksum of the current
// body. An empty or "*" ifMatch skips the check.
func (w *Workspace) UpdateBodyIfMatch(id models.DocumentID, body, ifMatch string) error {
	w.mu.Lock()
	doc, ok := w.docs.get(id)
	if !ok {
		w.mu.Unlock()
		return notFound(id)
	}
	if !checksum.Matches(ifMatch, doc.Body) {
		w.mu.Unlock()
		return fmt.Errorf("document %s: %w", id, apperr.ErrConflict)
	}
	doc.Body = body
	if !doc.IsNew {
		// An edit made before the file was read becomes the body.
		doc.IsLoaded = true
	}
	w.unsaved.MarkDirty(id)
	w.mu.Unlock()

	w.emit(EventUpdated, id)
	return nil
}

// Rename gives the document a new title and moves it to <dir>/<title>.md.
//
// With isNewHint the body is written to the default directory as a fresh
// file; otherwise the existing file is renamed within its directory. The
// document and the index change only after the file operation succeeds.
func (w *Workspace) Rename(ctx context.Context, id models.DocumentID, title string, isNewHint bool) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return invalidState(id, "empty title")
	}
	if strings.ContainsAny(title, `/\`) {
		return invalidState(id, "title contains a path separator")
	}

	w.mu.Lock()
	doc, ok := w.docs.get(id)
	if !ok {
		w.mu.Unlock()
		return notFound(id)
	}
	oldPath := doc.Path
	var dest, body string
	if isNewHint {
		if !doc.HasBody() {
			w.mu.Unlock()
			return invalidState(id, "body not loaded")
		}
		dest = filepath.Join(w.defaultDir, title+".md")
		body = doc.Body
	} else {
		if doc.IsNew {
			w.mu.Unlock()
			return invalidState(id, "draft has no file to rename")
		}
		dest = filepath.Join(filepath.Dir(oldPath), title+".md")
	}
	if owner, taken := w.pathOwnerLocked(dest); taken && owner != id {
		w.mu.Unlock()
		return fmt.Errorf("rename to %s: %w", dest, apperr.ErrAlreadyExists)
	}
	w.reserved[dest] = id
	w.mu.Unlock()

	var err error
	switch {
	case isNewHint:
		err = w.files.Create(ctx, dest, []byte(body))
	case dest != oldPath:
		err = w.files.Rename(ctx, oldPath, dest)
	}

	w.mu.Lock()
	delete(w.reserved, dest)
	if err != nil {
		w.mu.Unlock()
		w.logger.Warn("rename failed", slog.String("id", id.String()), slog.String("path", dest), slog.String("error", err.Error()))
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return fmt.Errorf("rename to %s: %w", dest, err)
		}
		return ioFailure("rename", dest, err)
	}
	doc, ok = w.docs.get(id)
	if !ok {
		w.mu.Unlock()
		w.logger.Warn("document removed during rename", slog.String("id", id.String()), slog.String("path", dest))
		return notFound(id)
	}
	doc.Title = title
	w.docs.setPath(doc, dest)
	if isNewHint {
		doc.IsNew = false
		doc.IsLoaded = true
		if doc.Body != body {
			w.unsaved.MarkDirty(id)
		} else {
			w.unsaved.Clear(id)
		}
	}
	w.mu.Unlock()

	w.logger.Debug("document renamed", slog.String("id", id.String()), slog.String("path", dest))
	w.emit(EventRenamed, id)
	return w.flush(ctx)
}

// pathOwnerLocked returns the document tracking path or about to take it.
func (w *Workspace) pathOwnerLocked(path string) (models.DocumentID, bool) {
	if id, ok := w.docs.lookupPath(path); ok {
		return id, true
	}
	id, ok := w.reserved[path]
	return id, ok
}

// Delete removes a document. Drafts are dropped from memory; persisted
// documents are dropped only after their file is deleted.
func (w *Workspace) Delete(ctx context.Context, id models.DocumentID) error {
	w.mu.Lock()
	doc, ok := w.docs.get(id)
	if !ok {
		w.mu.Unlock()
		return notFound(id)
	}
	if doc.IsNew {
		w.removeLocked(id)
		w.mu.Unlock()
		w.emit(EventDeleted, id)
		return nil
	}
	path := doc.Path
	w.mu.Unlock()

	if err := w.files.Delete(ctx, path); err != nil {
		w.logger.Warn("delete failed", slog.String("id", id.String()), slog.String("path", path), slog.String("error", err.Error()))
		return ioFailure("delete", path, err)
	}

	w.mu.Lock()
	if !w.docs.has(id) {
		w.mu.Unlock()
		return nil
	}
	w.removeLocked(id)
	w.mu.Unlock()

	w.logger.Debug("document deleted", slog.String("id", id.String()), slog.String("path", path))
	w.emit(EventDeleted, id)
	return w.flush(ctx)
}

// Import adds a not-loaded document for every path not tracked yet and
// returns how many were added. Invalid paths are skipped and reported in the
// returned error without stopping the batch. File contents are not read.
func (w *Workspace) Import(ctx context.Context, paths []string) (int, error) {
	var errs []error
	var added []models.DocumentID

	w.mu.Lock()
	for _, p := range paths {
		if p == "" || !filepath.IsAbs(p) {
			errs = append(errs, fmt.Errorf("import %q: not an absolute path: %w", p, apperr.ErrInvalidState))
			continue
		}
		if _, taken := w.pathOwnerLocked(p); taken {
			continue
		}
		id := w.generateIDLocked()
		w.docs.insert(&models.Document{
			ID:        id,
			Title:     titleFromPath(p),
			Path:      p,
			CreatedAt: w.now(),
		})
		added = append(added, id)
	}
	w.mu.Unlock()

	for _, id := range added {
		w.emit(EventImported, id)
	}
	if len(added) > 0 {
		if err := w.flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	w.logger.Debug("import finished", slog.Int("requested", len(paths)), slog.Int("added", len(added)))
	return len(added), errors.Join(errs...)
}

// ImportWithDialog asks d for Markdown files, imports them and notifies the
// user of how many were added. A cancelled dialog imports nothing.
func (w *Workspace) ImportWithDialog(ctx context.Context, d dialog.Dialog) (int, error) {
	paths, err := d.ChooseFiles(ctx, dialog.Markdown)
	if errors.Is(err, dialog.ErrCancelled) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("choose files: %w: %w", apperr.ErrIO, err)
	}
	n, err := w.Import(ctx, paths)
	if n > 0 {
		d.Notify(ctx, fmt.Sprintf("Imported %d Markdown documents", n))
	}
	return n, err
}

// Save writes the body to the document's file and clears its unsaved
// marker, unless the body was edited again while the write was in flight.
// If the document was renamed or deleted during the write, the file written
// at the old path is removed and the save reports a conflict.
func (w *Workspace) Save(ctx context.Context, id models.DocumentID) error {
	w.mu.Lock()
	doc, ok := w.docs.get(id)
	if !ok {
		w.mu.Unlock()
		return notFound(id)
	}
	if doc.IsNew {
		w.mu.Unlock()
		return invalidState(id, "draft has no file yet")
	}
	if !doc.HasBody() {
		w.mu.Unlock()
		return invalidState(id, "body not loaded")
	}
	path, body := doc.Path, doc.Body
	w.mu.Unlock()

	if err := w.files.Write(ctx, path, []byte(body)); err != nil {
		w.logger.Warn("save failed", slog.String("id", id.String()), slog.String("path", path), slog.String("error", err.Error()))
		return ioFailure("write", path, err)
	}

	w.mu.Lock()
	doc, ok = w.docs.get(id)
	if ok && doc.Path == path {
		if doc.Body == body {
			w.unsaved.Clear(id)
		}
		w.mu.Unlock()
		w.emit(EventSaved, id)
		return nil
	}
	_, taken := w.pathOwnerLocked(path)
	if !taken {
		w.reserved[path] = id
	}
	w.mu.Unlock()

	if !taken {
		w.removeStray(ctx, path)
	}
	if !ok {
		return notFound(id)
	}
	return fmt.Errorf("document %s moved during save: %w", id, apperr.ErrConflict)
}

// removeStray deletes a file written at a path the document no longer
// owns. The caller has reserved path.
func (w *Workspace) removeStray(ctx context.Context, path string) {
	if err := w.files.Delete(context.WithoutCancel(ctx), path); err != nil {
		w.logger.Warn("stale file left behind", slog.String("path", path), slog.String("error", err.Error()))
	}
	w.mu.Lock()
	delete(w.reserved, path)
	w.mu.Unlock()
}

// SaveActive saves the active document.
func (w *Workspace) SaveActive(ctx context.Context) error {
	w.mu.Lock()
	id, ok := w.tabs.Active()
	w.mu.Unlock()
	if !ok {
		return fmt.Errorf("no active document: %w", apperr.ErrInvalidState)
	}
	return w.Save(ctx, id)
}

// Outline loads the document if needed and parses its frontmatter, tags,
// wikilinks and headings.
func (w *Workspace) Outline(ctx context.Context, id models.DocumentID) (*parser.Result, error) {
	doc, err := w.EnsureLoaded(ctx, id)
	if err != nil {
		return nil, err
	}
	return parser.Parse([]byte(doc.Body)), nil
}

// titleFromPath is the file name without its extension.
func titleFromPath(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
