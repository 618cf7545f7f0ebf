// Package workspace tracks which Markdown documents exist, which are open in
// tabs, which one is active and which have unsaved edits, and moves documents
// between the draft, persisted, loaded and removed states.
//
// All methods are safe for concurrent use. File and index I/O never runs
// under the state lock: every operation captures what it needs, performs the
// I/O, then re-reads the live state and applies its effect only if the I/O
// succeeded and the document still exists.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/persist"
	"github.com/starford/scribe/internal/storage"
)

// Workspace owns the document store, the tabs and the unsaved set.
type Workspace struct {
	mu       sync.Mutex
	docs     *documentStore
	tabs     TabManager
	unsaved  UnsavedTracker
	reserved map[string]models.DocumentID // paths claimed by in-flight file operations

	flushMu sync.Mutex

	files       storage.FileAccess
	gateway     persist.Gateway
	defaultDir  string
	placeholder string
	logger      *slog.Logger
	onEvent     EventCallback
	notify      func(message string)
	now         func() time.Time
	newID       func() models.DocumentID
}

// State is a point-in-time copy of the workspace.
type State struct {
	Documents []models.Document   `json:"documents"`
	OpenTabs  []models.DocumentID `json:"open_tabs"`
	ActiveID  models.DocumentID   `json:"active_id,omitempty"`
	Unsaved   []models.DocumentID `json:"unsaved"`
}

// Tab is the render model of one open tab.
type Tab struct {
	ID      models.DocumentID `json:"id"`
	Title   string            `json:"title"`
	Active  bool              `json:"active"`
	Unsaved bool              `json:"unsaved"`
}

// New creates an empty workspace.
func New(files storage.FileAccess, gateway persist.Gateway, opts ...Option) *Workspace {
	w := &Workspace{
		docs:        newDocumentStore(),
		reserved:    make(map[string]models.DocumentID),
		files:       files,
		gateway:     gateway,
		placeholder: DefaultPlaceholder,
		logger:      slog.Default(),
		now:         time.Now,
		newID:       newUUID,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Open creates a workspace and restores the document index from gateway.
// Restored documents are not loaded; their bodies are read on first open.
func Open(ctx context.Context, files storage.FileAccess, gateway persist.Gateway, opts ...Option) (*Workspace, error) {
	w := New(files, gateway, opts...)
	if err := w.restore(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Workspace) restore(ctx context.Context) error {
	data, ok, err := w.gateway.Get(ctx, IndexKey)
	if err != nil {
		return fmt.Errorf("workspace: read index: %w: %w", apperr.ErrPersistence, err)
	}
	if !ok {
		return nil
	}
	records, err := decodeIndex(data)
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrPersistence, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, rec := range records {
		if rec.Path == "" {
			w.logger.Warn("index: skipping record without path", slog.String("id", rec.ID.String()))
			continue
		}
		if _, dup := w.docs.lookupPath(rec.Path); dup {
			w.logger.Warn("index: skipping duplicate path",
				slog.String("id", rec.ID.String()),
				slog.String("path", rec.Path))
			continue
		}
		w.docs.insert(&models.Document{
			ID:        rec.ID,
			Title:     rec.Title,
			Path:      rec.Path,
			CreatedAt: rec.CreatedAt,
		})
	}
	w.logger.Info("index: restored", slog.Int("documents", w.docs.len()))
	return nil
}

// Get returns a copy of the document.
func (w *Workspace) Get(id models.DocumentID) (models.Document, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	doc, ok := w.docs.get(id)
	if !ok {
		return models.Document{}, notFound(id)
	}
	return *doc, nil
}

// Documents returns every document in insertion order.
func (w *Workspace) Documents() []models.Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.docs.values()
}

// Search returns the documents whose title contains keyword.
func (w *Workspace) Search(keyword string) []models.Document {
	return FilterByTitle(w.Documents(), keyword)
}

// Snapshot returns a consistent copy of the whole workspace state.
func (w *Workspace) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	active, _ := w.tabs.Active()
	return State{
		Documents: w.docs.values(),
		OpenTabs:  w.tabs.IDs(),
		ActiveID:  active,
		Unsaved:   w.unsaved.IDs(),
	}
}

// Tabs returns the open tabs in order with their active and unsaved markers.
func (w *Workspace) Tabs() []Tab {
	w.mu.Lock()
	defer w.mu.Unlock()
	active, _ := w.tabs.Active()
	ids := w.tabs.IDs()
	out := make([]Tab, 0, len(ids))
	for _, id := range ids {
		doc, ok := w.docs.get(id)
		if !ok {
			continue
		}
		out = append(out, Tab{
			ID:      id,
			Title:   doc.Title,
			Active:  id == active,
			Unsaved: w.unsaved.Contains(id),
		})
	}
	return out
}

// Active returns the active document, if any.
func (w *Workspace) Active() (models.Document, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, ok := w.tabs.Active()
	if !ok {
		return models.Document{}, false
	}
	doc, ok := w.docs.get(id)
	if !ok {
		return models.Document{}, false
	}
	return *doc, true
}

// OpenDocument loads the document if needed, then opens it in a tab and
// makes it active. A failed load opens nothing.
func (w *Workspace) OpenDocument(ctx context.Context, id models.DocumentID) (models.Document, error) {
	doc, err := w.EnsureLoaded(ctx, id)
	if err != nil {
		return models.Document{}, err
	}

	w.mu.Lock()
	if !w.docs.has(id) {
		w.mu.Unlock()
		return models.Document{}, notFound(id)
	}
	w.tabs.Open(id)
	w.mu.Unlock()

	w.emit(EventTabs, id)
	return doc, nil
}

// SelectTab makes an open tab active.
func (w *Workspace) SelectTab(id models.DocumentID) error {
	w.mu.Lock()
	err := w.tabs.Select(id)
	w.mu.Unlock()
	if err != nil {
		return err
	}
	w.emit(EventTabs, id)
	return nil
}

// CloseTab closes the tab for id. The document itself is kept.
func (w *Workspace) CloseTab(id models.DocumentID) {
	w.mu.Lock()
	closed := w.tabs.Close(id)
	w.mu.Unlock()
	if closed {
		w.emit(EventTabs, id)
	}
}

// removeLocked drops id from every view. Caller holds w.mu.
func (w *Workspace) removeLocked(id models.DocumentID) {
	w.docs.remove(id)
	w.tabs.Close(id)
	w.unsaved.Clear(id)
}

// generateIDLocked returns an id not used by any tracked document.
func (w *Workspace) generateIDLocked() models.DocumentID {
	for {
		id := w.newID()
		if !w.docs.has(id) {
			return id
		}
	}
}

// flush writes the index of persisted documents to the gateway. Flushes are
// serialised and always snapshot the state after acquiring flushMu, so a
// later flush never stores an older state.
func (w *Workspace) flush(ctx context.Context) error {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.mu.Lock()
	data, err := encodeIndex(w.docs.values())
	w.mu.Unlock()
	if err == nil {
		// The triggering change is already applied; finish the write even if
		// the caller has gone away.
		err = w.gateway.Set(context.WithoutCancel(ctx), IndexKey, data)
	}
	if err != nil {
		w.logger.Warn("index: flush failed", slog.String("error", err.Error()))
		w.notifyUser(fmt.Sprintf("Could not save the document index: %v", err))
		return fmt.Errorf("workspace: flush index: %w: %w", apperr.ErrPersistence, err)
	}
	return nil
}

func (w *Workspace) emit(kind string, id models.DocumentID) {
	if w.onEvent != nil {
		w.onEvent(kind, id)
	}
}

func (w *Workspace) notifyUser(message string) {
	if w.notify != nil {
		w.notify(message)
	}
}

func notFound(id models.DocumentID) error {
	return fmt.Errorf("document %s: %w", id, apperr.ErrNotFound)
}

func invalidState(id models.DocumentID, reason string) error {
	return fmt.Errorf("document %s: %s: %w", id, reason, apperr.ErrInvalidState)
}

func ioFailure(op, path string, err error) error {
	if errors.Is(err, apperr.ErrIO) {
		return err
	}
	return fmt.Errorf("%s %s: %w: %w", op, path, apperr.ErrIO, err)
}
