package workspace

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/scribe/internal/models"
)

// DefaultPlaceholder is the body every new draft starts with.
const DefaultPlaceholder = "## Start writing Markdown"

// Event kinds passed to EventCallback.
const (
	EventCreated  = "document.created"
	EventLoaded   = "document.loaded"
	EventUpdated  = "document.updated"
	EventRenamed  = "document.renamed"
	EventSaved    = "document.saved"
	EventDeleted  = "document.deleted"
	EventImported = "document.imported"
	EventTabs     = "tabs.updated"
)

// EventCallback is called after a state change has been applied.
type EventCallback func(kind string, id models.DocumentID)

// Option is a functional option for configuring a Workspace.
type Option func(*Workspace)

// WithDefaultDir sets the directory drafts are written to on first rename.
func WithDefaultDir(dir string) Option {
	return func(w *Workspace) {
		w.defaultDir = dir
	}
}

// WithPlaceholder sets the initial body of new drafts.
func WithPlaceholder(body string) Option {
	return func(w *Workspace) {
		w.placeholder = body
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) {
		w.logger = logger
	}
}

// WithEventCallback registers cb for state change events.
func WithEventCallback(cb EventCallback) Option {
	return func(w *Workspace) {
		w.onEvent = cb
	}
}

// WithNotifier registers fn for user-facing messages such as index
// persistence warnings.
func WithNotifier(fn func(message string)) Option {
	return func(w *Workspace) {
		w.notify = fn
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Workspace) {
		w.now = now
	}
}

// WithIDGenerator overrides how document ids are generated.
func WithIDGenerator(gen func() models.DocumentID) Option {
	return func(w *Workspace) {
		w.newID = gen
	}
}

func newUUID() models.DocumentID {
	return models.DocumentID(uuid.NewString())
}
