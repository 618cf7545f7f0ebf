package workspace

import (
	"fmt"
	"slices"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/models"
)

// TabManager tracks the ordered set of open documents and the active one.
// Closing a tab never deletes the document behind it.
// TabManager is not safe for concurrent use; Workspace guards it.
type TabManager struct {
	open   []models.DocumentID
	active models.DocumentID
}

// Open appends id if it is not open yet and makes it active.
func (t *TabManager) Open(id models.DocumentID) {
	if !t.Contains(id) {
		t.open = append(t.open, id)
	}
	t.active = id
}

// Select makes an already open tab active.
func (t *TabManager) Select(id models.DocumentID) error {
	if !t.Contains(id) {
		return fmt.Errorf("tab %s: %w", id, apperr.ErrNotFound)
	}
	t.active = id
	return nil
}

// Close removes id from the open tabs. When the active tab is closed the
// first remaining tab becomes active, or none when no tab is left.
// It reports whether id was open.
func (t *TabManager) Close(id models.DocumentID) bool {
	i := slices.Index(t.open, id)
	if i < 0 {
		return false
	}
	t.open = slices.Delete(t.open, i, i+1)
	if t.active == id {
		t.active = ""
		if len(t.open) > 0 {
			t.active = t.open[0]
		}
	}
	return true
}

// Contains reports whether id is open.
func (t *TabManager) Contains(id models.DocumentID) bool {
	return slices.Contains(t.open, id)
}

// Active returns the active id, if any.
func (t *TabManager) Active() (models.DocumentID, bool) {
	return t.active, t.active != ""
}

// IDs returns the open ids in tab order.
func (t *TabManager) IDs() []models.DocumentID {
	return slices.Clone(t.open)
}
