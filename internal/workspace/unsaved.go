package workspace

import (
	"slices"

	"github.com/starford/scribe/internal/models"
)

// UnsavedTracker records documents whose in-memory body differs from what
// was last read from or written to disk, in the order they became dirty.
type UnsavedTracker struct {
	ids []models.DocumentID
}

// MarkDirty adds id; marking twice is a no-op.
func (u *UnsavedTracker) MarkDirty(id models.DocumentID) {
	if !u.Contains(id) {
		u.ids = append(u.ids, id)
	}
}

// Clear removes id.
func (u *UnsavedTracker) Clear(id models.DocumentID) {
	if i := slices.Index(u.ids, id); i >= 0 {
		u.ids = slices.Delete(u.ids, i, i+1)
	}
}

// Contains reports whether id is dirty.
func (u *UnsavedTracker) Contains(id models.DocumentID) bool {
	return slices.Contains(u.ids, id)
}

// IDs returns the dirty ids.
func (u *UnsavedTracker) IDs() []models.DocumentID {
	return slices.Clone(u.ids)
}
