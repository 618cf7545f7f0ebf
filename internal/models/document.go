// Package models defines the domain types for scribe.
package models

import "time"

// DocumentID identifies a document for the lifetime of the process and
// across restarts once the document is in the index.
type DocumentID string

func (id DocumentID) String() string { return string(id) }

// Document is a Markdown document known to the workspace.
//
// A draft has IsNew set and no Path. A document restored from the index or
// imported has a Path but no Body until it is loaded.
type Document struct {
	ID        DocumentID `json:"id"`
	Title     string     `json:"title"`
	Path      string     `json:"path,omitempty"`
	Body      string     `json:"body,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	IsNew     bool       `json:"is_new"`
	IsLoaded  bool       `json:"is_loaded"`
}

// HasBody reports whether Body holds the document content.
func (d *Document) HasBody() bool {
	return d.IsNew || d.IsLoaded
}

// IndexRecord is the persisted form of a document. The body and the
// transient flags never leave memory.
type IndexRecord struct {
	ID        DocumentID `json:"id"`
	Path      string     `json:"path"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Record returns the index form of d.
func (d *Document) Record() IndexRecord {
	return IndexRecord{
		ID:        d.ID,
		Path:      d.Path,
		Title:     d.Title,
		CreatedAt: d.CreatedAt,
	}
}
