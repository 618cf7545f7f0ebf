// Package storage defines the file access capability used by the workspace.
package storage

import "context"

// FileAccess reads and mutates Markdown files by absolute path.
type FileAccess interface {
	// Read returns the raw bytes of the file at path.
	Read(ctx context.Context, path string) ([]byte, error)
	// Write replaces (or creates) the file at path with content.
	Write(ctx context.Context, path string, content []byte) error
	// Create writes a new file and fails with apperr.ErrAlreadyExists if
	// path is taken.
	Create(ctx context.Context, path string, content []byte) error
	// Rename moves oldPath to newPath.
	Rename(ctx context.Context, oldPath, newPath string) error
	// Delete removes the file at path. A missing file is not an error.
	Delete(ctx context.Context, path string) error
}

// Verify *FS satisfies FileAccess at compile time.
var _ FileAccess = (*FS)(nil)
