// Package testutil provides shared test helpers: a temporary index database
// and fault-injecting wrappers around the file and index capabilities.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/scribe/internal/persist"
	"github.com/starford/scribe/internal/storage"
)

// TestGateway creates a temporary SQLite gateway that is automatically cleaned up.
func TestGateway(t *testing.T) *persist.SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "scribe-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := persist.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// FaultyFS wraps a FileAccess and fails the operations whose error field is
// set. BeforeIO, if non-nil, runs before every call; it may call back into
// the code under test to simulate a user action racing the I/O.
// Fields must not be changed while an operation is running.
type FaultyFS struct {
	storage.FileAccess

	ReadErr   error
	WriteErr  error
	RenameErr error
	DeleteErr error
	BeforeIO  func(op, path string)

	Calls []string
}

// NewFaultyFS wraps the local file system.
func NewFaultyFS() *FaultyFS {
	return &FaultyFS{FileAccess: storage.NewFS()}
}

func (f *FaultyFS) before(op, path string) {
	f.Calls = append(f.Calls, op+":"+path)
	if f.BeforeIO != nil {
		f.BeforeIO(op, path)
	}
}

func (f *FaultyFS) Read(ctx context.Context, path string) ([]byte, error) {
	f.before("read", path)
	if f.ReadErr != nil {
		return nil, f.ReadErr
	}
	return f.FileAccess.Read(ctx, path)
}

func (f *FaultyFS) Write(ctx context.Context, path string, content []byte) error {
	f.before("write", path)
	if f.WriteErr != nil {
		return f.WriteErr
	}
	return f.FileAccess.Write(ctx, path, content)
}

// Create fails with WriteErr and is logged as a write.
func (f *FaultyFS) Create(ctx context.Context, path string, content []byte) error {
	f.before("write", path)
	if f.WriteErr != nil {
		return f.WriteErr
	}
	return f.FileAccess.Create(ctx, path, content)
}

func (f *FaultyFS) Rename(ctx context.Context, oldPath, newPath string) error {
	f.before("rename", oldPath)
	if f.RenameErr != nil {
		return f.RenameErr
	}
	return f.FileAccess.Rename(ctx, oldPath, newPath)
}

func (f *FaultyFS) Delete(ctx context.Context, path string) error {
	f.before("delete", path)
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	return f.FileAccess.Delete(ctx, path)
}

// FaultyGateway wraps a Gateway and fails Set while SetErr is non-nil.
type FaultyGateway struct {
	persist.Gateway
	SetErr error
}

func (g *FaultyGateway) Set(ctx context.Context, key string, value []byte) error {
	if g.SetErr != nil {
		return g.SetErr
	}
	return g.Gateway.Set(ctx, key, value)
}

// WriteFile creates a file under dir and returns its absolute path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}
