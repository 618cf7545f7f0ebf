// Package dialog models the file chooser and notification capabilities the
// import flow depends on, independent of how a front-end renders them.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/moby/patternmatcher"
)

// ErrCancelled is returned by ChooseFiles when the user dismisses the chooser.
var ErrCancelled = errors.New("dialog: cancelled")

// Filter restricts selectable files by extension.
type Filter struct {
	Name       string
	Extensions []string // without leading dot
}

// Markdown is the filter used by the import flow.
var Markdown = Filter{Name: "Markdown files", Extensions: []string{"md"}}

// Match reports whether path has one of the filter's extensions.
// An empty filter matches everything.
func (f Filter) Match(path string) bool {
	if len(f.Extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	for _, e := range f.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// Dialog is a request/response chooser plus a non-blocking user notice.
type Dialog interface {
	ChooseFiles(ctx context.Context, filter Filter) ([]string, error)
	Notify(ctx context.Context, message string)
}

// Notifier receives user-facing messages.
type Notifier func(message string)

// Static answers ChooseFiles with a fixed selection, the way a front-end
// posts the paths its native dialog returned. A nil selection means the
// user cancelled.
type Static struct {
	Paths    []string
	OnNotify Notifier
}

// ChooseFiles returns the preset paths that pass filter.
func (s *Static) ChooseFiles(ctx context.Context, filter Filter) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Paths == nil {
		return nil, ErrCancelled
	}
	out := make([]string, 0, len(s.Paths))
	for _, p := range s.Paths {
		if filter.Match(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Notify forwards message to the configured notifier, if any.
func (s *Static) Notify(_ context.Context, message string) {
	if s.OnNotify != nil {
		s.OnNotify(message)
	}
}

// Lister enumerates Markdown files under a directory.
type Lister interface {
	List(dir string) ([]string, error)
}

// Directory selects every matching file under Dir, skipping paths that
// match one of the .dockerignore-style Exclude patterns (relative to Dir).
type Directory struct {
	Dir      string
	Exclude  []string
	Files    Lister
	OnNotify Notifier
}

// CompileExclude parses exclude patterns. A nil matcher means none were given.
func CompileExclude(patterns []string) (*patternmatcher.PatternMatcher, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	pm, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, fmt.Errorf("dialog: exclude patterns: %w", err)
	}
	return pm, nil
}

// ChooseFiles lists Dir and returns the files that pass filter.
func (d *Directory) ChooseFiles(ctx context.Context, filter Filter) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Dir == "" {
		return nil, ErrCancelled
	}
	exclude, err := CompileExclude(d.Exclude)
	if err != nil {
		return nil, err
	}
	paths, err := d.Files.List(d.Dir)
	if err != nil {
		return nil, err
	}
	out := paths[:0]
	for _, p := range paths {
		if !filter.Match(p) {
			continue
		}
		if exclude != nil {
			rel, err := filepath.Rel(d.Dir, p)
			if err != nil {
				return nil, err
			}
			skip, err := exclude.MatchesOrParentMatches(rel)
			if err != nil {
				return nil, err
			}
			if skip {
				continue
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// Notify forwards message to the configured notifier, if any.
func (d *Directory) Notify(_ context.Context, message string) {
	if d.OnNotify != nil {
		d.OnNotify(message)
	}
}
