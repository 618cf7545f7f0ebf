package api

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/scribe/internal/checksum"
	"github.com/starford/scribe/internal/dialog"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/parser"
	"github.com/starford/scribe/internal/workspace"
)

// UpdateBodyRequest is the request body for replacing a document body.
type UpdateBodyRequest struct {
	Body *string `json:"body" example:"# Hello\nWorld" validate:"required"`
}

// Validate requires the body field to be present; an empty string is a valid body.
func (r *UpdateBodyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Body, validation.NotNil),
	)
}

// RenameRequest is the request body for naming or renaming a document.
type RenameRequest struct {
	Title string `json:"title" example:"Meeting notes" validate:"required"`
	// IsNew selects whether the body is written to the default directory.
	// When omitted it follows the document's draft flag.
	IsNew *bool `json:"is_new,omitempty"`
}

// Validate checks the title is present and names a single file.
func (r *RenameRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title,
			validation.Required,
			validation.Length(1, 255),
			validation.By(noSeparator),
		),
	)
}

func noSeparator(v any) error {
	s, _ := v.(string)
	if strings.ContainsAny(s, `/\`) {
		return errors.New("must not contain a path separator")
	}
	return nil
}

// ImportRequest selects the files to import: either explicit paths, as
// returned by a native file chooser, or every Markdown file under Dir not
// matched by Exclude.
type ImportRequest struct {
	Paths   []string `json:"paths,omitempty" example:"/home/me/notes/a.md"`
	Dir     string   `json:"dir,omitempty" example:"/home/me/notes"`
	Exclude []string `json:"exclude,omitempty" example:"drafts/**"`
}

// Validate requires exactly one of Paths and Dir.
func (r *ImportRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Paths,
			validation.When(r.Dir == "", validation.Required.Error("paths or dir is required")),
			validation.When(r.Dir != "", validation.Empty.Error("paths and dir are mutually exclusive")),
		),
		validation.Field(&r.Dir, validation.By(absoluteDir)),
		validation.Field(&r.Exclude,
			validation.When(r.Dir == "", validation.Empty.Error("exclude requires dir")),
			validation.By(excludePatterns),
		),
	)
}

func excludePatterns(v any) error {
	patterns, _ := v.([]string)
	_, err := dialog.CompileExclude(patterns)
	return err
}

func absoluteDir(v any) error {
	s, _ := v.(string)
	if s != "" && !filepath.IsAbs(s) {
		return errors.New("must be an absolute path")
	}
	return nil
}

// DocumentResponse is a document as the front-end sees it. Body and
// Checksum are only set once the body is available.
type DocumentResponse struct {
	ID        models.DocumentID `json:"id" example:"3f0c..." validate:"required"`
	Title     string            `json:"title" example:"Hello"`
	Path      string            `json:"path,omitempty" example:"/home/me/Documents/Hello.md"`
	Body      *string           `json:"body,omitempty"`
	Checksum  string            `json:"checksum,omitempty" example:"abc123..."`
	CreatedAt time.Time         `json:"created_at"`
	IsNew     bool              `json:"is_new"`
	IsLoaded  bool              `json:"is_loaded"`
}

func newDocumentResponse(d models.Document, withBody bool) DocumentResponse {
	resp := DocumentResponse{
		ID:        d.ID,
		Title:     d.Title,
		Path:      d.Path,
		CreatedAt: d.CreatedAt,
		IsNew:     d.IsNew,
		IsLoaded:  d.IsLoaded,
	}
	if withBody && d.HasBody() {
		body := d.Body
		resp.Body = &body
		resp.Checksum = checksum.Of(body)
	}
	return resp
}

// DocumentListResponse wraps a document listing.
type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents" validate:"required"`
	Total     int                `json:"total" example:"42" validate:"required"`
}

// MutationResponse is returned by operations whose main effect succeeded.
// Warning is set when the document index could not be saved.
type MutationResponse struct {
	Document *DocumentResponse `json:"document,omitempty"`
	Warning  string            `json:"warning,omitempty"`
}

// ImportResponse reports the outcome of an import.
type ImportResponse struct {
	Added   int      `json:"added" example:"3"`
	Skipped []string `json:"skipped,omitempty"`
	Warning string   `json:"warning,omitempty"`
}

// TabsResponse lists the open tabs.
type TabsResponse struct {
	Tabs     []workspace.Tab   `json:"tabs" validate:"required"`
	ActiveID models.DocumentID `json:"active_id,omitempty"`
	Warning  string            `json:"warning,omitempty"`
}

// OutlineResponse is the parsed structure of a document body.
type OutlineResponse struct {
	ID    models.DocumentID `json:"id"`
	Title string            `json:"title"`

	// DerivedTitle comes from the frontmatter title or the first H1.
	DerivedTitle string           `json:"derived_title,omitempty"`
	Frontmatter  map[string]any   `json:"frontmatter"`
	Headings     []parser.Heading `json:"headings"`
	Tags         []string         `json:"tags"`
	Links        []string         `json:"links"`
}
