package workspace

import (
	"strings"

	"github.com/starford/scribe/internal/models"
)

// FilterByTitle returns the documents whose title contains keyword,
// preserving order. Matching is case-sensitive; an empty keyword matches all.
func FilterByTitle(docs []models.Document, keyword string) []models.Document {
	out := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if strings.Contains(d.Title, keyword) {
			out = append(out, d)
		}
	}
	return out
}
