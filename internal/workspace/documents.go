package workspace

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/starford/scribe/internal/models"
)

// documentStore is the insertion-ordered id → document map with a path
// lookup that keeps at most one document per file.
type documentStore struct {
	byID   *orderedmap.OrderedMap[models.DocumentID, *models.Document]
	byPath map[string]models.DocumentID
}

func newDocumentStore() *documentStore {
	return &documentStore{
		byID:   orderedmap.New[models.DocumentID, *models.Document](),
		byPath: make(map[string]models.DocumentID),
	}
}

func (s *documentStore) get(id models.DocumentID) (*models.Document, bool) {
	return s.byID.Get(id)
}

func (s *documentStore) has(id models.DocumentID) bool {
	_, ok := s.byID.Get(id)
	return ok
}

func (s *documentStore) insert(doc *models.Document) {
	s.byID.Set(doc.ID, doc)
	if doc.Path != "" {
		s.byPath[doc.Path] = doc.ID
	}
}

func (s *documentStore) remove(id models.DocumentID) (*models.Document, bool) {
	doc, ok := s.byID.Delete(id)
	if ok && doc.Path != "" && s.byPath[doc.Path] == id {
		delete(s.byPath, doc.Path)
	}
	return doc, ok
}

// setPath moves doc to path, keeping the path lookup in sync.
func (s *documentStore) setPath(doc *models.Document, path string) {
	if doc.Path != "" && s.byPath[doc.Path] == doc.ID {
		delete(s.byPath, doc.Path)
	}
	doc.Path = path
	if path != "" {
		s.byPath[path] = doc.ID
	}
}

func (s *documentStore) lookupPath(path string) (models.DocumentID, bool) {
	id, ok := s.byPath[path]
	return id, ok
}

func (s *documentStore) len() int {
	return s.byID.Len()
}

// values returns copies of all documents in insertion order.
func (s *documentStore) values() []models.Document {
	out := make([]models.Document, 0, s.byID.Len())
	for pair := s.byID.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, *pair.Value)
	}
	return out
}
