package workspace

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/starford/scribe/internal/models"
)

// IndexKey is the gateway key holding the document index.
const IndexKey = "files"

// encodeIndex serialises every persisted (non-draft) document as a JSON
// object keyed by id.
func encodeIndex(docs []models.Document) ([]byte, error) {
	records := make(map[models.DocumentID]models.IndexRecord, len(docs))
	for i := range docs {
		if docs[i].IsNew || docs[i].Path == "" {
			continue
		}
		records[docs[i].ID] = docs[i].Record()
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("workspace: encode index: %w", err)
	}
	return data, nil
}

// decodeIndex parses a stored index and returns its records ordered by
// creation time, then id.
func decodeIndex(data []byte) ([]models.IndexRecord, error) {
	var records map[string]models.IndexRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("workspace: decode index: %w", err)
	}
	out := make([]models.IndexRecord, 0, len(records))
	for key, rec := range records {
		if rec.ID == "" {
			rec.ID = models.DocumentID(key)
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
