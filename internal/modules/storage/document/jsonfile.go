package document

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/syllabind/core/internal/models"
)

// jsonIndex is the on-disk shape of the whole index document.
type jsonIndex struct {
	Syllabi []models.SyllabusModel `json:"syllabi"`
}

// JSONFileRepository keeps the entire index in one JSON document, read and
// rewritten in full on every mutation. A process-wide mutex is the only
// concurrency protection, which is fine for a single-process deployment
// with low write volume.
type JSONFileRepository struct {
	mu   sync.Mutex
	path string
}

func NewJSONFileRepository(path string) *JSONFileRepository {
	return &JSONFileRepository{path: path}
}

func (r *JSONFileRepository) Append(record *models.SyllabusModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.load()
	if err != nil {
		return err
	}
	for _, existing := range idx.Syllabi {
		if existing.Slug == record.Slug {
			return ErrDuplicateSlug
		}
	}
	idx.Syllabi = append(idx.Syllabi, *record)
	return r.persist(idx)
}

func (r *JSONFileRepository) Find(slug string) (*models.SyllabusModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.load()
	if err != nil {
		return nil, err
	}
	for i := range idx.Syllabi {
		if idx.Syllabi[i].Slug == slug {
			record := idx.Syllabi[i]
			return &record, nil
		}
	}
	return nil, nil
}

func (r *JSONFileRepository) All() ([]models.SyllabusModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.load()
	if err != nil {
		return nil, err
	}
	return idx.Syllabi, nil
}

func (r *JSONFileRepository) Remove(slugs []string) error {
	if len(slugs) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.load()
	if err != nil {
		return err
	}

	drop := make(map[string]bool, len(slugs))
	for _, slug := range slugs {
		drop[slug] = true
	}

	kept := idx.Syllabi[:0]
	for _, record := range idx.Syllabi {
		if !drop[record.Slug] {
			kept = append(kept, record)
		}
	}
	if len(kept) == len(idx.Syllabi) {
		return nil
	}
	idx.Syllabi = kept
	return r.persist(idx)
}

func (r *JSONFileRepository) load() (jsonIndex, error) {
	var idx jsonIndex
	content, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return idx, fmt.Errorf("read index %q: %w", r.path, err)
	}
	if len(content) == 0 {
		return idx, nil
	}
	if err := json.Unmarshal(content, &idx); err != nil {
		return idx, fmt.Errorf("parse index %q: %w", r.path, err)
	}
	return idx, nil
}

// persist writes the full document to a sibling temp file and renames it
// into place so readers never observe a half-written index.
func (r *JSONFileRepository) persist(idx jsonIndex) error {
	if idx.Syllabi == nil {
		idx.Syllabi = []models.SyllabusModel{}
	}
	content, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".index-*.json")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
