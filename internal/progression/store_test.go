package progression

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/starford/rpgify/internal/checksum"
	"github.com/starford/rpgify/internal/models"
)

// memStore is an in-memory Store that counts writes.
type memStore struct {
	mu      sync.Mutex
	files   map[string]string
	writes  map[string]int
	readErr map[string]error
}

func newMemStore(files map[string]string) *memStore {
	s := &memStore{files: map[string]string{}, writes: map[string]int{}, readErr: map[string]error{}}
	for k, v := range files {
		s.files[k] = v
	}
	return s
}

func (s *memStore) List(string) ([]models.NoteMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.NoteMetadata
	for p, c := range s.files {
		out = append(out, models.NoteMetadata{Path: p, Checksum: checksum.Sum([]byte(c))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path > out[j].Path })
	return out, nil
}

func (s *memStore) Read(p string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readErr[p]; err != nil {
		return nil, err
	}
	c, ok := s.files[p]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", p, os.ErrNotExist)
	}
	return []byte(c), nil
}

func (s *memStore) Write(p string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[p] = string(content)
	s.writes[p]++
	return nil
}

func (s *memStore) get(p string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[p]
}

func (s *memStore) writeCount(p string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[p]
}
