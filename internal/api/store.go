package api

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/david/eventfeed/internal/ingest"
	"github.com/david/eventfeed/internal/models"
)

// ErrNoDataset is returned until the updater has written the file once.
var ErrNoDataset = errors.New("dataset not generated yet")

// Store serves the dataset file, re-reading it whenever its mtime changes.
type Store struct {
	path string

	mu      sync.RWMutex
	ds      models.Dataset
	modTime time.Time
	size    int64
	loaded  bool
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Dataset returns the current dataset.
func (s *Store) Dataset() (models.Dataset, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Dataset{}, ErrNoDataset
		}
		return models.Dataset{}, fmt.Errorf("stat dataset: %w", err)
	}

	s.mu.RLock()
	if s.loaded && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		ds := s.ds
		s.mu.RUnlock()
		return ds, nil
	}
	s.mu.RUnlock()

	ds, err := ingest.ReadDataset(s.path)
	if err != nil {
		return models.Dataset{}, err
	}

	s.mu.Lock()
	s.ds, s.modTime, s.size, s.loaded = ds, info.ModTime(), info.Size(), true
	s.mu.Unlock()
	return ds, nil
}

// Invalidate forces the next Dataset call to re-read the file.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
}
