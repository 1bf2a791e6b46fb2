package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/srstomp/ohno/pkg/models"
	"gopkg.in/yaml.v3"
)

// edgesFile is the top-level structure of edges.yaml.
type edgesFile struct {
	Version string        `yaml:"version"`
	Edges   []models.Edge `yaml:"edges"`
}

// EdgeStoreManager persists dependency edges. Cycle checking lives in the
// dependency graph; the store only records edges that passed it.
type EdgeStoreManager interface {
	Add(edge models.Edge) error
	Remove(edge models.Edge) error
	All() ([]models.Edge, error)
	Load() error
	Save() error
}

type fileEdgeStore struct {
	basePath string

	mu   sync.RWMutex
	data edgesFile
}

// NewEdgeStoreManager creates an EdgeStoreManager backed by edges.yaml in
// the given base directory.
func NewEdgeStoreManager(basePath string) EdgeStoreManager {
	return &fileEdgeStore{
		basePath: basePath,
		data:     edgesFile{Version: "1.0"},
	}
}

func (s *fileEdgeStore) filePath() string {
	return filepath.Join(s.basePath, "edges.yaml")
}

// Add records an edge. Duplicate edges are rejected.
func (s *fileEdgeStore) Add(edge models.Edge) error {
	if edge.From == "" || edge.To == "" {
		return fmt.Errorf("adding edge: both endpoints must be set")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.data.Edges {
		if e == edge {
			return fmt.Errorf("adding edge: %s -> %s already exists", edge.From, edge.To)
		}
	}
	s.data.Edges = append(s.data.Edges, edge)
	if err := s.saveLocked(); err != nil {
		s.data.Edges = s.data.Edges[:len(s.data.Edges)-1]
		return fmt.Errorf("adding edge %s -> %s: %w", edge.From, edge.To, err)
	}
	return nil
}

// Remove deletes an edge if present.
func (s *fileEdgeStore) Remove(edge models.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.data.Edges {
		if e == edge {
			s.data.Edges = append(s.data.Edges[:i], s.data.Edges[i+1:]...)
			return s.saveLocked()
		}
	}
	return fmt.Errorf("removing edge: %s -> %s not found", edge.From, edge.To)
}

// All returns a sorted snapshot of the edges.
func (s *fileEdgeStore) All() ([]models.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edges := make([]models.Edge, len(s.data.Edges))
	copy(edges, s.data.Edges)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges, nil
}

// Load reads edges.yaml from disk. A missing file is treated as empty.
func (s *fileEdgeStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			s.data = edgesFile{Version: "1.0"}
			return nil
		}
		return fmt.Errorf("loading edges: %w", err)
	}

	var ef edgesFile
	if err := yaml.Unmarshal(data, &ef); err != nil {
		return fmt.Errorf("loading edges: parsing YAML: %w", err)
	}
	if ef.Version == "" {
		ef.Version = "1.0"
	}
	s.data = ef
	return nil
}

// Save persists the edges to disk.
func (s *fileEdgeStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *fileEdgeStore) saveLocked() error {
	if err := os.MkdirAll(s.basePath, 0o750); err != nil {
		return fmt.Errorf("saving edges: creating directory: %w", err)
	}
	data, err := yaml.Marshal(&s.data)
	if err != nil {
		return fmt.Errorf("saving edges: marshaling YAML: %w", err)
	}
	if err := os.WriteFile(s.filePath(), data, 0o600); err != nil {
		return fmt.Errorf("saving edges: writing file: %w", err)
	}
	return nil
}
