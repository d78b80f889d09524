// Package favorites keeps named queries in a YAML file.
package favorites

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrNotFound  = errors.New("favorite not found")
	ErrDuplicate = errors.New("a favorite with this name already exists")
)

// Favorite is a saved query. Names are unique, ignoring case.
type Favorite struct {
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Query       string    `yaml:"query" json:"query"`
	Connection  string    `yaml:"connection,omitempty" json:"connection,omitempty"`
	Database    string    `yaml:"database,omitempty" json:"database,omitempty"`
	Tags        []string  `yaml:"tags,omitempty" json:"tags,omitempty"`
	CreatedAt   time.Time `yaml:"created_at" json:"createdAt"`
	UsageCount  int       `yaml:"usage_count" json:"usageCount"`
	LastUsed    time.Time `yaml:"last_used,omitempty" json:"lastUsed,omitempty"`
}

// Store manages the favorites file. Every change is written through.
type Store struct {
	mu        sync.Mutex
	path      string
	favorites []Favorite
}

// Open loads the favorites at path. A missing file is an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read favorites file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.favorites); err != nil {
		return nil, fmt.Errorf("failed to parse favorites: %w", err)
	}
	return s, nil
}

func (s *Store) save() error {
	data, err := yaml.Marshal(s.favorites)
	if err != nil {
		return fmt.Errorf("failed to marshal favorites: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write favorites file: %w", err)
	}
	return nil
}

func (s *Store) index(name string) int {
	for i := range s.favorites {
		if strings.EqualFold(s.favorites[i].Name, name) {
			return i
		}
	}
	return -1
}

// Add saves a new favorite
func (s *Store) Add(f Favorite) (Favorite, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Query = strings.TrimSpace(f.Query)
	f.Description = strings.TrimSpace(f.Description)
	if f.Name == "" {
		return Favorite{}, errors.New("favorite name cannot be empty")
	}
	if f.Query == "" {
		return Favorite{}, errors.New("favorite query cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index(f.Name) >= 0 {
		return Favorite{}, fmt.Errorf("%w: %s", ErrDuplicate, f.Name)
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	f.UsageCount = 0
	f.LastUsed = time.Time{}

	s.favorites = append(s.favorites, f)
	if err := s.save(); err != nil {
		s.favorites = s.favorites[:len(s.favorites)-1]
		return Favorite{}, err
	}
	return f, nil
}

// Delete removes the favorite called name
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	removed := s.favorites[i]
	s.favorites = append(s.favorites[:i], s.favorites[i+1:]...)
	if err := s.save(); err != nil {
		s.favorites = append(s.favorites[:i], append([]Favorite{removed}, s.favorites[i:]...)...)
		return err
	}
	return nil
}

// Get returns the favorite called name
func (s *Store) Get(name string) (Favorite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(name)
	if i < 0 {
		return Favorite{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s.favorites[i], nil
}

// List returns all favorites sorted by name
func (s *Store) List() []Favorite {
	s.mu.Lock()
	out := append([]Favorite(nil), s.favorites...)
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Search matches text against name, description, query and tags
func (s *Store) Search(text string) []Favorite {
	all := s.List()
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return all
	}

	var out []Favorite
	for _, f := range all {
		if matches(f, text) {
			out = append(out, f)
		}
	}
	return out
}

func matches(f Favorite, text string) bool {
	if strings.Contains(strings.ToLower(f.Name), text) ||
		strings.Contains(strings.ToLower(f.Description), text) ||
		strings.Contains(strings.ToLower(f.Query), text) {
		return true
	}
	for _, tag := range f.Tags {
		if strings.Contains(strings.ToLower(tag), text) {
			return true
		}
	}
	return false
}

// RecordUsage bumps the usage counter of the favorite called name
func (s *Store) RecordUsage(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	s.favorites[i].UsageCount++
	s.favorites[i].LastUsed = time.Now()
	return s.save()
}

// MostUsed returns up to limit favorites, most used first
func (s *Store) MostUsed(limit int) []Favorite {
	out := s.List()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UsageCount > out[j].UsageCount
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}
