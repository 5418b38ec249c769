// Package vocab loads and serves the aesthetic vocabulary catalog.
// The catalog is read-mostly and shared across jobs; loading happens at most
// once behind a guard.
package vocab

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/moorea/moodboard/internal/domain"
	"github.com/moorea/moodboard/internal/logger"
)

// ErrUnknownAesthetic is returned when a category is not in the catalog.
var ErrUnknownAesthetic = errors.New("unknown aesthetic")

type catalogFile struct {
	Aesthetics map[string]domain.Aesthetic `yaml:"aesthetics"`
}

// Store serves the aesthetic catalog. Safe for concurrent use after Load.
type Store struct {
	path   string
	logger logger.Logger

	once    sync.Once
	loadErr error

	aesthetics map[string]domain.Aesthetic
	names      []string
}

// NewStore creates a store reading the catalog from path.
func NewStore(path string, log logger.Logger) *Store {
	return &Store{path: path, logger: log}
}

// Load parses the catalog file. Calling it more than once is a no-op;
// every accessor calls it lazily.
func (s *Store) Load() error {
	s.once.Do(func() {
		data, err := os.ReadFile(s.path)
		if err != nil {
			s.loadErr = fmt.Errorf("read vocabulary %s: %w", s.path, err)
			return
		}

		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			s.loadErr = fmt.Errorf("parse vocabulary: %w", err)
			return
		}
		if len(file.Aesthetics) == 0 {
			s.loadErr = fmt.Errorf("vocabulary %s contains no aesthetics", s.path)
			return
		}

		s.aesthetics = make(map[string]domain.Aesthetic, len(file.Aesthetics))
		s.names = make([]string, 0, len(file.Aesthetics))
		for name, a := range file.Aesthetics {
			a.Name = name
			s.aesthetics[name] = a
			s.names = append(s.names, name)
		}
		// Stable prompt order regardless of map iteration.
		sort.Strings(s.names)

		s.logger.Info("aesthetic vocabulary loaded",
			logger.String("path", s.path),
			logger.Int("aesthetics", len(s.names)),
		)
	})
	return s.loadErr
}

// Vocabulary returns all category names.
func (s *Store) Vocabulary() ([]string, error) {
	if err := s.Load(); err != nil {
		return nil, err
	}
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out, nil
}

// Get returns the catalog entry for name.
func (s *Store) Get(name string) (domain.Aesthetic, error) {
	if err := s.Load(); err != nil {
		return domain.Aesthetic{}, err
	}
	a, ok := s.aesthetics[name]
	if !ok {
		return domain.Aesthetic{}, fmt.Errorf("%w: %s", ErrUnknownAesthetic, name)
	}
	return a, nil
}

// Keywords returns the positive search keywords for name, or nil when the
// category is unknown.
func (s *Store) Keywords(name string) []string {
	a, err := s.Get(name)
	if err != nil {
		return nil
	}
	return a.Keywords
}

// NegativeKeywords returns the excluded keywords for name, or nil when the
// category is unknown.
func (s *Store) NegativeKeywords(name string) []string {
	a, err := s.Get(name)
	if err != nil {
		return nil
	}
	return a.NegativeKeywords
}

// Description returns the human description for name, empty when unknown.
func (s *Store) Description(name string) string {
	a, err := s.Get(name)
	if err != nil {
		return ""
	}
	return a.Description
}

// All returns the full catalog keyed by category name.
func (s *Store) All() (map[string]domain.Aesthetic, error) {
	if err := s.Load(); err != nil {
		return nil, err
	}
	out := make(map[string]domain.Aesthetic, len(s.aesthetics))
	for k, v := range s.aesthetics {
		out[k] = v
	}
	return out, nil
}
