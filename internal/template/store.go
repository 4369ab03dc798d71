// Package template manages the catalog of workflow templates. Templates are
// registered at startup and bound to instances by value, so catalog changes
// never affect instances already in flight
package template

import (
	"fmt"
	"sync"

	"github.com/docketry/docket/pkg/api"
)

// Store is a concurrency-safe template catalog
type Store struct {
	mu        sync.RWMutex
	templates map[api.TemplateID]*api.Template
}

// NewStore creates an empty template catalog
func NewStore() *Store {
	return &Store{
		templates: map[api.TemplateID]*api.Template{},
	}
}

// Register validates and adds a template, replacing any previous version
// with the same ID and a lower version number
func (s *Store) Register(t *api.Template) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%w: %w", api.ErrValidation, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.templates[t.ID]; ok &&
		existing.Version >= t.Version {
		return fmt.Errorf(
			"%w: template %s version %d is not newer than %d",
			api.ErrValidation, t.ID, t.Version, existing.Version,
		)
	}
	s.templates[t.ID] = t
	return nil
}

// Get returns the template with the provided ID
func (s *Store) Get(id api.TemplateID) (*api.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", api.ErrTemplateNotFound, id)
	}
	return t, nil
}

// List returns all registered templates
func (s *Store) List() []*api.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]*api.Template, 0, len(s.templates))
	for _, t := range s.templates {
		res = append(res, t)
	}
	return res
}
