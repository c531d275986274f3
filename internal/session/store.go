// SPDX-License-Identifier: AGPL-3.0-only
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/jplfaria/gem-flux-mcp-sub000/internal/errors"
	"github.com/jplfaria/gem-flux-mcp-sub000/internal/model"
)

// Store holds media and models constructed during a session. It is owned by
// the server process and injected into handlers; nothing in this package is
// module-level state.
type Store struct {
	mu      sync.RWMutex
	media   map[string]*model.Media
	models  map[string]*model.MetabolicModel
	touched map[string]time.Time
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		media:   make(map[string]*model.Media),
		models:  make(map[string]*model.MetabolicModel),
		touched: make(map[string]time.Time),
	}
}

// PutMedia stores a media by its ID, replacing any existing entry.
func (s *Store) PutMedia(m *model.Media) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media[m.ID] = m
	s.touched["media:"+m.ID] = time.Now()
}

// GetMedia returns the media with the given ID.
func (s *Store) GetMedia(id string) (*model.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.media[id]
	if !ok {
		return nil, errors.NotFound("media", id)
	}
	s.touched["media:"+id] = time.Now()
	return m, nil
}

// ListMedia returns all stored media IDs in sorted order.
func (s *Store) ListMedia() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.media))
	for id := range s.media {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DeleteMedia removes the media with the given ID.
func (s *Store) DeleteMedia(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.media[id]; !ok {
		return errors.NotFound("media", id)
	}
	delete(s.media, id)
	delete(s.touched, "media:"+id)
	return nil
}

// PutModel stores a metabolic model by its ID, replacing any existing entry.
func (s *Store) PutModel(m *model.MetabolicModel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[m.ID] = m
	s.touched["model:"+m.ID] = time.Now()
}

// GetModel returns the model with the given ID.
func (s *Store) GetModel(id string) (*model.MetabolicModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.models[id]
	if !ok {
		return nil, errors.NotFound("model", id)
	}
	s.touched["model:"+id] = time.Now()
	return m, nil
}

// ListModels returns all stored model IDs in sorted order.
func (s *Store) ListModels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.models))
	for id := range s.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DeleteModel removes the model with the given ID.
func (s *Store) DeleteModel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.models[id]; !ok {
		return errors.NotFound("model", id)
	}
	delete(s.models, id)
	delete(s.touched, "model:"+id)
	return nil
}

// Sweep removes every media and model that has not been touched within
// maxAge and returns the number of pruned entries. A non-positive maxAge
// disables pruning.
func (s *Store) Sweep(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	pruned := 0
	for key, at := range s.touched {
		if !at.Before(cutoff) {
			continue
		}
		// Keys are "media:<id>" or "model:<id>".
		if len(key) > 6 && key[:6] == "media:" {
			delete(s.media, key[6:])
		} else if len(key) > 6 && key[:6] == "model:" {
			delete(s.models, key[6:])
		}
		delete(s.touched, key)
		pruned++
	}
	return pruned
}
