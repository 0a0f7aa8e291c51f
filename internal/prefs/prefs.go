// Package prefs persists per-view preferences such as page size and ordering.
//
// A view reads its preferences once when it is created and writes them back
// whenever the user changes one of them.
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Prefs are the persisted choices for one view.
type Prefs struct {
	PageSize int `json:"page_size,omitempty"`
	// Ordering is in API form: "field", "-field" or "" for server default.
	Ordering string `json:"ordering,omitempty"`
}

// Store loads and saves preferences by view id.
type Store interface {
	// Load returns the saved preferences and whether any exist.
	Load(ctx context.Context, viewID string) (Prefs, bool, error)
	Save(ctx context.Context, viewID string, p Prefs) error
}

// Memory is an in-process Store.
type Memory struct {
	mu sync.Mutex
	m  map[string]Prefs
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{m: make(map[string]Prefs)}
}

// Load implements Store.
func (s *Memory) Load(_ context.Context, viewID string) (Prefs, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[viewID]
	return p, ok, nil
}

// Save implements Store.
func (s *Memory) Save(_ context.Context, viewID string, p Prefs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[viewID] = p
	return nil
}

func encode(p Prefs) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode prefs: %w", err)
	}
	return data, nil
}

func decode(data []byte) (Prefs, error) {
	var p Prefs
	if err := json.Unmarshal(data, &p); err != nil {
		return Prefs{}, fmt.Errorf("decode prefs: %w", err)
	}
	return p, nil
}
