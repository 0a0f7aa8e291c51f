package prefs

import (
	"context"

	"github.com/roach88/gridview/internal/store"
)

// SQLiteStore keeps preferences in the view_prefs table of a store database,
// next to the records the view browses.
type SQLiteStore struct {
	db *store.Store
}

// NewSQLiteStore wraps an open database. The caller owns db.
func NewSQLiteStore(db *store.Store) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, viewID string) (Prefs, bool, error) {
	data, ok, err := s.db.ReadPrefs(ctx, viewID)
	if err != nil || !ok {
		return Prefs{}, false, err
	}
	p, err := decode(data)
	if err != nil {
		return Prefs{}, false, err
	}
	return p, true, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, viewID string, p Prefs) error {
	data, err := encode(p)
	if err != nil {
		return err
	}
	return s.db.WritePrefs(ctx, viewID, data)
}
