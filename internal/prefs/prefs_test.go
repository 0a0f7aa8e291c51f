package prefs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridview/internal/store"
)

func backends(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemory()
		},
		"sqlite": func(t *testing.T) Store {
			db, err := store.Open(filepath.Join(t.TempDir(), "gridview.db"))
			require.NoError(t, err)
			t.Cleanup(func() { db.Close() })
			return NewSQLiteStore(db)
		},
		"bolt": func(t *testing.T) Store {
			s, err := OpenBolt(filepath.Join(t.TempDir(), "prefs.bolt"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestStore_LoadMissing(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)

			p, ok, err := s.Load(context.Background(), "tasks")

			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, Prefs{}, p)
		})
	}
}

func TestStore_SaveThenLoad(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			require.NoError(t, s.Save(ctx, "tasks", Prefs{PageSize: 50, Ordering: "-completed_at"}))
			require.NoError(t, s.Save(ctx, "people", Prefs{PageSize: 100}))
			require.NoError(t, s.Save(ctx, "tasks", Prefs{PageSize: 100, Ordering: "title"}))

			p, ok, err := s.Load(ctx, "tasks")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, Prefs{PageSize: 100, Ordering: "title"}, p)

			p, ok, err = s.Load(ctx, "people")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, Prefs{PageSize: 100}, p)
		})
	}
}

func TestBoltStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.bolt")
	ctx := context.Background()

	s, err := OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "tasks", Prefs{PageSize: 30, Ordering: "-id"}))
	require.NoError(t, s.Close())

	s, err = OpenBolt(path)
	require.NoError(t, err)
	defer s.Close()

	p, ok, err := s.Load(ctx, "tasks")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "-id", p.Ordering)
}

func TestSQLiteStore_CorruptBlob(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "gridview.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	require.NoError(t, db.WritePrefs(ctx, "tasks", []byte("{not json")))

	_, ok, err := NewSQLiteStore(db).Load(ctx, "tasks")

	assert.Error(t, err)
	assert.False(t, ok)
}
