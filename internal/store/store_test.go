package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridview/internal/record"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(t *testing.T, js string) record.Record {
	t.Helper()
	r, err := record.Decode([]byte(js))
	require.NoError(t, err)
	return r
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "open #%d", i)
		require.NoError(t, s.Close())
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	assert.Error(t, err)
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}

func TestPragmas(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want map[string]string
	}{
		{"defaults", nil, map[string]string{"journal_mode": "wal", "synchronous": "1", "busy_timeout": "5000"}},
		{"busy timeout", []Option{WithBusyTimeout(250 * time.Millisecond)}, map[string]string{"busy_timeout": "250"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(filepath.Join(t.TempDir(), "test.db"), tt.opts...)
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })

			for name, want := range tt.want {
				got, err := s.pragma(name)
				require.NoError(t, err)
				assert.Equal(t, want, got, name)
			}
		})
	}
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.PutRecords(context.Background(), "tasks", []record.Record{
		testRecord(t, `{"id": 1}`),
	}))
	n, err := s.CountRecords(context.Background(), "tasks")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMigration_SchemaVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, schemaVersion, version)

	var name string
	err := s.db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'idx_records_view_seq'`,
	).Scan(&name)
	require.NoError(t, err)
}

func TestPutRecords_UpsertKeepsImportOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutRecords(ctx, "tasks", []record.Record{
		testRecord(t, `{"id": 1, "title": "a"}`),
		testRecord(t, `{"id": 2, "title": "b"}`),
	}))
	require.NoError(t, s.PutRecords(ctx, "tasks", []record.Record{
		testRecord(t, `{"id": 3, "title": "c"}`),
		testRecord(t, `{"id": 1, "title": "a2"}`),
	}))

	rows, err := s.Query(ctx, `SELECT id, data FROM records WHERE view_id = ? ORDER BY seq, id`, "tasks")
	require.NoError(t, err)
	defer rows.Close()

	var got []string
	for rows.Next() {
		var id, data string
		require.NoError(t, rows.Scan(&id, &data))
		got = append(got, fmt.Sprintf("%s=%s", id, data))
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{
		`1={"id":1,"title":"a2"}`,
		`2={"id":2,"title":"b"}`,
		`3={"id":3,"title":"c"}`,
	}, got)

	n, err := s.CountRecords(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPutRecords_MissingIDRollsBack(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.PutRecords(ctx, "tasks", []record.Record{
		testRecord(t, `{"id": 1}`),
		testRecord(t, `{"title": "no id"}`),
	})

	assert.ErrorIs(t, err, ErrMissingID)
	n, err := s.CountRecords(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDeleteRecords(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutRecords(ctx, "tasks", []record.Record{
		testRecord(t, `{"id": 1}`),
		testRecord(t, `{"id": 2}`),
	}))

	require.NoError(t, s.DeleteRecords(ctx, "tasks", "1", "99"))

	n, err := s.CountRecords(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPrefs_ReadWrite(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, ok, err := s.ReadPrefs(ctx, "tasks")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.WritePrefs(ctx, "tasks", []byte(`{"page_size":50}`)))
	require.NoError(t, s.WritePrefs(ctx, "tasks", []byte(`{"page_size":100}`)))

	data, ok, err := s.ReadPrefs(ctx, "tasks")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"page_size":100}`, string(data))
}
