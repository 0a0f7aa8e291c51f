package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/gridview/internal/record"
)

// ErrMissingID is returned when a record without an id is written.
var ErrMissingID = errors.New("record has no id")

// PutRecords upserts records for a view in one transaction. New records are
// appended after the existing ones in import order; existing ids keep their
// position and get the new data.
//
// Records are stored as canonical JSON so identical records produce
// identical rows.
func (s *Store) PutRecords(ctx context.Context, viewID string, recs []record.Record) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put records: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var seq int64
	if err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM records WHERE view_id = ?`, viewID,
	).Scan(&seq); err != nil {
		return fmt.Errorf("put records: read seq: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (view_id, id, seq, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(view_id, id) DO UPDATE SET data = excluded.data
	`)
	if err != nil {
		return fmt.Errorf("put records: %w", err)
	}
	defer stmt.Close()

	for i, rec := range recs {
		id := rec.ID()
		if id == "" {
			return fmt.Errorf("put records: record %d: %w", i, ErrMissingID)
		}
		data, merr := record.MarshalCanonical(rec.Fields())
		if merr != nil {
			return fmt.Errorf("put records: record %s: %w", id, merr)
		}
		seq++
		if _, err = stmt.ExecContext(ctx, viewID, id, seq, string(data)); err != nil {
			return fmt.Errorf("put records: record %s: %w", id, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("put records: commit: %w", err)
	}
	return nil
}

// DeleteRecords removes records by id. Unknown ids are ignored.
func (s *Store) DeleteRecords(ctx context.Context, viewID string, ids ...string) error {
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM records WHERE view_id = ? AND id = ?`, viewID, id,
		); err != nil {
			return fmt.Errorf("delete record %s: %w", id, err)
		}
	}
	return nil
}

// CountRecords returns the number of records stored for a view.
func (s *Store) CountRecords(ctx context.Context, viewID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE view_id = ?`, viewID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// WritePrefs stores the preference blob for a view, replacing any previous one.
func (s *Store) WritePrefs(ctx context.Context, viewID string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO view_prefs (view_id, data) VALUES (?, ?)
		ON CONFLICT(view_id) DO UPDATE SET data = excluded.data
	`, viewID, string(data))
	if err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

// ReadPrefs returns the preference blob for a view and whether one exists.
func (s *Store) ReadPrefs(ctx context.Context, viewID string) ([]byte, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM view_prefs WHERE view_id = ?`, viewID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read prefs: %w", err)
	}
	return []byte(data), true, nil
}
