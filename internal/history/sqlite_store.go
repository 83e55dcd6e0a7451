package history

import (
	"database/sql"
	"errors"
	"time"

	"github.com/petrijr/deepdive/pkg/api"
)

// SQLiteStore is a Store backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore initializes the required schema in the given database
// and returns a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			intent TEXT NOT NULL,
			status TEXT NOT NULL,
			iterations_used INTEGER NOT NULL,
			finding_count INTEGER NOT NULL,
			report TEXT,
			fail_reason TEXT,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL
		);`,
	)
	return err
}

func (s *SQLiteStore) SaveRun(rec api.RunRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, query, intent, status, iterations_used, finding_count, report, fail_reason, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			query = excluded.query,
			intent = excluded.intent,
			status = excluded.status,
			iterations_used = excluded.iterations_used,
			finding_count = excluded.finding_count,
			report = excluded.report,
			fail_reason = excluded.fail_reason,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at`,
		rec.ID,
		rec.Query,
		string(rec.Intent),
		string(rec.Status),
		rec.IterationsUsed,
		rec.FindingCount,
		rec.Report,
		rec.FailReason,
		rec.StartedAt.UnixMilli(),
		rec.FinishedAt.UnixMilli(),
	)
	return err
}

func (s *SQLiteStore) GetRun(id string) (api.RunRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, query, intent, status, iterations_used, finding_count, report, fail_reason, started_at, finished_at
		FROM runs WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return api.RunRecord{}, ErrRunNotFound
		}
		return api.RunRecord{}, err
	}
	return rec, nil
}

func (s *SQLiteStore) ListRuns(filter api.RunFilter) ([]api.RunRecord, error) {
	query := `
		SELECT id, query, intent, status, iterations_used, finding_count, report, fail_reason, started_at, finished_at
		FROM runs`
	var (
		clauses []string
		args    []any
	)
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Intent != "" {
		clauses = append(clauses, "intent = ?")
		args = append(args, string(filter.Intent))
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY started_at, id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []api.RunRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (api.RunRecord, error) {
	var (
		rec                   api.RunRecord
		intent, status        string
		startedMs, finishedMs int64
	)
	err := row.Scan(
		&rec.ID,
		&rec.Query,
		&intent,
		&status,
		&rec.IterationsUsed,
		&rec.FindingCount,
		&rec.Report,
		&rec.FailReason,
		&startedMs,
		&finishedMs,
	)
	if err != nil {
		return api.RunRecord{}, err
	}
	rec.Intent = api.Intent(intent)
	rec.Status = api.Status(status)
	rec.StartedAt = time.UnixMilli(startedMs)
	rec.FinishedAt = time.UnixMilli(finishedMs)
	return rec, nil
}
