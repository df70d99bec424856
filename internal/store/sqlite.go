package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/cadastre-cli/internal/model"
	"github.com/sells-group/cadastre-cli/internal/refdata"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	task        TEXT NOT NULL,
	cad_numbers TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	error       TEXT NOT NULL DEFAULT '',
	records     INTEGER NOT NULL DEFAULT 0,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS records (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	cad_number TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dictionaries (
	key        TEXT PRIMARY KEY,
	pairs      TEXT NOT NULL,
	fetched_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_task ON runs(task);
CREATE INDEX IF NOT EXISTS idx_records_run_id ON records(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, task string, cadNumbers []string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	cads, err := json.Marshal(cadNumbers)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal cad numbers")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, task, cad_numbers, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, task, string(cads), string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:         id,
		Task:       task,
		CadNumbers: cadNumbers,
		Status:     model.RunStatusRunning,
		StartedAt:  now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, errMsg string, records int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, records = ?, finished_at = ? WHERE id = ?`,
		string(status), errMsg, records, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if affected == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task, cad_numbers, status, error, records, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		var (
			run      model.Run
			cads     string
			status   string
			finished sql.NullTime
		)
		if err := rows.Scan(&run.ID, &run.Task, &cads, &status, &run.Error, &run.Records, &run.StartedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if err := json.Unmarshal([]byte(cads), &run.CadNumbers); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal cad numbers")
		}
		run.Status = model.RunStatus(status)
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func (s *SQLiteStore) SaveRecords(ctx context.Context, runID string, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for _, record := range records {
		payload, marshalErr := json.Marshal(record)
		if marshalErr != nil {
			return eris.Wrap(marshalErr, "sqlite: marshal record")
		}
		if _, execErr := tx.ExecContext(ctx,
			`INSERT INTO records (id, run_id, cad_number, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
			uuid.New().String(), runID, record.CadNumber, string(payload), now,
		); execErr != nil {
			return eris.Wrapf(execErr, "sqlite: insert record %s", record.CadNumber)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit records")
}

func (s *SQLiteStore) SaveDictionary(ctx context.Context, key refdata.Key, pairs []refdata.Pair) error {
	payload, err := json.Marshal(pairs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal dictionary")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dictionaries (key, pairs, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET pairs = excluded.pairs, fetched_at = excluded.fetched_at`,
		string(key), string(payload), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save dictionary %s", key)
}

func (s *SQLiteStore) GetDictionary(ctx context.Context, key refdata.Key, maxAge time.Duration) ([]refdata.Pair, bool, error) {
	var (
		payload   string
		fetchedAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT pairs, fetched_at FROM dictionaries WHERE key = ?`, string(key),
	).Scan(&payload, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "sqlite: get dictionary %s", key)
	}

	if maxAge > 0 && time.Since(fetchedAt) > maxAge {
		return nil, false, nil
	}

	var pairs []refdata.Pair
	if err := json.Unmarshal([]byte(payload), &pairs); err != nil {
		return nil, false, eris.Wrapf(err, "sqlite: unmarshal dictionary %s", key)
	}
	return pairs, true, nil
}
