package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/legal-analyzer/internal/model"
)

// Mirror is the low-latency status cache backed by SQLite. Writes are
// best-effort: the caller logs and ignores failures, Postgres stays the
// source of truth.
type Mirror struct {
	db *sql.DB
}

// MirrorEntry is a cached status snapshot for one analysis.
type MirrorEntry struct {
	AnalysisID string               `json:"analysis_id"`
	Status     model.AnalysisStatus `json:"status"`
	Progress   float64              `json:"progress"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// NewMirror opens the SQLite mirror at the given path and configures WAL mode.
func NewMirror(dsn string) (*Mirror, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "mirror: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "mirror: exec %s", pragma)
		}
	}
	return &Mirror{db: db}, nil
}

const mirrorMigration = `
CREATE TABLE IF NOT EXISTS analysis_status (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	progress   REAL NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (m *Mirror) Migrate(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, mirrorMigration)
	return eris.Wrap(err, "mirror: migrate")
}

func (m *Mirror) Close() error {
	return m.db.Close()
}

func (m *Mirror) SetStatus(ctx context.Context, analysisID string, status model.AnalysisStatus) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO analysis_status (id, status, progress, updated_at) VALUES (?, ?, 0, ?)
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`,
		analysisID, string(status), time.Now().UTC(),
	)
	return eris.Wrapf(err, "mirror: set status %s", analysisID)
}

func (m *Mirror) SetProgress(ctx context.Context, analysisID string, progress float64) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO analysis_status (id, status, progress, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET progress = excluded.progress, updated_at = excluded.updated_at`,
		analysisID, string(model.StatusInProgress), progress, time.Now().UTC(),
	)
	return eris.Wrapf(err, "mirror: set progress %s", analysisID)
}

// Get returns the cached entry for an analysis, or nil when the mirror has
// no entry.
func (m *Mirror) Get(ctx context.Context, analysisID string) (*MirrorEntry, error) {
	var e MirrorEntry
	err := m.db.QueryRowContext(ctx,
		`SELECT id, status, progress, updated_at FROM analysis_status WHERE id = ?`,
		analysisID,
	).Scan(&e.AnalysisID, &e.Status, &e.Progress, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "mirror: get %s", analysisID)
	}
	return &e, nil
}

// Delete removes a cached entry, used when an analysis is reset.
func (m *Mirror) Delete(ctx context.Context, analysisID string) error {
	_, err := m.db.ExecContext(ctx,
		`DELETE FROM analysis_status WHERE id = ?`,
		analysisID,
	)
	return eris.Wrapf(err, "mirror: delete %s", analysisID)
}
