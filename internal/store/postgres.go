package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/legal-analyzer/internal/db"
	"github.com/sells-group/legal-analyzer/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_analysis":    `SELECT id, document_id, document_type, status, progress, results, error, processing_time_seconds, created_at, updated_at FROM analyses WHERE id = $1`,
	"update_progress": `UPDATE analyses SET progress = $1, updated_at = $2 WHERE id = $3`,
	"get_document":    `SELECT id, filename, content_type, size, file_path, document_type, status, text_content, created_at, updated_at FROM documents WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	filename      TEXT NOT NULL,
	content_type  TEXT NOT NULL DEFAULT '',
	size          BIGINT NOT NULL DEFAULT 0,
	file_path     TEXT NOT NULL,
	document_type TEXT NOT NULL DEFAULT 'contract',
	status        TEXT NOT NULL DEFAULT 'pending',
	text_content  TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS analyses (
	id                      TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	document_id             TEXT NOT NULL REFERENCES documents(id),
	document_type           TEXT NOT NULL,
	status                  TEXT NOT NULL DEFAULT 'pending',
	progress                DOUBLE PRECISION NOT NULL DEFAULT 0,
	results                 JSONB,
	error                   TEXT,
	processing_time_seconds DOUBLE PRECISION,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status);
CREATE INDEX IF NOT EXISTS idx_analyses_document_id ON analyses(document_id);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

CREATE TABLE IF NOT EXISTS precedents (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	title       TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL,
	type        TEXT NOT NULL DEFAULT '',
	relevance   TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL DEFAULT '',
	embedding   JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_precedents_type ON precedents(type);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc model.Document) (*model.Document, error) {
	doc.ID = uuid.New().String()
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if doc.Status == "" {
		doc.Status = model.DocumentPending
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (id, filename, content_type, size, file_path, document_type, status, text_content, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		doc.ID, doc.Filename, doc.ContentType, doc.Size, doc.FilePath,
		doc.DocumentType, string(doc.Status), nullable(doc.TextContent), doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert document")
	}
	return &doc, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (*model.Document, error) {
	var d model.Document
	var textContent *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, filename, content_type, size, file_path, document_type, status, text_content, created_at, updated_at FROM documents WHERE id = $1`,
		documentID,
	).Scan(&d.ID, &d.Filename, &d.ContentType, &d.Size, &d.FilePath,
		&d.DocumentType, &d.Status, &textContent, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get document %s", documentID)
	}
	if textContent != nil {
		d.TextContent = *textContent
	}
	return &d, nil
}

func (s *PostgresStore) SetDocumentText(ctx context.Context, documentID, text string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET text_content = $1, updated_at = $2 WHERE id = $3`,
		text, time.Now().UTC(), documentID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set document text %s", documentID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("document not found: %s", documentID)
	}
	return nil
}

func (s *PostgresStore) SetDocumentStatus(ctx context.Context, documentID string, status model.DocumentStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), documentID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set document status %s", documentID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("document not found: %s", documentID)
	}
	return nil
}

func (s *PostgresStore) CreateAnalysis(ctx context.Context, documentID, documentType string) (*model.Analysis, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO analyses (id, document_id, document_type, status, progress, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, documentID, documentType, string(model.StatusPending), 0.0, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert analysis")
	}

	return &model.Analysis{
		ID:           id,
		DocumentID:   documentID,
		DocumentType: documentType,
		Status:       model.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, analysisID string) (*model.Analysis, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, document_id, document_type, status, progress, results, error, processing_time_seconds, created_at, updated_at FROM analyses WHERE id = $1`,
		analysisID,
	)
	a, err := scanAnalysis(row.Scan)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get analysis %s", analysisID)
	}
	return a, nil
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error) {
	query := `SELECT id, document_id, document_type, status, progress, results, error, processing_time_seconds, created_at, updated_at FROM analyses WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.DocumentID != "" {
		query += fmt.Sprintf(` AND document_id = $%d`, argIdx)
		args = append(args, filter.DocumentID)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var analyses []model.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		analyses = append(analyses, *a)
	}
	return analyses, eris.Wrap(rows.Err(), "postgres: list analyses iterate")
}

// UpdateAnalysisStatus transitions an analysis. The error column is cleared
// on any non-failed transition; terminal transitions record the elapsed
// processing time from creation.
func (s *PostgresStore) UpdateAnalysisStatus(ctx context.Context, analysisID string, status model.AnalysisStatus, errMsg string) error {
	var errVal any
	if status == model.StatusFailed && errMsg != "" {
		errVal = errMsg
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET status = $1, error = $2, updated_at = $3,
		   processing_time_seconds = CASE WHEN $1 IN ('completed', 'failed')
		     THEN EXTRACT(EPOCH FROM ($3::timestamptz - created_at))
		     ELSE processing_time_seconds END
		 WHERE id = $4`,
		string(status), errVal, time.Now().UTC(), analysisID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update analysis status %s", analysisID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("analysis not found: %s", analysisID)
	}
	return nil
}

func (s *PostgresStore) UpdateAnalysisProgress(ctx context.Context, analysisID string, progress float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET progress = $1, updated_at = $2 WHERE id = $3`,
		progress, time.Now().UTC(), analysisID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update analysis progress %s", analysisID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("analysis not found: %s", analysisID)
	}
	return nil
}

func (s *PostgresStore) CompleteAnalysis(ctx context.Context, analysisID string, results *model.AnalysisResults) error {
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal results")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET results = $1, status = $2, progress = 1.0, error = NULL, updated_at = $3,
		   processing_time_seconds = EXTRACT(EPOCH FROM ($3::timestamptz - created_at))
		 WHERE id = $4`,
		resultsJSON, string(model.StatusCompleted), time.Now().UTC(), analysisID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete analysis %s", analysisID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("analysis not found: %s", analysisID)
	}
	return nil
}

// ResetAnalysis flips a failed analysis back to pending for a full re-run.
// Only failed analyses are eligible.
func (s *PostgresStore) ResetAnalysis(ctx context.Context, analysisID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET status = $1, progress = 0, results = NULL, error = NULL, processing_time_seconds = NULL, updated_at = $2
		 WHERE id = $3 AND status = 'failed'`,
		string(model.StatusPending), time.Now().UTC(), analysisID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: reset analysis %s", analysisID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("analysis not found or not failed: %s", analysisID)
	}
	return nil
}

func (s *PostgresStore) UpsertPrecedents(ctx context.Context, precedents []model.CorpusPrecedent) (int64, error) {
	rows := make([][]any, 0, len(precedents))
	now := time.Now().UTC()
	for _, p := range precedents {
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		embeddingJSON, err := json.Marshal(p.Embedding)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal embedding")
		}
		rows = append(rows, []any{
			p.ID, p.Title, p.Description, p.Type, p.Relevance, p.Source, embeddingJSON, p.CreatedAt,
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "precedents",
		Columns:      []string{"id", "title", "description", "type", "relevance", "source", "embedding", "created_at"},
		ConflictKeys: []string{"title"},
		UpdateCols:   []string{"description", "type", "relevance", "source", "embedding"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert precedents")
	}
	return n, nil
}

func (s *PostgresStore) ListPrecedents(ctx context.Context) ([]model.CorpusPrecedent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, description, type, relevance, source, embedding, created_at FROM precedents ORDER BY created_at`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list precedents")
	}
	defer rows.Close()

	var precedents []model.CorpusPrecedent
	for rows.Next() {
		var p model.CorpusPrecedent
		var embeddingJSON []byte
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Type, &p.Relevance, &p.Source, &embeddingJSON, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan precedent")
		}
		if err := json.Unmarshal(embeddingJSON, &p.Embedding); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal embedding")
		}
		precedents = append(precedents, p)
	}
	return precedents, eris.Wrap(rows.Err(), "postgres: list precedents iterate")
}

// scanAnalysis reads one analyses row via the given scan function.
func scanAnalysis(scan func(dest ...any) error) (*model.Analysis, error) {
	var a model.Analysis
	var resultsJSON []byte
	var errMsg *string
	var processingTime *float64

	err := scan(&a.ID, &a.DocumentID, &a.DocumentType, &a.Status, &a.Progress,
		&resultsJSON, &errMsg, &processingTime, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(resultsJSON) > 0 {
		a.Results = &model.AnalysisResults{}
		if err := json.Unmarshal(resultsJSON, a.Results); err != nil {
			return nil, eris.Wrap(err, "unmarshal results")
		}
	}
	if errMsg != nil {
		a.Error = *errMsg
	}
	if processingTime != nil {
		a.ProcessingTime = *processingTime
	}
	return &a, nil
}

// ErrNoRows reports whether err is the driver's no-rows sentinel.
func ErrNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
