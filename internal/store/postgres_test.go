package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/legal-analyzer/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestCreateAnalysis(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO analyses`).
		WithArgs(pgxmock.AnyArg(), "doc-1", "nda", "pending", 0.0, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	a, err := s.CreateAnalysis(context.Background(), "doc-1", "nda")
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, model.StatusPending, a.Status)
	assert.Zero(t, a.Progress)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAnalysisWithResults(t *testing.T) {
	s, mock := newMockStore(t)

	results := &model.AnalysisResults{
		Clauses:  []model.Clause{{Title: "Durée", Content: "12 mois", Type: model.ClauseDuration, RiskLevel: 2, Analysis: "ok"}},
		Metadata: map[string]any{"mode": "sequential"},
	}
	resultsJSON, err := json.Marshal(results)
	require.NoError(t, err)

	now := time.Now().UTC()
	pt := 12.5
	rows := pgxmock.NewRows([]string{
		"id", "document_id", "document_type", "status", "progress",
		"results", "error", "processing_time_seconds", "created_at", "updated_at",
	}).AddRow("a-1", "doc-1", "contract", model.StatusCompleted, 1.0, resultsJSON, (*string)(nil), &pt, now, now)

	mock.ExpectQuery(`SELECT id, document_id, document_type`).
		WithArgs("a-1").
		WillReturnRows(rows)

	a, err := s.GetAnalysis(context.Background(), "a-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, a.Status)
	require.NotNil(t, a.Results)
	assert.Len(t, a.Results.Clauses, 1)
	assert.Empty(t, a.Error)
	assert.InDelta(t, 12.5, a.ProcessingTime, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAnalysisNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, document_id, document_type`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetAnalysis(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, ErrNoRows(err))
}

func TestUpdateAnalysisStatusFailedKeepsError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE analyses SET status`).
		WithArgs("failed", "boom", pgxmock.AnyArg(), "a-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateAnalysisStatus(context.Background(), "a-1", model.StatusFailed, "boom")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAnalysisStatusClearsErrorWhenNotFailed(t *testing.T) {
	s, mock := newMockStore(t)

	// The error column is set to NULL for any non-failed transition, even
	// when a message is passed.
	mock.ExpectExec(`UPDATE analyses SET status`).
		WithArgs("in_progress", nil, pgxmock.AnyArg(), "a-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateAnalysisStatus(context.Background(), "a-1", model.StatusInProgress, "stale")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAnalysisStatusNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE analyses SET status`).
		WithArgs("in_progress", nil, pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateAnalysisStatus(context.Background(), "missing", model.StatusInProgress, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestUpdateAnalysisProgress(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE analyses SET progress`).
		WithArgs(0.4, pgxmock.AnyArg(), "a-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.UpdateAnalysisProgress(context.Background(), "a-1", 0.4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteAnalysis(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE analyses SET results`).
		WithArgs(pgxmock.AnyArg(), "completed", pgxmock.AnyArg(), "a-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteAnalysis(context.Background(), "a-1", &model.AnalysisResults{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetAnalysisOnlyFromFailed(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE analyses SET status`).
		WithArgs("pending", pgxmock.AnyArg(), "a-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.ResetAnalysis(context.Background(), "a-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not failed")
}

func TestCreateAndGetDocument(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs(pgxmock.AnyArg(), "nda.pdf", "application/pdf", int64(1024), "/data/nda.pdf",
			"nda", "pending", nil, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	doc, err := s.CreateDocument(context.Background(), model.Document{
		Filename:     "nda.pdf",
		ContentType:  "application/pdf",
		Size:         1024,
		FilePath:     "/data/nda.pdf",
		DocumentType: "nda",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, model.DocumentPending, doc.Status)

	now := time.Now().UTC()
	text := "Accord de confidentialité..."
	rows := pgxmock.NewRows([]string{
		"id", "filename", "content_type", "size", "file_path",
		"document_type", "status", "text_content", "created_at", "updated_at",
	}).AddRow(doc.ID, "nda.pdf", "application/pdf", int64(1024), "/data/nda.pdf",
		"nda", model.DocumentProcessed, &text, now, now)

	mock.ExpectQuery(`SELECT id, filename, content_type`).
		WithArgs(doc.ID).
		WillReturnRows(rows)

	got, err := s.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Accord de confidentialité...", got.TextContent)
	assert.Equal(t, model.DocumentProcessed, got.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertPrecedents(t *testing.T) {
	s, mock := newMockStore(t)

	cols := []string{"id", "title", "description", "type", "relevance", "source", "embedding", "created_at"}
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_precedents"}, cols).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "precedents"`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := s.UpsertPrecedents(context.Background(), []model.CorpusPrecedent{
		{Title: "Cass. com. 2019", Description: "d", Type: "jurisprudence", Embedding: []float32{0.1, 0.2}},
		{Title: "CA Paris 2021", Description: "d2", Type: "jurisprudence", Embedding: []float32{0.3, 0.4}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPrecedents(t *testing.T) {
	s, mock := newMockStore(t)

	embedding, err := json.Marshal([]float32{0.5, 0.5})
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"id", "title", "description", "type", "relevance", "source", "embedding", "created_at"}).
		AddRow("p-1", "Cass. com. 2019", "d", "jurisprudence", "r", "", embedding, time.Now().UTC())

	mock.ExpectQuery(`SELECT id, title, description`).WillReturnRows(rows)

	precedents, err := s.ListPrecedents(context.Background())
	require.NoError(t, err)
	require.Len(t, precedents, 1)
	assert.Equal(t, []float32{0.5, 0.5}, precedents[0].Embedding)
	assert.NoError(t, mock.ExpectationsWereMet())
}
