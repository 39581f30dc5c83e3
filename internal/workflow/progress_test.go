package workflow

import (
	"context"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/legal-analyzer/internal/model"
)

type statusUpdate struct {
	status model.AnalysisStatus
	errMsg string
}

type recordingStore struct {
	mu          sync.Mutex
	statuses    []statusUpdate
	progress    []float64
	completed   *model.AnalysisResults
	resets      int
	statusErr   error
	progressErr error
	completeErr error
	resetErr    error
}

func (s *recordingStore) UpdateAnalysisStatus(_ context.Context, _ string, status model.AnalysisStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statusErr != nil {
		return s.statusErr
	}
	s.statuses = append(s.statuses, statusUpdate{status: status, errMsg: errMsg})
	return nil
}

func (s *recordingStore) UpdateAnalysisProgress(_ context.Context, _ string, progress float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.progressErr != nil {
		return s.progressErr
	}
	s.progress = append(s.progress, progress)
	return nil
}

func (s *recordingStore) CompleteAnalysis(_ context.Context, _ string, results *model.AnalysisResults) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completeErr != nil {
		return s.completeErr
	}
	s.completed = results
	return nil
}

func (s *recordingStore) ResetAnalysis(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resetErr != nil {
		return s.resetErr
	}
	s.resets++
	return nil
}

func (s *recordingStore) lastStatus() (statusUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statuses) == 0 {
		return statusUpdate{}, false
	}
	return s.statuses[len(s.statuses)-1], true
}

type recordingMirror struct {
	mu       sync.Mutex
	statuses []model.AnalysisStatus
	progress []float64
	deletes  int
	err      error
}

func (m *recordingMirror) SetStatus(_ context.Context, _ string, status model.AnalysisStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *recordingMirror) SetProgress(_ context.Context, _ string, progress float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.progress = append(m.progress, progress)
	return nil
}

func (m *recordingMirror) Delete(_ context.Context, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.deletes++
	return nil
}

func TestTrackerWritesBothStores(t *testing.T) {
	st := &recordingStore{}
	mirror := &recordingMirror{}
	tracker := NewTracker(st, mirror)
	ctx := context.Background()

	require.NoError(t, tracker.SetStatus(ctx, "a-1", model.StatusInProgress, ""))
	require.NoError(t, tracker.SetProgress(ctx, "a-1", 0.4))

	assert.Equal(t, []statusUpdate{{status: model.StatusInProgress}}, st.statuses)
	assert.Equal(t, []float64{0.4}, st.progress)
	assert.Equal(t, []model.AnalysisStatus{model.StatusInProgress}, mirror.statuses)
	assert.Equal(t, []float64{0.4}, mirror.progress)
}

func TestTrackerMirrorFailureIsSwallowed(t *testing.T) {
	st := &recordingStore{}
	mirror := &recordingMirror{err: eris.New("mirror locked")}
	tracker := NewTracker(st, mirror)
	ctx := context.Background()

	require.NoError(t, tracker.SetStatus(ctx, "a-1", model.StatusCompleted, ""))
	require.NoError(t, tracker.SetProgress(ctx, "a-1", 1.0))
	require.NoError(t, tracker.Complete(ctx, "a-1", &model.AnalysisResults{}))

	assert.Len(t, st.statuses, 1)
	assert.NotNil(t, st.completed)
}

func TestTrackerDurableFailurePropagates(t *testing.T) {
	st := &recordingStore{statusErr: eris.New("db down")}
	tracker := NewTracker(st, &recordingMirror{})

	err := tracker.SetStatus(context.Background(), "a-1", model.StatusFailed, "boom")
	require.Error(t, err)
}

func TestTrackerComplete(t *testing.T) {
	st := &recordingStore{}
	mirror := &recordingMirror{}
	tracker := NewTracker(st, mirror)

	results := &model.AnalysisResults{Summary: "résumé"}
	require.NoError(t, tracker.Complete(context.Background(), "a-1", results))

	assert.Equal(t, results, st.completed)
	assert.Equal(t, []float64{1.0}, mirror.progress)
	assert.Equal(t, []model.AnalysisStatus{model.StatusCompleted}, mirror.statuses)
}

func TestTrackerResetDropsMirrorEntry(t *testing.T) {
	st := &recordingStore{}
	mirror := &recordingMirror{}
	tracker := NewTracker(st, mirror)

	require.NoError(t, tracker.Reset(context.Background(), "a-1"))
	assert.Equal(t, 1, st.resets)
	assert.Equal(t, 1, mirror.deletes)
}

func TestTrackerNilMirror(t *testing.T) {
	st := &recordingStore{}
	tracker := NewTracker(st, nil)

	require.NoError(t, tracker.SetStatus(context.Background(), "a-1", model.StatusInProgress, ""))
	require.NoError(t, tracker.SetProgress(context.Background(), "a-1", 0.2))
}
