package workflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/legal-analyzer/internal/model"
)

// Store is the slice of the durable store the tracker writes to. Durable
// writes are the source of truth; their failures propagate.
type Store interface {
	UpdateAnalysisStatus(ctx context.Context, analysisID string, status model.AnalysisStatus, errMsg string) error
	UpdateAnalysisProgress(ctx context.Context, analysisID string, progress float64) error
	CompleteAnalysis(ctx context.Context, analysisID string, results *model.AnalysisResults) error
	ResetAnalysis(ctx context.Context, analysisID string) error
}

// StatusMirror is the low-latency mirror. Every write is best-effort.
type StatusMirror interface {
	SetStatus(ctx context.Context, analysisID string, status model.AnalysisStatus) error
	SetProgress(ctx context.Context, analysisID string, progress float64) error
	Delete(ctx context.Context, analysisID string) error
}

// Tracker records analysis state transitions in the durable store and
// mirrors them for fast polling. Mirror failures are logged and swallowed.
type Tracker struct {
	store  Store
	mirror StatusMirror
	logger *zap.Logger
}

// NewTracker creates a tracker. mirror may be nil to disable mirroring.
func NewTracker(store Store, mirror StatusMirror) *Tracker {
	return &Tracker{
		store:  store,
		mirror: mirror,
		logger: zap.L().With(zap.String("component", "progress")),
	}
}

// SetStatus transitions an analysis. errMsg is recorded only for failed.
func (t *Tracker) SetStatus(ctx context.Context, analysisID string, status model.AnalysisStatus, errMsg string) error {
	if err := t.store.UpdateAnalysisStatus(ctx, analysisID, status, errMsg); err != nil {
		return err
	}
	if t.mirror != nil {
		if err := t.mirror.SetStatus(ctx, analysisID, status); err != nil {
			t.logger.Warn("mirror status write failed",
				zap.String("analysis_id", analysisID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// SetProgress records a progress checkpoint.
func (t *Tracker) SetProgress(ctx context.Context, analysisID string, progress float64) error {
	if err := t.store.UpdateAnalysisProgress(ctx, analysisID, progress); err != nil {
		return err
	}
	if t.mirror != nil {
		if err := t.mirror.SetProgress(ctx, analysisID, progress); err != nil {
			t.logger.Warn("mirror progress write failed",
				zap.String("analysis_id", analysisID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Complete stores the results and moves the analysis to completed with
// progress 1.0 in a single durable write.
func (t *Tracker) Complete(ctx context.Context, analysisID string, results *model.AnalysisResults) error {
	if err := t.store.CompleteAnalysis(ctx, analysisID, results); err != nil {
		return err
	}
	if t.mirror != nil {
		if err := t.mirror.SetProgress(ctx, analysisID, 1.0); err != nil {
			t.logger.Warn("mirror progress write failed", zap.String("analysis_id", analysisID), zap.Error(err))
		}
		if err := t.mirror.SetStatus(ctx, analysisID, model.StatusCompleted); err != nil {
			t.logger.Warn("mirror status write failed", zap.String("analysis_id", analysisID), zap.Error(err))
		}
	}
	return nil
}

// Reset flips a failed analysis back to pending for a full re-run and drops
// the stale mirror entry.
func (t *Tracker) Reset(ctx context.Context, analysisID string) error {
	if err := t.store.ResetAnalysis(ctx, analysisID); err != nil {
		return err
	}
	if t.mirror != nil {
		if err := t.mirror.Delete(ctx, analysisID); err != nil {
			t.logger.Warn("mirror delete failed", zap.String("analysis_id", analysisID), zap.Error(err))
		}
	}
	return nil
}
