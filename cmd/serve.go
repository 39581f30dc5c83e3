package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/legal-analyzer/internal/model"
	"github.com/sells-group/legal-analyzer/internal/store"
)

// apiStore is the slice of the durable store the HTTP API reads and writes.
type apiStore interface {
	GetDocument(ctx context.Context, documentID string) (*model.Document, error)
	CreateAnalysis(ctx context.Context, documentID, documentType string) (*model.Analysis, error)
	GetAnalysis(ctx context.Context, analysisID string) (*model.Analysis, error)
	ListAnalyses(ctx context.Context, filter store.AnalysisFilter) ([]model.Analysis, error)
}

// statusMirror is the fast-polling view of analysis status.
type statusMirror interface {
	Get(ctx context.Context, analysisID string) (*store.MirrorEntry, error)
}

// analysisRunner abstracts the workflow for the HTTP layer.
type analysisRunner interface {
	Run(ctx context.Context, analysisID, documentID, documentType string) error
	RunParallel(ctx context.Context, analysisID, documentID, documentType string) error
}

// analysisResetter flips a failed analysis back to pending.
type analysisResetter interface {
	Reset(ctx context.Context, analysisID string) error
}

type api struct {
	store    apiStore
	mirror   statusMirror // may be nil
	runner   analysisRunner
	resetter analysisResetter
	// runCtx outlives individual requests so background analyses survive
	// the response.
	runCtx   context.Context
	parallel bool
	logger   *zap.Logger
}

func newAPI(runCtx context.Context, st apiStore, mirror statusMirror, runner analysisRunner, resetter analysisResetter, parallel bool) *api {
	return &api{
		store:    st,
		mirror:   mirror,
		runner:   runner,
		resetter: resetter,
		runCtx:   runCtx,
		parallel: parallel,
		logger:   zap.L().With(zap.String("component", "api")),
	}
}

func newRouter(a *api, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", a.health)
	r.Route("/analyses", func(r chi.Router) {
		r.Post("/", a.createAnalysis)
		r.Get("/", a.listAnalyses)
		r.Route("/{analysisID}", func(r chi.Router) {
			r.Get("/", a.getAnalysis)
			r.Get("/status", a.getStatus)
			r.Post("/retry", a.retryAnalysis)
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (a *api) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// run launches the workflow in the background; failures are recorded on the
// analysis row by the orchestrator.
func (a *api) run(analysisID, documentID, documentType string, parallel bool) {
	go func() {
		var err error
		if parallel {
			err = a.runner.RunParallel(a.runCtx, analysisID, documentID, documentType)
		} else {
			err = a.runner.Run(a.runCtx, analysisID, documentID, documentType)
		}
		if err != nil {
			a.logger.Error("background analysis failed",
				zap.String("analysis_id", analysisID),
				zap.Error(err),
			)
		}
	}()
}

func (a *api) createAnalysis(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentID   string `json:"document_id"`
		DocumentType string `json:"document_type"`
		Parallel     *bool  `json:"parallel"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DocumentID == "" {
		writeError(w, http.StatusBadRequest, "document_id is required")
		return
	}

	doc, err := a.store.GetDocument(r.Context(), req.DocumentID)
	if err != nil {
		if store.ErrNoRows(err) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "load document failed")
		return
	}

	documentType := req.DocumentType
	if documentType == "" {
		documentType = doc.DocumentType
	}

	analysis, err := a.store.CreateAnalysis(r.Context(), doc.ID, documentType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create analysis failed")
		return
	}

	parallel := a.parallel
	if req.Parallel != nil {
		parallel = *req.Parallel
	}
	a.run(analysis.ID, doc.ID, documentType, parallel)

	writeJSON(w, http.StatusCreated, analysis)
}

func (a *api) listAnalyses(w http.ResponseWriter, r *http.Request) {
	filter := store.AnalysisFilter{
		Status:     model.AnalysisStatus(r.URL.Query().Get("status")),
		DocumentID: r.URL.Query().Get("document_id"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	analyses, err := a.store.ListAnalyses(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list analyses failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": analyses})
}

func (a *api) getAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := a.store.GetAnalysis(r.Context(), chi.URLParam(r, "analysisID"))
	if err != nil {
		if store.ErrNoRows(err) {
			writeError(w, http.StatusNotFound, "analysis not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "load analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (a *api) getStatus(w http.ResponseWriter, r *http.Request) {
	analysisID := chi.URLParam(r, "analysisID")

	if a.mirror != nil {
		entry, err := a.mirror.Get(r.Context(), analysisID)
		if err != nil {
			a.logger.Warn("mirror read failed", zap.Error(err))
		} else if entry != nil {
			writeJSON(w, http.StatusOK, statusReport{
				AnalysisID: analysisID,
				Status:     string(entry.Status),
				Progress:   entry.Progress,
				Source:     "mirror",
			})
			return
		}
	}

	analysis, err := a.store.GetAnalysis(r.Context(), analysisID)
	if err != nil {
		if store.ErrNoRows(err) {
			writeError(w, http.StatusNotFound, "analysis not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "load analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, statusReport{
		AnalysisID: analysis.ID,
		Status:     string(analysis.Status),
		Progress:   analysis.Progress,
		Error:      analysis.Error,
		Source:     "store",
	})
}

func (a *api) retryAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := a.store.GetAnalysis(r.Context(), chi.URLParam(r, "analysisID"))
	if err != nil {
		if store.ErrNoRows(err) {
			writeError(w, http.StatusNotFound, "analysis not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "load analysis failed")
		return
	}
	if analysis.Status != model.StatusFailed {
		writeError(w, http.StatusConflict, "only failed analyses can be retried")
		return
	}

	if err := a.resetter.Reset(r.Context(), analysis.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "reset analysis failed")
		return
	}
	a.run(analysis.ID, analysis.DocumentID, analysis.DocumentType, a.parallel)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":      "accepted",
		"analysis_id": analysis.ID,
	})
}

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		var mirror statusMirror
		if env.Mirror != nil {
			mirror = env.Mirror
		}
		a := newAPI(ctx, env.Store, mirror, env.Orch, env.Tracker, cfg.Workflow.Parallel)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(a, cfg.Server.AllowedOrigins),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background())
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
