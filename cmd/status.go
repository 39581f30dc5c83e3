package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// statusReport is the CLI/API shape of an analysis status.
type statusReport struct {
	AnalysisID string  `json:"analysis_id"`
	Status     string  `json:"status"`
	Progress   float64 `json:"progress"`
	Error      string  `json:"error,omitempty"`
	Source     string  `json:"source"`
}

var statusCmd = &cobra.Command{
	Use:   "status <analysis-id>",
	Short: "Print analysis status and progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initStores(ctx, "status")
		if err != nil {
			return err
		}
		defer env.Close()

		analysisID := args[0]
		report, err := loadStatus(cmd, env, analysisID)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

// loadStatus reads the mirror first and falls back to the durable store.
func loadStatus(cmd *cobra.Command, env *appEnv, analysisID string) (*statusReport, error) {
	ctx := cmd.Context()
	if env.Mirror != nil {
		entry, err := env.Mirror.Get(ctx, analysisID)
		if err != nil {
			zap.L().Warn("mirror read failed", zap.Error(err))
		} else if entry != nil {
			return &statusReport{
				AnalysisID: analysisID,
				Status:     string(entry.Status),
				Progress:   entry.Progress,
				Source:     "mirror",
			}, nil
		}
	}

	analysis, err := env.Store.GetAnalysis(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	return &statusReport{
		AnalysisID: analysis.ID,
		Status:     string(analysis.Status),
		Progress:   analysis.Progress,
		Error:      analysis.Error,
		Source:     "store",
	}, nil
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
