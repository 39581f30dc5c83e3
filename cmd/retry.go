package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/legal-analyzer/internal/model"
)

var retryParallel bool

var retryCmd = &cobra.Command{
	Use:   "retry <analysis-id>",
	Short: "Reset a failed analysis and run it again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initApp(ctx, "retry")
		if err != nil {
			return err
		}
		defer env.Close()

		analysis, err := env.Store.GetAnalysis(ctx, args[0])
		if err != nil {
			return err
		}
		if analysis.Status != model.StatusFailed {
			return eris.Errorf("analysis %s is %s, only failed analyses can be retried", analysis.ID, analysis.Status)
		}

		if err := env.Tracker.Reset(ctx, analysis.ID); err != nil {
			return err
		}

		parallel := retryParallel || cfg.Workflow.Parallel
		zap.L().Info("retrying analysis",
			zap.String("analysis_id", analysis.ID),
			zap.Bool("parallel", parallel),
		)

		if parallel {
			err = env.Orch.RunParallel(ctx, analysis.ID, analysis.DocumentID, analysis.DocumentType)
		} else {
			err = env.Orch.Run(ctx, analysis.ID, analysis.DocumentID, analysis.DocumentType)
		}
		if err != nil {
			return err
		}

		final, err := env.Store.GetAnalysis(ctx, analysis.ID)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(final, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	retryCmd.Flags().BoolVar(&retryParallel, "parallel", false, "run independent stages concurrently")
	rootCmd.AddCommand(retryCmd)
}
