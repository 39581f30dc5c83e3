package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	analyzeDocType  string
	analyzeParallel bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <document>",
	Short: "Analyze a legal document end to end",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initApp(ctx, "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		doc, err := env.Docs.Register(ctx, args[0], analyzeDocType)
		if err != nil {
			return err
		}
		analysis, err := env.Store.CreateAnalysis(ctx, doc.ID, doc.DocumentType)
		if err != nil {
			return err
		}

		parallel := analyzeParallel || cfg.Workflow.Parallel
		zap.L().Info("running analysis",
			zap.String("analysis_id", analysis.ID),
			zap.String("document_id", doc.ID),
			zap.Bool("parallel", parallel),
		)

		if parallel {
			err = env.Orch.RunParallel(ctx, analysis.ID, doc.ID, doc.DocumentType)
		} else {
			err = env.Orch.Run(ctx, analysis.ID, doc.ID, doc.DocumentType)
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
	analyzeCmd.Flags().StringVar(&analyzeDocType, "document-type", "contract", "document type (contract, nda, employment, ...)")
	analyzeCmd.Flags().BoolVar(&analyzeParallel, "parallel", false, "run independent stages concurrently")
	rootCmd.AddCommand(analyzeCmd)
}
