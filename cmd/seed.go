package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/legal-analyzer/internal/model"
)

// corpusFile is the YAML layout of a precedent corpus file.
type corpusFile struct {
	Precedents []struct {
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		Type        string `yaml:"type"`
		Relevance   string `yaml:"relevance"`
		Source      string `yaml:"source"`
	} `yaml:"precedents"`
}

var seedCmd = &cobra.Command{
	Use:   "seed <corpus.yaml>",
	Short: "Seed the precedent corpus from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context(), "seed")
		if err != nil {
			return err
		}
		defer env.Close()

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read corpus file %s", args[0])
		}
		var corpus corpusFile
		if err := yaml.Unmarshal(raw, &corpus); err != nil {
			return eris.Wrap(err, "parse corpus file")
		}
		if len(corpus.Precedents) == 0 {
			return eris.New("corpus file contains no precedents")
		}

		entries := make([]model.CorpusPrecedent, 0, len(corpus.Precedents))
		for _, p := range corpus.Precedents {
			if p.Title == "" {
				return eris.New("corpus entry without a title")
			}
			entries = append(entries, model.CorpusPrecedent{
				Title:       p.Title,
				Description: p.Description,
				Type:        p.Type,
				Relevance:   p.Relevance,
				Source:      p.Source,
			})
		}

		n, err := env.Index.Upsert(cmd.Context(), entries)
		if err != nil {
			return err
		}

		zap.L().Info("corpus seeded", zap.Int64("rows", n), zap.String("file", args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
