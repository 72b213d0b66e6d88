package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MyraWang0406/MatrixMirix04/internal/orchestrator"
	"github.com/MyraWang0406/MatrixMirix04/internal/storage/sqlite"
)

var evaluateFlags struct {
	cardPath   string
	corpusPath string
	outputPath string
	sqlitePath string
	variants   int
	legacy     bool
	verbose    bool
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run the full pipeline for one structure card",
	Long: `Evaluate runs the single-card pipeline: OFAAT variant generation,
metric simulation, explore/validate gates, element scoring, diagnosis
and the decision summary. The result is printed as JSON.

The same card always produces the same metrics and decision; only the
run ID differs between invocations.`,
	RunE: runEvaluate,
}

func init() {
	f := evaluateCmd.Flags()
	f.StringVar(&evaluateFlags.cardPath, "card", "", "Path to structure card JSON (\"-\" for stdin)")
	f.StringVar(&evaluateFlags.corpusPath, "corpus", "", "Optional corpus YAML override")
	f.StringVarP(&evaluateFlags.outputPath, "output", "o", "", "Output path (default: stdout)")
	f.StringVar(&evaluateFlags.sqlitePath, "sqlite", "", "Knowledge store DB path; persists the run when set")
	f.IntVar(&evaluateFlags.variants, "variants", 0, "Test variants per card (default: pipeline default)")
	f.BoolVar(&evaluateFlags.legacy, "legacy", false, "Normalize legacy card field shapes before evaluating")
	f.BoolVarP(&evaluateFlags.verbose, "verbose", "v", false, "Log pipeline phases to stderr")
	_ = evaluateCmd.MarkFlagRequired("card")
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadCorpus(evaluateFlags.corpusPath)
	if err != nil {
		return err
	}
	card, err := loadCard(evaluateFlags.cardPath, evaluateFlags.legacy)
	if err != nil {
		return err
	}

	opts := orchestrator.Options{
		Corpus:          cfg,
		VariantsPerCard: evaluateFlags.variants,
		Verbose:         evaluateFlags.verbose,
	}
	if evaluateFlags.sqlitePath != "" {
		store, err := sqlite.Open(evaluateFlags.sqlitePath)
		if err != nil {
			return fmt.Errorf("open knowledge store: %w", err)
		}
		defer store.Close()
		opts.Knowledge = store
	}

	orch, err := orchestrator.New(opts)
	if err != nil {
		return err
	}

	res, err := orch.RunCard(cmd.Context(), card)
	if err != nil {
		return err
	}

	data, err := marshalIndent(res)
	if err != nil {
		return err
	}
	return writeOutput(evaluateFlags.outputPath, data)
}
