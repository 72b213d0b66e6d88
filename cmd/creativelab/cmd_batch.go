package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
	"github.com/MyraWang0406/MatrixMirix04/internal/evalset"
	"github.com/MyraWang0406/MatrixMirix04/internal/orchestrator"
	"github.com/MyraWang0406/MatrixMirix04/internal/storage/sqlite"
)

var batchFlags struct {
	n           int
	concurrency int
	seed        string
	corpusPath  string
	sqlitePath  string
	verbose     bool
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Evaluate a stratified batch of sampled structure cards",
	Long: `Batch samples a stratified evaluation set over vertical, channel,
country, segment, OS and motivation bucket, runs the full pipeline for
every card with bounded concurrency and prints a per-card table plus a
decision histogram. With --sqlite, every run is persisted into the
knowledge store for later review queries.`,
	RunE: runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.IntVarP(&batchFlags.n, "count", "n", 30, "Target number of cards to sample")
	f.IntVar(&batchFlags.concurrency, "concurrency", 4, "Maximum concurrent card evaluations")
	f.StringVar(&batchFlags.seed, "seed", "evalset_v1", "Sampling seed (same seed, same set)")
	f.StringVar(&batchFlags.corpusPath, "corpus", "", "Optional corpus YAML override")
	f.StringVar(&batchFlags.sqlitePath, "sqlite", "", "Knowledge store DB path; persists runs when set")
	f.BoolVarP(&batchFlags.verbose, "verbose", "v", false, "Log pipeline phases to stderr")
}

func runBatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadCorpus(batchFlags.corpusPath)
	if err != nil {
		return err
	}

	opts := orchestrator.Options{Corpus: cfg, Verbose: batchFlags.verbose}
	if batchFlags.sqlitePath != "" {
		store, err := sqlite.Open(batchFlags.sqlitePath)
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

	sampleCfg := evalset.DefaultConfig()
	sampleCfg.Seed = batchFlags.seed
	set := evalset.Sample(batchFlags.n, sampleCfg, nil)
	fmt.Fprintf(os.Stderr, "sampled %d cards across %d strata\n", len(set.Cards), len(set.StratumKeys))

	results := make([]*orchestrator.Result, len(set.Cards))
	runner := evalset.Runner{Concurrency: batchFlags.concurrency}
	err = runner.Run(cmd.Context(), set.Cards, func(ctx context.Context, i int, card domain.StructureCard) error {
		res, err := orch.RunCard(ctx, card)
		if err != nil {
			return fmt.Errorf("card %s: %w", card.CardID, err)
		}
		results[i] = res
		return nil
	})
	if err != nil {
		return err
	}

	printBatchTable(set, results)
	return nil
}

func printBatchTable(set evalset.Set, results []*orchestrator.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CARD\tVERTICAL\tCOUNTRY\tEXPLORE iOS\tEXPLORE Android\tVALIDATE\tSCORE\tDECISION")
	statusCount := map[string]int{}
	for i, res := range results {
		if res == nil {
			continue
		}
		card := set.Cards[i]
		statusCount[res.Decision.Status]++
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%.1f\t%s\n",
			card.CardID, card.Vertical, card.Country,
			res.ExploreIOS.GateStatus, res.ExploreAndroid.GateStatus,
			res.Validate.ValidateStatus,
			res.CardScore.CardScore, res.Decision.Status)
	}
	w.Flush()

	statuses := make([]string, 0, len(statusCount))
	for s := range statusCount {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	fmt.Println()
	for _, s := range statuses {
		fmt.Printf("%s: %d\n", s, statusCount[s])
	}
}
