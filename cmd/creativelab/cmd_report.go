package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MyraWang0406/MatrixMirix04/internal/fuse"
	"github.com/MyraWang0406/MatrixMirix04/internal/orchestrator"
	"github.com/MyraWang0406/MatrixMirix04/internal/reporting"
	"github.com/MyraWang0406/MatrixMirix04/internal/reviewfeed"
	"github.com/MyraWang0406/MatrixMirix04/internal/storage"
)

var reportFlags struct {
	cardPath    string
	corpusPath  string
	outputPath  string
	format      string
	legacy      bool
	feedURL     string
	feedTimeout time.Duration
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the experiment report for one structure card",
	Long: `Report runs the pipeline for the given card and renders the result:
markdown (default), metrics CSV or review CSV.

With --review-feed, the command also consumes externally produced LLM
review frames from the websocket endpoint, runs each through the fuse
and appends the review outcomes to the report. It stops once every
variant has a review or the feed timeout elapses.`,
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportFlags.cardPath, "card", "", "Path to structure card JSON (\"-\" for stdin)")
	f.StringVar(&reportFlags.corpusPath, "corpus", "", "Optional corpus YAML override")
	f.StringVarP(&reportFlags.outputPath, "output", "o", "", "Output path (default: stdout)")
	f.StringVar(&reportFlags.format, "format", "markdown", "Output format: markdown, csv or review-csv")
	f.BoolVar(&reportFlags.legacy, "legacy", false, "Normalize legacy card field shapes before evaluating")
	f.StringVar(&reportFlags.feedURL, "review-feed", "", "Websocket endpoint producing review frames")
	f.DurationVar(&reportFlags.feedTimeout, "feed-timeout", 30*time.Second, "How long to wait for review frames")
	_ = reportCmd.MarkFlagRequired("card")
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadCorpus(reportFlags.corpusPath)
	if err != nil {
		return err
	}
	card, err := loadCard(reportFlags.cardPath, reportFlags.legacy)
	if err != nil {
		return err
	}

	orch, err := orchestrator.New(orchestrator.Options{Corpus: cfg})
	if err != nil {
		return err
	}
	res, err := orch.RunCard(cmd.Context(), card)
	if err != nil {
		return err
	}

	var reviews []reporting.ReviewedVariant
	if reportFlags.feedURL != "" {
		reviews, err = collectReviews(cmd.Context(), res)
		if err != nil {
			return err
		}
	}

	report := reporting.NewGenerator().FromSnapshot(storage.ExperimentSnapshot{
		ExperimentID: res.ExperimentID,
		Card:         res.Card,
		Variants:     res.Variants,
		Metrics:      res.Metrics,
		Diagnosis:    &res.Diagnosis,
		Elements:     res.Elements,
		Decision:     res.Decision,
	}, reviews)

	var out string
	switch reportFlags.format {
	case "markdown":
		out = reporting.RenderMarkdown(report)
	case "csv":
		out = reporting.RenderMetricsCSV(report.Metrics)
	case "review-csv":
		out = reporting.RenderReviewCSV(report.Reviews)
	default:
		return fmt.Errorf("unknown format %q", reportFlags.format)
	}
	return writeOutput(reportFlags.outputPath, []byte(out))
}

// collectReviews drains the review feed until every variant of the run
// has a review or the feed timeout elapses, and runs each frame through
// the fuse.
func collectReviews(ctx context.Context, res *orchestrator.Result) ([]reporting.ReviewedVariant, error) {
	ctx, cancel := context.WithTimeout(ctx, reportFlags.feedTimeout)
	defer cancel()

	client, err := reviewfeed.Dial(ctx, reportFlags.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial review feed: %w", err)
	}
	defer client.Close()

	want := make(map[string]bool, len(res.Variants))
	for _, v := range res.Variants {
		want[v.VariantID] = true
	}

	var reviews []reporting.ReviewedVariant
	for len(want) > 0 {
		select {
		case frame, ok := <-client.Frames():
			if !ok {
				return reviews, nil
			}
			id := frame.Review.VariantID
			if !want[id] {
				continue
			}
			delete(want, id)
			reviews = append(reviews, reporting.ReviewedVariant{
				Creative: frame.Creative,
				Review:   frame.Review,
				Fuse:     fuse.Evaluate(frame.Creative, frame.Review, res.Card.NoExaggeration),
			})
		case <-ctx.Done():
			fmt.Fprintf(os.Stderr, "review feed: %d of %d variants reviewed before timeout\n",
				len(res.Variants)-len(want), len(res.Variants))
			return reviews, nil
		}
	}
	return reviews, nil
}
