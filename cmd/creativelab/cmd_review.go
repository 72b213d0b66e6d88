package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MyraWang0406/MatrixMirix04/internal/storage"
	"github.com/MyraWang0406/MatrixMirix04/internal/storage/sqlite"
)

var reviewFlags struct {
	sqlitePath string
	outputPath string
	vertical   string
	channel    string
	country    string
	segment    string
	os         string
	bucket     string
	limit      int
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Aggregate stored experiments from the knowledge store",
	Long: `Review queries the knowledge store: explore/validate pass rates,
failure-type histogram and the top structures by pass count, optionally
filtered by card dimensions. The report is printed as JSON.`,
	RunE: runReview,
}

func init() {
	f := reviewCmd.Flags()
	f.StringVar(&reviewFlags.sqlitePath, "sqlite", "", "Knowledge store DB path")
	f.StringVarP(&reviewFlags.outputPath, "output", "o", "", "Output path (default: stdout)")
	f.StringVar(&reviewFlags.vertical, "vertical", "", "Filter by vertical")
	f.StringVar(&reviewFlags.channel, "channel", "", "Filter by channel")
	f.StringVar(&reviewFlags.country, "country", "", "Filter by country")
	f.StringVar(&reviewFlags.segment, "segment", "", "Filter by segment")
	f.StringVar(&reviewFlags.os, "os", "", "Filter by OS")
	f.StringVar(&reviewFlags.bucket, "motivation-bucket", "", "Filter by motivation bucket")
	f.IntVar(&reviewFlags.limit, "limit", 0, "Cap the number of experiments considered")
	_ = reviewCmd.MarkFlagRequired("sqlite")
}

func runReview(cmd *cobra.Command, _ []string) error {
	store, err := sqlite.Open(reviewFlags.sqlitePath)
	if err != nil {
		return fmt.Errorf("open knowledge store: %w", err)
	}
	defer store.Close()

	report, err := store.QueryReview(cmd.Context(), storage.ReviewFilter{
		Vertical:         reviewFlags.vertical,
		Channel:          reviewFlags.channel,
		Country:          reviewFlags.country,
		Segment:          reviewFlags.segment,
		OS:               reviewFlags.os,
		MotivationBucket: reviewFlags.bucket,
		Limit:            reviewFlags.limit,
	})
	if err != nil {
		return fmt.Errorf("review query: %w", err)
	}

	data, err := marshalIndent(report)
	if err != nil {
		return err
	}
	return writeOutput(reviewFlags.outputPath, data)
}
