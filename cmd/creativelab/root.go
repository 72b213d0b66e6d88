// creativelab is the decision-support CLI for creative structure
// testing: evaluate single cards, run stratified batches, query the
// knowledge store and serve the HTTP API.
//
// Usage:
//
//	creativelab evaluate --card card.json
//	creativelab batch -n 30 --concurrency 4 --sqlite knowledge.db
//	creativelab review --sqlite knowledge.db --vertical ecommerce
//	creativelab report --card card.json --format markdown
//	creativelab serve --addr :8080 --sqlite knowledge.db
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "creativelab",
	Short: "Deterministic decision support for ad creative structure testing",
	Long: "Creativelab simulates OFAAT creative experiments over structure cards:\n" +
		"variant generation, deterministic metrics, explore/validate gates,\n" +
		"element scoring, diagnosis and a scaling decision.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
