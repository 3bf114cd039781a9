package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimguard/internal/worker"
)

var (
	concurrency  int
	batchTimeout time.Duration
	batchOutput  string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file|->",
	Short: "Evaluate many claims in parallel",
	Long: `Batch evaluates claims concurrently:
- Read claims from a JSON array or JSON-lines file ("-" reads stdin)
- Evaluate claims in parallel with a configurable worker count
- Emit one result per claim, in input order

Example:
  claimguard batch claims.jsonl
  claimguard batch claims.json --concurrency 8 --output results.json
  cat claims.jsonl | claimguard batch -`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "write results to file instead of stdout")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	claims, err := readClaimsArg(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	workers := concurrency
	if workers <= 0 {
		workers = a.cfg.Concurrency.Workers
	}

	fmt.Fprintf(os.Stderr, "⚙️  Evaluating %d claims with %d workers...\n", len(claims), workers)

	evaluator := worker.NewBatchEvaluator(a.pipeline, workers)
	results := evaluator.EvaluateClaims(ctx, claims)

	failures := 0
	flagged := 0
	for _, r := range results {
		switch {
		case r.Error != nil:
			failures++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.ClaimID, r.Error)
		case r.Assessment.IsFraudulent:
			flagged++
		}
	}

	if err := writeJSON(batchOutput, results); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d claims\n", len(results))
	fmt.Fprintf(os.Stderr, "  Flagged:   %d\n", flagged)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failures)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}
