package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimguard/internal/model"
	"github.com/ppiankov/claimguard/internal/worker"
)

var (
	searchLimit        int
	searchMinRelevance float64
	confirmTemplate    string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <file|->",
	Short: "Score claims with the rule and classifier fusion",
	Long: `Evaluate derives features from each claim's history, checks for
receipts reused by other users and fuses the classifier probability
with the duplicate rule.

Example:
  claimguard evaluate claim.json
  echo '{"id":"c1","user_id":"u1","merchant":"Cafe","amount":100}' | claimguard evaluate -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForEachClaim(cmd.Context(), args[0], func(ctx context.Context, a *app, c model.Claim) (interface{}, error) {
			return a.pipeline.EvaluateClaim(ctx, c)
		})
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|->",
	Short: "Full analysis with similar fraud cases and narrative",
	Long: `Analyze evaluates each claim, retrieves similar confirmed fraud
cases, lists risk factors and produces a combined score with a
reviewer narrative.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForEachClaim(cmd.Context(), args[0], func(ctx context.Context, a *app, c model.Claim) (interface{}, error) {
			return a.pipeline.AnalyzeClaim(ctx, c)
		})
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file|->",
	Short: "Store claims so they count as history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForEachClaim(cmd.Context(), args[0], func(ctx context.Context, a *app, c model.Claim) (interface{}, error) {
			return a.pipeline.Ingest(ctx, c)
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the fraud knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		results := a.pipeline.SearchKnowledgeBase(ctx, args[0], model.SearchOptions{
			Limit:        searchLimit,
			MinRelevance: searchMinRelevance,
		})
		return writeJSON("", results)
	},
}

var confirmCmd = &cobra.Command{
	Use:   "confirm <claim-id>",
	Short: "Mark a stored claim as confirmed fraud and index it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		entry, err := a.pipeline.ConfirmFraud(ctx, args[0], confirmTemplate)
		if err != nil {
			return err
		}
		return writeJSON("", entry)
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the knowledge base from confirmed fraud claims",
	RunE: func(cmd *cobra.Command, args []string) error {
		// newApp already rebuilds; report the resulting size
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		fmt.Printf("✓ Indexed %d confirmed fraud cases\n", a.pipeline.Index().Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(confirmCmd)
	rootCmd.AddCommand(rebuildCmd)

	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum results (default: retrieval.max_results)")
	searchCmd.Flags().Float64Var(&searchMinRelevance, "min-relevance", 0, "minimum relevance score")
	confirmCmd.Flags().StringVar(&confirmTemplate, "template", "", "fraud template label (e.g. duplicate_receipt)")
}

// runForEachClaim reads claims from path and prints one JSON result per
// claim. A single claim prints a bare object.
func runForEachClaim(ctx context.Context, path string, fn func(context.Context, *app, model.Claim) (interface{}, error)) error {
	if ctx == nil {
		ctx = context.Background()
	}

	claims, err := readClaimsArg(path)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	out := make([]interface{}, 0, len(claims))
	for _, c := range claims {
		res, err := fn(ctx, a, c)
		if err != nil {
			return fmt.Errorf("claim %s: %w", c.ID, err)
		}
		out = append(out, res)
	}

	if len(out) == 1 {
		return writeJSON("", out[0])
	}
	return writeJSON("", out)
}

// readClaimsArg reads claims from a file path, or stdin for "-"
func readClaimsArg(path string) ([]model.Claim, error) {
	var (
		claims []model.Claim
		err    error
	)
	if path == "-" {
		data, rErr := io.ReadAll(os.Stdin)
		if rErr != nil {
			return nil, fmt.Errorf("read stdin: %w", rErr)
		}
		claims, err = worker.ParseClaims(data)
	} else {
		claims, err = worker.ReadClaimsFile(path)
	}
	if err != nil {
		return nil, err
	}
	if len(claims) == 0 {
		return nil, errors.New("no claims in input")
	}
	return claims, nil
}

// writeJSON writes v as indented JSON to path, or stdout when path is empty
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
