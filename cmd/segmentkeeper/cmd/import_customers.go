package cmd

import (
	"fmt"
	"os"

	"github.com/solatis/segmentkeeper/internal/core/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importCustomersCmd = &cobra.Command{
	Use:   "import-customers <file.jsonl>",
	Short: "Load customers for the dataset audience estimator",
	Long: `Reads one JSON object per line with fields id, name, email, totalSpend,
visitCount and lastPurchaseDate (YYYY-MM-DD or RFC 3339) and stores each customer.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()

		url, err := storeURL()
		if err != nil {
			return err
		}
		st, err := store.Open(ctx, url)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer st.Close()

		n, err := store.ImportCustomers(ctx, st, f)
		logger.Info("customers imported", zap.Int("count", n), zap.String("file", args[0]))
		return err
	},
}

func init() {
	rootCmd.AddCommand(importCustomersCmd)
}
