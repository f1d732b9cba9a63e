package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openscrape/facedex/internal/config"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print corpus totals",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	store, pool, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	stats, err := store.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("querying stats: %w", err)
	}

	fmt.Printf("Images:     %d\n", stats.Images)
	fmt.Printf("Faces:      %d\n", stats.Faces)
	fmt.Printf("Identities: %d (%d named)\n", stats.Identities, stats.Named)
	return nil
}
