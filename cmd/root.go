package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facedex",
	Short: "A face identity index for scraped image corpora",
	Long: `Facedex ingests scraped images, filters duplicates and junk,
detects faces and clusters them into persistent identities.
Identities are learned incrementally: every resolved face either
joins an existing identity or mints a new one.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
