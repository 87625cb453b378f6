package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/finance-ledger/internal/app"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// commandTimeout bounds any single command, including remote calls.
const commandTimeout = 5 * time.Minute

var (
	ledgerApp *app.App
	log       zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "ledger",
	Short:         "Personal finance ledger",
	Long:          "Inspect balances, move data in and out, and sync the ledger with its remote copy.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		level := cfg.LogLevel
		if v, _ := cmd.Flags().GetBool("verbose"); v {
			level = "debug"
		}
		log = logger.NewWithLevel(level)

		ledgerApp, err = app.Build(cmd.Context(), cfg, log)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if ledgerApp != nil {
			ledgerApp.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Debug logging")
}

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if ledgerApp != nil {
			ledgerApp.Close()
		}
		os.Exit(1)
	}
}
