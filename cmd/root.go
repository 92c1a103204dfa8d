package cmd

import (
	"fmt"
	"os"

	"rentledger-backend/logger"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "rentledger",
	Short: "Rent ledger - invoices, payments and lease settlement for rental properties",
	Long: `Rent ledger keeps the invoice and payment ledger of a rental property business.

Run "rentledger serve" to start the HTTP API with the scheduled rent and
overdue jobs, or use the subcommands to run those jobs and the database
migrations once from the command line.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}
