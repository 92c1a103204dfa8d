package cmd

import (
	"context"
	"fmt"
	"time"

	"rentledger-backend/config"
	"rentledger-backend/logger"
	"rentledger-backend/utils"

	"github.com/spf13/cobra"
)

var generateRentCmd = &cobra.Command{
	Use:   "generate-rent",
	Short: "Issue rent invoices for every active lease",
	Long: `Issue the month's rent invoice for every active lease. Leases that
already have a rent invoice for the month are skipped, so running the
command twice is safe.`,
	Example: `  # Current month
  rentledger generate-rent

  # A specific month
  rentledger generate-rent --month 2025-03`,
	RunE: runGenerateRent,
}

var overdueCmd = &cobra.Command{
	Use:   "send-overdue",
	Short: "Notify renters about invoices past their due date",
	RunE:  runSendOverdue,
}

func init() {
	rootCmd.AddCommand(generateRentCmd)
	rootCmd.AddCommand(overdueCmd)

	generateRentCmd.Flags().String("month", "", "Billing month (format: YYYY-MM, default: current month)")
}

func runGenerateRent(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("generate-rent")

	monthStr, _ := cmd.Flags().GetString("month")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	month := a.ledger.CurrentMonth()
	if monthStr != "" {
		parsed, err := time.Parse("2006-01", monthStr)
		if err != nil {
			return fmt.Errorf("invalid month format. Use YYYY-MM: %w", err)
		}
		month = utils.FirstOfMonth(parsed)
	}

	result, err := a.ledger.GenerateMonthlyRent(context.Background(), month)
	if err != nil {
		return err
	}

	log.Info().
		Str("month", utils.MonthLabel(result.Month)).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Rent generation finished")
	fmt.Printf("Created: %d, Skipped: %d, Failed: %d\n", result.Created, result.Skipped, result.Failed)
	if result.Failed > 0 {
		return fmt.Errorf("%d lease(s) failed", result.Failed)
	}
	return nil
}

func runSendOverdue(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.ledger.SendOverdueNotices(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Sent: %d, Skipped: %d, Failed: %d\n", result.Sent, result.Skipped, result.Failed)
	return nil
}
