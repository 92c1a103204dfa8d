package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"rentledger-backend/config"
	"rentledger-backend/logger"
	"rentledger-backend/routes"
	"rentledger-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the billing scheduler",
	Long: `Start the HTTP API. Unless --no-scheduler is given, monthly rent
generation and overdue notices also run on their cron schedules
(RENT_CRON and OVERDUE_CRON).`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("no-scheduler", false, "Do not run the scheduled billing jobs")
	serveCmd.Flags().Bool("print-routes", false, "Print the registered routes on startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	noScheduler, _ := cmd.Flags().GetBool("no-scheduler")
	printRoutes, _ := cmd.Flags().GetBool("print-routes")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := newApp(cfg, cfg.AsyncDispatch)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	a.start(ctx)

	if !noScheduler {
		scheduler := services.NewScheduler(a.ledger)
		if err := scheduler.Register(services.ScheduleSpec{
			MonthlyRent:    cfg.RentCron,
			OverdueNotices: cfg.OverdueCron,
		}); err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	r := routes.SetupRouter(routes.Dependencies{
		DB:          a.db,
		Ledger:      a.ledger,
		Notifier:    a.notifier,
		CORSOrigins: cfg.CORSOrigins,
	})
	if printRoutes {
		for _, route := range r.Routes() {
			log.Info().Str("method", route.Method).Str("path", route.Path).Msg("route")
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
