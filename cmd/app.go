package cmd

import (
	"context"
	"fmt"

	"rentledger-backend/config"
	"rentledger-backend/services"

	"gorm.io/gorm"
)

// app holds the wired services shared by the subcommands.
type app struct {
	cfg      *config.Config
	db       *gorm.DB
	ledger   *services.Ledger
	notifier *services.NotificationService
	queue    *services.DispatchQueue
}

func newApp(cfg *config.Config, async bool) (*app, error) {
	db, err := config.ConnectDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	notifier := services.NewNotificationService(db, services.NotificationSettings{
		TwilioSID:      cfg.TwilioSID,
		TwilioToken:    cfg.TwilioToken,
		WhatsAppNumber: cfg.TwilioWhatsApp,
		PhoneNumber:    cfg.TwilioPhone,
		SMTPHost:       cfg.SMTPHost,
		SMTPPort:       cfg.SMTPPort,
		SMTPUsername:   cfg.SMTPUsername,
		SMTPPassword:   cfg.SMTPPassword,
		SMTPFrom:       cfg.SMTPFrom,
	})

	opts := services.LedgerOptions{
		Documents:  services.NewPDFGenerator(db, cfg.DocumentDir, cfg.Currency),
		Notifier:   notifier,
		RentDueDay: cfg.RentDueDay,
		Currency:   cfg.Currency,
		SiteURL:    cfg.SiteURL,
	}

	a := &app{cfg: cfg, db: db, notifier: notifier}
	if async {
		a.queue = services.NewDispatchQueue(256)
		opts.Queue = a.queue
	}
	a.ledger = services.NewLedger(db, opts)
	return a, nil
}

func (a *app) start(ctx context.Context) {
	if a.queue != nil {
		a.queue.Start(ctx)
	}
}

// close drains pending post-commit jobs and closes the pool.
func (a *app) close() {
	if a.queue != nil {
		a.queue.Stop()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}
