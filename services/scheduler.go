package services

import (
	"context"

	"rentledger-backend/logger"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler triggers the idempotent ledger jobs on cron specs.
type Scheduler struct {
	ledger *Ledger
	cron   *cron.Cron
	log    zerolog.Logger
}

type ScheduleSpec struct {
	MonthlyRent    string // e.g. "0 1 1 * *"
	OverdueNotices string // e.g. "0 9 * * *"
}

func NewScheduler(ledger *Ledger) *Scheduler {
	return &Scheduler{
		ledger: ledger,
		cron:   cron.New(),
		log:    logger.WithComponent("scheduler"),
	}
}

// Register adds the jobs. An empty spec disables that job.
func (s *Scheduler) Register(spec ScheduleSpec) error {
	if spec.MonthlyRent != "" {
		if _, err := s.cron.AddFunc(spec.MonthlyRent, s.runMonthlyRent); err != nil {
			return err
		}
	}
	if spec.OverdueNotices != "" {
		if _, err := s.cron.AddFunc(spec.OverdueNotices, s.runOverdueNotices); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runMonthlyRent() {
	month := s.ledger.CurrentMonth()
	if _, err := s.ledger.GenerateMonthlyRent(context.Background(), month); err != nil {
		s.log.Error().Err(err).Msg("monthly rent run failed")
	}
}

func (s *Scheduler) runOverdueNotices() {
	if _, err := s.ledger.SendOverdueNotices(context.Background()); err != nil {
		s.log.Error().Err(err).Msg("overdue notice run failed")
	}
}
