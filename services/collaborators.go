package services

import (
	"context"

	"rentledger-backend/models"
)

// DocumentGenerator renders an invoice document and returns its reference.
type DocumentGenerator interface {
	Generate(ctx context.Context, invoice *models.Invoice) (string, error)
}

// Notification is pre-rendered content for one delivery.
type Notification struct {
	Kind      models.NotificationKind
	Channel   models.NotificationChannel
	Recipient string
	Subject   string
	Content   string
	RenterID  uint
	InvoiceID *uint
	SentBy    string
}

// NotificationDispatcher delivers a notification and returns the persisted
// delivery record. A failed delivery returns the record with status failed
// and a non-nil error.
type NotificationDispatcher interface {
	Send(ctx context.Context, n Notification) (*models.NotificationLog, error)
}

// Job is a unit of deferred post-commit work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Enqueuer accepts deferred work. DispatchQueue implements it.
type Enqueuer interface {
	Enqueue(job Job) bool
}
