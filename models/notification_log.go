package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationKind string

const (
	KindInvoiceCreated  NotificationKind = "invoice_created"
	KindPaymentReceived NotificationKind = "payment_received"
	KindRentReminder    NotificationKind = "rent_reminder"
	KindOverdueNotice   NotificationKind = "overdue_notice"
)

type NotificationChannel string

const (
	ChannelEmail    NotificationChannel = "email"
	ChannelWhatsApp NotificationChannel = "whatsapp"
	ChannelSMS      NotificationChannel = "sms"
)

type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// NotificationLog is written once per delivery attempt.
type NotificationLog struct {
	ID           uuid.UUID           `gorm:"type:uuid;primary_key" json:"id"`
	Kind         NotificationKind    `gorm:"type:varchar(30);index" json:"kind"`
	RenterID     uint                `gorm:"index" json:"renterId"`
	InvoiceID    *uint               `gorm:"index" json:"invoiceId,omitempty"`
	Channel      NotificationChannel `gorm:"type:varchar(20)" json:"channel"`
	Recipient    string              `json:"recipient"`
	Subject      string              `json:"subject"`
	Message      string              `gorm:"type:text" json:"message"`
	Status       DeliveryStatus      `gorm:"type:varchar(20);index" json:"status"`
	ErrorMessage string              `gorm:"type:text" json:"errorMessage,omitempty"`
	ProviderRef  string              `json:"providerRef,omitempty"`
	SentBy       string              `gorm:"type:varchar(64)" json:"sentBy"`
	SentAt       *time.Time          `json:"sentAt,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

func (n *NotificationLog) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}

// NotificationTemplate overrides the built-in message for a kind and channel.
// Body placeholders: [RenterName], [InvoiceNumber], [Amount], [Balance], [DueDate], [Month].
type NotificationTemplate struct {
	gorm.Model

	Kind     NotificationKind    `gorm:"type:varchar(30);not null;uniqueIndex:idx_template_kind_channel" json:"kind"`
	Channel  NotificationChannel `gorm:"type:varchar(20);not null;uniqueIndex:idx_template_kind_channel" json:"channel"`
	Subject  string              `json:"subject"`
	Body     string              `gorm:"type:text;not null" json:"body"`
	IsActive bool                `gorm:"not null" json:"isActive"`
}
