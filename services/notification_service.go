package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentledger-backend/logger"
	"rentledger-backend/models"
	"rentledger-backend/utils"

	"github.com/rs/zerolog"
	"github.com/twilio/twilio-go"
	"github.com/wneessen/go-mail"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gorm.io/gorm"
)

// MessageCreator is the part of the Twilio API used for WhatsApp and SMS.
type MessageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// EmailSender delivers a plain text email.
type EmailSender interface {
	SendEmail(to, subject, body string) error
}

type NotificationSettings struct {
	TwilioSID      string
	TwilioToken    string
	WhatsAppNumber string
	PhoneNumber    string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// NotificationService delivers notifications and keeps one log row per
// attempt. It never retries.
type NotificationService struct {
	db           *gorm.DB
	messages     MessageCreator
	email        EmailSender
	whatsappFrom string
	smsFrom      string
	log          zerolog.Logger
}

func NewNotificationService(db *gorm.DB, s NotificationSettings) *NotificationService {
	svc := &NotificationService{
		db:           db,
		whatsappFrom: s.WhatsAppNumber,
		smsFrom:      s.PhoneNumber,
		log:          logger.WithComponent("notifier"),
	}
	if s.TwilioSID != "" && s.TwilioToken != "" {
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: s.TwilioSID,
			Password: s.TwilioToken,
		})
		svc.messages = client.Api
	}
	if s.SMTPHost != "" {
		svc.email = &SMTPSender{
			Host:     s.SMTPHost,
			Port:     s.SMTPPort,
			Username: s.SMTPUsername,
			Password: s.SMTPPassword,
			From:     s.SMTPFrom,
		}
	}
	return svc
}

// NewNotificationServiceWith wires explicit transports.
func NewNotificationServiceWith(db *gorm.DB, messages MessageCreator, email EmailSender, whatsappFrom, smsFrom string) *NotificationService {
	return &NotificationService{
		db:           db,
		messages:     messages,
		email:        email,
		whatsappFrom: whatsappFrom,
		smsFrom:      smsFrom,
		log:          logger.WithComponent("notifier"),
	}
}

var errNoTransport = errors.New("no transport configured")

func (s *NotificationService) Send(ctx context.Context, n Notification) (*models.NotificationLog, error) {
	entry := &models.NotificationLog{
		Kind:      n.Kind,
		RenterID:  n.RenterID,
		InvoiceID: n.InvoiceID,
		Channel:   n.Channel,
		Recipient: n.Recipient,
		Subject:   n.Subject,
		Message:   n.Content,
		Status:    models.DeliveryPending,
		SentBy:    n.SentBy,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("create notification log: %w", err)
	}

	ref, sendErr := s.deliver(n)
	if sendErr != nil {
		entry.Status = models.DeliveryFailed
		entry.ErrorMessage = sendErr.Error()
		s.log.Error().Err(sendErr).
			Str("channel", string(n.Channel)).
			Str("recipient", n.Recipient).
			Str("kind", string(n.Kind)).
			Msg("notification failed")
	} else {
		now := time.Now()
		entry.Status = models.DeliverySent
		entry.ProviderRef = ref
		entry.SentAt = &now
		s.log.Info().
			Str("channel", string(n.Channel)).
			Str("recipient", n.Recipient).
			Str("kind", string(n.Kind)).
			Str("ref", ref).
			Msg("notification sent")
	}

	if err := s.db.WithContext(ctx).Model(entry).
		Select("status", "error_message", "provider_ref", "sent_at", "updated_at").
		Updates(entry).Error; err != nil {
		s.log.Error().Err(err).Str("notification_id", entry.ID.String()).Msg("failed to update notification log")
	}
	return entry, sendErr
}

func (s *NotificationService) deliver(n Notification) (string, error) {
	if n.Recipient == "" {
		return "", fmt.Errorf("renter has no recipient for channel %s", n.Channel)
	}
	switch n.Channel {
	case models.ChannelEmail:
		if s.email == nil {
			return "", fmt.Errorf("email: %w", errNoTransport)
		}
		if !utils.ValidateEmail(n.Recipient) {
			return "", fmt.Errorf("invalid email address %q", n.Recipient)
		}
		return "", s.email.SendEmail(n.Recipient, n.Subject, n.Content)
	case models.ChannelWhatsApp, models.ChannelSMS:
		return s.sendMessage(n)
	}
	return "", fmt.Errorf("unsupported channel %q", n.Channel)
}

func (s *NotificationService) sendMessage(n Notification) (string, error) {
	if s.messages == nil {
		return "", fmt.Errorf("%s: %w", n.Channel, errNoTransport)
	}
	if !utils.ValidatePhone(n.Recipient) {
		return "", fmt.Errorf("invalid phone number %q", n.Recipient)
	}
	phone := utils.NormalizePhone(n.Recipient)

	params := &twilioApi.CreateMessageParams{}
	params.SetBody(n.Content)
	if n.Channel == models.ChannelWhatsApp {
		params.SetTo("whatsapp:" + phone)
		params.SetFrom("whatsapp:" + s.whatsappFrom)
	} else {
		params.SetTo(phone)
		params.SetFrom(s.smsFrom)
	}

	resp, err := s.messages.CreateMessage(params)
	if err != nil {
		return "", err
	}
	if resp != nil && resp.Sid != nil {
		return *resp.Sid, nil
	}
	return "", nil
}

type NotificationFilter struct {
	InvoiceID *uint
	RenterID  *uint
	Status    string
	Limit     int
}

// ListLogs returns delivery records newest first.
func (s *NotificationService) ListLogs(ctx context.Context, f NotificationFilter) ([]models.NotificationLog, error) {
	q := s.db.WithContext(ctx).Model(&models.NotificationLog{})
	if f.InvoiceID != nil {
		q = q.Where("invoice_id = ?", *f.InvoiceID)
	}
	if f.RenterID != nil {
		q = q.Where("renter_id = ?", *f.RenterID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	var logs []models.NotificationLog
	err := q.Order("created_at desc").Limit(f.Limit).Find(&logs).Error
	return logs, err
}

// SMTPSender sends plain text mail through an SMTP relay. TLS is used when
// the server offers it.
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (m *SMTPSender) SendEmail(to, subject, body string) error {
	msg, err := m.message(to, subject, body)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(m.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.Username),
			mail.WithPassword(m.Password),
		)
	}
	client, err := mail.NewClient(m.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSend(msg)
}

// message builds the MIME message. Header values are encoded by go-mail;
// line breaks in the subject are folded to spaces first.
func (m *SMTPSender) message(to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return nil, fmt.Errorf("from address %q: %w", m.From, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("to address %q: %w", to, err)
	}
	msg.Subject(strings.Join(strings.Fields(subject), " "))
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}
