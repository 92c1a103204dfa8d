package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"rentledger-backend/models"
	"rentledger-backend/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MessageData fills template placeholders.
type MessageData struct {
	RenterName    string
	InvoiceNumber string
	Amount        decimal.Decimal
	Balance       decimal.Decimal
	DueDate       time.Time
	Month         *time.Time
	DaysOverdue   int
	Currency      string
	Link          string
}

type Message struct {
	Subject string
	Body    string
}

var defaultMessages = map[models.NotificationKind]map[models.NotificationChannel]Message{
	models.KindInvoiceCreated: {
		models.ChannelEmail: {
			Subject: "New invoice [InvoiceNumber]",
			Body: "Dear [RenterName],\n\nA new invoice [InvoiceNumber] for [Amount] has been issued, due on [DueDate].\n" +
				"You can download it here: [Link]\n\nThank you.",
		},
		models.ChannelWhatsApp: {
			Body: "Hello [RenterName], invoice [InvoiceNumber] for [Amount] is due on [DueDate]. [Link]",
		},
	},
	models.KindPaymentReceived: {
		models.ChannelEmail: {
			Subject: "Payment received",
			Body: "Dear [RenterName],\n\nWe received your payment of [Amount]. Your outstanding balance is now [Balance].\n\nThank you.",
		},
		models.ChannelWhatsApp: {
			Body: "Hello [RenterName], we received your payment of [Amount]. Outstanding balance: [Balance].",
		},
	},
	models.KindRentReminder: {
		models.ChannelEmail: {
			Subject: "Rent reminder for [Month]",
			Body:    "Dear [RenterName],\n\nThis is a reminder that rent of [Amount] for [Month] is due on [DueDate].\n\nThank you.",
		},
		models.ChannelWhatsApp: {
			Body: "Hello [RenterName], rent of [Amount] for [Month] is due on [DueDate].",
		},
	},
	models.KindOverdueNotice: {
		models.ChannelEmail: {
			Subject: "Overdue invoice [InvoiceNumber]",
			Body: "Dear [RenterName],\n\nInvoice [InvoiceNumber] was due on [DueDate] and is [DaysOverdue] days overdue. " +
				"[Balance] remains unpaid.\n" +
				"Please arrange payment at your earliest convenience.\n\nThank you.",
		},
		models.ChannelWhatsApp: {
			Body: "Hello [RenterName], invoice [InvoiceNumber] is [DaysOverdue] days overdue (due [DueDate]). [Balance] remains unpaid.",
		},
	},
}

// RenderMessage fills the active stored template for kind and channel, or
// the built-in one. SMS uses the WhatsApp text.
func RenderMessage(db *gorm.DB, kind models.NotificationKind, channel models.NotificationChannel, data MessageData) Message {
	lookup := channel
	if lookup == models.ChannelSMS {
		lookup = models.ChannelWhatsApp
	}
	msg := defaultMessages[kind][lookup]

	if db != nil {
		var tpl models.NotificationTemplate
		if db.Where("kind = ? AND channel = ? AND is_active = ?", kind, lookup, true).
			Limit(1).Find(&tpl).RowsAffected == 1 {
			msg = Message{Subject: tpl.Subject, Body: tpl.Body}
		}
	}

	r := data.replacer()
	return Message{Subject: r.Replace(msg.Subject), Body: r.Replace(msg.Body)}
}

func (d MessageData) replacer() *strings.Replacer {
	month := ""
	if d.Month != nil {
		month = utils.MonthLabel(*d.Month)
	}
	due := ""
	if !d.DueDate.IsZero() {
		due = d.DueDate.Format("02 Jan 2006")
	}
	return strings.NewReplacer(
		"[RenterName]", d.RenterName,
		"[InvoiceNumber]", d.InvoiceNumber,
		"[Amount]", utils.FormatMoney(d.Amount, d.Currency),
		"[Balance]", utils.FormatMoney(d.Balance, d.Currency),
		"[DueDate]", due,
		"[Month]", month,
		"[DaysOverdue]", strconv.Itoa(d.DaysOverdue),
		"[Link]", d.Link,
	)
}

// channelsFor returns the renter's preferred channels with their recipient.
func channelsFor(r *models.Renter) map[models.NotificationChannel]string {
	out := map[models.NotificationChannel]string{}
	if r.PrefersEmail() && r.Email != "" {
		out[models.ChannelEmail] = r.Email
	}
	if r.PrefersWhatsApp() && r.PhoneNumber != "" {
		out[models.ChannelWhatsApp] = r.PhoneNumber
	}
	return out
}

// notifyRenter sends kind to every preferred channel. Delivery failures are
// already recorded on the notification log, so they are only logged here.
func (l *Ledger) notifyRenter(ctx context.Context, kind models.NotificationKind, renter *models.Renter, leaseID uint, invoice *models.Invoice, amount decimal.Decimal) error {
	if l.notifier == nil || renter == nil {
		return nil
	}
	channels := channelsFor(renter)
	if len(channels) == 0 {
		l.log.Debug().Uint("renter_id", renter.ID).Str("kind", string(kind)).Msg("renter has no notification channel")
		return nil
	}

	data := MessageData{RenterName: renter.FullName, Amount: amount, Currency: l.currency}
	var invoiceID *uint
	if invoice != nil {
		id := invoice.ID
		invoiceID = &id
		data.InvoiceNumber = derefString(invoice.InvoiceNumber)
		data.Balance = invoice.Balance()
		data.DueDate = invoice.DueDate
		data.Month = invoice.InvoiceMonth
		data.Link = l.documentURL(invoice)
		if amount.IsZero() {
			data.Amount = invoice.Amount
		}
		if kind == models.KindOverdueNotice {
			data.DaysOverdue = utils.DaysBetween(invoice.DueDate, l.today())
		}
	}
	if kind == models.KindPaymentReceived && leaseID != 0 {
		if b, err := currentBalance(l.db.WithContext(ctx), leaseID); err == nil {
			data.Balance = b
		}
	}

	sentBy := utils.ActorFromContext(ctx)
	var errs []error
	for _, channel := range []models.NotificationChannel{models.ChannelEmail, models.ChannelWhatsApp} {
		recipient, ok := channels[channel]
		if !ok {
			continue
		}
		msg := RenderMessage(l.db.WithContext(ctx), kind, channel, data)
		_, err := l.notifier.Send(ctx, Notification{
			Kind:      kind,
			Channel:   channel,
			Recipient: recipient,
			Subject:   msg.Subject,
			Content:   msg.Body,
			RenterID:  renter.ID,
			InvoiceID: invoiceID,
			SentBy:    sentBy,
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Ledger) documentURL(invoice *models.Invoice) string {
	if invoice.PDFPath == "" {
		return ""
	}
	if strings.HasPrefix(invoice.PDFPath, "http://") || strings.HasPrefix(invoice.PDFPath, "https://") {
		return invoice.PDFPath
	}
	return l.siteURL + "/" + strings.TrimLeft(invoice.PDFPath, "/")
}
