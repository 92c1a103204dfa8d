package models

import "gorm.io/gorm"

type NotificationPreference string

const (
	PreferNone     NotificationPreference = "none"
	PreferEmail    NotificationPreference = "email"
	PreferWhatsApp NotificationPreference = "whatsapp"
	PreferBoth     NotificationPreference = "both"
)

type RenterStatus string

const (
	RenterProspective RenterStatus = "prospective"
	RenterActive      RenterStatus = "active"
	RenterFormer      RenterStatus = "former"
)

// Renter holds the contact data the ledger reads for notifications.
type Renter struct {
	gorm.Model

	FullName               string                 `gorm:"not null" json:"fullName"`
	Email                  string                 `json:"email"`
	PhoneNumber            string                 `gorm:"uniqueIndex" json:"phoneNumber"`
	NotificationPreference NotificationPreference `gorm:"type:varchar(20);not null;default:'none'" json:"notificationPreference"`
	Status                 RenterStatus           `gorm:"type:varchar(20);not null;default:'prospective'" json:"status"`

	Leases []Lease `gorm:"foreignKey:RenterID" json:"-"`
}

func (r *Renter) PrefersEmail() bool {
	return r.NotificationPreference == PreferEmail || r.NotificationPreference == PreferBoth
}

func (r *Renter) PrefersWhatsApp() bool {
	return r.NotificationPreference == PreferWhatsApp || r.NotificationPreference == PreferBoth
}

func ValidNotificationPreference(p string) bool {
	switch NotificationPreference(p) {
	case PreferNone, PreferEmail, PreferWhatsApp, PreferBoth:
		return true
	}
	return false
}
