package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type LeaseStatus string

const (
	LeaseDraft      LeaseStatus = "draft"
	LeaseActive     LeaseStatus = "active"
	LeaseTerminated LeaseStatus = "terminated"
	LeaseCompleted  LeaseStatus = "completed"
	LeaseCancelled  LeaseStatus = "cancelled"
)

type DepositStatus string

const (
	DepositPending  DepositStatus = "pending"
	DepositPaid     DepositStatus = "paid"
	DepositAdjusted DepositStatus = "adjusted"
	DepositRefunded DepositStatus = "refunded"
)

type Lease struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	RenterID        uint            `gorm:"index;not null" json:"renterId"`
	UnitID          uint            `gorm:"index;not null" json:"unitId"`
	StartDate       time.Time       `gorm:"type:date;not null" json:"startDate"`
	EndDate         *time.Time      `gorm:"type:date" json:"endDate,omitempty"`
	TerminationDate *time.Time      `gorm:"type:date" json:"terminationDate,omitempty"`
	RentAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"rentAmount"`
	SecurityDeposit decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"securityDeposit"`
	DepositStatus   DepositStatus   `gorm:"type:varchar(20);not null" json:"depositStatus"`
	Status          LeaseStatus     `gorm:"type:varchar(20);index;not null" json:"status"`

	CreatedBy string    `gorm:"type:varchar(64)" json:"createdBy"`
	UpdatedBy string    `gorm:"type:varchar(64)" json:"updatedBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Renter   *Renter   `gorm:"foreignKey:RenterID" json:"renter,omitempty"`
	Unit     *Unit     `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
	Invoices []Invoice `gorm:"foreignKey:LeaseID" json:"invoices,omitempty"`
}

// DepositEvent is a cause for a deposit status change.
type DepositEvent string

const (
	DepositEventPaid     DepositEvent = "paid"     // deposit invoice fully paid
	DepositEventAdjusted DepositEvent = "adjusted" // netted against dues at settlement
	DepositEventRefunded DepositEvent = "refunded" // returned at settlement
)

var depositTransitions = map[DepositStatus]map[DepositEvent]DepositStatus{
	DepositPending: {
		DepositEventPaid:     DepositPaid,
		DepositEventAdjusted: DepositAdjusted,
		DepositEventRefunded: DepositRefunded,
	},
	DepositPaid: {
		DepositEventAdjusted: DepositAdjusted,
		DepositEventRefunded: DepositRefunded,
	},
}

// TransitionDeposit is the only place DepositStatus changes. Adjusted and
// refunded are terminal.
func (l *Lease) TransitionDeposit(event DepositEvent) error {
	current := l.DepositStatus
	if current == "" {
		current = DepositPending
	}
	next, ok := depositTransitions[current][event]
	if !ok {
		return fmt.Errorf("deposit of lease %d cannot go from %s on %s", l.ID, current, event)
	}
	l.DepositStatus = next
	return nil
}

func (l *Lease) IsActive() bool {
	return l.Status == LeaseActive
}
