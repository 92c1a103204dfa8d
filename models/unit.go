package models

import "gorm.io/gorm"

type UnitStatus string

const (
	UnitVacant      UnitStatus = "vacant"
	UnitOccupied    UnitStatus = "occupied"
	UnitMaintenance UnitStatus = "maintenance"
)

type Unit struct {
	gorm.Model

	Name   string     `gorm:"not null" json:"name"`
	Status UnitStatus `gorm:"type:varchar(20);not null;default:'vacant'" json:"status"`
}
