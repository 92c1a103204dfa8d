package models

import (
	"time"

	"gorm.io/datatypes"
)

type TaskStatus string

const (
	TaskSuccess TaskStatus = "success"
	TaskSkipped TaskStatus = "skipped"
	TaskFailed  TaskStatus = "failed"
)

// TaskLog records one run of a scheduled job.
type TaskLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	TaskName  string         `gorm:"type:varchar(100);index;not null" json:"taskName"`
	Status    TaskStatus     `gorm:"type:varchar(20);not null" json:"status"`
	Message   string         `gorm:"type:text" json:"message"`
	Details   datatypes.JSON `json:"details"`
	StartedAt time.Time      `json:"startedAt"`
	EndedAt   time.Time      `json:"endedAt"`
}
