package models

import "time"

// Queue entry statuses. Assigned and failed are terminal.
const (
	QueueStatusQueued     = "queued"
	QueueStatusProcessing = "processing"
	QueueStatusAssigned   = "assigned"
	QueueStatusFailed     = "failed"
)

// QueueEntry holds a ticket that could not be assigned. One slot per issue
// key; Attempts only ever increases.
type QueueEntry struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	IssueKey        string `gorm:"size:50;uniqueIndex;not null"`
	Priority        string `gorm:"size:50;not null"`
	EstimatedPoints int
	RequiredSkills  string `gorm:"type:json"`
	Status          string `gorm:"size:16;default:queued;index"`
	Attempts        int    `gorm:"default:0"`
	Reason          string `gorm:"type:text"`
	LastAttemptAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
