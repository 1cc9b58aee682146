package models

import "time"

// Assignment is an append-only record of one assignment decision. Rows are
// created by the engine on commit and only ever mutated to mark an external
// reassignment or completion.
type Assignment struct {
	ID                 uint    `gorm:"primaryKey;autoIncrement"`
	IssueKey           string  `gorm:"size:50;not null;index"`
	Assignee           string  `gorm:"size:100;not null;index"`
	TotalScore         float64
	BandwidthScore     float64
	SkillsScore        float64
	PriorityScore      float64
	PerformanceScore   float64
	Reasoning          string `gorm:"type:text"`
	WasReassigned      bool   `gorm:"default:false"`
	ReassignmentReason string `gorm:"type:text"`
	CompletionTimeDays float64
	CreatedAt          time.Time
	CompletedAt        *time.Time
}
