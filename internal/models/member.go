package models

import (
	"encoding/json"
	"time"
)

// Seniority levels recognized by the capacity formula.
const (
	SeniorityJunior    = "Junior"
	SeniorityMid       = "Mid"
	SenioritySenior    = "Senior"
	SeniorityLead      = "Lead"
	SeniorityPrincipal = "Principal"
)

// Availability statuses derived from utilization.
const (
	StatusAvailable  = "available"
	StatusBusy       = "busy"
	StatusOverloaded = "overloaded"
	StatusOOO        = "ooo"
)

// Member is a team member whose capacity the assignment engine manages.
// CurrentPoints is mutated only by roster.CommitLoad and the periodic
// capacity sync.
type Member struct {
	ID                     uint    `gorm:"primaryKey;autoIncrement"`
	Username               string  `gorm:"size:100;uniqueIndex;not null"`
	Email                  string  `gorm:"size:255"`
	DisplayName            string  `gorm:"size:255"`
	Designation            string  `gorm:"size:255"`
	Skills                 string  `gorm:"type:json"`
	SeniorityLevel         string  `gorm:"size:16;default:Mid"`
	MaxPoints              int     `gorm:"default:20"`
	ManualCapacityOverride bool    `gorm:"default:false"`
	CurrentPoints          int     `gorm:"default:0"`
	CurrentTicketCount     int     `gorm:"default:0"`
	AvailabilityStatus     string  `gorm:"size:16;default:available;index"`
	PerformanceScore       float64 `gorm:"default:7.5"`
	AvgCompletionDays      float64 `gorm:"default:5"`
	QualityScore           float64 `gorm:"default:7.5"`
	IsOutOfOffice          bool    `gorm:"default:false;index"`
	OOOStart               *time.Time
	OOOEnd                 *time.Time
	OOOReason              string  `gorm:"size:255"`
	PartialCapacityPct     float64 `gorm:"default:100"`
	CreatedAt              time.Time
	UpdatedAt              time.Time

	OOORecords  []OOORecord  `gorm:"foreignKey:Username;references:Username"`
	Assignments []Assignment `gorm:"foreignKey:Assignee;references:Username"`
}

// SkillList decodes the JSON skills column. Returns nil on empty or
// malformed data.
func (m *Member) SkillList() []string {
	if m.Skills == "" {
		return nil
	}
	var skills []string
	if err := json.Unmarshal([]byte(m.Skills), &skills); err != nil {
		return nil
	}
	return skills
}

// SetSkills encodes the given skills into the JSON skills column.
func (m *Member) SetSkills(skills []string) error {
	data, err := json.Marshal(skills)
	if err != nil {
		return err
	}
	m.Skills = string(data)
	return nil
}

// OOORecord is an out-of-office window for a member.
type OOORecord struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	Username   string    `gorm:"size:100;not null;index"`
	StartDate  time.Time `gorm:"not null"`
	EndDate    time.Time `gorm:"not null"`
	Reason     string    `gorm:"size:255"`
	IsPartial  bool      `gorm:"default:false"`
	PartialPct float64   `gorm:"default:0"`
	CreatedAt  time.Time
}
