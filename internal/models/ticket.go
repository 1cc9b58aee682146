package models

import "time"

// Ticket is a drafted work item. The assignment engine only ever consumes
// the {IssueKey, Priority, EstimatedPoints, RequiredSkills} projection;
// everything else belongs to the drafting and tracker layers.
type Ticket struct {
	ID                 uint   `gorm:"primaryKey;autoIncrement"`
	RequestID          string `gorm:"size:36;uniqueIndex"`
	Prompt             string `gorm:"type:text;not null"`
	Title              string `gorm:"size:500"`
	Description        string `gorm:"type:text"`
	AcceptanceCriteria string `gorm:"type:json"`
	TechnicalNotes     string `gorm:"type:text"`
	RequiredSkills     string `gorm:"type:json"`
	EstimatedPoints    int
	IssueKey           string `gorm:"size:50;index"`
	IssueType          string `gorm:"size:50;default:Story"`
	Priority           string `gorm:"size:50;default:Medium"`
	ProjectKey         string `gorm:"size:50"`
	EpicKey            string `gorm:"size:50"`
	Labels             string `gorm:"type:json"`
	Status             string `gorm:"size:50;default:pending;index"`
	ErrorMessage       string `gorm:"type:text"`
	AssignedTo         string `gorm:"size:100"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Ticket priorities, highest first.
const (
	PriorityHighest = "Highest"
	PriorityHigh    = "High"
	PriorityMedium  = "Medium"
	PriorityLow     = "Low"
)

// Drafting request lifecycle. Completed and failed are terminal.
const (
	TicketStatusPending    = "pending"
	TicketStatusProcessing = "processing"
	TicketStatusCompleted  = "completed"
	TicketStatusFailed     = "failed"
)
