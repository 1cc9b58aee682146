package models

import "time"

// Alert is an operator-facing notice raised by the engine or the sweeper,
// e.g. a queue entry giving up or a manually overridden member running
// over capacity.
type Alert struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Kind      string `gorm:"size:32;not null;index"`
	IssueKey  string `gorm:"size:50"`
	Username  string `gorm:"size:100"`
	Subject   string `gorm:"size:256"`
	Body      string `gorm:"type:text"`
	Priority  string `gorm:"size:8;default:normal"`
	Resolved  bool   `gorm:"default:false;index"`
	CreatedAt time.Time
}
