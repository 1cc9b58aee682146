// Package alert records operator-facing notices.
package alert

import (
	"fmt"

	"github.com/calder/ticketyard/internal/models"
	"gorm.io/gorm"
)

// Alert kinds raised by the engine and the sweeper.
const (
	KindQueueExhausted = "queue-exhausted"
	KindOverCommitted  = "over-committed"
	KindTrackerError   = "tracker-error"
)

// RaiseOpts holds optional fields for raising an alert.
type RaiseOpts struct {
	IssueKey string
	Username string
	Priority string // "normal" (default), "urgent"
}

// Raise records a new alert.
func Raise(db *gorm.DB, kind, subject, body string, opts RaiseOpts) (*models.Alert, error) {
	if kind == "" {
		return nil, fmt.Errorf("alert: kind is required")
	}
	if subject == "" {
		return nil, fmt.Errorf("alert: subject is required")
	}

	priority := opts.Priority
	if priority == "" {
		priority = "normal"
	}

	a := models.Alert{
		Kind:     kind,
		IssueKey: opts.IssueKey,
		Username: opts.Username,
		Subject:  subject,
		Body:     body,
		Priority: priority,
	}
	if err := db.Create(&a).Error; err != nil {
		return nil, fmt.Errorf("alert: raise: %w", err)
	}
	return &a, nil
}

// Unresolved returns open alerts, oldest first.
func Unresolved(db *gorm.DB) ([]models.Alert, error) {
	var alerts []models.Alert
	if err := db.Where("resolved = ?", false).
		Order("created_at ASC").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("alert: unresolved: %w", err)
	}
	return alerts, nil
}

// Resolve marks an alert as handled.
func Resolve(db *gorm.DB, alertID uint) error {
	result := db.Model(&models.Alert{}).Where("id = ?", alertID).
		Update("resolved", true)
	if result.Error != nil {
		return fmt.Errorf("alert: resolve %d: %w", alertID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("alert: alert not found: %d", alertID)
	}
	return nil
}
