package db

import (
	"fmt"
	"time"

	"github.com/calder/ticketyard/internal/models"
	"gorm.io/gorm"
)

// CleanupStats reports how many rows each cleanup pass removed.
type CleanupStats struct {
	Tickets     int64
	Assignments int64
	OOORecords  int64
	Alerts      int64
}

// Cleanup removes finished records older than the retention window and
// out-of-office records that have already ended.
func Cleanup(gdb *gorm.DB, retentionDays int) (CleanupStats, error) {
	if retentionDays <= 0 {
		return CleanupStats{}, fmt.Errorf("db: retention days must be positive, got %d", retentionDays)
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	var stats CleanupStats

	res := gdb.Where("status IN ? AND updated_at < ?",
		[]string{models.TicketStatusCompleted, models.TicketStatusFailed}, cutoff).
		Delete(&models.Ticket{})
	if res.Error != nil {
		return stats, fmt.Errorf("db: cleanup tickets: %w", res.Error)
	}
	stats.Tickets = res.RowsAffected

	res = gdb.Where("created_at < ?", cutoff).Delete(&models.Assignment{})
	if res.Error != nil {
		return stats, fmt.Errorf("db: cleanup assignments: %w", res.Error)
	}
	stats.Assignments = res.RowsAffected

	res = gdb.Where("end_date < ?", time.Now()).Delete(&models.OOORecord{})
	if res.Error != nil {
		return stats, fmt.Errorf("db: cleanup ooo records: %w", res.Error)
	}
	stats.OOORecords = res.RowsAffected

	res = gdb.Where("resolved = ? AND created_at < ?", true, cutoff).Delete(&models.Alert{})
	if res.Error != nil {
		return stats, fmt.Errorf("db: cleanup alerts: %w", res.Error)
	}
	stats.Alerts = res.RowsAffected

	return stats, nil
}
