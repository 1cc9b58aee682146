package assign

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/calder/ticketyard/internal/alert"
	"github.com/calder/ticketyard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// exhaustedReason marks queue entries that hit the attempt ceiling.
const exhaustedReason = "Max assignment attempts reached"

// SweepStats summarizes one pass over the assignment queue.
type SweepStats struct {
	Processed   int
	Assigned    int
	StillQueued int // excludes entries that went terminal during the sweep
}

// Enqueue adds a ticket to the assignment queue. Each issue key holds at
// most one slot; re-enqueueing an already-queued ticket is a no-op.
func Enqueue(db *gorm.DB, t TicketRef, reason string) (*models.QueueEntry, error) {
	skills, err := json.Marshal(t.RequiredSkills)
	if err != nil {
		return nil, fmt.Errorf("assign: marshal skills for %s: %w", t.IssueKey, err)
	}

	entry := models.QueueEntry{
		IssueKey:        t.IssueKey,
		Priority:        t.Priority,
		EstimatedPoints: t.EstimatedPoints,
		RequiredSkills:  string(skills),
		Status:          models.QueueStatusQueued,
		Reason:          reason,
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "issue_key"}},
		DoNothing: true,
	}).Create(&entry)
	if result.Error != nil {
		return nil, fmt.Errorf("assign: enqueue %s: %w", t.IssueKey, result.Error)
	}
	return &entry, nil
}

// QueuedEntries returns active queue entries in FIFO order.
func QueuedEntries(db *gorm.DB) ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	if err := db.Where("status = ?", models.QueueStatusQueued).
		Order("created_at ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("assign: queued entries: %w", err)
	}
	return entries, nil
}

// AllEntries returns the full queue, newest first, for the operator view.
func AllEntries(db *gorm.DB) ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	if err := db.Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("assign: all entries: %w", err)
	}
	return entries, nil
}

// SweepQueue re-drives every queued entry through the engine in FIFO
// order. Entries that assign become terminal; the rest accrue an attempt
// and give up permanently once attempts reach maxAttempts.
func SweepQueue(db *gorm.DB, maxAttempts int) (SweepStats, error) {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}

	var stats SweepStats
	entries, err := QueuedEntries(db)
	if err != nil {
		return stats, err
	}

	for i := range entries {
		entry := &entries[i]
		stats.Processed++

		if err := setEntryStatus(db, entry.ID, models.QueueStatusProcessing); err != nil {
			return stats, err
		}

		var skills []string
		if entry.RequiredSkills != "" {
			if err := json.Unmarshal([]byte(entry.RequiredSkills), &skills); err != nil {
				log.Printf("assign: decode skills for %s: %v", entry.IssueKey, err)
			}
		}

		result, err := Assign(db, TicketRef{
			IssueKey:        entry.IssueKey,
			Priority:        entry.Priority,
			EstimatedPoints: entry.EstimatedPoints,
			RequiredSkills:  skills,
		})

		now := time.Now()
		if err == nil && result.Assigned {
			stats.Assigned++
			db.Model(&models.QueueEntry{}).Where("id = ?", entry.ID).
				Updates(map[string]interface{}{
					"status":          models.QueueStatusAssigned,
					"last_attempt_at": now,
				})
			continue
		}

		attempts := entry.Attempts + 1
		updates := map[string]interface{}{
			"attempts":        attempts,
			"last_attempt_at": now,
			"status":          models.QueueStatusQueued,
		}
		if attempts >= maxAttempts {
			updates["status"] = models.QueueStatusFailed
			updates["reason"] = exhaustedReason
		} else {
			stats.StillQueued++
		}
		if err := db.Model(&models.QueueEntry{}).Where("id = ?", entry.ID).
			Updates(updates).Error; err != nil {
			return stats, fmt.Errorf("assign: update queue entry %s: %w", entry.IssueKey, err)
		}

		if attempts >= maxAttempts {
			alert.Raise(db, alert.KindQueueExhausted,
				fmt.Sprintf("Gave up assigning %s after %d attempts", entry.IssueKey, attempts),
				entry.Reason,
				alert.RaiseOpts{IssueKey: entry.IssueKey, Priority: "urgent"})
		}
	}

	return stats, nil
}

func setEntryStatus(db *gorm.DB, id uint, status string) error {
	if err := db.Model(&models.QueueEntry{}).Where("id = ?", id).
		Update("status", status).Error; err != nil {
		return fmt.Errorf("assign: set queue entry %d to %s: %w", id, status, err)
	}
	return nil
}
