package roster

import (
	"fmt"

	"github.com/calder/ticketyard/internal/capacity"
	"github.com/calder/ticketyard/internal/config"
	"github.com/calder/ticketyard/internal/models"
	"github.com/calder/ticketyard/internal/sprint"
	"gorm.io/gorm"
)

// SetManualCapacity pins a member's max capacity to a fixed value. The
// periodic sync will keep refreshing their committed load but must leave
// max capacity alone until ResetToAuto.
func SetManualCapacity(db *gorm.DB, username string, maxPoints int) error {
	if maxPoints <= 0 {
		return fmt.Errorf("roster: max points must be positive, got %d", maxPoints)
	}
	m, err := Get(db, username)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"max_points":               maxPoints,
		"manual_capacity_override": true,
	}
	if !m.IsOutOfOffice {
		updates["availability_status"] = capacity.ClassifyStatus(m.CurrentPoints, maxPoints)
	}
	if err := db.Model(&models.Member{}).Where("username = ?", username).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("roster: set manual capacity for %s: %w", username, err)
	}
	return nil
}

// ResetToAuto clears the manual override and recomputes max capacity from
// the current iteration window.
func ResetToAuto(db *gorm.DB, username string, window *sprint.Window, cfg config.CapacityConfig) error {
	m, err := Get(db, username)
	if err != nil {
		return err
	}

	maxPoints := capacity.MaxPoints(window, m.SeniorityLevel, cfg)
	updates := map[string]interface{}{
		"max_points":               maxPoints,
		"manual_capacity_override": false,
	}
	if !m.IsOutOfOffice {
		updates["availability_status"] = capacity.ClassifyStatus(m.CurrentPoints, maxPoints)
	}
	if err := db.Model(&models.Member{}).Where("username = ?", username).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("roster: reset capacity for %s: %w", username, err)
	}
	return nil
}

// SetSeniority updates a member's seniority level. When capacity is
// auto-managed the max is recomputed immediately; a manual override keeps
// its pinned value.
func SetSeniority(db *gorm.DB, username, level string, window *sprint.Window, cfg config.CapacityConfig) error {
	switch level {
	case models.SeniorityJunior, models.SeniorityMid, models.SenioritySenior,
		models.SeniorityLead, models.SeniorityPrincipal:
	default:
		return fmt.Errorf("roster: unknown seniority level %q", level)
	}

	m, err := Get(db, username)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{"seniority_level": level}
	if !m.ManualCapacityOverride {
		maxPoints := capacity.MaxPoints(window, level, cfg)
		updates["max_points"] = maxPoints
		if !m.IsOutOfOffice {
			updates["availability_status"] = capacity.ClassifyStatus(m.CurrentPoints, maxPoints)
		}
	}
	if err := db.Model(&models.Member{}).Where("username = ?", username).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("roster: set seniority for %s: %w", username, err)
	}
	return nil
}
