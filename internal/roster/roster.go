// Package roster holds the team directory and answers capacity-aware
// queries. CommitLoad is the sole mutation path for a member's committed
// load outside the periodic capacity sync.
package roster

import (
	"errors"
	"fmt"
	"time"

	"github.com/calder/ticketyard/internal/capacity"
	"github.com/calder/ticketyard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrOverCapacity is returned by CommitLoad when the member no longer has
// room for the requested points. Callers treat it as a lost race, not a
// fault.
var ErrOverCapacity = errors.New("roster: member over capacity")

// Get returns one member by username.
func Get(db *gorm.DB, username string) (*models.Member, error) {
	if username == "" {
		return nil, fmt.Errorf("roster: username is required")
	}
	var m models.Member
	if err := db.Where("username = ?", username).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("roster: member not found: %s", username)
		}
		return nil, fmt.Errorf("roster: get %s: %w", username, err)
	}
	return &m, nil
}

// List returns all members ordered by username.
func List(db *gorm.DB) ([]models.Member, error) {
	var members []models.Member
	if err := db.Order("username ASC").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("roster: list members: %w", err)
	}
	return members, nil
}

// EligibleCandidates returns every member who is not out of office and whose
// committed load plus the new ticket still fits within max capacity. Skill
// match affects scoring only, never eligibility.
func EligibleCandidates(db *gorm.DB, points int) ([]models.Member, error) {
	var members []models.Member
	err := db.Where("is_out_of_office = ? AND current_points + ? <= max_points", false, points).
		Order("username ASC").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("roster: eligible candidates: %w", err)
	}
	return members, nil
}

// CommitLoad adds points to a member's committed load, increments the
// ticket count, and reclassifies availability. The capacity check and the
// write happen inside one row-locking transaction, so two concurrent
// assignments can never jointly push a member past max capacity.
func CommitLoad(db *gorm.DB, username string, points int) error {
	if username == "" {
		return fmt.Errorf("roster: username is required")
	}
	if points <= 0 {
		return fmt.Errorf("roster: points must be positive, got %d", points)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var m models.Member
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("username = ?", username).First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("roster: member not found: %s", username)
			}
			return fmt.Errorf("roster: lock %s: %w", username, err)
		}

		if m.IsOutOfOffice {
			return ErrOverCapacity
		}
		newLoad := m.CurrentPoints + points
		if newLoad > m.MaxPoints {
			return ErrOverCapacity
		}

		updates := map[string]interface{}{
			"current_points":       newLoad,
			"current_ticket_count": m.CurrentTicketCount + 1,
			"availability_status":  capacity.ClassifyStatus(newLoad, m.MaxPoints),
		}
		if err := tx.Model(&models.Member{}).Where("username = ?", username).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("roster: commit load for %s: %w", username, err)
		}
		return nil
	})
}

// UpsertOpts holds roster-provider fields for creating or refreshing a
// member.
type UpsertOpts struct {
	Username    string
	Email       string
	DisplayName string
	Designation string
}

// Upsert creates a member on first sync or refreshes identity fields on an
// existing one. Capacity fields are left to the capacity sync.
func Upsert(db *gorm.DB, opts UpsertOpts) (*models.Member, bool, error) {
	if opts.Username == "" {
		return nil, false, fmt.Errorf("roster: username is required")
	}

	var m models.Member
	err := db.Where("username = ?", opts.Username).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		m = models.Member{
			Username:           opts.Username,
			Email:              opts.Email,
			DisplayName:        opts.DisplayName,
			Designation:        opts.Designation,
			Skills:             "[]",
			SeniorityLevel:     models.SeniorityMid,
			MaxPoints:          20,
			AvailabilityStatus: models.StatusAvailable,
		}
		if m.Email == "" {
			m.Email = opts.Username + "@tracker.local"
		}
		if m.DisplayName == "" {
			m.DisplayName = opts.Username
		}
		if err := db.Create(&m).Error; err != nil {
			return nil, false, fmt.Errorf("roster: create %s: %w", opts.Username, err)
		}
		return &m, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("roster: upsert %s: %w", opts.Username, err)
	}

	updates := map[string]interface{}{}
	if opts.Email != "" {
		updates["email"] = opts.Email
	}
	if opts.DisplayName != "" {
		updates["display_name"] = opts.DisplayName
	}
	if opts.Designation != "" {
		updates["designation"] = opts.Designation
	}
	if len(updates) > 0 {
		if err := db.Model(&models.Member{}).Where("username = ?", opts.Username).
			Updates(updates).Error; err != nil {
			return nil, false, fmt.Errorf("roster: refresh %s: %w", opts.Username, err)
		}
	}
	return &m, false, nil
}

// MarkOOO flags a member out of office and records the window. Partial
// percentage 0 means fully unavailable.
func MarkOOO(db *gorm.DB, username string, start, end time.Time, reason string, partialPct float64) error {
	if _, err := Get(db, username); err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"is_out_of_office":     true,
			"ooo_start":            start,
			"ooo_end":              end,
			"ooo_reason":           reason,
			"partial_capacity_pct": partialPct,
			"availability_status":  models.StatusOOO,
		}
		if err := tx.Model(&models.Member{}).Where("username = ?", username).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("roster: mark ooo %s: %w", username, err)
		}

		record := models.OOORecord{
			Username:   username,
			StartDate:  start,
			EndDate:    end,
			Reason:     reason,
			IsPartial:  partialPct > 0,
			PartialPct: partialPct,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("roster: record ooo %s: %w", username, err)
		}
		return nil
	})
}

// ClearOOO returns a member to the roster and reclassifies availability
// from current load.
func ClearOOO(db *gorm.DB, username string) error {
	m, err := Get(db, username)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"is_out_of_office":     false,
		"ooo_start":            nil,
		"ooo_end":              nil,
		"ooo_reason":           "",
		"partial_capacity_pct": 100.0,
		"availability_status":  capacity.ClassifyStatus(m.CurrentPoints, m.MaxPoints),
	}
	if err := db.Model(&models.Member{}).Where("username = ?", username).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("roster: clear ooo %s: %w", username, err)
	}
	return nil
}
