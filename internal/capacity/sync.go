package capacity

import (
	"context"
	"fmt"
	"log"

	"github.com/calder/ticketyard/internal/config"
	"github.com/calder/ticketyard/internal/models"
	"github.com/calder/ticketyard/internal/sprint"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Workload is externally observed committed load for one member.
type Workload struct {
	Points      int
	TicketCount int
}

// WorkloadSource supplies per-member workload from the ticket tracker.
type WorkloadSource interface {
	MemberWorkload(ctx context.Context, username string, window *sprint.Window) (Workload, error)
}

// SyncAll refreshes every member's committed load and availability from src
// and recomputes max capacity for members without a manual override. Each
// member is replaced as a whole row under a row lock so the sync never
// interleaves with a concurrent assignment commit. Members the source
// cannot answer for keep their cached values.
func SyncAll(ctx context.Context, db *gorm.DB, src WorkloadSource, provider sprint.Provider, cfg config.CapacityConfig) (int, error) {
	window, err := provider.Active()
	if err != nil {
		// Degrade to the no-window default rather than failing the sync.
		log.Printf("capacity: window provider unavailable: %v", err)
		window = nil
	}

	var members []models.Member
	if err := db.Find(&members).Error; err != nil {
		return 0, fmt.Errorf("capacity: load members: %w", err)
	}

	synced := 0
	for i := range members {
		username := members[i].Username
		workload, err := src.MemberWorkload(ctx, username, window)
		if err != nil {
			log.Printf("capacity: sync %s: %v", username, err)
			continue
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			var m models.Member
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("username = ?", username).First(&m).Error; err != nil {
				return err
			}

			updates := map[string]interface{}{
				"current_points":       workload.Points,
				"current_ticket_count": workload.TicketCount,
			}
			maxPoints := m.MaxPoints
			if !m.ManualCapacityOverride {
				maxPoints = MaxPoints(window, m.SeniorityLevel, cfg)
				updates["max_points"] = maxPoints
			}
			if !m.IsOutOfOffice {
				updates["availability_status"] = ClassifyStatus(workload.Points, maxPoints)
			}

			return tx.Model(&models.Member{}).Where("username = ?", username).
				Updates(updates).Error
		})
		if err != nil {
			log.Printf("capacity: update %s: %v", username, err)
			continue
		}
		synced++
	}
	return synced, nil
}
