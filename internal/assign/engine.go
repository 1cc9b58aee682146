package assign

import (
	"errors"
	"log"
	"sort"
	"time"

	"github.com/calder/ticketyard/internal/models"
	"github.com/calder/ticketyard/internal/roster"
	"gorm.io/gorm"
)

// noCandidateReason is the queue reason for tickets no one can take right
// now, including the commit-time capacity race.
const noCandidateReason = "No available team members with sufficient capacity"

// TicketRef is the projection of a ticket the engine consumes.
type TicketRef struct {
	IssueKey        string
	Priority        string
	EstimatedPoints int
	RequiredSkills  []string
}

// Candidate pairs a member with their score, for the ranked-alternatives
// view.
type Candidate struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Score       Score  `json:"score"`
}

// Result is the outcome of one assignment attempt. Assigned false means
// the ticket went to the queue; QueueReason says why. The returned error is
// reserved for the case where even queueing was impossible.
type Result struct {
	Assigned     bool        `json:"assigned"`
	Assignee     string      `json:"assignee,omitempty"`
	DisplayName  string      `json:"display_name,omitempty"`
	Score        Score       `json:"score"`
	Reasoning    string      `json:"reasoning,omitempty"`
	Alternatives []Candidate `json:"alternatives,omitempty"`
	QueueReason  string      `json:"queue_reason,omitempty"`
}

// Assign picks the best-fit member for a ticket, commits their capacity,
// and records the decision. When no member qualifies, or the top candidate's
// capacity is gone by commit time, the ticket lands in the assignment queue
// instead.
func Assign(db *gorm.DB, t TicketRef) (*Result, error) {
	if t.EstimatedPoints <= 0 {
		t.EstimatedPoints = 1
	}

	candidates, err := roster.EligibleCandidates(db, t.EstimatedPoints)
	if err != nil {
		log.Printf("assign: eligibility query for %s: %v", t.IssueKey, err)
		return queueTicket(db, t, noCandidateReason)
	}
	if len(candidates) == 0 {
		return queueTicket(db, t, noCandidateReason)
	}

	scored := make([]Candidate, 0, len(candidates))
	for i := range candidates {
		m := &candidates[i]
		scored = append(scored, Candidate{
			Username:    m.Username,
			DisplayName: m.DisplayName,
			Score:       ScoreMember(m, t.Priority, t.RequiredSkills),
		})
	}

	// Highest total first; equal totals resolve by username so the outcome
	// never depends on query order.
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score.Total != scored[j].Score.Total {
			return scored[i].Score.Total > scored[j].Score.Total
		}
		return scored[i].Username < scored[j].Username
	})
	best := scored[0]

	// Commit under the member's row lock. The lock re-validates capacity,
	// closing the window between the eligibility query and the write.
	if err := roster.CommitLoad(db, best.Username, t.EstimatedPoints); err != nil {
		if !errors.Is(err, roster.ErrOverCapacity) {
			log.Printf("assign: commit %s to %s: %v", t.IssueKey, best.Username, err)
		}
		return queueTicket(db, t, noCandidateReason)
	}

	winner, err := roster.Get(db, best.Username)
	if err != nil {
		winner = &models.Member{Username: best.Username, DisplayName: best.DisplayName}
	}
	reasoning := Reasoning(winner, best.Score)

	record := models.Assignment{
		IssueKey:         t.IssueKey,
		Assignee:         best.Username,
		TotalScore:       best.Score.Total,
		BandwidthScore:   best.Score.Bandwidth,
		SkillsScore:      best.Score.Skills,
		PriorityScore:    best.Score.PriorityFit,
		PerformanceScore: best.Score.Performance,
		Reasoning:        reasoning,
	}
	if err := db.Create(&record).Error; err != nil {
		log.Printf("assign: record assignment of %s: %v", t.IssueKey, err)
	}

	alternatives := scored[1:]
	if len(alternatives) > 3 {
		alternatives = alternatives[:3]
	}

	return &Result{
		Assigned:     true,
		Assignee:     best.Username,
		DisplayName:  best.DisplayName,
		Score:        best.Score,
		Reasoning:    reasoning,
		Alternatives: alternatives,
	}, nil
}

// queueTicket routes a ticket into the assignment queue and reports the
// queued outcome.
func queueTicket(db *gorm.DB, t TicketRef, reason string) (*Result, error) {
	if _, err := Enqueue(db, t, reason); err != nil {
		return nil, err
	}
	return &Result{Assigned: false, QueueReason: reason}, nil
}

// MarkReassigned flags the most recent assignment record for an issue after
// an external reassignment event.
func MarkReassigned(db *gorm.DB, issueKey, reason string) error {
	var record models.Assignment
	err := db.Where("issue_key = ?", issueKey).
		Order("created_at DESC").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil // never assigned by us, nothing to flag
	}
	if err != nil {
		return err
	}

	return db.Model(&models.Assignment{}).Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"was_reassigned":      true,
			"reassignment_reason": reason,
		}).Error
}

// MarkCompleted stamps completion on the most recent assignment record for
// an issue and derives the completion duration in days.
func MarkCompleted(db *gorm.DB, issueKey string, at time.Time) error {
	var record models.Assignment
	err := db.Where("issue_key = ?", issueKey).
		Order("created_at DESC").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	days := at.Sub(record.CreatedAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	return db.Model(&models.Assignment{}).Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"completed_at":         at,
			"completion_time_days": days,
		}).Error
}
