// Package assign implements the capacity-aware ticket assignment engine:
// candidate scoring, the commit path, and the retry queue for tickets no
// one can take.
package assign

import (
	"fmt"
	"strings"

	"github.com/calder/ticketyard/internal/models"
)

// Weights of the composite assignment score.
const (
	weightBandwidth   = 0.40
	weightSkills      = 0.30
	weightPriorityFit = 0.20
	weightPerformance = 0.10
)

// Sub-score thresholds above which a dimension is worth calling out in the
// assignment reasoning.
const (
	notableBandwidth   = 70
	notableSkills      = 70
	notablePriorityFit = 80
	notablePerformance = 75
)

// neutralScore is used when a dimension has nothing to say: empty required
// skills, or a priority/seniority combination outside the fit matrix.
const neutralScore = 50

// priorityFit encodes the policy that urgent work should skew toward senior
// members and low-priority work toward junior/mid members, preserving
// senior bandwidth.
var priorityFit = map[string]map[string]float64{
	models.PriorityHighest: {
		models.SenioritySenior: 100, models.SeniorityLead: 100,
		models.SeniorityMid: 70, models.SeniorityJunior: 40,
	},
	models.PriorityHigh: {
		models.SenioritySenior: 100, models.SeniorityLead: 100,
		models.SeniorityMid: 90, models.SeniorityJunior: 60,
	},
	models.PriorityMedium: {
		models.SenioritySenior: 90, models.SeniorityLead: 90,
		models.SeniorityMid: 100, models.SeniorityJunior: 80,
	},
	models.PriorityLow: {
		models.SenioritySenior: 70, models.SeniorityLead: 70,
		models.SeniorityMid: 90, models.SeniorityJunior: 100,
	},
}

// Score is the weighted composite for one (member, ticket) pair, with its
// component sub-scores. All values are on a 0–100 scale.
type Score struct {
	Total       float64 `json:"total"`
	Bandwidth   float64 `json:"bandwidth"`
	Skills      float64 `json:"skills"`
	PriorityFit float64 `json:"priority_fit"`
	Performance float64 `json:"performance"`
}

// ScoreMember computes the assignment score for one member against a
// ticket. Pure: no side effects, deterministic for the same inputs.
func ScoreMember(m *models.Member, priority string, requiredSkills []string) Score {
	var s Score

	// Bandwidth: reward headroom.
	available := m.MaxPoints - m.CurrentPoints
	s.Bandwidth = float64(available) / float64(m.MaxPoints) * 100

	// Skills: overlap with the required set, neutral when nothing is
	// required.
	if len(requiredSkills) == 0 {
		s.Skills = neutralScore
	} else {
		memberSkills := make(map[string]bool)
		for _, skill := range m.SkillList() {
			memberSkills[skill] = true
		}
		matching := 0
		for _, skill := range requiredSkills {
			if memberSkills[skill] {
				matching++
			}
		}
		s.Skills = float64(matching) / float64(len(requiredSkills)) * 100
	}

	// Priority fit from the fixed matrix; unknown combinations are neutral.
	s.PriorityFit = neutralScore
	if bySeniority, ok := priorityFit[priority]; ok {
		if fit, ok := bySeniority[m.SeniorityLevel]; ok {
			s.PriorityFit = fit
		}
	}

	// Performance on a 0–10 scale, normalized.
	s.Performance = m.PerformanceScore / 10 * 100

	s.Total = s.Bandwidth*weightBandwidth +
		s.Skills*weightSkills +
		s.PriorityFit*weightPriorityFit +
		s.Performance*weightPerformance
	return s
}

// Reasoning builds the human-readable explanation for an assignment from
// whichever sub-scores cleared their notable threshold.
func Reasoning(m *models.Member, s Score) string {
	var reasons []string

	if s.Bandwidth > notableBandwidth {
		reasons = append(reasons, fmt.Sprintf("Good available capacity (%d/%d pts)",
			m.MaxPoints-m.CurrentPoints, m.MaxPoints))
	}
	if s.Skills > notableSkills {
		reasons = append(reasons, "Strong skills match")
	}
	if s.PriorityFit > notablePriorityFit {
		reasons = append(reasons, "Appropriate seniority for priority")
	}
	if s.Performance > notablePerformance {
		reasons = append(reasons, fmt.Sprintf("Strong historical performance (%.1f/10)",
			m.PerformanceScore))
	}

	if len(reasons) == 0 {
		return "Best available match"
	}
	return strings.Join(reasons, " • ")
}
