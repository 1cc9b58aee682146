// Package capacity implements the sprint capacity formula and the
// utilization-based availability classification.
package capacity

import (
	"math"

	"github.com/calder/ticketyard/internal/config"
	"github.com/calder/ticketyard/internal/models"
	"github.com/calder/ticketyard/internal/sprint"
)

const (
	// DefaultMaxPoints is the assumed capacity when no iteration window is
	// active: 10 working days × 8 hours × 0.7 focus / 4 hours per point.
	DefaultMaxPoints = 14

	// MinPoints is the floor applied to every computed capacity.
	MinPoints = 5
)

// MaxPoints computes a member's maximum capacity in points for the given
// window:
//
//	(Working Days × Daily Working Hours − Leave Hours) × Focus Factor × Seniority Multiplier
//
// converted to points and floored at MinPoints. A nil window (no active
// iteration) yields DefaultMaxPoints.
func MaxPoints(window *sprint.Window, seniority string, cfg config.CapacityConfig) int {
	if window == nil || window.TotalDays <= 0 {
		return DefaultMaxPoints
	}

	// Five-day work week approximation over the whole window; not
	// calendar-aware.
	workingDays := float64(window.TotalDays) / 7 * 5

	// Leave hours stay zero: OOO windows are tracked on the member but are
	// not folded into the formula.
	leaveHours := 0.0

	baseHours := (workingDays*cfg.DailyWorkingHours - leaveHours) * cfg.FocusFactor
	availableHours := baseHours * cfg.Multiplier(seniority)

	points := int(math.Round(availableHours / cfg.HoursPerPoint))
	if points < MinPoints {
		points = MinPoints
	}
	return points
}

// ClassifyStatus maps committed load against max capacity to an
// availability status. maxPoints must be positive. Out-of-office overrides
// this classification at the roster level.
func ClassifyStatus(currentPoints, maxPoints int) string {
	utilization := float64(currentPoints) / float64(maxPoints) * 100
	switch {
	case utilization >= 100:
		return models.StatusOverloaded
	case utilization >= 75:
		return models.StatusBusy
	default:
		return models.StatusAvailable
	}
}

// Utilization returns committed load as a percentage of max capacity,
// or 0 when maxPoints is not positive.
func Utilization(currentPoints, maxPoints int) float64 {
	if maxPoints <= 0 {
		return 0
	}
	return float64(currentPoints) / float64(maxPoints) * 100
}
