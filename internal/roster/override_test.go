package roster

import (
	"testing"

	"github.com/calder/ticketyard/internal/config"
	"github.com/calder/ticketyard/internal/models"
	"github.com/calder/ticketyard/internal/sprint"
)

func overrideCfg() config.CapacityConfig {
	return config.CapacityConfig{
		DailyWorkingHours: 8,
		HoursPerPoint:     4,
		FocusFactor:       0.7,
		Multipliers: map[string]float64{
			"junior": 0.6, "mid": 1.0, "senior": 1.2, "lead": 0.8, "principal": 0.7,
		},
	}
}

func TestSetManualCapacity(t *testing.T) {
	db := testDB(t)
	seedMember(t, db, models.Member{Username: "alice", CurrentPoints: 10})

	if err := SetManualCapacity(db, "alice", 10); err != nil {
		t.Fatalf("SetManualCapacity: %v", err)
	}

	m, _ := Get(db, "alice")
	if m.MaxPoints != 10 || !m.ManualCapacityOverride {
		t.Errorf("member = (%d, override=%v), want (10, true)", m.MaxPoints, m.ManualCapacityOverride)
	}
	// Shrinking capacity under the current load reclassifies immediately.
	if m.AvailabilityStatus != models.StatusOverloaded {
		t.Errorf("status = %q, want overloaded at 10/10", m.AvailabilityStatus)
	}
}

func TestSetManualCapacityValidation(t *testing.T) {
	db := testDB(t)
	if err := SetManualCapacity(db, "alice", 0); err == nil {
		t.Error("non-positive capacity should fail")
	}
}

func TestResetToAuto(t *testing.T) {
	db := testDB(t)
	seedMember(t, db, models.Member{
		Username: "alice", SeniorityLevel: models.SenioritySenior,
		MaxPoints: 30, ManualCapacityOverride: true,
	})

	window := &sprint.Window{TotalDays: 14}
	if err := ResetToAuto(db, "alice", window, overrideCfg()); err != nil {
		t.Fatalf("ResetToAuto: %v", err)
	}

	m, _ := Get(db, "alice")
	if m.ManualCapacityOverride {
		t.Error("override flag still set")
	}
	if m.MaxPoints != 17 {
		t.Errorf("max = %d, want recomputed 17", m.MaxPoints)
	}
}

func TestSetSeniority(t *testing.T) {
	db := testDB(t)
	seedMember(t, db, models.Member{Username: "alice"})

	window := &sprint.Window{TotalDays: 14}
	if err := SetSeniority(db, "alice", models.SeniorityJunior, window, overrideCfg()); err != nil {
		t.Fatalf("SetSeniority: %v", err)
	}

	m, _ := Get(db, "alice")
	if m.SeniorityLevel != models.SeniorityJunior {
		t.Errorf("level = %q, want Junior", m.SeniorityLevel)
	}
	if m.MaxPoints != 8 {
		t.Errorf("max = %d, want 8 for a junior over two weeks", m.MaxPoints)
	}
}

func TestSetSeniorityKeepsPinnedCapacity(t *testing.T) {
	db := testDB(t)
	seedMember(t, db, models.Member{
		Username: "alice", MaxPoints: 25, ManualCapacityOverride: true,
	})

	if err := SetSeniority(db, "alice", models.SenioritySenior, nil, overrideCfg()); err != nil {
		t.Fatalf("SetSeniority: %v", err)
	}

	m, _ := Get(db, "alice")
	if m.MaxPoints != 25 {
		t.Errorf("max = %d, want pinned 25 left alone", m.MaxPoints)
	}
}

func TestSetSeniorityRejectsUnknownLevel(t *testing.T) {
	db := testDB(t)
	seedMember(t, db, models.Member{Username: "alice"})

	if err := SetSeniority(db, "alice", "Wizard", nil, overrideCfg()); err == nil {
		t.Error("unknown level should fail")
	}
}
