package roster

import (
	"errors"
	"testing"
	"time"

	"github.com/calder/ticketyard/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Member{}, &models.OOORecord{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seedMember(t *testing.T, db *gorm.DB, m models.Member) {
	t.Helper()
	if m.MaxPoints == 0 {
		m.MaxPoints = 14
	}
	if m.SeniorityLevel == "" {
		m.SeniorityLevel = models.SeniorityMid
	}
	if m.AvailabilityStatus == "" {
		m.AvailabilityStatus = models.StatusAvailable
	}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("seed member %s: %v", m.Username, err)
	}
}

func TestEligibleCandidates(t *testing.T) {
	db := testDB(t)
	seedMember(t, db, models.Member{Username: "alice"})
	seedMember(t, db, models.Member{Username: "bob", IsOutOfOffice: true, AvailabilityStatus: models.StatusOOO})
	seedMember(t, db, models.Member{Username: "carol", CurrentPoints: 12})
	seedMember(t, db, models.Member{Username: "dave", CurrentPoints: 11})

	// 3 points: alice has room, carol (12/14) does not, dave (11/14) just fits.
	candidates, err := EligibleCandidates(db, 3)
	if err != nil {
		t.Fatalf("EligibleCandidates: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}
	if candidates[0].Username != "alice" || candidates[1].Username != "dave" {
		t.Errorf("candidates = [%s %s], want [alice dave]",
			candidates[0].Username, candidates[1].Username)
	}
}

func TestEligibleCandidatesBoundary(t *testing.T) {
	db := testDB(t)
	seedMember(t, db, models.Member{Username: "alice", CurrentPoints: 11})

	// 11 + 3 == 14 is still eligible; the limit is inclusive.
	candidates, err := EligibleCandidates(db, 3)
	if err != nil {
		t.Fatalf("EligibleCandidates: %v", err)
	}
	if len(candidates) != 1 {
		t.Errorf("got %d candidates, want 1 at the exact limit", len(candidates))
	}

	candidates, err = EligibleCandidates(db, 4)
	if err != nil {
		t.Fatalf("EligibleCandidates: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("got %d candidates, want 0 past the limit", len(candidates))
	}
}

func TestCommitLoad(t *testing.T) {
	db := testDB(t)
	seedMember(t, db, models.Member{Username: "alice"})

	if err := CommitLoad(db, "alice", 5); err != nil {
		t.Fatalf("CommitLoad: %v", err)
	}

	m, err := Get(db, "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if m.CurrentPoints != 5 || m.CurrentTicketCount != 1 {
		t.Errorf("load = %d/%d tickets, want 5/1", m.CurrentPoints, m.CurrentTicketCount)
	}
	if m.AvailabilityStatus != models.StatusAvailable {
		t.Errorf("status = %q, want available at 5/14", m.AvailabilityStatus)
	}

	// A second commit crosses the busy threshold.
	if err := CommitLoad(db, "alice", 6); err != nil {
		t.Fatalf("CommitLoad: %v", err)
	}
	m, _ = Get(db, "alice")
	if m.AvailabilityStatus != models.StatusBusy {
		t.Errorf("status = %q, want busy at 11/14", m.AvailabilityStatus)
	}
}

func TestCommitLoadRejectsOverCapacity(t *testing.T) {
	db := testDB(t)
	seedMember(t, db, models.Member{Username: "alice", CurrentPoints: 12})

	err := CommitLoad(db, "alice", 3)
	if !errors.Is(err, ErrOverCapacity) {
		t.Fatalf("got %v, want ErrOverCapacity", err)
	}

	// The failed commit must not leak partial state.
	m, _ := Get(db, "alice")
	if m.CurrentPoints != 12 || m.CurrentTicketCount != 0 {
		t.Errorf("load = %d/%d tickets, want unchanged 12/0", m.CurrentPoints, m.CurrentTicketCount)
	}
}

func TestCommitLoadRejectsOOO(t *testing.T) {
	db := testDB(t)
	seedMember(t, db, models.Member{Username: "bob", IsOutOfOffice: true, AvailabilityStatus: models.StatusOOO})

	if err := CommitLoad(db, "bob", 1); !errors.Is(err, ErrOverCapacity) {
		t.Fatalf("got %v, want ErrOverCapacity for an out-of-office member", err)
	}
}

func TestCommitLoadValidation(t *testing.T) {
	db := testDB(t)
	if err := CommitLoad(db, "", 1); err == nil {
		t.Error("empty username should fail")
	}
	if err := CommitLoad(db, "alice", 0); err == nil {
		t.Error("non-positive points should fail")
	}
	if err := CommitLoad(db, "ghost", 1); err == nil {
		t.Error("unknown member should fail")
	}
}

func TestUpsert(t *testing.T) {
	db := testDB(t)

	m, created, err := Upsert(db, UpsertOpts{Username: "alice"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !created {
		t.Error("first upsert should create")
	}
	if m.SeniorityLevel != models.SeniorityMid || m.MaxPoints != 20 {
		t.Errorf("defaults = (%s, %d), want (Mid, 20)", m.SeniorityLevel, m.MaxPoints)
	}
	if m.Email != "alice@tracker.local" || m.DisplayName != "alice" {
		t.Errorf("identity fallbacks = (%s, %s)", m.Email, m.DisplayName)
	}

	_, created, err = Upsert(db, UpsertOpts{Username: "alice", DisplayName: "Alice A"})
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if created {
		t.Error("second upsert should not create")
	}
	m2, _ := Get(db, "alice")
	if m2.DisplayName != "Alice A" {
		t.Errorf("display name = %q, want refreshed Alice A", m2.DisplayName)
	}
}

func TestMarkAndClearOOO(t *testing.T) {
	db := testDB(t)
	seedMember(t, db, models.Member{Username: "alice", CurrentPoints: 11})

	start := time.Now()
	end := start.Add(7 * 24 * time.Hour)
	if err := MarkOOO(db, "alice", start, end, "vacation", 0); err != nil {
		t.Fatalf("MarkOOO: %v", err)
	}

	m, _ := Get(db, "alice")
	if !m.IsOutOfOffice || m.AvailabilityStatus != models.StatusOOO {
		t.Errorf("member = (%v, %q), want out of office", m.IsOutOfOffice, m.AvailabilityStatus)
	}

	var record models.OOORecord
	if err := db.Where("username = ?", "alice").First(&record).Error; err != nil {
		t.Fatalf("ooo record not written: %v", err)
	}
	if record.Reason != "vacation" || record.IsPartial {
		t.Errorf("record = (%q, partial=%v), want (vacation, false)", record.Reason, record.IsPartial)
	}

	if err := ClearOOO(db, "alice"); err != nil {
		t.Fatalf("ClearOOO: %v", err)
	}
	m, _ = Get(db, "alice")
	if m.IsOutOfOffice {
		t.Error("member still out of office after clear")
	}
	// Status reclassifies from the load the member returns to.
	if m.AvailabilityStatus != models.StatusBusy {
		t.Errorf("status = %q, want busy at 11/14", m.AvailabilityStatus)
	}
}

func TestMarkOOOUnknownMember(t *testing.T) {
	db := testDB(t)
	if err := MarkOOO(db, "ghost", time.Now(), time.Now().Add(time.Hour), "", 0); err == nil {
		t.Error("unknown member should fail")
	}
}
