package assign

import (
	"strings"
	"testing"
	"time"

	"github.com/calder/ticketyard/internal/models"
	"github.com/calder/ticketyard/internal/roster"
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
	if err := db.AutoMigrate(
		&models.Member{},
		&models.Assignment{},
		&models.QueueEntry{},
		&models.Alert{},
	); err != nil {
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
	if m.PerformanceScore == 0 {
		m.PerformanceScore = 7.5
	}
	if m.AvailabilityStatus == "" {
		m.AvailabilityStatus = models.StatusAvailable
	}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("seed member %s: %v", m.Username, err)
	}
}

func TestAssignPicksBestCandidate(t *testing.T) {
	db := testDB(t)
	alice := models.Member{Username: "alice", SeniorityLevel: models.SenioritySenior, PerformanceScore: 9}
	alice.SetSkills([]string{"Go"})
	seedMember(t, db, alice)
	seedMember(t, db, models.Member{Username: "bob", SeniorityLevel: models.SeniorityJunior})

	result, err := Assign(db, TicketRef{
		IssueKey:        "PROJ-1",
		Priority:        models.PriorityHigh,
		EstimatedPoints: 3,
		RequiredSkills:  []string{"Go"},
	})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}

	if !result.Assigned || result.Assignee != "alice" {
		t.Fatalf("result = (%v, %s), want assigned to alice", result.Assigned, result.Assignee)
	}
	if result.Reasoning == "" {
		t.Error("missing reasoning")
	}
	if len(result.Alternatives) != 1 || result.Alternatives[0].Username != "bob" {
		t.Errorf("alternatives = %v, want [bob]", result.Alternatives)
	}

	// The commit must be visible on the member.
	var m models.Member
	db.Where("username = ?", "alice").First(&m)
	if m.CurrentPoints != 3 || m.CurrentTicketCount != 1 {
		t.Errorf("alice load = %d/%d tickets, want 3/1", m.CurrentPoints, m.CurrentTicketCount)
	}

	// And the decision must be recorded.
	var record models.Assignment
	if err := db.Where("issue_key = ?", "PROJ-1").First(&record).Error; err != nil {
		t.Fatalf("assignment record not written: %v", err)
	}
	if record.Assignee != "alice" || record.TotalScore <= 0 {
		t.Errorf("record = (%s, %v)", record.Assignee, record.TotalScore)
	}
}

func TestAssignTieBreaksOnUsername(t *testing.T) {
	db := testDB(t)
	seedMember(t, db, models.Member{Username: "zoe"})
	seedMember(t, db, models.Member{Username: "amy"})

	result, err := Assign(db, TicketRef{IssueKey: "PROJ-2", Priority: models.PriorityMedium, EstimatedPoints: 1})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if result.Assignee != "amy" {
		t.Errorf("assignee = %s, want amy on equal scores", result.Assignee)
	}
}

func TestAssignQueuesWhenNoCandidates(t *testing.T) {
	db := testDB(t)
	seedMember(t, db, models.Member{Username: "alice", CurrentPoints: 14})

	result, err := Assign(db, TicketRef{IssueKey: "PROJ-3", Priority: models.PriorityHigh, EstimatedPoints: 2})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if result.Assigned {
		t.Fatal("expected a queued outcome")
	}
	if result.QueueReason != noCandidateReason {
		t.Errorf("reason = %q, want %q", result.QueueReason, noCandidateReason)
	}

	var entry models.QueueEntry
	if err := db.Where("issue_key = ?", "PROJ-3").First(&entry).Error; err != nil {
		t.Fatalf("queue entry not written: %v", err)
	}
	if entry.Status != models.QueueStatusQueued || entry.Attempts != 0 {
		t.Errorf("entry = (%s, %d attempts), want (queued, 0)", entry.Status, entry.Attempts)
	}
}

func TestAssignRequeuesWhenCommitLosesRace(t *testing.T) {
	db := testDB(t)
	seedMember(t, db, models.Member{Username: "alice"})

	// A competing assignment fills alice between the eligibility query and
	// the capacity commit, so CommitLoad must reject and the ticket must
	// land on the queue.
	raced := false
	err := db.Callback().Query().After("gorm:query").Register("competing_commit", func(tx *gorm.DB) {
		if raced || !strings.Contains(tx.Statement.SQL.String(), "current_points + ") {
			return
		}
		raced = true
		if err := roster.CommitLoad(db, "alice", 14); err != nil {
			t.Errorf("competing commit: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	t.Cleanup(func() { db.Callback().Query().Remove("competing_commit") })

	result, err := Assign(db, TicketRef{IssueKey: "PROJ-8", Priority: models.PriorityMedium, EstimatedPoints: 3})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !raced {
		t.Fatal("competing commit never ran")
	}
	if result.Assigned {
		t.Fatal("expected the lost race to queue")
	}
	if result.QueueReason != noCandidateReason {
		t.Errorf("reason = %q, want %q", result.QueueReason, noCandidateReason)
	}

	var entry models.QueueEntry
	if err := db.Where("issue_key = ?", "PROJ-8").First(&entry).Error; err != nil {
		t.Fatalf("queue entry not written: %v", err)
	}

	// Only the competing commit's load sticks.
	var m models.Member
	db.Where("username = ?", "alice").First(&m)
	if m.CurrentPoints != 14 {
		t.Errorf("alice load = %d, want only the winning 14", m.CurrentPoints)
	}
}

func TestAssignDefaultsZeroPointsToOne(t *testing.T) {
	db := testDB(t)
	seedMember(t, db, models.Member{Username: "alice", CurrentPoints: 13})

	result, err := Assign(db, TicketRef{IssueKey: "PROJ-4", Priority: models.PriorityLow})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !result.Assigned {
		t.Fatalf("expected assignment, got queued: %s", result.QueueReason)
	}

	var m models.Member
	db.Where("username = ?", "alice").First(&m)
	if m.CurrentPoints != 14 {
		t.Errorf("load = %d, want 14 after a one-point default", m.CurrentPoints)
	}
	if m.AvailabilityStatus != models.StatusOverloaded {
		t.Errorf("status = %q, want overloaded at 14/14", m.AvailabilityStatus)
	}
}

func TestAssignCapsAlternatives(t *testing.T) {
	db := testDB(t)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		seedMember(t, db, models.Member{Username: name})
	}

	result, err := Assign(db, TicketRef{IssueKey: "PROJ-5", Priority: models.PriorityMedium, EstimatedPoints: 1})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if len(result.Alternatives) != 3 {
		t.Errorf("alternatives = %d, want capped at 3", len(result.Alternatives))
	}
}

func TestMarkCompleted(t *testing.T) {
	db := testDB(t)
	record := models.Assignment{IssueKey: "PROJ-6", Assignee: "alice"}
	db.Create(&record)

	at := record.CreatedAt.Add(48 * time.Hour)
	if err := MarkCompleted(db, "PROJ-6", at); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	var got models.Assignment
	db.Where("issue_key = ?", "PROJ-6").First(&got)
	if got.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}
	if got.CompletionTimeDays < 1.9 || got.CompletionTimeDays > 2.1 {
		t.Errorf("completion days = %v, want about 2", got.CompletionTimeDays)
	}

	// Issues we never assigned are silently ignored.
	if err := MarkCompleted(db, "PROJ-404", time.Now()); err != nil {
		t.Errorf("unknown issue: %v", err)
	}
}

func TestMarkReassigned(t *testing.T) {
	db := testDB(t)
	db.Create(&models.Assignment{IssueKey: "PROJ-7", Assignee: "alice"})

	if err := MarkReassigned(db, "PROJ-7", "workload rebalance"); err != nil {
		t.Fatalf("MarkReassigned: %v", err)
	}

	var got models.Assignment
	db.Where("issue_key = ?", "PROJ-7").First(&got)
	if !got.WasReassigned || got.ReassignmentReason != "workload rebalance" {
		t.Errorf("record = (%v, %q)", got.WasReassigned, got.ReassignmentReason)
	}
}
