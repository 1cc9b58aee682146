package db

import (
	"testing"
	"time"

	"github.com/calder/ticketyard/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

// backdate forces a timestamp column past GORM's create-time stamping.
func backdate(t *testing.T, gdb *gorm.DB, model interface{}, column string, at time.Time) {
	t.Helper()
	if err := gdb.Model(model).UpdateColumn(column, at).Error; err != nil {
		t.Fatalf("backdate %T: %v", model, err)
	}
}

func TestCleanupRemovesOldRows(t *testing.T) {
	gdb := testDB(t)
	old := time.Now().AddDate(0, 0, -200)

	done := models.Ticket{RequestID: "r1", Prompt: "a", Status: models.TicketStatusCompleted}
	gdb.Create(&done)
	backdate(t, gdb, &done, "updated_at", old)
	failed := models.Ticket{RequestID: "r2", Prompt: "b", Status: models.TicketStatusFailed}
	gdb.Create(&failed)
	backdate(t, gdb, &failed, "updated_at", old)
	fresh := models.Ticket{RequestID: "r3", Prompt: "c", Status: models.TicketStatusCompleted}
	gdb.Create(&fresh)
	pending := models.Ticket{RequestID: "r4", Prompt: "d", Status: models.TicketStatusPending}
	gdb.Create(&pending)
	backdate(t, gdb, &pending, "updated_at", old)

	oldAssign := models.Assignment{IssueKey: "PROJ-1", Assignee: "alice"}
	gdb.Create(&oldAssign)
	backdate(t, gdb, &oldAssign, "created_at", old)
	gdb.Create(&models.Assignment{IssueKey: "PROJ-2", Assignee: "bob"})

	gdb.Create(&models.OOORecord{
		Username:  "alice",
		StartDate: old,
		EndDate:   old.AddDate(0, 0, 7),
	})
	gdb.Create(&models.OOORecord{
		Username:  "bob",
		StartDate: time.Now(),
		EndDate:   time.Now().AddDate(0, 0, 7),
	})

	resolved := models.Alert{Kind: "tracker-error", Subject: "x", Resolved: true}
	gdb.Create(&resolved)
	backdate(t, gdb, &resolved, "created_at", old)
	openAlert := models.Alert{Kind: "tracker-error", Subject: "y"}
	gdb.Create(&openAlert)
	backdate(t, gdb, &openAlert, "created_at", old)

	stats, err := Cleanup(gdb, 180)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	want := CleanupStats{Tickets: 2, Assignments: 1, OOORecords: 1, Alerts: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}

	// Pending tickets survive no matter how stale.
	var keys []string
	gdb.Model(&models.Ticket{}).Order("request_id").Pluck("request_id", &keys)
	if len(keys) != 2 || keys[0] != "r3" || keys[1] != "r4" {
		t.Errorf("surviving tickets = %v, want [r3 r4]", keys)
	}

	// Unresolved alerts survive too.
	var alerts int64
	gdb.Model(&models.Alert{}).Count(&alerts)
	if alerts != 1 {
		t.Errorf("surviving alerts = %d, want 1", alerts)
	}
}

func TestCleanupRejectsBadRetention(t *testing.T) {
	gdb := testDB(t)
	if _, err := Cleanup(gdb, 0); err == nil {
		t.Error("zero retention should fail")
	}
	if _, err := Cleanup(gdb, -5); err == nil {
		t.Error("negative retention should fail")
	}
}

func TestCleanupNoRows(t *testing.T) {
	gdb := testDB(t)
	stats, err := Cleanup(gdb, 30)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if stats != (CleanupStats{}) {
		t.Errorf("stats = %+v, want all zero", stats)
	}
}
