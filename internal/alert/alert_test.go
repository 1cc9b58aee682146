package alert

import (
	"testing"

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
	if err := db.AutoMigrate(&models.Alert{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func TestRaiseAndResolve(t *testing.T) {
	db := testDB(t)

	a, err := Raise(db, KindQueueExhausted, "gave up on PROJ-1", "after 10 attempts",
		RaiseOpts{IssueKey: "PROJ-1", Priority: "urgent"})
	if err != nil {
		t.Fatalf("Raise: %v", err)
	}
	if a.Priority != "urgent" || a.IssueKey != "PROJ-1" {
		t.Errorf("alert = (%s, %s), want (urgent, PROJ-1)", a.Priority, a.IssueKey)
	}

	open, err := Unresolved(db)
	if err != nil {
		t.Fatalf("Unresolved: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("got %d open alerts, want 1", len(open))
	}

	if err := Resolve(db, a.ID); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	open, _ = Unresolved(db)
	if len(open) != 0 {
		t.Errorf("got %d open alerts after resolve, want 0", len(open))
	}
}

func TestRaiseDefaultsPriority(t *testing.T) {
	db := testDB(t)
	a, err := Raise(db, KindOverCommitted, "alice over capacity", "", RaiseOpts{Username: "alice"})
	if err != nil {
		t.Fatalf("Raise: %v", err)
	}
	if a.Priority != "normal" {
		t.Errorf("priority = %q, want normal", a.Priority)
	}
}

func TestRaiseValidation(t *testing.T) {
	db := testDB(t)
	if _, err := Raise(db, "", "subject", "", RaiseOpts{}); err == nil {
		t.Error("empty kind should fail")
	}
	if _, err := Raise(db, KindTrackerError, "", "", RaiseOpts{}); err == nil {
		t.Error("empty subject should fail")
	}
}

func TestResolveUnknown(t *testing.T) {
	db := testDB(t)
	if err := Resolve(db, 999); err == nil {
		t.Error("resolving a missing alert should fail")
	}
}
