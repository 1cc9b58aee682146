package daemon

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/calder/ticketyard/internal/assign"
	"github.com/calder/ticketyard/internal/config"
	appdb "github.com/calder/ticketyard/internal/db"
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
	if err := appdb.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

func testCfg(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("project: apollo\n"))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return cfg
}

func TestRunValidation(t *testing.T) {
	d := &Daemon{}
	if err := d.Run(context.Background()); err == nil {
		t.Error("missing db should fail")
	}
	d.DB = testDB(t)
	if err := d.Run(context.Background()); err == nil {
		t.Error("missing config should fail")
	}
}

func TestRunRejectsBadCron(t *testing.T) {
	cfg := testCfg(t)
	cfg.Queue.SweepCron = "not a schedule"
	d := &Daemon{DB: testDB(t), Cfg: cfg}
	if err := d.Run(context.Background()); err == nil {
		t.Error("malformed cron expression should fail")
	}

	// Six fields are the seconds-based format, which is not accepted.
	cfg.Queue.SweepCron = "0 0 * * * *"
	if err := d.Run(context.Background()); err == nil {
		t.Error("six-field cron expression should fail")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	var out bytes.Buffer
	d := &Daemon{DB: testDB(t), Cfg: testCfg(t), Out: &out}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop on cancel")
	}

	if !strings.Contains(out.String(), "capacity sync disabled") {
		t.Errorf("output %q missing the no-tracker notice", out.String())
	}
}

func TestSweepReportsProgress(t *testing.T) {
	gdb := testDB(t)
	assign.Enqueue(gdb, assign.TicketRef{
		IssueKey: "PROJ-1", Priority: models.PriorityMedium, EstimatedPoints: 1,
	}, "no capacity")

	var out bytes.Buffer
	d := &Daemon{DB: gdb, Cfg: testCfg(t), Out: &out}
	d.sweep(context.Background())

	if !strings.Contains(out.String(), "processed=1") {
		t.Errorf("output %q missing sweep stats", out.String())
	}
}

func TestSweepQuietWhenIdle(t *testing.T) {
	var out bytes.Buffer
	d := &Daemon{DB: testDB(t), Cfg: testCfg(t), Out: &out}
	d.sweep(context.Background())
	if out.Len() != 0 {
		t.Errorf("idle sweep wrote %q", out.String())
	}
}

func TestCleanupReportsCounts(t *testing.T) {
	var out bytes.Buffer
	d := &Daemon{DB: testDB(t), Cfg: testCfg(t), Out: &out}
	d.cleanup()
	if !strings.Contains(out.String(), "tickets=0") {
		t.Errorf("output %q missing cleanup stats", out.String())
	}
}
