// Package daemon runs the periodic background jobs: queue sweeps, capacity
// sync against the tracker, and retention cleanup.
package daemon

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/calder/ticketyard/internal/assign"
	"github.com/calder/ticketyard/internal/capacity"
	"github.com/calder/ticketyard/internal/config"
	"github.com/calder/ticketyard/internal/db"
	"github.com/calder/ticketyard/internal/models"
	"github.com/calder/ticketyard/internal/notify"
	"github.com/calder/ticketyard/internal/sprint"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Daemon owns the scheduled jobs. Workload and Windows are nil when no
// tracker is configured; the capacity sync job is skipped in that case.
type Daemon struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Workload capacity.WorkloadSource
	Windows  sprint.Provider
	Notify   *notify.Fanout
	Out      io.Writer
}

// Run schedules the jobs and blocks until the context is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if d.DB == nil {
		return fmt.Errorf("daemon: db is required")
	}
	if d.Cfg == nil {
		return fmt.Errorf("daemon: config is required")
	}
	if d.Out == nil {
		d.Out = io.Discard
	}

	c := cron.New(cron.WithParser(cronParser))

	if _, err := c.AddFunc(d.Cfg.Queue.SweepCron, func() { d.sweep(ctx) }); err != nil {
		return fmt.Errorf("daemon: schedule sweep %q: %w", d.Cfg.Queue.SweepCron, err)
	}

	if d.Workload != nil {
		if _, err := c.AddFunc(d.Cfg.Sync.CapacityCron, func() { d.syncCapacity(ctx) }); err != nil {
			return fmt.Errorf("daemon: schedule capacity sync %q: %w", d.Cfg.Sync.CapacityCron, err)
		}
	} else {
		fmt.Fprintf(d.Out, "No tracker configured, capacity sync disabled\n")
	}

	if _, err := c.AddFunc(d.Cfg.Sync.CleanupCron, func() { d.cleanup() }); err != nil {
		return fmt.Errorf("daemon: schedule cleanup %q: %w", d.Cfg.Sync.CleanupCron, err)
	}

	fmt.Fprintf(d.Out, "Daemon starting (sweep %q, sync %q, cleanup %q)\n",
		d.Cfg.Queue.SweepCron, d.Cfg.Sync.CapacityCron, d.Cfg.Sync.CleanupCron)

	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	fmt.Fprintf(d.Out, "Daemon stopped.\n")
	return nil
}

// sweep retries every queued ticket and reports progress.
func (d *Daemon) sweep(ctx context.Context) {
	start := time.Now()

	stats, err := assign.SweepQueue(d.DB, d.Cfg.Queue.MaxAttempts)
	if err != nil {
		log.Printf("daemon: sweep error: %v", err)
		return
	}
	if stats.Processed == 0 {
		return
	}

	fmt.Fprintf(d.Out, "Sweep: processed=%d assigned=%d still_queued=%d\n",
		stats.Processed, stats.Assigned, stats.StillQueued)

	if d.Notify == nil {
		return
	}
	d.Notify.Send(ctx, notify.SweepEvent(stats.Processed, stats.Assigned, stats.StillQueued))

	// Announce entries that gave up during this sweep.
	var exhausted []models.QueueEntry
	if err := d.DB.Where("status = ? AND updated_at >= ?", models.QueueStatusFailed, start).
		Find(&exhausted).Error; err != nil {
		log.Printf("daemon: list exhausted entries: %v", err)
		return
	}
	for _, entry := range exhausted {
		d.Notify.Send(ctx, notify.ExhaustedEvent(entry.IssueKey, entry.Attempts))
	}
}

// syncCapacity refreshes every member's load and status from the tracker.
func (d *Daemon) syncCapacity(ctx context.Context) {
	synced, err := capacity.SyncAll(ctx, d.DB, d.Workload, d.Windows, d.Cfg.Capacity)
	if err != nil {
		log.Printf("daemon: capacity sync error: %v", err)
		return
	}
	fmt.Fprintf(d.Out, "Capacity sync complete (%d members)\n", synced)
}

// cleanup prunes finished records past the retention window.
func (d *Daemon) cleanup() {
	stats, err := db.Cleanup(d.DB, d.Cfg.Sync.RetentionDays)
	if err != nil {
		log.Printf("daemon: cleanup error: %v", err)
		return
	}
	fmt.Fprintf(d.Out, "Cleanup: tickets=%d assignments=%d ooo=%d alerts=%d\n",
		stats.Tickets, stats.Assignments, stats.OOORecords, stats.Alerts)
}
