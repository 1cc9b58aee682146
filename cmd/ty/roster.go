package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/calder/ticketyard/internal/capacity"
	"github.com/calder/ticketyard/internal/config"
	"github.com/calder/ticketyard/internal/roster"
	"github.com/calder/ticketyard/internal/sprint"
	"github.com/calder/ticketyard/internal/tracker"
	"github.com/spf13/cobra"
)

func newRosterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Manage the team roster and member capacity",
	}

	cmd.AddCommand(newRosterListCmd())
	cmd.AddCommand(newRosterSyncCmd())
	cmd.AddCommand(newRosterSetCapacityCmd())
	cmd.AddCommand(newRosterSetSeniorityCmd())
	cmd.AddCommand(newRosterOOOCmd())
	cmd.AddCommand(newRosterReturnCmd())
	return cmd
}

func newRosterListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List team members with load and availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRosterList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "ticketyard.yaml", "path to Ticketyard config file")
	return cmd
}

func runRosterList(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	members, err := roster.List(gormDB)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		fmt.Fprintln(out, "Roster is empty. Run `ty roster sync` to import members from the tracker.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tLEVEL\tLOAD\tUTIL\tSTATUS\tSKILLS")
	for i := range members {
		m := &members[i]
		status := m.AvailabilityStatus
		if m.ManualCapacityOverride {
			status += " (pinned)"
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%.0f%%\t%s\t%s\n",
			m.Username, m.SeniorityLevel, m.CurrentPoints, m.MaxPoints,
			capacity.Utilization(m.CurrentPoints, m.MaxPoints), status,
			strings.Join(m.SkillList(), ","))
	}
	return w.Flush()
}

func newRosterSyncCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Import members and refresh capacity from the tracker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRosterSync(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "ticketyard.yaml", "path to Ticketyard config file")
	return cmd
}

func runRosterSync(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	trk, err := buildTracker(ctx, cfg)
	if err != nil {
		return err
	}
	if trk == nil {
		return fmt.Errorf("roster sync requires a tracker backend (got %q)", cfg.Tracker.Backend)
	}

	users, err := trk.ProjectUsers(ctx)
	if err != nil {
		return err
	}

	created := 0
	for _, u := range users {
		_, isNew, err := roster.Upsert(gormDB, roster.UpsertOpts{
			Username:    u.Username,
			Email:       u.Email,
			DisplayName: u.DisplayName,
		})
		if err != nil {
			return err
		}
		if isNew {
			created++
		}
	}
	fmt.Fprintf(out, "Synced %d members (%d new)\n", len(users), created)

	synced, err := capacity.SyncAll(ctx, gormDB,
		tracker.WorkloadAdapter{Tracker: trk},
		tracker.WindowProvider{Tracker: trk},
		cfg.Capacity)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Refreshed capacity for %d members\n", synced)
	return nil
}

func newRosterSetCapacityCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "set-capacity <username> <points|auto>",
		Short: "Pin a member's max capacity, or return it to automatic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRosterSetCapacity(cmd, configPath, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "ticketyard.yaml", "path to Ticketyard config file")
	return cmd
}

func runRosterSetCapacity(cmd *cobra.Command, configPath, username, value string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	if value == "auto" {
		window := lookupWindow(cmd, cfg)
		if err := roster.ResetToAuto(gormDB, username, window, cfg.Capacity); err != nil {
			return err
		}
		m, err := roster.Get(gormDB, username)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Capacity for %s back to automatic (%d pts)\n", username, m.MaxPoints)
		return nil
	}

	points, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("points must be a number or \"auto\", got %q", value)
	}
	if err := roster.SetManualCapacity(gormDB, username, points); err != nil {
		return err
	}
	fmt.Fprintf(out, "Capacity for %s pinned at %d pts\n", username, points)
	return nil
}

func newRosterSetSeniorityCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "set-seniority <username> <level>",
		Short: "Set a member's seniority level (Junior, Mid, Senior, Lead, Principal)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRosterSetSeniority(cmd, configPath, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "ticketyard.yaml", "path to Ticketyard config file")
	return cmd
}

func runRosterSetSeniority(cmd *cobra.Command, configPath, username, level string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	window := lookupWindow(cmd, cfg)
	if err := roster.SetSeniority(gormDB, username, level, window, cfg.Capacity); err != nil {
		return err
	}
	m, err := roster.Get(gormDB, username)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s is now %s (capacity %d pts)\n", username, level, m.MaxPoints)
	return nil
}

func newRosterOOOCmd() *cobra.Command {
	var (
		configPath string
		startStr   string
		endStr     string
		reason     string
		partialPct float64
	)

	cmd := &cobra.Command{
		Use:   "ooo <username>",
		Short: "Mark a member out of office",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRosterOOO(cmd, configPath, args[0], startStr, endStr, reason, partialPct)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "ticketyard.yaml", "path to Ticketyard config file")
	cmd.Flags().StringVar(&startStr, "start", "", "start date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&endStr, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&reason, "reason", "", "reason for the absence")
	cmd.Flags().Float64Var(&partialPct, "partial", 0, "remaining capacity percentage (0 = fully out)")
	cmd.MarkFlagRequired("end")
	return cmd
}

func runRosterOOO(cmd *cobra.Command, configPath, username, startStr, endStr, reason string, partialPct float64) error {
	out := cmd.OutOrStdout()

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	start := time.Now()
	if startStr != "" {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return fmt.Errorf("parse start date %q: %w", startStr, err)
		}
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return fmt.Errorf("parse end date %q: %w", endStr, err)
	}
	if !end.After(start) {
		return fmt.Errorf("end date must be after start date")
	}

	if err := roster.MarkOOO(gormDB, username, start, end, reason, partialPct); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s is out of office until %s\n", username, end.Format("2006-01-02"))
	return nil
}

func newRosterReturnCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "return <username>",
		Short: "Return a member to the roster after an absence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRosterReturn(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "ticketyard.yaml", "path to Ticketyard config file")
	return cmd
}

func runRosterReturn(cmd *cobra.Command, configPath, username string) error {
	out := cmd.OutOrStdout()

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	if err := roster.ClearOOO(gormDB, username); err != nil {
		return err
	}
	m, err := roster.Get(gormDB, username)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s is back (%s, %d/%d pts)\n",
		username, m.AvailabilityStatus, m.CurrentPoints, m.MaxPoints)
	return nil
}

// lookupWindow resolves the active iteration from the tracker, degrading to
// nil (default capacity) when no tracker is configured or the call fails.
func lookupWindow(cmd *cobra.Command, cfg *config.Config) *sprint.Window {
	trk, err := buildTracker(cmd.Context(), cfg)
	if err != nil || trk == nil {
		return nil
	}
	window, err := trk.ActiveWindow(cmd.Context())
	if err != nil {
		return nil
	}
	return window
}
