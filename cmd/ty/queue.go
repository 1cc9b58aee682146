package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/calder/ticketyard/internal/assign"
	"github.com/spf13/cobra"
)

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and drive the assignment queue",
	}

	cmd.AddCommand(newQueueListCmd())
	cmd.AddCommand(newQueueSweepCmd())
	return cmd
}

func newQueueListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assignment queue entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueueList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "ticketyard.yaml", "path to Ticketyard config file")
	return cmd
}

func runQueueList(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	entries, err := assign.AllEntries(gormDB)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "Queue is empty.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ISSUE\tPRIORITY\tPOINTS\tSTATUS\tATTEMPTS\tREASON")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%s\n",
			e.IssueKey, e.Priority, e.EstimatedPoints, e.Status, e.Attempts, e.Reason)
	}
	return w.Flush()
}

func newQueueSweepCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Retry every queued ticket now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueueSweep(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "ticketyard.yaml", "path to Ticketyard config file")
	return cmd
}

func runQueueSweep(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	stats, err := assign.SweepQueue(gormDB, cfg.Queue.MaxAttempts)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Processed %d, assigned %d, still queued %d\n",
		stats.Processed, stats.Assigned, stats.StillQueued)
	return nil
}
