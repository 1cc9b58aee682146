package main

import (
	"fmt"

	"github.com/calder/ticketyard/internal/assign"
	"github.com/calder/ticketyard/internal/models"
	"github.com/spf13/cobra"
)

func newAssignCmd() *cobra.Command {
	var (
		configPath string
		priority   string
		points     int
		skills     []string
	)

	cmd := &cobra.Command{
		Use:   "assign <issue-key>",
		Short: "Assign a ticket to the best-fit team member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssign(cmd, configPath, args[0], priority, points, skills)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "ticketyard.yaml", "path to Ticketyard config file")
	cmd.Flags().StringVar(&priority, "priority", models.PriorityMedium, "ticket priority (Highest, High, Medium, Low)")
	cmd.Flags().IntVar(&points, "points", 1, "estimated story points")
	cmd.Flags().StringSliceVar(&skills, "skills", nil, "required skills (comma-separated)")
	return cmd
}

func runAssign(cmd *cobra.Command, configPath, issueKey, priority string, points int, skills []string) error {
	out := cmd.OutOrStdout()

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	result, err := assign.Assign(gormDB, assign.TicketRef{
		IssueKey:        issueKey,
		Priority:        priority,
		EstimatedPoints: points,
		RequiredSkills:  skills,
	})
	if err != nil {
		return err
	}

	if !result.Assigned {
		fmt.Fprintf(out, "Ticket %s queued: %s\n", issueKey, result.QueueReason)
		return nil
	}

	fmt.Fprintf(out, "Ticket %s assigned to %s (score %.1f)\n", issueKey, result.Assignee, result.Score.Total)
	fmt.Fprintf(out, "  %s\n", result.Reasoning)
	if len(result.Alternatives) > 0 {
		fmt.Fprintln(out, "Alternatives:")
		for _, alt := range result.Alternatives {
			fmt.Fprintf(out, "  %s (score %.1f)\n", alt.Username, alt.Score.Total)
		}
	}
	return nil
}
