package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newTicketCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ticket",
		Short: "Draft and assign tickets from natural-language prompts",
	}

	cmd.AddCommand(newTicketDraftCmd())
	return cmd
}

func newTicketDraftCmd() *cobra.Command {
	var (
		configPath string
		issueType  string
	)

	cmd := &cobra.Command{
		Use:   "draft <prompt...>",
		Short: "Draft a ticket from a prompt, file it, and assign it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTicketDraft(cmd, configPath, strings.Join(args, " "), issueType)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "ticketyard.yaml", "path to Ticketyard config file")
	cmd.Flags().StringVar(&issueType, "type", "Story", "issue type (Story, Bug, Task)")
	return cmd
}

func runTicketDraft(cmd *cobra.Command, configPath, prompt, issueType string) error {
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

	svc, err := buildStory(gormDB, cfg, trk)
	if err != nil {
		return err
	}
	if svc == nil {
		return fmt.Errorf("drafting requires an LLM api key (set llm.api_key or TICKETYARD_LLM_API_KEY)")
	}

	ticket, err := svc.CreateRequest(prompt, cfg.Project, issueType)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Drafting request %s...\n", ticket.RequestID)

	ticket, result, err := svc.Process(ctx, ticket.RequestID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Created %s: %s (%d pts, %s)\n",
		ticket.IssueKey, ticket.Title, ticket.EstimatedPoints, ticket.Priority)

	if result.Assigned {
		fmt.Fprintf(out, "Assigned to %s (score %.1f)\n", result.Assignee, result.Score.Total)
		fmt.Fprintf(out, "  %s\n", result.Reasoning)
	} else {
		fmt.Fprintf(out, "Queued: %s\n", result.QueueReason)
	}
	return nil
}
