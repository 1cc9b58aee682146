package main

import (
	"context"
	"fmt"
	"os"

	"github.com/calder/ticketyard/internal/config"
	"github.com/calder/ticketyard/internal/db"
	"github.com/calder/ticketyard/internal/llm"
	"github.com/calder/ticketyard/internal/notify"
	notifydiscord "github.com/calder/ticketyard/internal/notify/discord"
	notifyslack "github.com/calder/ticketyard/internal/notify/slack"
	"github.com/calder/ticketyard/internal/story"
	"github.com/calder/ticketyard/internal/tracker"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ty",
		Short: "Ticketyard, capacity-aware ticket assignment",
		Long:  "Ticketyard drafts tickets, scores team members, and assigns work within sprint capacity.",
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAssignCmd())
	cmd.AddCommand(newQueueCmd())
	cmd.AddCommand(newRosterCmd())
	cmd.AddCommand(newTicketCmd())
	cmd.AddCommand(newAuthCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ty %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

// connectFromConfig loads the config file and opens the database connection.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", cfg.DB.Database, err)
	}

	return cfg, gormDB, nil
}

// buildTracker constructs the configured tracker backend, or nil for "none".
func buildTracker(ctx context.Context, cfg *config.Config) (tracker.Tracker, error) {
	switch cfg.Tracker.Backend {
	case "github":
		return tracker.NewGitHub(ctx, cfg.Tracker.Owner, cfg.Tracker.Repo, cfg.Tracker.Token)
	default:
		return nil, nil
	}
}

// buildStory constructs the drafting service, or nil when no LLM key is set.
func buildStory(gormDB *gorm.DB, cfg *config.Config, trk tracker.Tracker) (*story.Service, error) {
	if cfg.LLM.APIKey == "" {
		return nil, nil
	}
	gen, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, err
	}
	return &story.Service{DB: gormDB, Gen: gen, Tracker: trk}, nil
}

// buildNotify assembles the notification fanout from the configured
// platforms. An empty fanout is valid.
func buildNotify(cfg *config.Config) (*notify.Fanout, error) {
	var notifiers []notify.Notifier

	if cfg.Notify.Slack.Token != "" {
		n, err := notifyslack.New(notifyslack.Opts{
			BotToken:  cfg.Notify.Slack.Token,
			ChannelID: cfg.Notify.Slack.Channel,
		})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}
	if cfg.Notify.Discord.Token != "" {
		n, err := notifydiscord.New(notifydiscord.Opts{
			BotToken:  cfg.Notify.Discord.Token,
			ChannelID: cfg.Notify.Discord.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}

	if len(notifiers) == 0 {
		return nil, nil
	}
	return notify.NewFanout(notifiers...), nil
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
