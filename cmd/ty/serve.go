package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/calder/ticketyard/internal/api"
	"github.com/calder/ticketyard/internal/capacity"
	"github.com/calder/ticketyard/internal/daemon"
	"github.com/calder/ticketyard/internal/sprint"
	"github.com/calder/ticketyard/internal/tracker"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		noDaemon   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and background jobs",
		Long:  "Runs the JSON API together with the queue sweeper, capacity sync, and cleanup jobs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port, noDaemon)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "ticketyard.yaml", "path to Ticketyard config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	cmd.Flags().BoolVar(&noDaemon, "no-daemon", false, "serve the API without the background jobs")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int, noDaemon bool) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.API.Port = port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	trk, err := buildTracker(ctx, cfg)
	if err != nil {
		return err
	}

	var workload capacity.WorkloadSource
	var windows sprint.Provider
	if trk != nil {
		workload = tracker.WorkloadAdapter{Tracker: trk}
		windows = tracker.WindowProvider{Tracker: trk}
	}

	storySvc, err := buildStory(gormDB, cfg, trk)
	if err != nil {
		return err
	}

	fanout, err := buildNotify(cfg)
	if err != nil {
		return err
	}
	if fanout != nil {
		defer fanout.Close()
	}

	if !noDaemon {
		d := &daemon.Daemon{
			DB:       gormDB,
			Cfg:      cfg,
			Workload: workload,
			Windows:  windows,
			Notify:   fanout,
			Out:      out,
		}
		go func() {
			if err := d.Run(ctx); err != nil {
				fmt.Fprintf(out, "Daemon error: %v\n", err)
				cancel()
			}
		}()
	}

	return api.Start(ctx, &api.Server{
		DB:       gormDB,
		Cfg:      cfg,
		Story:    storySvc,
		Workload: workload,
		Windows:  windows,
		Notify:   fanout,
		Out:      out,
	})
}
