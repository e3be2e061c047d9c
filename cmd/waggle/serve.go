package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/corvid-labs/waggle/internal/config"
	"github.com/corvid-labs/waggle/internal/notify"
	"github.com/corvid-labs/waggle/internal/server"
	"github.com/corvid-labs/waggle/internal/sweeper"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		noSweep    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the coordination API server",
		Long:  "Launches the JSON HTTP API and, unless disabled, the background maintenance sweeper.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port, noSweep)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	cmd.Flags().BoolVar(&noSweep, "no-sweep", false, "disable the background maintenance loop")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int, noSweep bool) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if !noSweep {
		fanout, err := buildFanout(cfg)
		if err != nil {
			return err
		}
		go func() {
			if err := sweeper.Run(ctx, sweeper.Opts{
				DB:     gormDB,
				Sweep:  cfg.Sweep,
				Notify: fanout,
				Out:    cmd.OutOrStdout(),
			}); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Sweeper error: %v\n", err)
			}
		}()
	}

	return server.Start(ctx, server.StartOpts{
		DB:   gormDB,
		Port: port,
		Out:  cmd.OutOrStdout(),
	})
}

// buildFanout assembles the configured notifiers. Platforms without
// credentials are skipped; an empty fanout is valid.
func buildFanout(cfg *config.Config) (*notify.Fanout, error) {
	var notifiers []notify.Notifier

	if cfg.Notify.Slack.ChannelID != "" {
		s, err := notify.NewSlack(notify.SlackOpts{
			Token:     cfg.Notify.Slack.Token,
			ChannelID: cfg.Notify.Slack.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, s)
	}

	if cfg.Notify.Discord.ChannelID != "" {
		d, err := notify.NewDiscord(notify.DiscordOpts{
			Token:     cfg.Notify.Discord.Token,
			ChannelID: cfg.Notify.Discord.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, d)
	}

	return notify.NewFanout(notifiers...), nil
}
