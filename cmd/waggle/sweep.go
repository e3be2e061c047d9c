package main

import (
	"github.com/corvid-labs/waggle/internal/sweeper"
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one maintenance pass",
		Long:  "Performs a single sweep: expired message cleanup, retention cleanup, and stale-agent recovery.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			fanout, err := buildFanout(cfg)
			if err != nil {
				return err
			}
			return sweeper.Sweep(gormDB, cfg.Sweep, fanout, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	return cmd
}
