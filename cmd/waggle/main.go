package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "waggle",
		Short: "Waggle — durable coordination for agent swarms",
		Long:  "Waggle stores tasks, messages, decisions, and shared memory for multi-agent systems.",
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSweepCmd())
	cmd.AddCommand(newTaskCmd())
	cmd.AddCommand(newAgentCmd())
	cmd.AddCommand(newMessageCmd())
	cmd.AddCommand(newDecisionCmd())
	cmd.AddCommand(newMemoryCmd())
	cmd.AddCommand(newObjectiveCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "waggle %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
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
