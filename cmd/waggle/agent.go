package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/corvid-labs/waggle/internal/agent"
	"github.com/corvid-labs/waggle/internal/models"
	"github.com/spf13/cobra"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Agent registry commands",
	}

	cmd.AddCommand(newAgentRegisterCmd())
	cmd.AddCommand(newAgentListCmd())
	cmd.AddCommand(newAgentShowCmd())
	cmd.AddCommand(newAgentUpdateCmd())
	cmd.AddCommand(newAgentRemoveCmd())
	cmd.AddCommand(newAgentStatsCmd())
	return cmd
}

func newAgentRegisterCmd() *cobra.Command {
	var (
		configPath    string
		id            string
		agentType     string
		name          string
		capabilities  []string
		directive     string
		maxConcurrent int
		priority      int
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new agent",
		Long:  "Registers an agent in idle status with a zeroed metrics row.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			a, err := agent.Register(gormDB, agent.RegisterOpts{
				ID:            id,
				Type:          agentType,
				Name:          name,
				Capabilities:  capabilities,
				Directive:     directive,
				MaxConcurrent: maxConcurrent,
				Priority:      priority,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered agent %s (%s)\n", a.ID, a.Type)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().StringVar(&id, "id", "", "agent ID (required)")
	cmd.Flags().StringVar(&agentType, "type", "", "agent type (researcher, developer, analyzer, coordinator, reviewer)")
	cmd.Flags().StringVar(&name, "name", "", "display name (required)")
	cmd.Flags().StringSliceVar(&capabilities, "capability", nil, "capability tag (repeatable)")
	cmd.Flags().StringVar(&directive, "directive", "", "standing instruction")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 1, "concurrent task limit")
	cmd.Flags().IntVar(&priority, "priority", 0, "selection priority (higher preferred)")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newAgentListCmd() *cobra.Command {
	var (
		configPath string
		agentType  string
		status     string
		available  bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agents",
		Long:  "Lists agents by type or status, or the best available idle agents with --available.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			var agents []models.Agent
			switch {
			case available:
				agents, err = agent.ListAvailable(gormDB, limit)
			case agentType != "":
				agents, err = agent.ListByType(gormDB, agentType)
			case status != "":
				agents, err = agent.ListByStatus(gormDB, status)
			default:
				agents, err = agent.ListByStatus(gormDB, models.AgentStatusIdle)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(agents) == 0 {
				fmt.Fprintln(out, "No agents found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tSTATUS\tPRI")
			for _, a := range agents {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
					a.ID, truncate(a.Name, 30), a.Type, a.Status, a.Priority)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().StringVar(&agentType, "type", "", "filter by type")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().BoolVar(&available, "available", false, "list best available idle agents")
	cmd.Flags().IntVar(&limit, "limit", 10, "limit for --available")
	return cmd
}

func newAgentShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show agent details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			a, err := agent.Get(gormDB, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:             %s\n", a.ID)
			fmt.Fprintf(out, "Name:           %s\n", a.Name)
			fmt.Fprintf(out, "Type:           %s\n", a.Type)
			fmt.Fprintf(out, "Status:         %s\n", a.Status)
			fmt.Fprintf(out, "Priority:       %d\n", a.Priority)
			fmt.Fprintf(out, "Max concurrent: %d\n", a.MaxConcurrent)
			if capabilities, err := agent.Capabilities(a); err == nil && len(capabilities) > 0 {
				fmt.Fprintf(out, "Capabilities:   %s\n", strings.Join(capabilities, ", "))
			}
			if a.Directive != "" {
				fmt.Fprintf(out, "Directive:      %s\n", a.Directive)
			}
			if a.Metrics != nil {
				fmt.Fprintf(out, "\nCompleted:      %d\n", a.Metrics.TasksCompleted)
				fmt.Fprintf(out, "Failed:         %d\n", a.Metrics.TasksFailed)
				fmt.Fprintf(out, "Last activity:  %s\n", a.Metrics.LastActivity.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	return cmd
}

func newAgentUpdateCmd() *cobra.Command {
	var (
		configPath    string
		name          string
		status        string
		capabilities  []string
		directive     string
		maxConcurrent int
		priority      int
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an agent",
		Long:  "Updates mutable agent fields. Type and ID cannot change.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := agent.UpdateOpts{}
			changed := false

			if cmd.Flags().Changed("name") {
				opts.Name = &name
				changed = true
			}
			if cmd.Flags().Changed("status") {
				opts.Status = &status
				changed = true
			}
			if cmd.Flags().Changed("capability") {
				opts.Capabilities = capabilities
				changed = true
			}
			if cmd.Flags().Changed("directive") {
				opts.Directive = &directive
				changed = true
			}
			if cmd.Flags().Changed("max-concurrent") {
				opts.MaxConcurrent = &maxConcurrent
				changed = true
			}
			if cmd.Flags().Changed("priority") {
				opts.Priority = &priority
				changed = true
			}
			if !changed {
				return fmt.Errorf("no fields to update; use --name, --status, --capability, --directive, --max-concurrent, or --priority")
			}

			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := agent.Update(gormDB, args[0], opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated agent %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().StringVar(&name, "name", "", "new display name")
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().StringSliceVar(&capabilities, "capability", nil, "replacement capability tags")
	cmd.Flags().StringVar(&directive, "directive", "", "new standing instruction")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 0, "new concurrent task limit")
	cmd.Flags().IntVar(&priority, "priority", 0, "new selection priority")
	return cmd
}

func newAgentRemoveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := agent.Delete(gormDB, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed agent %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	return cmd
}

func newAgentStatsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show registry-wide agent statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			stats, err := agent.Performance(gormDB)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Agents:         %d\n", stats.TotalAgents)
			for status, count := range stats.ByStatus {
				fmt.Fprintf(out, "  %-12s  %d\n", status, count)
			}
			fmt.Fprintf(out, "Completed:      %d\n", stats.TasksCompleted)
			fmt.Fprintf(out, "Failed:         %d\n", stats.TasksFailed)
			fmt.Fprintf(out, "Avg duration:   %dms\n", stats.AvgDurationMs)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	return cmd
}
