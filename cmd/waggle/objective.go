package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/corvid-labs/waggle/internal/models"
	"github.com/corvid-labs/waggle/internal/objective"
	"github.com/spf13/cobra"
)

func newObjectiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "objective",
		Short: "Objective tracking commands",
	}

	cmd.AddCommand(newObjectiveCreateCmd())
	cmd.AddCommand(newObjectiveListCmd())
	cmd.AddCommand(newObjectiveShowCmd())
	cmd.AddCommand(newObjectiveAttachCmd())
	cmd.AddCommand(newObjectiveDetachCmd())
	cmd.AddCommand(newObjectiveCompleteCmd())
	cmd.AddCommand(newObjectiveFailCmd())
	cmd.AddCommand(newObjectiveStatsCmd())
	return cmd
}

func newObjectiveCreateCmd() *cobra.Command {
	var (
		configPath  string
		description string
		strategy    string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new objective",
		Long:  "Creates an objective in planning status. Attaching the first task starts execution.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			o, err := objective.Create(gormDB, objective.CreateOpts{
				Description: description,
				Strategy:    strategy,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created objective %s\n", o.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().StringVar(&description, "description", "", "objective description (required)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "execution strategy note")
	cmd.MarkFlagRequired("description")
	return cmd
}

func newObjectiveListCmd() *cobra.Command {
	var (
		configPath string
		status     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List objectives",
		Long:  "Lists active objectives, or objectives in one status with --status.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			var objectives []models.Objective
			if status != "" {
				objectives, err = objective.ListByStatus(gormDB, status)
			} else {
				objectives, err = objective.ListActive(gormDB)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(objectives) == 0 {
				fmt.Fprintln(out, "No objectives found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tDESCRIPTION")
			for _, o := range objectives {
				fmt.Fprintf(w, "%s\t%s\t%s\n", o.ID, o.Status, truncate(o.Description, 50))
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	return cmd
}

func newObjectiveShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show objective details and progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			o, err := objective.Get(gormDB, args[0])
			if err != nil {
				return err
			}
			percent, err := objective.Progress(gormDB, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:          %s\n", o.ID)
			fmt.Fprintf(out, "Status:      %s\n", o.Status)
			fmt.Fprintf(out, "Progress:    %.0f%%\n", percent)
			if o.Strategy != "" {
				fmt.Fprintf(out, "Strategy:    %s\n", o.Strategy)
			}
			fmt.Fprintf(out, "Created:     %s\n", o.CreatedAt.Format("2006-01-02 15:04:05"))
			if o.CompletedAt != nil {
				fmt.Fprintf(out, "Completed:   %s\n", o.CompletedAt.Format("2006-01-02 15:04:05"))
			}
			fmt.Fprintf(out, "\nDescription:\n%s\n", o.Description)
			if len(o.Tasks) > 0 {
				fmt.Fprintln(out, "\nTasks:")
				for _, link := range o.Tasks {
					fmt.Fprintf(out, "  %2d. %s\n", link.Sequence, link.TaskID)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	return cmd
}

func newObjectiveAttachCmd() *cobra.Command {
	var (
		configPath string
		taskIDs    []string
		order      int
	)

	cmd := &cobra.Command{
		Use:   "attach <objective-id>",
		Short: "Attach tasks to an objective",
		Long:  "Links tasks into the objective's ordered plan. Without --order, tasks append at the end.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if len(taskIDs) == 1 && order > 0 {
				err = objective.AttachTask(gormDB, args[0], taskIDs[0], order)
			} else {
				err = objective.AttachTasks(gormDB, args[0], taskIDs)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Attached %d task(s) to %s\n", len(taskIDs), args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().StringSliceVar(&taskIDs, "task", nil, "task ID to attach (repeatable, required)")
	cmd.Flags().IntVar(&order, "order", 0, "explicit position for a single task (1-based)")
	cmd.MarkFlagRequired("task")
	return cmd
}

func newObjectiveDetachCmd() *cobra.Command {
	var (
		configPath string
		taskID     string
	)

	cmd := &cobra.Command{
		Use:   "detach <objective-id>",
		Short: "Detach a task from an objective",
		Long:  "Removes a task link and renumbers the remaining plan contiguously.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := objective.DetachTask(gormDB, args[0], taskID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Detached %s from %s\n", taskID, args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().StringVar(&taskID, "task", "", "task ID to detach (required)")
	cmd.MarkFlagRequired("task")
	return cmd
}

func newObjectiveCompleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark an objective completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			applied, err := objective.MarkCompleted(gormDB, args[0])
			if err != nil {
				return err
			}
			if !applied {
				fmt.Fprintf(cmd.OutOrStdout(), "Objective %s was already terminal; nothing changed\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	return cmd
}

func newObjectiveFailCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "fail <id>",
		Short: "Mark an objective failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			applied, err := objective.MarkFailed(gormDB, args[0])
			if err != nil {
				return err
			}
			if !applied {
				fmt.Fprintf(cmd.OutOrStdout(), "Objective %s was already terminal; nothing changed\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Failed %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	return cmd
}

func newObjectiveStatsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show objective statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			stats, err := objective.ComputeStats(gormDB)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Objectives:      %d\n", stats.Total)
			for status, count := range stats.ByStatus {
				fmt.Fprintf(out, "  %-12s   %d\n", status, count)
			}
			fmt.Fprintf(out, "Avg completion:  %.1f%%\n", stats.AvgCompletionRate)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	return cmd
}
