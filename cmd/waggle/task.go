package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/corvid-labs/waggle/internal/task"
	"github.com/spf13/cobra"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Task management commands",
	}

	cmd.AddCommand(newTaskCreateCmd())
	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskShowCmd())
	cmd.AddCommand(newTaskReadyCmd())
	cmd.AddCommand(newTaskAssignCmd())
	cmd.AddCommand(newTaskCompleteCmd())
	cmd.AddCommand(newTaskFailCmd())
	cmd.AddCommand(newTaskRetryCmd())
	cmd.AddCommand(newTaskDepCmd())
	cmd.AddCommand(newTaskStatsCmd())
	return cmd
}

func newTaskCreateCmd() *cobra.Command {
	var (
		configPath  string
		taskType    string
		description string
		priority    int
		dependsOn   []string
		maxRetries  int
		timeoutMs   int64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new task",
		Long:  "Creates a task in pending status with an auto-generated ID and optional dependencies.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			t, err := task.Create(gormDB, task.CreateOpts{
				Type:        taskType,
				Description: description,
				Priority:    priority,
				DependsOn:   dependsOn,
				MaxRetries:  maxRetries,
				TimeoutMs:   timeoutMs,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task %s\n", t.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().StringVar(&taskType, "type", "", "task type (required)")
	cmd.Flags().StringVar(&description, "description", "", "task description (required)")
	cmd.Flags().IntVar(&priority, "priority", 0, "scheduling priority (higher first)")
	cmd.Flags().StringSliceVar(&dependsOn, "depends-on", nil, "task IDs this task depends on")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "retry ceiling (default 3)")
	cmd.Flags().Int64Var(&timeoutMs, "timeout-ms", 0, "execution timeout in milliseconds")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("description")
	return cmd
}

func newTaskListCmd() *cobra.Command {
	var (
		configPath string
		status     string
		taskType   string
		agentID    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long:  "Lists tasks with optional filters, highest priority first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			tasks, err := task.List(gormDB, task.ListFilters{
				Status:        status,
				Type:          taskType,
				AssignedAgent: agentID,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintln(out, "No tasks found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tPRI\tPROG\tAGENT")
			for _, t := range tasks {
				a := "-"
				if t.AssignedAgent != nil {
					a = *t.AssignedAgent
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d%%\t%s\n",
					t.ID, truncate(t.Type, 20), t.Status, t.Priority, t.Progress, a)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&taskType, "type", "", "filter by type")
	cmd.Flags().StringVar(&agentID, "agent", "", "filter by assigned agent")
	return cmd
}

func newTaskShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show task details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			t, err := task.Get(gormDB, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:          %s\n", t.ID)
			fmt.Fprintf(out, "Type:        %s\n", t.Type)
			fmt.Fprintf(out, "Status:      %s\n", t.Status)
			fmt.Fprintf(out, "Priority:    %d\n", t.Priority)
			fmt.Fprintf(out, "Progress:    %d%%\n", t.Progress)
			fmt.Fprintf(out, "Retries:     %d/%d\n", t.RetryCount, t.MaxRetries)
			if t.AssignedAgent != nil {
				fmt.Fprintf(out, "Agent:       %s\n", *t.AssignedAgent)
			}
			fmt.Fprintf(out, "Created:     %s\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
			if t.StartedAt != nil {
				fmt.Fprintf(out, "Started:     %s\n", t.StartedAt.Format("2006-01-02 15:04:05"))
			}
			if t.CompletedAt != nil {
				fmt.Fprintf(out, "Completed:   %s\n", t.CompletedAt.Format("2006-01-02 15:04:05"))
			}
			if t.Error != "" {
				fmt.Fprintf(out, "Error:       %s\n", t.Error)
			}
			if t.Description != "" {
				fmt.Fprintf(out, "\nDescription:\n%s\n", t.Description)
			}
			if len(t.Deps) > 0 {
				fmt.Fprintln(out, "\nDepends on:")
				for _, d := range t.Deps {
					fmt.Fprintf(out, "  %s\n", d.DependsOn)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	return cmd
}

func newTaskReadyCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "ready",
		Short: "List ready tasks",
		Long:  "Lists pending tasks whose dependencies are all completed, highest priority first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			tasks, err := task.Ready(gormDB)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintln(out, "No ready tasks.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tPRI\tDESCRIPTION")
			for _, t := range tasks {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
					t.ID, t.Type, t.Priority, truncate(t.Description, 40))
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	return cmd
}

func newTaskAssignCmd() *cobra.Command {
	var (
		configPath string
		agentID    string
	)

	cmd := &cobra.Command{
		Use:   "assign <id>",
		Short: "Assign a task to an agent",
		Long:  "Claims a pending task for an agent. Fails quietly if another agent claimed it first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			applied, err := task.Assign(gormDB, args[0], agentID)
			if err != nil {
				return err
			}
			if !applied {
				fmt.Fprintf(cmd.OutOrStdout(), "Task %s was not pending; nothing assigned\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Assigned %s to %s\n", args[0], agentID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().StringVar(&agentID, "agent", "", "agent ID to assign to (required)")
	cmd.MarkFlagRequired("agent")
	return cmd
}

func newTaskCompleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			applied, err := task.MarkCompleted(gormDB, args[0])
			if err != nil {
				return err
			}
			if !applied {
				fmt.Fprintf(cmd.OutOrStdout(), "Task %s was not active; nothing changed\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	return cmd
}

func newTaskFailCmd() *cobra.Command {
	var (
		configPath string
		errMsg     string
	)

	cmd := &cobra.Command{
		Use:   "fail <id>",
		Short: "Mark a task failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			applied, err := task.MarkFailed(gormDB, args[0], errMsg)
			if err != nil {
				return err
			}
			if !applied {
				fmt.Fprintf(cmd.OutOrStdout(), "Task %s was already terminal; nothing changed\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Failed %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().StringVar(&errMsg, "error", "", "failure reason")
	return cmd
}

func newTaskRetryCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "retry <id>",
		Short: "Retry a failed task",
		Long:  "Returns a task to pending for another attempt, or fails it terminally when the retry ceiling is reached.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			result, err := task.Retry(gormDB, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch result {
			case task.Retried:
				fmt.Fprintf(out, "Task %s returned to pending\n", args[0])
			case task.RetryExhausted:
				fmt.Fprintf(out, "Task %s exhausted its retries and was failed\n", args[0])
			default:
				return fmt.Errorf("task not found: %s", args[0])
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	return cmd
}

func newTaskDepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dep",
		Short: "Manage task dependencies",
	}

	cmd.AddCommand(newTaskDepAddCmd())
	cmd.AddCommand(newTaskDepListCmd())
	cmd.AddCommand(newTaskDepRemoveCmd())
	return cmd
}

func newTaskDepAddCmd() *cobra.Command {
	var (
		configPath string
		dependsOn  string
	)

	cmd := &cobra.Command{
		Use:   "add <task-id>",
		Short: "Add a dependency",
		Long:  "Makes the task depend on another task. Cycles are rejected.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := task.AddDep(gormDB, args[0], dependsOn); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added dependency: %s depends on %s\n", args[0], dependsOn)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().StringVar(&dependsOn, "on", "", "task ID this task depends on (required)")
	cmd.MarkFlagRequired("on")
	return cmd
}

func newTaskDepListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list <task-id>",
		Short: "List task dependencies",
		Long:  "Shows what this task depends on and what depends on it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			blockers, dependents, err := task.ListDeps(gormDB, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(blockers) == 0 && len(dependents) == 0 {
				fmt.Fprintf(out, "No dependencies for %s\n", args[0])
				return nil
			}
			if len(blockers) > 0 {
				fmt.Fprintln(out, "Depends on:")
				for _, d := range blockers {
					fmt.Fprintf(out, "  %s\n", d.DependsOn)
				}
			}
			if len(dependents) > 0 {
				fmt.Fprintln(out, "Depended on by:")
				for _, d := range dependents {
					fmt.Fprintf(out, "  %s\n", d.TaskID)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	return cmd
}

func newTaskDepRemoveCmd() *cobra.Command {
	var (
		configPath string
		dependsOn  string
	)

	cmd := &cobra.Command{
		Use:   "remove <task-id>",
		Short: "Remove a dependency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := task.RemoveDep(gormDB, args[0], dependsOn); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed dependency: %s depends on %s\n", args[0], dependsOn)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().StringVar(&dependsOn, "on", "", "dependency to remove (required)")
	cmd.MarkFlagRequired("on")
	return cmd
}

func newTaskStatsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show task statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			counts, err := task.StatsByStatus(gormDB)
			if err != nil {
				return err
			}
			perf, err := task.Performance(gormDB)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STATUS\tCOUNT")
			for _, sc := range counts {
				fmt.Fprintf(w, "%s\t%d\n", sc.Status, sc.Count)
			}
			w.Flush()
			fmt.Fprintf(out, "\nCompleted: %d  Failed: %d  Retried: %d  Avg duration: %dms\n",
				perf.Completed, perf.Failed, perf.Retried, perf.AvgDurationMs)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	return cmd
}
