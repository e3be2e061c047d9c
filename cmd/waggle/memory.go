package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/corvid-labs/waggle/internal/memory"
	"github.com/corvid-labs/waggle/internal/models"
	"github.com/spf13/cobra"
)

func newMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Collective memory commands",
	}

	cmd.AddCommand(newMemoryStoreCmd())
	cmd.AddCommand(newMemorySearchCmd())
	cmd.AddCommand(newMemoryShowCmd())
	cmd.AddCommand(newMemoryRelatedCmd())
	cmd.AddCommand(newMemoryForgetCmd())
	return cmd
}

func newMemoryStoreCmd() *cobra.Command {
	var (
		configPath  string
		agentID     string
		kind        string
		content     string
		taskID      string
		objectiveID string
		tags        []string
		priority    int
		visibility  string
	)

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Store a memory entry",
		Long:  "Stores a memory entry owned by an agent. Kind and owner are immutable afterward.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			e, err := memory.Create(gormDB, memory.CreateOpts{
				AgentID:     agentID,
				Kind:        kind,
				Content:     content,
				TaskID:      taskID,
				ObjectiveID: objectiveID,
				Tags:        tags,
				Priority:    priority,
				Visibility:  visibility,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored entry %s\n", e.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().StringVar(&agentID, "agent", "", "owning agent ID (required)")
	cmd.Flags().StringVar(&kind, "kind", "", "entry kind (knowledge, result, state, communication, error)")
	cmd.Flags().StringVar(&content, "content", "", "entry content (required)")
	cmd.Flags().StringVar(&taskID, "task", "", "related task ID")
	cmd.Flags().StringVar(&objectiveID, "objective", "", "related objective ID")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().IntVar(&priority, "priority", 0, "retention priority")
	cmd.Flags().StringVar(&visibility, "visibility", "", "visibility (private, team, public)")
	cmd.MarkFlagRequired("agent")
	cmd.MarkFlagRequired("kind")
	cmd.MarkFlagRequired("content")
	return cmd
}

func newMemorySearchCmd() *cobra.Command {
	var (
		configPath string
		query      string
		agentID    string
		kind       string
		visibility string
		tags       []string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search memory entries",
		Long:  "Searches entries by filters, or by relevance-ranked text match when --query is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			filters := memory.Filters{
				AgentID:    agentID,
				Kind:       kind,
				Visibility: visibility,
				Tags:       tags,
				Limit:      limit,
			}

			var entries []models.MemoryEntry
			if query != "" {
				entries, err = memory.SearchText(gormDB, query, filters)
			} else {
				entries, err = memory.Search(gormDB, filters)
			}
			if err != nil {
				return err
			}

			printMemoryTable(cmd, entries)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().StringVarP(&query, "query", "q", "", "text query for relevance ranking")
	cmd.Flags().StringVar(&agentID, "agent", "", "filter by owning agent")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by kind")
	cmd.Flags().StringVar(&visibility, "visibility", "", "filter by visibility")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "filter by tag (repeatable, any match)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries to return")
	return cmd
}

func printMemoryTable(cmd *cobra.Command, entries []models.MemoryEntry) {
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No entries found.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tAGENT\tKIND\tVIS\tCONTENT")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.AgentID, e.Kind, e.Visibility, truncate(e.Content, 50))
	}
	w.Flush()
}

func newMemoryShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a memory entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			e, err := memory.Get(gormDB, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:          %s\n", e.ID)
			fmt.Fprintf(out, "Agent:       %s\n", e.AgentID)
			fmt.Fprintf(out, "Kind:        %s\n", e.Kind)
			fmt.Fprintf(out, "Visibility:  %s\n", e.Visibility)
			fmt.Fprintf(out, "Priority:    %d\n", e.Priority)
			if e.TaskID != "" {
				fmt.Fprintf(out, "Task:        %s\n", e.TaskID)
			}
			if e.ObjectiveID != "" {
				fmt.Fprintf(out, "Objective:   %s\n", e.ObjectiveID)
			}
			if tags, err := memory.Tags(e); err == nil && len(tags) > 0 {
				fmt.Fprintf(out, "Tags:        %s\n", strings.Join(tags, ", "))
			}
			fmt.Fprintf(out, "Created:     %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "\n%s\n", e.Content)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	return cmd
}

func newMemoryRelatedCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "related <id>",
		Short: "Find entries related to one entry",
		Long:  "Finds entries sharing the same task, objective, or tags, closest first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			entries, err := memory.Related(gormDB, args[0], limit)
			if err != nil {
				return err
			}
			printMemoryTable(cmd, entries)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum entries to return")
	return cmd
}

func newMemoryForgetCmd() *cobra.Command {
	var (
		configPath string
		agentID    string
	)

	cmd := &cobra.Command{
		Use:   "forget [id]",
		Short: "Delete memory entries",
		Long:  "Deletes one entry by ID, or every entry owned by an agent with --agent.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if agentID != "" {
				removed, err := memory.DeleteByAgent(gormDB, agentID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entry(ies) owned by %s\n", removed, agentID)
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("an entry ID or --agent is required")
			}
			if err := memory.Delete(gormDB, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted entry %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().StringVar(&agentID, "agent", "", "delete all entries owned by this agent")
	return cmd
}
