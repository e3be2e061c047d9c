package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/corvid-labs/waggle/internal/consensus"
	"github.com/spf13/cobra"
)

func newDecisionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decision",
		Short: "Consensus ledger commands",
	}

	cmd.AddCommand(newDecisionRecordCmd())
	cmd.AddCommand(newDecisionListCmd())
	cmd.AddCommand(newDecisionShowCmd())
	return cmd
}

func newDecisionRecordCmd() *cobra.Command {
	var (
		configPath string
		swarmID    string
		topic      string
		decision   string
		votesFor   int
		against    int
		abstain    int
		algorithm  string
		confidence float64
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a consensus decision",
		Long:  "Appends a decision to the ledger. Decisions are immutable once recorded.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			d, err := consensus.Record(gormDB, consensus.RecordOpts{
				SwarmID:  swarmID,
				Topic:    topic,
				Decision: decision,
				Votes: consensus.VoteSummary{
					For:     votesFor,
					Against: against,
					Abstain: abstain,
				},
				Algorithm:  algorithm,
				Confidence: confidence,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded decision %s\n", d.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().StringVar(&swarmID, "swarm", "", "owning swarm or objective scope")
	cmd.Flags().StringVar(&topic, "topic", "", "what was decided on (required)")
	cmd.Flags().StringVar(&decision, "decision", "", "the chosen outcome (required)")
	cmd.Flags().IntVar(&votesFor, "for", 0, "votes in favor")
	cmd.Flags().IntVar(&against, "against", 0, "votes against")
	cmd.Flags().IntVar(&abstain, "abstain", 0, "abstentions")
	cmd.Flags().StringVar(&algorithm, "algorithm", "", "tallying algorithm (majority, weighted, byzantine)")
	cmd.Flags().Float64Var(&confidence, "confidence", 1.0, "confidence in [0,1]")
	cmd.MarkFlagRequired("topic")
	cmd.MarkFlagRequired("decision")
	return cmd
}

func newDecisionListCmd() *cobra.Command {
	var (
		configPath string
		swarmID    string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			decisions, err := consensus.List(gormDB, swarmID, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(decisions) == 0 {
				fmt.Fprintln(out, "No decisions found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTOPIC\tDECISION\tALGO\tCONF")
			for _, d := range decisions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\n",
					d.ID, truncate(d.Topic, 30), truncate(d.Decision, 30), d.Algorithm, d.Confidence)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().StringVar(&swarmID, "swarm", "", "filter by swarm scope")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum decisions to list")
	return cmd
}

func newDecisionShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show decision details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			d, err := consensus.Get(gormDB, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:          %s\n", d.ID)
			if d.SwarmID != "" {
				fmt.Fprintf(out, "Swarm:       %s\n", d.SwarmID)
			}
			fmt.Fprintf(out, "Topic:       %s\n", d.Topic)
			fmt.Fprintf(out, "Decision:    %s\n", d.Decision)
			fmt.Fprintf(out, "Algorithm:   %s\n", d.Algorithm)
			fmt.Fprintf(out, "Confidence:  %.2f\n", d.Confidence)
			fmt.Fprintf(out, "Recorded:    %s\n", d.CreatedAt.Format("2006-01-02 15:04:05"))
			if votes, err := consensus.Votes(d); err == nil {
				fmt.Fprintf(out, "Votes:       %d for, %d against, %d abstained\n",
					votes.For, votes.Against, votes.Abstain)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	return cmd
}
