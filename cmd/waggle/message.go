package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/corvid-labs/waggle/internal/messaging"
	"github.com/corvid-labs/waggle/internal/models"
	"github.com/spf13/cobra"
)

func newMessageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Message bus commands",
	}

	cmd.AddCommand(newMessagePublishCmd())
	cmd.AddCommand(newMessageListCmd())
	cmd.AddCommand(newMessageShowCmd())
	cmd.AddCommand(newMessageInboxCmd())
	cmd.AddCommand(newMessageAckCmd())
	cmd.AddCommand(newMessageDeliveryCmd())
	cmd.AddCommand(newMessageCleanupCmd())
	cmd.AddCommand(newMessageStatsCmd())
	return cmd
}

func newMessagePublishCmd() *cobra.Command {
	var (
		configPath    string
		msgType       string
		sender        string
		receivers     []string
		content       string
		contentType   string
		priority      string
		reliability   string
		correlationID string
		replyTo       string
		ttlMs         int64
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a message",
		Long:  "Publishes a message to one or more receiving agents.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			msg, err := messaging.Publish(gormDB, messaging.PublishOpts{
				Type:          msgType,
				Sender:        sender,
				Receivers:     receivers,
				Content:       content,
				ContentType:   contentType,
				Priority:      priority,
				Reliability:   reliability,
				CorrelationID: correlationID,
				ReplyTo:       replyTo,
				TTLMs:         ttlMs,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published message %s to %d receiver(s)\n", msg.ID, len(receivers))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().StringVar(&msgType, "type", "", "message type (required)")
	cmd.Flags().StringVar(&sender, "sender", "", "sending agent ID (required)")
	cmd.Flags().StringSliceVar(&receivers, "to", nil, "receiving agent ID (repeatable, required)")
	cmd.Flags().StringVar(&content, "content", "", "message payload")
	cmd.Flags().StringVar(&contentType, "content-type", "", "payload content type")
	cmd.Flags().StringVar(&priority, "priority", "", "priority (low, normal, high, critical)")
	cmd.Flags().StringVar(&reliability, "reliability", "", "delivery mode (best_effort, at_least_once, exactly_once)")
	cmd.Flags().StringVar(&correlationID, "correlation", "", "correlation ID for request/reply chains")
	cmd.Flags().StringVar(&replyTo, "reply-to", "", "message ID this replies to")
	cmd.Flags().Int64Var(&ttlMs, "ttl-ms", 0, "time to live in milliseconds (0 = no expiry)")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("sender")
	cmd.MarkFlagRequired("to")
	return cmd
}

func newMessageListCmd() *cobra.Command {
	var (
		configPath    string
		sender        string
		receiver      string
		msgType       string
		correlationID string
		expired       bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List messages",
		Long:  "Lists messages by sender, receiver, type, or correlation ID.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			var msgs []models.Message
			switch {
			case expired:
				msgs, err = messaging.FindExpired(gormDB)
			case sender != "":
				msgs, err = messaging.ListBySender(gormDB, sender)
			case receiver != "":
				msgs, err = messaging.ListByReceiver(gormDB, receiver)
			case msgType != "":
				msgs, err = messaging.ListByType(gormDB, msgType)
			case correlationID != "":
				msgs, err = messaging.ListByCorrelation(gormDB, correlationID)
			default:
				return fmt.Errorf("one of --sender, --receiver, --type, --correlation, or --expired is required")
			}
			if err != nil {
				return err
			}

			printMessageTable(cmd, msgs)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().StringVar(&sender, "sender", "", "filter by sender")
	cmd.Flags().StringVar(&receiver, "receiver", "", "filter by receiver")
	cmd.Flags().StringVar(&msgType, "type", "", "filter by type")
	cmd.Flags().StringVar(&correlationID, "correlation", "", "filter by correlation ID")
	cmd.Flags().BoolVar(&expired, "expired", false, "list expired messages")
	return cmd
}

func printMessageTable(cmd *cobra.Command, msgs []models.Message) {
	out := cmd.OutOrStdout()
	if len(msgs) == 0 {
		fmt.Fprintln(out, "No messages found.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSENDER\tPRI\tCREATED")
	for _, m := range msgs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			m.ID, truncate(m.Type, 20), m.Sender, m.Priority,
			m.CreatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()
}

func newMessageShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show message details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			m, err := messaging.Get(gormDB, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:          %s\n", m.ID)
			fmt.Fprintf(out, "Type:        %s\n", m.Type)
			fmt.Fprintf(out, "Sender:      %s\n", m.Sender)
			fmt.Fprintf(out, "Priority:    %s\n", m.Priority)
			fmt.Fprintf(out, "Reliability: %s\n", m.Reliability)
			fmt.Fprintf(out, "Size:        %d bytes\n", m.SizeBytes)
			if m.CorrelationID != "" {
				fmt.Fprintf(out, "Correlation: %s\n", m.CorrelationID)
			}
			if m.ReplyTo != "" {
				fmt.Fprintf(out, "Reply to:    %s\n", m.ReplyTo)
			}
			fmt.Fprintf(out, "Created:     %s\n", m.CreatedAt.Format("2006-01-02 15:04:05"))
			if m.ExpiresAt != nil {
				fmt.Fprintf(out, "Expires:     %s\n", m.ExpiresAt.Format("2006-01-02 15:04:05"))
			}
			if len(m.Receivers) > 0 {
				fmt.Fprintln(out, "\nReceivers:")
				for _, r := range m.Receivers {
					fmt.Fprintf(out, "  %s\n", r.AgentID)
				}
			}
			if len(m.Acks) > 0 {
				fmt.Fprintln(out, "\nAcks:")
				for _, a := range m.Acks {
					fmt.Fprintf(out, "  %s %s at %s\n", a.AgentID, a.Status,
						a.AckedAt.Format("2006-01-02 15:04:05"))
				}
			}
			if m.Content != "" {
				fmt.Fprintf(out, "\nContent:\n%s\n", m.Content)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	return cmd
}

func newMessageInboxCmd() *cobra.Command {
	var (
		configPath string
		agentID    string
	)

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List unacknowledged messages for an agent",
		Long:  "Lists unexpired messages addressed to an agent that it has not acknowledged, most urgent first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			msgs, err := messaging.FindUnacknowledged(gormDB, agentID)
			if err != nil {
				return err
			}
			printMessageTable(cmd, msgs)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().StringVar(&agentID, "agent", "", "agent ID (required)")
	cmd.MarkFlagRequired("agent")
	return cmd
}

func newMessageAckCmd() *cobra.Command {
	var (
		configPath string
		agentID    string
		reject     bool
	)

	cmd := &cobra.Command{
		Use:   "ack <id>",
		Short: "Acknowledge a message",
		Long:  "Records an agent's acknowledgment. Repeat acks replace the earlier one.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			status := models.AckAccepted
			if reject {
				status = models.AckRejected
			}
			applied, err := messaging.Acknowledge(gormDB, args[0], agentID, status)
			if err != nil {
				return err
			}
			if !applied {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is not a receiver of %s; nothing recorded\n", agentID, args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s by %s for %s\n", status, agentID, args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().StringVar(&agentID, "agent", "", "acknowledging agent ID (required)")
	cmd.Flags().BoolVar(&reject, "reject", false, "record a rejection instead of an acceptance")
	cmd.MarkFlagRequired("agent")
	return cmd
}

func newMessageDeliveryCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "delivery <id>",
		Short: "Show delivery status of a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			status, err := messaging.Delivery(gormDB, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Receivers:     %d\n", status.Receivers)
			fmt.Fprintf(out, "Acknowledged:  %d\n", status.Acknowledged)
			fmt.Fprintf(out, "Rejected:      %d\n", status.Rejected)
			fmt.Fprintf(out, "Pending:       %d\n", status.Pending)
			fmt.Fprintf(out, "Delivery rate: %.1f%%\n", status.DeliveryRate)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	return cmd
}

func newMessageCleanupCmd() *cobra.Command {
	var (
		configPath string
		days       int
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired and old messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			expired, err := messaging.CleanupExpired(gormDB)
			if err != nil {
				return err
			}
			var old int64
			if days > 0 {
				old, err = messaging.CleanupOld(gormDB, days)
				if err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expired and %d old message(s)\n", expired, old)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	cmd.Flags().IntVar(&days, "days", 0, "also delete messages older than this many days")
	return cmd
}

func newMessageStatsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show message bus statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			stats, err := messaging.ComputeStats(gormDB)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total:          %d\n", stats.Total)
			fmt.Fprintf(out, "Last 24h:       %d\n", stats.Last24h)
			fmt.Fprintf(out, "Avg size:       %d bytes\n", stats.AvgSizeBytes)
			fmt.Fprintf(out, "Delivery rate:  %.1f%%\n", stats.AvgDeliveryRate)
			if len(stats.ByType) > 0 {
				fmt.Fprintln(out, "By type:")
				for k, v := range stats.ByType {
					fmt.Fprintf(out, "  %-20s %d\n", k, v)
				}
			}
			if len(stats.ByPriority) > 0 {
				fmt.Fprintln(out, "By priority:")
				for k, v := range stats.ByPriority {
					fmt.Fprintf(out, "  %-20s %d\n", k, v)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "waggle.yaml", "path to Waggle config file")
	return cmd
}
