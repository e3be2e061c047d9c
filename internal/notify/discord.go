package notify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// discordSession abstracts the discordgo.Session methods we use, enabling
// test mocks.
type discordSession interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts escalation events to a Discord channel.
type Discord struct {
	session   discordSession
	channelID string
}

// DiscordOpts holds parameters for creating a Discord notifier.
type DiscordOpts struct {
	Token     string // bot token
	ChannelID string
	// For testing: inject a mock session instead of the real gateway.
	Session discordSession
}

// NewDiscord creates a Discord notifier.
func NewDiscord(opts DiscordOpts) (*Discord, error) {
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("discord: channel ID is required")
	}
	session := opts.Session
	if session == nil {
		if opts.Token == "" {
			return nil, fmt.Errorf("discord: token is required")
		}
		dg, err := discordgo.New("Bot " + opts.Token)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		session = dg
	}
	return &Discord{session: session, channelID: opts.ChannelID}, nil
}

// Name identifies this notifier in logs.
func (d *Discord) Name() string { return "discord" }

// Notify posts the event as an embed with a severity color.
func (d *Discord) Notify(event Event) error {
	embed := &discordgo.MessageEmbed{
		Title:       event.Title,
		Description: event.Body,
		Color:       hexColor(severityColor(event.Severity)),
	}
	if _, err := d.session.ChannelMessageSendEmbed(d.channelID, embed); err != nil {
		return fmt.Errorf("discord: send embed: %w", err)
	}
	return nil
}

// hexColor converts a "#rrggbb" color hint to Discord's integer form.
func hexColor(hex string) int {
	v, err := strconv.ParseInt(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil {
		return 0
	}
	return int(v)
}
