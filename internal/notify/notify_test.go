package notify

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	slackapi "github.com/slack-go/slack"
)

type fakeSlack struct {
	channels []string
	err      error
}

func (f *fakeSlack) PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error) {
	f.channels = append(f.channels, channelID)
	return channelID, "", f.err
}

type fakeDiscord struct {
	embeds []*discordgo.MessageEmbed
	err    error
}

func (f *fakeDiscord) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.embeds = append(f.embeds, embed)
	return nil, f.err
}

func TestNewSlack_Validation(t *testing.T) {
	if _, err := NewSlack(SlackOpts{Token: "xoxb-1"}); err == nil {
		t.Error("expected error for missing channel")
	}
	if _, err := NewSlack(SlackOpts{ChannelID: "C123"}); err == nil {
		t.Error("expected error for missing token")
	}
	if _, err := NewSlack(SlackOpts{ChannelID: "C123", Client: &fakeSlack{}}); err != nil {
		t.Errorf("NewSlack with injected client: %v", err)
	}
}

func TestSlackNotify(t *testing.T) {
	fake := &fakeSlack{}
	s, err := NewSlack(SlackOpts{ChannelID: "C123", Client: fake})
	if err != nil {
		t.Fatalf("NewSlack: %v", err)
	}

	err = s.Notify(Event{Title: "agent stale", Severity: SeverityWarning, Time: time.Now()})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(fake.channels) != 1 || fake.channels[0] != "C123" {
		t.Errorf("channels = %v", fake.channels)
	}
}

func TestSlackNotify_Error(t *testing.T) {
	fake := &fakeSlack{err: fmt.Errorf("channel_not_found")}
	s, _ := NewSlack(SlackOpts{ChannelID: "C123", Client: fake})
	if err := s.Notify(Event{Title: "x"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewDiscord_Validation(t *testing.T) {
	if _, err := NewDiscord(DiscordOpts{Token: "tok"}); err == nil {
		t.Error("expected error for missing channel")
	}
	if _, err := NewDiscord(DiscordOpts{ChannelID: "123"}); err == nil {
		t.Error("expected error for missing token")
	}
}

func TestDiscordNotify_EmbedColor(t *testing.T) {
	fake := &fakeDiscord{}
	d, err := NewDiscord(DiscordOpts{ChannelID: "123", Session: fake})
	if err != nil {
		t.Fatalf("NewDiscord: %v", err)
	}

	if err := d.Notify(Event{Title: "retry exhausted", Severity: SeverityError}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(fake.embeds) != 1 {
		t.Fatalf("got %d embeds", len(fake.embeds))
	}
	if fake.embeds[0].Color != 0xd00000 {
		t.Errorf("Color = %#x, want 0xd00000", fake.embeds[0].Color)
	}
}

func TestFanout_BestEffort(t *testing.T) {
	failing := &failingNotifier{}
	fake := &fakeSlack{}
	s, _ := NewSlack(SlackOpts{ChannelID: "C123", Client: fake})

	f := NewFanout(failing, s)
	if f.Len() != 2 {
		t.Errorf("Len = %d", f.Len())
	}

	err := f.Notify(Event{Title: "x"})
	if err == nil {
		t.Error("expected last error surfaced")
	}
	// The failing notifier does not block delivery to the healthy one.
	if len(fake.channels) != 1 {
		t.Errorf("healthy notifier got %d events, want 1", len(fake.channels))
	}
}

type failingNotifier struct{}

func (f *failingNotifier) Notify(Event) error { return fmt.Errorf("down") }
func (f *failingNotifier) Name() string       { return "failing" }

func TestFormatText(t *testing.T) {
	got := FormatText(Event{Title: "agent stale", Body: "no activity", Severity: SeverityWarning})
	if !strings.HasPrefix(got, "[WARN] agent stale") {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(got, "no activity") {
		t.Errorf("got %q", got)
	}

	got = FormatText(Event{Title: "sweep done", Severity: SeverityInfo})
	if got != "sweep done" {
		t.Errorf("got %q", got)
	}
}

func TestSeverityColor(t *testing.T) {
	if severityColor(SeverityError) != "#d00000" {
		t.Error("error color")
	}
	if severityColor(SeverityWarning) != "#e8a317" {
		t.Error("warning color")
	}
	if severityColor("anything") != "#36a64f" {
		t.Error("default color")
	}
}
