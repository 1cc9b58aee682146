package discord

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/calder/ticketyard/internal/notify"
)

type mockSession struct {
	channels []string
	messages []*discordgo.MessageSend
	err      error
	closed   bool
}

func (m *mockSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.channels = append(m.channels, channelID)
	m.messages = append(m.messages, data)
	return &discordgo.Message{}, m.err
}

func (m *mockSession) Close() error {
	m.closed = true
	return nil
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Opts{ChannelID: "123"}); err == nil {
		t.Error("missing token should fail")
	}
	if _, err := New(Opts{BotToken: "tok"}); err == nil {
		t.Error("missing channel should fail")
	}
	if _, err := New(Opts{Session: &mockSession{}, ChannelID: "123"}); err != nil {
		t.Errorf("injected session should not need a token: %v", err)
	}
}

func TestSendBuildsEmbed(t *testing.T) {
	mock := &mockSession{}
	n, err := New(Opts{Session: mock, ChannelID: "123"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	evt := notify.AssignmentEvent("PROJ-1", "alice", "Strong skills match", 90)
	if err := n.Send(context.Background(), evt); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(mock.messages) != 1 || len(mock.messages[0].Embeds) != 1 {
		t.Fatalf("messages = %d, want one embed message", len(mock.messages))
	}
	embed := mock.messages[0].Embeds[0]
	if embed.Title != evt.Title || embed.Color != 0x36a64f {
		t.Errorf("embed = (%q, %#x)", embed.Title, embed.Color)
	}
	if len(embed.Fields) != 2 || !embed.Fields[0].Inline {
		t.Errorf("fields = %+v", embed.Fields)
	}
}

func TestSendSurfacesErrors(t *testing.T) {
	mock := &mockSession{err: errors.New("unknown channel")}
	n, _ := New(Opts{Session: mock, ChannelID: "123"})

	if err := n.Send(context.Background(), notify.QueuedEvent("PROJ-1", "no capacity")); err == nil {
		t.Fatal("expected an error")
	}
	// Plain API errors must not be retried.
	if len(mock.channels) != 1 {
		t.Errorf("got %d attempts, want 1", len(mock.channels))
	}
}

func TestCloseShutsDownSession(t *testing.T) {
	mock := &mockSession{}
	n, _ := New(Opts{Session: mock, ChannelID: "123"})
	if err := n.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !mock.closed {
		t.Error("session not closed")
	}
}

func TestRetryOnRateLimitHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retryOnRateLimit(ctx, func() error {
		calls++
		return &discordgo.RESTError{Response: &http.Response{StatusCode: 429}}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 before giving up", calls)
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"#36a64f", 0x36a64f},
		{"36a64f", 0x36a64f},
		{"#F2C744", 0xf2c744},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parseHexColor(tt.in); got != tt.want {
			t.Errorf("parseHexColor(%q) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}
