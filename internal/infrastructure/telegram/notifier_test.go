package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"NewsRelay/internal/domain"
)

type sentMessage struct {
	to   string
	text string
	opts *tele.SendOptions
}

type fakeSender struct {
	sent []sentMessage
	err  error
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	msg := sentMessage{to: to.Recipient(), text: what.(string)}
	if len(opts) > 0 {
		msg.opts = opts[0].(*tele.SendOptions)
	}
	f.sent = append(f.sent, msg)
	return &tele.Message{}, nil
}

func TestNotifierSendUsesMarkdownAndPreviewFlag(t *testing.T) {
	t.Parallel()

	fs := &fakeSender{}
	n := NewNotifier(fs, 0)

	require.NoError(t, n.Send(context.Background(), domain.Message{ChannelID: "@news", Text: "📰 *hi*"}))
	require.NoError(t, n.Send(context.Background(), domain.Message{ChannelID: "-100200", Text: "💼 job", DisablePreview: true}))

	require.Len(t, fs.sent, 2)
	require.Equal(t, "@news", fs.sent[0].to)
	require.Equal(t, tele.ModeMarkdown, fs.sent[0].opts.ParseMode)
	require.False(t, fs.sent[0].opts.DisableWebPagePreview)
	require.Equal(t, "-100200", fs.sent[1].to)
	require.True(t, fs.sent[1].opts.DisableWebPagePreview)
}

func TestNotifierSplitsLongMessages(t *testing.T) {
	t.Parallel()

	fs := &fakeSender{}
	n := NewNotifier(fs, 0)
	line := strings.Repeat("а", 1000)
	text := strings.Join([]string{line, line, line, line, line}, "\n")

	require.NoError(t, n.Send(context.Background(), domain.Message{ChannelID: "@news", Text: text}))
	require.Len(t, fs.sent, 2)
	require.False(t, fs.sent[0].opts.DisableWebPagePreview)
	require.True(t, fs.sent[1].opts.DisableWebPagePreview)
	for _, m := range fs.sent {
		require.LessOrEqual(t, len([]rune(m.text)), telegramTextLimit)
	}
}

func TestNotifierErrors(t *testing.T) {
	t.Parallel()

	fs := &fakeSender{err: errors.New("chat not found")}
	n := NewNotifier(fs, 0)

	require.Error(t, n.Send(context.Background(), domain.Message{ChannelID: "@x", Text: "t"}))
	require.Error(t, n.Send(context.Background(), domain.Message{Text: "no channel"}))
	require.Error(t, n.Alert(context.Background(), "no owner"))
}

func TestNotifierAlertGoesToOwner(t *testing.T) {
	t.Parallel()

	fs := &fakeSender{}
	require.NoError(t, NewNotifier(fs, 4242).Alert(context.Background(), "jobs failed"))
	require.Equal(t, "4242", fs.sent[0].to)
	require.Empty(t, fs.sent[0].opts.ParseMode)
}

func TestSplitText(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"short"}, splitText("short", 10))
	require.Equal(t, []string{"aaaa\nbbbb", "cccc"}, splitText("aaaa\nbbbb\ncccc", 10))
	require.Equal(t, []string{"abcdefghij", "klm"}, splitText("abcdefghijklm", 10))
}
