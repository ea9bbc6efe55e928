package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

const telegramTextLimit = 4000

type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// chatRecipient addresses a chat by numeric id or @username.
type chatRecipient string

func (r chatRecipient) Recipient() string { return string(r) }

// Notifier sends channel posts and owner alerts through the bot API.
type Notifier struct {
	bot     sender
	ownerID int64
}

var (
	_ ports.Messenger = (*Notifier)(nil)
	_ ports.Alerter   = (*Notifier)(nil)
)

// NewNotifier wires a bot; ownerID 0 disables alerts.
func NewNotifier(bot sender, ownerID int64) *Notifier {
	return &Notifier{bot: bot, ownerID: ownerID}
}

// Send posts a Markdown message. Long texts go out as several messages; only the first may show a preview.
func (n *Notifier) Send(ctx context.Context, msg domain.Message) error {
	if n.bot == nil || strings.TrimSpace(msg.ChannelID) == "" {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	to := chatRecipient(strings.TrimSpace(msg.ChannelID))
	for i, chunk := range splitText(msg.Text, telegramTextLimit) {
		if err := ctx.Err(); err != nil {
			return err
		}
		opts := &tele.SendOptions{
			ParseMode:             tele.ModeMarkdown,
			DisableWebPagePreview: msg.DisablePreview || i > 0,
		}
		if _, err := n.bot.Send(to, chunk, opts); err != nil {
			return fmt.Errorf("send to %s: %w", msg.ChannelID, err)
		}
	}
	return nil
}

// Alert sends plain text to the owner's private chat.
func (n *Notifier) Alert(ctx context.Context, text string) error {
	if n.ownerID == 0 {
		return errors.New("owner id is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	to := chatRecipient(strconv.FormatInt(n.ownerID, 10))
	if _, err := n.bot.Send(to, text, &tele.SendOptions{DisableWebPagePreview: true}); err != nil {
		return fmt.Errorf("alert owner: %w", err)
	}
	return nil
}

// splitText cuts s into chunks of at most limit runes, preferring newline boundaries.
func splitText(s string, limit int) []string {
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := start + limit
		if end > len(rs) {
			end = len(rs)
		}
		if end < len(rs) {
			for i := end - 1; i > start+limit/3; i-- {
				if rs[i] == '\n' {
					end = i + 1
					break
				}
			}
		}

		chunk := strings.TrimRight(string(rs[start:end]), "\n")
		if chunk != "" {
			out = append(out, chunk)
		}

		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}
