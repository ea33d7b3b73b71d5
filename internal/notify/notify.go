package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Telegram rejects messages above 4096 characters; leave room for the
// part footer.
const maxMessageLen = 4000

// Notifier delivers plain-text reports.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type botAPISender struct{ api *tgbotapi.BotAPI }

func (s botAPISender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return s.api.Send(c)
}

// Telegram sends reports to a single admin chat.
type Telegram struct {
	sender sender
	chatID int64
}

// NewTelegram authorizes the bot token against the Bot API.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to init telegram bot")
	}
	log.Info().Str("bot", api.Self.UserName).Int64("chat_id", chatID).Msg("telegram notifier ready")
	return &Telegram{sender: botAPISender{api: api}, chatID: chatID}, nil
}

func (t *Telegram) Notify(ctx context.Context, text string) error {
	parts := splitMessage(text, maxMessageLen)
	for i, part := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(parts) > 1 {
			part = fmt.Sprintf("%s\n\n(%d/%d)", part, i+1, len(parts))
		}
		if _, err := t.sender.Send(tgbotapi.NewMessage(t.chatID, part)); err != nil {
			return errors.Wrapf(err, "send report part %d", i+1)
		}
	}
	return nil
}

// Log writes reports to the application log when no chat is configured.
type Log struct{}

func (Log) Notify(_ context.Context, text string) error {
	log.Info().Str("report", text).Msg("daily report")
	return nil
}

// splitMessage cuts text into chunks of at most maxLen bytes, preferring
// a line break in the second half of each chunk.
func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var parts []string
	remaining := text
	for len(remaining) > maxLen {
		breakPoint := maxLen
		for i := maxLen - 1; i > maxLen/2; i-- {
			if remaining[i] == '\n' {
				breakPoint = i + 1
				break
			}
		}
		parts = append(parts, remaining[:breakPoint])
		remaining = remaining[breakPoint:]
	}
	if len(remaining) > 0 {
		parts = append(parts, remaining)
	}
	return parts
}
