package notify

import (
	"context"
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// TelegramSink sends plan summaries to a single chat. Send-only: the bot
// runs without a poller and never consumes updates.
type TelegramSink struct {
	bot  *tele.Bot
	chat *tele.Chat
}

func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if chatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	b, err := tele.NewBot(tele.Settings{Token: token})
	if err != nil {
		return nil, err
	}
	return &TelegramSink{bot: b, chat: &tele.Chat{ID: chatID}}, nil
}

func (t *TelegramSink) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.bot.Send(t.chat, text)
	return err
}
