package notify

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"snoowatch/internal/watch"
)

// Telegram sends plain-text notifications to a single chat. It is a
// send-only bot: no poller, no handlers.
type Telegram struct {
	bot    sender
	chatID int64
}

// sender is the subset of *tele.Bot we use, split out so tests can fake it.
type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if chatID == 0 {
		return nil, errors.New("telegram chat id is required")
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Client: &http.Client{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, ev Event) error {
	_ = ctx // telebot owns its own request timeout
	_, err := t.bot.Send(tele.ChatID(t.chatID), renderTelegramText(ev))
	return err
}

func renderTelegramText(ev Event) string {
	author := DisplayAuthor(ev.Target)

	if ev.Kind == EventAvailability {
		if ev.Available {
			return author + " is now available\n" + UserURL(ev.Target.Username)
		}
		return author + " is no longer available\n" + UserURL(ev.Target.Username)
	}

	it := ev.Item
	var b strings.Builder
	switch it.Kind {
	case watch.KindPost:
		b.WriteString("New post by " + author + " in r/" + it.Community + "\n")
		if it.Title != "" {
			b.WriteString(it.Title + "\n")
		}
	case watch.KindComment:
		b.WriteString("New comment by " + author + " in r/" + it.Community + "\n")
	}
	b.WriteString(ItemURL(it))
	return b.String()
}
