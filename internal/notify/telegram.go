// Package notify sends an optional Telegram alert when an install fails,
// so an operator watching a headless box finds out without polling the UI.
package notify

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier posts install-failure alerts to a single configured chat.
// A nil *Notifier (from New when no token is configured) is valid and
// every method on it is a silent no-op, so calls on it need no nil check.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *log.Logger
}

// New builds a Notifier from TELEGRAM_BOT_TOKEN / TELEGRAM_CHAT_ID. Returns
// nil, nil when no token is configured so the caller can wire it
// unconditionally.
func New(logger *log.Logger) (*Notifier, error) {
	token := strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	if token == "" {
		return nil, nil
	}
	chatRaw := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID"))
	chatID, err := strconv.ParseInt(chatRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID must be set and numeric when TELEGRAM_BOT_TOKEN is set: %w", err)
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	if logger == nil {
		logger = log.New(log.Writer(), "notify ", log.LstdFlags|log.LUTC)
	}
	return &Notifier{bot: bot, chatID: chatID, logger: logger}, nil
}

// NotifyInstallFailed sends a one-line alert naming the app and the error.
func (n *Notifier) NotifyInstallFailed(appID, message string) {
	if n == nil {
		return
	}
	text := fmt.Sprintf("\U0001F6A8 install failed: %s\n%s", appID, message)
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Printf("telegram send failed: %v", err)
	}
}
