package main

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier mirrors operational events (processed signals, activations, sweep
// expirations) to the operator's Telegram chat. Optional: without a token it
// is nil and every call is a no-op.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewNotifier(token string, chatID int64) *Notifier {
	if token == "" {
		log.Println("⚠️  TELEGRAM_BOT_TOKEN not found. Operator notifications disabled.")
		return nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Printf("⚠️  Failed to init Telegram Bot: %v", err)
		return nil
	}

	log.Printf("✅ Authorized on account %s", bot.Self.UserName)

	if chatID == 0 {
		log.Println("⚠️  TELEGRAM_CHAT_ID not set. Operator notifications disabled.")
		return nil
	}

	return &Notifier{bot: bot, chatID: chatID}
}

// Notify sends a message asynchronously. Fire and forget.
func (n *Notifier) Notify(msg string) {
	if n == nil || n.bot == nil || n.chatID == 0 {
		return
	}

	go func() {
		msgConfig := tgbotapi.NewMessage(n.chatID, msg)
		msgConfig.ParseMode = "Markdown"
		if _, err := n.bot.Send(msgConfig); err != nil {
			log.Printf("⚠️  Failed to send Telegram: %v", err)
		}
	}()
}

// NotifySignal summarizes a processed signal for the operator.
func (n *Notifier) NotifySignal(sig Signal, recipients int) {
	n.Notify(fmt.Sprintf("📈 *Signal %s*\n%s %s | Entry: %s | TP: %s | SL: %s\nDispatched to %d subscriber(s).",
		sig.ID, sig.Action, sig.Pair, sig.Entry, sig.TP, sig.SL, recipients))
}
