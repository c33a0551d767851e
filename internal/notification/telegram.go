// Package notification delivers payment events to the operations chat.
package notification

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"carbooker/internal/models"
)

// sender is the slice of the bot API the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts settlement and failure notices to a manager chat.
// A nil bot or a zero chat id turns every notification into a no-op, so the
// service can run without Telegram configured.
type TelegramNotifier struct {
	bot    sender
	chatID int64
	logger *zerolog.Logger
}

func NewTelegramNotifier(token string, chatID int64, logger *zerolog.Logger) (*TelegramNotifier, error) {
	n := &TelegramNotifier{chatID: chatID, logger: logger}
	if token == "" || chatID == 0 {
		return n, nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	n.bot = bot
	logger.Info().Str("bot", bot.Self.UserName).Msg("telegram notifier enabled")
	return n, nil
}

func (n *TelegramNotifier) NotifyPaymentSettled(payment *models.Payment, order *models.Order) {
	message := fmt.Sprintf(`✅ Payment settled

💳 Payment: #%d (%s)
📦 Order: #%d
💰 Amount: %.2f %s
🔖 Transaction: %s`,
		payment.ID, payment.PaymentMethod,
		order.ID,
		payment.Amount, payment.Currency,
		payment.TransactionID)

	n.send(message)
}

func (n *TelegramNotifier) NotifyPaymentFailed(payment *models.Payment, reason string) {
	message := fmt.Sprintf(`❌ Payment failed

💳 Payment: #%d (%s)
📦 Order: #%d
💰 Amount: %.2f %s
💬 Reason: %s`,
		payment.ID, payment.PaymentMethod,
		payment.OrderID,
		payment.Amount, payment.Currency,
		reason)

	n.send(message)
}

func (n *TelegramNotifier) send(text string) {
	if n.bot == nil || n.chatID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error().Err(err).Int64("chat_id", n.chatID).Msg("failed to send telegram notification")
	}
}
