// Package notify sends session-complete notifications. The notifier is a
// no-op unless a bot token and chat id are configured, so training runs work
// unchanged without Telegram credentials.
package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/buurguees/bot-trading-v10-sub003/internal/models"
)

// Notifier posts session summaries to a Telegram chat.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// New builds a notifier. With an empty token or zero chat id it returns
// (nil, nil) and callers skip notification.
func New(token string, chatID int64) (*Notifier, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}
	return &Notifier{
		bot:    bot,
		chatID: chatID,
		logger: log.With().Str("component", "notify").Logger(),
	}, nil
}

// SessionComplete sends the headline numbers of a finished session.
func (n *Notifier) SessionComplete(s *models.SessionSummary) error {
	if n == nil {
		return nil
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("*Training session %s complete* (%s)\n\n", s.ID, s.Mode))
	b.WriteString(fmt.Sprintf("Symbols: %s\n", strings.Join(s.Symbols, ", ")))
	b.WriteString(fmt.Sprintf("Duration: %s\n", s.Duration))
	b.WriteString(fmt.Sprintf("Mean PnL: $%+.2f (%+.2f%%)\n", s.Aggregate.MeanPnL, s.Aggregate.MeanPnLPct))
	b.WriteString(fmt.Sprintf("Win Rate: %.2f%% over %d trades\n", s.Aggregate.WinRate, s.Aggregate.TotalTrades))
	b.WriteString(fmt.Sprintf("Max Drawdown: %.2f%%", s.Aggregate.MaxDrawdownPct))
	if s.Cycles > 1 {
		b.WriteString(fmt.Sprintf("\nCycles: %d", s.Cycles))
	}

	msg := tgbotapi.NewMessage(n.chatID, b.String())
	msg.ParseMode = "Markdown"
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	n.logger.Info().Str("session", s.ID).Msg("telegram notification sent")
	return nil
}
