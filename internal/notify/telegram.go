package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// TelegramChannel delivers notifications via a Telegram bot to a fixed set
// of chat IDs (the chat transport is an external collaborator; this is only
// the sink-side client).
type TelegramChannel struct {
	api     *tgbotapi.BotAPI
	chatIDs []int64
}

func NewTelegramChannel(botToken string, chatIDs []int64) (*TelegramChannel, error) {
	if botToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot api: %w", err)
	}
	log.Info().Str("bot_username", api.Self.UserName).Int("chat_count", len(chatIDs)).Msg("telegram notification channel initialized")
	return &TelegramChannel{api: api, chatIDs: chatIDs}, nil
}

func (t *TelegramChannel) Send(ctx context.Context, msg Message) error {
	if len(t.chatIDs) == 0 {
		log.Warn().Msg("no telegram chat ids configured, skipping notification")
		return nil
	}

	text := t.format(msg)
	var lastErr error
	successCount := 0

	for _, chatID := range t.chatIDs {
		out := tgbotapi.NewMessage(chatID, text)
		out.ParseMode = "Markdown"
		if _, err := t.api.Send(out); err != nil {
			log.Error().Err(err).Int64("chat_id", chatID).Str("title", msg.Title).Msg("failed to send telegram notification")
			lastErr = err
			continue
		}
		successCount++
	}

	if successCount == 0 && lastErr != nil {
		return fmt.Errorf("failed to deliver to any chat: %w", lastErr)
	}
	return nil
}

func (t *TelegramChannel) format(msg Message) string {
	emoji := "📢"
	switch msg.Severity {
	case SeverityCritical:
		emoji = "🚨"
	case SeverityWarning:
		emoji = "⚠️"
	case SeverityInfo:
		emoji = "ℹ️"
	}

	text := fmt.Sprintf("%s *%s*\n\n%s", emoji, msg.Title, msg.Body)
	for k, v := range msg.Metadata {
		text += fmt.Sprintf("\n• %s: `%v`", k, v)
	}
	text += fmt.Sprintf("\n\n_%s_", msg.Timestamp.Format("2006-01-02 15:04:05"))
	return text
}
