package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"polymarket-trader/internal/config"
)

// TelegramNotifier sends each notification through a bot chat.
type TelegramNotifier struct {
	botToken string
	chatID   string
	apiBase  string
	enabled  bool
	client   *http.Client
}

// NewTelegramNotifier builds the Telegram channel. Both the bot token
// and the chat ID are required.
func NewTelegramNotifier(cfg config.TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		apiBase:  "https://api.telegram.org",
		enabled:  cfg.Enabled && cfg.BotToken != "" && cfg.ChatID != "",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

func (t *TelegramNotifier) IsEnabled() bool { return t.enabled }

// Send delivers the notification with the title in bold. HTML parse
// mode needs the entity characters escaped first.
func (t *TelegramNotifier) Send(ctx context.Context, n Notification) error {
	if !t.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       fmt.Sprintf("<b>%s</b>\n\n%s", escapeHTML(n.Title), escapeHTML(n.Message)),
		"parse_mode": "HTML",
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)
	if err := postJSON(ctx, t.client, url, "", payload); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escapeHTML escapes the characters Telegram's HTML mode treats as
// markup.
func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
