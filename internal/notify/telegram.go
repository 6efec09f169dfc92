package notify

import (
	"context"
	"fmt"
	"net/http"
)

// TelegramSender delivers alerts through the Telegram Bot API.
type TelegramSender struct {
	token  string
	chatID string
	client *http.Client
}

// NewTelegramSender creates a sender for the given bot token and chat ID.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		token:  token,
		chatID: chatID,
		client: defaultHTTPClient(),
	}
}

// Send posts to the sendMessage API with the title rendered in bold.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)

	payload := map[string]string{
		"chat_id":    t.chatID,
		"text":       fmt.Sprintf("*%s*\n%s", title, message),
		"parse_mode": "Markdown",
	}
	return postJSON(ctx, t.client, "telegram", url, payload)
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}
