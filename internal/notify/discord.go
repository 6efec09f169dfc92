package notify

import (
	"context"
	"fmt"
	"net/http"
)

// DiscordSender delivers alerts through a Discord webhook.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a sender for the given webhook URL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     defaultHTTPClient(),
	}
}

// Send posts to the webhook with the title rendered in bold.
func (d *DiscordSender) Send(ctx context.Context, title, message string) error {
	payload := map[string]string{
		"content": fmt.Sprintf("**%s**\n%s", title, message),
	}
	return postJSON(ctx, d.client, "discord", d.webhookURL, payload)
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}
