// Package bot runs the Telegram bot: command handling over long polling and
// broadcast of point events to subscribed chats.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrRecipientGone means the chat can no longer receive messages: the user
// blocked the bot or the chat was deleted.
var ErrRecipientGone = errors.New("recipient unreachable")

// Message is an outgoing chat message.
type Message struct {
	ChatID int64
	Text   string
	// LinkText and LinkURL add a single inline URL button when both are set.
	LinkText string
	LinkURL  string
}

// Sender delivers messages to Telegram.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Client is the Sender backed by the Bot API.
type Client struct {
	api    *tgbotapi.BotAPI
	logger *slog.Logger
}

func NewClient(api *tgbotapi.BotAPI, logger *slog.Logger) *Client {
	return &Client{api: api, logger: logger.With("component", "tg_client")}
}

func (c *Client) Send(_ context.Context, msg Message) error {
	cfg := tgbotapi.NewMessage(msg.ChatID, msg.Text)
	cfg.DisableWebPagePreview = true
	if msg.LinkText != "" && msg.LinkURL != "" {
		cfg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(msg.LinkText, msg.LinkURL)),
		)
	}

	if _, err := c.api.Send(cfg); err != nil {
		err = classify(err)
		c.logger.Warn("failed to send message", "chat_id", msg.ChatID, "error", err)
		return err
	}
	return nil
}

// SetCommands publishes the bot's command menu.
func (c *Client) SetCommands(cmds []Command) error {
	commands := make([]tgbotapi.BotCommand, 0, len(cmds))
	for _, cmd := range cmds {
		commands = append(commands, tgbotapi.BotCommand{Command: cmd.Name, Description: cmd.Description})
	}
	if _, err := c.api.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		return fmt.Errorf("setting bot commands: %w", err)
	}
	return nil
}

// classify marks API errors that mean the chat is gone for good.
func classify(err error) error {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	msg := strings.ToLower(apiErr.Message)
	if apiErr.Code == 403 || strings.Contains(msg, "chat not found") || strings.Contains(msg, "user is deactivated") {
		return fmt.Errorf("%w: %s", ErrRecipientGone, apiErr.Message)
	}
	return err
}
