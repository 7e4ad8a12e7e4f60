package bot

import (
	"context"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Update is the part of a Telegram update the command handlers need.
type Update struct {
	ChatID   int64
	UserID   int64
	Username string
	Command  string
	Args     string
}

// CommandHandler handles one slash command.
type CommandHandler interface {
	Command() Command
	Handle(ctx context.Context, u Update) error
}

// Command names a slash command for routing and for the bot menu.
type Command struct {
	Name        string
	Description string
}

// Router dispatches commands to their handlers. Unknown commands and plain
// text get the help reply.
type Router struct {
	handlers map[string]CommandHandler
	order    []Command
	sender   Sender
	logger   *slog.Logger
}

func NewRouter(sender Sender, logger *slog.Logger) *Router {
	return &Router{
		handlers: make(map[string]CommandHandler),
		sender:   sender,
		logger:   logger.With("component", "tg_router"),
	}
}

func (r *Router) Register(h CommandHandler) {
	cmd := h.Command()
	if _, ok := r.handlers[cmd.Name]; !ok {
		r.order = append(r.order, cmd)
	}
	r.handlers[cmd.Name] = h
	r.logger.Debug("registered command handler", "command", cmd.Name)
}

// Commands lists registered commands in registration order.
func (r *Router) Commands() []Command {
	return r.order
}

func (r *Router) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	u, ok := parseUpdate(update)
	if !ok {
		return
	}
	logger := r.logger.With("chat_id", u.ChatID, "user_id", u.UserID)

	if h, ok := r.handlers[u.Command]; ok {
		logger.Info("handling command", "command", u.Command)
		if err := h.Handle(ctx, u); err != nil {
			logger.Error("command handler failed", "command", u.Command, "error", err)
		}
		return
	}

	if err := r.sender.Send(ctx, Message{ChatID: u.ChatID, Text: r.help()}); err != nil {
		logger.Error("sending help failed", "error", err)
	}
}

func (r *Router) help() string {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, cmd := range r.order {
		b.WriteString("/" + cmd.Name + " - " + cmd.Description + "\n")
	}
	return b.String()
}

func parseUpdate(update tgbotapi.Update) (Update, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return Update{}, false
	}
	u := Update{ChatID: msg.Chat.ID}
	if msg.From != nil {
		u.UserID = msg.From.ID
		u.Username = msg.From.UserName
	}
	if msg.IsCommand() {
		u.Command = msg.Command()
		u.Args = msg.CommandArguments()
	}
	return u, true
}
