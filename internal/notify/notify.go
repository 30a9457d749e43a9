package notify

import (
	"context"
	"fmt"
	"html"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SwapEvent describes an accepted swap
type SwapEvent struct {
	Address     string
	Points      int64
	UsedPoints  int64
	TokenSymbol string
	TxHash      string
	ExplorerURL string
}

// Notifier is told about accepted swaps. Errors are logged by the caller and never affect the sweep.
type Notifier interface {
	NotifySwap(ctx context.Context, event SwapEvent) error
}

// Nop discards events
type Nop struct{}

func (Nop) NotifySwap(context.Context, SwapEvent) error { return nil }

// Sender is the part of *tgbotapi.BotAPI the notifier needs
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts swap events to one chat
type Telegram struct {
	sender Sender
	chatID int64
}

// NewTelegram connects a bot with token. chatID is the numeric chat id as configured.
func NewTelegram(token, chatID string) (*Telegram, error) {
	id, err := parseChatID(chatID)
	if err != nil {
		return nil, err
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Telegram{sender: bot, chatID: id}, nil
}

// NewTelegramWithSender is NewTelegram over an existing sender
func NewTelegramWithSender(sender Sender, chatID string) (*Telegram, error) {
	id, err := parseChatID(chatID)
	if err != nil {
		return nil, err
	}
	return &Telegram{sender: sender, chatID: id}, nil
}

func (t *Telegram) NotifySwap(ctx context.Context, event SwapEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.chatID, FormatSwap(event))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.sender.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// FormatSwap renders the HTML message body
func FormatSwap(e SwapEvent) string {
	text := fmt.Sprintf("<b>Swap accepted</b>\nWallet: <code>%s</code>\nPoints: %d → swapped %d for %s",
		html.EscapeString(e.Address), e.Points, e.UsedPoints, html.EscapeString(e.TokenSymbol))
	switch {
	case e.ExplorerURL != "":
		text += fmt.Sprintf("\nTx: <a href=\"%s\">%s</a>", html.EscapeString(e.ExplorerURL), html.EscapeString(e.TxHash))
	case e.TxHash != "":
		text += fmt.Sprintf("\nTx: <code>%s</code>", html.EscapeString(e.TxHash))
	}
	return text
}

func parseChatID(chatID string) (int64, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
	}
	return id, nil
}
