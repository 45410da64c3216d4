// Copyright (c) 2025 BVK Chaitanya

// Package telegram implements a small operator-alert notifier over the
// Telegram bot api.
package telegram

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-telegram/bot"
)

type Secrets struct {
	// BotToken is the bot api token from BotFather.
	BotToken string

	// ChatID is the chat that receives alert messages.
	ChatID int64
}

func (s *Secrets) Check() error {
	if s == nil || len(s.BotToken) == 0 || s.ChatID == 0 {
		return os.ErrInvalid
	}
	return nil
}

type Notifier struct {
	bot *bot.Bot

	chatID int64
}

// New creates a notifier and validates the bot token with the api.
func New(ctx context.Context, secrets *Secrets) (*Notifier, error) {
	if err := secrets.Check(); err != nil {
		return nil, err
	}

	b, err := bot.New(secrets.BotToken, bot.WithSkipGetMe())
	if err != nil {
		return nil, err
	}
	if _, err := b.GetMe(ctx); err != nil {
		return nil, err
	}
	return &Notifier{bot: b, chatID: secrets.ChatID}, nil
}

func (n *Notifier) Close() error {
	return nil
}

// SendMessage posts a timestamped alert message to the configured chat.
func (n *Notifier) SendMessage(ctx context.Context, at time.Time, text string) error {
	msg := at.Format("2006-01-02 15:04:05 MST") + " " + text
	slog.Info("sending notification", "at", at, "message", text)

	p := &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   msg,
	}
	if _, err := n.bot.SendMessage(ctx, p); err != nil {
		return err
	}
	return nil
}
