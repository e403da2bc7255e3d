package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var ErrNotConfigured = errors.New("telegram_not_configured")

type Provider interface {
	SendMessage(ctx context.Context, text string) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) SendMessage(ctx context.Context, text string) error {
	return nil
}

// BotProvider posts messages to one admin chat. The bot is authorized on
// first use, so a Telegram outage never blocks startup.
type BotProvider struct {
	token    string
	chatID   int64
	endpoint string
	client   *http.Client

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

func NewBot(token string, chatID int64) *BotProvider {
	return &BotProvider{
		token:    strings.TrimSpace(token),
		chatID:   chatID,
		endpoint: tgbotapi.APIEndpoint,
		client:   &http.Client{},
	}
}

func (p *BotProvider) SendMessage(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bot, err := p.api()
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(p.chatID, text)
	_, err = bot.Send(msg)
	return err
}

func (p *BotProvider) api() (*tgbotapi.BotAPI, error) {
	if p.token == "" || p.chatID == 0 {
		return nil, ErrNotConfigured
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bot != nil {
		return p.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(p.token, p.endpoint, p.client)
	if err != nil {
		return nil, err
	}
	p.bot = bot
	return bot, nil
}
