// Package telegram sends replies through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/tulul/tululbot/internal/bot"
	"github.com/tulul/tululbot/internal/config"
	"github.com/tulul/tululbot/internal/metrics"
	"github.com/tulul/tululbot/internal/ratelimit"
)

// Telegram allows about 30 messages per second per bot.
const (
	sendBurst  = 30.0
	sendRefill = 30.0
)

// Messenger is the outbound capability the webhook needs.
type Messenger interface {
	Send(ctx context.Context, chatID int64, r bot.Reply) error
	Reply(ctx context.Context, chatID int64, messageID int, r bot.Reply) error
	Forward(ctx context.Context, chatID, fromChatID int64, messageID int) error
	SetWebhook(ctx context.Context, url string) error
	DeleteWebhook(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
}

// Options configures a Client.
type Options struct {
	// ServerURL overrides the Bot API server, e.g. a local server or a test double.
	ServerURL string
	Metrics   *metrics.Metrics
}

// Client adapts *tgbot.Bot to Messenger.
type Client struct {
	api     *tgbot.Bot
	limiter *ratelimit.Limiter
	metrics *metrics.Metrics

	meMu sync.Mutex
	me   *models.User
}

var _ Messenger = (*Client)(nil)

// NewClient creates a client without calling getMe.
func NewClient(token string, opts Options) (*Client, error) {
	if token == "" {
		return nil, errors.New("telegram: bot token is required")
	}
	botOpts := []tgbot.Option{
		tgbot.WithSkipGetMe(),
		tgbot.WithCheckInitTimeout(config.TelegramRequest),
	}
	if opts.ServerURL != "" {
		botOpts = append(botOpts, tgbot.WithServerURL(opts.ServerURL))
	}
	api, err := tgbot.New(token, botOpts...)
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}
	return &Client{
		api:     api,
		limiter: ratelimit.New(sendBurst, sendRefill),
		metrics: opts.Metrics,
	}, nil
}

// Send posts r to the chat without threading.
func (c *Client) Send(ctx context.Context, chatID int64, r bot.Reply) error {
	return c.sendMessage(ctx, messageParams(chatID, 0, r))
}

// Reply posts r as a reply to messageID.
func (c *Client) Reply(ctx context.Context, chatID int64, messageID int, r bot.Reply) error {
	return c.sendMessage(ctx, messageParams(chatID, messageID, r))
}

func (c *Client) sendMessage(ctx context.Context, params *tgbot.SendMessageParams) error {
	if err := c.limiter.Wait(ctx); err != nil {
		c.metrics.RecordTelegramSend("sendMessage", "throttled")
		return err
	}
	_, err := c.api.SendMessage(ctx, params)
	c.record("sendMessage", err)
	if err != nil {
		return fmt.Errorf("telegram: sendMessage: %w", err)
	}
	return nil
}

// Forward copies messageID from fromChatID into chatID.
func (c *Client) Forward(ctx context.Context, chatID, fromChatID int64, messageID int) error {
	if err := c.limiter.Wait(ctx); err != nil {
		c.metrics.RecordTelegramSend("forwardMessage", "throttled")
		return err
	}
	_, err := c.api.ForwardMessage(ctx, &tgbot.ForwardMessageParams{
		ChatID:     chatID,
		FromChatID: fromChatID,
		MessageID:  messageID,
	})
	c.record("forwardMessage", err)
	if err != nil {
		return fmt.Errorf("telegram: forwardMessage: %w", err)
	}
	return nil
}

// SetWebhook registers url as the update endpoint.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	if _, err := c.api.SetWebhook(ctx, &tgbot.SetWebhookParams{URL: url}); err != nil {
		return fmt.Errorf("telegram: setWebhook: %w", err)
	}
	return nil
}

// DeleteWebhook removes the update endpoint.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	if _, err := c.api.DeleteWebhook(ctx, &tgbot.DeleteWebhookParams{}); err != nil {
		return fmt.Errorf("telegram: deleteWebhook: %w", err)
	}
	return nil
}

// Me returns the bot's own user, cached after the first successful call.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	c.meMu.Lock()
	defer c.meMu.Unlock()
	if c.me != nil {
		return c.me, nil
	}
	me, err := c.api.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("telegram: getMe: %w", err)
	}
	c.me = me
	return me, nil
}

func (c *Client) record(method string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordTelegramSend(method, status)
}

// messageParams maps a Reply onto sendMessage parameters. replyTo 0 sends
// without threading.
func messageParams(chatID int64, replyTo int, r bot.Reply) *tgbot.SendMessageParams {
	params := &tgbot.SendMessageParams{
		ChatID: chatID,
		Text:   r.Text,
	}
	if r.SuppressPreview {
		disabled := true
		params.LinkPreviewOptions = &models.LinkPreviewOptions{IsDisabled: &disabled}
	}
	if r.Markdown {
		params.ParseMode = models.ParseModeMarkdown
	}
	if r.ForceReply {
		params.ReplyMarkup = &models.ForceReply{ForceReply: true, Selective: true}
	}
	if replyTo != 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: replyTo}
	}
	return params
}
