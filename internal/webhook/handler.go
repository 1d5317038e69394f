// Package webhook receives Telegram updates, dispatches message text to the
// command registry and delivers the reply.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot/models"

	"github.com/tulul/tululbot/internal/bot"
	"github.com/tulul/tululbot/internal/config"
	"github.com/tulul/tululbot/internal/ctxutil"
	domerrors "github.com/tulul/tululbot/internal/errors"
	"github.com/tulul/tululbot/internal/logger"
	"github.com/tulul/tululbot/internal/metrics"
	"github.com/tulul/tululbot/internal/sentry"
	"github.com/tulul/tululbot/internal/telegram"
)

// Response bodies.
const (
	AckNeutral   = "Nothing to do here..."
	AckProcessed = "OK"
)

// User-visible copy for expected failures.
const (
	MsgConnectivity = "Koneksi lagi bapuk nih :'("
	MsgUpstream     = "Aduh ada error nich"
	MsgRateLimited  = "Sabar bray, jangan nyepam"
)

const (
	// maxUpdateSize caps the request body.
	maxUpdateSize = 1 << 20

	// maxAlertRunes keeps developer alerts under Telegram's 4096 character limit.
	maxAlertRunes = 4000
)

// Handler handles Telegram webhook requests.
type Handler struct {
	registry  *bot.Registry
	messenger telegram.Messenger
	metrics   *metrics.Metrics
	logger    *logger.Logger
	prompts   map[string]string
	timeout   time.Duration

	develChatID int64

	identityMu      sync.Mutex
	username        string
	botID           int64
	identityRetryAt time.Time
	now             func() time.Time
}

// NewHandler creates a webhook handler.
func NewHandler(registry *bot.Registry, messenger telegram.Messenger, opts ...HandlerOption) *Handler {
	h := &Handler{
		registry:  registry,
		messenger: messenger,
		timeout:   config.WebhookProcessing,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.New("info")
	}
	h.logger = h.logger.WithModule("webhook")
	return h
}

// Handle is the Gin handler for the webhook endpoint.
func (h *Handler) Handle(c *gin.Context) {
	start := time.Now()
	status := h.serve(c)
	h.metrics.RecordWebhook(status, time.Since(start).Seconds())
}

func (h *Handler) serve(c *gin.Context) string {
	update, ok := h.parseUpdate(c)
	if !ok {
		c.AbortWithStatus(http.StatusForbidden)
		return "forbidden"
	}

	msg := update.Message
	if msg == nil || msg.Text == "" {
		c.String(http.StatusOK, AckNeutral)
		return "ignored"
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	ctx = h.messageContext(ctx, c, update)
	log := h.logger.WithField("update_id", update.ID)

	text := h.normalizeText(ctx, msg)
	reply, err := h.dispatch(ctx, text)
	switch {
	case domerrors.IsCommandNotFound(err):
		c.String(http.StatusOK, AckNeutral)
		return "ignored"
	case err != nil:
		h.handleError(ctx, log, msg, err)
		c.String(http.StatusOK, AckProcessed)
		return "error"
	}

	if err := h.deliver(ctx, msg, reply); err != nil {
		log.WithError(err).Error("Failed to deliver reply")
	}
	c.String(http.StatusOK, AckProcessed)
	return "processed"
}

// parseUpdate accepts only a JSON object body.
func (h *Handler) parseUpdate(c *gin.Context) (*models.Update, bool) {
	mediaType, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if err != nil || mediaType != "application/json" {
		h.logger.WithField("content_type", c.GetHeader("Content-Type")).Debug("Rejected non-JSON webhook request")
		return nil, false
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUpdateSize)
	raw, err := c.GetRawData()
	if err != nil {
		h.logger.WithError(err).Debug("Failed to read webhook body")
		return nil, false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}

	var update models.Update
	if err := json.Unmarshal(raw, &update); err != nil {
		h.logger.WithError(err).Debug("Rejected malformed update")
		return nil, false
	}
	return &update, true
}

func (h *Handler) messageContext(ctx context.Context, c *gin.Context, update *models.Update) context.Context {
	msg := update.Message
	requestID := c.GetString("request_id")
	if requestID == "" {
		requestID = strconv.FormatInt(update.ID, 10)
	}
	ctx = ctxutil.WithRequestID(ctx, requestID)
	ctx = ctxutil.WithChatID(ctx, msg.Chat.ID)
	ctx = ctxutil.WithMessageID(ctx, msg.ID)
	if msg.From != nil {
		ctx = ctxutil.WithUserID(ctx, msg.From.ID)
		ctx = ctxutil.WithSender(ctx, msg.From.FirstName)
	}
	return ctx
}

// normalizeText strips the bot mention from the command and routes answers
// to the bot's prompts back into the prompting command.
func (h *Handler) normalizeText(ctx context.Context, msg *models.Message) string {
	text := strings.TrimSpace(msg.Text)
	username, _ := h.identity(ctx)
	text = stripBotMention(text, username)
	return rewritePromptReply(text, msg.ReplyToMessage, func(u *models.User) bool {
		return h.isSelf(ctx, u)
	}, h.prompts)
}

// ResolveIdentity asks getMe for the bot's username unless it was
// configured. Call it at startup so the first updates need no lookup.
func (h *Handler) ResolveIdentity(ctx context.Context) bool {
	username, _ := h.identity(ctx)
	return username != ""
}

// identity returns the bot's username and id, asking getMe when they were
// not configured. Only one caller asks at a time, outside the lock, and a
// failure holds off further lookups for config.IdentityRetry. Callers that
// arrive meanwhile get an empty identity.
func (h *Handler) identity(ctx context.Context) (string, int64) {
	h.identityMu.Lock()
	if h.username != "" || h.messenger == nil || h.now().Before(h.identityRetryAt) {
		username, id := h.username, h.botID
		h.identityMu.Unlock()
		return username, id
	}
	h.identityRetryAt = h.now().Add(config.IdentityRetry)
	h.identityMu.Unlock()

	lookupCtx, cancel := context.WithTimeout(ctx, config.TelegramRequest)
	defer cancel()
	me, err := h.messenger.Me(lookupCtx)

	h.identityMu.Lock()
	defer h.identityMu.Unlock()
	if err != nil {
		h.logger.WithError(err).Warn("Failed to resolve bot identity")
		return h.username, h.botID
	}
	h.username, h.botID = me.Username, me.ID
	h.identityRetryAt = time.Time{}
	return h.username, h.botID
}

func (h *Handler) isSelf(ctx context.Context, u *models.User) bool {
	if u == nil || !u.IsBot {
		return false
	}
	username, id := h.identity(ctx)
	if id != 0 && u.ID == id {
		return true
	}
	return username != "" && strings.EqualFold(u.Username, username)
}

// dispatch runs the registry and normalizes the result. Panics are turned
// into errors so a single bad update never crashes the process.
func (h *Handler) dispatch(ctx context.Context, text string) (reply bot.Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			sentry.CapturePanic(ctx, r)
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()

	res, err := h.registry.Run(ctx, text)
	if err != nil {
		return bot.Reply{}, err
	}
	return bot.Normalize(res), nil
}

// deliver sends reply according to its options.
func (h *Handler) deliver(ctx context.Context, msg *models.Message, reply bot.Reply) error {
	chatID := msg.Chat.ID
	switch {
	case reply.ForwardMessageID != 0:
		return h.messenger.Forward(ctx, chatID, chatID, reply.ForwardMessageID)
	case reply.IsEmpty():
		return nil
	case reply.Detached:
		return h.messenger.Send(ctx, chatID, reply)
	default:
		return h.messenger.Reply(ctx, chatID, msg.ID, reply)
	}
}

// handleError maps expected failures to user copy. Anything else is
// reported to Sentry and the developer chat.
func (h *Handler) handleError(ctx context.Context, log *logger.Logger, msg *models.Message, err error) {
	var copyText string
	switch {
	case domerrors.IsRateLimited(err):
		copyText = MsgRateLimited
	case domerrors.IsConnectivity(err):
		copyText = MsgConnectivity
	case domerrors.IsUpstream(err):
		copyText = MsgUpstream
	}

	if copyText != "" {
		log.WithError(err).Warn("Command failed")
		if sendErr := h.messenger.Reply(ctx, msg.Chat.ID, msg.ID, bot.Reply{Text: copyText}); sendErr != nil {
			log.WithError(sendErr).Error("Failed to send error reply")
		}
		return
	}

	log.WithError(err).Error("Unexpected error while handling update")
	var pe *panicError
	if !errors.As(err, &pe) {
		sentry.CaptureExceptionWithContext(ctx, err)
	}
	h.alertDevelopers(ctx, err)
}

func (h *Handler) alertDevelopers(ctx context.Context, err error) {
	if h.develChatID == 0 {
		return
	}
	alertCtx, cancel := context.WithTimeout(ctxutil.PreserveTracing(ctx), config.TelegramRequest)
	defer cancel()

	text := err.Error()
	var pe *panicError
	if errors.As(err, &pe) {
		text += "\n\n" + string(pe.stack)
	}
	if sendErr := h.messenger.Send(alertCtx, h.develChatID, bot.Reply{Text: truncate(text, maxAlertRunes)}); sendErr != nil {
		h.logger.WithError(sendErr).Error("Failed to alert developer chat")
	}
}

// panicError carries a recovered panic.
type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
