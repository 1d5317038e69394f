package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tulul/tululbot/internal/bot"
	"github.com/tulul/tululbot/internal/config"
	"github.com/tulul/tululbot/internal/ctxutil"
	domerrors "github.com/tulul/tululbot/internal/errors"
	"github.com/tulul/tululbot/internal/metrics"
)

const testToken = "123:abc"

func init() {
	gin.SetMode(gin.TestMode)
}

type sent struct {
	Kind      string
	ChatID    int64
	MessageID int
	Reply     bot.Reply
}

// fakeMessenger records outbound calls.
type fakeMessenger struct {
	mu      sync.Mutex
	sent    []sent
	sendErr error
	meErr   error
	meCalls int
}

func (f *fakeMessenger) record(s sent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, s)
	return f.sendErr
}

func (f *fakeMessenger) Send(_ context.Context, chatID int64, r bot.Reply) error {
	return f.record(sent{Kind: "send", ChatID: chatID, Reply: r})
}

func (f *fakeMessenger) Reply(_ context.Context, chatID int64, messageID int, r bot.Reply) error {
	return f.record(sent{Kind: "reply", ChatID: chatID, MessageID: messageID, Reply: r})
}

func (f *fakeMessenger) Forward(_ context.Context, chatID, _ int64, messageID int) error {
	return f.record(sent{Kind: "forward", ChatID: chatID, MessageID: messageID})
}

func (f *fakeMessenger) SetWebhook(context.Context, string) error { return nil }
func (f *fakeMessenger) DeleteWebhook(context.Context) error      { return nil }

func (f *fakeMessenger) Me(context.Context) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meCalls++
	if f.meErr != nil {
		return nil, f.meErr
	}
	return &models.User{ID: 42, IsBot: true, Username: "tululbot"}, nil
}

func (f *fakeMessenger) MeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meCalls
}

func (f *fakeMessenger) setMeErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meErr = err
}

func (f *fakeMessenger) Sent() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sent...)
}

type fixture struct {
	handler   *Handler
	router    *gin.Engine
	messenger *fakeMessenger
	metrics   *metrics.Metrics
}

func newFixture(t *testing.T, opts ...HandlerOption) *fixture {
	t.Helper()
	r := bot.NewRegistry()
	r.MustRegister("echo", `^/echo (?P<text>.+)$`, func(_ context.Context, args bot.Args) (bot.Result, error) {
		v, _ := args.Get("text")
		return bot.Text(v), nil
	})
	r.MustRegister("prompt", `^/echo$`, func(context.Context, bot.Args) (bot.Result, error) {
		return bot.Reply{Text: "Echo apa?", ForceReply: true}, nil
	})
	r.MustRegister("who", `^/who$`, func(context.Context, bot.Args) (bot.Result, error) {
		return bot.Reply{Text: "about", SuppressPreview: true, Markdown: true}, nil
	})
	r.MustRegister("greet", `^/greet$`, func(ctx context.Context, _ bot.Args) (bot.Result, error) {
		return bot.Reply{Text: "Dari " + ctxutil.GetSender(ctx), Detached: true}, nil
	})
	r.MustRegister("hotline", `^/hotline$`, func(context.Context, bot.Args) (bot.Result, error) {
		return bot.Reply{ForwardMessageID: 999}, nil
	})
	r.MustRegister("silent", `^/silent$`, func(context.Context, bot.Args) (bot.Result, error) {
		return bot.Reply{}, nil
	})
	r.MustRegister("down", `^/down$`, func(context.Context, bot.Args) (bot.Result, error) {
		return nil, domerrors.NewConnectivityError("wikipedia", "https://en.wikipedia.org", errors.New("dial tcp: i/o timeout"))
	})
	r.MustRegister("broken", `^/broken$`, func(context.Context, bot.Args) (bot.Result, error) {
		return nil, domerrors.NewUpstreamError("kateglo", "http://kateglo.com", 500, errors.New("internal"))
	})
	r.MustRegister("spam", `^/spam$`, func(context.Context, bot.Args) (bot.Result, error) {
		return nil, domerrors.ErrRateLimited
	})
	r.MustRegister("bug", `^/bug$`, func(context.Context, bot.Args) (bot.Result, error) {
		return nil, errors.New("nil map write")
	})
	r.MustRegister("panic", `^/panic$`, func(context.Context, bot.Args) (bot.Result, error) {
		panic("boom")
	})

	messenger := &fakeMessenger{}
	m := metrics.New(prometheus.NewRegistry())
	opts = append([]HandlerOption{
		WithMetrics(m),
		WithPrompts(map[string]string{"Echo apa?": "/echo"}),
	}, opts...)
	h := NewHandler(r, messenger, opts...)

	router := gin.New()
	router.POST("/"+testToken, h.Handle)
	return &fixture{handler: h, router: router, messenger: messenger, metrics: m}
}

func (f *fixture) post(contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/"+testToken, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func textUpdate(text string) string {
	return `{"update_id":1000,"message":{"message_id":55,"date":0,` +
		`"from":{"id":7,"is_bot":false,"first_name":"Budi"},` +
		`"chat":{"id":-100,"type":"group"},"text":` + quoteJSON(text) + `}}`
}

func quoteJSON(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s) + `"`
}

func TestHandle_RejectsNonJSON(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"form content type", "application/x-www-form-urlencoded", "a=b"},
		{"no content type", "", textUpdate("/who")},
		{"invalid json", "application/json", "{not json"},
		{"json array", "application/json", "[1,2]"},
		{"json null", "application/json", "null"},
		{"empty body", "application/json", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.post(tt.contentType, tt.body)
			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}
	assert.Empty(t, f.messenger.Sent())
	assert.Equal(t, float64(len(tests)), testutil.ToFloat64(f.metrics.WebhookRequestsTotal.WithLabelValues("forbidden")))
}

func TestHandle_NeutralAck(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"no message", `{"update_id":1}`},
		{"message without text", `{"update_id":1,"message":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`},
		{"unknown command", textUpdate("/nope")},
		{"plain chatter", textUpdate("halo semua")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.post("application/json", tt.body)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, AckNeutral, w.Body.String())
		})
	}
	assert.Empty(t, f.messenger.Sent())
}

func TestHandle_RepliesToOriginatingMessage(t *testing.T) {
	t.Parallel()
	f := newFixture(t, WithBotUsername("tululbot"))

	w := f.post("application/json; charset=utf-8", textUpdate("/echo halo dunia"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, AckProcessed, w.Body.String())

	got := f.messenger.Sent()
	require.Len(t, got, 1)
	assert.Equal(t, sent{Kind: "reply", ChatID: -100, MessageID: 55, Reply: bot.Reply{Text: "halo dunia"}}, got[0])
}

func TestHandle_ReplyOptionsPassThrough(t *testing.T) {
	t.Parallel()
	f := newFixture(t, WithBotUsername("tululbot"))

	f.post("application/json", textUpdate("/who"))
	f.post("application/json", textUpdate("/echo"))

	got := f.messenger.Sent()
	require.Len(t, got, 2)
	assert.Equal(t, bot.Reply{Text: "about", SuppressPreview: true, Markdown: true}, got[0].Reply)
	assert.True(t, got[1].Reply.ForceReply)
	assert.Equal(t, 55, got[1].MessageID)
}

func TestHandle_DeliveryModes(t *testing.T) {
	t.Parallel()
	f := newFixture(t, WithBotUsername("tululbot"))

	f.post("application/json", textUpdate("/greet"))
	f.post("application/json", textUpdate("/hotline"))
	w := f.post("application/json", textUpdate("/silent"))
	assert.Equal(t, AckProcessed, w.Body.String())

	got := f.messenger.Sent()
	require.Len(t, got, 2)
	assert.Equal(t, sent{Kind: "send", ChatID: -100, Reply: bot.Reply{Text: "Dari Budi", Detached: true}}, got[0])
	assert.Equal(t, sent{Kind: "forward", ChatID: -100, MessageID: 999}, got[1])
}

func TestHandle_StripsMentionUsingGetMe(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.post("application/json", textUpdate("/echo@tululbot hi"))
	f.post("application/json", textUpdate("/echo@TululBot again"))

	got := f.messenger.Sent()
	require.Len(t, got, 2)
	assert.Equal(t, "hi", got[0].Reply.Text)
	assert.Equal(t, "again", got[1].Reply.Text)
	assert.Equal(t, 1, f.messenger.MeCalls())
}

func TestHandle_IdentityFailureBacksOff(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.messenger.setMeErr(errors.New("unauthorized"))
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	f.handler.now = func() time.Time { return now }

	for range 3 {
		f.post("application/json", textUpdate("/echo hi"))
	}
	assert.Equal(t, 1, f.messenger.MeCalls(), "failed lookups are not retried per update")
	require.Len(t, f.messenger.Sent(), 3)

	f.messenger.setMeErr(nil)
	now = now.Add(config.IdentityRetry)
	f.post("application/json", textUpdate("/echo@tululbot again"))
	f.post("application/json", textUpdate("/echo@tululbot more"))

	assert.Equal(t, 2, f.messenger.MeCalls())
	got := f.messenger.Sent()
	require.Len(t, got, 5)
	assert.Equal(t, "again", got[3].Reply.Text)
	assert.Equal(t, "more", got[4].Reply.Text)
}

func TestResolveIdentity(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	assert.True(t, f.handler.ResolveIdentity(context.Background()))
	f.post("application/json", textUpdate("/echo@tululbot hi"))
	assert.Equal(t, 1, f.messenger.MeCalls())

	configured := newFixture(t, WithBotUsername("@tululbot"))
	assert.True(t, configured.handler.ResolveIdentity(context.Background()))
	assert.Zero(t, configured.messenger.MeCalls())
}

func TestHandle_IdentityFailureStillDispatches(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.messenger.meErr = errors.New("unauthorized")

	w := f.post("application/json", textUpdate("/echo hi"))
	assert.Equal(t, AckProcessed, w.Body.String())
	require.Len(t, f.messenger.Sent(), 1)
}

func TestHandle_AnswerToPromptIsRouted(t *testing.T) {
	t.Parallel()
	f := newFixture(t, WithBotUsername("tululbot"))

	body := `{"update_id":1,"message":{"message_id":60,"date":0,` +
		`"from":{"id":7,"is_bot":false,"first_name":"Budi"},"chat":{"id":-100,"type":"group"},"text":"tulul",` +
		`"reply_to_message":{"message_id":59,"date":0,"from":{"id":42,"is_bot":true,"first_name":"TululBot","username":"tululbot"},` +
		`"chat":{"id":-100,"type":"group"},"text":"Echo apa?"}}}`
	w := f.post("application/json", body)
	assert.Equal(t, AckProcessed, w.Body.String())

	got := f.messenger.Sent()
	require.Len(t, got, 1)
	assert.Equal(t, "tulul", got[0].Reply.Text)
	assert.Equal(t, 60, got[0].MessageID)
}

func TestHandle_ExpectedErrorsGetCopy(t *testing.T) {
	t.Parallel()
	tests := []struct {
		command string
		want    string
	}{
		{"/down", MsgConnectivity},
		{"/broken", MsgUpstream},
		{"/spam", MsgRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			f := newFixture(t, WithBotUsername("tululbot"), WithDevelChatID(1))
			w := f.post("application/json", textUpdate(tt.command))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, AckProcessed, w.Body.String())

			got := f.messenger.Sent()
			require.Len(t, got, 1, "expected failures are not reported to developers")
			assert.Equal(t, sent{Kind: "reply", ChatID: -100, MessageID: 55, Reply: bot.Reply{Text: tt.want}}, got[0])
		})
	}
}

func TestHandle_UnexpectedErrorsAlertDevelopers(t *testing.T) {
	t.Parallel()
	for _, command := range []string{"/bug", "/panic"} {
		t.Run(command, func(t *testing.T) {
			f := newFixture(t, WithBotUsername("tululbot"), WithDevelChatID(31337))
			w := f.post("application/json", textUpdate(command))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, AckProcessed, w.Body.String())

			got := f.messenger.Sent()
			require.Len(t, got, 1)
			assert.Equal(t, "send", got[0].Kind)
			assert.Equal(t, int64(31337), got[0].ChatID)
			assert.LessOrEqual(t, len([]rune(got[0].Reply.Text)), maxAlertRunes)
			assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.WebhookRequestsTotal.WithLabelValues("error")))
		})
	}
}

func TestHandle_UnexpectedErrorWithoutDevelChat(t *testing.T) {
	t.Parallel()
	f := newFixture(t, WithBotUsername("tululbot"))

	w := f.post("application/json", textUpdate("/panic"))
	assert.Equal(t, AckProcessed, w.Body.String())
	assert.Empty(t, f.messenger.Sent())
}

func TestHandle_SendFailureStillAcks(t *testing.T) {
	t.Parallel()
	f := newFixture(t, WithBotUsername("tululbot"))
	f.messenger.sendErr = errors.New("chat not found")

	w := f.post("application/json", textUpdate("/echo x"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, AckProcessed, w.Body.String())
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "🎉🎉", truncate("🎉🎉🎉", 2))
}
