package commands

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tulul/tululbot/internal/bot"
	"github.com/tulul/tululbot/internal/ctxutil"
	domerrors "github.com/tulul/tululbot/internal/errors"
	"github.com/tulul/tululbot/internal/modules/kbbi"
	"github.com/tulul/tululbot/internal/modules/leli"
	"github.com/tulul/tululbot/internal/modules/quote"
	"github.com/tulul/tululbot/internal/modules/slang"
	"github.com/tulul/tululbot/internal/ratelimit"
	"github.com/tulul/tululbot/internal/scraper"
)

func newUpstreams(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/w/index.php", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<div id="mw-content-text"><p>Tulul is tulul.</p></div>`))
	})
	mux.HandleFunc("/api.php", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"kateglo":{"definition":[{"lex_class_ref":"n","def_text":"teks","sample":""}]}}`))
	})
	mux.HandleFunc("/quote.yaml", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("quotes:\n  - quote: Q\n    author: A\n    author_bio: B\n"))
	})
	mux.HandleFunc("/branch", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestRegistry(t *testing.T, limiter *ratelimit.KeyedLimiter[int64], hotline int) *bot.Registry {
	t.Helper()
	srv := newUpstreams(t)
	client := scraper.NewClient(scraper.Options{Timeout: 2 * time.Second})

	r := bot.NewRegistry()
	err := Register(r, Deps{
		Leli:  leli.NewSearcher(client, srv.URL, nil),
		Quote: quote.NewEngine(client, quote.Options{DocumentURL: srv.URL + "/quote.yaml", BranchURL: srv.URL + "/branch"}),
		KBBI:  kbbi.NewClient(client, srv.URL),
		Slang: slang.NewClient(client, slang.Options{}),

		Limiter:          limiter,
		HotlineMessageID: hotline,
	})
	require.NoError(t, err)
	return r
}

func run(t *testing.T, r *bot.Registry, ctx context.Context, input string) bot.Reply {
	t.Helper()
	res, err := r.Run(ctx, input)
	require.NoError(t, err)
	return bot.Normalize(res)
}

func TestRegister_ArgFormBeforeBareForm(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, nil, 0)

	tests := []struct {
		input string
		name  string
	}{
		{"/leli tulul", "leli"},
		{"/leli", "leli_prompt"},
		{"/kbbi cinta", "kbbi"},
		{"/kbbi", "kbbi_prompt"},
		{"/slang jir", "slang"},
		{"/slang", "slang_prompt"},
		{"/hbd Budi", "hbd"},
		{"/hbd", "hbd_prompt"},
		{"/kawin A & B", "kawin"},
		{"/kawin", "kawin_prompt"},
		{"/quote", "quote"},
		{"/who", "who"},
		{"/eid", "eid"},
		{"/xmas", "xmas"},
		{"/hotline", "hotline"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			name, _, ok := r.Match(tt.input)
			require.True(t, ok)
			assert.Equal(t, tt.name, name)
		})
	}

	_, err := r.Run(context.Background(), "/quotes")
	assert.True(t, domerrors.IsCommandNotFound(err))
	_, err = r.Run(context.Background(), "halo semua")
	assert.True(t, domerrors.IsCommandNotFound(err))
}

func TestPrompts(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, nil, 0)

	for prompt, cmd := range PromptCommands {
		reply := run(t, r, context.Background(), cmd)
		assert.Equal(t, prompt, reply.Text)
		assert.True(t, reply.ForceReply)
		assert.False(t, reply.Detached)
	}
}

func TestLookups(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, nil, 0)
	ctx := context.Background()

	reply := run(t, r, ctx, "/leli tulul")
	assert.Equal(t, "Tulul is tulul.", reply.Text)
	assert.True(t, reply.SuppressPreview)

	reply = run(t, r, ctx, "/kbbi cinta")
	assert.Equal(t, "1\\. teks \\(_n_\\)\n", reply.Text)
	assert.True(t, reply.Markdown)

	reply = run(t, r, ctx, "/slang jir")
	assert.Equal(t, `Temporarily disabled\.`, reply.Text)
}

func TestQuote_FingerprintFailureStillAnswers(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, nil, 0)

	reply := run(t, r, context.Background(), "/quote")
	assert.Equal(t, "Q - A, B", reply.Text)
	assert.False(t, reply.SuppressPreview)
}

func TestWho(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, nil, 0)

	reply := run(t, r, context.Background(), "/who")
	assert.Equal(t, AboutText, reply.Text)
	assert.True(t, reply.SuppressPreview)
}

func TestGreetings(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, nil, 0)
	ctx := ctxutil.WithSender(context.Background(), "Iqbal")

	tests := []struct {
		input string
		want  string
	}{
		{"/hbd Budi", "hoi Budi met ultah ya moga sehat dan sukses selalu 🎉 🎊"},
		{"/kawin Budi & Ani", "Hoi Budi & Ani selamat nikah & kawin ya! Semoga jadi keluarga yang bahagia. Semoga lancar semuanya sampai enna-enna. Dari Iqbal dan keluarga."},
		{"/eid", "Taqabbalallahu minna wa minkum, shiyaamana wa shiyaamakum. Mohon maaf lahir dan batin ya guys. Dari Iqbal dan keluarga."},
		{"/xmas", "Selamat natal semua! Dari Iqbal dan keluarga."},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			reply := run(t, r, ctx, tt.input)
			assert.Equal(t, tt.want, reply.Text)
			assert.True(t, reply.Detached)
		})
	}
}

func TestHotline(t *testing.T) {
	t.Parallel()

	unset := run(t, newTestRegistry(t, nil, 0), context.Background(), "/hotline")
	assert.True(t, unset.IsEmpty())

	set := run(t, newTestRegistry(t, nil, 321), context.Background(), "/hotline")
	assert.Equal(t, 321, set.ForwardMessageID)
}

func TestLookup_RateLimitedPerChat(t *testing.T) {
	t.Parallel()
	limiter := ratelimit.NewKeyedLimiter[int64](ratelimit.KeyedConfig{Name: "chat", Burst: 1, RefillRate: 0.001})
	t.Cleanup(limiter.Stop)
	r := newTestRegistry(t, limiter, 0)

	chatA := ctxutil.WithChatID(context.Background(), 1)
	chatB := ctxutil.WithChatID(context.Background(), 2)

	_, err := r.Run(chatA, "/kbbi cinta")
	require.NoError(t, err)
	_, err = r.Run(chatA, "/leli tulul")
	assert.ErrorIs(t, err, domerrors.ErrRateLimited)

	_, err = r.Run(chatB, "/kbbi cinta")
	assert.NoError(t, err)

	_, err = r.Run(chatA, "/who")
	assert.NoError(t, err, "non-lookup commands are not limited")
}
