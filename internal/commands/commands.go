// Package commands wires the bot's slash commands into a registry.
package commands

import (
	"context"
	"fmt"

	"github.com/tulul/tululbot/internal/bot"
	"github.com/tulul/tululbot/internal/ctxutil"
	domerrors "github.com/tulul/tululbot/internal/errors"
	"github.com/tulul/tululbot/internal/modules/kbbi"
	"github.com/tulul/tululbot/internal/modules/leli"
	"github.com/tulul/tululbot/internal/modules/quote"
	"github.com/tulul/tululbot/internal/modules/slang"
	"github.com/tulul/tululbot/internal/ratelimit"
)

// Prompts sent by commands invoked without an argument.
const (
	PromptLeli  = "Apa yang mau dileli?"
	PromptKBBI  = "Cari apa lu?"
	PromptSlang = "Apa yang mau dicari jir?"
	PromptHBD   = "Siapa yang ultah?"
	PromptKawin = "Siapa yang mau kawin jir?"
)

// AboutText answers /who.
const AboutText = "TululBot v1.10.0\n\n" +
	"Enhancing your tulul experience since 2015\n\n" +
	"Contribute on https://github.com/tulul/tululbot\n\n" +
	"We're hiring! Contact @iqbalmineraltown for details"

// PromptCommands maps each prompt to the command that sent it, so an
// answer to the prompt can be routed back into that command.
var PromptCommands = map[string]string{
	PromptLeli:  "/leli",
	PromptKBBI:  "/kbbi",
	PromptSlang: "/slang",
	PromptHBD:   "/hbd",
	PromptKawin: "/kawin",
}

// Deps holds the services commands call into. Limiter may be nil.
type Deps struct {
	Leli             *leli.Searcher
	Quote            *quote.Engine
	KBBI             *kbbi.Client
	Slang            *slang.Client
	Limiter          *ratelimit.KeyedLimiter[int64]
	HotlineMessageID int
}

// Register adds every command to r. A `/cmd <arg>` pattern is always
// registered before its bare `/cmd` form.
func Register(r *bot.Registry, d Deps) error {
	entries := []struct {
		name    string
		pattern string
		handler bot.HandlerFunc
	}{
		{"leli", bot.CommandWithArgPattern("leli", "term"), d.lookup(func(ctx context.Context, term string) (bot.Result, error) {
			return d.Leli.Handle(ctx, term)
		})},
		{"leli_prompt", bot.CommandPattern("leli"), prompt(PromptLeli)},
		{"quote", bot.CommandPattern("quote"), d.quote},
		{"who", bot.CommandPattern("who"), who},
		{"kbbi", bot.CommandWithArgPattern("kbbi", "term"), d.lookup(func(ctx context.Context, term string) (bot.Result, error) {
			return d.KBBI.Handle(ctx, term)
		})},
		{"kbbi_prompt", bot.CommandPattern("kbbi"), prompt(PromptKBBI)},
		{"slang", bot.CommandWithArgPattern("slang", "term"), d.lookup(func(ctx context.Context, term string) (bot.Result, error) {
			return d.Slang.Handle(ctx, term)
		})},
		{"slang_prompt", bot.CommandPattern("slang"), prompt(PromptSlang)},
		{"hbd", bot.CommandWithArgPattern("hbd", "name"), hbd},
		{"hbd_prompt", bot.CommandPattern("hbd"), prompt(PromptHBD)},
		{"kawin", bot.CommandWithArgPattern("kawin", "couple"), kawin},
		{"kawin_prompt", bot.CommandPattern("kawin"), prompt(PromptKawin)},
		{"eid", bot.CommandPattern("eid"), eid},
		{"xmas", bot.CommandPattern("xmas"), xmas},
		{"hotline", bot.CommandPattern("hotline"), d.hotline},
	}
	for _, e := range entries {
		if err := r.Register(e.name, e.pattern, e.handler); err != nil {
			return fmt.Errorf("register %s: %w", e.name, err)
		}
	}
	return nil
}

// lookup wraps a single-argument lookup with the per-chat budget.
func (d Deps) lookup(fn func(ctx context.Context, arg string) (bot.Result, error)) bot.HandlerFunc {
	return func(ctx context.Context, args bot.Args) (bot.Result, error) {
		if d.Limiter != nil {
			if chatID, ok := ctxutil.GetChatID(ctx); ok && !d.Limiter.Allow(chatID) {
				return nil, domerrors.ErrRateLimited
			}
		}
		return fn(ctx, args.At(0).Value)
	}
}

func prompt(text string) bot.HandlerFunc {
	return func(context.Context, bot.Args) (bot.Result, error) {
		return bot.Reply{Text: text, ForceReply: true}, nil
	}
}

func (d Deps) quote(ctx context.Context, _ bot.Args) (bot.Result, error) {
	text, err := d.Quote.Handle(ctx)
	if err != nil {
		return nil, err
	}
	return bot.Text(text), nil
}

func who(context.Context, bot.Args) (bot.Result, error) {
	return bot.Reply{Text: AboutText, SuppressPreview: true}, nil
}

func hbd(_ context.Context, args bot.Args) (bot.Result, error) {
	name, _ := args.Get("name")
	return bot.Reply{
		Text:     fmt.Sprintf("hoi %s met ultah ya moga sehat dan sukses selalu 🎉 🎊", name),
		Detached: true,
	}, nil
}

func kawin(ctx context.Context, args bot.Args) (bot.Result, error) {
	couple, _ := args.Get("couple")
	return bot.Reply{
		Text: fmt.Sprintf("Hoi %s selamat nikah & kawin ya! Semoga jadi keluarga yang bahagia. "+
			"Semoga lancar semuanya sampai enna-enna. Dari %s dan keluarga.", couple, ctxutil.GetSender(ctx)),
		Detached: true,
	}, nil
}

func eid(ctx context.Context, _ bot.Args) (bot.Result, error) {
	return bot.Reply{
		Text: fmt.Sprintf("Taqabbalallahu minna wa minkum, shiyaamana wa shiyaamakum. "+
			"Mohon maaf lahir dan batin ya guys. Dari %s dan keluarga.", ctxutil.GetSender(ctx)),
		Detached: true,
	}, nil
}

func xmas(ctx context.Context, _ bot.Args) (bot.Result, error) {
	return bot.Reply{
		Text:     fmt.Sprintf("Selamat natal semua! Dari %s dan keluarga.", ctxutil.GetSender(ctx)),
		Detached: true,
	}, nil
}

// hotline forwards the pinned hotline message; unset means no reply.
func (d Deps) hotline(context.Context, bot.Args) (bot.Result, error) {
	if d.HotlineMessageID == 0 {
		return bot.Reply{}, nil
	}
	return bot.Reply{ForwardMessageID: d.HotlineMessageID}, nil
}
