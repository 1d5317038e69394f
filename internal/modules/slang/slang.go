// Package slang looks up slang words on Urban Dictionary and kamusslang.
package slang

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tulul/tululbot/internal/bot"
	"github.com/tulul/tululbot/internal/telegram"
)

// Module constants.
const (
	ModuleName = "slang"

	DefaultUrbanDictionaryURL = "https://api.urbandictionary.com"
	DefaultKamusSlangURL      = "http://kamusslang.com"

	sourceUrban  = "urbandictionary"
	sourceKamus  = "kamusslang"
	disabledText = `Temporarily disabled\.`
	notFoundText = "Gak ada bray"
	noDefinition = "There aren't any definition"
)

// Fetcher retrieves upstream documents. *scraper.Client satisfies it.
type Fetcher interface {
	GetJSON(ctx context.Context, source, rawURL string, v any) error
	GetDocument(ctx context.Context, source, rawURL string) (*goquery.Document, error)
}

// Options configures a Client.
type Options struct {
	Enabled            bool
	UrbanDictionaryURL string
	KamusSlangURL      string
}

// Client combines both slang sources.
type Client struct {
	fetcher  Fetcher
	enabled  bool
	urbanURL string
	kamusURL string
}

type urbanResponse struct {
	List []struct {
		Definition string `json:"definition"`
	} `json:"list"`
}

// NewClient creates a client.
func NewClient(fetcher Fetcher, opts Options) *Client {
	c := &Client{
		fetcher:  fetcher,
		enabled:  opts.Enabled,
		urbanURL: strings.TrimRight(opts.UrbanDictionaryURL, "/"),
		kamusURL: strings.TrimRight(opts.KamusSlangURL, "/"),
	}
	if c.urbanURL == "" {
		c.urbanURL = DefaultUrbanDictionaryURL
	}
	if c.kamusURL == "" {
		c.kamusURL = DefaultKamusSlangURL
	}
	return c
}

// Lookup returns the combined answer for word as MarkdownV2 text, with the
// upstream definitions escaped.
func (c *Client) Lookup(ctx context.Context, word string) (string, error) {
	if !c.enabled {
		return disabledText, nil
	}

	ud, udFound, err := c.lookupUrban(ctx, word)
	if err != nil {
		return "", err
	}
	ks, ksFound, err := c.lookupKamus(ctx, word)
	if err != nil {
		return "", err
	}

	switch {
	case udFound && ksFound:
		return fmt.Sprintf("⚫ *urbandictionary*:\n%s\n\n⚫ *kamusslang*:\n%s",
			telegram.EscapeMarkdown(strings.TrimSpace(ud)),
			telegram.EscapeMarkdown(strings.TrimSpace(ks))), nil
	case udFound:
		return telegram.EscapeMarkdown(ud), nil
	case ksFound:
		return telegram.EscapeMarkdown(ks), nil
	default:
		return notFoundText, nil
	}
}

// Handle answers /slang.
func (c *Client) Handle(ctx context.Context, word string) (bot.Reply, error) {
	text, err := c.Lookup(ctx, word)
	if err != nil {
		return bot.Reply{}, err
	}
	return bot.Reply{Text: text, Markdown: true}, nil
}

func (c *Client) lookupUrban(ctx context.Context, word string) (string, bool, error) {
	rawURL := c.urbanURL + "/v0/define?" + url.Values{"term": {word}}.Encode()
	var resp urbanResponse
	if err := c.fetcher.GetJSON(ctx, sourceUrban, rawURL, &resp); err != nil {
		return "", false, err
	}
	if len(resp.List) == 0 {
		return "", false, nil
	}
	def := resp.List[0].Definition
	if def == "" || strings.Contains(def, noDefinition) {
		return "", false, nil
	}
	return def, true, nil
}

func (c *Client) lookupKamus(ctx context.Context, word string) (string, bool, error) {
	rawURL := c.kamusURL + "/arti/" + url.QueryEscape(word)
	doc, err := c.fetcher.GetDocument(ctx, sourceKamus, rawURL)
	if err != nil {
		return "", false, err
	}
	if doc.Find(".close-word-suggestion-text").Length() > 0 {
		return "", false, nil
	}
	def := doc.Find(".term-def").First()
	if def.Length() == 0 {
		return "", false, nil
	}
	return def.Text(), true, nil
}
