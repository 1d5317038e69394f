// Package kbbi looks up Indonesian dictionary definitions on kateglo.
package kbbi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/tulul/tululbot/internal/bot"
	domerrors "github.com/tulul/tululbot/internal/errors"
	"github.com/tulul/tululbot/internal/telegram"
)

// Module constants.
const (
	ModuleName     = "kbbi"
	DefaultBaseURL = "http://kateglo.com"

	source   = "kateglo"
	notFound = "Gak ada bray"
)

// Definition is one dictionary sense.
type Definition struct {
	Class  string
	Text   string
	Sample string
}

// BodyFetcher retrieves raw response bodies. *scraper.Client satisfies it.
type BodyFetcher interface {
	GetBody(ctx context.Context, source, rawURL string) ([]byte, error)
}

type response struct {
	Kateglo struct {
		Definition []struct {
			LexClassRef string `json:"lex_class_ref"`
			DefText     string `json:"def_text"`
			Sample      string `json:"sample"`
		} `json:"definition"`
	} `json:"kateglo"`
}

// Client queries the kateglo API.
type Client struct {
	fetcher BodyFetcher
	baseURL string
}

// NewClient creates a client. An empty baseURL uses kateglo.com.
func NewClient(fetcher BodyFetcher, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{fetcher: fetcher, baseURL: strings.TrimRight(baseURL, "/")}
}

// Lookup returns the definitions of term. kateglo answers unknown phrases
// with a non-JSON body, which yields an empty list.
func (c *Client) Lookup(ctx context.Context, term string) ([]Definition, error) {
	rawURL := c.baseURL + "/api.php?" + url.Values{"format": {"json"}, "phrase": {term}}.Encode()
	body, err := c.fetcher.GetBody(ctx, source, rawURL)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, nil
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, domerrors.NewUpstreamError(source, rawURL, 0, fmt.Errorf("unexpected response shape: %w", err))
	}
	defs := make([]Definition, 0, len(resp.Kateglo.Definition))
	for _, d := range resp.Kateglo.Definition {
		defs = append(defs, Definition{Class: d.LexClassRef, Text: d.DefText, Sample: d.Sample})
	}
	return defs, nil
}

// Handle answers /kbbi with Markdown formatted definitions.
func (c *Client) Handle(ctx context.Context, term string) (bot.Reply, error) {
	defs, err := c.Lookup(ctx, term)
	if err != nil {
		return bot.Reply{}, err
	}
	if len(defs) == 0 {
		return bot.Reply{Text: notFound}, nil
	}
	return bot.Reply{Text: Format(defs), Markdown: true}, nil
}

// Format renders definitions as a numbered MarkdownV2 list. Upstream text
// is escaped.
func Format(defs []Definition) string {
	parts := make([]string, len(defs))
	for i, d := range defs {
		parts[i] = formatDefinition(i+1, d)
	}
	return strings.Join(parts, "\n")
}

func formatDefinition(i int, d Definition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d\\. %s", i, telegram.EscapeMarkdown(d.Text))
	if d.Class != "" {
		fmt.Fprintf(&b, " \\(_%s_\\)", telegram.EscapeMarkdown(d.Class))
	}
	b.WriteString("\n")
	if d.Sample != "" {
		fmt.Fprintf(&b, "_%s_\n", telegram.EscapeMarkdown(d.Sample))
	}
	return b.String()
}
