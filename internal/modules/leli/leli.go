// Package leli looks terms up on Wikipedia and falls back to a Google
// search link when nothing usable is found.
package leli

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tulul/tululbot/internal/bot"
	"github.com/tulul/tululbot/internal/logger"
)

// Module constants.
const (
	ModuleName = "leli"

	DefaultBaseURL = "https://en.wikipedia.org"

	source             = "wikipedia"
	noResultMarker     = "Search results"
	disambiguationText = "may refer to:"
	googleSearchURL    = "https://google.com/search"
)

// DocumentFetcher retrieves HTML pages. *scraper.Client satisfies it.
type DocumentFetcher interface {
	GetDocument(ctx context.Context, source, rawURL string) (*goquery.Document, error)
}

// Searcher runs Wikipedia searches.
type Searcher struct {
	fetcher DocumentFetcher
	baseURL string
	logger  *logger.Logger
}

// NewSearcher creates a searcher. An empty baseURL uses English Wikipedia.
func NewSearcher(fetcher DocumentFetcher, baseURL string, log *logger.Logger) *Searcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.New("info")
	}
	return &Searcher{
		fetcher: fetcher,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log.WithModule(ModuleName),
	}
}

// Search returns the first paragraph of the best matching article. A
// disambiguation page is followed one level through its first article link.
// found is false when no usable paragraph exists.
func (s *Searcher) Search(ctx context.Context, term string) (string, bool, error) {
	searchURL := s.baseURL + "/w/index.php?" + url.Values{"search": {term}}.Encode()
	doc, err := s.fetcher.GetDocument(ctx, source, searchURL)
	if err != nil {
		return "", false, err
	}

	paragraph, ok := firstParagraph(doc)
	if !ok {
		if hasNoResultMarker(doc) {
			s.logger.WithField("term", term).Debug("Wikipedia has no result")
		}
		return "", false, nil
	}
	if !strings.Contains(paragraph, disambiguationText) {
		return paragraph, true, nil
	}

	href, ok := firstArticleLink(doc)
	if !ok {
		return "", false, nil
	}
	article, err := s.fetcher.GetDocument(ctx, source, s.baseURL+href)
	if err != nil {
		return "", false, err
	}
	paragraph, ok = firstParagraph(article)
	return paragraph, ok, nil
}

// Handle answers /leli with the article paragraph or a Google link.
func (s *Searcher) Handle(ctx context.Context, term string) (bot.Reply, error) {
	paragraph, found, err := s.Search(ctx, term)
	if err != nil {
		return bot.Reply{}, err
	}
	if !found {
		paragraph = GoogleFallback(term)
	}
	return bot.Reply{Text: paragraph, SuppressPreview: true}, nil
}

// GoogleFallback is the reply for terms Wikipedia cannot answer.
func GoogleFallback(term string) string {
	return "Jangan ngeleli! Googling dong: " + googleSearchURL + "?" + url.Values{"q": {term}}.Encode()
}

func contentText(doc *goquery.Document) *goquery.Selection {
	return doc.Find("div#mw-content-text").First()
}

func firstParagraph(doc *goquery.Document) (string, bool) {
	p := contentText(doc).Find("p").First()
	if p.Length() == 0 {
		return "", false
	}
	return p.Text(), true
}

func firstArticleLink(doc *goquery.Document) (string, bool) {
	var href string
	contentText(doc).Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if h, _ := a.Attr("href"); strings.HasPrefix(h, "/wiki") {
			href = h
			return false
		}
		return true
	})
	return href, href != ""
}

func hasNoResultMarker(doc *goquery.Document) bool {
	html, err := doc.Html()
	return err == nil && strings.Contains(html, noResultMarker)
}
