package news

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"astock-agent/internal/logger"
)

// Article is one scraped headline.
type Article struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Summary     string `json:"summary,omitempty"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at,omitempty"`
	Symbol      string `json:"symbol"`
}

// Text is what the sentiment analyzer reads.
func (a Article) Text() string {
	if a.Summary == "" {
		return a.Title
	}
	return a.Title + ". " + a.Summary
}

// Scraper handles scraping news from multiple sources
type Scraper struct {
	sources []NewsSource
	timeout time.Duration
}

// NewsSource defines a news source configuration
type NewsSource struct {
	Name       string
	BaseURL    string
	SearchPath string // e.g. "/search?q={symbol}"
	Selectors  ArticleSelectors
	RateLimit  time.Duration
}

// ArticleSelectors defines CSS selectors for extracting article data
type ArticleSelectors struct {
	ArticleContainer string
	Title            string
	URL              string
	Content          string
	PublishedAt      string
}

// NewScraper creates a scraper over sources; no sources means the defaults.
func NewScraper(timeout time.Duration, sources ...NewsSource) *Scraper {
	if len(sources) == 0 {
		sources = DefaultSources()
	}
	return &Scraper{sources: sources, timeout: timeout}
}

// DefaultSources lists A-share news search pages.
func DefaultSources() []NewsSource {
	return []NewsSource{
		{
			Name:       "Eastmoney",
			BaseURL:    "https://so.eastmoney.com",
			SearchPath: "/news/s?keyword={code}",
			Selectors: ArticleSelectors{
				ArticleContainer: "div.news_item",
				Title:            "div.news_item_t a",
				URL:              "div.news_item_t a",
				Content:          "div.news_item_c",
				PublishedAt:      "span.news_item_time",
			},
			RateLimit: 2 * time.Second,
		},
		{
			Name:       "Sina",
			BaseURL:    "https://search.sina.com.cn",
			SearchPath: "/news?q={code}&c=news",
			Selectors: ArticleSelectors{
				ArticleContainer: "div.box-result",
				Title:            "h2 a",
				URL:              "h2 a",
				Content:          "p.content",
				PublishedAt:      "span.fgray_time",
			},
			RateLimit: 2 * time.Second,
		},
	}
}

// SelectSources keeps the named default sources; no names keeps them all.
func SelectSources(names []string) []NewsSource {
	all := DefaultSources()
	if len(names) == 0 {
		return all
	}
	want := map[string]bool{}
	for _, n := range names {
		want[strings.ToLower(n)] = true
	}
	var out []NewsSource
	for _, s := range all {
		if want[strings.ToLower(s.Name)] {
			out = append(out, s)
		}
	}
	return out
}

// Headlines fetches up to maxArticles articles about symbol across all
// sources. A failing source is logged and skipped.
func (s *Scraper) Headlines(ctx context.Context, symbol string, maxArticles int) ([]Article, error) {
	if len(s.sources) == 0 {
		return nil, nil
	}
	logger.Debug(ctx, "Starting news scraping", "symbol", symbol, "sources", len(s.sources))

	perSource := maxArticles / len(s.sources)
	if perSource < 1 {
		perSource = 1
	}

	var all []Article
	for _, source := range s.sources {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		articles, err := s.scrapeSource(ctx, source, symbol, perSource)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to scrape source", err, "source", source.Name, "symbol", symbol)
			continue
		}
		all = append(all, articles...)
	}

	logger.Debug(ctx, "News scraping completed", "symbol", symbol, "articles", len(all))
	return all, nil
}

func (s *Scraper) scrapeSource(ctx context.Context, source NewsSource, symbol string, maxArticles int) ([]Article, error) {
	var articles []Article

	c := colly.NewCollector(
		colly.AllowedDomains(getDomain(source.BaseURL)),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(s.timeout)
	if source.RateLimit > 0 {
		if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Delay: source.RateLimit}); err != nil {
			return nil, err
		}
	}

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	c.OnHTML(source.Selectors.ArticleContainer, func(e *colly.HTMLElement) {
		if len(articles) >= maxArticles {
			return
		}
		if a, ok := parseArticle(e.DOM, source, symbol); ok {
			articles = append(articles, a)
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		logger.Warn(ctx, "Scraping error", "source", source.Name, "url", r.Request.URL.String(), "status", r.StatusCode, "error", err)
	})

	searchURL := source.BaseURL + expandPath(source.SearchPath, symbol)
	if err := c.Visit(searchURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", searchURL, err)
	}
	c.Wait()

	return articles, nil
}

// expandPath fills {symbol} with the full ticker and {code} with the
// exchange-less code, both URL-escaped.
func expandPath(path, symbol string) string {
	code := symbol
	if i := strings.IndexByte(symbol, '.'); i > 0 {
		code = symbol[:i]
	}
	r := strings.NewReplacer(
		"{symbol}", url.QueryEscape(strings.ToLower(symbol)),
		"{code}", url.QueryEscape(code),
	)
	return r.Replace(path)
}

// ParseArticles extracts articles from a search results page.
func ParseArticles(r io.Reader, source NewsSource, symbol string, maxArticles int) ([]Article, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	var out []Article
	doc.Find(source.Selectors.ArticleContainer).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if a, ok := parseArticle(sel, source, symbol); ok {
			out = append(out, a)
		}
		return maxArticles <= 0 || len(out) < maxArticles
	})
	return out, nil
}

func parseArticle(sel *goquery.Selection, source NewsSource, symbol string) (Article, bool) {
	title := cleanText(sel.Find(source.Selectors.Title).First().Text())
	if title == "" {
		return Article{}, false
	}
	href, ok := sel.Find(source.Selectors.URL).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return Article{}, false
	}

	return Article{
		Title:       title,
		URL:         absoluteURL(source.BaseURL, strings.TrimSpace(href)),
		Summary:     cleanText(sel.Find(source.Selectors.Content).First().Text()),
		Source:      source.Name,
		PublishedAt: cleanText(sel.Find(source.Selectors.PublishedAt).First().Text()),
		Symbol:      symbol,
	}, true
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func absoluteURL(base, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return base + href
	}
	return b.ResolveReference(u).String()
}

// getDomain extracts domain from URL
func getDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
