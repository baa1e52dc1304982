package news

import (
	"context"
	"sort"
	"sync"
	"time"

	"astock-agent/internal/logger"
)

// HeadlineSource fetches recent articles about a symbol.
type HeadlineSource interface {
	Headlines(ctx context.Context, symbol string, maxArticles int) ([]Article, error)
}

// Service provides news sentiment analysis with caching
type Service struct {
	source HeadlineSource
	cache  *sentimentCache
	cfg    *ServiceConfig
}

// ServiceConfig configures the news sentiment service
type ServiceConfig struct {
	MaxArticles    int           // Maximum articles to scrape per symbol
	CacheDuration  time.Duration // How long to cache sentiment data
	ScraperTimeout time.Duration // Timeout for scraping operations
	Enabled        bool          // Whether sentiment analysis is enabled
}

// DefaultServiceConfig returns default configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxArticles:    15,
		CacheDuration:  1 * time.Hour,
		ScraperTimeout: 30 * time.Second,
		Enabled:        true,
	}
}

// sentimentCache stores sentiment results temporarily
type sentimentCache struct {
	mu   sync.RWMutex
	data map[string]*cacheEntry
	ttl  time.Duration
	now  func() time.Time
}

type cacheEntry struct {
	sentiment SymbolSentiment
	timestamp time.Time
}

func newSentimentCache(ttl time.Duration) *sentimentCache {
	return &sentimentCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// get retrieves cached sentiment if valid
func (c *sentimentCache) get(symbol string) (SymbolSentiment, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.data[symbol]
	if !exists || c.now().Sub(entry.timestamp) > c.ttl {
		return SymbolSentiment{}, time.Time{}, false
	}
	return entry.sentiment, entry.timestamp, true
}

// set stores sentiment and drops expired entries
func (c *sentimentCache) set(symbol string, sentiment SymbolSentiment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for sym, entry := range c.data {
		if now.Sub(entry.timestamp) > c.ttl {
			delete(c.data, sym)
		}
	}
	c.data[symbol] = &cacheEntry{sentiment: sentiment, timestamp: now}
}

// NewService creates a news sentiment service reading from source. A nil
// source scrapes the default sites.
func NewService(source HeadlineSource, cfg *ServiceConfig) *Service {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	if source == nil {
		source = NewScraper(cfg.ScraperTimeout)
	}
	return &Service{
		source: source,
		cache:  newSentimentCache(cfg.CacheDuration),
		cfg:    cfg,
	}
}

func (s *Service) Enabled() bool { return s.cfg.Enabled }

// GetSentiment retrieves news sentiment for a symbol (cached or fresh).
// Scraping failures degrade to a neutral result.
func (s *Service) GetSentiment(ctx context.Context, symbol string) SymbolSentiment {
	if !s.cfg.Enabled {
		return AnalyzeSymbol(symbol, nil)
	}

	if cached, at, ok := s.cache.get(symbol); ok {
		logger.Debug(ctx, "Using cached sentiment", "symbol", symbol, "age_minutes", time.Since(at).Minutes())
		return cached
	}

	sentiment, err := s.RefreshSentiment(ctx, symbol)
	if err != nil {
		logger.Warn(ctx, "Failed to fetch sentiment, reporting neutral", "symbol", symbol, "error", err)
		return AnalyzeSymbol(symbol, nil)
	}
	return sentiment
}

// RefreshSentiment scrapes and analyzes news for a symbol, bypassing the cache
func (s *Service) RefreshSentiment(ctx context.Context, symbol string) (SymbolSentiment, error) {
	articles, err := s.source.Headlines(ctx, symbol, s.cfg.MaxArticles)
	if err != nil {
		return SymbolSentiment{}, err
	}

	texts := make([]string, 0, len(articles))
	headlines := make([]string, 0, len(articles))
	for _, a := range articles {
		texts = append(texts, a.Text())
		headlines = append(headlines, a.Title)
	}
	sentiment := AnalyzeSymbol(symbol, texts)
	sentiment.Headlines = headlines

	s.cache.set(symbol, sentiment)
	logger.Info(ctx, "News sentiment refreshed", "symbol", symbol, "articles", len(articles), "signal", sentiment.Signal, "score", sentiment.Analysis.Score)
	return sentiment, nil
}

// ClearCache removes all cached sentiment data
func (s *Service) ClearCache() {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()
	s.cache.data = make(map[string]*cacheEntry)
}

// GetCachedSymbols returns the symbols with cached sentiment, sorted
func (s *Service) GetCachedSymbols() []string {
	s.cache.mu.RLock()
	defer s.cache.mu.RUnlock()

	symbols := make([]string, 0, len(s.cache.data))
	for symbol := range s.cache.data {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
