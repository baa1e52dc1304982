package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const resultsPage = `<html><body>
<div class="item"><h2><a href="/a/1.html">  Moutai   profit beats estimates </a></h2><p>Strong quarter.</p><span class="t">2025-10-09</span></div>
<div class="item"><h2><a href="https://other.example/a/2">Liquor stocks fall</a></h2></div>
<div class="item"><h2><a>No link here</a></h2></div>
<div class="item"><p>No title</p></div>
</body></html>`

func testSource(base string) NewsSource {
	return NewsSource{
		Name:       "Test",
		BaseURL:    base,
		SearchPath: "/search?q={code}",
		Selectors: ArticleSelectors{
			ArticleContainer: "div.item",
			Title:            "h2 a",
			URL:              "h2 a",
			Content:          "p",
			PublishedAt:      "span.t",
		},
	}
}

func TestParseArticles(t *testing.T) {
	articles, err := ParseArticles(strings.NewReader(resultsPage), testSource("https://news.example"), "600519.SH", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(articles) != 2 {
		t.Fatalf("Expected 2 articles, got %d: %+v", len(articles), articles)
	}

	a := articles[0]
	if a.Title != "Moutai profit beats estimates" {
		t.Errorf("Unexpected title %q", a.Title)
	}
	if a.URL != "https://news.example/a/1.html" {
		t.Errorf("Expected absolute URL, got %s", a.URL)
	}
	if a.Summary != "Strong quarter." || a.PublishedAt != "2025-10-09" {
		t.Errorf("Unexpected summary/date %q %q", a.Summary, a.PublishedAt)
	}
	if articles[1].URL != "https://other.example/a/2" {
		t.Errorf("Expected absolute URL untouched, got %s", articles[1].URL)
	}

	limited, _ := ParseArticles(strings.NewReader(resultsPage), testSource("https://news.example"), "600519.SH", 1)
	if len(limited) != 1 {
		t.Errorf("Expected limit of 1, got %d", len(limited))
	}
}

func TestScraperHeadlines(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, resultsPage)
	}))
	defer srv.Close()

	s := NewScraper(5*time.Second, testSource(srv.URL))
	articles, err := s.Headlines(context.Background(), "600519.SH", 10)
	if err != nil {
		t.Fatal(err)
	}
	if gotQuery != "600519" {
		t.Errorf("Expected exchange-less code in query, got %q", gotQuery)
	}
	if len(articles) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(articles))
	}
	if articles[0].Symbol != "600519.SH" || articles[0].Source != "Test" {
		t.Errorf("Unexpected article %+v", articles[0])
	}
}

func TestSelectSources(t *testing.T) {
	if n := len(SelectSources(nil)); n != len(DefaultSources()) {
		t.Errorf("Expected all sources, got %d", n)
	}
	got := SelectSources([]string{"sina"})
	if len(got) != 1 || got[0].Name != "Sina" {
		t.Errorf("Expected only Sina, got %+v", got)
	}
}
