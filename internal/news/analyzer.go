package news

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Sentiment labels.
const (
	Positive = "positive"
	Negative = "negative"
	Neutral  = "neutral"
)

// Trading signals derived from a symbol's aggregate sentiment.
const (
	Bullish        = "BULLISH"
	Bearish        = "BEARISH"
	NeutralSignal  = "NEUTRAL"
	keywordMethod  = "keyword"
	maxWordsScored = 510
)

var (
	positiveKeywords = []string{
		"bullish", "surge", "rally", "gains", "profit", "growth", "positive",
		"outperform", "beat", "strong", "upgrade", "buy", "soar", "jump",
	}
	negativeKeywords = []string{
		"bearish", "crash", "decline", "loss", "negative", "drop", "fall",
		"downgrade", "sell", "plunge", "weak", "miss", "disappointing",
	}
)

// TextSentiment is the classification of one piece of text.
type TextSentiment struct {
	Label      string  `json:"label"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// Aggregate summarizes a batch of classifications.
type Aggregate struct {
	Overall      string             `json:"overall_sentiment"`
	Score        float64            `json:"sentiment_score"`
	Distribution map[string]float64 `json:"distribution"`
	Confidence   float64            `json:"confidence"`
	SampleSize   int                `json:"sample_size"`
}

// SymbolSentiment is the aggregate for one symbol plus a coarse signal.
type SymbolSentiment struct {
	Symbol         string    `json:"symbol"`
	Analysis       Aggregate `json:"sentiment_analysis"`
	Signal         string    `json:"trading_signal"`
	Recommendation string    `json:"recommendation"`
	Sources        int       `json:"sources_analyzed"`
	Headlines      []string  `json:"headlines,omitempty"`
}

// AnalyzeText classifies text by counting financial keywords. Each keyword
// counts once however often it appears.
func AnalyzeText(text string) TextSentiment {
	words := strings.Fields(text)
	if len(words) > maxWordsScored {
		words = words[:maxWordsScored]
	}
	lower := strings.ToLower(strings.Join(words, " "))

	pos, neg := 0, 0
	for _, w := range positiveKeywords {
		if strings.Contains(lower, w) {
			pos++
		}
	}
	for _, w := range negativeKeywords {
		if strings.Contains(lower, w) {
			neg++
		}
	}

	switch {
	case pos > neg:
		return TextSentiment{Label: Positive, Score: 0.6, Confidence: 0.6, Method: keywordMethod}
	case neg > pos:
		return TextSentiment{Label: Negative, Score: 0.6, Confidence: 0.6, Method: keywordMethod}
	default:
		return TextSentiment{Label: Neutral, Score: 0.5, Confidence: 0.5, Method: keywordMethod}
	}
}

// AggregateSentiment combines classifications into a score in [-1, 1]:
// the share of positive minus the share of negative texts.
func AggregateSentiment(items []TextSentiment) Aggregate {
	if len(items) == 0 {
		return Aggregate{
			Overall:      Neutral,
			Distribution: map[string]float64{Positive: 0, Negative: 0, Neutral: 100},
		}
	}

	counts := map[string]int{Positive: 0, Negative: 0, Neutral: 0}
	conf := decimal.Zero
	for _, it := range items {
		label := it.Label
		if label == "" {
			label = Neutral
		}
		counts[label]++
		conf = conf.Add(decimal.NewFromFloat(it.Confidence))
	}

	total := decimal.NewFromInt(int64(len(items)))
	score := decimal.NewFromInt(int64(counts[Positive] - counts[Negative])).Div(total)

	dist := make(map[string]float64, len(counts))
	for k, v := range counts {
		dist[k] = decimal.NewFromInt(int64(v)).Div(total).Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64()
	}

	overall := Neutral
	switch {
	case score.GreaterThan(decimal.NewFromFloat(0.2)):
		overall = Positive
	case score.LessThan(decimal.NewFromFloat(-0.2)):
		overall = Negative
	}

	return Aggregate{
		Overall:      overall,
		Score:        score.Round(3).InexactFloat64(),
		Distribution: dist,
		Confidence:   conf.Div(total).Round(3).InexactFloat64(),
		SampleSize:   len(items),
	}
}

// AnalyzeSymbol classifies texts about symbol and derives a signal. A strong
// signal needs both a score beyond 0.3 and confidence above 0.6.
func AnalyzeSymbol(symbol string, texts []string) SymbolSentiment {
	items := make([]TextSentiment, 0, len(texts))
	for _, t := range texts {
		items = append(items, AnalyzeText(t))
	}
	agg := AggregateSentiment(items)

	out := SymbolSentiment{
		Symbol:   symbol,
		Analysis: agg,
		Sources:  len(texts),
	}
	switch {
	case agg.Score > 0.3 && agg.Confidence > 0.6:
		out.Signal, out.Recommendation = Bullish, "Consider buying opportunities"
	case agg.Score < -0.3 && agg.Confidence > 0.6:
		out.Signal, out.Recommendation = Bearish, "Consider selling or avoiding"
	default:
		out.Signal, out.Recommendation = NeutralSignal, "Monitor closely, no strong signal"
	}
	return out
}
