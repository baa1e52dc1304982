package news

import (
	"strings"
	"testing"
)

func TestAnalyzeText(t *testing.T) {
	cases := []struct {
		text  string
		label string
		score float64
	}{
		{"Tech stocks surge on strong earnings", Positive, 0.6},
		{"Market crashes amid weak demand and decline", Negative, 0.6},
		{"Board meeting scheduled for Thursday", Neutral, 0.5},
		{"Shares rally then drop", Neutral, 0.5},
	}
	for _, c := range cases {
		got := AnalyzeText(c.text)
		if got.Label != c.label || got.Score != c.score {
			t.Errorf("%q: expected %s/%.1f, got %s/%.1f", c.text, c.label, c.score, got.Label, got.Score)
		}
		if got.Method != keywordMethod {
			t.Errorf("%q: expected keyword method, got %s", c.text, got.Method)
		}
	}
}

func TestAggregateSentimentEmpty(t *testing.T) {
	agg := AggregateSentiment(nil)
	if agg.Overall != Neutral || agg.Score != 0 || agg.Confidence != 0 {
		t.Errorf("Unexpected empty aggregate: %+v", agg)
	}
	if agg.Distribution[Neutral] != 100 {
		t.Errorf("Expected 100%% neutral, got %v", agg.Distribution)
	}
}

func TestAggregateSentiment(t *testing.T) {
	items := []TextSentiment{
		{Label: Positive, Confidence: 0.6},
		{Label: Positive, Confidence: 0.6},
		{Label: Negative, Confidence: 0.6},
	}
	agg := AggregateSentiment(items)

	if agg.Score != 0.333 {
		t.Errorf("Expected score 0.333, got %v", agg.Score)
	}
	if agg.Overall != Positive {
		t.Errorf("Expected positive, got %s", agg.Overall)
	}
	if agg.Distribution[Positive] != 66.7 || agg.Distribution[Negative] != 33.3 {
		t.Errorf("Unexpected distribution %v", agg.Distribution)
	}
	if agg.Confidence != 0.6 || agg.SampleSize != 3 {
		t.Errorf("Unexpected confidence/sample size %+v", agg)
	}

	// one positive in five stays inside the neutral band
	agg = AggregateSentiment([]TextSentiment{{Label: Positive}, {Label: Neutral}, {Label: Neutral}, {Label: Neutral}, {Label: Neutral}})
	if agg.Overall != Neutral {
		t.Errorf("Expected neutral at score 0.2, got %s", agg.Overall)
	}
}

func TestAnalyzeSymbolKeywordSignal(t *testing.T) {
	s := AnalyzeSymbol("600519.SH", []string{"profit growth", "shares soar", "upgrade to buy"})
	if s.Analysis.Overall != Positive {
		t.Errorf("Expected positive, got %s", s.Analysis.Overall)
	}
	// keyword confidence tops out at 0.6, below the signal threshold
	if s.Signal != NeutralSignal {
		t.Errorf("Expected NEUTRAL signal, got %s", s.Signal)
	}
	if s.Sources != 3 {
		t.Errorf("Expected 3 sources, got %d", s.Sources)
	}
}

func TestAnalyzeTextTruncates(t *testing.T) {
	text := strings.Repeat("filler ", maxWordsScored) + "surge"
	if got := AnalyzeText(text); got.Label != Neutral {
		t.Errorf("Expected words past the limit ignored, got %s", got.Label)
	}
}
