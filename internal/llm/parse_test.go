package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"astock-agent/internal/types"
)

func TestParseDecision(t *testing.T) {
	d := ParseDecision(`{"action":"BUY","symbol":"600519.sh","amount":100,"reason":"cheap","confidence":0.7}`)
	assert.Equal(t, types.Decision{Action: "buy", Symbol: "600519.SH", Amount: 100, Reason: "cheap", Confidence: 0.7}, d)

	d = ParseDecision("Thinking...\n```json\n{\"action\":\"sell\",\"symbol\":\"601318.SH\",\"amount\":200,\"finish\":true}\n```")
	assert.Equal(t, "sell", d.Action)
	assert.Equal(t, 200.0, d.Amount)
	assert.True(t, d.Finish)
}

func TestParseDecisionFallbacks(t *testing.T) {
	d := ParseDecision("I am not sure.")
	assert.Equal(t, types.ActionNoTrade, d.Action)
	assert.True(t, d.Finish)
	assert.Equal(t, "unable_to_parse_model_output", d.Reason)

	d = ParseDecision("Done for today <FINISH_SIGNAL>")
	assert.Equal(t, "finish_signal", d.Reason)

	d = ParseDecision(`{"action":"buy","symbol":"600519.SH","amount":100} <FINISH_SIGNAL>`)
	assert.Equal(t, types.ActionBuy, d.Action)
	assert.True(t, d.Finish)
}

func TestNormalize(t *testing.T) {
	cases := []types.Decision{
		{Action: "HOLD", Symbol: "X", Amount: 5},
		{Action: "short", Symbol: "X", Amount: 5},
		{Action: "buy", Symbol: "", Amount: 100},
		{Action: "sell", Symbol: "X", Amount: 0},
	}
	for _, d := range cases {
		Normalize(&d)
		assert.Equal(t, types.ActionNoTrade, d.Action)
		assert.Empty(t, d.Symbol)
		assert.True(t, d.Finish)
	}

	d := types.Decision{Action: "buy", Symbol: "x", Amount: 1, Confidence: 3}
	Normalize(&d)
	assert.Equal(t, 0.0, d.Confidence)
}
