// Package llm holds what the chat-model deciders share: reading a decision
// out of free-form model output.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"astock-agent/internal/prompt"
	"astock-agent/internal/types"
)

// UserMessage is the per-step instruction sent alongside the system prompt.
func UserMessage(s types.Situation) string {
	return fmt.Sprintf("Session %s, step %d. Analyse the positions and prices above and return your decision.", s.Session, s.Step)
}

// ParseDecision locates a JSON object in text and normalizes it. Output
// that cannot be read ends the session without trading.
func ParseDecision(text string) types.Decision {
	t := strings.TrimSpace(text)
	stop := strings.Contains(t, prompt.StopSignal)

	var d types.Decision
	parsed := false
	if strings.HasPrefix(t, "{") && json.Unmarshal([]byte(t), &d) == nil {
		parsed = true
	} else if start, end := strings.Index(t, "{"), strings.LastIndex(t, "}"); start >= 0 && end > start {
		parsed = json.Unmarshal([]byte(t[start:end+1]), &d) == nil
	}

	if !parsed {
		reason := "unable_to_parse_model_output"
		if stop {
			reason = "finish_signal"
		}
		return types.Decision{Action: types.ActionNoTrade, Reason: reason, Finish: true}
	}

	Normalize(&d)
	if stop {
		d.Finish = true
	}
	return d
}

// Normalize lowercases the action, maps unknown actions to no_trade and
// clamps confidence to [0, 1].
func Normalize(d *types.Decision) {
	d.Action = strings.ToLower(strings.TrimSpace(d.Action))
	switch d.Action {
	case types.ActionBuy, types.ActionSell:
		d.Symbol = strings.ToUpper(strings.TrimSpace(d.Symbol))
		if d.Symbol == "" || d.Amount <= 0 {
			d.Action = types.ActionNoTrade
		}
	case "hold", "":
		d.Action = types.ActionNoTrade
	case types.ActionNoTrade:
	default:
		d.Action = types.ActionNoTrade
	}
	if d.Action == types.ActionNoTrade {
		d.Symbol, d.Amount, d.Finish = "", 0, true
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		d.Confidence = 0.0
	}
}
