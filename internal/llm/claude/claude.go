package claude

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"astock-agent/internal/api"
	"astock-agent/internal/llm"
	"astock-agent/internal/prompt"
	"astock-agent/internal/store"
	"astock-agent/internal/trace"
	"astock-agent/internal/types"
)

const (
	defaultEndpoint = "https://api.anthropic.com/v1/messages"
	apiVersion      = "2023-06-01"
)

// ClaudeDecider implements the Decider interface using the Anthropic
// messages API.
type ClaudeDecider struct {
	cfg      *store.Config
	model    string
	endpoint string
	timeout  time.Duration
}

// NewClaudeDecider creates a decider for model. A proxy endpoint can be set
// through CLAUDE_API_ENDPOINT.
func NewClaudeDecider(cfg *store.Config, model string) *ClaudeDecider {
	endpoint := defaultEndpoint
	if ep := os.Getenv("CLAUDE_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	if model == "" {
		model = cfg.LLM.Model
	}
	return &ClaudeDecider{cfg: cfg, model: model, endpoint: endpoint, timeout: 120 * time.Second}
}

func (d *ClaudeDecider) Decide(ctx context.Context, sit types.Situation) (types.Decision, error) {
	ctx, span := trace.StartSpan(ctx, "claude-api-call")
	defer span.End()

	apiKey := os.Getenv("CLAUDE_API_KEY")
	if apiKey == "" {
		return types.Decision{}, errors.New("CLAUDE_API_KEY missing")
	}

	system, err := prompt.Render(sit)
	if err != nil {
		return types.Decision{}, err
	}
	if d.cfg.LLM.System != "" {
		system = d.cfg.LLM.System + "\n\n" + system
	}

	reqBody := map[string]any{
		"model":  d.model,
		"system": system,
		"messages": []map[string]string{
			{"role": "user", "content": llm.UserMessage(sit)},
		},
		"max_tokens":  d.cfg.LLM.MaxTokens,
		"temperature": d.cfg.LLM.Temperature,
	}
	client := api.NewClient(
		api.WithHeader("x-api-key", apiKey),
		api.WithHeader("anthropic-version", apiVersion),
		api.WithTimeout(d.timeout),
		api.WithLogging(true),
	)
	resp, err := client.POST(ctx, d.endpoint, reqBody)
	if err != nil {
		return types.Decision{}, fmt.Errorf("claude: %w", err)
	}

	var r struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := resp.ParseJSON(&r); err != nil {
		return types.Decision{}, err
	}

	var text strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return types.Decision{}, errors.New("empty claude response")
	}
	return llm.ParseDecision(text.String()), nil
}
