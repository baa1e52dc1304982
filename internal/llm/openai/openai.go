package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"astock-agent/internal/api"
	"astock-agent/internal/llm"
	"astock-agent/internal/prompt"
	"astock-agent/internal/store"
	"astock-agent/internal/trace"
	"astock-agent/internal/types"
)

// OpenAIDecider talks to any OpenAI-compatible chat completions endpoint.
type OpenAIDecider struct {
	cfg     *store.Config
	model   string
	timeout time.Duration
}

// NewOpenAIDecider decides with model; an empty model uses llm.model.
func NewOpenAIDecider(cfg *store.Config, model string) *OpenAIDecider {
	if model == "" {
		model = cfg.LLM.Model
	}
	return &OpenAIDecider{cfg: cfg, model: model, timeout: 120 * time.Second}
}

func (d *OpenAIDecider) Decide(ctx context.Context, sit types.Situation) (types.Decision, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	apiKey := os.Getenv(d.cfg.LLM.APIKeyEnv)
	if apiKey == "" {
		return types.Decision{}, fmt.Errorf("%s missing", d.cfg.LLM.APIKeyEnv)
	}

	system, err := prompt.Render(sit)
	if err != nil {
		return types.Decision{}, err
	}
	if d.cfg.LLM.System != "" {
		system = d.cfg.LLM.System + "\n\n" + system
	}

	body := map[string]any{
		"model": d.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": llm.UserMessage(sit)},
		},
		"temperature": d.cfg.LLM.Temperature,
		"max_tokens":  d.cfg.LLM.MaxTokens,
	}

	client := api.NewClient(
		api.WithBaseURL(d.cfg.LLM.BaseURL),
		api.WithHeader("Authorization", "Bearer "+apiKey),
		api.WithTimeout(d.timeout),
		api.WithLogging(true),
	)
	resp, err := client.POST(ctx, "/chat/completions", body)
	if err != nil {
		return types.Decision{}, fmt.Errorf("openai: %w", err)
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := resp.ParseJSON(&r); err != nil {
		return types.Decision{}, err
	}
	if len(r.Choices) == 0 {
		return types.Decision{}, errors.New("no choices")
	}

	return llm.ParseDecision(r.Choices[0].Message.Content), nil
}
