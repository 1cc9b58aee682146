package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/calder/ticketyard/internal/config"
)

// Default API bases for the OpenAI-compatible backends.
const (
	openAIBase   = "https://api.openai.com/v1"
	deepSeekBase = "https://api.deepseek.com/v1"
	grokBase     = "https://api.x.ai/v1"
)

func init() {
	Register("openai", func(cfg config.LLMConfig) (Generator, error) {
		return newChatClient("openai", openAIBase, cfg)
	})
	Register("deepseek", func(cfg config.LLMConfig) (Generator, error) {
		return newChatClient("deepseek", deepSeekBase, cfg)
	})
	Register("grok", func(cfg config.LLMConfig) (Generator, error) {
		return newChatClient("grok", grokBase, cfg)
	})
}

// chatClient speaks the OpenAI chat-completions wire format, which all
// three registered providers share.
type chatClient struct {
	name        string
	base        string
	model       string
	apiKey      string
	temperature float64
	httpClient  *http.Client
}

func newChatClient(name, defaultBase string, cfg config.LLMConfig) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: %s: api key is required", name)
	}
	base := cfg.APIBase
	if base == "" {
		base = defaultBase
	}
	return &chatClient{
		name:        name,
		base:        base,
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (c *chatClient) Name() string { return c.name }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends one user prompt and returns the first completion.
func (c *chatClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("llm: %s: marshal request: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: %s: build request: %w", c.name, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: %s: request: %w", c.name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: %s: read response: %w", c.name, err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("llm: %s: decode response: %w", c.name, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("llm: %s: api error: %s", c.name, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: %s: unexpected status %d", c.name, resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm: %s: empty completion", c.name)
	}
	return parsed.Choices[0].Message.Content, nil
}
