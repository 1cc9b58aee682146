// Package llm provides pluggable text-generation backends behind a single
// Generator interface. Backends register themselves at init and are
// selected by model name at startup.
package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/calder/ticketyard/internal/config"
)

// Generator produces text from a prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Factory builds a Generator from configuration.
type Factory func(cfg config.LLMConfig) (Generator, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds a backend under the given key. Later registrations with
// the same key win, which lets tests install fakes.
func Register(key string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[key] = factory
}

// Available lists registered backend keys.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// New selects and builds the backend for the configured model.
func New(cfg config.LLMConfig) (Generator, error) {
	key := backendFor(cfg.Model)
	mu.RLock()
	factory, ok := registry[key]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("llm: no backend registered for model %q (key %s)", cfg.Model, key)
	}
	return factory(cfg)
}

// backendFor maps a model name to a registry key.
func backendFor(model string) string {
	switch {
	case strings.HasPrefix(model, "deepseek"):
		return "deepseek"
	case strings.HasPrefix(model, "grok"):
		return "grok"
	default:
		return "openai"
	}
}

// StripFences removes a surrounding markdown code fence from model output,
// which several backends wrap around JSON despite instructions.
func StripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:] // drop the language tag line
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
