// SPDX-License-Identifier: AGPL-3.0-only
package argo

import (
	"fmt"
	"strings"

	"github.com/jplfaria/gem-flux-mcp-sub000/internal/config"
)

// NewChatProvider builds the appropriate ChatProvider for cfg.Provider.
func NewChatProvider(cfg *config.ArgoConfig) (ChatProvider, error) {
	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case "anthropic":
		apiKey := cfg.AnthropicAPIKey
		if apiKey == "" {
			apiKey = cfg.APIKey
		}
		if apiKey == "" {
			return nil, fmt.Errorf("Anthropic API key is not set in configuration")
		}
		return NewAnthropicProvider(apiKey), nil
	case "openai", "":
		apiKey := cfg.OpenAIAPIKey
		if apiKey == "" {
			apiKey = cfg.APIKey
		}
		if apiKey == "" {
			return nil, fmt.Errorf("OpenAI API key is not set in configuration")
		}
		return NewOpenAIProvider(apiKey, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown chat provider: %s", cfg.Provider)
	}
}
