package ai

import (
	"errors"
	"strings"
)

// ErrNotConfigured is returned by every operation when no API key is set.
var ErrNotConfigured = errors.New("ai: API key not configured")

// Config is passed explicitly to the service; there is no process-wide AI state.
type Config struct {
	APIKey          string
	BaseURL         string
	ChatModel       string
	SearchModel     string
	VisionModel     string
	ImageModel      string
	ImageSize       string
	Temperature     float32
	MaxTokens       int
	SearchMaxTokens int
}

func (c Config) withDefaults() Config {
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.ChatModel == "" {
		c.ChatModel = "gpt-4o-mini"
	}
	if c.SearchModel == "" {
		c.SearchModel = "gpt-4o-mini"
	}
	if c.VisionModel == "" {
		c.VisionModel = "gpt-4o"
	}
	if c.ImageModel == "" {
		c.ImageModel = "dall-e-3"
	}
	if c.ImageSize == "" {
		c.ImageSize = "1024x1024"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 800
	}
	if c.SearchMaxTokens <= 0 {
		c.SearchMaxTokens = 1000
	}
	return c
}

// Enabled reports whether calls can be made.
func (c Config) Enabled() bool { return strings.TrimSpace(c.APIKey) != "" }
