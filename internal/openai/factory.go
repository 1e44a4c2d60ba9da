package openai

import "sync"

// Factory builds clients bound to per-workspace API keys, falling back to a
// process-wide key when the workspace has none. Clients are cached per key so
// repeated calls for the same workspace reuse the underlying HTTP client.
type Factory struct {
	fallbackKey string
	base        Config

	mu      sync.Mutex
	clients map[string]*Client
}

// NewFactory creates a Factory with the given fallback API key.
func NewFactory(fallbackKey string) *Factory {
	return NewFactoryWithConfig(fallbackKey, Config{})
}

// NewFactoryWithConfig creates a Factory with explicit model configuration.
func NewFactoryWithConfig(fallbackKey string, base Config) *Factory {
	return &Factory{
		fallbackKey: fallbackKey,
		base:        base,
		clients:     make(map[string]*Client),
	}
}

// ClientFor returns a client for the given API key, or the fallback-key
// client when apiKey is empty. Returns ErrNoAPIKey when neither is set.
func (f *Factory) ClientFor(apiKey string) (*Client, error) {
	if apiKey == "" {
		apiKey = f.fallbackKey
	}
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[apiKey]; ok {
		return c, nil
	}

	cfg := f.base
	cfg.APIKey = apiKey
	c := NewClientWithConfig(cfg)
	f.clients[apiKey] = c
	return c, nil
}
