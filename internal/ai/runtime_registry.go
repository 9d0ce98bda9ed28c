package ai

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RuntimeFactory builds a Runtime from the generic config below.
type RuntimeFactory func(RuntimeConfig) Runtime

// RuntimeConfig carries the knobs shared by runtimes.
type RuntimeConfig struct {
	HTTPTimeout time.Duration
	Retry       RetryPolicy
	Logger      *zap.Logger
	// OpenAI-compatible
	APIKey  string
	BaseURL string
	// Ollama
	Host string
}

var (
	registryMu sync.RWMutex
	registry   = map[string]RuntimeFactory{}
)

// RegisterRuntime registers a provider name with its factory.
func RegisterRuntime(name string, f RuntimeFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = f
}

// GetRuntime creates a Runtime for the given provider if registered.
func GetRuntime(name string, cfg RuntimeConfig) (Runtime, bool) {
	registryMu.RLock()
	f, ok := registry[strings.ToLower(name)]
	registryMu.RUnlock()
	if !ok {
		return nil, false
	}
	return f(cfg), true
}

// NewRuntime is GetRuntime with an error naming the known providers.
func NewRuntime(name string, cfg RuntimeConfig) (Runtime, error) {
	if name == "" {
		name = ProviderOpenAI
	}
	rt, ok := GetRuntime(name, cfg)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (known: %s)", name, strings.Join(Providers(), ", "))
	}
	return rt, nil
}

// Providers lists registered provider names, sorted.
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func init() {
	RegisterRuntime(ProviderOpenAI, func(c RuntimeConfig) Runtime {
		return NewClient(ClientOptions{
			APIKey:      c.APIKey,
			BaseURL:     c.BaseURL,
			HTTPTimeout: c.HTTPTimeout,
			Retry:       c.Retry,
			Logger:      c.Logger,
		})
	})
	RegisterRuntime(ProviderOllama, func(c RuntimeConfig) Runtime {
		return NewOllamaClient(c.Host, c.HTTPTimeout, c.Retry)
	})
}
