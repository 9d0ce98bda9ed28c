package ai

import "context"

// Runtime is implemented by completion backends: the OpenAI-compatible
// client and a local Ollama runtime.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers accepted by the provider config key.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// RuntimeFunc adapts a function to the Runtime interface.
type RuntimeFunc func(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

func (f RuntimeFunc) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	return f(ctx, req)
}
