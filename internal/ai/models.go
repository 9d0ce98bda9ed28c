package ai

import "strings"

// ModelInfo describes a chat model's context window and list pricing.
type ModelInfo struct {
	Name          string
	ContextTokens int
	InputPerK     float64 // USD per 1K prompt tokens
	OutputPerK    float64 // USD per 1K completion tokens
}

// Prices are list prices at the time of writing and only feed log estimates.
var models = map[string]ModelInfo{
	"gpt-4":         {Name: "gpt-4", ContextTokens: 8192, InputPerK: 0.03, OutputPerK: 0.06},
	"gpt-4-32k":     {Name: "gpt-4-32k", ContextTokens: 32768, InputPerK: 0.06, OutputPerK: 0.12},
	"gpt-4-turbo":   {Name: "gpt-4-turbo", ContextTokens: 128000, InputPerK: 0.01, OutputPerK: 0.03},
	"gpt-4o":        {Name: "gpt-4o", ContextTokens: 128000, InputPerK: 0.0025, OutputPerK: 0.01},
	"gpt-4o-mini":   {Name: "gpt-4o-mini", ContextTokens: 128000, InputPerK: 0.00015, OutputPerK: 0.0006},
	"gpt-3.5-turbo": {Name: "gpt-3.5-turbo", ContextTokens: 16385, InputPerK: 0.0005, OutputPerK: 0.0015},
}

// LookupModel finds a model by exact name, then by dated-snapshot prefix
// (gpt-4-0613 resolves to gpt-4).
func LookupModel(name string) (ModelInfo, bool) {
	if mi, ok := models[name]; ok {
		return mi, true
	}
	best := ""
	for k := range models {
		if strings.HasPrefix(name, k+"-") && len(k) > len(best) {
			best = k
		}
	}
	if best == "" {
		return ModelInfo{}, false
	}
	return models[best], true
}

// EstimateCostUSD prices a completion. ok is false for unknown models.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}
