// Package insight sends one question about a dataset to a chat model and
// turns the reply into an answer that is always displayable.
package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/odap/internal/ai"
	"github.com/KaramelBytes/odap/internal/dataset"
	"github.com/KaramelBytes/odap/internal/logger"
	"github.com/KaramelBytes/odap/internal/pipeline"
	"github.com/KaramelBytes/odap/internal/utils"
	"go.uber.org/zap"
)

const (
	SystemPrompt       = "You are a data analysis assistant."
	FallbackAnswer     = "No insights available."
	DefaultModel       = "gpt-4"
	DefaultPreviewRows = 5
)

// ErrEmptyQuestion is returned by Ask for blank questions; no request is sent.
var ErrEmptyQuestion = errors.New("question is empty")

// Config selects the model and prompt shape.
type Config struct {
	Model       string
	PreviewRows int
	MaxTokens   int
	Temperature float64
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.PreviewRows <= 0 {
		c.PreviewRows = DefaultPreviewRows
	}
	return c
}

// Requester asks questions through a Runtime.
type Requester struct {
	rt  ai.Runtime
	cfg Config
	log *zap.Logger
}

// New builds a Requester. rt may be nil, in which case every answer is the
// fallback and Exchange.Err explains why.
func New(rt ai.Runtime, cfg Config, log *zap.Logger) *Requester {
	return &Requester{rt: rt, cfg: cfg.withDefaults(), log: logger.OrNop(log)}
}

// Model returns the configured model name.
func (r *Requester) Model() string { return r.cfg.Model }

// Exchange is the outcome of one submission.
type Exchange struct {
	Question  string        `json:"question"`
	Answer    string        `json:"answer"`
	Err       error         `json:"-"`
	Model     string        `json:"model"`
	RequestID string        `json:"request_id,omitempty"`
	Duration  time.Duration `json:"duration"`
	// CostUSD is an estimate; zero for models without list pricing.
	CostUSD float64 `json:"cost_usd,omitempty"`
}

// Failed reports whether the request produced an error.
func (e Exchange) Failed() bool { return e.Err != nil }

// ErrorMessage is the line shown above the fallback answer.
func (e Exchange) ErrorMessage() string {
	if e.Err == nil {
		return ""
	}
	return "Failed to generate insights: " + e.Err.Error()
}

// BuildPrompt renders the user message: the first rows of the prepared
// dataset followed by the question.
func BuildPrompt(question string, d *dataset.Dataset, rows int) string {
	return formatPrompt(question, previewText(d, rows))
}

func previewText(d *dataset.Dataset, rows int) string {
	if rows <= 0 {
		rows = DefaultPreviewRows
	}
	return pipeline.Prepare(d).PreviewText(rows)
}

func formatPrompt(question, preview string) string {
	return fmt.Sprintf("Dataset preview:\n%s\n\nQuestion: %s\n\nProvide detailed insights based on the dataset.", preview, question)
}

func messages(question, preview string) []ai.Message {
	return []ai.Message{
		{Role: ai.RoleSystem, Content: SystemPrompt},
		{Role: ai.RoleUser, Content: formatPrompt(question, preview)},
	}
}

// Ask sends exactly one completion request. The returned Exchange always has
// a non-empty Answer; on any failure it is FallbackAnswer and Err is set.
func (r *Requester) Ask(ctx context.Context, question string, d *dataset.Dataset) (ex Exchange) {
	ex = Exchange{Question: question, Model: r.cfg.Model, Answer: FallbackAnswer}
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("insight request panicked", zap.Any("panic", rec))
			ex.Answer, ex.Err = FallbackAnswer, fmt.Errorf("internal error: %v", rec)
		}
		ex.Duration = time.Since(start)
	}()

	switch {
	case strings.TrimSpace(question) == "":
		ex.Err = ErrEmptyQuestion
		return ex
	case d == nil:
		ex.Err = errors.New("no dataset loaded")
		return ex
	case r.rt == nil:
		ex.Err = errors.New("no model runtime configured")
		return ex
	}

	preview := previewText(d, r.cfg.PreviewRows)
	msgs := messages(question, preview)
	sections := utils.TokenBreakdown(map[string]string{
		"system":   msgs[0].Content,
		"preview":  preview,
		"question": question,
	})
	promptTokens := sections["system"] + utils.CountTokens(msgs[1].Content)
	tokenFields := []zap.Field{
		zap.String("model", r.cfg.Model),
		zap.Int("estimated_tokens", promptTokens),
		zap.Int("system_tokens", sections["system"]),
		zap.Int("preview_tokens", sections["preview"]),
		zap.Int("question_tokens", sections["question"]),
	}
	r.log.Debug("insight prompt", tokenFields...)
	if mi, ok := ai.LookupModel(r.cfg.Model); ok && promptTokens > mi.ContextTokens {
		r.log.Warn("prompt may exceed model context", append(tokenFields, zap.Int("context_tokens", mi.ContextTokens))...)
	}

	resp, err := r.rt.Generate(ctx, ai.GenerateRequest{
		Model:       r.cfg.Model,
		Messages:    msgs,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	})
	if err != nil {
		ex.Err = err
		r.log.Warn("insight request failed", zap.String("model", r.cfg.Model), zap.Int("status", ai.StatusCode(err)), zap.Error(err))
		return ex
	}
	ex.RequestID = resp.RequestID
	content := resp.Content()
	if strings.TrimSpace(content) == "" {
		ex.Err = errors.New("model returned no content")
		r.log.Warn("insight response empty", zap.String("model", r.cfg.Model), zap.Int("choices", len(resp.Choices)))
		return ex
	}
	ex.Answer = content

	in, out := resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	if in == 0 && out == 0 {
		in, out = promptTokens, utils.CountTokens(content)
	}
	if cost, ok := ai.EstimateCostUSD(r.cfg.Model, in, out); ok {
		ex.CostUSD = cost
	}
	r.log.Info("insight generated",
		zap.String("model", r.cfg.Model),
		zap.String("request_id", ex.RequestID),
		zap.Int("prompt_tokens", in),
		zap.Int("completion_tokens", out),
		zap.Float64("cost_usd", ex.CostUSD),
		zap.Duration("took", time.Since(start)))
	return ex
}
