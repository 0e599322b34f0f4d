package summarize

import (
	"context"
	"fmt"
	"strings"

	"charm.land/fantasy"

	"github.com/guilhermegouw/voxchat/internal/debug"
	"github.com/guilhermegouw/voxchat/internal/session"
)

// Generation defaults.
const (
	DefaultTemperature     = 0.2
	DefaultMaxOutputTokens = 800
)

// ModelSource resolves a catalogue model id to a language model.
type ModelSource interface {
	LanguageModel(ctx context.Context, modelID string) (fantasy.LanguageModel, error)
}

// OutputLimiter is implemented by model sources that know how many tokens
// a model may produce. Zero means unknown.
type OutputLimiter interface {
	MaxOutputTokens(modelID string) int64
}

// Client is a Summarizer backed by fantasy language models.
type Client struct {
	models       ModelSource
	defaultModel string
	temperature  float64
	maxTokens    int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDefaultModel sets the model used when a request names none.
func WithDefaultModel(id string) ClientOption {
	return func(c *Client) { c.defaultModel = id }
}

// WithTemperature overrides DefaultTemperature.
func WithTemperature(t float64) ClientOption {
	return func(c *Client) { c.temperature = t }
}

// WithMaxOutputTokens fixes the output limit, ignoring model metadata.
func WithMaxOutputTokens(n int64) ClientOption {
	return func(c *Client) { c.maxTokens = n }
}

// NewClient creates a Client.
func NewClient(models ModelSource, opts ...ClientOption) *Client {
	c := &Client{
		models:       models,
		defaultModel: DefaultModelID,
		temperature:  DefaultTemperature,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Summarize implements Summarizer. Every failure is a *BackendError.
func (c *Client) Summarize(ctx context.Context, req Request) (session.HistoryEntry, error) {
	modelID := req.ModelID
	if modelID == "" {
		modelID = c.defaultModel
	}
	if req.InputType == "" {
		req.InputType = DetectInputType(req.Content)
	}

	lm, err := c.models.LanguageModel(ctx, modelID)
	if err != nil {
		return session.HistoryEntry{}, &BackendError{Model: modelID, Err: err}
	}

	temperature := c.temperature
	maxTokens := c.outputLimit(modelID)
	call := fantasy.Call{
		Prompt:          c.buildPrompt(req),
		Temperature:     &temperature,
		MaxOutputTokens: &maxTokens,
	}

	debug.Event("summarize", "Request", fmt.Sprintf("model=%s type=%s history=%d", modelID, req.InputType, len(req.History)))
	resp, err := lm.Generate(ctx, call)
	if err != nil {
		return session.HistoryEntry{}, &BackendError{Model: modelID, Err: err}
	}

	text := strings.TrimSpace(resp.Content.Text())
	if text == "" {
		return session.HistoryEntry{}, &BackendError{Model: modelID, Err: ErrEmptyResponse}
	}

	entry := session.HistoryEntry{
		OriginalQuery:    req.Content,
		Summary:          ExtractSummary(text),
		RelatedQuestions: ExtractRelatedQuestions(text),
		ModelUsed:        modelID,
	}
	if req.InputType == InputURL {
		entry.Sources = []session.Source{URLSource(req.Content)}
	} else {
		entry.Sources = SuggestedSources(req.Content)
	}
	return entry, nil
}

// outputLimit prefers an explicit limit, then the model's metadata, then
// DefaultMaxOutputTokens.
func (c *Client) outputLimit(modelID string) int64 {
	if c.maxTokens > 0 {
		return c.maxTokens
	}
	if l, ok := c.models.(OutputLimiter); ok {
		if n := l.MaxOutputTokens(modelID); n > 0 {
			return n
		}
	}
	return DefaultMaxOutputTokens
}

// buildPrompt lays out the system prompt, prior answered turns and the new
// request.
func (c *Client) buildPrompt(req Request) fantasy.Prompt {
	prompt := fantasy.Prompt{fantasy.NewSystemMessage(systemPrompt)}
	for _, h := range req.History {
		if h.State() != session.StateAnswered || h.OriginalQuery == "" {
			continue
		}
		prompt = append(prompt,
			fantasy.NewUserMessage(h.OriginalQuery),
			fantasy.Message{
				Role:    fantasy.MessageRoleAssistant,
				Content: []fantasy.MessagePart{fantasy.TextPart{Text: h.Summary}},
			},
		)
	}
	return append(prompt, fantasy.NewUserMessage(BuildPrompt(req.Content, req.InputType)))
}
