// Package services – AssistService
//
// This file implements AssistService, a thin collaborator around a chat
// completion model. It produces short reply suggestions for a conversation
// and a coarse sentiment label for a single message. Model access sits behind
// the Completer interface; OpenAICompleter adapts the go-openai client.

package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/samber/lo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	suggestPrompt = "Suggest 3 short smart reply options (in plain text, comma-separated) for a messaging app."
	analyzePrompt = "You are an assistant that helps detect if a message is emotionally stressful, negative, or anxious. Reply with only one word: 'negative' or 'neutral'."

	maxSuggestions = 3

	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// "1. foo 2. bar" style enumerations.
var enumeratedRE = regexp.MustCompile(`\d\.\s+`)

// Completer runs a single system+user chat completion and returns the text of
// the first choice.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// OpenAICompleter implements Completer with the OpenAI chat completions API.
type OpenAICompleter struct {
	Client *openai.Client
	Model  string
}

// NewOpenAICompleter builds a completer for apiKey. An empty baseURL keeps
// the public endpoint; an empty model selects gpt-3.5-turbo.
func NewOpenAICompleter(apiKey, baseURL, model string) *OpenAICompleter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &OpenAICompleter{Client: openai.NewClientWithConfig(cfg), Model: model}
}

// Complete implements Completer.
func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Sentiment is the result of Analyze.
type Sentiment struct {
	Label      string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
}

// AssistService produces AI reply suggestions and sentiment labels.
type AssistService struct {
	// Completer is nil when no API key is configured.
	Completer Completer
	Timeout   time.Duration
}

func (s *AssistService) complete(ctx context.Context, system, user string) (string, error) {
	if s == nil || s.Completer == nil {
		return "", ErrNotConfigured
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	out, err := s.Completer.Complete(ctx, system, user)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return out, nil
}

// Suggest returns up to three short replies for conversation.
func (s *AssistService) Suggest(ctx context.Context, conversation string) ([]string, error) {
	tr := otel.Tracer("services/AssistService")
	ctx, span := tr.Start(ctx, "Suggest",
		trace.WithAttributes(attribute.Int("conversation.len", len(conversation))),
	)
	defer span.End()

	conversation = strings.TrimSpace(conversation)
	if conversation == "" {
		return nil, ErrEmptyConversation
	}
	reply, err := s.complete(ctx, suggestPrompt, conversation)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return ParseSuggestions(reply), nil
}

// ParseSuggestions splits a model reply into at most three suggestions. An
// enumerated reply ("1. a 2. b") is split on the markers, otherwise on
// newlines or commas.
func ParseSuggestions(reply string) []string {
	parts := enumeratedRE.Split(reply, -1)
	if len(lo.Compact(lo.Map(parts, func(p string, _ int) string { return strings.TrimSpace(p) }))) <= 1 {
		parts = strings.FieldsFunc(reply, func(r rune) bool { return r == '\n' || r == ',' })
	}
	out := lo.Compact(lo.Map(parts, func(p string, _ int) string {
		return strings.TrimSpace(strings.Trim(strings.TrimSpace(p), `"-•`))
	}))
	out = lo.Uniq(out)
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

// Analyze labels message as negative or neutral.
func (s *AssistService) Analyze(ctx context.Context, message string) (Sentiment, error) {
	tr := otel.Tracer("services/AssistService")
	ctx, span := tr.Start(ctx, "Analyze",
		trace.WithAttributes(attribute.Int("message.len", len(message))),
	)
	defer span.End()

	message = strings.TrimSpace(message)
	if message == "" {
		return Sentiment{}, ErrEmptyMessage
	}
	reply, err := s.complete(ctx, analyzePrompt, message)
	if err != nil {
		span.RecordError(err)
		return Sentiment{}, err
	}
	return ParseSentiment(reply), nil
}

// ParseSentiment maps a model reply to a label. An exact one-word answer has
// confidence 1; a label found inside a longer answer has 0.5; anything else
// falls back to neutral with confidence 0.
func ParseSentiment(reply string) Sentiment {
	r := strings.ToLower(strings.Trim(strings.TrimSpace(reply), ".!'\""))
	switch r {
	case SentimentNegative, SentimentNeutral:
		return Sentiment{Label: r, Confidence: 1}
	}
	if strings.Contains(r, SentimentNegative) {
		return Sentiment{Label: SentimentNegative, Confidence: 0.5}
	}
	if strings.Contains(r, SentimentNeutral) {
		return Sentiment{Label: SentimentNeutral, Confidence: 0.5}
	}
	return Sentiment{Label: SentimentNeutral, Confidence: 0}
}
