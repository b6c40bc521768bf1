package rag

import (
	"context"
	"strings"

	"gopherai-docqa/internal/ai"
)

// GenerationOptions are the per-session sampling settings.
type GenerationOptions struct {
	Temperature float64
	MaxTokens   int
}

// Generator answers a question from retrieved context.
type Generator interface {
	Generate(ctx context.Context, contextChunks []string, question string, opts GenerationOptions) (string, error)
}

// ChatClient is the slice of the model API the generator needs.
type ChatClient interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
}

const contextSeparator = "\n\n"

// LLMGenerator fills the prompt template and makes one chat completion call.
// Failures are not retried.
type LLMGenerator struct {
	client ChatClient
	cfg    ai.ChatConfig
}

func NewLLMGenerator(client ChatClient, cfg ai.ChatConfig) *LLMGenerator {
	return &LLMGenerator{client: client, cfg: cfg}
}

func (g *LLMGenerator) Model() string { return g.cfg.Model }

func (g *LLMGenerator) Generate(ctx context.Context, contextChunks []string, question string, opts GenerationOptions) (string, error) {
	cfg := g.cfg
	cfg.Temperature = opts.Temperature
	cfg.MaxTokens = opts.MaxTokens

	messages := []ai.ChatMessage{
		{Role: "user", Content: composePrompt(contextChunks, question)},
	}
	answer, err := g.client.Complete(ctx, cfg, messages)
	if err != nil {
		return "", NewError(KindGeneration, "language model call failed", err)
	}
	return answer, nil
}

func composePrompt(contextChunks []string, question string) string {
	var b strings.Builder
	b.WriteString("Answer the following question based only on the provided context:\n\n")
	b.WriteString("<context>\n")
	b.WriteString(strings.Join(contextChunks, contextSeparator))
	b.WriteString("\n</context>\n\n")
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n")
	return b.String()
}
