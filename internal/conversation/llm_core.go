package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/nlpodyssey/openai-agents-go/modelsettings"
	"github.com/openai/openai-go/v2/packages/param"
)

// LLMCore wraps a single configured openai-agents-go model provider,
// generalized from the teacher's AgentLLM engine registry (pick one of N
// engines per call) to one engine per process, since a voice backend
// instance serves one conversational persona. The core interface stays
// request/response even though the underlying SDK call streams
// internally — the backend (I) gets its own incremental text via word
// chunking in step 6, independent of whether this core streamed.
type LLMCore struct {
	provider     agents.ModelProvider
	model        string
	systemPrompt string
	maxTokens    int
}

// NewLLMCore creates an LLMCore bound to provider/model, with systemPrompt
// used as the agent's base instructions (per-turn `instructions` from a
// commit event are appended, not replaced).
func NewLLMCore(provider agents.ModelProvider, model, systemPrompt string, maxTokens int) *LLMCore {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &LLMCore{provider: provider, model: model, systemPrompt: systemPrompt, maxTokens: maxTokens}
}

// Respond runs one turn, consuming the SDK's streamed deltas internally,
// and returns the full assistant text.
func (c *LLMCore) Respond(ctx context.Context, userText, instructions string) (string, error) {
	prompt := c.systemPrompt
	if instructions != "" {
		prompt = strings.TrimSpace(prompt + "\n" + instructions)
	}

	agent := agents.New("assistant").
		WithInstructions(prompt).
		WithModel(c.model).
		WithModelSettings(modelsettings.ModelSettings{
			MaxTokens: param.NewOpt(int64(c.maxTokens)),
		})

	runner := agents.Runner{Config: agents.RunConfig{
		ModelProvider:   c.provider,
		MaxTurns:        1,
		TracingDisabled: true,
	}}

	events, errCh, err := runner.RunStreamedChan(ctx, agent, userText)
	if err != nil {
		return "", fmt.Errorf("llm stream start: %w", err)
	}

	var text strings.Builder
	for ev := range events {
		raw, ok := ev.(agents.RawResponsesStreamEvent)
		if !ok {
			continue
		}
		if raw.Data.Type == "response.output_text.delta" {
			text.WriteString(raw.Data.Delta)
		}
	}
	if streamErr := <-errCh; streamErr != nil {
		return "", fmt.Errorf("llm stream: %w", streamErr)
	}

	return text.String(), nil
}
