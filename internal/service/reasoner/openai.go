package reasoner

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Temperature is the fixed sampling temperature. Kept low so the same
// question yields consistent estimates.
const Temperature float32 = 0.2

// OpenAIConfig configures an OpenAI-compatible chat reasoner.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // Empty uses the provider default.
	Model   string
	Timeout time.Duration
	// HTTPClient overrides the transport; tests point it at httptest servers.
	HTTPClient *http.Client
}

// ChatReasoner completes prompts with an eino chat model.
type ChatReasoner struct {
	chat  model.BaseChatModel
	model string
}

// NewOpenAI creates a ChatReasoner backed by eino's OpenAI chat model.
func NewOpenAI(ctx context.Context, cfg OpenAIConfig) (*ChatReasoner, error) {
	temperature := Temperature
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Timeout:     cfg.Timeout,
		HTTPClient:  cfg.HTTPClient,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("reasoner: init openai chat model: %w", err)
	}
	return NewChatReasoner(cm, cfg.Model), nil
}

// NewChatReasoner wraps any eino chat model.
func NewChatReasoner(chat model.BaseChatModel, modelName string) *ChatReasoner {
	return &ChatReasoner{chat: chat, model: modelName}
}

// Model returns the configured model name.
func (r *ChatReasoner) Model() string { return r.model }

// Complete sends the directive as the system message and the user content as
// the user message, and returns the raw reply text.
func (r *ChatReasoner) Complete(ctx context.Context, p Prompt) (string, error) {
	messages := []*schema.Message{
		{Role: schema.System, Content: p.System},
		{Role: schema.User, Content: p.User},
	}
	resp, err := r.chat.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("reasoner: generate: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyReply
	}
	return resp.Content, nil
}
