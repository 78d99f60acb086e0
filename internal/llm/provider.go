package llm

import (
	"context"
	"errors"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider generates text for a single prompt.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ProviderFactory builds a Provider bound to a credential. It must not
// contact the remote service.
type ProviderFactory func(credential string) (Provider, error)

// Provider names accepted by NewFactory.
const (
	ProviderLangChain = "langchain"
	ProviderOpenAI    = "openai"
)

// ProviderConfig selects and parameterizes the model backend.
type ProviderConfig struct {
	Name        string
	BaseURL     string
	Model       string
	Temperature float64
}

// NewFactory returns the factory for cfg.Name.
func NewFactory(cfg ProviderConfig) (ProviderFactory, error) {
	switch cfg.Name {
	case ProviderLangChain, "":
		return LangChainFactory(cfg), nil
	case ProviderOpenAI:
		return OpenAIFactory(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Name)
	}
}

type langChainProvider struct {
	llm         llms.Model
	temperature float64
}

// LangChainFactory talks to an openai-compatible endpoint through langchaingo.
func LangChainFactory(cfg ProviderConfig) ProviderFactory {
	return func(credential string) (Provider, error) {
		opts := []openai.Option{
			openai.WithToken(credential),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, err
		}
		return &langChainProvider{llm: llm, temperature: cfg.Temperature}, nil
	}
}

func (p *langChainProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, p.llm, prompt, llms.WithTemperature(p.temperature))
}

type openAIProvider struct {
	client      *goopenai.Client
	model       string
	temperature float32
}

// OpenAIFactory uses the go-openai client directly.
func OpenAIFactory(cfg ProviderConfig) ProviderFactory {
	return func(credential string) (Provider, error) {
		clientCfg := goopenai.DefaultConfig(credential)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		return &openAIProvider{
			client:      goopenai.NewClientWithConfig(clientCfg),
			model:       cfg.Model,
			temperature: float32(cfg.Temperature),
		}, nil
	}
}

func (p *openAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: p.model,
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role:    goopenai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: p.temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in completion response")
	}
	return resp.Choices[0].Message.Content, nil
}
