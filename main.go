package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/RichardoC/pad-chat/internal/config"
	"github.com/RichardoC/pad-chat/internal/llm"
	"go.uber.org/zap"
)

// Sends one prompt to the configured model and prints the reply. Useful for
// checking LLM_* settings before starting the server.
func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	factory, err := llm.NewFactory(cfg.ProviderConfig())
	if err != nil {
		logger.Fatal("failed to initialize provider", zap.Error(err))
	}
	client := llm.New(factory, llm.WithTimeout(cfg.LLMTimeout), llm.WithProviderName(cfg.LLMProvider), llm.WithLogger(logger))

	ctx := context.Background()
	if !client.Configure(ctx, cfg.LLMAPIKey) {
		logger.Fatal("LLM_API_KEY is required")
	}

	prompt := "What would be a good company name for a company that makes colorful socks?"
	if len(os.Args) > 1 {
		prompt = strings.Join(os.Args[1:], " ")
	}
	completion, err := client.Complete(ctx, prompt)
	if err != nil {
		logger.Fatal("failed to generate completion", zap.Error(err))
	}
	fmt.Println(completion)
}
