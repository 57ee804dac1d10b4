package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/clinic-booking-assistant/internal/app/bootstrap"
	"github.com/wolfman30/clinic-booking-assistant/internal/availability"
	"github.com/wolfman30/clinic-booking-assistant/internal/clinic"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/conversation"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	info, err := clinic.LoadInfoOrDefault(cfg.ClinicDataPath)
	if err != nil {
		log.Fatalf("load clinic info: %v", err)
	}

	// A short dialogue asking for the open slots.
	messages := []conversation.ChatMessage{
		{Role: conversation.ChatRoleSystem, Content: conversation.BuildSystemPrompt(info, info.Calendar, availability.Slot{})},
		{Role: conversation.ChatRoleUser, Content: "Olá, gostaria de marcar uma consulta."},
		{Role: conversation.ChatRoleAssistant, Content: "Claro! Para começar, qual é o seu nome completo?"},
		{Role: conversation.ChatRoleUser, Content: "Antes disso, quais horários vocês têm disponíveis?"},
	}
	req := conversation.LLMRequest{
		Messages:    messages,
		MaxTokens:   200,
		Temperature: 0.7,
	}

	divider := strings.Repeat("=", 60)
	fmt.Println(divider)
	fmt.Println("LLM Provider Test")
	fmt.Println(divider)

	client, err := bootstrap.BuildLLMClient(ctx, cfg, logger)
	if err != nil {
		fmt.Printf("❌ Failed to configure %s: %v\n", cfg.LLMProvider, err)
		os.Exit(1)
	}

	start := time.Now()
	resp, err := client.Complete(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		fmt.Printf("❌ %s error: %v\n", cfg.LLMProvider, err)
		os.Exit(1)
	}
	fmt.Printf("✅ %s response (%v):\n", cfg.LLMProvider, elapsed.Round(time.Millisecond))
	fmt.Printf("   %s\n", resp.Text)
	fmt.Printf("   Tokens: in=%d, out=%d, stop=%s\n", resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.StopReason)
	if cfg.LLMFallbackProvider != "" {
		fmt.Printf("\nFallback provider %q is used when %q fails.\n", cfg.LLMFallbackProvider, cfg.LLMProvider)
	}
}
