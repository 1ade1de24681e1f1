package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iconidentify/scriptcast/internal/repository"
	"github.com/iconidentify/scriptcast/pkg/openrouter"
)

// systemPromptKey is the config-store key for the chat system prompt.
const systemPromptKey = "system_prompt"

// defaultSystemPrompt is used until an operator stores a custom one.
const defaultSystemPrompt = "You are a helpful scriptwriting tutor. Help the user draft, refine, and finalize two short video scripts."

// ChatService proxies chat messages to the completion API and manages
// the stored system prompt. The prompt lives in a single config-store
// row, not in process memory, so edits survive restarts and apply
// across replicas.
type ChatService struct {
	chat         openrouter.Client
	configs      repository.ConfigRepository
	defaultModel string
	logger       *slog.Logger
}

// NewChatService creates a new chat service.
func NewChatService(
	chat openrouter.Client,
	configs repository.ConfigRepository,
	defaultModel string,
	logger *slog.Logger,
) *ChatService {
	return &ChatService{
		chat:         chat,
		configs:      configs,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

// Chat sends the user's input with the current system prompt and
// returns the model's reply.
func (s *ChatService) Chat(ctx context.Context, userInput, model, language string) (string, error) {
	if model == "" {
		model = s.defaultModel
	}

	prompt, err := s.SystemPrompt(ctx)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(language, "zh") {
		prompt += "\nIf the user speaks in Chinese, please respond in Chinese."
	}

	messages := []openrouter.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: userInput},
	}

	reply, err := s.chat.Send(ctx, messages, model)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	return reply, nil
}

// SystemPrompt returns the stored system prompt, or the default when
// none has been stored yet.
func (s *ChatService) SystemPrompt(ctx context.Context) (string, error) {
	prompt, err := s.configs.GetConfig(ctx, systemPromptKey)
	if err != nil {
		return "", fmt.Errorf("load system prompt: %w", err)
	}
	if prompt == "" {
		return defaultSystemPrompt, nil
	}
	return prompt, nil
}

// SetSystemPrompt stores a new system prompt.
func (s *ChatService) SetSystemPrompt(ctx context.Context, prompt string) error {
	if err := s.configs.SetConfig(ctx, systemPromptKey, prompt); err != nil {
		return fmt.Errorf("store system prompt: %w", err)
	}
	s.logger.Info("system prompt updated", "length", len(prompt))
	return nil
}
