package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/SwaroopMeher/deep-research-agent/internal/model"
)

// LLMExtractor is an Extract capability backed by a chat-completion
// model. It replaces the built-in template heuristics when configured;
// credibility assessment stays heuristic either way.
type LLMExtractor struct {
	client    *openai.Client
	modelName string
	maxTokens int
}

// NewLLMExtractor creates an extractor from LLM configuration
func NewLLMExtractor(cfg model.LLMConfig) (*LLMExtractor, error) {
	if cfg.Provider != "openai" {
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai)", cfg.Provider)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = openai.GPT4oMini
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	return &LLMExtractor{
		client:    openai.NewClientWithConfig(clientConfig),
		modelName: modelName,
		maxTokens: maxTokens,
	}, nil
}

// extractionPayload is the JSON shape the model is instructed to emit
type extractionPayload struct {
	Claims []struct {
		Text            string `json:"text"`
		Contradicts     bool   `json:"contradicts"`
		StrongCertainty bool   `json:"strong_certainty"`
	} `json:"claims"`
	Leads []string `json:"leads"`
}

const extractSystemPrompt = `You extract factual claims from web documents.
Return strict JSON: {"claims":[{"text":...,"contradicts":false,"strong_certainty":false}],"leads":["url",...]}.
Rules: claims must be verbatim or near-verbatim statements from the document, never inferred.
Set contradicts=true only when the document explicitly denies a statement it quotes.
Set strong_certainty=true only for statements the document asserts without hedging.
Leads are outbound URLs the document cites as its own sources. Emit nothing else.`

// Extract asks the model for claims and leads in strict JSON
func (e *LLMExtractor) Extract(ctx context.Context, doc *model.Document, category model.SourceCategory) ([]model.Claim, []string, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Source category: %s\nURL: %s\n\n%s", category, doc.URL, truncate(doc.Body, 16000))},
		},
		MaxTokens:   e.maxTokens,
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, nil, &model.ProviderError{Op: "extract", Target: doc.URL, Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, nil, &model.ProviderError{Op: "extract", Target: doc.URL, Err: fmt.Errorf("no response from model")}
	}

	var payload extractionPayload
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, nil, &model.ProviderError{Op: "extract", Target: doc.URL, Err: fmt.Errorf("parse extraction: %w", err)}
	}

	claims := make([]model.Claim, 0, len(payload.Claims))
	for _, c := range payload.Claims {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		claims = append(claims, model.Claim{
			Text:            strings.TrimSpace(c.Text),
			Contradicts:     c.Contradicts,
			StrongCertainty: c.StrongCertainty,
		})
	}
	return claims, payload.Leads, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
