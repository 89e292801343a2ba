package gateway

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"billing-ledger/internal/domain"
)

const (
	DefaultOpenAIBaseURL     = "https://api.deepseek.com/v1"
	DefaultOpenAIVisionModel = "deepseek-vl-1.3-large"
	DefaultOpenAIChatModel   = "deepseek-chat"
	defaultMaxTokens         = 1000
)

// OpenAIProvider talks to any OpenAI-compatible chat completions API.
// DeepSeek is the default endpoint.
type OpenAIProvider struct {
	BaseURL     string
	VisionModel string
	ChatModel   string
	MaxTokens   int
	HTTPClient  *http.Client
}

func NewOpenAIProvider(baseURL, visionModel, chatModel string) *OpenAIProvider {
	p := &OpenAIProvider{
		BaseURL:     baseURL,
		VisionModel: visionModel,
		ChatModel:   chatModel,
		MaxTokens:   defaultMaxTokens,
	}
	if p.BaseURL == "" {
		p.BaseURL = DefaultOpenAIBaseURL
	}
	if p.VisionModel == "" {
		p.VisionModel = DefaultOpenAIVisionModel
	}
	if p.ChatModel == "" {
		p.ChatModel = DefaultOpenAIChatModel
	}
	return p
}

// client is built per call from the caller's credentials.
func (p *OpenAIProvider) client(creds Credentials) *openai.Client {
	cfg := openai.DefaultConfig(creds.APIKey)
	cfg.BaseURL = strings.TrimRight(p.BaseURL, "/")
	if p.HTTPClient != nil {
		cfg.HTTPClient = p.HTTPClient
	}
	return openai.NewClientWithConfig(cfg)
}

func (p *OpenAIProvider) ExtractOrderItems(ctx context.Context, img Image, creds Credentials, promptOverride string) ([]ExtractedItem, error) {
	if creds.APIKey == "" {
		return nil, domain.NewRecognitionError("API key is required", nil)
	}
	if len(img.Data) == 0 {
		return nil, domain.NewRecognitionError("image is empty", nil)
	}

	dataURL := "data:" + img.MimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
	req := openai.ChatCompletionRequest{
		Model:     p.VisionModel,
		MaxTokens: p.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(promptOverride)},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: recognitionInstruction},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailAuto,
					}},
				},
			},
		},
	}

	text, err := p.complete(ctx, creds, req)
	if err != nil {
		log.WithError(err).WithField("model", p.VisionModel).Warn("recognition request failed")
		return nil, domain.NewRecognitionError("request failed", err)
	}
	return ParseExtraction(text)
}

func (p *OpenAIProvider) AnalyzeDemand(ctx context.Context, contextSummary, question string, creds Credentials) (string, error) {
	if creds.APIKey == "" {
		return "", domain.NewAnalysisError("API key is required", nil)
	}

	req := openai.ChatCompletionRequest{
		Model: p.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: analysisPrompt(contextSummary, question)},
		},
	}

	text, err := p.complete(ctx, creds, req)
	if err != nil {
		log.WithError(err).WithField("model", p.ChatModel).Warn("analysis request failed")
		return "", domain.NewAnalysisError("request failed", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.NewAnalysisError("empty response", nil)
	}
	return text, nil
}

func (p *OpenAIProvider) complete(ctx context.Context, creds Credentials, req openai.ChatCompletionRequest) (string, error) {
	resp, err := p.client(creds).CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
