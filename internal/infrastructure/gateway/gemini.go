package gateway

import (
	"context"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"billing-ledger/internal/domain"
)

const (
	DefaultGeminiVisionModel = "gemini-1.5-flash"
	DefaultGeminiChatModel   = "gemini-1.5-flash"
)

type GeminiProvider struct {
	// BaseURL overrides the Gemini API endpoint. Empty uses the SDK default.
	BaseURL     string
	VisionModel string
	ChatModel   string
	HTTPClient  *http.Client
}

func NewGeminiProvider(baseURL, visionModel, chatModel string) *GeminiProvider {
	p := &GeminiProvider{
		BaseURL:     baseURL,
		VisionModel: visionModel,
		ChatModel:   chatModel,
	}
	if p.VisionModel == "" {
		p.VisionModel = DefaultGeminiVisionModel
	}
	if p.ChatModel == "" {
		p.ChatModel = DefaultGeminiChatModel
	}
	return p
}

func (p *GeminiProvider) client(ctx context.Context, creds Credentials) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:     creds.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: p.HTTPClient,
	}
	if p.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.BaseURL}
	}
	return genai.NewClient(ctx, cfg)
}

func (p *GeminiProvider) ExtractOrderItems(ctx context.Context, img Image, creds Credentials, promptOverride string) ([]ExtractedItem, error) {
	if creds.APIKey == "" {
		return nil, domain.NewRecognitionError("API key is required", nil)
	}
	if len(img.Data) == 0 {
		return nil, domain.NewRecognitionError("image is empty", nil)
	}

	parts := []*genai.Part{
		genai.NewPartFromText(recognitionInstruction),
		genai.NewPartFromBytes(img.Data, img.MimeType),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt(promptOverride), genai.RoleUser),
	}

	text, err := p.generate(ctx, creds, p.VisionModel, parts, config)
	if err != nil {
		log.WithError(err).WithField("model", p.VisionModel).Warn("recognition request failed")
		return nil, domain.NewRecognitionError("request failed", err)
	}
	return ParseExtraction(text)
}

func (p *GeminiProvider) AnalyzeDemand(ctx context.Context, contextSummary, question string, creds Credentials) (string, error) {
	if creds.APIKey == "" {
		return "", domain.NewAnalysisError("API key is required", nil)
	}

	parts := []*genai.Part{genai.NewPartFromText(analysisPrompt(contextSummary, question))}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(analysisSystemPrompt, genai.RoleUser),
	}

	text, err := p.generate(ctx, creds, p.ChatModel, parts, config)
	if err != nil {
		log.WithError(err).WithField("model", p.ChatModel).Warn("analysis request failed")
		return "", domain.NewAnalysisError("request failed", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.NewAnalysisError("empty response", nil)
	}
	return text, nil
}

func (p *GeminiProvider) generate(ctx context.Context, creds Credentials, model string, parts []*genai.Part, config *genai.GenerateContentConfig) (string, error) {
	client, err := p.client(ctx, creds)
	if err != nil {
		return "", err
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
