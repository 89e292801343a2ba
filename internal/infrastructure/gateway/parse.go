package gateway

import (
	"encoding/json"
	"strings"

	"billing-ledger/internal/domain"
)

const (
	defaultRecognitionPrompt = "You read photos of shop orders and receipts. Extract every line item and " +
		"return a JSON object with an \"items\" array, where each item has \"name\", \"quantity\" (number) " +
		"and \"price\" (number). Output ONLY valid JSON."
	recognitionInstruction = "Extract the order details from this image. Return a JSON object with an " +
		"\"items\" array, each item with name, quantity (number) and price (number). If a total is shown, " +
		"include it as \"total\". Output ONLY valid JSON."
	analysisSystemPrompt = "You are an expert sales analyst for a small shop. Identify trends, " +
		"opportunities and risks in the data you are given. Format the answer with markdown. " +
		"Be concise and actionable."
)

func systemPrompt(override string) string {
	if p := strings.TrimSpace(override); p != "" {
		return p
	}
	return defaultRecognitionPrompt
}

func analysisPrompt(contextSummary, question string) string {
	return "Sales data:\n" + contextSummary + "\n\nQuestion: " + question
}

// StripCodeFences removes markdown code fences the model may wrap JSON in.
func StripCodeFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```JSON", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

type extraction struct {
	Items *[]ExtractedItem `json:"items"`
}

// ParseExtraction decodes a recognition response. The text must be a JSON
// object carrying an items array once fences are stripped.
func ParseExtraction(text string) ([]ExtractedItem, error) {
	cleaned := StripCodeFences(text)
	if cleaned == "" {
		return nil, domain.NewRecognitionError("empty response", nil)
	}

	var out extraction
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, domain.NewRecognitionError("response is not valid JSON", err)
	}
	if out.Items == nil {
		return nil, domain.NewRecognitionError("response has no items array", nil)
	}
	return *out.Items, nil
}
