package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// Image is a photo of a handwritten or printed order.
type Image struct {
	Data     []byte
	MimeType string
}

// Credentials are supplied by the caller on every call.
type Credentials struct {
	APIKey string
}

// ExtractedItem is a line proposed by the model. Quantity and Price are
// invalid when the model left them out.
type ExtractedItem struct {
	Name     string              `json:"name"`
	Quantity decimal.NullDecimal `json:"quantity"`
	Price    decimal.NullDecimal `json:"price"`
}

type Recognizer interface {
	// ExtractOrderItems sends the image to a vision model and returns the
	// items it found. promptOverride replaces the default system prompt.
	ExtractOrderItems(ctx context.Context, img Image, creds Credentials, promptOverride string) ([]ExtractedItem, error)
}

type Analyzer interface {
	// AnalyzeDemand answers question over contextSummary and returns the
	// model's markdown unchanged.
	AnalyzeDemand(ctx context.Context, contextSummary, question string, creds Credentials) (string, error)
}

// Gateway is the single boundary to external recognition and analysis
// services. Calls are single-shot: no retry, no streaming, no caching.
type Gateway interface {
	Recognizer
	Analyzer
}

type gateway struct {
	Recognizer
	Analyzer
}

// New combines independently chosen providers into one Gateway.
func New(recognizer Recognizer, analyzer Analyzer) Gateway {
	return &gateway{Recognizer: recognizer, Analyzer: analyzer}
}
