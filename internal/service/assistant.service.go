package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"billing-ledger/internal/domain"
	"billing-ledger/internal/infrastructure/gateway"
	"billing-ledger/internal/repo"
)

const (
	recentOrdersForAnalysis = 50
	unknownItemName         = "Unknown Item"
)

// Assistant runs the recognition and analysis features. It only reads the
// ledger; drafts it returns still go through PlaceOrder.
type Assistant interface {
	// RecognizeOrder turns a photo into line item drafts for the operator
	// to review.
	RecognizeOrder(ctx context.Context, img gateway.Image) ([]domain.LineItemInput, error)
	AnalyzeDemand(ctx context.Context, question string) (string, error)
	AnalysisContext(ctx context.Context) domain.AnalysisContext
}

type assistant struct {
	gateway   gateway.Gateway
	settings  repo.SettingsRepo
	customers repo.CustomerRepo
	orders    repo.OrderRepo
	location  *time.Location
	now       func() time.Time
}

func NewAssistant(
	gw gateway.Gateway,
	settings repo.SettingsRepo,
	customers repo.CustomerRepo,
	orders repo.OrderRepo,
	location *time.Location,
) Assistant {
	if location == nil {
		location = time.UTC
	}
	return &assistant{
		gateway:   gw,
		settings:  settings,
		customers: customers,
		orders:    orders,
		location:  location,
		now:       time.Now,
	}
}

func (s *assistant) RecognizeOrder(ctx context.Context, img gateway.Image) ([]domain.LineItemInput, error) {
	if len(img.Data) == 0 {
		return nil, domain.NewValidationError("image", "image is required")
	}

	settings := s.settings.Get(ctx)
	if settings.RecognitionAPIKey == "" {
		return nil, domain.NewRecognitionError("recognition API key is not configured", nil)
	}

	extracted, err := s.gateway.ExtractOrderItems(ctx, img, gateway.Credentials{APIKey: settings.RecognitionAPIKey}, settings.RecognitionPrompt)
	if err != nil {
		return nil, err
	}

	drafts := make([]domain.LineItemInput, 0, len(extracted))
	for _, item := range extracted {
		drafts = append(drafts, draftFromExtraction(item))
	}
	log.WithField("items", len(drafts)).Info("order recognized")
	return drafts, nil
}

func draftFromExtraction(item gateway.ExtractedItem) domain.LineItemInput {
	draft := domain.LineItemInput{
		Name:     strings.TrimSpace(item.Name),
		Quantity: decimal.NewFromInt(1),
		Price:    item.Price,
	}
	if draft.Name == "" {
		draft.Name = unknownItemName
	}
	if item.Quantity.Valid {
		draft.Quantity = item.Quantity.Decimal
	}
	return draft
}

func (s *assistant) AnalyzeDemand(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", domain.NewValidationError("question", "question is required")
	}

	settings := s.settings.Get(ctx)
	if settings.AnalysisAPIKey == "" {
		return "", domain.NewAnalysisError("analysis API key is not configured", nil)
	}

	summary, err := json.Marshal(s.AnalysisContext(ctx))
	if err != nil {
		return "", errors.Wrap(err, "encode analysis context")
	}
	return s.gateway.AnalyzeDemand(ctx, string(summary), question, gateway.Credentials{APIKey: settings.AnalysisAPIKey})
}

func (s *assistant) AnalysisContext(ctx context.Context) domain.AnalysisContext {
	orders := s.orders.List(ctx)
	customers := s.customers.List(ctx)
	now := s.now()

	recent := orders
	if len(recent) > recentOrdersForAnalysis {
		recent = recent[:recentOrdersForAnalysis]
	}

	summary := make([]domain.CustomerSummary, 0, len(customers))
	for _, c := range customers {
		summary = append(summary, domain.CustomerSummary{Name: c.Name, TotalSpent: c.TotalSpent})
	}

	return domain.AnalysisContext{
		TotalOrders:     len(orders),
		TotalCustomers:  len(customers),
		RecentOrders:    recent,
		CustomerSummary: summary,
		Date:            now.In(s.location).Format(domain.DateLayout),
		GeneratedAt:     now.UTC(),
	}
}
