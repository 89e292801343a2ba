package main

import (
	"context"

	"github.com/pkg/errors"

	"billing-ledger/internal/config"
	"billing-ledger/internal/database"
	"billing-ledger/internal/infrastructure/gateway"
	"billing-ledger/internal/infrastructure/storage"
	"billing-ledger/internal/repo"
	"billing-ledger/internal/service"
	"billing-ledger/internal/transport"
	"billing-ledger/internal/worker"
)

// app holds everything a command needs, built from one Config.
type app struct {
	cfg       *config.Config
	db        database.Service
	store     storage.Store
	customers repo.CustomerRepo
	orders    repo.OrderRepo
	goods     repo.GoodsRepo
	settings  repo.SettingsRepo
	ledger    service.Ledger
	assistant service.Assistant
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := database.New(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	store := storage.NewSQLStore(db.DB())
	opts := []repo.Option{
		repo.WithLocation(cfg.Location()),
		repo.WithDefaultStatus(cfg.OrderStatus()),
	}

	a := &app{
		cfg:       cfg,
		db:        db,
		store:     store,
		customers: repo.NewCustomerRepo(store, opts...),
		orders:    repo.NewOrderRepo(store, opts...),
		goods:     repo.NewGoodsRepo(store),
		settings:  repo.NewSettingsRepo(store),
	}

	recognizer, err := newProvider(cfg.Recognition)
	if err != nil {
		db.Close()
		return nil, err
	}
	analyzer, err := newProvider(cfg.Analysis)
	if err != nil {
		db.Close()
		return nil, err
	}

	a.ledger = service.NewLedger(store, a.customers, a.orders, cfg.Location(), cfg.ShopName)
	a.assistant = service.NewAssistant(gateway.New(recognizer, analyzer), a.settings, a.customers, a.orders, cfg.Location())
	return a, nil
}

func newProvider(pc config.ProviderConfig) (gateway.Gateway, error) {
	switch pc.Provider {
	case config.ProviderOpenAI:
		return gateway.NewOpenAIProvider(pc.BaseURL, pc.VisionModel, pc.ChatModel), nil
	case config.ProviderGemini:
		return gateway.NewGeminiProvider(pc.BaseURL, pc.VisionModel, pc.ChatModel), nil
	}
	return nil, errors.Errorf("unknown provider %q", pc.Provider)
}

func (a *app) handler() *transport.Handler {
	return &transport.Handler{
		Ledger:    a.ledger,
		Assistant: a.assistant,
		Customers: a.customers,
		Orders:    a.orders,
		Goods:     a.goods,
		Settings:  a.settings,
		Health:    a.db,
		Location:  a.cfg.Location(),
	}
}

func (a *app) reconciler() *worker.ReconciliationWorker {
	return worker.NewReconciliationWorker(a.orders, a.ledger, a.cfg.ReconcileInterval, a.cfg.ReconcileGrace)
}

func (a *app) Close() error {
	return a.db.Close()
}
