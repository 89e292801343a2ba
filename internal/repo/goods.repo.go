package repo

import (
	"context"
	"strings"
	"sync"

	"billing-ledger/internal/domain"
	"billing-ledger/internal/infrastructure/storage"
)

// GoodsRepo keeps the operator's list of frequently sold item names.
type GoodsRepo interface {
	List(ctx context.Context) []string
	// Add appends name unless it is already present and returns the list.
	Add(ctx context.Context, name string) ([]string, error)
}

type goodsRepo struct {
	mu    sync.Mutex
	store storage.Store
}

func NewGoodsRepo(store storage.Store) GoodsRepo {
	return &goodsRepo{store: store}
}

func (r *goodsRepo) List(ctx context.Context) []string {
	return storage.Read(ctx, r.store, storage.KeyFrequentGoods, []string{})
}

func (r *goodsRepo) Add(ctx context.Context, name string) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("name", "name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	goods, err := storage.Load(ctx, r.store, storage.KeyFrequentGoods, []string{})
	if err != nil {
		return nil, err
	}
	for _, g := range goods {
		if g == name {
			return goods, nil
		}
	}
	goods = append(goods, name)
	if err := storage.Write(ctx, r.store, storage.KeyFrequentGoods, goods); err != nil {
		return nil, err
	}
	return goods, nil
}
