package storage

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"billing-ledger/internal/domain"
)

// Collection keys. The names match what the UI has always written. The
// settings keys may hold a bare string rather than a JSON one; use ReadText
// for those.
const (
	KeyCustomers         = "billing_customers"
	KeyOrders            = "billing_orders"
	KeyFrequentGoods     = "billing_frequent_goods"
	KeyRecognitionAPIKey = "deepseek_api_key"
	KeyRecognitionPrompt = "deepseek_recognition_prompt"
	KeyAnalysisAPIKey    = "gemini_api_key"
)

// LedgerKeys lists every key owned by the ledger.
var LedgerKeys = []string{
	KeyCustomers,
	KeyOrders,
	KeyFrequentGoods,
	KeyRecognitionAPIKey,
	KeyRecognitionPrompt,
	KeyAnalysisAPIKey,
}

var ErrKeyNotFound = errors.New("key not found")

// Store is a durable key-value store holding one JSON document per key.
// Put replaces the whole value; there is no partial merge.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// Read decodes the value stored under key. A missing, unreadable or
// malformed value yields def; the failure is logged and never returned.
func Read[T any](ctx context.Context, s Store, key string, def T) T {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			log.WithError(err).WithField("key", key).Warn("storage read failed, using default")
		}
		return def
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		log.WithError(err).WithField("key", key).Warn("stored value is malformed, using default")
		return def
	}
	return v
}

// Load is Read for read-modify-write paths. A missing or malformed value
// still yields def, but a failing Get is returned wrapped in
// domain.ErrStorage so the caller never writes over data it could not see.
func Load[T any](ctx context.Context, s Store, key string, def T) (T, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return def, nil
	}
	if err != nil {
		return def, errors.Wrapf(domain.ErrStorage, "read %s: %v", key, err)
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		log.WithError(err).WithField("key", key).Warn("stored value is malformed, using default")
		return def, nil
	}
	return v, nil
}

// ReadText reads a string value that was stored either JSON-encoded or as
// raw text.
func ReadText(ctx context.Context, s Store, key string) string {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			log.WithError(err).WithField("key", key).Warn("storage read failed, using default")
		}
		return ""
	}

	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

// Write encodes value and stores it under key. Failures wrap domain.ErrStorage
// so callers know the mutation was not committed.
func Write[T any](ctx context.Context, s Store, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(domain.ErrStorage, "encode %s: %v", key, err)
	}
	if err := s.Put(ctx, key, raw); err != nil {
		return errors.Wrapf(domain.ErrStorage, "write %s: %v", key, err)
	}
	return nil
}

// Clear removes every ledger key.
func Clear(ctx context.Context, s Store) error {
	for _, key := range LedgerKeys {
		if err := s.Delete(ctx, key); err != nil {
			return errors.Wrapf(domain.ErrStorage, "delete %s: %v", key, err)
		}
	}
	return nil
}
