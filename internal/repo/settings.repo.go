package repo

import (
	"context"
	"strings"

	"billing-ledger/internal/infrastructure/storage"
)

// Settings are operator-supplied values. They are handed to the gateway on
// every call; nothing else keeps a copy.
type Settings struct {
	RecognitionAPIKey string `json:"recognitionApiKey"`
	RecognitionPrompt string `json:"recognitionPrompt"`
	AnalysisAPIKey    string `json:"analysisApiKey"`
}

// Masked returns a copy safe to show in the UI.
func (s Settings) Masked() Settings {
	s.RecognitionAPIKey = MaskKey(s.RecognitionAPIKey)
	s.AnalysisAPIKey = MaskKey(s.AnalysisAPIKey)
	return s
}

// MaskKey keeps the first and last four characters of keys longer than eight.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

type SettingsRepo interface {
	Get(ctx context.Context) Settings
	// Save writes every non-nil field of update.
	Save(ctx context.Context, update SettingsUpdate) (Settings, error)
}

type SettingsUpdate struct {
	RecognitionAPIKey *string `json:"recognitionApiKey"`
	RecognitionPrompt *string `json:"recognitionPrompt"`
	AnalysisAPIKey    *string `json:"analysisApiKey"`
}

type settingsRepo struct {
	store storage.Store
}

func NewSettingsRepo(store storage.Store) SettingsRepo {
	return &settingsRepo{store: store}
}

func (r *settingsRepo) Get(ctx context.Context) Settings {
	return Settings{
		RecognitionAPIKey: storage.ReadText(ctx, r.store, storage.KeyRecognitionAPIKey),
		RecognitionPrompt: storage.ReadText(ctx, r.store, storage.KeyRecognitionPrompt),
		AnalysisAPIKey:    storage.ReadText(ctx, r.store, storage.KeyAnalysisAPIKey),
	}
}

func (r *settingsRepo) Save(ctx context.Context, update SettingsUpdate) (Settings, error) {
	fields := []struct {
		key   string
		value *string
	}{
		{storage.KeyRecognitionAPIKey, update.RecognitionAPIKey},
		{storage.KeyRecognitionPrompt, update.RecognitionPrompt},
		{storage.KeyAnalysisAPIKey, update.AnalysisAPIKey},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if err := storage.Write(ctx, r.store, f.key, strings.TrimSpace(*f.value)); err != nil {
			return Settings{}, err
		}
	}
	return r.Get(ctx), nil
}
