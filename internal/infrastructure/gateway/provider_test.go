package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billing-ledger/internal/domain"
)

func chatCompletion(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "test",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(body)
}

// fakeOpenAI serves /chat/completions with reply and records the last request body.
func fakeOpenAI(t *testing.T, status int, reply string) (*httptest.Server, *string) {
	t.Helper()
	var lastBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		lastBody = string(raw)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, &lastBody
}

func TestOpenAIExtractOrderItems(t *testing.T) {
	ctx := context.Background()
	creds := Credentials{APIKey: "sk-test"}
	img := Image{Data: []byte{0x89, 'P', 'N', 'G'}, MimeType: "image/png"}

	t.Run("Success", func(t *testing.T) {
		srv, body := fakeOpenAI(t, http.StatusOK, chatCompletion("```json\n{\"items\":[{\"name\":\"X\",\"quantity\":1,\"price\":2}]}\n```"))
		p := NewOpenAIProvider(srv.URL, "", "")

		items, err := p.ExtractOrderItems(ctx, img, creds, "custom prompt")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "X", items[0].Name)

		assert.Contains(t, *body, "data:image/png;base64,")
		assert.Contains(t, *body, "custom prompt")
		assert.Contains(t, *body, DefaultOpenAIVisionModel)
	})

	t.Run("Reply without items", func(t *testing.T) {
		srv, _ := fakeOpenAI(t, http.StatusOK, chatCompletion("I see a cat."))
		_, err := NewOpenAIProvider(srv.URL, "", "").ExtractOrderItems(ctx, img, creds, "")
		assert.ErrorIs(t, err, domain.ErrRecognition)
	})

	t.Run("Upstream error", func(t *testing.T) {
		srv, _ := fakeOpenAI(t, http.StatusUnauthorized, `{"error":{"message":"bad key","type":"auth"}}`)
		_, err := NewOpenAIProvider(srv.URL, "", "").ExtractOrderItems(ctx, img, creds, "")
		assert.ErrorIs(t, err, domain.ErrRecognition)
	})

	t.Run("Missing key", func(t *testing.T) {
		_, err := NewOpenAIProvider("http://127.0.0.1:0", "", "").ExtractOrderItems(ctx, img, Credentials{}, "")
		assert.ErrorIs(t, err, domain.ErrRecognition)
	})
}

func TestOpenAIAnalyzeDemand(t *testing.T) {
	ctx := context.Background()
	creds := Credentials{APIKey: "sk-test"}

	t.Run("Returns markdown unchanged", func(t *testing.T) {
		srv, body := fakeOpenAI(t, http.StatusOK, chatCompletion("## Trends\n- Tea sells on Fridays"))
		answer, err := NewOpenAIProvider(srv.URL, "", "").AnalyzeDemand(ctx, `{"totalOrders":3}`, "What sells best?", creds)
		require.NoError(t, err)
		assert.Equal(t, "## Trends\n- Tea sells on Fridays", answer)
		assert.Contains(t, *body, "What sells best?")
		assert.Contains(t, *body, DefaultOpenAIChatModel)
	})

	t.Run("Empty reply", func(t *testing.T) {
		srv, _ := fakeOpenAI(t, http.StatusOK, chatCompletion("  "))
		_, err := NewOpenAIProvider(srv.URL, "", "").AnalyzeDemand(ctx, "{}", "q", creds)
		assert.ErrorIs(t, err, domain.ErrAnalysis)
	})

	t.Run("Upstream error", func(t *testing.T) {
		srv, _ := fakeOpenAI(t, http.StatusInternalServerError, `{"error":{"message":"down"}}`)
		_, err := NewOpenAIProvider(srv.URL, "", "").AnalyzeDemand(ctx, "{}", "q", creds)
		assert.ErrorIs(t, err, domain.ErrAnalysis)
		assert.NotErrorIs(t, err, domain.ErrRecognition)
	})
}

func TestGeminiAnalyzeDemand(t *testing.T) {
	ctx := context.Background()

	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Stock more tea."}]}}]}`)
	}))
	t.Cleanup(srv.Close)

	p := NewGeminiProvider(srv.URL+"/", "", "")
	answer, err := p.AnalyzeDemand(ctx, "{}", "What next?", Credentials{APIKey: "gem-key"})
	require.NoError(t, err)
	assert.Equal(t, "Stock more tea.", answer)
	assert.True(t, strings.HasSuffix(path, DefaultGeminiChatModel+":generateContent"), path)

	_, err = p.AnalyzeDemand(ctx, "{}", "What next?", Credentials{})
	assert.ErrorIs(t, err, domain.ErrAnalysis)
}

func TestGatewayCombinesProviders(t *testing.T) {
	recognizer := NewOpenAIProvider("", "", "")
	analyzer := NewGeminiProvider("", "", "")
	gw := New(recognizer, analyzer)

	_, err := gw.ExtractOrderItems(context.Background(), Image{Data: []byte{1}}, Credentials{}, "")
	assert.ErrorIs(t, err, domain.ErrRecognition)
	_, err = gw.AnalyzeDemand(context.Background(), "{}", "q", Credentials{})
	assert.ErrorIs(t, err, domain.ErrAnalysis)
}
