package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerator_NoCredential(t *testing.T) {
	g, err := NewGenerator(context.Background(), Config{Provider: ProviderGemini})
	assert.Nil(t, g)
	assert.ErrorIs(t, err, ErrNoCredential)

	g, err = NewGenerator(context.Background(), Config{Provider: ProviderOpenAI, APIKey: "   "})
	assert.Nil(t, g)
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestNewGenerator_UnknownProvider(t *testing.T) {
	_, err := NewGenerator(context.Background(), Config{Provider: "carrier-pigeon", APIKey: "k"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNewGenerator_SelectsProvider(t *testing.T) {
	g, err := NewGenerator(context.Background(), Config{Provider: "OpenAI", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIGenerator{}, g)
	assert.Equal(t, DefaultOpenAIModel, g.Model())

	g, err = NewGenerator(context.Background(), Config{Provider: ProviderGemini, APIKey: "k", Model: "gemini-2.0-flash"})
	require.NoError(t, err)
	assert.IsType(t, &GeminiGenerator{}, g)
	assert.Equal(t, "gemini-2.0-flash", g.Model())
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body.Model)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "hello prompt", body.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  Sunny all week!  "},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	g := NewOpenAIGenerator(Config{APIKey: "test-key", Model: "gpt-test", BaseURL: server.URL + "/v1", Timeout: 2 * time.Second})
	got, err := g.Generate(context.Background(), "hello prompt")
	require.NoError(t, err)
	assert.Equal(t, "Sunny all week!", got)
}

func TestOpenAIGenerator_Generate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			},
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
			},
			wantErr: ErrEmptyReply,
		},
		{
			name: "blank content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"id":"x","choices":[{"message":{"role":"assistant","content":"   "}}]}`))
			},
			wantErr: ErrEmptyReply,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			g := NewOpenAIGenerator(Config{APIKey: "k", BaseURL: server.URL, Timeout: 2 * time.Second})
			_, err := g.Generate(context.Background(), "p")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "error = %v", err)
			}
		})
	}
}

func TestGeminiGenerator_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "gemini-test:generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Bring a jacket tomorrow."}]},"finishReason":"STOP"}]}`))
	}))
	defer server.Close()

	g, err := NewGeminiGenerator(context.Background(), Config{APIKey: "k", Model: "gemini-test", BaseURL: server.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	got, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Bring a jacket tomorrow.", got)
}

func TestGeminiGenerator_Generate_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
	}))
	defer server.Close()

	g, err := NewGeminiGenerator(context.Background(), Config{APIKey: "k", BaseURL: server.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), "prompt")
	assert.Error(t, err)
}

func TestWithTimeout_KeepsEarlierDeadline(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	ctx, cancel2 := withTimeout(parent, time.Hour)
	defer cancel2()
	dl, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), dl, 50*time.Millisecond)
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("", "Cairo", "05-03: 20.1°C – mild, t-shirt and jeans", "what should I wear?")
	assert.True(t, strings.HasPrefix(p, DefaultPersona))
	assert.Contains(t, p, "The user is in: Cairo")
	assert.Contains(t, p, "05-03: 20.1°C – mild, t-shirt and jeans")
	assert.Contains(t, p, `Message: "what should I wear?"`)
	assert.Contains(t, p, "Do not mention that you are an AI")

	custom := BuildPrompt("Answer like a pirate.", "Oslo", "", "hi")
	assert.True(t, strings.HasPrefix(custom, "Answer like a pirate.\n"))
}
