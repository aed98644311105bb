package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hanq-io/hanq/pkg/llm"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BaseURL != "http://localhost:11434" {
		t.Errorf("unexpected BaseURL %s", cfg.BaseURL)
	}
	if cfg.EmbedModel != "nomic-embed-text" {
		t.Errorf("unexpected EmbedModel %s", cfg.EmbedModel)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("unexpected MaxRetries %d", cfg.MaxRetries)
	}
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		resp := embedResponse{Model: req.Model}
		for range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{0.1, 0.2})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewProviderWithConfig(&Config{
		BaseURL:    srv.URL,
		EmbedModel: "test-embed",
		Timeout:    5 * time.Second,
	})

	embeddings, err := p.Embed(context.Background(), []string{"하나", "둘"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(embeddings))
	}
}

func TestEmbedCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model":"m","embeddings":[[0.1]]}`))
	}))
	defer srv.Close()

	p := NewProviderWithConfig(&Config{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	})

	_, err := p.Embed(context.Background(), []string{"하나", "둘"})
	if err == nil {
		t.Fatal("expected error on embedding count mismatch")
	}
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("expected stream=false")
		}
		if req.System == "" {
			t.Error("expected system prompt")
		}

		_ = json.NewEncoder(w).Encode(generateResponse{
			Model:    req.Model,
			Response: "서울입니다.",
			Done:     true,
		})
	}))
	defer srv.Close()

	p := NewProviderWithConfig(&Config{
		BaseURL:   srv.URL,
		ChatModel: "test-chat",
		Timeout:   5 * time.Second,
	})

	answer, err := p.Generate(context.Background(), "대한민국의 수도는?", "문서 기반으로 답하세요.")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "서울입니다." {
		t.Errorf("unexpected answer %q", answer)
	}
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 1 {
			t.Errorf("expected 1 message, got %d", len(req.Messages))
		}

		_ = json.NewEncoder(w).Encode(chatResponse{
			Model:   req.Model,
			Message: chatMessage{Role: "assistant", Content: "안녕하세요"},
			Done:    true,
		})
	}))
	defer srv.Close()

	p := NewProviderWithConfig(&Config{
		BaseURL:   srv.URL,
		ChatModel: "test-chat",
		Timeout:   5 * time.Second,
	})

	reply, err := p.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "안녕"}})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if reply != "안녕하세요" {
		t.Errorf("unexpected reply %q", reply)
	}
}

func TestRetryRebuildsRequestBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("attempt %d got unreadable body: %v", calls.Load(), err)
		}
		if calls.Add(1) == 1 {
			// Drop the first connection to force a transport error.
			conn, _, _ := w.(http.Hijacker).Hijack()
			_ = conn.Close()
			return
		}
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{0.1}}})
	}))
	srv.Start()
	defer srv.Close()

	p := NewProviderWithConfig(&Config{
		BaseURL:    srv.URL,
		Timeout:    5 * time.Second,
		MaxRetries: 2,
	})

	_, err := p.Embed(context.Background(), []string{"하나"})
	if err != nil {
		t.Fatalf("Embed failed after retry: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
}
