package llm

import (
	"context"
	"testing"
)

// mockProvider is a no-op provider used to exercise the registry.
type mockProvider struct {
	name string
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{0.1, 0.2, 0.3}
	}
	return result, nil
}

func (m *mockProvider) EmbedSingle(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockProvider) Chat(_ context.Context, _ []Message) (string, error) {
	return "mock response", nil
}

func (m *mockProvider) Generate(_ context.Context, _ string, _ string) (string, error) {
	return "mock generated text", nil
}

func TestRegisterAndNewProvider(t *testing.T) {
	RegisterProvider("test-provider", func(config map[string]any) (Provider, error) {
		name := "test-provider"
		if n, ok := config["name"].(string); ok {
			name = n
		}
		return &mockProvider{name: name}, nil
	})

	provider, err := NewProvider("test-provider", map[string]any{"name": "custom-name"})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}

	if provider.Name() != "custom-name" {
		t.Errorf("expected name 'custom-name', got '%s'", provider.Name())
	}
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider("unknown-provider", nil)
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestEmbeddingFactoryWinsOverFullProvider(t *testing.T) {
	RegisterProvider("dual", func(config map[string]any) (Provider, error) {
		return &mockProvider{name: "full"}, nil
	})
	RegisterEmbeddingProvider("dual", func(config map[string]any) (EmbeddingProvider, error) {
		return &mockProvider{name: "embedding-only"}, nil
	})

	provider, err := NewEmbeddingProvider("dual", nil)
	if err != nil {
		t.Fatalf("NewEmbeddingProvider failed: %v", err)
	}
	if provider.Name() != "embedding-only" {
		t.Errorf("expected dedicated embedding factory, got '%s'", provider.Name())
	}
}

func TestChatProviderFallsBackToFullProvider(t *testing.T) {
	RegisterProvider("chat-fallback", func(config map[string]any) (Provider, error) {
		return &mockProvider{name: "chat-fallback"}, nil
	})

	provider, err := NewChatProvider("chat-fallback", nil)
	if err != nil {
		t.Fatalf("NewChatProvider failed: %v", err)
	}
	if provider.Name() != "chat-fallback" {
		t.Errorf("expected fallback to full provider, got '%s'", provider.Name())
	}
}

func TestListProviders(t *testing.T) {
	RegisterProvider("listed", func(config map[string]any) (Provider, error) {
		return &mockProvider{name: "listed"}, nil
	})

	names := ListProviders()
	found := false
	for _, name := range names {
		if name == "listed" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected 'listed' in %v", names)
	}
}
