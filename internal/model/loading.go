package model

import "time"

// Loading states for the background dataset loader.
const (
	LoadingStateIdle    = "idle"
	LoadingStateLoading = "loading"
	LoadingStateReady   = "ready"
	LoadingStateFailed  = "failed"
)

// LoadingStatus reports the background dataset loading progress.
type LoadingStatus struct {
	State     string     `json:"state"`
	Progress  float64    `json:"progress"`
	Message   string     `json:"message,omitempty"`
	Error     string     `json:"error,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	ReadyAt   *time.Time `json:"ready_at,omitempty"`
}

// SystemInfo describes the running service configuration.
type SystemInfo struct {
	Version        string `json:"version"`
	EmbeddingModel string `json:"embedding_model"`
	ChatModel      string `json:"chat_model"`
	LLMProvider    string `json:"llm_provider"`
	Collection     string `json:"collection"`
	DocumentCount  int64  `json:"document_count"`
	CacheEnabled   bool   `json:"cache_enabled"`
}
