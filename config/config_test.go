package config_test

import (
	"testing"

	"github.com/almuwathiq/evidence-agent/config"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"LLM_PROVIDER", "EMBEDDINGS_DIMENSION", "RETRIEVAL_K", "EVIDENCE_POLICY", "MEDIA_DIR"} {
		t.Setenv(key, "")
	}

	cfg := config.Load()

	if cfg.LLM.Provider != config.ProviderOpenAI {
		t.Fatalf("unexpected default llm provider: %q", cfg.LLM.Provider)
	}
	if cfg.Embeddings.Dimension != 1536 {
		t.Fatalf("unexpected default dimension: %d", cfg.Embeddings.Dimension)
	}
	if cfg.RetrievalK != 12 {
		t.Fatalf("unexpected default retrieval k: %d", cfg.RetrievalK)
	}
	if cfg.EvidencePolicy != "anchor" {
		t.Fatalf("unexpected default evidence policy: %q", cfg.EvidencePolicy)
	}
	if cfg.MediaDir != "media" {
		t.Fatalf("unexpected default media dir: %q", cfg.MediaDir)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("LLM_MODEL", "llama3.1")
	t.Setenv("RETRIEVAL_K", "15")
	t.Setenv("EVIDENCE_POLICY", "spread")

	cfg := config.Load()

	if cfg.LLM.Provider != config.ProviderOllama || cfg.LLM.Model != "llama3.1" {
		t.Fatalf("llm overrides not applied: %+v", cfg.LLM)
	}
	if cfg.RetrievalK != 15 {
		t.Fatalf("retrieval k override not applied: %d", cfg.RetrievalK)
	}
	if cfg.EvidencePolicy != "spread" {
		t.Fatalf("evidence policy override not applied: %q", cfg.EvidencePolicy)
	}
}

func TestLoadRejectsInvalidNumbers(t *testing.T) {
	t.Setenv("RETRIEVAL_K", "not-a-number")
	t.Setenv("EMBEDDINGS_DIMENSION", "-3")

	cfg := config.Load()

	if cfg.RetrievalK != 12 {
		t.Fatalf("expected fallback retrieval k, got %d", cfg.RetrievalK)
	}
	if cfg.Embeddings.Dimension != 1536 {
		t.Fatalf("expected fallback dimension, got %d", cfg.Embeddings.Dimension)
	}
}
