package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/almuwathiq/evidence-agent/llm"
)

func TestOpenAIClientGeneratesTrimmedContent(t *testing.T) {
	var gotModel string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		gotModel = payload.Model

		if len(payload.Messages) != 2 {
			t.Errorf("expected 2 messages in request, got %d", len(payload.Messages))
		}

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "\nANSWER: Riba is prohibited.\n"}},
			},
		})
	}))
	defer srv.Close()

	client := llm.NewOpenAIClient(llm.Options{
		Model:         "gpt-4o-mini",
		OpenAIAPIKey:  "test-key",
		OpenAIBaseURL: srv.URL,
	})

	content, err := client.Generate(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "system prompt"},
		{Role: llm.RoleUser, Content: "Is riba permissible?"},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if gotModel != "gpt-4o-mini" {
		t.Errorf("expected model gpt-4o-mini in request, got %q", gotModel)
	}
	if content != "ANSWER: Riba is prohibited." {
		t.Errorf("expected trimmed content, got %q", content)
	}
}

func TestOpenAIClientRejectsEmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "   "}},
			},
		})
	}))
	defer srv.Close()

	client := llm.NewOpenAIClient(llm.Options{
		Model:         "gpt-4o-mini",
		OpenAIAPIKey:  "test-key",
		OpenAIBaseURL: srv.URL,
	})

	if _, err := client.Generate(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "question"}}); err == nil {
		t.Fatal("expected error for blank completion, got nil")
	}
}

func TestOpenAIClientRejectsNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []map[string]any{}})
	}))
	defer srv.Close()

	client := llm.NewOpenAIClient(llm.Options{
		Model:         "gpt-4o-mini",
		OpenAIAPIKey:  "test-key",
		OpenAIBaseURL: srv.URL,
	})

	if _, err := client.Generate(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "question"}}); err == nil {
		t.Fatal("expected error for empty choices, got nil")
	}
}
