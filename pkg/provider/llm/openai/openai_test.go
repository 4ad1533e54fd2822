package openai

import (
	"testing"

	"github.com/MrWong99/valisia/pkg/provider/llm"
)

// TestConvertMessage_System checks that system role is converted correctly.
func TestConvertMessage_System(t *testing.T) {
	msg := llm.Message{Role: "system", Content: "You are the host."}
	param, err := convertMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if param.OfSystem == nil {
		t.Fatal("expected OfSystem to be set")
	}
}

// TestConvertMessage_User checks that user role is converted correctly.
func TestConvertMessage_User(t *testing.T) {
	msg := llm.Message{Role: "user", Content: "i'm packing a shirt"}
	param, err := convertMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if param.OfUser == nil {
		t.Fatal("expected OfUser to be set")
	}
}

// TestConvertMessage_Assistant checks that assistant role is converted.
func TestConvertMessage_Assistant(t *testing.T) {
	msg := llm.Message{Role: "assistant", Content: "Correct!"}
	param, err := convertMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if param.OfAssistant == nil {
		t.Fatal("expected OfAssistant to be set")
	}
}

// TestConvertMessage_UnknownRole checks the error path.
func TestConvertMessage_UnknownRole(t *testing.T) {
	if _, err := convertMessage(llm.Message{Role: "narrator"}); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestBuildParams(t *testing.T) {
	p := &Provider{model: "gpt-4o-mini"}
	params, err := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "You are the host of the game.",
		Messages:     []llm.Message{{Role: "user", Content: "hello"}},
		Temperature:  0.2,
		MaxTokens:    512,
	})
	if err != nil {
		t.Fatalf("buildParams: %v", err)
	}
	if got := len(params.Messages); got != 2 {
		t.Errorf("messages: want 2 (system + user), got %d", got)
	}
	if v, ok := params.Temperature.Value, params.Temperature.Valid(); !ok || v != 0.2 {
		t.Errorf("temperature not carried: %v %v", v, ok)
	}
	if v, ok := params.MaxCompletionTokens.Value, params.MaxCompletionTokens.Valid(); !ok || v != 512 {
		t.Errorf("max tokens not carried: %v %v", v, ok)
	}
}

func TestBuildParams_NoMessages(t *testing.T) {
	p := &Provider{model: "gpt-4o-mini"}
	if _, err := p.buildParams(llm.CompletionRequest{}); err == nil {
		t.Fatal("expected error for empty request")
	}
}

func TestNew_MissingAPIKey(t *testing.T) {
	if _, err := New("", "gpt-4o-mini"); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestNew_MissingModel(t *testing.T) {
	if _, err := New("sk-test", ""); err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestNewAzure_Validation(t *testing.T) {
	cases := []struct {
		name                                  string
		endpoint, key, deployment, apiVersion string
	}{
		{"missing endpoint", "", "k", "d", "2024-02-01"},
		{"missing key", "https://x.openai.azure.com", "", "d", "2024-02-01"},
		{"missing deployment", "https://x.openai.azure.com", "k", "", "2024-02-01"},
		{"missing api version", "https://x.openai.azure.com", "k", "d", ""},
	}
	for _, c := range cases {
		if _, err := NewAzure(c.endpoint, c.key, c.deployment, c.apiVersion); err == nil {
			t.Errorf("%s: expected error", c.name)
		}
	}
}
