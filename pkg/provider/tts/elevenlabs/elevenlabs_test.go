package elevenlabs

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
)

// ---- WebSocket message construction ----

func TestBuildWSMessage_WithVoiceSettings(t *testing.T) {
	vs := &voiceSettings{Stability: 0.5, SimilarityBoost: 0.75}
	data, err := buildWSMessage("Game over! You forgot the lamp.", vs)
	if err != nil {
		t.Fatalf("buildWSMessage: %v", err)
	}

	var msg textMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Text != "Game over! You forgot the lamp." {
		t.Errorf("unexpected text %q", msg.Text)
	}
	if msg.VoiceSettings == nil || msg.VoiceSettings.Stability != 0.5 {
		t.Errorf("voice settings not preserved: %+v", msg.VoiceSettings)
	}
}

func TestBuildWSMessage_FlushCommand(t *testing.T) {
	// ElevenLabs flush = {"text":""} with no other fields.
	data, err := buildWSMessage("", nil)
	if err != nil {
		t.Fatalf("buildWSMessage: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal flush: %v", err)
	}
	if string(raw["text"]) != `""` {
		t.Errorf("expected empty text, got %s", raw["text"])
	}
	if _, exists := raw["voice_settings"]; exists {
		t.Error("flush message should not contain voice_settings")
	}
}

// ---- URL construction ----

func TestStreamURL(t *testing.T) {
	p, err := New("key", "voice-abc123")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	url := p.streamURL()
	if !strings.HasPrefix(url, "wss://") {
		t.Errorf("expected wss:// URL, got %s", url)
	}
	for _, part := range []string{"voice-abc123", defaultModel, defaultOutputFmt} {
		if !strings.Contains(url, part) {
			t.Errorf("URL missing %q: %s", part, url)
		}
	}
}

func TestNew_RequiresCredentials(t *testing.T) {
	if _, err := New("", "voice"); err == nil {
		t.Error("expected error for empty apiKey")
	}
	if _, err := New("key", ""); err == nil {
		t.Error("expected error for empty voiceID")
	}
}

// ---- Audio message decoding ----

func TestDecodeAudioMessage_Chunk(t *testing.T) {
	audio := base64.StdEncoding.EncodeToString([]byte("mp3data"))
	chunk, final, err := decodeAudioMessage([]byte(`{"audio":"` + audio + `","isFinal":false}`))
	if err != nil {
		t.Fatalf("decodeAudioMessage: %v", err)
	}
	if string(chunk) != "mp3data" {
		t.Errorf("chunk = %q", chunk)
	}
	if final {
		t.Error("expected non-final chunk")
	}
}

func TestDecodeAudioMessage_Final(t *testing.T) {
	_, final, err := decodeAudioMessage([]byte(`{"audio":"","isFinal":true}`))
	if err != nil {
		t.Fatalf("decodeAudioMessage: %v", err)
	}
	if !final {
		t.Error("expected final marker")
	}
}

func TestDecodeAudioMessage_ServiceError(t *testing.T) {
	_, _, err := decodeAudioMessage([]byte(`{"message":"quota exceeded"}`))
	if err == nil {
		t.Fatal("expected error for service error message")
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("error should carry service message, got %v", err)
	}
}

func TestDecodeAudioMessage_BadBase64(t *testing.T) {
	if _, _, err := decodeAudioMessage([]byte(`{"audio":"!!!not-base64!!!"}`)); err == nil {
		t.Fatal("expected error for invalid base64 audio")
	}
}
