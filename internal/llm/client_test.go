package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtractJSONPayloadStripsFencesAndProse(t *testing.T) {
	content := "Sure! Here you go:\n```json\n{\"tasks\":[{\"title\":\"Run\"}],\"quote\":\"Go\"}\n```\nGood luck."
	got := ExtractJSONPayload(content)
	if got != `{"tasks":[{"title":"Run"}],"quote":"Go"}` {
		t.Fatalf("unexpected payload %q", got)
	}
	if got := ExtractJSONPayload("   "); got != "{}" {
		t.Fatalf("expected {} for empty content, got %q", got)
	}
	if got := ExtractJSONPayload("no braces here"); got != "no braces here" {
		t.Fatalf("expected passthrough, got %q", got)
	}
}

func TestGenerateTextSendsSystemInstructionAndJSONMode(t *testing.T) {
	var gotPath, gotKey string
	var gotBody generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"quote\":\"Adapt.\"}"}]}}]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	client.httpClient = server.Client()

	text, err := client.GenerateText(context.Background(), TextRequest{
		System: "Return ONLY JSON.",
		Prompt: "plan please",
		JSON:   true,
	})
	if err != nil {
		t.Fatalf("GenerateText() error = %v", err)
	}
	if text != `{"quote":"Adapt."}` {
		t.Fatalf("unexpected text %q", text)
	}
	if gotPath != "/v1beta/models/gemini-2.5-flash:generateContent" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("expected api key header, got %q", gotKey)
	}
	if gotBody.SystemInstruction == nil || gotBody.SystemInstruction.Parts[0].Text != "Return ONLY JSON." {
		t.Fatalf("expected system instruction, got %+v", gotBody.SystemInstruction)
	}
	if gotBody.GenerationConfig == nil || gotBody.GenerationConfig.ResponseMIMEType != "application/json" {
		t.Fatalf("expected json response mime type, got %+v", gotBody.GenerationConfig)
	}
}

func TestChatMapsHistoryRoles(t *testing.T) {
	var gotBody generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Keep going."}]}}]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	client.httpClient = server.Client()

	reply, err := client.Chat(context.Background(), ChatRequest{
		History: []Message{{Role: RoleUser, Text: "hi"}, {Role: RoleModel, Text: "hello"}, {Role: RoleUser, Text: "  "}},
		Message: "what now?",
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply != "Keep going." {
		t.Fatalf("unexpected reply %q", reply)
	}
	if len(gotBody.Contents) != 3 {
		t.Fatalf("expected 3 contents (blank history dropped), got %d", len(gotBody.Contents))
	}
	if gotBody.Contents[1].Role != RoleModel || gotBody.Contents[2].Parts[0].Text != "what now?" {
		t.Fatalf("unexpected contents %+v", gotBody.Contents)
	}
}

func TestGenerateImageReturnsDataURL(t *testing.T) {
	var gotBody generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-2.5-flash-image") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"here"},{"inlineData":{"mimeType":"image/png","data":"QUJD"}}]}}]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	client.httpClient = server.Client()

	img, err := client.GenerateImage(context.Background(), ImageRequest{
		Prompt:      "future self",
		SourceImage: "data:image/webp;base64,WFla",
	})
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if img != "data:image/png;base64,QUJD" {
		t.Fatalf("unexpected image %q", img)
	}
	inline := gotBody.Contents[0].Parts[0].InlineData
	if inline == nil || inline.MIMEType != "image/webp" || inline.Data != "WFla" {
		t.Fatalf("expected inline source image, got %+v", inline)
	}
}

func TestGenerateReportsBlockedPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	client.httpClient = server.Client()

	if _, err := client.GenerateText(context.Background(), TextRequest{Prompt: "x"}); !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatalf("expected error for missing api key")
	}
}

func TestTruncateTextKeepsRunesWhole(t *testing.T) {
	body := "错误：配额已用完"
	got := truncateText(body, 4)
	if got != "错..." {
		t.Fatalf("truncateText() = %q, want %q", got, "错...")
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncateText() produced invalid utf8: %q", got)
	}
	if got := truncateText("  short  ", 10); got != "short" {
		t.Fatalf("truncateText(short) = %q", got)
	}
}
