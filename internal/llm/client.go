package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrInvalidResponse = errors.New("invalid llm response")
	ErrBlocked         = errors.New("llm response blocked")
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

type Config struct {
	BaseURL    string
	APIKey     string
	TextModel  string
	ImageModel string
	Timeout    time.Duration
}

// Client talks to the Gemini generateContent REST API.
type Client struct {
	baseURL    string
	apiKey     string
	textModel  string
	imageModel string
	timeout    time.Duration
	httpClient *http.Client
}

type Message struct {
	Role string
	Text string
}

type TextRequest struct {
	System      string
	Prompt      string
	JSON        bool
	Temperature float64
}

type ChatRequest struct {
	System  string
	History []Message
	Message string
}

type ImageRequest struct {
	Prompt      string
	SourceImage string
}

type generateRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature      float64  `json:"temperature,omitempty"`
	ResponseMIMEType string   `json:"responseMimeType,omitempty"`
	ResponseModality []string `json:"responseModalities,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm api key is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	textModel := strings.TrimSpace(cfg.TextModel)
	if textModel == "" {
		textModel = "gemini-2.5-flash"
	}
	imageModel := strings.TrimSpace(cfg.ImageModel)
	if imageModel == "" {
		imageModel = "gemini-2.5-flash-image"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		textModel:  textModel,
		imageModel: imageModel,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
	}, nil
}

func (c *Client) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := generateRequest{
		SystemInstruction: systemContent(req.System),
		Contents: []content{
			{Role: RoleUser, Parts: []part{{Text: strings.TrimSpace(req.Prompt)}}},
		},
		GenerationConfig: &generationConfig{Temperature: req.Temperature},
	}
	if req.JSON {
		body.GenerationConfig.ResponseMIMEType = "application/json"
	}

	resp, err := c.generate(ctx, c.textModel, body)
	if err != nil {
		return "", err
	}
	return extractCandidateText(resp)
}

func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := make([]content, 0, len(req.History)+1)
	for _, msg := range req.History {
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			continue
		}
		role := RoleUser
		if msg.Role == RoleModel {
			role = RoleModel
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: text}}})
	}
	contents = append(contents, content{Role: RoleUser, Parts: []part{{Text: strings.TrimSpace(req.Message)}}})

	resp, err := c.generate(ctx, c.textModel, generateRequest{
		SystemInstruction: systemContent(req.System),
		Contents:          contents,
	})
	if err != nil {
		return "", err
	}
	return extractCandidateText(resp)
}

func (c *Client) generate(ctx context.Context, model string, body generateRequest) (generateResponse, error) {
	path := "/v1beta/models/" + url.PathEscape(model) + ":generateContent"
	raw, err := c.doJSON(ctx, path, body)
	if err != nil {
		return generateResponse{}, err
	}
	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return generateResponse{}, fmt.Errorf("decode generate response: %w", err)
	}
	if resp.PromptFeedback != nil && strings.TrimSpace(resp.PromptFeedback.BlockReason) != "" {
		return generateResponse{}, fmt.Errorf("%w: %s", ErrBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return generateResponse{}, ErrInvalidResponse
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("llm request failed, status=%d body=%s", resp.StatusCode, truncateText(string(respBody), 240))
	}
	return respBody, nil
}

func systemContent(text string) *content {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return &content{Parts: []part{{Text: text}}}
}

func extractCandidateText(resp generateResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", ErrInvalidResponse
	}
	texts := make([]string, 0, len(resp.Candidates[0].Content.Parts))
	for _, p := range resp.Candidates[0].Content.Parts {
		if strings.TrimSpace(p.Text) != "" {
			texts = append(texts, p.Text)
		}
	}
	if len(texts) == 0 {
		return "", ErrInvalidResponse
	}
	return strings.TrimSpace(strings.Join(texts, "")), nil
}

// ExtractJSONPayload strips markdown fences and returns the outermost {...}
// span of content. Content without braces is returned trimmed.
func ExtractJSONPayload(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "{}"
	}
	trimmed = strings.ReplaceAll(trimmed, "```json", "")
	trimmed = strings.ReplaceAll(trimmed, "```", "")
	trimmed = strings.TrimSpace(trimmed)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end >= start {
		return trimmed[start : end+1]
	}
	return trimmed
}

func truncateText(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
