package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

const googleAPIBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GoogleProvider implements Provider using the Google Gemini API via direct HTTP.
type GoogleProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGoogleProvider creates a new Google Gemini provider.
func NewGoogleProvider(apiKey string, model string) *GoogleProvider {
	return &GoogleProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: googleAPIBaseURL,
		client:  &http.Client{},
	}
}

func (p *GoogleProvider) Name() string {
	return "google"
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *geminiBlob `json:"inlineData,omitempty"`
}

type geminiBlob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

// geminiParts converts a message to Gemini parts: images first, then text.
func geminiParts(msg Message) []geminiPart {
	parts := make([]geminiPart, 0, len(msg.Images)+1)
	for _, img := range msg.Images {
		parts = append(parts, geminiPart{InlineData: &geminiBlob{
			MIMEType: img.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}})
	}
	if msg.Content != "" || len(parts) == 0 {
		parts = append(parts, geminiPart{Text: msg.Content})
	}
	return parts
}

func (p *GoogleProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	// Build system instruction and conversation contents.
	var systemParts []geminiPart
	var contents []geminiContent

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			if strings.TrimSpace(msg.Content) != "" {
				systemParts = append(systemParts, geminiPart{Text: msg.Content})
			}
		case RoleUser:
			contents = append(contents, geminiContent{Role: "user", Parts: geminiParts(msg)})
		case RoleAssistant:
			contents = append(contents, geminiContent{Role: "model", Parts: geminiParts(msg)})
		}
	}

	if len(contents) == 0 {
		return nil, fmt.Errorf("gemini request has no user content")
	}

	apiReq := geminiRequest{
		Contents: contents,
		GenerationConfig: &geminiGenerationConfig{
			Temperature: req.Temperature,
		},
	}

	if len(systemParts) > 0 {
		apiReq.SystemInstruction = &geminiContent{
			Parts: systemParts,
		}
	}

	if req.MaxTokens > 0 {
		apiReq.GenerationConfig.MaxOutputTokens = req.MaxTokens
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent", strings.TrimSuffix(p.baseURL, "/"), url.PathEscape(model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gemini response: %w", err)
	}

	return parseGeminiResponse(httpResp.StatusCode, respBody, model)
}

// parseGeminiResponse reads a generateContent reply. Errors carry the API's
// own message, which the chat endpoint shows to the user.
func parseGeminiResponse(status int, body []byte, model string) (*CompletionResponse, error) {
	if !gjson.ValidBytes(body) {
		if status != http.StatusOK {
			return nil, fmt.Errorf("gemini returned status %d: %s", status, strings.TrimSpace(string(body)))
		}
		return nil, fmt.Errorf("gemini returned invalid JSON")
	}
	root := gjson.ParseBytes(body)

	if msg := root.Get("error.message"); msg.Exists() {
		return nil, fmt.Errorf("gemini API error (%s): %s", root.Get("error.status").String(), msg.String())
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("gemini returned status %d: %s", status, strings.TrimSpace(string(body)))
	}

	candidate := root.Get("candidates.0")
	if !candidate.Exists() {
		if reason := root.Get("promptFeedback.blockReason").String(); reason != "" {
			return nil, fmt.Errorf("gemini blocked the prompt: %s", reason)
		}
	}

	var content strings.Builder
	for _, part := range candidate.Get("content.parts").Array() {
		// Thought summaries are not part of the answer.
		if part.Get("thought").Bool() {
			continue
		}
		content.WriteString(part.Get("text").String())
	}

	if v := root.Get("modelVersion").String(); v != "" {
		model = v
	}
	return &CompletionResponse{
		Content:      content.String(),
		InputTokens:  int(root.Get("usageMetadata.promptTokenCount").Int()),
		OutputTokens: int(root.Get("usageMetadata.candidatesTokenCount").Int()),
		Model:        model,
		FinishReason: candidate.Get("finishReason").String(),
	}, nil
}
