package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	ierrors "github.com/jrsteele09/go-blog-server/internal/errors"
	"github.com/jrsteele09/go-blog-server/posts"
)

const (
	geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"
	maxRetries     = 2
	retryBaseDelay = time.Second
)

var _ Generator = (*GeminiGenerator)(nil)

// GeminiGenerator implements Generator against the Gemini REST API.
type GeminiGenerator struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// GeminiOption defines a function type to modify the GeminiGenerator instance.
type GeminiOption func(*GeminiGenerator)

// WithEndpoint overrides the Gemini API endpoint. The value is a format
// string taking the model name (primarily for testing).
func WithEndpoint(endpoint string) GeminiOption {
	return func(g *GeminiGenerator) {
		g.endpoint = endpoint
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) GeminiOption {
	return func(g *GeminiGenerator) {
		g.client = client
	}
}

// NewGeminiGenerator creates a generator for the given API key and model.
// A missing API key is a misconfiguration and fails at construction.
func NewGeminiGenerator(apiKey, model string, options ...GeminiOption) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("[NewGeminiGenerator] API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	g := &GeminiGenerator{
		apiKey:   apiKey,
		model:    model,
		endpoint: geminiEndpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

type geminiRequest struct {
	SystemInstruction geminiContent    `json:"system_instruction"`
	Contents          []geminiContent  `json:"contents"`
	GenerationConfig  generationConfig `json:"generation_config"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	MaxOutputTokens int `json:"max_output_tokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text    string `json:"text"`
				Thought bool   `json:"thought"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GeneratePost asks the model for a title/content pair describing the image.
// Transient upstream 500s are retried with linear backoff; everything the
// model gets wrong (no content, unparseable JSON) is an upstream error.
func (g *GeminiGenerator) GeneratePost(ctx context.Context, image string, language posts.Language) (*Draft, error) {
	mimeType, base64Data, err := ParseDataURL(image)
	if err != nil {
		return nil, err
	}

	body := geminiRequest{
		SystemInstruction: geminiContent{Parts: []geminiPart{{Text: systemPrompt(language)}}},
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{InlineData: &inlineData{MimeType: mimeType, Data: base64Data}},
				{Text: userPrompt(language)},
			},
		}},
		GenerationConfig: generationConfig{MaxOutputTokens: 1024},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "[GeminiGenerator.GeneratePost] marshal request")
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		draft, retryable, err := g.call(ctx, payload)
		if err == nil {
			return draft, nil
		}
		lastErr = err
		if !retryable || attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ierrors.Wrapf(ctx.Err(), "[GeminiGenerator.GeneratePost] cancelled")
		case <-time.After(retryBaseDelay * time.Duration(attempt+1)):
		}
	}
	return nil, lastErr
}

func (g *GeminiGenerator) call(ctx context.Context, payload []byte) (*Draft, bool, error) {
	url := fmt.Sprintf(g.endpoint, g.model) + "?key=" + g.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, false, errors.Wrap(err, "[GeminiGenerator.call] new request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, false, ierrors.Wrapf(ierrors.ErrUpstream, "gemini request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusInternalServerError
		return nil, retryable, ierrors.Wrapf(ierrors.ErrUpstream, "gemini returned status %d", resp.StatusCode)
	}

	var decoded geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, false, ierrors.Wrapf(ierrors.ErrUpstream, "gemini response decode failed: %v", err)
	}

	raw := firstText(decoded)
	if raw == "" {
		return nil, false, ierrors.Wrapf(ierrors.ErrUpstream, "no content returned from AI")
	}

	draft := extractDraft(raw)
	if draft == nil {
		return nil, false, ierrors.Wrapf(ierrors.ErrUpstream, "AI did not return valid title and content")
	}
	return draft, false, nil
}

// firstText returns the first non-thought text part, falling back to any
// text part at all.
func firstText(resp geminiResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	fallback := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		text := strings.TrimSpace(part.Text)
		if text == "" {
			continue
		}
		if !part.Thought {
			return text
		}
		fallback = text
	}
	return fallback
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// extractDraft pulls a {title, content} object out of the model's text,
// tolerating surrounding prose and capitalised key variants.
func extractDraft(raw string) *Draft {
	match := jsonObjectPattern.FindString(raw)
	if match == "" {
		return nil
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return nil
	}

	title := stringField(parsed, "title", "Title", "headline", "Headline")
	content := stringField(parsed, "content", "Content", "body", "Body")
	if title == "" || content == "" {
		return nil
	}
	return &Draft{Title: strings.TrimSpace(title), Content: strings.TrimSpace(content)}
}

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// ParseDataURL validates and splits an image data URL into its MIME type
// and base64 payload. Malformed input is a validation error.
func ParseDataURL(dataURL string) (mimeType, base64Data string, err error) {
	if !strings.HasPrefix(dataURL, "data:image/") {
		return "", "", ierrors.Wrapf(ierrors.ErrValidation, "image must be a valid data URL (e.g. data:image/jpeg;base64,...)")
	}
	const marker = ";base64,"
	idx := strings.Index(dataURL, marker)
	if idx == -1 {
		return "", "", ierrors.Wrapf(ierrors.ErrValidation, "invalid image data URL")
	}
	mimeType = dataURL[len("data:"):idx]
	base64Data = dataURL[idx+len(marker):]
	if !strings.HasPrefix(mimeType, "image/") || base64Data == "" {
		return "", "", ierrors.Wrapf(ierrors.ErrValidation, "invalid image data URL")
	}
	return mimeType, base64Data, nil
}

func systemPrompt(language posts.Language) string {
	if language == posts.LanguageCzech {
		return `Jsi asistent pro psaní blogových příspěvků. Na základě obrázku vygeneruj krátký blogový příspěvek.
Vrať JSON objekt s klíči "title" (nadpis, max 80 znaků) a "content" (tělo příspěvku, 2-4 odstavce).
Piš výhradně česky a vtipne, klidne i cerny humor.`
	}
	return `You are a blog post assistant. Based on the image, generate a short blog post.
Return a JSON object with keys "title" (headline, max 80 chars) and "content" (body, 2-4 paragraphs).
Write in English only and be funny, feel free to use the dark humor.`
}

func userPrompt(language posts.Language) string {
	if language == posts.LanguageCzech {
		return "Analyzuj tento obrázek a vygeneruj blogový příspěvek. Vrať pouze platný JSON."
	}
	return "Analyze this image and generate a blog post. Return only valid JSON."
}
