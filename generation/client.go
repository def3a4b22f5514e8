package generation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"herobook_back/hero"
)

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com"
	defaultAPIVersion = "v1beta"
	defaultTextModel  = "gemini-2.5-flash"
	defaultImageModel = "gemini-2.5-flash-image"

	// The generative API tolerates short bursts but throttles sustained
	// traffic; one request per second keeps a full 17-unit job inside quota.
	defaultRequestsPerSecond = 1
)

// Client wraps the HTTP calls to the generative-content API used for story
// captions and hero images.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	apiVersion string
	apiKey     string
	textModel  string
	imageModel string
}

// NewClientFromEnv constructs a Client using environment variables.
//
// Expected variables:
//   - GENAI_API_KEY: required API key for the provider
//   - GENAI_BASE_URL: optional override for the API base URL
//   - GENAI_TEXT_MODEL / GENAI_IMAGE_MODEL: optional model overrides
//   - GENAI_RPS: optional requests-per-second ceiling
func NewClientFromEnv() (*Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("GENAI_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("generation: GENAI_API_KEY environment variable is required")
	}

	baseURL := strings.TrimSpace(os.Getenv("GENAI_BASE_URL"))
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("generation: invalid base URL %q", baseURL)
	}

	textModel := strings.TrimSpace(os.Getenv("GENAI_TEXT_MODEL"))
	if textModel == "" {
		textModel = defaultTextModel
	}
	imageModel := strings.TrimSpace(os.Getenv("GENAI_IMAGE_MODEL"))
	if imageModel == "" {
		imageModel = defaultImageModel
	}

	rps := float64(defaultRequestsPerSecond)
	if raw := strings.TrimSpace(os.Getenv("GENAI_RPS")); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			rps = parsed
		}
	}

	return &Client{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		baseURL:    baseURL,
		apiVersion: defaultAPIVersion,
		apiKey:     apiKey,
		textModel:  textModel,
		imageModel: imageModel,
	}, nil
}

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
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
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType   string          `json:"responseMimeType,omitempty"`
	ResponseSchema     *responseSchema `json:"responseSchema,omitempty"`
	ResponseModalities []string        `json:"responseModalities,omitempty"`
}

type responseSchema struct {
	Type  string          `json:"type"`
	Items *responseSchema `json:"items,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

const captionPromptTemplate = `Generate exactly 3 short, exciting, one-sentence superhero story captions for a child hero.
The hero's story should be told in a %s animation style.
The hero is wearing a %s costume.
The hero's current pose is a "%s" pose.
The story should be age-appropriate for a 5-10 year old.
The output must be a JSON array of 3 strings. Do not include any other text or markdown formatting.`

// FallbackCaptions returns the deterministic substitute captions used when
// the provider cannot supply real ones.
func FallbackCaptions(c hero.Customization) []string {
	return []string{
		fmt.Sprintf("Our %s hero strikes a mighty %s pose, ready for anything!", c.SuitColor, c.Pose),
		fmt.Sprintf("In a world drawn in the style of %s, a new champion rises.", c.Style),
		"The adventure is just beginning for the bravest hero of all!",
	}
}

// Captions asks the text model for exactly three story captions. It never
// fails the caller: any provider or parsing error degrades to the
// deterministic fallback captions.
func (c *Client) Captions(ctx context.Context, opts hero.Customization) []string {
	if c == nil {
		return FallbackCaptions(opts)
	}

	prompt := fmt.Sprintf(captionPromptTemplate, opts.Style, opts.SuitColor, opts.Pose)
	req := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   &responseSchema{Type: "ARRAY", Items: &responseSchema{Type: "STRING"}},
		},
	}

	resp, err := c.generateContent(ctx, c.textModel, req)
	if err != nil {
		log.Printf("generation: caption request failed, using fallback: %v", err)
		return FallbackCaptions(opts)
	}

	text := strings.TrimSpace(firstText(resp))
	var captions []string
	if err := json.Unmarshal([]byte(text), &captions); err != nil {
		log.Printf("generation: caption payload not a JSON string array, using fallback: %v", err)
		return FallbackCaptions(opts)
	}
	if len(captions) < 3 {
		log.Printf("generation: provider returned %d captions, using fallback", len(captions))
		return FallbackCaptions(opts)
	}
	for _, caption := range captions[:3] {
		if strings.TrimSpace(caption) == "" {
			return FallbackCaptions(opts)
		}
	}
	return captions[:3]
}

// HeroImage sends the reference image plus prompt to the image model and
// returns the generated image bytes with their mime type. Unlike Captions,
// failures here propagate to the caller.
func (c *Client) HeroImage(ctx context.Context, imageData []byte, mimeType, prompt string) ([]byte, string, error) {
	if c == nil {
		return nil, "", errors.New("generation: client is nil")
	}
	if len(imageData) == 0 {
		return nil, "", errors.New("generation: reference image is empty")
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, "", errors.New("generation: prompt cannot be empty")
	}

	req := generateContentRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &inlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(imageData),
				}},
				{Text: prompt},
			},
		}},
		GenerationConfig: &generationConfig{ResponseModalities: []string{"IMAGE"}},
	}

	resp, err := c.generateContent(ctx, c.imageModel, req)
	if err != nil {
		return nil, "", err
	}

	for _, candidate := range resp.Candidates {
		for _, p := range candidate.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			raw, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, "", fmt.Errorf("generation: decode image payload: %w", err)
			}
			outMime := p.InlineData.MimeType
			if outMime == "" {
				outMime = "image/png"
			}
			return raw, outMime, nil
		}
	}

	return nil, "", errors.New("generation: no image data found in response")
}

func (c *Client) generateContent(ctx context.Context, model string, payload generateContentRequest) (*generateContentResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("generation: rate limiter: %w", err)
	}

	body := &bytes.Buffer{}
	if err := json.NewEncoder(body).Encode(payload); err != nil {
		return nil, fmt.Errorf("generation: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("generation: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generation: execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("generation: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var decoded generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("generation: decode response: %w", err)
	}
	if len(decoded.Candidates) == 0 {
		return nil, errors.New("generation: response contains no candidates")
	}
	return &decoded, nil
}

func firstText(resp *generateContentResponse) string {
	for _, candidate := range resp.Candidates {
		for _, p := range candidate.Content.Parts {
			if p.Text != "" {
				return p.Text
			}
		}
	}
	return ""
}
