// Package gemini reads tabular documents with the Google Gemini vision API.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	pdfconverter "github.com/LeThienKhiem/pdf-converter"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// DefaultModel is the vision model used for table extraction.
const DefaultModel = "gemini-flash-lite-latest"

// Client implements pdfconverter.Gateway against the Gemini REST API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	temperature float64
	topP        float64
}

// New creates a Gemini client with functional options.
func New(apiKey, model string, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		model:       model,
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: 2 * time.Minute},
		temperature: 0.1,
		topP:        0.9,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Name returns "gemini".
func (c *Client) Name() string { return "gemini" }

// Model returns the configured model id.
func (c *Client) Model() string { return c.model }

// ExtractTable sends the document inline (base64) with the fixed extraction
// instruction and returns the model's textual response with markdown code
// fences stripped. Non-2xx responses surface as *pdfconverter.ErrHTTP so
// callers can classify rate limits; blocked or empty responses surface as
// *pdfconverter.ErrModel.
func (c *Client) ExtractTable(ctx context.Context, data []byte, mimeType string) (string, error) {
	body := map[string]any{
		"systemInstruction": map[string]any{
			"parts": []map[string]any{
				{"text": extractionPrompt},
			},
		},
		"contents": []map[string]any{
			{
				"role": "user",
				"parts": []map[string]any{
					{
						"inlineData": map[string]any{
							"mimeType": mimeType,
							"data":     base64.StdEncoding.EncodeToString(data),
						},
					},
				},
			},
		},
		"generationConfig": map[string]any{
			"temperature": c.temperature,
			"topP":        c.topP,
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", c.wrapErr("marshal body: " + err.Error())
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(payload)))
	if err != nil {
		return "", c.wrapErr("create request: " + err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", c.wrapErr("request failed: " + err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.wrapErr("failed to read response body: " + err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &pdfconverter.ErrHTTP{Status: resp.StatusCode, Body: string(respBody)}
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", c.wrapErr("failed to parse response JSON: " + err.Error())
	}

	text, err := c.responseText(parsed)
	if err != nil {
		return "", err
	}

	clean := stripFences(text)
	if clean == "" {
		c.logger.Warn("empty content after cleaning", "raw_length", len(text))
		return "", c.wrapErr("no content returned")
	}
	return clean, nil
}

// responseText concatenates the text parts of the first candidate. A
// missing candidate or a prompt-feedback block means the response was
// blocked or empty.
func (c *Client) responseText(parsed generateResponse) (string, error) {
	if len(parsed.Candidates) == 0 {
		if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
			return "", c.wrapErr("response blocked: " + parsed.PromptFeedback.BlockReason)
		}
		return "", c.wrapErr("response was blocked or empty")
	}
	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		if part.Text != nil {
			sb.WriteString(*part.Text)
		}
	}
	return sb.String(), nil
}

func (c *Client) wrapErr(msg string) error {
	return &pdfconverter.ErrModel{Provider: "gemini", Message: msg}
}

// stripFences removes markdown code-fence markers and surrounding
// whitespace, mirroring the /```json|```/g cleanup of the output contract.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// ---- Response parsing types ----

type generateResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type content struct {
	Parts []part `json:"parts"`
	Role  string `json:"role"`
}

type part struct {
	Text *string `json:"text,omitempty"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason"`
}

var _ pdfconverter.Gateway = (*Client)(nil)
