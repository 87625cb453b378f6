package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash"

const extractPrompt = "Analyze this financial transaction screenshot, receipt or statement.\n" +
	"Extract ALL transactions found. Return ONLY a JSON array.\n" +
	"Schema: [{ \"date\": \"YYYY-MM-DD\", \"description\": \"Short name\", \"amount\": 123.45, \"type\": \"IN\" | \"OUT\" }]\n" +
	"If the image is from an Argentine wallet like MercadoPago, Brubank, or Lemon, handle the currency (ARS) correctly.\n" +
	"Interpret signs like '-' as OUT and '+' or 'Ingreso' as IN.\n" +
	"Do NOT wrap the response in code fences."

// GeminiExtractor extracts movements with a Gemini model.
type GeminiExtractor struct {
	client *genai.Client
	model  string
}

// NewGeminiExtractor creates a client from the environment (GEMINI_API_KEY or
// Vertex AI settings).
func NewGeminiExtractor(ctx context.Context, model string) (*GeminiExtractor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1beta"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiExtractor: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &GeminiExtractor{client: client, model: model}, nil
}

func lineSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"date":        {Type: genai.TypeString},
				"description": {Type: genai.TypeString},
				"amount":      {Type: genai.TypeNumber},
				"type":        {Type: genai.TypeString, Enum: []string{"IN", "OUT"}},
			},
			Required: []string{"date", "description", "amount", "type"},
		},
	}
}

func (g *GeminiExtractor) Extract(ctx context.Context, data []byte, mimeType string) ([]RawLine, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
				{Text: extractPrompt},
			},
		},
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   lineSchema(),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("Extract: generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("Extract: empty response from model")
	}
	return ParseLines(raw)
}

// ParseLines decodes model output into raw lines, tolerating Markdown
// fences and text around the array.
func ParseLines(raw string) ([]RawLine, error) {
	var lines []RawLine
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &lines); err != nil {
		return nil, fmt.Errorf("ParseLines: unmarshal JSON: %w", err)
	}
	return lines, nil
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only the outermost array.
	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
