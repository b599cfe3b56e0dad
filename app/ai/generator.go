package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// The model is nudged at most once to reformat before giving up.
const maxGenerateAttempts = 2

const generateTimeout = 60 * time.Second

const systemMessage = "You are a social media content assistant. " +
	"You MUST return exactly one valid JSON object and nothing else. " +
	"The JSON must have exactly two keys: title, content (both strings)."

const reformatMessage = `Return valid JSON only, no markdown, no explanation. Schema: {"title":"...","content":"..."}`

// GenerationInput is the brief for one caption generation run.
type GenerationInput struct {
	Topic    string
	Main     string
	Keywords []string
}

// Generated is the parsed two-field generation result.
type Generated struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Generator produces {title, content} pairs from a topic brief through an
// OpenAI-compatible chat completions endpoint.
type Generator struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	model          string
	temperature    float64
	promptTemplate string
}

func NewGenerator(baseURL, apiKey, model string, temperature float64, promptTemplate string) *Generator {
	return &Generator{
		httpClient:     &http.Client{},
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		apiKey:         apiKey,
		model:          model,
		temperature:    temperature,
		promptTemplate: promptTemplate,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Temperature    float64       `json:"temperature"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate runs the prompt and parses the strict-JSON reply. A reply that
// cannot be parsed into non-empty title and content gets one reformat
// nudge; a second bad reply is a failure. Transport and API errors are
// returned as-is without retrying.
func (g *Generator) Generate(ctx context.Context, in GenerationInput) (*Generated, error) {
	messages := []chatMessage{
		{Role: "system", Content: systemMessage},
		{Role: "user", Content: g.renderPrompt(in)},
	}

	var lastErr error
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		text, err := g.complete(ctx, messages)
		if err != nil {
			return nil, err
		}

		gen, err := parseGenerated(text)
		if err == nil {
			return gen, nil
		}

		lastErr = err
		messages = append(messages, chatMessage{Role: "user", Content: reformatMessage})
	}

	return nil, fmt.Errorf("failed to parse generation response: %w", lastErr)
}

func (g *Generator) renderPrompt(in GenerationInput) string {
	keywords := "(none)"
	if len(in.Keywords) > 0 {
		keywords = strings.Join(in.Keywords, ", ")
	}

	return strings.NewReplacer(
		"{topic}", in.Topic,
		"{main}", in.Main,
		"{seo_keywords}", keywords,
	).Replace(g.promptTemplate)
}

func (g *Generator) complete(ctx context.Context, messages []chatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	reqBody := chatRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages:    messages,
	}
	reqBody.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read generation response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("generation service error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("generation response has no choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}

func parseGenerated(text string) (*Generated, error) {
	var gen Generated
	if err := json.Unmarshal([]byte(extractJSON(text)), &gen); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	gen.Title = strings.TrimSpace(gen.Title)
	gen.Content = strings.TrimSpace(gen.Content)
	if gen.Title == "" || gen.Content == "" {
		return nil, fmt.Errorf("missing title or content")
	}

	return &gen, nil
}

// extractJSON cuts the outermost JSON object out of a reply that wraps it
// in prose or markdown fences.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end != -1 && end > start {
		return s[start : end+1]
	}

	return s
}
