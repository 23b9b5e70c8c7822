package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/skillforge/assessment-service/internal/models"
	"google.golang.org/api/option"
)

// GeminiGenerator produces question batteries through the Gemini API.
type GeminiGenerator struct {
	model  *genai.GenerativeModel
	client *genai.Client
	logger *slog.Logger
}

type GeminiConfig struct {
	APIKey    string
	ModelName string
}

func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.ModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}
	model.ResponseMIMEType = "application/json"

	return &GeminiGenerator{model: model, client: client, logger: logger}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, req Request) ([]GeneratedQuestion, error) {
	prompt := buildPrompt(req)

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generation failed: %w", err)
	}

	raw, err := extractText(resp)
	if err != nil {
		return nil, err
	}

	var questions []GeneratedQuestion
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, fmt.Errorf("failed to parse generator response: %w", err)
	}

	// No partial generation accepted: exactly the requested count or error.
	if len(questions) != req.QuestionCount {
		g.logger.Warn("generator returned wrong question count",
			"requested", req.QuestionCount,
			"returned", len(questions))
		return nil, ErrShortBatch
	}

	for i := range questions {
		normalize(&questions[i], req.Difficulty)
	}

	return questions, nil
}

func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty generator response")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	raw := strings.TrimSpace(b.String())
	// Some models wrap JSON in fences despite the MIME hint.
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw), nil
}

func normalize(q *GeneratedQuestion, fallbackDifficulty int) {
	if q.Difficulty < models.DifficultyMin || q.Difficulty > models.DifficultyMax {
		q.Difficulty = fallbackDifficulty
	}
	if q.Kind == models.TrueFalse {
		q.CorrectKey = strings.ToLower(strings.TrimSpace(q.CorrectKey))
		q.Choices = nil
	}
}
