package generator

import (
	"context"
	"fmt"
	"sync"

	"github.com/skillforge/assessment-service/internal/models"
)

// MockGenerator is an in-memory QuestionGenerator for tests and for
// running the service without a Gemini API key. It honours the slot
// allocation in the request and records every request it receives.
type MockGenerator struct {
	mu       sync.Mutex
	Requests []Request

	// FailTimes makes the next N Generate calls return an error.
	FailTimes int

	// Short makes Generate return one question fewer than requested.
	Short bool
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (m *MockGenerator) Generate(ctx context.Context, req Request) ([]GeneratedQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)

	if m.FailTimes > 0 {
		m.FailTimes--
		return nil, fmt.Errorf("mock generator failure")
	}

	count := req.QuestionCount
	if m.Short {
		count--
	}

	categories := make([]string, 0, count)
	for _, cat := range sortedKeys(req.CategoryWeights) {
		for i := 0; i < req.CategoryWeights[cat]; i++ {
			categories = append(categories, cat)
		}
	}
	for len(categories) < count {
		categories = append(categories, "General")
	}

	questions := make([]GeneratedQuestion, 0, count)
	for i := 0; i < count; i++ {
		questions = append(questions, GeneratedQuestion{
			Kind:        models.MultipleChoice,
			Prompt:      fmt.Sprintf("Round %d question %d", req.Round, i+1),
			Choices:     []string{"A", "B", "C", "D"},
			CorrectKey:  "A",
			Explanation: "A is correct.",
			Difficulty:  req.Difficulty,
			Category:    categories[i],
		})
	}

	if m.Short && len(questions) != req.QuestionCount {
		return nil, ErrShortBatch
	}
	return questions, nil
}
