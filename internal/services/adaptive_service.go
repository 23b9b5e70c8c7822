package services

import (
	"sort"

	"github.com/skillforge/assessment-service/internal/config"
)

// AdaptiveParams are the generation parameters for the next round,
// derived from the previous round's result.
type AdaptiveParams struct {
	Difficulty int `json:"difficulty"`

	// CategoryPriority lists categories by miss count descending; ties
	// break by name so the ordering is deterministic. Categories the
	// learner answered correctly rank after the missed ones with zero
	// misses, so round 2 still covers the full set when slots allow.
	CategoryPriority []string       `json:"category_priority"`
	MissCounts       map[string]int `json:"miss_counts"`
}

type adaptiveService struct {
	cfg config.AdaptiveConfig
}

func NewAdaptiveService(cfg config.AdaptiveConfig) AdaptiveService {
	return &adaptiveService{cfg: cfg}
}

// PlanNextRound is a pure transform of the round result: no I/O, no
// hidden state. Higher score never yields a lower next-round difficulty.
func (s *adaptiveService) PlanNextRound(result *RoundResultResponse, currentDifficulty int) *AdaptiveParams {
	difficulty := currentDifficulty
	switch {
	case result.Score >= s.cfg.HighScoreThreshold:
		difficulty += s.cfg.DifficultyStep
	case result.Score <= s.cfg.LowScoreThreshold:
		difficulty -= s.cfg.DifficultyStep
	}
	difficulty = clamp(difficulty, s.cfg.MinDifficulty, s.cfg.MaxDifficulty)

	// Seed with the round's full category set so clean categories stay in
	// play with zero misses, then overlay the actual miss counts.
	misses := make(map[string]int, len(result.Categories))
	for _, category := range result.Categories {
		misses[category] = 0
	}
	for category, count := range result.WrongCategories {
		misses[category] = count
	}
	priority := make([]string, 0, len(misses))
	for category := range misses {
		priority = append(priority, category)
	}
	sort.Slice(priority, func(i, j int) bool {
		if misses[priority[i]] != misses[priority[j]] {
			return misses[priority[i]] > misses[priority[j]]
		}
		return priority[i] < priority[j]
	})

	return &AdaptiveParams{
		Difficulty:       difficulty,
		CategoryPriority: priority,
		MissCounts:       misses,
	}
}

// AllocateSlots distributes question slots across the priority list.
// Every category gets at least one slot when slots allow; extra slots go
// to high-miss categories proportionally. When categories outnumber
// slots, only the top-priority categories are covered.
func (s *adaptiveService) AllocateSlots(params *AdaptiveParams, slots int) map[string]int {
	allocation := make(map[string]int)
	if slots <= 0 || len(params.CategoryPriority) == 0 {
		return allocation
	}

	categories := params.CategoryPriority
	if len(categories) >= slots {
		for _, category := range categories[:slots] {
			allocation[category] = 1
		}
		return allocation
	}

	totalMisses := 0
	for _, category := range categories {
		allocation[category] = 1
		totalMisses += params.MissCounts[category]
	}

	extra := slots - len(categories)
	if extra == 0 {
		return allocation
	}

	if totalMisses == 0 {
		// Nothing to bias toward; spread extras in priority order.
		for i := 0; i < extra; i++ {
			allocation[categories[i%len(categories)]]++
		}
		return allocation
	}

	remaining := extra
	for _, category := range categories {
		share := params.MissCounts[category] * extra / totalMisses
		allocation[category] += share
		remaining -= share
	}
	// Leftover from integer division lands on the highest-miss categories.
	for i := 0; remaining > 0; i++ {
		allocation[categories[i%len(categories)]]++
		remaining--
	}

	return allocation
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
