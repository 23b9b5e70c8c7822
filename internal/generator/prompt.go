package generator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const systemInstruction = `You are a technical assessment item writer. You produce batteries of
skill-check questions as strict JSON. Respond with a JSON array only, no
prose, no markdown fences. Each element must have the fields:
kind ("multiple_choice" | "true_false" | "short_answer"), prompt,
choices (array of 4 strings, multiple_choice only), correct_key
(the correct choice text, or "true"/"false"), keywords (array of
expected answer keywords, short_answer only), explanation, difficulty
(integer 1-5), category.`

// buildPrompt renders the user message for one generation request.
func buildPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generate exactly %d questions at difficulty %d (1=easiest, 5=hardest).\n",
		req.QuestionCount, req.Difficulty)
	fmt.Fprintf(&b, "Learner profile: level=%s, role=%q, experience=%d years.\n",
		req.Survey.Level, req.Survey.Role, req.Survey.Experience)

	if len(req.Survey.Interests) > 0 {
		var interests []string
		if err := json.Unmarshal(req.Survey.Interests, &interests); err == nil && len(interests) > 0 {
			fmt.Fprintf(&b, "Topic areas: %s.\n", strings.Join(interests, ", "))
		}
	}

	if len(req.CategoryWeights) > 0 {
		fmt.Fprintf(&b, "Allocate question slots per category exactly as follows:\n")
		for _, cat := range sortedKeys(req.CategoryWeights) {
			fmt.Fprintf(&b, "- %s: %d question(s)\n", cat, req.CategoryWeights[cat])
		}
	}

	if req.PriorRoundContext != nil {
		fmt.Fprintf(&b, "This is round %d. The learner scored %.0f/100 in round 1.\n",
			req.Round, req.PriorRoundContext.Score)
		if len(req.PriorRoundContext.WrongCategories) > 0 {
			fmt.Fprintf(&b, "Round-1 misses by category: ")
			parts := make([]string, 0, len(req.PriorRoundContext.WrongCategories))
			for _, cat := range sortedKeys(req.PriorRoundContext.WrongCategories) {
				parts = append(parts, fmt.Sprintf("%s=%d", cat, req.PriorRoundContext.WrongCategories[cat]))
			}
			fmt.Fprintf(&b, "%s. Probe these areas harder.\n", strings.Join(parts, ", "))
		}
	}

	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
