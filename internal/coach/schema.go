package coach

import "github.com/satprep/satprep/internal/llm"

// PlanSchema defines the JSON schema for study plan generation.
var PlanSchema = &llm.Schema{
	Name:        "study-plan",
	Description: "A short SAT study plan targeting the learner's weakest topics",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "2-3 sentence overview of where the learner stands",
			},
			"focus": map[string]any{
				"type":        "array",
				"description": "One entry per weak topic, weakest first",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"topic": map[string]any{
							"type":        "string",
							"description": "Topic name exactly as given",
						},
						"difficulty": map[string]any{
							"type": "string",
							"enum": []any{"easy", "medium", "hard"},
						},
						"questions": map[string]any{
							"type":        "integer",
							"minimum":     1,
							"maximum":     30,
							"description": "Questions to practice on this topic this week",
						},
						"advice": map[string]any{
							"type":        "string",
							"description": "One concrete tip (10-25 words)",
						},
					},
					"required":             []any{"topic", "difficulty", "questions", "advice"},
					"additionalProperties": false,
				},
			},
			"tips": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "1-3 general test-taking tips",
			},
		},
		"required":             []any{"summary", "focus", "tips"},
		"additionalProperties": false,
	},
}
