// Package coach turns a learner's weakest topics into a short study plan.
package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/satprep/satprep/internal/llm"
	"github.com/satprep/satprep/internal/question"
	"github.com/satprep/satprep/internal/store"
	"github.com/satprep/satprep/internal/weakness"
)

// Plan sources.
const (
	SourceAI    = "ai"
	SourceRules = "rules"
)

// Purpose labels study plan requests in the analysis event log.
const Purpose = "study-plan"

// Plan is a study recommendation.
type Plan struct {
	Summary     string    `json:"summary"`
	Focus       []Focus   `json:"focus"`
	Tips        []string  `json:"tips"`
	Source      string    `json:"source"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Focus is the practice recommended for one weak topic.
type Focus struct {
	Topic      string  `json:"topic"`
	Difficulty string  `json:"difficulty"`
	Questions  int     `json:"questions"`
	Advice     string  `json:"advice"`
	Accuracy   float64 `json:"accuracy"`
}

// Config tunes plan generation.
type Config struct {
	MaxTokens   int
	Temperature float64
	// Window is how many of the most recent answered attempts are ranked.
	// Zero ranks all of them.
	Window   int
	Weakness weakness.Options
}

// DefaultConfig returns the coach defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   1024,
		Temperature: 0.3,
		Window:      500,
	}
}

// Coach builds study plans from answer history.
type Coach struct {
	provider llm.Provider
	history  store.HistoryRepo
	cfg      Config
	log      *zap.Logger
}

// New creates a Coach. A nil provider always uses the rule-based plan.
func New(provider llm.Provider, history store.HistoryRepo, cfg Config, log *zap.Logger) *Coach {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coach{provider: provider, history: history, cfg: cfg, log: log}
}

// Weaknesses ranks the user's weakest topics over the configured window.
func (c *Coach) Weaknesses(ctx context.Context, userID string) ([]weakness.TopicStat, error) {
	records, err := c.history.AttemptRecords(ctx, userID, store.QueryOpts{})
	if err != nil {
		return nil, fmt.Errorf("load attempts: %w", err)
	}
	if c.cfg.Window > 0 && len(records) > c.cfg.Window {
		records = records[len(records)-c.cfg.Window:]
	}
	return weakness.Rank(records, c.cfg.Weakness), nil
}

// StudyPlan recommends practice for the user's weakest topics. Provider
// failures fall back to the rule-based plan; only history errors and
// cancellation are returned.
func (c *Coach) StudyPlan(ctx context.Context, userID string) (*Plan, error) {
	weak, err := c.Weaknesses(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats, err := c.history.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}

	if len(weak) == 0 {
		return &Plan{
			Summary:     "No weak topics yet. Keep practicing mixed sessions so there is enough history to analyze.",
			Source:      SourceRules,
			GeneratedAt: time.Now(),
		}, nil
	}
	if c.provider == nil {
		return RulePlan(weak), nil
	}

	plan, err := c.generate(ctx, userID, weak, stats)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Warn("study plan generation failed, using rules",
			zap.String("user_id", userID), zap.Error(err))
		return RulePlan(weak), nil
	}
	return plan, nil
}

type planOutput struct {
	Summary string `json:"summary"`
	Focus   []struct {
		Topic      string `json:"topic"`
		Difficulty string `json:"difficulty"`
		Questions  int    `json:"questions"`
		Advice     string `json:"advice"`
	} `json:"focus"`
	Tips []string `json:"tips"`
}

func (c *Coach) generate(ctx context.Context, userID string, weak []weakness.TopicStat, stats store.UserStats) (*Plan, error) {
	ctx = llm.WithUser(llm.WithPurpose(ctx, Purpose), userID)

	req := llm.Prompt(systemPrompt, buildUserMessage(weak, stats), PlanSchema)
	req.MaxTokens = c.cfg.MaxTokens
	req.Temperature = c.cfg.Temperature

	resp, err := c.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("study plan: %w", err)
	}

	var out planOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("parse study plan: %w", err)
	}

	acc := make(map[string]float64, len(weak))
	for _, s := range weak {
		acc[s.Topic] = s.Acc
	}

	plan := &Plan{
		Summary:     out.Summary,
		Tips:        out.Tips,
		Source:      SourceAI,
		GeneratedAt: time.Now(),
	}
	seen := make(map[string]bool)
	for _, f := range out.Focus {
		a, ok := acc[f.Topic]
		if !ok || seen[f.Topic] {
			continue
		}
		seen[f.Topic] = true
		d := question.ParseDifficulty(f.Difficulty)
		if !d.Known() {
			d = difficultyFor(a)
		}
		plan.Focus = append(plan.Focus, Focus{
			Topic:      f.Topic,
			Difficulty: string(d),
			Questions:  clamp(f.Questions, 1, 30),
			Advice:     f.Advice,
			Accuracy:   a,
		})
	}
	if len(plan.Focus) == 0 {
		return nil, fmt.Errorf("study plan names none of the weak topics")
	}
	return plan, nil
}

// RulePlan builds a deterministic plan: weaker topics get easier questions
// and more of them.
func RulePlan(weak []weakness.TopicStat) *Plan {
	plan := &Plan{
		Summary: fmt.Sprintf("%d topic(s) are below target accuracy. Work through them weakest first.", len(weak)),
		Tips: []string{
			"Read every explanation for a missed question before moving on.",
			"Flag questions you guessed on and revisit them at the end.",
		},
		Source:      SourceRules,
		GeneratedAt: time.Now(),
	}
	for _, s := range weak {
		n := 5 + int(math.Round((weakness.DefaultThreshold-s.Acc)*25))
		plan.Focus = append(plan.Focus, Focus{
			Topic:      s.Topic,
			Difficulty: string(difficultyFor(s.Acc)),
			Questions:  clamp(n, 5, 20),
			Advice:     fmt.Sprintf("Review missed %s questions, then drill a short targeted set.", s.Topic),
			Accuracy:   s.Acc,
		})
	}
	return plan
}

func difficultyFor(acc float64) question.Difficulty {
	switch {
	case acc < 0.4:
		return question.Easy
	case acc < 0.6:
		return question.Medium
	default:
		return question.Hard
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
