package coach

import (
	"fmt"
	"strings"

	"github.com/satprep/satprep/internal/store"
	"github.com/satprep/satprep/internal/weakness"
)

const systemPrompt = `You are a focused, encouraging SAT study coach. You receive a learner's accuracy per topic and recommend how to spend the next week of practice.`

func buildUserMessage(weak []weakness.TopicStat, stats store.UserStats) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Sessions completed: %d\n", stats.Sessions))
	b.WriteString(fmt.Sprintf("Questions answered: %d\n", stats.Answered))
	if stats.Answered > 0 {
		b.WriteString(fmt.Sprintf("Overall accuracy: %.0f%%\n", float64(stats.Correct)/float64(stats.Answered)*100))
	}

	b.WriteString("\nWeak topics (weakest first):\n")
	for _, s := range weak {
		b.WriteString(fmt.Sprintf("- %s: %d/%d correct (%.0f%%)\n", s.Topic, s.Correct, s.Total, s.Acc*100))
	}

	b.WriteString(`
Instructions:
1. Write a 2-3 sentence summary of where the learner stands.
2. Add one focus entry per weak topic above, in the same order. Use the topic name exactly as given.
3. Pick a difficulty: easy below 40% accuracy, medium below 60%, hard otherwise.
4. Recommend between 5 and 20 questions per topic, more for weaker topics.
5. Add 1-3 short general tips. Plain text only.`)

	return b.String()
}
