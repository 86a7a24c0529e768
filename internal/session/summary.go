package session

import "time"

// TopicResult is the per-topic breakdown of a session.
type TopicResult struct {
	Topic     string `json:"topic"`
	Attempted int    `json:"attempted"`
	Correct   int    `json:"correct"`
}

// Summary holds the totals displayed at the end of a session.
type Summary struct {
	SessionID string        `json:"session_id"`
	Duration  time.Duration `json:"duration"`
	Completed bool          `json:"completed"`

	Total    int     `json:"total"`
	Answered int     `json:"answered"`
	Correct  int     `json:"correct"`
	Skipped  int     `json:"skipped"`
	Flagged  int     `json:"flagged"`
	Accuracy float64 `json:"accuracy"`

	Points   int `json:"points"`
	XP       int `json:"xp"`
	XPEarned int `json:"xp_earned"`

	Topics []TopicResult `json:"topics"`
}

// Summarize builds a Summary from a session. Accuracy is over answered
// questions. Topics keep first-seen order.
func Summarize(s *Session, now time.Time) Summary {
	sum := Summary{
		SessionID: s.ID,
		Duration:  s.Elapsed(now).Truncate(time.Second),
		Completed: s.Completed,
		Total:     len(s.Attempts),
		Points:    s.Tally.Points,
		XP:        s.Tally.XP,
		XPEarned:  s.Tally.XPEarned(),
	}

	index := make(map[string]int)
	for _, a := range s.Attempts {
		if a.Flagged {
			sum.Flagged++
		}
		if !a.Answered() {
			sum.Skipped++
			continue
		}
		sum.Answered++
		correct := a.Correct != nil && *a.Correct
		if correct {
			sum.Correct++
		}
		for _, topic := range a.Topics {
			i, ok := index[topic]
			if !ok {
				i = len(sum.Topics)
				index[topic] = i
				sum.Topics = append(sum.Topics, TopicResult{Topic: topic})
			}
			sum.Topics[i].Attempted++
			if correct {
				sum.Topics[i].Correct++
			}
		}
	}

	if sum.Answered > 0 {
		sum.Accuracy = float64(sum.Correct) / float64(sum.Answered)
	}
	return sum
}
