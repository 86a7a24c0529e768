package weakness

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultMinSample is the fewest attempts a topic needs to be ranked.
	DefaultMinSample = 3

	// DefaultThreshold is the accuracy below which a topic is weak.
	DefaultThreshold = 0.60

	// MaxWeakTopics caps the ranking.
	MaxWeakTopics = 5
)

var (
	ErrMissingQuestion = errors.New("attempt record has no question id")
	ErrNoTopics        = errors.New("attempt record has no topics")
)

// AttemptRecord is one historical answer, validated at the store boundary.
// Only answered attempts become records.
type AttemptRecord struct {
	SessionID  string
	QuestionID string
	Topics     []string
	Correct    bool
	AnsweredAt time.Time

	// TimeSpent is optional; zero when unknown.
	TimeSpent int
}

// NewAttemptRecord builds a record, trimming topics and rejecting records
// that cannot contribute to a topic profile.
func NewAttemptRecord(sessionID, questionID string, topics []string, correct bool, at time.Time, timeSpent int) (AttemptRecord, error) {
	questionID = strings.TrimSpace(questionID)
	if questionID == "" {
		return AttemptRecord{}, ErrMissingQuestion
	}
	var clean []string
	seen := make(map[string]bool, len(topics))
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		clean = append(clean, t)
	}
	if len(clean) == 0 {
		return AttemptRecord{}, fmt.Errorf("question %s: %w", questionID, ErrNoTopics)
	}
	if timeSpent < 0 {
		timeSpent = 0
	}
	return AttemptRecord{
		SessionID:  sessionID,
		QuestionID: questionID,
		Topics:     clean,
		Correct:    correct,
		AnsweredAt: at,
		TimeSpent:  timeSpent,
	}, nil
}

// TopicStat is the tally for one topic.
type TopicStat struct {
	Topic   string  `json:"topic"`
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
	Acc     float64 `json:"accuracy"`
}

// Profile maps topics to their tallies, keeping first-seen topic order.
type Profile struct {
	order []string
	stats map[string]*TopicStat
}

// Build aggregates records by topic. A record with several topics counts
// toward each.
func Build(records []AttemptRecord) *Profile {
	p := &Profile{stats: make(map[string]*TopicStat)}
	for _, r := range records {
		for _, topic := range r.Topics {
			st, ok := p.stats[topic]
			if !ok {
				st = &TopicStat{Topic: topic}
				p.stats[topic] = st
				p.order = append(p.order, topic)
			}
			st.Total++
			if r.Correct {
				st.Correct++
			}
		}
	}
	for _, st := range p.stats {
		st.Acc = float64(st.Correct) / float64(st.Total)
	}
	return p
}

// Topics returns every topic's stat in first-seen order.
func (p *Profile) Topics() []TopicStat {
	out := make([]TopicStat, 0, len(p.order))
	for _, t := range p.order {
		out = append(out, *p.stats[t])
	}
	return out
}

// Options tune Rank. Zero values take the defaults.
type Options struct {
	MinSample int
	Threshold float64
	Limit     int
}

// Rank returns the weakest topics, weakest first: topics with at least
// MinSample attempts and accuracy strictly below Threshold, at most Limit.
// Ties keep first-seen topic order.
func Rank(records []AttemptRecord, opts Options) []TopicStat {
	if opts.MinSample <= 0 {
		opts.MinSample = DefaultMinSample
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Limit <= 0 {
		opts.Limit = MaxWeakTopics
	}

	var weak []TopicStat
	for _, st := range Build(records).Topics() {
		if st.Total < opts.MinSample || st.Acc >= opts.Threshold {
			continue
		}
		weak = append(weak, st)
	}
	sort.SliceStable(weak, func(i, j int) bool {
		return weak[i].Acc < weak[j].Acc
	})
	if len(weak) > opts.Limit {
		weak = weak[:opts.Limit]
	}
	return weak
}

// TopicNames returns the topic names of stats.
func TopicNames(stats []TopicStat) []string {
	names := make([]string, len(stats))
	for i, s := range stats {
		names[i] = s.Topic
	}
	return names
}
