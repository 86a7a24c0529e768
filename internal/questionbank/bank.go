// Package questionbank loads multiple-choice questions and selects the
// ordered question set for a session.
package questionbank

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"slices"

	"github.com/satprep/satprep/internal/question"
)

//go:embed data/sat.json
var defaultBank []byte

var (
	// ErrNoMatch is returned when no question satisfies a filter.
	ErrNoMatch = errors.New("no questions match")

	// ErrUnknownQuestion is returned by ByIDs for an id not in the bank.
	ErrUnknownQuestion = errors.New("unknown question id")
)

// Bank is an immutable, validated set of questions.
type Bank struct {
	questions []question.Question
	byID      map[string]int
}

// Default returns the embedded SAT sample bank.
func Default() (*Bank, error) {
	return Parse(defaultBank)
}

// Open returns the bank at path, or the embedded bank when path is empty.
func Open(path string) (*Bank, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open question bank: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a JSON array of questions from r.
func Read(r io.Reader) (*Bank, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	return Parse(data)
}

// Parse validates every question once; a bank with an invalid or repeated
// question is rejected whole.
func Parse(data []byte) (*Bank, error) {
	var qs []question.Question
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	return New(qs)
}

// New builds a bank from questions.
func New(qs []question.Question) (*Bank, error) {
	b := &Bank{byID: make(map[string]int, len(qs))}
	for _, q := range qs {
		q.Difficulty = question.ParseDifficulty(string(q.Difficulty))
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("invalid question: %w", err)
		}
		if _, dup := b.byID[q.ID]; dup {
			return nil, fmt.Errorf("invalid question bank: duplicate id %q", q.ID)
		}
		b.byID[q.ID] = len(b.questions)
		b.questions = append(b.questions, q)
	}
	return b, nil
}

// Len returns the number of questions.
func (b *Bank) Len() int {
	return len(b.questions)
}

// Filter narrows a selection. Zero fields match everything.
type Filter struct {
	Subject    question.Subject
	Difficulty question.Difficulty

	// Topics keeps questions tagged with any of these topics.
	Topics []string
}

func (f Filter) match(q question.Question) bool {
	if f.Subject != "" && q.Subject != f.Subject {
		return false
	}
	if f.Difficulty != "" && q.Difficulty != f.Difficulty {
		return false
	}
	if len(f.Topics) == 0 {
		return true
	}
	for _, t := range q.Topics {
		if slices.Contains(f.Topics, t) {
			return true
		}
	}
	return false
}

// Select returns up to n matching questions in shuffled order. n <= 0
// returns every match. rng may be nil.
func (b *Bank) Select(f Filter, n int, rng *rand.Rand) ([]question.Question, error) {
	var out []question.Question
	for _, q := range b.questions {
		if f.match(q) {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: subject=%q difficulty=%q topics=%v", ErrNoMatch, f.Subject, f.Difficulty, f.Topics)
	}

	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// ByIDs returns the questions with the given ids, in that order.
func (b *Bank) ByIDs(ids []string) ([]question.Question, error) {
	out := make([]question.Question, 0, len(ids))
	for _, id := range ids {
		i, ok := b.byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownQuestion, id)
		}
		out = append(out, b.questions[i])
	}
	return out, nil
}

// Get returns the question with id.
func (b *Bank) Get(id string) (question.Question, bool) {
	i, ok := b.byID[id]
	if !ok {
		return question.Question{}, false
	}
	return b.questions[i], true
}

// Topics returns the distinct topics of a subject in bank order. An empty
// subject covers the whole bank.
func (b *Bank) Topics(subject question.Subject) []string {
	var out []string
	for _, q := range b.questions {
		if subject != "" && q.Subject != subject {
			continue
		}
		for _, t := range q.Topics {
			if !slices.Contains(out, t) {
				out = append(out, t)
			}
		}
	}
	return out
}
