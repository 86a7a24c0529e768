package questionbank

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/satprep/satprep/internal/question"
)

func TestDefaultBankIsValid(t *testing.T) {
	b, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	if b.Len() < 20 {
		t.Errorf("Len() = %d, want at least 20", b.Len())
	}
	for _, s := range []question.Subject{question.SubjectMath, question.SubjectReading, question.SubjectWriting} {
		if len(b.Topics(s)) == 0 {
			t.Errorf("no topics for subject %s", s)
		}
	}
}

func TestSelect(t *testing.T) {
	b, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewPCG(1, 2))

	tests := []struct {
		name   string
		filter Filter
		n      int
		check  func(q question.Question) bool
	}{
		{"subject", Filter{Subject: question.SubjectMath}, 5, func(q question.Question) bool { return q.Subject == question.SubjectMath }},
		{"difficulty", Filter{Difficulty: question.Hard}, 0, func(q question.Question) bool { return q.Difficulty == question.Hard }},
		{"topic", Filter{Topics: []string{"quadratics"}}, 0, func(q question.Question) bool {
			for _, tp := range q.Topics {
				if tp == "quadratics" {
					return true
				}
			}
			return false
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Select(tt.filter, tt.n, rng)
			if err != nil {
				t.Fatalf("Select() error: %v", err)
			}
			if tt.n > 0 && len(got) != tt.n {
				t.Errorf("len = %d, want %d", len(got), tt.n)
			}
			seen := map[string]bool{}
			for _, q := range got {
				if !tt.check(q) {
					t.Errorf("question %s does not match filter", q.ID)
				}
				if seen[q.ID] {
					t.Errorf("question %s selected twice", q.ID)
				}
				seen[q.ID] = true
			}
		})
	}
}

func TestSelectNoMatch(t *testing.T) {
	b, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	_, err = b.Select(Filter{Topics: []string{"calculus"}}, 3, nil)
	if !errors.Is(err, ErrNoMatch) {
		t.Errorf("Select() = %v, want ErrNoMatch", err)
	}
}

func TestByIDsKeepsOrder(t *testing.T) {
	b, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	ids := []string{"write-003", "math-001", "read-002"}
	got, err := b.ByIDs(ids)
	if err != nil {
		t.Fatalf("ByIDs() error: %v", err)
	}
	for i, q := range got {
		if q.ID != ids[i] {
			t.Errorf("got[%d] = %s, want %s", i, q.ID, ids[i])
		}
	}

	if _, err := b.ByIDs([]string{"nope"}); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("ByIDs(unknown) = %v, want ErrUnknownQuestion", err)
	}
}

func TestReadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"bad json", `[{`},
		{"bad correct", `[{"id":"a","prompt":"p","options":["x","y"],"correct":5}]`},
		{"duplicate", `[{"id":"a","prompt":"p","options":["x","y"]},{"id":"a","prompt":"q","options":["x","y"]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tt.json)); err == nil {
				t.Error("Read() = nil, want error")
			}
		})
	}
}

func TestReadNormalizesDifficulty(t *testing.T) {
	b, err := Read(strings.NewReader(`[{"id":"a","prompt":"p","options":["x","y"],"difficulty":" HARD "}]`))
	if err != nil {
		t.Fatal(err)
	}
	q, ok := b.Get("a")
	if !ok || q.Difficulty != question.Hard {
		t.Errorf("Get(a) = %+v, %v", q, ok)
	}
}
