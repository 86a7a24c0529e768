package scoring

import "github.com/satprep/satprep/internal/question"

// Points awarded for a correct answer, by difficulty.
const (
	PointsEasy   = 3
	PointsMedium = 6
	PointsHard   = 9
)

// XP awarded for a correct answer, by difficulty, and the flat penalty for a
// wrong one.
const (
	XPEasy      = 10
	XPMedium    = 25
	XPHard      = 50
	XPIncorrect = -15
)

// Points returns the points for a single resolved question. Unrecognized
// difficulties score as medium.
func Points(d question.Difficulty, correct bool) int {
	if !correct {
		return 0
	}
	switch d {
	case question.Easy:
		return PointsEasy
	case question.Hard:
		return PointsHard
	default:
		return PointsMedium
	}
}

// XPDelta returns the raw XP change for a single resolved question. The delta
// may be negative; use ApplyXP to keep a running total non-negative.
func XPDelta(d question.Difficulty, correct bool) int {
	if !correct {
		return XPIncorrect
	}
	switch d {
	case question.Easy:
		return XPEasy
	case question.Hard:
		return XPHard
	default:
		return XPMedium
	}
}

// ApplyXP adds delta to total, flooring the result at zero.
func ApplyXP(total, delta int) int {
	total += delta
	if total < 0 {
		return 0
	}
	return total
}

// Tally accumulates points and XP over a sequence of resolved questions.
// The zero value starts both totals at zero.
type Tally struct {
	Points int `json:"points"`
	XP     int `json:"xp"`
	// StartXP is the XP total the tally began from.
	StartXP int `json:"start_xp"`
}

// NewTally returns a tally that continues from an existing XP total.
func NewTally(startXP int) Tally {
	if startXP < 0 {
		startXP = 0
	}
	return Tally{XP: startXP, StartXP: startXP}
}

// Record scores one question and returns the points and XP actually applied.
func (t *Tally) Record(d question.Difficulty, correct bool) (points, xp int) {
	points = Points(d, correct)
	t.Points += points
	before := t.XP
	t.XP = ApplyXP(t.XP, XPDelta(d, correct))
	return points, t.XP - before
}

// XPEarned is the net XP gained since the tally started.
func (t Tally) XPEarned() int {
	return t.XP - t.StartXP
}
