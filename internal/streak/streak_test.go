package streak

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/satprep/satprep/internal/kv"
)

func day(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func TestTouch(t *testing.T) {
	tests := []struct {
		name        string
		start       Record
		at          string
		wantChanged bool
		wantCurrent int
		wantLongest int
	}{
		{"first activity", Record{}, "2026-03-01 10:00", true, 1, 1},
		{"same day", Record{Current: 2, Longest: 4, LastActive: "2026-03-01"}, "2026-03-01 23:59", false, 2, 4},
		{"next day", Record{Current: 2, Longest: 2, LastActive: "2026-03-01"}, "2026-03-02 00:01", true, 3, 3},
		{"gap resets", Record{Current: 5, Longest: 5, LastActive: "2026-03-01"}, "2026-03-03 08:00", true, 1, 5},
		{"month boundary", Record{Current: 1, Longest: 3, LastActive: "2026-02-28"}, "2026-03-01 08:00", true, 2, 3},
		{"earlier day ignored", Record{Current: 1, Longest: 1, LastActive: "2026-03-05"}, "2026-03-04 08:00", false, 1, 1},
		{"corrupt last date", Record{Current: 9, Longest: 9, LastActive: "bogus"}, "2026-03-04 08:00", true, 1, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.start
			changed := r.Touch(day(tt.at))
			if changed != tt.wantChanged {
				t.Errorf("Touch() = %v, want %v", changed, tt.wantChanged)
			}
			if r.Current != tt.wantCurrent {
				t.Errorf("Current = %d, want %d", r.Current, tt.wantCurrent)
			}
			if r.Longest != tt.wantLongest {
				t.Errorf("Longest = %d, want %d", r.Longest, tt.wantLongest)
			}
			if r.Current > r.Longest {
				t.Errorf("Current %d > Longest %d", r.Current, r.Longest)
			}
		})
	}
}

func TestTouchUsesUTCDays(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	late := time.Date(2026, 3, 1, 22, 0, 0, 0, est) // 2026-03-02 03:00 UTC
	early := time.Date(2026, 3, 2, 1, 0, 0, 0, est) // 2026-03-02 06:00 UTC

	var r Record
	if !r.Touch(late) {
		t.Fatal("Touch(first) = false, want true")
	}
	if r.LastActive != "2026-03-02" {
		t.Errorf("LastActive = %q, want 2026-03-02", r.LastActive)
	}
	if r.Touch(early) {
		t.Error("Touch(same UTC day) = true, want false")
	}
	if r.Current != 1 {
		t.Errorf("Current = %d, want 1", r.Current)
	}
}

func TestLive(t *testing.T) {
	r := Record{Current: 4, Longest: 6, LastActive: "2026-03-10"}
	if got := r.Live(day("2026-03-11 09:00")); got != 4 {
		t.Errorf("Live(next day) = %d, want 4", got)
	}
	if got := r.Live(day("2026-03-12 09:00")); got != 0 {
		t.Errorf("Live(after gap) = %d, want 0", got)
	}
}

type memRepo struct {
	recs map[string]Record
}

func (m *memRepo) Streak(_ context.Context, userID string) (Record, error) {
	return m.recs[userID], nil
}

func (m *memRepo) SaveStreak(_ context.Context, userID string, r Record) error {
	m.recs[userID] = r
	return nil
}

func TestActivityKeepsLastThirtyDays(t *testing.T) {
	kvs, err := kv.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	repo := &memRepo{recs: map[string]Record{}}
	a := NewActivity(kvs, "activity-dates", repo, nil)
	ctx := context.Background()

	start := day("2026-01-01 12:00")
	for i := 0; i < 35; i++ {
		at := start.AddDate(0, 0, i)
		if err := a.RecordActivity(ctx, "u1", at); err != nil {
			t.Fatalf("RecordActivity(%d) error: %v", i, err)
		}
		// A second session the same day changes nothing.
		if err := a.RecordActivity(ctx, "u1", at.Add(time.Hour)); err != nil {
			t.Fatal(err)
		}
	}

	dates, err := a.Dates()
	if err != nil {
		t.Fatal(err)
	}
	if len(dates) != MaxActivityDates {
		t.Fatalf("len(dates) = %d, want %d", len(dates), MaxActivityDates)
	}
	if dates[0] != "2026-01-06" || dates[len(dates)-1] != "2026-02-04" {
		t.Errorf("dates span %s..%s, want 2026-01-06..2026-02-04", dates[0], dates[len(dates)-1])
	}

	rec := repo.recs["u1"]
	if rec.Current != 35 || rec.Longest != 35 {
		t.Errorf("streak = %+v, want current=longest=35", rec)
	}
}

func TestActivityMalformedSlot(t *testing.T) {
	kvs, err := kv.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := kvs.Set("activity-dates", []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	a := NewActivity(kvs, "activity-dates", nil, nil)
	if err := a.RecordActivity(context.Background(), "u1", day("2026-05-01 08:00")); err != nil {
		t.Fatalf("RecordActivity() error: %v", err)
	}
	dates, _ := a.Dates()
	if fmt.Sprint(dates) != "[2026-05-01]" {
		t.Errorf("Dates() = %v, want [2026-05-01]", dates)
	}
}
