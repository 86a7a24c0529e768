package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satprep/satprep/internal/coach"
	"github.com/satprep/satprep/internal/question"
	"github.com/satprep/satprep/internal/questionbank"
	"github.com/satprep/satprep/internal/session"
	"github.com/satprep/satprep/internal/ui/layout"
	"github.com/satprep/satprep/internal/ui/theme"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start a practice session",
	Long: "Start a practice session. Modes: practice (a short quiz), marathon (every " +
		"matching question) and mock (a timed test scored at the end).",
	Args: cobra.NoArgs,
	RunE: runPlay,
}

func init() {
	addPlayFlags(playCmd)
}

func addPlayFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("subject", "s", "", "Subject: math, reading or writing (default all)")
	f.StringP("difficulty", "d", "", "Difficulty: easy, medium or hard (default all)")
	f.StringP("mode", "m", string(session.ModePractice), "Mode: practice, marathon or mock")
	f.IntP("count", "n", 0, "Number of questions (default from config)")
	f.String("feedback", "", "Feedback: immediate or deferred (default from config; mock is deferred)")
	f.Duration("time-goal", 0, "Time goal, e.g. 20m (default from config; 0 is untimed)")
	f.StringSlice("topic", nil, "Only questions tagged with these topics")
	f.Bool("weak", false, "Target your weakest topics")
	f.Bool("new", false, "Discard the session in progress and start over")
}

// plan is a resolved session request.
type plan struct {
	cfg    session.Config
	filter questionbank.Filter
	count  int
	weak   bool
}

// playPlan resolves play flags against the configuration.
func playPlan(cmd *cobra.Command) (plan, error) {
	f := cmd.Flags()
	subject, _ := f.GetString("subject")
	diff, _ := f.GetString("difficulty")
	mode, _ := f.GetString("mode")
	count, _ := f.GetInt("count")
	feedback, _ := f.GetString("feedback")
	goal, _ := f.GetDuration("time-goal")
	topics, _ := f.GetStringSlice("topic")
	weak, _ := f.GetBool("weak")

	p := plan{
		cfg: session.Config{
			UserID:  cfg.UserID,
			Mode:    session.Mode(strings.ToLower(mode)),
			Subject: question.Subject(strings.ToLower(subject)),
		},
		weak: weak,
	}
	p.filter.Subject = p.cfg.Subject
	if len(topics) > 0 {
		p.filter.Topics = topics
	}

	if diff != "" {
		d := question.ParseDifficulty(diff)
		if !d.Known() {
			return plan{}, fmt.Errorf("unknown difficulty %q: want easy, medium or hard", diff)
		}
		p.cfg.Difficulty = d
		p.filter.Difficulty = d
	}

	switch p.cfg.Mode {
	case session.ModePractice:
		p.count = cfg.Session.Count
		p.cfg.TimeGoal = cfg.Session.TimeGoal
		p.cfg.Feedback = session.FeedbackMode(cfg.Session.Feedback)
	case session.ModeMarathon:
		p.cfg.TimeGoal = cfg.Session.TimeGoal
		p.cfg.Feedback = session.FeedbackMode(cfg.Session.Feedback)
	case session.ModeMock:
		p.count = cfg.Session.MockCount
		p.cfg.TimeGoal = cfg.Session.MockTimeGoal
		p.cfg.Feedback = session.FeedbackDeferred
	default:
		return plan{}, fmt.Errorf("unknown mode %q: want practice, marathon or mock", mode)
	}

	if count < 0 {
		return plan{}, fmt.Errorf("count must not be negative")
	}
	if count > 0 {
		p.count = count
	}
	if goal < 0 {
		return plan{}, fmt.Errorf("time goal must not be negative")
	}
	if f.Changed("time-goal") {
		p.cfg.TimeGoal = goal
	}
	switch feedback {
	case "":
	case string(session.FeedbackImmediate), string(session.FeedbackDeferred):
		p.cfg.Feedback = session.FeedbackMode(feedback)
	default:
		return plan{}, fmt.Errorf("unknown feedback %q: want immediate or deferred", feedback)
	}
	return p, nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p, err := playPlan(cmd)
	if err != nil {
		return err
	}

	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	existing, err := d.slot.Load()
	if err != nil {
		return fmt.Errorf("read saved session: %w", err)
	}
	if discard, _ := cmd.Flags().GetBool("new"); existing != nil && !discard {
		return fmt.Errorf("a session started %s is still in progress: run satprep resume, or play --new to discard it",
			existing.StartTime.Local().Format("Jan 2 15:04"))
	}

	bank, err := openBank()
	if err != nil {
		return err
	}

	history := d.store.HistoryRepo()
	if p.weak {
		weak, err := coach.New(nil, history, coach.DefaultConfig(), log).Weaknesses(ctx, cfg.UserID)
		if err != nil {
			return err
		}
		if len(weak) == 0 {
			lipgloss.Fprintln(cmd.OutOrStdout(), theme.Hint.Render("No weak topics yet, practicing a mixed set."))
		}
		for _, w := range weak {
			p.filter.Topics = append(p.filter.Topics, w.Topic)
		}
	}

	questions, err := bank.Select(p.filter, p.count, nil)
	if err != nil {
		return err
	}

	stats, err := history.Stats(ctx, cfg.UserID)
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}
	p.cfg.StartXP = stats.XP

	d.connectBoard(ctx)
	eng, expired := newEngine(d)
	if existing != nil {
		log.Info("discarding saved session", zap.String("session_id", existing.ID))
	}
	if _, err := eng.Begin(p.cfg, questions); err != nil {
		return err
	}

	printHeader(ctx, cmd.OutOrStdout(), d, stats.XP, sessionTitle(p.cfg))
	return newPlayer(cmd, d, eng, expired).run(ctx, cmd.InOrStdin())
}

// newEngine wires an engine to the resumable slot, history, activity log
// and, when connected, the leaderboard.
func newEngine(d *deps) (*session.Engine, <-chan error) {
	onExpire, expired := expiryHook()
	opts := session.Options{
		Slot:     d.slot,
		History:  d.store.HistoryRepo(),
		Activity: d.activity,
		Logger:   log,
		OnExpire: onExpire,
	}
	if d.board != nil {
		opts.Board = d.board
	}
	return session.NewEngine(opts), expired
}

func newPlayer(cmd *cobra.Command, d *deps, eng *session.Engine, expired <-chan error) *player {
	return &player{
		eng:     eng,
		out:     cmd.OutOrStdout(),
		width:   layout.DefaultWidth,
		slot:    d.slot,
		poll:    cfg.Session.PollInterval,
		expired: expired,
	}
}

func printHeader(ctx context.Context, out io.Writer, d *deps, xp int, title string) {
	days := 0
	if rec, err := d.store.StreakRepo().Streak(ctx, cfg.UserID); err == nil {
		days = rec.Live(time.Now())
	} else {
		log.Warn("load streak", zap.Error(err))
	}
	lipgloss.Fprintln(out, layout.RenderHeader(title, xp, days, layout.DefaultWidth))
}

func sessionTitle(c session.Config) string {
	parts := []string{strings.ToUpper(string(c.Mode[:1])) + string(c.Mode[1:])}
	if c.Subject != "" {
		parts = append(parts, string(c.Subject))
	}
	if c.TimeGoal > 0 {
		parts = append(parts, c.TimeGoal.String())
	}
	return strings.Join(parts, " · ")
}
