package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/satprep/satprep/internal/question"
	"github.com/satprep/satprep/internal/resume"
	"github.com/satprep/satprep/internal/session"
	"github.com/satprep/satprep/internal/ui/components"
	"github.com/satprep/satprep/internal/ui/layout"
	"github.com/satprep/satprep/internal/ui/theme"
)

// errLeft ends the loop when the learner leaves a session unfinished.
var errLeft = errors.New("left session")

// player drives one engine session from line-oriented input.
type player struct {
	eng   *session.Engine
	out   io.Writer
	width int

	// slot, when set, is watched for changes made by another process.
	slot *resume.Store
	poll time.Duration

	// expired fires when the time goal ends the session.
	expired <-chan error
}

// expiryHook returns an OnExpire callback and the channel it reports on.
func expiryHook() (func(error), <-chan error) {
	ch := make(chan error, 1)
	return func(err error) {
		select {
		case ch <- err:
		default:
		}
	}, ch
}

// run reads commands until the session completes or the learner leaves.
// The watcher and timer are torn down before run returns.
func (p *player) run(ctx context.Context, in io.Reader) error {
	defer p.eng.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := scanLines(ctx, in)

	external := make(chan struct{}, 1)
	if p.slot != nil {
		w := p.slot.Watch(ctx, p.poll, func(s *session.Session) {
			if p.changedElsewhere(s) {
				select {
				case external <- struct{}{}:
				default:
				}
			}
		})
		defer w.Stop()
	}

	lipgloss.Fprintln(p.out, layout.RenderHints(layout.SessionHints))
	p.show()
	for {
		fmt.Fprint(p.out, theme.Hint.Render("> "))
		select {
		case <-ctx.Done():
			p.leave()
			return nil
		case <-p.expired:
			lipgloss.Fprintln(p.out, "\n"+theme.Warning.Render("Time is up."))
			return p.finish(ctx)
		case <-external:
			lipgloss.Fprintln(p.out, "\n"+theme.Warning.Render("This session was changed in another window. Leaving without saving."))
			return nil
		case line, ok := <-lines:
			if !ok {
				p.leave()
				return nil
			}
			err := p.handle(ctx, line)
			switch {
			case errors.Is(err, errLeft):
				return nil
			case errors.Is(err, session.ErrSessionClosed):
				lipgloss.Fprintln(p.out, theme.Warning.Render("Time is up."))
				return p.finish(ctx)
			case p.eng.Phase() == session.PhaseCompleted:
				return p.finish(ctx)
			case err != nil:
				lipgloss.Fprintln(p.out, theme.Incorrect.Render(err.Error()))
			}
		}
	}
}

// scanLines feeds lines of in to the returned channel until in ends or ctx
// is done. A read already blocked on in returns only with the next line;
// that line is dropped and the channel closed.
func scanLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			if ctx.Err() != nil {
				return
			}
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// handle applies one input line.
func (p *player) handle(ctx context.Context, line string) error {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		p.show()
		return nil
	}
	v, err := p.eng.Current()
	if err != nil {
		return err
	}

	switch fields[0] {
	case "submit":
		if _, err := p.eng.Submit(v.Index); err != nil {
			return err
		}
		p.show()
	case "next":
		completed, err := p.eng.NextOrComplete(ctx)
		if completed || err != nil {
			return err
		}
		p.show()
	case "flag":
		flagged, err := p.eng.ToggleFlag(v.Index)
		if err != nil {
			return err
		}
		msg := "Flag removed."
		if flagged {
			msg = "Flagged for review."
		}
		lipgloss.Fprintln(p.out, theme.Flagged.Render(msg))
	case "goto":
		if len(fields) != 2 {
			return fmt.Errorf("usage: goto N")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("goto: %q is not a question number", fields[1])
		}
		if err := p.eng.Goto(n - 1); err != nil {
			return err
		}
		p.show()
	case "quit":
		return p.eng.Complete(ctx)
	case "exit":
		p.leave()
		return errLeft
	case "help":
		lipgloss.Fprintln(p.out, layout.RenderHints(layout.SessionHints))
	default:
		opt := question.ParseOptionLabel(fields[0])
		if opt < 0 || len(fields) > 1 {
			return fmt.Errorf("unknown command %q, type help", line)
		}
		if opt >= len(v.Question.Options) {
			return fmt.Errorf("option %s: %w", strings.ToUpper(fields[0]), session.ErrOutOfRange)
		}
		if err := p.eng.Answer(v.Index, opt); err != nil {
			return err
		}
		p.show()
		if p.eng.Phase() == session.PhaseAwaitingSubmission {
			lipgloss.Fprintln(p.out, theme.Hint.Render("Type submit to lock in your answer."))
		}
	}
	return nil
}

// show renders the question on screen.
func (p *player) show() {
	v, err := p.eng.Current()
	if err != nil {
		return
	}
	lipgloss.Fprintln(p.out, components.QuestionCard(v, true, p.width))
}

// leave saves the session to the resumable slot and stops the clock.
func (p *player) leave() {
	p.eng.Suspend()
	lipgloss.Fprintln(p.out, theme.Hint.Render("Progress saved. Run satprep resume to continue."))
}

// finish prints the summary of a completed session. A failed history write
// is retried once before it is reported.
func (p *player) finish(ctx context.Context) error {
	var persistErr error
	if p.eng.PendingPersist() {
		persistErr = p.eng.RetryPersist(ctx)
	}

	sum, err := p.eng.Summary()
	if err != nil {
		return err
	}
	lipgloss.Fprintln(p.out, components.SummaryCard(sum, p.width))
	if persistErr != nil {
		return fmt.Errorf("session finished but was not saved to history: %w", persistErr)
	}
	return nil
}

// changedElsewhere reports whether a slot change came from another process.
// Our own writes carry a modification time no later than the engine's.
func (p *player) changedElsewhere(s *session.Session) bool {
	mine := p.eng.Session()
	if mine == nil || mine.Completed {
		return false
	}
	if s == nil || s.ID != mine.ID {
		return true
	}
	return s.LastModified.After(mine.LastModified)
}
