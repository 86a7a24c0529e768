package cmd

import (
	"fmt"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/satprep/satprep/internal/session"
	"github.com/satprep/satprep/internal/ui/theme"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Continue the session in progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		d, err := openDeps()
		if err != nil {
			return err
		}
		defer d.Close()

		sess, err := d.slot.Load()
		if err != nil {
			return fmt.Errorf("read saved session: %w", err)
		}
		if sess == nil {
			lipgloss.Fprintln(out, theme.Hint.Render("No session to resume. Run satprep play to start one."))
			return nil
		}

		bank, err := openBank()
		if err != nil {
			return err
		}
		questions, err := bank.ByIDs(sess.QuestionIDs())
		if err != nil {
			return fmt.Errorf("saved session no longer matches the question bank, run satprep reset: %w", err)
		}

		d.connectBoard(ctx)
		eng, expired := newEngine(d)
		resumeErr := eng.Resume(ctx, sess, questions)
		if eng.Phase() == session.PhaseCompleted {
			// The time goal ran out while the session was saved.
			lipgloss.Fprintln(out, theme.Warning.Render("Time ran out while you were away."))
			return newPlayer(cmd, d, eng, expired).finish(ctx)
		}
		if resumeErr != nil {
			return resumeErr
		}

		printHeader(ctx, out, d, sess.Tally.XP, sessionTitle(session.Config{
			Mode:     sess.Mode,
			Subject:  sess.Subject,
			TimeGoal: time.Duration(sess.TimeGoal) * time.Second,
		}))
		return newPlayer(cmd, d, eng, expired).run(ctx, cmd.InOrStdin())
	},
}
