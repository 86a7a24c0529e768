package cmd

import (
	"fmt"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/satprep/satprep/internal/ui/theme"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the session in progress",
	Long: "Discard the saved session in progress without recording it. With --activity " +
		"the recent activity dates are cleared too. Finished history is never touched.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		activity, _ := cmd.Flags().GetBool("activity")
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
		if err := d.slot.Clear(); err != nil {
			return fmt.Errorf("clear saved session: %w", err)
		}
		if sess != nil {
			lipgloss.Fprintln(out, theme.Body.Render(fmt.Sprintf("Discarded the session started %s.",
				sess.StartTime.Local().Format("Jan 2 15:04"))))
		} else {
			lipgloss.Fprintln(out, theme.Hint.Render("No session in progress."))
		}

		if activity {
			if err := d.kv.Delete(cfg.Session.ActivityKey); err != nil {
				return fmt.Errorf("clear activity: %w", err)
			}
			lipgloss.Fprintln(out, theme.Body.Render("Cleared recent activity dates."))
		}
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("activity", false, "Also clear the recent activity dates")
}
