package cmd

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/satprep/satprep/internal/ui/theme"
)

var streakCmd = &cobra.Command{
	Use:   "streak",
	Short: "Show your daily practice streak",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		d, err := openDeps()
		if err != nil {
			return err
		}
		defer d.Close()

		rec, err := d.store.StreakRepo().Streak(cmd.Context(), cfg.UserID)
		if err != nil {
			return fmt.Errorf("load streak: %w", err)
		}
		dates, err := d.activity.Dates()
		if err != nil {
			return fmt.Errorf("load activity: %w", err)
		}

		live := rec.Live(time.Now())
		lipgloss.Fprintln(out, theme.Warning.Bold(true).Render(fmt.Sprintf("%d day streak", live)))
		lipgloss.Fprintln(out, theme.Label.Render("Longest")+theme.Body.Render(fmt.Sprintf("%d days", rec.Longest)))
		last := rec.LastActive
		if last == "" {
			last = "never"
		}
		lipgloss.Fprintln(out, theme.Label.Render("Last active")+theme.Body.Render(last))
		if len(dates) > 0 {
			lipgloss.Fprintln(out, theme.Label.Render("Recent days")+theme.Subtitle.Render(strings.Join(dates, " ")))
		}
		if live == 0 && rec.Current > 0 {
			lipgloss.Fprintln(out, theme.Hint.Render("Your streak lapsed. Finish a session today to start a new one."))
		}
		return nil
	},
}
