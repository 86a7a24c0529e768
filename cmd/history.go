package cmd

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/satprep/satprep/internal/store"
	"github.com/satprep/satprep/internal/ui/components"
	"github.com/satprep/satprep/internal/ui/theme"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List finished sessions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		out := cmd.OutOrStdout()

		s, err := store.OpenFile(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		records, err := s.HistoryRepo().RecentSessions(cmd.Context(), cfg.UserID, store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query sessions: %w", err)
		}
		if len(records) == 0 {
			lipgloss.Fprintln(out, theme.Hint.Render("No sessions yet. Run satprep play to start one."))
			return nil
		}

		lipgloss.Fprintln(out, theme.Title.Render(fmt.Sprintf("%-16s  %-9s  %-8s  %-7s  %7s  %5s  %6s  %6s  %8s",
			"Finished", "Mode", "Subject", "Level", "Score", "Acc", "Points", "XP", "Time")))
		fmt.Fprintln(out, strings.Repeat("─", 88))

		for _, r := range records {
			subject := r.Subject
			if subject == "" {
				subject = "mixed"
			}
			level := r.Difficulty
			if level == "" {
				level = "all"
			}
			fmt.Fprintf(out, "%-16s  %-9s  %-8s  %-7s  %7s  %4.0f%%  %6d  %+6d  %8s\n",
				r.EndTime.Local().Format("2006-01-02 15:04"),
				r.Mode,
				subject,
				level,
				fmt.Sprintf("%d/%d", r.Correct, r.Total),
				r.Accuracy()*100,
				r.Points,
				r.XPEarned,
				components.Clock(r.Duration),
			)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of sessions to show")
}
