package cmd

import (
	"fmt"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/satprep/satprep/internal/store"
	"github.com/satprep/satprep/internal/ui/components"
	"github.com/satprep/satprep/internal/ui/layout"
	"github.com/satprep/satprep/internal/ui/theme"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show your totals across all sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		s, err := store.OpenFile(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		st, err := s.HistoryRepo().Stats(cmd.Context(), cfg.UserID)
		if err != nil {
			return fmt.Errorf("load stats: %w", err)
		}
		if st.Sessions == 0 {
			lipgloss.Fprintln(out, theme.Hint.Render("No sessions yet. Run satprep play to start one."))
			return nil
		}

		acc := 0.0
		if st.Answered > 0 {
			acc = float64(st.Correct) / float64(st.Answered)
		}
		row := func(label string, v any) {
			lipgloss.Fprintln(out, theme.Label.Render(label)+theme.Body.Render(fmt.Sprint(v)))
		}
		lipgloss.Fprintln(out, theme.Title.Render("Totals for "+st.UserID))
		row("Sessions", st.Sessions)
		row("Answered", st.Answered)
		row("Correct", st.Correct)
		row("Points", st.Points)
		row("XP", st.XP)
		lipgloss.Fprintln(out, components.AccuracyBar("Accuracy", acc, layout.DefaultWidth))
		return nil
	},
}
