package cmd

import (
	"fmt"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/satprep/satprep/internal/coach"
	"github.com/satprep/satprep/internal/store"
	"github.com/satprep/satprep/internal/ui/components"
	"github.com/satprep/satprep/internal/ui/layout"
	"github.com/satprep/satprep/internal/ui/theme"
)

var weakCmd = &cobra.Command{
	Use:   "weak",
	Short: "Show your weakest topics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		s, err := store.OpenFile(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		weak, err := coach.New(nil, s.HistoryRepo(), coach.DefaultConfig(), log).Weaknesses(cmd.Context(), cfg.UserID)
		if err != nil {
			return err
		}
		if len(weak) == 0 {
			lipgloss.Fprintln(out, theme.Hint.Render("No weak topics. Topics need at least 3 answers to be ranked."))
			return nil
		}

		lipgloss.Fprintln(out, theme.Title.Render("Weakest topics"))
		for _, w := range weak {
			label := fmt.Sprintf("%-20s %2d/%-2d", w.Topic, w.Correct, w.Total)
			lipgloss.Fprintln(out, components.AccuracyBar(label, w.Acc, layout.DefaultWidth))
		}
		lipgloss.Fprintln(out, "\n"+theme.Hint.Render("Run satprep play --weak to drill these, or satprep coach for a study plan."))
		return nil
	},
}
