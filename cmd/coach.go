package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/satprep/satprep/internal/coach"
	"github.com/satprep/satprep/internal/llm"
	"github.com/satprep/satprep/internal/store"
	"github.com/satprep/satprep/internal/ui/theme"
)

var coachCmd = &cobra.Command{
	Use:   "coach",
	Short: "Get a study plan for your weakest topics",
	Long: "Ranks your weakest topics and asks the configured AI provider for a short " +
		"study plan. Without a provider, or when it fails, a rule-based plan is shown.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		out := cmd.OutOrStdout()

		s, err := store.OpenFile(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		lc := llm.FromConfig(cfg.LLM)
		ctx, cancel := context.WithTimeout(cmd.Context(), lc.Timeout)
		defer cancel()

		var provider llm.Provider
		if lc.Provider != llm.ProviderMock {
			provider, err = llm.NewProvider(ctx, lc, s.EventRepo(), log)
			if err != nil {
				return err
			}
		}

		plan, err := coach.New(provider, s.HistoryRepo(), coach.DefaultConfig(), log).StudyPlan(ctx, cfg.UserID)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(plan)
		}

		lipgloss.Fprintln(out, theme.Title.Render("Study plan"))
		lipgloss.Fprintln(out, theme.Body.Width(72).Render(plan.Summary))
		for i, f := range plan.Focus {
			lipgloss.Fprintln(out, "")
			lipgloss.Fprintln(out, theme.Selected.Render(fmt.Sprintf("%d. %s", i+1, f.Topic))+
				theme.Subtitle.Render(fmt.Sprintf("  %.0f%% correct · %d %s questions", f.Accuracy*100, f.Questions, f.Difficulty)))
			lipgloss.Fprintln(out, theme.Body.Width(72).PaddingLeft(3).Render(f.Advice))
		}
		if len(plan.Tips) > 0 {
			lipgloss.Fprintln(out, "")
			for _, t := range plan.Tips {
				lipgloss.Fprintln(out, theme.Hint.Render("• "+t))
			}
		}
		if plan.Source == coach.SourceRules && len(plan.Focus) > 0 {
			lipgloss.Fprintln(out, "\n"+theme.Subtitle.Render("Plan built from rules; configure llm.provider for AI coaching."))
		}
		return nil
	},
}

func init() {
	coachCmd.Flags().Bool("json", false, "Print the plan as JSON")
}
