package cmd

import (
	"errors"
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/satprep/satprep/internal/leaderboard"
	"github.com/satprep/satprep/internal/ui/theme"
)

var errBoardDisabled = errors.New("leaderboard is disabled: set redis.enabled (SATPREP_REDIS_ENABLED=true)")

var leaderboardCmd = &cobra.Command{
	Use:       "leaderboard [points|xp]",
	Short:     "Show the top learners by points or XP",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(leaderboard.BoardPoints), string(leaderboard.BoardXP)},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		limit, _ := cmd.Flags().GetInt64("limit")

		board := leaderboard.BoardPoints
		if len(args) == 1 {
			b, err := leaderboard.ParseBoard(args[0])
			if err != nil {
				return err
			}
			board = b
		}

		if !cfg.Redis.Enabled {
			return errBoardDisabled
		}
		client, err := leaderboard.Dial(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		lb := leaderboard.New(client, "")

		top, err := lb.Top(ctx, board, limit)
		if err != nil {
			return err
		}
		if len(top) == 0 {
			lipgloss.Fprintln(out, theme.Hint.Render("The leaderboard is empty. Finish a session to get on it."))
			return nil
		}

		lipgloss.Fprintln(out, theme.Title.Render(fmt.Sprintf("Top %d by %s", len(top), board)))
		fmt.Fprintln(out, strings.Repeat("─", 40))
		onBoard := false
		for _, e := range top {
			line := fmt.Sprintf("%4d  %-24s  %8d", e.Rank, e.UserID, e.Score)
			if e.UserID == cfg.UserID {
				onBoard = true
				lipgloss.Fprintln(out, theme.Selected.Render(line))
				continue
			}
			fmt.Fprintln(out, line)
		}

		if !onBoard {
			me, found, err := lb.Rank(ctx, board, cfg.UserID)
			if err != nil {
				return err
			}
			if found {
				fmt.Fprintln(out, strings.Repeat("─", 40))
				lipgloss.Fprintln(out, theme.Selected.Render(fmt.Sprintf("%4d  %-24s  %8d", me.Rank, me.UserID, me.Score)))
			}
		}
		return nil
	},
}

func init() {
	leaderboardCmd.Flags().Int64P("limit", "n", 10, "Number of learners to show")
}
