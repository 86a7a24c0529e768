package cmd

import (
	"context"
	"sync"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satprep/satprep/internal/api"
	"github.com/satprep/satprep/internal/coach"
	"github.com/satprep/satprep/internal/leaderboard"
	"github.com/satprep/satprep/internal/store"
	"github.com/satprep/satprep/internal/ui/theme"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only progress dashboard API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.API.Addr
		}

		d, err := openDeps()
		if err != nil {
			return err
		}
		defer d.Close()
		d.connectBoard(ctx)

		history := d.store.HistoryRepo()
		srv := api.New(api.Deps{
			UserID:   cfg.UserID,
			History:  history,
			Streaks:  d.store.StreakRepo(),
			Ranker:   coach.New(nil, history, coach.DefaultConfig(), log),
			Board:    d.board,
			Slot:     d.slot,
			Activity: d.activity,
			Logger:   log,
		})

		lipgloss.Fprintln(cmd.OutOrStdout(), theme.Body.Render("Dashboard API on http://"+addr+"/v1"))
		if d.board == nil {
			lipgloss.Fprintln(cmd.OutOrStdout(), theme.Hint.Render("Leaderboard endpoints are off (redis disabled or unreachable)."))
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		var wg sync.WaitGroup
		if d.board != nil && cfg.Redis.Resync != "" {
			wg.Go(func() {
				if err := d.board.RunResync(ctx, cfg.Redis.Resync, storeTotals(d.store), log); err != nil {
					log.Error("leaderboard resync disabled", zap.Error(err))
				}
			})
		}
		err = srv.ListenAndServe(ctx, addr)
		cancel()
		wg.Wait()
		return err
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default api.addr, 127.0.0.1:8080)")
}

// storeTotals reads leaderboard totals from the history database.
func storeTotals(s *store.Store) leaderboard.TotalsFunc {
	return func(ctx context.Context) ([]leaderboard.Total, error) {
		all, err := s.AllStats(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]leaderboard.Total, len(all))
		for i, st := range all {
			out[i] = leaderboard.Total{UserID: st.UserID, Points: st.Points, XP: st.XP}
		}
		return out, nil
	}
}
