package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/roguedex/internal/storage"
)

var (
	flagHistoryLimit int
	flagHistoryStats bool
)

var historyCmd = &cobra.Command{
	Use:   "history [player]",
	Short: "Show recent matches and player stats",
	Long: `List recently finished matches, optionally only those a player took
part in. With --stats, show aggregated statistics instead.

Examples:
  roguedex history
  roguedex history dropper --limit 5
  roguedex history --stats`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "Number of matches to show")
	historyCmd.Flags().BoolVar(&flagHistoryStats, "stats", false, "Show per-player statistics")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := storage.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer store.Close()

	if flagHistoryStats {
		return printStats(store, args)
	}

	var records []storage.MatchRecord
	if len(args) == 1 {
		records, err = store.PlayerHistory(args[0], flagHistoryLimit)
	} else {
		records, err = store.RecentMatches(flagHistoryLimit)
	}
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("Recent Matches"))
	fmt.Println()
	if len(records) == 0 {
		fmt.Println("No matches recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		winner := r.Winner
		if winner == "" {
			winner = "-"
		}
		rows = append(rows, []string{
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Mode,
			fmt.Sprintf("%s vs %s", r.Player1, r.Player2),
			fmt.Sprintf("%d - %d", r.Score1, r.Score2),
			winner,
			r.EndReason,
			strconv.FormatUint(r.Ticks, 10),
		})
	}
	fmt.Println(newTable("Date", "Mode", "Players", "Score", "Winner", "End", "Ticks").Rows(rows...).Render())
	return nil
}

func printStats(store *storage.Store, args []string) error {
	var stats []*storage.PlayerStats
	if len(args) == 1 {
		st, err := store.GetPlayerStats(args[0])
		if err != nil {
			return err
		}
		stats = append(stats, st)
	} else {
		all, err := store.GetAllPlayerStats()
		if err != nil {
			return err
		}
		for _, st := range all {
			stats = append(stats, st)
		}
		sort.Slice(stats, func(i, j int) bool {
			if stats[i].Wins != stats[j].Wins {
				return stats[i].Wins > stats[j].Wins
			}
			return stats[i].Player < stats[j].Player
		})
	}

	fmt.Println(titleStyle.Render("Player Stats"))
	fmt.Println()
	rows := make([][]string, 0, len(stats))
	for _, st := range stats {
		rows = append(rows, []string{
			st.Player,
			strconv.Itoa(st.Matches),
			strconv.Itoa(st.Wins),
			strconv.Itoa(st.HighScore),
			fmt.Sprintf("%.1f", st.AvgScore),
			strconv.FormatInt(st.TotalLines, 10),
		})
	}
	fmt.Println(newTable("Player", "Matches", "Wins", "Best", "Avg", "Lines").Rows(rows...).Render())
	return nil
}
