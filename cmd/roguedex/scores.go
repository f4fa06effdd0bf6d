package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/roguedex/internal/multiplayer"
	"github.com/vovakirdan/roguedex/internal/storage"
)

var (
	flagScoresLimit int
	flagScoresClear bool
)

var scoresCmd = &cobra.Command{
	Use:   "scores [mode]",
	Short: "Show high scores",
	Long: `Display the top scores, optionally for one mode (solo, vs-bot, bots,
online).

Examples:
  roguedex scores
  roguedex scores bots --limit 20
  roguedex scores solo --clear`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScores,
}

func init() {
	scoresCmd.Flags().IntVar(&flagScoresLimit, "limit", 10, "Number of scores to show")
	scoresCmd.Flags().BoolVar(&flagScoresClear, "clear", false, "Delete the scores of the mode")
}

func runScores(cmd *cobra.Command, args []string) error {
	mode := ""
	if len(args) == 1 {
		m, err := multiplayer.ParseMode(args[0])
		if err != nil {
			return err
		}
		mode = m.String()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Open score storage
	store, err := storage.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("cannot open scores database: %w", err)
	}
	defer store.Close()

	if flagScoresClear {
		if mode == "" {
			return errors.New("--clear needs a mode")
		}
		if err := store.ClearScores(mode); err != nil {
			return err
		}
		fmt.Printf("Cleared %s scores.\n", mode)
		return nil
	}

	scores, err := store.TopScores(mode, flagScoresLimit)
	if err != nil {
		return fmt.Errorf("cannot retrieve scores: %w", err)
	}

	title := "High Scores"
	if mode != "" {
		title += " - " + mode
	}
	fmt.Println(titleStyle.Render(title))
	fmt.Println()

	if len(scores) == 0 {
		fmt.Println("No scores recorded yet.")
		fmt.Println()
		fmt.Println("Play 'roguedex bots dropper idle' to set the first high score!")
		return nil
	}

	rows := make([][]string, 0, len(scores))
	for i, e := range scores {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			e.Player,
			e.Mode,
			strconv.Itoa(e.Score),
			strconv.Itoa(e.Lines),
			e.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	fmt.Println(newTable("Rank", "Player", "Mode", "Score", "Lines", "Date").Rows(rows...).Render())
	return nil
}

// newTable returns a bordered table with a bold header row.
func newTable(headers ...string) *table.Table {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
}
