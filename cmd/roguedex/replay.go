package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/roguedex/internal/replay"
)

var flagReplayEvents bool

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Verify a recorded match",
	Long: `Re-simulate a match log from its seed and recorded inputs, checking that
every recorded event and state digest follows. Online logs verify too: the
remote combatant's inputs are never replayed, only the local side.

Examples:
  roguedex replay ~/.roguedex/replays/1f0c....jsonl.zst
  roguedex replay match.jsonl.zst --events`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().BoolVar(&flagReplayEvents, "events", false, "Print every recorded event")
}

func runReplay(_ *cobra.Command, args []string) error {
	l, err := replay.Open(args[0])
	if err != nil {
		return err
	}

	h := l.Header
	fmt.Println(titleStyle.Render(fmt.Sprintf("Match %s (%s)", h.MatchID, h.Mode)))
	fmt.Printf("%s vs %s, seed %d, %d BPM ±%s\n", h.Players[0], h.Players[1], h.Seed, h.BPM, h.Window)
	if l.End != nil {
		winner := l.End.Winner
		if winner == "" {
			winner = "none"
		}
		fmt.Printf("%s after %d ticks, winner %s\n", l.End.Reason, l.End.Ticks, winner)
	} else {
		fmt.Println("log has no end record")
	}

	if flagReplayEvents {
		fmt.Println()
		for _, t := range l.Ticks {
			for _, e := range t.Events {
				fmt.Printf("  %6d  %s\n", t.Tick, e)
			}
		}
	}

	report, err := replay.Verify(l)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(winnerStyle.Render("verified"))
	fmt.Printf("  %d ticks, %d actions, %d events\n", report.Ticks, report.Actions, report.Events)
	fmt.Println(dimStyle.Render("  digest " + report.Digest))
	return nil
}
