package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/roguedex/internal/bot"
	"github.com/vovakirdan/roguedex/internal/core"
	"github.com/vovakirdan/roguedex/internal/input"
	"github.com/vovakirdan/roguedex/internal/multiplayer"
)

var (
	flagSoloKeys  string
	flagSoloVs    string
	flagSoloTicks uint64
	soloReplay    replayFlags
)

var soloCmd = &cobra.Command{
	Use:   "solo",
	Short: "Play a key timeline",
	Long: `Drive player 1 from a key timeline through DAS/ARR auto-repeat, against
an opponent left to gravity or against a bot.

A timeline is a space-separated list of tick spans and keys held during
them, inclusive on both ends:

  "0-20:left 30:space 40-41:up+right"

Keys: left/a, right/d, down/s, space, up/x, z/ctrl, c/shift.

Examples:
  roguedex solo --keys "0-20:left 30:space"
  roguedex solo --keys "10:space 70:space 130:space" --vs idle --seed 7`,
	Args: cobra.NoArgs,
	RunE: runSolo,
}

func init() {
	soloCmd.Flags().StringVar(&flagSoloKeys, "keys", "", "Key timeline for player 1")
	soloCmd.Flags().StringVar(&flagSoloVs, "vs", "", "Bot to play against (default: none)")
	soloCmd.Flags().Uint64Var(&flagSoloTicks, "ticks", 0, "Ticks to play (default: timeline end plus one second)")
	soloReplay.register(soloCmd)
	_ = soloCmd.MarkFlagRequired("keys")
}

func runSolo(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	timeline, err := input.ParseTimeline(input.NewKeyMapper(), flagSoloKeys)
	if err != nil {
		return err
	}
	ticks := flagSoloTicks
	if ticks == 0 {
		ticks = timeline.End() + uint64(cfg.TickRate) //nolint:gosec // validated positive
	}

	rep := input.NewRepeater(cfg.DAS, cfg.ARR, cfg.TickRate)
	sources := [2]multiplayer.Source{multiplayer.NewInputSource(core.Combatant1, rep, timeline.Frame)}
	players := [2]string{"keys", ""}
	mode := multiplayer.ModeSolo
	if flagSoloVs != "" {
		b, err := resolveBot(flagSoloVs)
		if err != nil {
			return err
		}
		sources[1] = bot.NewPlayer(core.Combatant2, b, bot.WithBudget(cfg.StepBudget), bot.WithLogger(logger))
		players[1] = b.Name
		mode = multiplayer.ModeVsBot
	}

	seed, err := matchSeed(cfg)
	if err != nil {
		return err
	}
	clock, err := cfg.Clock()
	if err != nil {
		return err
	}

	id := multiplayer.NewMatchID()
	w, replayPath, err := soloReplay.open(cfg, id)
	if err != nil {
		return err
	}
	if w != nil {
		defer w.Close()
	}

	m, err := multiplayer.NewMatch(multiplayer.Options{
		ID:       id,
		Mode:     mode,
		Battle:   cfg.BattleConfig(),
		Clock:    clock,
		Seed:     seed,
		Sources:  sources,
		Players:  players,
		MaxTicks: ticks,
		Recorder: recorder(w),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	store := openStore(cfg, logger)
	if store != nil {
		defer store.Close()
	}

	res, err := runMatch(cmd.Context(), cfg, logger, m, store, true)
	if err != nil {
		return err
	}

	v := m.Summary().Combatants[core.Combatant1]
	fmt.Println(boardStyle.Render(strings.Join(v.Rows, "\n")))
	printResult(res, replayPath)
	return nil
}
