package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/roguedex/internal/bot"
	"github.com/vovakirdan/roguedex/internal/core"
	"github.com/vovakirdan/roguedex/internal/multiplayer"
)

var (
	flagBotsRealtime bool
	flagBotsObserve  string
	flagBotsMaxTicks uint64
	botsReplay       replayFlags
)

var botsCmd = &cobra.Command{
	Use:   "bots <p1> <p2>",
	Short: "Run a local match between two bots",
	Long: `Run a match between two bot programs on this machine. Each bot is a
built-in name (see 'roguedex list') or a path to a bot manifest YAML.

By default the match runs as fast as possible on logical time. With
--realtime it runs at the configured tick rate, and --observe serves the
live match over HTTP and WebSocket.

Examples:
  roguedex bots dropper idle
  roguedex bots flat lefty --seed 42
  roguedex bots ./mybot.yaml flat --realtime --observe :8080`,
	Args: cobra.ExactArgs(2),
	RunE: runBots,
}

func init() {
	botsCmd.Flags().BoolVar(&flagBotsRealtime, "realtime", false, "Run at the configured tick rate")
	botsCmd.Flags().StringVar(&flagBotsObserve, "observe", "", "Serve the observer on this address (implies --realtime)")
	botsCmd.Flags().Uint64Var(&flagBotsMaxTicks, "max-ticks", 0, "End the match after this many ticks (default from config)")
	botsReplay.register(botsCmd)
}

func runBots(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if flagBotsObserve != "" {
		cfg.Observer.Addr = flagBotsObserve
		flagBotsRealtime = true
	}
	if flagBotsMaxTicks > 0 {
		cfg.Match.MaxTicks = flagBotsMaxTicks
	}

	var players [2]*bot.Player
	var names [2]string
	for i, name := range args {
		b, err := resolveBot(name)
		if err != nil {
			return err
		}
		id := core.CombatantID(i) //nolint:gosec // two args
		players[i] = bot.NewPlayer(id, b, bot.WithBudget(cfg.StepBudget), bot.WithLogger(logger.With("bot", b.Name, "player", id)))
		names[i] = b.Name
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
	w, replayPath, err := botsReplay.open(cfg, id)
	if err != nil {
		return err
	}
	if w != nil {
		defer w.Close()
	}

	m, err := multiplayer.NewMatch(multiplayer.Options{
		ID:            id,
		Mode:          multiplayer.ModeBots,
		Battle:        cfg.BattleConfig(),
		Clock:         clock,
		Seed:          seed,
		Sources:       [2]multiplayer.Source{players[0], players[1]},
		Players:       names,
		DeltaEvery:    cfg.Match.DeltaEvery,
		AbortOnDesync: cfg.Match.AbortOnDesync,
		MaxTicks:      cfg.Match.MaxTicks,
		Recorder:      recorder(w),
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	store := openStore(cfg, logger)
	if store != nil {
		defer store.Close()
	}

	logger.Info("match starting", "match", id, "seed", seed, "p1", names[0], "p2", names[1])
	res, err := runMatch(cmd.Context(), cfg, logger, m, store, !flagBotsRealtime)
	if err != nil {
		return err
	}
	printResult(res, replayPath)

	fmt.Println()
	for i, p := range players {
		st := p.Stats()
		fmt.Println(dimStyle.Render(fmt.Sprintf("  P%d %s: %d runs, %d commands, %d over budget, %d faults",
			i+1, names[i], st.Runs, st.Commands, st.BudgetExceeded, st.Faults)))
	}
	return nil
}
