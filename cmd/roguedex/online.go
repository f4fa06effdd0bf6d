package main

import (
	"errors"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/roguedex/internal/bot"
	"github.com/vovakirdan/roguedex/internal/config"
	"github.com/vovakirdan/roguedex/internal/core"
	"github.com/vovakirdan/roguedex/internal/input"
	"github.com/vovakirdan/roguedex/internal/multiplayer"
	"github.com/vovakirdan/roguedex/internal/netcode"
)

var (
	flagOnlineBot     string
	flagOnlineKeys    string
	flagOnlineObserve string
	onlineReplay      replayFlags
)

var hostCmd = &cobra.Command{
	Use:   "host <addr>",
	Short: "Host an online match over UDP",
	Long: `Listen for one peer on a UDP address and play an online match as
player 1. The host picks the match seed and sends it during the handshake.

The local side is driven by a bot (--bot) or a key timeline (--keys).

Examples:
  roguedex host :7777 --bot flat
  roguedex host 0.0.0.0:7777 --bot dropper --observe :8080`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnline(cmd, args[0], netcode.RoleHost)
	},
}

var joinCmd = &cobra.Command{
	Use:   "join <addr>",
	Short: "Join an online match over UDP",
	Long: `Connect to a hosting peer and play an online match as player 2.

Examples:
  roguedex join 192.168.1.10:7777 --bot lefty
  roguedex join localhost:7777 --keys "0-600:left 30:space"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnline(cmd, args[0], netcode.RoleJoin)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{hostCmd, joinCmd} {
		cmd.Flags().StringVar(&flagOnlineBot, "bot", "", "Bot driving the local player")
		cmd.Flags().StringVar(&flagOnlineKeys, "keys", "", "Key timeline driving the local player")
		cmd.Flags().StringVar(&flagOnlineObserve, "observe", "", "Serve the observer on this address")
		onlineReplay.register(cmd)
	}
}

func runOnline(cmd *cobra.Command, addr string, role netcode.Role) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg).With("role", role)
	if flagOnlineObserve != "" {
		cfg.Observer.Addr = flagOnlineObserve
	}

	var (
		session   *netcode.Session
		transport *netcode.UDPTransport
	)
	if role == netcode.RoleHost {
		seed, err := matchSeed(cfg)
		if err != nil {
			return err
		}
		session, err = netcode.NewHost(cfg.Netcode, seed, netcode.WithLogger(logger))
		if err != nil {
			return err
		}
		transport, err = netcode.Listen(addr, netcode.WithTransportLogger(logger))
		if err != nil {
			return err
		}
		logger.Info("waiting for peer", "addr", transport.LocalAddr(), "seed", seed)
	} else {
		session = netcode.NewJoin(cfg.Netcode, netcode.WithLogger(logger))
		transport, err = netcode.Dial(addr, netcode.WithTransportLogger(logger))
		if err != nil {
			return err
		}
		logger.Info("joining", "host", addr)
	}
	defer transport.Close()

	local := session.Local()
	src, name, err := localSource(cfg, logger, local)
	if err != nil {
		return err
	}
	var sources [2]multiplayer.Source
	var players [2]string
	sources[local] = src
	players[local] = name
	players[local.Opponent()] = "remote"

	clock, err := cfg.Clock()
	if err != nil {
		return err
	}
	id := multiplayer.NewMatchID()
	w, replayPath, err := onlineReplay.open(cfg, id)
	if err != nil {
		return err
	}
	if w != nil {
		defer w.Close()
	}

	m, err := multiplayer.NewMatch(multiplayer.Options{
		ID:            id,
		Mode:          multiplayer.ModeOnline,
		Battle:        cfg.BattleConfig(),
		Clock:         clock,
		Sources:       sources,
		Players:       players,
		Session:       session,
		Transport:     transport,
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

	res, err := runMatch(cmd.Context(), cfg, logger, m, store, false)
	if err != nil {
		return err
	}
	printResult(res, replayPath)
	if dropped := transport.Dropped(); dropped > 0 {
		logger.Warn("datagrams dropped on a full queue", "count", dropped)
	}
	return nil
}

// localSource builds the source for the local player from --bot or --keys.
func localSource(cfg config.Config, logger *log.Logger, id core.CombatantID) (multiplayer.Source, string, error) {
	switch {
	case flagOnlineBot != "" && flagOnlineKeys != "":
		return nil, "", errors.New("use either --bot or --keys, not both")
	case flagOnlineBot != "":
		b, err := resolveBot(flagOnlineBot)
		if err != nil {
			return nil, "", err
		}
		return bot.NewPlayer(id, b, bot.WithBudget(cfg.StepBudget), bot.WithLogger(logger)), b.Name, nil
	case flagOnlineKeys != "":
		timeline, err := input.ParseTimeline(input.NewKeyMapper(), flagOnlineKeys)
		if err != nil {
			return nil, "", err
		}
		rep := input.NewRepeater(cfg.DAS, cfg.ARR, cfg.TickRate)
		return multiplayer.NewInputSource(id, rep, timeline.Frame), "keys", nil
	default:
		return nil, "", errors.New("the local player needs --bot or --keys")
	}
}
