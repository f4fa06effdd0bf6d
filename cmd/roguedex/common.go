package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/roguedex/internal/config"
	"github.com/vovakirdan/roguedex/internal/multiplayer"
	"github.com/vovakirdan/roguedex/internal/observer"
	"github.com/vovakirdan/roguedex/internal/registry"
	"github.com/vovakirdan/roguedex/internal/replay"
	"github.com/vovakirdan/roguedex/internal/script"
	"github.com/vovakirdan/roguedex/internal/storage"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	winnerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
	boardStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// loadConfig reads the config and applies the global flags on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = flagSeed
	}
	if flagDBPath != "" {
		cfg.DB = flagDBPath
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagDifficulty != "" {
		preset, err := config.ParseDifficulty(flagDifficulty)
		if err != nil {
			return cfg, err
		}
		config.ApplyDifficultyPreset(&cfg, preset)
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "roguedex",
		Level:           cfg.Level(),
	})
}

// matchSeed returns the configured seed or a fresh nonzero random one.
func matchSeed(cfg config.Config) (uint64, error) {
	if cfg.Seed != 0 {
		return cfg.Seed, nil
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("cannot generate seed: %w", err)
	}
	seed := binary.LittleEndian.Uint64(b[:])
	if seed == 0 {
		seed = 1
	}
	return seed, nil
}

// openStore opens the database, or returns nil with a warning so matches
// still run without persistence.
func openStore(cfg config.Config, logger *log.Logger) *storage.Store {
	store, err := storage.Open(cfg.DB)
	if err != nil {
		logger.Warn("could not open database, results will not be saved", "db", cfg.DB, "err", err)
		return nil
	}
	return store
}

// resolveBot finds a registered bot by name, or loads a manifest file.
func resolveBot(name string) (*script.Bot, error) {
	if registry.Exists(name) {
		return registry.Create(name)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("unknown bot %q (run 'roguedex list' to see built-in bots)", name)
		}
		return nil, err
	}
	return script.LoadManifest(data)
}

// replayFlags are shared by every command that plays a match.
type replayFlags struct {
	path     string
	disabled bool
}

func (f *replayFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.path, "replay", "", "Replay log path (default: <replay_dir>/<match id>.jsonl.zst)")
	cmd.Flags().BoolVar(&f.disabled, "no-replay", false, "Do not record a replay log")
}

// open creates the replay writer for a match. It returns a nil writer when
// recording is disabled.
func (f *replayFlags) open(cfg config.Config, id multiplayer.MatchID) (*replay.Writer, string, error) {
	if f.disabled {
		return nil, "", nil
	}
	path := f.path
	if path == "" {
		if cfg.Match.ReplayDir == "" {
			return nil, "", nil
		}
		path = filepath.Join(config.ExpandHome(cfg.Match.ReplayDir), string(id)+".jsonl.zst")
	}
	w, err := replay.Create(config.ExpandHome(path))
	if err != nil {
		return nil, "", err
	}
	return w, path, nil
}

// recorder converts a possibly nil writer into a Recorder.
func recorder(w *replay.Writer) multiplayer.Recorder {
	if w == nil {
		return nil
	}
	return w
}

// runMatch runs m under a coordinator that saves results to store. Unless
// fast is set, the match runs in real time next to the optional observer
// until it ends or the process is interrupted.
func runMatch(ctx context.Context, cfg config.Config, logger *log.Logger, m *multiplayer.Match, store *storage.Store, fast bool) (multiplayer.MatchResult, error) {
	coord := multiplayer.NewCoordinator(multiplayer.DefaultCoordinatorConfig())
	coord.SetLogger(logger)
	var history observer.History
	if store != nil {
		coord.SetResultSaver(store)
		history = store
	}

	if fast {
		return coord.RunFast(m, time.Now())
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	obsCtx, stopObserver := context.WithCancel(gctx)
	defer stopObserver()

	var res multiplayer.MatchResult
	g.Go(func() error {
		defer stopObserver()
		r, err := coord.Run(gctx, m)
		res = r
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if cfg.Observer.Addr != "" {
		srv := observer.NewServer(coord, history, observer.WithLogger(logger))
		g.Go(func() error {
			return srv.ListenAndServe(obsCtx, cfg.Observer.Addr)
		})
	}

	err := g.Wait()
	return res, err
}

// printResult writes a short match report to stdout.
func printResult(res multiplayer.MatchResult, replayPath string) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("Match %s (%s)", res.MatchID, res.Mode)))
	fmt.Printf("%s after %d ticks\n", res.Reason, res.Ticks)
	fmt.Println()
	for i, name := range res.Players {
		line := fmt.Sprintf("  P%d  %-12s  score %-7d  lines %d", i+1, name, res.Scores[i], res.Lines[i])
		if res.HasWinner && int(res.Winner) == i {
			line = winnerStyle.Render(line + "  WINNER")
		}
		fmt.Println(line)
	}
	fmt.Println()
	if res.Error != "" {
		fmt.Println("error: " + res.Error)
	}
	fmt.Println(dimStyle.Render("digest " + res.Digest))
	if replayPath != "" {
		fmt.Println(dimStyle.Render("replay " + replayPath))
	}
}
