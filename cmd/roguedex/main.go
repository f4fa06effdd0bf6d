// roguedex runs rhythm-gated falling-block battles between bots, scripted
// inputs and remote peers.
//
// Usage:
//
//	roguedex list                      - List built-in bots
//	roguedex bots <p1> <p2>            - Run a local bot match
//	roguedex solo --keys <timeline>    - Play a key timeline against an empty board or a bot
//	roguedex host <addr> --bot <bot>   - Host an online match
//	roguedex join <addr> --bot <bot>   - Join an online match
//	roguedex replay <file>             - Verify a recorded match
//	roguedex scores [mode]             - Show high scores
//	roguedex history [player]          - Show recent matches
//	roguedex asm <file>                - Assemble a bot program
//	roguedex disasm <file|bot>         - Disassemble a bot program
//	roguedex scenario <file.lua>...    - Run Lua battle scenarios
//
// Global flags:
//
//	--config <path>     - Config file (default search: ~/.roguedex/config.yaml, ./configs/roguedex.yaml)
//	--seed <value>      - Match seed (0 = random)
//	--db <path>         - Database path
//	--log-level <lvl>   - debug, info, warn or error
//	--difficulty <name> - easy, normal, hard or fixed
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Import bots to register them
	_ "github.com/vovakirdan/roguedex/internal/bots"
)

var (
	// Global flags
	flagConfig     string
	flagSeed       uint64
	flagDBPath     string
	flagLogLevel   string
	flagDifficulty string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "roguedex",
	Short: "roguedex - rhythm-gated falling-block battles",
	Long: `roguedex runs deterministic two-player falling-block battles where
every action is judged against a musical beat. Clears on the beat hit harder.

Available commands:
  list      - Show built-in bots
  bots      - Run a local bot-versus-bot match
  solo      - Play a key timeline
  host      - Host an online match over UDP
  join      - Join an online match over UDP
  replay    - Verify a recorded match log
  scores    - View high scores
  history   - View recent matches and player stats
  asm       - Assemble a bot program
  disasm    - Disassemble a bot program
  scenario  - Run Lua battle scenarios

Examples:
  roguedex bots dropper idle
  roguedex bots flat lefty --realtime --observe :8080
  roguedex solo --keys "0-20:left 30:space" --vs idle
  roguedex host :7777 --bot flat
  roguedex join 192.168.1.10:7777 --bot dropper
  roguedex replay ~/.roguedex/replays/<id>.jsonl.zst`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config YAML")
	rootCmd.PersistentFlags().Uint64Var(&flagSeed, "seed", 0, "Match seed (0 = random)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to database (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagDifficulty, "difficulty", "", "Difficulty preset: easy, normal, hard, fixed")

	// Add subcommands
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(botsCmd)
	rootCmd.AddCommand(soloCmd)
	rootCmd.AddCommand(hostCmd)
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(scoresCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(asmCmd)
	rootCmd.AddCommand(disasmCmd)
	rootCmd.AddCommand(scenarioCmd)
}
