package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/roguedex/internal/scenario"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario <file.lua>...",
	Short: "Run Lua battle scenarios",
	Long: `Run Lua scripts that build battles, submit actions and check events.
Arguments may be glob patterns. A failed expect stops that script.

Scripts see:
  Battle.new{seed=42, bpm=120, window_ms=200, route_garbage=true}
  b:fill_row(player, y, "XXXXX.XXXX")   b:set_piece(player, {shape="I", rotation=1, x=3, y=30})
  b:submit("hard_drop", player, {elapsed_ms=1000})   b:garbage(player, lines)
  b:tick(n)   b:events()   b:view(player)   b:now()   b:digest()
  expect(cond, message)   log(message)

Examples:
  roguedex scenario internal/scenario/testdata/*.lua`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScenario,
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	var files []string
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			matches = []string{arg}
		}
		files = append(files, matches...)
	}

	failed := 0
	for _, path := range files {
		res, err := scenario.RunFile(path, scenario.WithLogger(logger))
		if err != nil {
			failed++
			fmt.Printf("FAIL  %s\n      %v\n", path, err)
			continue
		}
		fmt.Println(winnerStyle.Render("ok") + fmt.Sprintf("    %s  %d checks, %d battles, %d ticks", path, res.Checks, res.Battles, res.Ticks))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(files))
	}
	return nil
}
