package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/roguedex/internal/registry"
	"github.com/vovakirdan/roguedex/internal/script"
)

// imageExt is the file extension of program images.
const imageExt = ".rbc"

var flagAsmOutput string

var asmCmd = &cobra.Command{
	Use:   "asm <file>",
	Short: "Assemble a bot program into an image",
	Long: `Assemble bot assembly source, or the source inside a bot manifest YAML,
into a verified program image.

Examples:
  roguedex asm dropper.asm
  roguedex asm mybot.yaml -o mybot.rbc`,
	Args: cobra.ExactArgs(1),
	RunE: runAsm,
}

var disasmCmd = &cobra.Command{
	Use:   "disasm <file|bot>",
	Short: "Disassemble a bot program",
	Long: `Print the assembly of a built-in bot, a bot manifest YAML, or a program
image produced by 'roguedex asm'.

Examples:
  roguedex disasm dropper
  roguedex disasm mybot.rbc`,
	Args: cobra.ExactArgs(1),
	RunE: runDisasm,
}

func init() {
	asmCmd.Flags().StringVarP(&flagAsmOutput, "output", "o", "", "Image path (default: input with "+imageExt+")")
}

func runAsm(_ *cobra.Command, args []string) error {
	path := args[0]
	prog, err := loadSource(path)
	if err != nil {
		return err
	}

	out := flagAsmOutput
	if out == "" {
		out = strings.TrimSuffix(path, filepath.Ext(path)) + imageExt
	}
	if err := os.WriteFile(out, prog.Encode(), 0o644); err != nil { //nolint:gosec // images are not secret
		return fmt.Errorf("cannot write image: %w", err)
	}
	fmt.Printf("%s: %d bytes of code -> %s\n", path, prog.Len(), out)
	return nil
}

// loadSource assembles a .asm file or the source of a manifest.
func loadSource(path string) (*script.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		b, err := script.LoadManifest(data)
		if err != nil {
			return nil, err
		}
		return b.Program, nil
	default:
		return script.Assemble(string(data))
	}
}

func runDisasm(_ *cobra.Command, args []string) error {
	name := args[0]

	var prog *script.Program
	switch {
	case registry.Exists(name):
		b, err := registry.Create(name)
		if err != nil {
			return err
		}
		prog = b.Program
	case filepath.Ext(name) == imageExt:
		img, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		if prog, err = script.Decode(img); err != nil {
			return err
		}
	default:
		var err error
		if prog, err = loadSource(name); err != nil {
			return err
		}
	}

	fmt.Print(script.Disassemble(prog))
	return nil
}
