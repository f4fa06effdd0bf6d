// Package bots registers the built-in bot programs.
package bots

import (
	"embed"
	"fmt"
	"path"

	"github.com/vovakirdan/roguedex/internal/registry"
	"github.com/vovakirdan/roguedex/internal/script"
)

//go:embed programs/*.yaml
var programs embed.FS

func init() {
	entries, err := programs.ReadDir("programs")
	if err != nil {
		panic(fmt.Sprintf("bots: cannot read embedded programs: %v", err))
	}
	for _, e := range entries {
		data, err := programs.ReadFile(path.Join("programs", e.Name()))
		if err != nil {
			panic(fmt.Sprintf("bots: cannot read %s: %v", e.Name(), err))
		}
		b, err := script.LoadManifest(data)
		if err != nil {
			panic(fmt.Sprintf("bots: %s: %v", e.Name(), err))
		}
		registry.Register(b.Name, func() *script.Bot { return b })
	}
}
