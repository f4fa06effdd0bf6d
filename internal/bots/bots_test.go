package bots

import (
	"testing"

	"github.com/vovakirdan/roguedex/internal/registry"
)

func TestBuiltinsRegistered(t *testing.T) {
	for _, name := range []string{"idle", "dropper", "lefty", "flat", "runaway"} {
		if !registry.Exists(name) {
			t.Errorf("bot %q is not registered", name)
		}
	}
}
