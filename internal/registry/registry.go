// Package registry provides a global registry of bot programs.
// Built-in bots register themselves in init() functions, allowing the
// match loop and the CLI to find them by name without hardcoded imports.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vovakirdan/roguedex/internal/script"
)

// Info contains metadata about a registered bot.
type Info struct {
	Name        string
	Author      string
	Description string
	StepBudget  int
}

// Factory returns the bot to run. Programs are immutable, so a factory may
// return the same *script.Bot every time; machine state lives in the harness.
type Factory func() *script.Bot

var (
	factories = make(map[string]Factory)
	infos     = make(map[string]Info)
	mu        sync.RWMutex
)

// Register adds a bot factory to the registry.
// Typically called from an init() function.
// Panics if a bot with the same name is already registered.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("registry: bot %q already registered", name))
	}

	factories[name] = f

	b := f()
	infos[name] = Info{
		Name:        name,
		Author:      b.Author,
		Description: b.Description,
		StepBudget:  b.Budget(),
	}
}

// List returns information about all registered bots, sorted by name.
func List() []Info {
	mu.RLock()
	defer mu.RUnlock()

	result := make([]Info, 0, len(infos))
	for _, info := range infos {
		result = append(result, info)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result
}

// Create returns a registered bot by name.
// Returns an error if the name is not registered.
func Create(name string) (*script.Bot, error) {
	mu.RLock()
	defer mu.RUnlock()

	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("registry: unknown bot %q", name)
	}

	return f(), nil
}

// Exists checks if a bot with the given name is registered.
func Exists(name string) bool {
	mu.RLock()
	defer mu.RUnlock()

	_, ok := factories[name]
	return ok
}
