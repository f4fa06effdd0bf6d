package script

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// DefaultStepBudget applies when a manifest does not set step_budget.
const DefaultStepBudget = 256

// ErrManifest is returned when a bot manifest fails to parse or validate.
var ErrManifest = errors.New("script: invalid manifest")

//go:embed schema/bot.schema.json
var botSchemaJSON string

var (
	botSchemaOnce sync.Once
	botSchema     *jsonschema.Schema
	botSchemaErr  error
)

func manifestSchema() (*jsonschema.Schema, error) {
	botSchemaOnce.Do(func() {
		botSchema, botSchemaErr = jsonschema.CompileString("bot.schema.json", botSchemaJSON)
	})
	return botSchema, botSchemaErr
}

// Manifest describes a bot program.
type Manifest struct {
	Name        string `yaml:"name" json:"name"`
	Author      string `yaml:"author,omitempty" json:"author,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	ISA         int    `yaml:"isa" json:"isa"`
	StepBudget  int    `yaml:"step_budget,omitempty" json:"step_budget,omitempty"`
	Source      string `yaml:"source" json:"source"`
}

// Bot is a manifest together with its assembled program.
type Bot struct {
	Manifest
	Program *Program
}

// Budget returns the manifest step budget or DefaultStepBudget.
func (b *Bot) Budget() int {
	if b.StepBudget > 0 {
		return b.StepBudget
	}
	return DefaultStepBudget
}

// LoadManifest parses YAML, validates it against the bot schema and
// assembles the program.
func LoadManifest(data []byte) (*Bot, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}

	// The validator works on JSON values.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}

	schema, err := manifestSchema()
	if err != nil {
		return nil, fmt.Errorf("script: cannot compile manifest schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}

	prog, err := Assemble(m.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrManifest, m.Name, err)
	}
	return &Bot{Manifest: m, Program: prog}, nil
}
