package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validManifest = `
name: lefty
author: test
isa: 1
step_budget: 64
description: pushes everything to the left wall
source: |
  loop:
    call get_piece_x
    jz drop
    call move_left
    jmp loop
  drop:
    call hard_drop
    halt
`

func TestLoadManifest(t *testing.T) {
	bot, err := LoadManifest([]byte(validManifest))
	require.NoError(t, err)
	assert.Equal(t, "lefty", bot.Name)
	assert.Equal(t, 64, bot.Budget())

	res, err := NewMachine(bot.Program).Run(&fakeSnapshot{x: 0}, bot.Budget())
	require.NoError(t, err)
	assert.Equal(t, []Command{CmdHardDrop}, res.Commands)
}

func TestLoadManifestDefaultBudget(t *testing.T) {
	bot, err := LoadManifest([]byte("name: idle\nisa: 1\nsource: halt\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultStepBudget, bot.Budget())
}

func TestLoadManifestRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not yaml", doc: "name: [unterminated"},
		{name: "missing source", doc: "name: idle\nisa: 1\n"},
		{name: "wrong isa", doc: "name: idle\nisa: 2\nsource: halt\n"},
		{name: "bad name", doc: "name: Idle Bot\nisa: 1\nsource: halt\n"},
		{name: "unknown field", doc: "name: idle\nisa: 1\nsource: halt\nextra: true\n"},
		{name: "zero budget", doc: "name: idle\nisa: 1\nstep_budget: 0\nsource: halt\n"},
		{name: "bad source", doc: "name: idle\nisa: 1\nsource: fly\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadManifest([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrManifest)
		})
	}
}
