package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jwebster45206/druid-of-peace/pkg/game"
)

var errUnknownCommand = errors.New("unknown command, type /help for the list")

// command is one parsed line of player input.
type command struct {
	name   string
	arg    string
	target *int // Zero-based NPC slot
}

// argCount is how many words each command takes after its name:
// required, then optional.
var argCount = map[string][2]int{
	"advance": {0, 0},
	"travel":  {1, 0},
	"use":     {1, 0},
	"start":   {0, 0},
	"ability": {1, 1},
	"target":  {1, 0},
	"cancel":  {0, 0},
	"item":    {1, 1},
	"end":     {0, 0},
	"flee":    {0, 0},
	"restart": {0, 0},
	"skills":  {0, 0},
	"learn":   {1, 0},
	"claim":   {1, 0},
	"history": {0, 0},
	"/help":   {0, 0},
	"/copy":   {0, 0},
	"/quit":   {0, 0},
}

var encounterActions = map[string]game.ActionType{
	"ability": game.ActionAbility,
	"target":  game.ActionTarget,
	"cancel":  game.ActionCancel,
	"item":    game.ActionItem,
	"end":     game.ActionEndTurn,
	"flee":    game.ActionFlee,
	"restart": game.ActionRestart,
}

// parseCommand reads "name [arg] [target]". NPC targets are typed as 1 or 2.
func parseCommand(input string) (command, error) {
	fields := strings.Fields(strings.ToLower(input))
	if len(fields) == 0 {
		return command{}, errUnknownCommand
	}
	c := command{name: fields[0]}
	if c.name == "wait" {
		c.name = "advance"
	}
	counts, ok := argCount[c.name]
	if !ok {
		return command{}, fmt.Errorf("%w: %s", errUnknownCommand, fields[0])
	}
	args := fields[1:]
	if len(args) < counts[0] || len(args) > counts[0]+counts[1] {
		return command{}, fmt.Errorf("%s takes %d argument(s)", c.name, counts[0])
	}

	if c.name == "target" {
		t, err := parseTarget(args[0])
		if err != nil {
			return command{}, err
		}
		c.target = &t
		return c, nil
	}
	if len(args) > 0 {
		c.arg = args[0]
	}
	if len(args) > 1 {
		t, err := parseTarget(args[1])
		if err != nil {
			return command{}, err
		}
		c.target = &t
	}
	return c, nil
}

func parseTarget(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 2 {
		return 0, fmt.Errorf("target must be 1 or 2, got %q", s)
	}
	return n - 1, nil
}

// action converts an encounter command into an API action.
func (c command) action() (game.Action, bool) {
	t, ok := encounterActions[c.name]
	if !ok {
		return game.Action{}, false
	}
	return game.Action{Type: t, ID: c.arg, Target: c.target}, true
}

const helpText = `Map:
• advance (or wait) - let two hours pass
• travel <zone> - walk to a connected zone
• use <item> - use an item on the current zone
• start - step into the fight in this zone

Encounter:
• ability <id> [1|2] - use an ability, optionally on an NPC
• target <1|2> - pick the target for the chosen ability
• cancel - put the chosen ability away
• item <id> [1|2] - use an item from your pack
• end - end your turn
• flee - slip away
• restart - start the fight over

Progress:
• skills, learn <id>, claim <id>, history

Console:
• /copy - copy the last response
• /help - show this help
• /quit or Ctrl+C - quit`
