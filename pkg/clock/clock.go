// Package clock tracks the in-game day and hour.
package clock

import "github.com/jwebster45206/druid-of-peace/pkg/notify"

// Phase is a part of the day.
type Phase string

const (
	Dawn  Phase = "dawn"
	Day   Phase = "day"
	Dusk  Phase = "dusk"
	Night Phase = "night"
)

// StartHour is the hour a new game begins.
const StartHour = 8

// PhaseOf returns the phase for an hour of the day.
func PhaseOf(hour int) Phase {
	switch {
	case hour >= 5 && hour <= 7:
		return Dawn
	case hour >= 8 && hour <= 17:
		return Day
	case hour >= 18 && hour <= 20:
		return Dusk
	default:
		return Night
	}
}

// StealthBonus is the stealth the darkness of a phase gives the druid.
func (p Phase) StealthBonus() int {
	switch p {
	case Night:
		return 2
	case Dawn, Dusk:
		return 1
	default:
		return 0
	}
}

// Change is published when the clock crosses into a new phase.
type Change struct {
	From Phase `json:"from"`
	To   Phase `json:"to"`
	Day  int   `json:"day"`
	Hour int   `json:"hour"`
}

// Clock is the game time.
type Clock struct {
	Day  int `json:"day"`
	Hour int `json:"hour"`

	hub notify.Hub[Change]
}

func New() *Clock {
	return &Clock{Day: 1, Hour: StartHour}
}

// Subscribe registers fn for phase changes.
func (c *Clock) Subscribe(fn func(Change)) (unsubscribe func()) {
	return c.hub.Subscribe(fn)
}

func (c *Clock) Phase() Phase {
	return PhaseOf(c.Hour)
}

func (c *Clock) StealthBonus() int {
	return c.Phase().StealthBonus()
}

// Advance moves time forward hour by hour, rolling over midnight into the
// next day. Subscribers hear about every phase boundary crossed.
func (c *Clock) Advance(hours int) {
	for i := 0; i < hours; i++ {
		before := c.Phase()
		c.Hour++
		if c.Hour >= 24 {
			c.Hour = 0
			c.Day++
		}
		if after := c.Phase(); after != before {
			c.hub.Notify(Change{From: before, To: after, Day: c.Day, Hour: c.Hour})
		}
	}
}
