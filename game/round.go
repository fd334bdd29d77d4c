package game

import (
	"time"

	"rugsServer/config"
)

// Round is the single live round. A new round replaces the old one on
// start; phase transitions (ACTIVE -> CRASHED -> WAITING) mutate in
// place under the owning Room's lock.
type Round struct {
	RoundID    string
	Phase      Phase
	Multiplier float64
	Ticks      []Tick
	Countdown  int
}

func newRound(roundID string) *Round {
	return &Round{
		RoundID:    roundID,
		Phase:      PhaseActive,
		Multiplier: config.StartingMultiplier,
	}
}

// append commits a tick. The live multiplier always equals the last
// committed print.
func (r *Round) append(t Tick) {
	r.Ticks = append(r.Ticks, t)
	r.Multiplier = t.Value
}

// ticksCopy snapshots the tick history for broadcasts and archival.
func (r *Round) ticksCopy() []Tick {
	out := make([]Tick, len(r.Ticks))
	copy(out, r.Ticks)
	return out
}

// newRoundID stamps a round with its start time, millisecond precision.
func newRoundID() string {
	return time.Now().Format("20060102-150405.000")
}
