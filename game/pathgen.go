package game

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand"

	"rugsServer/config"
)

// NewSeededRNG derives a deterministic RNG from a seed string, so a
// revealed server seed replays the exact same path.
func NewSeededRNG(seed string) *rand.Rand {
	hash := sha256.Sum256([]byte(seed))
	seedInt := int64(binary.BigEndian.Uint64(hash[:8]))
	return rand.New(rand.NewSource(seedInt))
}

// PickCrashTarget draws the round's crash target from the house
// distribution: 49% of rounds cap below 2x, another 8% below 10x,
// another 2% below 50x, the remaining 41% run to 100x.
func PickCrashTarget(rng *rand.Rand) float64 {
	r := rng.Float64()
	switch {
	case r < config.TargetLowProb:
		return config.TargetLow
	case r < config.TargetMidProb:
		return config.TargetMid
	case r < config.TargetHighProb:
		return config.TargetHigh
	default:
		return config.TargetMax
	}
}

// TickSource produces the next multiplier print for the live round.
type TickSource interface {
	// Next returns the next value and whether the round rugged on it.
	Next() (value float64, crashed bool)
	// Target is the pre-chosen crash target for the round.
	Target() float64
}

// PathGenerator is the production TickSource: an upward-biased random
// walk that rugs on a per-tick hazard, on reaching its target, or at the
// step cap.
type PathGenerator struct {
	rng     *rand.Rand
	current float64
	steps   int
	target  float64
}

// NewPathGenerator seeds a generator from serverSeed+roundID so the path
// is reproducible from the revealed seed.
func NewPathGenerator(serverSeed, roundID string) *PathGenerator {
	rng := NewSeededRNG(serverSeed + "-" + roundID)
	return &PathGenerator{
		rng:     rng,
		current: config.StartingMultiplier,
		target:  PickCrashTarget(rng),
	}
}

// Target returns the pre-chosen crash target.
func (g *PathGenerator) Target() float64 { return g.target }

// Next advances the walk by one tick.
func (g *PathGenerator) Next() (float64, bool) {
	// insta-rug on the very first tick (1%)
	if g.steps == 0 && g.rng.Float64() < config.InstantRugChance {
		g.steps++
		return g.rugValue(), true
	}

	g.steps++

	// drift upwards with jitter, floored so the price never freezes
	change := (g.rng.Float64() - config.DriftBias) * config.StepScale
	g.current = math.Max(config.PriceFloor, g.current+change)

	if (g.steps > config.HazardGraceTicks && g.rng.Float64() < config.HazardPerTick) ||
		g.current >= g.target ||
		g.steps > config.MaxSteps {
		return g.rugValue(), true
	}

	return roundTo(g.current, config.TickPrecision), false
}

// rugValue is the crash print: a near-zero random value, never the last
// driven price. Nobody sells into the crash tick at a favorable price,
// even when the round was heading for a 100x target.
func (g *PathGenerator) rugValue() float64 {
	v := config.RugValueMin + g.rng.Float64()*(config.RugValueMax-config.RugValueMin)
	return roundTo(v, config.RugPrecision)
}

// ReplayPath regenerates a round's full tick path from its revealed seed.
// Used by the provably-fair verification endpoint.
func ReplayPath(serverSeed, roundID string) (values []float64, target float64) {
	g := NewPathGenerator(serverSeed, roundID)
	for {
		v, crashed := g.Next()
		values = append(values, v)
		if crashed {
			return values, g.Target()
		}
	}
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
