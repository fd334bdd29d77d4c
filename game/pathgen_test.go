package game

import (
	"fmt"
	"math"
	"testing"

	"rugsServer/config"
)

func TestPickCrashTargetDistribution(t *testing.T) {
	rng := NewSeededRNG("distribution-check")

	const n = 100000
	counts := make(map[float64]int)
	for i := 0; i < n; i++ {
		counts[PickCrashTarget(rng)]++
	}

	expected := map[float64]float64{
		config.TargetLow:  config.TargetLowProb,
		config.TargetMid:  config.TargetMidProb - config.TargetLowProb,
		config.TargetHigh: config.TargetHighProb - config.TargetMidProb,
		config.TargetMax:  1.0 - config.TargetHighProb,
	}

	for target, want := range expected {
		got := float64(counts[target]) / n
		if math.Abs(got-want) > 0.01 {
			t.Errorf("target %.0fx: got %.4f, want %.4f (±0.01)", target, got, want)
		}
		t.Logf("target %6.0fx: %.2f%% (expect %.2f%%)", target, got*100, want*100)
	}
}

func TestPathProperties(t *testing.T) {
	const rounds = 5000

	instaRugs := 0
	for i := 0; i < rounds; i++ {
		seed := fmt.Sprintf("prop-seed-%d", i)
		roundID := fmt.Sprintf("prop-round-%d", i)

		path, target := ReplayPath(seed, roundID)

		if len(path) == 0 {
			t.Fatal("empty path")
		}
		if len(path) > config.MaxSteps+1 {
			t.Fatalf("round %d: %d ticks exceeds cap %d", i, len(path), config.MaxSteps+1)
		}
		if len(path) == 1 {
			instaRugs++
		}

		// crash print must land in the rug band
		rug := path[len(path)-1]
		if rug < config.RugValueMin || rug > config.RugValueMax {
			t.Fatalf("round %d: rug print %.8f outside [%.6f, %.6f]",
				i, rug, config.RugValueMin, config.RugValueMax)
		}

		// every live tick respects the price floor and stays below target
		for j, v := range path[:len(path)-1] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("round %d tick %d: non-finite value", i, j)
			}
			if v < config.PriceFloor {
				t.Fatalf("round %d tick %d: %.4f below floor %.2f", i, j, v, config.PriceFloor)
			}
			// rounding may print exactly the target, never above it
			if v > target {
				t.Fatalf("round %d tick %d: live tick %.4f above target %.0fx", i, j, v, target)
			}
		}
	}

	// insta-rug chance is 1%, allow a wide band at this sample size
	rate := float64(instaRugs) / rounds
	if rate < 0.002 || rate > 0.03 {
		t.Errorf("insta-rug rate %.4f far from %.2f", rate, config.InstantRugChance)
	}
	t.Logf("insta-rugs: %d/%d (%.2f%%)", instaRugs, rounds, rate*100)
}

func TestReplayDeterminism(t *testing.T) {
	first, target1 := ReplayPath("seed-abc", "round-1")
	second, target2 := ReplayPath("seed-abc", "round-1")

	if target1 != target2 {
		t.Fatalf("targets differ: %.0f vs %.0f", target1, target2)
	}
	if len(first) != len(second) {
		t.Fatalf("path lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("tick %d differs: %.6f vs %.6f", i, first[i], second[i])
		}
	}
}

func TestTickRounding(t *testing.T) {
	path, _ := ReplayPath("rounding-seed", "rounding-round")

	scale := math.Pow10(config.TickPrecision)
	for i, v := range path[:len(path)-1] {
		if math.Round(v*scale)/scale != v {
			t.Errorf("tick %d: %.10f not rounded to %d decimals", i, v, config.TickPrecision)
		}
	}

	rugScale := math.Pow10(config.RugPrecision)
	rug := path[len(path)-1]
	if math.Round(rug*rugScale)/rugScale != rug {
		t.Errorf("rug print %.10f not rounded to %d decimals", rug, config.RugPrecision)
	}
}
