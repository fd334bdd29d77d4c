package main

import (
	"flag"
	"fmt"
	"log"

	"rugsServer/config"
	"rugsServer/crypto"
	"rugsServer/game"
)

// Offline harness: generates N rounds and prints the crash target
// distribution, rug print range and tick count stats. Useful for eyeing
// the generator after any tuning without touching the live server.
func main() {
	rounds := flag.Int("rounds", 10000, "number of rounds to simulate")
	flag.Parse()

	log.Printf("🎲 Simulating %d rounds...", *rounds)

	targets := make(map[float64]int)
	instaRugs := 0
	capped := 0
	totalTicks := 0
	maxTicks := 0
	minRug, maxRug := 1.0, 0.0
	peak := 0.0

	for i := 0; i < *rounds; i++ {
		seed, _ := crypto.GenerateServerSeed()
		roundID := fmt.Sprintf("sim-%d", i)

		path, target := game.ReplayPath(seed, roundID)
		targets[target]++

		if len(path) == 1 {
			instaRugs++
		}
		if len(path) == config.MaxSteps+1 {
			capped++
		}
		totalTicks += len(path)
		if len(path) > maxTicks {
			maxTicks = len(path)
		}

		rug := path[len(path)-1]
		if rug < minRug {
			minRug = rug
		}
		if rug > maxRug {
			maxRug = rug
		}
		for _, v := range path[:len(path)-1] {
			if v > peak {
				peak = v
			}
		}
	}

	n := float64(*rounds)
	fmt.Println()
	fmt.Println("Crash target distribution:")
	for _, target := range []float64{config.TargetLow, config.TargetMid, config.TargetHigh, config.TargetMax} {
		fmt.Printf("  %6.0fx  %6d  (%.2f%%)\n", target, targets[target], float64(targets[target])/n*100)
	}
	fmt.Println()
	fmt.Printf("Insta-rugs:     %d (%.2f%%, expect ~%.0f%%)\n", instaRugs, float64(instaRugs)/n*100, config.InstantRugChance*100)
	fmt.Printf("Capped rounds:  %d\n", capped)
	fmt.Printf("Avg ticks:      %.1f\n", float64(totalTicks)/n)
	fmt.Printf("Max ticks:      %d (cap %d)\n", maxTicks, config.MaxSteps+1)
	fmt.Printf("Rug prints:     [%.6f, %.6f] (band [%.6f, %.6f])\n", minRug, maxRug, config.RugValueMin, config.RugValueMax)
	fmt.Printf("Highest tick:   %.4fx\n", peak)
}
