package config

import "time"

/* =========================
   GAME CONSTANTS
========================= */

const (
	// StartingMultiplier is where every round's price path begins
	StartingMultiplier = 1.0

	// TickInterval is the live-round price update cadence
	TickInterval = 500 * time.Millisecond

	// PriceFloor clamps every step of the random walk
	PriceFloor = 0.1

	// DriftBias and StepScale shape each step:
	// current = max(PriceFloor, current + (U - DriftBias) * StepScale)
	DriftBias = 0.45
	StepScale = 0.5

	// InstantRugChance rugs the round on its very first step
	InstantRugChance = 0.01

	// HazardGraceTicks is the number of steps before the per-tick hazard
	// starts rolling; HazardPerTick is the rug chance on each step after
	HazardGraceTicks = 10
	HazardPerTick    = 0.05

	// MaxSteps hard-caps a round's length
	MaxSteps = 200

	// TickPrecision rounds live tick values; RugPrecision rounds the
	// final crash print
	TickPrecision = 4
	RugPrecision  = 6

	// Rug prints always land in this band, whatever the path was doing
	RugValueMin = 0.000001
	RugValueMax = 0.0001

	// Crash target distribution checkpoints (cumulative probabilities)
	TargetLowProb  = 0.49
	TargetMidProb  = 0.57
	TargetHighProb = 0.59

	TargetLow  = 2.0
	TargetMid  = 10.0
	TargetHigh = 50.0
	TargetMax  = 100.0

	// SettleDelay holds the crash print on screen before the cooldown
	SettleDelay = 2 * time.Second

	// CooldownSeconds is the between-rounds countdown, broadcast at 1Hz
	CooldownSeconds = 8

	// MaxRoundHistory bounds the in-memory previous-rounds strip
	MaxRoundHistory = 10

	// MaxArchivedRound caps how many rounds the REST archive pages out
	MaxArchivedRound = 50
)

/* =========================
   TRADE LIMITS
========================= */

const (
	MinBuyAmount = 0.0001
	MaxBuyAmount = 1_000_000.0
)

/* =========================
   WEBSOCKET SETTINGS
========================= */

const (
	WSReadDeadline  = 60 * time.Second
	WSWriteDeadline = 10 * time.Second
	WSPingInterval  = 30 * time.Second

	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSSendBufferSize  = 256

	MaxMessageSize = 4 * 1024
)

/* =========================
   DATABASE SETTINGS
========================= */

const (
	MaxOpenConns    = 25
	MinIdleConns    = 5
	ConnMaxLifetime = 5 * time.Minute

	// RedisOpenTradesKey is the per-round open trade hash
	RedisOpenTradesKey = "crash:%s"

	// OpenTradeTTL expires stale round caches that were never cleaned up
	OpenTradeTTL = 1 * time.Hour
)

/* =========================
   PERSISTENCE RETRIES
========================= */

const (
	MaxRetries     = 3
	RetryDelay     = 2 * time.Second
	PersistTimeout = 10 * time.Second
	PayoutTimeout  = 30 * time.Second
)
