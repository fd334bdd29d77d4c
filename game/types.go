package game

import "time"

// Phase of the live round.
type Phase string

const (
	PhaseWaiting Phase = "WAITING"
	PhaseActive  Phase = "ACTIVE"
	PhaseCrashed Phase = "CRASHED"
)

// Tick is one committed price print. Immutable once appended.
type Tick struct {
	Time  int64   `json:"time"` // unix millis
	Value float64 `json:"value"`
}

// Trade is a single wager: opened by a buy, closed by at most one sell.
// SellPrice and PnlPercent stay nil while the position is open.
type Trade struct {
	TradeID    string   `json:"tradeId"`
	PlayerID   string   `json:"playerId"`
	BuyPrice   float64  `json:"buy"`
	BuyAmount  float64  `json:"buyAmount"`
	SellPrice  *float64 `json:"sell,omitempty"`
	PnlPercent *float64 `json:"pnl,omitempty"`
	AutoSell   float64  `json:"autoSell,omitempty"` // 0 = no auto-sell
}

// Open reports whether the position has not been sold yet.
func (t *Trade) Open() bool { return t.SellPrice == nil }

// RoundRecord is the immutable history entry sealed at crash time.
type RoundRecord struct {
	RoundID         string    `json:"roundId"`
	CrashMultiplier float64   `json:"crashMultiplier"`
	ServerSeed      string    `json:"serverSeed"`
	SeedHash        string    `json:"seedHash"`
	Ticks           []Tick    `json:"ticks"`
	TotalTicks      int       `json:"totalTicks"`
	Timestamp       time.Time `json:"timestamp"`
}
