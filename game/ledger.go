package game

import (
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrInvalidPhase rejects buys and sells outside an ACTIVE round.
	ErrInvalidPhase = errors.New("round is not active")
	// ErrAlreadyOpen rejects a buy while the player holds an open trade.
	ErrAlreadyOpen = errors.New("player already has an open trade")
	// ErrNoOpenTrade rejects a sell with nothing to close.
	ErrNoOpenTrade = errors.New("player has no open trade")
)

// Ledger tracks every trade of the live round. It is not safe for
// concurrent use on its own; the owning Room serializes all access.
type Ledger struct {
	trades map[string][]*Trade // playerId -> trades, chronological
}

func NewLedger() *Ledger {
	return &Ledger{trades: make(map[string][]*Trade)}
}

// Reset drops all trades. Called when a new round starts; finished
// rounds live on in the archive, not here.
func (l *Ledger) Reset() {
	l.trades = make(map[string][]*Trade)
}

func (l *Ledger) openTrade(playerID string) *Trade {
	for _, t := range l.trades[playerID] {
		if t.Open() {
			return t
		}
	}
	return nil
}

// Buy opens a trade at the given multiplier. At most one open trade per
// player exists at any time.
func (l *Ledger) Buy(playerID string, amount, autoSell, multiplier float64) (*Trade, error) {
	if l.openTrade(playerID) != nil {
		return nil, ErrAlreadyOpen
	}
	t := &Trade{
		TradeID:   uuid.NewString(),
		PlayerID:  playerID,
		BuyPrice:  multiplier,
		BuyAmount: amount,
		AutoSell:  autoSell,
	}
	l.trades[playerID] = append(l.trades[playerID], t)
	return t, nil
}

// Sell closes the player's open trade at the given multiplier and
// computes its PnL percentage.
func (l *Ledger) Sell(playerID string, multiplier float64) (*Trade, error) {
	t := l.openTrade(playerID)
	if t == nil {
		return nil, ErrNoOpenTrade
	}
	sell := multiplier
	pnl := (sell - t.BuyPrice) / t.BuyPrice * 100
	t.SellPrice = &sell
	t.PnlPercent = &pnl
	return t, nil
}

// PlayerTrades returns a copy of the player's trades this round.
func (l *Ledger) PlayerTrades(playerID string) []Trade {
	out := make([]Trade, 0, len(l.trades[playerID]))
	for _, t := range l.trades[playerID] {
		out = append(out, *t)
	}
	return out
}

// OpenTrades returns a copy of every open trade in the round.
func (l *Ledger) OpenTrades() []Trade {
	var out []Trade
	for _, trades := range l.trades {
		for _, t := range trades {
			if t.Open() {
				out = append(out, *t)
			}
		}
	}
	return out
}

// autoSellDue returns the players whose open trade has an auto-sell
// threshold at or below the given multiplier.
func (l *Ledger) autoSellDue(multiplier float64) []string {
	var due []string
	for playerID, trades := range l.trades {
		for _, t := range trades {
			if t.Open() && t.AutoSell > 0 && multiplier >= t.AutoSell {
				due = append(due, playerID)
			}
		}
	}
	return due
}
