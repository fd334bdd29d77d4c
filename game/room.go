package game

import (
	"context"
	"log"
	"sync"
	"time"

	"rugsServer/config"
	"rugsServer/crypto"
)

// Broadcaster fans a message out to every connected client. Implemented
// by the websocket hub.
type Broadcaster interface {
	Broadcast(v interface{})
}

// Recorder receives settlement and archival side effects. Implementations
// must return immediately and do their work in the background: a slow or
// failing recorder can never stall the round lifecycle.
type Recorder interface {
	RoundStarted(roundID, prevRoundID string)
	TradeOpened(roundID string, t Trade)
	TradeClosed(roundID string, t Trade)
	RoundArchived(rec RoundRecord)
}

// SourceFactory builds the tick source for a new round. Swapped out in
// tests for scripted paths.
type SourceFactory func(serverSeed, roundID string) TickSource

// Config holds the scheduler timings. Production values live in the
// config package; tests shrink them.
type Config struct {
	TickInterval    time.Duration
	SettleDelay     time.Duration
	CountdownTick   time.Duration
	CooldownSeconds int
	HistorySize     int
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		TickInterval:    config.TickInterval,
		SettleDelay:     config.SettleDelay,
		CountdownTick:   time.Second,
		CooldownSeconds: config.CooldownSeconds,
		HistorySize:     config.MaxRoundHistory,
	}
}

// Room owns the live round, its ledger and the bounded round history.
// Every read-and-use of the multiplier (tick advancement, buy, sell)
// holds mu, so a trade always settles against the most recently
// committed tick, never a torn or stale one.
type Room struct {
	mu sync.Mutex

	cfg       Config
	round     *Round
	ledger    *Ledger
	source    TickSource
	newSource SourceFactory

	serverSeed string
	seedHash   string

	history []RoundRecord // oldest first, bounded at cfg.HistorySize

	bc  Broadcaster
	rec Recorder
}

// NewRoom wires a room in the WAITING phase; Run (or StartRound in
// tests) brings it to life.
func NewRoom(cfg Config, bc Broadcaster, rec Recorder) *Room {
	return &Room{
		cfg: cfg,
		round: &Round{
			Phase:      PhaseWaiting,
			Multiplier: config.StartingMultiplier,
			Countdown:  cfg.CooldownSeconds,
		},
		ledger:    NewLedger(),
		newSource: func(serverSeed, roundID string) TickSource { return NewPathGenerator(serverSeed, roundID) },
		bc:        bc,
		rec:       rec,
	}
}

// SetSourceFactory overrides path generation. Test hook.
func (r *Room) SetSourceFactory(f SourceFactory) { r.newSource = f }

// StartRound replaces the live round: fresh id, fresh seed commitment,
// empty ticks, cleared trades, phase ACTIVE.
func (r *Room) StartRound() {
	r.mu.Lock()
	prevID := r.round.RoundID
	seed, hash := crypto.GenerateServerSeed()
	roundID := newRoundID()
	r.serverSeed, r.seedHash = seed, hash
	r.round = newRound(roundID)
	r.ledger.Reset()
	r.source = r.newSource(seed, roundID)
	r.mu.Unlock()

	r.rec.RoundStarted(roundID, prevID)
	r.bc.Broadcast(map[string]interface{}{
		"type":     "round-start",
		"roundId":  roundID,
		"seedHash": hash,
	})
	log.Printf("🎲 Round %s started (seed hash %.16s…)", roundID, hash)
}

// AdvanceTick commits one generator tick, runs the auto-sell sweep, and
// broadcasts the result. Returns true when the round crashed.
func (r *Room) AdvanceTick() bool {
	r.mu.Lock()
	if r.round.Phase != PhaseActive {
		r.mu.Unlock()
		return false
	}

	value, crashed := r.source.Next()
	r.round.append(Tick{Time: time.Now().UnixMilli(), Value: value})

	var rec RoundRecord
	var autoSold []soldUpdate
	roundID := r.round.RoundID
	target := r.source.Target()
	totalTicks := len(r.round.Ticks)

	if crashed {
		r.round.Phase = PhaseCrashed
		rec = RoundRecord{
			RoundID:         roundID,
			CrashMultiplier: value,
			ServerSeed:      r.serverSeed,
			SeedHash:        r.seedHash,
			Ticks:           r.round.ticksCopy(),
			TotalTicks:      totalTicks,
			Timestamp:       time.Now(),
		}
		r.history = append(r.history, rec)
		if len(r.history) > r.cfg.HistorySize {
			r.history = r.history[1:]
		}
	} else {
		autoSold = r.sweepAutoSellsLocked(value)
	}
	history := r.historyCopyLocked()
	r.mu.Unlock()

	if crashed {
		r.bc.Broadcast(tickMessage(value, PhaseCrashed, 0))
		r.bc.Broadcast(PrevGamesMessage(history))
		r.rec.RoundArchived(rec)
		log.Printf("💥 Round %s rugged at %.6f (target %.0fx, %d ticks)",
			roundID, value, target, totalTicks)
		return true
	}

	r.bc.Broadcast(tickMessage(value, PhaseActive, 0))
	for _, s := range autoSold {
		r.rec.TradeClosed(roundID, s.trade)
		r.bc.Broadcast(tradeUpdateMessage(s.trade.PlayerID, s.trades))
	}
	return false
}

type soldUpdate struct {
	trade  Trade
	trades []Trade
}

// sweepAutoSellsLocked settles every open trade whose auto-sell
// threshold the committed tick crossed, through the same Sell path a
// manual exit takes. Caller holds mu.
func (r *Room) sweepAutoSellsLocked(multiplier float64) []soldUpdate {
	var sold []soldUpdate
	for _, playerID := range r.ledger.autoSellDue(multiplier) {
		t, err := r.ledger.Sell(playerID, multiplier)
		if err != nil {
			continue
		}
		sold = append(sold, soldUpdate{trade: *t, trades: r.ledger.PlayerTrades(playerID)})
		log.Printf("🤖 Auto-sold %s at %.4fx (threshold %.4fx)", playerID, multiplier, t.AutoSell)
	}
	return sold
}

// Buy opens a position for the player at the live multiplier.
func (r *Room) Buy(playerID string, amount, autoSell float64) (Trade, error) {
	r.mu.Lock()
	if r.round.Phase != PhaseActive {
		r.mu.Unlock()
		return Trade{}, ErrInvalidPhase
	}
	t, err := r.ledger.Buy(playerID, amount, autoSell, r.round.Multiplier)
	if err != nil {
		r.mu.Unlock()
		return Trade{}, err
	}
	roundID := r.round.RoundID
	opened := *t
	trades := r.ledger.PlayerTrades(playerID)
	r.mu.Unlock()

	r.rec.TradeOpened(roundID, opened)
	r.bc.Broadcast(tradeUpdateMessage(playerID, trades))
	return opened, nil
}

// Sell closes the player's open position at the live multiplier.
func (r *Room) Sell(playerID string) (Trade, error) {
	r.mu.Lock()
	if r.round.Phase != PhaseActive {
		r.mu.Unlock()
		return Trade{}, ErrInvalidPhase
	}
	t, err := r.ledger.Sell(playerID, r.round.Multiplier)
	if err != nil {
		r.mu.Unlock()
		return Trade{}, err
	}
	roundID := r.round.RoundID
	closed := *t
	trades := r.ledger.PlayerTrades(playerID)
	r.mu.Unlock()

	r.rec.TradeClosed(roundID, closed)
	r.bc.Broadcast(tradeUpdateMessage(playerID, trades))
	return closed, nil
}

// Snapshot is a consistent read of the live round for init and restore
// unicasts.
type Snapshot struct {
	RoundID    string
	Phase      Phase
	Multiplier float64
	Countdown  int
	Ticks      []Tick
	SeedHash   string
}

// Snapshot captures the live round under the lock.
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		RoundID:    r.round.RoundID,
		Phase:      r.round.Phase,
		Multiplier: r.round.Multiplier,
		Countdown:  r.round.Countdown,
		Ticks:      r.round.ticksCopy(),
		SeedHash:   r.seedHash,
	}
}

// PlayerTrades returns a copy of the player's trades this round.
func (r *Room) PlayerTrades(playerID string) []Trade {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ledger.PlayerTrades(playerID)
}

// OpenTrades returns a copy of every open trade in the live round.
func (r *Room) OpenTrades() []Trade {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ledger.OpenTrades()
}

// History returns the retained finished rounds, oldest first.
func (r *Room) History() []RoundRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.historyCopyLocked()
}

func (r *Room) historyCopyLocked() []RoundRecord {
	out := make([]RoundRecord, len(r.history))
	copy(out, r.history)
	return out
}

// SeedHistory preloads the in-memory history, oldest first. Called once
// at boot from the database archive; the bound still applies.
func (r *Room) SeedHistory(records []RoundRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, records...)
	if n := len(r.history) - r.cfg.HistorySize; n > 0 {
		r.history = r.history[n:]
	}
}

// CurrentRoundID returns the live round id ("" before the first round).
func (r *Room) CurrentRoundID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.round.RoundID
}

// beginCooldown flips the round to WAITING with the given counter.
func (r *Room) beginCooldown(countdown int) {
	r.mu.Lock()
	r.round.Phase = PhaseWaiting
	r.round.Countdown = countdown
	r.mu.Unlock()
}

// Run drives the WAITING -> ACTIVE -> CRASHED -> WAITING machine until
// the context ends. One loop, one clock per phase; waits are never
// interrupted mid-timer, shutdown is observed between them.
func (r *Room) Run(ctx context.Context) {
	log.Println("🎰 Round scheduler started")
	for {
		// WAITING: countdown broadcast once per second, ending at 0
		for i := r.cfg.CooldownSeconds; i >= 0; i-- {
			r.beginCooldown(i)
			r.bc.Broadcast(waitingTickMessage(i))
			if i == 0 {
				break
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.cfg.CountdownTick):
			}
		}

		r.StartRound()

		// ACTIVE: fixed-cadence tick loop until the generator rugs
		ticker := time.NewTicker(r.cfg.TickInterval)
		for crashed := false; !crashed; {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				crashed = r.AdvanceTick()
			}
		}
		ticker.Stop()

		// CRASHED: hold the crash print before the next cooldown
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.cfg.SettleDelay):
		}
	}
}

/* =========================
   BROADCAST PAYLOADS
========================= */

func tickMessage(multiplier float64, phase Phase, countdown int) map[string]interface{} {
	return map[string]interface{}{
		"type":       "tick",
		"multiplier": multiplier,
		"phase":      phase,
		"countdown":  countdown,
	}
}

func waitingTickMessage(countdown int) map[string]interface{} {
	return tickMessage(config.StartingMultiplier, PhaseWaiting, countdown)
}

func tradeUpdateMessage(playerID string, trades []Trade) map[string]interface{} {
	return map[string]interface{}{
		"type":     "trade-update",
		"playerId": playerID,
		"trades":   trades,
	}
}

// HistorySummaries strips the heavy tick dumps off history entries; the
// wire carries only what the previous-rounds strip needs.
func HistorySummaries(history []RoundRecord) []map[string]interface{} {
	summaries := make([]map[string]interface{}, 0, len(history))
	for _, rec := range history {
		summaries = append(summaries, map[string]interface{}{
			"roundId":         rec.RoundID,
			"crashMultiplier": rec.CrashMultiplier,
			"totalTicks":      rec.TotalTicks,
		})
	}
	return summaries
}

// PrevGamesMessage is broadcast after a crash and unicast on identify.
func PrevGamesMessage(history []RoundRecord) map[string]interface{} {
	return map[string]interface{}{
		"type": "prev-game",
		"data": HistorySummaries(history),
	}
}
