package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

/* =========================
   TEST DOUBLES
========================= */

// scriptedSource plays back a fixed path; the last value is the crash.
type scriptedSource struct {
	values []float64
	target float64
	idx    int
}

func (s *scriptedSource) Next() (float64, bool) {
	v := s.values[s.idx]
	crashed := s.idx == len(s.values)-1
	s.idx++
	return v, crashed
}

func (s *scriptedSource) Target() float64 { return s.target }

// captureBroadcaster collects every broadcast payload.
type captureBroadcaster struct {
	mu       sync.Mutex
	messages []map[string]interface{}
}

func (b *captureBroadcaster) Broadcast(v interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := v.(map[string]interface{}); ok {
		b.messages = append(b.messages, m)
	}
}

func (b *captureBroadcaster) byType(msgType string) []map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]interface{}
	for _, m := range b.messages {
		if m["type"] == msgType {
			out = append(out, m)
		}
	}
	return out
}

// captureRecorder collects settlement events and signals archives.
type captureRecorder struct {
	mu       sync.Mutex
	opened   []Trade
	closed   []Trade
	archived chan RoundRecord
}

func newCaptureRecorder() *captureRecorder {
	return &captureRecorder{archived: make(chan RoundRecord, 16)}
}

func (r *captureRecorder) RoundStarted(roundID, prevRoundID string) {}

func (r *captureRecorder) TradeOpened(roundID string, t Trade) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = append(r.opened, t)
}

func (r *captureRecorder) TradeClosed(roundID string, t Trade) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, t)
}

func (r *captureRecorder) RoundArchived(rec RoundRecord) {
	r.archived <- rec
}

func (r *captureRecorder) closedTrades() []Trade {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Trade, len(r.closed))
	copy(out, r.closed)
	return out
}

func testConfig() Config {
	return Config{
		TickInterval:    time.Millisecond,
		SettleDelay:     time.Millisecond,
		CountdownTick:   time.Millisecond,
		CooldownSeconds: 3,
		HistorySize:     3,
	}
}

func scriptFactory(paths [][]float64) SourceFactory {
	i := 0
	return func(serverSeed, roundID string) TickSource {
		path := paths[i%len(paths)]
		i++
		return &scriptedSource{values: path, target: 100.0}
	}
}

/* =========================
   TESTS
========================= */

func TestRoomTradeLifecycle(t *testing.T) {
	bc := &captureBroadcaster{}
	rec := newCaptureRecorder()
	room := NewRoom(testConfig(), bc, rec)
	room.SetSourceFactory(scriptFactory([][]float64{{1.2, 1.5, 0.00005}}))

	room.StartRound()

	if snap := room.Snapshot(); snap.Phase != PhaseActive {
		t.Fatalf("expected ACTIVE after start, got %s", snap.Phase)
	}

	if room.AdvanceTick() {
		t.Fatal("unexpected crash on tick 1")
	}
	trade, err := room.Buy("alice", 10.0, 0)
	if err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	if trade.BuyPrice != 1.2 {
		t.Errorf("expected entry at 1.2, got %f", trade.BuyPrice)
	}

	if room.AdvanceTick() {
		t.Fatal("unexpected crash on tick 2")
	}
	sold, err := room.Sell("alice")
	if err != nil {
		t.Fatalf("Sell failed: %v", err)
	}
	// (1.5 - 1.2) / 1.2 * 100 = 25%
	if *sold.PnlPercent != 25.0 {
		t.Errorf("expected pnl 25.0, got %f", *sold.PnlPercent)
	}

	if !room.AdvanceTick() {
		t.Fatal("expected crash on tick 3")
	}

	// settled round rejects everything
	if _, err := room.Sell("alice"); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase selling after crash, got %v", err)
	}
	if _, err := room.Buy("bob", 5.0, 0); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase buying after crash, got %v", err)
	}

	history := room.History()
	if len(history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history))
	}
	if history[0].CrashMultiplier != 0.00005 {
		t.Errorf("expected crash print 0.00005, got %f", history[0].CrashMultiplier)
	}
	if history[0].TotalTicks != 3 {
		t.Errorf("expected 3 ticks, got %d", history[0].TotalTicks)
	}

	// the next round starts with a clean ledger
	room.StartRound()
	if got := len(room.PlayerTrades("alice")); got != 0 {
		t.Errorf("expected cleared trades on new round, got %d", got)
	}
}

func TestRoomRugSweepsOpenTrades(t *testing.T) {
	bc := &captureBroadcaster{}
	rec := newCaptureRecorder()
	room := NewRoom(testConfig(), bc, rec)
	room.SetSourceFactory(scriptFactory([][]float64{{1.3, 0.00002}}))

	room.StartRound()
	room.AdvanceTick()
	room.Buy("alice", 10.0, 0)
	room.AdvanceTick() // rug

	// the open trade is never settled at the crash print; it rides into
	// the archive as a loss
	if got := len(rec.closedTrades()); got != 0 {
		t.Errorf("expected no closed trades on rug, got %d", got)
	}
	select {
	case archived := <-rec.archived:
		if archived.CrashMultiplier != 0.00002 {
			t.Errorf("expected archive at crash print, got %f", archived.CrashMultiplier)
		}
	default:
		t.Fatal("expected RoundArchived")
	}
}

func TestRoomAutoSell(t *testing.T) {
	bc := &captureBroadcaster{}
	rec := newCaptureRecorder()
	room := NewRoom(testConfig(), bc, rec)
	room.SetSourceFactory(scriptFactory([][]float64{{1.2, 1.8, 2.4, 0.00009}}))

	room.StartRound()
	room.AdvanceTick() // 1.2
	room.Buy("alice", 10.0, 2.0)
	room.AdvanceTick() // 1.8, below threshold
	if got := len(rec.closedTrades()); got != 0 {
		t.Fatalf("auto-sell fired below threshold: %d closed", got)
	}

	room.AdvanceTick() // 2.4, crosses 2.0
	closed := rec.closedTrades()
	if len(closed) != 1 {
		t.Fatalf("expected 1 auto-sold trade, got %d", len(closed))
	}
	// settles at the committed tick, not the threshold
	if *closed[0].SellPrice != 2.4 {
		t.Errorf("expected auto-sell at 2.4, got %f", *closed[0].SellPrice)
	}
	// (2.4 - 1.2) / 1.2 * 100 = 100%
	if *closed[0].PnlPercent != 100.0 {
		t.Errorf("expected pnl 100.0, got %f", *closed[0].PnlPercent)
	}
}

func TestRoomHistoryBound(t *testing.T) {
	bc := &captureBroadcaster{}
	rec := newCaptureRecorder()
	room := NewRoom(testConfig(), bc, rec)

	crashes := []float64{0.00001, 0.00002, 0.00003, 0.00004, 0.00005}
	var paths [][]float64
	for _, c := range crashes {
		paths = append(paths, []float64{1.1, c})
	}
	room.SetSourceFactory(scriptFactory(paths))

	for range crashes {
		room.StartRound()
		for !room.AdvanceTick() {
		}
	}

	history := room.History()
	if len(history) != 3 {
		t.Fatalf("expected history bounded at 3, got %d", len(history))
	}
	// oldest evicted first: the survivors are the last three crashes
	for i, want := range crashes[2:] {
		if history[i].CrashMultiplier != want {
			t.Errorf("history[%d]: expected %f, got %f", i, want, history[i].CrashMultiplier)
		}
	}
}

func TestRoomSeedHistoryBound(t *testing.T) {
	room := NewRoom(testConfig(), &captureBroadcaster{}, newCaptureRecorder())

	var records []RoundRecord
	for i := 0; i < 5; i++ {
		records = append(records, RoundRecord{RoundID: string(rune('a' + i))})
	}
	room.SeedHistory(records)

	history := room.History()
	if len(history) != 3 {
		t.Fatalf("expected seeded history bounded at 3, got %d", len(history))
	}
	if history[0].RoundID != "c" {
		t.Errorf("expected oldest survivor 'c', got %q", history[0].RoundID)
	}
}

func TestRoomRunCountdown(t *testing.T) {
	bc := &captureBroadcaster{}
	rec := newCaptureRecorder()
	room := NewRoom(testConfig(), bc, rec)
	room.SetSourceFactory(scriptFactory([][]float64{{1.1, 0.00007}}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		room.Run(ctx)
		close(done)
	}()

	// wait for the first full round to archive, then stop the loop
	select {
	case <-rec.archived:
	case <-time.After(5 * time.Second):
		t.Fatal("round never archived")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}

	// the countdown ran 3..0 at the starting multiplier before the round
	var countdowns []int
	for _, m := range bc.byType("tick") {
		if m["phase"] == PhaseWaiting {
			countdowns = append(countdowns, m["countdown"].(int))
		}
	}
	if len(countdowns) < 4 {
		t.Fatalf("expected at least 4 waiting ticks, got %v", countdowns)
	}
	for i, want := range []int{3, 2, 1, 0} {
		if countdowns[i] != want {
			t.Fatalf("countdown sequence wrong: got %v", countdowns[:4])
		}
	}

	if starts := bc.byType("round-start"); len(starts) == 0 {
		t.Fatal("expected a round-start broadcast")
	} else if starts[0]["seedHash"] == "" {
		t.Error("round-start missing seed hash commitment")
	}
}
