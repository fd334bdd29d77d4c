package db

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"rugsServer/game"

	"github.com/joho/godotenv"
)

func TestRoundArchiveRoundtrip(t *testing.T) {
	// Load env
	_ = godotenv.Load("../.env")

	// Check DATABASE_URL
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set")
	}

	// Init postgres
	if err := InitPostgres(); err != nil {
		t.Fatalf("Failed to init postgres: %v", err)
	}
	defer ClosePostgres()

	ctx := context.Background()
	roundID := fmt.Sprintf("test-round-%d", time.Now().UnixNano())

	rec := &RoundArchive{
		RoundID:         roundID,
		ServerSeed:      "aabbcc",
		SeedHash:        "ddeeff",
		CrashMultiplier: 0.000042,
		Ticks: []game.Tick{
			{Time: time.Now().UnixMilli(), Value: 1.2},
			{Time: time.Now().UnixMilli(), Value: 0.000042},
		},
		TotalTicks: 2,
		CreatedAt:  time.Now(),
	}

	// Cleanup before and after
	cleanup := func() {
		_, _ = PostgresPool.Exec(ctx, "DELETE FROM crash_rounds WHERE round_id = $1", roundID)
		_, _ = PostgresPool.Exec(ctx, "DELETE FROM crash_trades WHERE round_id = $1", roundID)
	}
	cleanup()
	defer cleanup()

	t.Run("StoreAndGet", func(t *testing.T) {
		if err := StoreRound(ctx, rec); err != nil {
			t.Fatalf("StoreRound failed: %v", err)
		}

		got, err := GetRound(ctx, roundID)
		if err != nil {
			t.Fatalf("GetRound failed: %v", err)
		}
		if got == nil {
			t.Fatal("Expected round, got nil")
		}
		if got.CrashMultiplier != rec.CrashMultiplier {
			t.Errorf("Expected crash %f, got %f", rec.CrashMultiplier, got.CrashMultiplier)
		}
		if len(got.Ticks) != 2 {
			t.Errorf("Expected 2 ticks, got %d", len(got.Ticks))
		}
		if got.ServerSeed != rec.ServerSeed {
			t.Errorf("Expected seed %q, got %q", rec.ServerSeed, got.ServerSeed)
		}
	})

	t.Run("StoreIsIdempotent", func(t *testing.T) {
		if err := StoreRound(ctx, rec); err != nil {
			t.Fatalf("Second StoreRound failed: %v", err)
		}
	})

	t.Run("MissingRoundIsNil", func(t *testing.T) {
		got, err := GetRound(ctx, "no-such-round")
		if err != nil {
			t.Fatalf("GetRound failed: %v", err)
		}
		if got != nil {
			t.Errorf("Expected nil for missing round, got %+v", got)
		}
	})

	t.Run("TradeLifecycle", func(t *testing.T) {
		trade := game.Trade{
			TradeID:   fmt.Sprintf("test-trade-%d", time.Now().UnixNano()),
			PlayerID:  "0xTestPlayer",
			BuyPrice:  1.2,
			BuyAmount: 10.0,
		}
		if err := StoreTrade(ctx, roundID, trade); err != nil {
			t.Fatalf("StoreTrade failed: %v", err)
		}

		sell, pnl := 1.8, 50.0
		trade.SellPrice, trade.PnlPercent = &sell, &pnl
		if err := CloseTrade(ctx, roundID, trade); err != nil {
			t.Fatalf("CloseTrade failed: %v", err)
		}

		if err := MarkTradesLost(ctx, roundID); err != nil {
			t.Fatalf("MarkTradesLost failed: %v", err)
		}

		// the closed trade must not have been flipped to lost
		var status string
		err := PostgresPool.QueryRow(ctx,
			"SELECT status FROM crash_trades WHERE trade_id = $1", trade.TradeID).Scan(&status)
		if err != nil {
			t.Fatalf("status query failed: %v", err)
		}
		if status != "closed" {
			t.Errorf("Expected status closed, got %q", status)
		}
	})
}
