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

func TestOpenTradeCache(t *testing.T) {
	// Load env
	_ = godotenv.Load("../.env")

	if os.Getenv("REDIS_URL") == "" {
		t.Skip("REDIS_URL not set")
	}

	if err := InitRedis(); err != nil {
		t.Fatalf("Failed to init redis: %v", err)
	}
	defer CloseRedis()

	ctx := context.Background()
	roundID := fmt.Sprintf("test-round-%d", time.Now().UnixNano())
	defer CleanupRound(ctx, roundID)

	alice := game.Trade{
		TradeID:   "trade-a",
		PlayerID:  "alice",
		BuyPrice:  1.2,
		BuyAmount: 10.0,
	}
	bob := game.Trade{
		TradeID:   "trade-b",
		PlayerID:  "bob",
		BuyPrice:  1.5,
		BuyAmount: 5.0,
		AutoSell:  3.0,
	}

	t.Run("StoreAndGetAll", func(t *testing.T) {
		if err := StoreOpenTrade(ctx, roundID, alice); err != nil {
			t.Fatalf("StoreOpenTrade failed: %v", err)
		}
		if err := StoreOpenTrade(ctx, roundID, bob); err != nil {
			t.Fatalf("StoreOpenTrade failed: %v", err)
		}

		trades, err := GetOpenTrades(ctx, roundID)
		if err != nil {
			t.Fatalf("GetOpenTrades failed: %v", err)
		}
		if len(trades) != 2 {
			t.Fatalf("Expected 2 cached trades, got %d", len(trades))
		}
		if trades["alice"].BuyPrice != 1.2 {
			t.Errorf("Expected alice entry 1.2, got %f", trades["alice"].BuyPrice)
		}
		if trades["bob"].AutoSell != 3.0 {
			t.Errorf("Expected bob autoSell 3.0, got %f", trades["bob"].AutoSell)
		}
	})

	t.Run("DeleteOne", func(t *testing.T) {
		if err := DeleteOpenTrade(ctx, roundID, "alice"); err != nil {
			t.Fatalf("DeleteOpenTrade failed: %v", err)
		}
		trades, err := GetOpenTrades(ctx, roundID)
		if err != nil {
			t.Fatalf("GetOpenTrades failed: %v", err)
		}
		if len(trades) != 1 {
			t.Fatalf("Expected 1 trade after delete, got %d", len(trades))
		}
	})

	t.Run("CleanupRound", func(t *testing.T) {
		if err := CleanupRound(ctx, roundID); err != nil {
			t.Fatalf("CleanupRound failed: %v", err)
		}
		trades, err := GetOpenTrades(ctx, roundID)
		if err != nil {
			t.Fatalf("GetOpenTrades failed: %v", err)
		}
		if len(trades) != 0 {
			t.Fatalf("Expected empty cache after cleanup, got %d", len(trades))
		}
	})
}
