package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"rugsServer/config"
	"rugsServer/game"

	"github.com/redis/go-redis/v9"
)

var (
	// RedisClient is the global Redis client instance
	RedisClient *redis.Client
)

// InitRedis initializes the Redis client connection.
func InitRedis() error {
	log.Println("🔌 Connecting to Redis...")

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "localhost:6379"
	}

	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			redisDB = db
		}
	}

	RedisClient = redis.NewClient(&redis.Options{
		Addr:         redisURL,
		Password:     redisPassword,
		DB:           redisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := RedisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("✅ Redis connected successfully - URL: %s", redisURL)
	return nil
}

// CloseRedis closes the Redis connection.
func CloseRedis() error {
	if RedisClient != nil {
		log.Println("🔌 Closing Redis connection...")
		return RedisClient.Close()
	}
	return nil
}

/* =========================
   OPEN TRADE CACHE (Hash Map Structure)
   Redis Key: crash:{roundId} -> Hash{playerId: trade JSON}
========================= */

// StoreOpenTrade caches an open trade for the live round.
func StoreOpenTrade(ctx context.Context, roundID string, t game.Trade) error {
	if RedisClient == nil {
		return nil
	}
	hashKey := fmt.Sprintf(config.RedisOpenTradesKey, roundID)

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal open trade: %w", err)
	}

	if err := RedisClient.HSet(ctx, hashKey, t.PlayerID, data).Err(); err != nil {
		return fmt.Errorf("failed to store open trade: %w", err)
	}

	// TTL covers rounds whose cleanup never ran
	RedisClient.Expire(ctx, hashKey, config.OpenTradeTTL)

	log.Printf("✅ Cached open trade - Round: %s, Player: %s, Entry: %.4fx, Amount: %.4f",
		roundID, t.PlayerID, t.BuyPrice, t.BuyAmount)
	return nil
}

// DeleteOpenTrade drops a player's cached trade once it settles.
func DeleteOpenTrade(ctx context.Context, roundID, playerID string) error {
	if RedisClient == nil {
		return nil
	}
	hashKey := fmt.Sprintf(config.RedisOpenTradesKey, roundID)

	if err := RedisClient.HDel(ctx, hashKey, playerID).Err(); err != nil {
		return fmt.Errorf("failed to delete open trade: %w", err)
	}

	return nil
}

// GetOpenTrades retrieves every cached open trade for a round.
func GetOpenTrades(ctx context.Context, roundID string) (map[string]game.Trade, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("redis not initialized")
	}
	hashKey := fmt.Sprintf(config.RedisOpenTradesKey, roundID)

	data, err := RedisClient.HGetAll(ctx, hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get open trades: %w", err)
	}

	trades := make(map[string]game.Trade)
	for playerID, tradeJSON := range data {
		var t game.Trade
		if err := json.Unmarshal([]byte(tradeJSON), &t); err != nil {
			log.Printf("⚠️  Failed to unmarshal trade for %s: %v", playerID, err)
			continue
		}
		trades[playerID] = t
	}

	return trades, nil
}

// CleanupRound deletes the whole open trade hash for a finished round.
func CleanupRound(ctx context.Context, roundID string) error {
	if RedisClient == nil {
		return nil
	}
	hashKey := fmt.Sprintf(config.RedisOpenTradesKey, roundID)

	count, _ := RedisClient.HLen(ctx, hashKey).Result()

	if err := RedisClient.Del(ctx, hashKey).Err(); err != nil {
		return fmt.Errorf("failed to cleanup round cache: %w", err)
	}

	if count > 0 {
		log.Printf("🧹 Cleaned up round %s cache (%d players)", roundID, count)
	}
	return nil
}

/* =========================
   HEALTH CHECK
========================= */

// HealthCheck performs a Redis health check.
func HealthCheck(ctx context.Context) error {
	if RedisClient == nil {
		return fmt.Errorf("redis not initialized")
	}
	return RedisClient.Ping(ctx).Err()
}
