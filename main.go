package main

import (
	"context"
	"log"
	"net/http"

	"rugsServer/api"
	"rugsServer/config"
	"rugsServer/contract"
	"rugsServer/db"
	"rugsServer/game"
	"rugsServer/ws"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables")
	} else {
		log.Println("✅ Loaded environment variables from .env")
	}

	// Initialize database connections
	if err := db.InitPostgres(); err != nil {
		log.Printf("⚠️  Warning: PostgreSQL initialization failed: %v", err)
		log.Println("   Round archive and leaderboard features will be disabled")
	}
	defer db.ClosePostgres()

	if err := db.InitRedis(); err != nil {
		log.Printf("⚠️  Warning: Redis initialization failed: %v", err)
		log.Println("   Open trade cache will be disabled")
	}
	defer db.CloseRedis()

	// Initialize vault client for on-chain payouts
	var vault *contract.VaultClient
	if v, err := contract.NewVaultClient(); err != nil {
		log.Printf("⚠️  Warning: Vault client initialization failed: %v", err)
		log.Println("   On-chain payouts will not work")
	} else {
		vault = v
		defer vault.Close()
	}

	// Wire the hub, room and recorder together
	hub := ws.NewHub()
	room := game.NewRoom(game.DefaultConfig(), hub, db.NewRecorder(vault))
	hub.SetRoom(room)

	// Reload the previous-rounds strip from the archive
	if records, err := db.GetRecentRounds(context.Background(), config.MaxRoundHistory); err != nil {
		log.Printf("⚠️  Could not reload round history: %v", err)
	} else if len(records) > 0 {
		// archive is newest first, the strip wants oldest first
		history := make([]game.RoundRecord, 0, len(records))
		for i := len(records) - 1; i >= 0; i-- {
			rec := records[i]
			history = append(history, game.RoundRecord{
				RoundID:         rec.RoundID,
				CrashMultiplier: rec.CrashMultiplier,
				ServerSeed:      rec.ServerSeed,
				SeedHash:        rec.SeedHash,
				Ticks:           rec.Ticks,
				TotalTicks:      rec.TotalTicks,
				Timestamp:       rec.CreatedAt,
			})
		}
		room.SeedHistory(history)
		log.Printf("📋 Reloaded %d rounds into history", len(history))
	}

	go hub.Run()
	go room.Run(context.Background())

	// WebSocket endpoint
	http.HandleFunc("/ws", ws.HandleWS(hub))

	// API endpoints
	http.HandleFunc("/api/rounds", api.HandleGetRounds)
	http.HandleFunc("/api/rounds/", api.HandleGetRoundDetail) // Trailing slash for :roundId
	http.HandleFunc("/api/health", api.HandleHealthCheck)
	http.HandleFunc("/api/leaderboard", api.HandleGetLeaderboard)
	http.HandleFunc("/api/trades/active", api.HandleActiveTrades(room))
	http.HandleFunc("/api/verify", api.HandleVerify)

	addr := "0.0.0.0:8080"
	log.Printf("🚀 Server starting on %s", addr)
	log.Println("")
	log.Println("📡 WebSocket Endpoint:")
	log.Println("   ws://localhost:8080/ws - Round lifecycle + trading")
	log.Println("   - Send 'identify' to bind a player and restore state")
	log.Println("   - Send 'buy'/'sell' to trade the live round")
	log.Println("   - Send 'global-chat' for server chat")
	log.Println("")
	log.Println("🔌 API Endpoints:")
	log.Println("   GET  /api/rounds - Get round archive (last 50)")
	log.Println("   GET  /api/rounds/:roundId - Get full round detail with revealed seed")
	log.Println("   GET  /api/health - Health check (Redis + PostgreSQL)")
	log.Println("   GET  /api/leaderboard - Wallet PnL leaderboard")
	log.Println("   GET  /api/trades/active - Open trades in the live round")
	log.Println("   POST /api/verify - Verify a revealed seed and replay its path")
	log.Println("")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal("❌ Server error:", err)
	}
}
