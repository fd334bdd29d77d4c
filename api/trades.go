package api

import (
	"encoding/json"
	"net/http"

	"rugsServer/game"
)

/* =========================
   RESPONSE TYPES
========================= */

// ActiveTradesResponse lists the live round's open positions
type ActiveTradesResponse struct {
	Success bool         `json:"success"`
	RoundID string       `json:"roundId"`
	Trades  []game.Trade `json:"trades"`
}

/* =========================
   HTTP ENDPOINTS
========================= */

// HandleActiveTrades returns GET /api/trades/active bound to the room.
func HandleActiveTrades(room *game.Room) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		response := ActiveTradesResponse{
			Success: true,
			RoundID: room.CurrentRoundID(),
			Trades:  room.OpenTrades(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		json.NewEncoder(w).Encode(response)
	}
}
