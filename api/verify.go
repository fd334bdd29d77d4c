package api

import (
	"encoding/json"
	"log"
	"net/http"

	"rugsServer/crypto"
	"rugsServer/game"
)

/* =========================
   REQUEST/RESPONSE TYPES
========================= */

// VerifyRequest asks the server to replay a revealed seed
type VerifyRequest struct {
	ServerSeed string `json:"serverSeed"`
	SeedHash   string `json:"seedHash"`
	RoundID    string `json:"roundId"`
}

// VerifyResponse reports whether the seed matches its commitment and
// what path it deterministically produces
type VerifyResponse struct {
	Success    bool    `json:"success"`
	Valid      bool    `json:"valid"`
	Target     float64 `json:"target,omitempty"`
	TotalTicks int     `json:"totalTicks,omitempty"`
	CrashValue float64 `json:"crashValue,omitempty"`
}

/* =========================
   HTTP ENDPOINTS
========================= */

// HandleVerify handles POST /api/verify
// Anyone holding a revealed seed can check the commitment and replay
// the exact multiplier path the round took.
func HandleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ServerSeed == "" || req.SeedHash == "" || req.RoundID == "" {
		sendError(w, http.StatusBadRequest, "serverSeed, seedHash and roundId are required")
		return
	}

	if !crypto.VerifySeed(req.ServerSeed, req.SeedHash) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		json.NewEncoder(w).Encode(VerifyResponse{Success: true, Valid: false})
		return
	}

	path, target := game.ReplayPath(req.ServerSeed, req.RoundID)

	response := VerifyResponse{
		Success:    true,
		Valid:      true,
		Target:     target,
		TotalTicks: len(path),
	}
	if len(path) > 0 {
		response.CrashValue = path[len(path)-1]
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(response)

	log.Printf("🔍 Verified round %s (%d ticks, target %.0fx)", req.RoundID, len(path), target)
}
