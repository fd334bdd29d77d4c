package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"rugsServer/config"
	"rugsServer/db"
)

/* =========================
   RESPONSE TYPES
========================= */

// ErrorResponse is the shared error shape
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// RoundSummaryResponse is one row in the round archive listing
type RoundSummaryResponse struct {
	RoundID         string  `json:"roundId"`
	CrashMultiplier float64 `json:"crashMultiplier"`
	TotalTicks      int     `json:"totalTicks"`
	SeedHash        string  `json:"seedHash"`
	CreatedAt       string  `json:"createdAt"`
}

// RoundsResponse wraps the archive listing
type RoundsResponse struct {
	Success bool                   `json:"success"`
	Rounds  []RoundSummaryResponse `json:"rounds"`
}

// RoundDetailResponse carries one full archived round, seed revealed
type RoundDetailResponse struct {
	Success bool             `json:"success"`
	Round   *db.RoundArchive `json:"round"`
}

/* =========================
   HTTP ENDPOINTS
========================= */

// HandleGetRounds handles GET /api/rounds
// Query params: limit (optional, capped)
func HandleGetRounds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := config.MaxArchivedRound
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 && parsed < limit {
			limit = parsed
		}
	}

	records, err := db.GetRecentRounds(context.Background(), limit)
	if err != nil {
		log.Printf("❌ Failed to get rounds: %v", err)
		sendError(w, http.StatusInternalServerError, "Failed to retrieve rounds")
		return
	}

	response := RoundsResponse{
		Success: true,
		Rounds:  make([]RoundSummaryResponse, 0, len(records)),
	}
	for _, rec := range records {
		response.Rounds = append(response.Rounds, RoundSummaryResponse{
			RoundID:         rec.RoundID,
			CrashMultiplier: rec.CrashMultiplier,
			TotalTicks:      rec.TotalTicks,
			SeedHash:        rec.SeedHash,
			CreatedAt:       rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(response)
}

// HandleGetRoundDetail handles GET /api/rounds/{roundId}
// The archive reveals the server seed so the round can be replayed.
func HandleGetRoundDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	roundID := strings.TrimPrefix(r.URL.Path, "/api/rounds/")
	if roundID == "" || strings.Contains(roundID, "/") {
		sendError(w, http.StatusBadRequest, "Invalid round id")
		return
	}

	rec, err := db.GetRound(context.Background(), roundID)
	if err != nil {
		log.Printf("❌ Failed to get round %s: %v", roundID, err)
		sendError(w, http.StatusInternalServerError, "Failed to retrieve round")
		return
	}
	if rec == nil {
		sendError(w, http.StatusNotFound, "Round not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(RoundDetailResponse{Success: true, Round: rec})
}

/* =========================
   HELPER FUNCTIONS
========================= */

// sendError sends an error response
func sendError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Success: false,
		Error:   message,
	})
}
