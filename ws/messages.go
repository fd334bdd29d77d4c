package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rugsServer/db"
	"rugsServer/game"
)

// Envelope is the single inbound message shape. The type tag selects the
// variant; anything unparseable or untagged is malformed and dropped at
// the boundary.
type Envelope struct {
	Type            string  `json:"type"`
	PlayerID        string  `json:"playerId,omitempty"`
	BuyAmount       float64 `json:"buyAmount,omitempty"`
	AutoSell        float64 `json:"autoSell,omitempty"`
	ServerTimestamp int64   `json:"serverTimestamp,omitempty"`
	Message         string  `json:"message,omitempty"`
}

// errMalformed marks inbound payloads that fail to parse or carry no
// recognizable type tag.
var errMalformed = errors.New("malformed message")

// parseEnvelope decodes an inbound frame into its tagged variant.
func parseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", errMalformed)
	}
	return env, nil
}

// errorCode maps ledger errors onto the wire taxonomy.
func errorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrInvalidPhase):
		return "InvalidPhase"
	case errors.Is(err, game.ErrAlreadyOpen):
		return "AlreadyOpen"
	case errors.Is(err, game.ErrNoOpenTrade):
		return "NoOpenTrade"
	case errors.Is(err, errMalformed):
		return "MalformedMessage"
	default:
		return "PersistenceFailure"
	}
}

// computeLatency halves the PING round trip: the server stamped
// serverTimestamp on the way out, the client echoed it back.
func computeLatency(serverTimestamp int64, now time.Time) int64 {
	return (now.UnixMilli() - serverTimestamp) / 2
}

/* =========================
   OUTBOUND PAYLOADS
========================= */

func initMessage(snap game.Snapshot, history []game.RoundRecord) map[string]interface{} {
	return map[string]interface{}{
		"type":          "init",
		"multiplier":    snap.Multiplier,
		"phase":         snap.Phase,
		"countdown":     snap.Countdown,
		"seedHash":      snap.SeedHash,
		"previousGames": game.HistorySummaries(history),
		"currentTicks":  snap.Ticks,
	}
}

func tickRestoreMessage(ticks []game.Tick) map[string]interface{} {
	return map[string]interface{}{
		"type":  "tick-restore",
		"ticks": ticks,
	}
}

func tradeRestoreMessage(playerID string, trades []game.Trade) map[string]interface{} {
	return map[string]interface{}{
		"type":     "trade-restore",
		"playerId": playerID,
		"trades":   trades,
	}
}

func clientCountMessage(count int) map[string]interface{} {
	return map[string]interface{}{
		"type":  "client-count",
		"count": count,
	}
}

func pingMessage(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"type":            "PING",
		"serverTimestamp": now.UnixMilli(),
	}
}

func latencyMessage(latency int64) map[string]interface{} {
	return map[string]interface{}{
		"type":    "LATENCY_UPDATE",
		"latency": latency,
	}
}

func errorMessage(code, detail string) map[string]interface{} {
	return map[string]interface{}{
		"type":    "error",
		"code":    code,
		"message": detail,
	}
}

func chatHistoryMessage(records []*db.ChatRecord) map[string]interface{} {
	return map[string]interface{}{
		"type":     "chat-history",
		"messages": records,
	}
}

func chatMessage(playerID, message string, now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"type":      "global-chat",
		"playerId":  playerID,
		"message":   message,
		"timestamp": now.Format(time.RFC3339),
	}
}
