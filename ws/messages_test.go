package ws

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"rugsServer/game"
)

func TestParseEnvelope(t *testing.T) {
	t.Run("ValidBuy", func(t *testing.T) {
		env, err := parseEnvelope([]byte(`{"type":"buy","buyAmount":12.5,"autoSell":2.0}`))
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if env.Type != "buy" || env.BuyAmount != 12.5 || env.AutoSell != 2.0 {
			t.Errorf("unexpected envelope: %+v", env)
		}
	})

	t.Run("ValidIdentify", func(t *testing.T) {
		env, err := parseEnvelope([]byte(`{"type":"identify","playerId":"0xabc"}`))
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if env.PlayerID != "0xabc" {
			t.Errorf("expected playerId 0xabc, got %q", env.PlayerID)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		if _, err := parseEnvelope([]byte(`{not json`)); !errors.Is(err, errMalformed) {
			t.Fatalf("expected errMalformed, got %v", err)
		}
	})

	t.Run("MissingType", func(t *testing.T) {
		if _, err := parseEnvelope([]byte(`{"playerId":"0xabc"}`)); !errors.Is(err, errMalformed) {
			t.Fatalf("expected errMalformed, got %v", err)
		}
	})
}

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{game.ErrInvalidPhase, "InvalidPhase"},
		{game.ErrAlreadyOpen, "AlreadyOpen"},
		{game.ErrNoOpenTrade, "NoOpenTrade"},
		{errMalformed, "MalformedMessage"},
		{fmt.Errorf("wrapped: %w", game.ErrInvalidPhase), "InvalidPhase"},
		{errors.New("db down"), "PersistenceFailure"},
	}

	for _, tc := range cases {
		if got := errorCode(tc.err); got != tc.want {
			t.Errorf("errorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestComputeLatency(t *testing.T) {
	now := time.Now()
	sent := now.Add(-100 * time.Millisecond).UnixMilli()

	// half the round trip: 100ms / 2 = 50ms
	if got := computeLatency(sent, now); got != 50 {
		t.Errorf("expected latency 50, got %d", got)
	}
}
