package db

import (
	"context"
	"log"
	"math/big"
	"time"

	"rugsServer/config"
	"rugsServer/contract"
	"rugsServer/game"

	"github.com/ethereum/go-ethereum/common"
)

// Recorder receives the room's settlement and archival events and
// persists them off the game loop. Every handler returns immediately;
// database, cache and chain work all happen in background goroutines so
// a slow store can never stall a tick.
type Recorder struct {
	Vault *contract.VaultClient // nil when payouts are disabled
}

// NewRecorder wires a recorder. Pass a nil vault to skip on-chain
// payouts.
func NewRecorder(vault *contract.VaultClient) *Recorder {
	return &Recorder{Vault: vault}
}

// withRetry runs op up to config.MaxRetries times.
func withRetry(ctx context.Context, label string, op func(ctx context.Context) error) {
	var err error
	for attempt := 1; attempt <= config.MaxRetries; attempt++ {
		if err = op(ctx); err == nil {
			return
		}
		log.Printf("⚠️  %s failed (attempt %d/%d): %v", label, attempt, config.MaxRetries, err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(config.RetryDelay):
		}
	}
	log.Printf("❌ %s failed permanently: %v", label, err)
}

// RoundStarted clears the previous round's open trade cache.
func (r *Recorder) RoundStarted(roundID, prevRoundID string) {
	if prevRoundID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.PersistTimeout)
		defer cancel()
		if err := CleanupRound(ctx, prevRoundID); err != nil {
			log.Printf("⚠️  Failed to cleanup round %s cache: %v", prevRoundID, err)
		}
	}()
}

// TradeOpened records the buy in Postgres and the open trade cache, and
// debits the wallet ledger.
func (r *Recorder) TradeOpened(roundID string, t game.Trade) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.PersistTimeout)
		defer cancel()

		if err := StoreTrade(ctx, roundID, t); err != nil {
			log.Printf("⚠️  Failed to store trade %s: %v", t.TradeID, err)
		}
		if err := StoreOpenTrade(ctx, roundID, t); err != nil {
			log.Printf("⚠️  Failed to cache open trade %s: %v", t.TradeID, err)
		}
		if err := SubtractWalletPnL(ctx, t.PlayerID, t.BuyAmount); err != nil {
			log.Printf("⚠️  Failed to debit wallet %s: %v", t.PlayerID, err)
		}
	}()
}

// TradeClosed records the sell, drops the cache entry, credits the
// wallet ledger and fires the on-chain payout.
func (r *Recorder) TradeClosed(roundID string, t game.Trade) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.PersistTimeout)
		defer cancel()

		if err := CloseTrade(ctx, roundID, t); err != nil {
			log.Printf("⚠️  Failed to close trade %s: %v", t.TradeID, err)
		}
		if err := DeleteOpenTrade(ctx, roundID, t.PlayerID); err != nil {
			log.Printf("⚠️  Failed to drop cached trade %s: %v", t.TradeID, err)
		}

		if t.SellPrice == nil {
			return
		}
		payout := t.BuyAmount * *t.SellPrice / t.BuyPrice
		if err := AddWalletPnL(ctx, t.PlayerID, payout); err != nil {
			log.Printf("⚠️  Failed to credit wallet %s: %v", t.PlayerID, err)
		}

		r.payPlayer(t.PlayerID, payout)
	}()
}

// payPlayer sends the payout on chain when the vault is configured and
// the player id is a wallet address.
func (r *Recorder) payPlayer(playerID string, payout float64) {
	if r.Vault == nil || !common.IsHexAddress(playerID) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.PayoutTimeout)
	defer cancel()

	if err := r.Vault.PayPlayer(ctx, common.HexToAddress(playerID), toWei(payout)); err != nil {
		log.Printf("❌ Payout to %s failed: %v", playerID, err)
	}
}

// toWei converts a native-unit amount to wei.
func toWei(amount float64) *big.Int {
	wei, _ := new(big.Float).Mul(big.NewFloat(amount), big.NewFloat(1e18)).Int(nil)
	return wei
}

// RoundArchived persists the finished round with retry, marks every
// trade that never sold as lost, and settles the round on chain.
func (r *Recorder) RoundArchived(rec game.RoundRecord) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(),
			time.Duration(config.MaxRetries)*(config.PersistTimeout+config.RetryDelay))
		defer cancel()

		withRetry(ctx, "store round "+rec.RoundID, func(ctx context.Context) error {
			return StoreRound(ctx, &RoundArchive{
				RoundID:         rec.RoundID,
				ServerSeed:      rec.ServerSeed,
				SeedHash:        rec.SeedHash,
				CrashMultiplier: rec.CrashMultiplier,
				Ticks:           rec.Ticks,
				TotalTicks:      rec.TotalTicks,
				CreatedAt:       rec.Timestamp,
			})
		})

		if err := MarkTradesLost(ctx, rec.RoundID); err != nil {
			log.Printf("⚠️  Failed to mark lost trades for round %s: %v", rec.RoundID, err)
		}

		if r.Vault != nil {
			payCtx, payCancel := context.WithTimeout(context.Background(), config.PayoutTimeout)
			defer payCancel()
			if err := r.Vault.SettleRound(payCtx, big.NewInt(rec.Timestamp.Unix())); err != nil {
				log.Printf("❌ On-chain settle for round %s failed: %v", rec.RoundID, err)
			}
		}
	}()
}
