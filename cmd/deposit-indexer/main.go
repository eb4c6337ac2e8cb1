package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/escrow-ledger/backend/internal/config"
	"github.com/escrow-ledger/backend/internal/db"
	"github.com/escrow-ledger/backend/internal/events"
	"github.com/escrow-ledger/backend/internal/models"
	"github.com/escrow-ledger/backend/internal/repositories"
	tondeposit "github.com/escrow-ledger/backend/internal/ton"
	"github.com/redis/go-redis/v9"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
	"go.uber.org/zap"
)

const (
	redisCursorLT   = "deposit-indexer:cursor:lt"
	redisCursorHash = "deposit-indexer:cursor:hash"
	pollInterval    = 5 * time.Second
	txBatchSize     = 100
)

type indexer struct {
	api       ton.APIClientWrapped
	hotWallet *address.Address
	accounts  *repositories.AccountRepo
	publisher events.Publisher
	rdb       *redis.Client
	minNano   *big.Int
	log       *zap.Logger
}

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg.LogLevel)
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.TONHotWalletAddress == "" {
		log.Fatal("TON_HOT_WALLET_ADDRESS is required")
	}

	hotWallet, err := address.ParseAddr(cfg.TONHotWalletAddress)
	if err != nil {
		log.Fatal("invalid TON_HOT_WALLET_ADDRESS", zap.String("addr", cfg.TONHotWalletAddress), zap.Error(err))
	}

	minNano, err := tondeposit.ParseTONToNano(cfg.TONMinDeposit)
	if err != nil {
		log.Fatal("invalid TON_MIN_DEPOSIT", zap.String("value", cfg.TONMinDeposit), zap.Error(err))
	}

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil || rdb == nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	tonAPI, err := connectToTON(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to connect to TON network", zap.Error(err))
	}

	ix := &indexer{
		api:       tonAPI,
		hotWallet: hotWallet,
		accounts:  repositories.NewAccountRepo(pool),
		publisher: events.NewRedisPublisher(rdb, log),
		rdb:       rdb,
		minNano:   minNano,
		log:       log,
	}

	log.Info("deposit indexer started",
		zap.String("hot_wallet", hotWallet.String()),
		zap.String("network", cfg.TONNetwork),
		zap.String("min_deposit", cfg.TONMinDeposit),
	)

	ix.initCursor(ctx)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			if err := ix.poll(ctx); err != nil {
				log.Error("poll cycle failed", zap.Error(err))
			}
		case <-sigCh:
			log.Info("shutting down deposit indexer")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

// connectToTON connects to LITE_SERVER_HOST when set, otherwise discovers
// lite servers from the global config for TON_NETWORK.
func connectToTON(ctx context.Context, cfg *config.Config, log *zap.Logger) (ton.APIClientWrapped, error) {
	client := liteclient.NewConnectionPool()

	if cfg.LiteServerHost != "" && cfg.LiteServerKey != "" {
		addr := fmt.Sprintf("%s:%d", cfg.LiteServerHost, cfg.LiteServerPort)
		log.Info("connecting to lite server", zap.String("addr", addr))
		if err := client.AddConnection(ctx, addr, cfg.LiteServerKey); err != nil {
			return nil, fmt.Errorf("connect to lite server %s: %w", addr, err)
		}
	} else {
		configURL := "https://ton.org/testnet-global.config.json"
		if strings.EqualFold(cfg.TONNetwork, "mainnet") {
			configURL = "https://ton.org/global.config.json"
		}
		log.Info("connecting via global config", zap.String("url", configURL))
		if err := client.AddConnectionsFromConfigUrl(ctx, configURL); err != nil {
			return nil, fmt.Errorf("connect via config %s: %w", configURL, err)
		}
	}

	proofPolicy := ton.ProofCheckPolicyFast
	if strings.EqualFold(cfg.TONNetwork, "mainnet") {
		proofPolicy = ton.ProofCheckPolicySecure
	}

	return ton.NewAPIClient(client, proofPolicy).WithRetry(), nil
}

// initCursor starts a fresh indexer at the wallet's current state, so
// historical transfers are not credited.
func (ix *indexer) initCursor(ctx context.Context) {
	if existing, _ := ix.rdb.Get(ctx, redisCursorLT).Result(); existing != "" {
		ix.log.Info("resuming from saved cursor", zap.String("lt", existing))
		return
	}

	account, err := ix.currentAccount(ctx)
	if err != nil {
		ix.log.Warn("cursor init failed, starting from LT=0", zap.Error(err))
		ix.rdb.Set(ctx, redisCursorLT, "0", 0)
		return
	}
	if account == nil || !account.IsActive || account.LastTxLT == 0 {
		ix.log.Info("hot wallet not active yet, starting from LT=0")
		ix.rdb.Set(ctx, redisCursorLT, "0", 0)
		return
	}

	ix.saveCursor(ctx, account.LastTxLT, account.LastTxHash)
	ix.log.Info("cursor initialized at current account state",
		zap.Uint64("lt", account.LastTxLT),
		zap.String("hash", hex.EncodeToString(account.LastTxHash)),
	)
}

func (ix *indexer) currentAccount(ctx context.Context) (*tlb.Account, error) {
	block, err := ix.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("get master block: %w", err)
	}
	account, err := ix.api.GetAccount(ctx, block, ix.hotWallet)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

func (ix *indexer) loadCursorLT(ctx context.Context) uint64 {
	val, err := ix.rdb.Get(ctx, redisCursorLT).Result()
	if err != nil || val == "" {
		return 0
	}
	lt, _ := strconv.ParseUint(val, 10, 64)
	return lt
}

func (ix *indexer) saveCursor(ctx context.Context, lt uint64, hash []byte) {
	ix.rdb.Set(ctx, redisCursorLT, strconv.FormatUint(lt, 10), 0)
	ix.rdb.Set(ctx, redisCursorHash, hex.EncodeToString(hash), 0)
}

// poll credits every transfer newer than the cursor, then advances it.
// The cursor only moves after all credits succeed; replays are absorbed by
// the unique tx_ref on deposits.
func (ix *indexer) poll(ctx context.Context) error {
	cursorLT := ix.loadCursorLT(ctx)

	account, err := ix.currentAccount(ctx)
	if err != nil {
		return err
	}
	if account == nil || !account.IsActive || account.LastTxLT <= cursorLT {
		return nil
	}

	newTxs, err := ix.fetchNewTransactions(ctx, account, cursorLT)
	if err != nil {
		return fmt.Errorf("fetch transactions: %w", err)
	}

	if len(newTxs) > 0 {
		ix.log.Info("found new transactions", zap.Int("count", len(newTxs)))
	}
	for _, tx := range newTxs {
		if err := ix.processIncomingTx(ctx, tx); err != nil {
			return fmt.Errorf("credit tx lt=%d: %w", tx.LT, err)
		}
	}

	ix.saveCursor(ctx, account.LastTxLT, account.LastTxHash)
	return nil
}

// fetchNewTransactions pages backwards from the account's last transaction
// until it reaches cursorLT and returns the newer ones oldest first.
func (ix *indexer) fetchNewTransactions(ctx context.Context, account *tlb.Account, cursorLT uint64) ([]*tlb.Transaction, error) {
	var allTxs []*tlb.Transaction

	lt := account.LastTxLT
	hash := account.LastTxHash

	for {
		txs, err := ix.api.ListTransactions(ctx, ix.hotWallet, uint32(txBatchSize), lt, hash)
		if err != nil {
			return nil, fmt.Errorf("list transactions (lt=%d): %w", lt, err)
		}
		if len(txs) == 0 {
			break
		}

		reachedCursor := false
		for _, tx := range txs {
			if tx.LT <= cursorLT {
				reachedCursor = true
				continue
			}
			allTxs = append(allTxs, tx)
		}

		if reachedCursor || len(txs) < txBatchSize {
			break
		}

		oldest := txs[0]
		if oldest.PrevTxLT == 0 {
			break
		}
		lt = oldest.PrevTxLT
		hash = oldest.PrevTxHash
	}

	sort.Slice(allTxs, func(i, j int) bool {
		return allTxs[i].LT < allTxs[j].LT
	})
	return allTxs, nil
}

// processIncomingTx credits one incoming transfer to the account named in
// its "acct:<id>" comment. Transfers that are not deposits are skipped.
func (ix *indexer) processIncomingTx(ctx context.Context, tx *tlb.Transaction) error {
	if tx.IO.In == nil {
		return nil
	}
	inMsg, ok := tx.IO.In.Msg.(*tlb.InternalMessage)
	if !ok || inMsg == nil || inMsg.Bounced {
		return nil
	}

	received := inMsg.Amount.Nano()
	fromAddr := inMsg.SrcAddr.String()

	accountID, ok := tondeposit.ParseDepositMemo(tondeposit.ExtractComment(inMsg))
	if !ok {
		ix.log.Debug("transfer without deposit memo, skipping",
			zap.Uint64("lt", tx.LT),
			zap.String("from", fromAddr),
			zap.String("amount", inMsg.Amount.String()),
		)
		return nil
	}

	if received.Cmp(ix.minNano) < 0 {
		ix.log.Warn("deposit below minimum, skipping",
			zap.Uint64("lt", tx.LT),
			zap.String("account", accountID),
			zap.String("amount", inMsg.Amount.String()),
		)
		return nil
	}

	amount, err := tondeposit.NanoToAmount(received)
	if err != nil {
		ix.log.Error("deposit amount not representable", zap.Uint64("lt", tx.LT), zap.Error(err))
		return nil
	}

	deposit := &models.Deposit{
		AccountID: accountID,
		Amount:    amount,
		TxRef:     fmt.Sprintf("%d:%s", tx.LT, hex.EncodeToString(tx.Hash)),
		FromAddr:  fromAddr,
	}
	credited, err := ix.accounts.CreditDeposit(ctx, deposit)
	if err != nil {
		return err
	}
	if !credited {
		ix.log.Debug("deposit already credited", zap.String("tx_ref", deposit.TxRef))
		return nil
	}

	_ = ix.publisher.Publish(ctx, events.StreamDeposit, events.Event{
		Type:       events.EventDepositCredited,
		OccurredAt: time.Now(),
		Payload: map[string]any{
			"account_id": accountID,
			"amount":     amount,
			"tx_ref":     deposit.TxRef,
			"from":       fromAddr,
		},
	})

	ix.log.Info("deposit credited",
		zap.String("account", accountID),
		zap.Int64("amount", amount),
		zap.String("tx_ref", deposit.TxRef),
		zap.String("from", fromAddr),
	)
	return nil
}
