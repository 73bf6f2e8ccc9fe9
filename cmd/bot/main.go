package main

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/polyquote/polyquote/params"
	"github.com/polyquote/polyquote/pkg/api"
	"github.com/polyquote/polyquote/pkg/bot"
	"github.com/polyquote/polyquote/pkg/chain"
	"github.com/polyquote/polyquote/pkg/clob"
	"github.com/polyquote/polyquote/pkg/crypto"
	"github.com/polyquote/polyquote/pkg/storage"
	"github.com/polyquote/polyquote/pkg/util"
	"github.com/polyquote/polyquote/pkg/ws"
)

const eventBuffer = 1024

func main() {
	cfg, err := params.LoadFromEnv("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Market.ConditionID == "" || cfg.Market.AssetID == "" {
		log.Fatal("CONDITION_ID and ASSET_ID must be set")
	}

	logger, err := util.NewLoggerWithFile(cfg.Bot.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	signer, err := crypto.FromPrivateKeyHex(cfg.Clob.PrivateKey)
	if err != nil {
		logger.Fatal("private key", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("wallet", signer.Address().Hex()),
		zap.String("market", cfg.Market.ConditionID),
		zap.String("asset", cfg.Market.AssetID))

	client := clob.NewClient(clob.Config{
		Host:          cfg.Clob.Host,
		DataAPIHost:   cfg.Clob.DataAPIHost,
		ChainID:       cfg.Clob.ChainID,
		Funder:        cfg.Clob.Funder,
		SignatureType: cfg.Clob.SignatureType,
	}, signer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	creds, err := client.CreateOrDeriveAPICreds(bootCtx)
	if err != nil {
		logger.Fatal("api credentials", zap.Error(err))
	}
	client.SetAPICreds(creds)

	if ba, err := client.GetBalanceAllowance(bootCtx, ""); err != nil {
		logger.Warn("collateral check failed", zap.Error(err))
	} else {
		logger.Info("collateral",
			zap.String("balance", ba.Balance), zap.String("allowance", ba.Allowance))
		if ba.Balance == "" || ba.Balance == "0" {
			logger.Warn("no USDC collateral; bids will be rejected")
		}
	}

	market, err := client.GetMarket(bootCtx, cfg.Market.ConditionID)
	if err != nil {
		logger.Fatal("market lookup", zap.Error(err))
	}
	if market.Closed {
		logger.Fatal("market is closed", zap.String("condition_id", cfg.Market.ConditionID))
	}

	store, err := storage.NewStateStore(cfg.Bot.StateDBPath)
	if err != nil {
		logger.Fatal("state db", zap.Error(err))
	}
	defer store.Close()

	state := bot.NewState(cfg.Market.AssetID)
	if snap, found, err := store.LoadSnapshot(); err != nil {
		logger.Fatal("load snapshot", zap.Error(err))
	} else if found {
		state.Restore(snap)
		logger.Info("state restored",
			zap.String("inventory", snap.Inventory),
			zap.Int("open_orders", len(snap.OpenOrders)))
	}

	// The chain is the source of truth for inventory; the snapshot only
	// bridges the gap when the data API is unreachable.
	if positions, err := client.GetPositions(bootCtx, client.Funder(), cfg.Market.ConditionID); err != nil {
		logger.Warn("position reconciliation failed, using snapshot", zap.Error(err))
	} else {
		snap := state.Snapshot(time.Now())
		snap.Inventory = "0"
		for _, p := range positions {
			if p.Asset == cfg.Market.AssetID {
				snap.Inventory = clob.FormatSize(p.Size)
			}
		}
		state.Restore(snap)
		logger.Info("inventory reconciled", zap.String("inventory", snap.Inventory))
	}

	// Start from a clean book; anything resting from a previous run is
	// stale against the current strategy state.
	if err := client.CancelAll(bootCtx); err != nil {
		logger.Fatal("startup cancel-all", zap.Error(err))
	}
	state.DropOrders(state.OpenOrderIDs())

	quotes := make(chan ws.QuoteUpdate, eventBuffer)
	events := make(chan ws.UserEvent, eventBuffer)

	strategy := bot.NewStrategy(cfg.Bot.Risk, logger)
	executor := bot.NewExecutor(client, cfg.Market.AssetID, market.NegRisk, state, logger)
	engine := bot.NewEngine(state, strategy, executor, store, logger)

	if cfg.Bot.MergeOnShutdown {
		var safe common.Address
		if cfg.Clob.Funder != "" {
			safe = common.HexToAddress(cfg.Clob.Funder)
		}
		sm, err := chain.NewSplitMerge(cfg.Bot.RPCURL, signer, safe, cfg.Clob.ChainID, logger)
		if err != nil {
			logger.Fatal("rpc for shutdown merge", zap.Error(err))
		}
		defer sm.Close()
		conditionHash := common.HexToHash(cfg.Market.ConditionID)
		negRisk := market.NegRisk
		engine.MergeOnShutdown(func(ctx context.Context) error {
			positions, err := client.GetPositions(ctx, client.Funder(), cfg.Market.ConditionID)
			if err != nil {
				return err
			}
			amount := chain.MergeableSets(positions)
			if amount.Sign() == 0 {
				logger.Info("no full sets to merge")
				return nil
			}
			txHash, err := sm.Merge(ctx, conditionHash, amount, negRisk)
			if err != nil {
				return err
			}
			logger.Info("merged inventory to collateral",
				zap.String("amount", amount.String()), zap.String("tx", txHash.Hex()))
			return nil
		})
	}

	monitor := bot.NewMonitor(state, store, logger)
	statusSrv := api.NewServer(state, store, client.Address(), cfg.Market.ConditionID, cfg.Market.AssetID, logger)

	marketStream := ws.NewMarketStream(cfg.Bot.MarketWSURL, []string{cfg.Market.AssetID}, quotes, logger)
	userStream := ws.NewUserStream(cfg.Bot.UserWSURL, creds, []string{cfg.Market.ConditionID}, events, logger)

	var wg sync.WaitGroup
	run := func(f func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(ctx)
		}()
	}
	run(marketStream.Run)
	run(userStream.Run)
	run(monitor.Run)
	run(func(ctx context.Context) {
		if err := statusSrv.Run(ctx, cfg.Bot.StatusListen); err != nil {
			logger.Error("status server", zap.Error(err))
		}
	})

	engine.Run(ctx, quotes, events)
	wg.Wait()
	logger.Info("shutdown complete")
}
