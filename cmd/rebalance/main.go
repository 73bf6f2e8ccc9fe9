package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/polyquote/polyquote/params"
	"github.com/polyquote/polyquote/pkg/chain"
	"github.com/polyquote/polyquote/pkg/crypto"
	"github.com/polyquote/polyquote/pkg/util"
)

// rebalance splits USDC into a full outcome-token set, or merges a set
// back into USDC. Useful ahead of two-sided quoting so both outcomes are
// in inventory.
func main() {
	var (
		op      = flag.String("op", "split", "split or merge")
		amount  = flag.String("amount", "", "USDC amount, e.g. 25.5")
		negRisk = flag.Bool("neg-risk", false, "market settles through the neg-risk adapter")
	)
	flag.Parse()

	cfg, err := params.LoadFromEnv("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Market.ConditionID == "" {
		log.Fatal("CONDITION_ID must be set")
	}
	if *amount == "" {
		log.Fatal("-amount is required")
	}

	usdc, err := decimal.NewFromString(*amount)
	if err != nil || usdc.Sign() <= 0 {
		log.Fatalf("bad amount %q", *amount)
	}
	raw := usdc.Shift(6).Round(0).BigInt()

	logger, err := util.NewLogger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	signer, err := crypto.FromPrivateKeyHex(cfg.Clob.PrivateKey)
	if err != nil {
		log.Fatalf("private key: %v", err)
	}

	var safe common.Address
	if cfg.Clob.Funder != "" {
		safe = common.HexToAddress(cfg.Clob.Funder)
	}

	sm, err := chain.NewSplitMerge(cfg.Bot.RPCURL, signer, safe, cfg.Clob.ChainID, logger)
	if err != nil {
		log.Fatalf("rpc: %v", err)
	}
	defer sm.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	conditionID := common.HexToHash(cfg.Market.ConditionID)
	var txHash common.Hash
	switch *op {
	case "split":
		txHash, err = sm.Split(ctx, conditionID, raw, *negRisk)
	case "merge":
		txHash, err = sm.Merge(ctx, conditionID, raw, *negRisk)
	default:
		log.Fatalf("unknown op %q", *op)
	}
	if err != nil {
		log.Fatalf("%s: %v", *op, err)
	}

	fmt.Printf("%s %s USDC (raw %s): tx %s\n", *op, usdc, raw, txHash.Hex())
}
