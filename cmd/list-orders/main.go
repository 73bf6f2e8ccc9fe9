package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/polyquote/polyquote/params"
	"github.com/polyquote/polyquote/pkg/clob"
	"github.com/polyquote/polyquote/pkg/crypto"
	"github.com/polyquote/polyquote/pkg/util"
)

// list-orders authenticates against the CLOB with the PK wallet and
// prints the wallet's open orders.
func main() {
	cfg, err := params.LoadFromEnv("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := util.NewLogger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	signer, err := crypto.FromPrivateKeyHex(cfg.Clob.PrivateKey)
	if err != nil {
		log.Fatalf("private key: %v", err)
	}

	client := clob.NewClient(clob.Config{
		Host:          cfg.Clob.Host,
		DataAPIHost:   cfg.Clob.DataAPIHost,
		ChainID:       cfg.Clob.ChainID,
		Funder:        cfg.Clob.Funder,
		SignatureType: cfg.Clob.SignatureType,
	}, signer, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	creds, err := client.CreateOrDeriveAPICreds(ctx)
	if err != nil {
		log.Fatalf("api credentials: %v", err)
	}
	client.SetAPICreds(creds)

	// market filter is optional; CONDITION_ID narrows the query
	var filter *clob.OpenOrderFilter
	if cfg.Market.ConditionID != "" {
		filter = &clob.OpenOrderFilter{Market: cfg.Market.ConditionID}
	}

	orders, err := client.GetOrders(ctx, filter)
	if err != nil {
		log.Fatalf("open orders: %v", err)
	}

	fmt.Printf("wallet %s: %d open order(s)\n", client.Address(), len(orders))
	for _, ord := range orders {
		fmt.Printf("  %s  %-4s %s @ %s  (matched %s/%s)  market %s\n",
			ord.ID, ord.Side, ord.OriginalSize, ord.Price,
			ord.SizeMatched, ord.OriginalSize, ord.Market)
	}
}
