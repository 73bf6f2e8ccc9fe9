package clob

import "github.com/ethereum/go-ethereum/common"

// REST endpoints on the CLOB host.
const (
	endpointTime             = "/time"
	endpointCreateAPIKey     = "/auth/api-key"
	endpointDeriveAPIKey     = "/auth/derive-api-key"
	endpointOrder            = "/order"
	endpointOrders           = "/orders"
	endpointCancelAll        = "/cancel-all"
	endpointBook             = "/book"
	endpointMarket           = "/markets/"
	endpointOpenOrders       = "/data/orders"
	endpointOrderByID        = "/data/order/"
	endpointBalanceAllowance = "/balance-allowance"

	// On the data API host.
	endpointPositions = "/positions"
)

// Polygon mainnet exchange contracts. Orders on negative-risk markets
// settle through a separate exchange with its own EIP-712 domain.
var (
	CTFExchangeAddress     = common.HexToAddress("0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E")
	NegRiskExchangeAddress = common.HexToAddress("0xC5d563A36AE78145C45a50134d48A1215220f80a")
)
