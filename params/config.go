package params

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Polygon mainnet defaults for the Polymarket CLOB.
const (
	DefaultHost         = "https://clob.polymarket.com"
	DefaultDataAPIHost  = "https://data-api.polymarket.com"
	DefaultMarketWSURL  = "wss://ws-subscriptions-clob.polymarket.com/ws/market"
	DefaultUserWSURL    = "wss://ws-subscriptions-clob.polymarket.com/ws/user"
	DefaultChainID      = 137
	DefaultPolygonRPC   = "https://polygon-rpc.com"
	DefaultStateDBPath  = "data/state"
	DefaultLogFile      = "data/bot.log"
	DefaultStatusListen = ":8089"
)

// Clob holds everything needed to construct and authenticate the exchange client.
type Clob struct {
	Host          string
	DataAPIHost   string
	PrivateKey    string // hex-encoded secp256k1 key, with or without 0x prefix
	ChainID       int64
	Funder        string // proxy wallet holding the funds; empty means the EOA itself
	SignatureType int    // 0=EOA, 1=poly-proxy, 2=gnosis-safe
}

// Market identifies the single binary market the bot quotes.
type Market struct {
	ConditionID string
	AssetID     string // YES outcome token id
}

// Risk carries the dollar limits the strategy enforces.
type Risk struct {
	MaxInventoryImbalance float64
	MaxPositionSize       float64
}

type Bot struct {
	MarketWSURL  string
	UserWSURL    string
	RPCURL       string
	StateDBPath  string
	LogFile      string
	StatusListen string
	Risk         Risk

	// merge held outcome sets back to USDC when the bot stops
	MergeOnShutdown bool
}

type Config struct {
	Clob   Clob
	Market Market
	Bot    Bot
}

// ErrMissingPrivateKey is returned before any network activity when PK is absent.
var ErrMissingPrivateKey = errors.New("params: PK environment variable not set")

func Default() Config {
	return Config{
		Clob: Clob{
			Host:          DefaultHost,
			DataAPIHost:   DefaultDataAPIHost,
			ChainID:       DefaultChainID,
			SignatureType: 0,
		},
		Bot: Bot{
			MarketWSURL:  DefaultMarketWSURL,
			UserWSURL:    DefaultUserWSURL,
			RPCURL:       DefaultPolygonRPC,
			StateDBPath:  DefaultStateDBPath,
			LogFile:      DefaultLogFile,
			StatusListen: DefaultStatusListen,
			Risk: Risk{
				MaxInventoryImbalance: 25.0,
				MaxPositionSize:       50.0,
			},
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and environment
// variables. Priority: ENV > .env file > defaults. It fails fast when the
// private key is missing so nothing downstream ever constructs an unusable
// client.
func LoadFromEnv(envPath string) (Config, error) {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	cfg.Clob.PrivateKey = os.Getenv("PK")
	if cfg.Clob.PrivateKey == "" {
		return Config{}, ErrMissingPrivateKey
	}

	if host := os.Getenv("CLOB_HOST"); host != "" {
		cfg.Clob.Host = host
	}
	if host := os.Getenv("DATA_API_HOST"); host != "" {
		cfg.Clob.DataAPIHost = host
	}
	if chain := os.Getenv("CHAIN_ID"); chain != "" {
		if id, err := strconv.ParseInt(chain, 10, 64); err == nil {
			cfg.Clob.ChainID = id
		}
	}
	if funder := os.Getenv("PROXY_WALLET"); funder != "" {
		cfg.Clob.Funder = funder
		// Funds held in a proxy wallet default to gnosis-safe signatures,
		// matching the account type Polymarket provisions in the browser.
		cfg.Clob.SignatureType = 2
	}
	if sig := os.Getenv("SIG_TYPE"); sig != "" {
		if n, err := strconv.Atoi(sig); err == nil && n >= 0 && n <= 2 {
			cfg.Clob.SignatureType = n
		}
	}

	cfg.Market.ConditionID = os.Getenv("CONDITION_ID")
	cfg.Market.AssetID = os.Getenv("ASSET_ID")

	if ws := os.Getenv("MARKET_WS_URL"); ws != "" {
		cfg.Bot.MarketWSURL = ws
	}
	if ws := os.Getenv("USER_WS_URL"); ws != "" {
		cfg.Bot.UserWSURL = ws
	}
	if rpc := os.Getenv("RPC_URL"); rpc != "" {
		cfg.Bot.RPCURL = rpc
	}
	if path := os.Getenv("STATE_DB_PATH"); path != "" {
		cfg.Bot.StateDBPath = path
	}
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		cfg.Bot.LogFile = logFile
	}
	if listen := os.Getenv("STATUS_LISTEN"); listen != "" {
		cfg.Bot.StatusListen = listen
	}
	if v := os.Getenv("MERGE_ON_SHUTDOWN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Bot.MergeOnShutdown = b
		}
	}

	if v := os.Getenv("MAX_INVENTORY_IMBALANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Bot.Risk.MaxInventoryImbalance = f
		}
	}
	if v := os.Getenv("MAX_POSITION_SIZE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Bot.Risk.MaxPositionSize = f
		}
	}

	return cfg, nil
}
