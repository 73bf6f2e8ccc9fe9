package clob

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/polyquote/polyquote/pkg/crypto"
	"github.com/polyquote/polyquote/pkg/util"
)

// ErrNoCreds is returned by L2-authenticated calls before SetAPICreds.
var ErrNoCreds = errors.New("clob: API credentials not set")

// Config carries the connection parameters for a CLOB client.
type Config struct {
	Host        string
	DataAPIHost string
	ChainID     int64
	// Funder is the address holding the collateral. Empty means the
	// signing wallet itself (EOA trading, signature type 0).
	Funder        string
	SignatureType int
}

// Client talks to the CLOB REST API. L1 calls are authenticated with an
// EIP-712 signature from the wallet key, L2 calls with HMAC credentials
// obtained via CreateOrDeriveAPICreds.
type Client struct {
	host        string
	dataAPIHost string
	chainID     int64
	funder      string
	sigType     int

	signer *crypto.Signer
	http   *http.Client
	clock  util.Clock
	log    *zap.Logger

	mu    sync.RWMutex
	creds *APICreds
}

// NewClient builds a client around a wallet signer. The logger may not
// be nil; pass zap.NewNop() to silence it.
func NewClient(cfg Config, signer *crypto.Signer, log *zap.Logger) *Client {
	funder := cfg.Funder
	if funder == "" {
		funder = signer.Address().Hex()
	} else if norm, err := crypto.NormalizeAddress(funder); err == nil {
		// env-supplied addresses are often lowercased
		funder = norm
	}
	return &Client{
		host:        cfg.Host,
		dataAPIHost: cfg.DataAPIHost,
		chainID:     cfg.ChainID,
		funder:      funder,
		sigType:     cfg.SignatureType,
		signer:      signer,
		http:        &http.Client{Timeout: 30 * time.Second},
		clock:       util.RealClock{},
		log:         log,
	}
}

// SetClock overrides the wall clock, for tests.
func (c *Client) SetClock(clock util.Clock) { c.clock = clock }

// Address returns the signing wallet address, EIP-55 checksummed.
func (c *Client) Address() string { return c.signer.Address().Hex() }

// Funder returns the collateral address orders are made from.
func (c *Client) Funder() string { return c.funder }

// SetAPICreds installs L2 credentials on the client. All /data and
// order-management calls require this.
func (c *Client) SetAPICreds(creds APICreds) {
	c.mu.Lock()
	c.creds = &creds
	c.mu.Unlock()
}

// Creds returns the installed credentials, or false when unset.
func (c *Client) Creds() (APICreds, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.creds == nil {
		return APICreds{}, false
	}
	return *c.creds, true
}

// CreateOrDeriveAPICreds obtains L2 credentials for the wallet: it first
// asks the CLOB to mint a fresh key and, when the wallet already has one,
// falls back to deriving the existing key from a signature.
func (c *Client) CreateOrDeriveAPICreds(ctx context.Context) (APICreds, error) {
	creds, err := c.CreateAPIKey(ctx, 0)
	if err == nil {
		return creds, nil
	}
	c.log.Debug("create api key failed, deriving instead", zap.Error(err))

	creds, derr := c.DeriveAPIKey(ctx, 0)
	if derr != nil {
		return APICreds{}, fmt.Errorf("create failed (%v); derive failed: %w", err, derr)
	}
	return creds, nil
}

// CreateAPIKey mints a new API key for the wallet under L1 auth.
func (c *Client) CreateAPIKey(ctx context.Context, nonce int64) (APICreds, error) {
	headers, err := c.l1Headers(nonce)
	if err != nil {
		return APICreds{}, err
	}

	body, _ := json.Marshal(map[string]int64{"nonce": nonce})
	var creds APICreds
	if err := c.doJSON(ctx, http.MethodPost, c.host, endpointCreateAPIKey, nil, headers, body, &creds); err != nil {
		return APICreds{}, fmt.Errorf("create api key: %w", err)
	}
	if creds.APIKey == "" || creds.Secret == "" {
		return APICreds{}, fmt.Errorf("create api key: empty credentials in response")
	}
	return creds, nil
}

// DeriveAPIKey recovers an existing API key for the wallet under L1 auth.
func (c *Client) DeriveAPIKey(ctx context.Context, nonce int64) (APICreds, error) {
	headers, err := c.l1Headers(nonce)
	if err != nil {
		return APICreds{}, err
	}

	var creds APICreds
	if err := c.doJSON(ctx, http.MethodGet, c.host, endpointDeriveAPIKey, nil, headers, nil, &creds); err != nil {
		return APICreds{}, fmt.Errorf("derive api key: %w", err)
	}
	if creds.APIKey == "" || creds.Secret == "" {
		return APICreds{}, fmt.Errorf("derive api key: empty credentials in response")
	}
	return creds, nil
}

// GetServerTime returns the CLOB server's unix time in seconds.
func (c *Client) GetServerTime(ctx context.Context) (int64, error) {
	raw, err := c.do(ctx, http.MethodGet, c.host, endpointTime, nil, nil, nil)
	if err != nil {
		return 0, err
	}
	ts, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse server time %q: %w", raw, err)
	}
	return ts, nil
}

// l1Headers builds the EIP-712 signature headers that authenticate the
// wallet key itself.
func (c *Client) l1Headers(nonce int64) (http.Header, error) {
	timestamp := strconv.FormatInt(c.clock.Now().Unix(), 10)

	digest, err := crypto.HashClobAuth(c.chainID, &crypto.ClobAuth{
		Address:   c.signer.Address(),
		Timestamp: timestamp,
		Nonce:     big.NewInt(nonce),
	})
	if err != nil {
		return nil, fmt.Errorf("hash auth payload: %w", err)
	}
	sig, err := c.signer.Sign(digest)
	if err != nil {
		return nil, fmt.Errorf("sign auth payload: %w", err)
	}

	// Direct map writes keep the exact POLY_* casing; Header.Set would
	// canonicalize it.
	h := http.Header{}
	h["POLY_ADDRESS"] = []string{c.signer.Address().Hex()}
	h["POLY_SIGNATURE"] = []string{"0x" + hex.EncodeToString(sig)}
	h["POLY_TIMESTAMP"] = []string{timestamp}
	h["POLY_NONCE"] = []string{strconv.FormatInt(nonce, 10)}
	return h, nil
}

// l2Headers builds the HMAC headers for a request. The signed path is the
// URL path only, query strings excluded.
func (c *Client) l2Headers(method, path string, body []byte) (http.Header, error) {
	creds, ok := c.Creds()
	if !ok {
		return nil, ErrNoCreds
	}

	timestamp := strconv.FormatInt(c.clock.Now().Unix(), 10)
	sig, err := buildHMACSignature(creds.Secret, timestamp, method, path, body)
	if err != nil {
		return nil, err
	}

	h := http.Header{}
	h["POLY_ADDRESS"] = []string{c.signer.Address().Hex()}
	h["POLY_API_KEY"] = []string{creds.APIKey}
	h["POLY_PASSPHRASE"] = []string{creds.Passphrase}
	h["POLY_TIMESTAMP"] = []string{timestamp}
	h["POLY_SIGNATURE"] = []string{sig}
	return h, nil
}

// buildHMACSignature computes the URL-safe base64 HMAC-SHA256 over
// timestamp+method+path+body. Secrets come URL-safe base64 encoded but
// older keys used standard encoding, so both are accepted.
func buildHMACSignature(secret, timestamp, method, path string, body []byte) (string, error) {
	key, err := base64.URLEncoding.DecodeString(secret)
	if err != nil {
		key, err = base64.StdEncoding.DecodeString(secret)
		if err != nil {
			key = []byte(secret)
		}
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(timestamp))
	mac.Write([]byte(method))
	mac.Write([]byte(path))
	mac.Write(body)
	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// doJSON runs a request and decodes a JSON response into out (out may be
// nil when the body is irrelevant).
func (c *Client) doJSON(ctx context.Context, method, host, path string, query url.Values, headers http.Header, body []byte, out interface{}) error {
	raw, err := c.do(ctx, method, host, path, query, headers, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, host, path string, query url.Values, headers http.Header, body []byte) ([]byte, error) {
	u := host + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range headers {
		req.Header[k] = vs
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(raw))
	}
	return raw, nil
}
