package crypto

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	eth_crypto "github.com/ethereum/go-ethereum/crypto"
)

// Manual EIP-712 hashing of the auth payload, cross-checked against the
// apitypes-based implementation.
func TestHashClobAuthMatchesManualHash(t *testing.T) {
	addr := common.HexToAddress(testAddress)
	auth := &ClobAuth{
		Address:   addr,
		Timestamp: "1700000000",
		Nonce:     big.NewInt(0),
	}

	got, err := HashClobAuth(137, auth)
	if err != nil {
		t.Fatalf("failed to hash: %v", err)
	}

	domainTypeHash := eth_crypto.Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId)"))
	domainSep := eth_crypto.Keccak256(
		domainTypeHash,
		eth_crypto.Keccak256([]byte("ClobAuthDomain")),
		eth_crypto.Keccak256([]byte("1")),
		common.LeftPadBytes(big.NewInt(137).Bytes(), 32),
	)

	structTypeHash := eth_crypto.Keccak256([]byte("ClobAuth(address address,string timestamp,uint256 nonce,string message)"))
	structHash := eth_crypto.Keccak256(
		structTypeHash,
		common.LeftPadBytes(addr.Bytes(), 32),
		eth_crypto.Keccak256([]byte(auth.Timestamp)),
		common.LeftPadBytes(auth.Nonce.Bytes(), 32),
		eth_crypto.Keccak256([]byte(ClobAuthMessage)),
	)

	want := eth_crypto.Keccak256([]byte("\x19\x01"), domainSep, structHash)
	if !bytes.Equal(got, want) {
		t.Errorf("digest = %x, want %x", got, want)
	}
}

func TestHashClobAuthSensitivity(t *testing.T) {
	addr := common.HexToAddress(testAddress)
	base := &ClobAuth{Address: addr, Timestamp: "1700000000", Nonce: big.NewInt(0)}

	baseHash, err := HashClobAuth(137, base)
	if err != nil {
		t.Fatalf("failed to hash: %v", err)
	}

	otherNonce := &ClobAuth{Address: addr, Timestamp: "1700000000", Nonce: big.NewInt(1)}
	h, err := HashClobAuth(137, otherNonce)
	if err != nil {
		t.Fatalf("failed to hash: %v", err)
	}
	if bytes.Equal(baseHash, h) {
		t.Error("nonce change did not change digest")
	}

	h, err = HashClobAuth(1, base)
	if err != nil {
		t.Fatalf("failed to hash: %v", err)
	}
	if bytes.Equal(baseHash, h) {
		t.Error("chain id change did not change digest")
	}
}

func TestHashExchangeOrderSignRecover(t *testing.T) {
	signer, err := FromPrivateKeyHex(testPrivKey)
	if err != nil {
		t.Fatalf("failed to load key: %v", err)
	}

	exchange := common.HexToAddress("0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E")
	order := &ExchangeOrder{
		Salt:          big.NewInt(123456789),
		Maker:         signer.Address(),
		Signer:        signer.Address(),
		Taker:         common.Address{},
		TokenID:       newBigFromDecimal(t, "71321045679252212594626385532706912750332728571942532289631379312455583992563"),
		MakerAmount:   big.NewInt(25_000_000),
		TakerAmount:   big.NewInt(50_000_000),
		Expiration:    big.NewInt(0),
		Nonce:         big.NewInt(0),
		FeeRateBps:    big.NewInt(0),
		Side:          0,
		SignatureType: 0,
	}

	hash, err := HashExchangeOrder(137, exchange, order)
	if err != nil {
		t.Fatalf("failed to hash order: %v", err)
	}
	if len(hash) != 32 {
		t.Fatalf("digest length = %d, want 32", len(hash))
	}

	sig, err := signer.Sign(hash)
	if err != nil {
		t.Fatalf("failed to sign order: %v", err)
	}
	recovered, err := RecoverAddress(hash, sig)
	if err != nil {
		t.Fatalf("failed to recover: %v", err)
	}
	if recovered != signer.Address() {
		t.Errorf("recovered %s, want %s", recovered.Hex(), signer.Address().Hex())
	}

	// Flipping the side has to move the digest.
	order.Side = 1
	other, err := HashExchangeOrder(137, exchange, order)
	if err != nil {
		t.Fatalf("failed to hash order: %v", err)
	}
	if bytes.Equal(hash, other) {
		t.Error("side change did not change digest")
	}
}

func newBigFromDecimal(t *testing.T, s string) *big.Int {
	t.Helper()
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad decimal %q", s)
	}
	return n
}
