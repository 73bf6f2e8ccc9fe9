package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/polyquote/polyquote/pkg/clob"
	"github.com/polyquote/polyquote/pkg/crypto"
)

// Polygon mainnet contracts for conditional token operations.
var (
	ConditionalTokensAddress = common.HexToAddress("0x4D97DCd97eC945f40cF65F87097ACe5EA0476045")
	USDCAddress              = common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174")
	NegRiskAdapterAddress    = common.HexToAddress("0xd91E80cF2E7be2e162c6513ceD06f1dD0dA35296")
)

const conditionalTokensABI = `[
	{"name":"splitPosition","type":"function","stateMutability":"nonpayable","inputs":[
		{"name":"collateralToken","type":"address"},
		{"name":"parentCollectionId","type":"bytes32"},
		{"name":"conditionId","type":"bytes32"},
		{"name":"partition","type":"uint256[]"},
		{"name":"amount","type":"uint256"}],"outputs":[]},
	{"name":"mergePositions","type":"function","stateMutability":"nonpayable","inputs":[
		{"name":"collateralToken","type":"address"},
		{"name":"parentCollectionId","type":"bytes32"},
		{"name":"conditionId","type":"bytes32"},
		{"name":"partition","type":"uint256[]"},
		{"name":"amount","type":"uint256"}],"outputs":[]}
]`

const safeABI = `[
	{"name":"nonce","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"getTransactionHash","type":"function","stateMutability":"view","inputs":[
		{"name":"to","type":"address"},
		{"name":"value","type":"uint256"},
		{"name":"data","type":"bytes"},
		{"name":"operation","type":"uint8"},
		{"name":"safeTxGas","type":"uint256"},
		{"name":"baseGas","type":"uint256"},
		{"name":"gasPrice","type":"uint256"},
		{"name":"gasToken","type":"address"},
		{"name":"refundReceiver","type":"address"},
		{"name":"_nonce","type":"uint256"}],"outputs":[{"name":"","type":"bytes32"}]},
	{"name":"execTransaction","type":"function","stateMutability":"payable","inputs":[
		{"name":"to","type":"address"},
		{"name":"value","type":"uint256"},
		{"name":"data","type":"bytes"},
		{"name":"operation","type":"uint8"},
		{"name":"safeTxGas","type":"uint256"},
		{"name":"baseGas","type":"uint256"},
		{"name":"gasPrice","type":"uint256"},
		{"name":"gasToken","type":"address"},
		{"name":"refundReceiver","type":"address"},
		{"name":"signatures","type":"bytes"}],"outputs":[{"name":"","type":"bool"}]}
]`

// SplitMerge converts collateral into full outcome-token sets and back.
// With a Safe configured the calls are relayed through it, since proxy
// wallets hold the collateral; otherwise the wallet calls directly.
type SplitMerge struct {
	eth     *ethclient.Client
	signer  *crypto.Signer
	safe    common.Address // zero means direct EOA calls
	chainID *big.Int
	log     *zap.Logger

	ctf   abi.ABI
	gsafe abi.ABI
}

func NewSplitMerge(rpcURL string, signer *crypto.Signer, safe common.Address, chainID int64, log *zap.Logger) (*SplitMerge, error) {
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	ctf, err := abi.JSON(strings.NewReader(conditionalTokensABI))
	if err != nil {
		return nil, fmt.Errorf("parse ctf abi: %w", err)
	}
	gsafe, err := abi.JSON(strings.NewReader(safeABI))
	if err != nil {
		return nil, fmt.Errorf("parse safe abi: %w", err)
	}

	return &SplitMerge{
		eth:     eth,
		signer:  signer,
		safe:    safe,
		chainID: big.NewInt(chainID),
		log:     log,
		ctf:     ctf,
		gsafe:   gsafe,
	}, nil
}

func (s *SplitMerge) Close() { s.eth.Close() }

// Split converts amount (raw 6-decimal USDC) into a full set of outcome
// tokens for the condition.
func (s *SplitMerge) Split(ctx context.Context, conditionID common.Hash, amount *big.Int, negRisk bool) (common.Hash, error) {
	data, err := s.packPositionCall("splitPosition", conditionID, amount)
	if err != nil {
		return common.Hash{}, err
	}
	return s.execute(ctx, positionTarget(negRisk), data)
}

// Merge converts a full set of outcome tokens back into amount of USDC.
func (s *SplitMerge) Merge(ctx context.Context, conditionID common.Hash, amount *big.Int, negRisk bool) (common.Hash, error) {
	data, err := s.packPositionCall("mergePositions", conditionID, amount)
	if err != nil {
		return common.Hash{}, err
	}
	return s.execute(ctx, positionTarget(negRisk), data)
}

// MergeableSets computes how many full outcome sets a wallet's positions
// in one market can merge back to collateral: the smaller leg across the
// outcomes, as a raw 6-decimal amount. Zero when a leg is missing, since
// merging needs one share of every outcome.
func MergeableSets(positions []clob.Position) *big.Int {
	legs := map[int]decimal.Decimal{}
	for _, p := range positions {
		legs[p.OutcomeIndex] = legs[p.OutcomeIndex].Add(decimal.NewFromFloat(p.Size))
	}
	if len(legs) < 2 {
		return new(big.Int)
	}
	var min decimal.Decimal
	first := true
	for _, sz := range legs {
		if first || sz.LessThan(min) {
			min = sz
			first = false
		}
	}
	if min.Sign() <= 0 {
		return new(big.Int)
	}
	return min.Shift(6).RoundDown(0).BigInt()
}

func positionTarget(negRisk bool) common.Address {
	if negRisk {
		return NegRiskAdapterAddress
	}
	return ConditionalTokensAddress
}

// packPositionCall encodes a split or merge over the binary partition.
func (s *SplitMerge) packPositionCall(method string, conditionID common.Hash, amount *big.Int) ([]byte, error) {
	partition := []*big.Int{big.NewInt(1), big.NewInt(2)}
	data, err := s.ctf.Pack(method, USDCAddress, [32]byte{}, [32]byte(conditionID), partition, amount)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return data, nil
}

// execute routes the call through the Safe when one is configured.
func (s *SplitMerge) execute(ctx context.Context, target common.Address, data []byte) (common.Hash, error) {
	if s.safe == (common.Address{}) {
		return s.sendTx(ctx, target, data)
	}

	execData, err := s.buildSafeExec(ctx, target, data)
	if err != nil {
		return common.Hash{}, err
	}
	return s.sendTx(ctx, s.safe, execData)
}

// buildSafeExec wraps an inner call into an execTransaction with a single
// eth_sign owner signature.
func (s *SplitMerge) buildSafeExec(ctx context.Context, target common.Address, data []byte) ([]byte, error) {
	nonce, err := s.safeNonce(ctx)
	if err != nil {
		return nil, err
	}

	zero := big.NewInt(0)
	zeroAddr := common.Address{}
	hashCall, err := s.gsafe.Pack("getTransactionHash",
		target, zero, data, uint8(0), zero, zero, zero, zeroAddr, zeroAddr, nonce)
	if err != nil {
		return nil, fmt.Errorf("pack getTransactionHash: %w", err)
	}
	raw, err := s.eth.CallContract(ctx, ethereum.CallMsg{To: &s.safe, Data: hashCall}, nil)
	if err != nil {
		return nil, fmt.Errorf("call getTransactionHash: %w", err)
	}
	out, err := s.gsafe.Unpack("getTransactionHash", raw)
	if err != nil {
		return nil, fmt.Errorf("unpack tx hash: %w", err)
	}
	safeTxHash := out[0].([32]byte)

	sig, err := s.signer.SignEthMessage(safeTxHash[:])
	if err != nil {
		return nil, fmt.Errorf("sign safe tx: %w", err)
	}
	sig = adjustSafeV(sig)

	execData, err := s.gsafe.Pack("execTransaction",
		target, zero, data, uint8(0), zero, zero, zero, zeroAddr, zeroAddr, sig)
	if err != nil {
		return nil, fmt.Errorf("pack execTransaction: %w", err)
	}
	return execData, nil
}

// adjustSafeV marks the signature as eth_sign flavored: the Safe expects
// v in {31, 32} for prefixed signatures.
func adjustSafeV(sig []byte) []byte {
	out := make([]byte, len(sig))
	copy(out, sig)
	switch v := out[64]; {
	case v == 0 || v == 1:
		out[64] = v + 31
	case v == 27 || v == 28:
		out[64] = v + 4
	}
	return out
}

func (s *SplitMerge) safeNonce(ctx context.Context) (*big.Int, error) {
	call, err := s.gsafe.Pack("nonce")
	if err != nil {
		return nil, fmt.Errorf("pack nonce: %w", err)
	}
	raw, err := s.eth.CallContract(ctx, ethereum.CallMsg{To: &s.safe, Data: call}, nil)
	if err != nil {
		return nil, fmt.Errorf("call nonce: %w", err)
	}
	out, err := s.gsafe.Unpack("nonce", raw)
	if err != nil {
		return nil, fmt.Errorf("unpack nonce: %w", err)
	}
	return out[0].(*big.Int), nil
}

// sendTx signs and broadcasts a call from the wallet.
func (s *SplitMerge) sendTx(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	from := s.signer.Address()

	nonce, err := s.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := s.eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
	}
	gas, err := s.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), gas, gasPrice, data)
	signed, err := s.signer.SignTx(tx, s.chainID)
	if err != nil {
		return common.Hash{}, err
	}
	if err := s.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}

	s.log.Info("tx sent", zap.String("hash", signed.Hash().Hex()), zap.String("to", to.Hex()))
	return signed.Hash(), nil
}
