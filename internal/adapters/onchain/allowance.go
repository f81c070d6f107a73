package onchain

// allowance.go — On-chain token-allowance provisioning for Polymarket.
//
// Before live trading the exchange contracts need:
//   - ERC20 USDC.e approve on both exchange contracts (BUY collateral)
//   - ERC1155 setApprovalForAll on the exchange contracts (token transfers)
//
// EnsureApprovals checks what is already set and submits only the missing
// transactions. Called once at startup in live mode.

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	polygonChainID = int64(137)

	// USDC.e collateral on Polygon
	usdcEAddress = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"

	// CTF contract — holds conditional tokens (ERC1155)
	ctfAddress = "0x4D97DCd97eC945f40cF65F87097ACe5EA0476045"

	// Exchange contracts that need approvals
	normalExchange  = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
	negRiskExchange = "0xC5d563A36AE78145C45a50134d48A1215220f80a"
	negRiskAdapter  = "0xd91E80cF2E7be2e162c6513ceD06f1dD0dA35296"

	// Gas limits (conservative upper bounds)
	approvalGasLimit = uint64(80_000)

	// Gas price update interval
	gasPriceUpdateInterval = 5 * time.Minute
)

// Contract ABIs
var (
	erc1155ABI abi.ABI
	erc20ABI   abi.ABI
)

func init() {
	var err error

	erc1155ABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "setApprovalForAll",
			"type": "function",
			"inputs": [
				{"name": "operator", "type": "address"},
				{"name": "approved", "type": "bool"}
			],
			"outputs": []
		},
		{
			"name": "isApprovedForAll",
			"type": "function",
			"inputs": [
				{"name": "account", "type": "address"},
				{"name": "operator", "type": "address"}
			],
			"outputs": [{"name": "", "type": "bool"}]
		}
	]`))
	if err != nil {
		panic("erc1155 abi parse: " + err.Error())
	}

	erc20ABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "approve",
			"type": "function",
			"inputs": [
				{"name": "spender", "type": "address"},
				{"name": "amount", "type": "uint256"}
			],
			"outputs": [{"name": "", "type": "bool"}]
		},
		{
			"name": "allowance",
			"type": "function",
			"inputs": [
				{"name": "owner", "type": "address"},
				{"name": "spender", "type": "address"}
			],
			"outputs": [{"name": "", "type": "uint256"}]
		}
	]`))
	if err != nil {
		panic("erc20 abi parse: " + err.Error())
	}
}

// AllowanceClient implements ports.ApprovalProvisioner against Polygon.
type AllowanceClient struct {
	client     *ethclient.Client
	privateKey []byte
	address    common.Address

	mu           sync.RWMutex
	cachedGasWei *big.Int
	gasUpdatedAt time.Time
}

// NewAllowanceClient creates a provisioner connected to the given Polygon RPC.
// privateKeyHex is without 0x prefix.
func NewAllowanceClient(rpcURL, privateKeyHex string) (*AllowanceClient, error) {
	pkBytes, err := hex.DecodeString(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("onchain: decode private key: %w", err)
	}

	privKey, err := crypto.ToECDSA(pkBytes)
	if err != nil {
		return nil, fmt.Errorf("onchain: invalid private key: %w", err)
	}

	addr := crypto.PubkeyToAddress(privKey.PublicKey)

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("onchain: dial rpc %s: %w", rpcURL, err)
	}

	return &AllowanceClient{
		client:     client,
		privateKey: pkBytes,
		address:    addr,
	}, nil
}

// EnsureApprovals checks and sets both:
//   - ERC1155 setApprovalForAll on the three exchange contracts
//   - ERC20 USDC.e approve for both exchange contracts
func (ac *AllowanceClient) EnsureApprovals(ctx context.Context) error {
	operators := []string{normalExchange, negRiskExchange, negRiskAdapter}

	for _, op := range operators {
		approved, err := ac.isApprovedForAll(ctx, common.HexToAddress(op))
		if err != nil {
			return fmt.Errorf("check ERC1155 approval for %s: %w", op, err)
		}
		if approved {
			slog.Debug("onchain: ERC1155 approval already set", "operator", op)
			continue
		}

		slog.Info("onchain: setting ERC1155 approval", "operator", op)
		if err := ac.setApprovalForAll(ctx, common.HexToAddress(op)); err != nil {
			return fmt.Errorf("set ERC1155 approval for %s: %w", op, err)
		}
		slog.Info("onchain: ERC1155 approval set", "operator", op)
	}

	exchanges := []string{normalExchange, negRiskExchange}
	maxUint256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	minAllowance := new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(1_000_000)) // 1M USDC.e

	for _, ex := range exchanges {
		allowance, err := ac.erc20Allowance(ctx, common.HexToAddress(usdcEAddress), common.HexToAddress(ex))
		if err != nil {
			return fmt.Errorf("check USDC.e allowance for %s: %w", ex, err)
		}
		if allowance.Cmp(minAllowance) >= 0 {
			slog.Debug("onchain: USDC.e allowance sufficient", "exchange", ex)
			continue
		}

		slog.Info("onchain: setting USDC.e approval", "exchange", ex)
		if err := ac.erc20Approve(ctx, common.HexToAddress(usdcEAddress), common.HexToAddress(ex), maxUint256); err != nil {
			return fmt.Errorf("set USDC.e approval for %s: %w", ex, err)
		}
		slog.Info("onchain: USDC.e approval set", "exchange", ex)
	}

	return nil
}

// isApprovedForAll checks ERC1155 approval for an operator on the CTF contract.
func (ac *AllowanceClient) isApprovedForAll(ctx context.Context, operator common.Address) (bool, error) {
	callData, err := erc1155ABI.Pack("isApprovedForAll", ac.address, operator)
	if err != nil {
		return false, err
	}

	ctfAddr := common.HexToAddress(ctfAddress)
	result, err := ac.client.CallContract(ctx, ethereum.CallMsg{
		To:   &ctfAddr,
		Data: callData,
	}, nil)
	if err != nil {
		return false, err
	}

	vals, err := erc1155ABI.Unpack("isApprovedForAll", result)
	if err != nil || len(vals) == 0 {
		return false, err
	}
	return vals[0].(bool), nil
}

// setApprovalForAll sends a setApprovalForAll transaction on the CTF contract.
func (ac *AllowanceClient) setApprovalForAll(ctx context.Context, operator common.Address) error {
	callData, err := erc1155ABI.Pack("setApprovalForAll", operator, true)
	if err != nil {
		return err
	}

	ctfAddr := common.HexToAddress(ctfAddress)
	return ac.sendAndConfirm(ctx, ctfAddr, callData, "setApprovalForAll")
}

// erc20Allowance queries the current ERC20 allowance.
func (ac *AllowanceClient) erc20Allowance(ctx context.Context, token, spender common.Address) (*big.Int, error) {
	callData, err := erc20ABI.Pack("allowance", ac.address, spender)
	if err != nil {
		return nil, err
	}

	result, err := ac.client.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: callData,
	}, nil)
	if err != nil {
		return nil, err
	}

	vals, err := erc20ABI.Unpack("allowance", result)
	if err != nil || len(vals) == 0 {
		return big.NewInt(0), err
	}
	return vals[0].(*big.Int), nil
}

// erc20Approve sends an ERC20 approve transaction.
func (ac *AllowanceClient) erc20Approve(ctx context.Context, token, spender common.Address, amount *big.Int) error {
	callData, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return err
	}
	return ac.sendAndConfirm(ctx, token, callData, "approve")
}

// sendAndConfirm firma, envía y espera el receipt de una transacción de
// aprobación contra el contrato dado.
func (ac *AllowanceClient) sendAndConfirm(ctx context.Context, to common.Address, callData []byte, label string) error {
	privKey, err := crypto.ToECDSA(ac.privateKey)
	if err != nil {
		return err
	}

	nonce, err := ac.client.PendingNonceAt(ctx, ac.address)
	if err != nil {
		return fmt.Errorf("nonce: %w", err)
	}

	gasPrice, err := ac.getGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), approvalGasLimit, gasPrice, callData)

	chainID := big.NewInt(polygonChainID)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(chainID), privKey)
	if err != nil {
		return err
	}

	if err := ac.client.SendTransaction(ctx, signed); err != nil {
		return err
	}

	receiptCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	receipt, err := ac.waitForReceipt(receiptCtx, signed.Hash())
	if err != nil {
		return fmt.Errorf("wait receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%s tx reverted", label)
	}
	return nil
}

// getGasPrice returns the current gas price, with caching to avoid excessive RPC calls.
func (ac *AllowanceClient) getGasPrice(ctx context.Context) (*big.Int, error) {
	ac.mu.RLock()
	cached := ac.cachedGasWei
	updatedAt := ac.gasUpdatedAt
	ac.mu.RUnlock()

	if cached != nil && time.Since(updatedAt) < gasPriceUpdateInterval {
		return cached, nil
	}

	price, err := ac.client.SuggestGasPrice(ctx)
	if err != nil {
		if cached != nil {
			return cached, nil
		}
		return big.NewInt(30_000_000_000), nil // 30 gwei fallback
	}

	// Add 10% buffer for faster inclusion (copy to avoid mutating SuggestGasPrice return)
	buffered := new(big.Int).Mul(price, big.NewInt(11))
	buffered.Div(buffered, big.NewInt(10))
	price = buffered

	ac.mu.Lock()
	ac.cachedGasWei = price
	ac.gasUpdatedAt = time.Now()
	ac.mu.Unlock()

	return price, nil
}

// waitForReceipt polls for a transaction receipt until confirmed or timeout.
func (ac *AllowanceClient) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			receipt, err := ac.client.TransactionReceipt(ctx, txHash)
			if err != nil {
				continue // not yet mined
			}
			return receipt, nil
		}
	}
}
