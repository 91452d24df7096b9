package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"cross-swap/config"
)

// ERC20 transfer and balanceOf
const erc20ABI = `[
{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"}
]`

// EVMDepositor sends native and ERC20 transfers on one EVM network
type EVMDepositor struct {
	networkName string
	network     config.EVMNetwork
	client      *ethclient.Client
	privateKey  *ecdsa.PrivateKey
	from        common.Address
	erc20       abi.ABI
}

// NewEVMDepositor connects to the configured network
func NewEVMDepositor(ctx context.Context, cfg config.EVMConfig, networkName string) (*EVMDepositor, error) {
	network, exists := cfg.Networks[networkName]
	if !exists {
		return nil, fmt.Errorf("network %s not configured", networkName)
	}
	if network.RPCUrl == "" {
		return nil, fmt.Errorf("RPC URL not configured for network %s", networkName)
	}
	if network.PrivateKey == "" {
		return nil, fmt.Errorf("private key not configured for network %s", networkName)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(network.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}

	client, err := ethclient.DialContext(ctx, network.RPCUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	if network.ChainID == 0 {
		id, err := client.ChainID(ctx)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to get chain id: %w", err)
		}
		network.ChainID = id.Int64()
	}

	return &EVMDepositor{
		networkName: networkName,
		network:     network,
		client:      client,
		privateKey:  privateKey,
		from:        crypto.PubkeyToAddress(privateKey.PublicKey),
		erc20:       parsedABI,
	}, nil
}

func (e *EVMDepositor) Address() string {
	return e.from.Hex()
}

// SendDeposit signs and broadcasts a transfer, returning the transaction hash
func (e *EVMDepositor) SendDeposit(ctx context.Context, t Transfer) (string, error) {
	if !common.IsHexAddress(t.To) {
		return "", fmt.Errorf("invalid recipient address: %s", t.To)
	}
	amount, err := parseBaseAmount(t.Amount)
	if err != nil {
		return "", err
	}

	nonce, err := e.client.PendingNonceAt(ctx, e.from)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := e.getGasPrice(ctx)
	if err != nil {
		return "", err
	}

	var tx *types.Transaction
	if t.Contract == "" {
		tx, err = e.nativeTransfer(ctx, common.HexToAddress(t.To), amount, nonce, gasPrice)
	} else {
		tx, err = e.erc20Transfer(ctx, common.HexToAddress(t.To), t.Contract, amount, nonce, gasPrice)
	}
	if err != nil {
		return "", err
	}

	if err := e.client.SendTransaction(ctx, tx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}
	return tx.Hash().Hex(), nil
}

func (e *EVMDepositor) nativeTransfer(ctx context.Context, to common.Address, amount *big.Int, nonce uint64, gasPrice *big.Int) (*types.Transaction, error) {
	balance, err := e.client.BalanceAt(ctx, e.from, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	if balance.Cmp(amount) < 0 {
		return nil, fmt.Errorf("insufficient balance: have %s wei, need %s wei", balance, amount)
	}

	gasLimit := uint64(21000)
	if e.network.GasLimit != nil {
		gasLimit = *e.network.GasLimit
	}

	return e.sign(types.NewTransaction(nonce, to, amount, gasLimit, gasPrice, nil))
}

func (e *EVMDepositor) erc20Transfer(ctx context.Context, to common.Address, contract string, amount *big.Int, nonce uint64, gasPrice *big.Int) (*types.Transaction, error) {
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("invalid token contract address: %s", contract)
	}
	tokenAddress := common.HexToAddress(contract)

	balance, err := e.erc20Balance(ctx, tokenAddress)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(amount) < 0 {
		return nil, fmt.Errorf("insufficient token balance: have %s, need %s", balance, amount)
	}

	data, err := e.erc20.Pack("transfer", to, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack transfer data: %w", err)
	}

	gasLimit := uint64(100000)
	if e.network.GasLimit != nil {
		gasLimit = *e.network.GasLimit
	} else {
		estimated, err := e.client.EstimateGas(ctx, ethereum.CallMsg{From: e.from, To: &tokenAddress, Data: data})
		if err == nil {
			// 20% headroom
			gasLimit = estimated * 120 / 100
		}
	}

	return e.sign(types.NewTransaction(nonce, tokenAddress, big.NewInt(0), gasLimit, gasPrice, data))
}

func (e *EVMDepositor) sign(tx *types.Transaction) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(e.network.ChainID)), e.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}

func (e *EVMDepositor) getGasPrice(ctx context.Context) (*big.Int, error) {
	if e.network.GasPrice != nil {
		return big.NewInt(*e.network.GasPrice), nil
	}
	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return gasPrice, nil
}

func (e *EVMDepositor) erc20Balance(ctx context.Context, token common.Address) (*big.Int, error) {
	data, err := e.erc20.Pack("balanceOf", e.from)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf data: %w", err)
	}
	result, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call balanceOf: %w", err)
	}
	return new(big.Int).SetBytes(result), nil
}

func (e *EVMDepositor) Close() {
	if e.client != nil {
		e.client.Close()
	}
}

// parseBaseAmount parses an integer amount already expressed in base units
func parseBaseAmount(amount string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(amount, 10)
	if !ok || v.Sign() <= 0 {
		return nil, fmt.Errorf("invalid amount %q: expected a positive base-unit integer", amount)
	}
	return v, nil
}
