package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"cross-swap/pkg/state"
)

type receiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

// EVMInspector reads transaction receipts
type EVMInspector struct {
	client receiptReader
}

// DialEVM connects to an RPC endpoint
func DialEVM(rpcURL string) (*EVMInspector, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}
	return &EVMInspector{client: client}, nil
}

func (e *EVMInspector) TxStatus(ctx context.Context, _ string, hash string) (state.TxState, error) {
	receipt, err := e.client.TransactionReceipt(ctx, common.HexToHash(hash))
	if errors.Is(err, ethereum.NotFound) {
		return state.TxPending, nil
	}
	if err != nil {
		return state.TxPending, fmt.Errorf("failed to get transaction receipt: %w", err)
	}
	if receipt.Status == gethtypes.ReceiptStatusSuccessful {
		return state.TxConfirmed, nil
	}
	return state.TxFailed, nil
}
