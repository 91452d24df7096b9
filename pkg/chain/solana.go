package chain

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"cross-swap/pkg/state"
)

type signatureReader interface {
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// SolanaInspector reads signature statuses
type SolanaInspector struct {
	client signatureReader
}

func NewSolanaInspector(rpcURL string) *SolanaInspector {
	return &SolanaInspector{client: rpc.New(rpcURL)}
}

func (s *SolanaInspector) TxStatus(ctx context.Context, _ string, hash string) (state.TxState, error) {
	sig, err := solana.SignatureFromBase58(hash)
	if err != nil {
		return state.TxPending, fmt.Errorf("invalid transaction signature: %w", err)
	}

	res, err := s.client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return state.TxPending, fmt.Errorf("failed to get signature status: %w", err)
	}
	if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		return state.TxPending, nil
	}

	st := res.Value[0]
	if st.Err != nil {
		return state.TxFailed, nil
	}
	switch st.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		return state.TxConfirmed, nil
	}
	return state.TxPending, nil
}
