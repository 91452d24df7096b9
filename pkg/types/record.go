package types

import "time"

// RecordStatus is the coarse status shown in transaction history
type RecordStatus string

const (
	RecordPending   RecordStatus = "pending"
	RecordCompleted RecordStatus = "completed"
	RecordFailed    RecordStatus = "failed"
)

// Rank orders statuses by how much they tell us; records only move up
func (s RecordStatus) Rank() int {
	switch s {
	case RecordCompleted:
		return 2
	case RecordFailed:
		return 1
	default:
		return 0
	}
}

// TransactionRecord is the durable history entry for a swap session
type TransactionRecord struct {
	ID            string       `json:"id" db:"id"`
	WalletAddress string       `json:"walletAddress" db:"wallet_address"`
	FromChainID   string       `json:"fromChainId" db:"from_chain_id"`
	ToChainID     string       `json:"toChainId" db:"to_chain_id"`
	FromToken     string       `json:"fromToken" db:"from_token"`
	ToToken       string       `json:"toToken" db:"to_token"`
	FromAmount    string       `json:"fromAmount" db:"from_amount"`
	ToAmount      string       `json:"toAmount" db:"to_amount"`
	TxHash        string       `json:"txHash" db:"tx_hash"`
	Status        RecordStatus `json:"status" db:"status"`
	Timestamp     time.Time    `json:"timestamp" db:"recorded_at"`
	ValueUSD      string       `json:"valueUSD" db:"value_usd"`
}
