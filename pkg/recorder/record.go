// Package recorder derives transaction history records from route state at any
// point of execution, including before the first on-chain hash exists.
package recorder

import (
	"time"

	"github.com/shopspring/decimal"

	"cross-swap/pkg/types"
)

// CreatePlaceholder builds the record written when execution begins: empty hash,
// pending status, source data from the first step and destination data from the last
func CreatePlaceholder(route *types.Route, wallet, id string) *types.TransactionRecord {
	first, last := route.FirstStep(), route.LastStep()
	return &types.TransactionRecord{
		ID:            id,
		WalletAddress: wallet,
		FromChainID:   first.Action.FromChainID,
		ToChainID:     last.Action.ToChainID,
		FromToken:     first.Action.FromToken.Symbol,
		ToToken:       last.Action.ToToken.Symbol,
		FromAmount:    first.Action.FromAmount,
		ToAmount:      destinationAmount(route),
		Status:        types.RecordPending,
		Timestamp:     time.Now(),
		ValueUSD:      valueUSD(route),
	}
}

// IsTrackable is true once any process of any step carries a hash
func IsTrackable(route *types.Route) bool {
	for i := range route.Steps {
		if exec := route.Steps[i].Execution; exec != nil {
			for _, p := range exec.Process {
				if p.TxHash != "" {
					return true
				}
			}
		}
	}
	return false
}

// ExtractHash returns the most recently produced hash: steps are scanned in
// reverse, then processes within each step in reverse
func ExtractHash(route *types.Route) string {
	for i := len(route.Steps) - 1; i >= 0; i-- {
		if h := route.Steps[i].Execution.LastHash(); h != "" {
			return h
		}
	}
	return ""
}

// DeriveStatus aggregates step executions into a record status
func DeriveStatus(route *types.Route) types.RecordStatus {
	allDone := len(route.Steps) > 0
	for i := range route.Steps {
		exec := route.Steps[i].Execution
		if exec == nil || exec.Status != types.ProcessDone {
			allDone = false
		}
	}
	if allDone {
		return types.RecordCompleted
	}
	for i := range route.Steps {
		exec := route.Steps[i].Execution
		if exec == nil {
			continue
		}
		for _, p := range exec.Process {
			if p.Status == types.ProcessFailed || p.Status == types.ProcessCancelled {
				return types.RecordFailed
			}
		}
	}
	return types.RecordPending
}

// Update recomputes the mutable fields of existing from route. A known value is
// never replaced by an empty, zero or lower-ranked one; existing is not modified.
func Update(existing *types.TransactionRecord, route *types.Route) *types.TransactionRecord {
	out := *existing

	if h := ExtractHash(route); h != "" {
		out.TxHash = h
	}
	if s := DeriveStatus(route); s.Rank() > out.Status.Rank() {
		out.Status = s
	}
	if amt := destinationAmount(route); !isZero(amt) {
		out.ToAmount = amt
	}
	if usd := valueUSD(route); !isZero(usd) {
		out.ValueUSD = usd
	}
	return &out
}

// destinationAmount prefers the realized amount of the last step over the estimate
func destinationAmount(route *types.Route) string {
	last := route.LastStep()
	if last.Execution != nil && last.Execution.Status == types.ProcessDone && !isZero(last.Execution.ToAmount) {
		return last.Execution.ToAmount
	}
	if !isZero(route.ToAmount) {
		return route.ToAmount
	}
	return last.Estimate.ToAmount
}

func valueUSD(route *types.Route) string {
	if !isZero(route.FromAmountUSD) {
		return route.FromAmountUSD
	}
	return route.FirstStep().Estimate.FromAmountUSD
}

func isZero(s string) bool {
	if s == "" {
		return true
	}
	d, err := decimal.NewFromString(s)
	return err != nil || d.IsZero()
}
