package types

import (
	"fmt"
	"time"

	"cross-swap/pkg/units"
)

// ProcessStatus is the status of a single on-chain execution attempt, and of a
// step's execution as a whole
type ProcessStatus string

const (
	ProcessPending   ProcessStatus = "pending"
	ProcessDone      ProcessStatus = "done"
	ProcessFailed    ProcessStatus = "failed"
	ProcessCancelled ProcessStatus = "cancelled"
)

// Process is one on-chain attempt within a step (allowance, swap, bridge claim...)
type Process struct {
	Type    string        `json:"type"`
	Status  ProcessStatus `json:"status"`
	TxHash  string        `json:"txHash,omitempty"`
	ChainID string        `json:"chainId,omitempty"`
	Message string        `json:"message,omitempty"`
	Started time.Time     `json:"startedAt,omitempty"`
	Done    *time.Time    `json:"doneAt,omitempty"`
}

// Execution is the mutable progress record of a step
type Execution struct {
	Status     ProcessStatus `json:"status"`
	Process    []Process     `json:"process"`
	FromAmount string        `json:"fromAmount,omitempty"`
	ToAmount   string        `json:"toAmount,omitempty"`
}

// Clone returns a deep copy
func (e *Execution) Clone() *Execution {
	if e == nil {
		return nil
	}
	out := *e
	out.Process = make([]Process, len(e.Process))
	copy(out.Process, e.Process)
	for i := range out.Process {
		if e.Process[i].Done != nil {
			done := *e.Process[i].Done
			out.Process[i].Done = &done
		}
	}
	return &out
}

// LastHash returns the most recent non-empty hash of this execution
func (e *Execution) LastHash() string {
	if e == nil {
		return ""
	}
	for i := len(e.Process) - 1; i >= 0; i-- {
		if e.Process[i].TxHash != "" {
			return e.Process[i].TxHash
		}
	}
	return ""
}

// Action is the intent of a step: what goes in on which chain, what comes out where
type Action struct {
	FromToken   Token   `json:"fromToken"`
	ToToken     Token   `json:"toToken"`
	FromAmount  string  `json:"fromAmount"`
	FromChainID string  `json:"fromChainId"`
	ToChainID   string  `json:"toChainId"`
	FromAddress string  `json:"fromAddress,omitempty"`
	ToAddress   string  `json:"toAddress,omitempty"`
	Slippage    float64 `json:"slippage,omitempty"`
}

// Estimate is the provider's quoted outcome for a step
type Estimate struct {
	ToAmount          string  `json:"toAmount"`
	ToAmountMin       string  `json:"toAmountMin,omitempty"`
	ApprovalAddress   string  `json:"approvalAddress,omitempty"`
	ExecutionDuration float64 `json:"executionDuration,omitempty"` // seconds
	FromAmountUSD     string  `json:"fromAmountUSD,omitempty"`
	ToAmountUSD       string  `json:"toAmountUSD,omitempty"`
}

// Duration returns the estimated execution time of the step
func (e Estimate) Duration() time.Duration {
	return time.Duration(e.ExecutionDuration * float64(time.Second))
}

// Step is one leg of a route
type Step struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	Tool           string     `json:"tool"`
	Action         Action     `json:"action"`
	Estimate       Estimate   `json:"estimate"`
	Execution      *Execution `json:"execution,omitempty"`
	DepositAddress string     `json:"depositAddress,omitempty"`
	DepositMemo    string     `json:"depositMemo,omitempty"`
}

// Name is a human readable label for progress output
func (s *Step) Name() string {
	if s.Action.FromChainID != s.Action.ToChainID {
		return fmt.Sprintf("Bridge %s (%s) to %s (%s) via %s",
			s.Action.FromToken.Symbol, s.Action.FromChainID,
			s.Action.ToToken.Symbol, s.Action.ToChainID, s.Tool)
	}
	return fmt.Sprintf("Swap %s to %s on %s via %s",
		s.Action.FromToken.Symbol, s.Action.ToToken.Symbol, s.Action.FromChainID, s.Tool)
}

// IsDone returns true when the step's execution has reached done
func (s *Step) IsDone() bool {
	return s.Execution != nil && s.Execution.Status == ProcessDone
}

// NeedsApproval returns true when the step spends an ERC20-style token through a spender
func (s *Step) NeedsApproval() bool {
	return s.Estimate.ApprovalAddress != ""
}

// Route is a quoted, ordered plan of steps. Only Step.Execution is mutated after quoting.
type Route struct {
	ID            string    `json:"id"`
	FromChainID   string    `json:"fromChainId"`
	ToChainID     string    `json:"toChainId"`
	FromToken     Token     `json:"fromToken"`
	ToToken       Token     `json:"toToken"`
	FromAmount    string    `json:"fromAmount"`
	ToAmount      string    `json:"toAmount"`
	ToAmountMin   string    `json:"toAmountMin,omitempty"`
	FromAmountUSD string    `json:"fromAmountUSD,omitempty"`
	ToAmountUSD   string    `json:"toAmountUSD,omitempty"`
	FromAddress   string    `json:"fromAddress,omitempty"`
	ToAddress     string    `json:"toAddress,omitempty"`
	Steps         []Step    `json:"steps"`
	QuotedAt      time.Time `json:"quotedAt,omitempty"`
}

// Validate enforces the strict internal shape every consumer relies on
func (r *Route) Validate() error {
	if r == nil {
		return fmt.Errorf("route is nil")
	}
	if len(r.Steps) == 0 {
		return fmt.Errorf("route %s has no steps", r.ID)
	}
	if err := r.FromToken.Validate(); err != nil {
		return fmt.Errorf("route from token: %w", err)
	}
	if err := r.ToToken.Validate(); err != nil {
		return fmt.Errorf("route to token: %w", err)
	}
	if !units.ValidBase(r.FromAmount) {
		return fmt.Errorf("route from amount %q is not a base-unit integer", r.FromAmount)
	}
	if !units.ValidBase(r.ToAmount) {
		return fmt.Errorf("route to amount %q is not a base-unit integer", r.ToAmount)
	}
	for i := range r.Steps {
		step := &r.Steps[i]
		if err := step.Action.FromToken.Validate(); err != nil {
			return fmt.Errorf("step %d from token: %w", i, err)
		}
		if err := step.Action.ToToken.Validate(); err != nil {
			return fmt.Errorf("step %d to token: %w", i, err)
		}
		if step.Action.FromChainID == "" || step.Action.ToChainID == "" {
			return fmt.Errorf("step %d: chain ids are required", i)
		}
		if !units.ValidBase(step.Action.FromAmount) {
			return fmt.Errorf("step %d from amount %q is not a base-unit integer", i, step.Action.FromAmount)
		}
		if step.Execution != nil {
			if !step.Execution.Status.valid() {
				return fmt.Errorf("step %d: unknown execution status %q", i, step.Execution.Status)
			}
			for j, p := range step.Execution.Process {
				if !p.Status.valid() {
					return fmt.Errorf("step %d process %d: unknown status %q", i, j, p.Status)
				}
			}
		}
	}
	return nil
}

// Clone returns a deep copy so snapshots never alias live execution records
func (r *Route) Clone() *Route {
	if r == nil {
		return nil
	}
	out := *r
	out.Steps = make([]Step, len(r.Steps))
	copy(out.Steps, r.Steps)
	for i := range out.Steps {
		out.Steps[i].Execution = r.Steps[i].Execution.Clone()
	}
	return &out
}

// FirstStep returns the first step; routes are validated to have at least one
func (r *Route) FirstStep() *Step {
	return &r.Steps[0]
}

// LastStep returns the final step
func (r *Route) LastStep() *Step {
	return &r.Steps[len(r.Steps)-1]
}

// FirstPendingStep returns the index of the first step that is not done,
// or len(Steps) when every step is done
func (r *Route) FirstPendingStep() int {
	for i := range r.Steps {
		if !r.Steps[i].IsDone() {
			return i
		}
	}
	return len(r.Steps)
}

func (s ProcessStatus) valid() bool {
	switch s {
	case ProcessPending, ProcessDone, ProcessFailed, ProcessCancelled:
		return true
	}
	return false
}
