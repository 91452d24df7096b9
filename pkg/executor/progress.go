package executor

import (
	"time"

	"cross-swap/pkg/types"
)

// TxSummary is one known transaction of the route
type TxSummary struct {
	Step     int                 `json:"step"`
	StepName string              `json:"stepName"`
	Type     string              `json:"type"`
	ChainID  string              `json:"chainId"`
	Hash     string              `json:"hash"`
	Status   types.ProcessStatus `json:"status"`
}

// Progress is derived from the route and status on every update
type Progress struct {
	CurrentStep     int           `json:"currentStep"`
	TotalSteps      int           `json:"totalSteps"`
	CurrentStepName string        `json:"currentStepName"`
	Status          types.Status  `json:"status"`
	Transactions    []TxSummary   `json:"transactions"`
	ETA             time.Duration `json:"eta,omitempty"`
}

// BuildProgress derives progress from a route. CurrentStep counts finished
// steps, so it stays in [0, TotalSteps].
func BuildProgress(route *types.Route, status types.Status) Progress {
	p := Progress{Status: status}
	if route == nil {
		return p
	}

	p.TotalSteps = len(route.Steps)
	p.CurrentStep = route.FirstPendingStep()
	if status == types.StatusCompleted {
		p.CurrentStep = p.TotalSteps
	}
	if p.CurrentStep < p.TotalSteps {
		p.CurrentStepName = route.Steps[p.CurrentStep].Name()
	}

	for i := range route.Steps {
		step := &route.Steps[i]
		if step.Execution == nil {
			continue
		}
		for _, proc := range step.Execution.Process {
			if proc.TxHash == "" {
				continue
			}
			chain := proc.ChainID
			if chain == "" {
				chain = step.Action.FromChainID
			}
			p.Transactions = append(p.Transactions, TxSummary{
				Step:     i,
				StepName: step.Name(),
				Type:     proc.Type,
				ChainID:  chain,
				Hash:     proc.TxHash,
				Status:   proc.Status,
			})
		}
	}

	if !status.IsTerminal() {
		for i := p.CurrentStep; i < p.TotalSteps; i++ {
			p.ETA += route.Steps[i].Estimate.Duration()
		}
	}
	return p
}
