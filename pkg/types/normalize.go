package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ChainResolver maps a provider-side chain identifier ("1", "8453", "sol") to the
// internal chain key. It returns false for chains it does not know.
type ChainResolver func(providerChain string) (string, bool)

// DecodeRoute is the single normalization boundary for route payloads coming from
// outside the process. Provider payloads use numbers and strings interchangeably,
// numeric chain ids and upper-case statuses; the result is a validated strict Route.
func DecodeRoute(data []byte, resolve ChainResolver) (*Route, error) {
	var w wireRoute
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode route: %w", err)
	}

	n := normalizer{resolve: resolve}
	route := &Route{
		ID:            string(w.ID),
		FromChainID:   n.chain(w.FromChainID),
		ToChainID:     n.chain(w.ToChainID),
		FromToken:     n.token(w.FromToken),
		ToToken:       n.token(w.ToToken),
		FromAmount:    string(w.FromAmount),
		ToAmount:      string(w.ToAmount),
		ToAmountMin:   string(w.ToAmountMin),
		FromAmountUSD: string(w.FromAmountUSD),
		ToAmountUSD:   string(w.ToAmountUSD),
		FromAddress:   string(w.FromAddress),
		ToAddress:     string(w.ToAddress),
		QuotedAt:      w.QuotedAt,
	}

	for i, ws := range w.Steps {
		step := Step{
			ID:   string(ws.ID),
			Type: strings.ToLower(string(ws.Type)),
			Tool: string(ws.Tool),
			Action: Action{
				FromToken:   n.token(ws.Action.FromToken),
				ToToken:     n.token(ws.Action.ToToken),
				FromAmount:  string(ws.Action.FromAmount),
				FromChainID: n.chain(ws.Action.FromChainID),
				ToChainID:   n.chain(ws.Action.ToChainID),
				FromAddress: string(ws.Action.FromAddress),
				ToAddress:   string(ws.Action.ToAddress),
			},
			Estimate: Estimate{
				ToAmount:        string(ws.Estimate.ToAmount),
				ToAmountMin:     string(ws.Estimate.ToAmountMin),
				ApprovalAddress: string(ws.Estimate.ApprovalAddress),
				FromAmountUSD:   string(ws.Estimate.FromAmountUSD),
				ToAmountUSD:     string(ws.Estimate.ToAmountUSD),
			},
			DepositAddress: string(ws.DepositAddress),
			DepositMemo:    string(ws.DepositMemo),
		}
		if ws.Action.Slippage != "" {
			if v, err := strconv.ParseFloat(string(ws.Action.Slippage), 64); err == nil {
				step.Action.Slippage = v
			}
		}
		if ws.Estimate.ExecutionDuration != "" {
			if secs, err := strconv.ParseFloat(string(ws.Estimate.ExecutionDuration), 64); err == nil {
				step.Estimate.ExecutionDuration = secs
			}
		}
		if ws.Execution != nil {
			exec, err := n.execution(ws.Execution, step.Action.FromChainID)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
			step.Execution = exec
		}
		route.Steps = append(route.Steps, step)
	}
	if n.err != nil {
		return nil, n.err
	}

	// Route-level fields are optional in some payloads; derive them from the legs.
	if len(route.Steps) > 0 {
		first, last := route.Steps[0], route.Steps[len(route.Steps)-1]
		if route.FromChainID == "" {
			route.FromChainID = first.Action.FromChainID
		}
		if route.ToChainID == "" {
			route.ToChainID = last.Action.ToChainID
		}
		if route.FromToken.Symbol == "" {
			route.FromToken = first.Action.FromToken
		}
		if route.ToToken.Symbol == "" {
			route.ToToken = last.Action.ToToken
		}
		if route.FromAmount == "" {
			route.FromAmount = first.Action.FromAmount
		}
		if route.ToAmount == "" {
			route.ToAmount = last.Estimate.ToAmount
		}
	}

	if err := route.Validate(); err != nil {
		return nil, err
	}
	return route, nil
}

// ParseProcessStatus maps provider status spellings onto the four internal statuses
func ParseProcessStatus(s string) (ProcessStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "done", "success", "completed":
		return ProcessDone, nil
	case "", "pending", "started", "action_required", "not_started", "processing":
		return ProcessPending, nil
	case "failed", "refunded":
		return ProcessFailed, nil
	case "cancelled", "canceled":
		return ProcessCancelled, nil
	}
	return "", fmt.Errorf("unknown process status %q", s)
}

type normalizer struct {
	resolve ChainResolver
	err     error
}

func (n *normalizer) chain(c flexString) string {
	raw := string(c)
	if raw == "" || n.resolve == nil {
		return raw
	}
	key, ok := n.resolve(raw)
	if !ok {
		if n.err == nil {
			n.err = fmt.Errorf("unsupported chain %q", raw)
		}
		return raw
	}
	return key
}

func (n *normalizer) token(t wireToken) Token {
	out := Token{
		Symbol:   string(t.Symbol),
		Name:     string(t.Name),
		ChainID:  n.chain(t.ChainID),
		Address:  string(t.Address),
		LogoURI:  string(t.LogoURI),
		PriceUSD: string(t.PriceUSD),
	}
	if t.Decimals != "" {
		d, err := strconv.ParseInt(string(t.Decimals), 10, 32)
		if err != nil && n.err == nil {
			n.err = fmt.Errorf("token %s: invalid decimals %q", t.Symbol, t.Decimals)
		}
		out.Decimals = int32(d)
	}
	return out
}

func (n *normalizer) execution(w *wireExecution, defaultChain string) (*Execution, error) {
	status, err := ParseProcessStatus(string(w.Status))
	if err != nil {
		return nil, err
	}
	exec := &Execution{
		Status:     status,
		FromAmount: string(w.FromAmount),
		ToAmount:   string(w.ToAmount),
	}
	for _, wp := range w.Process {
		ps, err := ParseProcessStatus(string(wp.Status))
		if err != nil {
			return nil, err
		}
		chain := defaultChain
		if wp.ChainID != "" {
			chain = n.chain(wp.ChainID)
		}
		exec.Process = append(exec.Process, Process{
			Type:    strings.ToLower(string(wp.Type)),
			Status:  ps,
			TxHash:  string(wp.TxHash),
			ChainID: chain,
			Message: string(wp.Message),
			Started: wp.Started,
			Done:    wp.Done,
		})
	}
	return exec, nil
}

// flexString accepts a JSON string, number or null
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(b))
	}
	*f = flexString(num.String())
	return nil
}

type wireToken struct {
	Symbol   flexString `json:"symbol"`
	Name     flexString `json:"name"`
	Decimals flexString `json:"decimals"`
	ChainID  flexString `json:"chainId"`
	Address  flexString `json:"address"`
	LogoURI  flexString `json:"logoURI"`
	PriceUSD flexString `json:"priceUSD"`
}

type wireProcess struct {
	Type    flexString `json:"type"`
	Status  flexString `json:"status"`
	TxHash  flexString `json:"txHash"`
	ChainID flexString `json:"chainId"`
	Message flexString `json:"message"`
	Started time.Time  `json:"startedAt"`
	Done    *time.Time `json:"doneAt"`
}

type wireExecution struct {
	Status     flexString    `json:"status"`
	Process    []wireProcess `json:"process"`
	FromAmount flexString    `json:"fromAmount"`
	ToAmount   flexString    `json:"toAmount"`
}

type wireStep struct {
	ID     flexString `json:"id"`
	Type   flexString `json:"type"`
	Tool   flexString `json:"tool"`
	Action struct {
		FromToken   wireToken  `json:"fromToken"`
		ToToken     wireToken  `json:"toToken"`
		FromAmount  flexString `json:"fromAmount"`
		FromChainID flexString `json:"fromChainId"`
		ToChainID   flexString `json:"toChainId"`
		FromAddress flexString `json:"fromAddress"`
		ToAddress   flexString `json:"toAddress"`
		Slippage    flexString `json:"slippage"`
	} `json:"action"`
	Estimate struct {
		ToAmount          flexString `json:"toAmount"`
		ToAmountMin       flexString `json:"toAmountMin"`
		ApprovalAddress   flexString `json:"approvalAddress"`
		ExecutionDuration flexString `json:"executionDuration"`
		FromAmountUSD     flexString `json:"fromAmountUSD"`
		ToAmountUSD       flexString `json:"toAmountUSD"`
	} `json:"estimate"`
	Execution      *wireExecution `json:"execution"`
	DepositAddress flexString     `json:"depositAddress"`
	DepositMemo    flexString     `json:"depositMemo"`
}

type wireRoute struct {
	ID            flexString `json:"id"`
	FromChainID   flexString `json:"fromChainId"`
	ToChainID     flexString `json:"toChainId"`
	FromToken     wireToken  `json:"fromToken"`
	ToToken       wireToken  `json:"toToken"`
	FromAmount    flexString `json:"fromAmount"`
	ToAmount      flexString `json:"toAmount"`
	ToAmountMin   flexString `json:"toAmountMin"`
	FromAmountUSD flexString `json:"fromAmountUSD"`
	ToAmountUSD   flexString `json:"toAmountUSD"`
	FromAddress   flexString `json:"fromAddress"`
	ToAddress     flexString `json:"toAddress"`
	Steps         []wireStep `json:"steps"`
	QuotedAt      time.Time  `json:"quotedAt"`
}
