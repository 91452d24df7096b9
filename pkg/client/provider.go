package client

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cross-swap/pkg/executor"
	"cross-swap/pkg/tokenmap"
	"cross-swap/pkg/types"
	"cross-swap/pkg/wallet"
)

const (
	// Tool names the routing provider on every step
	Tool = "1click"

	defaultPollInterval = 5 * time.Second
	quoteDeadline       = 24 * time.Hour
	tokensTTL           = 10 * time.Minute
)

// 1Click execution statuses
const (
	StatusPendingDeposit    = "PENDING_DEPOSIT"
	StatusKnownDepositTx    = "KNOWN_DEPOSIT_TX"
	StatusIncompleteDeposit = "INCOMPLETE_DEPOSIT"
	StatusProcessing        = "PROCESSING"
	StatusSuccess           = "SUCCESS"
	StatusRefunded          = "REFUNDED"
	StatusFailed            = "FAILED"
)

// Depositor sends the deposit transfer of a step from the connected wallet
type Depositor interface {
	SendDeposit(ctx context.Context, chain string, t wallet.Transfer) (string, error)
}

// Provider quotes and executes routes through 1Click. Each route is a single
// deposit step: the user transfers to the quote's deposit address and the
// solver network delivers on the destination chain.
type Provider struct {
	api          API
	depositor    Depositor
	mapper       *tokenmap.Mapper
	pollInterval time.Duration
	log          *slog.Logger
	now          func() time.Time

	mu       sync.Mutex
	assets   []Asset
	loadedAt time.Time
}

// NewProvider creates a provider. pollInterval <= 0 uses the default.
func NewProvider(api API, depositor Depositor, mapper *tokenmap.Mapper, pollInterval time.Duration, log *slog.Logger) *Provider {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Provider{
		api:          api,
		depositor:    depositor,
		mapper:       mapper,
		pollInterval: pollInterval,
		log:          log,
		now:          time.Now,
	}
}

// Assets returns the supported tokens, cached for a few minutes
func (p *Provider) Assets(ctx context.Context) ([]Asset, error) {
	p.mu.Lock()
	if p.assets != nil && p.now().Sub(p.loadedAt) < tokensTTL {
		out := p.assets
		p.mu.Unlock()
		return out, nil
	}
	p.mu.Unlock()

	assets, err := p.api.Tokens(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.assets = assets
	p.loadedAt = p.now()
	p.mu.Unlock()
	return assets, nil
}

// FindAsset looks a token up by chain and contract address; native tokens and
// tokens without an address fall back to the symbol
func (p *Provider) FindAsset(ctx context.Context, t types.Token) (Asset, error) {
	pt, err := p.mapper.ToProviderToken(t)
	if err != nil {
		return Asset{}, err
	}
	return p.findAsset(ctx, pt)
}

// findAsset matches a mapped token against the 1Click asset list
func (p *Provider) findAsset(ctx context.Context, pt tokenmap.ProviderToken) (Asset, error) {
	assets, err := p.Assets(ctx)
	if err != nil {
		return Asset{}, err
	}

	native := pt.Address == tokenmap.NativeAddress
	var bySymbol *Asset
	for i := range assets {
		a := &assets[i]
		if !strings.EqualFold(a.Blockchain, pt.Blockchain) {
			continue
		}
		if !native && a.ContractAddress != "" && strings.EqualFold(a.ContractAddress, pt.Address) {
			return *a, nil
		}
		if strings.EqualFold(a.Symbol, pt.Symbol) && bySymbol == nil {
			if native && a.ContractAddress != "" {
				continue
			}
			bySymbol = a
		}
	}
	if bySymbol != nil {
		return *bySymbol, nil
	}
	return Asset{}, fmt.Errorf("unsupported token %s on %s", pt.Symbol, pt.Blockchain)
}

// ResolveToken finds a supported token by symbol on a chain. The native
// token is preferred when a wrapped contract shares its symbol.
func (p *Provider) ResolveToken(ctx context.Context, symbol, chain string) (types.Token, error) {
	c, err := p.mapper.Chain(chain)
	if err != nil {
		return types.Token{}, err
	}
	assets, err := p.Assets(ctx)
	if err != nil {
		return types.Token{}, err
	}

	var match *Asset
	for i := range assets {
		a := &assets[i]
		if !strings.EqualFold(a.Blockchain, c.Blockchain) || !strings.EqualFold(a.Symbol, symbol) {
			continue
		}
		if a.ContractAddress == "" {
			match = a
			break
		}
		if match == nil {
			match = a
		}
	}
	if match == nil {
		return types.Token{}, fmt.Errorf("unsupported token %s on %s", strings.ToUpper(symbol), c.Name)
	}

	addr := match.ContractAddress
	if addr == "" {
		addr = c.NativeAddress
	}
	if addr == "" {
		addr = tokenmap.NativeAddress
	}
	return types.Token{
		Symbol:   match.Symbol,
		Decimals: match.Decimals,
		ChainID:  c.Key,
		Address:  addr,
	}, nil
}

// Quote requests a committed quote with a deposit address
func (p *Provider) Quote(ctx context.Context, req executor.QuoteRequest) (*types.Route, error) {
	return p.quote(ctx, req.QuoteRequest, req.From, req.To, false)
}

// ComparisonQuote re-quotes route as a dry run
func (p *Provider) ComparisonQuote(ctx context.Context, route *types.Route) (*types.Route, error) {
	from, err := p.mapper.ToProviderToken(route.FromToken)
	if err != nil {
		return nil, err
	}
	to, err := p.mapper.ToProviderToken(route.ToToken)
	if err != nil {
		return nil, err
	}
	step := route.FirstStep()
	return p.quote(ctx, types.QuoteRequest{
		FromToken:   route.FromToken,
		ToToken:     route.ToToken,
		FromAmount:  route.FromAmount,
		FromAddress: route.FromAddress,
		ToAddress:   route.ToAddress,
		Slippage:    step.Action.Slippage,
	}, from, to, true)
}

func (p *Provider) quote(ctx context.Context, req types.QuoteRequest, from, to tokenmap.ProviderToken, dry bool) (*types.Route, error) {
	origin, err := p.findAsset(ctx, from)
	if err != nil {
		return nil, err
	}
	destination, err := p.findAsset(ctx, to)
	if err != nil {
		return nil, err
	}

	recipient := req.ToAddress
	if recipient == "" {
		recipient = req.FromAddress
	}
	if recipient == "" {
		return nil, fmt.Errorf("recipient address is required")
	}
	refundTo := req.FromAddress
	if refundTo == "" {
		refundTo = recipient
	}

	q, err := p.api.Quote(ctx, QuoteParams{
		Dry:              dry,
		SlippageBps:      slippageBps(req.Slippage),
		OriginAsset:      origin,
		DestinationAsset: destination,
		Amount:           req.FromAmount,
		RefundTo:         refundTo,
		Recipient:        recipient,
		Deadline:         p.now().Add(quoteDeadline),
	})
	if err != nil {
		return nil, err
	}
	if !dry && q.DepositAddress == "" {
		return nil, fmt.Errorf("quote has no deposit address")
	}

	p.log.Debug("Quote received",
		"from", req.FromToken.String(),
		"to", req.ToToken.String(),
		"amountIn", req.FromAmount,
		"amountOut", q.AmountOut,
		"dry", dry)
	return buildRoute(req, refundTo, recipient, q, p.now()), nil
}

// slippageBps converts a fraction to basis points; 0 means 1%
func slippageBps(fraction float64) int {
	if fraction <= 0 {
		return 100
	}
	return int(math.Round(fraction * 10000))
}

func buildRoute(req types.QuoteRequest, from, to string, q *Quote, now time.Time) *types.Route {
	stepType := "swap"
	if req.FromToken.ChainID != req.ToToken.ChainID {
		stepType = "cross"
	}
	id := q.DepositAddress
	if id == "" {
		id = uuid.NewString()
	}

	return &types.Route{
		ID:            id,
		FromChainID:   req.FromToken.ChainID,
		ToChainID:     req.ToToken.ChainID,
		FromToken:     req.FromToken,
		ToToken:       req.ToToken,
		FromAmount:    req.FromAmount,
		ToAmount:      q.AmountOut,
		FromAmountUSD: q.AmountInUSD,
		ToAmountUSD:   q.AmountOutUSD,
		FromAddress:   from,
		ToAddress:     to,
		QuotedAt:      now,
		Steps: []types.Step{{
			ID:   uuid.NewString(),
			Type: stepType,
			Tool: Tool,
			Action: types.Action{
				FromToken:   req.FromToken,
				ToToken:     req.ToToken,
				FromAmount:  req.FromAmount,
				FromChainID: req.FromToken.ChainID,
				ToChainID:   req.ToToken.ChainID,
				FromAddress: from,
				ToAddress:   to,
				Slippage:    req.Slippage,
			},
			Estimate: types.Estimate{
				ToAmount:          q.AmountOut,
				FromAmountUSD:     q.AmountInUSD,
				ToAmountUSD:       q.AmountOutUSD,
				ExecutionDuration: q.TimeEstimate,
			},
			DepositAddress: q.DepositAddress,
			DepositMemo:    q.DepositMemo,
		}},
	}
}

// Approve is a no-op: deposits are plain transfers and need no allowance
func (p *Provider) Approve(ctx context.Context, step *types.Step) error {
	return nil
}

// ExecuteStep sends the deposit, submits its hash and tracks the swap to completion
func (p *Provider) ExecuteStep(ctx context.Context, step *types.Step, report executor.Reporter) error {
	if step.DepositAddress == "" {
		return fmt.Errorf("step %s has no deposit address", step.ID)
	}
	if h := step.Execution.LastHash(); h != "" {
		return fmt.Errorf("step %s already has deposit %s", step.ID, h)
	}
	if step.DepositMemo != "" {
		return fmt.Errorf("deposit memo is not supported on %s", step.Action.FromChainID)
	}

	transfer := wallet.Transfer{
		To:     step.DepositAddress,
		Amount: step.Action.FromAmount,
	}
	if !p.mapper.IsNative(step.Action.FromToken) {
		transfer.Contract = step.Action.FromToken.Address
	}

	hash, err := p.depositor.SendDeposit(ctx, step.Action.FromChainID, transfer)
	if err != nil {
		return err
	}

	exec := types.Execution{
		Status:     types.ProcessPending,
		FromAmount: step.Action.FromAmount,
		Process: []types.Process{{
			Type:    "deposit",
			Status:  types.ProcessPending,
			TxHash:  hash,
			ChainID: step.Action.FromChainID,
			Started: p.now(),
		}},
	}
	report(exec)

	if err := p.api.SubmitDeposit(ctx, step.DepositAddress, hash); err != nil {
		// the deposit is detected on-chain anyway, submitting only speeds it up
		p.log.Warn("Failed to submit deposit hash", "deposit", step.DepositAddress, "hash", hash, "error", err)
	}
	return p.track(ctx, step, exec, report)
}

// ResumeStep tracks a deposit that was sent before the process stopped
func (p *Provider) ResumeStep(ctx context.Context, step *types.Step, report executor.Reporter) error {
	if step.DepositAddress == "" {
		return fmt.Errorf("step %s has no deposit address", step.ID)
	}
	exec := types.Execution{Status: types.ProcessPending, FromAmount: step.Action.FromAmount}
	if step.Execution != nil {
		exec = *step.Execution.Clone()
	}
	return p.track(ctx, step, exec, report)
}

// track polls the swap status until it settles
func (p *Provider) track(ctx context.Context, step *types.Step, exec types.Execution, report executor.Reporter) error {
	for {
		status, err := p.api.Status(ctx, step.DepositAddress)
		if err != nil {
			return err
		}

		done, err := p.apply(step, &exec, status)
		if done || err != nil {
			report(exec)
			return err
		}
		if p.observe(step, &exec, status) {
			report(exec)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.pollInterval):
		}
	}
}

// apply handles the settled statuses
func (p *Provider) apply(step *types.Step, exec *types.Execution, status *SwapStatus) (bool, error) {
	now := p.now()
	switch status.Status {
	case StatusSuccess:
		p.observe(step, exec, status)
		for i := range exec.Process {
			if exec.Process[i].Status == types.ProcessPending {
				exec.Process[i].Status = types.ProcessDone
				exec.Process[i].Done = &now
			}
		}
		exec.Status = types.ProcessDone
		if status.AmountOut != "" {
			if amt, err := toBase(status.AmountOut, step.Action.ToToken.Decimals); err == nil {
				exec.ToAmount = amt
			}
		}
		p.log.Info("Swap completed", "deposit", step.DepositAddress, "amountOut", status.AmountOut)
		return true, nil

	case StatusFailed, StatusRefunded:
		for i := range exec.Process {
			if exec.Process[i].Status == types.ProcessPending {
				exec.Process[i].Status = types.ProcessFailed
				exec.Process[i].Message = strings.ToLower(status.Status)
				exec.Process[i].Done = &now
			}
		}
		exec.Status = types.ProcessFailed
		if status.Status == StatusRefunded {
			return true, fmt.Errorf("swap refunded to origin address (deposit %s)", step.DepositAddress)
		}
		return true, fmt.Errorf("swap execution failed (deposit %s)", step.DepositAddress)

	case StatusIncompleteDeposit:
		// the deposit stays pending so a retry only tracks it
		return true, fmt.Errorf("incomplete deposit to %s: insufficient balance deposited", step.DepositAddress)
	}
	return false, nil
}

// observe folds on-chain hashes reported by the API into exec. It returns true
// when anything changed.
func (p *Provider) observe(step *types.Step, exec *types.Execution, status *SwapStatus) bool {
	changed := false
	known := make(map[string]bool, len(exec.Process))
	for _, proc := range exec.Process {
		known[proc.TxHash] = true
	}
	for _, h := range status.OriginTxHashes {
		if !known[h] {
			exec.Process = append(exec.Process, types.Process{
				Type: "deposit", Status: types.ProcessPending, TxHash: h,
				ChainID: step.Action.FromChainID, Started: p.now(),
			})
			known[h] = true
			changed = true
		}
	}
	for _, h := range status.DestinationTxHashes {
		if !known[h] {
			exec.Process = append(exec.Process, types.Process{
				Type: "withdrawal", Status: types.ProcessPending, TxHash: h,
				ChainID: step.Action.ToChainID, Started: p.now(),
			})
			known[h] = true
			changed = true
		}
	}
	return changed
}
