package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cross-swap/pkg/executor"
	"cross-swap/pkg/recorder"
	"cross-swap/pkg/swaperr"
	"cross-swap/pkg/tokenmap"
	"cross-swap/pkg/types"
	"cross-swap/pkg/wallet"
)

type fakeAPI struct {
	mu         sync.Mutex
	tokens     []Asset
	tokenHits  int
	quote      *Quote
	params     []QuoteParams
	statuses   []*SwapStatus
	statusErrs []error
	polls      int
	submitted  []string
}

func (f *fakeAPI) Tokens(ctx context.Context) ([]Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenHits++
	return f.tokens, nil
}

func (f *fakeAPI) Quote(ctx context.Context, params QuoteParams) (*Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = append(f.params, params)
	q := *f.quote
	if params.Dry {
		q.DepositAddress = ""
	}
	return &q, nil
}

func (f *fakeAPI) Status(ctx context.Context, depositAddress string) (*SwapStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statusErrs) > 0 {
		err := f.statusErrs[0]
		f.statusErrs = f.statusErrs[1:]
		return nil, err
	}
	i := f.polls
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	f.polls++
	return f.statuses[i], nil
}

func (f *fakeAPI) SubmitDeposit(ctx context.Context, depositAddress, txHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, depositAddress+":"+txHash)
	return nil
}

type fakeDepositor struct {
	chains    []string
	transfers []wallet.Transfer
	err       error
}

func (f *fakeDepositor) SendDeposit(ctx context.Context, chain string, t wallet.Transfer) (string, error) {
	f.chains = append(f.chains, chain)
	f.transfers = append(f.transfers, t)
	if f.err != nil {
		return "", f.err
	}
	return "0xdeposit", nil
}

// chainWallet is always on one chain
type chainWallet string

func (w chainWallet) ActiveChain(ctx context.Context) (string, error) { return string(w), nil }

func (w chainWallet) SwitchChain(ctx context.Context, chain string) error {
	if chain != string(w) {
		return errors.New("unexpected chain switch to " + chain)
	}
	return nil
}

var (
	usdcBase = types.Token{Symbol: "USDC", Decimals: 6, ChainID: "base", Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"}
	ethArb   = types.Token{Symbol: "ETH", Decimals: 18, ChainID: "arb", Address: tokenmap.NativeAddress}
)

func testAssets() []Asset {
	return []Asset{
		{AssetID: "nep141:base-usdc", Symbol: "USDC", Blockchain: "base", ContractAddress: "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913", Decimals: 6},
		{AssetID: "nep141:arb-weth", Symbol: "ETH", Blockchain: "arb", ContractAddress: "0x82af49447d8a07e3bd95bd0d56f35241523fbab1", Decimals: 18},
		{AssetID: "nep141:arb.omft.near", Symbol: "ETH", Blockchain: "arb", Decimals: 18},
		{AssetID: "nep141:sol.omft.near", Symbol: "SOL", Blockchain: "sol", Decimals: 9},
	}
}

func newTestProvider(api *fakeAPI, dep *fakeDepositor) *Provider {
	if api.tokens == nil {
		api.tokens = testAssets()
	}
	if api.quote == nil {
		api.quote = &Quote{
			DepositAddress: "0xdepositaddr",
			AmountIn:       "100000000",
			AmountOut:      "40000000000000000",
			AmountInUSD:    "100.02",
			AmountOutUSD:   "99.71",
			TimeEstimate:   45,
		}
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewProvider(api, dep, tokenmap.NewMapper(tokenmap.DefaultChains()), time.Millisecond, log)
}

func quoteReq() executor.QuoteRequest {
	req := types.QuoteRequest{
		FromToken:   usdcBase,
		ToToken:     ethArb,
		FromAmount:  "100000000",
		FromAddress: "0xwallet",
		Slippage:    0.005,
	}
	m := tokenmap.NewMapper(tokenmap.DefaultChains())
	from, _ := m.ToProviderToken(req.FromToken)
	to, _ := m.ToProviderToken(req.ToToken)
	return executor.QuoteRequest{QuoteRequest: req, From: from, To: to}
}

func TestFindAsset(t *testing.T) {
	p := newTestProvider(&fakeAPI{}, &fakeDepositor{})
	ctx := context.Background()

	a, err := p.FindAsset(ctx, usdcBase)
	require.NoError(t, err)
	assert.Equal(t, "nep141:base-usdc", a.AssetID)

	// native ETH is not the wrapped contract
	a, err = p.FindAsset(ctx, ethArb)
	require.NoError(t, err)
	assert.Equal(t, "nep141:arb.omft.near", a.AssetID)

	_, err = p.FindAsset(ctx, types.Token{Symbol: "DOGE", Decimals: 8, ChainID: "base", Address: "0x4200000000000000000000000000000000000042"})
	require.Error(t, err)
	assert.Equal(t, swaperr.KindUnsupportedRoute, swaperr.KindOf(err))

	_, err = p.FindAsset(ctx, types.Token{Symbol: "FTM", ChainID: "fantom"})
	assert.ErrorIs(t, err, tokenmap.ErrUnsupportedChain)
}

func TestResolveToken(t *testing.T) {
	p := newTestProvider(&fakeAPI{}, &fakeDepositor{})
	ctx := context.Background()

	_, err := p.ResolveToken(ctx, "eth", "arbitrum")
	require.Error(t, err)

	tok, err := p.ResolveToken(ctx, "eth", "arb")
	require.NoError(t, err)
	assert.Equal(t, tokenmap.NativeAddress, tok.Address)
	assert.Equal(t, int32(18), tok.Decimals)
	assert.True(t, p.mapper.IsNative(tok))

	tok, err = p.ResolveToken(ctx, "USDC", "base")
	require.NoError(t, err)
	assert.Equal(t, "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913", tok.Address)
	assert.Equal(t, "base", tok.ChainID)

	tok, err = p.ResolveToken(ctx, "SOL", "sol")
	require.NoError(t, err)
	assert.True(t, p.mapper.IsNative(tok))

	_, err = p.ResolveToken(ctx, "USDT", "base")
	assert.Equal(t, swaperr.KindUnsupportedRoute, swaperr.KindOf(err))
}

func TestAssetsAreCached(t *testing.T) {
	api := &fakeAPI{}
	p := newTestProvider(api, &fakeDepositor{})
	ctx := context.Background()

	_, err := p.Assets(ctx)
	require.NoError(t, err)
	_, err = p.Assets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, api.tokenHits)

	later := time.Now().Add(tokensTTL + time.Second)
	p.now = func() time.Time { return later }
	_, err = p.Assets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, api.tokenHits)
}

func TestQuoteBuildsSingleStepRoute(t *testing.T) {
	api := &fakeAPI{}
	p := newTestProvider(api, &fakeDepositor{})

	route, err := p.Quote(context.Background(), quoteReq())
	require.NoError(t, err)
	require.NoError(t, route.Validate())

	require.Len(t, api.params, 1)
	params := api.params[0]
	assert.False(t, params.Dry)
	assert.Equal(t, 50, params.SlippageBps)
	assert.Equal(t, "nep141:base-usdc", params.OriginAsset.AssetID)
	assert.Equal(t, "nep141:arb.omft.near", params.DestinationAsset.AssetID)
	assert.Equal(t, "0xwallet", params.Recipient)
	assert.Equal(t, "0xwallet", params.RefundTo)

	assert.Equal(t, "0xdepositaddr", route.ID)
	assert.Equal(t, "40000000000000000", route.ToAmount)
	require.Len(t, route.Steps, 1)
	step := route.FirstStep()
	assert.Equal(t, "cross", step.Type)
	assert.Equal(t, Tool, step.Tool)
	assert.Equal(t, "0xdepositaddr", step.DepositAddress)
	assert.Equal(t, 45*time.Second, step.Estimate.Duration())
	assert.False(t, step.NeedsApproval())

	assert.Equal(t, "100.02", route.FromAmountUSD)
	assert.Equal(t, "99.71", route.ToAmountUSD)
	assert.Equal(t, "100.02", step.Estimate.FromAmountUSD)
	rec := recorder.CreatePlaceholder(route, "0xwallet", "sess-1")
	assert.Equal(t, "100.02", rec.ValueUSD)
}

func TestQuoteLooksUpMappedTokens(t *testing.T) {
	api := &fakeAPI{}
	p := newTestProvider(api, &fakeDepositor{})

	req := quoteReq()
	req.To = tokenmap.ProviderToken{Blockchain: "sol", Address: tokenmap.NativeAddress, Symbol: "SOL", Decimals: 9}
	_, err := p.Quote(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "nep141:sol.omft.near", api.params[0].DestinationAsset.AssetID)

	req.To = tokenmap.ProviderToken{Blockchain: "arb", Address: "0x0000000000000000000000000000000000000bad", Symbol: "BAD"}
	_, err = p.Quote(context.Background(), req)
	assert.Equal(t, swaperr.KindUnsupportedRoute, swaperr.KindOf(err))
}

func TestComparisonQuoteIsDry(t *testing.T) {
	api := &fakeAPI{}
	p := newTestProvider(api, &fakeDepositor{})
	route, err := p.Quote(context.Background(), quoteReq())
	require.NoError(t, err)

	api.quote = &Quote{AmountOut: "39000000000000000"}
	fresh, err := p.ComparisonQuote(context.Background(), route)
	require.NoError(t, err)
	assert.True(t, api.params[1].Dry)
	assert.Equal(t, 50, api.params[1].SlippageBps)
	assert.Equal(t, "39000000000000000", fresh.ToAmount)
}

func TestExecuteStepDepositsAndTracks(t *testing.T) {
	api := &fakeAPI{statuses: []*SwapStatus{
		{Status: StatusKnownDepositTx, OriginTxHashes: []string{"0xdeposit"}},
		{Status: StatusProcessing, OriginTxHashes: []string{"0xdeposit"}},
		{Status: StatusSuccess, OriginTxHashes: []string{"0xdeposit"}, DestinationTxHashes: []string{"0xwithdraw"}, AmountOut: "0.0401"},
	}}
	dep := &fakeDepositor{}
	p := newTestProvider(api, dep)
	route, err := p.Quote(context.Background(), quoteReq())
	require.NoError(t, err)

	var reports []types.Execution
	err = p.ExecuteStep(context.Background(), route.FirstStep(), func(exec types.Execution) {
		reports = append(reports, *exec.Clone())
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"base"}, dep.chains)
	require.Len(t, dep.transfers, 1)
	assert.Equal(t, wallet.Transfer{To: "0xdepositaddr", Amount: "100000000", Contract: usdcBase.Address}, dep.transfers[0])
	assert.Equal(t, []string{"0xdepositaddr:0xdeposit"}, api.submitted)

	require.Len(t, reports, 2)
	assert.Equal(t, "0xdeposit", reports[0].LastHash())
	last := reports[1]
	assert.Equal(t, types.ProcessDone, last.Status)
	assert.Equal(t, "40100000000000000", last.ToAmount)
	require.Len(t, last.Process, 2)
	assert.Equal(t, "withdrawal", last.Process[1].Type)
	assert.Equal(t, "arb", last.Process[1].ChainID)
	assert.Equal(t, types.ProcessDone, last.Process[1].Status)
}

func TestExecuteStepRefunded(t *testing.T) {
	api := &fakeAPI{statuses: []*SwapStatus{{Status: StatusRefunded}}}
	p := newTestProvider(api, &fakeDepositor{})
	route, err := p.Quote(context.Background(), quoteReq())
	require.NoError(t, err)

	var last types.Execution
	err = p.ExecuteStep(context.Background(), route.FirstStep(), func(exec types.Execution) { last = exec })
	require.Error(t, err)
	assert.Equal(t, swaperr.KindExecutionFailed, swaperr.KindOf(err))
	assert.Equal(t, types.ProcessFailed, last.Status)
	assert.Equal(t, types.ProcessFailed, last.Process[0].Status)
}

func TestExecuteStepWalletRejection(t *testing.T) {
	api := &fakeAPI{}
	dep := &fakeDepositor{err: errors.New("user rejected the request")}
	p := newTestProvider(api, dep)
	route, err := p.Quote(context.Background(), quoteReq())
	require.NoError(t, err)

	reported := false
	err = p.ExecuteStep(context.Background(), route.FirstStep(), func(types.Execution) { reported = true })
	assert.Equal(t, swaperr.KindUserRejected, swaperr.KindOf(err))
	assert.False(t, reported)
	assert.Empty(t, api.submitted)
}

func TestExecuteStepRefusesSubmittedStep(t *testing.T) {
	dep := &fakeDepositor{}
	p := newTestProvider(&fakeAPI{}, dep)
	route, err := p.Quote(context.Background(), quoteReq())
	require.NoError(t, err)

	step := route.FirstStep()
	step.Execution = &types.Execution{Status: types.ProcessPending, Process: []types.Process{
		{Type: "deposit", Status: types.ProcessPending, TxHash: "0xdeposit"},
	}}
	err = p.ExecuteStep(context.Background(), step, func(types.Execution) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0xdeposit")
	assert.Empty(t, dep.transfers)
}

func TestIncompleteDepositStaysPending(t *testing.T) {
	api := &fakeAPI{statuses: []*SwapStatus{{Status: StatusIncompleteDeposit, OriginTxHashes: []string{"0xdeposit"}}}}
	p := newTestProvider(api, &fakeDepositor{})
	route, err := p.Quote(context.Background(), quoteReq())
	require.NoError(t, err)

	var last types.Execution
	err = p.ExecuteStep(context.Background(), route.FirstStep(), func(exec types.Execution) { last = exec })
	assert.Equal(t, swaperr.KindInsufficientBalance, swaperr.KindOf(err))
	assert.Equal(t, types.ProcessPending, last.Status)
	assert.Equal(t, "0xdeposit", last.LastHash())
}

func TestRetryAfterRateLimitedPollDepositsOnce(t *testing.T) {
	api := &fakeAPI{
		statusErrs: []error{errors.New("get status: API error (status 429): too many requests")},
		statuses:   []*SwapStatus{{Status: StatusSuccess, OriginTxHashes: []string{"0xdeposit"}, AmountOut: "0.04"}},
	}
	dep := &fakeDepositor{}
	p := newTestProvider(api, dep)
	exec, err := executor.New(executor.Options{
		Provider: p,
		Wallet:   chainWallet("base"),
		Mapper:   p.mapper,
		Logger:   p.log,
	})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = exec.RequestQuote(ctx, quoteReq().QuoteRequest)
	require.NoError(t, err)
	require.NoError(t, exec.Present())

	err = exec.Confirm(ctx)
	assert.Equal(t, swaperr.KindRateLimitExceeded, swaperr.KindOf(err))
	require.True(t, exec.Parked())
	assert.Equal(t, types.StatusConfirming, exec.Status())
	assert.Len(t, dep.transfers, 1)

	require.NoError(t, exec.Retry(ctx))
	assert.Equal(t, types.StatusCompleted, exec.Status())
	assert.Len(t, dep.transfers, 1)
	assert.Equal(t, []string{"0xdepositaddr:0xdeposit"}, api.submitted)
}

func TestResumeStepDoesNotDeposit(t *testing.T) {
	api := &fakeAPI{statuses: []*SwapStatus{{Status: StatusSuccess, OriginTxHashes: []string{"0xdeposit"}}}}
	dep := &fakeDepositor{}
	p := newTestProvider(api, dep)
	route, err := p.Quote(context.Background(), quoteReq())
	require.NoError(t, err)

	step := route.FirstStep()
	step.Execution = &types.Execution{Status: types.ProcessPending, Process: []types.Process{
		{Type: "deposit", Status: types.ProcessPending, TxHash: "0xdeposit"},
	}}
	var last types.Execution
	require.NoError(t, p.ResumeStep(context.Background(), step, func(exec types.Execution) { last = exec }))

	assert.Empty(t, dep.transfers)
	assert.Equal(t, types.ProcessDone, last.Status)
	assert.Len(t, last.Process, 1)
}

func TestTrackStopsOnCancel(t *testing.T) {
	api := &fakeAPI{statuses: []*SwapStatus{{Status: StatusPendingDeposit}}}
	p := newTestProvider(api, &fakeDepositor{})
	route, err := p.Quote(context.Background(), quoteReq())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = p.ResumeStep(ctx, route.FirstStep(), func(types.Execution) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSlippageBps(t *testing.T) {
	assert.Equal(t, 100, slippageBps(0))
	assert.Equal(t, 100, slippageBps(0.01))
	assert.Equal(t, 50, slippageBps(0.005))
	assert.Equal(t, 300, slippageBps(0.03))
}

func TestToBase(t *testing.T) {
	v, err := toBase("1.5", 6)
	require.NoError(t, err)
	assert.Equal(t, "1500000", v)

	v, err = toBase("0.1234567", 6)
	require.NoError(t, err)
	assert.Equal(t, "123456", v)

	_, err = toBase("abc", 6)
	assert.Error(t, err)
}
