package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"
	"github.com/shopspring/decimal"
)

// Asset is a token supported by the 1Click API
type Asset struct {
	AssetID         string `json:"assetId"`
	Symbol          string `json:"symbol"`
	Blockchain      string `json:"blockchain"`
	ContractAddress string `json:"contractAddress,omitempty"`
	Decimals        int32  `json:"decimals"`
}

// QuoteParams is an EXACT_INPUT quote request. Amount is in base units of the
// origin asset.
type QuoteParams struct {
	Dry              bool
	SlippageBps      int
	OriginAsset      Asset
	DestinationAsset Asset
	Amount           string
	RefundTo         string
	Recipient        string
	Deadline         time.Time
}

// Quote is a quote with amounts in base units
type Quote struct {
	DepositAddress string
	DepositMemo    string
	AmountIn       string
	AmountOut      string
	AmountInUSD    string
	AmountOutUSD   string
	TimeEstimate   float64
}

// SwapStatus is the execution status of a deposit address
type SwapStatus struct {
	Status              string
	OriginTxHashes      []string
	DestinationTxHashes []string
	AmountOut           string
	UpdatedAt           time.Time
}

// API is the part of the 1Click API the provider drives
type API interface {
	Tokens(ctx context.Context) ([]Asset, error)
	Quote(ctx context.Context, params QuoteParams) (*Quote, error)
	Status(ctx context.Context, depositAddress string) (*SwapStatus, error)
	SubmitDeposit(ctx context.Context, depositAddress, txHash string) error
}

// OneClickClient wraps the 1Click SDK
type OneClickClient struct {
	client *oneclick.APIClient
	token  string
}

// NewOneClickClient creates a new 1Click API client. An empty baseURL keeps the SDK default.
func NewOneClickClient(jwtToken, baseURL string) *OneClickClient {
	config := oneclick.NewConfiguration()
	if baseURL != "" {
		config.Servers = oneclick.ServerConfigurations{{URL: strings.TrimRight(baseURL, "/")}}
	}

	return &OneClickClient{
		client: oneclick.NewAPIClient(config),
		token:  jwtToken,
	}
}

// authenticated attaches the JWT to ctx
func (c *OneClickClient) authenticated(ctx context.Context) context.Context {
	return context.WithValue(ctx, oneclick.ContextAccessToken, c.token)
}

// Tokens retrieves all supported tokens
func (c *OneClickClient) Tokens(ctx context.Context) ([]Asset, error) {
	resp, httpResp, err := c.client.OneClickAPI.GetTokens(c.authenticated(ctx)).Execute()
	if err != nil {
		return nil, apiError("get tokens", httpResp, err)
	}
	defer httpResp.Body.Close()

	assets := make([]Asset, 0, len(resp))
	for _, token := range resp {
		assets = append(assets, Asset{
			AssetID:         token.GetAssetId(),
			Symbol:          token.GetSymbol(),
			Blockchain:      token.GetBlockchain(),
			ContractAddress: token.GetContractAddress(),
			Decimals:        int32(token.GetDecimals()),
		})
	}
	return assets, nil
}

// Quote generates a swap quote. Dry quotes carry no deposit address.
func (c *OneClickClient) Quote(ctx context.Context, params QuoteParams) (*Quote, error) {
	req := oneclick.NewQuoteRequest(
		params.Dry,
		"EXACT_INPUT",
		float32(params.SlippageBps),
		params.OriginAsset.AssetID,
		"ORIGIN_CHAIN",
		params.DestinationAsset.AssetID,
		params.Amount,
		params.RefundTo,
		"ORIGIN_CHAIN",
		params.Recipient,
		"DESTINATION_CHAIN",
		params.Deadline,
	)

	resp, httpResp, err := c.client.OneClickAPI.GetQuote(c.authenticated(ctx)).QuoteRequest(*req).Execute()
	if err != nil {
		return nil, apiError("get quote", httpResp, err)
	}
	defer httpResp.Body.Close()

	if resp == nil {
		return nil, fmt.Errorf("empty quote response")
	}

	details := resp.GetQuote()
	amountIn, err := toBase(details.GetAmountInFormatted(), params.OriginAsset.Decimals)
	if err != nil {
		return nil, fmt.Errorf("quote amount in: %w", err)
	}
	amountOut, err := toBase(details.GetAmountOutFormatted(), params.DestinationAsset.Decimals)
	if err != nil {
		return nil, fmt.Errorf("quote amount out: %w", err)
	}

	q := &Quote{
		DepositAddress: details.GetDepositAddress(),
		AmountIn:       amountIn,
		AmountOut:      amountOut,
		AmountInUSD:    details.GetAmountInUsd(),
		AmountOutUSD:   details.GetAmountOutUsd(),
		TimeEstimate:   float64(details.GetTimeEstimate()),
	}
	if details.HasDepositMemo() {
		q.DepositMemo = details.GetDepositMemo()
	}
	return q, nil
}

// Status checks the execution status of a swap
func (c *OneClickClient) Status(ctx context.Context, depositAddress string) (*SwapStatus, error) {
	resp, httpResp, err := c.client.OneClickAPI.GetExecutionStatus(c.authenticated(ctx)).DepositAddress(depositAddress).Execute()
	if err != nil {
		return nil, apiError("get status", httpResp, err)
	}
	defer httpResp.Body.Close()

	details := resp.GetSwapDetails()
	status := &SwapStatus{
		Status:    strings.ToUpper(resp.GetStatus()),
		UpdatedAt: resp.GetUpdatedAt(),
	}
	for _, tx := range details.GetOriginChainTxHashes() {
		if h := tx.GetHash(); h != "" {
			status.OriginTxHashes = append(status.OriginTxHashes, h)
		}
	}
	for _, tx := range details.GetDestinationChainTxHashes() {
		if h := tx.GetHash(); h != "" {
			status.DestinationTxHashes = append(status.DestinationTxHashes, h)
		}
	}
	if details.HasAmountOutFormatted() {
		status.AmountOut = details.GetAmountOutFormatted()
	}
	return status, nil
}

// SubmitDeposit notifies the API of the deposit transaction hash
func (c *OneClickClient) SubmitDeposit(ctx context.Context, depositAddress, txHash string) error {
	req := oneclick.NewSubmitDepositTxRequestWithDefaults()
	req.SetTxHash(txHash)
	req.SetDepositAddress(depositAddress)

	_, httpResp, err := c.client.OneClickAPI.SubmitDepositTx(c.authenticated(ctx)).SubmitDepositTxRequest(*req).Execute()
	if err != nil {
		return apiError("submit deposit", httpResp, err)
	}
	defer httpResp.Body.Close()
	return nil
}

// apiError extracts the API's message from an error response. The status code
// and any Retry-After header stay in the text so failures classify correctly.
func apiError(op string, httpResp *http.Response, err error) error {
	if httpResp == nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	defer httpResp.Body.Close()

	suffix := ""
	if ra := httpResp.Header.Get("Retry-After"); ra != "" {
		suffix = fmt.Sprintf(" (Retry-After: %s)", ra)
	}

	bodyBytes, readErr := io.ReadAll(httpResp.Body)
	if readErr == nil && len(bodyBytes) > 0 {
		var errorResp map[string]interface{}
		if jsonErr := json.Unmarshal(bodyBytes, &errorResp); jsonErr == nil {
			if message, ok := errorResp["message"].(string); ok {
				return fmt.Errorf("%s: API error (status %d): %s%s", op, httpResp.StatusCode, message, suffix)
			}
			if errs, ok := errorResp["errors"]; ok {
				return fmt.Errorf("%s: API error (status %d): %v%s", op, httpResp.StatusCode, errs, suffix)
			}
		}
		return fmt.Errorf("%s: API error (status %d): %s%s", op, httpResp.StatusCode, string(bodyBytes), suffix)
	}
	return fmt.Errorf("failed to %s (status %d)%s: %w", op, httpResp.StatusCode, suffix, err)
}

// toBase converts a formatted amount to base units, truncating precision the
// token cannot represent
func toBase(formatted string, decimals int32) (string, error) {
	if strings.TrimSpace(formatted) == "" {
		return "0", nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(formatted))
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", formatted, err)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("negative amount %q", formatted)
	}
	return d.Shift(decimals).Truncate(0).String(), nil
}
