// Package optiq provides a Go SDK for the optiq trading API.
package optiq

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is a typed HTTP client for the optiq API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new optiq API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ---------------------------------------------------------------------------
// Response types (mirror the server's JSON payloads)
// ---------------------------------------------------------------------------

// Position is one held instrument.
type Position struct {
	Symbol       string  `json:"symbol"`
	Qty          float64 `json:"qty"`
	AvgPrice     float64 `json:"avg_price"`
	LastPrice    float64 `json:"last_price"`
	UnrealizedPL float64 `json:"unrealized_pl"`
	RealizedPL   float64 `json:"realized_pl"`
}

// Order is one tracked order.
type Order struct {
	ID             string  `json:"id"`
	Symbol         string  `json:"symbol"`
	Side           string  `json:"side"`
	Type           string  `json:"type"`
	Qty            float64 `json:"qty"`
	FilledQty      float64 `json:"filled_qty"`
	LimitPrice     float64 `json:"limit_price,omitempty"`
	FilledAvgPrice float64 `json:"filled_avg_price,omitempty"`
	Status         string  `json:"status"`
}

// Portfolio summarizes the ledger.
type Portfolio struct {
	TotalValue    float64 `json:"total_value"`
	UnrealizedPL  float64 `json:"unrealized_pl"`
	RealizedPL    float64 `json:"realized_pl"`
	GrossExposure float64 `json:"gross_exposure"`
	Positions     int     `json:"positions"`
	OpenOrders    int     `json:"open_orders"`
}

// Risk reports the risk manager's current state.
type Risk struct {
	Level           float64 `json:"level"`
	MaxPositionSize float64 `json:"max_position_size"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	MaxLeverage     float64 `json:"max_leverage"`
	MaxRiskPerTrade float64 `json:"max_risk_per_trade"`
	MaxDailyLoss    float64 `json:"max_daily_loss"`
}

// Price carries a model price and greeks for one contract.
type Price struct {
	Right      string   `json:"right"`
	Spot       float64  `json:"spot"`
	Strike     float64  `json:"strike"`
	Rate       float64  `json:"rate"`
	Vol        float64  `json:"vol"`
	Expiry     float64  `json:"expiry_years"`
	Price      float64  `json:"price"`
	Delta      float64  `json:"delta"`
	Gamma      float64  `json:"gamma"`
	Vega       float64  `json:"vega"`
	Theta      float64  `json:"theta"`
	Rho        float64  `json:"rho"`
	ImpliedVol *float64 `json:"implied_vol,omitempty"`
}

type positionsResponse struct {
	Positions []Position `json:"positions"`
}

type ordersResponse struct {
	Orders []Order `json:"orders"`
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// GetPortfolio retrieves the portfolio summary.
func (c *Client) GetPortfolio(ctx context.Context) (*Portfolio, error) {
	var out Portfolio
	if err := c.get(ctx, "/api/v1/portfolio", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPositions retrieves current positions.
func (c *Client) GetPositions(ctx context.Context) ([]Position, error) {
	var out positionsResponse
	if err := c.get(ctx, "/api/v1/positions", nil, &out); err != nil {
		return nil, err
	}
	return out.Positions, nil
}

// GetPosition retrieves the position for one symbol.
func (c *Client) GetPosition(ctx context.Context, symbol string) (*Position, error) {
	var out Position
	if err := c.get(ctx, "/api/v1/positions/"+url.PathEscape(symbol), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrders retrieves open orders, optionally filtered by symbol.
func (c *Client) GetOrders(ctx context.Context, symbol string) ([]Order, error) {
	q := url.Values{}
	if symbol != "" {
		q.Set("symbol", symbol)
	}
	var out ordersResponse
	if err := c.get(ctx, "/api/v1/orders", q, &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}

// GetOrder retrieves one order by ID.
func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	var out Order
	if err := c.get(ctx, "/api/v1/orders/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRisk retrieves the current risk state.
func (c *Client) GetRisk(ctx context.Context) (*Risk, error) {
	var out Risk
	if err := c.get(ctx, "/api/v1/risk", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPrice prices a contract at the given volatility.
func (c *Client) GetPrice(ctx context.Context, right string, spot, strike, rate, vol, expiry float64) (*Price, error) {
	q := url.Values{}
	q.Set("right", right)
	q.Set("spot", formatFloat(spot))
	q.Set("strike", formatFloat(strike))
	q.Set("rate", formatFloat(rate))
	q.Set("vol", formatFloat(vol))
	q.Set("expiry", formatFloat(expiry))

	var out Price
	if err := c.get(ctx, "/api/v1/price", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetImpliedVol solves for the volatility implied by a market price and
// returns the contract priced at that volatility.
func (c *Client) GetImpliedVol(ctx context.Context, right string, spot, strike, rate, expiry, marketPrice float64) (*Price, error) {
	q := url.Values{}
	q.Set("right", right)
	q.Set("spot", formatFloat(spot))
	q.Set("strike", formatFloat(strike))
	q.Set("rate", formatFloat(rate))
	q.Set("expiry", formatFloat(expiry))
	q.Set("market_price", formatFloat(marketPrice))

	var out Price
	if err := c.get(ctx, "/api/v1/price", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, body)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
