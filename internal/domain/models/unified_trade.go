package models

import "time"

// Side is the direction of an execution.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

// Source tags which feed a unified row came from.
type Source string

const (
	SourceRealtime   Source = "REALTIME"
	SourceSettlement Source = "SETTLEMENT"
)

// UnifiedTrade is one execution in the canonical reconciled shape.
// ExecutionID is the natural key shared by both feeds. Pointer fields are
// null when the originating feed does not carry them.
type UnifiedTrade struct {
	ExecutionID string `json:"execution_id"`
	AccountID   string `json:"account_id"`
	ContractID  int64  `json:"contract_id"`
	PermID      *int64 `json:"perm_id"`
	OrderID     *int64 `json:"order_id"`

	Symbol     string   `json:"symbol"`
	AssetType  string   `json:"asset_type"`
	Currency   string   `json:"currency"`
	Exchange   string   `json:"exchange"`
	Multiplier *float64 `json:"multiplier"`
	Strike     *float64 `json:"strike"`
	Expiry     *string  `json:"expiry"`
	Right      *string  `json:"right"`

	Side          Side      `json:"side"`
	Quantity      float64   `json:"quantity"`
	Price         float64   `json:"price"`
	ExecutionTime time.Time `json:"execution_time"`

	// Commission is a cost and therefore zero or negative.
	Commission         *float64 `json:"commission"`
	CommissionCurrency *string  `json:"commission_currency"`
	RealizedPnL        *float64 `json:"realized_pnl"`

	// realtime only
	OrderType     *string  `json:"order_type"`
	TimeInForce   *string  `json:"tif"`
	LimitPrice    *float64 `json:"limit_price"`
	AuxPrice      *float64 `json:"aux_price"`
	TotalQuantity *float64 `json:"total_quantity"`
	OrderStatus   *string  `json:"order_status"`
	Filled        *float64 `json:"filled"`
	Remaining     *float64 `json:"remaining"`
	AvgFillPrice  *float64 `json:"avg_fill_price"`

	// settlement only
	TradeID       *int64     `json:"trade_id"`
	TransactionID *int64     `json:"transaction_id"`
	TradeDate     *time.Time `json:"trade_date"`
	TradeMoney    *float64   `json:"trade_money"`
	Proceeds      *float64   `json:"proceeds"`
	NetCash       *float64   `json:"net_cash"`
	Cost          *float64   `json:"cost"`
	ClosePrice    *float64   `json:"close_price"`
	MTMPnL        *float64   `json:"mtm_pnl"`
	CUSIP         *string    `json:"cusip"`
	ISIN          *string    `json:"isin"`

	Source Source `json:"source"`
}
