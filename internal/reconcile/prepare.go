package reconcile

import (
	"fmt"
	"math"
	"strings"

	"github.com/guttosm/flexsync/internal/domain/models"
)

// RealtimeColumns must be present in a realtime execution table.
var RealtimeColumns = []string{
	"fill_execution_id",
	"account",
	"conId",
	"permId",
	"symbol",
	"secType",
	"currency",
	"fill_exchange",
	"multiplier",
	"strike",
	"lastTradeDateOrContractMonth",
	"right",
	"action",
	"fill_shares",
	"fill_price",
	"fill_execution_time",
	"fill_commission",
	"fill_commissionCurrency",
	"fill_realizedPNL",
}

// SettlementColumns must be present in a settlement (Flex statement) trade table.
// closePrice, mtmPnl, cusip and isin are read when present.
var SettlementColumns = []string{
	"ibExecID",
	"accountId",
	"conid",
	"ibOrderID",
	"symbol",
	"assetCategory",
	"currency",
	"exchange",
	"multiplier",
	"strike",
	"expiry",
	"putCall",
	"buySell",
	"quantity",
	"tradePrice",
	"dateTime",
	"ibCommission",
	"ibCommissionCurrency",
	"fifoPnlRealized",
	"tradeID",
	"transactionID",
	"tradeDate",
	"tradeMoney",
	"proceeds",
	"netCash",
	"cost",
}

// MissingColumnsError reports a source table that lacks required columns.
type MissingColumnsError struct {
	Source  models.Source
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns in %s table: %s", e.Source, strings.Join(e.Columns, ", "))
}

// PrepareRealtimeTrades projects realtime executions onto the unified shape.
// Commissions become non-positive and an unknown option right ("?") becomes null.
// Order lifecycle columns (orderType, tif, lmtPrice, auxPrice, totalQuantity,
// status, filled, remaining, avgFillPrice) are read when present.
func PrepareRealtimeTrades(t *Table) ([]models.UnifiedTrade, error) {
	if t == nil {
		return nil, nil
	}
	if missing := t.Missing(RealtimeColumns); len(missing) > 0 {
		return nil, &MissingColumnsError{Source: models.SourceRealtime, Columns: missing}
	}

	out := make([]models.UnifiedTrade, 0, len(t.Rows))
	for i, row := range t.Rows {
		tr, err := realtimeRow(row)
		if err != nil {
			return nil, fmt.Errorf("realtime row %d: %w", i, err)
		}
		out = append(out, tr)
	}
	return out, nil
}

func realtimeRow(row Row) (models.UnifiedTrade, error) {
	var (
		tr  models.UnifiedTrade
		err error
	)
	tr.Source = models.SourceRealtime
	tr.ExecutionID = cellString(row, "fill_execution_id")
	tr.AccountID = cellString(row, "account")
	tr.Symbol = cellString(row, "symbol")
	tr.AssetType = cellString(row, "secType")
	tr.Currency = cellString(row, "currency")
	tr.Exchange = cellString(row, "fill_exchange")
	tr.Expiry = optString(row, "lastTradeDateOrContractMonth")
	tr.Right = optString(row, "right")
	if tr.Right != nil && *tr.Right == "?" {
		tr.Right = nil
	}
	tr.Side = models.Side(strings.ToUpper(cellString(row, "action")))
	tr.CommissionCurrency = optString(row, "fill_commissionCurrency")
	tr.OrderType = optString(row, "orderType")
	tr.TimeInForce = optString(row, "tif")
	tr.OrderStatus = optString(row, "status")

	if tr.ContractID, err = reqInt(row, "conId"); err != nil {
		return tr, err
	}
	if tr.PermID, err = optInt(row, "permId"); err != nil {
		return tr, err
	}
	if tr.Quantity, err = reqFloat(row, "fill_shares"); err != nil {
		return tr, err
	}
	if tr.Price, err = reqFloat(row, "fill_price"); err != nil {
		return tr, err
	}
	if tr.ExecutionTime, err = optTime(row, "fill_execution_time"); err != nil {
		return tr, err
	}
	if tr.Commission, err = optFloat(row, "fill_commission"); err != nil {
		return tr, err
	}
	if tr.Commission != nil {
		c := -math.Abs(*tr.Commission)
		tr.Commission = &c
	}

	floats := []struct {
		dst **float64
		col string
	}{
		{&tr.Multiplier, "multiplier"},
		{&tr.Strike, "strike"},
		{&tr.RealizedPnL, "fill_realizedPNL"},
		{&tr.LimitPrice, "lmtPrice"},
		{&tr.AuxPrice, "auxPrice"},
		{&tr.TotalQuantity, "totalQuantity"},
		{&tr.Filled, "filled"},
		{&tr.Remaining, "remaining"},
		{&tr.AvgFillPrice, "avgFillPrice"},
	}
	for _, f := range floats {
		if *f.dst, err = optFloat(row, f.col); err != nil {
			return tr, err
		}
	}
	return tr, nil
}

// PrepareSettlementTrades projects Flex statement trades onto the unified
// shape. Signed quantities become unsigned; the side comes from buySell.
func PrepareSettlementTrades(t *Table) ([]models.UnifiedTrade, error) {
	if t == nil {
		return nil, nil
	}
	if missing := t.Missing(SettlementColumns); len(missing) > 0 {
		return nil, &MissingColumnsError{Source: models.SourceSettlement, Columns: missing}
	}

	out := make([]models.UnifiedTrade, 0, len(t.Rows))
	for i, row := range t.Rows {
		tr, err := settlementRow(row)
		if err != nil {
			return nil, fmt.Errorf("settlement row %d: %w", i, err)
		}
		out = append(out, tr)
	}
	return out, nil
}

func settlementRow(row Row) (models.UnifiedTrade, error) {
	var (
		tr  models.UnifiedTrade
		err error
	)
	tr.Source = models.SourceSettlement
	tr.ExecutionID = cellString(row, "ibExecID")
	tr.AccountID = cellString(row, "accountId")
	tr.Symbol = cellString(row, "symbol")
	tr.AssetType = cellString(row, "assetCategory")
	tr.Currency = cellString(row, "currency")
	tr.Exchange = cellString(row, "exchange")
	tr.Expiry = optString(row, "expiry")
	tr.Right = optString(row, "putCall")
	tr.Side = models.Side(strings.ToUpper(cellString(row, "buySell")))
	tr.CommissionCurrency = optString(row, "ibCommissionCurrency")
	tr.CUSIP = optString(row, "cusip")
	tr.ISIN = optString(row, "isin")

	if tr.ContractID, err = reqInt(row, "conid"); err != nil {
		return tr, err
	}
	if tr.OrderID, err = optInt(row, "ibOrderID"); err != nil {
		return tr, err
	}
	if tr.TradeID, err = optInt(row, "tradeID"); err != nil {
		return tr, err
	}
	if tr.TransactionID, err = optInt(row, "transactionID"); err != nil {
		return tr, err
	}
	if tr.Quantity, err = reqFloat(row, "quantity"); err != nil {
		return tr, err
	}
	tr.Quantity = math.Abs(tr.Quantity)
	if tr.Price, err = reqFloat(row, "tradePrice"); err != nil {
		return tr, err
	}
	if tr.ExecutionTime, err = optTime(row, "dateTime"); err != nil {
		return tr, err
	}
	if tr.TradeDate, err = optDate(row, "tradeDate"); err != nil {
		return tr, err
	}

	floats := []struct {
		dst **float64
		col string
	}{
		{&tr.Multiplier, "multiplier"},
		{&tr.Strike, "strike"},
		{&tr.Commission, "ibCommission"},
		{&tr.RealizedPnL, "fifoPnlRealized"},
		{&tr.TradeMoney, "tradeMoney"},
		{&tr.Proceeds, "proceeds"},
		{&tr.NetCash, "netCash"},
		{&tr.Cost, "cost"},
		{&tr.ClosePrice, "closePrice"},
		{&tr.MTMPnL, "mtmPnl"},
	}
	for _, f := range floats {
		if *f.dst, err = optFloat(row, f.col); err != nil {
			return tr, err
		}
	}
	return tr, nil
}
