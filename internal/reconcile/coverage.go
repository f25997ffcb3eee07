package reconcile

import "github.com/guttosm/flexsync/internal/domain/models"

// Coverage counts, for one source, how many rows populate each of the
// fields only that source can fill.
type Coverage struct {
	Rows   int            `json:"rows"`
	Fields map[string]int `json:"fields"`
}

// FieldCoverage reports source-specific field population per source.
func FieldCoverage(trades []models.UnifiedTrade) map[models.Source]Coverage {
	out := map[models.Source]Coverage{
		models.SourceRealtime:   {Fields: map[string]int{}},
		models.SourceSettlement: {Fields: map[string]int{}},
	}
	for _, tr := range trades {
		cov, ok := out[tr.Source]
		if !ok {
			continue
		}
		cov.Rows++
		var fields map[string]bool
		if tr.Source == models.SourceRealtime {
			fields = map[string]bool{
				"order_type":     tr.OrderType != nil,
				"tif":            tr.TimeInForce != nil,
				"limit_price":    tr.LimitPrice != nil,
				"aux_price":      tr.AuxPrice != nil,
				"total_quantity": tr.TotalQuantity != nil,
				"order_status":   tr.OrderStatus != nil,
				"filled":         tr.Filled != nil,
				"remaining":      tr.Remaining != nil,
				"avg_fill_price": tr.AvgFillPrice != nil,
			}
		} else {
			fields = map[string]bool{
				"trade_id":       tr.TradeID != nil,
				"transaction_id": tr.TransactionID != nil,
				"trade_date":     tr.TradeDate != nil,
				"trade_money":    tr.TradeMoney != nil,
				"proceeds":       tr.Proceeds != nil,
				"net_cash":       tr.NetCash != nil,
				"cost":           tr.Cost != nil,
				"close_price":    tr.ClosePrice != nil,
				"mtm_pnl":        tr.MTMPnL != nil,
				"cusip":          tr.CUSIP != nil,
				"isin":           tr.ISIN != nil,
			}
		}
		for name, set := range fields {
			if set {
				cov.Fields[name]++
			}
		}
		out[tr.Source] = cov
	}
	return out
}
