package reconcile

import (
	"time"

	"github.com/guttosm/flexsync/internal/domain/models"
)

func realtimeRow1(execID string, at time.Time) Row {
	return Row{
		"fill_execution_id":            execID,
		"account":                      "U1234567",
		"conId":                        265598,
		"permId":                       "1849562341",
		"symbol":                       "AAPL",
		"secType":                      "STK",
		"currency":                     "USD",
		"fill_exchange":                "ISLAND",
		"multiplier":                   "",
		"strike":                       0.0,
		"lastTradeDateOrContractMonth": "",
		"right":                        "?",
		"action":                       "BUY",
		"fill_shares":                  100.0,
		"fill_price":                   185.5,
		"fill_execution_time":          at,
		"fill_commission":              1.05,
		"fill_commissionCurrency":      "USD",
		"fill_realizedPNL":             0.0,
		"orderType":                    "LMT",
		"tif":                          "DAY",
		"lmtPrice":                     185.5,
		"auxPrice":                     0.0,
		"totalQuantity":                100.0,
		"status":                       "Filled",
		"filled":                       100.0,
		"remaining":                    0.0,
		"avgFillPrice":                 185.5,
	}
}

func settlementRow1(execID string, dateTime string, qty string, side string) Row {
	return Row{
		"ibExecID":             execID,
		"accountId":            "U1234567",
		"conid":                "265598",
		"ibOrderID":            "3551234",
		"symbol":               "AAPL",
		"assetCategory":        "STK",
		"currency":             "USD",
		"exchange":             "ISLAND",
		"multiplier":           "1",
		"strike":               "",
		"expiry":               "",
		"putCall":              "",
		"buySell":              side,
		"quantity":             qty,
		"tradePrice":           "185.5",
		"dateTime":             dateTime,
		"ibCommission":         "-1.05",
		"ibCommissionCurrency": "USD",
		"fifoPnlRealized":      "0",
		"tradeID":              "100001",
		"transactionID":        "28471234",
		"tradeDate":            "20260115",
		"tradeMoney":           "18550",
		"proceeds":             "-18550",
		"netCash":              "-18551.05",
		"cost":                 "18551.05",
		"closePrice":           "186.01",
		"isin":                 "US0378331005",
	}
}

func realtimeTable(rows ...Row) *Table {
	cols := append([]string{}, RealtimeColumns...)
	cols = append(cols, "orderType", "tif", "lmtPrice", "auxPrice", "totalQuantity", "status", "filled", "remaining", "avgFillPrice")
	return NewTable(cols, rows...)
}

func settlementTable(rows ...Row) *Table {
	cols := append([]string{}, SettlementColumns...)
	cols = append(cols, "closePrice", "isin")
	return NewTable(cols, rows...)
}

func trade(id string, src models.Source, at time.Time) models.UnifiedTrade {
	return models.UnifiedTrade{
		ExecutionID:   id,
		AccountID:     "U1234567",
		Side:          models.SideBuy,
		Quantity:      1,
		Price:         10,
		ExecutionTime: at,
		Source:        src,
	}
}
