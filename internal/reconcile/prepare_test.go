package reconcile

import (
	"errors"
	"testing"
	"time"

	"github.com/guttosm/flexsync/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareRealtimeTrades(t *testing.T) {
	at := time.Date(2026, 1, 15, 15, 30, 0, 0, time.UTC)
	trades, err := PrepareRealtimeTrades(realtimeTable(realtimeRow1("0000e0d5.6579a1b2.01.01", at)))
	require.NoError(t, err)
	require.Len(t, trades, 1)

	tr := trades[0]
	assert.Equal(t, "0000e0d5.6579a1b2.01.01", tr.ExecutionID)
	assert.Equal(t, models.SourceRealtime, tr.Source)
	assert.Equal(t, int64(265598), tr.ContractID)
	require.NotNil(t, tr.PermID)
	assert.Equal(t, int64(1849562341), *tr.PermID)
	assert.Nil(t, tr.OrderID)
	assert.Equal(t, models.SideBuy, tr.Side)
	assert.Equal(t, 100.0, tr.Quantity)
	assert.Equal(t, 185.5, tr.Price)
	assert.Equal(t, at, tr.ExecutionTime)
	require.NotNil(t, tr.Commission)
	assert.Equal(t, -1.05, *tr.Commission)
	assert.Nil(t, tr.Right, "unknown right maps to null")
	assert.Nil(t, tr.Multiplier)
	assert.Nil(t, tr.Expiry)
	require.NotNil(t, tr.OrderType)
	assert.Equal(t, "LMT", *tr.OrderType)
	assert.Nil(t, tr.TradeID)
	assert.Nil(t, tr.Proceeds)
}

func TestPrepareRealtimeTrades_CommissionAlwaysNonPositive(t *testing.T) {
	at := time.Date(2026, 1, 15, 15, 30, 0, 0, time.UTC)
	row := realtimeRow1("E1", at)
	row["fill_commission"] = -2.5
	trades, err := PrepareRealtimeTrades(realtimeTable(row))
	require.NoError(t, err)
	assert.Equal(t, -2.5, *trades[0].Commission)
}

func TestPrepareRealtimeTrades_OrderColumnsOptional(t *testing.T) {
	at := time.Date(2026, 1, 15, 15, 30, 0, 0, time.UTC)
	row := realtimeRow1("E1", at)
	delete(row, "orderType")
	trades, err := PrepareRealtimeTrades(NewTable(RealtimeColumns, row))
	require.NoError(t, err)
	assert.Nil(t, trades[0].OrderType)
}

func TestPrepareRealtimeTrades_MissingColumns(t *testing.T) {
	tbl := NewTable([]string{"fill_execution_id", "account"})
	_, err := PrepareRealtimeTrades(tbl)
	require.Error(t, err)

	var mc *MissingColumnsError
	require.True(t, errors.As(err, &mc))
	assert.Equal(t, models.SourceRealtime, mc.Source)
	assert.Contains(t, mc.Columns, "conId")
	assert.Contains(t, mc.Columns, "fill_realizedPNL")
	assert.NotContains(t, mc.Columns, "account")
	assert.Contains(t, err.Error(), "REALTIME")
}

func TestPrepareSettlementTrades(t *testing.T) {
	trades, err := PrepareSettlementTrades(settlementTable(
		settlementRow1("E-SELL", "2026-01-15;10:30:00 EST", "-10", "SELL"),
	))
	require.NoError(t, err)
	require.Len(t, trades, 1)

	tr := trades[0]
	assert.Equal(t, 10.0, tr.Quantity)
	assert.Equal(t, models.SideSell, tr.Side)
	assert.Equal(t, models.SourceSettlement, tr.Source)
	assert.Equal(t, time.Date(2026, 1, 15, 15, 30, 0, 0, time.UTC), tr.ExecutionTime)
	assert.Equal(t, -1.05, *tr.Commission)
	assert.Equal(t, int64(100001), *tr.TradeID)
	assert.Equal(t, int64(28471234), *tr.TransactionID)
	assert.Equal(t, int64(3551234), *tr.OrderID)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), *tr.TradeDate)
	assert.Equal(t, 186.01, *tr.ClosePrice)
	assert.Equal(t, "US0378331005", *tr.ISIN)
	assert.Nil(t, tr.CUSIP)
	assert.Nil(t, tr.MTMPnL)
	assert.Nil(t, tr.Strike)
	assert.Nil(t, tr.Right)
	assert.Nil(t, tr.PermID)
	assert.Nil(t, tr.OrderType)
}

func TestPrepareSettlementTrades_MissingColumns(t *testing.T) {
	row := settlementRow1("E1", "20260115;103000", "5", "BUY")
	cols := []string{}
	for _, c := range SettlementColumns {
		if c != "cost" && c != "ibExecID" {
			cols = append(cols, c)
		}
	}
	_, err := PrepareSettlementTrades(NewTable(cols, row))

	var mc *MissingColumnsError
	require.True(t, errors.As(err, &mc))
	assert.Equal(t, []string{"ibExecID", "cost"}, mc.Columns)
}

func TestPrepareSettlementTrades_BadNumber(t *testing.T) {
	row := settlementRow1("E1", "20260115;103000", "ten", "BUY")
	_, err := PrepareSettlementTrades(settlementTable(row))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settlement row 0")
	assert.Contains(t, err.Error(), "quantity")
}

func TestPrepare_NilTable(t *testing.T) {
	rt, err := PrepareRealtimeTrades(nil)
	assert.NoError(t, err)
	assert.Nil(t, rt)
	st, err := PrepareSettlementTrades(nil)
	assert.NoError(t, err)
	assert.Nil(t, st)
}
