package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"github.com/guttosm/flexsync/internal/domain/models"
)

// TradesRepository defines contract for DB operations.
type TradesRepository interface {
	UpsertTrades(ctx context.Context, trades []models.UnifiedTrade) (int64, error)
	OverwriteTrades(ctx context.Context, trades []models.UnifiedTrade) (int64, error)
	ListTrades(ctx context.Context, filter TradeFilter) ([]models.UnifiedTrade, error)
	DeleteTradesByAccount(ctx context.Context, accountID string) (int64, error)
	RecordFetch(ctx context.Context, entry models.FetchLog) error
	LastFetch(ctx context.Context, accountID string) (*models.FetchLog, error)
}

// TradeFilter narrows ListTrades. Zero values mean no restriction; From is
// inclusive and To exclusive.
type TradeFilter struct {
	AccountID string
	From      *time.Time
	To        *time.Time
	Source    models.Source
	Limit     int
}

type tradesRepository struct {
	db *sql.DB
}

func NewTradesRepository(db *sql.DB) TradesRepository {
	return &tradesRepository{db: db}
}

const stagingTable = "unified_trades_staging"

// tradeColumns is the column order shared by COPY, INSERT and SELECT.
var tradeColumns = []string{
	"execution_id", "account_id", "contract_id", "perm_id", "order_id",
	"symbol", "asset_type", "currency", "exchange", "multiplier", "strike", "expiry", "put_call",
	"side", "quantity", "price", "execution_time",
	"commission", "commission_currency", "realized_pnl",
	"order_type", "tif", "limit_price", "aux_price", "total_quantity",
	"order_status", "filled", "remaining", "avg_fill_price",
	"trade_id", "transaction_id", "trade_date", "trade_money", "proceeds",
	"net_cash", "cost", "close_price", "mtm_pnl", "cusip", "isin",
	"source",
}

func tradeValues(t models.UnifiedTrade) []interface{} {
	return []interface{}{
		t.ExecutionID, t.AccountID, t.ContractID, t.PermID, t.OrderID,
		t.Symbol, t.AssetType, t.Currency, t.Exchange, t.Multiplier, t.Strike, t.Expiry, t.Right,
		string(t.Side), t.Quantity, t.Price, t.ExecutionTime,
		t.Commission, t.CommissionCurrency, t.RealizedPnL,
		t.OrderType, t.TimeInForce, t.LimitPrice, t.AuxPrice, t.TotalQuantity,
		t.OrderStatus, t.Filled, t.Remaining, t.AvgFillPrice,
		t.TradeID, t.TransactionID, t.TradeDate, t.TradeMoney, t.Proceeds,
		t.NetCash, t.Cost, t.ClosePrice, t.MTMPnL, t.CUSIP, t.ISIN,
		string(t.Source),
	}
}

func tradeDest(t *models.UnifiedTrade) []interface{} {
	return []interface{}{
		&t.ExecutionID, &t.AccountID, &t.ContractID, &t.PermID, &t.OrderID,
		&t.Symbol, &t.AssetType, &t.Currency, &t.Exchange, &t.Multiplier, &t.Strike, &t.Expiry, &t.Right,
		&t.Side, &t.Quantity, &t.Price, &t.ExecutionTime,
		&t.Commission, &t.CommissionCurrency, &t.RealizedPnL,
		&t.OrderType, &t.TimeInForce, &t.LimitPrice, &t.AuxPrice, &t.TotalQuantity,
		&t.OrderStatus, &t.Filled, &t.Remaining, &t.AvgFillPrice,
		&t.TradeID, &t.TransactionID, &t.TradeDate, &t.TradeMoney, &t.Proceeds,
		&t.NetCash, &t.Cost, &t.ClosePrice, &t.MTMPnL, &t.CUSIP, &t.ISIN,
		&t.Source,
	}
}

// upsertQuery moves the staged rows into unified_trades. A re-synced
// execution overwrites every column; with keepSettled a stored settlement
// row is never replaced by a realtime one.
func upsertQuery(keepSettled bool) string {
	cols := strings.Join(tradeColumns, ", ")
	sets := make([]string, 0, len(tradeColumns))
	for _, c := range tradeColumns[1:] {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	sets = append(sets, "updated_at = NOW()")
	q := fmt.Sprintf(`INSERT INTO unified_trades (%s)
		SELECT DISTINCT ON (execution_id) %s FROM %s ORDER BY execution_id
		ON CONFLICT (execution_id) DO UPDATE SET %s`,
		cols, cols, stagingTable, strings.Join(sets, ", "))
	if keepSettled {
		q += fmt.Sprintf(`
		WHERE unified_trades.source = '%s' OR EXCLUDED.source = '%s'`,
			models.SourceRealtime, models.SourceSettlement)
	}
	return q
}

// UpsertTrades bulk-loads trades into a transaction-scoped staging table with
// COPY and merges them into unified_trades keyed by execution id. It returns
// the number of rows inserted or updated; realtime rows skipped because the
// execution has already settled are not counted.
func (r *tradesRepository) UpsertTrades(ctx context.Context, trades []models.UnifiedTrade) (int64, error) {
	return r.upsert(ctx, trades, true)
}

// OverwriteTrades is UpsertTrades without the settlement guard: every
// conflicting row takes the incoming values, whatever its source.
func (r *tradesRepository) OverwriteTrades(ctx context.Context, trades []models.UnifiedTrade) (int64, error) {
	return r.upsert(ctx, trades, false)
}

func (r *tradesRepository) upsert(ctx context.Context, trades []models.UnifiedTrade, keepSettled bool) (int64, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	// Small optimization for bulk load
	if _, err := tx.ExecContext(ctx, `SET LOCAL synchronous_commit = OFF`); err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`CREATE TEMP TABLE %s (LIKE unified_trades INCLUDING DEFAULTS) ON COMMIT DROP`, stagingTable)); err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(stagingTable, tradeColumns...))
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	for _, t := range trades {
		if _, err := stmt.ExecContext(ctx, tradeValues(t)...); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return 0, fmt.Errorf("staging execution %s: %w", t.ExecutionID, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		_ = tx.Rollback()
		return 0, err
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	res, err := tx.ExecContext(ctx, upsertQuery(keepSettled))
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	return affected, tx.Commit()
}

// ListTrades returns stored trades matching filter ordered by execution time.
func (r *tradesRepository) ListTrades(ctx context.Context, filter TradeFilter) ([]models.UnifiedTrade, error) {
	// Build dynamic conditions; placeholders follow the order args are appended.
	var conds []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.AccountID != "" {
		add("account_id = $%d", filter.AccountID)
	}
	if filter.From != nil {
		add("execution_time >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("execution_time < $%d", *filter.To)
	}
	if filter.Source != "" {
		add("source = $%d", string(filter.Source))
	}

	query := fmt.Sprintf("SELECT %s FROM unified_trades", strings.Join(tradeColumns, ", "))
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY execution_time, execution_id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.UnifiedTrade
	for rows.Next() {
		var t models.UnifiedTrade
		if err := rows.Scan(tradeDest(&t)...); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTradesByAccount removes every stored trade of an account.
func (r *tradesRepository) DeleteTradesByAccount(ctx context.Context, accountID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM unified_trades WHERE account_id = $1`, accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RecordFetch appends one entry to the statement fetch log.
func (r *tradesRepository) RecordFetch(ctx context.Context, entry models.FetchLog) error {
	if entry.FetchedAt.IsZero() {
		entry.FetchedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO statement_fetch_log (run_id, account_id, query_id, from_date, to_date, trades, status, error, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.RunID, entry.AccountID, entry.QueryID, entry.FromDate, entry.ToDate,
		entry.Trades, string(entry.Status), entry.Error, entry.FetchedAt)
	return err
}

// LastFetch returns the most recent fetch log entry for an account, or nil when there is none.
func (r *tradesRepository) LastFetch(ctx context.Context, accountID string) (*models.FetchLog, error) {
	var e models.FetchLog
	err := r.db.QueryRowContext(ctx, `
		SELECT run_id, account_id, query_id, from_date, to_date, trades, status, error, fetched_at
		FROM statement_fetch_log
		WHERE account_id = $1
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1`, accountID).
		Scan(&e.RunID, &e.AccountID, &e.QueryID, &e.FromDate, &e.ToDate, &e.Trades, &e.Status, &e.Error, &e.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
