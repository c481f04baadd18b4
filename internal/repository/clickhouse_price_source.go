package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"FinPrompt/internal/domain/models"
	domrepo "FinPrompt/internal/domain/repository"
	pkgch "FinPrompt/pkg/clickhouse"
	applogger "FinPrompt/pkg/logger"
)

// DefaultPriceTable holds one row per ticker and trading day.
const DefaultPriceTable = "stock_price_history"

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// CHPriceStore implements PriceStore backed by ClickHouse.
type CHPriceStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.PriceStore = (*CHPriceStore)(nil)

// NewCHPriceStore reads from table, or DefaultPriceTable when empty.
func NewCHPriceStore(ch *pkgch.Client, table string) (*CHPriceStore, error) {
	if table == "" {
		table = DefaultPriceTable
	}
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("invalid clickhouse table name %q", table)
	}
	return &CHPriceStore{db: ch.DB(), table: table, l: applogger.Nop()}, nil
}

// SetLogger injects a structured logger.
func (s *CHPriceStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

// LoadPriceRows returns the whole price history ordered by ticker and date.
func (s *CHPriceStore) LoadPriceRows(ctx context.Context) ([]models.PriceRow, error) {
	start := time.Now()
	const qtpl = `
        SELECT ticker, toDate(date) AS date, toFloat64(close) AS close, toInt64(volume) AS volume
        FROM %s
        ORDER BY ticker ASC, date ASC
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table))
	if err != nil {
		s.l.Error("clickhouse load_prices query error", applogger.String("table", s.table), applogger.Error(err))
		return nil, fmt.Errorf("load prices: %w", err)
	}
	defer rows.Close()

	out, skipped, err := scanPriceRows(rows)
	if err != nil {
		s.l.Error("clickhouse load_prices scan error", applogger.String("table", s.table), applogger.Error(err))
		return nil, err
	}

	s.l.Info("clickhouse prices loaded",
		applogger.String("table", s.table),
		applogger.Int("rows", len(out)),
		applogger.Int("skipped", skipped),
		applogger.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanPriceRows skips rows without a ticker or with a non-positive close.
func scanPriceRows(rows rowScanner) ([]models.PriceRow, int, error) {
	out := make([]models.PriceRow, 0, 4096)
	skipped := 0
	for rows.Next() {
		var (
			ticker string
			date   time.Time
			px     float64
			volume int64
		)
		if err := rows.Scan(&ticker, &date, &px, &volume); err != nil {
			return nil, 0, fmt.Errorf("scan price row: %w", err)
		}
		ticker = strings.TrimSpace(ticker)
		if ticker == "" || px <= 0 {
			skipped++
			continue
		}
		out = append(out, models.PriceRow{
			Ticker: ticker,
			Date:   time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
			Close:  decimal.NewFromFloat(px),
			Volume: volume,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows: %w", err)
	}
	return out, skipped, nil
}
