package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fundamentals-lab/internal/domain"
	"fundamentals-lab/internal/observability"
	"fundamentals-lab/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
// Identities are stored in canonical uppercase form so lookups match the
// {EXCHANGE}_{TICKER} key convention regardless of caller casing.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

func canonical(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

const snapshotColumns = `
	ticker, exchange, fetched_at, price,
	fair_value_ev, fair_value_pe, fair_value_ps,
	book_value_per_share, gross_margin_pct, operating_margin_pct, net_margin_pct
`

// Append adds snapshot records.
func (s *SnapshotStore) Append(ctx context.Context, records []*domain.SnapshotRecord) (err error) {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if r == nil || r.Ticker == "" || r.Exchange == "" {
			return storage.ErrInvalidInput
		}
	}

	start := time.Now()
	defer func() { observability.RecordDBQuery("clickhouse", "append", time.Since(start).Seconds(), err) }()

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO valuation_snapshots (`+snapshotColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err = batch.Append(
			canonical(r.Ticker), canonical(r.Exchange), r.FetchedAt, r.Snapshot.Price,
			r.Snapshot.FairValueEV, r.Snapshot.FairValuePE, r.Snapshot.FairValuePS,
			r.Snapshot.BookValuePerShare, r.Snapshot.GrossMarginPct,
			r.Snapshot.OperatingMarginPct, r.Snapshot.NetMarginPct,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// Latest retrieves the most recent snapshot for a company.
// Returns ErrNotFound if none exists.
func (s *SnapshotStore) Latest(ctx context.Context, exchange, ticker string) (_ *domain.SnapshotRecord, err error) {
	start := time.Now()
	defer func() { observability.RecordDBQuery("clickhouse", "latest", time.Since(start).Seconds(), queryErr(err)) }()

	query := `
		SELECT ` + snapshotColumns + `
		FROM valuation_snapshots
		WHERE exchange = ? AND ticker = ?
		ORDER BY fetched_at DESC
		LIMIT 1
	`

	row := s.conn.QueryRow(ctx, query, canonical(exchange), canonical(ticker))
	r, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return r, nil
}

// Range retrieves snapshots for a company within [start, end] (inclusive),
// ordered by fetched_at ASC.
func (s *SnapshotStore) Range(ctx context.Context, exchange, ticker string, start, end time.Time) (_ []*domain.SnapshotRecord, err error) {
	began := time.Now()
	defer func() { observability.RecordDBQuery("clickhouse", "range", time.Since(began).Seconds(), err) }()

	query := `
		SELECT ` + snapshotColumns + `
		FROM valuation_snapshots
		WHERE exchange = ? AND ticker = ? AND fetched_at >= ? AND fetched_at <= ?
		ORDER BY fetched_at ASC
	`

	rows, err := s.conn.Query(ctx, query, canonical(exchange), canonical(ticker), start, end)
	if err != nil {
		return nil, fmt.Errorf("query snapshot range: %w", err)
	}
	defer rows.Close()

	var result []*domain.SnapshotRecord
	for rows.Next() {
		r, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return result, nil
}

// PriceStats computes count/avg/min/max over the prices of a company's
// snapshots fetched at or after since. Returns ErrNotFound on an empty window.
func (s *SnapshotStore) PriceStats(ctx context.Context, exchange, ticker string, since time.Time) (_ *domain.PriceStats, err error) {
	start := time.Now()
	defer func() { observability.RecordDBQuery("clickhouse", "price_stats", time.Since(start).Seconds(), queryErr(err)) }()

	query := `
		SELECT count(*), avg(price), min(price), max(price)
		FROM valuation_snapshots
		WHERE exchange = ? AND ticker = ? AND fetched_at >= ?
	`

	var stats domain.PriceStats
	row := s.conn.QueryRow(ctx, query, canonical(exchange), canonical(ticker), since)
	if err := row.Scan(&stats.Count, &stats.AvgPrice, &stats.MinPrice, &stats.MaxPrice); err != nil {
		return nil, fmt.Errorf("query price stats: %w", err)
	}

	// Aggregates over an empty set come back as NaN/defaults, not NULL.
	if stats.Count == 0 {
		return nil, storage.ErrNotFound
	}
	return &stats, nil
}

// queryErr keeps not-found misses out of the query error counter.
func queryErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

// chRow is the scan surface shared by QueryRow results and iterated rows.
type chRow interface {
	Scan(dest ...any) error
}

// scanSnapshot scans a single snapshot row.
func scanSnapshot(row chRow) (*domain.SnapshotRecord, error) {
	var r domain.SnapshotRecord
	err := row.Scan(
		&r.Ticker, &r.Exchange, &r.FetchedAt, &r.Snapshot.Price,
		&r.Snapshot.FairValueEV, &r.Snapshot.FairValuePE, &r.Snapshot.FairValuePS,
		&r.Snapshot.BookValuePerShare, &r.Snapshot.GrossMarginPct,
		&r.Snapshot.OperatingMarginPct, &r.Snapshot.NetMarginPct,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
