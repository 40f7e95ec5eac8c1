package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guregu/null/v6"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"fundamentals-lab/internal/domain"
	"fundamentals-lab/internal/observability"
	"fundamentals-lab/internal/storage"
)

// DatasetStore implements storage.DatasetStore using PostgreSQL.
// Companies live in the companies table, their yearly rows in
// financial_records keyed by (company_key, row_idx). The row index
// preserves normalized order, including duplicate years.
type DatasetStore struct {
	pool *Pool
}

// NewDatasetStore creates a new DatasetStore.
func NewDatasetStore(pool *Pool) *DatasetStore {
	return &DatasetStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DatasetStore = (*DatasetStore)(nil)

// Save stores a dataset under its key, replacing any previous rows.
// The company upsert and the row rewrite happen in one transaction.
func (s *DatasetStore) Save(ctx context.Context, ds *domain.CompanyDataset) (err error) {
	if ds == nil || ds.Ticker == "" || ds.Exchange == "" {
		return storage.ErrInvalidInput
	}
	key := ds.Key()

	start := time.Now()
	defer func() { observability.RecordDBQuery("postgres", "save", time.Since(start).Seconds(), err) }()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO companies (key, ticker, exchange)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			ticker = EXCLUDED.ticker,
			exchange = EXCLUDED.exchange,
			updated_at = now()
	`, key, ds.Ticker, ds.Exchange)
	if err != nil {
		return fmt.Errorf("upsert company %s: %w", key, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM financial_records WHERE company_key = $1`, key); err != nil {
		return fmt.Errorf("clear records for %s: %w", key, err)
	}

	insert := `
		INSERT INTO financial_records (
			company_key, row_idx, year, revenue, operating_income, net_income, shares_outstanding
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i, r := range ds.Rows {
		_, err := tx.Exec(ctx, insert,
			key,
			i,
			r.Year,
			r.Revenue.Ptr(),
			r.OperatingIncome.Ptr(),
			r.NetIncome.Ptr(),
			r.SharesOutstanding.Ptr(),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert record %s/%d: %w", key, r.Year, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Get retrieves a dataset by exchange and ticker. Returns ErrNotFound if not exists.
func (s *DatasetStore) Get(ctx context.Context, exchange, ticker string) (_ *domain.CompanyDataset, err error) {
	key := domain.DatasetKey(exchange, ticker)

	start := time.Now()
	defer func() { observability.RecordDBQuery("postgres", "get", time.Since(start).Seconds(), queryErr(err)) }()

	var ds domain.CompanyDataset
	err = s.pool.QueryRow(ctx, `
		SELECT ticker, exchange FROM companies WHERE key = $1
	`, key).Scan(&ds.Ticker, &ds.Exchange)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get company %s: %w", key, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT year, revenue, operating_income, net_income, shares_outstanding
		FROM financial_records
		WHERE company_key = $1
		ORDER BY row_idx ASC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("get records for %s: %w", key, err)
	}
	defer rows.Close()

	ds.Rows, err = scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("scan records for %s: %w", key, err)
	}
	return &ds, nil
}

// List retrieves all datasets, ordered by key ASC.
func (s *DatasetStore) List(ctx context.Context) (_ []*domain.CompanyDataset, err error) {
	start := time.Now()
	defer func() { observability.RecordDBQuery("postgres", "list", time.Since(start).Seconds(), err) }()

	companyRows, err := s.pool.Query(ctx, `
		SELECT key, ticker, exchange FROM companies ORDER BY key ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer companyRows.Close()

	var ordered []string
	byKey := make(map[string]*domain.CompanyDataset)
	for companyRows.Next() {
		var key string
		var ds domain.CompanyDataset
		if err := companyRows.Scan(&key, &ds.Ticker, &ds.Exchange); err != nil {
			return nil, fmt.Errorf("scan company row: %w", err)
		}
		ds.Rows = []domain.FinancialRecord{}
		ordered = append(ordered, key)
		byKey[key] = &ds
	}
	if err := companyRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate company rows: %w", err)
	}

	recordRows, err := s.pool.Query(ctx, `
		SELECT company_key, year, revenue, operating_income, net_income, shares_outstanding
		FROM financial_records
		ORDER BY company_key ASC, row_idx ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer recordRows.Close()

	for recordRows.Next() {
		var key string
		var r domain.FinancialRecord
		var revenue, operating, netIncome, shares *float64
		if err := recordRows.Scan(&key, &r.Year, &revenue, &operating, &netIncome, &shares); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		r.Revenue = null.FloatFromPtr(revenue)
		r.OperatingIncome = null.FloatFromPtr(operating)
		r.NetIncome = null.FloatFromPtr(netIncome)
		r.SharesOutstanding = null.FloatFromPtr(shares)

		ds, ok := byKey[key]
		if !ok {
			continue
		}
		ds.Rows = append(ds.Rows, r)
	}
	if err := recordRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record rows: %w", err)
	}

	result := make([]*domain.CompanyDataset, 0, len(ordered))
	for _, key := range ordered {
		result = append(result, byKey[key])
	}
	return result, nil
}

// Keys retrieves all dataset keys, ordered ASC.
func (s *DatasetStore) Keys(ctx context.Context) (_ []string, err error) {
	start := time.Now()
	defer func() { observability.RecordDBQuery("postgres", "keys", time.Since(start).Seconds(), err) }()

	rows, err := s.pool.Query(ctx, `SELECT key FROM companies ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key row: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate key rows: %w", err)
	}
	return keys, nil
}

// queryErr keeps not-found misses out of the query error counter.
func queryErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

// scanRecords scans financial record rows in stored order.
func scanRecords(rows pgx.Rows) ([]domain.FinancialRecord, error) {
	records := []domain.FinancialRecord{}
	for rows.Next() {
		var r domain.FinancialRecord
		var revenue, operating, netIncome, shares *float64

		if err := rows.Scan(&r.Year, &revenue, &operating, &netIncome, &shares); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}

		r.Revenue = null.FloatFromPtr(revenue)
		r.OperatingIncome = null.FloatFromPtr(operating)
		r.NetIncome = null.FloatFromPtr(netIncome)
		r.SharesOutstanding = null.FloatFromPtr(shares)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record rows: %w", err)
	}
	return records, nil
}

// PostgreSQL error codes
const pgErrUniqueViolation = "23505" // unique_violation

// isDuplicateKeyError checks if error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}
	return false
}

// isNotFoundError checks if error indicates no rows found.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
