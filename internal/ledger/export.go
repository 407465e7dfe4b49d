// Package ledger streams the financial tables to CSV for bookkeeping.
package ledger

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lib/pq"
)

// Kind names an exportable ledger.
type Kind string

const (
	Sales        Kind = "sales"
	Bonuses      Kind = "bonuses"
	Transactions Kind = "transactions"
)

const dateLayout = "2006-01-02"

type export struct {
	header []string
	query  string
}

// Every column is cast to text so rows scan uniformly into NullString.
var exports = map[Kind]export{
	Sales: {
		header: []string{"sale_id", "created_at", "paid_at", "user_id", "email", "status", "subtotal", "tax", "total", "total_vp", "payment_provider", "provider_payment_id", "item_count"},
		query: `
			SELECT s.id::text, to_char(s.created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"'),
			       to_char(s.paid_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"'),
			       s.user_id::text, u.email, s.status, s.subtotal::text, s.tax::text, s.total::text,
			       s.total_vp::text, s.payment_provider, s.provider_payment_id,
			       (SELECT COALESCE(SUM(i.quantity), 0) FROM sale_items i WHERE i.sale_id = s.id)::text
			FROM sales s
			JOIN users u ON u.id = s.user_id
			WHERE s.created_at >= $1 AND s.created_at < $2
			ORDER BY s.created_at, s.id`,
	},
	Bonuses: {
		header: []string{"bonus_id", "created_at", "user_id", "email", "source_user_id", "sale_id", "bonus_type", "amount", "description"},
		query: `
			SELECT b.id::text, to_char(b.created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"'),
			       b.user_id::text, u.email, b.source_user_id::text, b.sale_id::text, b.bonus_type,
			       b.amount::text, b.description
			FROM bonuses b
			JOIN users u ON u.id = b.user_id
			WHERE b.created_at >= $1 AND b.created_at < $2
			ORDER BY b.created_at, b.id`,
	},
	Transactions: {
		header: []string{"withdrawal_id", "created_at", "processed_at", "user_id", "email", "status", "amount", "bank_name", "account_holder", "account_number", "notes"},
		query: `
			SELECT t.id::text, to_char(t.created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"'),
			       to_char(t.processed_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"'),
			       t.user_id::text, u.email, t.status, t.amount::text, t.bank_name, t.account_holder,
			       t.account_number, t.notes
			FROM transactions t
			JOIN users u ON u.id = t.user_id
			WHERE t.created_at >= $1 AND t.created_at < $2
			ORDER BY t.created_at, t.id`,
	},
}

// ParseKind validates a ledger name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := exports[k]; !ok {
		return "", fmt.Errorf("unknown ledger %q (want sales, bonuses or transactions)", s)
	}
	return k, nil
}

// Header returns the CSV column names of a ledger.
func (k Kind) Header() []string {
	return exports[k].header
}

// Range is a half-open UTC interval [From, To).
type Range struct {
	From time.Time
	To   time.Time
}

// ParseRange reads inclusive YYYY-MM-DD bounds. An empty from means the epoch and
// an empty to means today.
func ParseRange(from, to string, now time.Time) (Range, error) {
	var r Range
	if from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return r, fmt.Errorf("invalid -from %q: %w", from, err)
		}
		r.From = t
	} else {
		r.From = time.Unix(0, 0).UTC()
	}

	end := now.UTC().Truncate(24 * time.Hour)
	if to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return r, fmt.Errorf("invalid -to %q: %w", to, err)
		}
		end = t
	}
	r.To = end.AddDate(0, 0, 1)

	if !r.From.Before(r.To) {
		return r, fmt.Errorf("-from %s is after -to %s", r.From.Format(dateLayout), end.Format(dateLayout))
	}
	return r, nil
}

// Rows is the cursor WriteCSV consumes. *sql.Rows satisfies it.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// WriteCSV writes header and then every row, rendering NULL as an empty cell. It
// returns the number of data rows written.
func WriteCSV(w io.Writer, header []string, rows Rows) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return 0, err
	}

	cells := make([]sql.NullString, len(header))
	dest := make([]any, len(header))
	for i := range cells {
		dest[i] = &cells[i]
	}
	record := make([]string, len(header))

	n := 0
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return n, fmt.Errorf("failed to scan row %d: %w", n+1, err)
		}
		for i, c := range cells {
			record[i] = c.String
		}
		if err := cw.Write(record); err != nil {
			return n, err
		}
		n++
		// Flush periodically to keep memory flat on large ledgers
		if n%1000 == 0 {
			cw.Flush()
			if err := cw.Error(); err != nil {
				return n, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("error iterating over rows: %w", err)
	}
	cw.Flush()
	return n, cw.Error()
}

// Exporter reads ledgers over database/sql.
type Exporter struct {
	db *sql.DB
}

// Open connects with the lib/pq driver.
func Open(ctx context.Context, dsn string) (*Exporter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", describe(err))
	}
	return &Exporter{db: db}, nil
}

func (e *Exporter) Close() error {
	return e.db.Close()
}

// Export streams one ledger within r to w.
func (e *Exporter) Export(ctx context.Context, kind Kind, r Range, w io.Writer) (int, error) {
	def, ok := exports[kind]
	if !ok {
		return 0, fmt.Errorf("unknown ledger %q", kind)
	}
	rows, err := e.db.QueryContext(ctx, def.query, r.From, r.To)
	if err != nil {
		return 0, fmt.Errorf("failed to query %s: %w", kind, describe(err))
	}
	defer rows.Close()
	return WriteCSV(w, def.header, rows)
}

// describe adds the SQLSTATE of server errors.
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%w (sqlstate %s)", err, pqErr.Code)
	}
	return err
}
