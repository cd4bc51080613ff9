package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rl1809/cart-allocation/internal/core/domain"
)

// SQLAdapter implements the storage ports over database/sql for every supported dialect.
type SQLAdapter struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLAdapter(db *sql.DB, dialect Dialect) *SQLAdapter {
	return &SQLAdapter{db: db, dialect: dialect}
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *SQLAdapter) q(query string) string {
	return s.dialect.Rebind(query)
}

// insert runs an INSERT and returns the generated id.
func (d Dialect) insert(ctx context.Context, q queryer, query string, args ...any) (int64, error) {
	if d.Returning {
		var id int64
		if err := q.QueryRowContext(ctx, d.Rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	result, err := q.ExecContext(ctx, d.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// Bounds on how long a plain write waits for a claim holding the write lock.
// Only SQLite reports a busy lock at BEGIN; the other dialects block in the server.
const (
	txBusyRetries = 20
	txBusyDelay   = 25 * time.Millisecond
)

// inTx runs fn in a transaction, committing when it returns nil. A lock that stays busy
// past the retry window yields domain.ErrStorageLocked.
func (s *SQLAdapter) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLAdapter) begin(ctx context.Context) (*sql.Tx, error) {
	for attempt := 0; ; attempt++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err == nil {
			return tx, nil
		}
		if !s.dialect.IsLocked(err) {
			return nil, fmt.Errorf("begin tx: %w", err)
		}
		if attempt >= txBusyRetries {
			return nil, fmt.Errorf("begin tx: %w", domain.ErrStorageLocked)
		}

		t := time.NewTimer(txBusyDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

const assignmentCols = `a.id, a.shipment_id, a.cart_id, a.picker_id, a.state, a.created_at, a.updated_at`

func scanAssignment(row scanner) (domain.Assignment, error) {
	var a domain.Assignment
	err := row.Scan(&a.ID, &a.ShipmentID, &a.CartID, &a.PickerID, &a.State, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (s *SQLAdapter) queryAssignments(ctx context.Context, q queryer, query string, args ...any) ([]domain.Assignment, error) {
	rows, err := q.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const cartCols = `id, name, row_count, column_count, active, created_at, updated_at`

func scanCart(row scanner) (*domain.Cart, error) {
	var c domain.Cart
	if err := row.Scan(&c.ID, &c.Name, &c.Rows, &c.Columns, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func now() time.Time {
	return time.Now().UTC()
}
