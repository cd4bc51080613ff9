package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rl1809/cart-allocation/internal/core/domain"
	"github.com/rl1809/cart-allocation/internal/port"
)

// WithClaimLock opens a transaction and takes the coarse lock on cart_assignments without
// waiting. The lock is released when the transaction ends.
func (s *SQLAdapter) WithClaimLock(ctx context.Context, fn func(ctx context.Context, tx port.ClaimTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		if s.dialect.IsLocked(err) {
			return domain.ErrStorageLocked
		}
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if s.dialect.LockStmt != "" {
		rows, err := tx.QueryContext(ctx, s.dialect.LockStmt)
		if err == nil {
			err = rows.Close()
		}
		if err != nil {
			if s.dialect.IsLocked(err) {
				return domain.ErrStorageLocked
			}
			return fmt.Errorf("lock assignments: %w", err)
		}
	}

	if err := fn(ctx, &claimTx{tx: tx, adapter: s}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		if s.dialect.IsUnique(err) {
			return domain.ErrDuplicateShipmentClaim
		}
		return fmt.Errorf("commit claim: %w", err)
	}
	return nil
}

type claimTx struct {
	tx      *sql.Tx
	adapter *SQLAdapter
}

func (c *claimTx) DraftAssignments(ctx context.Context, pickerID int64) ([]domain.Assignment, error) {
	return c.adapter.queryAssignments(ctx, c.tx, `
		SELECT `+assignmentCols+`
		FROM cart_assignments a
		WHERE a.picker_id = ? AND a.state = ?
		ORDER BY a.id`, pickerID, string(domain.StateDraft))
}

func (c *claimTx) ClaimedShipments(ctx context.Context, shipmentIDs []int64) (map[int64]bool, error) {
	claimed := make(map[int64]bool)
	if len(shipmentIDs) == 0 {
		return claimed, nil
	}

	rows, err := c.tx.QueryContext(ctx, c.adapter.q(`
		SELECT shipment_id FROM cart_assignments
		WHERE shipment_id IN (`+placeholders(len(shipmentIDs))+`)`),
		int64Args(shipmentIDs)...,
	)
	if err != nil {
		return nil, fmt.Errorf("query claimed shipments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		claimed[id] = true
	}
	return claimed, rows.Err()
}

func (c *claimTx) CreateAssignments(ctx context.Context, assignments []domain.Assignment) ([]domain.Assignment, error) {
	ts := now()
	out := make([]domain.Assignment, 0, len(assignments))

	for _, a := range assignments {
		a.CreatedAt, a.UpdatedAt = ts, ts
		if a.State == "" {
			a.State = domain.StateDraft
		}

		id, err := c.adapter.dialect.insert(ctx, c.tx, `
			INSERT INTO cart_assignments (shipment_id, cart_id, picker_id, state, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			a.ShipmentID, a.CartID, a.PickerID, string(a.State), a.CreatedAt, a.UpdatedAt,
		)
		if err != nil {
			if c.adapter.dialect.IsUnique(err) {
				return nil, fmt.Errorf("shipment %d: %w", a.ShipmentID, domain.ErrDuplicateShipmentClaim)
			}
			return nil, fmt.Errorf("insert assignment: %w", err)
		}
		a.ID = id
		out = append(out, a)
	}
	return out, nil
}

func (s *SQLAdapter) Assignments(ctx context.Context, ids []int64) ([]domain.Assignment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	assignments, err := s.queryAssignments(ctx, s.db, `
		SELECT `+assignmentCols+`
		FROM cart_assignments a
		WHERE a.id IN (`+placeholders(len(ids))+`)
		ORDER BY a.id`, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	return assignments, nil
}

func (s *SQLAdapter) DraftAssignmentsForShipments(ctx context.Context, codes []string) ([]domain.Assignment, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	args := append(stringArgs(codes), string(domain.StateDraft))
	assignments, err := s.queryAssignments(ctx, s.db, `
		SELECT `+assignmentCols+`
		FROM cart_assignments a
		JOIN shipments s ON s.id = a.shipment_id
		WHERE s.code IN (`+placeholders(len(codes))+`) AND a.state = ?
		ORDER BY a.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query draft assignments: %w", err)
	}
	return assignments, nil
}

func (s *SQLAdapter) SetState(ctx context.Context, assignments []domain.Assignment, state domain.State) error {
	if len(assignments) == 0 {
		return nil
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		args := append([]any{string(state), now()}, int64Args(assignmentIDs(assignments))...)
		if _, err := tx.ExecContext(ctx, s.q(`
			UPDATE cart_assignments SET state = ?, updated_at = ?
			WHERE id IN (`+placeholders(len(assignments))+`)`), args...); err != nil {
			return fmt.Errorf("update assignments: %w", err)
		}

		where, keyArgs := lineKeyClause(assignments)
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE cart_lines SET state = ? WHERE `+where),
			append([]any{string(state)}, keyArgs...)...); err != nil {
			return fmt.Errorf("update lines: %w", err)
		}
		return nil
	})
}

func (s *SQLAdapter) DeleteAssignments(ctx context.Context, assignments []domain.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		where, keyArgs := lineKeyClause(assignments)
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM cart_lines WHERE `+where), keyArgs...); err != nil {
			return fmt.Errorf("delete lines: %w", err)
		}

		ids := assignmentIDs(assignments)
		if _, err := tx.ExecContext(ctx, s.q(`
			DELETE FROM cart_assignments
			WHERE id IN (`+placeholders(len(ids))+`)`), int64Args(ids)...); err != nil {
			return fmt.Errorf("delete assignments: %w", err)
		}
		return nil
	})
}

// lineKeyClause matches the lines sharing a (shipment, cart, picker) key with any assignment.
func lineKeyClause(assignments []domain.Assignment) (string, []any) {
	clauses := make([]string, 0, len(assignments))
	args := make([]any, 0, len(assignments)*3)
	for _, a := range assignments {
		clauses = append(clauses, "(shipment_id = ? AND cart_id = ? AND picker_id = ?)")
		args = append(args, a.ShipmentID, a.CartID, a.PickerID)
	}
	return "(" + strings.Join(clauses, " OR ") + ")", args
}

func assignmentIDs(assignments []domain.Assignment) []int64 {
	ids := make([]int64, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.ID)
	}
	return ids
}
