package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/cart-allocation/internal/core/domain"
	"github.com/rl1809/cart-allocation/internal/port"
)

func (s *SQLAdapter) RecordedProducts(ctx context.Context, pickerID, cartID int64, shipmentIDs []int64) (map[port.LineProduct]bool, error) {
	recorded := make(map[port.LineProduct]bool)
	if len(shipmentIDs) == 0 {
		return recorded, nil
	}

	args := append([]any{pickerID, cartID}, int64Args(shipmentIDs)...)
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT DISTINCT shipment_id, product_id FROM cart_lines
		WHERE picker_id = ? AND cart_id = ?
		AND shipment_id IN (`+placeholders(len(shipmentIDs))+`)`), args...)
	if err != nil {
		return nil, fmt.Errorf("query recorded products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key port.LineProduct
		if err := rows.Scan(&key.ShipmentID, &key.ProductID); err != nil {
			return nil, err
		}
		recorded[key] = true
	}
	return recorded, rows.Err()
}

func (s *SQLAdapter) CreateLines(ctx context.Context, lines []domain.Line) ([]domain.Line, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	out := make([]domain.Line, 0, len(lines))
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		ts := now()
		for _, l := range lines {
			l.CreatedAt = ts
			if l.State == "" {
				l.State = domain.StateDraft
			}
			id, err := s.dialect.insert(ctx, tx, `
				INSERT INTO cart_lines
					(shipment_id, from_location_id, cart_id, picker_id, product_id, uom_id, quantity, state, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				l.ShipmentID, l.FromLocationID, l.CartID, l.PickerID, l.ProductID, l.UOMID,
				l.Quantity.String(), string(l.State), l.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("insert line: %w", err)
			}
			l.ID = id
			out = append(out, l)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLAdapter) OutstandingQuantity(ctx context.Context, locationID int64, productIDs []int64, states []domain.ShipmentState) (map[int64]decimal.Decimal, error) {
	totals := make(map[int64]decimal.Decimal, len(productIDs))
	if len(productIDs) == 0 || len(states) == 0 {
		return totals, nil
	}

	args := []any{locationID}
	args = append(args, int64Args(productIDs)...)
	args = append(args, stringArgs(states)...)

	// Summed here rather than with SUM(): SQLite would add the values as floats.
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT l.product_id, l.quantity
		FROM cart_lines l
		JOIN shipments s ON s.id = l.shipment_id
		WHERE l.from_location_id = ?
		AND l.product_id IN (`+placeholders(len(productIDs))+`)
		AND s.state IN (`+placeholders(len(states))+`)`), args...)
	if err != nil {
		return nil, fmt.Errorf("query outstanding quantity: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID int64
			qty       decimal.Decimal
		)
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, err
		}
		totals[productID] = totals[productID].Add(qty)
	}
	return totals, rows.Err()
}
