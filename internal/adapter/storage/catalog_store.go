package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rl1809/cart-allocation/internal/core/domain"
	"github.com/rl1809/cart-allocation/internal/port"
)

const shipmentCols = `s.id, s.code, s.state, s.planned_date, c.sequence, s.warehouse_id`

func scanShipment(row scanner) (domain.Shipment, error) {
	var (
		sh       domain.Shipment
		sequence sql.NullInt64
	)
	if err := row.Scan(&sh.ID, &sh.Code, &sh.State, &sh.PlannedDate, &sequence, &sh.WarehouseID); err != nil {
		return sh, err
	}
	sh.CarrierSequence = nullInt(sequence)
	return sh, nil
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func (s *SQLAdapter) queryShipments(ctx context.Context, query string, args ...any) ([]domain.Shipment, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Shipment
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (s *SQLAdapter) Search(ctx context.Context, filter port.ShipmentFilter) ([]domain.Shipment, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.States) > 0 {
		where = append(where, "s.state IN ("+placeholders(len(filter.States))+")")
		args = append(args, stringArgs(filter.States)...)
	}
	if filter.WarehouseID != nil {
		where = append(where, "s.warehouse_id = ?")
		args = append(args, *filter.WarehouseID)
	}
	if len(filter.ExcludeCodes) > 0 {
		where = append(where, "s.code NOT IN ("+placeholders(len(filter.ExcludeCodes))+")")
		args = append(args, stringArgs(filter.ExcludeCodes)...)
	}
	if len(filter.CarrierIDs) > 0 {
		where = append(where, "s.carrier_id IN ("+placeholders(len(filter.CarrierIDs))+")")
		args = append(args, int64Args(filter.CarrierIDs)...)
	}

	query := `SELECT ` + shipmentCols + ` FROM shipments s LEFT JOIN carriers c ON c.id = s.carrier_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY s.planned_date, s.id"

	shipments, err := s.queryShipments(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search shipments: %w", err)
	}
	return shipments, nil
}

func (s *SQLAdapter) ShipmentsByIDs(ctx context.Context, ids []int64) ([]domain.Shipment, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	shipments, err := s.queryShipments(ctx, `
		SELECT `+shipmentCols+`
		FROM shipments s LEFT JOIN carriers c ON c.id = s.carrier_id
		WHERE s.id IN (`+placeholders(len(ids))+`)
		ORDER BY s.id`, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("query shipments: %w", err)
	}

	moves, err := s.movesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range shipments {
		shipments[i].Moves = moves[shipments[i].ID]
	}
	return shipments, nil
}

func (s *SQLAdapter) movesFor(ctx context.Context, shipmentIDs []int64) (map[int64][]domain.Move, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT m.id, m.shipment_id, m.quantity, m.state,
			p.id, p.name, p.code, u.id, u.name, u.digits,
			l.id, l.name, l.sequence
		FROM inventory_moves m
		JOIN products p ON p.id = m.product_id
		JOIN uoms u ON u.id = p.uom_id
		JOIN locations l ON l.id = m.from_location_id
		WHERE m.shipment_id IN (`+placeholders(len(shipmentIDs))+`)
		ORDER BY m.shipment_id, m.id`), int64Args(shipmentIDs)...)
	if err != nil {
		return nil, fmt.Errorf("query moves: %w", err)
	}
	defer rows.Close()

	moves := make(map[int64][]domain.Move)
	for rows.Next() {
		var (
			m        domain.Move
			sequence sql.NullInt64
		)
		if err := rows.Scan(
			&m.ID, &m.ShipmentID, &m.Quantity, &m.State,
			&m.Product.ID, &m.Product.Name, &m.Product.Code,
			&m.Product.UOM.ID, &m.Product.UOM.Name, &m.Product.UOM.Digits,
			&m.FromLocation.ID, &m.FromLocation.Name, &sequence,
		); err != nil {
			return nil, err
		}
		m.FromLocation.Sequence = nullInt(sequence)
		moves[m.ShipmentID] = append(moves[m.ShipmentID], m)
	}
	return moves, rows.Err()
}

func (s *SQLAdapter) ShipmentsByCodes(ctx context.Context, codes []string) ([]domain.Shipment, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	shipments, err := s.queryShipments(ctx, `
		SELECT `+shipmentCols+`
		FROM shipments s LEFT JOIN carriers c ON c.id = s.carrier_id
		WHERE s.code IN (`+placeholders(len(codes))+`)
		ORDER BY s.id`, stringArgs(codes)...)
	if err != nil {
		return nil, fmt.Errorf("query shipments by code: %w", err)
	}
	return shipments, nil
}

func (s *SQLAdapter) Picker(ctx context.Context, id int64) (*domain.Picker, error) {
	var (
		p      domain.Picker
		cartID sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, s.q(`SELECT id, name, cart_id FROM pickers WHERE id = ?`), id).
		Scan(&p.ID, &p.Name, &cartID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query picker: %w", err)
	}

	if cartID.Valid {
		p.CartID = &cartID.Int64
		cart, err := s.GetCart(ctx, cartID.Int64)
		if err != nil {
			return nil, err
		}
		p.Cart = cart
	}
	return &p, nil
}

func (s *SQLAdapter) SetPickerCart(ctx context.Context, pickerID int64, cartID *int64) error {
	var cart any
	if cartID != nil {
		cart = *cartID
	}
	if _, err := s.db.ExecContext(ctx, s.q(`UPDATE pickers SET cart_id = ? WHERE id = ?`), cart, pickerID); err != nil {
		return fmt.Errorf("update picker cart: %w", err)
	}
	return nil
}

func (s *SQLAdapter) MaxSequence(ctx context.Context) (int, error) {
	var max sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(sequence) FROM locations`).Scan(&max); err != nil {
		return 0, fmt.Errorf("query max sequence: %w", err)
	}
	return int(max.Int64), nil
}

func (s *SQLAdapter) LocationsByName(ctx context.Context, names []string) (map[string]domain.Location, error) {
	locations := make(map[string]domain.Location, len(names))
	if len(names) == 0 {
		return locations, nil
	}

	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, name, sequence FROM locations
		WHERE name IN (`+placeholders(len(names))+`)`), stringArgs(names)...)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			loc      domain.Location
			sequence sql.NullInt64
		)
		if err := rows.Scan(&loc.ID, &loc.Name, &sequence); err != nil {
			return nil, err
		}
		loc.Sequence = nullInt(sequence)
		locations[loc.Name] = loc
	}
	return locations, rows.Err()
}

func (s *SQLAdapter) Products(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	products := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT p.id, p.name, p.code, u.id, u.name, u.digits
		FROM products p JOIN uoms u ON u.id = p.uom_id
		WHERE p.id IN (`+placeholders(len(ids))+`)`), int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Code, &p.UOM.ID, &p.UOM.Name, &p.UOM.Digits); err != nil {
			return nil, err
		}
		products[p.ID] = p
	}
	return products, rows.Err()
}
