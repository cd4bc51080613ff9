package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rl1809/cart-allocation/internal/core/domain"
)

// Master data writers used by the seeding tools and tests.

func (s *SQLAdapter) CreateUOM(ctx context.Context, name string, digits int32) (domain.UnitOfMeasure, error) {
	id, err := s.dialect.insert(ctx, s.db, `INSERT INTO uoms (name, digits) VALUES (?, ?)`, name, digits)
	if err != nil {
		return domain.UnitOfMeasure{}, fmt.Errorf("insert uom: %w", err)
	}
	return domain.UnitOfMeasure{ID: id, Name: name, Digits: digits}, nil
}

func (s *SQLAdapter) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	id, err := s.dialect.insert(ctx, s.db, `INSERT INTO products (name, code, uom_id) VALUES (?, ?, ?)`,
		p.Name, p.Code, p.UOM.ID)
	if err != nil {
		return p, fmt.Errorf("insert product: %w", err)
	}
	p.ID = id
	return p, nil
}

func (s *SQLAdapter) CreateLocation(ctx context.Context, loc domain.Location, warehouseID int64) (domain.Location, error) {
	id, err := s.dialect.insert(ctx, s.db, `INSERT INTO locations (name, sequence, warehouse_id) VALUES (?, ?, ?)`,
		loc.Name, nullable(loc.Sequence), warehouseID)
	if err != nil {
		return loc, fmt.Errorf("insert location: %w", err)
	}
	loc.ID = id
	return loc, nil
}

func (s *SQLAdapter) CreateCarrier(ctx context.Context, name string, sequence *int) (int64, error) {
	id, err := s.dialect.insert(ctx, s.db, `INSERT INTO carriers (name, sequence) VALUES (?, ?)`,
		name, nullable(sequence))
	if err != nil {
		return 0, fmt.Errorf("insert carrier: %w", err)
	}
	return id, nil
}

func (s *SQLAdapter) CreatePicker(ctx context.Context, name string, cartID *int64) (domain.Picker, error) {
	var cart any
	if cartID != nil {
		cart = *cartID
	}
	id, err := s.dialect.insert(ctx, s.db, `INSERT INTO pickers (name, cart_id) VALUES (?, ?)`, name, cart)
	if err != nil {
		return domain.Picker{}, fmt.Errorf("insert picker: %w", err)
	}
	return domain.Picker{ID: id, Name: name, CartID: cartID}, nil
}

// CreateShipment inserts the shipment and its moves in one transaction.
func (s *SQLAdapter) CreateShipment(ctx context.Context, sh domain.Shipment, carrierID *int64) (domain.Shipment, error) {
	if sh.State == "" {
		sh.State = domain.ShipmentStateAssigned
	}
	var carrier any
	if carrierID != nil {
		carrier = *carrierID
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		id, err := s.dialect.insert(ctx, tx, `
			INSERT INTO shipments (code, state, planned_date, carrier_id, warehouse_id)
			VALUES (?, ?, ?, ?, ?)`,
			sh.Code, string(sh.State), sh.PlannedDate.UTC(), carrier, sh.WarehouseID)
		if err != nil {
			return fmt.Errorf("insert shipment: %w", err)
		}
		sh.ID = id

		for i := range sh.Moves {
			m := &sh.Moves[i]
			m.ShipmentID = id
			if m.State == "" {
				m.State = domain.MoveStateAssigned
			}
			m.ID, err = s.dialect.insert(ctx, tx, `
				INSERT INTO inventory_moves (shipment_id, product_id, quantity, from_location_id, state)
				VALUES (?, ?, ?, ?, ?)`,
				id, m.Product.ID, m.Quantity.String(), m.FromLocation.ID, string(m.State))
			if err != nil {
				return fmt.Errorf("insert move: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Shipment{}, err
	}
	return sh, nil
}

func (s *SQLAdapter) SetShipmentState(ctx context.Context, id int64, state domain.ShipmentState) error {
	if _, err := s.db.ExecContext(ctx, s.q(`UPDATE shipments SET state = ? WHERE id = ?`), string(state), id); err != nil {
		return fmt.Errorf("update shipment state: %w", err)
	}
	return nil
}

func nullable(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
