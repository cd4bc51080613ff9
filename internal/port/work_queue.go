package port

import (
	"context"

	"github.com/rl1809/cart-allocation/internal/core/domain"
)

// ShipmentFilter selects shipments eligible for picking.
type ShipmentFilter struct {
	States       []domain.ShipmentState
	WarehouseID  *int64
	ExcludeCodes []string
	CarrierIDs   []int64
}

type WorkQueue interface {
	// Search returns matching shipments ordered by planned date, without moves
	Search(ctx context.Context, filter ShipmentFilter) ([]domain.Shipment, error)

	// ShipmentsByIDs loads shipments with their inventory moves
	ShipmentsByIDs(ctx context.Context, ids []int64) ([]domain.Shipment, error)

	// ShipmentsByCodes loads shipments by code, without moves
	ShipmentsByCodes(ctx context.Context, codes []string) ([]domain.Shipment, error)
}

type PickerDirectory interface {
	// Picker returns the picker with its cart resolved, nil when unknown
	Picker(ctx context.Context, id int64) (*domain.Picker, error)

	// SetPickerCart points the picker at a cart, or clears it when cartID is nil
	SetPickerCart(ctx context.Context, pickerID int64, cartID *int64) error
}

type LocationDirectory interface {
	// MaxSequence returns the highest location sequence, zero when none is set
	MaxSequence(ctx context.Context) (int, error)

	// LocationsByName resolves locations keyed by name
	LocationsByName(ctx context.Context, names []string) (map[string]domain.Location, error)
}

type ProductCatalog interface {
	// Products resolves products with their unit of measure, keyed by ID
	Products(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
}

type CartRepository interface {
	CreateCart(ctx context.Context, cart domain.Cart) (*domain.Cart, error)
	GetCart(ctx context.Context, id int64) (*domain.Cart, error)
	UpdateCart(ctx context.Context, cart domain.Cart) (*domain.Cart, error)
	DeleteCart(ctx context.Context, id int64) error

	// CartInUse reports whether a draft assignment references the cart
	CartInUse(ctx context.Context, id int64) (bool, error)
}
