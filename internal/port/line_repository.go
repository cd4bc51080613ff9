package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rl1809/cart-allocation/internal/core/domain"
)

// LineProduct identifies a recorded (shipment, product) pair.
type LineProduct struct {
	ShipmentID int64
	ProductID  int64
}

type LineRepository interface {
	// RecordedProducts lists the (shipment, product) pairs already recorded by the picker on the cart
	RecordedProducts(ctx context.Context, pickerID, cartID int64, shipmentIDs []int64) (map[LineProduct]bool, error)

	// CreateLines inserts lines in one transaction
	CreateLines(ctx context.Context, lines []domain.Line) ([]domain.Line, error)

	// OutstandingQuantity sums line quantities at the location for shipments in one of states
	OutstandingQuantity(ctx context.Context, locationID int64, productIDs []int64, states []domain.ShipmentState) (map[int64]decimal.Decimal, error)
}
