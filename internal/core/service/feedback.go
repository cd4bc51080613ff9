package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/cart-allocation/internal/core/domain"
	"github.com/rl1809/cart-allocation/internal/port"
)

// ReservedShipmentStates are the shipment states whose lines still count as out for picking.
var ReservedShipmentStates = []domain.ShipmentState{domain.ShipmentStateAssigned}

type Feedback struct {
	lines port.LineRepository
}

func NewFeedback(lines port.LineRepository) *Feedback {
	return &Feedback{lines: lines}
}

// OutstandingQuantity reports, per product, how much has been picked from the location for
// shipments not yet shipped. Every requested product is present in the result.
func (f *Feedback) OutstandingQuantity(ctx context.Context, locationID int64, productIDs []int64) (map[int64]decimal.Decimal, error) {
	result := make(map[int64]decimal.Decimal, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	sums, err := f.lines.OutstandingQuantity(ctx, locationID, productIDs, ReservedShipmentStates)
	if err != nil {
		return nil, fmt.Errorf("outstanding quantity: %w", err)
	}
	for _, id := range productIDs {
		result[id] = sums[id]
	}
	return result, nil
}
