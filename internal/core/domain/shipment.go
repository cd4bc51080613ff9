package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ShipmentState string

const (
	ShipmentStateDraft     ShipmentState = "draft"
	ShipmentStateWaiting   ShipmentState = "waiting"
	ShipmentStateAssigned  ShipmentState = "assigned"
	ShipmentStatePacked    ShipmentState = "packed"
	ShipmentStateDone      ShipmentState = "done"
	ShipmentStateCancelled ShipmentState = "cancelled"
)

type MoveState string

const (
	MoveStateDraft     MoveState = "draft"
	MoveStateAssigned  MoveState = "assigned"
	MoveStateDone      MoveState = "done"
	MoveStateCancelled MoveState = "cancelled"
)

// DefaultCarrierSequence ranks shipments without a carrier sequence behind any ranked one.
const DefaultCarrierSequence = 999

type Shipment struct {
	ID              int64
	Code            string
	State           ShipmentState
	PlannedDate     time.Time
	CarrierSequence *int
	WarehouseID     int64
	Moves           []Move
}

func (s Shipment) Sequence() int {
	if s.CarrierSequence == nil {
		return DefaultCarrierSequence
	}
	return *s.CarrierSequence
}

type Move struct {
	ID           int64
	ShipmentID   int64
	Product      Product
	Quantity     decimal.Decimal
	FromLocation Location
	State        MoveState
}

type Product struct {
	ID   int64
	Name string
	Code string
	UOM  UnitOfMeasure
}

type UnitOfMeasure struct {
	ID     int64
	Name   string
	Digits int32
}

// DefaultUnitDigits applies when the product has no unit of measure.
const DefaultUnitDigits = 2

// Precision is the number of decimal places quantities in this unit keep.
// Zero is a valid precision for whole units.
func (u UnitOfMeasure) Precision() int32 {
	if u.ID == 0 || u.Digits < 0 {
		return DefaultUnitDigits
	}
	return u.Digits
}

type Location struct {
	ID       int64
	Name     string
	Sequence *int
}
