package domain

import "github.com/shopspring/decimal"

// PickListEntry is one product's outstanding pick across every claimed shipment.
type PickListEntry struct {
	ProductID     int64
	Name          string
	Code          string
	Quantity      decimal.Decimal
	Shipments     []ShipmentPick
	Locations     []string
	AssignmentIDs []int64
}

type ShipmentPick struct {
	ShipmentID int64
	Code       string
	Quantity   decimal.Decimal
	Location   string
}

// Pick is a quantity a picker reports for one product of a shipment.
type Pick struct {
	ProductID int64
	Quantity  decimal.Decimal
	Location  string
}
