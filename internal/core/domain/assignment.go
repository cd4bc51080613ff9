package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type State string

const (
	StateDraft State = "draft"
	StateDone  State = "done"
)

// Transition names a move through the draft/done state machine.
type Transition struct {
	Name string
	From State
	To   State
}

var (
	TransitionComplete = Transition{Name: "complete", From: StateDraft, To: StateDone}
	TransitionReopen   = Transition{Name: "reopen", From: StateDone, To: StateDraft}
)

type Assignment struct {
	ID         int64
	ShipmentID int64
	CartID     int64
	PickerID   int64
	State      State
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Key identifies the lines that follow this assignment through its transitions.
func (a Assignment) Key() LineKey {
	return LineKey{ShipmentID: a.ShipmentID, CartID: a.CartID, PickerID: a.PickerID}
}

type LineKey struct {
	ShipmentID int64
	CartID     int64
	PickerID   int64
}

type Line struct {
	ID             int64
	ShipmentID     int64
	FromLocationID int64
	CartID         int64
	PickerID       int64
	ProductID      int64
	UOMID          int64
	Quantity       decimal.Decimal
	State          State
	CreatedAt      time.Time
}
