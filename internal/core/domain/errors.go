package domain

import "errors"

var (
	ErrNoCartAssigned         = errors.New("picker has no cart assigned")
	ErrStorageLocked          = errors.New("allocation storage locked")
	ErrDuplicateShipmentClaim = errors.New("shipment already claimed")
	ErrInvalidCapacity        = errors.New("cart rows and columns must be positive")
	ErrInvalidCart            = errors.New("cart name is required")
	ErrCartInUse              = errors.New("cart referenced by draft assignments")
	ErrCartNotFound           = errors.New("cart not found")
	ErrPickerNotFound         = errors.New("picker not found")
	ErrAssignmentNotFound     = errors.New("assignment not found")
	ErrUnknownReference       = errors.New("unknown pick reference")
	ErrInvalidQuantity        = errors.New("quantity must not be negative")
)
