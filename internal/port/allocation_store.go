package port

import (
	"context"

	"github.com/rl1809/cart-allocation/internal/core/domain"
)

type AllocationStore interface {
	// WithClaimLock runs fn in a transaction holding the exclusive lock on the assignment
	// table. It never waits for the lock: a busy lock returns domain.ErrStorageLocked.
	WithClaimLock(ctx context.Context, fn func(ctx context.Context, tx ClaimTx) error) error

	// Assignments loads assignments by ID, skipping unknown IDs
	Assignments(ctx context.Context, ids []int64) ([]domain.Assignment, error)

	// DraftAssignmentsForShipments returns draft assignments of the given shipment codes
	DraftAssignmentsForShipments(ctx context.Context, codes []string) ([]domain.Assignment, error)

	// SetState moves the assignments and every line sharing their (shipment, cart, picker)
	// key to state, in one transaction
	SetState(ctx context.Context, assignments []domain.Assignment, state domain.State) error

	// DeleteAssignments removes the assignments' lines, then the assignments
	DeleteAssignments(ctx context.Context, assignments []domain.Assignment) error
}

// ClaimTx is the view of the assignment table available while the claim lock is held.
type ClaimTx interface {
	// DraftAssignments returns all of the picker's unfinished assignments, oldest first
	DraftAssignments(ctx context.Context, pickerID int64) ([]domain.Assignment, error)

	// ClaimedShipments reports which of the shipments have any assignment, draft or done
	ClaimedShipments(ctx context.Context, shipmentIDs []int64) (map[int64]bool, error)

	// CreateAssignments inserts draft assignments and returns them with their IDs.
	// A shipment already claimed yields domain.ErrDuplicateShipmentClaim.
	CreateAssignments(ctx context.Context, assignments []domain.Assignment) ([]domain.Assignment, error)
}
