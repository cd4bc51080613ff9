package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/cart-allocation/internal/core/domain"
	"github.com/rl1809/cart-allocation/internal/metrics"
	"github.com/rl1809/cart-allocation/internal/port"
)

const (
	DefaultMaxRetries = 5
	DefaultRetryDelay = 500 * time.Millisecond
)

var DefaultClaimStates = []domain.ShipmentState{domain.ShipmentStateAssigned}

type ClaimRequest struct {
	WarehouseID *int64
	States      []domain.ShipmentState
	// MaxRetries bounds the extra lock attempts; nil keeps the allocator's setting
	MaxRetries *int
}

type Allocator struct {
	store      port.AllocationStore
	queue      port.WorkQueue
	pickers    port.PickerDirectory
	aggregator *Aggregator
	events     port.EventPublisher
	policy     ShipmentPolicy
	states     []domain.ShipmentState
	warehouse  *int64
	maxRetries int
	retryDelay time.Duration
	log        *slog.Logger
}

type AllocatorOption func(*Allocator)

func WithPolicy(policy ShipmentPolicy) AllocatorOption {
	return func(a *Allocator) { a.policy = policy }
}

// WithClaimStates sets the shipment states claimed when a request names none.
func WithClaimStates(states []domain.ShipmentState) AllocatorOption {
	return func(a *Allocator) { a.states = states }
}

// WithWarehouse limits claims to one warehouse unless a request names another.
func WithWarehouse(id int64) AllocatorOption {
	return func(a *Allocator) { a.warehouse = &id }
}

func WithMaxRetries(n int) AllocatorOption {
	return func(a *Allocator) { a.maxRetries = n }
}

func WithRetryDelay(d time.Duration) AllocatorOption {
	return func(a *Allocator) { a.retryDelay = d }
}

func WithEvents(events port.EventPublisher) AllocatorOption {
	return func(a *Allocator) { a.events = events }
}

func WithLogger(log *slog.Logger) AllocatorOption {
	return func(a *Allocator) { a.log = log }
}

func NewAllocator(store port.AllocationStore, queue port.WorkQueue, pickers port.PickerDirectory, aggregator *Aggregator, opts ...AllocatorOption) *Allocator {
	a := &Allocator{
		store:      store,
		queue:      queue,
		pickers:    pickers,
		aggregator: aggregator,
		events:     port.NopPublisher{},
		policy:     DefaultPolicy{},
		states:     DefaultClaimStates,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Claim hands the picker a cart load of shipments as a pick list. A picker with unfinished
// assignments gets those back instead of new work. A missing cart or a lock that stays busy
// through every retry yields an empty list, not an error.
func (a *Allocator) Claim(ctx context.Context, pickerID int64, req ClaimRequest) ([]domain.PickListEntry, error) {
	start := time.Now()
	defer func() { metrics.ClaimDuration.Observe(time.Since(start).Seconds()) }()

	picker, err := a.pickers.Picker(ctx, pickerID)
	if err != nil {
		return nil, fmt.Errorf("load picker: %w", err)
	}
	if picker == nil {
		return nil, domain.ErrPickerNotFound
	}

	cart, ok := picker.ActiveCart()
	if !ok {
		a.log.Warn("picker has no cart in their preferences", "picker_id", pickerID, "err", domain.ErrNoCartAssigned)
		metrics.ClaimsTotal.WithLabelValues(metrics.OutcomeNoCart).Inc()
		return []domain.PickListEntry{}, nil
	}

	capacity := cart.Capacity()
	if capacity <= 0 {
		metrics.ClaimsTotal.WithLabelValues(metrics.OutcomeEmpty).Inc()
		return []domain.PickListEntry{}, nil
	}

	filter := port.ShipmentFilter{States: req.States, WarehouseID: req.WarehouseID}
	if len(filter.States) == 0 {
		filter.States = a.states
	}
	if filter.WarehouseID == nil {
		filter.WarehouseID = a.warehouse
	}
	a.policy.Filter(&filter)

	maxRetries := a.maxRetries
	if req.MaxRetries != nil && *req.MaxRetries >= 0 {
		maxRetries = *req.MaxRetries
	}

	var (
		claimed []domain.Assignment
		resumed bool
	)
	for attempt := 0; ; attempt++ {
		claimed, resumed, err = a.claimOnce(ctx, *picker, *cart, capacity, filter)
		if !errors.Is(err, domain.ErrStorageLocked) {
			break
		}
		metrics.LockAttemptsTotal.WithLabelValues(metrics.LockBusy).Inc()

		if attempt >= maxRetries {
			a.log.Warn("assignment table locked, giving up", "picker_id", pickerID, "attempts", attempt+1)
			metrics.ClaimsTotal.WithLabelValues(metrics.OutcomeLocked).Inc()
			return []domain.PickListEntry{}, nil
		}
		if err := sleepContext(ctx, a.retryDelay); err != nil {
			return nil, err
		}
	}
	if err != nil {
		metrics.ClaimsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, fmt.Errorf("claim shipments: %w", err)
	}
	metrics.LockAttemptsTotal.WithLabelValues(metrics.LockAcquired).Inc()

	switch {
	case resumed:
		metrics.ClaimsTotal.WithLabelValues(metrics.OutcomeResumed).Inc()
		a.log.Debug("resuming draft assignments", "picker_id", pickerID, "count", len(claimed))
	case len(claimed) == 0:
		metrics.ClaimsTotal.WithLabelValues(metrics.OutcomeEmpty).Inc()
		return []domain.PickListEntry{}, nil
	default:
		metrics.ClaimsTotal.WithLabelValues(metrics.OutcomeClaimed).Inc()
		metrics.AssignmentsCreatedTotal.Add(float64(len(claimed)))
		a.log.Info("claimed shipments", "picker_id", pickerID, "cart_id", cart.ID, "count", len(claimed))
		a.publish(ctx, domain.EventAssignmentsClaimed, pickerID, claimed)
	}

	return a.aggregator.Aggregate(ctx, claimed)
}

func (a *Allocator) claimOnce(ctx context.Context, picker domain.Picker, cart domain.Cart, capacity int, filter port.ShipmentFilter) ([]domain.Assignment, bool, error) {
	var (
		claimed []domain.Assignment
		resumed bool
	)

	err := a.store.WithClaimLock(ctx, func(ctx context.Context, tx port.ClaimTx) error {
		drafts, err := tx.DraftAssignments(ctx, picker.ID)
		if err != nil {
			return fmt.Errorf("draft assignments: %w", err)
		}
		if len(drafts) > 0 {
			claimed, resumed = drafts, true
			return nil
		}

		shipments, err := a.queue.Search(ctx, filter)
		if err != nil {
			return fmt.Errorf("search shipments: %w", err)
		}
		shipments = a.policy.Select(OrderShipments(shipments))
		if len(shipments) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(shipments))
		for _, s := range shipments {
			ids = append(ids, s.ID)
		}
		taken, err := tx.ClaimedShipments(ctx, ids)
		if err != nil {
			return fmt.Errorf("claimed shipments: %w", err)
		}

		toCreate := make([]domain.Assignment, 0, capacity)
		for _, s := range shipments {
			if taken[s.ID] {
				continue
			}
			toCreate = append(toCreate, domain.Assignment{
				ShipmentID: s.ID,
				CartID:     cart.ID,
				PickerID:   picker.ID,
				State:      domain.StateDraft,
			})
			if len(toCreate) == capacity {
				break
			}
		}
		if len(toCreate) == 0 {
			return nil
		}

		claimed, err = tx.CreateAssignments(ctx, toCreate)
		return err
	})

	return claimed, resumed, err
}

// OrderShipments sorts by planned date, then by carrier sequence.
func OrderShipments(shipments []domain.Shipment) []domain.Shipment {
	sort.SliceStable(shipments, func(i, j int) bool {
		if !shipments[i].PlannedDate.Equal(shipments[j].PlannedDate) {
			return shipments[i].PlannedDate.Before(shipments[j].PlannedDate)
		}
		return shipments[i].Sequence() < shipments[j].Sequence()
	})
	return shipments
}

func (a *Allocator) publish(ctx context.Context, typ domain.EventType, pickerID int64, assignments []domain.Assignment) {
	publishAssignments(ctx, a.events, a.log, typ, pickerID, assignments)
}

func publishAssignments(ctx context.Context, events port.EventPublisher, log *slog.Logger, typ domain.EventType, pickerID int64, assignments []domain.Assignment) {
	event := domain.Event{
		ID:         uuid.NewString(),
		Type:       typ,
		PickerID:   pickerID,
		OccurredAt: time.Now().UTC(),
	}
	for _, as := range assignments {
		event.AssignmentIDs = append(event.AssignmentIDs, as.ID)
		event.ShipmentIDs = append(event.ShipmentIDs, as.ShipmentID)
	}
	if err := events.Publish(ctx, event); err != nil {
		log.Warn("publish event failed", "type", typ, "event_id", event.ID, "err", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
