package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/cart-allocation/internal/core/domain"
	"github.com/rl1809/cart-allocation/internal/metrics"
	"github.com/rl1809/cart-allocation/internal/port"
)

// Recorder persists what pickers report and moves assignments through draft and done.
type Recorder struct {
	store     port.AllocationStore
	lines     port.LineRepository
	queue     port.WorkQueue
	pickers   port.PickerDirectory
	locations port.LocationDirectory
	products  port.ProductCatalog
	events    port.EventPublisher
	log       *slog.Logger
}

type RecorderDeps struct {
	Store     port.AllocationStore
	Lines     port.LineRepository
	Queue     port.WorkQueue
	Pickers   port.PickerDirectory
	Locations port.LocationDirectory
	Products  port.ProductCatalog
	Events    port.EventPublisher
	Log       *slog.Logger
}

func NewRecorder(deps RecorderDeps) *Recorder {
	r := &Recorder{
		store:     deps.Store,
		lines:     deps.Lines,
		queue:     deps.Queue,
		pickers:   deps.Pickers,
		locations: deps.Locations,
		products:  deps.Products,
		events:    deps.Events,
		log:       deps.Log,
	}
	if r.events == nil {
		r.events = port.NopPublisher{}
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	return r
}

// RecordPicks stores one line per shipment and product the picker has not recorded yet on
// their current cart. Picks are keyed by shipment code. Re-submitting the same picks is a no-op.
func (r *Recorder) RecordPicks(ctx context.Context, pickerID int64, picks map[string][]domain.Pick) ([]domain.Line, error) {
	if len(picks) == 0 {
		return nil, nil
	}

	picker, err := r.pickers.Picker(ctx, pickerID)
	if err != nil {
		return nil, fmt.Errorf("load picker: %w", err)
	}
	if picker == nil {
		return nil, domain.ErrPickerNotFound
	}
	cart, ok := picker.ActiveCart()
	if !ok {
		r.log.Debug("picks ignored, picker has no cart", "picker_id", pickerID)
		return nil, nil
	}

	codes := make([]string, 0, len(picks))
	var (
		productIDs    []int64
		locationNames []string
	)
	for code, entries := range picks {
		codes = append(codes, code)
		for _, p := range entries {
			if p.Quantity.IsNegative() {
				return nil, fmt.Errorf("%w: shipment %s product %d", domain.ErrInvalidQuantity, code, p.ProductID)
			}
			productIDs = append(productIDs, p.ProductID)
			locationNames = append(locationNames, p.Location)
		}
	}
	sort.Strings(codes)

	shipmentList, err := r.queue.ShipmentsByCodes(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("load shipments: %w", err)
	}
	shipments := make(map[string]domain.Shipment, len(shipmentList))
	shipmentIDs := make([]int64, 0, len(shipmentList))
	for _, s := range shipmentList {
		shipments[s.Code] = s
		shipmentIDs = append(shipmentIDs, s.ID)
	}

	locations, err := r.locations.LocationsByName(ctx, locationNames)
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}
	products, err := r.products.Products(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	recorded, err := r.lines.RecordedProducts(ctx, picker.ID, cart.ID, shipmentIDs)
	if err != nil {
		return nil, fmt.Errorf("recorded products: %w", err)
	}
	if recorded == nil {
		recorded = make(map[port.LineProduct]bool)
	}

	var toCreate []domain.Line
	for _, code := range codes {
		shipment, ok := shipments[code]
		if !ok {
			return nil, fmt.Errorf("%w: shipment %s", domain.ErrUnknownReference, code)
		}
		for _, p := range picks[code] {
			product, ok := products[p.ProductID]
			if !ok {
				return nil, fmt.Errorf("%w: product %d", domain.ErrUnknownReference, p.ProductID)
			}
			location, ok := locations[p.Location]
			if !ok {
				return nil, fmt.Errorf("%w: location %q", domain.ErrUnknownReference, p.Location)
			}

			key := port.LineProduct{ShipmentID: shipment.ID, ProductID: product.ID}
			if recorded[key] {
				continue
			}
			recorded[key] = true

			toCreate = append(toCreate, domain.Line{
				ShipmentID:     shipment.ID,
				FromLocationID: location.ID,
				CartID:         cart.ID,
				PickerID:       picker.ID,
				ProductID:      product.ID,
				UOMID:          product.UOM.ID,
				Quantity:       p.Quantity.Round(product.UOM.Precision()),
				State:          domain.StateDraft,
			})
		}
	}
	if len(toCreate) == 0 {
		return nil, nil
	}

	created, err := r.lines.CreateLines(ctx, toCreate)
	if err != nil {
		return nil, fmt.Errorf("create lines: %w", err)
	}
	metrics.LinesRecordedTotal.Add(float64(len(created)))

	event := domain.Event{
		ID:         uuid.NewString(),
		Type:       domain.EventLinesRecorded,
		PickerID:   picker.ID,
		OccurredAt: time.Now().UTC(),
	}
	for _, s := range shipmentList {
		event.ShipmentIDs = append(event.ShipmentIDs, s.ID)
	}
	if err := r.events.Publish(ctx, event); err != nil {
		r.log.Warn("publish event failed", "type", event.Type, "event_id", event.ID, "err", err)
	}
	return created, nil
}

// Complete marks draft assignments and their lines done.
func (r *Recorder) Complete(ctx context.Context, ids []int64) ([]domain.Assignment, error) {
	return r.transition(ctx, ids, domain.TransitionComplete)
}

// Reopen puts done assignments and their lines back to draft.
func (r *Recorder) Reopen(ctx context.Context, ids []int64) ([]domain.Assignment, error) {
	return r.transition(ctx, ids, domain.TransitionReopen)
}

// CompleteShipments completes the draft assignments of the shipments with the given codes.
func (r *Recorder) CompleteShipments(ctx context.Context, codes []string) ([]domain.Assignment, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	assignments, err := r.store.DraftAssignmentsForShipments(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("draft assignments: %w", err)
	}
	return r.apply(ctx, assignments, domain.TransitionComplete)
}

// Delete removes assignments along with their lines.
func (r *Recorder) Delete(ctx context.Context, ids []int64) error {
	assignments, err := r.load(ctx, ids)
	if err != nil {
		return err
	}
	if len(assignments) == 0 {
		return nil
	}
	if err := r.store.DeleteAssignments(ctx, assignments); err != nil {
		return fmt.Errorf("delete assignments: %w", err)
	}
	publishAssignments(ctx, r.events, r.log, domain.EventAssignmentsDeleted, 0, assignments)
	return nil
}

func (r *Recorder) transition(ctx context.Context, ids []int64, t domain.Transition) ([]domain.Assignment, error) {
	assignments, err := r.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	return r.apply(ctx, assignments, t)
}

func (r *Recorder) load(ctx context.Context, ids []int64) ([]domain.Assignment, error) {
	unique := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}

	assignments, err := r.store.Assignments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	if len(assignments) != len(unique) {
		return nil, domain.ErrAssignmentNotFound
	}
	return assignments, nil
}

// apply moves the assignments in t.From to t.To; the rest are returned as they are.
func (r *Recorder) apply(ctx context.Context, assignments []domain.Assignment, t domain.Transition) ([]domain.Assignment, error) {
	var pending []domain.Assignment
	for _, as := range assignments {
		if as.State == t.From {
			pending = append(pending, as)
		}
	}
	if len(pending) == 0 {
		return assignments, nil
	}

	if err := r.store.SetState(ctx, pending, t.To); err != nil {
		return nil, fmt.Errorf("%s assignments: %w", t.Name, err)
	}
	metrics.TransitionsTotal.WithLabelValues(t.Name).Add(float64(len(pending)))

	for i := range assignments {
		if assignments[i].State == t.From {
			assignments[i].State = t.To
		}
	}

	typ := domain.EventAssignmentsCompleted
	if t == domain.TransitionReopen {
		typ = domain.EventAssignmentsReopened
	}
	publishAssignments(ctx, r.events, r.log, typ, pending[0].PickerID, pending)
	return assignments, nil
}
