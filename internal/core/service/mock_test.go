package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/cart-allocation/internal/core/domain"
	"github.com/rl1809/cart-allocation/internal/port"
)

// mockStore keeps every port in memory. The claim lock is a TryLock so contention
// surfaces as ErrStorageLocked the way the databases report it.
type mockStore struct {
	mu      sync.Mutex
	claimMu sync.Mutex

	busy         int
	lockCalls    int
	duplicateErr bool
	nextID       int64

	shipments   map[int64]domain.Shipment
	carriers    map[int64]int64
	assignments map[int64]domain.Assignment
	lines       []domain.Line
	pickers     map[int64]domain.Picker
	carts       map[int64]domain.Cart
	locations   map[string]domain.Location
	products    map[int64]domain.Product
}

func newMockStore() *mockStore {
	return &mockStore{
		shipments:   make(map[int64]domain.Shipment),
		carriers:    make(map[int64]int64),
		assignments: make(map[int64]domain.Assignment),
		pickers:     make(map[int64]domain.Picker),
		carts:       make(map[int64]domain.Cart),
		locations:   make(map[string]domain.Location),
		products:    make(map[int64]domain.Product),
	}
}

func (m *mockStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockStore) addCart(rows, columns int) domain.Cart {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := domain.Cart{ID: m.id(), Name: "cart", Rows: rows, Columns: columns, Active: true}
	m.carts[c.ID] = c
	return c
}

func (m *mockStore) addPicker(cart *domain.Cart) domain.Picker {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := domain.Picker{ID: m.id(), Name: "picker"}
	if cart != nil {
		p.CartID = &cart.ID
	}
	m.pickers[p.ID] = p
	return p
}

func (m *mockStore) addLocation(name string, sequence *int) domain.Location {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := domain.Location{ID: m.id(), Name: name, Sequence: sequence}
	m.locations[name] = l
	return l
}

func (m *mockStore) addProduct(name string, digits int32) domain.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := domain.Product{ID: m.id(), Name: name, Code: name, UOM: domain.UnitOfMeasure{ID: 1, Name: "Units", Digits: digits}}
	m.products[p.ID] = p
	return p
}

func (m *mockStore) addShipment(code string, planned time.Time, carrierSequence *int, moves ...domain.Move) domain.Shipment {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := domain.Shipment{
		ID:              m.id(),
		Code:            code,
		State:           domain.ShipmentStateAssigned,
		PlannedDate:     planned,
		CarrierSequence: carrierSequence,
		WarehouseID:     1,
	}
	for _, mv := range moves {
		mv.ID = m.id()
		mv.ShipmentID = s.ID
		if mv.State == "" {
			mv.State = domain.MoveStateAssigned
		}
		s.Moves = append(s.Moves, mv)
	}
	m.shipments[s.ID] = s
	return s
}

func (m *mockStore) setShipmentState(id int64, state domain.ShipmentState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.shipments[id]
	s.State = state
	m.shipments[id] = s
}

func (m *mockStore) assignmentsFor(pickerID int64) []domain.Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Assignment
	for _, a := range m.assignments {
		if a.PickerID == pickerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func move(p domain.Product, qty int64, loc domain.Location) domain.Move {
	return domain.Move{Product: p, Quantity: decimal.NewFromInt(qty), FromLocation: loc}
}

func seq(n int) *int { return &n }

// AllocationStore

func (m *mockStore) WithClaimLock(ctx context.Context, fn func(ctx context.Context, tx port.ClaimTx) error) error {
	m.mu.Lock()
	m.lockCalls++
	if m.busy > 0 {
		m.busy--
		m.mu.Unlock()
		return domain.ErrStorageLocked
	}
	m.mu.Unlock()

	if !m.claimMu.TryLock() {
		return domain.ErrStorageLocked
	}
	defer m.claimMu.Unlock()

	tx := &mockTx{store: m}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range tx.pending {
		m.assignments[a.ID] = a
	}
	return nil
}

func (m *mockStore) Assignments(_ context.Context, ids []int64) ([]domain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Assignment
	for _, id := range ids {
		if a, ok := m.assignments[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockStore) DraftAssignmentsForShipments(_ context.Context, codes []string) ([]domain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[string]bool, len(codes))
	for _, c := range codes {
		wanted[c] = true
	}
	var out []domain.Assignment
	for _, a := range m.assignments {
		if a.State == domain.StateDraft && wanted[m.shipments[a.ShipmentID].Code] {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) SetState(_ context.Context, assignments []domain.Assignment, state domain.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make(map[domain.LineKey]bool)
	for _, a := range assignments {
		stored := m.assignments[a.ID]
		stored.State = state
		m.assignments[a.ID] = stored
		keys[a.Key()] = true
	}
	for i, l := range m.lines {
		if keys[domain.LineKey{ShipmentID: l.ShipmentID, CartID: l.CartID, PickerID: l.PickerID}] {
			m.lines[i].State = state
		}
	}
	return nil
}

func (m *mockStore) DeleteAssignments(_ context.Context, assignments []domain.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make(map[domain.LineKey]bool)
	for _, a := range assignments {
		delete(m.assignments, a.ID)
		keys[a.Key()] = true
	}
	kept := m.lines[:0]
	for _, l := range m.lines {
		if !keys[domain.LineKey{ShipmentID: l.ShipmentID, CartID: l.CartID, PickerID: l.PickerID}] {
			kept = append(kept, l)
		}
	}
	m.lines = kept
	return nil
}

type mockTx struct {
	store   *mockStore
	pending []domain.Assignment
}

func (t *mockTx) DraftAssignments(_ context.Context, pickerID int64) ([]domain.Assignment, error) {
	var out []domain.Assignment
	for _, a := range t.store.assignmentsFor(pickerID) {
		if a.State == domain.StateDraft {
			out = append(out, a)
		}
	}
	return out, nil
}

func (t *mockTx) ClaimedShipments(_ context.Context, ids []int64) (map[int64]bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	claimed := make(map[int64]bool)
	for _, a := range t.store.assignments {
		claimed[a.ShipmentID] = true
	}
	out := make(map[int64]bool)
	for _, id := range ids {
		if claimed[id] {
			out[id] = true
		}
	}
	return out, nil
}

func (t *mockTx) CreateAssignments(_ context.Context, assignments []domain.Assignment) ([]domain.Assignment, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.store.duplicateErr {
		return nil, domain.ErrDuplicateShipmentClaim
	}
	taken := make(map[int64]bool)
	for _, a := range t.store.assignments {
		taken[a.ShipmentID] = true
	}
	var out []domain.Assignment
	for _, a := range assignments {
		if taken[a.ShipmentID] {
			return nil, domain.ErrDuplicateShipmentClaim
		}
		taken[a.ShipmentID] = true
		a.ID = t.store.id()
		out = append(out, a)
	}
	t.pending = append(t.pending, out...)
	return out, nil
}

// WorkQueue

func (m *mockStore) Search(_ context.Context, filter port.ShipmentFilter) ([]domain.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	excluded := make(map[string]bool)
	for _, c := range filter.ExcludeCodes {
		excluded[c] = true
	}
	var out []domain.Shipment
	for _, s := range m.shipments {
		if len(filter.States) > 0 && !containsState(filter.States, s.State) {
			continue
		}
		if filter.WarehouseID != nil && s.WarehouseID != *filter.WarehouseID {
			continue
		}
		if excluded[s.Code] {
			continue
		}
		if len(filter.CarrierIDs) > 0 && !containsID(filter.CarrierIDs, m.carriers[s.ID]) {
			continue
		}
		s.Moves = nil
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) ShipmentsByIDs(_ context.Context, ids []int64) ([]domain.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Shipment
	for _, id := range ids {
		if s, ok := m.shipments[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockStore) ShipmentsByCodes(_ context.Context, codes []string) ([]domain.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Shipment
	for _, s := range m.shipments {
		for _, c := range codes {
			if s.Code == c {
				s.Moves = nil
				out = append(out, s)
			}
		}
	}
	return out, nil
}

// PickerDirectory

func (m *mockStore) Picker(_ context.Context, id int64) (*domain.Picker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pickers[id]
	if !ok {
		return nil, nil
	}
	if p.CartID != nil {
		if c, ok := m.carts[*p.CartID]; ok {
			p.Cart = &c
		}
	}
	return &p, nil
}

func (m *mockStore) SetPickerCart(_ context.Context, pickerID int64, cartID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.pickers[pickerID]
	p.CartID = cartID
	m.pickers[pickerID] = p
	return nil
}

// LocationDirectory

func (m *mockStore) MaxSequence(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, l := range m.locations {
		if l.Sequence != nil && *l.Sequence > max {
			max = *l.Sequence
		}
	}
	return max, nil
}

func (m *mockStore) LocationsByName(_ context.Context, names []string) (map[string]domain.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.Location)
	for _, n := range names {
		if l, ok := m.locations[n]; ok {
			out[n] = l
		}
	}
	return out, nil
}

// ProductCatalog

func (m *mockStore) Products(_ context.Context, ids []int64) (map[int64]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]domain.Product)
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// LineRepository

func (m *mockStore) RecordedProducts(_ context.Context, pickerID, cartID int64, shipmentIDs []int64) (map[port.LineProduct]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[port.LineProduct]bool)
	for _, l := range m.lines {
		if l.PickerID == pickerID && l.CartID == cartID && containsID(shipmentIDs, l.ShipmentID) {
			out[port.LineProduct{ShipmentID: l.ShipmentID, ProductID: l.ProductID}] = true
		}
	}
	return out, nil
}

func (m *mockStore) CreateLines(_ context.Context, lines []domain.Line) ([]domain.Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Line, 0, len(lines))
	for _, l := range lines {
		l.ID = m.id()
		m.lines = append(m.lines, l)
		out = append(out, l)
	}
	return out, nil
}

func (m *mockStore) OutstandingQuantity(_ context.Context, locationID int64, productIDs []int64, states []domain.ShipmentState) (map[int64]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]decimal.Decimal)
	for _, l := range m.lines {
		if l.FromLocationID != locationID || !containsID(productIDs, l.ProductID) {
			continue
		}
		if !containsState(states, m.shipments[l.ShipmentID].State) {
			continue
		}
		out[l.ProductID] = out[l.ProductID].Add(l.Quantity)
	}
	return out, nil
}

// CartRepository

func (m *mockStore) CreateCart(_ context.Context, cart domain.Cart) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart.ID = m.id()
	m.carts[cart.ID] = cart
	return &cart, nil
}

func (m *mockStore) GetCart(_ context.Context, id int64) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *mockStore) UpdateCart(_ context.Context, cart domain.Cart) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[cart.ID] = cart
	return &cart, nil
}

func (m *mockStore) DeleteCart(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, id)
	return nil
}

func (m *mockStore) CartInUse(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.assignments {
		if a.CartID == id && a.State == domain.StateDraft {
			return true, nil
		}
	}
	return false, nil
}

type mockEvents struct {
	mu     sync.Mutex
	events []domain.Event
}

func (e *mockEvents) Publish(_ context.Context, event domain.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *mockEvents) types() []domain.EventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []domain.EventType
	for _, ev := range e.events {
		out = append(out, ev.Type)
	}
	return out
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsState(states []domain.ShipmentState, s domain.ShipmentState) bool {
	for _, v := range states {
		if v == s {
			return true
		}
	}
	return false
}
