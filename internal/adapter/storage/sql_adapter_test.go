package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/cart-allocation/internal/core/domain"
	"github.com/rl1809/cart-allocation/internal/port"
)

func newTestAdapter(t *testing.T) *SQLAdapter {
	t.Helper()

	ctx := context.Background()
	db, dialect, err := Open(ctx, Options{
		Driver:  "sqlite",
		DSN:     filepath.Join(t.TempDir(), "cartpick.db"),
		Migrate: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewSQLAdapter(db, dialect)
}

type fixture struct {
	cart     *domain.Cart
	picker   domain.Picker
	product  domain.Product
	location domain.Location
}

func seedFixture(t *testing.T, a *SQLAdapter) fixture {
	t.Helper()
	ctx := context.Background()

	uom, err := a.CreateUOM(ctx, "Units", 2)
	if err != nil {
		t.Fatal(err)
	}
	product, err := a.CreateProduct(ctx, domain.Product{Name: "Widget", Code: "W-1", UOM: uom})
	if err != nil {
		t.Fatal(err)
	}
	seq := 3
	location, err := a.CreateLocation(ctx, domain.Location{Name: "A-01", Sequence: &seq}, 1)
	if err != nil {
		t.Fatal(err)
	}
	cart, err := a.CreateCart(ctx, domain.Cart{Name: "Cart 1", Rows: 2, Columns: 2, Active: true})
	if err != nil {
		t.Fatal(err)
	}
	picker, err := a.CreatePicker(ctx, "Alice", &cart.ID)
	if err != nil {
		t.Fatal(err)
	}

	return fixture{cart: cart, picker: picker, product: product, location: location}
}

func seedShipment(t *testing.T, a *SQLAdapter, f fixture, code string, qty string) domain.Shipment {
	t.Helper()
	sh, err := a.CreateShipment(context.Background(), domain.Shipment{
		Code:        code,
		PlannedDate: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
		WarehouseID: 1,
		Moves: []domain.Move{{
			Product:      f.product,
			Quantity:     decimal.RequireFromString(qty),
			FromLocation: f.location,
		}},
	}, nil)
	if err != nil {
		t.Fatalf("seed shipment %s: %v", code, err)
	}
	return sh
}

func claim(t *testing.T, a *SQLAdapter, f fixture, shipmentIDs ...int64) []domain.Assignment {
	t.Helper()
	var created []domain.Assignment
	err := a.WithClaimLock(context.Background(), func(ctx context.Context, tx port.ClaimTx) error {
		batch := make([]domain.Assignment, 0, len(shipmentIDs))
		for _, id := range shipmentIDs {
			batch = append(batch, domain.Assignment{ShipmentID: id, CartID: f.cart.ID, PickerID: f.picker.ID})
		}
		var err error
		created, err = tx.CreateAssignments(ctx, batch)
		return err
	})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	return created
}

func TestWithClaimLock_CreatesDraftAssignments(t *testing.T) {
	a := newTestAdapter(t)
	f := seedFixture(t, a)
	s1 := seedShipment(t, a, f, "S1", "2")
	s2 := seedShipment(t, a, f, "S2", "1")

	created := claim(t, a, f, s1.ID, s2.ID)
	if len(created) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(created))
	}
	for _, as := range created {
		if as.ID == 0 || as.State != domain.StateDraft {
			t.Errorf("unexpected assignment: %+v", as)
		}
	}

	err := a.WithClaimLock(context.Background(), func(ctx context.Context, tx port.ClaimTx) error {
		drafts, err := tx.DraftAssignments(ctx, f.picker.ID)
		if err != nil {
			return err
		}
		if len(drafts) != 2 || drafts[0].ShipmentID != s1.ID {
			t.Errorf("expected drafts for S1 and S2, got %+v", drafts)
		}

		claimed, err := tx.ClaimedShipments(ctx, []int64{s1.ID, s2.ID, 999})
		if err != nil {
			return err
		}
		if !claimed[s1.ID] || !claimed[s2.ID] || claimed[999] {
			t.Errorf("unexpected claimed set: %v", claimed)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithClaimLock failed: %v", err)
	}
}

func TestWithClaimLock_BusyReturnsStorageLocked(t *testing.T) {
	a := newTestAdapter(t)

	err := a.WithClaimLock(context.Background(), func(ctx context.Context, _ port.ClaimTx) error {
		inner := a.WithClaimLock(ctx, func(context.Context, port.ClaimTx) error {
			t.Error("inner claim should not acquire the lock")
			return nil
		})
		if !errors.Is(inner, domain.ErrStorageLocked) {
			t.Errorf("expected ErrStorageLocked, got %v", inner)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("outer claim failed: %v", err)
	}
}

func TestCreateLines_WaitsForClaimLock(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	f := seedFixture(t, a)
	s1 := seedShipment(t, a, f, "S1", "2")

	held := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- a.WithClaimLock(ctx, func(ctx context.Context, tx port.ClaimTx) error {
			close(held)
			time.Sleep(60 * time.Millisecond)
			return nil
		})
	}()
	<-held

	_, err := a.CreateLines(ctx, []domain.Line{{
		ShipmentID: s1.ID, FromLocationID: f.location.ID, CartID: f.cart.ID, PickerID: f.picker.ID,
		ProductID: f.product.ID, UOMID: f.product.UOM.ID, Quantity: decimal.NewFromInt(1),
	}})
	if err != nil {
		t.Fatalf("expected CreateLines to wait for the claim, got %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("claim failed: %v", err)
	}
}

func TestCreateLines_LockHeldTooLong(t *testing.T) {
	a := newTestAdapter(t)
	f := seedFixture(t, a)
	s1 := seedShipment(t, a, f, "S1", "2")

	err := a.WithClaimLock(context.Background(), func(ctx context.Context, tx port.ClaimTx) error {
		_, err := a.CreateLines(ctx, []domain.Line{{
			ShipmentID: s1.ID, FromLocationID: f.location.ID, CartID: f.cart.ID, PickerID: f.picker.ID,
			ProductID: f.product.ID, UOMID: f.product.UOM.ID, Quantity: decimal.NewFromInt(1),
		}})
		if !errors.Is(err, domain.ErrStorageLocked) {
			t.Errorf("expected ErrStorageLocked, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
}

func TestCreateAssignments_DuplicateShipment(t *testing.T) {
	a := newTestAdapter(t)
	f := seedFixture(t, a)
	s1 := seedShipment(t, a, f, "S1", "2")

	claim(t, a, f, s1.ID)

	err := a.WithClaimLock(context.Background(), func(ctx context.Context, tx port.ClaimTx) error {
		_, err := tx.CreateAssignments(ctx, []domain.Assignment{
			{ShipmentID: s1.ID, CartID: f.cart.ID, PickerID: f.picker.ID},
		})
		return err
	})
	if !errors.Is(err, domain.ErrDuplicateShipmentClaim) {
		t.Fatalf("expected ErrDuplicateShipmentClaim, got %v", err)
	}
}

func TestSetState_CascadesToLines(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	f := seedFixture(t, a)
	s1 := seedShipment(t, a, f, "S1", "2")
	assignments := claim(t, a, f, s1.ID)

	_, err := a.CreateLines(ctx, []domain.Line{{
		ShipmentID:     s1.ID,
		FromLocationID: f.location.ID,
		CartID:         f.cart.ID,
		PickerID:       f.picker.ID,
		ProductID:      f.product.ID,
		UOMID:          f.product.UOM.ID,
		Quantity:       decimal.RequireFromString("2"),
	}})
	if err != nil {
		t.Fatalf("CreateLines failed: %v", err)
	}

	if err := a.SetState(ctx, assignments, domain.StateDone); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}

	var lineState string
	a.db.QueryRowContext(ctx, `SELECT state FROM cart_lines WHERE shipment_id = ?`, s1.ID).Scan(&lineState)
	if lineState != string(domain.StateDone) {
		t.Errorf("expected line state done, got %q", lineState)
	}

	loaded, err := a.Assignments(ctx, []int64{assignments[0].ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 || loaded[0].State != domain.StateDone {
		t.Errorf("expected done assignment, got %+v", loaded)
	}
}

func TestDeleteAssignments_RemovesLines(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	f := seedFixture(t, a)
	s1 := seedShipment(t, a, f, "S1", "2")
	assignments := claim(t, a, f, s1.ID)

	_, err := a.CreateLines(ctx, []domain.Line{{
		ShipmentID: s1.ID, FromLocationID: f.location.ID, CartID: f.cart.ID, PickerID: f.picker.ID,
		ProductID: f.product.ID, UOMID: f.product.UOM.ID, Quantity: decimal.NewFromInt(1),
	}})
	if err != nil {
		t.Fatal(err)
	}

	if err := a.DeleteAssignments(ctx, assignments); err != nil {
		t.Fatalf("DeleteAssignments failed: %v", err)
	}

	var n int
	a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cart_lines`).Scan(&n)
	if n != 0 {
		t.Errorf("expected no lines, got %d", n)
	}
	a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cart_assignments`).Scan(&n)
	if n != 0 {
		t.Errorf("expected no assignments, got %d", n)
	}
}

func TestOutstandingQuantity_SumsByShipmentState(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	f := seedFixture(t, a)
	s1 := seedShipment(t, a, f, "S1", "2")
	s2 := seedShipment(t, a, f, "S2", "3")

	for _, sh := range []domain.Shipment{s1, s2} {
		_, err := a.CreateLines(ctx, []domain.Line{{
			ShipmentID: sh.ID, FromLocationID: f.location.ID, CartID: f.cart.ID, PickerID: f.picker.ID,
			ProductID: f.product.ID, UOMID: f.product.UOM.ID, Quantity: sh.Moves[0].Quantity,
		}})
		if err != nil {
			t.Fatal(err)
		}
	}
	if err := a.SetShipmentState(ctx, s2.ID, domain.ShipmentStateDone); err != nil {
		t.Fatal(err)
	}

	totals, err := a.OutstandingQuantity(ctx, f.location.ID, []int64{f.product.ID},
		[]domain.ShipmentState{domain.ShipmentStateAssigned})
	if err != nil {
		t.Fatalf("OutstandingQuantity failed: %v", err)
	}
	if !totals[f.product.ID].Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected 2, got %s", totals[f.product.ID])
	}
}

func TestOutstandingQuantity_FractionalLinesStayExact(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	f := seedFixture(t, a)
	s1 := seedShipment(t, a, f, "S1", "0.1")
	s2 := seedShipment(t, a, f, "S2", "0.2")

	for _, sh := range []domain.Shipment{s1, s2} {
		_, err := a.CreateLines(ctx, []domain.Line{{
			ShipmentID: sh.ID, FromLocationID: f.location.ID, CartID: f.cart.ID, PickerID: f.picker.ID,
			ProductID: f.product.ID, UOMID: f.product.UOM.ID, Quantity: sh.Moves[0].Quantity,
		}})
		if err != nil {
			t.Fatal(err)
		}
	}

	totals, err := a.OutstandingQuantity(ctx, f.location.ID, []int64{f.product.ID},
		[]domain.ShipmentState{domain.ShipmentStateAssigned})
	if err != nil {
		t.Fatalf("OutstandingQuantity failed: %v", err)
	}
	if got := totals[f.product.ID]; got.String() != "0.3" {
		t.Errorf("expected 0.3, got %s", got)
	}
}

func TestRecordedProducts(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	f := seedFixture(t, a)
	s1 := seedShipment(t, a, f, "S1", "2")

	_, err := a.CreateLines(ctx, []domain.Line{{
		ShipmentID: s1.ID, FromLocationID: f.location.ID, CartID: f.cart.ID, PickerID: f.picker.ID,
		ProductID: f.product.ID, UOMID: f.product.UOM.ID, Quantity: decimal.NewFromInt(2),
	}})
	if err != nil {
		t.Fatal(err)
	}

	recorded, err := a.RecordedProducts(ctx, f.picker.ID, f.cart.ID, []int64{s1.ID})
	if err != nil {
		t.Fatal(err)
	}
	if !recorded[port.LineProduct{ShipmentID: s1.ID, ProductID: f.product.ID}] {
		t.Errorf("expected recorded product, got %v", recorded)
	}

	other, err := a.RecordedProducts(ctx, f.picker.ID+1, f.cart.ID, []int64{s1.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("expected nothing for another picker, got %v", other)
	}
}

func TestSearch_FiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	f := seedFixture(t, a)

	seq := 1
	carrier, err := a.CreateCarrier(ctx, "Express", &seq)
	if err != nil {
		t.Fatal(err)
	}

	late, err := a.CreateShipment(ctx, domain.Shipment{
		Code: "LATE", PlannedDate: time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC), WarehouseID: 1,
	}, &carrier)
	if err != nil {
		t.Fatal(err)
	}
	early := seedShipment(t, a, f, "EARLY", "1")
	seedShipment(t, a, f, "SKIP", "1")
	if _, err := a.CreateShipment(ctx, domain.Shipment{
		Code: "OTHER-WH", PlannedDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), WarehouseID: 2,
	}, nil); err != nil {
		t.Fatal(err)
	}

	warehouse := int64(1)
	found, err := a.Search(ctx, port.ShipmentFilter{
		States:       []domain.ShipmentState{domain.ShipmentStateAssigned},
		WarehouseID:  &warehouse,
		ExcludeCodes: []string{"SKIP"},
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(found) != 2 || found[0].ID != early.ID || found[1].ID != late.ID {
		t.Fatalf("expected [EARLY LATE], got %+v", found)
	}
	if found[1].Sequence() != 1 || found[0].Sequence() != domain.DefaultCarrierSequence {
		t.Errorf("unexpected carrier sequences: %d, %d", found[0].Sequence(), found[1].Sequence())
	}

	byCarrier, err := a.Search(ctx, port.ShipmentFilter{CarrierIDs: []int64{carrier}})
	if err != nil {
		t.Fatal(err)
	}
	if len(byCarrier) != 1 || byCarrier[0].Code != "LATE" {
		t.Errorf("expected only LATE, got %+v", byCarrier)
	}
}

func TestShipmentsByIDs_LoadsMoves(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	f := seedFixture(t, a)
	s1 := seedShipment(t, a, f, "S1", "2.5")

	shipments, err := a.ShipmentsByIDs(ctx, []int64{s1.ID})
	if err != nil {
		t.Fatalf("ShipmentsByIDs failed: %v", err)
	}
	if len(shipments) != 1 || len(shipments[0].Moves) != 1 {
		t.Fatalf("expected one shipment with one move, got %+v", shipments)
	}

	m := shipments[0].Moves[0]
	if !m.Quantity.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("expected quantity 2.5, got %s", m.Quantity)
	}
	if m.Product.Name != "Widget" || m.Product.UOM.Digits != 2 {
		t.Errorf("unexpected product: %+v", m.Product)
	}
	if m.FromLocation.Name != "A-01" || m.FromLocation.Sequence == nil || *m.FromLocation.Sequence != 3 {
		t.Errorf("unexpected location: %+v", m.FromLocation)
	}
}

func TestPickerAndCarts(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	f := seedFixture(t, a)

	picker, err := a.Picker(ctx, f.picker.ID)
	if err != nil {
		t.Fatal(err)
	}
	if picker == nil || picker.Cart == nil || picker.Cart.Capacity() != 4 {
		t.Fatalf("expected picker with 2x2 cart, got %+v", picker)
	}

	missing, err := a.Picker(ctx, 999)
	if err != nil || missing != nil {
		t.Errorf("expected nil picker, got %+v, %v", missing, err)
	}

	if err := a.SetPickerCart(ctx, f.picker.ID, nil); err != nil {
		t.Fatal(err)
	}
	picker, _ = a.Picker(ctx, f.picker.ID)
	if picker.Cart != nil {
		t.Errorf("expected cart cleared, got %+v", picker.Cart)
	}

	f.cart.Active = false
	updated, err := a.UpdateCart(ctx, *f.cart)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Active {
		t.Error("expected inactive cart")
	}

	if err := a.DeleteCart(ctx, f.cart.ID); err != nil {
		t.Fatalf("DeleteCart failed: %v", err)
	}
	if err := a.DeleteCart(ctx, f.cart.ID); !errors.Is(err, domain.ErrCartNotFound) {
		t.Errorf("expected ErrCartNotFound, got %v", err)
	}
}

func TestCartInUse(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	f := seedFixture(t, a)
	s1 := seedShipment(t, a, f, "S1", "1")

	inUse, err := a.CartInUse(ctx, f.cart.ID)
	if err != nil || inUse {
		t.Fatalf("expected unused cart, got %v, %v", inUse, err)
	}

	assignments := claim(t, a, f, s1.ID)
	inUse, _ = a.CartInUse(ctx, f.cart.ID)
	if !inUse {
		t.Error("expected cart in use")
	}

	if err := a.SetState(ctx, assignments, domain.StateDone); err != nil {
		t.Fatal(err)
	}
	inUse, _ = a.CartInUse(ctx, f.cart.ID)
	if inUse {
		t.Error("expected done assignments not to block the cart")
	}
}

func TestLocationsAndProducts(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	f := seedFixture(t, a)

	if _, err := a.CreateLocation(ctx, domain.Location{Name: "B-01"}, 1); err != nil {
		t.Fatal(err)
	}

	max, err := a.MaxSequence(ctx)
	if err != nil || max != 3 {
		t.Errorf("expected max sequence 3, got %d, %v", max, err)
	}

	locations, err := a.LocationsByName(ctx, []string{"A-01", "B-01", "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if len(locations) != 2 || locations["B-01"].Sequence != nil {
		t.Errorf("unexpected locations: %+v", locations)
	}

	products, err := a.Products(ctx, []int64{f.product.ID})
	if err != nil {
		t.Fatal(err)
	}
	if products[f.product.ID].UOM.Name != "Units" {
		t.Errorf("unexpected products: %+v", products)
	}
}
