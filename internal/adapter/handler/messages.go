package handler

import (
	"github.com/shopspring/decimal"

	"github.com/rl1809/cart-allocation/internal/core/domain"
)

// Wire messages shared by the HTTP and gRPC surfaces.

type ClaimRequest struct {
	PickerID    int64    `json:"picker_id"`
	WarehouseID *int64   `json:"warehouse_id,omitempty"`
	States      []string `json:"states,omitempty"`
	MaxRetries  *int     `json:"max_retries,omitempty"`
}

type PickListResponse struct {
	Entries []PickListEntry `json:"entries"`
}

type PickListEntry struct {
	ProductID     int64           `json:"product_id"`
	Name          string          `json:"name"`
	Code          string          `json:"code"`
	Quantity      decimal.Decimal `json:"quantity"`
	Shipments     []ShipmentPick  `json:"shipments"`
	Locations     []string        `json:"locations"`
	AssignmentIDs []int64         `json:"assignment_ids"`
}

type ShipmentPick struct {
	ShipmentID int64           `json:"shipment_id"`
	Code       string          `json:"code"`
	Quantity   decimal.Decimal `json:"quantity"`
	Location   string          `json:"location"`
}

type AssignmentIDsRequest struct {
	IDs []int64 `json:"ids"`
}

type ShipmentCodesRequest struct {
	Codes []string `json:"codes"`
}

type AssignmentsResponse struct {
	Assignments []Assignment `json:"assignments"`
}

type Assignment struct {
	ID         int64  `json:"id"`
	ShipmentID int64  `json:"shipment_id"`
	CartID     int64  `json:"cart_id"`
	PickerID   int64  `json:"picker_id"`
	State      string `json:"state"`
}

type RecordPicksRequest struct {
	PickerID int64             `json:"picker_id"`
	Picks    map[string][]Pick `json:"picks"`
}

type Pick struct {
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Location  string          `json:"location"`
}

type RecordPicksResponse struct {
	Lines []Line `json:"lines"`
}

type Line struct {
	ID         int64           `json:"id"`
	ShipmentID int64           `json:"shipment_id"`
	ProductID  int64           `json:"product_id"`
	LocationID int64           `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	State      string          `json:"state"`
}

type OutstandingRequest struct {
	LocationID int64   `json:"location_id"`
	ProductIDs []int64 `json:"product_ids"`
}

type OutstandingResponse struct {
	Quantities map[int64]decimal.Decimal `json:"quantities"`
}

type CartRequest struct {
	Name    string `json:"name"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
	Active  *bool  `json:"active,omitempty"`
}

type Cart struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Rows     int    `json:"rows"`
	Columns  int    `json:"columns"`
	Capacity int    `json:"capacity"`
	Active   bool   `json:"active"`
}

type AssignCartRequest struct {
	CartID *int64 `json:"cart_id"`
}

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func toPickList(entries []domain.PickListEntry) *PickListResponse {
	resp := &PickListResponse{Entries: make([]PickListEntry, 0, len(entries))}
	for _, e := range entries {
		entry := PickListEntry{
			ProductID:     e.ProductID,
			Name:          e.Name,
			Code:          e.Code,
			Quantity:      e.Quantity,
			Locations:     e.Locations,
			AssignmentIDs: e.AssignmentIDs,
		}
		for _, s := range e.Shipments {
			entry.Shipments = append(entry.Shipments, ShipmentPick{
				ShipmentID: s.ShipmentID,
				Code:       s.Code,
				Quantity:   s.Quantity,
				Location:   s.Location,
			})
		}
		resp.Entries = append(resp.Entries, entry)
	}
	return resp
}

func toAssignments(assignments []domain.Assignment) *AssignmentsResponse {
	resp := &AssignmentsResponse{Assignments: make([]Assignment, 0, len(assignments))}
	for _, a := range assignments {
		resp.Assignments = append(resp.Assignments, Assignment{
			ID:         a.ID,
			ShipmentID: a.ShipmentID,
			CartID:     a.CartID,
			PickerID:   a.PickerID,
			State:      string(a.State),
		})
	}
	return resp
}

func toLines(lines []domain.Line) *RecordPicksResponse {
	resp := &RecordPicksResponse{Lines: make([]Line, 0, len(lines))}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, Line{
			ID:         l.ID,
			ShipmentID: l.ShipmentID,
			ProductID:  l.ProductID,
			LocationID: l.FromLocationID,
			Quantity:   l.Quantity,
			State:      string(l.State),
		})
	}
	return resp
}

func toCart(c *domain.Cart) *Cart {
	return &Cart{
		ID:       c.ID,
		Name:     c.Name,
		Rows:     c.Rows,
		Columns:  c.Columns,
		Capacity: c.Capacity(),
		Active:   c.Active,
	}
}

func fromPicks(picks map[string][]Pick) map[string][]domain.Pick {
	out := make(map[string][]domain.Pick, len(picks))
	for code, entries := range picks {
		for _, p := range entries {
			out[code] = append(out[code], domain.Pick{
				ProductID: p.ProductID,
				Quantity:  p.Quantity,
				Location:  p.Location,
			})
		}
	}
	return out
}

func fromStates(states []string) []domain.ShipmentState {
	out := make([]domain.ShipmentState, 0, len(states))
	for _, s := range states {
		out = append(out, domain.ShipmentState(s))
	}
	return out
}
