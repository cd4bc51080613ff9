package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/rl1809/cart-allocation/internal/core/domain"
	"github.com/rl1809/cart-allocation/internal/port"
)

type Aggregator struct {
	queue     port.WorkQueue
	locations port.LocationDirectory
}

func NewAggregator(queue port.WorkQueue, locations port.LocationDirectory) *Aggregator {
	return &Aggregator{queue: queue, locations: locations}
}

// Aggregate turns assignments into the product pick list, ordered by location sequence.
func (a *Aggregator) Aggregate(ctx context.Context, assignments []domain.Assignment) ([]domain.PickListEntry, error) {
	if len(assignments) == 0 {
		return []domain.PickListEntry{}, nil
	}

	ids := make([]int64, 0, len(assignments))
	for _, as := range assignments {
		ids = append(ids, as.ShipmentID)
	}

	shipments, err := a.queue.ShipmentsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load shipments: %w", err)
	}

	maxSequence, err := a.locations.MaxSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("max location sequence: %w", err)
	}

	byID := make(map[int64]domain.Shipment, len(shipments))
	for _, s := range shipments {
		byID[s.ID] = s
	}

	return BuildPickList(assignments, byID, maxSequence), nil
}

type pickBucket struct {
	sequence int
	entry    *domain.PickListEntry
}

// BuildPickList merges the assigned moves of the shipments into one entry per product.
// Locations without a sequence rank after maxSequence. Entries sharing a sequence keep
// the order their products were first seen in.
func BuildPickList(assignments []domain.Assignment, shipments map[int64]domain.Shipment, maxSequence int) []domain.PickListEntry {
	var buckets []pickBucket

	for _, as := range assignments {
		shipment, ok := shipments[as.ShipmentID]
		if !ok {
			continue
		}

		for _, move := range shipment.Moves {
			if move.State != domain.MoveStateAssigned {
				continue
			}

			sequence := maxSequence + 1
			if move.FromLocation.Sequence != nil {
				sequence = *move.FromLocation.Sequence
			}

			pick := domain.ShipmentPick{
				ShipmentID: shipment.ID,
				Code:       shipment.Code,
				Quantity:   move.Quantity,
				Location:   move.FromLocation.Name,
			}

			i := findProduct(buckets, move.Product.ID)
			if i < 0 {
				entry := &domain.PickListEntry{
					ProductID:     move.Product.ID,
					Name:          move.Product.Name,
					Code:          move.Product.Code,
					Quantity:      move.Quantity,
					Shipments:     []domain.ShipmentPick{pick},
					Locations:     []string{pick.Location},
					AssignmentIDs: []int64{as.ID},
				}
				buckets = insertBucket(buckets, pickBucket{sequence: sequence, entry: entry})
				continue
			}

			b := buckets[i]
			b.entry.Quantity = b.entry.Quantity.Add(move.Quantity)
			b.entry.Shipments = append(b.entry.Shipments, pick)
			b.entry.Locations = appendMissing(b.entry.Locations, pick.Location)
			b.entry.AssignmentIDs = appendMissing(b.entry.AssignmentIDs, as.ID)

			// a product ranks by its lowest sequence location
			if sequence < b.sequence {
				buckets = append(buckets[:i], buckets[i+1:]...)
				b.sequence = sequence
				buckets = insertBucket(buckets, b)
			}
		}
	}

	entries := make([]domain.PickListEntry, 0, len(buckets))
	for _, b := range buckets {
		entries = append(entries, *b.entry)
	}
	return entries
}

func findProduct(buckets []pickBucket, productID int64) int {
	for i, b := range buckets {
		if b.entry.ProductID == productID {
			return i
		}
	}
	return -1
}

func insertBucket(buckets []pickBucket, b pickBucket) []pickBucket {
	at := sort.Search(len(buckets), func(i int) bool { return buckets[i].sequence > b.sequence })
	buckets = append(buckets, pickBucket{})
	copy(buckets[at+1:], buckets[at:])
	buckets[at] = b
	return buckets
}

func appendMissing[T comparable](values []T, v T) []T {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}
