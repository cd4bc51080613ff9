package service

import (
	"github.com/rl1809/cart-allocation/internal/core/domain"
	"github.com/rl1809/cart-allocation/internal/port"
)

// ShipmentPolicy lets a deployment widen or narrow what a claim may pick up.
type ShipmentPolicy interface {
	// Filter adjusts the eligibility filter before the work queue is searched
	Filter(filter *port.ShipmentFilter)

	// Select receives the eligible shipments in priority order and returns the ones to offer
	Select(shipments []domain.Shipment) []domain.Shipment
}

type DefaultPolicy struct{}

func (DefaultPolicy) Filter(*port.ShipmentFilter) {}

func (DefaultPolicy) Select(shipments []domain.Shipment) []domain.Shipment { return shipments }

// CarrierPolicy restricts claims to shipments of the given carriers.
type CarrierPolicy struct {
	DefaultPolicy
	CarrierIDs []int64
}

func (p CarrierPolicy) Filter(filter *port.ShipmentFilter) {
	filter.CarrierIDs = append(filter.CarrierIDs, p.CarrierIDs...)
}
