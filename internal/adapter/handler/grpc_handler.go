package handler

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type GRPCHandler struct {
	services Services
	log      *slog.Logger
}

func NewGRPCHandler(services Services, log *slog.Logger) *GRPCHandler {
	if log == nil {
		log = slog.Default()
	}
	return &GRPCHandler{services: services, log: log}
}

func (h *GRPCHandler) Claim(ctx context.Context, req *ClaimRequest) (*PickListResponse, error) {
	resp, err := h.services.claim(ctx, req)
	if err != nil {
		return nil, h.fail("Claim", err)
	}
	return resp, nil
}

func (h *GRPCHandler) Complete(ctx context.Context, req *AssignmentIDsRequest) (*AssignmentsResponse, error) {
	resp, err := h.services.complete(ctx, req)
	if err != nil {
		return nil, h.fail("Complete", err)
	}
	return resp, nil
}

func (h *GRPCHandler) Reopen(ctx context.Context, req *AssignmentIDsRequest) (*AssignmentsResponse, error) {
	resp, err := h.services.reopen(ctx, req)
	if err != nil {
		return nil, h.fail("Reopen", err)
	}
	return resp, nil
}

func (h *GRPCHandler) Delete(ctx context.Context, req *AssignmentIDsRequest) (*StatusResponse, error) {
	resp, err := h.services.delete(ctx, req)
	if err != nil {
		return nil, h.fail("Delete", err)
	}
	return resp, nil
}

func (h *GRPCHandler) CompleteShipments(ctx context.Context, req *ShipmentCodesRequest) (*AssignmentsResponse, error) {
	resp, err := h.services.completeShipments(ctx, req)
	if err != nil {
		return nil, h.fail("CompleteShipments", err)
	}
	return resp, nil
}

func (h *GRPCHandler) RecordPicks(ctx context.Context, req *RecordPicksRequest) (*RecordPicksResponse, error) {
	resp, err := h.services.recordPicks(ctx, req)
	if err != nil {
		return nil, h.fail("RecordPicks", err)
	}
	return resp, nil
}

func (h *GRPCHandler) OutstandingQuantity(ctx context.Context, req *OutstandingRequest) (*OutstandingResponse, error) {
	resp, err := h.services.outstanding(ctx, req)
	if err != nil {
		return nil, h.fail("OutstandingQuantity", err)
	}
	return resp, nil
}

// fail converts a service error into a gRPC status error.
func (h *GRPCHandler) fail(method string, err error) error {
	st := grpcError(err)
	if status.Code(st) == codes.Internal {
		h.log.Error("grpc call failed", "method", method, "err", err)
	}
	return st
}
