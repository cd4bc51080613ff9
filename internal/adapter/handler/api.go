package handler

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/cart-allocation/internal/core/domain"
	"github.com/rl1809/cart-allocation/internal/core/service"
)

// Services bundles what both transports call into.
type Services struct {
	Allocator *service.Allocator
	Recorder  *service.Recorder
	Feedback  *service.Feedback
	Carts     *service.CartService
}

var errMissingFields = errors.New("missing required fields")

func (s Services) claim(ctx context.Context, req *ClaimRequest) (*PickListResponse, error) {
	if req.PickerID == 0 {
		return nil, errMissingFields
	}
	entries, err := s.Allocator.Claim(ctx, req.PickerID, service.ClaimRequest{
		WarehouseID: req.WarehouseID,
		States:      fromStates(req.States),
		MaxRetries:  req.MaxRetries,
	})
	if err != nil {
		return nil, err
	}
	return toPickList(entries), nil
}

func (s Services) complete(ctx context.Context, req *AssignmentIDsRequest) (*AssignmentsResponse, error) {
	if len(req.IDs) == 0 {
		return nil, errMissingFields
	}
	assignments, err := s.Recorder.Complete(ctx, req.IDs)
	if err != nil {
		return nil, err
	}
	return toAssignments(assignments), nil
}

func (s Services) reopen(ctx context.Context, req *AssignmentIDsRequest) (*AssignmentsResponse, error) {
	if len(req.IDs) == 0 {
		return nil, errMissingFields
	}
	assignments, err := s.Recorder.Reopen(ctx, req.IDs)
	if err != nil {
		return nil, err
	}
	return toAssignments(assignments), nil
}

func (s Services) delete(ctx context.Context, req *AssignmentIDsRequest) (*StatusResponse, error) {
	if len(req.IDs) == 0 {
		return nil, errMissingFields
	}
	if err := s.Recorder.Delete(ctx, req.IDs); err != nil {
		return nil, err
	}
	return &StatusResponse{Success: true, Message: "assignments deleted"}, nil
}

func (s Services) completeShipments(ctx context.Context, req *ShipmentCodesRequest) (*AssignmentsResponse, error) {
	if len(req.Codes) == 0 {
		return nil, errMissingFields
	}
	assignments, err := s.Recorder.CompleteShipments(ctx, req.Codes)
	if err != nil {
		return nil, err
	}
	return toAssignments(assignments), nil
}

func (s Services) recordPicks(ctx context.Context, req *RecordPicksRequest) (*RecordPicksResponse, error) {
	if req.PickerID == 0 || len(req.Picks) == 0 {
		return nil, errMissingFields
	}
	lines, err := s.Recorder.RecordPicks(ctx, req.PickerID, fromPicks(req.Picks))
	if err != nil {
		return nil, err
	}
	return toLines(lines), nil
}

func (s Services) outstanding(ctx context.Context, req *OutstandingRequest) (*OutstandingResponse, error) {
	if req.LocationID == 0 {
		return nil, errMissingFields
	}
	quantities, err := s.Feedback.OutstandingQuantity(ctx, req.LocationID, req.ProductIDs)
	if err != nil {
		return nil, err
	}
	return &OutstandingResponse{Quantities: quantities}, nil
}

func isInvalid(err error) bool {
	return errors.Is(err, errMissingFields) ||
		errors.Is(err, domain.ErrInvalidCapacity) ||
		errors.Is(err, domain.ErrInvalidCart) ||
		errors.Is(err, domain.ErrUnknownReference) ||
		errors.Is(err, domain.ErrInvalidQuantity)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrPickerNotFound) ||
		errors.Is(err, domain.ErrAssignmentNotFound) ||
		errors.Is(err, domain.ErrCartNotFound)
}

// httpError maps an error to a status code and the message clients see.
func httpError(err error) (int, string) {
	switch {
	case isInvalid(err):
		return http.StatusBadRequest, err.Error()
	case isNotFound(err):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrDuplicateShipmentClaim), errors.Is(err, domain.ErrCartInUse):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrStorageLocked):
		return http.StatusServiceUnavailable, "storage busy, retry"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusInternalServerError, "internal error"
}

func grpcError(err error) error {
	switch {
	case isInvalid(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case isNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateShipmentClaim):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, domain.ErrCartInUse):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrStorageLocked):
		return status.Error(codes.Unavailable, "storage busy, retry")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, "internal error")
}
