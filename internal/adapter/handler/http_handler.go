package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

type HTTPHandler struct {
	services Services
	log      *slog.Logger
}

func NewHTTPHandler(services Services, log *slog.Logger) *HTTPHandler {
	if log == nil {
		log = slog.Default()
	}
	return &HTTPHandler{services: services, log: log}
}

// Register mounts the API routes on mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("POST /api/claims", h.Claim)
	mux.HandleFunc("POST /api/assignments/complete", h.Complete)
	mux.HandleFunc("POST /api/assignments/reopen", h.Reopen)
	mux.HandleFunc("POST /api/assignments/delete", h.Delete)
	mux.HandleFunc("POST /api/shipments/complete", h.CompleteShipments)
	mux.HandleFunc("POST /api/picks", h.RecordPicks)
	mux.HandleFunc("GET /api/outstanding", h.Outstanding)
	mux.HandleFunc("POST /api/carts", h.CreateCart)
	mux.HandleFunc("PUT /api/carts/{id}", h.UpdateCart)
	mux.HandleFunc("DELETE /api/carts/{id}", h.DeleteCart)
	mux.HandleFunc("POST /api/pickers/{id}/cart", h.AssignCart)
}

func (h *HTTPHandler) Claim(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, h.services.claim)
}

func (h *HTTPHandler) Complete(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, h.services.complete)
}

func (h *HTTPHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, h.services.reopen)
}

func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, h.services.delete)
}

func (h *HTTPHandler) CompleteShipments(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, h.services.completeShipments)
}

func (h *HTTPHandler) RecordPicks(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, h.services.recordPicks)
}

// Outstanding reads location_id and a comma separated product_ids from the query string.
func (h *HTTPHandler) Outstanding(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := OutstandingRequest{}

	var err error
	if req.LocationID, err = strconv.ParseInt(q.Get("location_id"), 10, 64); err != nil {
		h.writeError(w, errMissingFields)
		return
	}
	for _, raw := range strings.Split(q.Get("product_ids"), ",") {
		if raw = strings.TrimSpace(raw); raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, StatusResponse{Message: "invalid product id"})
			return
		}
		req.ProductIDs = append(req.ProductIDs, id)
	}

	resp, err := h.services.outstanding(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) CreateCart(w http.ResponseWriter, r *http.Request) {
	var req CartRequest
	if !decode(w, r, &req) {
		return
	}
	cart, err := h.services.Carts.CreateCart(r.Context(), req.Name, req.Rows, req.Columns)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCart(cart))
}

func (h *HTTPHandler) UpdateCart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req CartRequest
	if !decode(w, r, &req) {
		return
	}

	cart, err := h.services.Carts.UpdateCart(r.Context(), id, req.Name, req.Rows, req.Columns)
	if err == nil && req.Active != nil && *req.Active != cart.Active {
		cart, err = h.services.Carts.SetCartActive(r.Context(), id, *req.Active)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCart(cart))
}

func (h *HTTPHandler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.services.Carts.DeleteCart(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "cart deleted"})
}

func (h *HTTPHandler) AssignCart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req AssignCartRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.services.Carts.AssignCart(r.Context(), id, req.CartID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "cart assigned"})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func serve[Req, Resp any](h *HTTPHandler, w http.ResponseWriter, r *http.Request, call func(context.Context, *Req) (*Resp, error)) {
	req := new(Req)
	if !decode(w, r, req) {
		return
	}
	resp, err := call(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status, message := httpError(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "err", err)
	}
	writeJSON(w, status, StatusResponse{Success: false, Message: message})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, StatusResponse{
			Success: false,
			Message: "invalid request body",
		})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, StatusResponse{Success: false, Message: "invalid id"})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
