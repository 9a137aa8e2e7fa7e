package http

import (
	"net/http"
	"time"

	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/service"
)

type calculateRefundRequest struct {
	BookingAmount    int64      `json:"booking_amount"`
	TripDate         time.Time  `json:"trip_date"`
	CancellationDate *time.Time `json:"cancellation_date,omitempty"`
}

type createRefundRequest struct {
	BookingID        string     `json:"booking_id"`
	BookingAmount    int64      `json:"booking_amount"`
	TripDate         time.Time  `json:"trip_date"`
	CancellationDate *time.Time `json:"cancellation_date,omitempty"`
	Reason           string     `json:"reason"`
}

type processRefundRequest struct {
	Action           domain.RefundAction `json:"action"`
	Notes            string              `json:"notes"`
	GatewayReference string              `json:"gateway_reference"`
}

type refundResponse struct {
	*domain.RefundRequest
	Actions []domain.RefundActionLog `json:"actions"`
}

func (h *Handler) CalculateRefund(w http.ResponseWriter, r *http.Request) {
	var req calculateRefundRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	calc, err := h.refunds.CalculateRefund(r.Context(), req.BookingAmount, req.TripDate, req.CancellationDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, calc)
}

func (h *Handler) CreateRefund(w http.ResponseWriter, r *http.Request) {
	var req createRefundRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := h.refunds.CreateRefund(r.Context(), service.RefundInput{
		BookingID:        req.BookingID,
		BookingAmount:    req.BookingAmount,
		TripDate:         req.TripDate,
		CancellationDate: req.CancellationDate,
		Reason:           req.Reason,
		RequestedBy:      actorFrom(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}

func (h *Handler) GetRefund(w http.ResponseWriter, r *http.Request) {
	ref, actions, err := h.refunds.GetRefund(r.Context(), pathVar(r, "refundID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if actions == nil {
		actions = []domain.RefundActionLog{}
	}
	writeJSON(w, http.StatusOK, refundResponse{RefundRequest: ref, Actions: actions})
}

func (h *Handler) ProcessRefund(w http.ResponseWriter, r *http.Request) {
	var req processRefundRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := h.refunds.ProcessRefund(r.Context(), service.ProcessRefundInput{
		RefundID:         pathVar(r, "refundID"),
		Action:           req.Action,
		Notes:            req.Notes,
		GatewayReference: req.GatewayReference,
		ActorID:          actorFrom(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}
