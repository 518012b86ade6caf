package handlers

import (
	"net/http"

	"github.com/DanielPopoola/pay-connector/internal/application/services"
	"github.com/DanielPopoola/pay-connector/internal/interfaces/rest"
)

type RefundRequest struct {
	Amount         int64  `json:"amount" validate:"required,gt=0"`
	UserExternalID string `json:"user_external_id"`
}

func (h *Handler) HandleRefund(w http.ResponseWriter, r *http.Request) {
	var req RefundRequest
	if err := h.decode(w, r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	refund, err := h.charges.Refund(r.Context(), services.RefundCommand{
		ExternalID:  r.PathValue("chargeId"),
		Amount:      req.Amount,
		SubmittedBy: req.UserExternalID,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusAccepted, rest.ToRefundResponse(*refund))
}

func (h *Handler) HandleListRefunds(w http.ResponseWriter, r *http.Request) {
	refunds, err := h.charges.Refunds(r.Context(), r.PathValue("chargeId"))
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	out := make([]rest.RefundResponse, 0, len(refunds))
	for _, refund := range refunds {
		out = append(out, rest.ToRefundResponse(refund))
	}
	rest.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleRefundAvailability(w http.ResponseWriter, r *http.Request) {
	availability, err := h.charges.RefundAvailability(r.Context(), r.PathValue("chargeId"))
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, rest.ToRefundSummary(availability))
}
