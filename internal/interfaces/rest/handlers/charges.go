package handlers

import (
	"net/http"

	"github.com/DanielPopoola/pay-connector/internal/application/services"
	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/interfaces/rest"
)

type CreateChargeRequest struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Description string `json:"description" validate:"required,max=255"`
	Reference   string `json:"reference" validate:"required,max=255"`
	ReturnURL   string `json:"return_url" validate:"required,url"`
	Email       string `json:"email" validate:"omitempty,email"`
}

type AddressRequest struct {
	Line1    string `json:"line1" validate:"required"`
	Line2    string `json:"line2"`
	City     string `json:"city" validate:"required"`
	Postcode string `json:"postcode" validate:"required"`
	Country  string `json:"country" validate:"required,len=2"`
}

type AuthoriseRequest struct {
	CardNumber     string          `json:"card_number" validate:"required,numeric,min=12,max=19"`
	CVC            string          `json:"cvc" validate:"required,numeric,min=3,max=4"`
	ExpiryDate     string          `json:"expiry_date" validate:"required,len=5"`
	CardholderName string          `json:"cardholder_name" validate:"required"`
	CardBrand      string          `json:"card_brand"`
	Address        *AddressRequest `json:"address"`
}

type Authorise3DSRequest struct {
	PaResponse string `json:"pa_response"`
	MD         string `json:"md"`
	Result     string `json:"auth_3ds_result" validate:"omitempty,oneof=AUTHORISED DECLINED ERROR CANCELED"`
}

func (h *Handler) HandleCreateCharge(w http.ResponseWriter, r *http.Request) {
	var req CreateChargeRequest
	if err := h.decode(w, r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	charge, err := h.charges.CreateCharge(r.Context(), services.CreateChargeCommand{
		AccountID:   r.PathValue("accountId"),
		Amount:      req.Amount,
		Description: req.Description,
		Reference:   req.Reference,
		ReturnURL:   req.ReturnURL,
		Email:       req.Email,
	})
	h.respondWithCharge(w, http.StatusCreated, charge, err)
}

// HandleGetCharge returns the charge with its refund summary.
func (h *Handler) HandleGetCharge(w http.ResponseWriter, r *http.Request) {
	externalID := r.PathValue("chargeId")
	charge, err := h.charges.GetCharge(r.Context(), externalID)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	availability, err := h.charges.RefundAvailability(r.Context(), externalID)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	resp := rest.ToChargeResponse(charge)
	resp.RefundSummary = rest.ToRefundSummary(availability)
	rest.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleStartCardEntry(w http.ResponseWriter, r *http.Request) {
	charge, err := h.charges.StartCardEntry(r.Context(), r.PathValue("chargeId"))
	h.respondWithCharge(w, http.StatusOK, charge, err)
}

func (h *Handler) HandleAuthorise(w http.ResponseWriter, r *http.Request) {
	var req AuthoriseRequest
	if err := h.decode(w, r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	card := domain.CardDetails{
		CardNumber:     req.CardNumber,
		CVC:            req.CVC,
		EndDate:        req.ExpiryDate,
		CardholderName: req.CardholderName,
		CardBrand:      req.CardBrand,
	}
	if a := req.Address; a != nil {
		card.Address = &domain.Address{
			Line1:    a.Line1,
			Line2:    a.Line2,
			City:     a.City,
			Postcode: a.Postcode,
			Country:  a.Country,
		}
	}

	charge, err := h.charges.Authorise(r.Context(), services.AuthoriseCommand{
		ExternalID: r.PathValue("chargeId"),
		Card:       card,
	})
	h.respondWithCharge(w, http.StatusOK, charge, err)
}

func (h *Handler) HandleAuthorise3DS(w http.ResponseWriter, r *http.Request) {
	var req Authorise3DSRequest
	if err := h.decode(w, r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	charge, err := h.charges.Authorise3DS(r.Context(), services.Authorise3DSCommand{
		ExternalID: r.PathValue("chargeId"),
		Result: domain.Auth3DSResult{
			PaResponse: req.PaResponse,
			MD:         req.MD,
			Result:     domain.Auth3DSResultStatus(req.Result),
		},
	})
	h.respondWithCharge(w, http.StatusOK, charge, err)
}

// HandleCapture approves the capture. The capture sweep performs it.
func (h *Handler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	charge, err := h.charges.Capture(r.Context(), r.PathValue("chargeId"))
	h.respondWithCharge(w, http.StatusAccepted, charge, err)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	charge, err := h.charges.Cancel(r.Context(), r.PathValue("chargeId"))
	h.respondWithCharge(w, http.StatusOK, charge, err)
}

func (h *Handler) HandleUserCancel(w http.ResponseWriter, r *http.Request) {
	charge, err := h.charges.UserCancel(r.Context(), r.PathValue("chargeId"))
	h.respondWithCharge(w, http.StatusOK, charge, err)
}
