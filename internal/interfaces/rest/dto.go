package rest

import (
	"time"

	"github.com/DanielPopoola/pay-connector/internal/domain"
)

type Auth3DSData struct {
	PaRequest string `json:"pa_request"`
	IssuerURL string `json:"issuer_url"`
	MD        string `json:"md,omitempty"`
}

type RefundSummary struct {
	Status          string `json:"status"`
	AmountAvailable int64  `json:"amount_available"`
}

type ChargeResponse struct {
	ChargeID             string         `json:"charge_id"`
	Amount               int64          `json:"amount"`
	State                string         `json:"state"`
	Status               string         `json:"status"`
	Description          string         `json:"description"`
	Reference            string         `json:"reference"`
	ReturnURL            string         `json:"return_url"`
	Email                string         `json:"email,omitempty"`
	PaymentProvider      string         `json:"payment_provider"`
	GatewayTransactionID string         `json:"gateway_transaction_id,omitempty"`
	Auth3DSData          *Auth3DSData   `json:"auth_3ds_data,omitempty"`
	RefundSummary        *RefundSummary `json:"refund_summary,omitempty"`
	CreatedDate          time.Time      `json:"created_date"`
}

func ToChargeResponse(c *domain.Charge) ChargeResponse {
	resp := ChargeResponse{
		ChargeID:             c.ExternalID,
		Amount:               c.Amount,
		State:                string(c.ExternalState()),
		Status:               string(c.Status),
		Description:          c.Description,
		Reference:            c.Reference,
		ReturnURL:            c.ReturnURL,
		Email:                c.Email,
		PaymentProvider:      string(c.GatewayName),
		GatewayTransactionID: c.GatewayTransactionID,
		CreatedDate:          c.CreatedAt,
	}
	if c.Auth3DS != nil && c.Status == domain.StatusAuthorisation3DSRequired {
		resp.Auth3DSData = &Auth3DSData{
			PaRequest: c.Auth3DS.PaRequest,
			IssuerURL: c.Auth3DS.IssuerURL,
			MD:        c.Auth3DS.MD,
		}
	}
	return resp
}

func ToRefundSummary(a domain.RefundAvailability) *RefundSummary {
	return &RefundSummary{Status: string(a.Status), AmountAvailable: a.Remaining}
}

type RefundResponse struct {
	RefundID    string    `json:"refund_id"`
	Amount      int64     `json:"amount"`
	Status      string    `json:"status"`
	SubmittedBy string    `json:"user_external_id,omitempty"`
	CreatedDate time.Time `json:"created_date"`
}

func ToRefundResponse(r domain.Refund) RefundResponse {
	return RefundResponse{
		RefundID:    r.ExternalID,
		Amount:      r.Amount,
		Status:      string(r.Status),
		SubmittedBy: r.SubmittedBy,
		CreatedDate: r.CreatedAt,
	}
}
