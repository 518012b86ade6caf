// Package handlers exposes charge operations and gateway notifications over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/pay-connector/internal/application"
	"github.com/DanielPopoola/pay-connector/internal/application/services"
	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
	"github.com/DanielPopoola/pay-connector/internal/interfaces/rest"
	"github.com/go-playground/validator"
)

const maxBodyBytes = 1 << 20

// ChargeService is the operation surface of the coordinator.
type ChargeService interface {
	CreateCharge(ctx context.Context, cmd services.CreateChargeCommand) (*domain.Charge, error)
	GetCharge(ctx context.Context, externalID string) (*domain.Charge, error)
	StartCardEntry(ctx context.Context, externalID string) (*domain.Charge, error)
	Authorise(ctx context.Context, cmd services.AuthoriseCommand) (*domain.Charge, error)
	Authorise3DS(ctx context.Context, cmd services.Authorise3DSCommand) (*domain.Charge, error)
	Capture(ctx context.Context, externalID string) (*domain.Charge, error)
	Cancel(ctx context.Context, externalID string) (*domain.Charge, error)
	UserCancel(ctx context.Context, externalID string) (*domain.Charge, error)
	Refund(ctx context.Context, cmd services.RefundCommand) (*domain.Refund, error)
	Refunds(ctx context.Context, externalID string) ([]domain.Refund, error)
	RefundAvailability(ctx context.Context, externalID string) (domain.RefundAvailability, error)
}

type NotificationService interface {
	Handle(ctx context.Context, gatewayName domain.GatewayName, in gateway.InboundNotification) (services.NotificationOutcome, error)
}

type Handler struct {
	charges       ChargeService
	notifications NotificationService
	validate      *validator.Validate
	logger        *slog.Logger
}

func NewHandler(charges ChargeService, notifications NotificationService, logger *slog.Logger) *Handler {
	return &Handler{
		charges:       charges,
		notifications: notifications,
		validate:      validator.New(),
		logger:        logger,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/api/accounts/{accountId}/charges", h.HandleCreateCharge)
	mux.HandleFunc("GET /v1/api/charges/{chargeId}", h.HandleGetCharge)
	mux.HandleFunc("POST /v1/api/charges/{chargeId}/capture", h.HandleCapture)
	mux.HandleFunc("POST /v1/api/charges/{chargeId}/cancel", h.HandleCancel)
	mux.HandleFunc("POST /v1/api/charges/{chargeId}/refunds", h.HandleRefund)
	mux.HandleFunc("GET /v1/api/charges/{chargeId}/refunds", h.HandleListRefunds)
	mux.HandleFunc("GET /v1/api/charges/{chargeId}/refund-availability", h.HandleRefundAvailability)

	mux.HandleFunc("POST /v1/frontend/charges/{chargeId}/card-entry", h.HandleStartCardEntry)
	mux.HandleFunc("POST /v1/frontend/charges/{chargeId}/cards", h.HandleAuthorise)
	mux.HandleFunc("POST /v1/frontend/charges/{chargeId}/3ds", h.HandleAuthorise3DS)
	mux.HandleFunc("POST /v1/frontend/charges/{chargeId}/cancel", h.HandleUserCancel)

	mux.HandleFunc("POST /v1/api/notifications/{gateway}", h.HandleNotification)
}

// decode reads a JSON body into dst and validates its struct tags.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return application.NewInvalidInputError(fmt.Errorf("reading request body: %w", err))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return application.NewInvalidInputError(fmt.Errorf("malformed request body: %w", err))
	}
	if err := h.validate.Struct(dst); err != nil {
		return application.NewInvalidInputError(err)
	}
	return nil
}

func (h *Handler) respondWithCharge(w http.ResponseWriter, status int, charge *domain.Charge, err error) {
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, status, rest.ToChargeResponse(charge))
}
