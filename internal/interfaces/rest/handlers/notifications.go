package handlers

import (
	"io"
	"net"
	"net/http"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
	"github.com/DanielPopoola/pay-connector/internal/interfaces/rest"
)

// HandleNotification passes a gateway callback to the processor. Gateways get
// their fixed acknowledgement whatever happened to the individual updates, and
// 403 only when the sender could not be verified.
func (h *Handler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	gatewayName := domain.GatewayName(r.PathValue("gateway"))

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Warn("could not read notification body", "gateway", gatewayName, "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	in := gateway.InboundNotification{
		Payload:     payload,
		ContentType: r.Header.Get("Content-Type"),
		SourceIP:    sourceIP(r),
	}
	if user, password, ok := r.BasicAuth(); ok {
		in.AuthUsername, in.AuthPassword = user, password
	}

	outcome, err := h.notifications.Handle(r.Context(), gatewayName, in)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	if outcome.Rejected {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, outcome.Acknowledgement)
}

func sourceIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
