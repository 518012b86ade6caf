package worldpay

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
)

type notificationEnvelope struct {
	XMLName      xml.Name `xml:"paymentService"`
	MerchantCode string   `xml:"merchantCode,attr"`
	Notify       struct {
		Events []orderStatusEvent `xml:"orderStatusEvent"`
	} `xml:"notify"`
}

type orderStatusEvent struct {
	OrderCode string `xml:"orderCode,attr"`
	Payment   struct {
		LastEvent string `xml:"lastEvent"`
	} `xml:"payment"`
	Journal struct {
		BookingDate struct {
			Date struct {
				DayOfMonth string `xml:"dayOfMonth,attr"`
				Month      string `xml:"month,attr"`
				Year       string `xml:"year,attr"`
			} `xml:"date"`
		} `xml:"bookingDate"`
		References []struct {
			Type      string `xml:"type,attr"`
			Reference string `xml:"reference,attr"`
		} `xml:"journalReference"`
	} `xml:"journal"`
}

func (e orderStatusEvent) refundReference() string {
	for _, ref := range e.Journal.References {
		if ref.Type == "refund" {
			return ref.Reference
		}
	}
	return ""
}

func (e orderStatusEvent) bookingDate() time.Time {
	d := e.Journal.BookingDate.Date
	day, errD := strconv.Atoi(d.DayOfMonth)
	month, errM := strconv.Atoi(d.Month)
	year, errY := strconv.Atoi(d.Year)
	if errD != nil || errM != nil || errY != nil {
		return time.Time{}
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// VerifyNotificationSource checks that the sender's reverse DNS falls inside the
// configured notification domain. Lookup failures reject the notification.
func (p *Provider) VerifyNotificationSource(ctx context.Context, in gateway.InboundNotification) bool {
	if !p.secureNotifications {
		return true
	}
	if in.SourceIP == "" {
		p.logger.Warn("rejecting notification without source address")
		return false
	}
	names, err := p.resolver.LookupAddr(ctx, in.SourceIP)
	if err != nil {
		p.logger.Warn("reverse lookup of notification source failed", "source_ip", in.SourceIP, "error", err)
		return false
	}
	for _, name := range names {
		host := strings.TrimSuffix(name, ".")
		if host == p.notificationDomain || strings.HasSuffix(host, "."+p.notificationDomain) {
			return true
		}
	}
	p.logger.Warn("notification source outside trusted domain", "source_ip", in.SourceIP, "hosts", names)
	return false
}

func (p *Provider) ParseNotification(in gateway.InboundNotification) ([]gateway.Notification, error) {
	var env notificationEnvelope
	if err := xml.Unmarshal(in.Payload, &env); err != nil {
		return nil, fmt.Errorf("parsing worldpay notification: %w", err)
	}
	if len(env.Notify.Events) == 0 {
		return nil, fmt.Errorf("worldpay notification has no orderStatusEvent")
	}

	notifications := make([]gateway.Notification, 0, len(env.Notify.Events))
	for _, e := range env.Notify.Events {
		notifications = append(notifications, gateway.Notification{
			TransactionID: e.OrderCode,
			Reference:     e.refundReference(),
			Status:        strings.TrimSpace(e.Payment.LastEvent),
			EventDate:     e.bookingDate(),
			Fields:        map[string]string{"merchantCode": env.MerchantCode},
		})
	}
	return notifications, nil
}

// VerifyNotification checks the notification was addressed to the charge's merchant.
func (p *Provider) VerifyNotification(n gateway.Notification, account domain.GatewayAccount) bool {
	merchant := n.Fields["merchantCode"]
	return merchant != "" && merchant == account.Credential(domain.CredentialMerchantID)
}

// ConfirmNotification asks the gateway for the order's current status. The
// notification body is not trusted for the status itself.
func (p *Provider) ConfirmNotification(
	ctx context.Context,
	n gateway.Notification,
	account domain.GatewayAccount,
) gateway.Response[gateway.Notification] {
	payload, err := buildInquiryOrder(account, n.TransactionID)
	if err != nil {
		return gateway.Failure[gateway.Notification](gateway.GatewayError("BUILD_FAILED", err.Error()))
	}
	raw, gwErr := p.inquiryClient.Send(ctx, account, p.order(gateway.OrderInquiry, payload, account, ""))
	if gwErr != nil {
		return gateway.Failure[gateway.Notification](gwErr)
	}
	r, gwErr := p.decode(raw)
	if gwErr != nil {
		return gateway.Failure[gateway.Notification](gwErr)
	}
	if r.ErrorCode() == "" && r.lastEvent() == "" {
		return gateway.Failure[gateway.Notification](gateway.GatewayError("UNEXPECTED_RESPONSE", "order inquiry returned no status"))
	}
	if code := r.orderCode(); r.ErrorCode() == "" && code != n.TransactionID {
		return gateway.Failure[gateway.Notification](gateway.GatewayError("UNEXPECTED_RESPONSE",
			fmt.Sprintf("order inquiry answered for %q", code)))
	}
	return gateway.FromWire(r, func(r reply) gateway.Notification {
		confirmed := n
		confirmed.Status = r.lastEvent()
		return confirmed
	})
}
