package smartpay

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
	"github.com/xeipuuv/gojsonschema"
)

const notificationItemSchema = `{
  "type": "object",
  "required": ["eventCode", "eventDate", "pspReference"],
  "properties": {
    "eventCode":         {"type": "string", "minLength": 1},
    "eventDate":         {"type": "string", "minLength": 1},
    "pspReference":      {"type": "string", "minLength": 1},
    "originalReference": {"type": "string"},
    "success":           {"type": "string"}
  }
}`

var itemSchema = mustSchema(notificationItemSchema)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("smartpay: invalid notification schema: %v", err))
	}
	return s
}

type notificationRequest struct {
	Live  string `json:"live"`
	Items []struct {
		Item json.RawMessage `json:"NotificationRequestItem"`
	} `json:"notificationItems"`
}

type notificationItem struct {
	EventCode           string `json:"eventCode"`
	EventDate           string `json:"eventDate"`
	PSPReference        string `json:"pspReference"`
	OriginalReference   string `json:"originalReference"`
	MerchantReference   string `json:"merchantReference"`
	MerchantAccountCode string `json:"merchantAccountCode"`
	Success             string `json:"success"`
}

// VerifyNotificationSource only checks that credentials were presented; they are
// matched against the charge's account in VerifyNotification.
func (p *Provider) VerifyNotificationSource(_ context.Context, in gateway.InboundNotification) bool {
	if in.AuthUsername == "" || in.AuthPassword == "" {
		p.logger.Warn("notification without basic auth credentials", "source_ip", in.SourceIP)
		return false
	}
	return true
}

// ParseNotification validates every item against the mandatory-field schema and
// returns the items ordered by event date.
func (p *Provider) ParseNotification(in gateway.InboundNotification) ([]gateway.Notification, error) {
	var req notificationRequest
	if err := json.Unmarshal(in.Payload, &req); err != nil {
		return nil, fmt.Errorf("parsing smartpay notification: %w", err)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("smartpay notification has no notificationItems")
	}

	notifications := make([]gateway.Notification, 0, len(req.Items))
	for i, wrapper := range req.Items {
		result, err := itemSchema.Validate(gojsonschema.NewBytesLoader(wrapper.Item))
		if err != nil {
			return nil, fmt.Errorf("validating notification item %d: %w", i, err)
		}
		if !result.Valid() {
			problems := make([]string, 0, len(result.Errors()))
			for _, e := range result.Errors() {
				problems = append(problems, e.String())
			}
			return nil, fmt.Errorf("invalid notification item %d: %s", i, strings.Join(problems, "; "))
		}

		var item notificationItem
		if err := json.Unmarshal(wrapper.Item, &item); err != nil {
			return nil, fmt.Errorf("decoding notification item %d: %w", i, err)
		}
		eventDate, err := time.Parse(time.RFC3339, item.EventDate)
		if err != nil {
			return nil, fmt.Errorf("notification item %d has bad eventDate %q: %w", i, item.EventDate, err)
		}

		txID := item.OriginalReference
		if txID == "" {
			txID = item.PSPReference
		}
		notifications = append(notifications, gateway.Notification{
			TransactionID: txID,
			Reference:     item.PSPReference,
			Status:        item.EventCode + ":" + strings.ToLower(item.Success),
			EventDate:     eventDate,
			Fields:        map[string]string{"merchantAccountCode": item.MerchantAccountCode},
			AuthUsername:  in.AuthUsername,
			AuthPassword:  in.AuthPassword,
		})
	}

	slices.SortStableFunc(notifications, func(a, b gateway.Notification) int {
		return a.EventDate.Compare(b.EventDate)
	})
	return notifications, nil
}

// VerifyNotification matches the presented basic auth credentials against the
// account's notification credentials.
func (p *Provider) VerifyNotification(n gateway.Notification, account domain.GatewayAccount) bool {
	creds := account.NotificationCredentials
	if creds == nil {
		return false
	}
	if merchant := n.Fields["merchantAccountCode"]; merchant != "" &&
		merchant != account.Credential(domain.CredentialMerchantID) {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(n.AuthUsername), []byte(creds.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(n.AuthPassword), []byte(creds.Password)) == 1
	return userOK && passOK
}
