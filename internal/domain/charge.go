// Package domain holds the charge lifecycle: statuses, legal transitions,
// refunds and the gateway account a charge is taken against.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type Charge struct {
	ID                   string
	ExternalID           string
	Amount               int64
	Status               ChargeStatus
	GatewayName          GatewayName
	GatewayAccountID     string
	GatewayTransactionID string
	ProviderSessionID    string
	ReturnURL            string
	Description          string
	Reference            string
	Email                string
	Auth3DS              *Auth3DSDetails
	CreatedAt            time.Time
	Version              int64
}

// ChargeEvent is an append-only record of a status a charge has held.
type ChargeEvent struct {
	ChargeID  string
	Status    ChargeStatus
	UpdatedAt time.Time
}

type NewChargeParams struct {
	Account     GatewayAccount
	Amount      int64
	Description string
	Reference   string
	ReturnURL   string
	Email       string
}

func NewCharge(p NewChargeParams, now time.Time) (*Charge, error) {
	if p.Account.ID == "" {
		return nil, NewMissingRequiredFieldError("gateway account")
	}
	if p.Amount <= 0 {
		return nil, NewInvalidAmountError(p.Amount)
	}
	if p.Description == "" {
		return nil, NewMissingRequiredFieldError("description")
	}
	if p.Reference == "" {
		return nil, NewMissingRequiredFieldError("reference")
	}
	if p.ReturnURL == "" {
		return nil, NewMissingRequiredFieldError("return url")
	}

	return &Charge{
		ID:               uuid.NewString(),
		ExternalID:       NewExternalID(),
		Amount:           p.Amount,
		Status:           StatusCreated,
		GatewayName:      p.Account.GatewayName,
		GatewayAccountID: p.Account.ID,
		ReturnURL:        p.ReturnURL,
		Description:      p.Description,
		Reference:        p.Reference,
		Email:            p.Email,
		CreatedAt:        now.UTC(),
	}, nil
}

// TransitionTo moves the charge to target if the state machine allows it and
// returns the event to append. The status is left untouched on failure.
func (c *Charge) TransitionTo(target ChargeStatus, at time.Time) (ChargeEvent, error) {
	if err := Transition(c.Status, target); err != nil {
		return ChargeEvent{}, err
	}
	c.Status = target
	return ChargeEvent{ChargeID: c.ID, Status: target, UpdatedAt: at.UTC()}, nil
}

// AssignTransactionID records the gateway's id for the charge. Once set it can
// only be assigned again with the same value.
func (c *Charge) AssignTransactionID(id string) error {
	if id == "" {
		return nil
	}
	if c.GatewayTransactionID != "" && c.GatewayTransactionID != id {
		return NewTransactionIDMismatchError(c.GatewayTransactionID, id)
	}
	c.GatewayTransactionID = id
	return nil
}

func (c *Charge) ExternalState() ExternalState {
	return c.Status.ExternalState()
}

func (c *Charge) HasStatus(statuses ...ChargeStatus) bool {
	for _, s := range statuses {
		if c.Status == s {
			return true
		}
	}
	return false
}

// ChargeQuery selects charges for sweeps and reporting. Zero fields do not filter.
type ChargeQuery struct {
	Statuses      []ChargeStatus
	GatewayName   GatewayName
	CreatedBefore time.Time
	// NoEventSince excludes charges that recorded an event of NoEventStatus at or
	// after this time.
	NoEventStatus ChargeStatus
	NoEventSince  time.Time
	Limit         int
}
