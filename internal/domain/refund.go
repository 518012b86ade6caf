package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type RefundStatus string

const (
	RefundCreated   RefundStatus = "CREATED"
	RefundSubmitted RefundStatus = "SUBMITTED"
	RefundSucceeded RefundStatus = "SUCCEEDED"
	RefundError     RefundStatus = "ERROR"
)

var refundTransitions = map[RefundStatus][]RefundStatus{
	RefundCreated:   {RefundSubmitted, RefundSucceeded, RefundError},
	RefundSubmitted: {RefundSucceeded, RefundError},
}

type Refund struct {
	ID          string
	ExternalID  string
	ChargeID    string
	Amount      int64
	Status      RefundStatus
	Reference   string
	SubmittedBy string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewRefund(charge *Charge, amount int64, submittedBy string, now time.Time) (*Refund, error) {
	if amount <= 0 {
		return nil, NewInvalidAmountError(amount)
	}
	return &Refund{
		ID:          uuid.NewString(),
		ExternalID:  NewExternalID(),
		ChargeID:    charge.ID,
		Amount:      amount,
		Status:      RefundCreated,
		SubmittedBy: submittedBy,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

func (r *Refund) TransitionTo(target RefundStatus, at time.Time) error {
	if !slices.Contains(refundTransitions[r.Status], target) {
		return &DomainError{
			Code:    ErrCodeInvalidTransition,
			Message: fmt.Sprintf("refund state transition [%s] -> [%s] not allowed", r.Status, target),
			Err:     ErrInvalidTransition,
		}
	}
	r.Status = target
	r.UpdatedAt = at.UTC()
	return nil
}

// RefundedAmount sums every refund the gateway has not rejected. Refunds still
// in CREATED may have reached the gateway and count against the charge.
func RefundedAmount(refunds []Refund) int64 {
	return lo.SumBy(refunds, func(r Refund) int64 {
		if r.Status == RefundError {
			return 0
		}
		return r.Amount
	})
}
