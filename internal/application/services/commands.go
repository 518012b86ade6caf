package services

import "github.com/DanielPopoola/pay-connector/internal/domain"

type CreateChargeCommand struct {
	AccountID   string
	Amount      int64
	Description string
	Reference   string
	ReturnURL   string
	Email       string
}

type AuthoriseCommand struct {
	ExternalID string
	Card       domain.CardDetails
}

type Authorise3DSCommand struct {
	ExternalID string
	Result     domain.Auth3DSResult
}

type RefundCommand struct {
	ExternalID  string
	Amount      int64
	SubmittedBy string
}
