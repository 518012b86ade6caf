package testhelpers

import (
	"time"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/google/uuid"
)

// TestAccount returns a sandbox test account with notification credentials.
func TestAccount() *domain.GatewayAccount {
	return &domain.GatewayAccount{
		ID:          "acct-" + uuid.NewString(),
		GatewayName: domain.GatewaySandbox,
		Type:        domain.AccountTypeTest,
		Description: "integration test account",
		Credentials: map[string]string{
			domain.CredentialUsername:   "merchant",
			domain.CredentialPassword:   "secret",
			domain.CredentialMerchantID: "MERCHANTCODE",
		},
		NotificationCredentials: &domain.NotificationCredentials{Username: "notify", Password: "notify-pass"},
	}
}

// NewCharge returns a CREATED charge against account.
func NewCharge(account *domain.GatewayAccount, createdAt time.Time) *domain.Charge {
	charge, err := domain.NewCharge(domain.NewChargeParams{
		Account:     *account,
		Amount:      1000,
		Description: "integration test charge",
		Reference:   "ref-" + uuid.NewString()[:8],
		ReturnURL:   "https://service.example/return",
		Email:       "payer@example.com",
	}, createdAt)
	if err != nil {
		panic(err)
	}
	return charge
}
