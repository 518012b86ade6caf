package domain

// GatewayName identifies a payment gateway integration.
type GatewayName string

const (
	GatewayWorldpay GatewayName = "worldpay"
	GatewaySmartpay GatewayName = "smartpay"
	GatewayEpdq     GatewayName = "epdq"
	GatewayStripe   GatewayName = "stripe"
	GatewaySandbox  GatewayName = "sandbox"
)

type AccountType string

const (
	AccountTypeTest AccountType = "test"
	AccountTypeLive AccountType = "live"
)

// Credential keys understood by the providers.
const (
	CredentialUsername         = "username"
	CredentialPassword         = "password"
	CredentialMerchantID       = "merchant_id"
	CredentialSHAInPassphrase  = "sha_in_passphrase"
	CredentialSHAOutPassphrase = "sha_out_passphrase"
	CredentialAPIKey           = "api_key"
)

type NotificationCredentials struct {
	Username string
	Password string
}

// GatewayAccount is read-only configuration owned by the account service.
type GatewayAccount struct {
	ID                      string
	GatewayName             GatewayName
	Type                    AccountType
	Description             string
	Credentials             map[string]string
	Requires3DS             bool
	NotificationCredentials *NotificationCredentials
}

func (a GatewayAccount) Credential(key string) string {
	return a.Credentials[key]
}

func (a GatewayAccount) IsLive() bool {
	return a.Type == AccountTypeLive
}
