package main

import (
	"fmt"
	"slices"

	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/spf13/cobra"
)

var gatewayNames = []string{
	string(domain.GatewayWorldpay),
	string(domain.GatewaySmartpay),
	string(domain.GatewayEpdq),
	string(domain.GatewayStripe),
	string(domain.GatewaySandbox),
}

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage gateway accounts",
	}
	cmd.AddCommand(accountPutCmd())
	return cmd
}

// accountPutCmd creates or replaces a gateway account. Accounts are normally
// provisioned by the account service; this is for local setups.
func accountPutCmd() *cobra.Command {
	var (
		gatewayName  string
		live         bool
		description  string
		credentials  map[string]string
		requires3DS  bool
		notifyUser   string
		notifyPasswd string
	)

	cmd := &cobra.Command{
		Use:   "put [account-id]",
		Short: "Create or replace a gateway account",
		Example: `  connector account put acct-1 --gateway sandbox
  connector account put acct-2 --gateway epdq --credential merchant_id=PSPID \
      --credential username=api --credential password=secret \
      --credential sha_in_passphrase=in --credential sha_out_passphrase=out`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(gatewayNames, gatewayName) {
				return fmt.Errorf("unknown gateway %q, expected one of %v", gatewayName, gatewayNames)
			}

			account := &domain.GatewayAccount{
				ID:          args[0],
				GatewayName: domain.GatewayName(gatewayName),
				Type:        domain.AccountTypeTest,
				Description: description,
				Credentials: credentials,
				Requires3DS: requires3DS,
			}
			if live {
				account.Type = domain.AccountTypeLive
			}
			if notifyUser != "" {
				account.NotificationCredentials = &domain.NotificationCredentials{
					Username: notifyUser,
					Password: notifyPasswd,
				}
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.repos.Accounts.Save(cmd.Context(), account); err != nil {
				return fmt.Errorf("save account: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s account %s\n", account.GatewayName, account.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&gatewayName, "gateway", "g", "", "gateway name")
	cmd.Flags().BoolVar(&live, "live", false, "use the gateway's live endpoint")
	cmd.Flags().StringVar(&description, "description", "", "free text description")
	cmd.Flags().StringToStringVar(&credentials, "credential", nil, "gateway credential as key=value, repeatable")
	cmd.Flags().BoolVar(&requires3DS, "requires-3ds", false, "request 3-D Secure on authorisation")
	cmd.Flags().StringVar(&notifyUser, "notification-username", "", "basic auth username expected on notifications")
	cmd.Flags().StringVar(&notifyPasswd, "notification-password", "", "basic auth password expected on notifications")
	_ = cmd.MarkFlagRequired("gateway")
	return cmd
}
