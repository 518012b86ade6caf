package main

import (
	"fmt"

	"github.com/DanielPopoola/pay-connector/internal/worker"
	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one batch of a background sweep and exit",
	}
	cmd.AddCommand(sweepOnceCmd("capture", "Execute approved captures that are due"))
	cmd.AddCommand(sweepOnceCmd("expiry", "Expire charges older than the charge window"))
	return cmd
}

func sweepOnceCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			var result worker.Result
			if name == "capture" {
				result, err = a.captures.RunOnce(cmd.Context())
			} else {
				result, err = a.expiries.RunOnce(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("%s sweep: %w", name, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "selected=%d succeeded=%d skipped=%d failed=%d\n",
				result.Selected, result.Succeeded, result.Skipped, result.Failed)
			if result.Failed > 0 {
				return fmt.Errorf("%s sweep: %d of %d charges failed", name, result.Failed, result.Selected)
			}
			return nil
		},
	}
}
