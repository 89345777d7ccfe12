package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rai/storefront-payments/internal/platform/config"
	"github.com/rai/storefront-payments/modules/orders/application/commands"
)

func newReconcileCmd() *cobra.Command {
	var intentID, paymentID string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Re-run reconciliation for one order",
		Long: `Re-run reconciliation for one order, for operators retrying a stuck or
abandoned fulfillment. Without --payment-id the order must already be paid.

Examples:
  storefront reconcile --intent-id order_Nx1 --payment-id pay_Q2
  storefront reconcile --intent-id order_Nx1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if intentID == "" {
				return errors.New("--intent-id is required")
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}
			logger = logger.With(slog.String("command", "reconcile"))

			a, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			outcome, err := a.orders.Reconcile(cmd.Context(), intentID, paymentID)
			if err != nil {
				return fmt.Errorf("reconcile %s: %w", intentID, err)
			}
			printOutcome(cmd.OutOrStdout(), outcome)
			return nil
		},
	}

	cmd.Flags().StringVar(&intentID, "intent-id", "", "gateway intent id of the order")
	cmd.Flags().StringVar(&paymentID, "payment-id", "", "gateway payment id, for orders not yet marked paid")
	return cmd
}

func printOutcome(w io.Writer, o commands.Outcome) {
	fmt.Fprintf(w, "order:             %s\n", o.OrderID)
	fmt.Fprintf(w, "already processed: %t\n", o.AlreadyProcessed)
	fmt.Fprintf(w, "transitioned:      %t\n", o.Transitioned)
	fmt.Fprintf(w, "invoice:           %s\n", o.Invoice)
	fmt.Fprintf(w, "notification:      %s\n", o.Notification)
}
