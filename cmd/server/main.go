// Package main is the entry point for the storefront payments service.
// It wires together all modules and exposes the HTTP server and the
// operator reconcile command.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront payment confirmation and fulfillment",
		Long: `storefront creates priced payment intents, reconciles confirmed payments
into paid orders, and issues the invoice and notification emails for them.

Configuration is read from --config (YAML) and STOREFRONT_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newReconcileCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
