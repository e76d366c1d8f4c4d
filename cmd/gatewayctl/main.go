// gatewayctl is an operator CLI for the BNPL gateway.
// Each command performs a single operation, making it composable for scripts.
//
// Examples:
//
//	gatewayctl health
//	gatewayctl limits
//	gatewayctl schedule 150.00 --installments 4
//	gatewayctl refund 1001 25.00 --reason "damaged item"
//	gatewayctl flow 002.abc123 -q
//	gatewayctl limits refresh
//
// Merchant operations need the gateway's admin token in --token or
// BNPL_ADMIN_TOKEN.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// options are the global flags shared by every command.
type options struct {
	gatewayURL string
	token      string
	timeout    time.Duration
	quiet      bool
	verbose    bool
	noColor    bool
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:               "gatewayctl",
		Short:             "Operator CLI for the BNPL gateway",
		Long:              `A CLI for merchant operations against a running BNPL gateway: installment quotes, payment limits, refunds and capture flow lookup.`,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Version:           "1.0.0",
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.gatewayURL, "gateway", envOrDefault("BNPL_GATEWAY_URL", "http://localhost:8080"), "Gateway base URL")
	flags.StringVar(&opts.token, "token", os.Getenv("BNPL_ADMIN_TOKEN"), "Admin token for merchant operations")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Request timeout")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Print only the essential value")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Show full request and response bodies")
	flags.BoolVar(&opts.noColor, "no-color", os.Getenv("NO_COLOR") != "", "Disable colored output")

	rootCmd.AddCommand(
		newHealthCmd(opts),
		newLimitsCmd(opts),
		newScheduleCmd(opts),
		newRefundCmd(opts),
		newFlowCmd(opts),
	)
	return rootCmd
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
