package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"bnpl-gateway/internal/model"
	"bnpl-gateway/internal/schedule"
)

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the gateway is serving",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(cmd, opts)
			var resp struct {
				Status string `json:"status"`
			}
			if err := c.do(cmd.Context(), http.MethodGet, "/health", nil, &resp); err != nil {
				return err
			}
			if c.quiet {
				c.printValue("%s", resp.Status)
				return nil
			}
			c.printSuccess("gateway %s at %s", resp.Status, c.baseURL)
			return nil
		},
	}
}

// limitsView mirrors GET /limits.
type limitsView struct {
	Enabled   bool   `json:"enabled"`
	Available bool   `json:"available"`
	Minimum   string `json:"minimum"`
	Maximum   string `json:"maximum"`
	Currency  string `json:"currency"`
}

func (c *apiClient) printLimits(l limitsView) {
	if c.quiet {
		c.printValue("%s %s %s", l.Minimum, l.Maximum, l.Currency)
		return
	}
	if !l.Enabled {
		c.printWarning("payment method is disabled")
	}
	if !l.Available {
		c.printWarning("limits are unavailable; check provider credentials")
	}
	c.printField("minimum", l.Minimum)
	c.printField("maximum", l.Maximum)
	c.printField("currency", l.Currency)
}

func newLimitsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "limits",
		Short: "Show the cached payment limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(cmd, opts)
			var resp limitsView
			if err := c.do(cmd.Context(), http.MethodGet, "/limits", nil, &resp); err != nil {
				return err
			}
			c.printLimits(resp)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Refetch limits from the provider now (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(cmd, opts)
			var resp limitsView
			if err := c.do(cmd.Context(), http.MethodPost, "/limits/refresh", nil, &resp); err != nil {
				return err
			}
			c.printSuccess("limits refreshed")
			c.printLimits(resp)
			return nil
		},
	})
	return cmd
}

func newScheduleCmd(opts *options) *cobra.Command {
	var (
		installments int
		currency     string
	)
	cmd := &cobra.Command{
		Use:   "schedule <amount>",
		Short: "Show the installment schedule for an amount",
		Long: `Show how an amount splits into installments. The remainder of an uneven
split is added to the last installment.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := decimal.NewFromString(args[0]); err != nil {
				return fmt.Errorf("invalid amount %q", args[0])
			}
			q := url.Values{"amount": {args[0]}}
			if installments != 0 {
				q.Set("installments", strconv.Itoa(installments))
			}
			if currency != "" {
				q.Set("currency", strings.ToUpper(currency))
			}

			c := newClient(cmd, opts)
			var resp struct {
				Total        model.Money            `json:"total"`
				Installments []schedule.Installment `json:"installments"`
				WithinLimits bool                   `json:"within_limits"`
			}
			if err := c.do(cmd.Context(), http.MethodGet, "/schedule?"+q.Encode(), nil, &resp); err != nil {
				return err
			}

			if c.quiet {
				for _, inst := range resp.Installments {
					c.printValue("%s", model.FormatAmount(inst.Amount.Amount))
				}
				return nil
			}
			c.printField("total", resp.Total.String())
			for _, inst := range resp.Installments {
				c.printField(fmt.Sprintf("installment %d", inst.Number), inst.Amount.String())
			}
			if !resp.WithinLimits {
				c.printWarning("amount is outside the payment limits")
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&installments, "installments", "n", 0, "Number of installments (default 4)")
	cmd.Flags().StringVar(&currency, "currency", "", "Currency code (default: limits currency)")
	return cmd
}

func newRefundCmd(opts *options) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "refund <order-id> <amount>",
		Short: "Refund part or all of a captured order (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, amount := args[0], args[1]
			if _, err := decimal.NewFromString(amount); err != nil {
				return fmt.Errorf("invalid amount %q", amount)
			}

			c := newClient(cmd, opts)
			body := map[string]string{"amount": amount, "reason": reason}
			var resp model.Refund
			if err := c.do(cmd.Context(), http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/refunds", body, &resp); err != nil {
				return err
			}
			if c.quiet {
				c.printValue("%t", resp.Succeeded)
				return nil
			}
			c.printSuccess("refunded %s on order %s", resp.Amount.String(), resp.OrderID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Refund reason recorded on the order")
	return cmd
}

func newFlowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "flow <token>",
		Short: "Show the recorded progress of a capture flow (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(cmd, opts)
			var rec model.FlowRecord
			if err := c.do(cmd.Context(), http.MethodGet, "/flows/"+url.PathEscape(args[0]), nil, &rec); err != nil {
				return err
			}
			if c.quiet {
				c.printValue("%s", rec.State)
				return nil
			}
			c.printField("token", rec.Token)
			c.printField("path", string(rec.Path))
			c.printField("state", string(rec.State))
			if rec.OrderID != "" {
				c.printField("order", rec.OrderID)
			}
			if rec.TransactionRef != "" {
				c.printField("transaction", rec.TransactionRef)
			}
			if rec.FailureKind != "" {
				c.printWarning("%s: %s", rec.FailureKind, rec.FailureMessage)
			}
			c.printField("updated", rec.UpdatedAt.Format(time.RFC3339))
			return nil
		},
	}
}
