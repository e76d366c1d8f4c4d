// MCP transport for merchant tooling using the official MCP Go SDK.
// Exposes read-mostly payment operations as MCP tools.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/shopspring/decimal"

	"bnpl-gateway/internal/model"
)

// === MCP Tool Input/Output Types ===

// ScheduleInput is the input schema for the payment_schedule tool.
type ScheduleInput struct {
	Amount       string `json:"amount" jsonschema:"order total as a decimal string, e.g. 120.00"`
	Currency     string `json:"currency,omitempty" jsonschema:"ISO 4217 currency; defaults to the limits currency"`
	Installments int    `json:"installments,omitempty" jsonschema:"number of installments; defaults to 4"`
}

// LimitsInput is the input schema for the check_limits tool.
type LimitsInput struct {
	Amount   string `json:"amount,omitempty" jsonschema:"optional amount to check against the limits"`
	Currency string `json:"currency,omitempty" jsonschema:"ISO 4217 currency of amount"`
}

// ScheduleOutput is the payment_schedule result. Amounts are two-decimal
// strings in Currency.
type ScheduleOutput struct {
	Total        string   `json:"total"`
	Currency     string   `json:"currency"`
	Installments []string `json:"installments"`
	WithinLimits bool     `json:"within_limits"`
}

// LimitsOutput is the check_limits result.
type LimitsOutput struct {
	Enabled      bool   `json:"enabled"`
	Available    bool   `json:"available"`
	Minimum      string `json:"minimum"`
	Maximum      string `json:"maximum"`
	Currency     string `json:"currency,omitempty"`
	WithinLimits *bool  `json:"within_limits,omitempty"`
}

// RefundOutput is the refund_order result.
type RefundOutput struct {
	OrderID   string `json:"order_id"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Succeeded bool   `json:"succeeded"`
}

// FlowOutput is the get_flow result.
type FlowOutput struct {
	Token          string `json:"token"`
	Path           string `json:"path"`
	State          string `json:"state"`
	OrderID        string `json:"order_id,omitempty"`
	TransactionRef string `json:"transaction_ref,omitempty"`
	FailureKind    string `json:"failure_kind,omitempty"`
	FailureMessage string `json:"failure_message,omitempty"`
	UpdatedAt      string `json:"updated_at"`
}

// RefundInput is the input schema for the refund_order tool.
type RefundInput struct {
	OrderID string `json:"order_id" jsonschema:"local order id"`
	Amount  string `json:"amount" jsonschema:"amount to refund as a decimal string"`
	Reason  string `json:"reason,omitempty" jsonschema:"reason recorded on the order"`
}

// FlowInput is the input schema for the get_flow tool.
type FlowInput struct {
	Token string `json:"token" jsonschema:"provider order token"`
}

// NewMCPServer creates an MCP server with the payment tools registered.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "bnpl-gateway",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Installment payment gateway. Use these tools to quote payment " +
				"schedules, inspect limits and capture flows, and refund captured orders.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "payment_schedule",
		Description: "Split an amount into installments and report whether it is within the payment limits.",
	}, h.mcpSchedule)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_limits",
		Description: "Show the cached payment limits, optionally checking an amount against them.",
	}, h.mcpCheckLimits)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "refund_order",
		Description: "Refund part or all of a captured order through the payment provider.",
	}, h.mcpRefund)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_flow",
		Description: "Get the recorded progress of a capture flow by provider token.",
	}, h.mcpGetFlow)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpSchedule(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ScheduleInput,
) (*mcp.CallToolResult, *ScheduleOutput, error) {
	resp, err := quote(h.settings.Load(), input.Amount, input.Currency, input.Installments)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	out := &ScheduleOutput{
		Total:        model.FormatAmount(resp.Total.Amount),
		Currency:     resp.Total.Currency,
		Installments: make([]string, len(resp.Installments)),
		WithinLimits: resp.WithinLimits,
	}
	for i, inst := range resp.Installments {
		out.Installments[i] = model.FormatAmount(inst.Amount.Amount)
	}
	return nil, out, nil
}

func (h *Handler) mcpCheckLimits(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input LimitsInput,
) (*mcp.CallToolResult, *LimitsOutput, error) {
	settings := h.settings.Load()
	l := newLimitsResponse(settings)
	out := &LimitsOutput{
		Enabled:   l.Enabled,
		Available: l.Available,
		Minimum:   l.Minimum,
		Maximum:   l.Maximum,
		Currency:  l.Currency,
	}
	if input.Amount == "" {
		return nil, out, nil
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(input.Amount))
	if err != nil {
		return nil, nil, h.mcpError(model.NewInvalidArgumentError("amount", "must be a decimal number"))
	}
	currency := input.Currency
	if currency == "" {
		currency = settings.Limits.Currency
	}
	within := withinLimits(settings, model.Money{Amount: amount, Currency: strings.ToUpper(currency)})
	out.WithinLimits = &within
	return nil, out, nil
}

func (h *Handler) mcpRefund(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input RefundInput,
) (*mcp.CallToolResult, *RefundOutput, error) {
	if input.OrderID == "" {
		return nil, nil, fmt.Errorf("order_id is required")
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(input.Amount))
	if err != nil {
		return nil, nil, h.mcpError(model.NewInvalidArgumentError("amount", "must be a decimal number"))
	}

	refund, err := h.payments.Refund(ctx, input.OrderID, amount, input.Reason)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, &RefundOutput{
		OrderID:   refund.OrderID,
		Amount:    model.FormatAmount(refund.Amount.Amount),
		Currency:  refund.Amount.Currency,
		Succeeded: refund.Succeeded,
	}, nil
}

func (h *Handler) mcpGetFlow(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input FlowInput,
) (*mcp.CallToolResult, *FlowOutput, error) {
	if input.Token == "" {
		return nil, nil, fmt.Errorf("token is required")
	}
	rec, err := h.payments.Flow(ctx, input.Token)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, &FlowOutput{
		Token:          rec.Token,
		Path:           string(rec.Path),
		State:          string(rec.State),
		OrderID:        rec.OrderID,
		TransactionRef: rec.TransactionRef,
		FailureKind:    string(rec.FailureKind),
		FailureMessage: rec.FailureMessage,
		UpdatedAt:      rec.UpdatedAt.UTC().Format(time.RFC3339),
	}, nil
}

// mcpError converts orchestrator errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
