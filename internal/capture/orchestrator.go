// Package capture drives a payment from provider order creation through
// capture and finalizes the local order exactly once.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bnpl-gateway/internal/flowstore"
	"bnpl-gateway/internal/lock"
	"bnpl-gateway/internal/merchant"
	"bnpl-gateway/internal/model"
	"bnpl-gateway/internal/provider"
	"bnpl-gateway/internal/returnstate"
	"bnpl-gateway/internal/store"
)

// Provider is the subset of the provider client the orchestrator drives.
type Provider interface {
	CreateOrder(ctx context.Context, cart *model.CartSnapshot, req provider.CreateOrderRequest) (*provider.OrderToken, error)
	GetOrderByToken(ctx context.Context, token string) (*model.RemoteOrder, error)
	Capture(ctx context.Context, token, merchantRef string, amount *model.Money) (*model.RemoteOrder, error)
	CreateRefund(ctx context.Context, req provider.RefundRequest) (bool, error)
}

var _ Provider = (*provider.Client)(nil)

// DefaultPaymentMethod identifies orders paid through this gateway.
const DefaultPaymentMethod = "bnpl"

// Config holds the shopper-facing URLs sent to the provider.
type Config struct {
	PaymentMethod string
	// ConfirmURL and CancelURL receive the shopper back from the hosted
	// checkout. The provider appends orderToken and status.
	ConfirmURL     string
	CancelURL      string
	PopupOriginURL string
}

// Deps are the orchestrator's collaborators. Signer may be nil, in which
// case return URLs carry no state.
type Deps struct {
	Provider Provider
	Store    store.Store
	Settings *merchant.Holder
	Flows    flowstore.Store
	Locks    lock.Locker
	Signer   *returnstate.Signer
}

// Orchestrator runs capture flows. It is safe for concurrent use.
type Orchestrator struct {
	cfg      Config
	provider Provider
	store    store.Store
	settings *merchant.Holder
	flows    flowstore.Store
	locks    lock.Locker
	signer   *returnstate.Signer
	logger   *slog.Logger
	now      func() time.Time
}

// New builds an orchestrator.
func New(cfg Config, deps Deps, logger *slog.Logger) *Orchestrator {
	if cfg.PaymentMethod == "" {
		cfg.PaymentMethod = DefaultPaymentMethod
	}
	return &Orchestrator{
		cfg:      cfg,
		provider: deps.Provider,
		store:    deps.Store,
		settings: deps.Settings,
		flows:    deps.Flows,
		locks:    deps.Locks,
		signer:   deps.Signer,
		logger:   logger,
		now:      time.Now,
	}
}

// Flow returns the recorded progress of the flow for token.
func (o *Orchestrator) Flow(ctx context.Context, token string) (*model.FlowRecord, error) {
	return o.flows.Get(ctx, token)
}

// checkReady verifies the gateway can quote amount at all.
func (o *Orchestrator) checkReady(amount model.Money) error {
	s := o.settings.Load()
	if !s.Enabled {
		return model.NewConfigurationError("payment method is disabled")
	}
	if _, err := s.ActiveCredentials(); err != nil {
		return err
	}
	if !merchant.CurrencySupported(amount.Currency) {
		return model.NewValidationError("currency", fmt.Sprintf("%s is not supported", amount.Currency))
	}
	if !s.Limits.Accepts(amount) {
		return model.NewOutsideLimitsError(amount)
	}
	return nil
}

// loadFlow returns the record for token, or a fresh record for a token
// created before records were kept.
func (o *Orchestrator) loadFlow(ctx context.Context, token string, path model.FlowPath) (*model.FlowRecord, error) {
	rec, err := o.flows.Get(ctx, token)
	if errors.Is(err, model.ErrNotFound) {
		return &model.FlowRecord{Token: token, Path: path, State: model.StateProviderOrderCreated}, nil
	}
	if err != nil {
		return nil, err
	}
	if rec.Path != path {
		return nil, model.NewValidationError("token", fmt.Sprintf("belongs to a %s checkout", rec.Path))
	}
	return rec, nil
}

func (o *Orchestrator) save(ctx context.Context, rec *model.FlowRecord) error {
	if rec.Token == "" {
		return nil
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = o.now()
	}
	if err := o.flows.Put(ctx, rec); err != nil {
		return fmt.Errorf("saving flow: %w", err)
	}
	return nil
}

// fail is the single place a flow failure is logged and recorded.
func (o *Orchestrator) fail(ctx context.Context, rec *model.FlowRecord, order *model.LocalOrder, err error) Outcome {
	out := o.report(rec, order, err)
	if rec.Token == "" || rec.State.IsTerminal() {
		return out
	}
	rec.State = model.StateFailed
	rec.FailureKind = out.Kind
	rec.FailureMessage = out.Description
	rec.UpdatedAt = o.now()
	if perr := o.flows.Put(context.WithoutCancel(ctx), rec); perr != nil {
		o.logger.Error("failed to record flow failure", "token", rec.Token, "error", perr)
	}
	return out
}

// reject turns away a request that may not act on the flow, such as a
// return with a bad state or another cart's token. The stored record is
// left untouched so the rightful shopper can still complete it.
func (o *Orchestrator) reject(rec *model.FlowRecord, order *model.LocalOrder, err error) Outcome {
	return o.report(rec, order, err)
}

// report logs a failed request and builds its outcome.
func (o *Orchestrator) report(rec *model.FlowRecord, order *model.LocalOrder, err error) Outcome {
	kind := model.KindOf(err)
	out := Outcome{
		State:       model.StateFailed,
		Kind:        kind,
		Description: describe(err),
		Redirect:    RedirectFor(kind, order != nil),
		Order:       order,
		Token:       rec.Token,
		Err:         err,
	}
	if rec.TransactionRef != "" {
		out.RemoteOrderID = rec.TransactionRef
	}

	attrs := []any{
		slog.String("path", string(rec.Path)),
		slog.String("state", string(rec.State)),
		slog.String("kind", string(kind)),
		slog.String("token", rec.Token),
		slog.String("order_id", rec.OrderID),
		slog.String("error", err.Error()),
	}
	switch kind {
	case model.KindDeclined:
		o.logger.Info("payment declined", attrs...)
	case model.KindIntegrity, model.KindInvalidRequest, model.KindOutsideLimits, model.KindNotFound:
		o.logger.Warn("payment flow rejected", attrs...)
	default:
		o.logger.Error("payment flow failed", attrs...)
	}
	return out
}

// replay reports a flow that already reached a terminal state without
// repeating any side effect.
func (o *Orchestrator) replay(ctx context.Context, rec *model.FlowRecord) Outcome {
	var order *model.LocalOrder
	if rec.OrderID != "" {
		order, _ = o.store.GetOrder(ctx, rec.OrderID)
	}
	if rec.State == model.StateCaptured {
		return o.succeeded(rec, order)
	}
	return Outcome{
		State:         model.StateFailed,
		Kind:          rec.FailureKind,
		Description:   rec.FailureMessage,
		Redirect:      RedirectFor(rec.FailureKind, order != nil),
		Order:         order,
		Token:         rec.Token,
		RemoteOrderID: rec.TransactionRef,
	}
}

func (o *Orchestrator) succeeded(rec *model.FlowRecord, order *model.LocalOrder) Outcome {
	return Outcome{
		State:         model.StateCaptured,
		Redirect:      RedirectOrderReceived,
		Order:         order,
		Token:         rec.Token,
		RemoteOrderID: rec.TransactionRef,
	}
}

// capture runs the final step under the order lock. A paid order is a
// no-op success; any outcome other than APPROVED or DECLINED fails the
// order and is never retried. A flow that already holds a transaction
// reference was captured before and only finalizes the local order.
func (o *Orchestrator) capture(ctx context.Context, rec *model.FlowRecord, orderID string, amount *model.Money) Outcome {
	release, err := o.locks.Acquire(ctx, "order:"+orderID)
	if err != nil {
		return o.fail(ctx, rec, nil, fmt.Errorf("locking order %s: %w", orderID, err))
	}
	defer release()

	order, err := o.store.GetOrder(ctx, orderID)
	if err != nil {
		return o.fail(ctx, rec, nil, err)
	}
	if order.IsPaid() {
		rec.TransactionRef = order.TransactionRef
		if err := o.finish(ctx, rec); err != nil {
			return o.fail(ctx, rec, order, err)
		}
		return o.succeeded(rec, order)
	}
	if rec.TransactionRef != "" {
		return o.finalize(ctx, rec, order, rec.TransactionRef)
	}

	result, err := o.provider.Capture(ctx, rec.Token, order.MerchantReference(), amount)
	if err != nil {
		o.markFailed(ctx, order.ID, "Payment failed: "+describe(err))
		return o.fail(ctx, rec, order, err)
	}
	rec.TransactionRef = result.ID

	if result.Status == model.RemoteStatusDeclined {
		o.markFailed(ctx, order.ID, fmt.Sprintf("Payment declined. Provider Order ID: %s.", result.ID))
		return o.fail(ctx, rec, order, model.NewDeclinedError(result.ID))
	}

	return o.finalize(ctx, rec, order, result.ID)
}

// finalize marks an approved order paid. When the store refuses, the flow
// stays at LOCAL_ORDER_CREATED with the transaction reference recorded, so
// the next completion retries only the local update.
func (o *Orchestrator) finalize(ctx context.Context, rec *model.FlowRecord, order *model.LocalOrder, ref string) Outcome {
	ctx = context.WithoutCancel(ctx)
	note := fmt.Sprintf("Payment approved. Provider Order ID: %s.", ref)
	err := o.store.MarkPaid(ctx, order.ID, ref, note)
	if err != nil && !errors.Is(err, store.ErrAlreadyPaid) {
		rec.UpdatedAt = o.now()
		if serr := o.save(ctx, rec); serr != nil {
			o.logger.Error("failed to record captured transaction", "token", rec.Token, "transaction_ref", ref, "error", serr)
		}
		if nerr := o.store.AddNote(ctx, order.ID, note+" The order could not be marked paid yet."); nerr != nil {
			o.logger.Warn("failed to add order note", "order_id", order.ID, "error", nerr)
		}
		return o.report(rec, order, fmt.Errorf("captured %s but could not mark order %s paid: %w", ref, order.ID, err))
	}
	if err := o.finish(ctx, rec); err != nil {
		o.logger.Error("failed to record captured flow", "token", rec.Token, "error", err)
	}

	if paid, err := o.store.GetOrder(ctx, order.ID); err == nil {
		order = paid
	}
	o.logger.Info("payment captured",
		slog.String("path", string(rec.Path)),
		slog.String("order_id", order.ID),
		slog.String("transaction_ref", ref))
	return o.succeeded(rec, order)
}

func (o *Orchestrator) finish(ctx context.Context, rec *model.FlowRecord) error {
	if err := o.advance(rec, model.StateCaptured); err != nil {
		return err
	}
	return o.save(context.WithoutCancel(ctx), rec)
}

func (o *Orchestrator) markFailed(ctx context.Context, orderID, note string) {
	if err := o.store.MarkFailed(context.WithoutCancel(ctx), orderID, note); err != nil {
		o.logger.Error("failed to mark order failed", "order_id", orderID, "error", err)
	}
}

// tokenNote is the audit line linking a local order to its provider token.
func tokenNote(token string) string {
	return "order token: " + token
}

func normalizeStatus(status string) string {
	return strings.ToUpper(strings.TrimSpace(status))
}
