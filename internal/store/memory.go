package store

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bnpl-gateway/internal/model"
)

// Memory is an in-process Store for development and tests.
type Memory struct {
	mu         sync.Mutex
	carts      map[string]*model.CartSnapshot
	addresses  map[string]model.Address
	orders     map[string]*model.LocalOrder
	orderCarts map[string]*model.CartSnapshot
	nextID     int
	now        func() time.Time
}

// NewMemory returns an empty store. Order ids start at 1001.
func NewMemory() *Memory {
	return &Memory{
		carts:      make(map[string]*model.CartSnapshot),
		addresses:  make(map[string]model.Address),
		orders:     make(map[string]*model.LocalOrder),
		orderCarts: make(map[string]*model.CartSnapshot),
		nextID:     1001,
		now:        time.Now,
	}
}

// PutCart stores a cart under token. A zero total is computed as item lines
// minus discounts plus the selected shipping cost.
func (m *Memory) PutCart(token string, cart model.CartSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := cloneCart(&cart)
	c.Subtotal = subtotal(c)
	if c.Total.Amount.IsZero() {
		c.Total = computeTotal(c)
	}
	m.carts[token] = c
}

// UpdateCart applies fn to the stored cart. fn owns the total.
func (m *Memory) UpdateCart(token string, fn func(*model.CartSnapshot)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[token]
	if !ok {
		return model.NewNotFoundError("cart")
	}
	fn(c)
	c.Subtotal = subtotal(c)
	return nil
}

// PutOrder stores a local order and the snapshot it was created from.
func (m *Memory) PutOrder(order model.LocalOrder, snapshot model.CartSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := order
	o.Notes = slices.Clone(order.Notes)
	m.orders[o.ID] = &o
	m.orderCarts[o.ID] = cloneCart(&snapshot)
}

func (m *Memory) CurrentCart(_ context.Context, cartToken string) (*model.CartSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[cartToken]
	if !ok {
		return nil, model.NewNotFoundError("cart")
	}
	return cloneCart(c), nil
}

func (m *Memory) SetShippingAddress(_ context.Context, cartToken string, addr model.Address) (*model.CartSnapshot, error) {
	if addr.Country == "" {
		return nil, model.NewValidationError("countryCode", "required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[cartToken]
	if !ok {
		return nil, model.NewNotFoundError("cart")
	}
	m.addresses[cartToken] = addr
	return cloneCart(c), nil
}

func (m *Memory) SelectShipping(_ context.Context, cartToken, optionID string) (*model.CartSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[cartToken]
	if !ok {
		return nil, model.NewNotFoundError("cart")
	}
	if !slices.ContainsFunc(c.ShippingOptions, func(o model.ShippingOption) bool { return o.ID == optionID }) {
		return nil, model.NewValidationError("shipping", fmt.Sprintf("unknown option %q", optionID))
	}
	prev := shippingCost(c)
	c.ShippingOptionID = optionID
	c.Total.Amount = c.Total.Amount.Sub(prev).Add(shippingCost(c))
	return cloneCart(c), nil
}

func (m *Memory) CreateOrder(_ context.Context, cartToken string, req OrderRequest) (*model.LocalOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[cartToken]
	if !ok {
		return nil, model.NewNotFoundError("cart")
	}
	if c.IsEmpty() {
		return nil, model.NewValidationError("cart", "is empty")
	}

	id := strconv.Itoa(m.nextID)
	m.nextID++

	email := c.BillingEmail
	if email == "" {
		email = req.BillingEmail
	}
	o := &model.LocalOrder{
		ID:            id,
		Number:        id,
		Amount:        c.Total,
		Status:        model.PaymentPending,
		PaymentMethod: req.PaymentMethod,
		BillingEmail:  email,
		Refunded:      model.Money{Amount: decimal.Zero, Currency: c.Currency()},
	}
	m.orders[id] = o
	m.orderCarts[id] = cloneCart(c)
	return cloneOrder(o), nil
}

func (m *Memory) GetOrder(_ context.Context, orderID string) (*model.LocalOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, err := m.order(orderID)
	if err != nil {
		return nil, err
	}
	return cloneOrder(o), nil
}

func (m *Memory) OrderSnapshot(_ context.Context, orderID string) (*model.CartSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, err := m.order(orderID)
	if err != nil {
		return nil, err
	}
	return cloneCart(m.orderCarts[o.ID]), nil
}

func (m *Memory) SetProviderToken(_ context.Context, orderID, token string) error {
	return m.mutate(orderID, func(o *model.LocalOrder) error {
		o.ProviderToken = token
		return nil
	})
}

func (m *Memory) AddNote(_ context.Context, orderID, note string) error {
	return m.mutate(orderID, func(o *model.LocalOrder) error {
		m.note(o, note)
		return nil
	})
}

func (m *Memory) MarkPaid(_ context.Context, orderID, transactionRef, note string) error {
	return m.mutate(orderID, func(o *model.LocalOrder) error {
		if o.IsPaid() {
			return fmt.Errorf("order %s: %w", o.ID, ErrAlreadyPaid)
		}
		o.Status = model.PaymentPaid
		o.TransactionRef = transactionRef
		m.note(o, note)
		return nil
	})
}

func (m *Memory) MarkFailed(_ context.Context, orderID, note string) error {
	return m.mutate(orderID, func(o *model.LocalOrder) error {
		o.Status = model.PaymentFailed
		m.note(o, note)
		return nil
	})
}

func (m *Memory) RecordRefund(_ context.Context, orderID string, amount model.Money, note string) error {
	return m.mutate(orderID, func(o *model.LocalOrder) error {
		o.Refunded = model.Money{Amount: o.Refunded.Amount.Add(amount.Amount), Currency: o.Amount.Currency}
		if !o.RefundableAmount().IsPositive() {
			o.Status = model.PaymentRefunded
		}
		m.note(o, note)
		return nil
	})
}

// order looks up by id, then by display number. Caller holds mu.
func (m *Memory) order(ref string) (*model.LocalOrder, error) {
	if o, ok := m.orders[ref]; ok {
		return o, nil
	}
	for _, o := range m.orders {
		if o.Number == ref {
			return o, nil
		}
	}
	return nil, model.NewNotFoundError("order")
}

func (m *Memory) mutate(orderID string, fn func(*model.LocalOrder) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, err := m.order(orderID)
	if err != nil {
		return err
	}
	return fn(o)
}

func (m *Memory) note(o *model.LocalOrder, text string) {
	if text == "" {
		return
	}
	o.Notes = append(o.Notes, model.Note{At: m.now(), Text: text})
}

func currencyOf(c *model.CartSnapshot) string {
	if c.Total.Currency != "" {
		return c.Total.Currency
	}
	if len(c.Items) > 0 {
		return c.Items[0].Price.Currency
	}
	return ""
}

func subtotal(c *model.CartSnapshot) model.Money {
	sum := decimal.Zero
	for _, item := range c.Items {
		sum = sum.Add(item.Price.Amount.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return model.Money{Amount: sum, Currency: currencyOf(c)}
}

func shippingCost(c *model.CartSnapshot) decimal.Decimal {
	for _, opt := range c.ShippingOptions {
		if opt.ID == c.ShippingOptionID {
			return opt.Cost.Amount
		}
	}
	return decimal.Zero
}

func computeTotal(c *model.CartSnapshot) model.Money {
	total := subtotal(c).Amount
	for _, d := range c.Discounts {
		total = total.Sub(d.Amount.Amount)
	}
	return model.Money{Amount: total.Add(shippingCost(c)), Currency: currencyOf(c)}
}

func cloneCart(c *model.CartSnapshot) *model.CartSnapshot {
	if c == nil {
		return nil
	}
	out := *c
	out.Items = slices.Clone(c.Items)
	out.Discounts = slices.Clone(c.Discounts)
	out.ShippingOptions = slices.Clone(c.ShippingOptions)
	return &out
}

func cloneOrder(o *model.LocalOrder) *model.LocalOrder {
	out := *o
	out.Notes = slices.Clone(o.Notes)
	return &out
}

var _ Store = (*Memory)(nil)
