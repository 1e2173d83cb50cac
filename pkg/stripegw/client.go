package stripegw

import (
	"context"
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/brightloom/billing_api/internal/models"
)

// listPageSize is the page size for catalog list calls.
const listPageSize = 100

// Config holds credentials for the Stripe client.
type Config struct {
	APIKey string
}

// Client wraps the Stripe SDK with the operations this service needs. All
// methods accept a context and rely on the SDK's own timeout and retry
// behavior for the underlying HTTP calls.
type Client struct {
	api *client.API
}

// NewClient constructs a new Stripe client. The key is scoped to this client
// instance; no global SDK state is touched.
func NewClient(cfg Config) *Client {
	api := &client.API{}
	api.Init(cfg.APIKey, nil)
	return &Client{api: api}
}

// ListActiveProducts returns all active (non-archived) products, paginating
// through the full list.
func (c *Client) ListActiveProducts(ctx context.Context) ([]models.RawProduct, error) {
	params := &stripe.ProductListParams{Active: stripe.Bool(true)}
	params.Context = ctx
	params.Limit = stripe.Int64(listPageSize)

	var out []models.RawProduct
	iter := c.api.Products.List(params)
	for iter.Next() {
		out = append(out, rawProduct(iter.Product()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

// ListActivePrices returns all active prices, paginating through the full list.
func (c *Client) ListActivePrices(ctx context.Context) ([]models.RawPrice, error) {
	params := &stripe.PriceListParams{Active: stripe.Bool(true)}
	params.Context = ctx
	params.Limit = stripe.Int64(listPageSize)

	var out []models.RawPrice
	iter := c.api.Prices.List(params)
	for iter.Next() {
		out = append(out, rawPrice(iter.Price()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	return out, nil
}

// CreateCustomer creates a provider customer.
func (c *Client) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (*Customer, error) {
	params := &stripe.CustomerParams{
		Email:    stripe.String(email),
		Metadata: metadata,
	}
	params.Context = ctx
	if name != "" {
		params.Name = stripe.String(name)
	}
	cust, err := c.api.Customers.New(params)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return &Customer{ID: cust.ID, Email: cust.Email}, nil
}

// CreateSubscription subscribes a customer to a recurring price.
func (c *Client) CreateSubscription(ctx context.Context, customerID, priceID string, metadata map[string]string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		Metadata: metadata,
	}
	params.Context = ctx
	sub, err := c.api.Subscriptions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	return subscription(sub), nil
}

// GetSubscription retrieves a subscription by ID.
func (c *Client) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := c.api.Subscriptions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return subscription(sub), nil
}

// CancelSubscription cancels a subscription immediately.
func (c *Client) CancelSubscription(ctx context.Context, id string) (*Subscription, error) {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	sub, err := c.api.Subscriptions.Cancel(id, params)
	if err != nil {
		return nil, fmt.Errorf("cancel subscription: %w", err)
	}
	return subscription(sub), nil
}

// CreatePaymentIntent creates a payment intent for a one-time price.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount int64, currency, customerID string, metadata map[string]string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		Metadata: metadata,
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	}
	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

// rawProduct converts an SDK product into the transient form the organizer
// consumes. Metadata is copied so the raw slice does not alias SDK state.
func rawProduct(p *stripe.Product) models.RawProduct {
	meta := make(map[string]string, len(p.Metadata))
	for k, v := range p.Metadata {
		meta[k] = v
	}
	return models.RawProduct{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Active:      p.Active,
		Metadata:    meta,
	}
}

// rawPrice converts an SDK price into the transient form the organizer
// consumes. The SDK models the product reference as a struct whether or not
// the list call expanded it; only the identifier string is carried over, so
// downstream product matching is always plain string equality.
func rawPrice(p *stripe.Price) models.RawPrice {
	raw := models.RawPrice{
		ID:         p.ID,
		Active:     p.Active,
		UnitAmount: p.UnitAmount,
		Currency:   string(p.Currency),
	}
	if p.Product != nil {
		raw.ProductID = p.Product.ID
	}
	if p.Recurring != nil {
		raw.Recurring = &models.Recurring{
			Interval:      string(p.Recurring.Interval),
			IntervalCount: p.Recurring.IntervalCount,
		}
	}
	return raw
}

// subscription converts an SDK subscription. The current period end lives on
// the subscription item in the API version this SDK pins.
func subscription(s *stripe.Subscription) *Subscription {
	out := &Subscription{
		ID:                s.ID,
		Status:            string(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Items != nil && len(s.Items.Data) > 0 {
		item := s.Items.Data[0]
		out.CurrentPeriodEnd = item.CurrentPeriodEnd
		if item.Price != nil {
			out.PriceID = item.Price.ID
		}
	}
	return out
}
