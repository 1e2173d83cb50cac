package stripegw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	stripe "github.com/stripe/stripe-go/v82"

	"github.com/brightloom/billing_api/internal/models"
)

func TestRawPriceCarriesProductIDString(t *testing.T) {
	// List calls return the product reference as an unexpanded struct; only
	// the identifier must survive conversion.
	price := &stripe.Price{
		ID:         "price_1",
		Active:     true,
		UnitAmount: 900,
		Currency:   stripe.CurrencyUSD,
		Product:    &stripe.Product{ID: "prod_1"},
		Recurring: &stripe.PriceRecurring{
			Interval:      stripe.PriceRecurringIntervalMonth,
			IntervalCount: 1,
		},
	}

	raw := rawPrice(price)
	assert.Equal(t, "prod_1", raw.ProductID)
	assert.Equal(t, int64(900), raw.UnitAmount)
	assert.Equal(t, "usd", raw.Currency)
	assert.Equal(t, &models.Recurring{Interval: "month", IntervalCount: 1}, raw.Recurring)
}

func TestRawPriceOneTime(t *testing.T) {
	raw := rawPrice(&stripe.Price{
		ID:         "price_once",
		UnitAmount: 25000,
		Currency:   stripe.CurrencyUSD,
		Product:    &stripe.Product{ID: "prod_1"},
	})
	assert.Nil(t, raw.Recurring)
}

func TestRawPriceNilProduct(t *testing.T) {
	raw := rawPrice(&stripe.Price{ID: "price_orphan"})
	assert.Empty(t, raw.ProductID)
}

func TestRawProductCopiesMetadata(t *testing.T) {
	src := &stripe.Product{
		ID:       "prod_1",
		Name:     "Starter",
		Active:   true,
		Metadata: map[string]string{"plan_id": "starter"},
	}

	raw := rawProduct(src)
	raw.Metadata["plan_id"] = "mutated"
	assert.Equal(t, "starter", src.Metadata["plan_id"])
}

func TestSubscriptionConversion(t *testing.T) {
	sub := subscription(&stripe.Subscription{
		ID:                "sub_1",
		Status:            stripe.SubscriptionStatusActive,
		CancelAtPeriodEnd: true,
		Customer:          &stripe.Customer{ID: "cus_1"},
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{
					CurrentPeriodEnd: 1767225600,
					Price:            &stripe.Price{ID: "price_m"},
				},
			},
		},
	})

	assert.Equal(t, "sub_1", sub.ID)
	assert.Equal(t, "cus_1", sub.CustomerID)
	assert.Equal(t, "price_m", sub.PriceID)
	assert.Equal(t, "active", sub.Status)
	assert.Equal(t, int64(1767225600), sub.CurrentPeriodEnd)
	assert.True(t, sub.CancelAtPeriodEnd)
}

func TestSubscriptionConversionEmptyItems(t *testing.T) {
	sub := subscription(&stripe.Subscription{ID: "sub_bare"})
	assert.Zero(t, sub.CurrentPeriodEnd)
	assert.Empty(t, sub.PriceID)
}
