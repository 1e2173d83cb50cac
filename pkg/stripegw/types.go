package stripegw

// Customer is the slice of a provider customer the gateway exposes.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Subscription is the slice of a provider subscription the gateway exposes.
// CurrentPeriodEnd is a unix timestamp.
type Subscription struct {
	ID                string `json:"id"`
	CustomerID        string `json:"customerId"`
	PriceID           string `json:"priceId"`
	Status            string `json:"status"`
	CurrentPeriodEnd  int64  `json:"currentPeriodEnd"`
	CancelAtPeriodEnd bool   `json:"cancelAtPeriodEnd"`
}

// PaymentIntent is the slice of a provider payment intent the gateway
// exposes. ClientSecret is handed to the frontend for confirmation.
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}
