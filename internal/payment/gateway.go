package payment

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// GatewayOrder is the gateway's record of an intent to pay.
type GatewayOrder struct {
	ID          string
	AmountMinor int64
	Currency    string
}

// OrderCreator creates payment orders with the external gateway. The SDK
// client implements it in production; tests inject a fake.
type OrderCreator interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]any) (*GatewayOrder, error)
}

// gatewayTimeoutSeconds bounds the order-creation round trip so a hung
// gateway surfaces as an error instead of an indefinite wait.
const gatewayTimeoutSeconds = 10

// RazorpayGateway wraps the Razorpay SDK client.
type RazorpayGateway struct {
	client *razorpay.Client
}

// NewRazorpayGateway constructs a gateway client from the key pair.
func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	client := razorpay.NewClient(keyID, keySecret)
	client.SetTimeout(gatewayTimeoutSeconds)
	return &RazorpayGateway{client: client}
}

// CreateOrder creates an order with the gateway. The SDK does not take a
// context; cancellation is bounded by the client timeout.
func (g *RazorpayGateway) CreateOrder(_ context.Context, amountMinor int64, currency, receipt string, notes map[string]any) (*GatewayOrder, error) {
	if g == nil || g.client == nil {
		return nil, fmt.Errorf("payment: gateway not initialized")
	}

	data := map[string]any{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}
	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("payment: gateway order create: %w", err)
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("payment: gateway order response missing id")
	}
	order := &GatewayOrder{ID: id, AmountMinor: amountMinor, Currency: currency}
	if amount, ok := body["amount"].(float64); ok {
		order.AmountMinor = int64(amount)
	}
	if cur, ok := body["currency"].(string); ok && cur != "" {
		order.Currency = cur
	}
	return order, nil
}
