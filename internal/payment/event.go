package payment

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// EventCheckoutApproved is the only event type that triggers order
// finalization.
const EventCheckoutApproved = "CHECKOUT.ORDER.APPROVED"

// WebhookEvent is the provider's event envelope.
type WebhookEvent struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Resource  json.RawMessage `json:"resource"`
}

// OrderEventResource extracts the order fields finalization needs from a
// webhook event's resource.
func (e WebhookEvent) OrderEventResource() (*OrderResource, error) {
	var res orderResource
	if err := json.Unmarshal(e.Resource, &res); err != nil {
		return nil, fmt.Errorf("unmarshal event resource: %w", err)
	}

	out := &OrderResource{
		PaymentOrderID: res.ID,
		Status:         res.Status,
	}
	if len(res.PurchaseUnits) > 0 {
		pu := res.PurchaseUnits[0]
		out.CustomID = pu.CustomID
		out.Amount = pu.Amount.Float()
		out.ShippingAddress = pu.Shipping.FullAddress()
	}

	return out, nil
}

// OrderResource is the flattened view of a provider order embedded in an
// event.
type OrderResource struct {
	PaymentOrderID  string
	Status          string
	CustomID        string
	Amount          float64
	ShippingAddress string
}

type orderResource struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

type purchaseUnit struct {
	CustomID string      `json:"custom_id"`
	Amount   amountValue `json:"amount"`
	Payments struct {
		Captures []struct {
			Amount amountValue `json:"amount"`
		} `json:"captures"`
	} `json:"payments"`
	Shipping shipping `json:"shipping"`
}

type amountValue struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

func (a amountValue) Float() float64 {
	f, err := strconv.ParseFloat(a.Value, 64)
	if err != nil {
		return 0
	}
	return f
}

type shipping struct {
	Address struct {
		AddressLine1 string `json:"address_line_1"`
		AddressLine2 string `json:"address_line_2"`
		AdminArea2   string `json:"admin_area_2"`
		AdminArea1   string `json:"admin_area_1"`
		PostalCode   string `json:"postal_code"`
		CountryCode  string `json:"country_code"`
	} `json:"address"`
}

func (s shipping) FullAddress() string {
	parts := []string{
		s.Address.AddressLine1,
		s.Address.AddressLine2,
		s.Address.AdminArea2,
		s.Address.AdminArea1,
		s.Address.PostalCode,
		s.Address.CountryCode,
	}
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ", ")
}
