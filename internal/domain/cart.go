package domain

import "github.com/shopspring/decimal"

type LineItem struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Image               string          `json:"image,omitempty"`
	Tags                []string        `json:"tags,omitempty"`
	UnitPrice           decimal.Decimal `json:"unitPrice"`
	Quantity            int             `json:"quantity"`
	BaseAmount          decimal.Decimal `json:"baseAmount"`
	Discount            decimal.Decimal `json:"discount"`
	DiscountType        RuleKind        `json:"discountType"`
	DiscountedUnitPrice decimal.Decimal `json:"discountedUnitPrice"`
	FinalAmount         decimal.Decimal `json:"finalAmount"`
	IsGift              bool            `json:"isGift,omitempty"`
	// GiftQuantity is the part of Quantity granted by gift rules. The rest
	// was put in the cart by the customer.
	GiftQuantity        int             `json:"giftQuantity,omitempty"`
}

type Totals struct {
	BaseAmount  decimal.Decimal `json:"baseAmount"`
	FinalAmount decimal.Decimal `json:"finalAmount"`
	Discount    decimal.Decimal `json:"discount"`
	GrandTotal  decimal.Decimal `json:"grandTotal"`
}

// CartState is the per-session cart value persisted between requests.
type CartState struct {
	Items        []LineItem                 `json:"items"`
	SuggestQueue []string                   `json:"suggestQueue"`
	// Suggested lists suggestions already handed out; they are not queued again.
	Suggested    []string                   `json:"suggested,omitempty"`
	AuxCharges   map[string]decimal.Decimal `json:"auxCharges"`
	Totals       Totals                     `json:"totals"`
	Stale        bool                       `json:"stale"`
	PromoCode    string                     `json:"promoCode,omitempty"`
}

func NewCartState() *CartState {
	return &CartState{
		Items:        []LineItem{},
		SuggestQueue: []string{},
		AuxCharges:   map[string]decimal.Decimal{},
	}
}
