package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a catalog entry as seen by the cart.
type Item struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Tags      []string        `json:"tags,omitempty"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"createdAt"`
}

// HasTag reports whether the item is labelled with tag.
func (i Item) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
