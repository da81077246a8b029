package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrItemNotFound is returned when the catalog has no item with the requested id.
	ErrItemNotFound = errors.New("item not found in catalog")
	// ErrInvalidQuantity marks a bulk update entry whose quantity is not a non-negative integer.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrMisconfiguredGiftRule is returned when a gift rule carries no gift policy.
	ErrMisconfiguredGiftRule = errors.New("gift rule must set a gift policy")
	// ErrPromoCodeRejected is returned when no rule requires the submitted code.
	ErrPromoCodeRejected = errors.New("promo code rejected")
	// ErrInvalidAction covers malformed cart update actions.
	ErrInvalidAction = errors.New("invalid cart action")
)
