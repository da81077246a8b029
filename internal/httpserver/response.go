package httpserver

import (
	"errors"
	"net/http"

	"commerce-pricing/internal/domain"
	cartsvc "commerce-pricing/internal/service/cart"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type cartResponse struct {
	Type                  string                `json:"type"`
	ID                    string                `json:"id"`
	LineItems             []lineItemResponse    `json:"lineItems"`
	TotalLineItemQuantity int                   `json:"totalLineItemQuantity"`
	BasePrice             priceValue            `json:"basePrice"`
	TotalPrice            priceValue            `json:"totalPrice"`
	DiscountAmount        priceValue            `json:"discountAmount"`
	GrandTotal            priceValue            `json:"grandTotal"`
	Charges               map[string]priceValue `json:"charges"`
	DiscountCode          string                `json:"discountCode,omitempty"`
}

type lineItemResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Image           string          `json:"image,omitempty"`
	Tags            []string        `json:"tags"`
	Quantity        int             `json:"quantity"`
	Price           priceValue      `json:"price"`
	DiscountedPrice priceValue      `json:"discountedPrice"`
	Discount        appliedDiscount `json:"discount"`
	BasePrice       priceValue      `json:"basePrice"`
	TotalPrice      priceValue      `json:"totalPrice"`
	IsGift          bool            `json:"isGift"`
	GiftQuantity    int             `json:"giftQuantity,omitempty"`
}

type appliedDiscount struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type priceValue struct {
	Type           string `json:"type"`
	CurrencyCode   string `json:"currencyCode"`
	CentAmount     int64  `json:"centAmount"`
	FractionDigits int    `json:"fractionDigits"`
}

type errorResponse struct {
	StatusCode int           `json:"statusCode"`
	Message    string        `json:"message"`
	Errors     []errorDetail `json:"errors"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toPriceValue(amount decimal.Decimal, currency string) priceValue {
	return priceValue{
		Type:           "centPrecision",
		CurrencyCode:   currency,
		CentAmount:     amount.Shift(2).Round(0).IntPart(),
		FractionDigits: 2,
	}
}

func toCartResponse(sessionID string, v *cartsvc.View, currency string) cartResponse {
	lines := make([]lineItemResponse, 0, len(v.Items))
	for _, line := range v.Items {
		tags := line.Tags
		if tags == nil {
			tags = []string{}
		}
		lines = append(lines, lineItemResponse{
			ID:              line.ID,
			Name:            line.Name,
			Image:           line.Image,
			Tags:            tags,
			Quantity:        line.Quantity,
			Price:           toPriceValue(line.UnitPrice, currency),
			DiscountedPrice: toPriceValue(line.DiscountedUnitPrice, currency),
			Discount:        appliedDiscount{Type: line.DiscountType.String(), Value: line.Discount.String()},
			BasePrice:       toPriceValue(line.BaseAmount, currency),
			TotalPrice:      toPriceValue(line.FinalAmount, currency),
			IsGift:          line.IsGift,
			GiftQuantity:    line.GiftQuantity,
		})
	}

	charges := make(map[string]priceValue, len(v.AuxCharges))
	for name, amount := range v.AuxCharges {
		charges[name] = toPriceValue(amount, currency)
	}

	return cartResponse{
		Type:                  "Cart",
		ID:                    sessionID,
		LineItems:             lines,
		TotalLineItemQuantity: v.TotalQuantity,
		BasePrice:             toPriceValue(v.Totals.BaseAmount, currency),
		TotalPrice:            toPriceValue(v.Totals.FinalAmount, currency),
		DiscountAmount:        toPriceValue(v.Totals.Discount, currency),
		GrandTotal:            toPriceValue(v.Totals.GrandTotal, currency),
		Charges:               charges,
		DiscountCode:          v.PromoCode,
	}
}

// writeError maps domain errors to status codes. Unexpected errors are
// logged and reported without detail.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status, code := http.StatusInternalServerError, "General"
	switch {
	case errors.Is(err, domain.ErrItemNotFound), errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "ResourceNotFound"
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInvalidAction):
		status, code = http.StatusBadRequest, "InvalidInput"
	case errors.Is(err, domain.ErrPromoCodeRejected):
		status, code = http.StatusBadRequest, "DiscountCodeNonApplicable"
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("cart request failed", zap.String("path", c.FullPath()), zap.Error(err))
		msg = "internal error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorResponse{
		StatusCode: status,
		Message:    msg,
		Errors:     []errorDetail{{Code: code, Message: msg}},
	})
}
