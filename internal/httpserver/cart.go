package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"commerce-pricing/internal/domain"
	cartsvc "commerce-pricing/internal/service/cart"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type cartHandler struct {
	svc      cartService
	logger   *zap.Logger
	currency string
}

type addItemRequest struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

type promoCodeRequest struct {
	Code string `json:"code"`
}

type chargeRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

func (h *cartHandler) get(c *gin.Context) {
	v, err := h.svc.Get(c.Request.Context(), sessionID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.writeCart(c, http.StatusOK, v)
}

// update takes a list of actions, mirroring the bulk endpoints below.
func (h *cartHandler) update(c *gin.Context) {
	var in cartsvc.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, h.logger, fmt.Errorf("%w: %v", domain.ErrInvalidAction, err))
		return
	}
	h.apply(c, in.Actions...)
}

func (h *cartHandler) empty(c *gin.Context) {
	if err := h.svc.Empty(c.Request.Context(), sessionID(c)); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *cartHandler) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, fmt.Errorf("%w: %v", domain.ErrInvalidAction, err))
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	h.apply(c, cartsvc.UpdateAction{Action: "addItem", ItemID: req.ID, Quantity: req.Quantity})
}

func (h *cartHandler) changeQuantity(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		writeError(c, h.logger, fmt.Errorf("%w: quantity required", domain.ErrInvalidQuantity))
		return
	}
	h.apply(c, cartsvc.UpdateAction{Action: "changeQuantity", ItemID: c.Param("id"), Quantity: *req.Quantity})
}

func (h *cartHandler) removeItem(c *gin.Context) {
	h.apply(c, cartsvc.UpdateAction{Action: "removeItem", ItemID: c.Param("id")})
}

// bulkUpdate takes an object of item id to quantity. Quantities may be
// numbers or strings; each entry is validated on its own.
func (h *cartHandler) bulkUpdate(c *gin.Context) {
	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		writeError(c, h.logger, fmt.Errorf("%w: %v", domain.ErrInvalidAction, err))
		return
	}
	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	updates := make([]cartsvc.QuantityUpdate, 0, len(ids))
	for _, id := range ids {
		updates = append(updates, cartsvc.QuantityUpdate{ID: id, Quantity: rawQuantity(raw[id])})
	}
	h.apply(c, cartsvc.UpdateAction{Action: "updateCart", Updates: updates})
}

func (h *cartHandler) nextSuggestion(c *gin.Context) {
	id, ok, err := h.svc.NextSuggestion(c.Request.Context(), sessionID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *cartHandler) setPromoCode(c *gin.Context) {
	var req promoCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, fmt.Errorf("%w: %v", domain.ErrInvalidAction, err))
		return
	}
	h.apply(c, cartsvc.UpdateAction{Action: "setPromoCode", Code: req.Code})
}

func (h *cartHandler) clearPromoCode(c *gin.Context) {
	h.apply(c, cartsvc.UpdateAction{Action: "clearPromoCode"})
}

func (h *cartHandler) setCharge(c *gin.Context) {
	var req chargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, fmt.Errorf("%w: %v", domain.ErrInvalidAction, err))
		return
	}
	h.apply(c, cartsvc.UpdateAction{Action: "setCharge", Name: c.Param("name"), Amount: req.Amount})
}

func (h *cartHandler) apply(c *gin.Context, actions ...cartsvc.UpdateAction) {
	v, err := h.svc.Update(c.Request.Context(), sessionID(c), cartsvc.UpdateInput{Actions: actions})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.writeCart(c, http.StatusOK, v)
}

func (h *cartHandler) writeCart(c *gin.Context, status int, v *cartsvc.View) {
	c.JSON(status, toCartResponse(sessionID(c), v, h.currency))
}

func rawQuantity(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
