package cart

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"commerce-pricing/internal/domain"
	"commerce-pricing/internal/metrics"
	"commerce-pricing/internal/service/promo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type catalog interface {
	GetByID(ctx context.Context, id string) (*domain.Item, error)
}

type promoResolver interface {
	SetCode(ctx context.Context, code string) (bool, error)
	ClearCode()
	Code() string
	Lookup(ctx context.Context, itemID string, tags []string) error
	Discount() (promo.Discount, bool)
	Gifts() ([]promo.Gift, error)
	Suggestions() []string
}

// QuantityUpdate is one entry of a bulk cart update. Quantity is raw user
// input and is validated per entry.
type QuantityUpdate struct {
	ID       string `json:"id"`
	Quantity string `json:"quantity"`
}

// Engine prices one cart. Mutations mark the cart stale and every query
// recomputes a stale cart before answering. An Engine is not safe for
// concurrent use.
type Engine struct {
	state    *domain.CartState
	ledger   *Ledger
	catalog  catalog
	resolver promoResolver
	logger   *zap.Logger
}

// NewEngine wraps state. resolver may be nil, in which case no promotions apply.
func NewEngine(state *domain.CartState, goods catalog, resolver promoResolver, logger *zap.Logger) *Engine {
	if state == nil {
		state = domain.NewCartState()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		state:    state,
		ledger:   NewLedger(state),
		catalog:  goods,
		resolver: resolver,
		logger:   logger,
	}
}

// State exposes the underlying cart value for persistence.
func (e *Engine) State() *domain.CartState {
	return e.state
}

// Dirty reports whether the cart needs a recompute before the next query.
func (e *Engine) Dirty() bool {
	return e.state.Stale
}

// MarkDirty forces a recompute on the next query.
func (e *Engine) MarkDirty() {
	e.state.Stale = true
}

// AddItem increases the quantity of id by qty.
func (e *Engine) AddItem(ctx context.Context, id string, qty int) error {
	return e.UpdateItem(ctx, id, e.ledger.Quantity(id)+qty)
}

// UpdateItem sets the quantity of id from a fresh catalog snapshot. A
// quantity of zero or less removes the line without consulting the catalog.
func (e *Engine) UpdateItem(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		e.ledger.Remove(id)
		return nil
	}
	item, err := e.catalog.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrItemNotFound, id)
		}
		return fmt.Errorf("get item %s: %w", id, err)
	}
	e.ledger.Upsert(*item, qty)
	return nil
}

// DeleteItem removes the line for id. Unknown ids are ignored.
func (e *Engine) DeleteItem(id string) {
	e.ledger.Remove(id)
}

// UpdateCart applies a batch of quantity changes in order. Invalid entries
// are skipped and reported; the rest still apply.
func (e *Engine) UpdateCart(ctx context.Context, updates []QuantityUpdate) error {
	var errs []error
	for _, u := range updates {
		qty, err := strconv.Atoi(strings.TrimSpace(u.Quantity))
		if err != nil || qty < 0 {
			errs = append(errs, fmt.Errorf("%w for %s: %q", domain.ErrInvalidQuantity, u.ID, u.Quantity))
			continue
		}
		if qty == 0 {
			e.ledger.Remove(u.ID)
			continue
		}
		if e.ledger.Quantity(u.ID) == qty {
			continue
		}
		if err := e.UpdateItem(ctx, u.ID, qty); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EmptyCart drops every line, queued suggestion and charge. The promo code
// stays active.
func (e *Engine) EmptyCart() {
	code := e.state.PromoCode
	*e.state = *domain.NewCartState()
	e.state.PromoCode = code
	e.state.Totals = zeroTotals()
}

// SetCode activates a promo code. Rejected codes leave the cart untouched.
func (e *Engine) SetCode(ctx context.Context, code string) (bool, error) {
	if e.resolver == nil {
		return false, nil
	}
	ok, err := e.resolver.SetCode(ctx, code)
	if err != nil || !ok {
		return false, err
	}
	e.state.PromoCode = e.resolver.Code()
	e.MarkDirty()
	return true, nil
}

// ClearCode deactivates the promo code.
func (e *Engine) ClearCode() {
	if e.resolver != nil {
		e.resolver.ClearCode()
	}
	e.state.PromoCode = ""
	e.MarkDirty()
}

// PromoCode returns the active promo code, empty when none.
func (e *Engine) PromoCode() string {
	return e.state.PromoCode
}

// RestoreCode re-activates the persisted promo code. A code no longer
// backed by any rule is dropped and the cart repriced.
func (e *Engine) RestoreCode(ctx context.Context) error {
	code := e.state.PromoCode
	if code == "" || e.resolver == nil {
		return nil
	}
	ok, err := e.resolver.SetCode(ctx, code)
	if err != nil {
		return err
	}
	if !ok {
		e.logger.Info("dropping expired promo code", zap.String("code", code))
		e.state.PromoCode = ""
		e.MarkDirty()
	}
	return nil
}

// SetAuxCharge sets a named charge added on top of the discounted total.
func (e *Engine) SetAuxCharge(name string, amount decimal.Decimal) {
	e.ledger.SetAuxCharge(name, amount)
}

// AuxCharge returns the named charge.
func (e *Engine) AuxCharge(name string) (decimal.Decimal, bool) {
	return e.ledger.AuxCharge(name)
}

// Contains reports whether id has a line in the cart.
func (e *Engine) Contains(id string) bool {
	return e.ledger.Contains(id)
}

// IsEmpty reports whether the cart has no lines.
func (e *Engine) IsEmpty() bool {
	return e.ledger.IsEmpty()
}

// TotalAmount is the cart total with or without discounts applied.
func (e *Engine) TotalAmount(ctx context.Context, withDiscount bool) (decimal.Decimal, error) {
	if err := e.ensureFresh(ctx); err != nil {
		return decimal.Zero, err
	}
	if withDiscount {
		return e.state.Totals.FinalAmount, nil
	}
	return e.state.Totals.BaseAmount, nil
}

func (e *Engine) GrandTotal(ctx context.Context) (decimal.Decimal, error) {
	if err := e.ensureFresh(ctx); err != nil {
		return decimal.Zero, err
	}
	return e.state.Totals.GrandTotal, nil
}

func (e *Engine) TotalDiscount(ctx context.Context) (decimal.Decimal, error) {
	if err := e.ensureFresh(ctx); err != nil {
		return decimal.Zero, err
	}
	return e.state.Totals.Discount, nil
}

func (e *Engine) Totals(ctx context.Context) (domain.Totals, error) {
	if err := e.ensureFresh(ctx); err != nil {
		return domain.Totals{}, err
	}
	return e.state.Totals, nil
}

// TotalQuantity sums line quantities, gifts included.
func (e *Engine) TotalQuantity(ctx context.Context) (int, error) {
	if err := e.ensureFresh(ctx); err != nil {
		return 0, err
	}
	total := 0
	for _, line := range e.state.Items {
		total += line.Quantity
	}
	return total, nil
}

func (e *Engine) Items(ctx context.Context) ([]domain.LineItem, error) {
	if err := e.ensureFresh(ctx); err != nil {
		return nil, err
	}
	return e.ledger.Items(), nil
}

func (e *Engine) Item(ctx context.Context, id string) (domain.LineItem, bool, error) {
	if err := e.ensureFresh(ctx); err != nil {
		return domain.LineItem{}, false, err
	}
	line, ok := e.ledger.Get(id)
	return line, ok, nil
}

func (e *Engine) ItemField(ctx context.Context, id, field string) (any, bool, error) {
	if err := e.ensureFresh(ctx); err != nil {
		return nil, false, err
	}
	v, ok := e.ledger.Field(id, field)
	return v, ok, nil
}

// NextSuggestion pops the oldest queued suggestion. A popped suggestion is
// never queued again for this cart.
func (e *Engine) NextSuggestion(ctx context.Context) (string, bool, error) {
	if err := e.ensureFresh(ctx); err != nil {
		return "", false, err
	}
	if len(e.state.SuggestQueue) == 0 {
		return "", false, nil
	}
	next := e.state.SuggestQueue[0]
	e.state.SuggestQueue = e.state.SuggestQueue[1:]
	e.state.Suggested = append(e.state.Suggested, next)
	return next, true, nil
}

func (e *Engine) ensureFresh(ctx context.Context) error {
	if !e.state.Stale {
		return nil
	}
	return e.recompute(ctx)
}

// recompute runs on a copy of the state so a failure leaves the cart as it was.
func (e *Engine) recompute(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.Recomputes.WithLabelValues(result).Inc()
		metrics.RecomputeLatency.Observe(time.Since(start).Seconds())
	}()

	backup := cloneState(e.state)
	if err := e.manageGifts(ctx); err != nil {
		*e.state = *backup
		return fmt.Errorf("reconcile gifts: %w", err)
	}
	if err := e.applyPromos(ctx); err != nil {
		*e.state = *backup
		return fmt.Errorf("apply promotions: %w", err)
	}
	e.aggregate()
	e.state.Stale = false
	return nil
}

// manageGifts takes out every granted gift unit and grants gifts again from
// the remaining lines. Units the customer added to a gift line are kept.
// Gift lines never trigger further gifts.
func (e *Engine) manageGifts(ctx context.Context) error {
	if e.resolver == nil || e.ledger.IsEmpty() {
		return nil
	}
	e.ledger.StripGifts()

	for _, line := range e.ledger.Items() {
		if err := e.resolver.Lookup(ctx, line.ID, line.Tags); err != nil {
			return err
		}
		gifts, err := e.resolver.Gifts()
		if err != nil {
			return err
		}
		for _, g := range gifts {
			units := 1
			if g.Policy == domain.GiftPolicyEach {
				units = line.Quantity
			}
			if g.Policy == domain.GiftPolicyOnce {
				if existing, ok := e.ledger.Get(g.ItemID); ok && existing.GiftQuantity > 0 {
					continue
				}
			}
			if err := e.AddItem(ctx, g.ItemID, units); err != nil {
				return fmt.Errorf("gift %s for %s: %w", g.ItemID, line.ID, err)
			}
			e.ledger.AddGiftUnits(g.ItemID, units)
			metrics.GiftUnits.WithLabelValues(g.Policy.String()).Add(float64(units))
			e.logger.Debug("gift granted",
				zap.String("item_id", line.ID),
				zap.String("gift_id", g.ItemID),
				zap.String("policy", g.Policy.String()),
				zap.Int("units", units),
			)
		}
	}
	return nil
}

func (e *Engine) applyPromos(ctx context.Context) error {
	return e.ledger.each(func(line *domain.LineItem) error {
		d := promo.NoDiscount
		var suggestions []string
		if e.resolver != nil {
			if err := e.resolver.Lookup(ctx, line.ID, line.Tags); err != nil {
				return err
			}
			if found, ok := e.resolver.Discount(); ok {
				d = found
			}
			suggestions = e.resolver.Suggestions()
		}
		priceLine(line, d)
		for _, id := range suggestions {
			e.queueSuggestion(id)
		}
		return nil
	})
}

func (e *Engine) queueSuggestion(id string) {
	if id == "" || e.ledger.Contains(id) {
		return
	}
	if slices.Contains(e.state.SuggestQueue, id) || slices.Contains(e.state.Suggested, id) {
		return
	}
	e.state.SuggestQueue = append(e.state.SuggestQueue, id)
}

func (e *Engine) aggregate() {
	totals := zeroTotals()
	for _, line := range e.state.Items {
		totals.BaseAmount = totals.BaseAmount.Add(line.BaseAmount)
		totals.FinalAmount = totals.FinalAmount.Add(line.FinalAmount)
	}
	totals.Discount = totals.BaseAmount.Sub(totals.FinalAmount)
	totals.GrandTotal = totals.FinalAmount.Add(e.ledger.AuxTotal())
	e.state.Totals = totals
}

func priceLine(line *domain.LineItem, d promo.Discount) {
	line.BaseAmount = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
	line.Discount = d.Value
	line.DiscountType = d.Kind
	line.DiscountedUnitPrice = d.UnitPrice(line.UnitPrice)
	line.FinalAmount = promo.LineTotal(line.DiscountedUnitPrice, line.Quantity)
}

func zeroTotals() domain.Totals {
	return domain.Totals{
		BaseAmount:  decimal.Zero,
		FinalAmount: decimal.Zero,
		Discount:    decimal.Zero,
		GrandTotal:  decimal.Zero,
	}
}

func cloneState(s *domain.CartState) *domain.CartState {
	out := *s
	out.Items = make([]domain.LineItem, len(s.Items))
	copy(out.Items, s.Items)
	out.SuggestQueue = make([]string, len(s.SuggestQueue))
	copy(out.SuggestQueue, s.SuggestQueue)
	out.Suggested = slices.Clone(s.Suggested)
	out.AuxCharges = make(map[string]decimal.Decimal, len(s.AuxCharges))
	for k, v := range s.AuxCharges {
		out.AuxCharges[k] = v
	}
	return &out
}
