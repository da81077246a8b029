package cart

import (
	"commerce-pricing/internal/domain"
	"github.com/shopspring/decimal"
)

// Ledger is the keyed, ordered store of cart lines and auxiliary charges.
// Every mutation marks the state stale.
type Ledger struct {
	state *domain.CartState
}

func NewLedger(state *domain.CartState) *Ledger {
	if state == nil {
		state = domain.NewCartState()
	}
	if state.AuxCharges == nil {
		state.AuxCharges = map[string]decimal.Decimal{}
	}
	return &Ledger{state: state}
}

// Upsert writes a fresh snapshot of item with quantity qty. A quantity of
// zero or less removes the line. An existing line keeps its position and
// its gift units, capped at qty.
func (l *Ledger) Upsert(item domain.Item, qty int) {
	if qty <= 0 {
		l.Remove(item.ID)
		return
	}
	line := domain.LineItem{
		ID:         item.ID,
		Name:       item.Name,
		Image:      item.Image,
		Tags:       append([]string(nil), item.Tags...),
		UnitPrice:  item.Price,
		Quantity:   qty,
		BaseAmount: item.Price.Mul(decimal.NewFromInt(int64(qty))),
	}
	if i := l.index(item.ID); i >= 0 {
		line.IsGift = l.state.Items[i].IsGift
		line.GiftQuantity = min(l.state.Items[i].GiftQuantity, qty)
		l.state.Items[i] = line
	} else {
		l.state.Items = append(l.state.Items, line)
	}
	l.state.Stale = true
}

// Remove deletes the line; absent ids leave the state untouched.
func (l *Ledger) Remove(id string) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.state.Items = append(l.state.Items[:i], l.state.Items[i+1:]...)
	l.state.Stale = true
	return true
}

func (l *Ledger) Get(id string) (domain.LineItem, bool) {
	i := l.index(id)
	if i < 0 {
		return domain.LineItem{}, false
	}
	return l.state.Items[i], true
}

// Field returns a single line field by its JSON name.
func (l *Ledger) Field(id, field string) (any, bool) {
	line, ok := l.Get(id)
	if !ok {
		return nil, false
	}
	switch field {
	case "id":
		return line.ID, true
	case "name":
		return line.Name, true
	case "image":
		return line.Image, line.Image != ""
	case "tags":
		return line.Tags, len(line.Tags) > 0
	case "unitPrice":
		return line.UnitPrice, true
	case "quantity":
		return line.Quantity, true
	case "baseAmount":
		return line.BaseAmount, true
	case "discount":
		return line.Discount, true
	case "discountType":
		return line.DiscountType, true
	case "discountedUnitPrice":
		return line.DiscountedUnitPrice, true
	case "finalAmount":
		return line.FinalAmount, true
	case "isGift":
		return line.IsGift, true
	case "giftQuantity":
		return line.GiftQuantity, true
	}
	return nil, false
}

func (l *Ledger) Contains(id string) bool {
	return l.index(id) >= 0
}

// Quantity is the current quantity of id, zero when absent.
func (l *Ledger) Quantity(id string) int {
	if line, ok := l.Get(id); ok {
		return line.Quantity
	}
	return 0
}

func (l *Ledger) IsEmpty() bool {
	return len(l.state.Items) == 0
}

// AddGiftUnits records units of an existing line as granted by a gift rule
// and flags the line as a gift.
func (l *Ledger) AddGiftUnits(id string, units int) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	line := &l.state.Items[i]
	line.GiftQuantity = min(line.GiftQuantity+units, line.Quantity)
	line.IsGift = true
	return true
}

// StripGifts takes every granted gift unit out of the cart. Lines left
// with customer units stay in place as regular lines.
func (l *Ledger) StripGifts() {
	kept := l.state.Items[:0]
	for _, line := range l.state.Items {
		gift := line.GiftQuantity
		if line.IsGift && gift == 0 {
			gift = line.Quantity
		}
		if gift == 0 {
			kept = append(kept, line)
			continue
		}
		l.state.Stale = true
		if line.Quantity -= gift; line.Quantity <= 0 {
			continue
		}
		line.GiftQuantity = 0
		line.IsGift = false
		kept = append(kept, line)
	}
	l.state.Items = kept
}

// Items returns a copy of the lines in insertion order.
func (l *Ledger) Items() []domain.LineItem {
	out := make([]domain.LineItem, len(l.state.Items))
	copy(out, l.state.Items)
	return out
}

func (l *Ledger) SetAuxCharge(name string, amount decimal.Decimal) {
	l.state.AuxCharges[name] = amount
	l.state.Stale = true
}

func (l *Ledger) AuxCharge(name string) (decimal.Decimal, bool) {
	v, ok := l.state.AuxCharges[name]
	return v, ok
}

// AuxTotal sums every auxiliary charge.
func (l *Ledger) AuxTotal() decimal.Decimal {
	total := decimal.Zero
	for _, v := range l.state.AuxCharges {
		total = total.Add(v)
	}
	return total
}

func (l *Ledger) each(fn func(line *domain.LineItem) error) error {
	for i := range l.state.Items {
		if err := fn(&l.state.Items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) index(id string) int {
	for i := range l.state.Items {
		if l.state.Items[i].ID == id {
			return i
		}
	}
	return -1
}
