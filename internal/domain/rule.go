package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Scope selects what a rule's targets refer to.
type Scope int

const (
	ScopeAny Scope = iota
	ScopeItems
	ScopeCategory
)

func (s Scope) String() string {
	switch s {
	case ScopeItems:
		return "items"
	case ScopeCategory:
		return "category"
	default:
		return "any"
	}
}

func ParseScope(v string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "items", "item":
		return ScopeItems, nil
	case "category", "categories":
		return ScopeCategory, nil
	}
	return ScopeAny, fmt.Errorf("unknown rule scope %q", v)
}

func (s Scope) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Scope) UnmarshalText(b []byte) error {
	if string(b) == "any" {
		*s = ScopeAny
		return nil
	}
	v, err := ParseScope(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// RuleKind is what a rule does to the items it matches.
type RuleKind int

const (
	KindUnknown RuleKind = iota
	KindAbsolute
	KindPercentage
	KindGift
	KindSuggest
)

func (k RuleKind) String() string {
	switch k {
	case KindAbsolute:
		return "absolute"
	case KindPercentage:
		return "percentage"
	case KindGift:
		return "gift"
	case KindSuggest:
		return "suggest"
	default:
		return "unknown"
	}
}

func ParseRuleKind(v string) (RuleKind, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "absolute":
		return KindAbsolute, nil
	case "percentage":
		return KindPercentage, nil
	case "gift":
		return KindGift, nil
	case "suggest":
		return KindSuggest, nil
	}
	return KindUnknown, fmt.Errorf("unknown rule kind %q", v)
}

// IsDiscount reports whether the kind changes the item price.
func (k RuleKind) IsDiscount() bool {
	return k == KindAbsolute || k == KindPercentage
}

func (k RuleKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText also accepts "unknown" so unpriced line items round-trip.
func (k *RuleKind) UnmarshalText(b []byte) error {
	if string(b) == "unknown" || len(b) == 0 {
		*k = KindUnknown
		return nil
	}
	v, err := ParseRuleKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// GiftPolicy controls how many gift units a triggering line earns.
type GiftPolicy int

const (
	GiftPolicyNone GiftPolicy = iota
	// GiftPolicyOnce grants a single gift unit for the whole cart.
	GiftPolicyOnce
	// GiftPolicyEach grants one gift unit per unit of the triggering line.
	GiftPolicyEach
)

func (p GiftPolicy) String() string {
	switch p {
	case GiftPolicyOnce:
		return "once"
	case GiftPolicyEach:
		return "each"
	default:
		return ""
	}
}

func ParseGiftPolicy(v string) (GiftPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return GiftPolicyNone, nil
	case "once":
		return GiftPolicyOnce, nil
	case "each":
		return GiftPolicyEach, nil
	}
	return GiftPolicyNone, fmt.Errorf("unknown gift policy %q", v)
}

func (p GiftPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *GiftPolicy) UnmarshalText(b []byte) error {
	v, err := ParseGiftPolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Rule is a single promotion. Value is used by discount kinds, ItemID by
// gift and suggest kinds. An empty Code means the rule needs no promo code.
type Rule struct {
	ID        string          `json:"id"`
	AppliesTo Scope           `json:"appliesTo"`
	Targets   []string        `json:"targets"`
	Kind      RuleKind        `json:"kind"`
	Value     decimal.Decimal `json:"value"`
	ItemID    string          `json:"itemId,omitempty"`
	Code      string          `json:"code,omitempty"`
	Policy    GiftPolicy      `json:"policy,omitempty"`
	Position  int             `json:"position"`
	CreatedAt time.Time       `json:"createdAt"`
}

// EligibleFor reports whether the rule applies while code is the active promo code.
func (r Rule) EligibleFor(code string) bool {
	return r.Code == "" || r.Code == code
}
