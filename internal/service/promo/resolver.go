package promo

import (
	"context"
	"fmt"
	"strings"

	"commerce-pricing/internal/domain"
	"commerce-pricing/internal/metrics"
	promorepo "commerce-pricing/internal/repository/promo"
	"go.uber.org/zap"
)

type ruleStore interface {
	Query(ctx context.Context, f promorepo.Filter) ([]domain.Rule, error)
}

// Resolver finds the rules for one item at a time. The rules from the last
// Lookup stay cached until the next Lookup.
type Resolver struct {
	store  ruleStore
	logger *zap.Logger
	code   string
	rules  []domain.Rule
}

func New(store ruleStore, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: store, logger: logger.Named("promo")}
}

// SetCode activates code when at least one rule requires it. An unknown
// code leaves the previous one active.
func (r *Resolver) SetCode(ctx context.Context, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, nil
	}
	rules, err := r.store.Query(ctx, promorepo.Filter{Code: &code})
	if err != nil {
		return false, fmt.Errorf("check promo code: %w", err)
	}
	if len(rules) == 0 {
		metrics.PromoCodeActivations.WithLabelValues("rejected").Inc()
		r.logger.Debug("promo code rejected", zap.String("code", code))
		return false, nil
	}
	r.code = code
	metrics.PromoCodeActivations.WithLabelValues("accepted").Inc()
	return true, nil
}

func (r *Resolver) ClearCode() {
	r.code = ""
}

// Code returns the active promo code, empty when none.
func (r *Resolver) Code() string {
	return r.code
}

// Lookup loads the rules for itemID: item rules first, then category rules
// for each tag, in store order, each rule once.
func (r *Resolver) Lookup(ctx context.Context, itemID string, tags []string) error {
	r.rules = nil

	seen := make(map[string]struct{})
	var found []domain.Rule
	collect := func(f promorepo.Filter) error {
		rules, err := r.store.Query(ctx, f)
		if err != nil {
			return err
		}
		for _, rule := range rules {
			if !rule.EligibleFor(r.code) {
				continue
			}
			if _, dup := seen[rule.ID]; dup {
				continue
			}
			seen[rule.ID] = struct{}{}
			found = append(found, rule)
		}
		return nil
	}

	if err := collect(promorepo.Filter{AppliesTo: domain.ScopeItems, Target: itemID}); err != nil {
		return fmt.Errorf("lookup item rules for %s: %w", itemID, err)
	}
	for _, tag := range tags {
		if err := collect(promorepo.Filter{AppliesTo: domain.ScopeCategory, Target: tag}); err != nil {
			return fmt.Errorf("lookup category rules for %s/%s: %w", itemID, tag, err)
		}
	}
	r.rules = found
	return nil
}

// Rules returns a copy of the rules found by the last Lookup.
func (r *Resolver) Rules() []domain.Rule {
	out := make([]domain.Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Discount returns the first absolute or percentage rule; later ones are ignored.
func (r *Resolver) Discount() (Discount, bool) {
	for _, rule := range r.rules {
		if rule.Kind.IsDiscount() {
			return Discount{Kind: rule.Kind, Value: rule.Value, RuleID: rule.ID}, true
		}
	}
	return Discount{}, false
}

// Gifts returns every gift rule. Unlike discounts, all of them apply.
func (r *Resolver) Gifts() ([]Gift, error) {
	var gifts []Gift
	for _, rule := range r.rules {
		if rule.Kind != domain.KindGift {
			continue
		}
		if rule.Policy == domain.GiftPolicyNone {
			return nil, fmt.Errorf("rule %s: %w", rule.ID, domain.ErrMisconfiguredGiftRule)
		}
		gifts = append(gifts, Gift{ItemID: rule.ItemID, Policy: rule.Policy, RuleID: rule.ID})
	}
	return gifts, nil
}

func (r *Resolver) Suggestions() []string {
	var out []string
	for _, rule := range r.rules {
		if rule.Kind == domain.KindSuggest {
			out = append(out, rule.ItemID)
		}
	}
	return out
}
