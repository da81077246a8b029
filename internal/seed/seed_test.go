package seed

import (
	"context"
	"testing"

	"commerce-pricing/internal/domain"
	goodsrepo "commerce-pricing/internal/repository/goods"
	promorepo "commerce-pricing/internal/repository/promo"
)

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	goods := goodsrepo.NewMemory()
	rules := promorepo.NewMemory()

	for i := 0; i < 2; i++ {
		if err := Apply(ctx, goods, rules, nil); err != nil {
			t.Fatalf("apply #%d: %v", i+1, err)
		}
	}

	items, err := goods.List(ctx)
	if err != nil {
		t.Fatalf("list goods: %v", err)
	}
	if len(items) != len(Goods) {
		t.Fatalf("expected %d goods, got %d", len(Goods), len(items))
	}
	all, err := rules.Query(ctx, promorepo.Filter{})
	if err != nil {
		t.Fatalf("query rules: %v", err)
	}
	if len(all) != len(Rules) {
		t.Fatalf("expected %d rules, got %d", len(Rules), len(all))
	}
}

func TestRulesReferenceSeededGoods(t *testing.T) {
	known := make(map[string]bool, len(Goods))
	for _, item := range Goods {
		known[item.ID] = true
	}
	for _, rule := range Rules {
		if rule.Kind == domain.KindGift || rule.Kind == domain.KindSuggest {
			if !known[rule.ItemID] {
				t.Fatalf("rule %s points at unknown item %q", rule.ID, rule.ItemID)
			}
		}
		if rule.Kind == domain.KindGift && rule.Policy == domain.GiftPolicyNone {
			t.Fatalf("gift rule %s has no policy", rule.ID)
		}
	}
}
