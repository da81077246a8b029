package seed

import (
	"context"
	"errors"
	"fmt"

	"commerce-pricing/internal/domain"
	promorepo "commerce-pricing/internal/repository/promo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type goodsStore interface {
	Upsert(ctx context.Context, item domain.Item) (*domain.Item, error)
}

type ruleStore interface {
	Add(ctx context.Context, rule domain.Rule) (*domain.Rule, error)
	Update(ctx context.Context, rule domain.Rule) error
}

var _ ruleStore = (promorepo.Repository)(nil)

// Goods is the demo catalog.
var Goods = []domain.Item{
	{ID: "demo-laptop", Name: "Demo Laptop", Price: decimal.NewFromInt(1000), Tags: []string{"electronics"}, Active: true},
	{ID: "demo-case", Name: "Laptop Case", Price: decimal.NewFromInt(30), Tags: []string{"electronics", "accessories"}, Active: true},
	{ID: "demo-mug", Name: "Demo Mug", Price: decimal.RequireFromString("12.99"), Tags: []string{"kitchen"}, Active: true},
	{ID: "demo-shirt", Name: "Demo T-Shirt", Price: decimal.RequireFromString("19.99"), Tags: []string{"apparel"}, Active: true},
	{ID: "demo-socks", Name: "Demo Socks", Price: decimal.RequireFromString("4.99"), Tags: []string{"apparel"}, Active: true},
	{ID: "demo-sticker", Name: "Sticker Pack", Price: decimal.RequireFromString("2.50"), Tags: []string{"accessories"}, Active: true},
}

// Rules are the demo promotions. Fixed ids keep Apply idempotent.
var Rules = []domain.Rule{
	{ID: "8a6f0c1e-0000-4000-8000-000000000001", AppliesTo: domain.ScopeItems, Targets: []string{"demo-laptop"}, Kind: domain.KindAbsolute, Value: decimal.NewFromInt(300)},
	{ID: "8a6f0c1e-0000-4000-8000-000000000002", AppliesTo: domain.ScopeCategory, Targets: []string{"kitchen"}, Kind: domain.KindPercentage, Value: decimal.NewFromInt(50)},
	{ID: "8a6f0c1e-0000-4000-8000-000000000003", AppliesTo: domain.ScopeItems, Targets: []string{"demo-laptop"}, Kind: domain.KindGift, ItemID: "demo-sticker", Policy: domain.GiftPolicyOnce},
	{ID: "8a6f0c1e-0000-4000-8000-000000000004", AppliesTo: domain.ScopeItems, Targets: []string{"demo-shirt"}, Kind: domain.KindGift, ItemID: "demo-socks", Policy: domain.GiftPolicyEach},
	{ID: "8a6f0c1e-0000-4000-8000-000000000005", AppliesTo: domain.ScopeItems, Targets: []string{"demo-laptop"}, Kind: domain.KindSuggest, ItemID: "demo-case"},
	{ID: "8a6f0c1e-0000-4000-8000-000000000006", AppliesTo: domain.ScopeCategory, Targets: []string{"apparel"}, Kind: domain.KindPercentage, Value: decimal.NewFromInt(20), Code: "WELCOME20", Position: 1},
}

// Apply upserts the demo goods and promotions.
func Apply(ctx context.Context, goods goodsStore, rules ruleStore, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, item := range Goods {
		if _, err := goods.Upsert(ctx, item); err != nil {
			return fmt.Errorf("upsert item %s: %w", item.ID, err)
		}
	}
	for _, rule := range Rules {
		err := rules.Update(ctx, rule)
		if errors.Is(err, domain.ErrNotFound) {
			_, err = rules.Add(ctx, rule)
		}
		if err != nil {
			return fmt.Errorf("upsert rule %s: %w", rule.ID, err)
		}
	}
	logger.Info("seed applied", zap.Int("goods", len(Goods)), zap.Int("rules", len(Rules)))
	return nil
}
