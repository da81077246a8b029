package cart

import (
	"context"
	"errors"
	"testing"

	"commerce-pricing/internal/domain"
	goodsrepo "commerce-pricing/internal/repository/goods"
	promorepo "commerce-pricing/internal/repository/promo"
	sessionrepo "commerce-pricing/internal/repository/session"
	"github.com/shopspring/decimal"
)

type stubSessions struct {
	states    map[string]*domain.CartState
	loadErr   error
	saveErr   error
	saves     int
	deleted   []string
	lastSaved *domain.CartState
}

func newStubSessions() *stubSessions {
	return &stubSessions{states: map[string]*domain.CartState{}}
}

func (s *stubSessions) Load(_ context.Context, id string) (*domain.CartState, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	state, ok := s.states[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneState(state), nil
}

func (s *stubSessions) Save(_ context.Context, id string, state *domain.CartState) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.lastSaved = cloneState(state)
	s.states[id] = s.lastSaved
	return nil
}

func (s *stubSessions) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	delete(s.states, id)
	return nil
}

func newTestService(sessions *stubSessions, rules ...domain.Rule) (*Service, *promorepo.MemoryRepo) {
	catalog := goodsrepo.NewMemory(
		domain.Item{ID: "A", Name: "Shirt", Price: decimal.NewFromInt(100), Active: true},
		domain.Item{ID: "G", Name: "Socks", Price: decimal.NewFromInt(10), Active: true},
	)
	store := promorepo.NewMemory(rules...)
	return New(sessions, catalog, store, nil), store
}

func TestServiceGetNewSession(t *testing.T) {
	sessions := newStubSessions()
	svc, _ := newTestService(sessions)

	v, err := svc.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Items) != 0 || !v.Totals.GrandTotal.IsZero() {
		t.Fatalf("expected empty cart, got %+v", v)
	}
	if sessions.saves != 1 {
		t.Fatalf("expected session to be saved once, got %d", sessions.saves)
	}
}

func TestServiceUpdatePersistsAcrossCalls(t *testing.T) {
	sessions := newStubSessions()
	svc, _ := newTestService(sessions)
	ctx := context.Background()

	_, err := svc.Update(ctx, "s1", UpdateInput{Actions: []UpdateAction{{Action: "addItem", ItemID: "A", Quantity: 2}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := svc.Update(ctx, "s1", UpdateInput{Actions: []UpdateAction{{Action: "addItem", ItemID: "A", Quantity: 1}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.TotalQuantity != 3 {
		t.Fatalf("expected quantity 3, got %d", v.TotalQuantity)
	}
	if !v.Totals.FinalAmount.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected final 300, got %s", v.Totals.FinalAmount)
	}
	if sessions.lastSaved == nil || sessions.lastSaved.Stale {
		t.Fatalf("expected a clean saved state, got %+v", sessions.lastSaved)
	}
}

func TestServiceCleanCartKeepsStoredTotals(t *testing.T) {
	sessions := newStubSessions()
	svc, store := newTestService(sessions)
	ctx := context.Background()

	if _, err := svc.Update(ctx, "s1", UpdateInput{Actions: []UpdateAction{{Action: "addItem", ItemID: "A", Quantity: 1}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Add(ctx, domain.Rule{
		AppliesTo: domain.ScopeItems,
		Targets:   []string{"A"},
		Kind:      domain.KindPercentage,
		Value:     decimal.NewFromInt(10),
	}); err != nil {
		t.Fatalf("add rule: %v", err)
	}

	queries := store.Queries

	v, err := svc.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Totals.FinalAmount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected stored total 100 for a clean cart, got %s", v.Totals.FinalAmount)
	}
	if store.Queries != queries {
		t.Fatalf("expected no rule queries for a clean cart, got %d", store.Queries-queries)
	}

	v, err = svc.Update(ctx, "s1", UpdateInput{Actions: []UpdateAction{{Action: "addItem", ItemID: "A", Quantity: 1}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Totals.FinalAmount.Equal(decimal.NewFromInt(180)) {
		t.Fatalf("expected new rule to apply after a change, final %s", v.Totals.FinalAmount)
	}
}

func TestServicePromoCodeRestored(t *testing.T) {
	sessions := newStubSessions()
	coded := domain.Rule{
		AppliesTo: domain.ScopeItems,
		Targets:   []string{"A"},
		Kind:      domain.KindAbsolute,
		Value:     decimal.NewFromInt(25),
		Code:      "SPRING",
	}
	svc, _ := newTestService(sessions, coded)
	ctx := context.Background()

	_, err := svc.Update(ctx, "s1", UpdateInput{Actions: []UpdateAction{
		{Action: "addItem", ItemID: "A", Quantity: 1},
		{Action: "setPromoCode", Code: "SPRING"},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, err := svc.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.PromoCode != "SPRING" {
		t.Fatalf("expected promo code to survive reload, got %q", v.PromoCode)
	}
	if !v.Totals.FinalAmount.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("expected final 75, got %s", v.Totals.FinalAmount)
	}
}

func TestServiceRejectedPromoCode(t *testing.T) {
	sessions := newStubSessions()
	svc, _ := newTestService(sessions)

	v, err := svc.Update(context.Background(), "s1", UpdateInput{Actions: []UpdateAction{
		{Action: "addItem", ItemID: "A", Quantity: 1},
		{Action: "setPromoCode", Code: "NOPE"},
	}})
	if !errors.Is(err, domain.ErrPromoCodeRejected) {
		t.Fatalf("expected ErrPromoCodeRejected, got %v", err)
	}
	if v == nil || v.TotalQuantity != 1 {
		t.Fatalf("expected the add to be kept, got %+v", v)
	}
}

func TestServiceUpdateValidation(t *testing.T) {
	svc, _ := newTestService(newStubSessions())
	ctx := context.Background()

	if _, err := svc.Update(ctx, "s1", UpdateInput{}); !errors.Is(err, domain.ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction for empty actions, got %v", err)
	}
	if _, err := svc.Update(ctx, "s1", UpdateInput{Actions: []UpdateAction{{Action: "explode"}}}); !errors.Is(err, domain.ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction for unknown action, got %v", err)
	}
	if _, err := svc.Update(ctx, "s1", UpdateInput{Actions: []UpdateAction{{Action: "addItem", ItemID: "A"}}}); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := svc.Update(ctx, "s1", UpdateInput{Actions: []UpdateAction{{Action: "addItem", ItemID: "Z", Quantity: 1}}}); !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	neg := decimal.NewFromInt(-1)
	if _, err := svc.Update(ctx, "s1", UpdateInput{Actions: []UpdateAction{{Action: "setCharge", Name: "shipping", Amount: &neg}}}); !errors.Is(err, domain.ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction for negative charge, got %v", err)
	}
}

func TestServiceChargesAndBulkUpdate(t *testing.T) {
	sessions := newStubSessions()
	svc, _ := newTestService(sessions)
	shipping := decimal.NewFromInt(7)

	v, err := svc.Update(context.Background(), "s1", UpdateInput{Actions: []UpdateAction{
		{Action: "updateCart", Updates: []QuantityUpdate{{ID: "A", Quantity: "2"}, {ID: "G", Quantity: "1"}}},
		{Action: "setCharge", Name: "shipping", Amount: &shipping},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Totals.GrandTotal.Equal(decimal.NewFromInt(217)) {
		t.Fatalf("expected grand total 217, got %s", v.Totals.GrandTotal)
	}
}

func TestServiceLoadError(t *testing.T) {
	sessions := newStubSessions()
	sessions.loadErr = errors.New("redis down")
	svc, _ := newTestService(sessions)

	if _, err := svc.Get(context.Background(), "s1"); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestServiceSaveError(t *testing.T) {
	sessions := newStubSessions()
	sessions.saveErr = errors.New("write failed")
	svc, _ := newTestService(sessions)

	_, err := svc.Update(context.Background(), "s1", UpdateInput{Actions: []UpdateAction{{Action: "addItem", ItemID: "A", Quantity: 1}}})
	if !errors.Is(err, sessions.saveErr) {
		t.Fatalf("expected save error, got %v", err)
	}
}

func TestServiceNextSuggestionConsumes(t *testing.T) {
	sessions := newStubSessions()
	svc, _ := newTestService(sessions, domain.Rule{
		AppliesTo: domain.ScopeItems,
		Targets:   []string{"A"},
		Kind:      domain.KindSuggest,
		ItemID:    "G",
	})
	ctx := context.Background()
	if _, err := svc.Update(ctx, "s1", UpdateInput{Actions: []UpdateAction{{Action: "addItem", ItemID: "A", Quantity: 1}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	id, ok, err := svc.NextSuggestion(ctx, "s1")
	if err != nil || !ok || id != "G" {
		t.Fatalf("expected suggestion G, got %q %v %v", id, ok, err)
	}
	if len(sessions.lastSaved.SuggestQueue) != 0 {
		t.Fatalf("expected popped suggestion to be gone from the stored queue, got %v", sessions.lastSaved.SuggestQueue)
	}
}

func TestServiceNextSuggestionDrainsAcrossRequests(t *testing.T) {
	sessions := newStubSessions()
	svc, store := newTestService(sessions, domain.Rule{
		AppliesTo: domain.ScopeItems,
		Targets:   []string{"A"},
		Kind:      domain.KindSuggest,
		ItemID:    "G",
	})
	ctx := context.Background()
	if _, err := svc.Update(ctx, "s1", UpdateInput{Actions: []UpdateAction{{Action: "addItem", ItemID: "A", Quantity: 1}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var popped []string
	for i := 0; i < 3; i++ {
		queries := store.Queries
		id, ok, err := svc.NextSuggestion(ctx, "s1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			popped = append(popped, id)
		}
		if store.Queries != queries {
			t.Fatalf("expected request %d to skip repricing, got %d rule queries", i+1, store.Queries-queries)
		}
	}
	if len(popped) != 1 || popped[0] != "G" {
		t.Fatalf("expected a single suggestion G, got %v", popped)
	}

	if _, err := svc.Update(ctx, "s1", UpdateInput{Actions: []UpdateAction{{Action: "addItem", ItemID: "A", Quantity: 1}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id, ok, err := svc.NextSuggestion(ctx, "s1"); err != nil || ok {
		t.Fatalf("expected no suggestion after repricing, got %q %v %v", id, ok, err)
	}
}

func TestServicePurchasedGiftUnitsSurviveRequests(t *testing.T) {
	sessions := newStubSessions()
	svc, _ := newTestService(sessions, domain.Rule{
		AppliesTo: domain.ScopeItems,
		Targets:   []string{"A"},
		Kind:      domain.KindGift,
		ItemID:    "G",
		Policy:    domain.GiftPolicyOnce,
	})
	ctx := context.Background()

	if _, err := svc.Update(ctx, "s1", UpdateInput{Actions: []UpdateAction{
		{Action: "addItem", ItemID: "G", Quantity: 2},
		{Action: "addItem", ItemID: "A", Quantity: 1},
	}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		v, err := svc.Update(ctx, "s1", UpdateInput{Actions: []UpdateAction{{Action: "addItem", ItemID: "A", Quantity: 1}}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(v.Items) != 2 || v.Items[0].ID != "G" {
			t.Fatalf("unexpected lines %+v", v.Items)
		}
		if v.Items[0].Quantity != 3 || v.Items[0].GiftQuantity != 1 {
			t.Fatalf("expected 2 purchased and 1 gift unit of G, got %+v", v.Items[0])
		}
	}
}

func TestServiceEmpty(t *testing.T) {
	sessions := newStubSessions()
	svc, _ := newTestService(sessions)

	if err := svc.Empty(context.Background(), "s1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions.deleted) != 1 || sessions.deleted[0] != "s1" {
		t.Fatalf("expected session s1 to be deleted, got %v", sessions.deleted)
	}
}

func TestServiceWithMemorySessions(t *testing.T) {
	ctx := context.Background()
	catalog := goodsrepo.NewMemory(
		domain.Item{ID: "A", Name: "Shirt", Price: decimal.NewFromInt(100), Active: true},
		domain.Item{ID: "G", Name: "Socks", Price: decimal.NewFromInt(10), Active: true},
	)
	store := promorepo.NewMemory(domain.Rule{
		AppliesTo: domain.ScopeItems,
		Targets:   []string{"A"},
		Kind:      domain.KindGift,
		ItemID:    "G",
		Policy:    domain.GiftPolicyOnce,
	})
	svc := New(sessionrepo.NewMemory(), catalog, store, nil)

	if _, err := svc.Update(ctx, "s1", UpdateInput{Actions: []UpdateAction{{Action: "addItem", ItemID: "A", Quantity: 2}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, err := svc.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Items) != 2 {
		t.Fatalf("expected shirt and gift, got %+v", v.Items)
	}
	if v.Items[0].ID != "A" || v.Items[0].Quantity != 2 || v.Items[0].IsGift {
		t.Fatalf("unexpected first line %+v", v.Items[0])
	}
	if v.Items[1].ID != "G" || v.Items[1].Quantity != 1 || !v.Items[1].IsGift {
		t.Fatalf("expected a single gift line after reload, got %+v", v.Items[1])
	}

	if err := svc.Empty(ctx, "s1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err = svc.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Items) != 0 {
		t.Fatalf("expected an empty cart after Empty, got %+v", v.Items)
	}
}
