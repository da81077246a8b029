package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"commerce-pricing/internal/domain"
	promorepo "commerce-pricing/internal/repository/promo"
	"commerce-pricing/internal/service/promo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type sessionRepo interface {
	Load(ctx context.Context, sessionID string) (*domain.CartState, error)
	Save(ctx context.Context, sessionID string, state *domain.CartState) error
	Delete(ctx context.Context, sessionID string) error
}

type ruleStore interface {
	Query(ctx context.Context, f promorepo.Filter) ([]domain.Rule, error)
}

// Service loads a cart session, runs engine operations on it and stores it back.
type Service struct {
	sessions sessionRepo
	goods    catalog
	rules    ruleStore
	logger   *zap.Logger
}

func New(sessions sessionRepo, goods catalog, rules ruleStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{sessions: sessions, goods: goods, rules: rules, logger: logger.Named("cart")}
}

type UpdateInput struct {
	Actions []UpdateAction `json:"actions"`
}

type UpdateAction struct {
	Action   string           `json:"action"`
	ItemID   string           `json:"itemId,omitempty"`
	Quantity int              `json:"quantity,omitempty"`
	Updates  []QuantityUpdate `json:"updates,omitempty"`
	Code     string           `json:"code,omitempty"`
	Name     string           `json:"name,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
}

// View is the priced cart as returned to clients.
type View struct {
	Items         []domain.LineItem          `json:"items"`
	Totals        domain.Totals              `json:"totals"`
	TotalQuantity int                        `json:"totalQuantity"`
	AuxCharges    map[string]decimal.Decimal `json:"auxCharges,omitempty"`
	PromoCode     string                     `json:"promoCode,omitempty"`
}

// Open returns an engine for the session. Unknown sessions start empty.
// A loaded cart keeps its stored stale flag, so a clean cart answers
// queries without touching the rule store until it changes.
func (s *Service) Open(ctx context.Context, sessionID string) (*Engine, error) {
	state, err := s.sessions.Load(ctx, sessionID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		state = domain.NewCartState()
	case err != nil:
		return nil, fmt.Errorf("load cart session: %w", err)
	}

	var resolver promoResolver
	if s.rules != nil {
		resolver = promo.New(s.rules, s.logger)
	}
	engine := NewEngine(state, s.goods, resolver, s.logger)
	if err := engine.RestoreCode(ctx); err != nil {
		return nil, fmt.Errorf("restore promo code: %w", err)
	}
	return engine, nil
}

func (s *Service) Get(ctx context.Context, sessionID string) (*View, error) {
	engine, err := s.Open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	v, err := viewOf(ctx, engine)
	if err != nil {
		return nil, err
	}
	return v, s.save(ctx, sessionID, engine)
}

// Update applies actions in order and stops at the first failing one. The
// actions applied before the failure are kept.
func (s *Service) Update(ctx context.Context, sessionID string, in UpdateInput) (*View, error) {
	if len(in.Actions) == 0 {
		return nil, fmt.Errorf("%w: actions required", domain.ErrInvalidAction)
	}
	engine, err := s.Open(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var actionErr error
	for _, action := range in.Actions {
		if actionErr = s.apply(ctx, engine, action); actionErr != nil {
			break
		}
	}

	v, err := viewOf(ctx, engine)
	if err != nil {
		return nil, errors.Join(actionErr, err)
	}
	if err := s.save(ctx, sessionID, engine); err != nil {
		return nil, err
	}
	return v, actionErr
}

// NextSuggestion pops the next cross-sell suggestion for the session.
func (s *Service) NextSuggestion(ctx context.Context, sessionID string) (string, bool, error) {
	engine, err := s.Open(ctx, sessionID)
	if err != nil {
		return "", false, err
	}
	id, ok, err := engine.NextSuggestion(ctx)
	if err != nil {
		return "", false, err
	}
	return id, ok, s.save(ctx, sessionID, engine)
}

// Empty destroys the session's cart.
func (s *Service) Empty(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete cart session: %w", err)
	}
	s.logger.Debug("cart emptied", zap.String("session_id", sessionID))
	return nil
}

func (s *Service) apply(ctx context.Context, engine *Engine, action UpdateAction) error {
	itemID := strings.TrimSpace(action.ItemID)
	switch strings.ToLower(strings.TrimSpace(action.Action)) {
	case "additem":
		if itemID == "" {
			return fmt.Errorf("%w: itemId required", domain.ErrInvalidAction)
		}
		if action.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidQuantity)
		}
		return engine.AddItem(ctx, itemID, action.Quantity)
	case "changequantity":
		if itemID == "" {
			return fmt.Errorf("%w: itemId required", domain.ErrInvalidAction)
		}
		if action.Quantity < 0 {
			return fmt.Errorf("%w: quantity must not be negative", domain.ErrInvalidQuantity)
		}
		return engine.UpdateItem(ctx, itemID, action.Quantity)
	case "removeitem":
		if itemID == "" {
			return fmt.Errorf("%w: itemId required", domain.ErrInvalidAction)
		}
		engine.DeleteItem(itemID)
		return nil
	case "updatecart":
		return engine.UpdateCart(ctx, action.Updates)
	case "setpromocode":
		ok, err := engine.SetCode(ctx, action.Code)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %q", domain.ErrPromoCodeRejected, action.Code)
		}
		s.logger.Info("promo code applied", zap.String("code", engine.PromoCode()))
		return nil
	case "clearpromocode":
		engine.ClearCode()
		return nil
	case "setcharge":
		name := strings.TrimSpace(action.Name)
		if name == "" || action.Amount == nil {
			return fmt.Errorf("%w: charge name and amount required", domain.ErrInvalidAction)
		}
		if action.Amount.IsNegative() {
			return fmt.Errorf("%w: charge amount must not be negative", domain.ErrInvalidAction)
		}
		engine.SetAuxCharge(name, *action.Amount)
		return nil
	default:
		return fmt.Errorf("%w: unsupported action %q", domain.ErrInvalidAction, action.Action)
	}
}

func (s *Service) save(ctx context.Context, sessionID string, engine *Engine) error {
	if err := s.sessions.Save(ctx, sessionID, engine.State()); err != nil {
		return fmt.Errorf("save cart session: %w", err)
	}
	return nil
}

func viewOf(ctx context.Context, engine *Engine) (*View, error) {
	items, err := engine.Items(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := engine.Totals(ctx)
	if err != nil {
		return nil, err
	}
	qty, err := engine.TotalQuantity(ctx)
	if err != nil {
		return nil, err
	}
	state := engine.State()
	charges := make(map[string]decimal.Decimal, len(state.AuxCharges))
	for k, v := range state.AuxCharges {
		charges[k] = v
	}
	return &View{
		Items:         items,
		Totals:        totals,
		TotalQuantity: qty,
		AuxCharges:    charges,
		PromoCode:     engine.PromoCode(),
	}, nil
}
