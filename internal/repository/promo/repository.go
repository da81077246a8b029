package promo

import (
	"context"

	"commerce-pricing/internal/domain"
)

// Filter narrows a rule query. Zero fields match everything; Code, when
// set, keeps only rules that require exactly that promo code.
type Filter struct {
	AppliesTo domain.Scope
	Target    string
	Code      *string
}

// Matches applies the filter to a single rule.
func (f Filter) Matches(r domain.Rule) bool {
	if f.AppliesTo != domain.ScopeAny && r.AppliesTo != f.AppliesTo {
		return false
	}
	if f.Target != "" && !containsString(r.Targets, f.Target) {
		return false
	}
	if f.Code != nil && r.Code != *f.Code {
		return false
	}
	return true
}

// Repository is the read side consumed by the resolver plus rule administration.
type Repository interface {
	Query(ctx context.Context, f Filter) ([]domain.Rule, error)
	Add(ctx context.Context, rule domain.Rule) (*domain.Rule, error)
	Update(ctx context.Context, rule domain.Rule) error
	Delete(ctx context.Context, id string) error
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
