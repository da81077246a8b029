package promo

import (
	"context"
	"errors"
	"fmt"

	"commerce-pricing/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger.Named("promo")}
}

func (r *postgresRepo) Query(ctx context.Context, f Filter) ([]domain.Rule, error) {
	const q = `
SELECT id::text, applies_to, targets, kind, value::text, COALESCE(item_id, ''), COALESCE(code, ''), COALESCE(policy, ''), position, created_at
FROM promo_rules
WHERE ($1 = '' OR applies_to = $1)
  AND ($2 = '' OR $2 = ANY(targets))
  AND ($3::text IS NULL OR code = $3)
ORDER BY position ASC, created_at ASC
`
	scope := ""
	if f.AppliesTo != domain.ScopeAny {
		scope = f.AppliesTo.String()
	}
	rows, err := r.pool.Query(ctx, q, scope, f.Target, f.Code)
	if err != nil {
		r.logger.Error("query rules", zap.String("scope", scope), zap.String("target", f.Target), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var result []domain.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Add inserts rule. A preset ID is kept, otherwise the database assigns one.
func (r *postgresRepo) Add(ctx context.Context, rule domain.Rule) (*domain.Rule, error) {
	const q = `
INSERT INTO promo_rules (id, applies_to, targets, kind, value, item_id, code, policy, position)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, COALESCE($3, '{}'::text[]), $4, $5::numeric,
        NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9)
RETURNING id::text, created_at
`
	out := rule
	err := r.pool.QueryRow(ctx, q,
		rule.ID,
		rule.AppliesTo.String(),
		rule.Targets,
		rule.Kind.String(),
		rule.Value.String(),
		rule.ItemID,
		rule.Code,
		rule.Policy.String(),
		rule.Position,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		r.logger.Error("add rule", zap.Stringer("kind", rule.Kind), zap.Error(err))
		return nil, fmt.Errorf("promo repo: add rule: %w", err)
	}
	r.logger.Info("added rule", zap.String("id", out.ID), zap.Stringer("kind", out.Kind), zap.Strings("targets", out.Targets))
	return &out, nil
}

func (r *postgresRepo) Update(ctx context.Context, rule domain.Rule) error {
	const q = `
UPDATE promo_rules
SET applies_to = $2,
    targets = COALESCE($3, '{}'::text[]),
    kind = $4,
    value = $5::numeric,
    item_id = NULLIF($6, ''),
    code = NULLIF($7, ''),
    policy = NULLIF($8, ''),
    position = $9
WHERE id = $1
`
	cmd, err := r.pool.Exec(ctx, q,
		rule.ID,
		rule.AppliesTo.String(),
		rule.Targets,
		rule.Kind.String(),
		rule.Value.String(),
		rule.ItemID,
		rule.Code,
		rule.Policy.String(),
		rule.Position,
	)
	if err != nil {
		return fmt.Errorf("promo repo: update rule %s: %w", rule.ID, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM promo_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("promo repo: delete rule %s: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanRule(row pgx.Row) (*domain.Rule, error) {
	var (
		rule                domain.Rule
		scope, kind, policy string
		value               string
	)
	if err := row.Scan(&rule.ID, &scope, &rule.Targets, &kind, &value, &rule.ItemID, &rule.Code, &policy, &rule.Position, &rule.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var err error
	if rule.AppliesTo, err = domain.ParseScope(scope); err != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
	}
	if rule.Kind, err = domain.ParseRuleKind(kind); err != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
	}
	if rule.Policy, err = domain.ParseGiftPolicy(policy); err != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
	}
	if rule.Value, err = decimal.NewFromString(value); err != nil {
		return nil, fmt.Errorf("rule %s value: %w", rule.ID, err)
	}
	return &rule, nil
}
