package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"commerce-pricing/internal/domain"
	"github.com/shopspring/decimal"
)

type GoodsWriter interface {
	Upsert(ctx context.Context, item domain.Item) (*domain.Item, error)
}

type RuleWriter interface {
	Add(ctx context.Context, rule domain.Rule) (*domain.Rule, error)
}

// Kind is the type of CSV file, detected from its header row.
type Kind int

const (
	KindUnknown Kind = iota
	KindGoods
	KindRules
)

func (k Kind) String() string {
	switch k {
	case KindGoods:
		return "goods"
	case KindRules:
		return "rules"
	default:
		return "unknown"
	}
}

// CSVImporter loads goods or promo rule CSV files.
type CSVImporter struct {
	reader *csv.Reader
	goods  GoodsWriter
	rules  RuleWriter
}

func NewCSVImporter(r io.Reader, goods GoodsWriter, rules RuleWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader: csvr,
		goods:  goods,
		rules:  rules,
	}
}

// DetectKind reads the header row of r.
func DetectKind(r io.Reader) (Kind, error) {
	headers, err := csv.NewReader(r).Read()
	if err != nil {
		return KindUnknown, fmt.Errorf("read headers: %w", err)
	}
	return kindOf(headerIndex(headers)), nil
}

// Run imports every row and returns the number of records written.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)

	switch kindOf(index) {
	case KindGoods:
		if i.goods == nil {
			return 0, errors.New("goods writer unavailable")
		}
		return i.runGoods(ctx, index)
	case KindRules:
		if i.rules == nil {
			return 0, errors.New("rule writer unavailable")
		}
		return i.runRules(ctx, index)
	default:
		return 0, fmt.Errorf("unrecognised csv headers %v", headers)
	}
}

type goodsRow struct {
	ID     string
	Name   string
	Image  string
	Price  string
	Tags   []string
	Active string
}

// runGoods upserts one item per row with an id. Rows without an id carry
// extra tags for the item above them.
func (i *CSVImporter) runGoods(ctx context.Context, index map[string]int) (int, error) {
	var (
		current  *goodsRow
		imported int
	)
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}

		row := parseGoodsRow(record, index)
		if row == nil {
			continue
		}
		if row.ID != "" {
			if current != nil {
				if err := i.saveItem(ctx, current); err != nil {
					return imported, err
				}
				imported++
			}
			current = row
			continue
		}
		if current != nil {
			current.Tags = append(current.Tags, row.Tags...)
		}
	}

	if current != nil {
		if err := i.saveItem(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

func (i *CSVImporter) saveItem(ctx context.Context, row *goodsRow) error {
	if row.Name == "" || row.Price == "" {
		return fmt.Errorf("invalid goods row (missing required fields) for id %q", row.ID)
	}
	price, err := decimal.NewFromString(row.Price)
	if err != nil || price.IsNegative() {
		return fmt.Errorf("invalid price for id %q: %s", row.ID, row.Price)
	}
	active := true
	if row.Active != "" {
		active, err = strconv.ParseBool(row.Active)
		if err != nil {
			return fmt.Errorf("invalid active flag for id %q: %s", row.ID, row.Active)
		}
	}

	item := domain.Item{
		ID:     row.ID,
		Name:   row.Name,
		Image:  row.Image,
		Price:  price,
		Tags:   dedupe(row.Tags),
		Active: active,
	}
	if _, err := i.goods.Upsert(ctx, item); err != nil {
		return fmt.Errorf("upsert item %q: %w", row.ID, err)
	}
	return nil
}

func (i *CSVImporter) runRules(ctx context.Context, index map[string]int) (int, error) {
	imported := 0
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		line++

		rule, err := parseRule(record, index)
		if err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		if rule == nil {
			continue
		}
		if _, err := i.rules.Add(ctx, *rule); err != nil {
			return imported, fmt.Errorf("line %d: add rule: %w", line, err)
		}
		imported++
	}
	return imported, nil
}

func parseRule(record []string, index map[string]int) (*domain.Rule, error) {
	scopeStr := pick(record, index, "applies_to")
	kindStr := pick(record, index, "kind")
	if scopeStr == "" && kindStr == "" {
		return nil, nil
	}

	scope, err := domain.ParseScope(scopeStr)
	if err != nil {
		return nil, err
	}
	kind, err := domain.ParseRuleKind(kindStr)
	if err != nil {
		return nil, err
	}
	policy, err := domain.ParseGiftPolicy(pick(record, index, "policy"))
	if err != nil {
		return nil, err
	}

	rule := &domain.Rule{
		ID:        pick(record, index, "id"),
		AppliesTo: scope,
		Targets:   splitList(pick(record, index, "targets")),
		Kind:      kind,
		Value:     decimal.Zero,
		ItemID:    pick(record, index, "item_id"),
		Code:      pick(record, index, "code"),
		Policy:    policy,
	}
	if len(rule.Targets) == 0 {
		return nil, errors.New("rule needs at least one target")
	}
	if v := pick(record, index, "value"); v != "" {
		if rule.Value, err = decimal.NewFromString(v); err != nil {
			return nil, fmt.Errorf("invalid value %q", v)
		}
	}
	if p := pick(record, index, "position"); p != "" {
		if rule.Position, err = strconv.Atoi(p); err != nil {
			return nil, fmt.Errorf("invalid position %q", p)
		}
	}

	switch kind {
	case domain.KindGift:
		if rule.Policy == domain.GiftPolicyNone {
			return nil, domain.ErrMisconfiguredGiftRule
		}
		fallthrough
	case domain.KindSuggest:
		if rule.ItemID == "" {
			return nil, fmt.Errorf("%s rule needs item_id", kind)
		}
	case domain.KindPercentage:
		if rule.Value.IsNegative() || rule.Value.GreaterThan(decimal.NewFromInt(100)) {
			return nil, fmt.Errorf("percentage %s out of range", rule.Value)
		}
	}
	return rule, nil
}

func kindOf(index map[string]int) Kind {
	_, hasKind := index["kind"]
	_, hasScope := index["applies_to"]
	if hasKind && hasScope {
		return KindRules
	}
	_, hasID := index["id"]
	_, hasPrice := index["price"]
	if hasID && hasPrice {
		return KindGoods
	}
	return KindUnknown
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseGoodsRow(record []string, index map[string]int) *goodsRow {
	id := pick(record, index, "id")
	tags := splitList(pick(record, index, "tags"))
	if id == "" && len(tags) == 0 {
		return nil
	}
	return &goodsRow{
		ID:     id,
		Name:   pick(record, index, "name"),
		Image:  pick(record, index, "image"),
		Price:  pick(record, index, "price"),
		Tags:   tags,
		Active: pick(record, index, "active"),
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func dedupe(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, v := range list {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
