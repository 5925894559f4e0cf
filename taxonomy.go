package contracts

import (
	"fmt"
	"slices"
	"strings"
)

// Tier is a named, nested subset of the taxonomy.
type Tier string

const (
	TierEssential    Tier = "essential"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"

	// TierCustom labels analyses produced from an explicit field list.
	TierCustom Tier = "custom"
)

// MaxCustomFields bounds every resolved field set.
const MaxCustomFields = 25

// Tiers returns the selectable tiers from smallest to largest.
func Tiers() []Tier {
	return []Tier{TierEssential, TierProfessional, TierEnterprise}
}

func (t Tier) rank() int {
	switch t {
	case TierEssential:
		return 0
	case TierProfessional:
		return 1
	case TierEnterprise:
		return 2
	}
	return -1
}

// ValueType describes the shape of a field value.
type ValueType string

const (
	ValueDate  ValueType = "date"
	ValueMoney ValueType = "money"
	ValueText  ValueType = "text"
	ValueList  ValueType = "list"
	ValueTable ValueType = "table"
)

func (v ValueType) valid() bool {
	switch v {
	case ValueDate, ValueMoney, ValueText, ValueList, ValueTable:
		return true
	}
	return false
}

// FieldType separates values quoted from the document from values the
// model has to compute or summarize.
type FieldType string

const (
	FieldExtractive FieldType = "extractive"
	FieldDerived    FieldType = "derived"
)

// Locality is a bit set of document regions a field is expected in.
// The zero value means anywhere.
type Locality uint8

const (
	LocalityStart Locality = 1
	LocalityEnd   Locality = 2
)

func (l Locality) Start() bool { return l&LocalityStart != 0 }
func (l Locality) End() bool   { return l&LocalityEnd != 0 }

func localityFromHint(hint string) Locality {
	h := strings.ToLower(hint)
	var l Locality
	if strings.Contains(h, "near document start") || strings.Contains(h, "preamble") {
		l |= LocalityStart
	}
	if strings.Contains(h, "signature block") || strings.Contains(h, "near document end") {
		l |= LocalityEnd
	}
	return l
}

// Category groups related fields. Category order drives taxonomy order.
type Category struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// FieldDefinition describes one extractable field. Definitions are owned
// by a Taxonomy and must not be modified once it is built.
type FieldDefinition struct {
	Key       string    `json:"key"`
	Category  string    `json:"category"`
	Tiers     []Tier    `json:"tiers,omitempty"`
	ValueType ValueType `json:"valueType"`
	Hint      string    `json:"hint"`
	Derived   bool      `json:"derived,omitempty"`
}

// InTier reports tier membership.
func (d *FieldDefinition) InTier(t Tier) bool { return slices.Contains(d.Tiers, t) }

// Locality is read from the extraction hint.
func (d *FieldDefinition) Locality() Locality { return localityFromHint(d.Hint) }

func (d *FieldDefinition) FieldType() FieldType {
	if d.Derived {
		return FieldDerived
	}
	return FieldExtractive
}

// FieldSet is an ordered, deduplicated list of definitions.
type FieldSet []*FieldDefinition

// Keys returns the field keys in set order.
func (fs FieldSet) Keys() []string {
	keys := make([]string, len(fs))
	for i, d := range fs {
		keys[i] = d.Key
	}
	return keys
}

func (fs FieldSet) Contains(key string) bool {
	return fs.Lookup(key) != nil
}

func (fs FieldSet) Lookup(key string) *FieldDefinition {
	for _, d := range fs {
		if d.Key == key {
			return d
		}
	}
	return nil
}

// Credits is the billing weight of a field set: 1 up to nine fields,
// 3 up to eighteen, 5 beyond.
func (fs FieldSet) Credits() int {
	switch n := len(fs); {
	case n <= 9:
		return 1
	case n <= 18:
		return 3
	default:
		return 5
	}
}

// Selection is either a tier name or an explicit list of field keys.
// A non-empty Fields list takes precedence over Tier.
type Selection struct {
	Tier   Tier     `json:"tier,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

// Custom reports whether the selection is an explicit field list.
func (s Selection) Custom() bool { return len(s.Fields) > 0 }

// Label is the tier name reported in analysis metadata.
func (s Selection) Label() Tier {
	if s.Custom() {
		return TierCustom
	}
	if s.Tier == "" {
		return TierEssential
	}
	return s.Tier
}

// Taxonomy is a read-only registry of field definitions.
type Taxonomy struct {
	categories []Category
	fields     FieldSet
	index      map[string]int
	tiers      map[Tier]FieldSet
}

// NewTaxonomy validates the definitions and builds a registry ordered by
// category order, then by definition order inside a category.
func NewTaxonomy(categories []Category, defs []FieldDefinition) (*Taxonomy, error) {
	catIndex := make(map[string]int, len(categories))
	for i, c := range categories {
		if c.Key == "" {
			return nil, fmt.Errorf("%w: category %d has no key", ErrInvalidTaxonomy, i)
		}
		if _, dup := catIndex[c.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate category %q", ErrInvalidTaxonomy, c.Key)
		}
		catIndex[c.Key] = i
	}

	seen := make(map[string]bool, len(defs))
	fields := make(FieldSet, 0, len(defs))
	for i := range defs {
		d := defs[i]
		if err := validateDefinition(&d, catIndex); err != nil {
			return nil, err
		}
		if seen[d.Key] {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrInvalidTaxonomy, d.Key)
		}
		seen[d.Key] = true
		d.Tiers = slices.Clone(d.Tiers)
		fields = append(fields, &d)
	}
	slices.SortStableFunc(fields, func(a, b *FieldDefinition) int {
		return catIndex[a.Category] - catIndex[b.Category]
	})

	t := &Taxonomy{
		categories: slices.Clone(categories),
		fields:     fields,
		index:      make(map[string]int, len(fields)),
		tiers:      make(map[Tier]FieldSet),
	}
	for i, d := range fields {
		t.index[d.Key] = i
		for _, tier := range Tiers() {
			if d.InTier(tier) {
				t.tiers[tier] = append(t.tiers[tier], d)
			}
		}
	}
	for _, tier := range Tiers() {
		if n := len(t.tiers[tier]); n > MaxCustomFields {
			return nil, fmt.Errorf("%w: tier %s has %d fields, limit is %d", ErrInvalidTaxonomy, tier, n, MaxCustomFields)
		}
	}
	return t, nil
}

func validateDefinition(d *FieldDefinition, catIndex map[string]int) error {
	if d.Key == "" {
		return fmt.Errorf("%w: field without key", ErrInvalidTaxonomy)
	}
	if _, ok := catIndex[d.Category]; !ok {
		return fmt.Errorf("%w: field %q has unknown category %q", ErrInvalidTaxonomy, d.Key, d.Category)
	}
	if !d.ValueType.valid() {
		return fmt.Errorf("%w: field %q has unknown value type %q", ErrInvalidTaxonomy, d.Key, d.ValueType)
	}
	if strings.TrimSpace(d.Hint) == "" {
		return fmt.Errorf("%w: field %q has no extraction hint", ErrInvalidTaxonomy, d.Key)
	}
	for _, tier := range d.Tiers {
		if tier.rank() < 0 {
			return fmt.Errorf("%w: field %q lists unknown tier %q", ErrInvalidTaxonomy, d.Key, tier)
		}
	}
	// essential ⊆ professional ⊆ enterprise
	if d.InTier(TierEssential) && !d.InTier(TierProfessional) {
		return fmt.Errorf("%w: field %q is essential but not professional", ErrInvalidTaxonomy, d.Key)
	}
	if d.InTier(TierProfessional) && !d.InTier(TierEnterprise) {
		return fmt.Errorf("%w: field %q is professional but not enterprise", ErrInvalidTaxonomy, d.Key)
	}
	return nil
}

// Categories returns the category list in taxonomy order.
func (t *Taxonomy) Categories() []Category { return slices.Clone(t.categories) }

// Fields returns every definition in taxonomy order.
func (t *Taxonomy) Fields() FieldSet { return slices.Clone(t.fields) }

func (t *Taxonomy) Len() int { return len(t.fields) }

func (t *Taxonomy) Lookup(key string) (*FieldDefinition, bool) {
	i, ok := t.index[key]
	if !ok {
		return nil, false
	}
	return t.fields[i], true
}

// Tier returns the fields of one tier in taxonomy order.
func (t *Taxonomy) Tier(tier Tier) (FieldSet, error) {
	if tier.rank() < 0 {
		return nil, fmt.Errorf("tier %q: %w", tier, ErrUnknownTier)
	}
	return slices.Clone(t.tiers[tier]), nil
}

// Resolve turns a selection into a concrete field set. An empty selection
// resolves to the essential tier. Custom lists are deduplicated, bounded
// by MaxCustomFields and returned in taxonomy order.
func (t *Taxonomy) Resolve(sel Selection) (FieldSet, error) {
	if !sel.Custom() {
		tier := sel.Tier
		if tier == "" {
			tier = TierEssential
		}
		return t.Tier(tier)
	}

	keys := make([]string, 0, len(sel.Fields))
	seen := make(map[string]bool, len(sel.Fields))
	for _, k := range sel.Fields {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("resolve: %w", ErrEmptyFieldSet)
	}
	if len(keys) > MaxCustomFields {
		return nil, &FieldLimitExceededError{Count: len(keys), Limit: MaxCustomFields}
	}

	idx := make([]int, 0, len(keys))
	for _, k := range keys {
		i, ok := t.index[k]
		if !ok {
			return nil, &UnknownFieldError{Key: k}
		}
		idx = append(idx, i)
	}
	slices.Sort(idx)

	fs := make(FieldSet, len(idx))
	for i, j := range idx {
		fs[i] = t.fields[j]
	}
	return fs, nil
}
