package contracts

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTaxonomy_Shape(t *testing.T) {
	tax := DefaultTaxonomy()
	assert.Equal(t, 66, tax.Len())
	assert.Len(t, tax.Categories(), 16)

	for tier, want := range map[Tier]int{TierEssential: 9, TierProfessional: 18, TierEnterprise: 25} {
		fs, err := tax.Tier(tier)
		require.NoError(t, err)
		assert.Len(t, fs, want, "tier %s", tier)
	}
}

func TestDefaultTaxonomy_TiersNest(t *testing.T) {
	tax := DefaultTaxonomy()
	ess, _ := tax.Tier(TierEssential)
	pro, _ := tax.Tier(TierProfessional)
	ent, _ := tax.Tier(TierEnterprise)

	for _, d := range ess {
		assert.True(t, pro.Contains(d.Key), "%s missing from professional", d.Key)
	}
	for _, d := range pro {
		assert.True(t, ent.Contains(d.Key), "%s missing from enterprise", d.Key)
	}
}

func TestDefaultTaxonomy_FieldsAreWellFormed(t *testing.T) {
	for _, d := range DefaultTaxonomy().Fields() {
		assert.NotEmpty(t, d.Hint, d.Key)
		assert.True(t, d.ValueType.valid(), d.Key)
	}
}

func TestTaxonomy_Tier_Unknown(t *testing.T) {
	_, err := DefaultTaxonomy().Tier("platinum")
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestTaxonomy_Resolve(t *testing.T) {
	tax := DefaultTaxonomy()

	t.Run("empty selection is essential", func(t *testing.T) {
		fs, err := tax.Resolve(Selection{})
		require.NoError(t, err)
		ess, _ := tax.Tier(TierEssential)
		assert.Equal(t, ess.Keys(), fs.Keys())
	})

	t.Run("custom order follows taxonomy", func(t *testing.T) {
		fs, err := tax.Resolve(Selection{Fields: []string{"key_personnel", "governing_law", "effective_date"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"effective_date", "governing_law", "key_personnel"}, fs.Keys())
	})

	t.Run("custom order ignores caller order", func(t *testing.T) {
		a, err := tax.Resolve(Selection{Fields: []string{"audit_rights", "currency", "late_fees"}})
		require.NoError(t, err)
		b, err := tax.Resolve(Selection{Fields: []string{"late_fees", "audit_rights", "currency"}})
		require.NoError(t, err)
		assert.Equal(t, a.Keys(), b.Keys())
	})

	t.Run("duplicates and case are folded", func(t *testing.T) {
		fs, err := tax.Resolve(Selection{Fields: []string{"Currency", " currency ", "CURRENCY"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"currency"}, fs.Keys())
	})

	t.Run("custom wins over tier", func(t *testing.T) {
		fs, err := tax.Resolve(Selection{Tier: TierEnterprise, Fields: []string{"currency"}})
		require.NoError(t, err)
		assert.Len(t, fs, 1)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := tax.Resolve(Selection{Fields: []string{"currency", "favourite_colour"}})
		var ufe *UnknownFieldError
		require.True(t, errors.As(err, &ufe))
		assert.Equal(t, "favourite_colour", ufe.Key)
		assert.ErrorIs(t, err, ErrUnknownField)
	})

	t.Run("blank list", func(t *testing.T) {
		_, err := tax.Resolve(Selection{Fields: []string{" ", ""}})
		assert.ErrorIs(t, err, ErrEmptyFieldSet)
	})

	t.Run("unknown tier", func(t *testing.T) {
		_, err := tax.Resolve(Selection{Tier: "gold"})
		assert.ErrorIs(t, err, ErrUnknownTier)
	})
}

func TestTaxonomy_Resolve_FieldLimit(t *testing.T) {
	tax := DefaultTaxonomy()
	keys := tax.Fields().Keys()

	fs, err := tax.Resolve(Selection{Fields: keys[:25]})
	require.NoError(t, err)
	assert.Len(t, fs, 25)

	_, err = tax.Resolve(Selection{Fields: keys[:26]})
	var fle *FieldLimitExceededError
	require.True(t, errors.As(err, &fle))
	assert.Equal(t, 26, fle.Count)
	assert.Equal(t, MaxCustomFields, fle.Limit)
	assert.ErrorIs(t, err, ErrFieldLimitExceeded)
	assert.True(t, IsValidationError(err))
}

func TestNewTaxonomy_Validation(t *testing.T) {
	cats := []Category{{Key: "a", Label: "A"}}
	valid := FieldDefinition{Key: "x", Category: "a", ValueType: ValueText, Hint: "hint"}

	cases := map[string]FieldDefinition{
		"no key":            {Category: "a", ValueType: ValueText, Hint: "h"},
		"unknown category":  {Key: "x", Category: "b", ValueType: ValueText, Hint: "h"},
		"bad value type":    {Key: "x", Category: "a", ValueType: "blob", Hint: "h"},
		"no hint":           {Key: "x", Category: "a", ValueType: ValueText},
		"unknown tier":      {Key: "x", Category: "a", ValueType: ValueText, Hint: "h", Tiers: []Tier{"gold"}},
		"essential only":    {Key: "x", Category: "a", ValueType: ValueText, Hint: "h", Tiers: []Tier{TierEssential}},
		"professional only": {Key: "x", Category: "a", ValueType: ValueText, Hint: "h", Tiers: []Tier{TierProfessional}},
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewTaxonomy(cats, []FieldDefinition{d})
			assert.ErrorIs(t, err, ErrInvalidTaxonomy)
		})
	}

	t.Run("duplicate field", func(t *testing.T) {
		_, err := NewTaxonomy(cats, []FieldDefinition{valid, valid})
		assert.ErrorIs(t, err, ErrInvalidTaxonomy)
	})

	t.Run("oversized tier", func(t *testing.T) {
		var defs []FieldDefinition
		for i := 0; i < MaxCustomFields+1; i++ {
			defs = append(defs, FieldDefinition{Key: fmt.Sprintf("f%d", i), Category: "a", ValueType: ValueText, Hint: "h", Tiers: []Tier{TierEnterprise}})
		}
		_, err := NewTaxonomy(cats, defs)
		assert.ErrorIs(t, err, ErrInvalidTaxonomy)
	})
}

func TestFieldDefinition_Locality(t *testing.T) {
	tax := DefaultTaxonomy()
	eff, _ := tax.Lookup("effective_date")
	parties, _ := tax.Lookup("parties")
	law, _ := tax.Lookup("governing_law")

	assert.True(t, eff.Locality().Start())
	assert.False(t, eff.Locality().End())
	assert.True(t, parties.Locality().Start())
	assert.True(t, parties.Locality().End())
	assert.Equal(t, Locality(0), law.Locality())
}

func TestFieldSet_Credits(t *testing.T) {
	tax := DefaultTaxonomy()
	for tier, want := range map[Tier]int{TierEssential: 1, TierProfessional: 3, TierEnterprise: 5} {
		fs, _ := tax.Tier(tier)
		assert.Equal(t, want, fs.Credits(), "tier %s", tier)
	}
}

func TestSelection_Label(t *testing.T) {
	assert.Equal(t, TierEssential, Selection{}.Label())
	assert.Equal(t, TierEnterprise, Selection{Tier: TierEnterprise}.Label())
	assert.Equal(t, TierCustom, Selection{Fields: []string{"currency"}}.Label())
}
