package contracts

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan. 2, 2006",
	"2 January 2006",
	"2 January, 2006",
	"2 Jan 2006",
	"January 2006",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"02.01.2006",
}

var ordinalSuffix = regexp.MustCompile(`(\d)(st|nd|rd|th)\b`)

// ParseDate parses the date formats commonly found in contracts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "the "), "The ")
	s = strings.Replace(s, " day of ", " ", 1)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"US$", "USD"},
	{"C$", "CAD"},
	{"A$", "AUD"},
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
	{"₹", "INR"},
}

var (
	currencyCode = regexp.MustCompile(`\b(USD|EUR|GBP|CAD|AUD|JPY|CHF|INR|CNY|SEK|NOK|DKK|NZD|SGD|HKD)\b`)
	amountToken  = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?`)
	scaleWord    = regexp.MustCompile(`(?i)^\s*(million|mm|m|billion|bn|b|thousand|k)\b`)
)

// ParseMoney reads an amount and currency from s. hasCurrency reports
// whether a currency symbol or code was present.
func ParseMoney(s string) (m Money, hasCurrency bool, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, false, false
	}
	for _, c := range currencySymbols {
		if strings.Contains(s, c.symbol) {
			m.Currency = c.code
			break
		}
	}
	if code := currencyCode.FindString(strings.ToUpper(s)); code != "" && m.Currency == "" {
		m.Currency = code
	}

	loc := amountToken.FindStringIndex(s)
	if loc == nil {
		return Money{}, m.Currency != "", false
	}
	num := strings.ReplaceAll(s[loc[0]:loc[1]], ",", "")
	amount, err := decimal.NewFromString(num)
	if err != nil {
		return Money{}, m.Currency != "", false
	}
	if sw := scaleWord.FindStringSubmatch(s[loc[1]:]); sw != nil {
		switch strings.ToLower(sw[1]) {
		case "million", "mm", "m":
			amount = amount.Mul(decimal.NewFromInt(1_000_000))
		case "billion", "bn", "b":
			amount = amount.Mul(decimal.NewFromInt(1_000_000_000))
		case "thousand", "k":
			amount = amount.Mul(decimal.NewFromInt(1_000))
		}
	}
	m.Amount = amount
	return m, m.Currency != "", true
}

// normalizeValue converts a raw model value to the field's value type.
// It returns nil when the value cannot be normalized; the raw value is
// kept by the caller either way.
func normalizeValue(d *FieldDefinition, v any) any {
	switch d.ValueType {
	case ValueDate:
		if t, ok := ParseDate(valueText(v)); ok {
			return t.Format("2006-01-02")
		}
		return nil
	case ValueMoney:
		if n, ok := v.(json.Number); ok {
			if amount, err := decimal.NewFromString(n.String()); err == nil {
				return Money{Amount: amount}
			}
		}
		if m, _, ok := ParseMoney(valueText(v)); ok {
			return m
		}
		return nil
	case ValueList:
		return valueList(v)
	case ValueTable:
		return nil
	}
	if s := strings.TrimSpace(valueText(v)); s != "" {
		return s
	}
	return nil
}

// valueText renders a scalar or list value as display text.
func valueText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		return strings.Join(valueList(t), "; ")
	case map[string]any:
		b, _ := json.Marshal(t)
		return string(b)
	}
	return fmt.Sprint(v)
}

// valueList splits a list value into trimmed, non-empty items.
func valueList(v any) []string {
	var out []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s := strings.TrimSpace(valueText(item)); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range t {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	default:
		s := valueText(v)
		for _, item := range strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '\n' }) {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
