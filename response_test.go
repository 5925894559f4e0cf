package contracts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	fs := testFields(t, "effective_date", "parties", "currency", "governing_law")
	raw := "```json\n" + `{
  "effective_date": {"value": "2024-01-01", "verbatim_source": " January 1, 2024 ", "page_number": "Page 2"},
  "Governing_Law": "State of New York",
  "currency": "N/A"
}` + "\n```"

	out, err := ParseResponse([]byte(raw), fs)
	require.NoError(t, err)
	require.Len(t, out, 4)

	eff := out["effective_date"]
	assert.Equal(t, OutcomeFound, eff.Kind)
	assert.Equal(t, "2024-01-01", eff.Value)
	assert.Equal(t, "January 1, 2024", eff.Evidence)
	assert.Equal(t, 2, eff.Page)

	assert.Equal(t, OutcomeFound, out["governing_law"].Kind)
	assert.Equal(t, "State of New York", out["governing_law"].Value)
	assert.Equal(t, OutcomeNotFound, out["currency"].Kind)
	assert.Equal(t, OutcomeNotFound, out["parties"].Kind)
}

func TestParseResponse_FieldsWrapper(t *testing.T) {
	fs := testFields(t, "currency")
	out, err := ParseResponse([]byte(`{"fields": {"currency": "EUR"}}`), fs)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFound, out["currency"].Kind)
	assert.Equal(t, "EUR", out["currency"].Value)
}

func TestParseResponse_NotAnObject(t *testing.T) {
	for _, raw := range []string{"", "I could not find anything", `["a", "b"]`} {
		_, err := ParseResponse([]byte(raw), testFields(t, "currency"))
		assert.ErrorIs(t, err, ErrMalformedResponse, "input %q", raw)
	}
}

func TestParseEntry(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind OutcomeKind
	}{
		{"string", `"Net 30"`, OutcomeFound},
		{"number", `1250000`, OutcomeFound},
		{"bool", `true`, OutcomeFound},
		{"null", `null`, OutcomeNotFound},
		{"marker", `"Not specified"`, OutcomeNotFound},
		{"empty list", `["", "n/a"]`, OutcomeNotFound},
		{"list", `["Acme Corp", "Globex LLC"]`, OutcomeFound},
		{"empty object", `{}`, OutcomeNotFound},
		{"wrapped null", `{"value": null, "verbatim_source": "x"}`, OutcomeNotFound},
		{"bad page type", `{"value": "x", "page_number": true}`, OutcomeMalformed},
		{"bad evidence type", `{"value": "x", "verbatim_source": 12}`, OutcomeMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := parseEntry(json.RawMessage(tt.raw))
			assert.Equal(t, tt.kind, o.Kind)
			assert.JSONEq(t, tt.raw, string(o.Raw))
		})
	}
}

func TestParseEntry_NumbersKeepPrecision(t *testing.T) {
	o := parseEntry(json.RawMessage(`{"value": 1250000.10, "page_number": 3}`))
	require.Equal(t, OutcomeFound, o.Kind)
	assert.Equal(t, json.Number("1250000.10"), o.Value)
	assert.Equal(t, 3, o.Page)
}

func TestPageNumber(t *testing.T) {
	assert.Equal(t, 4, pageNumber(json.Number("4")))
	assert.Equal(t, 12, pageNumber("p. 12"))
	assert.Equal(t, 0, pageNumber("unknown"))
	assert.Equal(t, 0, pageNumber(json.Number("-2")))
	assert.Equal(t, 0, pageNumber(nil))
}
