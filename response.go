package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// OutcomeKind tags the parse result for one field of one segment.
type OutcomeKind int

const (
	OutcomeNotFound OutcomeKind = iota
	OutcomeFound
	OutcomeMalformed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFound:
		return "found"
	case OutcomeMalformed:
		return "malformed"
	}
	return "not_found"
}

// FieldOutcome is what a single model response said about one field.
type FieldOutcome struct {
	Kind     OutcomeKind
	Value    any
	Evidence string
	Page     int
	Raw      json.RawMessage
}

// entrySchema accepts either a bare value or an object carrying the value
// with its verbatim quote and page number.
const entrySchema = `{
  "type": ["null", "string", "number", "boolean", "array", "object"],
  "properties": {
    "verbatim_source": {"type": ["string", "null"]},
    "page_number": {"type": ["integer", "string", "null"]},
    "confidence": {"type": ["number", "string", "null"]}
  }
}`

var fieldEntrySchema = jsonschema.MustCompileString("field-entry.json", entrySchema)

var (
	notFoundMarkers = map[string]bool{
		"":               true,
		"null":           true,
		"none":           true,
		"n/a":            true,
		"na":             true,
		"not found":      true,
		"not specified":  true,
		"not applicable": true,
		"unknown":        true,
		"not stated":     true,
	}
	pageDigits = regexp.MustCompile(`\d+`)
)

// ParseResponse reads a model response permissively. Every requested field
// gets an outcome; a field missing from the response is OutcomeNotFound.
// The error is non-nil only when the response is not a JSON object at all.
func ParseResponse(raw []byte, fs FieldSet) (map[string]FieldOutcome, error) {
	clean := SanitizeJSONResponse(raw)

	dec := json.NewDecoder(bytes.NewReader(clean))
	dec.UseNumber()
	var top map[string]json.RawMessage
	if err := dec.Decode(&top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if inner, ok := top["fields"]; ok && len(top) == 1 {
		var unwrapped map[string]json.RawMessage
		if json.Unmarshal(inner, &unwrapped) == nil {
			top = unwrapped
		}
	}

	byLower := make(map[string]json.RawMessage, len(top))
	for k, v := range top {
		byLower[strings.ToLower(strings.TrimSpace(k))] = v
	}

	out := make(map[string]FieldOutcome, len(fs))
	for _, d := range fs {
		entry, ok := top[d.Key]
		if !ok {
			entry, ok = byLower[d.Key]
		}
		if !ok {
			out[d.Key] = FieldOutcome{Kind: OutcomeNotFound}
			continue
		}
		out[d.Key] = parseEntry(entry)
	}
	return out, nil
}

func parseEntry(entry json.RawMessage) FieldOutcome {
	var v any
	dec := json.NewDecoder(bytes.NewReader(entry))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return FieldOutcome{Kind: OutcomeMalformed, Raw: entry}
	}
	if err := fieldEntrySchema.Validate(v); err != nil {
		return FieldOutcome{Kind: OutcomeMalformed, Raw: entry}
	}

	o := FieldOutcome{Raw: entry, Value: v}
	if obj, ok := v.(map[string]any); ok {
		if val, has := obj["value"]; has {
			o.Value = val
			if s, ok := obj["verbatim_source"].(string); ok {
				o.Evidence = strings.TrimSpace(s)
			}
			o.Page = pageNumber(obj["page_number"])
		}
	}
	if isEmptyValue(o.Value) {
		return FieldOutcome{Kind: OutcomeNotFound, Raw: entry}
	}
	o.Kind = OutcomeFound
	return o
}

func pageNumber(v any) int {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = pageDigits.FindString(t)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return notFoundMarkers[strings.ToLower(strings.TrimSpace(t))]
	case []any:
		for _, item := range t {
			if !isEmptyValue(item) {
				return false
			}
		}
		return true
	case map[string]any:
		return len(t) == 0
	}
	return false
}
