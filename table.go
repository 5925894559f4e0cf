package contracts

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultHeaderThreshold is the minimum edit similarity for two table
// headers to be treated as the same column.
const DefaultHeaderThreshold = 0.8

// TableKind classifies a table by its headers.
type TableKind string

const (
	TablePaymentSchedule TableKind = "payment_schedule"
	TableFee             TableKind = "fee_table"
	TableParty           TableKind = "party_table"
	TableGeneric         TableKind = "generic"
)

// CellStatus tells whether a cell value was parsed as money.
type CellStatus string

const (
	CellParsed   CellStatus = "parsed"
	CellUnparsed CellStatus = "unparsed"
	CellEmpty    CellStatus = "empty"
)

// Cell keeps the raw text of a table cell next to its parsed amount.
type Cell struct {
	Raw      string           `json:"raw"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Currency string           `json:"currency,omitempty"`
	Status   CellStatus       `json:"normalizationStatus"`
}

// RawTable is a table fragment as found in the document or returned by
// the model.
type RawTable struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Page    int        `json:"page,omitempty"`
}

// Table is a normalized table with one canonical header per column.
type Table struct {
	Kind    TableKind `json:"kind"`
	Headers []string  `json:"headers"`
	Rows    [][]Cell  `json:"rows"`
}

var paymentTableKeywords = []string{
	"amount", "fee", "price", "cost", "payment", "rate", "milestone", "phase",
	"schedule", "date", "due", "total", "subtotal", "invoice", "billing",
}

// ClassifyTable sorts a table into payment schedule, fee table, party
// table or generic by header keywords.
func ClassifyTable(headers []string) TableKind {
	joined := strings.ToLower(strings.Join(headers, " "))
	hits := 0
	for _, kw := range paymentTableKeywords {
		if strings.Contains(joined, kw) {
			hits++
		}
	}
	if hits >= 2 {
		for _, kw := range []string{"milestone", "phase", "schedule"} {
			if strings.Contains(joined, kw) {
				return TablePaymentSchedule
			}
		}
		return TableFee
	}
	for _, kw := range []string{"party", "name", "entity", "signatory"} {
		if strings.Contains(joined, kw) {
			return TableParty
		}
	}
	return TableGeneric
}

var headerConcepts = []struct {
	concept string
	words   []string
}{
	{"amount", []string{"amount", "fee", "price", "cost", "payment", "charge", "total", "sum", "value"}},
	{"date", []string{"due", "when", "deadline"}},
	{"milestone", []string{"milestone", "phase", "deliverable", "description", "item", "stage"}},
}

// normalizeHeader lowercases, strips punctuation and folds plurals.
func normalizeHeader(h string) string {
	ws := words(h)
	for i, w := range ws {
		switch {
		case len(w) > 4 && strings.HasSuffix(w, "ies"):
			ws[i] = w[:len(w)-3] + "y"
		case len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
			ws[i] = w[:len(w)-1]
		}
	}
	return strings.Join(ws, " ")
}

// headerConcept maps a normalized header to a column concept. An explicit
// "date" wins so that "Payment Date" is a date column.
func headerConcept(norm string) string {
	ws := strings.Fields(norm)
	if slices.Contains(ws, "date") {
		return "date"
	}
	for _, c := range headerConcepts {
		for _, w := range c.words {
			if slices.Contains(ws, w) {
				return c.concept
			}
		}
	}
	return ""
}

// TableNormalizer merges table fragments into one table.
type TableNormalizer struct {
	HeaderThreshold float64
}

func NewTableNormalizer(threshold float64) *TableNormalizer {
	if threshold <= 0 {
		threshold = DefaultHeaderThreshold
	}
	return &TableNormalizer{HeaderThreshold: threshold}
}

type column struct {
	display string
	norm    string
	concept string
}

// Normalize merges fragments in order. Columns are matched by concept
// first and by header similarity second; the first header seen for a
// column is its canonical name. When a fragment opens with the rows that
// closed the previous one, as happens in segment overlap, that seam is
// kept once. Repeated rows anywhere else are real rows and stay.
func (n *TableNormalizer) Normalize(fragments ...RawTable) *Table {
	var (
		cols     []column
		rows     [][]Cell
		prevKeys []string
	)
	for _, f := range fragments {
		mapping := n.mapColumns(&cols, f)
		var (
			fragRows [][]Cell
			keys     []string
		)
		for _, r := range f.Rows {
			cells := make([]Cell, len(cols))
			for i := range cells {
				cells[i] = Cell{Status: CellEmpty}
			}
			empty := true
			for i, raw := range r {
				c := parseCell(raw)
				if c.Status != CellEmpty {
					empty = false
				}
				cells[mapping[i]] = c
			}
			if empty {
				continue
			}
			fragRows = append(fragRows, cells)
			keys = append(keys, rowKey(cells))
		}
		rows = append(rows, fragRows[seamOverlap(prevKeys, keys):]...)
		prevKeys = keys
	}

	t := &Table{Headers: make([]string, len(cols)), Rows: rows}
	for i, c := range cols {
		t.Headers[i] = c.display
	}
	for i := range t.Rows {
		for len(t.Rows[i]) < len(cols) {
			t.Rows[i] = append(t.Rows[i], Cell{Status: CellEmpty})
		}
	}
	t.Kind = ClassifyTable(t.Headers)
	return t
}

// seamOverlap returns the length of the longest run of rows that ends tail
// and starts head.
func seamOverlap(tail, head []string) int {
	for m := min(len(tail), len(head)); m > 0; m-- {
		if slices.Equal(tail[len(tail)-m:], head[:m]) {
			return m
		}
	}
	return 0
}

// mapColumns returns, for each fragment column, the canonical column index,
// appending new canonical columns as needed.
func (n *TableNormalizer) mapColumns(cols *[]column, f RawTable) []int {
	width := len(f.Headers)
	for _, r := range f.Rows {
		width = max(width, len(r))
	}
	mapping := make([]int, 0, width)
	used := make(map[int]bool)

	for i := 0; i < width; i++ {
		if i >= len(f.Headers) || strings.TrimSpace(f.Headers[i]) == "" {
			// headerless columns are positional
			if i < len(*cols) && !used[i] {
				mapping = append(mapping, i)
				used[i] = true
				continue
			}
			*cols = append(*cols, column{display: fmt.Sprintf("Column %d", len(*cols)+1)})
			mapping = append(mapping, len(*cols)-1)
			used[len(*cols)-1] = true
			continue
		}

		h := strings.TrimSpace(f.Headers[i])
		norm := normalizeHeader(h)
		concept := headerConcept(norm)
		match := -1
		if concept != "" {
			for j, c := range *cols {
				if !used[j] && c.concept == concept {
					match = j
					break
				}
			}
		}
		if match < 0 {
			best := n.HeaderThreshold
			for j, c := range *cols {
				if used[j] || c.norm == "" {
					continue
				}
				if s := Similarity(norm, c.norm); s >= best {
					if s > best || match < 0 {
						match = j
					}
					best = s
				}
			}
		}
		if match < 0 {
			*cols = append(*cols, column{display: h, norm: norm, concept: concept})
			match = len(*cols) - 1
		}
		used[match] = true
		mapping = append(mapping, match)
	}
	return mapping
}

func parseCell(raw string) Cell {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Cell{Status: CellEmpty}
	}
	if m, hasCurrency, ok := ParseMoney(raw); ok && hasCurrency {
		amount := m.Amount
		return Cell{Raw: raw, Amount: &amount, Currency: m.Currency, Status: CellParsed}
	}
	return Cell{Raw: raw, Status: CellUnparsed}
}

func rowKey(cells []Cell) string {
	var sb strings.Builder
	for _, c := range cells {
		sb.WriteString(NormalizeForMatching(c.Raw))
		sb.WriteByte('|')
	}
	return strings.TrimRight(sb.String(), "|")
}

var separatorRow = regexp.MustCompile(`^[\s|:\-+]+$`)

// ParseTableValue reads the table shapes models and PDF tools produce:
// markdown or pipe text, tab separated text, {"headers","rows"} objects,
// arrays of row objects, arrays of arrays, and lists of any of these.
func ParseTableValue(v any) ([]RawTable, error) {
	switch t := v.(type) {
	case string:
		rt, ok := parseTextTable(t)
		if !ok {
			return nil, fmt.Errorf("no table found in text")
		}
		return []RawTable{rt}, nil
	case map[string]any:
		if inner, ok := t["value"]; ok {
			return ParseTableValue(inner)
		}
		rt, ok := parseHeadersRows(t)
		if !ok {
			return nil, fmt.Errorf("table object needs headers or rows")
		}
		return []RawTable{rt}, nil
	case []any:
		return parseTableArray(t)
	}
	return nil, fmt.Errorf("unsupported table value %T", v)
}

func parseTableArray(items []any) ([]RawTable, error) {
	if len(items) == 0 {
		return nil, nil
	}
	switch items[0].(type) {
	case map[string]any:
		if _, ok := items[0].(map[string]any)["headers"]; ok {
			var out []RawTable
			for _, it := range items {
				m, ok := it.(map[string]any)
				if !ok {
					continue
				}
				if rt, ok := parseHeadersRows(m); ok {
					out = append(out, rt)
				}
			}
			return out, nil
		}
		return []RawTable{rowObjects(items)}, nil
	case []any:
		rt := RawTable{Headers: cellStrings(items[0].([]any))}
		for _, it := range items[1:] {
			if row, ok := it.([]any); ok {
				rt.Rows = append(rt.Rows, cellStrings(row))
			}
		}
		return []RawTable{rt}, nil
	case string:
		lines := make([]string, 0, len(items))
		for _, it := range items {
			lines = append(lines, valueText(it))
		}
		rt, ok := parseTextTable(strings.Join(lines, "\n"))
		if !ok {
			return nil, fmt.Errorf("no table found in text list")
		}
		return []RawTable{rt}, nil
	}
	return nil, fmt.Errorf("unsupported table row %T", items[0])
}

// rowObjects builds a table from an array of objects. Columns follow the
// sorted keys of the first object, then keys first seen later.
func rowObjects(items []any) RawTable {
	var headers []string
	index := map[string]int{}
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			if _, ok := index[k]; !ok {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)
		for _, k := range keys {
			index[k] = len(headers)
			headers = append(headers, k)
		}
	}
	rt := RawTable{Headers: headers}
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		row := make([]string, len(headers))
		for k, v := range m {
			row[index[k]] = valueText(v)
		}
		rt.Rows = append(rt.Rows, row)
	}
	return rt
}

func parseHeadersRows(m map[string]any) (RawTable, bool) {
	var rt RawTable
	hs, hasHeaders := m["headers"].([]any)
	if hasHeaders {
		rt.Headers = cellStrings(hs)
	}
	rows, hasRows := m["rows"].([]any)
	for _, r := range rows {
		switch row := r.(type) {
		case []any:
			rt.Rows = append(rt.Rows, cellStrings(row))
		case map[string]any:
			cells := make([]string, len(rt.Headers))
			for i, h := range rt.Headers {
				cells[i] = valueText(row[h])
			}
			rt.Rows = append(rt.Rows, cells)
		}
	}
	if p, ok := m["page"]; ok {
		rt.Page = pageNumber(p)
	}
	return rt, hasHeaders || hasRows
}

func cellStrings(items []any) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = strings.TrimSpace(valueText(it))
	}
	return out
}

// parseTextTable reads a pipe or tab separated table. The first row is the
// header row.
func parseTextTable(s string) (RawTable, bool) {
	var rows [][]string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || separatorRow.MatchString(line) {
			continue
		}
		var cells []string
		switch {
		case strings.Contains(line, "|"):
			line = strings.TrimSuffix(strings.TrimPrefix(line, "|"), "|")
			cells = strings.Split(line, "|")
		case strings.Contains(line, "\t"):
			cells = strings.Split(line, "\t")
		default:
			continue
		}
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return RawTable{}, false
	}
	return RawTable{Headers: rows[0], Rows: rows[1:]}, true
}

var alignedGap = regexp.MustCompile(`\t+| {2,}`)

// DetectTextTables finds table regions in extracted page text: runs of at
// least three consecutive lines that split into the same number (two or
// more) of pipe, tab or wide-space separated columns.
func DetectTextTables(text string, page int) []RawTable {
	var (
		out   []RawTable
		block [][]string
	)
	flush := func() {
		if len(block) >= 3 {
			out = append(out, RawTable{Headers: block[0], Rows: block[1:], Page: page})
		}
		block = nil
	}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if separatorRow.MatchString(trimmed) {
			continue
		}
		var cells []string
		if strings.Contains(trimmed, "|") {
			cells = strings.Split(strings.Trim(trimmed, "|"), "|")
		} else {
			cells = alignedGap.Split(trimmed, -1)
		}
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		if len(cells) < 2 || (len(block) > 0 && len(cells) != len(block[0])) {
			flush()
			if len(cells) >= 2 {
				block = append(block, cells)
			}
			continue
		}
		block = append(block, cells)
	}
	flush()
	return out
}

// tablesContext renders payment tables as prompt context.
func tablesContext(tables []RawTable) string {
	var sb strings.Builder
	for _, t := range tables {
		kind := ClassifyTable(t.Headers)
		if kind != TablePaymentSchedule && kind != TableFee {
			continue
		}
		if t.Page > 0 {
			fmt.Fprintf(&sb, "Table (%s, page %d):\n", kind, t.Page)
		} else {
			fmt.Fprintf(&sb, "Table (%s):\n", kind)
		}
		sb.WriteString("| " + strings.Join(t.Headers, " | ") + " |\n")
		for _, r := range t.Rows {
			sb.WriteString("| " + strings.Join(r, " | ") + " |\n")
		}
		sb.WriteByte('\n')
	}
	return strings.TrimSpace(sb.String())
}
