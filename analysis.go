package contracts

import (
	"github.com/shopspring/decimal"
)

// GroundingStatus tells how well an extracted value is supported by the
// document text.
type GroundingStatus string

const (
	StatusGrounded   GroundingStatus = "grounded"
	StatusUngrounded GroundingStatus = "ungrounded"
	StatusNotFound   GroundingStatus = "not_found"
)

// Span is a half-open byte range in the document text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (s Span) Len() int { return s.End - s.Start }

// MatchKind records which search step grounded a value.
type MatchKind string

const (
	MatchExact      MatchKind = "exact"
	MatchNormalized MatchKind = "normalized"
	MatchFuzzy      MatchKind = "fuzzy"
	MatchDerived    MatchKind = "derived"
)

// ExtractionResult is the outcome for one requested field.
type ExtractionResult struct {
	FieldKey        string          `json:"field"`
	RawValue        any             `json:"rawValue"`
	NormalizedValue any             `json:"normalizedValue,omitempty"`
	SourceSegment   int             `json:"sourceSegment"`
	EvidenceSpan    *Span           `json:"evidenceSpan"`
	Status          GroundingStatus `json:"status"`
	Evidence        string          `json:"evidence,omitempty"`
	Page            int             `json:"page,omitempty"`
	FieldType       FieldType       `json:"fieldType"`
	Match           MatchKind       `json:"match,omitempty"`
	Confidence      float64         `json:"confidence"`
}

func notFound(d *FieldDefinition) *ExtractionResult {
	return &ExtractionResult{
		FieldKey:      d.Key,
		SourceSegment: -1,
		Status:        StatusNotFound,
		FieldType:     d.FieldType(),
	}
}

// Found reports whether a value was extracted.
func (r *ExtractionResult) Found() bool { return r != nil && r.Status != StatusNotFound }

// Money is a parsed monetary amount.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency,omitempty"`
}

func (m Money) String() string {
	if m.Currency == "" {
		return m.Amount.String()
	}
	return m.Currency + " " + m.Amount.StringFixed(2)
}

// AnalysisMetadata describes how an analysis was produced. SegmentCount
// against CompletedSegments tells a partial result from a complete one.
type AnalysisMetadata struct {
	Tier              Tier    `json:"tier"`
	SegmentCount      int     `json:"segmentCount"`
	CompletedSegments int     `json:"completedSegments"`
	FailedSegments    []int   `json:"failedSegments,omitempty"`
	TotalChars        int     `json:"totalChars"`
	Pages             int     `json:"pages,omitempty"`
	Incomplete        bool    `json:"incomplete"`
	FieldsRequested   int     `json:"fieldsRequested"`
	FieldsFound       int     `json:"fieldsFound"`
	FieldsGrounded    int     `json:"fieldsGrounded"`
	GroundingRate     float64 `json:"groundingRate"`
	Credits           int     `json:"credits"`
	ModelCalls        int     `json:"modelCalls"`
	TablesDetected    int     `json:"tablesDetected"`
}

// ContractAnalysis is the result of one extraction request. It is owned by
// the caller once returned.
type ContractAnalysis struct {
	Fields          map[string]*ExtractionResult `json:"fields"`
	Order           []string                     `json:"order"`
	PaymentSchedule *Table                       `json:"paymentSchedule,omitempty"`
	Metadata        AnalysisMetadata             `json:"metadata"`
}

// Get returns the result for key or nil.
func (a *ContractAnalysis) Get(key string) *ExtractionResult { return a.Fields[key] }

// Results lists the field results in request order.
func (a *ContractAnalysis) Results() []*ExtractionResult {
	out := make([]*ExtractionResult, 0, len(a.Order))
	for _, k := range a.Order {
		out = append(out, a.Fields[k])
	}
	return out
}

func (a *ContractAnalysis) tally() {
	a.Metadata.FieldsRequested = len(a.Order)
	a.Metadata.FieldsFound, a.Metadata.FieldsGrounded = 0, 0
	for _, r := range a.Fields {
		if r.Found() {
			a.Metadata.FieldsFound++
		}
		if r.Status == StatusGrounded {
			a.Metadata.FieldsGrounded++
		}
	}
	a.Metadata.GroundingRate = 0
	if a.Metadata.FieldsFound > 0 {
		a.Metadata.GroundingRate = float64(a.Metadata.FieldsGrounded) / float64(a.Metadata.FieldsFound)
	}
}
