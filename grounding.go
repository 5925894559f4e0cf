package contracts

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultGroundingThreshold is the token overlap a fuzzy window needs.
	DefaultGroundingThreshold = 0.85
	// minFuzzyTokens keeps short values out of the fuzzy step, where they
	// would match almost anywhere.
	minFuzzyTokens = 3
	// derivedSpread widens the token window for derived values, which
	// paraphrase the text they summarize.
	derivedSpread = 2
	// derivedPrefix bounds how much of a derived value is searched.
	derivedPrefix = 100
)

// Verifier checks extracted values against the document text.
type Verifier struct {
	Threshold float64
}

func NewVerifier(threshold float64) *Verifier {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultGroundingThreshold
	}
	return &Verifier{Threshold: threshold}
}

// groundingIndex holds the document views shared by all fields of a request.
type groundingIndex struct {
	doc    string
	norm   normalized
	tokens []token
	segs   []Segment
}

func newGroundingIndex(doc string, segs []Segment) *groundingIndex {
	n := normalize(doc)
	return &groundingIndex{doc: doc, norm: n, tokens: n.tokens(), segs: segs}
}

type groundingHit struct {
	span  Span
	kind  MatchKind
	score float64
}

// Verify annotates r with a grounding status and evidence span. The value,
// then the evidence quote, is searched exactly, then normalized, then as a
// token window, preferring hits inside the source segment. Derived values
// that still miss get a wider, order-free token window. Not-found results
// pass through, and RawValue is never changed.
func (v *Verifier) Verify(r ExtractionResult, doc string, segs []Segment) ExtractionResult {
	return v.verify(r, newGroundingIndex(doc, segs))
}

// VerifyAll annotates every result of an analysis in place.
func (v *Verifier) VerifyAll(results []*ExtractionResult, doc string, segs []Segment) {
	idx := newGroundingIndex(doc, segs)
	for i, r := range results {
		if r == nil {
			continue
		}
		verified := v.verify(*r, idx)
		results[i] = &verified
	}
}

func (v *Verifier) verify(r ExtractionResult, idx *groundingIndex) ExtractionResult {
	if r.Status == StatusNotFound {
		return r
	}
	r.Status = StatusUngrounded
	r.EvidenceSpan = nil
	r.Match = ""
	r.Confidence = 0

	var seg *Segment
	if r.SourceSegment >= 0 && r.SourceSegment < len(idx.segs) {
		seg = &idx.segs[r.SourceSegment]
	}

	needles := groundingNeedles(r.RawValue)
	hit, ok := v.groundAll(needles, seg, idx)
	if !ok && r.Evidence != "" {
		hit, ok = v.ground(r.Evidence, seg, idx)
	}
	if !ok && r.FieldType == FieldDerived {
		text := valueText(r.RawValue)
		hit, ok = v.fuzzyMatch(text[:runeStart(text, derivedPrefix)], seg, idx, derivedSpread)
	}
	if !ok {
		return r
	}
	span := hit.span
	r.Status = StatusGrounded
	r.EvidenceSpan = &span
	r.Match = hit.kind
	r.Confidence = hit.score
	return r
}

// groundAll grounds every needle and returns the hit of the first one.
// Lists are grounded only when each item is.
func (v *Verifier) groundAll(needles []string, seg *Segment, idx *groundingIndex) (groundingHit, bool) {
	if len(needles) == 0 {
		return groundingHit{}, false
	}
	var (
		first groundingHit
		worst = 1.0
	)
	for i, n := range needles {
		h, ok := v.ground(n, seg, idx)
		if !ok {
			return groundingHit{}, false
		}
		if i == 0 {
			first = h
		}
		worst = min(worst, h.score)
	}
	first.score = worst
	return first, true
}

func (v *Verifier) ground(needle string, seg *Segment, idx *groundingIndex) (groundingHit, bool) {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return groundingHit{}, false
	}
	if h, ok := exactMatch(needle, seg, idx.doc); ok {
		return h, true
	}
	if h, ok := normalizedMatch(needle, seg, idx); ok {
		return h, true
	}
	return v.fuzzyMatch(needle, seg, idx, 1)
}

// exactMatch prefers occurrences that stand as whole words, in the source
// segment and then anywhere, before accepting one inside a longer token.
func exactMatch(needle string, seg *Segment, doc string) (groundingHit, bool) {
	hit := func(i int) (groundingHit, bool) {
		return groundingHit{span: Span{i, i + len(needle)}, kind: MatchExact, score: 1}, true
	}
	for _, bounded := range []bool{true, false} {
		if seg != nil {
			if i := indexIn(doc, needle, seg.Start, seg.End, bounded); i >= 0 {
				return hit(i)
			}
		}
		if i := indexIn(doc, needle, 0, len(doc), bounded); i >= 0 {
			return hit(i)
		}
	}
	return groundingHit{}, false
}

// indexIn returns the first offset of needle within doc[lo:hi], or -1.
// With bounded set, the match must not touch a letter or digit on either
// side.
func indexIn(doc, needle string, lo, hi int, bounded bool) int {
	for from := lo; from <= hi-len(needle); {
		i := strings.Index(doc[from:hi], needle)
		if i < 0 {
			return -1
		}
		i += from
		if !bounded || standsAlone(doc, i, i+len(needle)) {
			return i
		}
		_, size := utf8.DecodeRuneInString(doc[i:])
		from = i + size
	}
	return -1
}

func standsAlone(doc string, i, j int) bool {
	if i > 0 {
		if r, _ := utf8.DecodeLastRuneInString(doc[:i]); isWordRune(r) {
			return false
		}
	}
	if j < len(doc) {
		if r, _ := utf8.DecodeRuneInString(doc[j:]); isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

func normalizedMatch(needle string, seg *Segment, idx *groundingIndex) (groundingHit, bool) {
	nn := NormalizeForMatching(needle)
	if nn == "" {
		return groundingHit{}, false
	}
	var fallback *Span
	text := idx.norm.text
	for from := 0; from <= len(text)-len(nn); {
		i := strings.Index(text[from:], nn)
		if i < 0 {
			break
		}
		i += from
		if wordBounded(text, i, i+len(nn)) {
			span := idx.norm.sourceSpan(i, i+len(nn))
			if seg == nil || (span.Start >= seg.Start && span.End <= seg.End) {
				return groundingHit{span: span, kind: MatchNormalized, score: 1}, true
			}
			if fallback == nil {
				fallback = &span
			}
		}
		from = i + 1
	}
	if fallback != nil {
		return groundingHit{span: *fallback, kind: MatchNormalized, score: 1}, true
	}
	return groundingHit{}, false
}

func wordBounded(text string, i, j int) bool {
	return (i == 0 || text[i-1] == ' ') && (j == len(text) || text[j] == ' ')
}

// fuzzyMatch slides a window of spread times the needle's token count over
// the document and accepts the best window whose token overlap reaches the
// threshold. The span runs from the first to the last needle token in the
// window. Ties go to windows inside the source segment, then to the
// earliest.
func (v *Verifier) fuzzyMatch(needle string, seg *Segment, idx *groundingIndex, spread int) (groundingHit, bool) {
	nt := words(needle)
	if len(nt) < minFuzzyTokens || len(idx.tokens) == 0 {
		return groundingHit{}, false
	}
	want := make(map[string]bool, len(nt))
	for _, t := range nt {
		want[t] = true
	}
	size := min(len(nt)*max(spread, 1), len(idx.tokens))

	var (
		best      groundingHit
		bestInSeg bool
		found     bool
	)
	for s := 0; s+size <= len(idx.tokens); s++ {
		if !want[idx.tokens[s].text] {
			continue
		}
		window := idx.tokens[s : s+size]
		score := TokenOverlap(nt, tokenTexts(window))
		if score < v.Threshold {
			continue
		}
		last := len(window) - 1
		for last > 0 && !want[window[last].text] {
			last--
		}
		span := idx.norm.sourceSpan(window[0].start, window[last].end)
		inSeg := seg != nil && span.Start >= seg.Start && span.End <= seg.End
		if !found || score > best.score || (score == best.score && inSeg && !bestInSeg) {
			kind := MatchFuzzy
			if spread > 1 {
				kind = MatchDerived
			}
			best = groundingHit{span: span, kind: kind, score: score}
			bestInSeg = inSeg
			found = true
		}
	}
	return best, found
}

// groundingNeedles lists the strings that must appear in the document for
// a raw value to be grounded.
func groundingNeedles(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case json.Number:
		return []string{t.String()}
	case []any:
		var out []string
		for _, item := range t {
			switch item.(type) {
			case string, json.Number:
				out = append(out, valueText(item))
			default:
				return nil
			}
		}
		return out
	case []string:
		return t
	}
	return nil
}
