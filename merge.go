package contracts

import "strings"

// candidate is one segment's answer for a field.
type candidate struct {
	segment int
	outcome FieldOutcome
}

// evidenceStrength scores how literally a candidate is backed by its own
// segment: 2 for a verbatim quote or value, 1 for a normalized match,
// 0 otherwise.
func evidenceStrength(c candidate, seg Segment) int {
	texts := make([]string, 0, 2)
	if c.outcome.Evidence != "" {
		texts = append(texts, c.outcome.Evidence)
	}
	if s := strings.TrimSpace(valueText(c.outcome.Value)); s != "" {
		texts = append(texts, s)
	}
	best := 0
	var segNorm string
	for _, t := range texts {
		if strings.Contains(seg.Text, t) {
			return 2
		}
		if segNorm == "" {
			segNorm = NormalizeForMatching(seg.Text)
		}
		if nt := NormalizeForMatching(t); nt != "" && strings.Contains(segNorm, nt) {
			best = 1
		}
	}
	return best
}

// pickCandidate applies the merge policy: the first found candidate in
// segment order wins unless a later one has strictly stronger evidence.
// Candidates must be sorted by segment index.
func pickCandidate(cands []candidate, segs []Segment) (candidate, bool) {
	var (
		best     candidate
		bestStr  = -1
		havePick bool
	)
	for _, c := range cands {
		if c.outcome.Kind != OutcomeFound {
			continue
		}
		str := 0
		if c.segment >= 0 && c.segment < len(segs) {
			str = evidenceStrength(c, segs[c.segment])
		}
		if !havePick || str > bestStr {
			best, bestStr, havePick = c, str, true
		}
	}
	return best, havePick
}
