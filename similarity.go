package contracts

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var ligatures = map[rune]string{
	'ﬀ': "ff",
	'ﬁ': "fi",
	'ﬂ': "fl",
	'ﬃ': "ffi",
	'ﬄ': "ffl",
}

// normalized is a matching-friendly view of a text that remembers, for
// every byte it emits, the source byte range it came from.
type normalized struct {
	text   string
	starts []int
	ends   []int
}

// NormalizeForMatching lowercases letters, expands ligatures, joins words
// hyphenated across line breaks, drops thousands separators and collapses
// every run of whitespace or punctuation into a single space.
func NormalizeForMatching(s string) string {
	return normalize(s).text
}

func normalize(s string) normalized {
	var (
		b       = make([]byte, 0, len(s))
		starts  = make([]int, 0, len(s))
		ends    = make([]int, 0, len(s))
		pending bool
		spStart int
		spEnd   int
		enc     [utf8.UTFMax]byte
	)
	emit := func(r rune, start, end int) {
		if pending && len(b) > 0 {
			b = append(b, ' ')
			starts = append(starts, spStart)
			ends = append(ends, spEnd)
		}
		pending = false
		n := utf8.EncodeRune(enc[:], r)
		for k := 0; k < n; k++ {
			b = append(b, enc[k])
			starts = append(starts, start)
			ends = append(ends, end)
		}
	}
	separator := func(start, end int) {
		if !pending {
			pending = true
			spStart, spEnd = start, end
		}
	}
	lastIsLetter := func() bool {
		if pending || len(b) == 0 {
			return false
		}
		r, _ := utf8.DecodeLastRune(b)
		return unicode.IsLetter(r)
	}

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		end := i + size
		switch {
		case r == '-' || r == '\u00ad':
			if j, ok := hyphenBreak(s, end); ok && lastIsLetter() {
				i = j
				continue
			}
			separator(i, end)
		case ligatures[r] != "":
			for _, lr := range ligatures[r] {
				emit(lr, i, end)
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			emit(unicode.ToLower(r), i, end)
		case r == ',' && !pending && len(b) > 0 && isASCIIDigit(b[len(b)-1]) && end < len(s) && isASCIIDigit(s[end]):
			// thousands separator
		default:
			separator(i, end)
		}
		i = end
	}
	return normalized{text: string(b), starts: starts, ends: ends}
}

// hyphenBreak reports where the next line continues when s[from:] is the
// rest of a "-\n" line break.
func hyphenBreak(s string, from int) (int, bool) {
	j := from
	for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\r') {
		j++
	}
	if j >= len(s) || s[j] != '\n' {
		return 0, false
	}
	j++
	for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\r' || s[j] == '\n') {
		j++
	}
	return j, true
}

func isASCIIDigit(c byte) bool { return c >= '0' && c <= '9' }

// sourceSpan maps the normalized byte range [i, j) back to the source text.
func (n normalized) sourceSpan(i, j int) Span {
	return Span{Start: n.starts[i], End: n.ends[j-1]}
}

type token struct {
	text  string
	start int // normalized offsets
	end   int
}

func (n normalized) tokens() []token {
	var out []token
	start := -1
	for i := 0; i <= len(n.text); i++ {
		if i == len(n.text) || n.text[i] == ' ' {
			if start >= 0 {
				out = append(out, token{text: n.text[start:i], start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	return out
}

// Levenshtein returns the rune edit distance between a and b.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Similarity is the normalized edit similarity of a and b in [0, 1]:
// 1 - distance / max(len). Two empty strings are identical.
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	return 1 - float64(Levenshtein(a, b))/float64(longest)
}

// TokenOverlap is the share of needle tokens (counted with multiplicity)
// that also occur in hay.
func TokenOverlap(needle, hay []string) float64 {
	if len(needle) == 0 {
		return 0
	}
	counts := make(map[string]int, len(hay))
	for _, t := range hay {
		counts[t]++
	}
	hit := 0
	for _, t := range needle {
		if counts[t] > 0 {
			counts[t]--
			hit++
		}
	}
	return float64(hit) / float64(len(needle))
}

func tokenTexts(ts []token) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.text
	}
	return out
}

func words(s string) []string {
	return strings.Fields(NormalizeForMatching(s))
}
