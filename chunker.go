package contracts

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxChunkChars is about 40k tokens at four bytes per token.
	DefaultMaxChunkChars     = 160_000
	DefaultOverlapChars      = 2_000
	DefaultBoundaryTolerance = 0.15
)

// Segment is a contiguous slice of the document sized for one model call.
// Offsets are byte offsets into the document and always fall on rune
// boundaries. The first OverlapWithPrev bytes repeat the tail of the
// previous segment.
type Segment struct {
	Index           int    `json:"index"`
	Text            string `json:"-"`
	Start           int    `json:"start"`
	End             int    `json:"end"`
	OverlapWithPrev int    `json:"overlapWithPrev"`

	cut boundaryClass
}

// NewStart is the first offset that is not shared with the previous segment.
func (s Segment) NewStart() int { return s.Start + s.OverlapWithPrev }

// Owns reports whether offset lies in the segment's new content.
func (s Segment) Owns(offset int) bool { return offset >= s.NewStart() && offset < s.End }

// Len returns the segment length in bytes.
func (s Segment) Len() int { return s.End - s.Start }

// ownerSegment returns the index of the segment whose new content holds offset.
func ownerSegment(segs []Segment, offset int) int {
	for _, s := range segs {
		if s.Owns(offset) {
			return s.Index
		}
	}
	if len(segs) > 0 && offset == segs[len(segs)-1].End {
		return segs[len(segs)-1].Index
	}
	return -1
}

// boundary classes, strongest first after boundaryEnd, which marks a
// segment that runs to the end of the document
type boundaryClass int

const (
	boundaryEnd boundaryClass = iota
	boundaryHeader
	boundaryParagraph
	boundarySentence
	boundaryHard
)

func (b boundaryClass) String() string {
	switch b {
	case boundaryEnd:
		return "end"
	case boundaryHeader:
		return "header"
	case boundaryParagraph:
		return "paragraph"
	case boundarySentence:
		return "sentence"
	}
	return "hard"
}

var (
	headerLine = regexp.MustCompile(`^[ \t]*(?:(?i:article|section|exhibit|schedule|appendix|annex|part)\s+[IVXLC\d]+[A-Z]?\b` +
		`|\d+(?:\.\d+)*[.)]\s+[A-Z]` +
		`|\d+\.\d+(?:\.\d+)*\s+[A-Z])`)
	paragraphBreak = regexp.MustCompile(`\n[ \t\r]*\n\s*`)
	sentenceEnd    = regexp.MustCompile(`[.!?;]["')\]]?\s+`)
)

// Chunker splits contract text into overlapping segments that end on the
// strongest boundary available near the size limit.
type Chunker struct {
	MaxChunkChars int
	// OverlapChars caps the bytes a segment repeats from its predecessor.
	// The overlap starts on a rune boundary, so it may come out shorter.
	OverlapChars int
	// Tolerance is the trailing share of a full segment searched for a
	// boundary before falling back to a hard cut.
	Tolerance float64
}

// NewChunker returns a chunker with the default tolerance.
func NewChunker(maxChunkChars, overlapChars int) *Chunker {
	return &Chunker{
		MaxChunkChars: maxChunkChars,
		OverlapChars:  overlapChars,
		Tolerance:     DefaultBoundaryTolerance,
	}
}

// Split is shorthand for NewChunker(maxChunkChars, overlapChars).Split(text).
func Split(text string, maxChunkChars, overlapChars int) ([]Segment, error) {
	return NewChunker(maxChunkChars, overlapChars).Split(text)
}

func (c *Chunker) validate() error {
	if c.MaxChunkChars <= 0 {
		return fmt.Errorf("%w: max chunk size %d", ErrInvalidChunking, c.MaxChunkChars)
	}
	if c.OverlapChars < 0 || c.OverlapChars*2 >= c.MaxChunkChars {
		return fmt.Errorf("%w: overlap %d must be below half of %d", ErrInvalidChunking, c.OverlapChars, c.MaxChunkChars)
	}
	if c.Tolerance < 0 || c.Tolerance >= 1 {
		return fmt.Errorf("%w: tolerance %.2f outside [0,1)", ErrInvalidChunking, c.Tolerance)
	}
	return nil
}

// ForFields shrinks the chunk size by the prompt space the field list will
// take, never below half of the configured size.
func (c *Chunker) ForFields(fs FieldSet) *Chunker {
	overhead := 0
	for _, d := range fs {
		overhead += len(d.Key) + len(d.Hint) + 8
	}
	cc := *c
	cc.MaxChunkChars = max(c.MaxChunkChars-overhead, c.MaxChunkChars/2)
	if cc.OverlapChars*2 >= cc.MaxChunkChars {
		cc.OverlapChars = cc.MaxChunkChars/2 - 1
	}
	return &cc
}

// Split segments text. A text no longer than MaxChunkChars is returned as
// one segment identical to the input. Dropping the overlap prefix of every
// segment after the first and concatenating reproduces the input.
func (c *Chunker) Split(text string) ([]Segment, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if len(text) <= c.MaxChunkChars {
		return []Segment{{Index: 0, Text: text, Start: 0, End: len(text)}}, nil
	}

	var (
		segs    []Segment
		start   int
		overlap int
	)
	for {
		limit := start + c.MaxChunkChars
		if limit >= len(text) {
			segs = append(segs, Segment{
				Index:           len(segs),
				Text:            text[start:],
				Start:           start,
				End:             len(text),
				OverlapWithPrev: overlap,
			})
			return segs, nil
		}

		cut, class := c.boundary(text, start, limit)
		segs = append(segs, Segment{
			Index:           len(segs),
			Text:            text[start:cut],
			Start:           start,
			End:             cut,
			OverlapWithPrev: overlap,
			cut:             class,
		})

		next := nextRuneStart(text, cut-c.OverlapChars)
		if next <= start || next > cut {
			next = cut
		}
		overlap = cut - next
		start = next
	}
}

// boundary picks the cut position for a segment that starts at start and
// may not extend past limit.
func (c *Chunker) boundary(text string, start, limit int) (int, boundaryClass) {
	lo := limit - int(float64(c.MaxChunkChars)*c.Tolerance)
	if lo <= start {
		lo = start + 1
	}

	// latest line start in (lo, limit] that opens a section header
	for k := limit; k > lo; k-- {
		if text[k-1] != '\n' {
			continue
		}
		line := text[k:]
		if nl := strings.IndexByte(line, '\n'); nl >= 0 {
			line = line[:nl]
		}
		if headerLine.MatchString(line) {
			return k, boundaryHeader
		}
	}

	window := text[lo:limit]
	if m := paragraphBreak.FindAllStringIndex(window, -1); len(m) > 0 {
		return lo + m[len(m)-1][1], boundaryParagraph
	}
	if m := sentenceEnd.FindAllStringIndex(window, -1); len(m) > 0 {
		return lo + m[len(m)-1][1], boundarySentence
	}

	cut := runeStart(text, limit)
	if cut <= start {
		_, size := utf8.DecodeRuneInString(text[start:])
		cut = start + size
	}
	return cut, boundaryHard
}

// nextRuneStart moves i forward to the next rune start at or after it.
func nextRuneStart(text string, i int) int {
	if i <= 0 {
		return 0
	}
	for i < len(text) && !utf8.RuneStart(text[i]) {
		i++
	}
	return i
}

// runeStart moves i back to the start of the rune containing it.
func runeStart(text string, i int) int {
	if i <= 0 {
		return 0
	}
	if i >= len(text) {
		return len(text)
	}
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}
