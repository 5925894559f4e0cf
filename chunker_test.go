package contracts

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reassemble drops each segment's overlap prefix and joins the rest.
func reassemble(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Text[s.OverlapWithPrev:])
	}
	return b.String()
}

func assertSegmentsCover(t *testing.T, text string, segs []Segment, c *Chunker) {
	t.Helper()
	require.NotEmpty(t, segs)
	assert.Equal(t, 0, segs[0].Start)
	assert.Equal(t, 0, segs[0].OverlapWithPrev)
	assert.Equal(t, len(text), segs[len(segs)-1].End)
	for i, s := range segs {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, text[s.Start:s.End], s.Text)
		assert.LessOrEqual(t, s.Len(), c.MaxChunkChars, "segment %d too long", i)
		assert.LessOrEqual(t, s.OverlapWithPrev, c.OverlapChars)
		assert.True(t, utf8.ValidString(s.Text), "segment %d splits a rune", i)
		if i > 0 {
			assert.Equal(t, segs[i-1].End, s.NewStart(), "segment %d does not continue %d", i, i-1)
		}
	}
	assert.Equal(t, text, reassemble(segs))
}

func TestChunker_ShortTextIsOneSegment(t *testing.T) {
	text := "This Agreement is made on January 1, 2024."
	segs, err := Split(text, 1000, 100)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, text, segs[0].Text)
	assert.Equal(t, Segment{Index: 0, Text: text, Start: 0, End: len(text)}, segs[0])
}

func TestChunker_ExactLimitIsOneSegment(t *testing.T) {
	text := strings.Repeat("x", 500)
	segs, err := Split(text, 500, 50)
	require.NoError(t, err)
	assert.Len(t, segs, 1)
}

func TestChunker_RoundTrip(t *testing.T) {
	var b strings.Builder
	for i := 0; b.Len() < 20_000; i++ {
		b.WriteString("The Supplier shall deliver the goods on time. ")
		if i%7 == 0 {
			b.WriteString("\n\n")
		}
		if i%31 == 0 {
			b.WriteString("\nSection 4 Delivery\n")
		}
	}
	text := b.String()

	c := NewChunker(2_000, 200)
	segs, err := c.Split(text)
	require.NoError(t, err)
	assert.Greater(t, len(segs), 9)
	assertSegmentsCover(t, text, segs, c)
}

func TestChunker_PrefersHeaderOverParagraph(t *testing.T) {
	text := strings.Repeat("a", 899) + "\n" +
		"Section 5 Payment\n" +
		"text text.\n\n" +
		strings.Repeat("b", 2000)

	c := NewChunker(1000, 100)
	cut, class := c.boundary(text, 0, 1000)
	assert.Equal(t, boundaryHeader, class)
	assert.Equal(t, 900, cut)

	segs, err := c.Split(text)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(segs[1].Text[segs[1].OverlapWithPrev:], "Section 5"))
}

func TestChunker_NumberedHeader(t *testing.T) {
	text := strings.Repeat("a", 920) + "\n12.3 Limitation of Liability\n" + strings.Repeat("c", 2000)
	cut, class := NewChunker(1000, 100).boundary(text, 0, 1000)
	assert.Equal(t, boundaryHeader, class)
	assert.Equal(t, 921, cut)
}

func TestChunker_ParagraphThenSentenceThenHard(t *testing.T) {
	c := NewChunker(1000, 100)

	t.Run("paragraph", func(t *testing.T) {
		text := strings.Repeat("a", 948) + "\n\n" + strings.Repeat("b", 2000)
		cut, class := c.boundary(text, 0, 1000)
		assert.Equal(t, boundaryParagraph, class)
		assert.Equal(t, 950, cut)
	})

	t.Run("sentence", func(t *testing.T) {
		text := strings.Repeat("a", 960) + ". " + strings.Repeat("b", 2000)
		cut, class := c.boundary(text, 0, 1000)
		assert.Equal(t, boundarySentence, class)
		assert.Equal(t, 962, cut)
	})

	t.Run("boundary outside tolerance is ignored", func(t *testing.T) {
		text := strings.Repeat("a", 500) + "\n\n" + strings.Repeat("b", 2000)
		cut, class := c.boundary(text, 0, 1000)
		assert.Equal(t, boundaryHard, class)
		assert.Equal(t, 1000, cut)
	})
}

func TestChunker_HardCutKeepsRunesWhole(t *testing.T) {
	text := strings.Repeat("é", 3000)
	c := NewChunker(1001, 101)
	segs, err := c.Split(text)
	require.NoError(t, err)
	assert.Greater(t, len(segs), 1)
	assertSegmentsCover(t, text, segs, c)
	for _, s := range segs[1:] {
		assert.True(t, utf8.RuneStart(text[s.Start]))
		assert.Equal(t, 100, s.OverlapWithPrev, "odd overlap rounds down to whole runes")
	}
}

func TestChunker_SegmentsRecordTheirCut(t *testing.T) {
	text := strings.Repeat("a", 899) + "\n" +
		"Section 5 Payment\n" +
		"text text.\n\n" +
		strings.Repeat("b", 500)
	segs, err := NewChunker(1000, 100).Split(text)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, boundaryHeader, segs[0].cut)
	assert.Equal(t, "header", segs[0].cut.String())
	assert.Equal(t, boundaryEnd, segs[1].cut)
	assert.Equal(t, "end", segs[1].cut.String())
}

func TestChunker_ZeroOverlap(t *testing.T) {
	text := strings.Repeat("word ", 1000)
	c := NewChunker(700, 0)
	segs, err := c.Split(text)
	require.NoError(t, err)
	for _, s := range segs {
		assert.Zero(t, s.OverlapWithPrev)
	}
	assertSegmentsCover(t, text, segs, c)
}

func TestChunker_InvalidParameters(t *testing.T) {
	cases := map[string]*Chunker{
		"zero size":        {MaxChunkChars: 0, OverlapChars: 0},
		"negative overlap": {MaxChunkChars: 100, OverlapChars: -1},
		"overlap too wide": {MaxChunkChars: 100, OverlapChars: 50},
		"tolerance of one": {MaxChunkChars: 100, OverlapChars: 10, Tolerance: 1},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Split("some text")
			assert.ErrorIs(t, err, ErrInvalidChunking)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestChunker_Deterministic(t *testing.T) {
	text := strings.Repeat("Clause text follows here. ", 800)
	a, err := Split(text, 3000, 300)
	require.NoError(t, err)
	b, err := Split(text, 3000, 300)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestChunker_ForFields(t *testing.T) {
	c := NewChunker(10_000, 2_000)
	fs := testFields(t, "effective_date", "governing_law")

	cc := c.ForFields(fs)
	assert.Less(t, cc.MaxChunkChars, c.MaxChunkChars)
	assert.Equal(t, 10_000, c.MaxChunkChars, "receiver must not change")
	assert.NoError(t, cc.validate())

	small := NewChunker(100, 40).ForFields(fs)
	assert.Equal(t, 50, small.MaxChunkChars)
	assert.NoError(t, small.validate())
}

func TestOwnerSegment(t *testing.T) {
	text := strings.Repeat("Payment is due in thirty days. ", 400)
	segs, err := Split(text, 1500, 150)
	require.NoError(t, err)

	for off := 0; off < len(text); off += 97 {
		owner := ownerSegment(segs, off)
		require.GreaterOrEqual(t, owner, 0, "offset %d has no owner", off)
		owners := 0
		for _, s := range segs {
			if s.Owns(off) {
				owners++
			}
		}
		assert.Equal(t, 1, owners, "offset %d", off)
	}
	assert.Equal(t, segs[len(segs)-1].Index, ownerSegment(segs, len(text)))
	assert.Equal(t, -1, ownerSegment(segs, len(text)+1))
}
