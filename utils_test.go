package contracts

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeJSONResponse(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{
			input:    "```json\n{\"key\": \"value\"}\n```",
			expected: "{\"key\": \"value\"}",
		},
		{
			input:    "```\n{\"key\": \"value\"}\n```",
			expected: "{\"key\": \"value\"}",
		},
		{
			input:    "  {\"key\": \"value\"}  ",
			expected: "{\"key\": \"value\"}",
		},
		{
			input:    "Here is the result:\n{\"key\": {\"nested\": 1}}\nLet me know.",
			expected: "{\"key\": {\"nested\": 1}}",
		},
		{
			input:    "no json here",
			expected: "no json here",
		},
	}

	for _, test := range tests {
		result := string(SanitizeJSONResponse([]byte(test.input)))
		if result != test.expected {
			t.Errorf("For input %q, expected %q, got %q", test.input, test.expected, result)
		}
	}
}

func TestBuildPrompt(t *testing.T) {
	vars := PromptVars{
		Tier:     "essential",
		Fields:   testFields(t, "currency", "governing_law"),
		Document: "This Agreement is governed by the laws of Delaware.",
	}

	prompt := buildPrompt("Extract {{.Keys}} for {{.Tier}}:\n{{.Fields}}", vars)
	assert.True(t, strings.HasPrefix(prompt, "Extract currency,governing_law for essential:\n- currency: "))
	assert.Contains(t, prompt, "\n\n<<DOC>>\nThis Agreement is governed by the laws of Delaware.\n<<END>>")
	assert.NotContains(t, prompt, "<<TABLES>>")

	vars.Tables = "Fee | Due\n100 | 2024-01-01"
	prompt = buildPrompt("Extract", vars)
	assert.Less(t, strings.Index(prompt, "<<TABLES>>"), strings.Index(prompt, "<<DOC>>"))
	assert.True(t, strings.HasSuffix(prompt, "<<END>>"))
}

func TestRetryable(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	boom := errors.New("boom")

	t.Run("no retry", func(t *testing.T) {
		calls := 0
		err := retryable(context.Background(), func() error { calls++; return boom }, 0, time.Millisecond, log)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("succeeds on retry", func(t *testing.T) {
		calls := 0
		err := retryable(context.Background(), func() error {
			calls++
			if calls < 2 {
				return boom
			}
			return nil
		}, 1, time.Millisecond, log)
		assert.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("gives up after max", func(t *testing.T) {
		calls := 0
		err := retryable(context.Background(), func() error { calls++; return boom }, 2, time.Millisecond, log)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops waiting on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		start := time.Now()
		err := retryable(ctx, func() error {
			calls++
			cancel()
			return boom
		}, 3, time.Minute, log)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
		assert.Less(t, time.Since(start), time.Second)
	})
}
