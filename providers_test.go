package contracts

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFields(t *testing.T, keys ...string) FieldSet {
	t.Helper()
	fs, err := DefaultTaxonomy().Resolve(Selection{Fields: keys})
	require.NoError(t, err)
	return fs
}

func TestSimplePromptProvider_GetPrompt(t *testing.T) {
	provider := SimplePromptProvider{
		"test":  "Test prompt for {{.Keys}}",
		"basic": "Basic prompt",
	}

	t.Run("existing prompt", func(t *testing.T) {
		prompt, err := provider.GetPrompt("test", 1)
		require.NoError(t, err)
		assert.Equal(t, "Test prompt for {{.Keys}}", prompt)
	})

	t.Run("non-existing prompt", func(t *testing.T) {
		prompt, err := provider.GetPrompt("nonexistent", 1)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
		assert.Empty(t, prompt)
	})
}

func TestWithTemplates(t *testing.T) {
	provider, err := NewStickPromptProvider(WithTemplates(map[string]string{
		"test": "Test template",
	}))
	require.NoError(t, err)

	prompt, err := provider.GetPrompt("test", 1)
	require.NoError(t, err)
	assert.Equal(t, "Test template", prompt)
}

func TestWithVar(t *testing.T) {
	provider, err := NewStickPromptProvider(
		WithTemplates(map[string]string{"test": "Test with {{customVar}}"}),
		WithVar("customVar", "custom value"),
	)
	require.NoError(t, err)

	prompt, err := provider.GetPrompt("test", 1)
	require.NoError(t, err)
	assert.Equal(t, "Test with custom value", prompt)
}

func TestWithFS(t *testing.T) {
	fsys := fstest.MapFS{
		"prompts/extract.twig": {Data: []byte("Custom pass for {{ tier }}")},
		"prompts/notes.txt":    {Data: []byte("ignored")},
	}
	provider, err := NewStickPromptProvider(WithFS(fsys, "prompts"))
	require.NoError(t, err)

	prompt, err := provider.GetPromptWithContext(PromptExtract, 1, PromptVars{Tier: "enterprise"})
	require.NoError(t, err)
	assert.Equal(t, "Custom pass for enterprise", prompt)

	_, err = provider.GetPrompt("notes", 1)
	assert.Error(t, err)
}

func TestNewStickPromptProvider_BuiltIns(t *testing.T) {
	provider, err := NewStickPromptProvider()
	require.NoError(t, err)

	_, err = provider.GetPrompt(PromptExtract, 1)
	assert.NoError(t, err)
	_, err = provider.GetPrompt(PromptRecheck, 1)
	assert.NoError(t, err)

	_, err = provider.GetPrompt("nonexistent", 1)
	assert.Error(t, err)
}

func TestStickPromptProvider_AddTemplate(t *testing.T) {
	provider := DefaultPromptProvider()
	provider.AddTemplate("new", "New template")

	prompt, err := provider.GetPrompt("new", 1)
	require.NoError(t, err)
	assert.Equal(t, "New template", prompt)
}

func TestStickPromptProvider_GetPrompt(t *testing.T) {
	provider, err := NewStickPromptProvider(WithTemplates(map[string]string{
		"basic":   "Basic template for {{Tag}} version {{version}}",
		"complex": "Complex template with {{Tag}} and {{Version}}",
	}))
	require.NoError(t, err)

	prompt, err := provider.GetPrompt("basic", 2)
	require.NoError(t, err)
	assert.Equal(t, "Basic template for basic version 2", prompt)

	prompt, err = provider.GetPrompt("complex", 3)
	require.NoError(t, err)
	assert.Equal(t, "Complex template with complex and 3", prompt)
}

func TestStickPromptProvider_GetPromptWithContext(t *testing.T) {
	provider := DefaultPromptProvider()
	vars := PromptVars{
		Tier:         "professional",
		Fields:       testFields(t, "governing_law", "payment_milestones"),
		SegmentIndex: 1,
		SegmentCount: 3,
	}

	prompt, err := provider.GetPromptWithContext(PromptExtract, 1, vars)
	require.NoError(t, err)
	assert.Contains(t, prompt, "EXTRACTION TIER: professional")
	assert.Contains(t, prompt, "DOCUMENT PART: 2 of 3")
	assert.Contains(t, prompt, "- governing_law: ")
	assert.Contains(t, prompt, "[table]")

	t.Run("non-existent template", func(t *testing.T) {
		_, err := provider.GetPromptWithContext("nonexistent", 1, vars)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestPromptVars_FieldList(t *testing.T) {
	vars := PromptVars{Fields: testFields(t, "effective_date", "governing_law")}
	list := vars.FieldList()

	lines := strings.Split(list, "\n")
	require.Len(t, lines, 2)
	assert.Regexp(t, `^- effective_date: .+`, lines[0])
	assert.Regexp(t, `^- governing_law: .+`, lines[1])
}

