package contracts

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/tyler-sommer/stick"
)

// Built-in prompt tags.
const (
	PromptExtract = "extract"
	PromptRecheck = "recheck"
)

// DefaultExtractTemplate is the twig template for the first pass.
const DefaultExtractTemplate = `You are an expert contract analyst. Extract the requested fields into JSON format.

EXTRACTION TIER: {{ tier }}
DOCUMENT PART: {{ segment_number }} of {{ segment_count }}

FIELDS TO EXTRACT:
{{ fields_list }}

Instructions:
1. For each field return an object with "value", "verbatim_source" (an exact substring of the document) and "page_number".
2. If a field is not present in this part of the document, return null for it.
3. Table fields return "value" as {"headers": [...], "rows": [[...], ...]}.
4. Return ONLY JSON, keyed by field name.`

// DefaultRecheckTemplate is the twig template for the second pass.
const DefaultRecheckTemplate = `You are an expert contract analyst doing a SECOND PASS review.
The initial extraction MISSED these fields. Look for synonyms or hidden clauses.

FIELDS TO RE-EXTRACT:
{{ fields_list }}

Return JSON keyed by field name, each with 'value', 'verbatim_source' and 'page_number'. Use null when the field is truly absent.`

// PromptVars are the per-call values a template can use.
type PromptVars struct {
	Tier         string
	Fields       FieldSet
	SegmentIndex int
	SegmentCount int
	Document     string
	Tables       string
}

// FieldList renders "- key: hint" lines for the requested fields.
func (v PromptVars) FieldList() string {
	var sb strings.Builder
	for i, d := range v.Fields {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "- %s: %s", d.Key, d.Hint)
		if d.ValueType == ValueTable {
			sb.WriteString(" [table]")
		}
	}
	return sb.String()
}

// → StickPromptProvider is fs-agnostic
type StickPromptProvider struct {
	env       *stick.Env
	templates map[string]string
	vars      map[string]interface{} // Template variables
}

// → Option pattern keeps the constructor flexible
type Option func(*StickPromptProvider) error

// WithFS loads every *.twig file found under dir in the supplied FS.
func WithFS[F fs.FS](fsys F, dir string) Option {
	return func(p *StickPromptProvider) error {
		return fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".twig") {
				return nil
			}
			content, readErr := fs.ReadFile(fsys, path)
			if readErr != nil {
				return fmt.Errorf("read %s: %w", path, readErr)
			}
			tag := strings.TrimSuffix(filepath.Base(path), ".twig")
			p.templates[tag] = string(content)
			return nil
		})
	}
}

// WithTemplates lets you inject an in-memory map.
func WithTemplates(m map[string]string) Option {
	return func(p *StickPromptProvider) error {
		for k, v := range m {
			p.templates[k] = v
		}
		return nil
	}
}

// WithVar adds a variable that will be available in all templates
func WithVar(key string, value interface{}) Option {
	return func(p *StickPromptProvider) error {
		if p.vars == nil {
			p.vars = make(map[string]interface{})
		}
		p.vars[key] = value
		return nil
	}
}

// NewStickPromptProvider builds a provider from any combination of options.
// The extract and recheck templates are preloaded and may be overridden.
func NewStickPromptProvider(opts ...Option) (*StickPromptProvider, error) {
	p := &StickPromptProvider{
		env: stick.New(nil),
		templates: map[string]string{
			PromptExtract: DefaultExtractTemplate,
			PromptRecheck: DefaultRecheckTemplate,
		},
		vars: make(map[string]interface{}),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// DefaultPromptProvider returns a provider holding only the built-in templates.
func DefaultPromptProvider() *StickPromptProvider {
	p, _ := NewStickPromptProvider()
	return p
}

// AddTemplate updates or inserts one template.
func (p *StickPromptProvider) AddTemplate(tag, tpl string) { p.templates[tag] = tpl }

// GetPrompt renders the template for the given tag.
func (p *StickPromptProvider) GetPrompt(tag string, version int) (string, error) {
	return p.render(tag, version, nil)
}

// GetPromptWithContext renders the template with the variables of one call.
func (p *StickPromptProvider) GetPromptWithContext(tag string, version int, vars PromptVars) (string, error) {
	return p.render(tag, version, map[string]stick.Value{
		"tier":           vars.Tier,
		"Tier":           vars.Tier,
		"fields_list":    vars.FieldList(),
		"field_keys":     strings.Join(vars.Fields.Keys(), ", "),
		"segment_index":  vars.SegmentIndex,
		"segment_number": vars.SegmentIndex + 1,
		"segment_count":  vars.SegmentCount,
	})
}

func (p *StickPromptProvider) render(tag string, version int, extra map[string]stick.Value) (string, error) {
	tpl, ok := p.templates[tag]
	if !ok {
		return "", fmt.Errorf("template %q not found", tag)
	}

	templateCtx := make(map[string]stick.Value, len(p.vars)+len(extra)+4)
	templateCtx["version"] = version
	templateCtx["tag"] = tag
	templateCtx["Version"] = version
	templateCtx["Tag"] = tag
	for k, v := range extra {
		templateCtx[k] = v
	}
	for k, v := range p.vars {
		templateCtx[k] = v
	}

	var out strings.Builder
	if err := p.env.Execute(tpl, &out, templateCtx); err != nil {
		return "", fmt.Errorf("execute %q: %w", tag, err)
	}
	return out.String(), nil
}

// → SimplePromptProvider stays untouched; {{.Fields}}, {{.Keys}} and
// {{.Tier}} placeholders are filled when the prompt is built.
type SimplePromptProvider map[string]string

func (s SimplePromptProvider) GetPrompt(tag string, version int) (string, error) {
	if tpl, ok := s[tag]; ok {
		return tpl, nil
	}
	return "", fmt.Errorf("prompt %q not found", tag)
}
