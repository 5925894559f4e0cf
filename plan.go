package contracts

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// ExecutionStats describes the calls an extraction would make.
type ExecutionStats struct {
	Tier              Tier               `json:"tier"`
	Model             string             `json:"model"`
	PromptCalls       int                `json:"promptCalls"`
	SegmentCount      int                `json:"segmentCount"`
	FieldsRequested   int                `json:"fieldsRequested"`
	Credits           int                `json:"credits"`
	Segments          []SegmentExecution `json:"segments"`
	TotalInputTokens  int                `json:"totalInputTokens"`
	TotalOutputTokens int                `json:"totalOutputTokens"`
}

// SegmentExecution is the planned call for one segment.
type SegmentExecution struct {
	Segment      int      `json:"segment"`
	Start        int      `json:"start"`
	End          int      `json:"end"`
	Fields       []string `json:"fields"`
	InputTokens  int      `json:"inputTokens"`
	OutputTokens int      `json:"outputTokens"`
}

// PlanNodeType defines the type of operation a node represents.
type PlanNodeType string

const (
	SegmentationType PlanNodeType = "Segmentation"
	PromptCallType   PlanNodeType = "PromptCall"
	MergeType        PlanNodeType = "MergeSegments"
	GroundingType    PlanNodeType = "Grounding"
)

// PlanNode is one step of an extraction plan.
type PlanNode struct {
	Type         PlanNodeType   `json:"type"`
	Segment      *int           `json:"segment,omitempty"`
	Model        string         `json:"model,omitempty"`
	Fields       []string       `json:"fields,omitempty"`
	InputTokens  int            `json:"inputTokens,omitempty"`
	OutputTokens int            `json:"outputTokens,omitempty"`
	EstCost      float64        `json:"estCost"`            // abstract units, children included
	ActCost      *float64       `json:"actCost,omitempty"`  // USD when pricing is known
	Children     []*PlanNode    `json:"children,omitempty"` // sub-operations
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ModelPrice represents the pricing for a specific model.
type ModelPrice struct {
	PromptTokCost     float64 // Cost per 1000 input tokens
	CompletionTokCost float64 // Cost per 1000 output tokens
}

// FormatType represents different output formats for the execution plan.
type FormatType string

const (
	FormatText     FormatType = "text"
	FormatJSON     FormatType = "json"
	FormatGraphviz FormatType = "dot"
)

// DryRun segments doc and renders every prompt without calling the model.
func (x *Extractor) DryRun(ctx context.Context, doc *Document, sel Selection, optFns ...func(*Options)) (*ExecutionStats, error) {
	fs, err := x.taxonomy.Resolve(sel)
	if err != nil {
		return nil, fmt.Errorf("dry run: %w", err)
	}
	opts := resolveOptions(optFns)
	if doc == nil || strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("dry run: %w", ErrEmptyDocument)
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("dry run: %w", ErrModelMissing)
	}

	chunker := &Chunker{MaxChunkChars: opts.MaxChunkChars, OverlapChars: opts.OverlapChars, Tolerance: opts.BoundaryTolerance}
	if err := chunker.validate(); err != nil {
		return nil, fmt.Errorf("dry run: %w", err)
	}
	segs, err := chunker.ForFields(fs).Split(doc.Text)
	if err != nil {
		return nil, fmt.Errorf("dry run: %w", err)
	}
	parts := Partition(fs, segs)

	stats := &ExecutionStats{
		Tier:            sel.Label(),
		Model:           opts.Model,
		SegmentCount:    len(segs),
		FieldsRequested: len(fs),
		Credits:         fs.Credits(),
	}
	for _, idx := range sortedSegments(parts) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vars := PromptVars{
			Tier:         string(sel.Label()),
			Fields:       parts[idx],
			SegmentIndex: idx,
			SegmentCount: len(segs),
			Document:     segs[idx].Text,
			Tables:       tablesContext(segmentTables(doc, segs[idx])),
		}
		tpl, err := x.template(opts.PromptTag, vars, opts)
		if err != nil {
			x.log.Debug("Failed to get prompt template", "tag", opts.PromptTag, "error", err)
			tpl = "Extract the following fields from the document: {{.Fields}}"
		}
		in := EstimateTokensFromText(buildPrompt(tpl, vars))
		out := estimateOutputTokensForFields(parts[idx])

		stats.PromptCalls++
		stats.TotalInputTokens += in
		stats.TotalOutputTokens += out
		stats.Segments = append(stats.Segments, SegmentExecution{
			Segment:      idx,
			Start:        segs[idx].Start,
			End:          segs[idx].End,
			Fields:       parts[idx].Keys(),
			InputTokens:  in,
			OutputTokens: out,
		})
		x.log.Debug("Simulated segment call", "segment", idx, "fields", len(parts[idx]), "input_tokens", in, "output_tokens", out)
	}

	x.log.Info("Dry run completed",
		"prompt_calls", stats.PromptCalls,
		"total_input_tokens", stats.TotalInputTokens,
		"total_output_tokens", stats.TotalOutputTokens)
	return stats, nil
}

// Explain performs a dry run and returns the plan as a text tree priced
// with DefaultModelPricing.
func (x *Extractor) Explain(ctx context.Context, doc *Document, sel Selection, optFns ...func(*Options)) (string, error) {
	stats, err := x.DryRun(ctx, doc, sel, optFns...)
	if err != nil {
		return "", err
	}
	return FormatPlan(BuildPlan(stats, DefaultModelPricing()), FormatText)
}

// BuildPlan turns dry-run statistics into a plan tree. Pricing may be nil.
func BuildPlan(stats *ExecutionStats, pricing map[string]ModelPrice) *PlanNode {
	var fields []string
	for _, s := range stats.Segments {
		fields = append(fields, s.Fields...)
	}
	slices.Sort(fields)
	fields = slices.Compact(fields)

	root := &PlanNode{
		Type:   SegmentationType,
		Fields: fields,
		Metadata: map[string]any{
			"tier":     string(stats.Tier),
			"segments": stats.SegmentCount,
			"credits":  stats.Credits,
		},
	}
	for _, s := range stats.Segments {
		seg := s.Segment
		root.Children = append(root.Children, &PlanNode{
			Type:         PromptCallType,
			Segment:      &seg,
			Model:        stats.Model,
			Fields:       s.Fields,
			InputTokens:  s.InputTokens,
			OutputTokens: s.OutputTokens,
		})
	}
	root.Children = append(root.Children,
		&PlanNode{Type: MergeType, Fields: fields},
		&PlanNode{Type: GroundingType, Fields: fields},
	)
	calculateCosts(root, pricing)
	return root
}

// calculateCosts fills EstCost bottom-up and ActCost where pricing allows.
func calculateCosts(node *PlanNode, pricing map[string]ModelPrice) {
	children, actual := 0.0, 0.0
	for _, c := range node.Children {
		calculateCosts(c, pricing)
		children += c.EstCost
		if c.ActCost != nil {
			actual += *c.ActCost
		}
	}
	node.EstCost = nodeCost(node) + children

	if node.Type == PromptCallType {
		if price, ok := pricing[node.Model]; ok {
			actual = float64(node.InputTokens)*price.PromptTokCost/1000.0 +
				float64(node.OutputTokens)*price.CompletionTokCost/1000.0
		}
	}
	if actual > 0 {
		node.ActCost = &actual
	}
}

func nodeCost(node *PlanNode) float64 {
	switch node.Type {
	case SegmentationType:
		return 1.0 + float64(len(node.Fields))*0.1
	case PromptCallType:
		return 3.0 + float64(node.InputTokens)*0.01
	case MergeType:
		return 0.5 + float64(len(node.Fields))*0.1
	case GroundingType:
		return 0.5 + float64(len(node.Fields))*0.2
	}
	return 1.0
}

// FormatPlan renders a plan as text, JSON or Graphviz.
func FormatPlan(plan *PlanNode, format FormatType) (string, error) {
	switch format {
	case FormatText, "":
		return formatAsText(plan), nil
	case FormatJSON:
		return formatAsJSON(plan)
	case FormatGraphviz:
		return formatAsGraphviz(plan), nil
	}
	return "", fmt.Errorf("unsupported format: %s", format)
}

func formatAsGraphviz(plan *PlanNode) string {
	var sb strings.Builder
	sb.WriteString("digraph plan {\n  rankdir=TB;\n  node [shape=box];\n")
	counter := 0
	var walk func(n *PlanNode) string
	walk = func(n *PlanNode) string {
		id := fmt.Sprintf("n%d", counter)
		counter++
		fmt.Fprintf(&sb, "  %s [label=%q];\n", id, formatNodeInfo(n))
		for _, c := range n.Children {
			fmt.Fprintf(&sb, "  %s -> %s;\n", id, walk(c))
		}
		return id
	}
	walk(plan)
	sb.WriteString("}\n")
	return sb.String()
}

// DefaultModelPricing returns current input/output token costs (USD per 1 K tokens).
func DefaultModelPricing() map[string]ModelPrice {
	return map[string]ModelPrice{
		"gemini-2.5-pro":        {PromptTokCost: 0.00125, CompletionTokCost: 0.0100},   // $1.25 / M in, $10 / M out  (Vertex AI pricing)
		"gemini-2.5-flash":      {PromptTokCost: 0.00030, CompletionTokCost: 0.0025},   // $0.30 / M in, $2.50 / M out
		"gemini-2.5-flash-lite": {PromptTokCost: 0.00010, CompletionTokCost: 0.0004},   // $0.10 / M in, $0.40 / M out
		"gemini-2.0-flash":      {PromptTokCost: 0.00015, CompletionTokCost: 0.0006},   // $0.15 / M in, $0.60 / M out
		"gemini-1.5-pro":        {PromptTokCost: 0.00125, CompletionTokCost: 0.0050},   // $1.25 / M in,  $5 / M out
		"gemini-1.5-flash":      {PromptTokCost: 0.000075, CompletionTokCost: 0.00030}, // $0.075 / M in, $0.30 / M out
	}
}

// EstimateTokensFromText provides a rough token estimate from text length.
func EstimateTokensFromText(text string) int {
	// ~4 characters per token for English text
	return (len(text) + 3) / 4
}

// estimateOutputTokensForFields estimates response size by value type.
func estimateOutputTokensForFields(fs FieldSet) int {
	tokens := 10
	for _, d := range fs {
		tokens += 12 // key, verbatim_source and page_number framing
		switch d.ValueType {
		case ValueDate:
			tokens += 15
		case ValueMoney:
			tokens += 20
		case ValueList:
			tokens += 60
		case ValueTable:
			tokens += 150
		default:
			tokens += 40
		}
	}
	return tokens
}
