package contracts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// Extractor runs tiered field extraction over contract text.
type Extractor struct {
	invoker  Invoker
	prompts  PromptProvider
	taxonomy *Taxonomy
	log      *slog.Logger
}

// New returns an Extractor that calls Gemini and logs with slog.Default().
func New(client *genai.Client, tax *Taxonomy, p PromptProvider) *Extractor {
	return NewWithLogger(client, tax, p, slog.Default())
}

// NewWithLogger lets the caller supply their own logger.
func NewWithLogger(client *genai.Client, tax *Taxonomy, p PromptProvider, log *slog.Logger) *Extractor {
	return NewWithInvoker(NewGenAIInvoker(client, log), tax, p, log)
}

// NewWithInvoker builds an Extractor on any Invoker. A nil taxonomy means
// DefaultTaxonomy and a nil provider means DefaultPromptProvider.
func NewWithInvoker(inv Invoker, tax *Taxonomy, p PromptProvider, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	if tax == nil {
		tax = DefaultTaxonomy()
	}
	if p == nil {
		p = DefaultPromptProvider()
	}
	return &Extractor{invoker: inv, prompts: p, taxonomy: tax, log: log}
}

// Taxonomy returns the field catalogue the extractor resolves tiers against.
func (x *Extractor) Taxonomy() *Taxonomy { return x.taxonomy }

// ExtractText analyzes plain text for a tier or custom field selection.
func (x *Extractor) ExtractText(ctx context.Context, text string, sel Selection, optFns ...func(*Options)) (*ContractAnalysis, error) {
	return x.ExtractDocument(ctx, NewDocument(text), sel, optFns...)
}

// ExtractDocument resolves sel against the taxonomy and analyzes doc.
func (x *Extractor) ExtractDocument(ctx context.Context, doc *Document, sel Selection, optFns ...func(*Options)) (*ContractAnalysis, error) {
	fs, err := x.taxonomy.Resolve(sel)
	if err != nil {
		x.log.Debug("Field selection rejected", "tier", sel.Tier, "custom_fields", len(sel.Fields), "error", err)
		return nil, fmt.Errorf("extract: %w", err)
	}
	return x.Extract(ctx, doc, fs, slices.Concat(optFns, []func(*Options){WithTierLabel(sel.Label())})...)
}

// segmentRun is the first-pass state of one segment.
type segmentRun struct {
	fields   FieldSet
	outcomes map[string]FieldOutcome
	err      error
	done     bool
}

// Extract analyzes doc for an already resolved field set.
//
// A failed segment call only loses that segment's answers. When every
// dispatched call fails the error wraps ErrExtractionUnavailable. When ctx
// is cancelled or the request times out, the analysis of the segments that
// finished is returned together with an error wrapping ErrIncomplete.
func (x *Extractor) Extract(ctx context.Context, doc *Document, fs FieldSet, optFns ...func(*Options)) (*ContractAnalysis, error) {
	opts := resolveOptions(optFns)
	log := x.log.With("request_id", uuid.NewString())

	log.Debug("=== EXTRACT STARTED ===",
		"fields", len(fs),
		"tier", opts.TierLabel,
		"model", opts.Model,
		"prompt_provider_type", fmt.Sprintf("%T", x.prompts))

	switch {
	case doc == nil || strings.TrimSpace(doc.Text) == "":
		return nil, fmt.Errorf("extract: %w", ErrEmptyDocument)
	case len(fs) == 0:
		return nil, fmt.Errorf("extract: %w", ErrEmptyFieldSet)
	case len(fs) > MaxCustomFields:
		return nil, fmt.Errorf("extract: %w", &FieldLimitExceededError{Count: len(fs), Limit: MaxCustomFields})
	case opts.Model == "":
		return nil, fmt.Errorf("extract: %w", ErrModelMissing)
	}

	chunker := &Chunker{
		MaxChunkChars: opts.MaxChunkChars,
		OverlapChars:  opts.OverlapChars,
		Tolerance:     opts.BoundaryTolerance,
	}
	if err := chunker.validate(); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	segs, err := chunker.ForFields(fs).Split(doc.Text)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	parts := Partition(fs, segs)
	log.Debug("Document segmented", "chars", len(doc.Text), "segments", len(segs), "dispatched", len(parts))
	for _, s := range segs {
		log.Debug("Segment cut", "segment", s.Index, "bytes", s.Len(), "overlap", s.OverlapWithPrev, "boundary", s.cut.String())
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
		log.Debug("Set timeout", "timeout", opts.Timeout)
	}

	var calls atomic.Int64
	runs := make([]segmentRun, len(segs))
	for i := range runs {
		runs[i].fields = parts[i]
		runs[i].done = len(parts[i]) == 0
	}

	r := opts.Runner
	if r == nil {
		r = NewLimitedRunner(ctx, opts.Concurrency)
	}
	egCtx := runnerContext(ctx, r)

	var mu sync.Mutex
	for _, idx := range sortedSegments(parts) {
		seg, fields := segs[idx], parts[idx]
		vars := PromptVars{
			Tier:         string(opts.TierLabel),
			Fields:       fields,
			SegmentIndex: idx,
			SegmentCount: len(segs),
			Document:     seg.Text,
			Tables:       tablesContext(segmentTables(doc, seg)),
		}
		r.Go(func() error {
			out, err := x.callSegment(egCtx, opts.PromptTag, vars, opts, log, &calls)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				runs[idx].err = &SegmentError{Segment: idx, Err: err}
				log.Warn("Segment extraction failed", "segment", idx, "error", err)
				return nil
			}
			runs[idx].outcomes, runs[idx].done = out, true
			log.Debug("Segment extracted", "segment", idx, "fields", len(fields))
			return nil
		})
	}
	waitErr := r.Wait()

	cancelled := ctx.Err() != nil
	if waitErr != nil && !cancelled {
		log.Debug("Runner reported error", "error", waitErr)
	}

	dispatched, succeeded := 0, 0
	var lastErr error
	for _, idx := range sortedSegments(parts) {
		dispatched++
		if runs[idx].done {
			succeeded++
		} else if runs[idx].err != nil {
			lastErr = runs[idx].err
		}
	}
	if !cancelled && dispatched > 0 && succeeded == 0 {
		log.Debug("All segments failed", "segments", dispatched, "error", lastErr)
		return nil, fmt.Errorf("extract: %w: %w", ErrExtractionUnavailable, lastErr)
	}

	var recheck map[string][]candidate
	if opts.Recheck && !cancelled {
		recheck = x.recheck(ctx, doc, segs, runs, opts, log, &calls)
	}

	a := x.assemble(doc, fs, segs, runs, recheck, opts)
	a.Metadata.ModelCalls = int(calls.Load())
	a.Metadata.Incomplete = cancelled

	if cancelled {
		log.Debug("Extraction cancelled", "completed", a.Metadata.CompletedSegments, "segments", len(segs))
		return a, fmt.Errorf("extract: %w: %w", ErrIncomplete, ctx.Err())
	}
	log.Info("Extraction completed",
		"segments", len(segs),
		"failed_segments", len(a.Metadata.FailedSegments),
		"found", a.Metadata.FieldsFound,
		"grounded", a.Metadata.FieldsGrounded,
		"model_calls", a.Metadata.ModelCalls)
	return a, nil
}

// callSegment renders the prompt for one segment, calls the model with the
// per-call timeout and retry policy, and parses the response.
func (x *Extractor) callSegment(ctx context.Context, tag string, vars PromptVars, opts Options, log *slog.Logger, calls *atomic.Int64) (map[string]FieldOutcome, error) {
	tpl, err := x.template(tag, vars, opts)
	if err != nil {
		return nil, err
	}
	prompt := buildPrompt(tpl, vars)

	var out map[string]FieldOutcome
	err = retryable(ctx, func() error {
		callCtx := ctx
		if opts.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, opts.CallTimeout)
			defer cancel()
		}
		calls.Add(1)
		raw, err := x.invoker.Generate(callCtx, Model(opts.Model), prompt)
		if err != nil {
			log.Debug("Generate failed", "segment", vars.SegmentIndex, "tag", tag, "error", err)
			return err
		}
		parsed, err := ParseResponse(raw, vars.Fields)
		if err != nil {
			log.Debug("Response rejected", "segment", vars.SegmentIndex, "tag", tag, "raw_length", len(raw), "error", err)
			return err
		}
		out = parsed
		return nil
	}, opts.MaxRetries, opts.Backoff, log)
	return out, err
}

func (x *Extractor) template(tag string, vars PromptVars, opts Options) (string, error) {
	if cp, ok := x.prompts.(ContextualPromptProvider); ok {
		return cp.GetPromptWithContext(tag, opts.PromptVersion, vars)
	}
	return x.prompts.GetPrompt(tag, opts.PromptVersion)
}

// recheck asks each completed segment once more for the fields no segment
// found. Table fields are not rechecked. Failures here are only logged.
func (x *Extractor) recheck(ctx context.Context, doc *Document, segs []Segment, runs []segmentRun, opts Options, log *slog.Logger, calls *atomic.Int64) map[string][]candidate {
	found := make(map[string]bool)
	for _, run := range runs {
		for k, o := range run.outcomes {
			if o.Kind == OutcomeFound {
				found[k] = true
			}
		}
	}

	missing := make(map[int]FieldSet)
	for i, run := range runs {
		if !run.done || run.outcomes == nil {
			continue
		}
		for _, d := range run.fields {
			if !found[d.Key] && d.ValueType != ValueTable {
				missing[i] = append(missing[i], d)
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	log.Debug("Starting recheck pass", "segments", len(missing))

	var (
		mu  sync.Mutex
		out = make(map[int]map[string]FieldOutcome, len(missing))
	)
	r := NewLimitedRunner(ctx, opts.Concurrency)
	egCtx := runnerContext(ctx, r)
	for _, idx := range sortedSegments(missing) {
		vars := PromptVars{
			Tier:         string(opts.TierLabel),
			Fields:       missing[idx],
			SegmentIndex: idx,
			SegmentCount: len(segs),
			Document:     segs[idx].Text,
		}
		r.Go(func() error {
			res, err := x.callSegment(egCtx, opts.RecheckTag, vars, opts, log, calls)
			if err != nil {
				log.Debug("Recheck failed", "segment", idx, "error", err)
				return nil
			}
			mu.Lock()
			out[idx] = res
			mu.Unlock()
			return nil
		})
	}
	_ = r.Wait()

	cands := make(map[string][]candidate)
	for _, idx := range slices.Sorted(maps.Keys(out)) {
		for k, o := range out[idx] {
			if o.Kind == OutcomeFound {
				cands[k] = append(cands[k], candidate{segment: idx, outcome: o})
			}
		}
	}
	return cands
}

// assemble merges segment outcomes into the analysis, normalizes values
// and tables, and grounds every found value against the document.
func (x *Extractor) assemble(doc *Document, fs FieldSet, segs []Segment, runs []segmentRun, recheck map[string][]candidate, opts Options) *ContractAnalysis {
	a := &ContractAnalysis{
		Fields: make(map[string]*ExtractionResult, len(fs)),
		Order:  fs.Keys(),
		Metadata: AnalysisMetadata{
			Tier:           opts.TierLabel,
			SegmentCount:   len(segs),
			TotalChars:     len(doc.Text),
			Pages:          doc.PageCount(),
			Credits:        fs.Credits(),
			TablesDetected: len(doc.Tables),
		},
	}
	for i, run := range runs {
		switch {
		case run.done:
			a.Metadata.CompletedSegments++
		case run.err != nil:
			a.Metadata.FailedSegments = append(a.Metadata.FailedSegments, i)
		}
	}

	normalizer := NewTableNormalizer(opts.HeaderThreshold)
	results := make([]*ExtractionResult, 0, len(fs))
	for _, d := range fs {
		var cands []candidate
		for i, run := range runs {
			if o, ok := run.outcomes[d.Key]; ok {
				cands = append(cands, candidate{segment: i, outcome: o})
			}
		}
		if len(cands) == 0 || !anyFound(cands) {
			cands = append(cands, recheck[d.Key]...)
		}

		res := notFound(d)
		if pick, ok := pickCandidate(cands, segs); ok {
			res = &ExtractionResult{
				FieldKey:      d.Key,
				RawValue:      pick.outcome.Value,
				SourceSegment: pick.segment,
				Status:        StatusUngrounded,
				Evidence:      pick.outcome.Evidence,
				Page:          pick.outcome.Page,
				FieldType:     d.FieldType(),
			}
			if d.ValueType == ValueTable {
				if t := mergeTableCandidates(normalizer, cands); t != nil {
					res.NormalizedValue = t
				}
			} else if nv := normalizeValue(d, pick.outcome.Value); nv != nil {
				res.NormalizedValue = nv
			}
		}
		results = append(results, res)
	}

	NewVerifier(opts.GroundingThreshold).VerifyAll(results, doc.Text, segs)
	for _, r := range results {
		if r.EvidenceSpan != nil {
			if owner := ownerSegment(segs, r.EvidenceSpan.Start); owner >= 0 {
				r.SourceSegment = owner
			}
			if p := doc.PageAt(r.EvidenceSpan.Start); p > 0 {
				r.Page = p
			}
		}
		a.Fields[r.FieldKey] = r
	}

	a.PaymentSchedule = paymentSchedule(normalizer, doc, a.Fields)
	a.tally()
	return a
}

func anyFound(cands []candidate) bool {
	return slices.ContainsFunc(cands, func(c candidate) bool { return c.outcome.Kind == OutcomeFound })
}

// mergeTableCandidates parses every found table fragment in segment order
// and merges them into one table.
func mergeTableCandidates(n *TableNormalizer, cands []candidate) *Table {
	var frags []RawTable
	for _, c := range cands {
		if c.outcome.Kind != OutcomeFound {
			continue
		}
		parsed, err := ParseTableValue(c.outcome.Value)
		if err != nil {
			continue
		}
		frags = append(frags, parsed...)
	}
	if len(frags) == 0 {
		return nil
	}
	return n.Normalize(frags...)
}

// paymentSchedule prefers payment and fee tables found in the document
// itself and falls back to an extracted payment_milestones table.
func paymentSchedule(n *TableNormalizer, doc *Document, fields map[string]*ExtractionResult) *Table {
	var frags []RawTable
	for _, t := range doc.Tables {
		if k := ClassifyTable(t.Headers); k == TablePaymentSchedule || k == TableFee {
			frags = append(frags, t)
		}
	}
	if len(frags) > 0 {
		return n.Normalize(frags...)
	}
	if r := fields["payment_milestones"]; r.Found() {
		if t, ok := r.NormalizedValue.(*Table); ok {
			return t
		}
	}
	return nil
}

// segmentTables returns the document tables that fall inside seg. Tables
// without a page are given to the first segment.
func segmentTables(doc *Document, seg Segment) []RawTable {
	var out []RawTable
	for _, t := range doc.Tables {
		if t.Page == 0 {
			if seg.Index == 0 {
				out = append(out, t)
			}
			continue
		}
		for _, p := range doc.Pages {
			if p.Number == t.Page && p.Start < seg.End && p.End > seg.NewStart() {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// IsIncomplete reports whether err came with a partial analysis.
func IsIncomplete(err error) bool { return errors.Is(err, ErrIncomplete) }
