// Package contracts extracts structured fields from legal contracts with a
// large language model and checks every answer against the contract text.
//
// # Problem Statement
//
// Contracts are long, loosely formatted and full of tables. Asking a model
// for "the termination clause" over a 70 page agreement runs into several
// problems at once:
//
//   - Context limits: the whole document does not fit in one call
//   - Hallucination: a confident answer may not appear anywhere in the text
//   - Split tables: payment schedules break across pages and segments
//   - Cost control: callers need to know what a request will spend
//
// The contracts package addresses these with a fixed pipeline: a field
// taxonomy with nested tiers, a boundary aware chunker, concurrent segment
// calls, a deterministic merge, table normalization and grounding.
//
// # Basic Usage
//
//	ctx := context.Background()
//	client, _ := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key})
//	x := contracts.New(client, nil, nil)
//
//	a, err := x.ExtractText(ctx, text, contracts.Selection{Tier: contracts.TierProfessional})
//	if err != nil {
//	    return err
//	}
//	for _, r := range a.Results() {
//	    fmt.Println(r.FieldKey, r.Status, r.RawValue)
//	}
//
// # Tiers and Custom Selections
//
// The default taxonomy holds 66 fields in 16 categories. The essential tier
// has 9 of them, professional 18 and enterprise 25; each tier contains the
// one below it. A custom selection lists field keys directly:
//
//	sel := contracts.Selection{Fields: []string{"governing_law", "termination_notice"}}
//
// Custom selections are deduplicated, ordered by taxonomy position rather
// than caller order, and limited to MaxCustomFields keys. Unknown keys fail
// with *UnknownFieldError before any model call is made.
//
// # Segmentation
//
// Documents longer than MaxChunkChars are split into overlapping segments.
// Cuts prefer an article or section header, then a paragraph break, then a
// sentence end, within the last BoundaryTolerance share of the window.
// Fields whose hint places them near the document start go only to the
// first segment; signature block fields go only to the last one.
//
// # Failure Handling
//
// A segment whose call times out or returns an unreadable response loses
// only its own answers. When every segment fails Extract returns an error
// wrapping ErrExtractionUnavailable. When the caller cancels, Extract
// returns the analysis of the finished segments together with an error
// wrapping ErrIncomplete:
//
//	a, err := x.ExtractDocument(ctx, doc, sel, contracts.WithTimeout(2*time.Minute))
//	if contracts.IsIncomplete(err) {
//	    log.Printf("%d of %d segments done", a.Metadata.CompletedSegments, a.Metadata.SegmentCount)
//	}
//
// # Grounding
//
// Every found value is searched in the document: verbatim first, then after
// normalization (case, ligatures, hyphenated line breaks, thousands
// separators), then as a fuzzy token window. Grounded results carry the
// byte span of the match. Raw values are never rewritten.
//
// # Prompts
//
// Prompts are twig templates rendered with github.com/tyler-sommer/stick.
// The built-in "extract" and "recheck" templates can be replaced:
//
//	p, _ := contracts.NewStickPromptProvider(contracts.WithFS(os.DirFS("."), "prompts"))
//	x := contracts.New(client, nil, p)
//
// # Dry Runs
//
// DryRun segments the document and renders every prompt without calling the
// model. Explain prints the resulting plan with token and cost estimates:
//
//	plan, _ := x.Explain(ctx, doc, sel)
//	fmt.Print(plan)
package contracts
