package contracts

import (
	"context"
	"time"
)

// Model represents a model identifier
type Model string

// DefaultModel is used when no model option is given.
const DefaultModel = "gemini-2.5-flash"

// Runner lets Extractor schedule segment calls with any concurrency model.
type Runner interface {
	Go(fn func() error) // schedule
	Wait() error        // join / propagate first err
}

// PromptProvider should return the prompt template text for the given tag
type PromptProvider interface {
	GetPrompt(tag string, version int) (string, error)
}

// ContextualPromptProvider extends PromptProvider to render templates with
// the variables of a single segment call.
type ContextualPromptProvider interface {
	PromptProvider
	GetPromptWithContext(tag string, version int, vars PromptVars) (string, error)
}

// Invoker abstraction allows mocking, retrying, and caching
type Invoker interface {
	Generate(ctx context.Context, model Model, prompt string) ([]byte, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, model Model, prompt string) ([]byte, error)

func (f InvokerFunc) Generate(ctx context.Context, model Model, prompt string) ([]byte, error) {
	return f(ctx, model, prompt)
}

// Options represents functional options for extraction
type Options struct {
	Model              string
	Timeout            time.Duration // whole request, 0 → none
	CallTimeout        time.Duration // one model call
	Runner             Runner        // nil → NewLimitedRunner(ctx, Concurrency)
	Concurrency        int
	MaxRetries         int // clamped to 0..1
	Backoff            time.Duration
	MaxChunkChars      int
	OverlapChars       int
	BoundaryTolerance  float64
	HeaderThreshold    float64
	GroundingThreshold float64
	Recheck            bool
	PromptTag          string
	RecheckTag         string
	PromptVersion      int
	TierLabel          Tier
}

// DefaultOptions returns the settings used when no option overrides them.
func DefaultOptions() Options {
	return Options{
		Model:              DefaultModel,
		CallTimeout:        60 * time.Second,
		Concurrency:        4,
		MaxRetries:         1,
		Backoff:            2 * time.Second,
		MaxChunkChars:      DefaultMaxChunkChars,
		OverlapChars:       DefaultOverlapChars,
		BoundaryTolerance:  DefaultBoundaryTolerance,
		HeaderThreshold:    DefaultHeaderThreshold,
		GroundingThreshold: DefaultGroundingThreshold,
		PromptTag:          PromptExtract,
		RecheckTag:         PromptRecheck,
		PromptVersion:      1,
	}
}

func resolveOptions(optFns []func(*Options)) Options {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.MaxRetries = min(max(opts.MaxRetries, 0), 1)
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return opts
}

// Functional option constructors
func WithModel(name string) func(*Options) {
	return func(o *Options) { o.Model = name }
}

func WithTimeout(d time.Duration) func(*Options) {
	return func(o *Options) { o.Timeout = d }
}

func WithCallTimeout(d time.Duration) func(*Options) {
	return func(o *Options) { o.CallTimeout = d }
}

func WithRunner(r Runner) func(*Options) {
	return func(o *Options) { o.Runner = r }
}

func WithConcurrency(n int) func(*Options) {
	return func(o *Options) { o.Concurrency = n }
}

// WithRetry sets the retry policy. At most one retry is ever made.
func WithRetry(max int, backoff time.Duration) func(*Options) {
	return func(o *Options) {
		o.MaxRetries = max
		o.Backoff = backoff
	}
}

// WithChunking sets the segment size and overlap in bytes.
func WithChunking(maxChunkChars, overlapChars int) func(*Options) {
	return func(o *Options) {
		o.MaxChunkChars = maxChunkChars
		o.OverlapChars = overlapChars
	}
}

func WithTolerance(t float64) func(*Options) {
	return func(o *Options) { o.BoundaryTolerance = t }
}

func WithHeaderThreshold(t float64) func(*Options) {
	return func(o *Options) { o.HeaderThreshold = t }
}

func WithGroundingThreshold(t float64) func(*Options) {
	return func(o *Options) { o.GroundingThreshold = t }
}

// WithRecheck enables a second pass for fields the first pass missed.
func WithRecheck() func(*Options) {
	return func(o *Options) { o.Recheck = true }
}

func WithPromptTag(tag string) func(*Options) {
	return func(o *Options) { o.PromptTag = tag }
}

func WithTierLabel(t Tier) func(*Options) {
	return func(o *Options) { o.TierLabel = t }
}
