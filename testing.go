package contracts

import (
	"context"
	"encoding/json"
	"log/slog"
)

// echoInvoker answers every prompt with a fixed set of field values.
type echoInvoker struct {
	answers map[string]any
}

func (t *echoInvoker) Generate(ctx context.Context, model Model, prompt string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return json.Marshal(t.answers)
}

// NewForTesting creates an Extractor on the default taxonomy whose model
// always returns answers, keyed by field.
func NewForTesting(answers map[string]any) *Extractor {
	return NewWithInvoker(&echoInvoker{answers: answers}, nil, nil, slog.Default())
}
