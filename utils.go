package contracts

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// buildPrompt frames a rendered template with the segment text and any
// table context. Placeholders left in the template are filled here so that
// plain SimplePromptProvider templates work too.
func buildPrompt(tpl string, vars PromptVars) string {
	slog.Debug("starting prompt construction",
		"template_length", len(tpl),
		"fields_count", len(vars.Fields),
		"document_length", len(vars.Document))

	tpl = strings.NewReplacer(
		"{{.Keys}}", strings.Join(vars.Fields.Keys(), ","),
		"{{.Fields}}", vars.FieldList(),
		"{{.Tier}}", vars.Tier,
	).Replace(tpl)

	var sb strings.Builder
	sb.Grow(len(tpl) + len(vars.Document) + len(vars.Tables) + 64)
	sb.WriteString(tpl)
	if vars.Tables != "" {
		sb.WriteString("\n\n<<TABLES>>\n")
		sb.WriteString(vars.Tables)
		sb.WriteString("\n<<END>>")
	}
	sb.WriteString("\n\n<<DOC>>\n")
	sb.WriteString(vars.Document)
	sb.WriteString("\n<<END>>")

	slog.Debug("constructed final prompt", "final_prompt_length", sb.Len())
	return sb.String()
}

// SanitizeJSONResponse removes code fences and any chatter around the
// outermost JSON object of a model response.
func SanitizeJSONResponse(b []byte) []byte {
	s := strings.TrimSpace(string(b))
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}'); start >= 0 && end > start {
		s = s[start : end+1]
	}
	return []byte(s)
}

// retryable executes call with exponential backoff. Waiting between
// attempts stops as soon as ctx is done.
func retryable(ctx context.Context, call func() error, max int, backoff time.Duration, log *slog.Logger) error {
	if max <= 0 {
		return call() // no retry
	}

	delay := backoff
	var err error
	for i := 0; i <= max; i++ {
		if err = call(); err == nil {
			if i > 0 {
				log.Debug("Attempt succeeded", "attempt", i+1)
			}
			return nil
		}
		if i == max || ctx.Err() != nil {
			log.Debug("Final attempt failed", "attempt", i+1, "error", err)
			return err
		}
		log.Debug("Attempt failed, retrying", "attempt", i+1, "error", err, "delay", delay)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
		delay *= 2
	}
	return err
}
