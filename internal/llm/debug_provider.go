package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// debugPreset defines streaming rate configuration.
type debugPreset struct {
	ChunkSize int
	Delay     time.Duration
}

var presets = map[string]debugPreset{
	"fast":     {ChunkSize: 50, Delay: 5 * time.Millisecond},
	"normal":   {ChunkSize: 20, Delay: 20 * time.Millisecond},
	"slow":     {ChunkSize: 10, Delay: 50 * time.Millisecond},
	"realtime": {ChunkSize: 5, Delay: 30 * time.Millisecond},
	"burst":    {ChunkSize: 200, Delay: 100 * time.Millisecond},
}

const debugReplyTemplate = `Here is a PySpark equivalent of your query:

` + "```python" + `
from pyspark.sql import functions as F

# %s
df = spark.table("t")
result = (
    df.filter(F.col("age") > 30)
      .groupBy("dept")
      .agg(F.count("*").alias("n"), F.avg("salary").alias("avg_salary"))
      .orderBy(F.desc("n"))
)
result.show()
` + "```" + `

Notes:

- ` + "`WHERE`" + ` becomes ` + "`filter`" + ` and ` + "`GROUP BY`" + ` becomes ` + "`groupBy`" + `.
- Aggregates such as COUNT(*) and AVG map to functions in ` + "`pyspark.sql.functions`" + `.
- This reply comes from the offline debug provider; it does not read your SQL.
`

// DebugProvider streams a canned conversion at a configurable rate. It
// needs no credential and makes no network calls, which makes it useful
// for exercising the chat and web front-ends.
type DebugProvider struct {
	variant string
	preset  debugPreset
}

// NewDebugProvider creates a debug provider with the specified variant:
// fast, normal, slow, realtime or burst. Unknown variants stream at the
// normal rate.
func NewDebugProvider(variant string) *DebugProvider {
	variant = strings.TrimSpace(variant)
	if variant == "" {
		variant = "normal"
	}
	preset, ok := presets[variant]
	if !ok {
		preset = presets["normal"]
	}
	return &DebugProvider{variant: variant, preset: preset}
}

func (d *DebugProvider) Name() string {
	if d.variant == "normal" {
		return "debug"
	}
	return "debug:" + d.variant
}

func (d *DebugProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	prompt, _ := LatestPrompt(req.Messages)
	reply := debugReply(prompt)

	return newEventStream(ctx, func(ctx context.Context, ch chan<- Event) error {
		text := reply
		for len(text) > 0 {
			end := min(d.preset.ChunkSize, len(text))
			chunk := text[:end]
			text = text[end:]

			select {
			case <-ctx.Done():
				return ctx.Err()
			case ch <- Event{Type: EventTextDelta, Text: chunk}:
			}

			if d.preset.Delay > 0 && len(text) > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(d.preset.Delay):
				}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ch <- Event{Type: EventUsage, Use: &Usage{
			InputTokens:  len(prompt) / 4,
			OutputTokens: len(reply) / 4,
		}}:
		}
		return nil
	}), nil
}

func debugReply(prompt string) string {
	summary := oneLine(prompt)
	if summary == "" {
		summary = "(no query)"
	}
	return fmt.Sprintf(debugReplyTemplate, truncate(summary, 70))
}
