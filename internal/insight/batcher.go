package insight

import (
	"context"
	"log/slog"
	"sync"
)

// batchSize bounds how many insight generations run at once.
const batchSize = 3

// FieldGenerator produces one Insight per field. Implemented by Generator.
type FieldGenerator interface {
	Generate(ctx context.Context, field string, user UserContext) (Insight, error)
}

// Batcher fans insight generation out over fields in fixed-size waves.
// Failures inside a wave are logged and skipped so one bad field never sinks
// the batch; the output preserves input order for the fields that succeeded.
type Batcher struct {
	generator FieldGenerator
	logger    *slog.Logger
}

// NewBatcher creates a Batcher around a generator.
func NewBatcher(generator FieldGenerator, logger *slog.Logger) *Batcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Batcher{generator: generator, logger: logger}
}

// GenerateAll produces insights for every field, at most batchSize in flight,
// waiting for each wave to finish before starting the next.
func (b *Batcher) GenerateAll(ctx context.Context, fields []string, user UserContext) []Insight {
	results := make([]*Insight, len(fields))

	for start := 0; start < len(fields); start += batchSize {
		end := start + batchSize
		if end > len(fields) {
			end = len(fields)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ins, err := b.generator.Generate(ctx, fields[i], user)
				if err != nil {
					b.logger.Warn("insight generation failed", "field", fields[i], "error", err)
					return
				}
				results[i] = &ins
			}(i)
		}
		wg.Wait()

		if ctx.Err() != nil {
			break
		}
	}

	out := make([]Insight, 0, len(fields))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
