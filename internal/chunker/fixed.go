package chunker

import "context"

// windowCharsPerToken converts token-unit windows to characters whatever
// tokenizer is used for token counts.
const windowCharsPerToken = 4

// Fixed performs a sliding window of cfg.Size units advancing by
// Size-Overlap units (at least one) until the cursor reaches the end of the
// text. Windows starting near the end are shorter than Size.
func (e *Engine) Fixed(text string, cfg FixedConfig) []Chunk {
	chunks, _ := e.fixed(context.Background(), text, cfg)
	return chunks
}

func (e *Engine) fixed(ctx context.Context, text string, cfg FixedConfig) ([]Chunk, error) {
	src := []rune(text)
	b := newBuilder(ctx, src, e.est, cfg.Tokenizer)

	scale := 1
	if cfg.Unit == UnitTokens {
		scale = windowCharsPerToken
	}
	size := toChars(cfg.Size, scale, len(src))
	step := 1
	if cfg.Size > cfg.Overlap {
		step = max(1, toChars(cfg.Size-cfg.Overlap, scale, len(src)))
	}

	for start := 0; start < len(src); start += step {
		if b.stopped() {
			break
		}
		b.add(start, start+min(size, len(src)-start))
	}
	return b.result()
}

// toChars converts n units of scale characters each, capped at limit.
// Anything past limit spans the whole text, so the cap keeps the result
// the same while ruling out overflow.
func toChars(n, scale, limit int) int {
	if n > limit/scale {
		return limit
	}
	return n * scale
}
