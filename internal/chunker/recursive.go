package chunker

import (
	"context"
	"slices"
)

// Recursive takes cfg.Size characters at a time. When the window does not
// reach the end of the text it is shortened to end just after the last
// occurrence of the first separator (in list order) whose position lies past
// half the window; without one the raw cut is kept. The cursor then moves
// by the window length less Overlap (at least one) until it reaches the end
// of the text.
func (e *Engine) Recursive(text string, cfg RecursiveConfig) []Chunk {
	chunks, _ := e.recursive(context.Background(), text, cfg)
	return chunks
}

func (e *Engine) recursive(ctx context.Context, text string, cfg RecursiveConfig) ([]Chunk, error) {
	src := []rune(text)
	b := newBuilder(ctx, src, e.est, cfg.Tokenizer)

	seps := make([][]rune, 0, len(cfg.Separators))
	for _, s := range cfg.Separators {
		if s != "" {
			seps = append(seps, []rune(s))
		}
	}
	half := float64(cfg.Size) * 0.5

	for pos := 0; pos < len(src); {
		if b.stopped() {
			break
		}
		end := pos + min(cfg.Size, len(src)-pos)
		if end < len(src) {
			window := src[pos:end]
			for _, sep := range seps {
				idx := lastIndex(window, sep)
				if idx >= 0 && float64(idx) > half {
					end = pos + idx + len(sep)
					break
				}
			}
		}

		b.add(pos, end)
		pos += max(1, end-pos-cfg.Overlap)
	}
	return b.result()
}

func lastIndex(s, sep []rune) int {
	for i := len(s) - len(sep); i >= 0; i-- {
		if slices.Equal(s[i:i+len(sep)], sep) {
			return i
		}
	}
	return -1
}
